package backend_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/seantiz/monolithium/internal/backend"
	"github.com/seantiz/monolithium/internal/model"
)

func TestBuildErrorMessage(t *testing.T) {
	err := &backend.BuildError{Backend: model.BackendGPU, Phase: backend.PhaseConfigure, ExitCode: 2}
	want := "gpu backend configure phase failed with exit code 2"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestErrorsSurviveWrapping(t *testing.T) {
	wrapped := fmt.Errorf("pipeline: %w", &backend.RunFailure{Backend: model.BackendNative, ExitCode: 101})

	var rf *backend.RunFailure
	if !errors.As(wrapped, &rf) {
		t.Fatal("errors.As did not find RunFailure")
	}
	if rf.ExitCode != 101 {
		t.Errorf("ExitCode = %d, want 101", rf.ExitCode)
	}

	var be *backend.BuildError
	if errors.As(wrapped, &be) {
		t.Error("RunFailure should not match BuildError")
	}
}
