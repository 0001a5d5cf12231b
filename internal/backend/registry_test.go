package backend_test

import (
	"context"
	"testing"

	"github.com/seantiz/monolithium/internal/backend"
	"github.com/seantiz/monolithium/internal/model"
)

// stubBackend is a minimal Backend for registry tests.
type stubBackend struct {
	kind model.BackendKind
	name string
}

func (s *stubBackend) Kind() model.BackendKind { return s.kind }

func (s *stubBackend) Build(_ context.Context) error { return nil }

func (s *stubBackend) Run(_ context.Context, _ backend.Spec) (backend.Result, error) {
	return backend.Result{}, nil
}

func (s *stubBackend) Capabilities() backend.Capabilities {
	return backend.Capabilities{Name: s.name, Kind: s.kind}
}

func TestRegistryRegisterAndList(t *testing.T) {
	reg := backend.NewRegistry()
	reg.Register(&stubBackend{kind: model.BackendNative, name: "cargo"})
	reg.Register(&stubBackend{kind: model.BackendGPU, name: "meson"})

	list := reg.List()
	if len(list) != 2 {
		t.Fatalf("List() returned %d backends, want 2", len(list))
	}
	// Sorted by kind: gpu < native.
	if list[0].Kind != model.BackendGPU || list[1].Kind != model.BackendNative {
		t.Errorf("List() order = [%s %s], want [gpu native]", list[0].Kind, list[1].Kind)
	}
	if list[0].Capabilities.Name != "meson" {
		t.Errorf("gpu capabilities name = %q, want %q", list[0].Capabilities.Name, "meson")
	}
}

func TestRegistryResolve(t *testing.T) {
	reg := backend.NewRegistry()
	reg.Register(&stubBackend{kind: model.BackendNative, name: "cargo"})

	b, err := reg.Resolve(model.BackendNative)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if b.Capabilities().Name != "cargo" {
		t.Errorf("resolved backend name = %q, want %q", b.Capabilities().Name, "cargo")
	}
}

func TestRegistryResolveNotRegistered(t *testing.T) {
	reg := backend.NewRegistry()

	if _, err := reg.Resolve(model.BackendGPU); err == nil {
		t.Error("expected error for unregistered backend, got nil")
	}
}

func TestRegistryRegisterReplaces(t *testing.T) {
	reg := backend.NewRegistry()
	reg.Register(&stubBackend{kind: model.BackendNative, name: "first"})
	reg.Register(&stubBackend{kind: model.BackendNative, name: "second"})

	if n := len(reg.List()); n != 1 {
		t.Fatalf("List() returned %d backends, want 1", n)
	}
	b, _ := reg.Resolve(model.BackendNative)
	if b.Capabilities().Name != "second" {
		t.Errorf("resolved backend name = %q, want %q", b.Capabilities().Name, "second")
	}
}
