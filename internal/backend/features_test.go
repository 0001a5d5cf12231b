package backend_test

import (
	"slices"
	"testing"

	"github.com/seantiz/monolithium/internal/backend"
)

func TestTranslate(t *testing.T) {
	tests := []struct {
		name         string
		args         []string
		declared     []string
		wantFiltered []string
		wantOptions  []string
	}{
		{
			name:         "flag removed and option added",
			args:         []string{"spawn", "--turbo", "-t", "50000"},
			declared:     []string{"turbo"},
			wantFiltered: []string{"spawn", "-t", "50000"},
			wantOptions:  []string{"--features", "turbo"},
		},
		{
			name:         "no declared features",
			args:         []string{"find", "-s", "7"},
			declared:     nil,
			wantFiltered: []string{"find", "-s", "7"},
			wantOptions:  nil,
		},
		{
			name:         "declared feature absent",
			args:         []string{"find", "-s", "7"},
			declared:     []string{"filter-fracts"},
			wantFiltered: []string{"find", "-s", "7"},
			wantOptions:  nil,
		},
		{
			name:         "options follow declaration order",
			args:         []string{"--b", "spawn", "--a"},
			declared:     []string{"a", "b"},
			wantFiltered: []string{"spawn"},
			wantOptions:  []string{"--features", "a", "--features", "b"},
		},
		{
			name:         "only first occurrence removed",
			args:         []string{"--turbo", "x", "--turbo"},
			declared:     []string{"turbo"},
			wantFiltered: []string{"x", "--turbo"},
			wantOptions:  []string{"--features", "turbo"},
		},
		{
			name:         "bare feature name is not a flag",
			args:         []string{"turbo", "-turbo"},
			declared:     []string{"turbo"},
			wantFiltered: []string{"turbo", "-turbo"},
			wantOptions:  nil,
		},
		{
			name:         "empty args",
			args:         nil,
			declared:     []string{"turbo"},
			wantFiltered: []string{},
			wantOptions:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filtered, options := backend.Translate(tt.args, tt.declared, backend.CargoFeature)
			if !slices.Equal(filtered, tt.wantFiltered) {
				t.Errorf("filtered = %q, want %q", filtered, tt.wantFiltered)
			}
			if !slices.Equal(options, tt.wantOptions) {
				t.Errorf("options = %q, want %q", options, tt.wantOptions)
			}
		})
	}
}

func TestTranslateLeavesInputUntouched(t *testing.T) {
	args := []string{"spawn", "--turbo", "-t", "50000"}
	orig := slices.Clone(args)

	backend.Translate(args, []string{"turbo"}, backend.CargoFeature)

	if !slices.Equal(args, orig) {
		t.Errorf("args mutated: %q, want %q", args, orig)
	}
}
