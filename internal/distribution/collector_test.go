package distribution

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"strings"
	"testing"

	"github.com/seantiz/monolithium/internal/backend"
	"github.com/seantiz/monolithium/internal/model"
	"github.com/seantiz/monolithium/internal/results"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// scriptedBackend returns canned output keyed by the joined engine args.
type scriptedBackend struct {
	outputs map[string]string
	codes   map[string]int
	calls   [][]string
}

func (s *scriptedBackend) Kind() model.BackendKind { return model.BackendNative }

func (s *scriptedBackend) Build(_ context.Context) error { return nil }

func (s *scriptedBackend) Run(_ context.Context, spec backend.Spec) (backend.Result, error) {
	s.calls = append(s.calls, slices.Clone(spec.Args))
	key := strings.Join(spec.Args, " ")
	if !spec.Capture {
		return backend.Result{}, errors.New("collector must capture output")
	}
	return backend.Result{ExitCode: s.codes[key], Stdout: []byte(s.outputs[key])}, nil
}

func (s *scriptedBackend) Capabilities() backend.Capabilities { return backend.Capabilities{} }

func line(m model.Monolith) string { return results.Encode(m) + "\n" }

func TestCollectLinearSpawn(t *testing.T) {
	b := &scriptedBackend{outputs: map[string]string{
		"spawn linear -t 50000": "json{\"area\":4,\"seed\":7,\"minx\":0,\"maxx\":10,\"minz\":0,\"maxz\":10}\n" +
			"noise line\n" +
			"json{\"area\":9,\"seed\":8,\"minx\":5,\"maxx\":20,\"minz\":5,\"maxz\":20}\n",
	}}
	c := NewCollector(b, []string{"spawn", "linear", "-t", "50000"}, discardLogger())

	d, err := c.Collect(context.Background(), model.ModeLinearSpawn, Options{})
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if d.Len() != 2 {
		t.Fatalf("Len = %d, want 2", d.Len())
	}
	recs := d.Records()
	if recs[0].Seed != 7 || recs[1].Seed != 8 {
		t.Errorf("seeds = [%d %d], want [7 8]", recs[0].Seed, recs[1].Seed)
	}
	if len(b.calls) != 1 {
		t.Errorf("got %d invocations, want 1", len(b.calls))
	}
}

func TestCollectLinearSpawnArgsOverride(t *testing.T) {
	b := &scriptedBackend{}
	c := NewCollector(b, []string{"spawn", "linear"}, discardLogger())

	if _, err := c.Collect(context.Background(), model.ModeLinearSpawn, Options{Args: []string{"spawn", "random", "-t", "10"}}); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if got := strings.Join(b.calls[0], " "); got != "spawn random -t 10" {
		t.Errorf("args = %q", got)
	}
}

func TestCollectPerWorld(t *testing.T) {
	b := &scriptedBackend{outputs: map[string]string{
		"find --seed 5": line(model.Monolith{Area: 1, Seed: 5, MaxX: 1, MaxZ: 1}) + "Found 1 Monoliths\n",
		"find --seed 3": line(model.Monolith{Area: 2, Seed: 3, MaxX: 1, MaxZ: 1}) +
			line(model.Monolith{Area: 3, Seed: 3, MaxX: 2, MaxZ: 2}),
	}}
	c := NewCollector(b, nil, discardLogger())

	d, err := c.Collect(context.Background(), model.ModePerWorld, Options{Seeds: []int64{5, 3}})
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}

	var areas []int64
	for _, m := range d.Records() {
		areas = append(areas, m.Area)
	}
	if !slices.Equal(areas, []int64{1, 2, 3}) {
		t.Errorf("areas = %v, want [1 2 3]", areas)
	}
	if len(b.calls) != 2 {
		t.Errorf("got %d invocations, want 2", len(b.calls))
	}
}

func TestCollectPerWorldNeedsSeeds(t *testing.T) {
	c := NewCollector(&scriptedBackend{}, nil, discardLogger())
	if _, err := c.Collect(context.Background(), model.ModePerWorld, Options{}); err == nil {
		t.Error("expected error for empty seed list, got nil")
	}
}

func TestInvocationsRejectsNegativeSeed(t *testing.T) {
	b := &scriptedBackend{}
	c := NewCollector(b, nil, discardLogger())

	if _, err := c.Invocations(model.ModePerWorld, Options{Seeds: []int64{3, -5}}); err == nil {
		t.Fatal("expected error for negative seed, got nil")
	}
	if _, err := c.Collect(context.Background(), model.ModePerWorld, Options{Seeds: []int64{-1}}); err == nil {
		t.Fatal("Collect: expected error for negative seed, got nil")
	}
	if len(b.calls) != 0 {
		t.Errorf("backend ran %v, want no invocations", b.calls)
	}
}

func TestCollectUnknownMode(t *testing.T) {
	b := &scriptedBackend{}
	c := NewCollector(b, nil, discardLogger())
	if _, err := c.Collect(context.Background(), "everything", Options{}); err == nil {
		t.Error("expected error for unknown mode, got nil")
	}
	if len(b.calls) != 0 {
		t.Errorf("engine ran %d times, want 0", len(b.calls))
	}
}

func TestCollectRunFailure(t *testing.T) {
	b := &scriptedBackend{codes: map[string]int{"find --seed 2": 101}}
	c := NewCollector(b, nil, discardLogger())

	_, err := c.Collect(context.Background(), model.ModePerWorld, Options{Seeds: []int64{1, 2, 3}})
	var rf *backend.RunFailure
	if !errors.As(err, &rf) {
		t.Fatalf("error = %v, want RunFailure", err)
	}
	if rf.ExitCode != 101 {
		t.Errorf("ExitCode = %d, want 101", rf.ExitCode)
	}
	if len(b.calls) != 2 {
		t.Errorf("got %d invocations, want 2", len(b.calls))
	}
}

func TestCollectPolicy(t *testing.T) {
	out := "json{oops\n" + line(model.Monolith{Seed: 4})
	tests := []struct {
		name    string
		policy  results.Policy
		wantErr bool
		wantLen int
	}{
		{"strict", results.Strict, true, 0},
		{"skip invalid", results.SkipInvalid, false, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &scriptedBackend{outputs: map[string]string{"spawn": out}}
			c := NewCollector(b, []string{"spawn"}, discardLogger())

			d, err := c.Collect(context.Background(), model.ModeLinearSpawn, Options{Policy: tt.policy})
			if tt.wantErr {
				var de *results.DecodeError
				if !errors.As(err, &de) {
					t.Fatalf("error = %v, want DecodeError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Collect: %v", err)
			}
			if d.Len() != tt.wantLen {
				t.Errorf("Len = %d, want %d", d.Len(), tt.wantLen)
			}
		})
	}
}

func TestCollectCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := &scriptedBackend{}
	c := NewCollector(b, []string{"spawn"}, discardLogger())
	if _, err := c.Collect(ctx, model.ModeLinearSpawn, Options{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if len(b.calls) != 0 {
		t.Errorf("engine ran %d times, want 0", len(b.calls))
	}
}
