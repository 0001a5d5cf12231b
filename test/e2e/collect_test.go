package e2e

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/seantiz/monolithium/internal/api"
	"github.com/seantiz/monolithium/internal/backend"
	"github.com/seantiz/monolithium/internal/backend/gpu"
	"github.com/seantiz/monolithium/internal/engine"
	"github.com/seantiz/monolithium/internal/model"
	"github.com/seantiz/monolithium/internal/process"
	"github.com/seantiz/monolithium/internal/store"
	"github.com/seantiz/monolithium/internal/toolchain"
)

const artifact = "/src/monolithium/build/monolithium"

// stack is the whole pipeline wired together, with processes faked.
type stack struct {
	ts    *httptest.Server
	eng   *engine.Engine
	store *store.SQLiteStore
	exec  *process.Fake
}

func newStack(t *testing.T, exec *process.Fake) *stack {
	t.Helper()

	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	onPath := func(file string) (string, error) {
		if file == "nvcc" {
			return "/usr/local/cuda/bin/nvcc", nil
		}
		return "", errors.New("not found")
	}

	reg := backend.NewRegistry()
	reg.Register(gpu.New(gpu.Config{
		Meson:    []string{"meson"},
		Ninja:    []string{"ninja"},
		NVCC:     "nvcc",
		RepoRoot: "/src/monolithium",
		BuildDir: "/src/monolithium/build",
	}, exec, toolchain.NewResolver(exec, onPath, logger), logger))

	eng := engine.NewEngine(s, reg, []string{"spawn", "linear", "-t", "50000"}, logger)
	srv := api.NewServer(":0", s, reg, logger)

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	return &stack{ts: ts, eng: eng, store: s, exec: exec}
}

func (st *stack) get(t *testing.T, path string, v any) int {
	t.Helper()
	resp, err := http.Get(st.ts.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	return resp.StatusCode
}

func TestCollectPerWorldThroughAPI(t *testing.T) {
	exec := process.NewFake().
		On(artifact+" find --seed 7", process.FakeResponse{
			Stdout: "json {\"area\":4,\"seed\":7,\"minx\":0,\"maxx\":10,\"minz\":0,\"maxz\":10}\n" +
				"Found 1 Monoliths, remember they repeat every 67108864 blocks on any direction!\n",
		}).
		On(artifact+" find --seed 8", process.FakeResponse{
			Stdout: "noise line\njson {\"area\":9,\"seed\":8,\"minx\":5,\"maxx\":20,\"minz\":5,\"maxz\":20}\n",
		})
	st := newStack(t, exec)

	run, dist, err := st.eng.Collect(context.Background(), engine.CollectRequest{
		Mode:    model.ModePerWorld,
		Backend: model.BackendGPU,
		Seeds:   []int64{7, 8},
	})
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if dist.Len() != 2 {
		t.Fatalf("Len = %d, want 2", dist.Len())
	}

	wantCalls := []string{
		"meson setup /src/monolithium/build --buildtype release --reconfigure",
		"ninja -C /src/monolithium/build",
		artifact + " find --seed 7",
		artifact + " find --seed 8",
	}
	calls := exec.CallLines()
	if len(calls) != len(wantCalls) {
		t.Fatalf("calls = %q, want %q", calls, wantCalls)
	}
	for i := range wantCalls {
		if calls[i] != wantCalls[i] {
			t.Errorf("call %d = %q, want %q", i, calls[i], wantCalls[i])
		}
	}

	var got model.Run
	if code := st.get(t, "/v1/runs/"+run.ID, &got); code != http.StatusOK {
		t.Fatalf("GET run: status %d", code)
	}
	if got.Status != model.StatusCompleted || got.RecordCount != 2 {
		t.Errorf("run = %+v, want completed with 2 records", got)
	}

	var page struct {
		Monoliths []model.Monolith `json:"monoliths"`
		Total     int              `json:"total"`
	}
	st.get(t, "/v1/runs/"+run.ID+"/monoliths", &page)
	if page.Total != 2 || page.Monoliths[0].Seed != 7 || page.Monoliths[1].Seed != 8 {
		t.Errorf("monoliths = %+v, want seeds [7 8]", page.Monoliths)
	}

	var summary struct {
		Count     int   `json:"count"`
		TotalArea int64 `json:"total_area"`
	}
	st.get(t, "/v1/runs/"+run.ID+"/summary", &summary)
	if summary.Count != 2 || summary.TotalArea != 13 {
		t.Errorf("summary = %+v, want count 2 area 13", summary)
	}

	var stats struct {
		Total        int `json:"total"`
		TotalRecords int `json:"total_records"`
	}
	st.get(t, "/v1/stats", &stats)
	if stats.Total != 1 || stats.TotalRecords != 2 {
		t.Errorf("stats = %+v, want 1 run with 2 records", stats)
	}
}

func TestCollectFailedBuildVisibleInAPI(t *testing.T) {
	exec := process.NewFake().On("ninja", process.FakeResponse{ExitCode: 1})
	st := newStack(t, exec)

	run, _, err := st.eng.Collect(context.Background(), engine.CollectRequest{
		Mode:    model.ModeLinearSpawn,
		Backend: model.BackendGPU,
	})
	var be *backend.BuildError
	if !errors.As(err, &be) || be.Phase != backend.PhaseCompile {
		t.Fatalf("error = %v, want compile BuildError", err)
	}
	if exec.Called(artifact) {
		t.Error("engine ran after failed build")
	}

	var got model.Run
	st.get(t, "/v1/runs/"+run.ID, &got)
	if got.Status != model.StatusFailed {
		t.Errorf("status = %q, want failed", got.Status)
	}
	if got.ExitCode == nil || *got.ExitCode != 1 {
		t.Errorf("exit_code = %v, want 1", got.ExitCode)
	}
}
