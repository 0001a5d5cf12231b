package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/seantiz/monolithium/internal/model"
)

func TestGetStatsEmpty(t *testing.T) {
	srv := newTestServer(t)

	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/v1/stats")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	var stats statsResponse
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if stats.Total != 0 {
		t.Errorf("total = %d, want 0", stats.Total)
	}
	if stats.AvgDurationMS != 0 {
		t.Errorf("avg_duration_ms = %f, want 0", stats.AvgDurationMS)
	}
}

func TestGetStatsPopulated(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	for i := range 3 {
		r := &model.Run{
			ID: model.NewID(), Mode: model.ModeLinearSpawn, Backend: model.BackendNative,
			Status: model.StatusPending, CreatedAt: time.Now().UTC(),
		}
		if err := srv.store.CreateRun(ctx, r); err != nil {
			t.Fatalf("CreateRun: %v", err)
		}
		if err := srv.store.UpdateRunStatus(ctx, r.ID, model.StatusRunning); err != nil {
			t.Fatalf("pending→running: %v", err)
		}
		dur := 100 * (i + 1)
		r.Status = model.StatusCompleted
		r.DurationMS = &dur
		r.RecordCount = 5
		if err := srv.store.FinishRun(ctx, r); err != nil {
			t.Fatalf("FinishRun: %v", err)
		}
	}

	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/v1/stats")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	var stats statsResponse
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if stats.Total != 3 {
		t.Errorf("total = %d, want 3", stats.Total)
	}
	if stats.ByStatus[model.StatusCompleted] != 3 {
		t.Errorf("by_status[completed] = %d, want 3", stats.ByStatus[model.StatusCompleted])
	}
	if stats.ByBackend["native"] != 3 {
		t.Errorf("by_backend[native] = %d, want 3", stats.ByBackend["native"])
	}
	if stats.ByMode[model.ModeLinearSpawn] != 3 {
		t.Errorf("by_mode[linear-spawn] = %d, want 3", stats.ByMode[model.ModeLinearSpawn])
	}
	if stats.TotalRecords != 15 {
		t.Errorf("total_records = %d, want 15", stats.TotalRecords)
	}
	if stats.AvgDurationMS != 200 {
		t.Errorf("avg_duration_ms = %f, want 200", stats.AvgDurationMS)
	}
}
