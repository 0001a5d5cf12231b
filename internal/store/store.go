package store

import (
	"context"
	"errors"

	"github.com/seantiz/monolithium/internal/model"
)

// ErrInvalidTransition is returned when a run status transition is not allowed.
var ErrInvalidTransition = errors.New("invalid status transition")

// RunStats holds aggregate collection statistics.
type RunStats struct {
	Total          int            `json:"total"`
	CountByStatus  map[string]int `json:"count_by_status"`
	CountByBackend map[string]int `json:"count_by_backend"`
	CountByMode    map[string]int `json:"count_by_mode"`
	TotalRecords   int            `json:"total_records"`
	AvgDurationMS  float64        `json:"avg_duration_ms"`
}

// Store defines the persistence operations for collection runs and the
// monoliths they gathered.
type Store interface {
	CreateRun(ctx context.Context, r *model.Run) error
	GetRun(ctx context.Context, id string) (*model.Run, error)
	ListRuns(ctx context.Context, limit, offset int) ([]*model.Run, int, error)
	UpdateRunStatus(ctx context.Context, id, status string) error
	FinishRun(ctx context.Context, r *model.Run) error
	GetRunStats(ctx context.Context) (*RunStats, error)
	InsertMonoliths(ctx context.Context, runID string, ms []model.Monolith) error
	GetMonoliths(ctx context.Context, runID string, limit, offset int) ([]model.Monolith, int, error)
	Ping(ctx context.Context) error
	Close() error
}
