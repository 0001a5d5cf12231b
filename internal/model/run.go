package model

import "time"

// Run status constants.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Collection mode constants.
const (
	ModeLinearSpawn = "linear-spawn"
	ModePerWorld    = "per-world"
)

// validTransitions maps each status to the set of statuses it may transition to.
var validTransitions = map[string]map[string]bool{
	StatusPending: {
		StatusRunning: true,
		StatusFailed:  true,
	},
	StatusRunning: {
		StatusCompleted: true,
		StatusFailed:    true,
	},
}

// ValidTransition reports whether transitioning from one status to another is allowed.
func ValidTransition(from, to string) bool {
	targets, ok := validTransitions[from]
	if !ok {
		return false
	}
	return targets[to]
}

// IsTerminal reports whether status is a final run status.
func IsTerminal(status string) bool {
	return status == StatusCompleted || status == StatusFailed
}

// Run is one distribution collection run.
type Run struct {
	ID          string      `json:"id"`
	Mode        string      `json:"mode"`
	Backend     BackendKind `json:"backend"`
	Args        []string    `json:"args"`
	Seeds       []int64     `json:"seeds,omitempty"`
	Status      string      `json:"status"`
	ExitCode    *int        `json:"exit_code,omitempty"`
	RecordCount int         `json:"record_count"`
	Error       string      `json:"error,omitempty"`
	DurationMS  *int        `json:"duration_ms,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	StartedAt   *time.Time  `json:"started_at,omitempty"`
	FinishedAt  *time.Time  `json:"finished_at,omitempty"`
}
