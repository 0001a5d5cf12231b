package backend

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/seantiz/monolithium/internal/model"
)

// Metric label values for run status.
const (
	statusCompleted = "completed"
	statusFailed    = "failed"
)

var (
	buildDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "monolithium_backend_build_seconds",
			Help:    "Duration of each backend build phase, in seconds.",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		},
		[]string{"backend", "phase"},
	)

	runDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "monolithium_backend_run_seconds",
			Help:    "Duration of search engine runs, in seconds.",
			Buckets: []float64{0.1, 1, 5, 15, 60, 300, 900, 3600},
		},
		[]string{"backend"},
	)

	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "monolithium_backend_runs_total",
			Help: "Total number of search engine runs by outcome.",
		},
		[]string{"backend", "status"},
	)
)

func init() {
	prometheus.MustRegister(buildDuration)
	prometheus.MustRegister(runDuration)
	prometheus.MustRegister(runsTotal)

	// Pre-initialize counter label combinations so they appear in /metrics
	// with value 0 from startup, rather than only after first observation.
	for _, kind := range model.BackendKinds {
		runsTotal.WithLabelValues(kind.String(), statusCompleted)
		runsTotal.WithLabelValues(kind.String(), statusFailed)
	}
}

// ObserveBuild records how long a build phase took.
func ObserveBuild(kind model.BackendKind, phase string, started time.Time) {
	buildDuration.WithLabelValues(kind.String(), phase).Observe(time.Since(started).Seconds())
}

// ObserveRun records a finished engine run.
func ObserveRun(kind model.BackendKind, exitCode int, started time.Time) {
	runDuration.WithLabelValues(kind.String()).Observe(time.Since(started).Seconds())
	status := statusCompleted
	if exitCode != 0 {
		status = statusFailed
	}
	runsTotal.WithLabelValues(kind.String(), status).Inc()
}
