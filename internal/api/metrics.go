package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/seantiz/monolithium/internal/store"
)

const (
	unmatched = "unmatched"

	storeScrapeTimeout = 5 * time.Second
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "monolithium_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "monolithium_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpRequestDuration)
}

// metricsMiddleware records request count and duration for every HTTP request.
// Uses the chi route pattern (not the raw path) to avoid unbounded cardinality.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		path := routePattern(r)
		httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// routePattern extracts the matched chi route pattern, falling back to "unmatched".
func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx != nil && rctx.RoutePattern() != "" {
		return rctx.RoutePattern()
	}
	return unmatched
}

// storeCollector reports stored run totals at scrape time, so the numbers
// include runs recorded by other processes sharing the database.
type storeCollector struct {
	store   store.Store
	logger  *slog.Logger
	runs    *prometheus.Desc
	records *prometheus.Desc
}

func newStoreCollector(s store.Store, logger *slog.Logger) *storeCollector {
	return &storeCollector{
		store:  s,
		logger: logger,
		runs: prometheus.NewDesc(
			"monolithium_stored_runs",
			"Collection runs in the store by status.",
			[]string{"status"}, nil,
		),
		records: prometheus.NewDesc(
			"monolithium_stored_monoliths",
			"Monolith records gathered by all stored runs.",
			nil, nil,
		),
	}
}

func (c *storeCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.runs
	ch <- c.records
}

func (c *storeCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), storeScrapeTimeout)
	defer cancel()

	stats, err := c.store.GetRunStats(ctx)
	if err != nil {
		c.logger.Error("collect store metrics", "error", err)
		return
	}
	for status, n := range stats.CountByStatus {
		ch <- prometheus.MustNewConstMetric(c.runs, prometheus.GaugeValue, float64(n), status)
	}
	ch <- prometheus.MustNewConstMetric(c.records, prometheus.GaugeValue, float64(stats.TotalRecords))
}

// metricsHandler serves the process-wide metrics plus the server's own.
func metricsHandler(own prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(
		prometheus.Gatherers{prometheus.DefaultGatherer, own},
		promhttp.HandlerOpts{},
	)
}
