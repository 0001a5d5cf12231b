package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/seantiz/monolithium/internal/distribution"
	"github.com/seantiz/monolithium/internal/model"
	"github.com/seantiz/monolithium/internal/store"
)

const (
	defaultListLimit     = 20
	maxListLimit         = 100
	defaultMonolithLimit = 500
	maxMonolithLimit     = 10000
)

// listRunsResponse wraps the paginated list response.
type listRunsResponse struct {
	Runs   []*model.Run `json:"runs"`
	Total  int          `json:"total"`
	Limit  int          `json:"limit"`
	Offset int          `json:"offset"`
}

// listMonolithsResponse is a page of one run's records in emission order.
type listMonolithsResponse struct {
	RunID     string           `json:"run_id"`
	Monoliths []model.Monolith `json:"monoliths"`
	Total     int              `json:"total"`
	Limit     int              `json:"limit"`
	Offset    int              `json:"offset"`
}

type summaryResponse struct {
	RunID string `json:"run_id"`
	distribution.Summary
	MeanArea float64 `json:"mean_area"`
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r, defaultListLimit, maxListLimit)

	runs, total, err := s.store.ListRuns(r.Context(), limit, offset)
	if err != nil {
		s.logger.Error("list runs", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}

	if runs == nil {
		runs = []*model.Run{}
	}

	s.writeJSON(w, http.StatusOK, listRunsResponse{
		Runs:   runs,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, ok := s.lookupRun(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleListMonoliths(w http.ResponseWriter, r *http.Request) {
	run, ok := s.lookupRun(w, r)
	if !ok {
		return
	}
	limit, offset := pagination(r, defaultMonolithLimit, maxMonolithLimit)

	ms, total, err := s.store.GetMonoliths(r.Context(), run.ID, limit, offset)
	if err != nil {
		s.logger.Error("list monoliths", "run_id", run.ID, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list monoliths")
		return
	}

	s.writeJSON(w, http.StatusOK, listMonolithsResponse{
		RunID:     run.ID,
		Monoliths: ms,
		Total:     total,
		Limit:     limit,
		Offset:    offset,
	})
}

func (s *Server) handleGetSummary(w http.ResponseWriter, r *http.Request) {
	run, ok := s.lookupRun(w, r)
	if !ok {
		return
	}

	ms, _, err := s.store.GetMonoliths(r.Context(), run.ID, -1, 0)
	if err != nil {
		s.logger.Error("summarize run", "run_id", run.ID, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to summarize run")
		return
	}

	sum := distribution.Summarize(ms)
	s.writeJSON(w, http.StatusOK, summaryResponse{
		RunID:    run.ID,
		Summary:  sum,
		MeanArea: sum.MeanArea(),
	})
}

// lookupRun loads the run named in the URL, writing the error response
// itself when it cannot.
func (s *Server) lookupRun(w http.ResponseWriter, r *http.Request) (*model.Run, bool) {
	id := chi.URLParam(r, "id")

	run, err := s.store.GetRun(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "run not found")
		return nil, false
	}
	if err != nil {
		s.logger.Error("get run", "run_id", id, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get run")
		return nil, false
	}
	return run, true
}

// writeJSON writes a JSON response with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// pagination reads limit and offset, clamping them to sane values.
func pagination(r *http.Request, defaultLimit, maxLimit int) (limit, offset int) {
	limit = parseIntQuery(r, "limit", defaultLimit)
	offset = parseIntQuery(r, "offset", 0)
	if limit <= 0 || limit > maxLimit {
		limit = defaultLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// parseIntQuery parses an integer query parameter with a default value.
func parseIntQuery(r *http.Request, key string, defaultVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}
