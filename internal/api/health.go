package api

import (
	"net/http"
)

type healthResponse struct {
	Status   string `json:"status"`
	Backends int    `json:"backends"`
	Error    string `json:"error,omitempty"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Backends: len(s.registry.List())}
	if err := s.store.Ping(r.Context()); err != nil {
		s.logger.Error("store ping", "error", err)
		resp.Status = "degraded"
		resp.Error = "store unavailable"
		s.writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}
