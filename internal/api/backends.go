package api

import (
	"net/http"

	"github.com/seantiz/monolithium/internal/backend"
)

type backendsResponse struct {
	Backends []backend.BackendInfo `json:"backends"`
}

func (s *Server) handleListBackends(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, backendsResponse{Backends: s.registry.List()})
}
