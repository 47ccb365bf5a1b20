package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vietddude/dexcache/internal/core/reqctx"
	"github.com/vietddude/dexcache/internal/resolver"
)

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func (s *Server) handleSpecies(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")

	view, found, err := s.resolver.Resolve(r.Context(), key)
	switch {
	case errors.Is(err, resolver.ErrBlankKey):
		s.writeError(w, r, http.StatusBadRequest, "lookup key must not be blank")
	case err != nil:
		s.log.Error("Lookup failed", "key", key, "req_id", reqctx.RequestID(r.Context()), "error", err)
		s.writeError(w, r, http.StatusInternalServerError, "internal error")
	case !found:
		s.writeError(w, r, http.StatusNotFound, "species not found")
	default:
		writeJSON(w, http.StatusOK, view)
	}
}

func (s *Server) handleBlankKey(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, r, http.StatusBadRequest, "lookup key must not be blank")
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	writeJSON(w, code, errorResponse{Error: msg, RequestID: reqctx.RequestID(r.Context())})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
