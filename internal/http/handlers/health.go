package handlers

import (
	"net/http"

	"github.com/safecircle/server/internal/health"
)

// HealthHandler reports readiness. It always answers 200; the body carries the status.
type HealthHandler struct {
	checker *health.Checker
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(checker *health.Checker) *HealthHandler {
	return &HealthHandler{checker: checker}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.checker.Check(r.Context()))
}
