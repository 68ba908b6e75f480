package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// HealthHandler answers load balancer health checks.
type HealthHandler struct{}

func NewHealthHandler() *HealthHandler { return &HealthHandler{} }

func (h *HealthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	if chi.URLParam(r, "action") == "ping" {
		writeJSON(w, http.StatusOK, MessageEnvelope{Message: "pong"})
		return
	}
	writeJSON(w, http.StatusBadRequest, MessageEnvelope{Message: "unknown action"})
}
