package handlers

import (
	"net/http"
)

func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if h.Health != nil {
		if err := h.Health(); err != nil {
			h.Log.WithError(err).Error("health check failed")
			responseJSON(w, &APIResponse{Status: "error", Message: "store unavailable"}, http.StatusServiceUnavailable)
			return
		}
	}
	responseJSON(w, &APIResponse{
		Status: "ok",
	}, http.StatusOK)
}
