package controller

import (
	"net/http"
)

type HealthController struct {
	payments func() int
}

// NewHealthController reports liveness; payments, when set, is exposed in
// the readiness answer.
func NewHealthController(payments func() int) *HealthController {
	return &HealthController{payments: payments}
}

func (h *HealthController) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HealthController) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

func (h *HealthController) Readiness(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"status": "ready"}
	if h.payments != nil {
		resp["payments"] = h.payments()
	}
	writeJSON(w, http.StatusOK, resp)
}
