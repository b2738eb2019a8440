package health

import (
	"net/http"

	"scholarship-portal/internal/httputil"

	"github.com/go-chi/chi/v5"
)

// ReadinessCheck reports whether a dependency is able to serve traffic.
type ReadinessCheck func() error

type Handler struct {
	checks map[string]ReadinessCheck
}

func NewHandler() *Handler {
	return &Handler{checks: make(map[string]ReadinessCheck)}
}

// AddCheck registers a named readiness check consulted by /ready.
func (h *Handler) AddCheck(name string, check ReadinessCheck) {
	h.checks[name] = check
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Get("/health", h.Health)
	router.Get("/ready", h.Ready)
}

type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	httputil.RespondWithJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ready"}
	code := http.StatusOK

	for name, check := range h.checks {
		if resp.Checks == nil {
			resp.Checks = make(map[string]string, len(h.checks))
		}
		if err := check(); err != nil {
			resp.Checks[name] = err.Error()
			resp.Status = "not ready"
			code = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}

	httputil.RespondWithJSON(w, code, resp)
}
