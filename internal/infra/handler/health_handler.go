package handler

import (
	"context"
	"net/http"
	"time"
)

const defaultHealthTimeout = 3 * time.Second

// HealthChecker defines dependencies that can be health-checked.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// NamedCheck is one dependency reported by /health.
type NamedCheck struct {
	Name    string
	Checker HealthChecker
}

// HealthHandler handles /health endpoint.
type HealthHandler struct {
	Checks  []NamedCheck
	Timeout time.Duration
}

// NewHealthHandler reports the given checks in order, skipping nil checkers.
func NewHealthHandler(checks ...NamedCheck) *HealthHandler {
	h := &HealthHandler{Timeout: defaultHealthTimeout}
	for _, c := range checks {
		if c.Checker != nil {
			h.Checks = append(h.Checks, c)
		}
	}
	return h
}

type healthComponent struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// ServeHTTP responds with dependency status.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	timeout := h.Timeout
	if timeout <= 0 {
		timeout = defaultHealthTimeout
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	status := http.StatusOK
	components := make([]healthComponent, 0, len(h.Checks))
	for _, check := range h.Checks {
		if err := check.Checker.HealthCheck(ctx); err != nil {
			status = http.StatusServiceUnavailable
			components = append(components, healthComponent{Name: check.Name, Status: "unhealthy", Error: err.Error()})
			continue
		}
		components = append(components, healthComponent{Name: check.Name, Status: "healthy"})
	}

	writeJSON(w, status, map[string]any{
		"status":     statusLabel(status),
		"components": components,
		"checked_at": time.Now().UTC(),
	})
}

func statusLabel(code int) string {
	if code == http.StatusOK {
		return "healthy"
	}
	return "unhealthy"
}
