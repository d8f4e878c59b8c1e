package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/AchilleasB/partner-portal/identity-access-service/internal/logging"
)

const healthCheckTimeout = 5 * time.Second

// CheckFunc probes one dependency. A nil error means it is reachable.
type CheckFunc func(ctx context.Context) error

// NamedCheck pairs a probe with the name reported in the readiness body.
type NamedCheck struct {
	Name string
	// Message is reported when the probe fails; errors are not echoed.
	Message string
	Check   CheckFunc
}

type HealthHandler struct {
	checks    []NamedCheck
	startTime time.Time
	version   string
}

func NewHealthHandler(version string, checks ...NamedCheck) *HealthHandler {
	if version == "" {
		version = "unknown"
	}
	return &HealthHandler{
		checks:    checks,
		startTime: time.Now(),
		version:   version,
	}
}

// HealthResponse follows Kubernetes health check conventions.
type HealthResponse struct {
	Status    string           `json:"status"`
	Timestamp string           `json:"timestamp"`
	Uptime    string           `json:"uptime"`
	Version   string           `json:"version"`
	Checks    map[string]Check `json:"checks"`
}

type Check struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Health is the liveness check: the process is running.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	h.write(w, r, http.StatusOK, HealthResponse{
		Status:    "UP",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Version:   h.version,
		Checks:    map[string]Check{"process": {Status: "UP"}},
	})
}

// Ready probes every configured dependency.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]Check, len(h.checks))
	status := "UP"
	httpStatus := http.StatusOK

	for _, c := range h.checks {
		result := h.run(r.Context(), c)
		checks[c.Name] = result
		if result.Status != "UP" {
			status = "DOWN"
			httpStatus = http.StatusServiceUnavailable
		}
	}

	h.write(w, r, httpStatus, HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Version:   h.version,
		Checks:    checks,
	})
}

func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	h.Health(w, r)
}

func (h *HealthHandler) run(ctx context.Context, c NamedCheck) Check {
	if c.Check == nil {
		return Check{Status: "DOWN", Message: c.Name + " is not initialized"}
	}

	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	if err := c.Check(ctx); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("check", c.Name).Msg("readiness check failed")
		msg := c.Message
		if msg == "" {
			msg = "Cannot connect to " + c.Name
		}
		return Check{Status: "DOWN", Message: msg}
	}
	return Check{Status: "UP"}
}

func (h *HealthHandler) write(w http.ResponseWriter, r *http.Request, status int, body HealthResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("failed to encode health response")
	}
}
