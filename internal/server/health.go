package server

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"
)

const (
	healthStatusOK           = "ok"
	healthStatusNotReady     = "not ready"
	healthStatusShuttingDown = "shutting down"
)

// HealthChecker answers liveness and readiness checks.
type HealthChecker struct {
	ready         atomic.Bool
	serverContext *ServerContext
	startTime     time.Time
}

// NewHealthChecker returns a checker that starts out ready. sc may be nil.
func NewHealthChecker(sc *ServerContext) *HealthChecker {
	h := &HealthChecker{
		serverContext: sc,
		startTime:     time.Now(),
	}
	h.ready.Store(true)
	return h
}

// SetReady marks the server ready or not. The serve command clears it when
// shutdown begins.
func (h *HealthChecker) SetReady(ready bool) {
	h.ready.Store(ready)
}

func (h *HealthChecker) IsReady() bool {
	return h.ready.Load()
}

func (h *HealthChecker) isServerShuttingDown() bool {
	return h.serverContext != nil && h.serverContext.IsShutdown()
}

// HealthResponse is the JSON body of the liveness and readiness endpoints.
type HealthResponse struct {
	Status   string            `json:"status"`
	Provider string            `json:"provider,omitempty"`
	Uptime   string            `json:"uptime,omitempty"`
	Checks   map[string]string `json:"checks,omitempty"`
}

// LivenessHandler always reports ok while the process serves requests.
func (h *HealthChecker) LivenessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeHealth(w, http.StatusOK, HealthResponse{
			Status: healthStatusOK,
			Uptime: time.Since(h.startTime).Truncate(time.Second).String(),
		})
	})
}

// ReadinessHandler reports 503 when the checker is not ready or the server
// context is shutting down.
func (h *HealthChecker) ReadinessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		resp := HealthResponse{
			Status: healthStatusOK,
			Checks: map[string]string{
				"ready":    healthStatusOK,
				"shutdown": healthStatusOK,
			},
		}
		if h.serverContext != nil {
			resp.Provider = h.serverContext.Config().Provider
		}

		code := http.StatusOK
		if !h.IsReady() {
			resp.Checks["ready"] = healthStatusNotReady
			resp.Status = healthStatusNotReady
			code = http.StatusServiceUnavailable
		}
		if h.isServerShuttingDown() {
			resp.Checks["shutdown"] = healthStatusShuttingDown
			resp.Status = healthStatusNotReady
			code = http.StatusServiceUnavailable
		}
		writeHealth(w, code, resp)
	})
}

// RegisterHealthEndpoints registers /healthz and /readyz on mux.
func (h *HealthChecker) RegisterHealthEndpoints(mux *http.ServeMux) {
	mux.Handle("/healthz", h.LivenessHandler())
	mux.Handle("/readyz", h.ReadinessHandler())
}

func writeHealth(w http.ResponseWriter, code int, resp HealthResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}
