package metrics

import (
	"encoding/json"
	"maps"
	"net/http"
	"sync"
	"time"
)

// Component names reported by the console. Both are required for
// readiness.
const (
	ComponentAPI   = "api"
	ComponentEvent = "event"
)

// Health and readiness states
const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
	StatusReady     = "ready"
	StatusNotReady  = "not_ready"
)

// HealthStatus is the body of the /health and /ready responses
type HealthStatus struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Components map[string]string `json:"components,omitempty"`
	Message    string            `json:"message,omitempty"`
	Version    string            `json:"version,omitempty"`
	Uptime     string            `json:"uptime,omitempty"`
}

// ComponentHealth is the last state a component reported
type ComponentHealth struct {
	Healthy bool
	Message string
	Updated time.Time
}

// HealthChecker holds the reported component states
type HealthChecker struct {
	mu         sync.RWMutex
	components map[string]ComponentHealth
	startTime  time.Time
	version    string
}

var healthChecker = newHealthChecker()

func newHealthChecker() *HealthChecker {
	return &HealthChecker{
		components: make(map[string]ComponentHealth),
		startTime:  time.Now(),
	}
}

// SetVersion sets the version reported by the health endpoints
func SetVersion(version string) {
	healthChecker.mu.Lock()
	defer healthChecker.mu.Unlock()
	healthChecker.version = version
}

// RegisterComponent records the state of a component
func RegisterComponent(name string, healthy bool, message string) {
	healthChecker.mu.Lock()
	defer healthChecker.mu.Unlock()

	healthChecker.components[name] = ComponentHealth{
		Healthy: healthy,
		Message: message,
		Updated: time.Now(),
	}
}

// UpdateComponent is RegisterComponent for a component already known
func UpdateComponent(name string, healthy bool, message string) {
	RegisterComponent(name, healthy, message)
}

// Components returns a copy of the reported component states
func Components() map[string]ComponentHealth {
	healthChecker.mu.RLock()
	defer healthChecker.mu.RUnlock()
	return maps.Clone(healthChecker.components)
}

// GetHealth is unhealthy when any reported component is
func GetHealth() HealthStatus {
	healthChecker.mu.RLock()
	defer healthChecker.mu.RUnlock()

	h := healthChecker.status(StatusHealthy)
	for name, comp := range healthChecker.components {
		if comp.Healthy {
			h.Components[name] = StatusHealthy
			continue
		}
		h.Status = StatusUnhealthy
		h.Components[name] = StatusUnhealthy + ": " + comp.Message
	}
	return h
}

// GetReadiness is ready once the CSRF token loaded and the event channel
// connected. Components that never reported count as not ready.
func GetReadiness() HealthStatus {
	healthChecker.mu.RLock()
	defer healthChecker.mu.RUnlock()

	h := healthChecker.status(StatusReady)
	for _, name := range []string{ComponentAPI, ComponentEvent} {
		comp, ok := healthChecker.components[name]
		switch {
		case !ok:
			h.Status = StatusNotReady
			h.Message = "waiting for " + name
			h.Components[name] = "not reported"
		case !comp.Healthy:
			h.Status = StatusNotReady
			h.Message = "waiting for " + name
			h.Components[name] = StatusNotReady + ": " + comp.Message
		default:
			h.Components[name] = StatusReady
		}
	}
	return h
}

// status starts a response. Called with mu held.
func (hc *HealthChecker) status(s string) HealthStatus {
	return HealthStatus{
		Status:     s,
		Timestamp:  time.Now(),
		Components: make(map[string]string),
		Version:    hc.version,
		Uptime:     time.Since(hc.startTime).Round(time.Second).String(),
	}
}

// HealthHandler serves /health
func HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h := GetHealth()
		writeJSON(w, codeFor(h.Status == StatusHealthy), h)
	}
}

// ReadyHandler serves /ready
func ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h := GetReadiness()
		writeJSON(w, codeFor(h.Status == StatusReady), h)
	}
}

// LivenessHandler serves /live, which answers 200 while the process runs
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
	}
}

func codeFor(ok bool) int {
	if ok {
		return http.StatusOK
	}
	return http.StatusServiceUnavailable
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
