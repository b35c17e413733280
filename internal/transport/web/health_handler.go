package web

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// HealthResponse is the body of /health and /readiness / Corps de /health et /readiness
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
	Version   string            `json:"version,omitempty"`
	Uptime    string            `json:"uptime,omitempty"`
}

var startTime = time.Now()

// Version is reported by /health; set at build time with -ldflags "-X .../web.Version=..."
var Version = "dev"

const dbCheckTimeout = 2 * time.Second

// HealthCheck answers 200 while the process is up / Répond 200 tant que le processus tourne
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Uptime:    formatUptime(time.Since(startTime)),
		Version:   Version,
	})
}

// readinessCheck reports "ok" or a short failure word for one dependency
type readinessCheck struct {
	name string
	run  func(ctx context.Context) string
}

func (h *Handler) readinessChecks() []readinessCheck {
	return []readinessCheck{
		{name: "database", run: h.checkDatabase},
		{name: "session", run: h.checkSession},
	}
}

// ReadinessCheck answers 503 until the session store answers and the startup
// restore has finished. A login in progress does not make the service unready.
// ReadinessCheck répond 503 tant que la restauration de session n'est pas terminée.
func (h *Handler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Checks:    make(map[string]string),
	}
	code := http.StatusOK

	for _, check := range h.readinessChecks() {
		result := check.run(r.Context())
		resp.Checks[check.name] = result
		if result != "ok" {
			resp.Status = "error"
			code = http.StatusServiceUnavailable
		}
	}

	writeJSON(w, code, resp)
}

// checkDatabase pings the database holding session_state
func (h *Handler) checkDatabase(parent context.Context) string {
	ctx, cancel := context.WithTimeout(parent, dbCheckTimeout)
	defer cancel()

	var one int
	if err := h.container.DB.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return "error"
	}
	return "ok"
}

// checkSession reports "loading" while the persisted session is being restored
func (h *Handler) checkSession(context.Context) string {
	if h.container.SessionSvc.Restoring() {
		return "loading"
	}
	return "ok"
}

// formatUptime keeps the three most significant units, e.g. "1d 5h 23m" or "45s"
func formatUptime(d time.Duration) string {
	units := []struct {
		value  int
		suffix string
	}{
		{int(d.Hours()) / 24, "d"},
		{int(d.Hours()) % 24, "h"},
		{int(d.Minutes()) % 60, "m"},
		{int(d.Seconds()) % 60, "s"},
	}

	first := 0
	for first < len(units)-1 && units[first].value == 0 {
		first++
	}

	var parts []string
	for _, u := range units[first:min(first+3, len(units))] {
		if u.value > 0 {
			parts = append(parts, strconv.Itoa(u.value)+u.suffix)
		}
	}
	if len(parts) == 0 {
		return "0s"
	}
	return strings.Join(parts, " ")
}
