package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metric collectors / Contient tous les collecteurs de métriques Prometheus
type Metrics struct {
	// Session metrics
	LoginAttempts  *prometheus.CounterVec // Login attempts by status (success/invalid/cancelled)
	Logouts        prometheus.Counter     // Explicit logouts
	RoleSwitches   *prometheus.CounterVec // Role switches by target role
	SessionRestore *prometheus.CounterVec // Startup restore outcome (restored/demo/anonymous/invalid)
	SessionExpired prometheus.Counter     // Persisted sessions removed by the sweeper
	Authenticated  prometheus.Gauge       // 1 while a user is signed in

	// Access metrics
	AccessChecks       *prometheus.CounterVec // Access decisions by module, action and decision
	AccessLookupMisses *prometheus.CounterVec // Unknown role/module/action lookups by reason

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec   // Total HTTP requests by method, path, status
	HTTPRequestDuration *prometheus.HistogramVec // HTTP request latency in seconds
	ActiveConnections   prometheus.Gauge         // Current number of active HTTP connections

	// Security metrics
	RateLimitHits     *prometheus.CounterVec // Rate limit violations by endpoint
	InvalidTokens     prometheus.Counter     // Persisted tokens that failed validation
	PermissionDenials *prometheus.CounterVec // Denied page or API access by module

	// System metrics
	DatabaseConnections prometheus.Gauge     // Current database connection pool size
	BackgroundTasks     *prometheus.GaugeVec // Status of background tasks (running/stopped)
}

// NewMetrics initializes Metrics instance / Initialise une instance Metrics
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	m := &Metrics{
		LoginAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "session_login_attempts_total",
				Help: "Total number of login attempts by status (success, invalid, cancelled)",
			},
			[]string{"status"},
		),

		Logouts: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "session_logouts_total",
				Help: "Total number of logouts",
			},
		),

		RoleSwitches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "session_role_switches_total",
				Help: "Total number of role switches by target role",
			},
			[]string{"role"},
		),

		SessionRestore: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "session_restore_total",
				Help: "Startup session restore outcomes",
			},
			[]string{"outcome"},
		),

		SessionExpired: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "session_expired_total",
				Help: "Total number of persisted sessions removed after expiry",
			},
		),

		Authenticated: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "session_authenticated",
				Help: "1 when a user is signed in, 0 otherwise",
			},
		),

		AccessChecks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "access_checks_total",
				Help: "Total number of access evaluations by module, action and decision",
			},
			[]string{"module", "action", "decision"},
		),

		AccessLookupMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "access_lookup_misses_total",
				Help: "Access lookups that fell back to no access, by reason",
			},
			[]string{"reason"},
		),

		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status code",
			},
			[]string{"method", "path", "status_code"},
		),

		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "http_request_duration_seconds",
				Help: "HTTP request latency in seconds",
				// Login waits on a fixed delay, so the upper buckets matter here.
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),

		ActiveConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_active_connections",
				Help: "Current number of active HTTP connections",
			},
		),

		RateLimitHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "security_rate_limit_hits_total",
				Help: "Total number of rate limit violations by endpoint",
			},
			[]string{"endpoint"},
		),

		InvalidTokens: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "security_invalid_tokens_total",
				Help: "Total number of persisted session tokens that failed validation",
			},
		),

		PermissionDenials: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "security_permission_denials_total",
				Help: "Total number of denied requests by module",
			},
			[]string{"module"},
		),

		DatabaseConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "database_connections_active",
				Help: "Current number of active database connections",
			},
		),

		BackgroundTasks: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "background_tasks_status",
				Help: "Status of background tasks (1=running, 0=stopped)",
			},
			[]string{"task_name"},
		),
	}

	return m
}

// RecordLoginAttempt records a login attempt with the given status.
// Status can be: "success", "invalid", "cancelled" or "error"
func (m *Metrics) RecordLoginAttempt(status string) {
	m.LoginAttempts.WithLabelValues(status).Inc()
}

// RecordLogout increments the logout counter.
func (m *Metrics) RecordLogout() {
	m.Logouts.Inc()
}

// RecordRoleSwitch records a switch to the given role name.
func (m *Metrics) RecordRoleSwitch(role string) {
	m.RoleSwitches.WithLabelValues(role).Inc()
}

// RecordSessionRestore records the startup restore outcome.
func (m *Metrics) RecordSessionRestore(outcome string) {
	m.SessionRestore.WithLabelValues(outcome).Inc()
}

// RecordSessionExpired increments the expired session counter.
func (m *Metrics) RecordSessionExpired() {
	m.SessionExpired.Inc()
}

// SetAuthenticated sets the signed-in gauge / Met à jour la jauge de connexion
func (m *Metrics) SetAuthenticated(authenticated bool) {
	if authenticated {
		m.Authenticated.Set(1)
		return
	}
	m.Authenticated.Set(0)
}

// RecordAccessCheck records one access decision / Enregistre une décision d'accès
func (m *Metrics) RecordAccessCheck(module, action string, allowed bool) {
	decision := "deny"
	if allowed {
		decision = "allow"
	}
	m.AccessChecks.WithLabelValues(module, action, decision).Inc()
}

// RecordAccessLookupMiss records a lookup that fell back to no access.
// Reason can be: "unknown_role", "unknown_module", "unknown_action" or "panic"
func (m *Metrics) RecordAccessLookupMiss(reason string) {
	m.AccessLookupMisses.WithLabelValues(reason).Inc()
}

// RecordHTTPRequest records an HTTP request with method, path, and status code.
func (m *Metrics) RecordHTTPRequest(method, path string, statusCode int) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, statusCodeToString(statusCode)).Inc()
}

// RecordHTTPDuration records the duration of an HTTP request.
func (m *Metrics) RecordHTTPDuration(method, path string, duration time.Duration) {
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// IncrementActiveConnections increments the active connections gauge.
func (m *Metrics) IncrementActiveConnections() {
	m.ActiveConnections.Inc()
}

// DecrementActiveConnections decrements the active connections gauge.
func (m *Metrics) DecrementActiveConnections() {
	m.ActiveConnections.Dec()
}

// RecordRateLimitHit records a rate limit violation for a specific endpoint.
func (m *Metrics) RecordRateLimitHit(endpoint string) {
	m.RateLimitHits.WithLabelValues(endpoint).Inc()
}

// RecordInvalidToken increments the invalid token counter.
func (m *Metrics) RecordInvalidToken() {
	m.InvalidTokens.Inc()
}

// RecordPermissionDenial increments permission denial counter / Incrémente le compteur de refus de permission
func (m *Metrics) RecordPermissionDenial(module string) {
	m.PermissionDenials.WithLabelValues(module).Inc()
}

// UpdateDatabaseConnections updates the database connections gauge.
func (m *Metrics) UpdateDatabaseConnections(count int) {
	m.DatabaseConnections.Set(float64(count))
}

// SetBackgroundTaskStatus sets the status of a background task.
// Status: 1 for running, 0 for stopped.
func (m *Metrics) SetBackgroundTaskStatus(taskName string, running bool) {
	status := 0.0
	if running {
		status = 1.0
	}
	m.BackgroundTasks.WithLabelValues(taskName).Set(status)
}

// statusCodeToString keeps label cardinality bounded / Limite la cardinalité des labels
func statusCodeToString(code int) string {
	switch code {
	case 200, 201, 204, 303, 400, 401, 403, 404, 429, 500, 503:
		return strconv.Itoa(code)
	}
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500 && code < 600:
		return "5xx"
	}
	return "unknown"
}
