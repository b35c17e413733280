package web

import (
	"net/http"

	"github.com/Olprog59/ehs-access/internal/app"
	"github.com/Olprog59/ehs-access/internal/config"
	"github.com/Olprog59/ehs-access/internal/domain"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewMux creates and configures the HTTP router / Crée et configure le routeur HTTP
// The returned Middleware owns the rate limiter goroutines; call Stop on shutdown.
func NewMux(h *Handler, conf *config.Config, container *app.Container) (http.Handler, *Middleware) {
	mux := http.NewServeMux()
	mw := NewMiddleware(conf, container.Metrics, container.SessionSvc)

	// Health check endpoints (no auth, no rate limiting for load balancers)
	mux.HandleFunc("GET /health", h.HealthCheck)
	mux.HandleFunc("GET /readiness", h.ReadinessCheck)

	// Prometheus metrics endpoint, restricted to roles that may edit the dashboard
	metricsHandler := promhttp.HandlerFor(container.Registry, promhttp.HandlerOpts{})
	mux.Handle("GET /metrics", chain(
		metricsHandler.ServeHTTP,
		mw.RequireSession,
		mw.RequireAccess(domain.ModuleDashboard, domain.ActionEdit),
	))

	// Public session endpoints
	mux.Handle("POST /api/login", chain(h.Login, mw.RateLimitStrict))
	mux.HandleFunc("GET /api/session", h.Session)
	mux.HandleFunc("GET /api/roles", h.Roles)
	mux.HandleFunc("GET /login", h.LoginPage)

	// Guarded endpoints
	mux.Handle("POST /api/logout", chain(h.Logout, mw.RequireSession, mw.RateLimitByRole))
	mux.Handle("POST /api/session/role", chain(h.SwitchRole, mw.RequireSession, mw.RateLimitByRole))
	mux.Handle("GET /api/access", chain(h.CheckAccess, mw.RequireSession, mw.RateLimitByRole))
	mux.Handle("GET /api/access/{module}", chain(h.ModuleAccess, mw.RequireSession, mw.RateLimitByRole))
	mux.Handle("GET /api/navigation", chain(h.Navigation, mw.RequireSession, mw.RateLimitByRole))
	mux.Handle("GET /api/matrix", chain(
		h.Matrix,
		mw.RequireSession,
		mw.RequireAccess(domain.ModuleDashboard, domain.ActionEdit),
		mw.RateLimitByRole,
	))

	// One page per module, each requiring view access
	for _, module := range domain.AllModules() {
		mux.Handle("GET "+module.Path(), chain(
			h.ModulePage(module),
				mw.RequireSession,
			mw.RequireAccess(module, domain.ActionView),
			mw.RateLimitByRole,
		))
	}

	mux.HandleFunc("GET /api/", h.APINotFound)
	mux.HandleFunc("GET /", h.Fallback)

	// Global middlewares - applied in reverse order / Middlewares globaux appliqués en ordre inverse
	var handler http.Handler = mux
	handler = mw.MetricsMiddleware(handler) // Innermost so the matched route pattern is visible
	handler = mw.RateLimit(handler)
	handler = mw.SecurityHeaders(handler)
	handler = mw.Cors(handler)
	handler = Timeout(conf.Server.RequestTimeout)(handler)
	handler = Logging(handler)   // Logging includes request ID
	handler = RequestID(handler) // RequestID first - generates ID for all middleware

	return handler, mw
}

// chain applies middleware to HTTP handler / Applique les middlewares au gestionnaire HTTP
func chain(f http.HandlerFunc, middlewares ...func(http.Handler) http.Handler) http.Handler {
	var handler http.Handler = f

	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}

	return handler
}
