package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Olprog59/ehs-access/internal/config"
	"github.com/Olprog59/ehs-access/internal/domain"
	"github.com/Olprog59/ehs-access/internal/metrics"
	"github.com/Olprog59/ehs-access/internal/mocks"
	"github.com/Olprog59/ehs-access/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blockingStore holds Load until release is closed
type blockingStore struct {
	*mocks.MockSessionStore
	entered chan struct{}
	release chan struct{}
}

func (s *blockingStore) Load(ctx context.Context) (*domain.SessionRecord, error) {
	close(s.entered)
	<-s.release
	return s.MockSessionStore.Load(ctx)
}

func middlewareConfig() *config.Config {
	return &config.Config{
		Environment: "test",
		Auth: config.AuthConfig{
			SessionSecret:        "middleware-test-secret-32-chars!",
			SessionTokenDuration: time.Hour,
			DefaultRole:          "Auditor",
		},
	}
}

func newTestMiddleware(t *testing.T, store *mocks.MockSessionStore) (*Middleware, *service.SessionService, *metrics.Metrics) {
	t.Helper()
	cfg := middlewareConfig()
	m := metrics.NewMetrics(prometheus.NewRegistry())
	svc := service.NewSessionService(store, service.NewAccessService(nil, nil), cfg, mocks.NewMockMetrics())
	return NewMiddleware(cfg, m, svc), svc, m
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestRequireSession_LoadingAnswers503(t *testing.T) {
	cfg := middlewareConfig()
	store := &blockingStore{
		MockSessionStore: mocks.NewMockSessionStore(),
		entered:          make(chan struct{}),
		release:          make(chan struct{}),
	}
	svc := service.NewSessionService(store, service.NewAccessService(nil, nil), cfg, mocks.NewMockMetrics())
	mw := NewMiddleware(cfg, metrics.NewMetrics(prometheus.NewRegistry()), svc)

	done := make(chan error, 1)
	go func() { done <- svc.Restore(context.Background()) }()
	<-store.entered
	assert.True(t, svc.Restoring())

	rec := httptest.NewRecorder()
	mw.RequireSession(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/navigation", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"status":"loading"}`, rec.Body.String())

	close(store.release)
	require.NoError(t, <-done)
	assert.False(t, svc.Restoring())

	// Nothing stored and no autologin: the guard now redirects instead.
	rec = httptest.NewRecorder()
	mw.RequireSession(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/documents", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
}

func TestRequireSession_AuthenticatedPassesThrough(t *testing.T) {
	mw, svc, _ := newTestMiddleware(t, mocks.NewMockSessionStore())
	require.NoError(t, svc.Login(context.Background(), "auditor@gmg.com", "secret"))

	rec := httptest.NewRecorder()
	mw.RequireSession(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/navigation", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAccess(t *testing.T) {
	mw, svc, m := newTestMiddleware(t, mocks.NewMockSessionStore())
	require.NoError(t, svc.Login(context.Background(), "auditor@gmg.com", "secret"))

	tests := []struct {
		name     string
		module   domain.Module
		action   domain.Action
		wantCode int
	}{
		{"Auditor views incidents", domain.ModuleIncidentReporting, domain.ActionView, http.StatusOK},
		{"Auditor edits own account", domain.ModuleAccount, domain.ActionEdit, http.StatusOK},
		{"Auditor cannot edit incidents", domain.ModuleIncidentReporting, domain.ActionEdit, http.StatusForbidden},
		{"Auditor cannot delete employees", domain.ModuleEmployees, domain.ActionDelete, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mw.RequireAccess(tt.module, tt.action)(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
			if rec.Code != tt.wantCode {
				t.Errorf("Expected status %d, got %d", tt.wantCode, rec.Code)
			}
		})
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(m.PermissionDenials.WithLabelValues("Incident Reporting")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PermissionDenials.WithLabelValues("Employees")))
}

func TestRequireAccess_AnonymousIsDenied(t *testing.T) {
	mw, _, _ := newTestMiddleware(t, mocks.NewMockSessionStore())

	rec := httptest.NewRecorder()
	mw.RequireAccess(domain.ModuleDashboard, domain.ActionView)(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestTimeout(t *testing.T) {
	slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
			w.WriteHeader(http.StatusOK)
		case <-r.Context().Done():
		}
	})

	rec := httptest.NewRecorder()
	Timeout(20*time.Millisecond)(slow).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "request timeout")
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "req-123", seen)
	assert.Equal(t, "req-123", rec.Header().Get(RequestIDHeader))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, seen, 36, "generated IDs are UUIDs")
	assert.Empty(t, GetRequestID(context.Background()))
}

func TestMetricsPath(t *testing.T) {
	tests := []struct {
		pattern string
		want    string
	}{
		{"GET /api/access/{module}", "/api/access/{module}"},
		{"/api/", "/api/"},
		{"", "unmatched"},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Pattern = tt.pattern
		if got := metricsPath(req); got != tt.want {
			t.Errorf("metricsPath(%q) = %q, want %q", tt.pattern, got, tt.want)
		}
	}
}

func TestFormatUptime(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0s"},
		{45 * time.Second, "45s"},
		{2*time.Hour + 15*time.Minute + 30*time.Second, "2h 15m 30s"},
		{29*time.Hour + 23*time.Minute, "1d 5h 23m"},
		{400 * 24 * time.Hour, "400d"},
	}

	for _, tt := range tests {
		if got := formatUptime(tt.d); got != tt.want {
			t.Errorf("formatUptime(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestChain_AppliesMiddlewaresInOrder(t *testing.T) {
	var order []string
	tag := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := chain(func(w http.ResponseWriter, r *http.Request) { order = append(order, "handler") }, tag("session"), tag("access"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, []string{"session", "access", "handler"}, order)
}
