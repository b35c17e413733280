package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Olprog59/ehs-access/internal/config"
	"github.com/Olprog59/ehs-access/internal/metrics"
	"github.com/Olprog59/ehs-access/internal/mocks"
	"github.com/Olprog59/ehs-access/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestClientIP(t *testing.T) {
	proxy := []string{"10.0.0.1"}

	tests := []struct {
		name       string
		remoteAddr string
		forwarded  string
		realIP     string
		trusted    []string
		want       string
	}{
		{"direct connection", "192.168.1.100:12345", "", "", nil, "192.168.1.100"},
		{"forwarded header ignored without trusted proxies", "10.0.0.1:8080", "203.0.113.45", "", nil, "10.0.0.1"},
		{"trusted proxy, first forwarded hop wins", "10.0.0.1:8080", " 203.0.113.45 , 198.51.100.20", "", proxy, "203.0.113.45"},
		{"trusted proxy, X-Real-IP fallback", "10.0.0.1:8080", "not-an-ip", "203.0.113.45", proxy, "203.0.113.45"},
		{"untrusted sender cannot spoof", "99.99.99.99:8080", "203.0.113.45", "", proxy, "99.99.99.99"},
		{"IPv6 remote", "[2001:db8::1]:12345", "", "", nil, "2001:db8::1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			if tt.realIP != "" {
				req.Header.Set("X-Real-IP", tt.realIP)
			}

			if got := clientIP(req, tt.trusted); got != tt.want {
				t.Errorf("clientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHashIP(t *testing.T) {
	assert.Equal(t, hashIP("192.168.1.1"), hashIP("192.168.1.1"))
	assert.NotEqual(t, hashIP("192.168.1.1"), hashIP("192.168.1.2"))
	assert.Len(t, hashIP("203.0.113.45"), 64)
}

// TestRateLimitByRole checks that signed-in requests share one bucket per role.
func TestRateLimitByRole(t *testing.T) {
	cfg := middlewareConfig()
	cfg.RateLimiter = config.RateLimiterConfig{Enabled: true, RPS: 0.001, Burst: 1}

	m := metrics.NewMetrics(prometheus.NewRegistry())
	svc := service.NewSessionService(mocks.NewMockSessionStore(), service.NewAccessService(nil, nil), cfg, mocks.NewMockMetrics())
	mw := NewMiddleware(cfg, m, svc)
	defer mw.Stop()
	handler := mw.RateLimitByRole(okHandler)

	send := func(remoteAddr string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/navigation", nil)
		req.RemoteAddr = remoteAddr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	// Anonymous callers are keyed by client; the role class allows a burst of two.
	if code := send("192.0.2.1:1000"); code != http.StatusOK {
		t.Fatalf("Expected first anonymous request to pass, got %d", code)
	}

	if err := svc.Login(context.Background(), "auditor@gmg.com", "secret"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	// Three clients, one role: the shared bucket runs out on the third call.
	codes := []int{send("192.0.2.10:1000"), send("192.0.2.11:1000"), send("192.0.2.12:1000")}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK {
		t.Errorf("Expected the role burst to pass, got %v", codes)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Errorf("Expected 429 once the role bucket is empty, got %d", codes[2])
	}
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RateLimitHits.WithLabelValues(string(classRole))))
}

func TestNewLimiterPools_ProductionHalvesLogin(t *testing.T) {
	cfg := middlewareConfig()
	cfg.Environment = "production"
	cfg.RateLimiter = config.RateLimiterConfig{Enabled: true, RPS: 10, Burst: 20}

	pools := newLimiterPools(cfg)
	defer func() {
		for _, p := range pools {
			p.stop()
		}
	}()

	assert.Equal(t, 20, pools[classGlobal].burst)
	assert.Equal(t, 10, pools[classLogin].burst)
	assert.InDelta(t, 5.0, float64(pools[classLogin].limit), 0.001)
	assert.Equal(t, 40, pools[classRole].burst)
}

// TestRateLimit_Disabled checks that disabled limiting never blocks.
func TestRateLimit_Disabled(t *testing.T) {
	mw, _, _ := newTestMiddleware(t, mocks.NewMockSessionStore())

	for i := 0; i < 50; i++ {
		rec := httptest.NewRecorder()
		mw.RateLimitStrict(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/login", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d blocked with rate limiting disabled", i)
		}
	}
}
