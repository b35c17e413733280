package web

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Olprog59/ehs-access/internal/config"
	"golang.org/x/time/rate"
)

// limitClass names one family of buckets; it is also the rate_limit_hits label
type limitClass string

const (
	classGlobal limitClass = "global" // every request, per client
	classLogin  limitClass = "login"  // POST /api/login, per client
	classRole   limitClass = "role"   // guarded routes, per signed-in role
)

const (
	bucketIdleTTL     = 3 * time.Minute
	bucketSweepPeriod = 5 * time.Minute
	retryAfterSeconds = 60
)

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterPool holds one token bucket per key / Un seau de jetons par clé
type limiterPool struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	limit   rate.Limit
	burst   int
	cancel  context.CancelFunc
}

func newLimiterPool(rps float64, burst int) *limiterPool {
	ctx, cancel := context.WithCancel(context.Background())
	p := &limiterPool{
		buckets: make(map[string]*bucket),
		limit:   rate.Limit(rps),
		burst:   burst,
		cancel:  cancel,
	}
	go p.sweep(ctx)
	return p
}

// newLimiterPools sizes each class from rate_limiter; login is halved in production
// and the role class, shared by every user of a role, gets twice the global budget.
func newLimiterPools(conf *config.Config) map[limitClass]*limiterPool {
	rps, burst := conf.RateLimiter.RPS, conf.RateLimiter.Burst

	loginRPS, loginBurst := rps, burst
	if conf.IsProduction() {
		loginRPS /= 2
		if loginBurst > 2 {
			loginBurst /= 2
		}
	}

	return map[limitClass]*limiterPool{
		classGlobal: newLimiterPool(rps, burst),
		classLogin:  newLimiterPool(loginRPS, loginBurst),
		classRole:   newLimiterPool(rps*2, burst*2),
	}
}

func (p *limiterPool) allow(key string) bool {
	p.mu.Lock()
	b, ok := p.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(p.limit, p.burst)}
		p.buckets[key] = b
	}
	b.lastSeen = time.Now()
	p.mu.Unlock()

	return b.limiter.Allow()
}

// sweep drops buckets idle for longer than bucketIdleTTL
func (p *limiterPool) sweep(ctx context.Context) {
	ticker := time.NewTicker(bucketSweepPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			p.mu.Lock()
			for key, b := range p.buckets {
				if now.Sub(b.lastSeen) > bucketIdleTTL {
					delete(p.buckets, key)
				}
			}
			p.mu.Unlock()
		}
	}
}

func (p *limiterPool) stop() {
	p.cancel()
}

// clientIP returns RemoteAddr, or the forwarded client when RemoteAddr is a trusted proxy
// clientIP retourne l'IP du client en ne croyant que les proxys de confiance
func clientIP(r *http.Request, trustedProxies []string) string {
	remote, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		remote = r.RemoteAddr
	}
	if !slices.Contains(trustedProxies, remote) {
		return remote
	}

	first, _, _ := strings.Cut(r.Header.Get("X-Forwarded-For"), ",")
	for _, candidate := range []string{first, r.Header.Get("X-Real-IP")} {
		if ip := strings.TrimSpace(candidate); net.ParseIP(ip) != nil {
			return ip
		}
	}
	return remote
}

// hashIP keeps raw addresses out of the bucket keys
func hashIP(ip string) string {
	sum := sha256.Sum256([]byte(ip))
	return hex.EncodeToString(sum[:])
}

func (m *Middleware) clientKey(r *http.Request) string {
	return "ip:" + hashIP(clientIP(r, m.conf.Security.TrustedProxies))
}

// roleKey shares one bucket between everyone signed in with the same role
func (m *Middleware) roleKey(r *http.Request) string {
	if role, ok := m.session.CurrentRole(); ok {
		return "role:" + role.String()
	}
	return m.clientKey(r)
}

func (m *Middleware) limit(class limitClass, key func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			pool := m.limiters[class]
			if pool == nil || pool.allow(key(r)) {
				next.ServeHTTP(w, r)
				return
			}
			m.metrics.RecordRateLimitHit(string(class))
			writeRateLimited(w)
		})
	}
}

// RateLimit limits every request per client / Limite chaque requête par client
func (m *Middleware) RateLimit(next http.Handler) http.Handler {
	return m.limit(classGlobal, m.clientKey)(next)
}

// RateLimitStrict guards the login endpoint per client / Protège la connexion par client
func (m *Middleware) RateLimitStrict(next http.Handler) http.Handler {
	return m.limit(classLogin, m.clientKey)(next)
}

// RateLimitByRole limits guarded routes per role; anonymous callers are keyed by client
func (m *Middleware) RateLimitByRole(next http.Handler) http.Handler {
	return m.limit(classRole, m.roleKey)(next)
}

// RateLimitErrorResponse is the 429 body / Corps de la réponse 429
type RateLimitErrorResponse struct {
	Error      string    `json:"error"`
	Message    string    `json:"message"`
	Code       int       `json:"code"`
	RetryAfter int       `json:"retry_after_seconds"`
	Timestamp  time.Time `json:"timestamp"`
}

func writeRateLimited(w http.ResponseWriter) {
	retry := strconv.Itoa(retryAfterSeconds)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", retry)
	w.Header().Set("X-RateLimit-Retry-After", retry)
	w.WriteHeader(http.StatusTooManyRequests)

	_ = json.NewEncoder(w).Encode(RateLimitErrorResponse{
		Error:      "rate_limit_exceeded",
		Message:    "Too many requests. Please try again later.",
		Code:       http.StatusTooManyRequests,
		RetryAfter: retryAfterSeconds,
		Timestamp:  time.Now().UTC(),
	})
}
