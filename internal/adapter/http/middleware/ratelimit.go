package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/iho/campuswallet/internal/domain"
	"github.com/iho/campuswallet/internal/infrastructure/metrics"
)

// Rate classes. Each caller gets an independent bucket per class.
const (
	ClassAuth   = "auth"
	ClassMutate = "mutate"
	ClassRead   = "read"
)

// Policy is the token bucket for one class.
type Policy struct {
	Rate  float64
	Burst int
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter implements per-caller rate limiting. Authenticated requests are
// keyed by account; anonymous ones by client IP.
type RateLimiter struct {
	limiters map[string]*limiterEntry
	policies map[string]Policy
	metrics  *metrics.Metrics
	now      func() time.Time
	mu       sync.Mutex
}

// NewRateLimiter creates a new rate limiter. Classes missing from policies
// are not limited. m may be nil.
func NewRateLimiter(policies map[string]Policy, m *metrics.Metrics) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*limiterEntry),
		policies: policies,
		metrics:  m,
		now:      time.Now,
	}
}

// getLimiter returns the limiter for key, creating it under policy.
func (rl *RateLimiter) getLimiter(key string, policy Policy) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, exists := rl.limiters[key]
	if !exists {
		entry = &limiterEntry{limiter: rate.NewLimiter(rate.Limit(policy.Rate), policy.Burst)}
		rl.limiters[key] = entry
	}
	entry.lastSeen = rl.now()

	return entry.limiter
}

// Limit returns a middleware that enforces the class's policy.
func (rl *RateLimiter) Limit(class string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		policy, ok := rl.policies[class]
		if !ok || policy.Rate <= 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := callerKey(r) + "|" + class
			if !rl.getLimiter(key, policy).Allow() {
				if rl.metrics != nil {
					rl.metrics.RateLimitHits.WithLabelValues(class).Inc()
				}
				w.Header().Set("Retry-After", "1")
				writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// callerKey identifies the caller: the account for authenticated requests,
// otherwise the client IP.
func callerKey(r *http.Request) string {
	if p, ok := domain.PrincipalFromContext(r.Context()); ok {
		return "account:" + p.ExternalID
	}
	return "ip:" + getIP(r)
}

// getIP extracts the client IP from the request. chi's RealIP middleware has
// already applied proxy headers to RemoteAddr.
func getIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// CleanupLimiters drops limiters idle for longer than maxIdle and returns how
// many were removed.
func (rl *RateLimiter) CleanupLimiters(maxIdle time.Duration) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-maxIdle)
	removed := 0
	for key, entry := range rl.limiters {
		if entry.lastSeen.Before(cutoff) {
			delete(rl.limiters, key)
			removed++
		}
	}
	return removed
}

// RunCleanup calls CleanupLimiters every interval until stop is closed.
func (rl *RateLimiter) RunCleanup(interval, maxIdle time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			rl.CleanupLimiters(maxIdle)
		}
	}
}
