package server

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"cvforge/internal/config"
	"cvforge/internal/errors"
	"cvforge/internal/observability"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
)

// RateLimiter keeps one token bucket per client key (IP or API key).
// Buckets idle for longer than the forget window are dropped by a
// background sweep that runs once per window.
type RateLimiter struct {
	mu       sync.Mutex
	clients  map[string]*clientBucket
	limit    rate.Limit
	burst    int
	forget   time.Duration
	rejected int64

	now      func() time.Time
	stop     chan struct{}
	stopOnce sync.Once
	logger   *errors.Logger
}

type clientBucket struct {
	*rate.Limiter
	seen time.Time
}

// defaultForgetWindow applies when server.rateLimit.window is unset.
const defaultForgetWindow = 10 * time.Minute

// NewRateLimiter allows cfg.RequestsPerMin per client with bursts of
// cfg.BurstCapacity. cfg.Window sets how long an idle client's bucket is
// kept. It never drops below the time a drained bucket needs to refill,
// so forgetting a client cannot hand it a fresh burst early.
func NewRateLimiter(cfg config.RateLimitConfig, logger *errors.Logger) *RateLimiter {
	if logger == nil {
		logger = errors.Discard()
	}
	limit := rate.Limit(float64(cfg.RequestsPerMin) / 60.0)
	rl := &RateLimiter{
		clients: make(map[string]*clientBucket),
		limit:   limit,
		burst:   cfg.BurstCapacity,
		forget:  forgetWindow(cfg.Window, limit, cfg.BurstCapacity),
		now:     time.Now,
		stop:    make(chan struct{}),
		logger:  logger,
	}
	go rl.sweepLoop()
	return rl
}

func forgetWindow(window time.Duration, limit rate.Limit, burst int) time.Duration {
	if window <= 0 {
		window = defaultForgetWindow
	}
	if limit > 0 && burst > 0 {
		refill := time.Duration(float64(burst) / float64(limit) * float64(time.Second))
		window = max(window, refill)
	}
	return window
}

func (rl *RateLimiter) bucket(key string) *clientBucket {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.clients[key]
	if !ok {
		b = &clientBucket{Limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[key] = b
	}
	b.seen = rl.now()
	return b
}

// Allow reports whether a request for key may proceed now. It never blocks.
func (rl *RateLimiter) Allow(key string) bool {
	b := rl.bucket(key)
	if b.AllowN(rl.now(), 1) {
		return true
	}
	rl.mu.Lock()
	rl.rejected++
	rl.mu.Unlock()
	return false
}

// GetStats returns current rate limiter statistics
func (rl *RateLimiter) GetStats() map[string]any {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	return map[string]any{
		"active_limiters": len(rl.clients),
		"rate_per_minute": float64(rl.limit) * 60.0,
		"burst_capacity":  rl.burst,
		"forget_after":    rl.forget.String(),
		"rejected_total":  rl.rejected,
	}
}

func (rl *RateLimiter) sweepLoop() {
	ticker := time.NewTicker(rl.forget)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.sweep()
		case <-rl.stop:
			return
		}
	}
}

// sweep drops the buckets of clients not seen within the forget window.
func (rl *RateLimiter) sweep() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-rl.forget)
	dropped := 0
	for key, b := range rl.clients {
		if b.seen.Before(cutoff) {
			delete(rl.clients, key)
			dropped++
		}
	}
	if dropped > 0 {
		rl.logger.Debug("Forgot idle rate limit clients",
			"dropped", dropped,
			"remaining", len(rl.clients))
	}
	return dropped
}

// Close stops the sweep. It is safe to call more than once.
func (rl *RateLimiter) Close() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// rateLimitMiddleware rejects requests over the per-client budget with 429
// and counts each rejection.
func (s *Server) rateLimitMiddleware(om *observability.ObservabilityManager) func(http.HandlerFunc) http.HandlerFunc {
	if s.RateLimit == nil || !s.RateLimit.Enabled || s.RateLimiter == nil {
		return func(next http.HandlerFunc) http.HandlerFunc { return next }
	}

	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			rateLimitKey := getRateLimitKey(r, s.RateLimit.ByAPIKey, s.RateLimit.ByIP)
			if rateLimitKey == "" {
				next(w, r)
				return
			}

			if !s.RateLimiter.Allow(rateLimitKey) {
				s.Logger.Info("Rate limit exceeded",
					"key", maskRateLimitKey(rateLimitKey),
					"endpoint", r.URL.Path,
					"client_ip", getClientIP(r))
				om.Record(r.Context(), observability.MetricRateLimitHit, true,
					attribute.String("endpoint", r.Pattern),
					attribute.String("method", r.Method))
				writeError(w, errors.ErrCodeRateLimited, "Too many requests", http.StatusTooManyRequests)
				return
			}

			next(w, r)
		}
	}
}

// maskRateLimitKey keeps API keys out of the logs.
func maskRateLimitKey(key string) string {
	if apiKey, ok := strings.CutPrefix(key, "api:"); ok {
		return "api:" + maskAPIKey(apiKey)
	}
	return key
}

// getRateLimitKey prefers the API key when both strategies are on.
func getRateLimitKey(r *http.Request, byAPIKey, byIP bool) string {
	if byAPIKey {
		apiKey := r.Header.Get("X-API-Key")
		if apiKey == "" {
			authHeader := r.Header.Get("Authorization")
			if after, ok := strings.CutPrefix(authHeader, "Bearer "); ok {
				apiKey = after
			}
		}
		if apiKey != "" {
			return "api:" + apiKey
		}
	}

	if byIP {
		return "ip:" + getClientIP(r)
	}

	return ""
}

// getClientIP trusts proxy headers first: the first valid address in
// X-Forwarded-For, then X-Real-IP, then the connection's remote address.
func getClientIP(r *http.Request) string {
	for ip := range strings.SplitSeq(r.Header.Get("X-Forwarded-For"), ",") {
		if ip = strings.TrimSpace(ip); net.ParseIP(ip) != nil {
			return ip
		}
	}
	if xri := r.Header.Get("X-Real-IP"); net.ParseIP(xri) != nil {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
