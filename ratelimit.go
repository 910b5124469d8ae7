package dispatch

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig configures per-key rate limiting inside the pipeline.
// Limited requests fail with a 429 Fault before any matching happens.
type RateLimitConfig struct {
	Rate            float64                      // requests per second
	Burst           int                          // max burst
	KeyFunc         func(r *http.Request) string // default: remote IP
	CleanupInterval time.Duration                // how often to prune idle limiters (default: 1m)
	MaxIdle         time.Duration                // remove limiters idle longer than this (default: 5m)
}

// WithRateLimit enables rate limiting.
func WithRateLimit(cfg RateLimitConfig) Option {
	return func(d *Dispatcher) {
		d.limiter = newRateLimiter(cfg)
	}
}

type rateLimiter struct {
	cfg RateLimitConfig

	mu          sync.Mutex
	limiters    map[string]*limiterEntry
	lastCleanup time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newRateLimiter(cfg RateLimitConfig) *rateLimiter {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = func(r *http.Request) string {
			host, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				return r.RemoteAddr
			}
			return host
		}
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = time.Minute
	}
	if cfg.MaxIdle <= 0 {
		cfg.MaxIdle = 5 * time.Minute
	}
	return &rateLimiter{
		cfg:      cfg,
		limiters: make(map[string]*limiterEntry),
	}
}

// allow returns a 429 Fault with Retry-After when the key is over its limit.
// A nil limiter allows everything.
func (l *rateLimiter) allow(r *http.Request) error {
	if l == nil {
		return nil
	}
	key := l.cfg.KeyFunc(r)

	l.mu.Lock()
	now := time.Now()

	// Lazy cleanup of expired limiters.
	if now.Sub(l.lastCleanup) >= l.cfg.CleanupInterval {
		for k, e := range l.limiters {
			if now.Sub(e.lastSeen) > l.cfg.MaxIdle {
				delete(l.limiters, k)
			}
		}
		l.lastCleanup = now
	}

	entry, ok := l.limiters[key]
	if !ok {
		entry = &limiterEntry{
			limiter: rate.NewLimiter(rate.Limit(l.cfg.Rate), l.cfg.Burst),
		}
		l.limiters[key] = entry
	}
	entry.lastSeen = now
	l.mu.Unlock()

	if entry.limiter.Allow() {
		return nil
	}

	retryAfter := "1"
	if l.cfg.Rate > 0 && l.cfg.Rate < 1 {
		retryAfter = strconv.FormatFloat(1/l.cfg.Rate, 'f', 0, 64)
	}
	return &Fault{
		Status: http.StatusTooManyRequests,
		Detail: "rate limit exceeded",
		Header: http.Header{"Retry-After": []string{retryAfter}},
	}
}
