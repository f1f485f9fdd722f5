package api

import (
	"net"
	"net/http"
	"sync"

	"wakepark/internal/config"

	"golang.org/x/time/rate"
)

// ipLimiter keeps one token bucket per client address for the public
// booking endpoints.
type ipLimiter struct {
	limiters sync.Map
	cfg      config.RateLimitConfig
}

func newIPLimiter(cfg config.RateLimitConfig) *ipLimiter {
	return &ipLimiter{cfg: cfg}
}

func (l *ipLimiter) allow(r *http.Request) bool {
	if l.cfg.RPS <= 0 {
		return true
	}
	return l.getLimiter(clientKey(r)).Allow()
}

func (l *ipLimiter) getLimiter(key string) *rate.Limiter {
	if v, ok := l.limiters.Load(key); ok {
		if lim, ok := v.(*rate.Limiter); ok {
			return lim
		}
	}

	burst := l.cfg.Burst
	if burst <= 0 {
		burst = 5
	}

	lim := rate.NewLimiter(rate.Limit(l.cfg.RPS), burst)
	actual, loaded := l.limiters.LoadOrStore(key, lim)
	if loaded {
		if actualLim, ok := actual.(*rate.Limiter); ok {
			return actualLim
		}
	}
	return lim
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return "unknown"
}

// limited wraps a public mutation handler with the per-IP rate limit.
func (s *HTTPServer) limited(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.allow(r) {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next(w, r)
	}
}
