package middleware

import (
	"net"
	"net/http"
	"sync"

	"github.com/rs/zerolog/hlog"
	"golang.org/x/time/rate"

	"github.com/markdave123-py/Shopvora/internal/api/respond"
)

// maxTrackedClients bounds the limiter map; it is reset when exceeded.
const maxTrackedClients = 10000

// RateLimiter throttles anonymous writes and assistant requests per client IP.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
}

// NewRateLimiter allows rps requests per second per client with the given
// burst. A non-positive rps disables limiting.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(rps),
		burst:    burst,
	}
}

func (rl *RateLimiter) get(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if l, ok := rl.limiters[key]; ok {
		return l
	}
	if len(rl.limiters) >= maxTrackedClients {
		rl.limiters = make(map[string]*rate.Limiter)
	}
	l := rate.NewLimiter(rl.rate, rl.burst)
	rl.limiters[key] = l
	return l
}

// Allow reports whether the client may make another request now.
func (rl *RateLimiter) Allow(r *http.Request) bool {
	if rl.rate <= 0 {
		return true
	}
	return rl.get(clientIP(r)).Allow()
}

// Middleware answers 429 once a client exceeds its budget: JSON for API
// callers, plain text for pages.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(r) {
			hlog.FromRequest(r).Warn().Str("ip", clientIP(r)).Msg("rate limit exceeded")
			if respond.WantsJSON(r) {
				respond.Error(w, http.StatusTooManyRequests, "Too many requests. Please slow down.")
				return
			}
			http.Error(w, "Too many requests. Please wait a moment and try again.", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP expects chi's RealIP middleware to have rewritten RemoteAddr.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
