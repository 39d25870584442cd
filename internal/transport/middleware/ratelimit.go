package middleware

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/frahmantamala/agent-management/internal/cache"
)

// RateLimiter throttles requests per client IP. Counters live in the
// shared cache so limits hold across instances; when a cache call
// fails the request passes through an in-process token bucket instead
// of being rejected.
type RateLimiter struct {
	cache    cache.Cache
	limit    int
	window   time.Duration
	logger   *slog.Logger
	mu       sync.Mutex
	fallback map[string]*rate.Limiter
}

func NewRateLimiter(c cache.Cache, limit int, window time.Duration, logger *slog.Logger) *RateLimiter {
	return &RateLimiter{
		cache:    c,
		limit:    limit,
		window:   window,
		logger:   logger,
		fallback: make(map[string]*rate.Limiter),
	}
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientIP := clientAddr(r)
		key := "ratelimit:" + clientIP

		count, err := rl.cache.Increment(r.Context(), key, rl.window)
		if err != nil {
			rl.logger.Warn("rate limit counter unavailable", "error", err)
			if !rl.localLimiter(clientIP).Allow() {
				rl.reject(w)
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		if count > int64(rl.limit) {
			rl.logger.Warn("rate limit exceeded", "client_ip", clientIP, "count", count)
			rl.reject(w)
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.limit))
		remaining := int64(rl.limit) - count
		if remaining < 0 {
			remaining = 0
		}
		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) reject(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	fmt.Fprint(w, `{"error": "Too many requests"}`)
}

func (rl *RateLimiter) localLimiter(clientIP string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	l, ok := rl.fallback[clientIP]
	if !ok {
		perSecond := rate.Limit(float64(rl.limit) / rl.window.Seconds())
		l = rate.NewLimiter(perSecond, rl.limit)
		rl.fallback[clientIP] = l
	}
	return l
}

func clientAddr(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
