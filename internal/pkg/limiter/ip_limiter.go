/*
Package limiter provides per-IP request rate limiting for the polling API.

It uses the token bucket algorithm (rate.Limiter) with one bucket per client IP.
Polling clients hit the API on a fixed interval, so a well-behaved client never
empties its bucket; sustained bursts are either a bug or abuse. A background
goroutine evicts buckets that have refilled completely, bounding memory.
*/
package limiter

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"estatechat/internal/pkg/errs"
	"estatechat/internal/pkg/logx"
	"estatechat/internal/pkg/resp"
)

// cleanupInterval is how often full buckets are evicted.
const cleanupInterval = 3 * time.Minute

// IPRateLimiter holds one token bucket per client IP address.
type IPRateLimiter struct {
	// mu protects the limits map.
	mu sync.RWMutex

	// limits maps a client IP to its bucket.
	limits map[string]*rate.Limiter

	// r is the sustained rate in events per second.
	r rate.Limit

	// b is the burst capacity.
	b int
}

// NewIPRateLimiter returns a limiter allowing r events per second with burst b
// per IP, and starts the background eviction goroutine.
func NewIPRateLimiter(r rate.Limit, b int) *IPRateLimiter {
	i := &IPRateLimiter{
		limits: make(map[string]*rate.Limiter),
		r:      r,
		b:      b,
	}

	go i.cleanupLoop()

	return i
}

// GetLimiter returns the bucket for ip, creating it on first sight. The
// double-checked locking keeps the common read path on the shared lock.
func (i *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	i.mu.RLock()
	limiter, exists := i.limits[ip]
	i.mu.RUnlock()

	if !exists {
		i.mu.Lock()
		limiter, exists = i.limits[ip]
		if !exists {
			limiter = rate.NewLimiter(i.r, i.b)
			i.limits[ip] = limiter
		}
		i.mu.Unlock()
	}

	return limiter
}

// cleanupLoop periodically drops buckets that have refilled to capacity. A
// full bucket means the client has been idle long enough to forget.
func (i *IPRateLimiter) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for range ticker.C {
		i.mu.Lock()
		removed := 0
		for ip, limiter := range i.limits {
			if limiter.TokensAt(time.Now()) >= float64(limiter.Burst()) {
				delete(i.limits, ip)
				removed++
			}
		}
		remaining := len(i.limits)
		i.mu.Unlock()

		logx.Info("Rate limiter cleanup finished", "removed", removed, "active", remaining)
	}
}

// Middleware rejects requests from IPs that have exhausted their bucket with a
// 429 response.
func (i *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}

		if ip == "" {
			ip = "unknown_ip"
		}

		if !i.GetLimiter(ip).Allow() {
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		next.ServeHTTP(w, r)
	})
}
