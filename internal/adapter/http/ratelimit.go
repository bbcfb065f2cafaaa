package http

import (
	"fmt"
	"math"
	"net"
	"net/http"
	"sync"
	"time"
)

// maxTrackedClients caps the limiter's memory use under address churn.
const maxTrackedClients = 100000

// RateLimiter applies per-client token bucket limiting to the evaluate
// endpoint, so one misbehaving agent cannot starve the gate.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*tokenBucket
	rate    float64 // tokens per second
	burst   int
}

type tokenBucket struct {
	tokens   float64
	refilled time.Time
	lastSeen time.Time
}

// NewRateLimiter creates a limiter with the given sustained rate
// (requests per second) and burst size.
func NewRateLimiter(rate float64, burst int) *RateLimiter {
	return &RateLimiter{
		clients: make(map[string]*tokenBucket),
		rate:    rate,
		burst:   burst,
	}
}

// Handler returns middleware enforcing the per-client limit.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		remaining, retryAfter, allowed := rl.take(clientAddr(r))

		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", time.Now().Add(time.Second).Unix()))

		if !allowed {
			w.Header().Set("Retry-After", fmt.Sprintf("%.0f", math.Ceil(retryAfter)))
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// take consumes one token for the client if available. It reports the
// remaining tokens, the seconds until the next token, and whether the
// request may proceed.
func (rl *RateLimiter) take(addr string) (remaining int, retryAfter float64, allowed bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	b, ok := rl.clients[addr]
	if !ok {
		if len(rl.clients) >= maxTrackedClients {
			return 0, 1.0 / rl.rate, false
		}
		rl.clients[addr] = &tokenBucket{
			tokens:   float64(rl.burst) - 1,
			refilled: now,
			lastSeen: now,
		}
		return rl.burst - 1, 0, true
	}

	b.tokens = math.Min(float64(rl.burst), b.tokens+now.Sub(b.refilled).Seconds()*rl.rate)
	b.refilled = now
	b.lastSeen = now

	if b.tokens < 1 {
		return 0, (1 - b.tokens) / rl.rate, false
	}
	b.tokens--
	return int(b.tokens), 0, true
}

// StartCleanup evicts buckets idle longer than maxIdle, checking every
// interval. The returned func stops the cleanup goroutine.
func (rl *RateLimiter) StartCleanup(interval, maxIdle time.Duration) func() {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				rl.evictIdle(maxIdle)
			}
		}
	}()
	return func() { close(done) }
}

func (rl *RateLimiter) evictIdle(maxIdle time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	cutoff := time.Now().Add(-maxIdle)
	for addr, b := range rl.clients {
		if b.lastSeen.Before(cutoff) {
			delete(rl.clients, addr)
		}
	}
}

// clientAddr extracts the client IP from RemoteAddr. Proxy headers are
// not trusted here since they can be spoofed to bypass the limit.
func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
