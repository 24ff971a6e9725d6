package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"
)

// attempts counts failed logins from one client within a window.
type attempts struct {
	failures int
	resetAt  time.Time
}

// RateLimiter throttles password guessing per client IP. Only responses
// with 401 count as attempts, so a user who logs in successfully does not
// use up the quota of the address they share.
type RateLimiter struct {
	mu        sync.Mutex
	clients   map[string]*attempts
	limit     int
	window    time.Duration
	now       func() time.Time
	nextSweep time.Time
}

// NewRateLimiter allows limit failed attempts per window per IP.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		clients: make(map[string]*attempts),
		limit:   limit,
		window:  window,
		now:     time.Now,
	}
}

// sweepLocked drops expired entries at most once per window.
func (rl *RateLimiter) sweepLocked(now time.Time) {
	if now.Before(rl.nextSweep) {
		return
	}
	for ip, a := range rl.clients {
		if !now.Before(a.resetAt) {
			delete(rl.clients, ip)
		}
	}
	rl.nextSweep = now.Add(rl.window)
}

// blocked returns how long ip must wait, or zero.
func (rl *RateLimiter) blocked(ip string) time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.now()
	rl.sweepLocked(now)
	a, ok := rl.clients[ip]
	if !ok || !now.Before(a.resetAt) || a.failures < rl.limit {
		return 0
	}
	return a.resetAt.Sub(now)
}

func (rl *RateLimiter) fail(ip string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.now()
	a, ok := rl.clients[ip]
	if !ok || !now.Before(a.resetAt) {
		a = &attempts{resetAt: now.Add(rl.window)}
		rl.clients[ip] = a
	}
	a.failures++
}

// RateLimitEntry is one client's failed attempts.
type RateLimitEntry struct {
	IP       string    `json:"ip"`
	Failures int       `json:"failures"`
	Blocked  bool      `json:"blocked"`
	ResetAt  time.Time `json:"reset_at"`
}

// RateLimitStatus is returned by the admin API.
type RateLimitStatus struct {
	Limit   int              `json:"limit"`
	Window  string           `json:"window"`
	Entries []RateLimitEntry `json:"entries"`
}

func (rl *RateLimiter) Status() RateLimitStatus {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	entries := make([]RateLimitEntry, 0, len(rl.clients))
	for ip, a := range rl.clients {
		if now.Before(a.resetAt) {
			entries = append(entries, RateLimitEntry{
				IP:       ip,
				Failures: a.failures,
				Blocked:  a.failures >= rl.limit,
				ResetAt:  a.resetAt,
			})
		}
	}
	return RateLimitStatus{
		Limit:   rl.limit,
		Window:  rl.window.String(),
		Entries: entries,
	}
}

// Clear forgets all failed attempts.
func (rl *RateLimiter) Clear() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.clients = make(map[string]*attempts)
}

// Handler rejects blocked clients with 429 and records failed attempts.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr // chi RealIP has already resolved the client address

		if wait := rl.blocked(ip); wait > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(int(wait.Seconds())+1))
			writeError(w, "too many failed login attempts, try again later", http.StatusTooManyRequests)
			return
		}

		wrapped := &wrappedWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		if wrapped.statusCode == http.StatusUnauthorized {
			rl.fail(ip)
		}
	})
}
