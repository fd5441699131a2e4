// internal/app/system/ratelimit/ratelimit.go
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Keyed holds one token bucket per key. It is safe for concurrent use.
type Keyed struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	every   time.Duration
	burst   int
	now     func() time.Time
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// NewKeyed allows burst attempts per key, refilling one every interval.
func NewKeyed(burst int, every time.Duration) *Keyed {
	if burst < 1 {
		burst = 1
	}
	return &Keyed{
		buckets: make(map[string]*bucket),
		every:   every,
		burst:   burst,
		now:     time.Now,
	}
}

// Allow reports whether one more attempt for key may proceed now.
func (k *Keyed) Allow(key string) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	now := k.now()
	b, ok := k.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(rate.Every(k.every), k.burst)}
		k.buckets[key] = b
	}
	b.seen = now
	return b.lim.AllowN(now, 1)
}

// Reset forgets key, restoring its full burst.
func (k *Keyed) Reset(key string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.buckets, key)
}

// Sweep drops keys idle longer than idle and returns how many went.
func (k *Keyed) Sweep(idle time.Duration) int {
	k.mu.Lock()
	defer k.mu.Unlock()
	cutoff := k.now().Add(-idle)
	n := 0
	for key, b := range k.buckets {
		if b.seen.Before(cutoff) {
			delete(k.buckets, key)
			n++
		}
	}
	return n
}

// Len returns the number of tracked keys.
func (k *Keyed) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.buckets)
}

// ClientIP extracts the client IP from an HTTP request.
// It checks X-Forwarded-For and X-Real-IP headers first (for proxied requests),
// then falls back to RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// LoginLimiter throttles sign-in attempts per client IP and per email,
// so neither one address nor one account can be hammered.
type LoginLimiter struct {
	ip    *Keyed
	email *Keyed
}

// NewLoginLimiter allows 10 attempts per IP (one more every 6s) and 5 per
// email (one more every minute).
func NewLoginLimiter() *LoginLimiter {
	return &LoginLimiter{
		ip:    NewKeyed(10, 6*time.Second),
		email: NewKeyed(5, time.Minute),
	}
}

// Check reports whether a login attempt may proceed, and the message to
// show when it may not.
func (ll *LoginLimiter) Check(r *http.Request, email string) (bool, string) {
	if !ll.ip.Allow(ClientIP(r)) {
		return false, "Too many login attempts. Please wait a minute before trying again."
	}
	if key := emailKey(email); key != "" && !ll.email.Allow(key) {
		return false, "Too many login attempts for this account. Please wait a few minutes."
	}
	return true, ""
}

// ResetEmail clears the limit for email after a successful sign-in.
func (ll *LoginLimiter) ResetEmail(email string) {
	if key := emailKey(email); key != "" {
		ll.email.Reset(key)
	}
}

// Sweep drops idle entries from both limiters.
func (ll *LoginLimiter) Sweep(idle time.Duration) int {
	return ll.ip.Sweep(idle) + ll.email.Sweep(idle)
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
