package invitengine

import (
	"sync"
	"time"
)

const loginWindow = time.Minute

// LoginLimiter rate-limits admin login attempts per IP address.
type LoginLimiter struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
	max      int
	window   time.Duration
}

// NewLoginLimiter allows max attempts per window for each IP.
func NewLoginLimiter(max int, window time.Duration) *LoginLimiter {
	l := &LoginLimiter{
		attempts: make(map[string][]time.Time),
		max:      max,
		window:   window,
	}
	go l.cleanup()
	return l
}

// Allow reports whether the IP is under the limit and, if so, records
// the attempt.
func (l *LoginLimiter) Allow(ip string) bool {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	kept := l.prune(ip, now)
	if len(kept) >= l.max {
		return false
	}
	l.attempts[ip] = append(kept, now)
	return true
}

// prune drops attempts older than the window. Caller holds the lock.
func (l *LoginLimiter) prune(ip string, now time.Time) []time.Time {
	cutoff := now.Add(-l.window)
	hits := l.attempts[ip]
	kept := hits[:0]
	for _, t := range hits {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	l.attempts[ip] = kept
	return kept
}

func (l *LoginLimiter) cleanup() {
	ticker := time.NewTicker(l.window)
	for range ticker.C {
		now := time.Now()
		l.mu.Lock()
		for ip := range l.attempts {
			if len(l.prune(ip, now)) == 0 {
				delete(l.attempts, ip)
			}
		}
		l.mu.Unlock()
	}
}
