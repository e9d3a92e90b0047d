package server

import (
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultWriteRPS          = 10
	defaultWriteBurst        = 20
	writeLimiterStaleAfter   = 10 * time.Minute
	writeLimiterCleanupEvery = 64
)

// writeRateLimiter keeps one token bucket per client address. Stale buckets
// are swept every cleanupEveryN calls instead of by a background goroutine.
type writeRateLimiter struct {
	mu            sync.Mutex
	entries       map[string]*writeRateLimitEntry
	limit         rate.Limit
	burst         int
	staleAfter    time.Duration
	opCount       int
	cleanupEveryN int
}

type writeRateLimitEntry struct {
	limiter    *rate.Limiter
	lastSeenAt time.Time
}

// newWriteRateLimiter returns nil when rps is not positive, which disables limiting.
func newWriteRateLimiter(rps float64, burst int) *writeRateLimiter {
	if rps <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return &writeRateLimiter{
		entries:       make(map[string]*writeRateLimitEntry),
		limit:         rate.Limit(rps),
		burst:         burst,
		staleAfter:    writeLimiterStaleAfter,
		cleanupEveryN: writeLimiterCleanupEvery,
	}
}

func (l *writeRateLimiter) Allow(key string, now time.Time) bool {
	if l == nil || key == "" {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[key]
	if !ok {
		entry = &writeRateLimitEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.entries[key] = entry
	}
	entry.lastSeenAt = now
	allowed := entry.limiter.AllowN(now, 1)
	l.maybeCleanupLocked(now)
	return allowed
}

func (l *writeRateLimiter) maybeCleanupLocked(now time.Time) {
	l.opCount++
	if l.cleanupEveryN <= 0 {
		l.cleanupEveryN = writeLimiterCleanupEvery
	}
	if l.opCount%l.cleanupEveryN != 0 {
		return
	}
	for key, entry := range l.entries {
		if now.Sub(entry.lastSeenAt) > l.staleAfter {
			delete(l.entries, key)
		}
	}
}

func (l *writeRateLimiter) size() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (s *Server) withWriteRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.writeLimiter.Allow(clientKey(r), s.now()) {
			s.writeErrorReq(w, r, http.StatusTooManyRequests, rateLimited(fmt.Errorf("too many write requests")))
			return
		}
		next.ServeHTTP(w, r)
	})
}
