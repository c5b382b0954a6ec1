package middleware

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/ashureev/mockdy/internal/identity"
)

// RateLimitConfig bounds requests per profile (or per IP when no profile is known).
type RateLimitConfig struct {
	RequestsPerMinute int
	Burst             int
	EntryTTL          time.Duration
	CleanupInterval   time.Duration
}

type rateLimitEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter is a per-key token bucket limiter shared by HTTP routes and the
// live socket. A nil *Limiter allows everything.
type Limiter struct {
	mu              sync.Mutex
	limit           rate.Limit
	burst           int
	entries         map[string]*rateLimitEntry
	entryTTL        time.Duration
	cleanupInterval time.Duration
	lastCleanup     time.Time
}

// NewLimiter creates a Limiter. A zero rate or burst disables limiting and
// returns nil.
func NewLimiter(cfg RateLimitConfig) *Limiter {
	if cfg.RequestsPerMinute <= 0 || cfg.Burst <= 0 {
		return nil
	}
	ttl := cfg.EntryTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	cleanup := cfg.CleanupInterval
	if cleanup <= 0 {
		cleanup = 5 * time.Minute
	}
	return &Limiter{
		limit:           rate.Every(time.Minute / time.Duration(cfg.RequestsPerMinute)),
		burst:           cfg.Burst,
		entries:         make(map[string]*rateLimitEntry),
		entryTTL:        ttl,
		cleanupInterval: cleanup,
		lastCleanup:     time.Now(),
	}
}

// AllowProfile reports whether profileID may make another model-backed call.
func (r *Limiter) AllowProfile(profileID string) bool {
	if profileID == "" {
		return true
	}
	return r.allow(profileKey(profileID))
}

func (r *Limiter) allow(key string) bool {
	if r == nil || key == "" {
		return true
	}

	now := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	if now.Sub(r.lastCleanup) >= r.cleanupInterval {
		for k, entry := range r.entries {
			if now.Sub(entry.lastSeen) > r.entryTTL {
				delete(r.entries, k)
			}
		}
		r.lastCleanup = now
	}

	entry, ok := r.entries[key]
	if !ok {
		entry = &rateLimitEntry{limiter: rate.NewLimiter(r.limit, r.burst)}
		r.entries[key] = entry
	}
	entry.lastSeen = now

	return entry.limiter.Allow()
}

// Middleware rejects requests over the limit with 429.
func (r *Limiter) Middleware(next http.Handler) http.Handler {
	if r == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if !r.allow(rateLimitKey(req)) {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "60")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate limit exceeded"}`))
			return
		}
		next.ServeHTTP(w, req)
	})
}

// RateLimit returns middleware backed by a fresh Limiter.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return NewLimiter(cfg).Middleware
}

func profileKey(profileID string) string {
	return "profile:" + profileID
}

func rateLimitKey(r *http.Request) string {
	if id := strings.TrimSpace(identity.ProfileIDFromContext(r.Context())); id != "" {
		return profileKey(id)
	}
	if ip := identity.IPFromRequest(r); ip != "" {
		return "ip:" + ip
	}
	return "anonymous"
}
