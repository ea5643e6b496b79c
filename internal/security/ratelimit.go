package security

import (
	"sync"
	"time"
)

// AttemptStore is the keyed counter a RateLimiter records attempts in.
// Entries expire after the limiter's window; the in-memory implementation
// below can be swapped for a shared store without touching admission logic.
type AttemptStore interface {
	// Take consumes one token for key. It reports whether the attempt is
	// allowed and, when it is not, how long until the next token.
	Take(key string, rate int, window time.Duration) (allowed bool, retryAfter time.Duration)
}

// RateLimiter bounds join attempts per requester with a token bucket per
// key over a fixed window.
type RateLimiter struct {
	store  AttemptStore
	rate   int
	window time.Duration
}

// NewRateLimiter creates a rate limiter over the given store.
// rate: attempts allowed per window. window: refill interval.
func NewRateLimiter(store AttemptStore, rate int, window time.Duration) *RateLimiter {
	return &RateLimiter{store: store, rate: rate, window: window}
}

// Allow checks one attempt for a requester key.
func (rl *RateLimiter) Allow(key string) (bool, time.Duration) {
	return rl.store.Take(key, rl.rate, rl.window)
}

type bucket struct {
	tokens     int
	lastRefill time.Time
	mu         sync.Mutex
}

// MemoryAttemptStore is the in-process AttemptStore. Stale buckets are
// swept periodically to bound memory.
type MemoryAttemptStore struct {
	buckets map[string]*bucket
	mu      sync.Mutex
	now     func() time.Time
}

// NewMemoryAttemptStore creates the store and starts its sweeper.
func NewMemoryAttemptStore() *MemoryAttemptStore {
	s := &MemoryAttemptStore{
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
	go s.sweep()
	return s
}

// Take consumes one token for key, refilling the bucket when a full window
// has passed.
func (s *MemoryAttemptStore) Take(key string, rate int, window time.Duration) (bool, time.Duration) {
	s.mu.Lock()
	b, exists := s.buckets[key]
	if !exists {
		b = &bucket{tokens: rate, lastRefill: s.now()}
		s.buckets[key] = b
	}
	s.mu.Unlock()

	b.mu.Lock()
	defer b.mu.Unlock()

	now := s.now()
	if now.Sub(b.lastRefill) >= window {
		b.tokens = rate
		b.lastRefill = now
	}

	if b.tokens > 0 {
		b.tokens--
		return true, 0
	}

	retryAfter := window - now.Sub(b.lastRefill)
	if retryAfter < 0 {
		retryAfter = 0
	}
	return false, retryAfter
}

// sweep removes buckets that have been idle for two windows' worth of the
// longest plausible window.
func (s *MemoryAttemptStore) sweep() {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		s.mu.Lock()
		now := s.now()
		for key, b := range s.buckets {
			b.mu.Lock()
			if now.Sub(b.lastRefill) > 2*time.Hour {
				delete(s.buckets, key)
			}
			b.mu.Unlock()
		}
		s.mu.Unlock()
	}
}
