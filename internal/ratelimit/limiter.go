// Package ratelimit provides a keyed rate limiter with pluggable storage.
// Buckets are keyed by (actor, action) so the same actor has separate
// quotas for unrelated actions.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Store resolves a bucket for a key, creating one on first use.
type Store interface {
	Bucket(key string, limit rate.Limit, burst int) *rate.Limiter
}

type Limiter struct {
	store Store
	limit rate.Limit
	burst int
}

func New(store Store, limit rate.Limit, burst int) *Limiter {
	return &Limiter{store: store, limit: limit, burst: burst}
}

// Allow reports whether the (actor, action) pair may proceed.
func (l *Limiter) Allow(actor, action string) bool {
	return l.store.Bucket(actor+":"+action, l.limit, l.burst).Allow()
}

// entry holds the bucket and the last time it was seen.
type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// MemoryStore keeps buckets in process memory and evicts idle ones.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*entry
	maxIdle time.Duration
}

func NewMemoryStore(maxIdle time.Duration) *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string]*entry),
		maxIdle: maxIdle,
	}
	go s.cleanup()
	return s
}

func (s *MemoryStore) Bucket(key string, limit rate.Limit, burst int) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, exists := s.entries[key]
	if !exists {
		limiter := rate.NewLimiter(limit, burst)
		s.entries[key] = &entry{limiter, time.Now()}
		return limiter
	}

	e.lastSeen = time.Now()
	return e.limiter
}

// cleanup removes idle entries to prevent the map growing unbounded.
func (s *MemoryStore) cleanup() {
	for {
		time.Sleep(time.Minute)

		s.mu.Lock()
		for key, e := range s.entries {
			if time.Since(e.lastSeen) > s.maxIdle {
				delete(s.entries, key)
			}
		}
		s.mu.Unlock()
	}
}
