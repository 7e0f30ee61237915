// Package memdedup is the default in-process FingerprintStore: a bounded
// TTL map. The bound replaces the unbounded processed-message caches of
// older revisions of this pipeline; when full, the oldest entries are evicted
// ahead of their TTL.
package memdedup

import (
	"context"
	"sync"
	"time"
)

const defaultMaxEntries = 10000

// Store is a bounded in-memory fingerprint window.
type Store struct {
	window     time.Duration
	maxEntries int

	mu   sync.Mutex
	seen map[string]time.Time
}

// New creates a store with the given sliding window. maxEntries <= 0 uses
// the default bound.
func New(window time.Duration, maxEntries int) *Store {
	if window <= 0 {
		window = 2 * time.Hour
	}
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}
	return &Store{
		window:     window,
		maxEntries: maxEntries,
		seen:       make(map[string]time.Time),
	}
}

// CheckAndRecord reports whether the fingerprint was seen within the window,
// recording it when it was not. Check and record are a single critical
// section so concurrent sources cannot both pass for the same fingerprint.
func (s *Store) CheckAndRecord(_ context.Context, fingerprint string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seenAt, ok := s.seen[fingerprint]; ok && at.Sub(seenAt) < s.window {
		return true, nil
	}

	s.pruneLocked(at)
	s.seen[fingerprint] = at
	return false, nil
}

// Len returns the number of fingerprints currently held.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}

// pruneLocked drops expired entries and, when the bound is still exceeded,
// the oldest live ones.
func (s *Store) pruneLocked(now time.Time) {
	for fp, seenAt := range s.seen {
		if now.Sub(seenAt) >= s.window {
			delete(s.seen, fp)
		}
	}
	for len(s.seen) >= s.maxEntries {
		var oldestFP string
		var oldestAt time.Time
		for fp, seenAt := range s.seen {
			if oldestFP == "" || seenAt.Before(oldestAt) {
				oldestFP, oldestAt = fp, seenAt
			}
		}
		delete(s.seen, oldestFP)
	}
}
