//
// Copyright (C) 2026 CAPI AI. All rights reserved.
//
// orquesta is licensed under the Apache License Version 2.0.
//
//

// Package inmemory provides the default in-memory checkpoint store used for
// suspend/resume across human-approval pauses.
package inmemory

import (
	"context"
	"sync"
	"time"

	"github.com/capiai/orquesta/graph"
)

type entry struct {
	snapshot  *graph.Snapshot
	expiresAt time.Time
}

// Store is an in-memory, TTL-bounded checkpoint store keyed by session id.
// Expired entries are dropped lazily the next time any operation touches the
// store; there is no background timer. A turn that never resumes simply
// expires.
type Store struct {
	mu      sync.Mutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithTTL sets the per-entry time to live (default 1h).
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// withClock overrides the time source, for tests.
func withClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates a new in-memory checkpoint store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		entries: make(map[string]entry),
		ttl:     graph.DefaultCheckpointTTL,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load returns the snapshot for the session, or (nil, nil) on a miss.
func (s *Store) Load(ctx context.Context, sessionID string) (*graph.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep()
	e, exists := s.entries[sessionID]
	if !exists {
		return nil, nil
	}
	return e.snapshot, nil
}

// Save stores the snapshot under the session id, resetting its TTL.
func (s *Store) Save(ctx context.Context, sessionID string, snapshot *graph.Snapshot) error {
	if sessionID == "" {
		return graph.ErrSessionIDRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep()
	s.entries[sessionID] = entry{
		snapshot:  snapshot,
		expiresAt: s.now().Add(s.ttl),
	}
	return nil
}

// Delete removes the snapshot for the session. Deleting a missing session is
// a no-op.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep()
	delete(s.entries, sessionID)
	return nil
}

// Close releases the store's entries.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]entry)
	return nil
}

// Len returns the number of live (unexpired) entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep()
	return len(s.entries)
}

// sweep drops expired entries. Callers must hold the lock.
func (s *Store) sweep() {
	now := s.now()
	for sessionID, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, sessionID)
		}
	}
}
