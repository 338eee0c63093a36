// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package authfakes

import (
	"context"
	"sync"
	"time"

	"github.com/taibuivan/authcore/internal/platform/apperr"
	"github.com/taibuivan/authcore/internal/users/session"
)

// SessionStore is an in-memory [session.Store].
//
// Operation names for Fail: "create", "find_by_hash", "find_by_id",
// "revoke", "revoke_all".
type SessionStore struct {
	failures

	mu       sync.Mutex
	sessions map[string]session.Session
	reads    int
}

// NewSessionStore returns an empty store.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]session.Session)}
}

var _ session.Store = (*SessionStore)(nil)

// Reads returns how many token hash lookups reached the store.
func (store *SessionStore) Reads() int {
	store.mu.Lock()
	defer store.mu.Unlock()
	return store.reads
}

// Sessions returns a snapshot of all sessions.
func (store *SessionStore) Sessions() []session.Session {
	store.mu.Lock()
	defer store.mu.Unlock()
	sessions := make([]session.Session, 0, len(store.sessions))
	for _, stored := range store.sessions {
		sessions = append(sessions, stored)
	}
	return sessions
}

func (store *SessionStore) Create(_ context.Context, created *session.Session) error {
	if err := store.err("create"); err != nil {
		return err
	}
	store.mu.Lock()
	defer store.mu.Unlock()

	for _, existing := range store.sessions {
		if existing.ID == created.ID || existing.TokenHash == created.TokenHash {
			return apperr.Conflict("Resource already exists")
		}
	}
	store.sessions[created.ID] = *created
	return nil
}

func (store *SessionStore) FindByTokenHash(_ context.Context, tokenHash string) (*session.Session, error) {
	store.mu.Lock()
	store.reads++
	store.mu.Unlock()

	if err := store.err("find_by_hash"); err != nil {
		return nil, err
	}
	store.mu.Lock()
	defer store.mu.Unlock()

	for _, stored := range store.sessions {
		if stored.TokenHash == tokenHash {
			return &stored, nil
		}
	}
	return nil, apperr.NotFound("Session")
}

func (store *SessionStore) FindByID(_ context.Context, id string) (*session.Session, error) {
	if err := store.err("find_by_id"); err != nil {
		return nil, err
	}
	store.mu.Lock()
	defer store.mu.Unlock()

	stored, ok := store.sessions[id]
	if !ok {
		return nil, apperr.NotFound("Session")
	}
	return &stored, nil
}

func (store *SessionStore) Revoke(_ context.Context, id string, at time.Time) (*session.Session, error) {
	if err := store.err("revoke"); err != nil {
		return nil, err
	}
	store.mu.Lock()
	defer store.mu.Unlock()

	stored, ok := store.sessions[id]
	if !ok {
		return nil, apperr.NotFound("Session")
	}
	if !stored.IsRevoked {
		stored.IsRevoked = true
		stored.RevokedAt = &at
		store.sessions[id] = stored
	}
	return &stored, nil
}

func (store *SessionStore) RevokeAllForUser(_ context.Context, userID string, at time.Time) ([]*session.Session, error) {
	if err := store.err("revoke_all"); err != nil {
		return nil, err
	}
	store.mu.Lock()
	defer store.mu.Unlock()

	var revoked []*session.Session
	for id, stored := range store.sessions {
		if stored.UserID != userID || stored.IsRevoked {
			continue
		}
		stored.IsRevoked = true
		stored.RevokedAt = &at
		store.sessions[id] = stored

		copied := stored
		revoked = append(revoked, &copied)
	}
	return revoked, nil
}

// SessionCache is an in-memory [session.Cache] that expires entries against
// a clock and remembers the TTL of every write.
//
// Operation names for Fail: "get", "put", "put_if_absent".
type SessionCache struct {
	failures

	mu      sync.Mutex
	clock   func() time.Time
	entries map[string]cacheEntry
}

type cacheEntry struct {
	verdict   session.Verdict
	ttl       time.Duration
	expiresAt time.Time
}

// NewSessionCache returns an empty cache reading time from clock.
func NewSessionCache(clock func() time.Time) *SessionCache {
	return &SessionCache{clock: clock, entries: make(map[string]cacheEntry)}
}

var _ session.Cache = (*SessionCache)(nil)

// Entry returns the live verdict and its TTL for tokenHash.
func (cache *SessionCache) Entry(tokenHash string) (session.Verdict, time.Duration, bool) {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	entry, ok := cache.live(tokenHash)
	return entry.verdict, entry.ttl, ok
}

// Flush drops every entry.
func (cache *SessionCache) Flush() {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	cache.entries = make(map[string]cacheEntry)
}

func (cache *SessionCache) live(tokenHash string) (cacheEntry, bool) {
	entry, ok := cache.entries[tokenHash]
	if !ok {
		return cacheEntry{}, false
	}
	if !cache.clock().Before(entry.expiresAt) {
		delete(cache.entries, tokenHash)
		return cacheEntry{}, false
	}
	return entry, true
}

func (cache *SessionCache) Get(_ context.Context, tokenHash string) (*session.Verdict, error) {
	if err := cache.err("get"); err != nil {
		return nil, err
	}
	cache.mu.Lock()
	defer cache.mu.Unlock()

	entry, ok := cache.live(tokenHash)
	if !ok {
		return nil, nil
	}
	verdict := entry.verdict
	return &verdict, nil
}

func (cache *SessionCache) Put(_ context.Context, tokenHash string, verdict session.Verdict, ttl time.Duration) error {
	if err := cache.err("put"); err != nil {
		return err
	}
	if ttl <= 0 {
		return nil
	}
	cache.mu.Lock()
	defer cache.mu.Unlock()

	cache.entries[tokenHash] = cacheEntry{verdict: verdict, ttl: ttl, expiresAt: cache.clock().Add(ttl)}
	return nil
}

func (cache *SessionCache) PutIfAbsent(_ context.Context, tokenHash string, verdict session.Verdict, ttl time.Duration) (bool, error) {
	if err := cache.err("put_if_absent"); err != nil {
		return false, err
	}
	if ttl <= 0 {
		return false, nil
	}
	cache.mu.Lock()
	defer cache.mu.Unlock()

	if _, ok := cache.live(tokenHash); ok {
		return false, nil
	}
	cache.entries[tokenHash] = cacheEntry{verdict: verdict, ttl: ttl, expiresAt: cache.clock().Add(ttl)}
	return true, nil
}
