// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session

import (
	"context"
	"time"
)

// # Repository Contracts

// Store is the authoritative session registry.
type Store interface {
	/*
		Create persists a new session.

		Returns:
		  - error: CONFLICT on a duplicate token hash, otherwise PERSISTENCE_ERROR
	*/
	Create(context context.Context, session *Session) error

	/*
		FindByTokenHash retrieves the session bound to a token hash, whatever
		its state.

		Returns:
		  - *Session: The session
		  - error: NOT_FOUND or PERSISTENCE_ERROR
	*/
	FindByTokenHash(context context.Context, tokenHash string) (*Session, error)

	/*
		FindByID retrieves a session by id.

		Returns:
		  - *Session: The session
		  - error: NOT_FOUND or PERSISTENCE_ERROR
	*/
	FindByID(context context.Context, id string) (*Session, error)

	/*
		Revoke sets the revoked flag. Revoking twice keeps the first revokedat.

		Parameters:
		  - context: context.Context
		  - id: string (Session ID)
		  - at: time.Time (Revocation instant)

		Returns:
		  - *Session: The session after the update
		  - error: NOT_FOUND or PERSISTENCE_ERROR
	*/
	Revoke(context context.Context, id string, at time.Time) (*Session, error)

	/*
		RevokeAllForUser revokes every non-revoked session of a user.

		Returns:
		  - []*Session: The sessions that changed state
		  - error: PERSISTENCE_ERROR
	*/
	RevokeAllForUser(context context.Context, userID string, at time.Time) ([]*Session, error)
}

// Cache holds validation verdicts keyed by token hash. Entries are
// disposable; implementations never hold the only copy of anything.
type Cache interface {
	// Get returns the verdict for tokenHash, or nil when there is none.
	Get(context context.Context, tokenHash string) (*Verdict, error)

	// Put stores verdict, replacing any existing entry.
	Put(context context.Context, tokenHash string, verdict Verdict, ttl time.Duration) error

	// PutIfAbsent stores verdict only when no entry exists and reports
	// whether it did.
	PutIfAbsent(context context.Context, tokenHash string, verdict Verdict, ttl time.Duration) (bool, error)
}
