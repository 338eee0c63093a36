// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/authcore/internal/platform/apperr"
	"github.com/taibuivan/authcore/internal/platform/database/schema"
	"github.com/taibuivan/authcore/internal/platform/dberr"
)

// PostgresStore implements [Store] on users.session.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL implementation of [Store].
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

var sessionColumns = strings.Join(schema.UserSession.Columns(), ", ")

func scanSession(row pgx.Row) (*Session, error) {
	session := &Session{}
	err := row.Scan(
		&session.ID,
		&session.UserID,
		&session.TokenHash,
		&session.Device,
		&session.ExpiresAt,
		&session.IsRevoked,
		&session.RevokedAt,
		&session.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return session, nil
}

/*
Create persists a new session row.

Parameters:
  - context: context.Context
  - session: *Session (TokenHash already computed)

Returns:
  - error: CONFLICT on a duplicate token hash, otherwise PERSISTENCE_ERROR
*/
func (repository *PostgresStore) Create(context context.Context, session *Session) error {
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		schema.UserSession.Table, sessionColumns)

	_, err := repository.pool.Exec(context, query,
		session.ID,
		session.UserID,
		session.TokenHash,
		session.Device,
		session.ExpiresAt,
		session.IsRevoked,
		session.RevokedAt,
		session.CreatedAt,
	)
	return dberr.Wrap(err, "postgres_session_create_failed")
}

/*
FindByTokenHash retrieves a session by token hash regardless of state.

Parameters:
  - context: context.Context
  - tokenHash: string (Hex SHA-256)

Returns:
  - *Session: The session
  - error: NOT_FOUND or PERSISTENCE_ERROR
*/
func (repository *PostgresStore) FindByTokenHash(context context.Context, tokenHash string) (*Session, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		sessionColumns, schema.UserSession.Table, schema.UserSession.TokenHash)

	session, err := scanSession(repository.pool.QueryRow(context, query, tokenHash))
	if err != nil {
		return nil, notFoundAs(dberr.Wrap(err, "postgres_session_find_by_hash_failed"))
	}
	return session, nil
}

/*
FindByID retrieves a session by id.

Parameters:
  - context: context.Context
  - id: string

Returns:
  - *Session: The session
  - error: NOT_FOUND or PERSISTENCE_ERROR
*/
func (repository *PostgresStore) FindByID(context context.Context, id string) (*Session, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		sessionColumns, schema.UserSession.Table, schema.UserSession.ID)

	session, err := scanSession(repository.pool.QueryRow(context, query, id))
	if err != nil {
		return nil, notFoundAs(dberr.Wrap(err, "postgres_session_find_by_id_failed"))
	}
	return session, nil
}

/*
Revoke marks a session as revoked and returns the row, including the token
hash the caller needs to invalidate the cache.

Parameters:
  - context: context.Context
  - id: string
  - at: time.Time

Returns:
  - *Session: The revoked session
  - error: NOT_FOUND or PERSISTENCE_ERROR
*/
func (repository *PostgresStore) Revoke(context context.Context, id string, at time.Time) (*Session, error) {
	query := fmt.Sprintf(`
		UPDATE %[1]s
		SET %[2]s = TRUE,
		    %[3]s = COALESCE(%[3]s, $2)
		WHERE %[4]s = $1
		RETURNING %[5]s`,
		schema.UserSession.Table,
		schema.UserSession.IsRevoked,
		schema.UserSession.RevokedAt,
		schema.UserSession.ID,
		sessionColumns,
	)

	session, err := scanSession(repository.pool.QueryRow(context, query, id, at))
	if err != nil {
		return nil, notFoundAs(dberr.Wrap(err, "postgres_session_revoke_failed"))
	}
	return session, nil
}

/*
RevokeAllForUser revokes every active session of a user.

Parameters:
  - context: context.Context
  - userID: string
  - at: time.Time

Returns:
  - []*Session: Sessions revoked by this call
  - error: PERSISTENCE_ERROR
*/
func (repository *PostgresStore) RevokeAllForUser(context context.Context, userID string, at time.Time) ([]*Session, error) {
	query := fmt.Sprintf(`
		UPDATE %[1]s
		SET %[2]s = TRUE,
		    %[3]s = $2
		WHERE %[4]s = $1 AND %[2]s = FALSE
		RETURNING %[5]s`,
		schema.UserSession.Table,
		schema.UserSession.IsRevoked,
		schema.UserSession.RevokedAt,
		schema.UserSession.UserID,
		sessionColumns,
	)

	rows, err := repository.pool.Query(context, query, userID, at)
	if err != nil {
		return nil, dberr.Wrap(err, "postgres_session_revoke_all_failed")
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, dberr.Wrap(err, "postgres_session_revoke_all_scan_failed")
		}
		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, dberr.Wrap(err, "postgres_session_revoke_all_failed")
	}

	return sessions, nil
}

func notFoundAs(err error) error {
	if apperr.HasCode(err, apperr.CodeNotFound) {
		return apperr.NotFound("Session")
	}
	return err
}
