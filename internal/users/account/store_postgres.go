// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

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

// # Repository Implementation

// PostgresStore implements [Store] on users.account and users.identitylink.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL implementation of [Store].
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

var (
	accountColumns = strings.Join(schema.UserAccount.Columns(), ", ")
	linkColumns    = strings.Join(schema.UserIdentityLink.Columns(), ", ")
)

func scanUser(row pgx.Row) (*User, error) {
	user := &User{}
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.EmailConfirmed,
		&user.DisplayName,
		&user.AvatarURL,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.LastSignInAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func scanLink(row pgx.Row) (*IdentityLink, error) {
	link := &IdentityLink{}
	err := row.Scan(
		&link.ID,
		&link.UserID,
		&link.Provider,
		&link.ProviderUserID,
		&link.LinkedAt,
		&link.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return link, nil
}

// # User Methods

/*
FindByID retrieves a user from users.account.

Parameters:
  - context: context.Context
  - id: string (UUID)

Returns:
  - *User: Hydrated account
  - error: NOT_FOUND or PERSISTENCE_ERROR
*/
func (repository *PostgresStore) FindByID(context context.Context, id string) (*User, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		accountColumns, schema.UserAccount.Table, schema.UserAccount.ID)

	user, err := scanUser(repository.pool.QueryRow(context, query, id))
	if err != nil {
		return nil, notFoundAs(dberr.Wrap(err, "postgres_account_find_by_id_failed"), "Account")
	}
	return user, nil
}

/*
FindByEmail retrieves a user by normalized email.

Parameters:
  - context: context.Context
  - email: string (Already normalized by the caller)

Returns:
  - *User: Hydrated account
  - error: NOT_FOUND or PERSISTENCE_ERROR
*/
func (repository *PostgresStore) FindByEmail(context context.Context, email string) (*User, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		accountColumns, schema.UserAccount.Table, schema.UserAccount.Email)

	user, err := scanUser(repository.pool.QueryRow(context, query, email))
	if err != nil {
		return nil, notFoundAs(dberr.Wrap(err, "postgres_account_find_by_email_failed"), "Account")
	}
	return user, nil
}

/*
Create inserts a new user into users.account.

Parameters:
  - context: context.Context
  - user: *User (Entity to persist; all fields set by the caller)

Returns:
  - error: CONFLICT on a duplicate email, otherwise PERSISTENCE_ERROR
*/
func (repository *PostgresStore) Create(context context.Context, user *User) error {
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		schema.UserAccount.Table, accountColumns)

	_, err := repository.pool.Exec(context, query,
		user.ID,
		user.Email,
		user.EmailConfirmed,
		user.DisplayName,
		user.AvatarURL,
		user.CreatedAt,
		user.UpdatedAt,
		user.LastSignInAt,
	)
	return dberr.Wrap(err, "postgres_account_create_failed")
}

/*
RecordSignIn advances lastsigninat and merges non-null profile fields.

Parameters:
  - context: context.Context
  - id: string
  - profile: Profile
  - at: time.Time

Returns:
  - *User: The row after the update
  - error: NOT_FOUND or PERSISTENCE_ERROR
*/
func (repository *PostgresStore) RecordSignIn(context context.Context, id string, profile Profile, at time.Time) (*User, error) {
	query := fmt.Sprintf(`
		UPDATE %[1]s
		SET %[2]s = COALESCE($2, %[2]s),
		    %[3]s = COALESCE($3, %[3]s),
		    %[4]s = $4,
		    %[5]s = $4
		WHERE %[6]s = $1
		RETURNING %[7]s`,
		schema.UserAccount.Table,
		schema.UserAccount.DisplayName,
		schema.UserAccount.AvatarURL,
		schema.UserAccount.LastSignInAt,
		schema.UserAccount.UpdatedAt,
		schema.UserAccount.ID,
		accountColumns,
	)

	user, err := scanUser(repository.pool.QueryRow(context, query, id, profile.DisplayName, profile.AvatarURL, at))
	if err != nil {
		return nil, notFoundAs(dberr.Wrap(err, "postgres_account_record_sign_in_failed"), "Account")
	}
	return user, nil
}

// # Identity Link Methods

/*
FindLink retrieves the link owning a provider subject.

Parameters:
  - context: context.Context
  - provider: string
  - providerUserID: string

Returns:
  - *IdentityLink: The link
  - error: NOT_FOUND or PERSISTENCE_ERROR
*/
func (repository *PostgresStore) FindLink(context context.Context, provider, providerUserID string) (*IdentityLink, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1 AND %s = $2`,
		linkColumns, schema.UserIdentityLink.Table,
		schema.UserIdentityLink.Provider, schema.UserIdentityLink.ProviderUserID)

	link, err := scanLink(repository.pool.QueryRow(context, query, provider, providerUserID))
	if err != nil {
		return nil, notFoundAs(dberr.Wrap(err, "postgres_identitylink_find_failed"), "Identity link")
	}
	return link, nil
}

/*
UpsertLink inserts a link or rewrites the (userid, provider) row in place.

Description: The (provider, provideruserid) unique constraint still applies,
so claiming a subject owned by another user fails with CONFLICT and leaves
both rows untouched.

Parameters:
  - context: context.Context
  - link: *IdentityLink

Returns:
  - *IdentityLink: The stored row (LinkedAt keeps its first value)
  - error: CONFLICT or PERSISTENCE_ERROR
*/
func (repository *PostgresStore) UpsertLink(context context.Context, link *IdentityLink) (*IdentityLink, error) {
	query := fmt.Sprintf(`
		INSERT INTO %[1]s (%[2]s) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (%[3]s, %[4]s) DO UPDATE
		SET %[5]s = EXCLUDED.%[5]s,
		    %[6]s = EXCLUDED.%[6]s
		RETURNING %[2]s`,
		schema.UserIdentityLink.Table,
		linkColumns,
		schema.UserIdentityLink.UserID,
		schema.UserIdentityLink.Provider,
		schema.UserIdentityLink.ProviderUserID,
		schema.UserIdentityLink.UpdatedAt,
	)

	stored, err := scanLink(repository.pool.QueryRow(context, query,
		link.ID,
		link.UserID,
		link.Provider,
		link.ProviderUserID,
		link.LinkedAt,
		link.UpdatedAt,
	))
	if err != nil {
		wrapped := dberr.Wrap(err, "postgres_identitylink_upsert_failed")
		if dberr.ConstraintName(err) == schema.UserIdentityLink.UniqueProviderUser {
			return nil, apperr.Conflict("Identity is already linked to another account").WithCause(err)
		}
		return nil, wrapped
	}
	return stored, nil
}

// notFoundAs renames the generic NOT_FOUND into a resource-specific one.
func notFoundAs(err error, resource string) error {
	if apperr.HasCode(err, apperr.CodeNotFound) {
		return apperr.NotFound(resource)
	}
	return err
}
