// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package account resolves external identities to local users.

A user is keyed by normalized email: the first login with an unseen email
creates the account, and later logins from any provider with the same email
land on it. Identity links record which provider subject belongs to which user.

# Architecture

  - Entities: User, IdentityLink, Profile.
  - Store: persistence contract implemented by [PostgresStore].
  - Service: normalization, merge rules and link conflict detection.
*/
package account

import (
	"context"
	"time"
)

// # Domain Entities

// User is a local account. Email is stored normalized and is unique.
type User struct {
	ID             string     `json:"id"`
	Email          string     `json:"email"`
	EmailConfirmed bool       `json:"emailConfirmed"`
	DisplayName    *string    `json:"displayName,omitempty"`
	AvatarURL      *string    `json:"avatarUrl,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
	LastSignInAt   *time.Time `json:"lastSignInAt,omitempty"`
}

// Profile carries provider-supplied display data. A nil field leaves the
// stored value untouched; a non-nil field overwrites it.
type Profile struct {
	DisplayName *string
	AvatarURL   *string
}

// IdentityLink binds a provider subject to a user. There is at most one link
// per (user, provider) and one owner per (provider, provider user id).
type IdentityLink struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId"`
	Provider       string    `json:"provider"`
	ProviderUserID string    `json:"providerUserId"`
	LinkedAt       time.Time `json:"linkedAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// # Repository Contracts

// Store defines the persistence contract for users and identity links.
//
// Implementations report missing rows as NOT_FOUND and unique violations as
// CONFLICT [apperr.AppError] values; anything else is PERSISTENCE_ERROR.
type Store interface {
	/*
		FindByID retrieves a user by primary key.

		Returns:
		  - *User: Loaded account
		  - error: NOT_FOUND or storage failure
	*/
	FindByID(context context.Context, id string) (*User, error)

	/*
		FindByEmail retrieves a user by normalized email.

		Returns:
		  - *User: Loaded account
		  - error: NOT_FOUND or storage failure
	*/
	FindByEmail(context context.Context, email string) (*User, error)

	/*
		Create inserts a new user.

		Returns:
		  - error: CONFLICT when the email is already taken
	*/
	Create(context context.Context, user *User) error

	/*
		RecordSignIn advances last_sign_in_at and merges profile into the row.

		Parameters:
		  - context: context.Context
		  - id: string (User ID)
		  - profile: Profile (nil fields preserve stored values)
		  - at: time.Time (Sign-in instant)

		Returns:
		  - *User: The updated account
		  - error: NOT_FOUND or storage failure
	*/
	RecordSignIn(context context.Context, id string, profile Profile, at time.Time) (*User, error)

	/*
		FindLink retrieves the link owning (provider, providerUserID).

		Returns:
		  - *IdentityLink: The link
		  - error: NOT_FOUND or storage failure
	*/
	FindLink(context context.Context, provider, providerUserID string) (*IdentityLink, error)

	/*
		UpsertLink inserts a link or updates the existing (user, provider) row in
		place.

		Returns:
		  - *IdentityLink: The stored link
		  - error: CONFLICT when (provider, providerUserID) belongs to another user
	*/
	UpsertLink(context context.Context, link *IdentityLink) (*IdentityLink, error)
}
