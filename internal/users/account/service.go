// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/taibuivan/authcore/internal/platform/apperr"
	"github.com/taibuivan/authcore/internal/platform/validate"
	"github.com/taibuivan/authcore/pkg/uuid"
)

// # Service Layer

// Service resolves provider identities to local accounts.
type Service struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs a new [Service].
func NewService(store Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger, now: time.Now}
}

// WithClock returns a copy of the service that reads time from clock.
func (service *Service) WithClock(clock func() time.Time) *Service {
	clone := *service
	clone.now = clock
	return &clone
}

// NormalizeEmail trims surrounding whitespace and lower-cases the address
// with Unicode case rules.
func NormalizeEmail(email string) string {
	return cases.Lower(language.Und).String(strings.TrimSpace(email))
}

// # User Resolution

/*
ResolveUser finds or creates the account owning email and records a sign-in.

Description: The email is normalized and validated. A new account is created
with the email confirmed (the provider vouched for it). An existing account
has its sign-in time advanced and profile merged. Two concurrent first logins
for one email converge on a single account: the loser of the insert race
re-reads the winner.

Parameters:
  - context: context.Context
  - email: string (As returned by the provider)
  - profile: Profile

Returns:
  - *User: The resolved account
  - error: VALIDATION_ERROR or PERSISTENCE_ERROR
*/
func (service *Service) ResolveUser(context context.Context, email string, profile Profile) (*User, error) {
	normalized := NormalizeEmail(email)

	validator := &validate.Validator{}
	validator.Required("email", normalized).Email("email", normalized)
	if err := validator.Err(); err != nil {
		return nil, err
	}

	user, err := service.store.FindByEmail(context, normalized)
	switch {
	case err == nil:
		return service.recordSignIn(context, user.ID, profile)
	case !apperr.HasCode(err, apperr.CodeNotFound):
		return nil, fmt.Errorf("account_service_resolve_lookup_failed: %w", err)
	}

	now := service.now()
	user = &User{
		ID:             uuid.New(),
		Email:          normalized,
		EmailConfirmed: true,
		DisplayName:    profile.DisplayName,
		AvatarURL:      profile.AvatarURL,
		CreatedAt:      now,
		UpdatedAt:      now,
		LastSignInAt:   &now,
	}

	if err := service.store.Create(context, user); err != nil {
		if !apperr.HasCode(err, apperr.CodeConflict) {
			return nil, fmt.Errorf("account_service_create_failed: %w", err)
		}

		winner, lookupErr := service.store.FindByEmail(context, normalized)
		if lookupErr != nil {
			return nil, fmt.Errorf("account_service_create_race_lookup_failed: %w", lookupErr)
		}
		return service.recordSignIn(context, winner.ID, profile)
	}

	service.logger.InfoContext(context, "user_account_created", slog.String("user_id", user.ID))

	return user, nil
}

/*
TouchUser records a sign-in for a user already found through an identity link.

Parameters:
  - context: context.Context
  - userID: string
  - profile: Profile

Returns:
  - *User: The updated account
  - error: NOT_FOUND or PERSISTENCE_ERROR
*/
func (service *Service) TouchUser(context context.Context, userID string, profile Profile) (*User, error) {
	return service.recordSignIn(context, userID, profile)
}

// GetUser returns the account with the given id.
func (service *Service) GetUser(context context.Context, userID string) (*User, error) {
	user, err := service.store.FindByID(context, userID)
	if err != nil {
		return nil, fmt.Errorf("account_service_get_user_failed: %w", err)
	}
	return user, nil
}

func (service *Service) recordSignIn(context context.Context, userID string, profile Profile) (*User, error) {
	user, err := service.store.RecordSignIn(context, userID, profile, service.now())
	if err != nil {
		return nil, fmt.Errorf("account_service_record_sign_in_failed: %w", err)
	}
	return user, nil
}

// # Identity Links

/*
LinkIdentity binds (provider, providerUserID) to userID.

Description: Relinking the same provider for the same user updates the row in
place. A subject that already belongs to another user is rejected and neither
account is modified.

Parameters:
  - context: context.Context
  - userID: string
  - provider: string
  - providerUserID: string

Returns:
  - *IdentityLink: The stored link
  - error: CONFLICT or PERSISTENCE_ERROR
*/
func (service *Service) LinkIdentity(context context.Context, userID, provider, providerUserID string) (*IdentityLink, error) {
	existing, err := service.store.FindLink(context, provider, providerUserID)
	switch {
	case err == nil && existing.UserID != userID:
		service.logger.WarnContext(context, "identity_link_conflict",
			slog.String("provider", provider),
			slog.String("user_id", userID),
			slog.String("owner_id", existing.UserID),
		)
		return nil, apperr.Conflict("Identity is already linked to another account")
	case err != nil && !apperr.HasCode(err, apperr.CodeNotFound):
		return nil, fmt.Errorf("account_service_link_lookup_failed: %w", err)
	}

	now := service.now()
	link, err := service.store.UpsertLink(context, &IdentityLink{
		ID:             uuid.New(),
		UserID:         userID,
		Provider:       provider,
		ProviderUserID: providerUserID,
		LinkedAt:       now,
		UpdatedAt:      now,
	})
	if err != nil {
		return nil, fmt.Errorf("account_service_link_failed: %w", err)
	}

	return link, nil
}

/*
FindUserByIdentity returns the user owning a provider subject.

Returns:
  - string: The owning user ID (empty when not found)
  - bool: Whether a link exists
  - error: PERSISTENCE_ERROR only; a missing link is not an error
*/
func (service *Service) FindUserByIdentity(context context.Context, provider, providerUserID string) (string, bool, error) {
	link, err := service.store.FindLink(context, provider, providerUserID)
	if err != nil {
		if apperr.HasCode(err, apperr.CodeNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("account_service_find_by_identity_failed: %w", err)
	}
	return link.UserID, true, nil
}
