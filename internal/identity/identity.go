// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package identity converts a provider authorization code into a normalized
external identity.

It performs the OAuth code exchange (with PKCE), fetches the provider profile
and maps it onto [ExternalIdentity]. It makes no account decisions: creating
users, linking identities and opening sessions belong to the callers.

Supported providers:

  - google: OpenID userinfo (sub, email, email_verified, name, picture).
  - facebook: Graph API /me (id, email, name, picture.data.url).
*/
package identity

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/taibuivan/authcore/internal/platform/apperr"
)

// # Providers

const (
	ProviderGoogle   = "google"
	ProviderFacebook = "facebook"
)

// ExternalIdentity is the normalized result of a successful exchange.
type ExternalIdentity struct {
	ExternalUserID string
	Email          string
	EmailVerified  bool
	DisplayName    *string
	AvatarURL      *string
	Provider       string

	// Provider credentials are returned for callers that need to call the
	// provider again. They are never persisted here.
	ProviderAccessToken  string
	ProviderRefreshToken string
}

// # Errors

// Cause classifies why an exchange failed.
type Cause string

const (
	// CauseRejected means the provider refused the code or the token.
	CauseRejected Cause = "rejected"

	// CauseMalformed means the provider answered but the payload is unusable.
	CauseMalformed Cause = "malformed"

	// CauseUnavailable means the provider could not be reached in time.
	CauseUnavailable Cause = "unavailable"
)

// ExchangeError is returned for every failed exchange.
type ExchangeError struct {
	Provider string
	Cause    Cause
	Err      error
}

func (e *ExchangeError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("identity: %s exchange %s", e.Provider, e.Cause)
	}
	return fmt.Sprintf("identity: %s exchange %s: %v", e.Provider, e.Cause, e.Err)
}

func (e *ExchangeError) Unwrap() error { return e.Err }

// AppError maps the failure onto the API error contract.
// Rejected codes are an authentication failure; the rest are a bad request.
func (e *ExchangeError) AppError() *apperr.AppError {
	var appError *apperr.AppError

	switch e.Cause {
	case CauseRejected:
		appError = apperr.New(apperr.CodeOAuthRejected, http.StatusUnauthorized,
			"The identity provider rejected the authorization code")
	case CauseUnavailable:
		appError = apperr.New(apperr.CodeOAuthUnavailable, http.StatusBadRequest,
			"The identity provider is unavailable")
	default:
		appError = apperr.New(apperr.CodeOAuthMalformed, http.StatusBadRequest,
			"The identity provider returned an unusable profile")
	}

	return appError.WithCause(e)
}

func newExchangeError(provider string, cause Cause, err error) *ExchangeError {
	return &ExchangeError{Provider: provider, Cause: cause, Err: err}
}

// CauseOf returns the exchange cause carried by err, if any.
func CauseOf(err error) (Cause, bool) {
	var exchangeError *ExchangeError
	if errors.As(err, &exchangeError) {
		return exchangeError.Cause, true
	}
	return "", false
}
