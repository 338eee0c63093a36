// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package auth orchestrates OAuth sign-in on top of the identity, account,
session and audit components.

# Flow

A provider callback is exchanged for an external identity, resolved to a
local account, linked, and turned into a session whose id is embedded in a
pair of signed tokens. Every later request presents the access token, which
is verified locally and then checked against the session store so revocation
takes effect immediately.
*/
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/taibuivan/authcore/internal/audit"
	"github.com/taibuivan/authcore/internal/identity"
	"github.com/taibuivan/authcore/internal/platform/apperr"
	"github.com/taibuivan/authcore/internal/platform/ctxutil"
	"github.com/taibuivan/authcore/internal/platform/metrics"
	platformotel "github.com/taibuivan/authcore/internal/platform/otel"
	"github.com/taibuivan/authcore/internal/platform/sec"
	"github.com/taibuivan/authcore/internal/users/account"
	"github.com/taibuivan/authcore/internal/users/session"
	"github.com/taibuivan/authcore/pkg/uuid"
)

// # Contracts & Types

// Exchanger turns an authorization code into a verified external identity.
type Exchanger interface {
	Exchange(ctx context.Context, providerName, code, codeVerifier string) (*identity.ExternalIdentity, error)
}

// Accounts resolves and links local accounts.
type Accounts interface {
	FindUserByIdentity(context context.Context, provider, providerUserID string) (string, bool, error)
	TouchUser(context context.Context, userID string, profile account.Profile) (*account.User, error)
	ResolveUser(context context.Context, email string, profile account.Profile) (*account.User, error)
	LinkIdentity(context context.Context, userID, provider, providerUserID string) (*account.IdentityLink, error)
}

// Tokens mints and verifies signed tokens.
type Tokens interface {
	Issue(userID, sessionID string, class sec.TokenClass) (string, error)
	Verify(tokenString string, expected sec.TokenClass) (*sec.AuthClaims, error)
}

// Sessions persists and checks sessions.
type Sessions interface {
	Create(context context.Context, input session.NewSession) (*session.Session, error)
	Validate(context context.Context, token string) bool
	Revoke(context context.Context, sessionID string) error
	RevokeAllForUser(context context.Context, userID string) (int, error)
	Get(context context.Context, sessionID string) (*session.Session, error)
}

// AuditLog accepts security events without blocking.
type AuditLog interface {
	Record(event audit.Event)
}

// ErrSessionInvalid is returned when a well-signed token points at a session
// that is revoked, expired or unknown.
var ErrSessionInvalid = apperr.New(apperr.CodeSessionInvalid, http.StatusUnauthorized, "Session is no longer valid")

// Service implements the sign-in, authentication and sign-out use cases.
type Service struct {
	exchanger Exchanger
	accounts  Accounts
	tokens    Tokens
	sessions  Sessions
	audit     AuditLog
	metrics   metrics.Recorder
	logger    *slog.Logger
}

// NewService constructs a new [Service]. A nil recorder discards metrics.
func NewService(
	exchanger Exchanger,
	accounts Accounts,
	tokens Tokens,
	sessions Sessions,
	auditLog AuditLog,
	recorder metrics.Recorder,
	logger *slog.Logger,
) *Service {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &Service{
		exchanger: exchanger,
		accounts:  accounts,
		tokens:    tokens,
		sessions:  sessions,
		audit:     auditLog,
		metrics:   recorder,
		logger:    logger,
	}
}

// # Sign-in Flow

// LoginInput carries an OAuth callback and the client it came from.
type LoginInput struct {
	Provider     string
	Code         string
	CodeVerifier string
	UserAgent    string
	IPAddress    string
	Platform     string
}

// LoginResult is an established session and its tokens.
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	User         *account.User
	SessionID    string
	ExpiresAt    time.Time
}

/*
LoginWithOAuth signs a user in with a provider authorization code.

Description: Exchanges the code, finds the account already linked to the
provider subject (or resolves one by email), links the identity, and opens a
session keyed by the new access token. Both outcomes are audited.

Parameters:
  - context: context.Context
  - input: LoginInput

Returns:
  - *LoginResult: Tokens, session and account
  - error: OAUTH_*, UNSUPPORTED_PROVIDER, VALIDATION_ERROR, CONFLICT or PERSISTENCE_ERROR
*/
func (service *Service) LoginWithOAuth(context context.Context, input LoginInput) (*LoginResult, error) {
	context, span := platformotel.Tracer().Start(context, "auth.LoginWithOAuth",
		trace.WithAttributes(attribute.String("oauth.provider", input.Provider)),
	)
	defer span.End()

	result, actorID, err := service.login(context, input)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "login failed")

		service.metrics.RecordLogin(providerLabel(input.Provider, err), metrics.OutcomeFailure)
		service.audit.Record(audit.LoginFailed(actorID, input.IPAddress, err))
		service.logger.WarnContext(context, "oauth_login_failed",
			slog.String("provider", input.Provider),
			slog.Any("error", err),
		)
		return nil, err
	}

	service.metrics.RecordLogin(input.Provider, metrics.OutcomeSuccess)
	service.audit.Record(audit.LoginSucceeded(result.User.ID, input.IPAddress))
	service.logger.InfoContext(context, "oauth_login_succeeded",
		slog.String("provider", input.Provider),
		slog.String("user_id", result.User.ID),
		slog.String("session_id", result.SessionID),
	)

	return result, nil
}

// login runs the sign-in steps. The returned actor ID is set once an
// account is known, so failures after that point are attributed.
func (service *Service) login(context context.Context, input LoginInput) (*LoginResult, *string, error) {
	external, err := service.exchanger.Exchange(context, input.Provider, input.Code, input.CodeVerifier)
	if err != nil {
		return nil, nil, err
	}

	profile := account.Profile{DisplayName: external.DisplayName, AvatarURL: external.AvatarURL}

	userID, linked, err := service.accounts.FindUserByIdentity(context, external.Provider, external.ExternalUserID)
	if err != nil {
		return nil, nil, err
	}

	var user *account.User
	if linked {
		user, err = service.accounts.TouchUser(context, userID, profile)
	} else {
		user, err = service.accounts.ResolveUser(context, external.Email, profile)
	}
	if err != nil {
		return nil, nil, err
	}
	actorID := &user.ID

	if _, err := service.accounts.LinkIdentity(context, user.ID, external.Provider, external.ExternalUserID); err != nil {
		return nil, actorID, err
	}

	sessionID := uuid.New()

	accessToken, err := service.tokens.Issue(user.ID, sessionID, sec.TokenAccess)
	if err != nil {
		return nil, actorID, apperr.Internal(fmt.Errorf("auth_service_issue_access_failed: %w", err))
	}

	refreshToken, err := service.tokens.Issue(user.ID, sessionID, sec.TokenRefresh)
	if err != nil {
		return nil, actorID, apperr.Internal(fmt.Errorf("auth_service_issue_refresh_failed: %w", err))
	}

	created, err := service.sessions.Create(context, session.NewSession{
		ID:     sessionID,
		UserID: user.ID,
		Token:  accessToken,
		Device: session.DeviceInfo{
			UserAgent: input.UserAgent,
			IP:        input.IPAddress,
			Platform:  input.Platform,
		},
	})
	if err != nil {
		return nil, actorID, err
	}

	return &LoginResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user,
		SessionID:    created.ID,
		ExpiresAt:    created.ExpiresAt,
	}, actorID, nil
}

// providerLabel keeps metric cardinality bounded when the path names a
// provider that is not registered.
func providerLabel(provider string, err error) string {
	if apperr.HasCode(err, apperr.CodeUnsupportedProvider) {
		return "unsupported"
	}
	return provider
}

// # Request Authentication

/*
Authenticate verifies an access token and confirms its session is active.

Description: Implements [middleware.Authenticator]. Signature, expiry and
class are checked locally first; the session check then catches revocation.
Every rejection is audited with the client address from the context.

Parameters:
  - context: context.Context
  - bearerToken: string

Returns:
  - *sec.AuthClaims: Verified claims
  - error: TOKEN_EXPIRED, TOKEN_INVALID, TOKEN_WRONG_CLASS or SESSION_INVALID
*/
func (service *Service) Authenticate(context context.Context, bearerToken string) (*sec.AuthClaims, error) {
	claims, err := service.tokens.Verify(bearerToken, sec.TokenAccess)
	if err != nil {
		service.audit.Record(audit.TokenValidationFailed(nil, ctxutil.GetClientIP(context), err))
		return nil, err
	}

	if !service.sessions.Validate(context, bearerToken) {
		service.audit.Record(audit.TokenValidationFailed(&claims.UserID, ctxutil.GetClientIP(context), ErrSessionInvalid))
		return nil, ErrSessionInvalid
	}

	return claims, nil
}

// # Sign-out Flow

/*
Logout revokes the session the caller authenticated with.

Parameters:
  - context: context.Context
  - claims: *sec.AuthClaims (From [Service.Authenticate])
  - ip: string

Returns:
  - error: NOT_FOUND, PERSISTENCE_ERROR or SERVICE_UNAVAILABLE
*/
func (service *Service) Logout(context context.Context, claims *sec.AuthClaims, ip string) error {
	if err := service.sessions.Revoke(context, claims.SessionID); err != nil {
		return err
	}
	service.audit.Record(audit.LoggedOut(claims.UserID, ip))
	return nil
}

/*
LogoutAll revokes every active session of the caller.

Returns:
  - int: Number of sessions revoked
  - error: PERSISTENCE_ERROR or SERVICE_UNAVAILABLE
*/
func (service *Service) LogoutAll(context context.Context, claims *sec.AuthClaims, ip string) (int, error) {
	count, err := service.sessions.RevokeAllForUser(context, claims.UserID)
	if err != nil {
		return count, err
	}
	service.audit.Record(audit.LoggedOut(claims.UserID, ip))
	return count, nil
}

// CurrentSession returns the session the caller authenticated with.
func (service *Service) CurrentSession(context context.Context, claims *sec.AuthClaims) (*session.Session, error) {
	return service.sessions.Get(context, claims.SessionID)
}
