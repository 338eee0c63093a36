// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package sec provides cryptographic primitives and token management.
//
// # Architecture
//
// This package isolates security-sensitive code (token signing, token hashing)
// from the domain logic. The [TokenService] is constructed once with an explicit
// signing secret and injected wherever tokens are minted or checked.
package sec

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/taibuivan/authcore/internal/platform/apperr"
)

// TokenClass distinguishes access tokens from refresh tokens.
type TokenClass string

const (
	TokenAccess  TokenClass = "access"
	TokenRefresh TokenClass = "refresh"
)

// Default horizons per token class.
const (
	DefaultAccessTTL  = 30 * 24 * time.Hour
	DefaultRefreshTTL = 90 * 24 * time.Hour
)

// Verification outcomes. Callers must treat them differently: an expired
// token prompts a refresh, an invalid one forces re-authentication, and a
// wrong-class token is a protocol violation.
var (
	ErrTokenExpired    = apperr.New(apperr.CodeTokenExpired, http.StatusUnauthorized, "Session expired, please re-authenticate")
	ErrTokenInvalid    = apperr.New(apperr.CodeTokenInvalid, http.StatusUnauthorized, "Invalid token")
	ErrTokenWrongClass = apperr.New(apperr.CodeTokenWrongClass, http.StatusUnauthorized, "Token type not accepted here")
)

var (
	errMissingSigningSecret = errors.New("sec: signing secret must be provided")
	errInvalidHorizons      = errors.New("sec: refresh horizon must exceed access horizon")
)

// AuthClaims represents the payload embedded inside a signed token.
//
// The subject carries the user ID; SessionID links the token to its
// persisted session so revocation can be checked on every request.
type AuthClaims struct {
	jwt.RegisteredClaims

	SessionID string     `json:"sessionId"`
	Type      TokenClass `json:"type"`

	// UserID mirrors the subject after verification.
	UserID string `json:"-"`
}

// TokenConfig configures a [TokenService].
type TokenConfig struct {
	Secret     []byte
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Clock      func() time.Time
}

// TokenService mints and verifies HS256 tokens for both classes.
type TokenService struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	clock      func() time.Time
}

// NewTokenService validates the configuration and returns a ready service.
// Zero horizons fall back to the 30/90 day defaults.
func NewTokenService(cfg TokenConfig) (*TokenService, error) {
	if len(cfg.Secret) == 0 {
		return nil, errMissingSigningSecret
	}

	accessTTL := cfg.AccessTTL
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTTL
	}
	refreshTTL := cfg.RefreshTTL
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTTL
	}
	if refreshTTL <= accessTTL {
		return nil, errInvalidHorizons
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	return &TokenService{
		secret:     append([]byte(nil), cfg.Secret...),
		issuer:     strings.TrimSpace(cfg.Issuer),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		clock:      clock,
	}, nil
}

// TTL returns the horizon for the given class.
func (service *TokenService) TTL(class TokenClass) time.Duration {
	if class == TokenRefresh {
		return service.refreshTTL
	}
	return service.accessTTL
}

// Issue signs a token of the given class linking userID to sessionID.
func (service *TokenService) Issue(userID, sessionID string, class TokenClass) (string, error) {
	if class != TokenAccess && class != TokenRefresh {
		return "", fmt.Errorf("sec: unknown token class %q", class)
	}
	if userID == "" || sessionID == "" {
		return "", errors.New("sec: subject and session id are required")
	}

	now := service.clock()
	claims := AuthClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			Issuer:    service.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(service.TTL(class))),
		},
		SessionID: sessionID,
		Type:      class,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(service.secret)
	if err != nil {
		return "", fmt.Errorf("sec: failed to sign token: %w", err)
	}

	return signedToken, nil
}

// Verify checks signature, issuer, expiry and class of a token.
//
// Expiry is enforced by the JWT validator against the injected clock.
func (service *TokenService) Verify(tokenString string, expected TokenClass) (*AuthClaims, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return nil, ErrTokenInvalid
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(service.clock),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	}
	if service.issuer != "" {
		options = append(options, jwt.WithIssuer(service.issuer))
	}

	claims := &AuthClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return service.secret, nil
	}, options...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired.WithCause(err)
		}
		return nil, ErrTokenInvalid.WithCause(err)
	}

	if claims.Subject == "" || claims.SessionID == "" {
		return nil, ErrTokenInvalid
	}
	if claims.Type != expected {
		return nil, ErrTokenWrongClass.WithCause(fmt.Errorf("got %q, want %q", claims.Type, expected))
	}

	claims.UserID = claims.Subject
	return claims, nil
}
