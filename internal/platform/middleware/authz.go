// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/taibuivan/authcore/internal/platform/apperr"
	"github.com/taibuivan/authcore/internal/platform/constants"
	"github.com/taibuivan/authcore/internal/platform/ctxutil"
	"github.com/taibuivan/authcore/internal/platform/respond"
	"github.com/taibuivan/authcore/internal/platform/sec"
)

// Authenticator resolves a bearer token into verified claims.
//
// Implementations verify the signature locally and then confirm the session
// has not been revoked, so a nil error means the session is active.
type Authenticator interface {
	Authenticate(context context.Context, bearerToken string) (*sec.AuthClaims, error)
}

// Authenticate extracts and checks the bearer token from the Authorization header.
//
// # Flow
//  1. No header: the request proceeds as anonymous.
//  2. Malformed header: 401.
//  3. Token or session rejected: the [apperr.AppError] from the authenticator (401).
//  4. Otherwise [*sec.AuthClaims] is injected into the request context.
func Authenticate(authenticator Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			authHeader := request.Header.Get(constants.HeaderAuthorization)

			// ── 1. Anonymous Access ───────────────────────────────────────────
			if authHeader == "" {
				next.ServeHTTP(writer, request)
				return
			}

			// ── 2. Format Validation ──────────────────────────────────────────
			scheme, token, found := strings.Cut(authHeader, " ")
			token = strings.TrimSpace(token)
			if !found || !strings.EqualFold(scheme, "bearer") || token == "" {
				respond.Error(writer, request, apperr.Unauthorized("Invalid authorization format"))
				return
			}

			// ── 3. Token + Session Verification ───────────────────────────────
			claims, err := authenticator.Authenticate(request.Context(), token)
			if err != nil {
				if !apperr.IsAppError(err) {
					err = apperr.Unauthorized("Invalid or expired token")
				}
				respond.Error(writer, request, err)
				return
			}

			// ── 4. Context Injection ──────────────────────────────────────────
			ctx := ctxutil.WithAuthUser(request.Context(), claims)
			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// RequireAuth blocks requests that are not authenticated.
//
// Must be registered in the router AFTER [Authenticate].
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if ctxutil.GetAuthUser(request.Context()) == nil {
			respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
			return
		}
		next.ServeHTTP(writer, request)
	})
}
