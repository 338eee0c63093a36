// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/authcore/internal/platform/middleware"
	requestutil "github.com/taibuivan/authcore/internal/platform/request"
	"github.com/taibuivan/authcore/internal/platform/respond"
	"github.com/taibuivan/authcore/internal/platform/validate"
	"github.com/taibuivan/authcore/internal/users/account"
)

// # Definitions & Constructors

// Handler implements the sign-in and sign-out HTTP endpoints.
type Handler struct {
	authService *Service
	providers   func() []string
	limiter     *middleware.RateLimiter
}

// NewHandler constructs a new [Handler]. The limiter guards the callback
// endpoint; providers lists the enabled provider names.
func NewHandler(service *Service, providers func() []string, limiter *middleware.RateLimiter) *Handler {
	return &Handler{authService: service, providers: providers, limiter: limiter}
}

// Routes returns a [chi.Router] configured with authentication routes.
//
// # Endpoints
//   - GET    /providers                 : Enabled OAuth providers.
//   - POST   /oauth/{provider}/callback : Exchanges a code for a session.
//   - POST   /logout                    : Revokes the current session.
//   - POST   /logout/all                : Revokes every session of the user.
//   - GET    /sessions/current          : The current session.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	// Public endpoints
	router.Get("/providers", handler.listProviders)
	router.With(handler.limiter.Handler).Post("/oauth/{provider}/callback", handler.callback)

	// Protected endpoints
	router.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(handler.authService), middleware.RequireAuth)
		r.Post("/logout", handler.logout)
		r.Post("/logout/all", handler.logoutAll)
		r.Get("/sessions/current", handler.currentSession)
	})

	return router
}

// # Request & Response Payloads

type callbackRequest struct {
	Code         string `json:"code"`
	CodeVerifier string `json:"codeVerifier"`
	Platform     string `json:"platform"`
}

type loginResponse struct {
	AccessToken  string        `json:"accessToken"`
	RefreshToken string        `json:"refreshToken"`
	TokenType    string        `json:"tokenType"`
	ExpiresAt    time.Time     `json:"expiresAt"`
	User         *account.User `json:"user"`
}

// # Handlers

/*
GET /auth/providers.

Response:
  - 200: []string: Enabled provider names
*/
func (handler *Handler) listProviders(writer http.ResponseWriter, request *http.Request) {
	respond.OK(writer, handler.providers())
}

/*
POST /auth/oauth/{provider}/callback.

Description: Completes an OAuth authorization code flow (PKCE verifier
optional) and opens a session.

Request:
  - Body: callbackRequest (Code, CodeVerifier, Platform)

Response:
  - 200: loginResponse
  - 400: VALIDATION_ERROR, UNSUPPORTED_PROVIDER, OAUTH_MALFORMED, OAUTH_UNAVAILABLE
  - 401: OAUTH_REJECTED
  - 409: CONFLICT: Identity linked to another account
  - 429: RATE_LIMITED
*/
func (handler *Handler) callback(writer http.ResponseWriter, request *http.Request) {
	var input callbackRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldCode, input.Code).
		MaxLen(FieldCode, input.Code, maxCodeLength).
		MaxLen(FieldCodeVerifier, input.CodeVerifier, maxVerifierLength).
		MaxLen(FieldPlatform, input.Platform, maxPlatformLength)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	result, err := handler.authService.LoginWithOAuth(request.Context(), LoginInput{
		Provider:     requestutil.Param(request, FieldProvider),
		Code:         input.Code,
		CodeVerifier: input.CodeVerifier,
		UserAgent:    request.UserAgent(),
		IPAddress:    requestutil.ClientIP(request),
		Platform:     input.Platform,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, loginResponse{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		TokenType:    TokenTypeBearer,
		ExpiresAt:    result.ExpiresAt,
		User:         result.User,
	})
}

/*
POST /auth/logout.

Response:
  - 204: No Content: Session revoked
  - 401: Not authenticated
*/
func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	claims, err := requestutil.RequiredClaims(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.Logout(request.Context(), claims, requestutil.ClientIP(request)); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

/*
POST /auth/logout/all.

Response:
  - 204: No Content: Every session of the user revoked
  - 401: Not authenticated
*/
func (handler *Handler) logoutAll(writer http.ResponseWriter, request *http.Request) {
	claims, err := requestutil.RequiredClaims(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if _, err := handler.authService.LogoutAll(request.Context(), claims, requestutil.ClientIP(request)); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

/*
GET /auth/sessions/current.

Response:
  - 200: session.Session
  - 401: Not authenticated
*/
func (handler *Handler) currentSession(writer http.ResponseWriter, request *http.Request) {
	claims, err := requestutil.RequiredClaims(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	current, err := handler.authService.CurrentSession(request.Context(), claims)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, current)
}
