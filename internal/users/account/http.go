// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/authcore/internal/platform/middleware"
	requestutil "github.com/taibuivan/authcore/internal/platform/request"
	"github.com/taibuivan/authcore/internal/platform/respond"
)

// Handler implements the HTTP layer for the authenticated user's account.
type Handler struct {
	accountService *Service
	authenticator  middleware.Authenticator
}

// NewHandler constructs a new account [Handler]. The authenticator checks the
// bearer token of every request.
func NewHandler(service *Service, authenticator middleware.Authenticator) *Handler {
	return &Handler{accountService: service, authenticator: authenticator}
}

// Routes returns the account endpoints, mounted at /auth/me.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()
	router.Use(middleware.Authenticate(handler.authenticator), middleware.RequireAuth)
	router.Get("/", handler.getMe)
	return router
}

/*
GET /auth/me.

Description: Returns the profile of the authenticated user.

Response:
  - 200: User
  - 401: UNAUTHORIZED / TOKEN_* / SESSION_INVALID
  - 404: NOT_FOUND: Account no longer exists
*/
func (handler *Handler) getMe(writer http.ResponseWriter, request *http.Request) {
	claims, err := requestutil.RequiredClaims(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.accountService.GetUser(request.Context(), claims.UserID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, user)
}
