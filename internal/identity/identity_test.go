// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package identity_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/taibuivan/authcore/internal/identity"
	"github.com/taibuivan/authcore/internal/platform/apperr"
)

// fakeProvider serves a token endpoint and a userinfo endpoint.
type fakeProvider struct {
	tokenStatus    int
	tokenBody      string
	profileStatus  int
	profile        string
	delay          time.Duration
	gotVerifier    string
	gotBearer      string
	tokenResponses atomic.Int32
}

func (fake *fakeProvider) server(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(writer http.ResponseWriter, request *http.Request) {
		fake.tokenResponses.Add(1)
		_ = request.ParseForm()
		fake.gotVerifier = request.PostForm.Get("code_verifier")

		if fake.delay > 0 {
			select {
			case <-time.After(fake.delay):
			case <-request.Context().Done():
				return
			}
		}

		if fake.tokenStatus != 0 && fake.tokenStatus != http.StatusOK {
			writer.Header().Set("Content-Type", "application/json")
			writer.WriteHeader(fake.tokenStatus)
			_, _ = io.WriteString(writer, `{"error":"invalid_grant"}`)
			return
		}

		writer.Header().Set("Content-Type", "application/json")
		if fake.tokenBody != "" {
			_, _ = io.WriteString(writer, fake.tokenBody)
			return
		}
		_ = json.NewEncoder(writer).Encode(map[string]any{
			"access_token":  "provider-access",
			"refresh_token": "provider-refresh",
			"token_type":    "Bearer",
			"expires_in":    3600,
		})
	})
	mux.HandleFunc("/userinfo", func(writer http.ResponseWriter, request *http.Request) {
		fake.gotBearer = request.Header.Get("Authorization")
		if fake.profileStatus != 0 {
			writer.WriteHeader(fake.profileStatus)
			return
		}
		writer.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(writer, fake.profile)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func providerConfig(server *httptest.Server) identity.ProviderConfig {
	return identity.ProviderConfig{
		ClientID:     "client",
		ClientSecret: "secret",
		RedirectURL:  "https://app.example.com/callback",
		Endpoint: oauth2.Endpoint{
			AuthURL:   server.URL + "/auth",
			TokenURL:  server.URL + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
		UserInfoURL: server.URL + "/userinfo",
	}
}

func newExchanger(timeout time.Duration, providers ...identity.Provider) *identity.Exchanger {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return identity.NewExchanger(identity.NewRegistry(providers...), timeout, nil, logger)
}

func TestExchange_Google(t *testing.T) {
	fake := &fakeProvider{profile: `{
		"sub": "g-123",
		"email": "Alice@Example.com",
		"email_verified": true,
		"name": "Alice",
		"picture": "https://cdn.example.com/a.png"
	}`}
	server := fake.server(t)
	exchanger := newExchanger(time.Second, identity.NewGoogle(providerConfig(server)))

	external, err := exchanger.Exchange(context.Background(), "google", "code-1", "verifier-1")
	require.NoError(t, err)

	assert.Equal(t, "g-123", external.ExternalUserID)
	assert.Equal(t, "Alice@Example.com", external.Email)
	assert.True(t, external.EmailVerified)
	require.NotNil(t, external.DisplayName)
	assert.Equal(t, "Alice", *external.DisplayName)
	require.NotNil(t, external.AvatarURL)
	assert.Equal(t, "https://cdn.example.com/a.png", *external.AvatarURL)
	assert.Equal(t, "google", external.Provider)
	assert.Equal(t, "provider-access", external.ProviderAccessToken)
	assert.Equal(t, "provider-refresh", external.ProviderRefreshToken)

	assert.Equal(t, "verifier-1", fake.gotVerifier)
	assert.Equal(t, "Bearer provider-access", fake.gotBearer)
}

func TestExchange_ProfileFallbacks(t *testing.T) {
	fake := &fakeProvider{profile: `{
		"sub": "g-9",
		"email": "bob@example.com",
		"full_name": "Bob Builder",
		"avatar_url": "https://cdn.example.com/b.png"
	}`}
	server := fake.server(t)
	exchanger := newExchanger(time.Second, identity.NewGoogle(providerConfig(server)))

	external, err := exchanger.Exchange(context.Background(), "google", "code", "")
	require.NoError(t, err)

	require.NotNil(t, external.DisplayName)
	assert.Equal(t, "Bob Builder", *external.DisplayName)
	require.NotNil(t, external.AvatarURL)
	assert.Equal(t, "https://cdn.example.com/b.png", *external.AvatarURL)
	assert.False(t, external.EmailVerified)
	assert.Empty(t, fake.gotVerifier, "no verifier is sent without PKCE")
}

func TestExchange_ProfileWithoutOptionalFields(t *testing.T) {
	fake := &fakeProvider{profile: `{"sub": "g-1", "email": "c@example.com", "name": "  "}`}
	server := fake.server(t)
	exchanger := newExchanger(time.Second, identity.NewGoogle(providerConfig(server)))

	external, err := exchanger.Exchange(context.Background(), "google", "code", "")
	require.NoError(t, err)
	assert.Nil(t, external.DisplayName)
	assert.Nil(t, external.AvatarURL)
}

func TestExchange_Facebook(t *testing.T) {
	fake := &fakeProvider{profile: `{
		"id": "fb-77",
		"email": "alice@example.com",
		"name": "Alice F",
		"picture": {"data": {"url": "https://fb.example.com/p.jpg"}}
	}`}
	server := fake.server(t)
	exchanger := newExchanger(time.Second, identity.NewFacebook(providerConfig(server)))

	external, err := exchanger.Exchange(context.Background(), "facebook", "code", "verifier")
	require.NoError(t, err)

	assert.Equal(t, "fb-77", external.ExternalUserID)
	assert.Equal(t, "facebook", external.Provider)
	assert.True(t, external.EmailVerified)
	require.NotNil(t, external.AvatarURL)
	assert.Equal(t, "https://fb.example.com/p.jpg", *external.AvatarURL)
}

func TestExchange_Failures(t *testing.T) {
	tests := []struct {
		name       string
		fake       *fakeProvider
		wantCause  identity.Cause
		wantCode   string
		wantStatus int
	}{
		{
			name:       "token endpoint rejects code",
			fake:       &fakeProvider{tokenStatus: http.StatusBadRequest},
			wantCause:  identity.CauseRejected,
			wantCode:   apperr.CodeOAuthRejected,
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "token endpoint down",
			fake:       &fakeProvider{tokenStatus: http.StatusServiceUnavailable},
			wantCause:  identity.CauseUnavailable,
			wantCode:   apperr.CodeOAuthUnavailable,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "token response not json",
			fake:       &fakeProvider{tokenBody: `<html>gateway</html>`},
			wantCause:  identity.CauseMalformed,
			wantCode:   apperr.CodeOAuthMalformed,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "token response without access token",
			fake:       &fakeProvider{tokenBody: `{"token_type":"Bearer","expires_in":3600}`},
			wantCause:  identity.CauseMalformed,
			wantCode:   apperr.CodeOAuthMalformed,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "userinfo rejects token",
			fake:       &fakeProvider{profileStatus: http.StatusUnauthorized},
			wantCause:  identity.CauseRejected,
			wantCode:   apperr.CodeOAuthRejected,
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "userinfo down",
			fake:       &fakeProvider{profileStatus: http.StatusBadGateway},
			wantCause:  identity.CauseUnavailable,
			wantCode:   apperr.CodeOAuthUnavailable,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "profile missing email",
			fake:       &fakeProvider{profile: `{"sub": "g-1"}`},
			wantCause:  identity.CauseMalformed,
			wantCode:   apperr.CodeOAuthMalformed,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "profile missing subject",
			fake:       &fakeProvider{profile: `{"email": "a@example.com"}`},
			wantCause:  identity.CauseMalformed,
			wantCode:   apperr.CodeOAuthMalformed,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "profile not json",
			fake:       &fakeProvider{profile: `<html>`},
			wantCause:  identity.CauseMalformed,
			wantCode:   apperr.CodeOAuthMalformed,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := tt.fake.server(t)
			exchanger := newExchanger(time.Second, identity.NewGoogle(providerConfig(server)))

			external, err := exchanger.Exchange(context.Background(), "google", "code", "verifier")
			require.Error(t, err)
			assert.Nil(t, external)

			cause, ok := identity.CauseOf(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantCause, cause)

			appError := apperr.As(err)
			require.NotNil(t, appError)
			assert.Equal(t, tt.wantCode, appError.Code)
			assert.Equal(t, tt.wantStatus, appError.HTTPStatus)
		})
	}
}

func TestExchange_Timeout(t *testing.T) {
	fake := &fakeProvider{delay: 2 * time.Second, profile: `{}`}
	server := fake.server(t)
	exchanger := newExchanger(50*time.Millisecond, identity.NewGoogle(providerConfig(server)))

	started := time.Now()
	_, err := exchanger.Exchange(context.Background(), "google", "code", "verifier")
	require.Error(t, err)

	assert.Less(t, time.Since(started), time.Second)
	cause, ok := identity.CauseOf(err)
	require.True(t, ok)
	assert.Equal(t, identity.CauseUnavailable, cause)
	assert.Equal(t, int32(1), fake.tokenResponses.Load(), "codes are single-use and never retried")
}

func TestExchange_UnknownProvider(t *testing.T) {
	exchanger := newExchanger(time.Second)

	_, err := exchanger.Exchange(context.Background(), "myspace", "code", "")
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.CodeUnsupportedProvider))
	assert.Equal(t, http.StatusBadRequest, apperr.As(err).HTTPStatus)

	_, ok := identity.CauseOf(err)
	assert.False(t, ok)
}

func TestExchangeError(t *testing.T) {
	inner := errors.New("boom")
	exchangeError := &identity.ExchangeError{Provider: "google", Cause: identity.CauseMalformed, Err: inner}

	assert.ErrorIs(t, exchangeError, inner)
	assert.Contains(t, exchangeError.Error(), "google exchange malformed")

	appError := exchangeError.AppError()
	var unwrapped *identity.ExchangeError
	require.ErrorAs(t, appError, &unwrapped)
	assert.Same(t, exchangeError, unwrapped)
}

func TestRegistry(t *testing.T) {
	registry := identity.NewRegistry(
		identity.NewGoogle(identity.ProviderConfig{}),
		identity.NewFacebook(identity.ProviderConfig{}),
	)

	assert.Equal(t, []string{"facebook", "google"}, registry.Names())

	provider, err := registry.Get("google")
	require.NoError(t, err)
	assert.Equal(t, "google", provider.Name())
}
