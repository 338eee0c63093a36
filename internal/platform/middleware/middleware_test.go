// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/taibuivan/authcore/internal/platform/apperr"
	"github.com/taibuivan/authcore/internal/platform/ctxutil"
	"github.com/taibuivan/authcore/internal/platform/middleware"
	"github.com/taibuivan/authcore/internal/platform/sec"
)

type authenticatorFunc func(ctx context.Context, token string) (*sec.AuthClaims, error)

func (f authenticatorFunc) Authenticate(ctx context.Context, token string) (*sec.AuthClaims, error) {
	return f(ctx, token)
}

func decodeCode(t *testing.T, recorder *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	code, _ := body["code"].(string)
	return code
}

/*
TestAuthenticate covers anonymous, malformed, rejected and accepted bearer tokens.
*/
func TestAuthenticate(t *testing.T) {
	authenticator := authenticatorFunc(func(_ context.Context, token string) (*sec.AuthClaims, error) {
		switch token {
		case "good":
			return &sec.AuthClaims{UserID: "user-1", SessionID: "session-1", Type: sec.TokenAccess}, nil
		case "expired":
			return nil, sec.ErrTokenExpired
		default:
			return nil, sec.ErrTokenInvalid
		}
	})

	var seen *sec.AuthClaims
	handler := middleware.Authenticate(authenticator)(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		seen = ctxutil.GetAuthUser(request.Context())
		writer.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantCode   string
		wantUser   string
	}{
		{"anonymous", "", http.StatusOK, "", ""},
		{"malformed", "Token abc", http.StatusUnauthorized, apperr.CodeUnauthorized, ""},
		{"empty_bearer", "Bearer ", http.StatusUnauthorized, apperr.CodeUnauthorized, ""},
		{"expired", "Bearer expired", http.StatusUnauthorized, apperr.CodeTokenExpired, ""},
		{"invalid", "Bearer nope", http.StatusUnauthorized, apperr.CodeTokenInvalid, ""},
		{"valid", "bearer good", http.StatusOK, "", "user-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			request := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
			if tt.header != "" {
				request.Header.Set("Authorization", tt.header)
			}
			recorder := httptest.NewRecorder()

			handler.ServeHTTP(recorder, request)

			assert.Equal(t, tt.wantStatus, recorder.Code)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, decodeCode(t, recorder))
			}
			if tt.wantUser != "" {
				require.NotNil(t, seen)
				assert.Equal(t, tt.wantUser, seen.UserID)
			}
		})
	}
}

func TestRequireAuth(t *testing.T) {
	handler := middleware.RequireAuth(http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		writer.WriteHeader(http.StatusNoContent)
	}))

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/auth/logout", nil))
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)

	request := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	request = request.WithContext(ctxutil.WithAuthUser(request.Context(), &sec.AuthClaims{UserID: "user-1"}))
	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	assert.Equal(t, http.StatusNoContent, recorder.Code)
}

/*
TestRateLimiter_PerIP exhausts one client's bucket without affecting another.
*/
func TestRateLimiter_PerIP(t *testing.T) {
	limiter := middleware.NewRateLimiter(rate.Every(time.Minute), 2)
	handler := limiter.Handler(http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		writer.WriteHeader(http.StatusOK)
	}))

	call := func(ip string) *httptest.ResponseRecorder {
		request := httptest.NewRequest(http.MethodPost, "/auth/oauth/google/callback", nil)
		request.RemoteAddr = ip + ":40000"
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, request)
		return recorder
	}

	assert.Equal(t, http.StatusOK, call("198.51.100.1").Code)
	assert.Equal(t, http.StatusOK, call("198.51.100.1").Code)

	limited := call("198.51.100.1")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, "60", limited.Header().Get("Retry-After"))
	assert.Equal(t, apperr.CodeRateLimited, decodeCode(t, limited))

	assert.Equal(t, http.StatusOK, call("198.51.100.2").Code)
}

func TestLoginRateLimiter_TenPerMinute(t *testing.T) {
	limiter := middleware.NewLoginRateLimiter()

	for i := 0; i < 10; i++ {
		assert.True(t, limiter.Allow("192.0.2.10"), "attempt %d", i+1)
	}
	assert.False(t, limiter.Allow("192.0.2.10"))
}

func TestIPResolver_ClientIP(t *testing.T) {
	resolver, err := middleware.NewIPResolver("10.0.0.0/8, 192.0.2.1")
	require.NoError(t, err)

	tests := []struct {
		name      string
		peer      string
		realIP    string
		forwarded string
		want      string
	}{
		{"direct peer", "198.51.100.7:5555", "", "", "198.51.100.7"},
		{"untrusted peer spoofs real ip", "198.51.100.7:5555", "203.0.113.50", "", "198.51.100.7"},
		{"untrusted peer spoofs forwarded", "198.51.100.7:5555", "", "203.0.113.9", "198.51.100.7"},
		{"trusted proxy real ip", "192.0.2.1:5555", "203.0.113.50", "", "203.0.113.50"},
		{"trusted proxy forwarded", "10.1.2.3:5555", "", "203.0.113.9", "203.0.113.9"},
		{"spoofed left-most hop ignored", "10.1.2.3:5555", "", "1.2.3.4, 203.0.113.9, 10.0.0.2", "203.0.113.9"},
		{"only trusted hops", "10.1.2.3:5555", "", "10.0.0.2", "10.1.2.3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			request := httptest.NewRequest(http.MethodGet, "/", nil)
			request.RemoteAddr = tt.peer
			if tt.realIP != "" {
				request.Header.Set("X-Real-IP", tt.realIP)
			}
			if tt.forwarded != "" {
				request.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			assert.Equal(t, tt.want, resolver.ClientIP(request))
		})
	}
}

func TestIPResolver_TrustsNobodyByDefault(t *testing.T) {
	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request.RemoteAddr = "198.51.100.7:5555"
	request.Header.Set("X-Real-IP", "203.0.113.50")

	empty, err := middleware.NewIPResolver("")
	require.NoError(t, err)
	assert.Equal(t, "198.51.100.7", empty.ClientIP(request))

	var none *middleware.IPResolver
	assert.Equal(t, "198.51.100.7", none.ClientIP(request))

	_, err = middleware.NewIPResolver("10.0.0.0/33")
	assert.Error(t, err)
	_, err = middleware.NewIPResolver("proxy.internal")
	assert.Error(t, err)
}

/*
TestLoginRateLimiter_SpoofedHeaders keeps one bucket per peer however the
forwarding headers rotate.
*/
func TestLoginRateLimiter_SpoofedHeaders(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	limiter := middleware.NewLoginRateLimiter()
	handler := middleware.StructuredLogger(logger, nil)(limiter.Handler(http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		writer.WriteHeader(http.StatusOK)
	})))

	var last *httptest.ResponseRecorder
	for i := 0; i < 11; i++ {
		request := httptest.NewRequest(http.MethodPost, "/auth/oauth/google/callback", nil)
		request.RemoteAddr = "198.51.100.7:5555"
		request.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i+1))
		request.Header.Set("X-Real-IP", fmt.Sprintf("198.18.0.%d", i+1))
		last = httptest.NewRecorder()
		handler.ServeHTTP(last, request)
	}
	assert.Equal(t, http.StatusTooManyRequests, last.Code)
}

/*
TestStructuredLogger_InjectsContext checks the request logger and client IP reach handlers.
*/
func TestStructuredLogger_InjectsContext(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	var gotIP string
	var gotRequestID string
	resolver, err := middleware.NewIPResolver("192.0.2.0/24")
	require.NoError(t, err)

	handler := middleware.RequestID()(middleware.StructuredLogger(logger, resolver)(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		gotIP = ctxutil.GetClientIP(request.Context())
		gotRequestID = ctxutil.GetRequestID(request.Context())
		writer.WriteHeader(http.StatusOK)
	})))

	request := httptest.NewRequest(http.MethodGet, "/health", nil)
	request.Header.Set("X-Real-IP", "203.0.113.77")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	assert.Equal(t, "203.0.113.77", gotIP)
	assert.NotEmpty(t, gotRequestID)
	assert.Equal(t, gotRequestID, recorder.Header().Get("X-Request-ID"))
}

type devConfig bool

func (d devConfig) IsDevelopment() bool { return bool(d) }

func TestCORS(t *testing.T) {
	handler := middleware.CORS(devConfig(false), "https://app.example, https://admin.example")(
		http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) { writer.WriteHeader(http.StatusOK) }),
	)

	request := httptest.NewRequest(http.MethodOptions, "/auth/me", nil)
	request.Header.Set("Origin", "https://admin.example")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusNoContent, recorder.Code)
	assert.Equal(t, "https://admin.example", recorder.Header().Get("Access-Control-Allow-Origin"))

	request = httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	request.Header.Set("Origin", "https://evil.example")
	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Empty(t, recorder.Header().Get("Access-Control-Allow-Origin"))
}
