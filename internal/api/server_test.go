// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/authcore/internal/api"
	"github.com/taibuivan/authcore/internal/platform/apperr"
	"github.com/taibuivan/authcore/internal/platform/config"
	"github.com/taibuivan/authcore/internal/platform/metrics"
	"github.com/taibuivan/authcore/internal/platform/middleware"
	"github.com/taibuivan/authcore/internal/platform/sec"
	"github.com/taibuivan/authcore/internal/users/account"
	"github.com/taibuivan/authcore/internal/users/auth"
)

type rejectAll struct{}

func (rejectAll) Authenticate(context.Context, string) (*sec.AuthClaims, error) {
	return nil, sec.ErrTokenInvalid
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newServer(t *testing.T, deps api.HealthDependencies) http.Handler {
	t.Helper()

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)
	collector.RecordLogin("google", metrics.OutcomeSuccess)

	liveness, readiness := api.NewHealthHandlers(deps, discardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	server := api.NewServer(ctx, &config.Config{ServerPort: "0", Environment: "test"}, discardLogger(), nil, api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Metrics:   metrics.Handler(registry),
		Auth: auth.NewHandler(new(auth.Service), func() []string {
			return []string{"google"}
		}, middleware.NewLoginRateLimiter()),
		Account: account.NewHandler(nil, rejectAll{}),
	})
	return server.Handler()
}

func get(handler http.Handler, path, bearer string) *httptest.ResponseRecorder {
	request := httptest.NewRequest(http.MethodGet, path, nil)
	if bearer != "" {
		request.Header.Set("Authorization", "Bearer "+bearer)
	}
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	return recorder
}

func TestHealth(t *testing.T) {
	recorder := get(newServer(t, api.HealthDependencies{}), "/health", "")

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `"status":"ok"`)
	assert.NotEmpty(t, recorder.Header().Get("X-Request-ID"))
}

func TestReady(t *testing.T) {
	healthy := func(context.Context) error { return nil }
	failing := func(context.Context) error { return errors.New("dial tcp: connection refused") }

	tests := []struct {
		name       string
		deps       api.HealthDependencies
		wantStatus int
		wantState  string
	}{
		{"all up", api.HealthDependencies{CheckDatabase: healthy, CheckCache: healthy}, http.StatusOK, "ready"},
		{"redis down", api.HealthDependencies{CheckDatabase: healthy, CheckCache: failing}, http.StatusServiceUnavailable, "degraded"},
		{"postgres down", api.HealthDependencies{CheckDatabase: failing, CheckCache: healthy}, http.StatusServiceUnavailable, "degraded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := get(newServer(t, tt.deps), "/ready", "")
			assert.Equal(t, tt.wantStatus, recorder.Code)

			var body struct {
				Data struct {
					Status string `json:"status"`
					Checks []struct {
						Name string `json:"name"`
						OK   bool   `json:"ok"`
					} `json:"checks"`
				} `json:"data"`
			}
			require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
			assert.Equal(t, tt.wantState, body.Data.Status)
			assert.Len(t, body.Data.Checks, 2)
		})
	}
}

func TestReady_ProbeHonorsDeadline(t *testing.T) {
	var hadDeadline bool
	probe := func(ctx context.Context) error {
		_, hadDeadline = ctx.Deadline()
		return nil
	}

	recorder := get(newServer(t, api.HealthDependencies{CheckDatabase: probe}), "/ready", "")
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.True(t, hadDeadline)
}

func TestMetricsEndpoint(t *testing.T) {
	recorder := get(newServer(t, api.HealthDependencies{}), "/metrics", "")

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "authcore_logins_total")
}

func TestAuthRoutesMounted(t *testing.T) {
	handler := newServer(t, api.HealthDependencies{})

	recorder := get(handler, "/auth/providers", "")
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `{"data":["google"]}`, recorder.Body.String())

	recorder = get(handler, "/auth/me", "")
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)

	recorder = get(handler, "/auth/me", "bogus")
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Contains(t, recorder.Body.String(), apperr.CodeTokenInvalid)
}
