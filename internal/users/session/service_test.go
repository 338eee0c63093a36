// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/authcore/internal/platform/apperr"
	"github.com/taibuivan/authcore/internal/platform/metrics"
	"github.com/taibuivan/authcore/internal/platform/sec"
	"github.com/taibuivan/authcore/internal/testkit/authfakes"
	"github.com/taibuivan/authcore/internal/users/session"
)

const horizon = 30 * 24 * time.Hour

type fixture struct {
	clock   *authfakes.Clock
	store   *authfakes.SessionStore
	cache   *authfakes.SessionCache
	metrics *authfakes.Metrics
	service *session.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	clock := authfakes.NewClock(time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC))
	fx := &fixture{
		clock:   clock,
		store:   authfakes.NewSessionStore(),
		cache:   authfakes.NewSessionCache(clock.Now),
		metrics: authfakes.NewMetrics(),
	}
	fx.service = session.NewService(fx.store, fx.cache, session.Config{
		Horizon:     horizon,
		NegativeTTL: time.Minute,
		Clock:       clock.Now,
	}, fx.metrics, discardLogger())
	return fx
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (fx *fixture) create(t *testing.T, token string) *session.Session {
	t.Helper()
	created, err := fx.service.Create(context.Background(), session.NewSession{
		UserID: "user-1",
		Token:  token,
		Device: session.DeviceInfo{UserAgent: "test-agent", IP: "192.0.2.1", Platform: "web"},
	})
	require.NoError(t, err)
	return created
}

func TestSession_State(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	active := &session.Session{ExpiresAt: now.Add(time.Second)}
	atExpiry := &session.Session{ExpiresAt: now}
	revoked := &session.Session{ExpiresAt: now.Add(time.Hour), IsRevoked: true}
	revokedAndExpired := &session.Session{ExpiresAt: now.Add(-time.Hour), IsRevoked: true}

	assert.Equal(t, session.StateActive, active.State(now))
	assert.Equal(t, session.StateExpired, atExpiry.State(now))
	assert.Equal(t, session.StateRevoked, revoked.State(now))
	assert.Equal(t, session.StateRevoked, revokedAndExpired.State(now))
}

func TestCreate(t *testing.T) {
	fx := newFixture(t)
	created := fx.create(t, "token-a")

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, sec.HashToken("token-a"), created.TokenHash)
	assert.Equal(t, fx.clock.Now().Add(horizon), created.ExpiresAt)
	assert.Equal(t, "web", created.Device.Platform)

	verdict, ttl, ok := fx.cache.Entry(created.TokenHash)
	require.True(t, ok, "login primes the cache")
	assert.True(t, verdict.Valid)
	assert.Equal(t, created.ID, *verdict.SessionID)
	assert.Equal(t, horizon, ttl)
}

func TestCreate_KeepsCallerID(t *testing.T) {
	fx := newFixture(t)
	created, err := fx.service.Create(context.Background(), session.NewSession{
		ID: "0190a5b2-7c3e-7d4f-8a1b-2c3d4e5f6a7b", UserID: "user-1", Token: "token-a",
	})
	require.NoError(t, err)
	assert.Equal(t, "0190a5b2-7c3e-7d4f-8a1b-2c3d4e5f6a7b", created.ID)
}

func TestCreate_PersistenceFailure(t *testing.T) {
	fx := newFixture(t)
	fx.store.Fail("create", apperr.Persistence(errors.New("connection refused")))

	_, err := fx.service.Create(context.Background(), session.NewSession{UserID: "user-1", Token: "token-a"})
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.CodePersistence))

	_, _, cached := fx.cache.Entry(sec.HashToken("token-a"))
	assert.False(t, cached, "nothing is cached for a session that was not created")
}

func TestCreate_CacheFailureDoesNotBlockLogin(t *testing.T) {
	fx := newFixture(t)
	fx.cache.Fail("put", errors.New("redis down"))

	created := fx.create(t, "token-a")
	assert.NotEmpty(t, created.ID)
	assert.Len(t, fx.store.Sessions(), 1)
	assert.Equal(t, 1, fx.metrics.Count("cache_error", "put"))
}

func TestValidate_CacheHitSkipsStorage(t *testing.T) {
	fx := newFixture(t)
	fx.create(t, "token-a")

	for i := 0; i < 3; i++ {
		assert.True(t, fx.service.Validate(context.Background(), "token-a"))
	}

	assert.Zero(t, fx.store.Reads())
	assert.Equal(t, 3, fx.metrics.Count("validation", metrics.SourceCache, metrics.OutcomeValid))
}

func TestValidate_ExpiryBoundary(t *testing.T) {
	tests := []struct {
		name    string
		elapsed time.Duration
		flush   bool
		want    bool
	}{
		{"cache path one second before horizon", horizon - time.Second, false, true},
		{"cache path one second after horizon", horizon + time.Second, false, false},
		{"storage path one second before horizon", horizon - time.Second, true, true},
		{"storage path at horizon", horizon, true, false},
		{"storage path one second after horizon", horizon + time.Second, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture(t)
			fx.create(t, "token-a")

			fx.clock.Advance(tt.elapsed)
			if tt.flush {
				fx.cache.Flush()
			}

			assert.Equal(t, tt.want, fx.service.Validate(context.Background(), "token-a"))
		})
	}
}

func TestValidate_StalePositiveVerdictIsRejected(t *testing.T) {
	fx := newFixture(t)
	created := fx.create(t, "token-a")

	// A verdict whose embedded expiry passed while the key outlived it.
	expired := created.ExpiresAt.Add(-time.Minute)
	require.NoError(t, fx.cache.Put(context.Background(), created.TokenHash, session.Verdict{
		Valid: true, SessionID: &created.ID, ExpiresAt: &expired,
	}, horizon))

	fx.clock.Advance(horizon - 30*time.Second)
	assert.False(t, fx.service.Validate(context.Background(), "token-a"))
}

func TestValidate_MissPopulatesPositiveWithinLifetime(t *testing.T) {
	fx := newFixture(t)
	created := fx.create(t, "token-a")

	fx.clock.Advance(10 * 24 * time.Hour)
	fx.cache.Flush()

	require.True(t, fx.service.Validate(context.Background(), "token-a"))
	assert.Equal(t, 1, fx.store.Reads())

	verdict, ttl, ok := fx.cache.Entry(created.TokenHash)
	require.True(t, ok)
	assert.True(t, verdict.Valid)
	remaining := created.ExpiresAt.Sub(fx.clock.Now())
	assert.LessOrEqual(t, ttl, remaining)
	assert.Equal(t, remaining, ttl)

	assert.True(t, fx.service.Validate(context.Background(), "token-a"))
	assert.Equal(t, 1, fx.store.Reads(), "second call is served from cache")
}

func TestValidate_UnknownTokenIsNegativelyCached(t *testing.T) {
	fx := newFixture(t)

	assert.False(t, fx.service.Validate(context.Background(), "forged"))
	assert.False(t, fx.service.Validate(context.Background(), "forged"))
	assert.Equal(t, 1, fx.store.Reads())

	verdict, ttl, ok := fx.cache.Entry(sec.HashToken("forged"))
	require.True(t, ok)
	assert.False(t, verdict.Valid)
	assert.Nil(t, verdict.SessionID)
	assert.Equal(t, time.Minute, ttl)

	fx.clock.Advance(time.Minute)
	assert.False(t, fx.service.Validate(context.Background(), "forged"))
	assert.Equal(t, 2, fx.store.Reads(), "negative entry expires after its TTL")
}

func TestValidate_StorageErrorFailsClosed(t *testing.T) {
	fx := newFixture(t)
	created := fx.create(t, "token-a")
	fx.cache.Flush()
	fx.store.Fail("find_by_hash", apperr.Persistence(errors.New("timeout")))

	assert.False(t, fx.service.Validate(context.Background(), "token-a"))

	_, _, cached := fx.cache.Entry(created.TokenHash)
	assert.False(t, cached, "errors are not cached")
	assert.Equal(t, 1, fx.metrics.Count("validation", metrics.SourceStorage, metrics.OutcomeError))
}

func TestValidate_CacheReadErrorFallsBackToStorage(t *testing.T) {
	fx := newFixture(t)
	fx.create(t, "token-a")
	fx.cache.Fail("get", errors.New("redis down"))

	assert.True(t, fx.service.Validate(context.Background(), "token-a"))
	assert.Equal(t, 1, fx.store.Reads())
	assert.Equal(t, 1, fx.metrics.Count("cache_error", "get"))
}

func TestValidate_CacheAndStorageDownFailsClosed(t *testing.T) {
	fx := newFixture(t)
	fx.create(t, "token-a")
	fx.cache.Fail("get", errors.New("redis down"))
	fx.store.Fail("find_by_hash", apperr.Persistence(errors.New("db down")))

	assert.False(t, fx.service.Validate(context.Background(), "token-a"))
}

func TestRevoke_InvalidatesPositiveCacheEntry(t *testing.T) {
	fx := newFixture(t)
	created := fx.create(t, "token-a")
	require.True(t, fx.service.Validate(context.Background(), "token-a"))

	require.NoError(t, fx.service.Revoke(context.Background(), created.ID))

	assert.False(t, fx.service.Validate(context.Background(), "token-a"))
	assert.Zero(t, fx.store.Reads(), "the tombstone answers without storage")

	verdict, ttl, ok := fx.cache.Entry(created.TokenHash)
	require.True(t, ok)
	assert.False(t, verdict.Valid)
	assert.Equal(t, created.ExpiresAt.Sub(fx.clock.Now()), ttl, "tombstone outlives the session")
}

func TestRevoke_TombstoneBlocksLateRepopulation(t *testing.T) {
	fx := newFixture(t)
	created := fx.create(t, "token-a")
	fx.cache.Flush()

	require.NoError(t, fx.service.Revoke(context.Background(), created.ID))

	// A validation that read the store before the revoke now tries to cache
	// its positive verdict.
	expiresAt := created.ExpiresAt
	written, err := fx.cache.PutIfAbsent(context.Background(), created.TokenHash, session.Verdict{
		Valid: true, SessionID: &created.ID, ExpiresAt: &expiresAt,
	}, time.Hour)
	require.NoError(t, err)
	assert.False(t, written)

	assert.False(t, fx.service.Validate(context.Background(), "token-a"))
}

func TestRevoke_StorageIsAuthoritativeAfterCacheLoss(t *testing.T) {
	fx := newFixture(t)
	created := fx.create(t, "token-a")
	require.NoError(t, fx.service.Revoke(context.Background(), created.ID))

	fx.cache.Flush()
	assert.False(t, fx.service.Validate(context.Background(), "token-a"))

	stored, err := fx.service.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsRevoked)
	require.NotNil(t, stored.RevokedAt)
	assert.Equal(t, session.StateRevoked, stored.State(fx.clock.Now()))
}

func TestRevoke_IsIdempotent(t *testing.T) {
	fx := newFixture(t)
	created := fx.create(t, "token-a")

	require.NoError(t, fx.service.Revoke(context.Background(), created.ID))
	firstRevokedAt := *fx.store.Sessions()[0].RevokedAt

	fx.clock.Advance(time.Hour)
	require.NoError(t, fx.service.Revoke(context.Background(), created.ID))
	assert.Equal(t, firstRevokedAt, *fx.store.Sessions()[0].RevokedAt)
}

func TestRevoke_UnknownSession(t *testing.T) {
	fx := newFixture(t)

	err := fx.service.Revoke(context.Background(), "missing")
	assert.True(t, apperr.HasCode(err, apperr.CodeNotFound))
}

func TestRevoke_CacheFailureIsReported(t *testing.T) {
	fx := newFixture(t)
	created := fx.create(t, "token-a")
	fx.cache.Fail("put", errors.New("redis down"))

	err := fx.service.Revoke(context.Background(), created.ID)
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.CodeUnavailable))
	assert.True(t, fx.store.Sessions()[0].IsRevoked, "storage revocation stands")
}

func TestRevokeAllForUser(t *testing.T) {
	fx := newFixture(t)
	fx.create(t, "token-a")
	fx.create(t, "token-b")
	other, err := fx.service.Create(context.Background(), session.NewSession{UserID: "user-2", Token: "token-c"})
	require.NoError(t, err)

	count, err := fx.service.RevokeAllForUser(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	assert.False(t, fx.service.Validate(context.Background(), "token-a"))
	assert.False(t, fx.service.Validate(context.Background(), "token-b"))
	assert.True(t, fx.service.Validate(context.Background(), "token-c"))

	stillActive, err := fx.service.Get(context.Background(), other.ID)
	require.NoError(t, err)
	assert.False(t, stillActive.IsRevoked)

	count, err = fx.service.RevokeAllForUser(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestNewService_Defaults(t *testing.T) {
	service := session.NewService(authfakes.NewSessionStore(), authfakes.NewSessionCache(time.Now),
		session.Config{}, nil, discardLogger())
	assert.Equal(t, session.DefaultHorizon, service.Horizon())
}
