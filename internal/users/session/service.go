// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/taibuivan/authcore/internal/platform/apperr"
	"github.com/taibuivan/authcore/internal/platform/metrics"
	platformotel "github.com/taibuivan/authcore/internal/platform/otel"
	"github.com/taibuivan/authcore/internal/platform/sec"
	"github.com/taibuivan/authcore/pkg/uuid"
)

// Defaults applied by [NewService] for zero config fields.
const (
	DefaultHorizon     = sec.DefaultAccessTTL
	DefaultNegativeTTL = 60 * time.Second
)

// Config tunes the session service.
type Config struct {
	// Horizon is the session lifetime, matching the access token TTL.
	Horizon time.Duration

	// NegativeTTL bounds how long an invalid verdict is cached.
	NegativeTTL time.Duration

	// Clock overrides time.Now in tests.
	Clock func() time.Time
}

// Service owns session creation, validation and revocation.
type Service struct {
	store   Store
	cache   Cache
	config  Config
	metrics metrics.Recorder
	logger  *slog.Logger
}

// NewService constructs a new [Service]. A nil recorder discards metrics.
func NewService(store Store, cache Cache, config Config, recorder metrics.Recorder, logger *slog.Logger) *Service {
	if config.Horizon <= 0 {
		config.Horizon = DefaultHorizon
	}
	if config.NegativeTTL <= 0 {
		config.NegativeTTL = DefaultNegativeTTL
	}
	if config.Clock == nil {
		config.Clock = time.Now
	}
	if recorder == nil {
		recorder = metrics.Nop{}
	}

	return &Service{
		store:   store,
		cache:   cache,
		config:  config,
		metrics: recorder,
		logger:  logger,
	}
}

// Horizon returns the configured session lifetime.
func (service *Service) Horizon() time.Duration {
	return service.config.Horizon
}

// # Creation

/*
Create persists a session for token and primes the cache with a positive
verdict lasting the full horizon.

Description: A cache write failure is logged and swallowed so the cache can
never block a login.

Parameters:
  - context: context.Context
  - input: NewSession

Returns:
  - *Session: The persisted session
  - error: PERSISTENCE_ERROR (session not created)
*/
func (service *Service) Create(context context.Context, input NewSession) (*Session, error) {
	now := service.config.Clock()

	id := input.ID
	if id == "" {
		id = uuid.New()
	}

	session := &Session{
		ID:        id,
		UserID:    input.UserID,
		TokenHash: sec.HashToken(input.Token),
		Device:    input.Device,
		CreatedAt: now,
		ExpiresAt: now.Add(service.config.Horizon),
	}

	if err := service.store.Create(context, session); err != nil {
		return nil, fmt.Errorf("session_service_create_failed: %w", err)
	}

	err := service.cache.Put(context, session.TokenHash, positive(session), service.config.Horizon)
	if err != nil {
		service.cacheFailed(context, "put", err)
	}

	return session, nil
}

// # Validation

/*
Validate reports whether token belongs to an active session.

Description: The cache answers when it can. On a miss the store decides and
the verdict is written back: invalid outcomes for the negative TTL, active
sessions with SET NX for exactly their remaining lifetime so a concurrent
revocation tombstone is never overwritten. Any storage error yields false.

Parameters:
  - context: context.Context
  - token: string (Raw bearer token)

Returns:
  - bool: true only for an active session
*/
func (service *Service) Validate(context context.Context, token string) bool {
	context, span := platformotel.Tracer().Start(context, "session.Validate")
	defer span.End()

	now := service.config.Clock()
	tokenHash := sec.HashToken(token)

	verdict, err := service.cache.Get(context, tokenHash)
	if err != nil {
		service.cacheFailed(context, "get", err)
	} else if verdict != nil {
		valid := verdict.Usable(now)
		span.SetAttributes(attribute.String("session.source", metrics.SourceCache), attribute.Bool("session.valid", valid))
		service.metrics.RecordValidation(metrics.SourceCache, outcome(valid))
		return valid
	}

	span.SetAttributes(attribute.String("session.source", metrics.SourceStorage))

	session, err := service.store.FindByTokenHash(context, tokenHash)
	if err != nil {
		if apperr.HasCode(err, apperr.CodeNotFound) {
			service.putNegative(context, tokenHash, nil)
			service.metrics.RecordValidation(metrics.SourceStorage, metrics.OutcomeInvalid)
			return false
		}

		service.logger.ErrorContext(context, "session_validation_storage_failed", slog.Any("error", err))
		span.RecordError(err)
		service.metrics.RecordValidation(metrics.SourceStorage, metrics.OutcomeError)
		return false
	}

	if session.State(now) != StateActive {
		service.putNegative(context, tokenHash, &session.ID)
		service.metrics.RecordValidation(metrics.SourceStorage, metrics.OutcomeInvalid)
		return false
	}

	remaining := session.ExpiresAt.Sub(now)
	if _, err := service.cache.PutIfAbsent(context, tokenHash, positive(session), remaining); err != nil {
		service.cacheFailed(context, "put_if_absent", err)
	}

	service.metrics.RecordValidation(metrics.SourceStorage, metrics.OutcomeValid)
	return true
}

// # Revocation

/*
Revoke marks the session revoked and overwrites its cache entry with a
negative tombstone, so the next Validate observes the revocation without
waiting for a TTL.

Description: The tombstone lives at least as long as the session would have,
which keeps a late SET NX from an in-flight validation out. If the tombstone
cannot be written the storage revocation stands, but the call fails with
SERVICE_UNAVAILABLE because a stale positive verdict may still be served.
Revoking an already revoked session is a no-op that still rewrites the
tombstone.

Parameters:
  - context: context.Context
  - sessionID: string

Returns:
  - error: NOT_FOUND, PERSISTENCE_ERROR or SERVICE_UNAVAILABLE
*/
func (service *Service) Revoke(context context.Context, sessionID string) error {
	context, span := platformotel.Tracer().Start(context, "session.Revoke",
		trace.WithAttributes(attribute.String("session.id", sessionID)),
	)
	defer span.End()

	session, err := service.store.Revoke(context, sessionID, service.config.Clock())
	if err != nil {
		return fmt.Errorf("session_service_revoke_failed: %w", err)
	}

	if err := service.tombstone(context, session); err != nil {
		span.RecordError(err)
		return err
	}

	service.logger.InfoContext(context, "session_revoked",
		slog.String("session_id", session.ID),
		slog.String("user_id", session.UserID),
	)
	return nil
}

/*
RevokeAllForUser revokes every active session of a user.

Returns:
  - int: Number of sessions revoked by this call
  - error: PERSISTENCE_ERROR or SERVICE_UNAVAILABLE (first tombstone failure)
*/
func (service *Service) RevokeAllForUser(context context.Context, userID string) (int, error) {
	sessions, err := service.store.RevokeAllForUser(context, userID, service.config.Clock())
	if err != nil {
		return 0, fmt.Errorf("session_service_revoke_all_failed: %w", err)
	}

	var firstErr error
	for _, session := range sessions {
		if err := service.tombstone(context, session); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	service.logger.InfoContext(context, "sessions_revoked_for_user",
		slog.String("user_id", userID),
		slog.Int("count", len(sessions)),
	)
	return len(sessions), firstErr
}

// Get returns a session by id.
func (service *Service) Get(context context.Context, sessionID string) (*Session, error) {
	session, err := service.store.FindByID(context, sessionID)
	if err != nil {
		return nil, fmt.Errorf("session_service_get_failed: %w", err)
	}
	return session, nil
}

// # Cache helpers

func (service *Service) tombstone(context context.Context, session *Session) error {
	ttl := max(session.ExpiresAt.Sub(service.config.Clock()), service.config.NegativeTTL)

	err := service.cache.Put(context, session.TokenHash, Verdict{Valid: false, SessionID: &session.ID}, ttl)
	if err != nil {
		service.cacheFailed(context, "tombstone", err)
		return apperr.ServiceUnavailable("Session revoked but the validation cache could not be updated").
			WithCause(err)
	}
	return nil
}

func (service *Service) putNegative(context context.Context, tokenHash string, sessionID *string) {
	err := service.cache.Put(context, tokenHash, Verdict{Valid: false, SessionID: sessionID}, service.config.NegativeTTL)
	if err != nil {
		service.cacheFailed(context, "put_negative", err)
	}
}

func (service *Service) cacheFailed(context context.Context, operation string, err error) {
	service.metrics.RecordCacheError(operation)
	service.logger.WarnContext(context, "session_cache_failed",
		slog.String("operation", operation),
		slog.Any("error", err),
	)
}

func positive(session *Session) Verdict {
	id := session.ID
	expiresAt := session.ExpiresAt
	return Verdict{Valid: true, SessionID: &id, ExpiresAt: &expiresAt}
}

func outcome(valid bool) string {
	if valid {
		return metrics.OutcomeValid
	}
	return metrics.OutcomeInvalid
}
