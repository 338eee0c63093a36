// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package identity

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/taibuivan/authcore/internal/platform/metrics"
	platformotel "github.com/taibuivan/authcore/internal/platform/otel"
)

// DefaultExchangeTimeout bounds a single code exchange when none is configured.
const DefaultExchangeTimeout = 10 * time.Second

// Exchanger resolves a provider and runs its exchange under a deadline.
type Exchanger struct {
	registry *Registry
	timeout  time.Duration
	metrics  metrics.Recorder
	logger   *slog.Logger
}

// NewExchanger creates an Exchanger. A non-positive timeout falls back to
// [DefaultExchangeTimeout]; a nil recorder discards measurements.
func NewExchanger(registry *Registry, timeout time.Duration, recorder metrics.Recorder, logger *slog.Logger) *Exchanger {
	if timeout <= 0 {
		timeout = DefaultExchangeTimeout
	}
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &Exchanger{registry: registry, timeout: timeout, metrics: recorder, logger: logger}
}

/*
Exchange converts an authorization code into an [ExternalIdentity].

Parameters:
  - ctx: Request context; the exchange deadline is derived from it.
  - providerName: Registered provider name (e.g. "google").
  - code: Single-use authorization code.
  - codeVerifier: PKCE verifier, empty when the client did not use PKCE.

Returns:
  - *ExternalIdentity: The normalized identity
  - error: UNSUPPORTED_PROVIDER, or an OAUTH_* AppError wrapping [*ExchangeError]
*/
func (exchanger *Exchanger) Exchange(ctx context.Context, providerName, code, codeVerifier string) (*ExternalIdentity, error) {
	provider, err := exchanger.registry.Get(providerName)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, exchanger.timeout)
	defer cancel()

	ctx, span := platformotel.Tracer().Start(ctx, "identity.Exchange",
		trace.WithAttributes(attribute.String("oauth.provider", providerName)),
	)
	defer span.End()

	started := time.Now()
	external, err := provider.Exchange(ctx, code, codeVerifier)
	exchanger.metrics.RecordExchangeLatency(providerName, time.Since(started))

	if err != nil {
		var exchangeError *ExchangeError
		if !errors.As(err, &exchangeError) {
			exchangeError = newExchangeError(providerName, CauseUnavailable, err)
		}

		span.RecordError(exchangeError)
		span.SetStatus(codes.Error, string(exchangeError.Cause))

		exchanger.logger.WarnContext(ctx, "oauth_exchange_failed",
			slog.String("provider", providerName),
			slog.String("cause", string(exchangeError.Cause)),
			slog.Any("error", exchangeError.Err),
		)
		return nil, exchangeError.AppError()
	}

	// Accounts merge by email regardless of email_verified.
	exchanger.logger.InfoContext(ctx, "oauth_exchange_succeeded",
		slog.String("provider", providerName),
		slog.Bool("email_verified", external.EmailVerified),
	)

	return external, nil
}

// Providers lists the registered provider names.
func (exchanger *Exchanger) Providers() []string {
	return exchanger.registry.Names()
}
