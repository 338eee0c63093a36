// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"

	"golang.org/x/oauth2"
)

// maxProfileBytes caps the userinfo body read from a provider.
const maxProfileBytes = 1 << 20

// Provider exchanges an authorization code for an identity.
type Provider interface {
	// Name returns the provider identifier used in routes and links.
	Name() string

	// Exchange redeems code (with its PKCE verifier, when present) and
	// returns the normalized identity. Codes are single-use; no retry.
	Exchange(ctx context.Context, code, codeVerifier string) (*ExternalIdentity, error)
}

// ProviderConfig configures an OAuth provider.
//
// Endpoint and UserInfoURL default to the provider's public endpoints and
// exist so tests can point them at a local server.
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	Endpoint    oauth2.Endpoint
	UserInfoURL string
	HTTPClient  *http.Client
}

// profileParser decodes a userinfo body for one provider.
type profileParser func(body []byte) (*ExternalIdentity, error)

// OAuthProvider is the [Provider] implementation shared by every OAuth2
// provider. Only the endpoints and the profile parser differ.
type OAuthProvider struct {
	name        string
	config      *oauth2.Config
	userInfoURL string
	httpClient  *http.Client
	parse       profileParser
}

func newOAuthProvider(name string, cfg ProviderConfig, scopes []string, parse profileParser) *OAuthProvider {
	return &OAuthProvider{
		name: name,
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     cfg.Endpoint,
			Scopes:       scopes,
		},
		userInfoURL: cfg.UserInfoURL,
		httpClient:  cfg.HTTPClient,
		parse:       parse,
	}
}

// Name implements [Provider].
func (provider *OAuthProvider) Name() string {
	return provider.name
}

// Exchange implements [Provider].
func (provider *OAuthProvider) Exchange(ctx context.Context, code, codeVerifier string) (*ExternalIdentity, error) {
	if provider.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, provider.httpClient)
	}

	var options []oauth2.AuthCodeOption
	if codeVerifier != "" {
		options = append(options, oauth2.VerifierOption(codeVerifier))
	}

	tokenClient, tracker := provider.trackedClient()
	token, err := provider.config.Exchange(context.WithValue(ctx, oauth2.HTTPClient, tokenClient), code, options...)
	if err != nil {
		return nil, provider.classifyToken(ctx, err, tracker.answered.Load())
	}

	if token.AccessToken == "" {
		return nil, newExchangeError(provider.name, CauseMalformed, errors.New("empty access token"))
	}

	body, err := provider.fetchProfile(ctx, token)
	if err != nil {
		return nil, err
	}

	external, err := provider.parse(body)
	if err != nil {
		return nil, newExchangeError(provider.name, CauseMalformed, err)
	}

	if external.ExternalUserID == "" {
		return nil, newExchangeError(provider.name, CauseMalformed, errors.New("profile has no subject"))
	}
	if external.Email == "" {
		return nil, newExchangeError(provider.name, CauseMalformed, errors.New("profile has no email"))
	}

	external.Provider = provider.name
	external.ProviderAccessToken = token.AccessToken
	external.ProviderRefreshToken = token.RefreshToken

	return external, nil
}

func (provider *OAuthProvider) fetchProfile(ctx context.Context, token *oauth2.Token) ([]byte, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, provider.userInfoURL, nil)
	if err != nil {
		return nil, newExchangeError(provider.name, CauseMalformed, err)
	}

	client := provider.config.Client(ctx, token)
	response, err := client.Do(request)
	if err != nil {
		return nil, provider.classify(err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(io.LimitReader(response.Body, maxProfileBytes))
	if err != nil {
		return nil, provider.classify(err)
	}

	switch {
	case response.StatusCode >= http.StatusInternalServerError:
		return nil, newExchangeError(provider.name, CauseUnavailable,
			fmt.Errorf("userinfo status %d", response.StatusCode))
	case response.StatusCode == http.StatusUnauthorized, response.StatusCode == http.StatusForbidden:
		return nil, newExchangeError(provider.name, CauseRejected,
			fmt.Errorf("userinfo status %d", response.StatusCode))
	case response.StatusCode != http.StatusOK:
		return nil, newExchangeError(provider.name, CauseMalformed,
			fmt.Errorf("userinfo status %d", response.StatusCode))
	}

	return body, nil
}

// # Token endpoint

// answerTracker records whether the token endpoint answered with a 2xx status.
type answerTracker struct {
	base     http.RoundTripper
	answered atomic.Bool
}

func (tracker *answerTracker) RoundTrip(request *http.Request) (*http.Response, error) {
	response, err := tracker.base.RoundTrip(request)
	if err == nil && response.StatusCode >= http.StatusOK && response.StatusCode < http.StatusMultipleChoices {
		tracker.answered.Store(true)
	}
	return response, err
}

// trackedClient returns a client for one token request that reports whether
// the endpoint answered successfully.
func (provider *OAuthProvider) trackedClient() (*http.Client, *answerTracker) {
	base := http.DefaultClient
	if provider.httpClient != nil {
		base = provider.httpClient
	}

	transport := base.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	tracker := &answerTracker{base: transport}
	return &http.Client{
		Transport:     tracker,
		Timeout:       base.Timeout,
		CheckRedirect: base.CheckRedirect,
		Jar:           base.Jar,
	}, tracker
}

// classifyToken maps a failed code exchange onto a [Cause].
//
// oauth2 returns a [*oauth2.RetrieveError] for every non-2xx answer. Any other
// failure after a 2xx answer means the body could not be turned into a token.
func (provider *OAuthProvider) classifyToken(ctx context.Context, err error, answered bool) *ExchangeError {
	var retrieveError *oauth2.RetrieveError
	if errors.As(err, &retrieveError) || !answered || ctx.Err() != nil {
		return provider.classify(err)
	}
	return newExchangeError(provider.name, CauseMalformed, err)
}

// classify maps transport and endpoint failures onto a [Cause].
func (provider *OAuthProvider) classify(err error) *ExchangeError {
	var retrieveError *oauth2.RetrieveError
	if errors.As(err, &retrieveError) {
		if retrieveError.Response != nil && retrieveError.Response.StatusCode >= http.StatusInternalServerError {
			return newExchangeError(provider.name, CauseUnavailable, err)
		}
		return newExchangeError(provider.name, CauseRejected, err)
	}

	// Transport failures, timeouts and cancellation.
	return newExchangeError(provider.name, CauseUnavailable, err)
}

// # Profile helpers

func decodeProfile(body []byte, target any) error {
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("decode profile: %w", err)
	}
	return nil
}
