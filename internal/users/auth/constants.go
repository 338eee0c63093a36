// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

// # Request Fields

const (
	FieldCode         = "code"
	FieldCodeVerifier = "codeVerifier"
	FieldPlatform     = "platform"
	FieldProvider     = "provider"
)

// # Response Fields

const (
	// TokenTypeBearer is the scheme clients send the access token with.
	TokenTypeBearer = "Bearer"

	// maxCodeLength bounds the authorization code accepted on a callback.
	maxCodeLength = 2048

	// maxVerifierLength is the RFC 7636 upper bound for a PKCE verifier.
	maxVerifierLength = 128

	maxPlatformLength = 64
)
