// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package session is the authoritative registry of session validity with a
cache-aside validation accelerator in front of it.

# State Machine

	active ──(wall clock passes expires_at)──▶ expired   (derived, never written)
	active ──(Revoke)───────────────────────▶ revoked   (terminal)

Only an active session validates. PostgreSQL holds the truth; Redis holds
disposable verdicts keyed by the SHA-256 of the bearer token, each with a TTL
no longer than the session's remaining lifetime.
*/
package session

import (
	"time"
)

// # Domain Entities

// State is the derived lifecycle state of a session.
type State string

const (
	StateActive  State = "active"
	StateExpired State = "expired"
	StateRevoked State = "revoked"
)

// DeviceInfo is the client metadata captured at login.
type DeviceInfo struct {
	UserAgent string `json:"userAgent,omitempty"`
	IP        string `json:"ip,omitempty"`
	Platform  string `json:"platform,omitempty"`
}

// Session is one login. The bearer token itself is never stored, only its hash.
type Session struct {
	ID        string     `json:"id"`
	UserID    string     `json:"userId"`
	TokenHash string     `json:"-"`
	Device    DeviceInfo `json:"device"`
	CreatedAt time.Time  `json:"createdAt"`
	ExpiresAt time.Time  `json:"expiresAt"`
	IsRevoked bool       `json:"isRevoked"`
	RevokedAt *time.Time `json:"revokedAt,omitempty"`
}

// State reports the session state at now. Revocation wins over expiry and a
// session is expired from the instant expires_at is reached.
func (session *Session) State(now time.Time) State {
	switch {
	case session.IsRevoked:
		return StateRevoked
	case !now.Before(session.ExpiresAt):
		return StateExpired
	default:
		return StateActive
	}
}

// NewSession is the input to [Service.Create].
type NewSession struct {
	// ID is optional; a UUIDv7 is generated when empty. Callers that embed the
	// id in the token set it up front.
	ID     string
	UserID string
	Token  string
	Device DeviceInfo
}

// Verdict is a cached validation result.
type Verdict struct {
	Valid     bool       `json:"valid"`
	SessionID *string    `json:"sessionId"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// Usable reports whether the verdict grants access at now. A positive
// verdict whose session has since expired does not.
func (verdict *Verdict) Usable(now time.Time) bool {
	if !verdict.Valid {
		return false
	}
	return verdict.ExpiresAt == nil || now.Before(*verdict.ExpiresAt)
}
