// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package audit records security events without touching the request path.

Callers hand an [Event] to [Recorder.Record], which never blocks: events are
queued on a bounded channel and a single background worker encrypts the
client IP and writes them to a [Sink]. A full queue drops the event. Failures
surface only through logs and metrics.
*/
package audit

import (
	"context"
	"time"
)

// # Events

// Action is the kind of security event.
type Action string

const (
	ActionLogin                 Action = "login"
	ActionLogout                Action = "logout"
	ActionTokenValidationFailed Action = "token_validation_failed"
	ActionAccountDeleted        Action = "account_deleted"
)

// Result is the outcome of the audited action.
type Result string

const (
	ResultSuccess Result = "success"
	ResultFailure Result = "failure"
)

// Event is what callers record. IP is cleartext; it is encrypted before it
// reaches the sink.
type Event struct {
	Action     Action
	Result     Result
	ActorID    *string
	IP         string
	Error      string
	OccurredAt time.Time
}

// LoginSucceeded is a successful login by actorID.
func LoginSucceeded(actorID, ip string) Event {
	return Event{Action: ActionLogin, Result: ResultSuccess, ActorID: &actorID, IP: ip}
}

// LoginFailed is a failed login. The actor is usually unknown.
func LoginFailed(actorID *string, ip string, cause error) Event {
	return Event{Action: ActionLogin, Result: ResultFailure, ActorID: actorID, IP: ip, Error: errorText(cause)}
}

// LoggedOut is a successful logout by actorID.
func LoggedOut(actorID, ip string) Event {
	return Event{Action: ActionLogout, Result: ResultSuccess, ActorID: &actorID, IP: ip}
}

// TokenValidationFailed is a rejected bearer token.
func TokenValidationFailed(actorID *string, ip string, cause error) Event {
	return Event{Action: ActionTokenValidationFailed, Result: ResultFailure, ActorID: actorID, IP: ip, Error: errorText(cause)}
}

// AccountDeleted is an account removal by actorID.
func AccountDeleted(actorID, ip string) Event {
	return Event{Action: ActionAccountDeleted, Result: ResultSuccess, ActorID: &actorID, IP: ip}
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// # Persistence

// Entry is the persisted form of an [Event].
type Entry struct {
	ID           string
	ActorID      *string
	Action       Action
	Result       Result
	IPAddress    *string
	ErrorMessage *string
	CreatedAt    time.Time
}

// Sink persists audit entries.
type Sink interface {
	Write(context context.Context, entry Entry) error
}

// IPTransform turns a cleartext IP into its stored form.
type IPTransform interface {
	Transform(ip string) (string, error)
}
