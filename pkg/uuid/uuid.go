// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package uuid generates the identifiers used for users, links, sessions,
audit rows and token ids.

Every id is a UUIDv7: time-ordered, so primary key inserts stay append-only in
PostgreSQL B-tree indexes.
*/
package uuid

import "github.com/google/uuid"

// New generates a new UUIDv7 string.
//
// It panics only if the OS random source fails, which the process cannot
// recover from anyway.
func New() string {
	id, err := uuid.NewV7()
	if err != nil {
		panic("uuid: failed to generate UUIDv7: " + err.Error())
	}
	return id.String()
}

// Valid reports whether value is a canonical UUID string of any version.
func Valid(value string) bool {
	parsed, err := uuid.Parse(value)
	return err == nil && parsed.String() == value
}
