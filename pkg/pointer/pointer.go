// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package pointer provides helpers for optional values stored as pointers.

Nullable columns (display name, avatar, audit IP and error text) are modelled
as *string; these helpers keep the nil-versus-empty rules in one place.
*/
package pointer

import "strings"

// To returns a pointer to the provided value.
func To[T any](v T) *T {
	return &v
}

// Val safely dereferences a pointer.
// If the pointer is nil, it returns the zero value of the underlying type.
func Val[T any](p *T) T {
	if p == nil {
		var zero T
		return zero
	}
	return *p
}

// NonEmpty returns a pointer to value, or nil when value is empty.
func NonEmpty(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

// FirstNonBlank returns a pointer to the first value that is not blank after
// trimming, or nil when every value is blank.
func FirstNonBlank(values ...string) *string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return &trimmed
		}
	}
	return nil
}
