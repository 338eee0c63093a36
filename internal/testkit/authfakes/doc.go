// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package authfakes provides in-memory stand-ins for the stores, cache, sink
// and clock used by the auth packages. They keep the same contracts as the
// PostgreSQL and Redis implementations, including error codes, and are safe
// for concurrent use.
package authfakes
