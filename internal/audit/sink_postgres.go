// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package audit

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/authcore/internal/platform/database/schema"
)

// PostgresSink implements [Sink] on system.auditlog.
type PostgresSink struct {
	pool *pgxpool.Pool
}

// NewPostgresSink creates a new PostgreSQL [Sink].
func NewPostgresSink(pool *pgxpool.Pool) *PostgresSink {
	return &PostgresSink{pool: pool}
}

/*
Write inserts one audit row.

Parameters:
  - context: context.Context
  - entry: Entry (IPAddress already encrypted)

Returns:
  - error: Execution failures
*/
func (repository *PostgresSink) Write(context context.Context, entry Entry) error {
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		schema.SystemAuditLog.Table, strings.Join(schema.SystemAuditLog.Columns(), ", "))

	_, err := repository.pool.Exec(context, query,
		entry.ID,
		entry.ActorID,
		string(entry.Action),
		string(entry.Result),
		entry.IPAddress,
		entry.ErrorMessage,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres_auditlog_insert_failed: %w", err)
	}

	return nil
}
