// Package db provides shared database helpers for bulk copy and replace operations.
package db

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// CopyFrom bulk-inserts rows into a table using PostgreSQL COPY protocol.
// Schema-qualified names like "aims.sectors" are split on the first dot.
func CopyFrom(ctx context.Context, c Copier, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	n, err := c.CopyFrom(ctx, identifier(table), columns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, eris.Wrapf(err, "db: COPY INTO %s", table)
	}

	return n, nil
}

// ReplaceConfig defines the parameters for a delete-then-copy replacement.
type ReplaceConfig struct {
	Table   string
	Columns []string
	// ScopeColumn limits the delete to rows where ScopeColumn = ScopeValue.
	// Empty means the whole table is replaced.
	ScopeColumn string
	ScopeValue  any
}

// Tx is what Replace needs from a transaction. pgx.Tx satisfies it.
type Tx interface {
	Execer
	Copier
}

// Replace deletes the scoped rows and copies the new ones in their place.
// Callers own the transaction so the swap is atomic with anything else
// they write alongside it.
func Replace(ctx context.Context, tx Tx, cfg ReplaceConfig, rows [][]any) (int64, error) {
	if len(cfg.Columns) == 0 {
		return 0, eris.New("db: replace: no columns specified")
	}

	deleteSQL := "DELETE FROM " + sanitizeTable(cfg.Table)
	var args []any
	if cfg.ScopeColumn != "" {
		deleteSQL += " WHERE " + pgx.Identifier{cfg.ScopeColumn}.Sanitize() + " = $1"
		args = append(args, cfg.ScopeValue)
	}
	if _, err := tx.Exec(ctx, deleteSQL, args...); err != nil {
		return 0, eris.Wrapf(err, "db: replace: delete from %s", cfg.Table)
	}

	n, err := CopyFrom(ctx, tx, cfg.Table, cfg.Columns, rows)
	if err != nil {
		return 0, eris.Wrapf(err, "db: replace: %s", cfg.Table)
	}
	return n, nil
}

func identifier(table string) pgx.Identifier {
	parts := strings.SplitN(table, ".", 2)
	return pgx.Identifier(parts)
}

// sanitizeTable handles schema-qualified table names like "aims.sectors".
func sanitizeTable(table string) string {
	return identifier(table).Sanitize()
}
