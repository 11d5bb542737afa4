package sqlite

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"

	"github.com/loomworks/loom/internal/types"
)

// querier abstracts the query surface shared by *sql.DB and *sql.Conn so the
// same query methods serve both the pool and an open transaction.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

var (
	_ querier = (*sql.DB)(nil)
	_ querier = (*sql.Conn)(nil)
)

// queries implements storage.Reader over any querier. Embedded by both
// SQLiteStorage (pool reads) and sqliteTx (transactional reads).
type queries struct {
	q   querier
	log *slog.Logger
}

// activeClause returns a WHERE fragment for the given column according to the
// filter, or an empty string when all rows match.
func activeClause(column string, f types.ActiveFilter) string {
	switch f {
	case types.InactiveOnly:
		return column + " = 0"
	case types.ActiveAny:
		return ""
	default:
		return column + " = 1"
	}
}

// andActive appends an active-filter condition to conds when one applies.
func andActive(conds []string, column string, f types.ActiveFilter) []string {
	if c := activeClause(column, f); c != "" {
		conds = append(conds, c)
	}
	return conds
}

// whereClause joins conditions into a WHERE clause, or returns "" for none.
func whereClause(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

// prefixColumns qualifies every column in a comma-separated select list with
// a table alias.
func prefixColumns(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

// placeholders returns "?, ?, ..." with n entries.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}

// nullStr converts a *string to sql-friendly NULL semantics.
func nullStr(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

// strPtr returns a pointer to a copy of a valid sql.NullString, else nil.
func strPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
