package query

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/mrlokans/biblioteca/internal/database"
)

// Runner is the part of database.Database statements run through.
type Runner interface {
	Query(ctx context.Context, query string, args ...any) ([]database.Row, error)
	Exec(ctx context.Context, query string, args ...any) (int64, error)
}

// Rows runs a built statement and returns its rows.
func Rows(ctx context.Context, db Runner, s sq.Sqlizer) ([]database.Row, error) {
	query, args, err := s.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build statement: %w", err)
	}
	return db.Query(ctx, query, args...)
}

// Exec runs a built write statement and returns the affected row count.
func Exec(ctx context.Context, db Runner, s sq.Sqlizer) (int64, error) {
	query, args, err := s.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build statement: %w", err)
	}
	return db.Exec(ctx, query, args...)
}

// InsertReturning runs an insert built by Table.Insert and returns the key
// of the new row.
func InsertReturning(ctx context.Context, db Runner, s sq.Sqlizer) (int64, error) {
	rows, err := Rows(ctx, db, s)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 || rows[0].Len() == 0 {
		return 0, fmt.Errorf("insert returned no key")
	}
	id, ok := database.ToInt64(rows[0].Values()[0])
	if !ok {
		return 0, fmt.Errorf("insert returned non-numeric key %v", rows[0].Values()[0])
	}
	return id, nil
}
