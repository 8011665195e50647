// Package catalog answers questions about the live schema: which tables and
// columns exist, their declared types, foreign keys, identity columns and
// sequences. Nothing is cached; every call reads the engine's catalog.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mrlokans/biblioteca/internal/config"
	"github.com/mrlokans/biblioteca/internal/database"
)

var (
	ErrTableNotFound  = errors.New("table not found")
	ErrColumnNotFound = errors.New("column not found")
	ErrNoKey          = errors.New("no usable primary key")
)

// ColumnInfo describes one physical column.
type ColumnInfo struct {
	Name       string
	Type       string // declared type, upper case
	PrimaryKey bool
	Identity   bool // values assigned by the engine on insert
}

// ForeignKey links a column to the table (and column, when known) it references.
type ForeignKey struct {
	Column    string
	RefTable  string
	RefColumn string
}

// Catalog is the engine-specific metadata source behind an Introspector.
type Catalog interface {
	Tables(ctx context.Context) ([]string, error)
	Columns(ctx context.Context, table string) ([]ColumnInfo, error)
	ForeignKeys(ctx context.Context, table string) ([]ForeignKey, error)
	Sequences(ctx context.Context) ([]string, error)
}

// Querier is the subset of database.Database a catalog reads through.
type Querier interface {
	Query(ctx context.Context, query string, args ...any) ([]database.Row, error)
}

// For returns the catalog matching the database's dialect.
func For(db *database.Database) (Catalog, error) {
	switch db.Dialect.Name() {
	case config.DriverSQLite:
		return NewSQLite(db), nil
	case config.DriverPostgres:
		return NewPostgres(db), nil
	default:
		return nil, fmt.Errorf("%w: %q", database.ErrUnsupportedDriver, db.Dialect.Name())
	}
}

func upper(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
