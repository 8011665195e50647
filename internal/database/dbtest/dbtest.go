// Package dbtest opens throwaway sqlite databases laid out like the schema
// variants found in deployed library databases.
package dbtest

import (
	"context"
	"embed"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mrlokans/biblioteca/internal/config"
	"github.com/mrlokans/biblioteca/internal/database"
)

// Variant names a schema layout.
type Variant string

const (
	// Reference is the bundled schema: identity keys, DATE columns, a
	// normalized edition table and declared foreign keys.
	Reference Variant = "reference"
	// Legacy keys rows by hand, stores years as numbers and declares no
	// foreign keys.
	Legacy Variant = "legacy"
	// TextDates keeps dates as text and moves history into a keyless table.
	TextDates Variant = "textdates"
)

//go:embed *.sql
var variantFS embed.FS

// Variants lists every layout, reference first.
func Variants() []Variant {
	return []Variant{Reference, Legacy, TextDates}
}

// Open creates a database with the given layout. It is closed when the test
// ends.
func Open(t testing.TB, v Variant) *database.Database {
	t.Helper()
	db := OpenEmpty(t)

	var ddl string
	if v == Reference {
		s, err := database.ReferenceSchema(config.DriverSQLite)
		require.NoError(t, err)
		ddl = s
	} else {
		b, err := variantFS.ReadFile(string(v) + ".sql")
		require.NoError(t, err, "unknown variant %q", v)
		ddl = string(b)
	}
	require.NoError(t, db.ApplySchema(context.Background(), ddl))
	return db
}

// OpenEmpty creates a database with no tables.
func OpenEmpty(t testing.TB) *database.Database {
	t.Helper()
	cfg := config.Database{
		Driver:  config.DriverSQLite,
		Path:    filepath.Join(t.TempDir(), "biblioteca.db"),
		PoolMin: 1,
		PoolMax: 4,
	}
	db, err := database.NewDatabase(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// Exec runs setup statements, failing the test on error.
func Exec(t testing.TB, db *database.Database, stmts ...string) {
	t.Helper()
	for _, s := range stmts {
		_, err := db.Exec(context.Background(), s)
		require.NoError(t, err, s)
	}
}

// Count returns the number of rows in table.
func Count(t testing.TB, db *database.Database, table string) int64 {
	t.Helper()
	row, err := db.QueryRow(context.Background(), "SELECT COUNT(*) AS N FROM "+table)
	require.NoError(t, err)
	n, _ := row.Int64("N")
	return n
}
