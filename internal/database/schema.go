package database

import (
	"context"
	"embed"
	"fmt"
	"strings"

	"github.com/mrlokans/biblioteca/internal/config"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// ReferenceSchema returns the bundled DDL for a driver.
func ReferenceSchema(driver config.Driver) (string, error) {
	if driver == "" {
		driver = config.DriverSQLite
	}
	ddl, err := schemaFS.ReadFile("schema/" + string(driver) + ".sql")
	if err != nil {
		return "", fmt.Errorf("%w: no reference schema for %q", ErrUnsupportedDriver, driver)
	}
	return string(ddl), nil
}

// ApplySchema runs a DDL script statement by statement inside one
// transaction. Statements are separated by semicolons.
func (d *Database) ApplySchema(ctx context.Context, ddl string) error {
	statements := SplitStatements(ddl)
	return d.Transaction(ctx, func(tx *Database) error {
		for i, stmt := range statements {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("schema statement %d: %w", i+1, err)
			}
		}
		return nil
	})
}

// SplitStatements removes -- line comments, then breaks the script on
// semicolons outside string literals. Empty statements are dropped.
func SplitStatements(ddl string) []string {
	var (
		out     []string
		stmt    strings.Builder
		quoted  bool
		comment bool
	)
	flush := func() {
		if s := strings.TrimSpace(stmt.String()); s != "" {
			out = append(out, s)
		}
		stmt.Reset()
	}
	for i := 0; i < len(ddl); i++ {
		c := ddl[i]
		switch {
		case comment:
			if c == '\n' {
				comment = false
				stmt.WriteByte(c)
			}
		case quoted:
			stmt.WriteByte(c)
			if c == '\'' {
				quoted = false
			}
		case c == '-' && i+1 < len(ddl) && ddl[i+1] == '-':
			comment = true
		case c == '\'':
			quoted = true
			stmt.WriteByte(c)
		case c == ';':
			flush()
		default:
			stmt.WriteByte(c)
		}
	}
	flush()
	return out
}
