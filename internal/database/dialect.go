package database

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mrlokans/biblioteca/internal/config"
)

// Dialect holds the SQL fragments that differ between supported engines.
// Statements are always written with '?' placeholders; Placeholder rebinds
// them for the engine before execution.
type Dialect interface {
	Name() config.Driver
	Open(dsn string) gorm.Dialector
	Placeholder() sq.PlaceholderFormat

	// DateExpr parses a bound 'YYYY-MM-DD' string into a date value.
	DateExpr() string
	// TimestampExpr parses a bound 'YYYY-MM-DD HH:MM:SS' string.
	TimestampExpr() string
	// Now is the current timestamp expression.
	Now() string
	// FormatTimestamp renders a date/time column as 'YYYY-MM-DD HH:MM:SS' text.
	FormatTimestamp(column string) string
	// NextVal returns the expression drawing the next value of a sequence,
	// or "" when the engine has no sequences.
	NextVal(sequence string) string
	// RowID names the implicit row identifier, or "" when there is none.
	RowID() string
}

// DialectFor returns the dialect registered for the configured driver.
func DialectFor(driver config.Driver) (Dialect, error) {
	switch driver {
	case config.DriverSQLite, "":
		return SQLite{}, nil
	case config.DriverPostgres:
		return Postgres{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}
}

type SQLite struct{}

func (SQLite) Name() config.Driver               { return config.DriverSQLite }
func (SQLite) Open(dsn string) gorm.Dialector    { return sqlite.Open(dsn) }
func (SQLite) Placeholder() sq.PlaceholderFormat { return sq.Question }
func (SQLite) DateExpr() string                  { return "date(?)" }
func (SQLite) TimestampExpr() string             { return "datetime(?)" }
func (SQLite) Now() string                       { return "CURRENT_TIMESTAMP" }
func (SQLite) NextVal(string) string             { return "" }
func (SQLite) RowID() string                     { return "rowid" }
func (SQLite) FormatTimestamp(column string) string {
	return fmt.Sprintf("strftime('%%Y-%%m-%%d %%H:%%M:%%S', %s)", column)
}

type Postgres struct{}

func (Postgres) Name() config.Driver               { return config.DriverPostgres }
func (Postgres) Open(dsn string) gorm.Dialector    { return postgres.Open(dsn) }
func (Postgres) Placeholder() sq.PlaceholderFormat { return sq.Dollar }
func (Postgres) DateExpr() string                  { return "TO_DATE(?, 'YYYY-MM-DD')" }
func (Postgres) TimestampExpr() string             { return "TO_TIMESTAMP(?, 'YYYY-MM-DD HH24:MI:SS')" }
func (Postgres) Now() string                       { return "CURRENT_TIMESTAMP" }
func (Postgres) RowID() string                     { return "" }
func (Postgres) NextVal(sequence string) string {
	return fmt.Sprintf("nextval('%s')", sequence)
}
func (Postgres) FormatTimestamp(column string) string {
	return fmt.Sprintf("TO_CHAR(%s, 'YYYY-MM-DD HH24:MI:SS')", column)
}
