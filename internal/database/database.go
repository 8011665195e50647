package database

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/mrlokans/biblioteca/internal/config"
	"github.com/mrlokans/biblioteca/internal/logging"
)

// Database is the process-wide connection pool. It is created once at start
// and handed to every repository. Inside Transaction the same type wraps the
// open transaction, so repositories run unchanged against either.
type Database struct {
	DB      *gorm.DB
	Dialect Dialect
}

// NewDatabase opens the configured pool and verifies connectivity.
func NewDatabase(cfg config.Database) (*Database, error) {
	dialect, err := DialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}

	db, err := Open(dialect, cfg.ConnectionString(), cfg.PoolMin, cfg.PoolMax)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("driver", string(dialect.Name())).
		Int("pool_min", cfg.PoolMin).
		Int("pool_max", cfg.PoolMax).
		Msg("Database initialized")

	return db, nil
}

// Open connects with an explicit dialect and DSN.
func Open(dialect Dialect, dsn string, poolMin, poolMax int) (*Database, error) {
	db, err := gorm.Open(dialect.Open(dsn), &gorm.Config{
		Logger:                 logging.NewGormLogger(),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access connection pool: %w", err)
	}
	if poolMax > 0 {
		sqlDB.SetMaxOpenConns(poolMax)
	}
	sqlDB.SetMaxIdleConns(poolMin)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Database{DB: db, Dialect: dialect}, nil
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Query runs a statement and returns every row. The connection goes back to
// the pool before Query returns, whatever the outcome.
func (d *Database) Query(ctx context.Context, query string, args ...any) ([]Row, error) {
	query, err := d.rebind(query)
	if err != nil {
		return nil, err
	}
	d.trace(query, args)

	rows, err := d.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRows(rows)
}

// QueryRow returns the first row of the result, or ErrNoRows.
func (d *Database) QueryRow(ctx context.Context, query string, args ...any) (Row, error) {
	rows, err := d.Query(ctx, query, args...)
	if err != nil {
		return Row{}, err
	}
	if len(rows) == 0 {
		return Row{}, ErrNoRows
	}
	return rows[0], nil
}

// Exec runs a write statement and returns the number of affected rows.
// Outside a transaction the statement commits on its own.
func (d *Database) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	query, err := d.rebind(query)
	if err != nil {
		return 0, err
	}
	d.trace(query, args)

	res, err := d.conn(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Transaction runs fn inside one transaction, committing when fn returns nil
// and rolling back otherwise. Called on a transaction-scoped Database it opens
// a savepoint instead, so a failed inner block leaves the outer one usable.
func (d *Database) Transaction(ctx context.Context, fn func(tx *Database) error) error {
	return d.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Database{DB: tx, Dialect: d.Dialect})
	})
}

func (d *Database) conn(ctx context.Context) gorm.ConnPool {
	return d.DB.WithContext(ctx).Statement.ConnPool
}

func (d *Database) rebind(query string) (string, error) {
	return d.Dialect.Placeholder().ReplacePlaceholders(query)
}

func (d *Database) trace(query string, args []any) {
	log.Trace().Str("sql", query).Interface("args", args).Msg("exec")
}
