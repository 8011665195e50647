package catalog

import (
	"context"
	"strings"
)

// SQLite reads sqlite_master and the table_info / foreign_key_list pragmas.
type SQLite struct {
	db Querier
}

func NewSQLite(db Querier) *SQLite {
	return &SQLite{db: db}
}

func (s *SQLite) Tables(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx,
		"SELECT name FROM sqlite_master WHERE type IN ('table', 'view') AND name NOT LIKE 'sqlite_%' ORDER BY name")
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(rows))
	for _, r := range rows {
		names = append(names, r.String("name"))
	}
	return names, nil
}

// Columns reports an INTEGER primary key as identity: sqlite makes such a
// column an alias of the rowid and fills it on insert.
func (s *SQLite) Columns(ctx context.Context, table string) ([]ColumnInfo, error) {
	rows, err := s.db.Query(ctx, "SELECT name, type, pk FROM pragma_table_info(?) ORDER BY cid", table)
	if err != nil {
		return nil, err
	}

	cols := make([]ColumnInfo, 0, len(rows))
	pkCount := 0
	for _, r := range rows {
		pk, _ := r.Int64("pk")
		if pk > 0 {
			pkCount++
		}
		cols = append(cols, ColumnInfo{
			Name:       r.String("name"),
			Type:       upper(r.String("type")),
			PrimaryKey: pk > 0,
		})
	}
	if pkCount == 1 {
		for i := range cols {
			if cols[i].PrimaryKey && cols[i].Type == "INTEGER" {
				cols[i].Identity = true
			}
		}
	}
	return cols, nil
}

func (s *SQLite) ForeignKeys(ctx context.Context, table string) ([]ForeignKey, error) {
	rows, err := s.db.Query(ctx, `SELECT "from", "table", "to" FROM pragma_foreign_key_list(?) ORDER BY id, seq`, table)
	if err != nil {
		return nil, err
	}
	fks := make([]ForeignKey, 0, len(rows))
	for _, r := range rows {
		fks = append(fks, ForeignKey{
			Column:    r.String("from"),
			RefTable:  r.String("table"),
			RefColumn: strings.TrimSpace(r.String("to")),
		})
	}
	return fks, nil
}

// Sequences is always empty: sqlite has no sequence objects.
func (s *SQLite) Sequences(context.Context) ([]string, error) {
	return nil, nil
}
