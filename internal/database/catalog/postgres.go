package catalog

import (
	"context"
	"strings"
)

// Postgres reads information_schema for the current schema.
type Postgres struct {
	db Querier
}

func NewPostgres(db Querier) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) Tables(ctx context.Context) ([]string, error) {
	rows, err := p.db.Query(ctx, `
		SELECT table_name AS name
		  FROM information_schema.tables
		 WHERE table_schema = current_schema()
		 ORDER BY table_name`)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(rows))
	for _, r := range rows {
		names = append(names, r.String("name"))
	}
	return names, nil
}

func (p *Postgres) Columns(ctx context.Context, table string) ([]ColumnInfo, error) {
	rows, err := p.db.Query(ctx, `
		SELECT c.column_name AS name,
		       c.data_type AS type,
		       c.is_identity AS is_identity,
		       COALESCE(c.column_default, '') AS column_default,
		       EXISTS (
		         SELECT 1
		           FROM information_schema.table_constraints tc
		           JOIN information_schema.key_column_usage k
		             ON k.constraint_name = tc.constraint_name
		            AND k.table_schema = tc.table_schema
		          WHERE tc.constraint_type = 'PRIMARY KEY'
		            AND tc.table_schema = c.table_schema
		            AND tc.table_name = c.table_name
		            AND k.column_name = c.column_name
		       ) AS pk
		  FROM information_schema.columns c
		 WHERE c.table_schema = current_schema()
		   AND LOWER(c.table_name) = LOWER(?)
		 ORDER BY c.ordinal_position`, table)
	if err != nil {
		return nil, err
	}

	cols := make([]ColumnInfo, 0, len(rows))
	for _, r := range rows {
		def := r.String("column_default")
		pk, _ := r.Get("pk").(bool)
		cols = append(cols, ColumnInfo{
			Name:       r.String("name"),
			Type:       upper(r.String("type")),
			PrimaryKey: pk,
			Identity:   strings.EqualFold(r.String("is_identity"), "YES") || strings.HasPrefix(def, "nextval("),
		})
	}
	return cols, nil
}

func (p *Postgres) ForeignKeys(ctx context.Context, table string) ([]ForeignKey, error) {
	rows, err := p.db.Query(ctx, `
		SELECT k.column_name AS column_name,
		       u.table_name AS ref_table,
		       u.column_name AS ref_column
		  FROM information_schema.table_constraints tc
		  JOIN information_schema.key_column_usage k
		    ON k.constraint_name = tc.constraint_name
		   AND k.table_schema = tc.table_schema
		  JOIN information_schema.constraint_column_usage u
		    ON u.constraint_name = tc.constraint_name
		   AND u.table_schema = tc.table_schema
		 WHERE tc.constraint_type = 'FOREIGN KEY'
		   AND tc.table_schema = current_schema()
		   AND LOWER(tc.table_name) = LOWER(?)
		 ORDER BY k.ordinal_position`, table)
	if err != nil {
		return nil, err
	}
	fks := make([]ForeignKey, 0, len(rows))
	for _, r := range rows {
		fks = append(fks, ForeignKey{
			Column:    r.String("column_name"),
			RefTable:  r.String("ref_table"),
			RefColumn: r.String("ref_column"),
		})
	}
	return fks, nil
}

func (p *Postgres) Sequences(ctx context.Context) ([]string, error) {
	rows, err := p.db.Query(ctx, `
		SELECT sequence_name AS name
		  FROM information_schema.sequences
		 WHERE sequence_schema = current_schema()`)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(rows))
	for _, r := range rows {
		names = append(names, r.String("name"))
	}
	return names, nil
}
