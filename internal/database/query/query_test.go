package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/biblioteca/internal/config"
	"github.com/mrlokans/biblioteca/internal/database"
	"github.com/mrlokans/biblioteca/internal/database/catalog"
	"github.com/mrlokans/biblioteca/internal/database/dbtest"
)

var publisherDescriptor = &Descriptor{
	Entity: "publisher",
	Tables: []string{"EDITORIAL"},
	Key: Key{
		Name:       "EDITORIAL_ID",
		Candidates: []string{"ID_EDITORIAL", "ID_VAREDIT", "NUM_EDITORIAL"},
	},
	Columns: []Column{
		{Name: "NOMBRE", Candidates: []string{"NOMBRE"}},
		{Name: "PAIS", Candidates: []string{"PAIS"}, Optional: true},
		{Name: "ANO_EDICION", Candidates: []string{"ANO_EDICION", "ANIO_EDICION", "FECHA_EDICION", "FECHA"}, Type: KindYear},
		{Name: "NUM_EDITORIAL", Candidates: []string{"NUM_EDITORIAL", "NUMERO_EDITORIAL"}, Optional: true},
	},
}

func resolve(t *testing.T, db *database.Database, d *Descriptor) *Table {
	t.Helper()
	r, err := ResolverFor(db)
	require.NoError(t, err)
	table, err := r.Resolve(context.Background(), d)
	require.NoError(t, err)
	return table
}

func TestResolve_PublisherVariants(t *testing.T) {
	tests := []struct {
		variant  dbtest.Variant
		key      string
		strategy KeyStrategy
		year     string
		class    catalog.TypeClass
		num      string
	}{
		{dbtest.Reference, "ID_EDITORIAL", KeyIdentity, "ANO_EDICION", catalog.TypeClassDate, ""},
		{dbtest.Legacy, "ID_VAREDIT", KeyMax, "ANO_EDICION", catalog.TypeClassNumber, "NUM_EDITORIAL"},
		{dbtest.TextDates, "NUM_EDITORIAL", KeyIdentity, "FECHA_EDICION", catalog.TypeClassText, ""},
	}

	for _, tt := range tests {
		t.Run(string(tt.variant), func(t *testing.T) {
			table := resolve(t, dbtest.Open(t, tt.variant), publisherDescriptor)

			assert.Equal(t, "EDITORIAL", table.Name)
			assert.Equal(t, tt.key, table.Key.Column)
			assert.Equal(t, tt.strategy, table.Key.Strategy)

			year, ok := table.Column("ANO_EDICION")
			require.True(t, ok)
			assert.Equal(t, tt.year, year.Physical)
			assert.Equal(t, tt.class, year.Class)

			// the key column is never claimed twice
			assert.Equal(t, tt.num, table.Physical("NUM_EDITORIAL"))
		})
	}
}

func TestResolve_ForeignKeyBeforePatterns(t *testing.T) {
	d := &Descriptor{
		Entity: "history",
		Tables: []string{"HISTORIAL", "BITACORA"},
		Key:    Key{Name: "ID_HISTORIAL", Candidates: []string{"ID_HISTORIAL", "ID_HIST", "ID"}, RowIDFallback: true},
		Columns: []Column{
			{Name: "LIBRO_ID", References: []string{"LIBRO"}, Patterns: []string{"LIBRO", "ID_LIB", "LIB"}, Candidates: []string{"LIBRO_ID_LIBRO", "ID_LIBRO"}},
			{Name: "USUARIO_ID", References: []string{"USUARIO", "MIEMBRO", "CLIENTE"}, Patterns: []string{"USUARIO", "ID_US", "MIEMBRO"}, Optional: true},
			{Name: "FECHA_EVENTO", Candidates: []string{"FECHA_EVENTO"}, Patterns: []string{"FECHA", "FEC", "CREA"}, Type: KindTimestamp, Optional: true},
		},
	}

	t.Run("declared keys", func(t *testing.T) {
		table := resolve(t, dbtest.Open(t, dbtest.TextDates), d)
		assert.Equal(t, "BITACORA", table.Name)
		assert.Equal(t, KeyRowID, table.Key.Strategy)
		assert.Equal(t, "LIBRO_REF", table.Physical("LIBRO_ID"))
		assert.Equal(t, "SOCIO", table.Physical("USUARIO_ID"))
		assert.Equal(t, "CREADO_EN", table.Physical("FECHA_EVENTO"))

		c, _ := table.Column("LIBRO_ID")
		assert.Equal(t, "ID_LIBRO", c.RefColumn)
	})

	t.Run("patterns", func(t *testing.T) {
		table := resolve(t, dbtest.Open(t, dbtest.Legacy), d)
		assert.Equal(t, "ID_HIST", table.Key.Column)
		assert.Equal(t, "LIBRO_ID_LIBRO", table.Physical("LIBRO_ID"))
		assert.Equal(t, "USUARIO_ID_USUARIO", table.Physical("USUARIO_ID"))
		assert.Equal(t, "FEC_MOV", table.Physical("FECHA_EVENTO"))
	})
}

func TestResolve_Failures(t *testing.T) {
	db := dbtest.Open(t, dbtest.Reference)
	r, err := ResolverFor(db)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = r.Resolve(ctx, &Descriptor{Entity: "x", Tables: []string{"NOPE"}})
	var rerr *ResolutionError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "table", rerr.Role)
	assert.ErrorIs(t, err, catalog.ErrTableNotFound)

	_, err = r.Resolve(ctx, &Descriptor{
		Entity: "publisher",
		Tables: []string{"EDITORIAL"},
		Key:    Key{Name: "ID", Candidates: []string{"CODIGO"}},
	})
	assert.ErrorIs(t, err, catalog.ErrNoKey)

	_, err = r.Resolve(ctx, &Descriptor{
		Entity:  "publisher",
		Tables:  []string{"EDITORIAL"},
		Key:     Key{Name: "ID", Candidates: []string{"ID_EDITORIAL"}},
		Columns: []Column{{Name: "LOGO", Candidates: []string{"LOGO"}}},
	})
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "LOGO", rerr.Role)
	assert.ErrorIs(t, err, catalog.ErrColumnNotFound)
}

func TestTable_InsertAndReadBack(t *testing.T) {
	for _, v := range dbtest.Variants() {
		t.Run(string(v), func(t *testing.T) {
			db := dbtest.Open(t, v)
			table := resolve(t, db, publisherDescriptor)
			ctx := context.Background()

			ins, err := table.Insert(Fields{"NOMBRE": "Acme", "PAIS": "GT", "ANO_EDICION": "1999", "NUM_EDITORIAL": "7"})
			require.NoError(t, err)
			id, err := InsertReturning(ctx, db, ins)
			require.NoError(t, err)
			assert.Positive(t, id)

			rows, err := Rows(ctx, db, table.Get(id))
			require.NoError(t, err)
			require.Len(t, rows, 1)
			table.Normalize(rows)

			assert.Equal(t, "Acme", rows[0].String("NOMBRE"))
			assert.Contains(t, rows[0].String("ANO_EDICION"), "1999")
			assert.Equal(t, []string{"EDITORIAL_ID", "NOMBRE", "PAIS", "ANO_EDICION", "NUM_EDITORIAL"}, rows[0].Columns())
		})
	}
}

func TestTable_Update(t *testing.T) {
	db := dbtest.Open(t, dbtest.Legacy)
	table := resolve(t, db, publisherDescriptor)
	ctx := context.Background()

	ins, err := table.Insert(Fields{"NOMBRE": "Acme", "ANO_EDICION": "1999"})
	require.NoError(t, err)
	id, err := InsertReturning(ctx, db, ins)
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	upd, ok, err := table.Update(id, Fields{"ANO_EDICION": "2000-06-01"})
	require.NoError(t, err)
	require.True(t, ok)
	n, err := Exec(ctx, db, upd)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	rows, err := Rows(ctx, db, table.Get(id))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "2000", rows[0].String("ANO_EDICION"))
	assert.Equal(t, "Acme", rows[0].String("NOMBRE"), "fields not supplied keep their value")

	_, ok, err = table.Update(id, Fields{"UNRELATED": "x"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTable_InsertValidation(t *testing.T) {
	db := dbtest.Open(t, dbtest.Reference)
	table := resolve(t, db, publisherDescriptor)

	_, err := table.Insert(Fields{"NOMBRE": "Acme", "ANO_EDICION": "next year"})
	assert.ErrorIs(t, err, ErrInvalidValue)

	_, err = table.Insert(Fields{"EDITORIAL_ID": "abc", "NOMBRE": "Acme"})
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestTable_OptionalColumnDropped(t *testing.T) {
	db := dbtest.Open(t, dbtest.Reference)
	table := resolve(t, db, publisherDescriptor)

	assert.False(t, mustColumn(t, table, "NUM_EDITORIAL").Present())
	assert.Contains(t, table.SelectExprs(), `NULL AS "NUM_EDITORIAL"`)

	ins, err := table.Insert(Fields{"NOMBRE": "Acme", "NUM_EDITORIAL": "9"})
	require.NoError(t, err)
	sql, _, err := ins.ToSql()
	require.NoError(t, err)
	assert.NotContains(t, sql, "NUM_EDITORIAL")
}

func mustColumn(t *testing.T, table *Table, name string) ResolvedColumn {
	t.Helper()
	c, ok := table.Column(name)
	require.True(t, ok)
	return c
}

type fakeCatalog struct {
	columns   []catalog.ColumnInfo
	sequences []string
}

func (f *fakeCatalog) Tables(context.Context) ([]string, error) {
	return []string{"grupo_lectura"}, nil
}
func (f *fakeCatalog) Columns(context.Context, string) ([]catalog.ColumnInfo, error) {
	return f.columns, nil
}
func (f *fakeCatalog) ForeignKeys(context.Context, string) ([]catalog.ForeignKey, error) {
	return nil, nil
}
func (f *fakeCatalog) Sequences(context.Context) ([]string, error) {
	return f.sequences, nil
}

func TestTable_PostgresStatements(t *testing.T) {
	dialect, err := database.DialectFor(config.DriverPostgres)
	require.NoError(t, err)

	fc := &fakeCatalog{
		columns: []catalog.ColumnInfo{
			{Name: "id_grupo", Type: "NUMERIC", PrimaryKey: true},
			{Name: "nombre", Type: "CHARACTER VARYING"},
			{Name: "fecha_reunion", Type: "DATE"},
		},
		sequences: []string{"grupo_lect_seq"},
	}
	d := &Descriptor{
		Entity: "reading group",
		Tables: []string{"GRUPO_LECTURA"},
		Key:    Key{Name: "ID_GRUPO", Candidates: []string{"ID_GRUPO"}, Sequences: []string{"GRUPO_LECT_SEQ"}},
		Columns: []Column{
			{Name: "NOMBRE", Candidates: []string{"NOMBRE"}},
			{Name: "FECHA_REUNION", Candidates: []string{"FECHA_REUNION"}, Type: KindDate},
		},
		OrderBy: "FECHA_REUNION",
	}

	table, err := NewResolver(catalog.NewIntrospector(fc), dialect).Resolve(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, KeySequence, table.Key.Strategy)
	assert.Equal(t, "grupo_lect_seq", table.Key.Sequence)

	ins, err := table.Insert(Fields{"NOMBRE": "Club", "FECHA_REUNION": "2024-03-15"})
	require.NoError(t, err)
	sql, args, err := ins.ToSql()
	require.NoError(t, err)
	assert.Equal(t,
		`INSERT INTO grupo_lectura (id_grupo,nombre,fecha_reunion) VALUES (nextval('grupo_lect_seq'),?,TO_DATE(?, 'YYYY-MM-DD')) RETURNING id_grupo AS "ID_GRUPO"`,
		sql)
	assert.Equal(t, []any{"Club", "2024-03-15"}, args)

	sql, _, err = table.List().ToSql()
	require.NoError(t, err)
	assert.Contains(t, sql, "ORDER BY grupo_lectura.fecha_reunion DESC, grupo_lectura.id_grupo DESC")

	fc.sequences = nil
	table, err = NewResolver(catalog.NewIntrospector(fc), dialect).Resolve(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, KeyMax, table.Key.Strategy)
	ins, err = table.Insert(Fields{"NOMBRE": "Club"})
	require.NoError(t, err)
	sql, _, err = ins.ToSql()
	require.NoError(t, err)
	assert.Contains(t, sql, "(SELECT COALESCE(MAX(id_grupo), 0) + 1 FROM grupo_lectura)")
}

func TestBind(t *testing.T) {
	sqlite, err := database.DialectFor(config.DriverSQLite)
	require.NoError(t, err)

	col := func(kind Kind, class catalog.TypeClass) ResolvedColumn {
		return ResolvedColumn{Column: Column{Name: "F", Type: kind}, Physical: "F", Class: class}
	}

	tests := []struct {
		name    string
		column  ResolvedColumn
		in      any
		want    any
		wantSQL string
		wantErr bool
	}{
		{"empty is null", col(KindDate, catalog.TypeClassDate), "  ", nil, "", false},
		{"date into date column", col(KindDate, catalog.TypeClassDate), "2024-03-15", nil, "date(?)", false},
		{"date into text column", col(KindDate, catalog.TypeClassText), "2024-03-15", "2024-03-15", "", false},
		{"bad date", col(KindDate, catalog.TypeClassDate), "15/03/2024", nil, "", true},
		{"date with time part", col(KindDate, catalog.TypeClassText), "2024-03-15 10:30:00", "2024-03-15", "", false},
		{"date with ISO time part", col(KindDate, catalog.TypeClassText), "2024-03-15T10:30", "2024-03-15", "", false},
		{"date with trailing garbage", col(KindDate, catalog.TypeClassDate), "2024-03-15garbage", nil, "", true},
		{"year with trailing garbage", col(KindYear, catalog.TypeClassNumber), "1999-01-01x", nil, "", true},
		{"year into date column", col(KindYear, catalog.TypeClassDate), "1999", nil, "date(?)", false},
		{"year into number column", col(KindYear, catalog.TypeClassNumber), "2000-06-01", int64(2000), "", false},
		{"year into text column", col(KindYear, catalog.TypeClassText), " 1999 ", "1999", "", false},
		{"timestamp into text column", col(KindTimestamp, catalog.TypeClassText), "2024-03-15T10:30", "2024-03-15 10:30:00", "", false},
		{"timestamp into number column", col(KindTimestamp, catalog.TypeClassNumber), "2024-03-15", nil, "", true},
		{"int", col(KindInt, catalog.TypeClassNumber), "42", int64(42), "", false},
		{"bad int", col(KindInt, catalog.TypeClassNumber), "4x", nil, "", true},
		{"number column parses", col(KindValue, catalog.TypeClassNumber), "3.5", 3.5, "", false},
		{"text untouched", col(KindValue, catalog.TypeClassText), "007", "007", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := bind(sqlite, tt.column, tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidValue)
				return
			}
			require.NoError(t, err)
			if tt.wantSQL == "" {
				assert.Equal(t, tt.want, got)
				return
			}
			s, ok := got.(interface {
				ToSql() (string, []interface{}, error)
			})
			require.True(t, ok, "expected an expression, got %T", got)
			sql, _, err := s.ToSql()
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
		})
	}
}

func TestFields_Lookup(t *testing.T) {
	f := Fields{"id_libro": 3, "LIBRO_ID": 5}

	v, ok := f.Lookup("LIBRO_ID", "ID_LIBRO")
	require.True(t, ok)
	assert.Equal(t, 5, v)

	v, ok = f.Lookup("ID_LIBRO")
	require.True(t, ok)
	assert.Equal(t, 3, v)

	assert.False(t, f.Has("OTHER"))
}
