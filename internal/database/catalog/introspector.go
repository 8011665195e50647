package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/mrlokans/biblioteca/internal/database"
)

// TypeClass groups declared column types by how values must be bound.
type TypeClass int

const (
	TypeClassText TypeClass = iota
	TypeClassNumber
	TypeClassDate
)

func (c TypeClass) String() string {
	switch c {
	case TypeClassDate:
		return "date"
	case TypeClassNumber:
		return "number"
	default:
		return "text"
	}
}

// ClassifyType maps a declared type (DATE, NUMBER(4), VARCHAR2, timestamp
// without time zone, ...) onto a TypeClass.
func ClassifyType(declared string) TypeClass {
	t := upper(declared)
	switch {
	case strings.Contains(t, "DATE"), strings.Contains(t, "TIME"):
		return TypeClassDate
	case strings.Contains(t, "INT"), strings.Contains(t, "NUM"), strings.Contains(t, "DEC"),
		strings.Contains(t, "REAL"), strings.Contains(t, "FLOA"), strings.Contains(t, "DOUB"):
		return TypeClassNumber
	default:
		return TypeClassText
	}
}

// Introspector offers the lookup primitives the query layer resolves names
// with. Table and column names compare case-insensitively; results carry the
// catalog's own spelling.
type Introspector struct {
	catalog Catalog
	db      *database.Database
}

func NewIntrospector(c Catalog) *Introspector {
	return &Introspector{catalog: c}
}

// New builds an introspector over the database's own catalog. NextIDFromMax
// needs the database handle and only works on introspectors built this way.
func New(db *database.Database) (*Introspector, error) {
	c, err := For(db)
	if err != nil {
		return nil, err
	}
	return &Introspector{catalog: c, db: db}, nil
}

func (in *Introspector) TableExists(ctx context.Context, table string) (bool, error) {
	_, err := in.ResolveTable(ctx, table)
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, err
}

// ResolveTable returns the catalog spelling of a table name.
func (in *Introspector) ResolveTable(ctx context.Context, table string) (string, error) {
	tables, err := in.catalog.Tables(ctx)
	if err != nil {
		return "", fmt.Errorf("list tables: %w", err)
	}
	if name, ok := lo.Find(tables, func(t string) bool { return strings.EqualFold(t, table) }); ok {
		return name, nil
	}
	return "", fmt.Errorf("%w: %s", ErrTableNotFound, table)
}

// FirstExistingTable returns the first candidate present in the schema.
func (in *Introspector) FirstExistingTable(ctx context.Context, candidates ...string) (string, error) {
	tables, err := in.catalog.Tables(ctx)
	if err != nil {
		return "", fmt.Errorf("list tables: %w", err)
	}
	for _, c := range candidates {
		if name, ok := lo.Find(tables, func(t string) bool { return strings.EqualFold(t, c) }); ok {
			return name, nil
		}
	}
	return "", fmt.Errorf("%w: none of %s", ErrTableNotFound, strings.Join(candidates, ", "))
}

// Describe returns every column of a table in declaration order.
func (in *Introspector) Describe(ctx context.Context, table string) ([]ColumnInfo, error) {
	cols, err := in.catalog.Columns(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("describe %s: %w", table, err)
	}
	return cols, nil
}

func (in *Introspector) ColumnExists(ctx context.Context, table, column string) (bool, error) {
	_, err := in.FirstExistingColumn(ctx, table, column)
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, err
}

// FirstExistingColumn returns the first candidate column present in table.
func (in *Introspector) FirstExistingColumn(ctx context.Context, table string, candidates ...string) (string, error) {
	cols, err := in.Describe(ctx, table)
	if err != nil {
		return "", err
	}
	if col, ok := FirstColumn(cols, candidates...); ok {
		return col.Name, nil
	}
	return "", fmt.Errorf("%w: %s has none of %s", ErrColumnNotFound, table, strings.Join(candidates, ", "))
}

// ColumnType returns the declared type in upper case, or "" when the column
// does not exist.
func (in *Introspector) ColumnType(ctx context.Context, table, column string) (string, error) {
	cols, err := in.Describe(ctx, table)
	if err != nil {
		return "", err
	}
	if col, ok := FirstColumn(cols, column); ok {
		return col.Type, nil
	}
	return "", nil
}

// FindFKTo returns the column of table that references refTable, or "".
func (in *Introspector) FindFKTo(ctx context.Context, table, refTable string) (string, error) {
	fks, err := in.catalog.ForeignKeys(ctx, table)
	if err != nil {
		return "", fmt.Errorf("foreign keys of %s: %w", table, err)
	}
	if fk, ok := FirstFK(fks, nil, refTable); ok {
		return fk.Column, nil
	}
	return "", nil
}

// AnyColumnLike returns the first column whose name contains one of the
// patterns. Earlier patterns win over later ones; columns named in exclude
// are skipped. Returns "" when nothing matches.
func (in *Introspector) AnyColumnLike(ctx context.Context, table string, patterns []string, exclude ...string) (string, error) {
	cols, err := in.Describe(ctx, table)
	if err != nil {
		return "", err
	}
	if col, ok := ColumnLike(cols, patterns, exclude); ok {
		return col.Name, nil
	}
	return "", nil
}

func (in *Introspector) IsIdentity(ctx context.Context, table, column string) (bool, error) {
	cols, err := in.Describe(ctx, table)
	if err != nil {
		return false, err
	}
	col, ok := FirstColumn(cols, column)
	return ok && col.Identity, nil
}

// FindSequence looks for a sequence serving table's key. Explicit names are
// tried first, then <T>_SEQ, SEQ_<T>, <T>_<PK>_SEQ and <T>_ID_SEQ.
func (in *Introspector) FindSequence(ctx context.Context, table, pk string, explicit ...string) (string, error) {
	seqs, err := in.catalog.Sequences(ctx)
	if err != nil {
		return "", fmt.Errorf("list sequences: %w", err)
	}
	if len(seqs) == 0 {
		return "", nil
	}

	candidates := append(append([]string{}, explicit...),
		table+"_SEQ",
		"SEQ_"+table,
		table+"_"+pk+"_SEQ",
		table+"_ID_SEQ",
	)
	for _, c := range candidates {
		if name, ok := lo.Find(seqs, func(s string) bool { return strings.EqualFold(s, c) }); ok {
			return name, nil
		}
	}
	return "", nil
}

// NextIDFromMax computes max(pk)+1, the identifier of last resort.
func (in *Introspector) NextIDFromMax(ctx context.Context, table, pk string) (int64, error) {
	if in.db == nil {
		return 0, fmt.Errorf("next id for %s: introspector has no database handle", table)
	}
	row, err := in.db.QueryRow(ctx, fmt.Sprintf("SELECT COALESCE(MAX(%s), 0) + 1 AS NEXT_ID FROM %s", pk, table))
	if err != nil {
		return 0, fmt.Errorf("next id for %s: %w", table, err)
	}
	id, ok := row.Int64("NEXT_ID")
	if !ok {
		return 0, fmt.Errorf("next id for %s: unexpected value %v", table, row.Get("NEXT_ID"))
	}
	return id, nil
}

// ForeignKeys exposes the raw foreign key list for callers that resolve
// several columns of one table in a single pass.
func (in *Introspector) ForeignKeys(ctx context.Context, table string) ([]ForeignKey, error) {
	fks, err := in.catalog.ForeignKeys(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("foreign keys of %s: %w", table, err)
	}
	return fks, nil
}

// FirstColumn returns the first candidate found among cols.
func FirstColumn(cols []ColumnInfo, candidates ...string) (ColumnInfo, bool) {
	for _, c := range candidates {
		if col, ok := lo.Find(cols, func(ci ColumnInfo) bool { return strings.EqualFold(ci.Name, c) }); ok {
			return col, true
		}
	}
	return ColumnInfo{}, false
}

// ColumnLike applies AnyColumnLike's matching rules to an already loaded
// column list.
func ColumnLike(cols []ColumnInfo, patterns, exclude []string) (ColumnInfo, bool) {
	free := lo.Filter(cols, func(ci ColumnInfo, _ int) bool {
		return !lo.ContainsBy(exclude, func(e string) bool { return strings.EqualFold(e, ci.Name) })
	})
	for _, p := range patterns {
		p = upper(p)
		if col, ok := lo.Find(free, func(ci ColumnInfo) bool { return strings.Contains(upper(ci.Name), p) }); ok {
			return col, true
		}
	}
	return ColumnInfo{}, false
}

// FirstFK returns the first foreign key pointing at refTable whose column is
// not excluded.
func FirstFK(fks []ForeignKey, exclude []string, refTable string) (ForeignKey, bool) {
	return lo.Find(fks, func(fk ForeignKey) bool {
		return strings.EqualFold(fk.RefTable, refTable) &&
			!lo.ContainsBy(exclude, func(e string) bool { return strings.EqualFold(e, fk.Column) })
	})
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrTableNotFound) || errors.Is(err, ErrColumnNotFound)
}
