package query

import (
	"context"
	"errors"
	"strings"

	"github.com/samber/lo"

	"github.com/mrlokans/biblioteca/internal/database"
	"github.com/mrlokans/biblioteca/internal/database/catalog"
)

// KeyStrategy is how a new row gets its key.
type KeyStrategy int

const (
	// KeyIdentity leaves the key to the engine.
	KeyIdentity KeyStrategy = iota
	// KeySequence draws the key from a sequence.
	KeySequence
	// KeyMax computes max(key)+1 inside the insert.
	KeyMax
	// KeyRowID addresses rows by the engine row id.
	KeyRowID
)

func (s KeyStrategy) String() string {
	switch s {
	case KeySequence:
		return "sequence"
	case KeyMax:
		return "max+1"
	case KeyRowID:
		return "rowid"
	default:
		return "identity"
	}
}

// ResolvedKey is the key column chosen for the live schema.
type ResolvedKey struct {
	Column   string
	Strategy KeyStrategy
	Sequence string
}

// ResolvedColumn pairs a logical column with its physical counterpart.
// Physical is empty when an optional column is absent.
type ResolvedColumn struct {
	Column
	Physical  string
	DataType  string
	Class     catalog.TypeClass
	RefColumn string // referenced column when matched through a foreign key
}

func (c ResolvedColumn) Present() bool {
	return c.Physical != ""
}

// Resolver maps descriptors onto the live schema. It keeps no state between
// calls: every Resolve reads the catalog again.
type Resolver struct {
	in      *catalog.Introspector
	dialect database.Dialect
}

func NewResolver(in *catalog.Introspector, dialect database.Dialect) *Resolver {
	return &Resolver{in: in, dialect: dialect}
}

// ResolverFor builds a resolver reading db's own catalog. Pass the
// transaction-scoped handle when resolving inside a transaction.
func ResolverFor(db *database.Database) (*Resolver, error) {
	in, err := catalog.New(db)
	if err != nil {
		return nil, err
	}
	return NewResolver(in, db.Dialect), nil
}

// Resolve picks the table, key and columns of d present in the schema. A
// required column that cannot be found fails the whole resolution, before
// any statement is built.
func (r *Resolver) Resolve(ctx context.Context, d *Descriptor) (*Table, error) {
	name, err := r.in.FirstExistingTable(ctx, d.Tables...)
	if err != nil {
		if errors.Is(err, catalog.ErrTableNotFound) {
			return nil, &ResolutionError{Entity: d.Entity, Role: "table", Candidates: d.Tables, Err: catalog.ErrTableNotFound}
		}
		return nil, err
	}

	cols, err := r.in.Describe(ctx, name)
	if err != nil {
		return nil, err
	}
	fks, err := r.in.ForeignKeys(ctx, name)
	if err != nil {
		return nil, err
	}

	t := &Table{Desc: d, Name: name, dialect: r.dialect}
	if err := r.resolveKey(ctx, t, cols); err != nil {
		return nil, err
	}

	claimed := []string{t.Key.Column}
	for _, c := range d.Columns {
		rc := ResolvedColumn{Column: c}
		if info, ref, ok := match(c, cols, fks, claimed); ok {
			rc.Physical = info.Name
			rc.DataType = info.Type
			rc.Class = catalog.ClassifyType(info.Type)
			rc.RefColumn = ref
			claimed = append(claimed, info.Name)
		} else if !c.Optional {
			return nil, &ResolutionError{Entity: d.Entity, Role: c.Name, Candidates: c.candidates(), Err: catalog.ErrColumnNotFound}
		}
		t.Columns = append(t.Columns, rc)
	}
	return t, nil
}

func (r *Resolver) resolveKey(ctx context.Context, t *Table, cols []catalog.ColumnInfo) error {
	d := t.Desc
	col, ok := catalog.FirstColumn(cols, d.Key.Candidates...)
	if !ok {
		if d.Key.RowIDFallback && r.dialect.RowID() != "" {
			t.Key = ResolvedKey{Column: r.dialect.RowID(), Strategy: KeyRowID}
			return nil
		}
		return &ResolutionError{Entity: d.Entity, Role: "primary key", Candidates: d.Key.Candidates, Err: catalog.ErrNoKey}
	}

	t.Key = ResolvedKey{Column: col.Name, Strategy: KeyIdentity}
	if col.Identity {
		return nil
	}
	seq, err := r.in.FindSequence(ctx, t.Name, col.Name, d.Key.Sequences...)
	if err != nil {
		return err
	}
	if seq != "" {
		t.Key.Strategy = KeySequence
		t.Key.Sequence = seq
		return nil
	}
	t.Key.Strategy = KeyMax
	return nil
}

// match finds the physical column for c among the unclaimed columns.
// Foreign-key columns try declared foreign keys, then patterns, then exact
// candidates. Other columns try candidates before patterns.
func match(c Column, cols []catalog.ColumnInfo, fks []catalog.ForeignKey, claimed []string) (catalog.ColumnInfo, string, bool) {
	free := lo.Reject(cols, func(ci catalog.ColumnInfo, _ int) bool {
		return lo.ContainsBy(claimed, func(n string) bool { return strings.EqualFold(n, ci.Name) })
	})

	if len(c.References) > 0 {
		for _, ref := range c.References {
			if fk, ok := catalog.FirstFK(fks, claimed, ref); ok {
				if info, ok := catalog.FirstColumn(free, fk.Column); ok {
					return info, fk.RefColumn, true
				}
			}
		}
		if info, ok := catalog.ColumnLike(free, c.Patterns, nil); ok {
			return info, "", true
		}
		info, ok := catalog.FirstColumn(free, c.Candidates...)
		return info, "", ok
	}

	if info, ok := catalog.FirstColumn(free, c.Candidates...); ok {
		return info, "", true
	}
	info, ok := catalog.ColumnLike(free, c.Patterns, nil)
	return info, "", ok
}
