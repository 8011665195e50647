package query

import (
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/rs/zerolog/log"

	"github.com/mrlokans/biblioteca/internal/database"
	"github.com/mrlokans/biblioteca/internal/database/catalog"
)

// Table is a descriptor resolved against the live schema. Every identifier
// it writes into SQL comes from the catalog; values are always bound.
type Table struct {
	Desc    *Descriptor
	Name    string
	Key     ResolvedKey
	Columns []ResolvedColumn
	dialect database.Dialect
}

func (t *Table) Dialect() database.Dialect {
	return t.dialect
}

// Ref qualifies a physical column with the table name.
func (t *Table) Ref(column string) string {
	return t.Name + "." + column
}

func (t *Table) KeyRef() string {
	return t.Ref(t.Key.Column)
}

// Column returns the resolved column with the given logical name.
func (t *Table) Column(name string) (ResolvedColumn, bool) {
	for _, c := range t.Columns {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return ResolvedColumn{}, false
}

// Physical returns the physical name of a logical column, or "" when the
// column is absent.
func (t *Table) Physical(name string) string {
	c, _ := t.Column(name)
	return c.Physical
}

// SelectExprs lists the key and every visible column, aliased to their
// logical names. Absent optional columns read as NULL.
func (t *Table) SelectExprs() []string {
	exprs := []string{fmt.Sprintf("%s AS %s", t.KeyRef(), quote(t.Desc.Key.Name))}
	for _, c := range t.Columns {
		if c.Hidden {
			continue
		}
		exprs = append(exprs, t.selectColumn(c))
	}
	return exprs
}

// SelectExpr returns the aliased select expression of one logical column,
// NULL when the column is absent or unknown.
func (t *Table) SelectExpr(name string) string {
	c, ok := t.Column(name)
	if !ok {
		return "NULL AS " + quote(name)
	}
	return t.selectColumn(c)
}

func (t *Table) selectColumn(c ResolvedColumn) string {
	if !c.Present() {
		return "NULL AS " + quote(c.Name)
	}
	ref := t.Ref(c.Physical)
	if c.Type == KindTimestamp && c.Class == catalog.TypeClassDate {
		ref = t.dialect.FormatTimestamp(ref)
	}
	return fmt.Sprintf("%s AS %s", ref, quote(c.Name))
}

func (t *Table) Select() sq.SelectBuilder {
	return sq.Select(t.SelectExprs()...).From(t.Name)
}

// OrderBy sorts descending by the descriptor's order column, when present,
// then by key.
func (t *Table) OrderBy() []string {
	var order []string
	if t.Desc.OrderBy != "" {
		if phys := t.Physical(t.Desc.OrderBy); phys != "" {
			order = append(order, t.Ref(phys)+" DESC")
		}
	}
	return append(order, t.KeyRef()+" DESC")
}

func (t *Table) List() sq.SelectBuilder {
	return t.Select().OrderBy(t.OrderBy()...)
}

func (t *Table) Get(id int64) sq.SelectBuilder {
	return t.Select().Where(sq.Eq{t.KeyRef(): id})
}

// Insert builds an INSERT returning the new key. The key comes from the
// input when supplied, otherwise from the resolved key strategy.
func (t *Table) Insert(f Fields) (sq.InsertBuilder, error) {
	var cols []string
	var vals []any

	if v, ok := f.Lookup(t.Desc.Key.Name); ok && !isEmpty(v) && t.Key.Strategy != KeyRowID {
		id, ok := parseInt(v)
		if !ok {
			return sq.InsertBuilder{}, invalid(t.Desc.Key.Name, "%q is not a whole number", text(v))
		}
		cols, vals = append(cols, t.Key.Column), append(vals, id)
	} else {
		switch t.Key.Strategy {
		case KeySequence:
			cols, vals = append(cols, t.Key.Column), append(vals, sq.Expr(t.dialect.NextVal(t.Key.Sequence)))
		case KeyMax:
			next := fmt.Sprintf("(SELECT COALESCE(MAX(%s), 0) + 1 FROM %s)", t.Key.Column, t.Name)
			cols, vals = append(cols, t.Key.Column), append(vals, sq.Expr(next))
		}
	}

	for _, c := range t.Columns {
		v, ok := f.Lookup(c.inputKeys()...)
		if !c.Present() {
			if c.RequiredOnWrite {
				return sq.InsertBuilder{}, &ResolutionError{Entity: t.Desc.Entity, Role: c.Name, Candidates: c.candidates(), Err: catalog.ErrColumnNotFound}
			}
			t.dropped(c, ok)
			continue
		}
		if !ok || isEmpty(v) {
			switch {
			case c.OnCreate == OnCreateNow:
				if expr, ok := now(t.dialect, c); ok {
					cols, vals = append(cols, c.Physical), append(vals, expr)
				}
				continue
			case c.Default != nil:
				v = c.Default
			case c.RequiredOnWrite:
				return sq.InsertBuilder{}, invalid(c.Name, "a value is required")
			case !ok:
				continue
			}
		}
		bound, err := bind(t.dialect, c, v)
		if err != nil {
			return sq.InsertBuilder{}, err
		}
		cols, vals = append(cols, c.Physical), append(vals, bound)
	}

	if len(cols) == 0 {
		return sq.InsertBuilder{}, invalid(t.Desc.Entity, "nothing to insert")
	}
	return sq.Insert(t.Name).
		Columns(cols...).
		Values(vals...).
		Suffix(fmt.Sprintf("RETURNING %s AS %s", t.Key.Column, quote(t.Desc.Key.Name))), nil
}

// Update builds an UPDATE setting only the fields present in f. It returns
// false when nothing would change.
func (t *Table) Update(id int64, f Fields) (sq.UpdateBuilder, bool, error) {
	b := sq.Update(t.Name)
	n := 0
	for _, c := range t.Columns {
		v, ok := f.Lookup(c.inputKeys()...)
		if !c.Present() {
			t.dropped(c, ok)
			continue
		}
		if !ok {
			continue
		}
		bound, err := bind(t.dialect, c, v)
		if err != nil {
			return b, false, err
		}
		b = b.Set(c.Physical, bound)
		n++
	}
	if n == 0 {
		return b, false, nil
	}
	return b.Where(sq.Eq{t.Key.Column: id}), true, nil
}

func (t *Table) Delete(id int64) sq.DeleteBuilder {
	return sq.Delete(t.Name).Where(sq.Eq{t.Key.Column: id})
}

// Bind converts a value for the logical column name the way Insert and
// Update would.
func (t *Table) Bind(name string, v any) (any, error) {
	c, ok := t.Column(name)
	if !ok {
		return nil, fmt.Errorf("%s: unknown column %s", t.Desc.Entity, name)
	}
	return bind(t.dialect, c, v)
}

// Equals builds a predicate matching the logical column against v. Empty v
// matches NULL.
func (t *Table) Equals(name string, v any) (sq.Sqlizer, error) {
	c, ok := t.Column(name)
	if !ok || !c.Present() {
		return nil, fmt.Errorf("%s: column %s is not available", t.Desc.Entity, name)
	}
	bound, err := bind(t.dialect, c, v)
	if err != nil {
		return nil, err
	}
	if bound == nil {
		return sq.Expr(t.Ref(c.Physical) + " IS NULL"), nil
	}
	return sq.Expr(t.Ref(c.Physical)+" = ?", bound), nil
}

// Normalize rewrites driver time values of date-like columns as text:
// YYYY-MM-DD for dates and years, YYYY-MM-DD HH:MM:SS for timestamps.
func (t *Table) Normalize(rows []database.Row) {
	for _, row := range rows {
		vals := row.Values()
		for i, name := range row.Columns() {
			ts, ok := vals[i].(time.Time)
			if !ok {
				continue
			}
			c, _ := t.Column(name)
			if c.Type == KindTimestamp {
				vals[i] = ts.Format(timestampLayout)
			} else {
				vals[i] = database.ShortDate(ts)
			}
		}
	}
}

func (t *Table) dropped(c ResolvedColumn, provided bool) {
	if !provided {
		return
	}
	log.Debug().
		Str("entity", t.Desc.Entity).
		Str("field", c.Name).
		Msg("Column absent from schema, value dropped")
}

func quote(alias string) string {
	return `"` + strings.ReplaceAll(alias, `"`, "") + `"`
}

// Alias renders "expr AS "name"" for hand-built select lists.
func Alias(expr, name string) string {
	return expr + " AS " + quote(name)
}
