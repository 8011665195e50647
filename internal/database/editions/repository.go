// Package editions links books to the publishers that issued them.
//
// Older schemas keep one flat row per link (LIBRO_EDIT, LIBRO_EDICION). The
// normalized layout stores each distinct book, publisher and date triple
// once in LIBRO_EDIT and points EDIT_LIB rows at it. There, creating a link
// first finds or creates the parent row; two writers racing to create the
// same parent both end up referencing the single row that wins.
package editions

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/rs/zerolog/log"

	"github.com/mrlokans/biblioteca/internal/database"
	"github.com/mrlokans/biblioteca/internal/database/crud"
	"github.com/mrlokans/biblioteca/internal/database/query"
)

const (
	BookField      = "LIBRO_ID"
	PublisherField = "EDITORIAL_ID"
	DateField      = "FECHA"

	parentField = "LIBRO_EDIT_ID"
	parentAlias = "P"
)

var (
	bookInputs      = []string{BookField, "ID_LIBRO"}
	publisherInputs = []string{PublisherField, "ID_VAREDIT", "ID_EDITORIAL", "VAREDIT_ID", "EDITORIAL"}
	dateInputs      = []string{DateField, "FECHA_EDICION"}
)

// Descriptor describes the link rows users list and edit.
var Descriptor = &query.Descriptor{
	Entity: "book edition",
	Tables: []string{"EDIT_LIB", "LIBRO_EDIT", "LIBRO_EDITORIAL", "LIBRO_EDICION"},
	Key: query.Key{
		Name:       "ID_EDIT_LIB",
		Candidates: []string{"ID_EDIT_LIB", "ID_LIBRO_EDIT", "ID_EDIT", "ID"},
	},
	Columns: []query.Column{
		{
			Name:       parentField,
			References: []string{"LIBRO_EDIT"},
			Patterns:   []string{"LIBRO_EDIT", "EDIT_ID"},
			Type:       query.KindInt,
			Optional:   true,
			Internal:   true,
		},
		{
			Name:       BookField,
			References: []string{"LIBRO"},
			Patterns:   []string{"LIBRO", "ID_LIB"},
			Candidates: []string{"ID_LIBRO"},
			Inputs:     bookInputs[1:],
			Type:       query.KindInt,
			Optional:   true,
		},
		{
			Name:       PublisherField,
			References: []string{"EDITORIAL"},
			Candidates: []string{"ID_VAREDIT", "EDITORIAL_ID", "ID_EDITORIAL"},
			Patterns:   []string{"VAREDIT", "EDITOR"},
			Inputs:     publisherInputs[1:],
			Type:       query.KindInt,
			Optional:   true,
		},
		{
			Name:     DateField,
			Patterns: []string{"FECHA_EDICION", "FECHA", "FEC_EDI", "FEC"},
			Inputs:   dateInputs[1:],
			Type:     query.KindDate,
			Optional: true,
		},
	},
}

// ParentDescriptor describes LIBRO_EDIT when it acts as the parent of
// EDIT_LIB rows.
var ParentDescriptor = &query.Descriptor{
	Entity: "book edition parent",
	Tables: []string{"LIBRO_EDIT"},
	Key:    query.Key{Name: parentField, Candidates: []string{"ID_LIBRO_EDIT", "ID"}},
	Columns: []query.Column{
		{
			Name:       BookField,
			References: []string{"LIBRO"},
			Patterns:   []string{"LIBRO", "ID_LIB"},
			Candidates: []string{"ID_LIBRO"},
			Type:       query.KindInt,
		},
		{
			Name:       PublisherField,
			References: []string{"EDITORIAL"},
			Candidates: []string{"ID_VAREDIT", "ID_EDITORIAL", "EDITORIAL_ID"},
			Patterns:   []string{"VAREDIT", "EDITOR"},
			Type:       query.KindInt,
		},
		{
			Name:       DateField,
			Candidates: []string{"FECHA_EDICION", "FECHA"},
			Patterns:   []string{"FECHA", "FEC"},
			Type:       query.KindDate,
			Optional:   true,
		},
	},
}

type Repository struct {
	*crud.Store
	parents *crud.Store

	// afterParentLookup runs between a failed parent lookup and the parent
	// insert.
	afterParentLookup func(ctx context.Context, tx *database.Database)
}

func NewRepository(db *database.Database) *Repository {
	return &Repository{
		Store:   crud.NewStore(db, Descriptor),
		parents: crud.NewStore(db, ParentDescriptor),
	}
}

// Normalized reports whether the live schema stores links through a parent
// table.
func (r *Repository) Normalized(ctx context.Context) (bool, error) {
	t, err := r.Resolve(ctx)
	if err != nil {
		return false, err
	}
	return normalized(t), nil
}

func normalized(t *query.Table) bool {
	return t.Physical(parentField) != ""
}

// link is the book, publisher and date a link row stands for.
type link struct {
	book, publisher, date any
}

func linkFrom(f query.Fields) (link, error) {
	l := link{}
	l.book, _ = f.Lookup(bookInputs...)
	l.publisher, _ = f.Lookup(publisherInputs...)
	l.date, _ = f.Lookup(dateInputs...)
	if isBlank(l.book) {
		return l, fmt.Errorf("%w: %s: a book is required", query.ErrInvalidValue, BookField)
	}
	if isBlank(l.publisher) {
		return l, fmt.Errorf("%w: %s: a publisher is required", query.ErrInvalidValue, PublisherField)
	}
	return l, nil
}

func (l link) fields() query.Fields {
	return query.Fields{BookField: l.book, PublisherField: l.publisher, DateField: l.date}
}

func (r *Repository) List(ctx context.Context) ([]database.Row, error) {
	t, err := r.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	if !normalized(t) {
		return r.Store.List(ctx)
	}
	sel, err := r.joinedSelect(ctx, r.DB(), t)
	if err != nil {
		return nil, err
	}
	rows, err := query.Rows(ctx, r.DB(), sel.OrderBy(t.KeyRef()+" DESC"))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", Descriptor.Entity, err)
	}
	t.Normalize(rows)
	return rows, nil
}

func (r *Repository) Get(ctx context.Context, id int64) (database.Row, error) {
	t, err := r.Resolve(ctx)
	if err != nil {
		return database.Row{}, err
	}
	if !normalized(t) {
		return r.Store.Get(ctx, id)
	}
	sel, err := r.joinedSelect(ctx, r.DB(), t)
	if err != nil {
		return database.Row{}, err
	}
	rows, err := query.Rows(ctx, r.DB(), sel.Where(sq.Eq{t.KeyRef(): id}))
	if err != nil {
		return database.Row{}, fmt.Errorf("get %s %d: %w", Descriptor.Entity, id, err)
	}
	if len(rows) == 0 {
		return database.Row{}, fmt.Errorf("%s %d: %w", Descriptor.Entity, id, crud.ErrNotFound)
	}
	t.Normalize(rows)
	return rows[0], nil
}

// Create records a link. In the normalized layout it reuses or creates the
// parent row and inserts a child pointing at it, all in one transaction.
func (r *Repository) Create(ctx context.Context, f query.Fields) (int64, error) {
	l, err := linkFrom(f)
	if err != nil {
		return 0, err
	}

	var id int64
	err = r.DB().Transaction(ctx, func(tx *database.Database) error {
		t, err := r.WithTx(tx).Resolve(ctx)
		if err != nil {
			return err
		}
		if !normalized(t) {
			id, err = r.CreateTx(ctx, tx, l.fields())
			return err
		}

		parent, err := r.ensureParent(ctx, tx, l)
		if err != nil {
			return err
		}
		id, err = r.CreateTx(ctx, tx, query.Fields{parentField: parent})
		return err
	})
	return id, err
}

// Update changes a link. In the normalized layout the child is repointed at
// the parent matching the merged values; the old parent is left in place.
func (r *Repository) Update(ctx context.Context, id int64, f query.Fields) error {
	return r.DB().Transaction(ctx, func(tx *database.Database) error {
		t, err := r.WithTx(tx).Resolve(ctx)
		if err != nil {
			return err
		}
		if !normalized(t) {
			return r.UpdateTx(ctx, tx, id, withoutParent(f))
		}

		current, err := r.withTx(tx).Get(ctx, id)
		if err != nil {
			return err
		}
		merged := query.Fields{
			BookField:      current.Get(BookField),
			PublisherField: current.Get(PublisherField),
			DateField:      current.Get(DateField),
		}
		for name, inputs := range map[string][]string{BookField: bookInputs, PublisherField: publisherInputs, DateField: dateInputs} {
			if v, ok := f.Lookup(inputs...); ok {
				merged[name] = v
			}
		}
		l, err := linkFrom(merged)
		if err != nil {
			return err
		}

		parent, err := r.ensureParent(ctx, tx, l)
		if err != nil {
			return err
		}
		return r.UpdateTx(ctx, tx, id, query.Fields{parentField: parent})
	})
}

// Delete removes the link row. Parent rows are shared and stay.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	return r.Store.Delete(ctx, id)
}

func (r *Repository) withTx(tx *database.Database) *Repository {
	return &Repository{
		Store:             r.WithTx(tx),
		parents:           r.parents.WithTx(tx),
		afterParentLookup: r.afterParentLookup,
	}
}

// ensureParent returns the key of the parent row matching l, inserting it
// when missing. The insert runs in a savepoint: when a concurrent writer
// created the same row first, the unique violation is absorbed and the
// winner's row is read back.
func (r *Repository) ensureParent(ctx context.Context, tx *database.Database, l link) (int64, error) {
	parents := r.parents.WithTx(tx)
	pt, err := parents.Resolve(ctx)
	if err != nil {
		return 0, err
	}

	match, err := parentMatch(pt, l)
	if err != nil {
		return 0, err
	}
	find := func() (int64, bool, error) {
		sel := sq.Select(query.Alias(pt.KeyRef(), parentField)).
			From(pt.Name).
			Where(match).
			OrderBy(pt.KeyRef()).
			Limit(1)
		rows, err := query.Rows(ctx, tx, sel)
		if err != nil || len(rows) == 0 {
			return 0, false, err
		}
		id, ok := rows[0].Int64(parentField)
		return id, ok, nil
	}

	if id, ok, err := find(); err != nil || ok {
		return id, err
	}
	if r.afterParentLookup != nil {
		r.afterParentLookup(ctx, tx)
	}

	var id int64
	err = tx.Transaction(ctx, func(sp *database.Database) error {
		var err error
		id, err = parents.CreateTx(ctx, sp, l.fields())
		return err
	})
	if err == nil {
		return id, nil
	}
	if !database.IsUniqueViolation(err) {
		return 0, err
	}

	log.Debug().
		Interface("book", l.book).
		Interface("publisher", l.publisher).
		Msg("Edition parent created concurrently, reusing it")
	id, ok, ferr := find()
	if ferr != nil {
		return 0, ferr
	}
	if !ok {
		return 0, fmt.Errorf("edition parent vanished after unique violation: %w", err)
	}
	return id, nil
}

func parentMatch(pt *query.Table, l link) (sq.And, error) {
	values := map[string]any{BookField: l.book, PublisherField: l.publisher, DateField: l.date}
	var match sq.And
	for _, name := range []string{BookField, PublisherField, DateField} {
		if pt.Physical(name) == "" {
			continue
		}
		e, err := pt.Equals(name, values[name])
		if err != nil {
			return nil, err
		}
		match = append(match, e)
	}
	if len(match) == 0 {
		return nil, errors.New("edition parent has no matchable columns")
	}
	return match, nil
}

// joinedSelect reads child rows with the parent's values under the logical
// names of the flat layout.
func (r *Repository) joinedSelect(ctx context.Context, db *database.Database, t *query.Table) (sq.SelectBuilder, error) {
	pt, err := r.parents.WithTx(db).Resolve(ctx)
	if err != nil {
		return sq.SelectBuilder{}, err
	}

	cols := []string{
		query.Alias(t.KeyRef(), Descriptor.Key.Name),
		t.SelectExpr(parentField),
	}
	for _, name := range []string{BookField, PublisherField, DateField} {
		if phys := pt.Physical(name); phys != "" {
			cols = append(cols, query.Alias(parentAlias+"."+phys, name))
		} else {
			cols = append(cols, query.Alias("NULL", name))
		}
	}

	on := fmt.Sprintf("%s %s ON %s.%s = %s",
		pt.Name, parentAlias, parentAlias, pt.Key.Column, t.Ref(t.Physical(parentField)))
	return sq.Select(cols...).From(t.Name).LeftJoin(on), nil
}

func withoutParent(f query.Fields) query.Fields {
	out := make(query.Fields, len(f))
	for k, v := range f {
		if !strings.EqualFold(k, parentField) {
			out[k] = v
		}
	}
	return out
}

func isBlank(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	default:
		return false
	}
}
