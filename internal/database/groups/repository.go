// Package groups stores reading groups (GRUPO_LECTURA) and the books each
// group reads (LIBRO_GRUPO).
//
// The join table comes in two layouts. In the newer one a group points at a
// book set through ID_LIBGRUP and LIBRO_GRUPO rows carry that set id. In the
// older one LIBRO_GRUPO rows carry the group id directly. Writes touching a
// group and its books run in one transaction.
package groups

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/mrlokans/biblioteca/internal/database"
	"github.com/mrlokans/biblioteca/internal/database/books"
	"github.com/mrlokans/biblioteca/internal/database/catalog"
	"github.com/mrlokans/biblioteca/internal/database/crud"
	"github.com/mrlokans/biblioteca/internal/database/query"
)

// BooksField is the input key carrying the group's book ids. When absent
// from an update the book set is left alone.
const BooksField = "LIBROS"

const setField = "ID_LIBGRUP"

var Descriptor = &query.Descriptor{
	Entity: "reading group",
	Tables: []string{"GRUPO_LECTURA", "GRUPOS_LECTURA"},
	Key: query.Key{
		Name:       "ID_GRUPO",
		Candidates: []string{"ID_GRUPO", "ID"},
		Sequences:  []string{"GRUPO_LECT_SEQ"},
	},
	Columns: []query.Column{
		{Name: "NOMBRE", Candidates: []string{"NOMBRE"}},
		{Name: "DESCRIPCION", Candidates: []string{"DESCRIPCION"}, Optional: true},
		{Name: "FECHA_REUNION", Candidates: []string{"FECHA_REUNION"}, Type: query.KindDate, Optional: true},
		{Name: "HORA_REUNION", Candidates: []string{"HORA_REUNION"}, Optional: true},
		{Name: "LUGAR", Candidates: []string{"LUGAR"}, Optional: true},
		{Name: setField, Candidates: []string{setField}, Type: query.KindInt, Optional: true, Internal: true},
	},
	OrderBy: "FECHA_REUNION",
}

var joinTables = []string{"LIBRO_GRUPO", "GRUPO_LIBRO"}

type Repository struct {
	*crud.Store
}

func NewRepository(db *database.Database) *Repository {
	return &Repository{Store: crud.NewStore(db, Descriptor)}
}

// joinTable is LIBRO_GRUPO as found in the live schema.
type joinTable struct {
	name  string
	link  string // set id or group id column
	book  string
	bySet bool
}

// Create inserts a group and its books.
func (r *Repository) Create(ctx context.Context, f query.Fields) (int64, error) {
	listed, _ := f.Lookup(BooksField)
	ids, err := BookIDs(listed)
	if err != nil {
		return 0, err
	}

	var id int64
	err = r.DB().Transaction(ctx, func(tx *database.Database) error {
		group, join, err := r.resolve(ctx, tx)
		if err != nil {
			return err
		}

		fields := withoutInternal(f)
		var link int64
		if join.bySet {
			if link, err = nextSetID(ctx, tx, group, join); err != nil {
				return err
			}
			fields[setField] = link
		}

		if id, err = r.CreateTx(ctx, tx, fields); err != nil {
			return err
		}
		if !join.bySet {
			link = id
		}
		return insertBooks(ctx, tx, join, link, ids)
	})
	return id, err
}

// Update changes the group's fields and, when the input names a book list,
// replaces its books.
func (r *Repository) Update(ctx context.Context, id int64, f query.Fields) error {
	var ids []int64
	listed, replace := f.Lookup(BooksField)
	if replace {
		var err error
		if ids, err = BookIDs(listed); err != nil {
			return err
		}
	}

	return r.DB().Transaction(ctx, func(tx *database.Database) error {
		if err := r.UpdateTx(ctx, tx, id, withoutInternal(f)); err != nil {
			return err
		}
		if !replace {
			return nil
		}
		return r.replaceBooks(ctx, tx, id, ids)
	})
}

// Delete removes the group's book links, then the group.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	return r.DB().Transaction(ctx, func(tx *database.Database) error {
		group, join, err := r.resolve(ctx, tx)
		if err != nil {
			return err
		}
		link, ok, err := linkID(ctx, tx, group, join, id)
		if err != nil {
			return err
		}
		if ok {
			if _, err := query.Exec(ctx, tx, sq.Delete(join.name).Where(sq.Eq{join.link: link})); err != nil {
				return fmt.Errorf("delete group books: %w", err)
			}
		}
		return r.DeleteTx(ctx, tx, id)
	})
}

// ReplaceBooks deletes every book link of the group and inserts one per id.
func (r *Repository) ReplaceBooks(ctx context.Context, id int64, bookIDs []int64) error {
	return r.DB().Transaction(ctx, func(tx *database.Database) error {
		return r.replaceBooks(ctx, tx, id, bookIDs)
	})
}

// ListBooks returns ID_LIBRO and TITULO of the group's books by title.
func (r *Repository) ListBooks(ctx context.Context, id int64) ([]database.Row, error) {
	group, join, err := r.resolve(ctx, r.DB())
	if err != nil {
		return nil, err
	}
	link, ok, err := linkID(ctx, r.DB(), group, join, id)
	if err != nil || !ok {
		return nil, err
	}

	resolver, err := query.ResolverFor(r.DB())
	if err != nil {
		return nil, err
	}
	book, err := resolver.Resolve(ctx, books.Descriptor)
	if err != nil {
		return nil, err
	}

	title := book.Ref(book.Physical("TITULO"))
	sel := sq.Select(
		query.Alias(join.name+"."+join.book, "ID_LIBRO"),
		query.Alias(title, "TITULO"),
	).
		From(join.name).
		Join(fmt.Sprintf("%s ON %s = %s.%s", book.Name, book.KeyRef(), join.name, join.book)).
		Where(sq.Eq{join.name + "." + join.link: link}).
		OrderBy(title)
	return query.Rows(ctx, r.DB(), sel)
}

func (r *Repository) replaceBooks(ctx context.Context, tx *database.Database, id int64, ids []int64) error {
	group, join, err := r.resolve(ctx, tx)
	if err != nil {
		return err
	}
	link, ok, err := linkID(ctx, tx, group, join, id)
	if err != nil {
		return err
	}
	if !ok {
		if link, err = nextSetID(ctx, tx, group, join); err != nil {
			return err
		}
		if err := r.UpdateTx(ctx, tx, id, query.Fields{setField: link}); err != nil {
			return err
		}
	}

	if _, err := query.Exec(ctx, tx, sq.Delete(join.name).Where(sq.Eq{join.link: link})); err != nil {
		return fmt.Errorf("clear group books: %w", err)
	}
	return insertBooks(ctx, tx, join, link, ids)
}

func (r *Repository) resolve(ctx context.Context, db *database.Database) (*query.Table, *joinTable, error) {
	group, err := r.WithTx(db).Resolve(ctx)
	if err != nil {
		return nil, nil, err
	}

	in, err := catalog.New(db)
	if err != nil {
		return nil, nil, err
	}
	name, err := in.FirstExistingTable(ctx, joinTables...)
	if err != nil {
		return nil, nil, &query.ResolutionError{Entity: Descriptor.Entity, Role: "book join table", Candidates: joinTables, Err: err}
	}
	cols, err := in.Describe(ctx, name)
	if err != nil {
		return nil, nil, err
	}

	join := &joinTable{name: name}
	if group.Physical(setField) != "" {
		if c, ok := catalog.FirstColumn(cols, setField); ok {
			join.link, join.bySet = c.Name, true
		}
	}
	if join.link == "" {
		c, ok := catalog.FirstColumn(cols, "ID_GRUPO", "GRUPO_ID", "ID_GRUPO_LECTURA")
		if !ok {
			return nil, nil, &query.ResolutionError{Entity: Descriptor.Entity, Role: "book join group column",
				Candidates: []string{setField, "ID_GRUPO", "GRUPO_ID", "ID_GRUPO_LECTURA"}, Err: catalog.ErrColumnNotFound}
		}
		join.link = c.Name
	}

	book, err := in.FindFKTo(ctx, name, "LIBRO")
	if err != nil {
		return nil, nil, err
	}
	if book == "" {
		c, ok := catalog.FirstColumn(cols, "ID_LIBRO", "LIBRO_ID_LIBRO", "LIBRO_ID")
		if !ok {
			return nil, nil, &query.ResolutionError{Entity: Descriptor.Entity, Role: "book join book column",
				Candidates: []string{"ID_LIBRO", "LIBRO_ID_LIBRO", "LIBRO_ID"}, Err: catalog.ErrColumnNotFound}
		}
		book = c.Name
	}
	join.book = book
	return group, join, nil
}

// linkID returns the value join rows of group id carry. ok is false when
// the group has no book set yet. A missing group is crud.ErrNotFound in
// both layouts.
func linkID(ctx context.Context, db *database.Database, group *query.Table, join *joinTable, id int64) (int64, bool, error) {
	sel := sq.Select(query.Alias(group.KeyRef(), "ID_GRUPO")).
		From(group.Name).
		Where(sq.Eq{group.KeyRef(): id})
	if join.bySet {
		sel = sel.Column(query.Alias(group.Ref(group.Physical(setField)), setField))
	}
	rows, err := query.Rows(ctx, db, sel)
	if err != nil {
		return 0, false, fmt.Errorf("read book set of group %d: %w", id, err)
	}
	if len(rows) == 0 {
		return 0, false, fmt.Errorf("reading group %d: %w", id, crud.ErrNotFound)
	}
	if !join.bySet {
		return id, true, nil
	}
	link, ok := rows[0].Int64(setField)
	return link, ok, nil
}

// nextSetID allocates a book set id unused by both the join table and the
// groups table, so a group created without books never shares its set.
func nextSetID(ctx context.Context, db *database.Database, group *query.Table, join *joinTable) (int64, error) {
	q := fmt.Sprintf(
		"SELECT COALESCE(MAX(M), 0) + 1 AS NEXT_ID FROM (SELECT MAX(%s) AS M FROM %s UNION ALL SELECT MAX(%s) AS M FROM %s) S",
		join.link, join.name, group.Physical(setField), group.Name)
	row, err := db.QueryRow(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("allocate book set: %w", err)
	}
	id, ok := row.Int64("NEXT_ID")
	if !ok {
		return 0, fmt.Errorf("allocate book set: unexpected value %v", row.Get("NEXT_ID"))
	}
	return id, nil
}

func insertBooks(ctx context.Context, db *database.Database, join *joinTable, link int64, ids []int64) error {
	for _, bookID := range ids {
		ins := sq.Insert(join.name).Columns(join.link, join.book).Values(link, bookID)
		if _, err := query.Exec(ctx, db, ins); err != nil {
			return fmt.Errorf("add book %d to group: %w", bookID, err)
		}
	}
	return nil
}

func withoutInternal(f query.Fields) query.Fields {
	out := make(query.Fields, len(f))
	for k, v := range f {
		if strings.EqualFold(k, setField) || strings.EqualFold(k, BooksField) {
			continue
		}
		out[k] = v
	}
	return out
}

// BookIDs reads a book id list from form or JSON input: a slice of ids or
// numeric strings, or one comma separated string. Duplicates are dropped.
func BookIDs(v any) ([]int64, error) {
	var raw []any
	switch x := v.(type) {
	case nil:
		return nil, nil
	case []int64:
		for _, id := range x {
			raw = append(raw, id)
		}
	case []string:
		for _, s := range x {
			raw = append(raw, s)
		}
	case []any:
		raw = x
	case string:
		for _, s := range strings.Split(x, ",") {
			raw = append(raw, s)
		}
	default:
		raw = []any{x}
	}

	seen := make(map[int64]bool, len(raw))
	var ids []int64
	for _, item := range raw {
		if s, ok := item.(string); ok {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			item = s
		}
		id, ok := database.ToInt64(item)
		if !ok {
			return nil, fmt.Errorf("%w: %s: %v is not a book id", query.ErrInvalidValue, BooksField, item)
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids, nil
}
