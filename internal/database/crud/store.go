// Package crud runs list/get/create/update/delete for any entity described
// by a query.Descriptor.
package crud

import (
	"context"
	"errors"
	"fmt"

	"github.com/mrlokans/biblioteca/internal/database"
	"github.com/mrlokans/biblioteca/internal/database/query"
)

var ErrNotFound = errors.New("record not found")

// Store is the generic repository. Every call resolves the descriptor
// against the schema as it is at that moment.
type Store struct {
	db   *database.Database
	desc *query.Descriptor
}

func NewStore(db *database.Database, desc *query.Descriptor) *Store {
	return &Store{db: db, desc: desc}
}

func (s *Store) DB() *database.Database {
	return s.db
}

func (s *Store) Descriptor() *query.Descriptor {
	return s.desc
}

// WithTx returns a store bound to an open transaction.
func (s *Store) WithTx(tx *database.Database) *Store {
	return &Store{db: tx, desc: s.desc}
}

// Resolve maps the descriptor onto the current schema.
func (s *Store) Resolve(ctx context.Context) (*query.Table, error) {
	r, err := query.ResolverFor(s.db)
	if err != nil {
		return nil, err
	}
	return r.Resolve(ctx, s.desc)
}

// List returns every row, newest first.
func (s *Store) List(ctx context.Context) ([]database.Row, error) {
	t, err := s.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := query.Rows(ctx, s.db, t.List())
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", s.desc.Entity, err)
	}
	t.Normalize(rows)
	return rows, nil
}

// Get returns one row or ErrNotFound.
func (s *Store) Get(ctx context.Context, id int64) (database.Row, error) {
	t, err := s.Resolve(ctx)
	if err != nil {
		return database.Row{}, err
	}
	rows, err := query.Rows(ctx, s.db, t.Get(id))
	if err != nil {
		return database.Row{}, fmt.Errorf("get %s %d: %w", s.desc.Entity, id, err)
	}
	if len(rows) == 0 {
		return database.Row{}, fmt.Errorf("%s %d: %w", s.desc.Entity, id, ErrNotFound)
	}
	t.Normalize(rows)
	return rows[0], nil
}

// Create inserts a row and returns its key.
func (s *Store) Create(ctx context.Context, f query.Fields) (int64, error) {
	var id int64
	err := s.db.Transaction(ctx, func(tx *database.Database) error {
		var err error
		id, err = s.WithTx(tx).create(ctx, f)
		return err
	})
	return id, err
}

// Update changes the fields present in f. A missing row is ErrNotFound.
func (s *Store) Update(ctx context.Context, id int64, f query.Fields) error {
	return s.db.Transaction(ctx, func(tx *database.Database) error {
		return s.WithTx(tx).update(ctx, id, f)
	})
}

// Delete removes a row. A missing row is ErrNotFound.
func (s *Store) Delete(ctx context.Context, id int64) error {
	return s.db.Transaction(ctx, func(tx *database.Database) error {
		return s.WithTx(tx).delete(ctx, id)
	})
}

// CreateTx, UpdateTx and DeleteTx run inside a caller's transaction so
// repositories can combine several writes into one unit.
func (s *Store) CreateTx(ctx context.Context, tx *database.Database, f query.Fields) (int64, error) {
	return s.WithTx(tx).create(ctx, f)
}

func (s *Store) UpdateTx(ctx context.Context, tx *database.Database, id int64, f query.Fields) error {
	return s.WithTx(tx).update(ctx, id, f)
}

func (s *Store) DeleteTx(ctx context.Context, tx *database.Database, id int64) error {
	return s.WithTx(tx).delete(ctx, id)
}

func (s *Store) create(ctx context.Context, f query.Fields) (int64, error) {
	t, err := s.Resolve(ctx)
	if err != nil {
		return 0, err
	}
	ins, err := t.Insert(f)
	if err != nil {
		return 0, err
	}
	id, err := query.InsertReturning(ctx, s.db, ins)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", s.desc.Entity, err)
	}
	return id, nil
}

func (s *Store) update(ctx context.Context, id int64, f query.Fields) error {
	t, err := s.Resolve(ctx)
	if err != nil {
		return err
	}
	upd, ok, err := t.Update(id, f)
	if err != nil || !ok {
		return err
	}
	n, err := query.Exec(ctx, s.db, upd)
	if err != nil {
		return fmt.Errorf("update %s %d: %w", s.desc.Entity, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", s.desc.Entity, id, ErrNotFound)
	}
	return nil
}

func (s *Store) delete(ctx context.Context, id int64) error {
	t, err := s.Resolve(ctx)
	if err != nil {
		return err
	}
	n, err := query.Exec(ctx, s.db, t.Delete(id))
	if err != nil {
		return fmt.Errorf("delete %s %d: %w", s.desc.Entity, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", s.desc.Entity, id, ErrNotFound)
	}
	return nil
}
