// Package users provides database operations for library users (USUARIO).
//
// The credential column is written like any other field but never returned
// by List or Get; FindAccount is the only read path that exposes it.
//
// # Usage
//
//	repo := users.NewRepository(db)
//	account, err := repo.FindAccount(ctx, "alice")
package users

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/mrlokans/biblioteca/internal/database"
	"github.com/mrlokans/biblioteca/internal/database/crud"
	"github.com/mrlokans/biblioteca/internal/database/query"
)

// CredentialField is the input key of the stored credential.
const CredentialField = "CONTRASENA"

var Descriptor = &query.Descriptor{
	Entity: "user",
	Tables: []string{"USUARIO", "USUARIOS"},
	Key:    query.Key{Name: "ID_USUARIO", Candidates: []string{"ID_USUARIO", "ID"}},
	Columns: []query.Column{
		{Name: "NOMBRE", Candidates: []string{"NOMBRE", "NOMBRE_USUARIO", "USERNAME"}},
		{Name: "NOMBRE_COMPLETO", Candidates: []string{"NOMBRE_COMPLETO"}, Optional: true},
		{Name: "ROL", Candidates: []string{"ROL", "ROLE"}, Optional: true},
		{Name: "DIRECCION", Candidates: []string{"DIRECCION"}, Optional: true},
		{Name: "TELEFONO", Candidates: []string{"TELEFONO"}, Optional: true},
		{Name: "DOCUMENTO", Candidates: []string{"DOCUMENTO", "DPI"}, Optional: true},
		{Name: "SEXO", Candidates: []string{"SEXO"}, Optional: true},
		{Name: "FECHA_REGISTRO", Candidates: []string{"FECHA_REGISTRO", "FECHA_CREACION"}, Type: query.KindDate, OnCreate: query.OnCreateNow, Optional: true},
		{
			Name:       CredentialField,
			Candidates: []string{"CONTRASENA", "CONTRASENIA", "PASSWORD", "CLAVE", "PASS"},
			Patterns:   []string{"CONTRA", "PASS", "CLAVE"},
			Inputs:     []string{"PASSWORD"},
			Hidden:     true,
			Optional:   true,
		},
	},
}

// Account is what the login check needs about a user.
type Account struct {
	ID         int64
	Name       string
	Role       string
	Credential string
}

// Repository handles all user database operations.
type Repository struct {
	*crud.Store
}

// NewRepository creates a new users repository.
func NewRepository(db *database.Database) *Repository {
	return &Repository{Store: crud.NewStore(db, Descriptor)}
}

// FindByName retrieves a user by login name, ignoring case.
func (r *Repository) FindByName(ctx context.Context, name string) (database.Row, error) {
	t, err := r.Resolve(ctx)
	if err != nil {
		return database.Row{}, err
	}
	rows, err := query.Rows(ctx, r.DB(), t.Select().Where(byName(t, name)).Limit(1))
	if err != nil {
		return database.Row{}, fmt.Errorf("find user %q: %w", name, err)
	}
	if len(rows) == 0 {
		return database.Row{}, fmt.Errorf("user %q: %w", name, crud.ErrNotFound)
	}
	t.Normalize(rows)
	return rows[0], nil
}

// FindAccount retrieves the login data of a user. The credential is empty
// when the schema has no credential column.
func (r *Repository) FindAccount(ctx context.Context, name string) (*Account, error) {
	t, err := r.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	sel := sq.Select(
		query.Alias(t.KeyRef(), "ID"),
		t.SelectExpr("NOMBRE"),
		t.SelectExpr("ROL"),
		t.SelectExpr(CredentialField),
	).From(t.Name).Where(byName(t, name)).Limit(1)

	rows, err := query.Rows(ctx, r.DB(), sel)
	if err != nil {
		return nil, fmt.Errorf("find account %q: %w", name, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("user %q: %w", name, crud.ErrNotFound)
	}
	row := rows[0]
	id, _ := row.Int64("ID")
	return &Account{
		ID:         id,
		Name:       row.String("NOMBRE"),
		Role:       row.String("ROL"),
		Credential: row.String(CredentialField),
	}, nil
}

// IsNotFound reports whether err means the user does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, crud.ErrNotFound)
}

func byName(t *query.Table, name string) sq.Sqlizer {
	return sq.Expr(fmt.Sprintf("UPPER(%s) = UPPER(?)", t.Ref(t.Physical("NOMBRE"))), name)
}
