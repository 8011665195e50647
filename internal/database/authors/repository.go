// Package authors stores authors (AUTOR).
package authors

import (
	"github.com/mrlokans/biblioteca/internal/database"
	"github.com/mrlokans/biblioteca/internal/database/crud"
	"github.com/mrlokans/biblioteca/internal/database/query"
)

var Descriptor = &query.Descriptor{
	Entity: "author",
	Tables: []string{"AUTOR", "AUTORES"},
	Key:    query.Key{Name: "ID_AUTOR", Candidates: []string{"ID_AUTOR", "ID"}},
	Columns: []query.Column{
		{Name: "NOMBRE", Candidates: []string{"NOMBRE", "NOMBRES"}},
		{Name: "APELLIDO", Candidates: []string{"APELLIDO", "APELLIDOS"}, Optional: true},
		{Name: "FECH_NACIMIENT", Candidates: []string{"FECH_NACIMIENT", "FECHA_NACIMIENTO"}, Type: query.KindDate, Optional: true},
		{Name: "NACIONALIDAD", Candidates: []string{"NACIONALIDAD"}, Optional: true},
		{Name: "BIOGRAFIA", Candidates: []string{"BIOGRAFIA"}, Optional: true},
	},
}

type Repository struct {
	*crud.Store
}

func NewRepository(db *database.Database) *Repository {
	return &Repository{Store: crud.NewStore(db, Descriptor)}
}
