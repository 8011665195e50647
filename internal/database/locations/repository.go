// Package locations stores shelf locations (UBICACION).
package locations

import (
	"github.com/mrlokans/biblioteca/internal/database"
	"github.com/mrlokans/biblioteca/internal/database/crud"
	"github.com/mrlokans/biblioteca/internal/database/query"
)

var Descriptor = &query.Descriptor{
	Entity: "location",
	Tables: []string{"UBICACION", "UBICACIONES"},
	Key:    query.Key{Name: "ID_UBICACION", Candidates: []string{"ID_UBICACION", "ID"}},
	Columns: []query.Column{
		{Name: "ESTANTERIA", Candidates: []string{"ESTANTERIA", "ESTANTE"}},
		{Name: "DESCRIPCION", Candidates: []string{"DESCRIPCION"}, Optional: true},
	},
}

type Repository struct {
	*crud.Store
}

func NewRepository(db *database.Database) *Repository {
	return &Repository{Store: crud.NewStore(db, Descriptor)}
}
