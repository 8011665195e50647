// Package languages stores book languages (IDIOMA). The label column is
// LENGUA in current schemas and IDIOMA_LIBRO or IDIOMA in older ones.
package languages

import (
	"github.com/mrlokans/biblioteca/internal/database"
	"github.com/mrlokans/biblioteca/internal/database/crud"
	"github.com/mrlokans/biblioteca/internal/database/query"
)

var Descriptor = &query.Descriptor{
	Entity: "language",
	Tables: []string{"IDIOMA", "IDIOMAS"},
	Key:    query.Key{Name: "ID_IDIOMA", Candidates: []string{"ID_IDIOMA", "ID"}},
	Columns: []query.Column{
		{
			Name:       "LENGUA",
			Candidates: []string{"LENGUA", "IDIOMA_LIBRO", "IDIOMA", "NOMBRE"},
			Inputs:     []string{"IDIOMA_LIBRO", "IDIOMA"},
		},
	},
}

type Repository struct {
	*crud.Store
}

func NewRepository(db *database.Database) *Repository {
	return &Repository{Store: crud.NewStore(db, Descriptor)}
}
