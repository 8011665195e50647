// Package genres stores genres (GENERO).
package genres

import (
	"github.com/mrlokans/biblioteca/internal/database"
	"github.com/mrlokans/biblioteca/internal/database/crud"
	"github.com/mrlokans/biblioteca/internal/database/query"
)

var Descriptor = &query.Descriptor{
	Entity: "genre",
	Tables: []string{"GENERO", "GENEROS"},
	Key:    query.Key{Name: "ID_GENERO", Candidates: []string{"ID_GENERO", "ID"}},
	Columns: []query.Column{
		{Name: "GENERO", Candidates: []string{"GENERO", "NOMBRE", "DESCRIPCION"}},
		{
			Name:       "LIBRO_ID_LIBRO",
			References: []string{"LIBRO"},
			Candidates: []string{"LIBRO_ID_LIBRO", "ID_LIBRO"},
			Inputs:     []string{"ID_LIBRO"},
			Type:       query.KindInt,
			Optional:   true,
		},
	},
}

type Repository struct {
	*crud.Store
}

func NewRepository(db *database.Database) *Repository {
	return &Repository{Store: crud.NewStore(db, Descriptor)}
}
