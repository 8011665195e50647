// Package members stores reading group memberships (MIEMBRO).
package members

import (
	"github.com/mrlokans/biblioteca/internal/database"
	"github.com/mrlokans/biblioteca/internal/database/crud"
	"github.com/mrlokans/biblioteca/internal/database/query"
)

var Descriptor = &query.Descriptor{
	Entity: "member",
	Tables: []string{"MIEMBRO", "MIEMBROS"},
	Key:    query.Key{Name: "ID_MIEMBRO", Candidates: []string{"ID_MIEMBRO", "ID"}},
	Columns: []query.Column{
		{
			Name:       "ID_USUARIO",
			References: []string{"USUARIO"},
			Patterns:   []string{"USUARIO", "ID_US"},
			Candidates: []string{"ID_USUARIO"},
			Type:       query.KindInt,
		},
		{
			Name:       "ID_GRUPO",
			References: []string{"GRUPO_LECTURA"},
			Patterns:   []string{"GRUPO"},
			Candidates: []string{"ID_GRUPO"},
			Type:       query.KindInt,
		},
	},
}

type Repository struct {
	*crud.Store
}

func NewRepository(db *database.Database) *Repository {
	return &Repository{Store: crud.NewStore(db, Descriptor)}
}
