// Package loans stores book loans (PRESTAMO). Lists are ordered by loan
// date, newest first.
package loans

import (
	"github.com/mrlokans/biblioteca/internal/database"
	"github.com/mrlokans/biblioteca/internal/database/crud"
	"github.com/mrlokans/biblioteca/internal/database/query"
)

var Descriptor = &query.Descriptor{
	Entity: "loan",
	Tables: []string{"PRESTAMO", "PRESTAMOS"},
	Key:    query.Key{Name: "ID_PRESTAMO", Candidates: []string{"ID_PRESTAMO", "ID"}},
	Columns: []query.Column{
		{Name: "FECHA_PRESTADO", Candidates: []string{"FECHA_PRESTADO", "FECHA_PRESTAMO"}, Type: query.KindDate},
		{Name: "FECH_CADUC", Candidates: []string{"FECH_CADUC", "FECHA_CADUCIDAD", "FECHA_DEVOLUCION"}, Type: query.KindDate, Optional: true},
		{Name: "ESTADO", Candidates: []string{"ESTADO"}, Optional: true},
		{Name: "ESTADO_FISIC", Candidates: []string{"ESTADO_FISIC", "ESTADO_FISICO"}, Optional: true},
		{
			Name:       "ID_LIBRO",
			References: []string{"LIBRO"},
			Patterns:   []string{"LIBRO", "ID_LIB"},
			Candidates: []string{"ID_LIBRO"},
			Inputs:     []string{"LIBRO_ID"},
			Type:       query.KindInt,
		},
		{
			Name:       "ID_USUARIO",
			References: []string{"USUARIO"},
			Patterns:   []string{"USUARIO", "ID_US"},
			Candidates: []string{"ID_USUARIO"},
			Inputs:     []string{"USUARIO_ID"},
			Type:       query.KindInt,
		},
	},
	OrderBy: "FECHA_PRESTADO",
}

type Repository struct {
	*crud.Store
}

func NewRepository(db *database.Database) *Repository {
	return &Repository{Store: crud.NewStore(db, Descriptor)}
}
