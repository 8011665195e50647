// Package history stores the loan history log. Its table and column names
// vary more than any other entity: the log has lived in HISTORIAL,
// HISTORIAL_PRESTAMO and BITACORA, sometimes without a key column, and has
// pointed at users, members or clients.
package history

import (
	"github.com/mrlokans/biblioteca/internal/database"
	"github.com/mrlokans/biblioteca/internal/database/crud"
	"github.com/mrlokans/biblioteca/internal/database/query"
)

// DefaultAction is recorded when an entry is created without one.
const DefaultAction = "ACTUALIZACION"

var Descriptor = &query.Descriptor{
	Entity: "loan history",
	Tables: []string{"HISTORIAL", "HISTORIAL_PRESTAMO", "BITACORA"},
	Key: query.Key{
		Name:          "ID_HISTORIAL",
		Candidates:    []string{"ID_HISTORIAL", "ID_HIST", "ID"},
		RowIDFallback: true,
	},
	Columns: []query.Column{
		{
			Name:       "ID_LIBRO",
			References: []string{"LIBRO"},
			Patterns:   []string{"LIBRO", "ID_LIB", "LIB"},
			Candidates: []string{"LIBRO_ID_LIBRO", "ID_LIBRO", "LIBRO"},
			Inputs:     []string{"LIBRO_ID", "LIBRO_ID_LIBRO"},
			Type:       query.KindInt,
		},
		{
			Name:            "ID_USUARIO",
			References:      []string{"USUARIO", "MIEMBRO", "CLIENTE"},
			Patterns:        []string{"USUARIO", "ID_US", "MIEMBRO", "CLIENTE", "ID_CLI"},
			Candidates:      []string{"USUARIO_ID_USUARIO", "ID_USUARIO"},
			Inputs:          []string{"USUARIO_ID", "USUARIO_ID_USUARIO", "ID_MIEMBRO"},
			Type:            query.KindInt,
			Optional:        true,
			RequiredOnWrite: true,
		},
		{
			Name:       "ACCION",
			Candidates: []string{"ACCION", "ACCION_REALIZADA", "EVENTO", "OPERACION", "DESCRIPCION", "DETALLE"},
			Inputs:     []string{"DETALLE", "DESCRIPCION"},
			Optional:   true,
			Default:    DefaultAction,
		},
		{
			Name:       "FECHA_EVENTO",
			Candidates: []string{"FECHA_EVENTO", "FECHA"},
			Patterns:   []string{"FECHA", "FEC", "CREA"},
			Type:       query.KindTimestamp,
			Optional:   true,
			OnCreate:   query.OnCreateNow,
		},
	},
	OrderBy: "FECHA_EVENTO",
}

type Repository struct {
	*crud.Store
}

func NewRepository(db *database.Database) *Repository {
	return &Repository{Store: crud.NewStore(db, Descriptor)}
}
