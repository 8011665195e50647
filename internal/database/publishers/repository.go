// Package publishers stores publishers (EDITORIAL). Deployed schemas key
// the table as ID_EDITORIAL, ID_VAREDIT or NUM_EDITORIAL and keep the
// edition year as a DATE, a number or text; rows always carry the key as
// EDITORIAL_ID and the year as ANO_EDICION.
package publishers

import (
	"github.com/mrlokans/biblioteca/internal/database"
	"github.com/mrlokans/biblioteca/internal/database/crud"
	"github.com/mrlokans/biblioteca/internal/database/query"
)

var Descriptor = &query.Descriptor{
	Entity: "publisher",
	Tables: []string{"EDITORIAL"},
	Key: query.Key{
		Name:       "EDITORIAL_ID",
		Candidates: []string{"ID_EDITORIAL", "ID_VAREDIT", "NUM_EDITORIAL"},
	},
	Columns: []query.Column{
		{Name: "NOMBRE", Candidates: []string{"NOMBRE"}},
		{Name: "PAIS", Candidates: []string{"PAIS"}, Optional: true},
		{
			Name:            "ANO_EDICION",
			Candidates:      []string{"ANO_EDICION", "ANIO_EDICION", "FECHA_EDICION", "FECHA"},
			Type:            query.KindYear,
			RequiredOnWrite: true,
		},
		{Name: "NUM_EDITORIAL", Candidates: []string{"NUM_EDITORIAL", "NUMERO_EDITORIAL"}, Optional: true},
	},
}

type Repository struct {
	*crud.Store
}

func NewRepository(db *database.Database) *Repository {
	return &Repository{Store: crud.NewStore(db, Descriptor)}
}
