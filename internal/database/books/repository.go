// Package books provides database operations for the book catalogue (LIBRO).
//
// The publication date lives in FECHA_PUBLICACION (a DATE) or, in older
// schemas, ANO_PUBL (a year number). Both are exposed as FECHA_PUBLICACION.
//
// # Usage
//
//	repo := books.NewRepository(db)
//	rows, err := repo.Report(ctx)
package books

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/mrlokans/biblioteca/internal/database"
	"github.com/mrlokans/biblioteca/internal/database/crud"
	"github.com/mrlokans/biblioteca/internal/database/genres"
	"github.com/mrlokans/biblioteca/internal/database/languages"
	"github.com/mrlokans/biblioteca/internal/database/publishers"
	"github.com/mrlokans/biblioteca/internal/database/query"
)

var Descriptor = &query.Descriptor{
	Entity: "book",
	Tables: []string{"LIBRO", "LIBROS"},
	Key:    query.Key{Name: "ID_LIBRO", Candidates: []string{"ID_LIBRO", "ID"}},
	Columns: []query.Column{
		{Name: "TITULO", Candidates: []string{"TITULO"}},
		{Name: "SUBTITULO", Candidates: []string{"SUBTITULO"}, Optional: true},
		{Name: "ISBN", Candidates: []string{"ISBN"}, Optional: true},
		{Name: "FECHA_PUBLICACION", Candidates: []string{"FECHA_PUBLICACION", "ANO_PUBL"}, Type: query.KindYear, Optional: true},
		{Name: "NUM_COPIAS", Candidates: []string{"NUM_COPIAS"}, Type: query.KindInt, Optional: true},
		{Name: "NUM_PAGINAS", Candidates: []string{"NUM_PAGINAS"}, Type: query.KindInt, Optional: true},
		{Name: "FECHA_REGISTRO", Candidates: []string{"FECHA_REGISTRO"}, Type: query.KindDate, OnCreate: query.OnCreateNow, Optional: true},
		{Name: "DESCRIPCION", Candidates: []string{"DESCRIPCION"}, Optional: true},
		{Name: "CLASIFICACION", Candidates: []string{"CLASIFICACION"}, Optional: true},
		{Name: "PERTENECE_GRUPO", Candidates: []string{"PERTENECE_GRUPO"}, Optional: true},
		{Name: "ESTADO_FISICO", Candidates: []string{"ESTADO_FISICO"}, Optional: true},
		{Name: "ID_VAREDIT", References: []string{"EDITORIAL"}, Candidates: []string{"ID_VAREDIT", "ID_EDITORIAL", "EDITORIAL_ID"}, Type: query.KindInt, Optional: true},
		{Name: "ID_GENERO", References: []string{"GENERO"}, Candidates: []string{"ID_GENERO", "GENERO_ID"}, Type: query.KindInt, Optional: true},
		{Name: "ID_IDIOMA", References: []string{"IDIOMA"}, Candidates: []string{"ID_IDIOMA", "IDIOMA_ID"}, Type: query.KindInt, Optional: true},
	},
}

// ReportColumns is the column order of Report rows.
var ReportColumns = []string{
	"ID_LIBRO", "TITULO", "ISBN", "NUM_COPIAS", "NUM_PAGINAS", "ESTADO_FISICO",
	"CLASIFICACION", "FECHA_PUBLICACION", "FECHA_REGISTRO", "EDITORIAL", "GENERO", "IDIOMA",
}

// lookup is a related table whose label the report shows.
type lookup struct {
	name  string // result column
	alias string // SQL table alias
	fk    string // logical FK column in LIBRO
	desc  *query.Descriptor
	label string // logical label column in desc
}

var reportLookups = []lookup{
	{name: "EDITORIAL", alias: "E", fk: "ID_VAREDIT", desc: publishers.Descriptor, label: "NOMBRE"},
	{name: "GENERO", alias: "G", fk: "ID_GENERO", desc: genres.Descriptor, label: "GENERO"},
	{name: "IDIOMA", alias: "I", fk: "ID_IDIOMA", desc: languages.Descriptor, label: "LENGUA"},
}

// Repository handles all book database operations.
type Repository struct {
	*crud.Store
}

// NewRepository creates a new books repository.
func NewRepository(db *database.Database) *Repository {
	return &Repository{Store: crud.NewStore(db, Descriptor)}
}

// Report lists every book with its publisher, genre and language names,
// newest first. A related table the schema lacks reports NULL.
func (r *Repository) Report(ctx context.Context) ([]database.Row, error) {
	resolver, err := query.ResolverFor(r.DB())
	if err != nil {
		return nil, err
	}
	book, err := resolver.Resolve(ctx, Descriptor)
	if err != nil {
		return nil, err
	}

	cols := []string{query.Alias(book.KeyRef(), "ID_LIBRO")}
	for _, name := range ReportColumns[1:9] {
		cols = append(cols, book.SelectExpr(name))
	}
	sel := sq.Select().From(book.Name)

	for _, l := range reportLookups {
		fk, _ := book.Column(l.fk)
		if !fk.Present() {
			cols = append(cols, query.Alias("NULL", l.name))
			continue
		}
		rel, err := resolver.Resolve(ctx, l.desc)
		var rerr *query.ResolutionError
		if errors.As(err, &rerr) {
			cols = append(cols, query.Alias("NULL", l.name))
			continue
		}
		if err != nil {
			return nil, err
		}

		target := fk.RefColumn
		if target == "" {
			target = rel.Key.Column
		}
		label := rel.Physical(l.label)
		cols = append(cols, query.Alias(l.alias+"."+label, l.name))
		sel = sel.LeftJoin(fmt.Sprintf("%s %s ON %s.%s = %s", rel.Name, l.alias, l.alias, target, book.Ref(fk.Physical)))
	}

	rows, err := query.Rows(ctx, r.DB(), sel.Columns(cols...).OrderBy(book.KeyRef()+" DESC"))
	if err != nil {
		return nil, fmt.Errorf("book report: %w", err)
	}
	book.Normalize(rows)
	return rows, nil
}
