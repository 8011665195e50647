package http

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/mrlokans/biblioteca/internal/database"
	"github.com/mrlokans/biblioteca/internal/database/authors"
	"github.com/mrlokans/biblioteca/internal/database/books"
	"github.com/mrlokans/biblioteca/internal/database/editions"
	"github.com/mrlokans/biblioteca/internal/database/genres"
	"github.com/mrlokans/biblioteca/internal/database/groups"
	"github.com/mrlokans/biblioteca/internal/database/history"
	"github.com/mrlokans/biblioteca/internal/database/languages"
	"github.com/mrlokans/biblioteca/internal/database/loans"
	"github.com/mrlokans/biblioteca/internal/database/locations"
	"github.com/mrlokans/biblioteca/internal/database/members"
	"github.com/mrlokans/biblioteca/internal/database/publishers"
	"github.com/mrlokans/biblioteca/internal/database/query"
	"github.com/mrlokans/biblioteca/internal/database/users"
)

// EntityStore is what the generic controller needs from a repository.
type EntityStore interface {
	Descriptor() *query.Descriptor
	List(ctx context.Context) ([]database.Row, error)
	Get(ctx context.Context, id int64) (database.Row, error)
	Create(ctx context.Context, f query.Fields) (int64, error)
	Update(ctx context.Context, id int64, f query.Fields) error
	Delete(ctx context.Context, id int64) error
}

// Lister feeds the option lists of a form.
type Lister interface {
	List(ctx context.Context) ([]database.Row, error)
}

// Repositories holds one repository per entity, all sharing one pool.
type Repositories struct {
	Books      *books.Repository
	Authors    *authors.Repository
	Publishers *publishers.Repository
	Genres     *genres.Repository
	Languages  *languages.Repository
	Loans      *loans.Repository
	Users      *users.Repository
	Groups     *groups.Repository
	Members    *members.Repository
	Locations  *locations.Repository
	History    *history.Repository
	Editions   *editions.Repository
}

func NewRepositories(db *database.Database) *Repositories {
	return &Repositories{
		Books:      books.NewRepository(db),
		Authors:    authors.NewRepository(db),
		Publishers: publishers.NewRepository(db),
		Genres:     genres.NewRepository(db),
		Languages:  languages.NewRepository(db),
		Loans:      loans.NewRepository(db),
		Users:      users.NewRepository(db),
		Groups:     groups.NewRepository(db),
		Members:    members.NewRepository(db),
		Locations:  locations.NewRepository(db),
		History:    history.NewRepository(db),
		Editions:   editions.NewRepository(db),
	}
}

// Messages are the flash texts of one resource.
type Messages struct {
	Created  string
	Updated  string
	Deleted  string
	NotFound string
}

func masculine(label string) Messages {
	return Messages{
		Created:  label + " creado correctamente.",
		Updated:  label + " actualizado correctamente.",
		Deleted:  label + " eliminado.",
		NotFound: label + " no encontrado.",
	}
}

func feminine(label string) Messages {
	return Messages{
		Created:  label + " creada correctamente.",
		Updated:  label + " actualizada correctamente.",
		Deleted:  label + " eliminada.",
		NotFound: label + " no encontrada.",
	}
}

// Resource binds a URL slug to a repository and its form rules.
type Resource struct {
	Slug     string
	Title    string
	Store    EntityStore
	Messages Messages
	// Rules run before the checks derived from the descriptor.
	Rules map[string][]validation.Rule
	// Catalogs are listed on the create and edit pages.
	Catalogs map[string]Lister
	// Search names the column the index filters with ?q=.
	Search string
	// Extra copies form input the descriptor does not describe.
	Extra func(c *gin.Context, f query.Fields)
	// Related loads data shown next to a record on its edit page.
	Related func(ctx context.Context, id int64) (map[string]any, error)
}

func (r *Resource) path(action string, args ...any) string {
	p := "/" + r.Slug + "/" + action
	for _, a := range args {
		p += fmt.Sprintf("/%v", a)
	}
	return p
}

// NewResources describes every entity the adapter serves.
func NewResources(repos *Repositories) []*Resource {
	return []*Resource{
		{
			Slug:     "libro",
			Title:    "Libros",
			Store:    repos.Books,
			Messages: masculine("Libro"),
			Search:   "TITULO",
			Rules: map[string][]validation.Rule{
				"TITULO":            {required("El título es obligatorio.")},
				"CLASIFICACION":     {required("La clasificación es obligatoria.")},
				"ESTADO_FISICO":     {required("El estado físico es obligatorio.")},
				"NUM_COPIAS":        {isNumber()},
				"NUM_PAGINAS":       {isNumber()},
				"FECHA_PUBLICACION": {validation.Match(yearPattern).Error(msgInvalidYear)},
			},
			Catalogs: map[string]Lister{
				"editoriales": repos.Publishers,
				"generos":     repos.Genres,
				"idiomas":     repos.Languages,
			},
		},
		{
			Slug:     "autor",
			Title:    "Autores",
			Store:    repos.Authors,
			Messages: masculine("Autor"),
			Search:   "APELLIDO",
			Rules: map[string][]validation.Rule{
				"NOMBRE":         {required("Nombre y apellido son obligatorios.")},
				"APELLIDO":       {required("Nombre y apellido son obligatorios.")},
				"FECH_NACIMIENT": {validation.Date("2006-01-02").Error("Fecha de nacimiento inválida.")},
			},
		},
		{
			Slug:     "editorial",
			Title:    "Editoriales",
			Store:    repos.Publishers,
			Messages: feminine("Editorial"),
			Search:   "NOMBRE",
			Rules: map[string][]validation.Rule{
				"NOMBRE": {required("El nombre es obligatorio.")},
				"ANO_EDICION": {
					required("El año de edición es obligatorio."),
					validation.Match(yearPattern).Error("El año de edición debe ser YYYY o YYYY-MM-DD."),
				},
				"NUM_EDITORIAL": {isNumber().Error("El número editorial debe ser numérico.")},
			},
		},
		{
			Slug:     "genero",
			Title:    "Géneros",
			Store:    repos.Genres,
			Messages: masculine("Género"),
			Rules: map[string][]validation.Rule{
				"GENERO":         {required("El nombre del género es obligatorio.")},
				"LIBRO_ID_LIBRO": {required("Debes seleccionar un libro asociado."), isNumber().Error("Identificador de libro inválido.")},
			},
			Catalogs: map[string]Lister{"libros": repos.Books},
		},
		{
			Slug:     "idioma",
			Title:    "Idiomas",
			Store:    repos.Languages,
			Messages: masculine("Idioma"),
			Rules: map[string][]validation.Rule{
				"LENGUA": {required("El nombre del idioma es obligatorio.")},
			},
		},
		{
			Slug:     "prestamo",
			Title:    "Préstamos",
			Store:    repos.Loans,
			Messages: masculine("Préstamo"),
			Rules: map[string][]validation.Rule{
				"FECHA_PRESTADO": {required("La fecha de préstamo es obligatoria.")},
				"FECH_CADUC":     {required("La fecha de caducidad es obligatoria.")},
				"ESTADO":         {required("Estado y estado físico son obligatorios.")},
				"ESTADO_FISIC":   {required("Estado y estado físico son obligatorios.")},
				"ID_LIBRO":       {required("Debes seleccionar libro y usuario."), isNumber().Error("Identificador inválido.")},
				"ID_USUARIO":     {required("Debes seleccionar libro y usuario."), isNumber().Error("Identificador inválido.")},
			},
			Catalogs: map[string]Lister{
				"libros":   repos.Books,
				"usuarios": repos.Users,
			},
		},
		{
			Slug:     "usuario",
			Title:    "Usuarios",
			Store:    repos.Users,
			Messages: masculine("Usuario"),
			Search:   "NOMBRE",
			Rules: map[string][]validation.Rule{
				"NOMBRE": {required("El campo NOMBRE es obligatorio.")},
				"SEXO":   {validation.In("M", "F").Error("Selecciona un sexo válido (M/F).")},
			},
		},
		{
			Slug:     "grupo_lectura",
			Title:    "Grupos de lectura",
			Store:    repos.Groups,
			Messages: masculine("Grupo"),
			Search:   "NOMBRE",
			Rules: map[string][]validation.Rule{
				"NOMBRE":        {required("Nombre, fecha, hora y lugar son obligatorios.")},
				"FECHA_REUNION": {required("Nombre, fecha, hora y lugar son obligatorios.")},
				"HORA_REUNION": {
					required("Nombre, fecha, hora y lugar son obligatorios."),
					validation.Match(timePattern).Error("Hora inválida. Usa el formato HH:MM."),
				},
				"LUGAR": {required("Nombre, fecha, hora y lugar son obligatorios.")},
			},
			Catalogs: map[string]Lister{"libros": repos.Books},
			// The form always carries the whole selection and browsers omit
			// an empty one, so a missing LIBROS means no books.
			Extra: func(c *gin.Context, f query.Fields) {
				ids, _ := c.GetPostFormArray(groups.BooksField)
				if ids == nil {
					ids = []string{}
				}
				f[groups.BooksField] = ids
			},
			Related: func(ctx context.Context, id int64) (map[string]any, error) {
				rows, err := repos.Groups.ListBooks(ctx, id)
				if err != nil {
					return nil, err
				}
				return map[string]any{"libros_seleccionados": rows}, nil
			},
		},
		{
			Slug:     "miembro",
			Title:    "Miembros",
			Store:    repos.Members,
			Messages: masculine("Miembro"),
			Rules: map[string][]validation.Rule{
				"ID_USUARIO": {required("Debes seleccionar un usuario."), isNumber().Error("El campo un usuario es inválido.")},
				"ID_GRUPO":   {required("Debes seleccionar un grupo."), isNumber().Error("El campo un grupo es inválido.")},
			},
			Catalogs: map[string]Lister{
				"usuarios": repos.Users,
				"grupos":   repos.Groups,
			},
		},
		{
			Slug:     "ubicacion",
			Title:    "Ubicaciones",
			Store:    repos.Locations,
			Messages: feminine("Ubicación"),
			Rules: map[string][]validation.Rule{
				"ESTANTERIA": {required("El campo ESTANTERIA es obligatorio.")},
			},
		},
		{
			Slug:  "historial",
			Title: "Historial",
			Store: repos.History,
			Messages: Messages{
				Created:  "Movimiento registrado correctamente.",
				Updated:  "Movimiento actualizado correctamente.",
				Deleted:  "Movimiento eliminado.",
				NotFound: "Movimiento no encontrado.",
			},
			Rules: map[string][]validation.Rule{
				"ID_LIBRO":   {required("Debes seleccionar un libro."), isNumber().Error("El campo un libro es inválido.")},
				"ID_USUARIO": {required("Debes seleccionar un usuario."), isNumber().Error("El campo un usuario es inválido.")},
			},
			Catalogs: map[string]Lister{
				"libros":   repos.Books,
				"usuarios": repos.Users,
			},
		},
		{
			Slug:     "libroedit",
			Title:    "Ediciones",
			Store:    repos.Editions,
			Messages: feminine("Relación"),
			Rules: map[string][]validation.Rule{
				editions.BookField:      {required("Debes seleccionar un libro."), isNumber().Error("El campo un libro es inválido.")},
				editions.PublisherField: {required("Debes seleccionar una editorial."), isNumber().Error("El campo una editorial es inválido.")},
				editions.DateField:      {validation.Date("2006-01-02").Error("La fecha de edición es inválida.")},
			},
			Catalogs: map[string]Lister{
				"libros":      repos.Books,
				"editoriales": repos.Publishers,
			},
		},
	}
}
