package http

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/biblioteca/internal/auth"
	"github.com/mrlokans/biblioteca/internal/database/dbtest"
	"github.com/mrlokans/biblioteca/internal/database/query"
)

func bookForm(title string) url.Values {
	return url.Values{
		"TITULO":            {title},
		"CLASIFICACION":     {"Ficción"},
		"ESTADO_FISICO":     {"Bueno"},
		"NUM_COPIAS":        {"2"},
		"FECHA_PUBLICACION": {"1967"},
	}
}

func TestEntities_RequireLogin(t *testing.T) {
	app := setupTestApp(t)

	rec := app.get(t, "/libro/")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, auth.LoginPath+"?next=%2Flibro%2F", rec.Header().Get("Location"))
}

func TestEntities_BookLifecycle(t *testing.T) {
	app := setupLoggedIn(t)

	rec := app.post(t, "/libro/guardar", bookForm("Cien años de soledad"))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/libro/", rec.Header().Get("Location"))

	page := app.list(t, "/libro/")
	require.Equal(t, 1, page.Count)
	require.Len(t, page.Flashes, 1)
	assert.Equal(t, auth.Flash{Category: auth.FlashSuccess, Message: "Libro creado correctamente."}, page.Flashes[0])
	assert.Equal(t, "Cien años de soledad", page.Items[0]["TITULO"])
	id := int64(page.Items[0]["ID_LIBRO"].(float64))

	rec = app.get(t, fmt.Sprintf("/libro/editar/%d", id))
	require.Equal(t, http.StatusOK, rec.Code)
	edit := decodeJSON(t, rec)
	assert.Equal(t, fmt.Sprintf("/libro/actualizar/%d", id), edit["action"])
	assert.Contains(t, edit["catalogs"], "editoriales")

	rec = app.post(t, fmt.Sprintf("/libro/actualizar/%d", id), url.Values{
		"TITULO":        {"Rayuela"},
		"CLASIFICACION": {"Ficción"},
		"ESTADO_FISICO": {"Regular"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)

	row, err := app.repos.Books.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Rayuela", row.String("TITULO"))
	assert.Equal(t, "Regular", row.String("ESTADO_FISICO"))
	copies, _ := row.Int64("NUM_COPIAS")
	assert.Equal(t, int64(2), copies, "fields missing from the form are kept")

	page = app.list(t, "/libro/")
	require.Len(t, page.Flashes, 1)
	assert.Equal(t, "Libro actualizado correctamente.", page.Flashes[0].Message)

	rec = app.post(t, fmt.Sprintf("/libro/eliminar/%d", id), nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	page = app.list(t, "/libro/")
	assert.Zero(t, page.Count)
	require.Len(t, page.Flashes, 1)
	assert.Equal(t, "Libro eliminado.", page.Flashes[0].Message)
}

func TestEntities_ValidationFlash(t *testing.T) {
	app := setupLoggedIn(t)

	form := bookForm("")
	rec := app.post(t, "/libro/guardar", form)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/libro/crear", rec.Header().Get("Location"))

	rec = app.get(t, "/libro/crear")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeJSON(t, rec)
	flashes := body["flashes"].([]any)
	require.Len(t, flashes, 1)
	assert.Equal(t, "El título es obligatorio.", flashes[0].(map[string]any)["message"])
	assert.Equal(t, int64(0), dbtest.Count(t, app.db, "LIBRO"))
}

func TestEntities_ValidationJSON(t *testing.T) {
	app := setupLoggedIn(t)

	form := bookForm("")
	form.Set("NUM_COPIAS", "dos")
	rec := app.postJSON(t, "/libro/guardar", form)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body := decodeJSON(t, rec)
	assert.Equal(t, "El título es obligatorio. Debes ingresar un número válido.", body["error"])
	details := body["details"].(map[string]any)
	assert.Contains(t, details, "TITULO")
	assert.Contains(t, details, "NUM_COPIAS")
}

func TestEntities_CreateJSON(t *testing.T) {
	app := setupLoggedIn(t)

	rec := app.postJSON(t, "/idioma/guardar", url.Values{"LENGUA": {"Español"}})
	require.Equal(t, http.StatusCreated, rec.Code)
	body := decodeJSON(t, rec)
	assert.Equal(t, "Idioma creado correctamente.", body["message"])
	assert.NotZero(t, body["id"])
}

func TestEntities_NotFound(t *testing.T) {
	app := setupLoggedIn(t)

	rec := app.get(t, "/autor/editar/999")
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/autor/", rec.Header().Get("Location"))
	page := app.list(t, "/autor/")
	require.Len(t, page.Flashes, 1)
	assert.Equal(t, auth.Flash{Category: auth.FlashWarning, Message: "Autor no encontrado."}, page.Flashes[0])

	rec = app.postJSON(t, "/autor/actualizar/999", url.Values{"NOMBRE": {"Jorge"}, "APELLIDO": {"Borges"}})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Autor no encontrado.", decodeJSON(t, rec)["error"])

	rec = app.postJSON(t, "/autor/eliminar/999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEntities_InvalidID(t *testing.T) {
	app := setupLoggedIn(t)

	rec := app.get(t, "/autor/editar/abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEntities_Search(t *testing.T) {
	app := setupLoggedIn(t)

	for _, title := range []string{"Rayuela", "Ficciones", "El Aleph"} {
		rec := app.post(t, "/libro/guardar", bookForm(title))
		require.Equal(t, http.StatusSeeOther, rec.Code)
	}

	page := app.list(t, "/libro/?q=ray")
	require.Equal(t, 1, page.Count)
	assert.Equal(t, "Rayuela", page.Items[0]["TITULO"])

	page = app.list(t, "/libro/")
	assert.Equal(t, 3, page.Count)
}

func TestEntities_GroupBooks(t *testing.T) {
	app := setupLoggedIn(t)
	ctx := context.Background()

	var bookIDs []string
	for _, title := range []string{"Rayuela", "Ficciones"} {
		id, err := app.repos.Books.Create(ctx, query.Fields{"TITULO": title})
		require.NoError(t, err)
		bookIDs = append(bookIDs, fmt.Sprint(id))
	}

	rec := app.post(t, "/grupo_lectura/guardar", url.Values{
		"NOMBRE":        {"Club del jueves"},
		"FECHA_REUNION": {"2024-05-02"},
		"HORA_REUNION":  {"18:30"},
		"LUGAR":         {"Sala 2"},
		"LIBROS":        bookIDs,
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, int64(2), dbtest.Count(t, app.db, "LIBRO_GRUPO"))

	page := app.list(t, "/grupo_lectura/")
	require.Equal(t, 1, page.Count)
	id := int64(page.Items[0]["ID_GRUPO"].(float64))

	rec = app.get(t, fmt.Sprintf("/grupo_lectura/editar/%d", id))
	require.Equal(t, http.StatusOK, rec.Code)
	selected := decodeJSON(t, rec)["libros_seleccionados"].([]any)
	assert.Len(t, selected, 2)

	rec = app.post(t, fmt.Sprintf("/grupo_lectura/actualizar/%d", id), url.Values{
		"NOMBRE":        {"Club del jueves"},
		"FECHA_REUNION": {"2024-05-09"},
		"HORA_REUNION":  {"19:00"},
		"LUGAR":         {"Sala 2"},
		"LIBROS":        bookIDs[:1],
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, int64(1), dbtest.Count(t, app.db, "LIBRO_GRUPO"))
}

func TestEntities_GroupUpdateWithoutSelectionClearsBooks(t *testing.T) {
	app := setupLoggedIn(t)
	ctx := context.Background()

	book, err := app.repos.Books.Create(ctx, query.Fields{"TITULO": "Rayuela"})
	require.NoError(t, err)
	id, err := app.repos.Groups.Create(ctx, query.Fields{
		"NOMBRE":        "Club del jueves",
		"FECHA_REUNION": "2024-05-02",
		"HORA_REUNION":  "18:30",
		"LUGAR":         "Sala 2",
		"LIBROS":        []int64{book},
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), dbtest.Count(t, app.db, "LIBRO_GRUPO"))

	rec := app.post(t, fmt.Sprintf("/grupo_lectura/actualizar/%d", id), url.Values{
		"NOMBRE":        {"Club del jueves"},
		"FECHA_REUNION": {"2024-05-02"},
		"HORA_REUNION":  {"18:30"},
		"LUGAR":         {"Sala 2"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, int64(0), dbtest.Count(t, app.db, "LIBRO_GRUPO"))
}

func TestEntities_GroupRejectsBadTime(t *testing.T) {
	app := setupLoggedIn(t)

	rec := app.postJSON(t, "/grupo_lectura/guardar", url.Values{
		"NOMBRE":        {"Club"},
		"FECHA_REUNION": {"2024-05-02"},
		"HORA_REUNION":  {"25:00"},
		"LUGAR":         {"Sala 2"},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Hora inválida. Usa el formato HH:MM.", decodeJSON(t, rec)["error"])
}

func TestEntities_EditionCreate(t *testing.T) {
	app := setupLoggedIn(t)
	ctx := context.Background()

	book, err := app.repos.Books.Create(ctx, query.Fields{"TITULO": "Rayuela"})
	require.NoError(t, err)
	publisher, err := app.repos.Publishers.Create(ctx, query.Fields{"NOMBRE": "Sudamericana", "ANO_EDICION": "1967"})
	require.NoError(t, err)

	rec := app.post(t, "/libroedit/guardar", url.Values{
		"LIBRO_ID":     {fmt.Sprint(book)},
		"EDITORIAL_ID": {fmt.Sprint(publisher)},
		"FECHA":        {"1963-06-28"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, int64(1), dbtest.Count(t, app.db, "LIBRO_EDIT"))

	page := app.list(t, "/libroedit/")
	assert.Equal(t, 1, page.Count)
	require.Len(t, page.Flashes, 1)
	assert.Equal(t, "Relación creada correctamente.", page.Flashes[0].Message)
}

func TestEntities_UserCredentialKeptWhenBlank(t *testing.T) {
	app := setupLoggedIn(t)
	ctx := context.Background()

	rec := app.postJSON(t, "/usuario/guardar", url.Values{"NOMBRE": {"bob"}, "SEXO": {"M"}, "PASSWORD": {"hunter2"}})
	require.Equal(t, http.StatusCreated, rec.Code)
	id := int64(decodeJSON(t, rec)["id"].(float64))

	rec = app.postJSON(t, fmt.Sprintf("/usuario/actualizar/%d", id), url.Values{"NOMBRE": {"bob"}, "SEXO": {"M"}, "PASSWORD": {""}})
	require.Equal(t, http.StatusOK, rec.Code)

	account, err := app.repos.Users.FindAccount(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, "hunter2", account.Credential)

	page := app.list(t, "/usuario/")
	for _, item := range page.Items {
		assert.NotContains(t, item, "CONTRASENA")
	}
}

func TestEntities_UserRejectsBadSex(t *testing.T) {
	app := setupLoggedIn(t)

	rec := app.postJSON(t, "/usuario/guardar", url.Values{"NOMBRE": {"bob"}, "SEXO": {"X"}})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Selecciona un sexo válido (M/F).", decodeJSON(t, rec)["error"])
}

func TestEntities_DuplicateUser(t *testing.T) {
	app := setupLoggedIn(t)

	rec := app.postJSON(t, "/usuario/guardar", url.Values{"NOMBRE": {"alice"}})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, msgDuplicate, decodeJSON(t, rec)["error"])
}

func TestEntities_SchemaMismatch(t *testing.T) {
	app := setupLoggedIn(t)
	dbtest.Exec(t, app.db, "DROP TABLE UBICACION")

	req := httptest.NewRequest(http.MethodGet, "/ubicacion/", nil)
	req.Header.Set("Accept", "application/json")
	rec := app.do(t, req)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "schema mismatch", decodeJSON(t, rec)["error"])
}

func TestEntities_EveryModuleLists(t *testing.T) {
	app := setupLoggedIn(t)

	for _, res := range NewResources(app.repos) {
		t.Run(res.Slug, func(t *testing.T) {
			page := app.list(t, res.path(""))
			assert.Equal(t, res.Title, page.Title)
			assert.NotNil(t, page.Items)

			rec := app.get(t, res.path("crear"))
			assert.Equal(t, http.StatusOK, rec.Code)
		})
	}
}

func TestHome_ListsModules(t *testing.T) {
	app := setupLoggedIn(t)

	rec := app.get(t, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeJSON(t, rec)
	assert.Equal(t, "alice", body["username"])
	assert.Len(t, body["modules"], len(NewResources(app.repos)))
}
