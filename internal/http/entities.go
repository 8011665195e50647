package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/mrlokans/biblioteca/internal/auth"
	"github.com/mrlokans/biblioteca/internal/database"
	"github.com/mrlokans/biblioteca/internal/database/crud"
	"github.com/mrlokans/biblioteca/internal/database/query"
)

const msgDuplicate = "Ya existe un registro con esos datos."

// Flasher queues messages shown after a redirect.
type Flasher interface {
	AddFlash(r *http.Request, category, message string)
	PopFlashes(r *http.Request) []auth.Flash
}

// FieldSpec describes one input of a create or edit form.
type FieldSpec struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Required bool   `json:"required"`
}

// EntityController serves list, form and write routes for one resource.
type EntityController struct {
	res     *Resource
	flashes Flasher
}

func NewEntityController(res *Resource, flashes Flasher) *EntityController {
	return &EntityController{res: res, flashes: flashes}
}

func (ec *EntityController) RegisterRoutes(router gin.IRouter) {
	g := router.Group("/" + ec.res.Slug)
	g.GET("/", ec.Index)
	g.GET("/crear", ec.New)
	g.POST("/guardar", ec.Create)
	g.GET("/editar/:id", ec.Edit)
	g.POST("/actualizar/:id", ec.Update)
	g.POST("/eliminar/:id", ec.Delete)
}

func (ec *EntityController) Index(c *gin.Context) {
	rows, err := ec.res.Store.List(c.Request.Context())
	if err != nil {
		ec.readFailed(c, err)
		return
	}

	search := strings.ToLower(strings.TrimSpace(c.Query("q")))
	if search != "" && ec.res.Search != "" {
		rows = lo.Filter(rows, func(r database.Row, _ int) bool {
			return strings.Contains(strings.ToLower(r.String(ec.res.Search)), search)
		})
	}
	if rows == nil {
		rows = []database.Row{}
	}

	c.JSON(http.StatusOK, gin.H{
		"title":   ec.res.Title,
		"items":   rows,
		"count":   len(rows),
		"q":       search,
		"flashes": ec.popFlashes(c),
	})
}

func (ec *EntityController) New(c *gin.Context) {
	catalogs, err := ec.catalogs(c)
	if err != nil {
		ec.readFailed(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"title":      ec.res.Title,
		"action":     ec.res.path("guardar"),
		"fields":     ec.fields(),
		"catalogs":   catalogs,
		"csrf_token": auth.GetCSRFToken(c),
		"flashes":    ec.popFlashes(c),
	})
}

func (ec *EntityController) Edit(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	row, err := ec.res.Store.Get(ctx, id)
	if errors.Is(err, crud.ErrNotFound) {
		ec.notFound(c, http.StatusFound)
		return
	}
	if err != nil {
		ec.readFailed(c, err)
		return
	}
	catalogs, err := ec.catalogs(c)
	if err != nil {
		ec.readFailed(c, err)
		return
	}

	resp := gin.H{
		"title":      ec.res.Title,
		"action":     ec.res.path("actualizar", id),
		"item":       row,
		"fields":     ec.fields(),
		"catalogs":   catalogs,
		"csrf_token": auth.GetCSRFToken(c),
		"flashes":    ec.popFlashes(c),
	}
	if ec.res.Related != nil {
		related, err := ec.res.Related(ctx, id)
		if err != nil {
			ec.readFailed(c, err)
			return
		}
		for k, v := range related {
			resp[k] = v
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (ec *EntityController) Create(c *gin.Context) {
	back := ec.res.path("crear")
	fields, err := decodeForm(c, ec.res)
	if err != nil {
		ec.writeFailed(c, err, back)
		return
	}

	id, err := ec.res.Store.Create(c.Request.Context(), fields)
	if err != nil {
		ec.writeFailed(c, err, back)
		return
	}

	log.Info().Str("entity", ec.res.Slug).Int64("id", id).Msg("Record created")
	ec.done(c, http.StatusCreated, ec.res.Messages.Created, gin.H{"id": id})
}

func (ec *EntityController) Update(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	back := ec.res.path("editar", id)
	fields, err := decodeForm(c, ec.res)
	if err != nil {
		ec.writeFailed(c, err, back)
		return
	}

	if err := ec.res.Store.Update(c.Request.Context(), id, fields); err != nil {
		ec.writeFailed(c, err, back)
		return
	}
	ec.done(c, http.StatusOK, ec.res.Messages.Updated, gin.H{"id": id})
}

func (ec *EntityController) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := ec.res.Store.Delete(c.Request.Context(), id); err != nil {
		ec.writeFailed(c, err, ec.res.path(""))
		return
	}
	ec.done(c, http.StatusOK, ec.res.Messages.Deleted, gin.H{"id": id})
}

func (ec *EntityController) fields() []FieldSpec {
	cols := lo.Reject(ec.res.Store.Descriptor().Columns, func(col query.Column, _ int) bool {
		return col.Internal
	})
	return lo.Map(cols, func(col query.Column, _ int) FieldSpec {
		return FieldSpec{
			Name:     col.Name,
			Type:     col.Type.String(),
			Required: validation.Validate("", fieldRules(ec.res, col)...) != nil,
		}
	})
}

func (ec *EntityController) catalogs(c *gin.Context) (map[string][]database.Row, error) {
	out := make(map[string][]database.Row, len(ec.res.Catalogs))
	for name, store := range ec.res.Catalogs {
		rows, err := store.List(c.Request.Context())
		if err != nil {
			return nil, err
		}
		if rows == nil {
			rows = []database.Row{}
		}
		out[name] = rows
	}
	return out, nil
}

func (ec *EntityController) popFlashes(c *gin.Context) []auth.Flash {
	flashes := ec.flashes.PopFlashes(c.Request)
	if flashes == nil {
		return []auth.Flash{}
	}
	return flashes
}

// done finishes a successful write: browsers go back to the list with a
// flash message.
func (ec *EntityController) done(c *gin.Context, status int, message string, data gin.H) {
	if wantsJSON(c) {
		data["message"] = message
		c.JSON(status, data)
		return
	}
	ec.flashes.AddFlash(c.Request, auth.FlashSuccess, message)
	c.Redirect(http.StatusSeeOther, ec.res.path(""))
}

func (ec *EntityController) notFound(c *gin.Context, redirect int) {
	if wantsJSON(c) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: ec.res.Messages.NotFound})
		return
	}
	ec.flashes.AddFlash(c.Request, auth.FlashWarning, ec.res.Messages.NotFound)
	c.Redirect(redirect, ec.res.path(""))
}

// reject sends the user back to the form with the reason.
func (ec *EntityController) reject(c *gin.Context, status int, message string, details any, back string) {
	if wantsJSON(c) {
		c.JSON(status, ErrorResponse{Error: message, Details: details})
		return
	}
	ec.flashes.AddFlash(c.Request, auth.FlashDanger, message)
	c.Redirect(http.StatusSeeOther, back)
}

func (ec *EntityController) writeFailed(c *gin.Context, err error, back string) {
	var formErr *FormError
	switch {
	case errors.As(err, &formErr):
		ec.reject(c, http.StatusBadRequest, formErr.Error(), formErr.Fields, back)
	case errors.Is(err, query.ErrInvalidValue):
		ec.reject(c, http.StatusBadRequest, "Valor inválido: "+invalidDetail(err), nil, back)
	case errors.Is(err, crud.ErrNotFound):
		ec.notFound(c, http.StatusSeeOther)
	case database.IsUniqueViolation(err):
		ec.reject(c, http.StatusConflict, msgDuplicate, nil, back)
	default:
		ec.readFailed(c, err)
	}
}

// readFailed reports errors the user cannot fix. A schema that matches none
// of an entity's known layouts is logged with every name that was tried.
func (ec *EntityController) readFailed(c *gin.Context, err error) {
	var resErr *query.ResolutionError
	if errors.As(err, &resErr) {
		log.Error().
			Str("entity", resErr.Entity).
			Str("role", resErr.Role).
			Strs("candidates", resErr.Candidates).
			Msg("Schema does not match")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "schema mismatch", Details: resErr.Error()})
		return
	}
	respondInternalError(c, err, ec.res.Slug)
}

// invalidDetail strips the sentinel prefix and any wrapping context.
func invalidDetail(err error) string {
	msg := err.Error()
	if i := strings.Index(msg, query.ErrInvalidValue.Error()+": "); i >= 0 {
		return msg[i+len(query.ErrInvalidValue.Error())+2:]
	}
	return msg
}
