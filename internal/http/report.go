package http

import (
	"context"
	"encoding/csv"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/mrlokans/biblioteca/internal/database"
	"github.com/mrlokans/biblioteca/internal/database/books"
)

var reportDateColumns = []string{"FECHA_PUBLICACION", "FECHA_REGISTRO"}

// BookReporter produces the book report rows.
type BookReporter interface {
	Report(ctx context.Context) ([]database.Row, error)
}

type ReportController struct {
	books BookReporter
}

func NewReportController(books BookReporter) *ReportController {
	return &ReportController{books: books}
}

func (rc *ReportController) RegisterRoutes(router gin.IRouter) {
	router.GET("/libro/reporte", rc.Report)
	router.GET("/libro/reporte.csv", rc.CSV)
}

func (rc *ReportController) Report(c *gin.Context) {
	rows, err := rc.books.Report(c.Request.Context())
	if err != nil {
		respondInternalError(c, err, "book report")
		return
	}
	if rows == nil {
		rows = []database.Row{}
	}
	c.JSON(http.StatusOK, gin.H{
		"columns": books.ReportColumns,
		"items":   rows,
	})
}

// CSV streams the report as libros.csv with dates cut to YYYY-MM-DD.
func (rc *ReportController) CSV(c *gin.Context) {
	rows, err := rc.books.Report(c.Request.Context())
	if err != nil {
		respondInternalError(c, err, "book report")
		return
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", "attachment; filename=libros.csv")
	c.Status(http.StatusOK)

	w := csv.NewWriter(c.Writer)
	_ = w.Write(books.ReportColumns)
	for _, row := range rows {
		_ = w.Write(reportRecord(row))
	}
	w.Flush()
	if err := w.Error(); err != nil {
		log.Error().Err(err).Msg("Failed to write book report")
	}
}

func reportRecord(row database.Row) []string {
	return lo.Map(books.ReportColumns, func(col string, _ int) string {
		v := row.Get(col)
		switch {
		case v == nil:
			return ""
		case lo.Contains(reportDateColumns, col):
			return database.ShortDate(v)
		}
		switch x := v.(type) {
		case []byte:
			return string(x)
		case string:
			return x
		default:
			return fmt.Sprint(x)
		}
	})
}
