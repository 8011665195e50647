package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"github.com/mrlokans/biblioteca/internal/auth"
)

// ModuleLink points at the list page of one resource.
type ModuleLink struct {
	Slug  string `json:"slug"`
	Title string `json:"title"`
	Path  string `json:"path"`
}

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(RequestID())
	router.Use(RequestLogger())
	router.Use(Recovery())
	router.Use(auth.SecurityHeadersMiddleware())

	// CSRF must run before session so that session context is preserved
	if len(cfg.CSRFSecret) > 0 {
		router.Use(auth.CSRFMiddleware(cfg.CSRFSecret, cfg.SecureCookies))
	}
	router.Use(cfg.SessionManager.SessionLoadSave())
	router.Use(auth.NewMiddleware(cfg.SessionManager).Handler())

	health := NewHealthController(cfg.Database, cfg.Version)
	router.GET("/health", health.Status)

	if cfg.AuthController != nil {
		cfg.AuthController.RegisterRoutes(router)
	}

	resources := NewResources(cfg.Repositories)
	for _, res := range resources {
		NewEntityController(res, cfg.SessionManager).RegisterRoutes(router)
	}
	NewReportController(cfg.Repositories.Books).RegisterRoutes(router)

	modules := lo.Map(resources, func(r *Resource, _ int) ModuleLink {
		return ModuleLink{Slug: r.Slug, Title: r.Title, Path: r.path("")}
	})
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"title":    "Biblioteca",
			"username": auth.GetUsername(c),
			"modules":  modules,
			"flashes":  cfg.SessionManager.PopFlashes(c.Request),
		})
	})

	return router
}
