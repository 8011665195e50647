package entrypoint

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/mrlokans/biblioteca/internal/auth"
	"github.com/mrlokans/biblioteca/internal/config"
	"github.com/mrlokans/biblioteca/internal/database"
	http_controllers "github.com/mrlokans/biblioteca/internal/http"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

// App is the application context: one pool shared by every repository,
// plus the session machinery the router needs.
type App struct {
	DB             *database.Database
	Repositories   *http_controllers.Repositories
	SessionManager *auth.SessionManager
	AuthController *auth.Controller
	Router         *gin.Engine
}

// NewApp opens the database and wires every component. The caller owns the
// result and must Close it.
func NewApp(cfg *config.Config, version string) (*App, error) {
	db, err := database.NewDatabase(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	app := &App{
		DB:           db,
		Repositories: http_controllers.NewRepositories(db),
	}

	if cfg.Auth.SessionSecret == "" {
		secret, err := auth.GenerateSessionSecret()
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to generate session secret: %w", err)
		}
		cfg.Auth.SessionSecret = secret
		log.Warn().Msg("SECRET_KEY is not set; generated a temporary one. Sessions will not survive a restart")
	}

	app.SessionManager, err = auth.NewSessionManager(db, cfg.Auth)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to initialize session manager: %w", err)
	}

	service := auth.NewService(app.Repositories.Users, cfg.Auth)
	app.AuthController = auth.NewController(service, app.SessionManager, cfg.Auth)

	var csrfSecret []byte
	if cfg.Auth.CSRFEnabled {
		csrfSecret = secretBytes(cfg.Auth.SessionSecret)
	} else {
		log.Warn().Msg("CSRF protection is disabled")
	}

	app.Router = http_controllers.NewRouter(http_controllers.RouterConfig{
		Database:       db,
		Repositories:   app.Repositories,
		SessionManager: app.SessionManager,
		AuthController: app.AuthController,
		CSRFSecret:     csrfSecret,
		SecureCookies:  cfg.Auth.SecureCookies,
		Version:        version,
	})
	return app, nil
}

// Close stops background cleanup and releases the pool.
func (a *App) Close() {
	if a.AuthController != nil {
		a.AuthController.Stop()
	}
	if a.SessionManager != nil {
		a.SessionManager.Stop()
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing database")
		}
	}
}

// secretBytes decodes a hex secret, falling back to the raw string.
func secretBytes(secret string) []byte {
	if b, err := hex.DecodeString(secret); err == nil && len(b) > 0 {
		return b
	}
	return []byte(secret)
}

// Serve runs the HTTP server until SIGINT or SIGTERM, then shuts it down
// within the configured timeout.
func Serve(router http.Handler, cfg *config.Config, onShutdown ShutdownFunc) error {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case <-quit:
	}
	log.Info().Dur("timeout", timeout).Msg("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	log.Info().Msg("Server exiting")
	return nil
}

// Run builds the application and serves it until interrupted.
func Run(cfg *config.Config, version string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	log.Info().Str("version", version).Str("env", cfg.Global.Env).Msg("Starting Biblioteca")

	if cfg.Global.Env != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	app, err := NewApp(cfg, version)
	if err != nil {
		return err
	}
	defer app.Close()

	return Serve(app.Router, cfg, nil)
}
