package http

import (
	"github.com/mrlokans/biblioteca/internal/auth"
	"github.com/mrlokans/biblioteca/internal/database"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	Database     *database.Database
	Repositories *Repositories

	// Authentication
	SessionManager *auth.SessionManager
	AuthController *auth.Controller
	// CSRFSecret enables gorilla/csrf on every POST when set.
	CSRFSecret    []byte
	SecureCookies bool

	// Application info
	Version string
}
