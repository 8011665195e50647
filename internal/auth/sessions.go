package auth

import (
	"context"
	"encoding/gob"
	"fmt"
	"net/http"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/alexedwards/scs/v2/memstore"

	"github.com/mrlokans/biblioteca/internal/config"
	"github.com/mrlokans/biblioteca/internal/database"
)

// Session data keys
const (
	SessionKeyUserID   = "user_id"
	SessionKeyUsername = "username"
	SessionKeyRole     = "role"
	SessionKeyLoginAt  = "login_at"
	SessionKeyFlashes  = "flashes"
)

// Flash categories
const (
	FlashSuccess = "success"
	FlashInfo    = "info"
	FlashWarning = "warning"
	FlashDanger  = "danger"
)

// Flash is a one-shot message shown after a redirect.
type Flash struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}

func init() {
	gob.Register(time.Time{})
	gob.Register([]Flash{})
}

// SessionManager wraps scs.SessionManager with application-specific methods.
type SessionManager struct {
	*scs.SessionManager
	stop func()
}

// NewSessionManager creates a configured session manager. On sqlite sessions
// are kept in a table of the library database; on postgres they live in
// process memory.
func NewSessionManager(db *database.Database, cfg config.Auth) (*SessionManager, error) {
	sm := scs.New()
	stop := func() {}

	switch db.Dialect.Name() {
	case config.DriverSQLite:
		if err := ensureSessionTable(context.Background(), db); err != nil {
			return nil, err
		}
		sqlDB, err := db.DB.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to access connection pool: %w", err)
		}
		store := sqlite3store.New(sqlDB)
		sm.Store = store
		stop = store.StopCleanup
	default:
		store := memstore.New()
		sm.Store = store
		stop = store.StopCleanup
	}

	lifetime := cfg.SessionLifetime
	if lifetime <= 0 {
		lifetime = 12 * time.Hour
	}
	sm.Lifetime = lifetime
	sm.IdleTimeout = lifetime / 2

	sm.Cookie.Name = "session"
	sm.Cookie.HttpOnly = true
	sm.Cookie.Secure = cfg.SecureCookies
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Path = "/"

	return &SessionManager{SessionManager: sm, stop: stop}, nil
}

func ensureSessionTable(ctx context.Context, db *database.Database) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			token TEXT PRIMARY KEY,
			data BLOB NOT NULL,
			expiry REAL NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS sessions_expiry_idx ON sessions(expiry)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(ctx, s); err != nil {
			return fmt.Errorf("failed to create sessions table: %w", err)
		}
	}
	return nil
}

// Stop ends the store's background cleanup.
func (sm *SessionManager) Stop() {
	sm.stop()
}

// CreateSession stores the principal after a successful login.
func (sm *SessionManager) CreateSession(r *http.Request, p *Principal) error {
	// Renew token to prevent session fixation
	if err := sm.RenewToken(r.Context()); err != nil {
		return err
	}

	sm.Put(r.Context(), SessionKeyUserID, p.UserID)
	sm.Put(r.Context(), SessionKeyUsername, p.Username)
	sm.Put(r.Context(), SessionKeyRole, p.Role)
	sm.Put(r.Context(), SessionKeyLoginAt, time.Now())

	return nil
}

// GetUserID returns 0 if not authenticated.
func (sm *SessionManager) GetUserID(r *http.Request) int64 {
	return sm.GetInt64(r.Context(), SessionKeyUserID)
}

func (sm *SessionManager) IsAuthenticated(r *http.Request) bool {
	return sm.Exists(r.Context(), SessionKeyUserID)
}

// Principal returns the logged-in user, or nil.
func (sm *SessionManager) Principal(r *http.Request) *Principal {
	if !sm.IsAuthenticated(r) {
		return nil
	}
	return &Principal{
		UserID:   sm.GetUserID(r),
		Username: sm.GetString(r.Context(), SessionKeyUsername),
		Role:     sm.GetString(r.Context(), SessionKeyRole),
	}
}

// AddFlash queues a message for the next response.
func (sm *SessionManager) AddFlash(r *http.Request, category, message string) {
	flashes, _ := sm.Get(r.Context(), SessionKeyFlashes).([]Flash)
	sm.Put(r.Context(), SessionKeyFlashes, append(flashes, Flash{Category: category, Message: message}))
}

// PopFlashes returns and clears the queued messages.
func (sm *SessionManager) PopFlashes(r *http.Request) []Flash {
	flashes, _ := sm.Pop(r.Context(), SessionKeyFlashes).([]Flash)
	return flashes
}
