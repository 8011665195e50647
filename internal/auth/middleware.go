package auth

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
)

// Context keys for user data
const (
	ContextKeyUserID   = "auth_user_id"
	ContextKeyUsername = "auth_username"
	ContextKeyRole     = "auth_role"
)

// LoginPath is where unauthenticated browsers are sent.
const LoginPath = "/auth/login"

// Middleware requires a logged-in session on every non-public route.
type Middleware struct {
	sessionManager *SessionManager
	publicPaths    map[string]bool
}

func NewMiddleware(sessionManager *SessionManager) *Middleware {
	return &Middleware{
		sessionManager: sessionManager,
		publicPaths: map[string]bool{
			"/health":      true,
			LoginPath:      true,
			"/auth/logout": true,
			"/favicon.ico": true,
		},
	}
}

// Handler returns a Gin middleware handler that authenticates requests.
func (m *Middleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.isPublicPath(c.Request.URL.Path) {
			c.Next()
			return
		}

		if p := m.sessionManager.Principal(c.Request); p != nil {
			setUserContext(c, p)
			c.Next()
			return
		}

		if isAPIRequest(c) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "authentication required",
			})
			return
		}

		c.Redirect(http.StatusFound, LoginPath+"?next="+url.QueryEscape(c.Request.URL.RequestURI()))
		c.Abort()
	}
}

func setUserContext(c *gin.Context, p *Principal) {
	c.Set(ContextKeyUserID, p.UserID)
	c.Set(ContextKeyUsername, p.Username)
	c.Set(ContextKeyRole, p.Role)
}

func (m *Middleware) isPublicPath(path string) bool {
	return m.publicPaths[path] || m.publicPaths[strings.TrimSuffix(path, "/")]
}

// isAPIRequest determines if this is a scripted client rather than a browser.
func isAPIRequest(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept"), "application/json")
}

// GetUserID retrieves the authenticated user's ID from the context.
// Returns 0 if not authenticated.
func GetUserID(c *gin.Context) int64 {
	if id, exists := c.Get(ContextKeyUserID); exists {
		if userID, ok := id.(int64); ok {
			return userID
		}
	}
	return 0
}

func GetUsername(c *gin.Context) string {
	return c.GetString(ContextKeyUsername)
}

func GetUserRole(c *gin.Context) string {
	return c.GetString(ContextKeyRole)
}

func IsAuthenticated(c *gin.Context) bool {
	_, ok := c.Get(ContextKeyUserID)
	return ok
}
