package auth

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/mrlokans/biblioteca/internal/config"
)

const (
	msgUsernameRequired   = "Debes ingresar un nombre de usuario."
	msgInvalidCredentials = "Usuario o contraseña incorrectos."
	msgTooManyAttempts    = "Demasiados intentos fallidos. Intente de nuevo en %s."
	msgLoginFailed        = "No se pudo iniciar sesión. Intente de nuevo."
	msgLoggedIn           = "Sesión iniciada correctamente."
	msgLoggedOut          = "Sesión finalizada."
)

// isLocalPath validates that a redirect path is local to prevent open redirect attacks.
func isLocalPath(path string) bool {
	if path == "" || !strings.HasPrefix(path, "/") {
		return false
	}
	// Reject protocol-relative URLs (//evil.com)
	if strings.HasPrefix(path, "//") {
		return false
	}
	return !strings.Contains(path, "://") && !strings.Contains(path, "\\")
}

// sanitizeRedirectPath returns a safe redirect path, defaulting to "/" if invalid.
func sanitizeRedirectPath(path string) string {
	if isLocalPath(path) {
		return path
	}
	return "/"
}

// Controller handles the login and logout endpoints.
type Controller struct {
	service        *Service
	sessionManager *SessionManager
	rateLimiter    *RateLimiter
}

func NewController(service *Service, sessionManager *SessionManager, cfg config.Auth) *Controller {
	return &Controller{
		service:        service,
		sessionManager: sessionManager,
		rateLimiter: NewRateLimiter(RateLimitConfig{
			MaxAttempts:     cfg.MaxLoginAttempts,
			WindowDuration:  cfg.RateLimitWindow,
			LockoutDuration: cfg.LockoutDuration,
		}),
	}
}

func (ac *Controller) RegisterRoutes(router gin.IRouter) {
	router.GET(LoginPath, ac.LoginPage)
	router.POST(LoginPath, ac.Login)
	router.GET("/auth/logout", ac.Logout)
}

// Stop cleans up resources (rate limiter background goroutine).
func (ac *Controller) Stop() {
	ac.rateLimiter.Stop()
}

// LoginPage describes the login form.
func (ac *Controller) LoginPage(c *gin.Context) {
	next := sanitizeRedirectPath(c.Query("next"))
	if ac.sessionManager.IsAuthenticated(c.Request) {
		c.Redirect(http.StatusFound, next)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"title":      "Iniciar sesión",
		"action":     LoginPath,
		"next":       next,
		"fields":     []string{"username", "password"},
		"csrf_token": GetCSRFToken(c),
		"flashes":    ac.sessionManager.PopFlashes(c.Request),
	})
}

// Login handles the login form submission.
func (ac *Controller) Login(c *gin.Context) {
	username := strings.TrimSpace(c.PostForm("username"))
	password := c.PostForm("password")
	next := sanitizeRedirectPath(c.DefaultQuery("next", c.PostForm("next")))
	clientIP := c.ClientIP()

	if username == "" {
		ac.fail(c, next, FlashDanger, msgUsernameRequired)
		return
	}

	if allowed, retryAfter := ac.rateLimiter.Allow(clientIP, username); !allowed {
		c.Header("Retry-After", fmt.Sprint(int(retryAfter.Seconds())))
		ac.fail(c, next, FlashDanger, fmt.Sprintf(msgTooManyAttempts, retryAfter.Round(time.Second)))
		return
	}

	principal, err := ac.service.Authenticate(c.Request.Context(), username, password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			if ac.rateLimiter.RecordFailure(clientIP, username) {
				log.Warn().Str("username", username).Str("ip", clientIP).Msg("Login locked out")
			}
			ac.fail(c, next, FlashDanger, msgInvalidCredentials)
			return
		}
		log.Error().Err(err).Str("username", username).Msg("Login failed")
		ac.fail(c, next, FlashDanger, msgLoginFailed)
		return
	}

	ac.rateLimiter.RecordSuccess(clientIP, username)
	if err := ac.sessionManager.CreateSession(c.Request, principal); err != nil {
		log.Error().Err(err).Msg("Failed to create session")
		ac.fail(c, next, FlashDanger, msgLoginFailed)
		return
	}

	log.Info().Str("username", principal.Username).Msg("User logged in")
	ac.sessionManager.AddFlash(c.Request, FlashSuccess, msgLoggedIn)
	c.Redirect(http.StatusSeeOther, next)
}

// Logout destroys the session and redirects to login.
func (ac *Controller) Logout(c *gin.Context) {
	if ac.sessionManager.IsAuthenticated(c.Request) {
		if err := ac.sessionManager.RenewToken(c.Request.Context()); err != nil {
			log.Error().Err(err).Msg("Failed to renew session")
		}
		for _, key := range []string{SessionKeyUserID, SessionKeyUsername, SessionKeyRole, SessionKeyLoginAt} {
			ac.sessionManager.Remove(c.Request.Context(), key)
		}
		ac.sessionManager.AddFlash(c.Request, FlashInfo, msgLoggedOut)
	}
	c.Redirect(http.StatusSeeOther, LoginPath)
}

func (ac *Controller) fail(c *gin.Context, next, category, message string) {
	if isAPIRequest(c) {
		status := http.StatusUnauthorized
		if c.Writer.Header().Get("Retry-After") != "" {
			status = http.StatusTooManyRequests
		}
		c.JSON(status, gin.H{"error": message})
		return
	}
	ac.sessionManager.AddFlash(c.Request, category, message)
	target := LoginPath
	if next != "/" {
		target += "?next=" + url.QueryEscape(next)
	}
	c.Redirect(http.StatusSeeOther, target)
}
