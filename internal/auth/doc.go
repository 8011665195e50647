// Package auth gates the web adapter behind a login.
//
// Users live in the USUARIO table of the library database. The stored
// credential is compared in constant time; values that look like bcrypt
// hashes are checked with bcrypt instead, so `user add --bcrypt` and rows
// written by older tools both work.
//
// # Configuration
//
//	SECRET_KEY=<hex>                # Signs CSRF tokens; generated at start if empty
//	AUTH_SESSION_LIFETIME=12h       # Session duration
//	AUTH_SECURE_COOKIES=true        # HTTPS-only cookies
//	AUTH_CSRF_ENABLED=true          # gorilla/csrf on every POST
//	AUTH_MAX_LOGIN_ATTEMPTS=5       # Failed logins before lockout
//
// # Usage
//
//	svc := auth.NewService(usersRepo, cfg.Auth)
//	sm, err := auth.NewSessionManager(db, cfg.Auth)
//	router.Use(sm.SessionLoadSave())
//	router.Use(auth.NewMiddleware(sm).Handler())
//	auth.NewController(svc, sm, cfg.Auth).RegisterRoutes(router)
//
// Extract the user in handlers:
//
//	userID := auth.GetUserID(c)
package auth
