package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/biblioteca/internal/auth"
	"github.com/mrlokans/biblioteca/internal/config"
	"github.com/mrlokans/biblioteca/internal/database"
	"github.com/mrlokans/biblioteca/internal/database/dbtest"
	"github.com/mrlokans/biblioteca/internal/database/query"
)

type testApp struct {
	db     *database.Database
	repos  *Repositories
	router *gin.Engine
	cookie *http.Cookie
}

func setupTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := dbtest.Open(t, dbtest.Reference)
	repos := NewRepositories(db)
	_, err := repos.Users.Create(context.Background(), query.Fields{"NOMBRE": "alice", "ROL": "admin", "CONTRASENA": "secret"})
	require.NoError(t, err)

	cfg := config.Auth{SessionLifetime: time.Hour}
	sm, err := auth.NewSessionManager(db, cfg)
	require.NoError(t, err)
	t.Cleanup(sm.Stop)
	ctrl := auth.NewController(auth.NewService(repos.Users, cfg), sm, cfg)
	t.Cleanup(ctrl.Stop)

	router := NewRouter(RouterConfig{
		Database:       db,
		Repositories:   repos,
		SessionManager: sm,
		AuthController: ctrl,
		Version:        "test",
	})
	return &testApp{db: db, repos: repos, router: router}
}

func setupLoggedIn(t *testing.T) *testApp {
	t.Helper()
	app := setupTestApp(t)
	rec := app.post(t, auth.LoginPath, url.Values{"username": {"alice"}, "password": {"secret"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.NotNil(t, app.cookie)
	// consume the login flash
	app.get(t, "/")
	return app
}

func (a *testApp) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	if a.cookie != nil {
		req.AddCookie(a.cookie)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	for _, c := range rec.Result().Cookies() {
		if c.Name == "session" {
			a.cookie = c
		}
	}
	return rec
}

func (a *testApp) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	return a.do(t, httptest.NewRequest(http.MethodGet, path, nil))
}

func (a *testApp) post(t *testing.T, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return a.do(t, req)
}

func (a *testApp) postJSON(t *testing.T, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	return a.do(t, req)
}

type listPage struct {
	Title   string           `json:"title"`
	Items   []map[string]any `json:"items"`
	Count   int              `json:"count"`
	Flashes []auth.Flash     `json:"flashes"`
}

func (a *testApp) list(t *testing.T, path string) listPage {
	t.Helper()
	rec := a.get(t, path)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var page listPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	return page
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}
