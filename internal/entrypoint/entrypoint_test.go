package entrypoint

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/biblioteca/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Global: config.Global{Env: "test", ShutdownTimeoutInSeconds: 1},
		Database: config.Database{
			Driver:      config.DriverSQLite,
			Path:        filepath.Join(t.TempDir(), "app.db"),
			PoolMin:     1,
			PoolMax:     2,
			BusyTimeout: time.Second,
		},
		Auth: config.Auth{
			SessionLifetime: time.Hour,
			CSRFEnabled:     true,
		},
	}
}

func TestNewApp_GeneratesSecretAndServesHealth(t *testing.T) {
	cfg := testConfig(t)

	app, err := NewApp(cfg, "test")
	require.NoError(t, err)
	t.Cleanup(app.Close)

	assert.Len(t, cfg.Auth.SessionSecret, 64)

	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNewApp_KeepsConfiguredSecret(t *testing.T) {
	cfg := testConfig(t)
	cfg.Auth.SessionSecret = "configured"

	app, err := NewApp(cfg, "test")
	require.NoError(t, err)
	t.Cleanup(app.Close)

	assert.Equal(t, "configured", cfg.Auth.SessionSecret)
}

func TestNewApp_RejectsUnknownDriver(t *testing.T) {
	cfg := testConfig(t)
	cfg.Database.Driver = "oracle"

	_, err := NewApp(cfg, "test")
	assert.Error(t, err)
}

func TestRun_ValidatesConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Database.PoolMax = 0

	err := Run(cfg, "test")
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestSecretBytes(t *testing.T) {
	assert.Equal(t, []byte{0xde, 0xad}, secretBytes("dead"))
	assert.Equal(t, []byte("not hex"), secretBytes("not hex"))
}
