package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
store:
  postgres_dsn: postgres://file@localhost/sales
  timeout: 3s
forecast:
  horizon: 14
rates:
  foreign: [USD, EUR]
`), 0o600))

	t.Chdir(dir)
	t.Setenv("SALES_STORE_POSTGRES_DSN", "postgres://env@localhost/sales")
	t.Setenv("SALES_RATES_TEST_MODE", "true")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres://env@localhost/sales", cfg.Store.PostgresDSN, "env wins over file")
	assert.Equal(t, 3*time.Second, cfg.Store.Timeout)
	assert.Equal(t, 14, cfg.Forecast.Horizon)
	assert.Equal(t, []string{"USD", "EUR"}, cfg.Rates.Foreign)
	assert.True(t, cfg.Rates.TestMode)
	assert.Equal(t, 1300.0, cfg.Rates.TestRate)
	assert.Equal(t, 10, cfg.Forecast.MinPoints, "defaults survive")
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("SALES_LOGGING_LEVEL=debug\n"), 0o600))
	t.Chdir(dir)
	t.Cleanup(func() { os.Unsetenv("SALES_LOGGING_LEVEL") })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_RejectsInvalid(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SALES_FORECAST_HORIZON", "0")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Horizon")
}

func TestLoad_MissingFile(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := Load("does-not-exist.yaml")
	require.Error(t, err)
}
