package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harunaga/adpilot/internal/apperr"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "adpilot.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_FileThenEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
warehouse:
  driver: postgres
  dsn: postgres://localhost/adpilot_dev?sslmode=disable
engines:
  negative:
    risk_tolerance: 0.7
  whitelist:
    global:
      - water bottle
    by_asin:
      B000TEST01:
        - steel bottle
`)
	t.Setenv("BID_ENGINE_EXECUTION_MODE", "APPLY")
	t.Setenv("HTTP_PORT", "9090")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Warehouse.Driver)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.InDelta(t, 0.7, cfg.Engines.Negative.RiskTolerance, 1e-9)
	assert.Equal(t, []string{"water bottle"}, cfg.Engines.Whitelist.Global)
	assert.Equal(t, []string{"steel bottle"}, cfg.Engines.Whitelist.ByASIN["B000TEST01"])
	assert.Equal(t, 10, cfg.Engines.Whitelist.AutoTopSpendN, "auto detection keeps its default")

	flags := cfg.Flags()
	assert.Equal(t, "APPLY", flags.BidExecutionMode)
	assert.Equal(t, "SHADOW", flags.BudgetExecutionMode, "unset gate keeps the shadow default")
	assert.False(t, flags.NegativeApplyEnabled)

	// Untouched sections keep their package defaults.
	assert.EqualValues(t, 20, cfg.Engines.Negative.LearningMaxClicks)
	assert.EqualValues(t, 5, cfg.Apply.RatePerSecond)
}

func TestLoad_MissingDSNIsConfigError(t *testing.T) {
	path := writeConfig(t, "log_level: debug\n")

	_, err := Load(path)
	require.Error(t, err)
	var ce *apperr.ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "WAREHOUSE_DSN", ce.Key)
}

func TestLoad_InvalidExecutionMode(t *testing.T) {
	path := writeConfig(t, `
warehouse:
  dsn: postgres://localhost/x
`)
	t.Setenv("BID_ENGINE_EXECUTION_MODE", "YOLO")

	_, err := Load(path)
	var ce *apperr.ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "BID_ENGINE_EXECUTION_MODE", ce.Key)
}

func TestLoad_SnowflakeDSNFromParts(t *testing.T) {
	path := writeConfig(t, `
warehouse:
  driver: snowflake
snowflake:
  user: svc
  password: secret
  account: acct
  database: ads
  schema: public
  warehouse: wh1
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "svc:secret@acct/ads/public?warehouse=wh1", cfg.Warehouse.DSN)
}
