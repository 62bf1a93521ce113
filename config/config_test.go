package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sartorproj/goregime/changepoint"
	"github.com/sartorproj/goregime/stats"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "goregime.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(NewViper(), "")
	require.NoError(t, err)

	assert.Equal(t, "reports", cfg.OutputDir)
	assert.True(t, cfg.Figures)
	assert.Equal(t, 30, cfg.VolatilityWindow)
	assert.Equal(t, 365, cfg.Analysis.Window)
	assert.Equal(t, 365, cfg.Analysis.Period)
	assert.Equal(t, 15.0, cfg.Analysis.Penalty)
	assert.Equal(t, changepoint.KernelRBF, cfg.Analysis.CostModel)
	assert.Equal(t, stats.RegressionConstant, cfg.Analysis.ADF.Regression)
	assert.Equal(t, stats.AutolagAIC, cfg.Analysis.ADF.Autolag)
	assert.Equal(t, []string{"02-Jan-06", "2006-01-02"}, cfg.CSV.DateFormats)
	assert.Equal(t, slog.LevelInfo, cfg.Log.SlogLevel())
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
input: prices.csv
output_dir: out
figures: false
volatility_window: 20
log:
  level: debug
  format: json
csv:
  delimiter: ";"
  value_column: Close
analysis:
  window: 30
  period: 12
  penalty: 4.5
  cost_model: l2
  adf:
    regression: ct
    autolag: bic
`)

	cfg, err := Load(NewViper(), path)
	require.NoError(t, err)

	assert.Equal(t, "prices.csv", cfg.Input)
	assert.Equal(t, "out", cfg.OutputDir)
	assert.False(t, cfg.Figures)
	assert.Equal(t, 20, cfg.VolatilityWindow)
	assert.Equal(t, slog.LevelDebug, cfg.Log.SlogLevel())
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 30, cfg.Analysis.Window)
	assert.Equal(t, 12, cfg.Analysis.Period)
	assert.Equal(t, 4.5, cfg.Analysis.Penalty)
	assert.Equal(t, changepoint.CostModelKind("l2"), cfg.Analysis.CostModel)
	assert.Equal(t, 2, cfg.Analysis.MinSegmentLength, "unset keys keep defaults")
	assert.Equal(t, stats.RegressionConstantTrend, cfg.Analysis.ADF.Regression)

	opts := cfg.CSV.Options()
	assert.Equal(t, ';', opts.Delimiter)
	assert.Equal(t, "Close", opts.ValueColumn)
	assert.True(t, opts.HasHeader)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("GOREGIME_ANALYSIS_PENALTY", "25")
	t.Setenv("GOREGIME_OUTPUT_DIR", "env-reports")

	path := writeConfig(t, "analysis:\n  penalty: 3\n")
	cfg, err := Load(NewViper(), path)
	require.NoError(t, err)

	assert.Equal(t, 25.0, cfg.Analysis.Penalty)
	assert.Equal(t, "env-reports", cfg.OutputDir)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown cost model", "analysis:\n  cost_model: arima\n"},
		{"zero window", "analysis:\n  window: 0\n"},
		{"small period", "analysis:\n  period: 1\n"},
		{"negative penalty", "analysis:\n  penalty: -2\n"},
		{"bad regression", "analysis:\n  adf:\n    regression: ctt\n"},
		{"bad log level", "log:\n  level: verbose\n"},
		{"long delimiter", "csv:\n  delimiter: \"::\"\n"},
		{"empty output", "output_dir: \"\"\n"},
		{"short volatility window", "volatility_window: 1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(NewViper(), writeConfig(t, tt.body))
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(NewViper(), filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestSlogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelWarn, LogConfig{Level: "WARN"}.SlogLevel())
	assert.Equal(t, slog.LevelError, LogConfig{Level: "error"}.SlogLevel())
	assert.Equal(t, slog.LevelInfo, LogConfig{}.SlogLevel())
}
