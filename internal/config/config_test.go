package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "data/transaction_data.csv", cfg.InputPath)
	assert.Equal(t, "data", cfg.OutputDir)
	assert.Equal(t, "logs", cfg.LogDir)
	assert.Equal(t, PolicyContinue, cfg.FailurePolicy)
	assert.Equal(t, "/big_data_node", cfg.Registry.Key)
	assert.Equal(t, "Initial data", cfg.Registry.Payload)
	assert.Equal(t, "500", cfg.Threshold().String())
	assert.False(t, cfg.Warehouse.Enabled())
	assert.False(t, cfg.Notion.Enabled())
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.yaml")
	content := `
input_path: exports/latest.csv
output_dir: out
failure_policy: stop
chart:
  width: 640
  height: 480
warehouse:
  project_id: proj
  dataset: finance
  table: filtered_transactions
notion:
  database_id: runs-db
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	t.Setenv("REPORT_OUTPUT_DIR", "env-out")
	t.Setenv("REPORT_AMOUNT_THRESHOLD", "750.25")
	t.Setenv("REGISTRY_ENABLED", "true")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("NOTION_TOKEN", "secret")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "exports/latest.csv", cfg.InputPath)
	assert.Equal(t, "env-out", cfg.OutputDir, "environment overrides the file")
	assert.Equal(t, PolicyStop, cfg.FailurePolicy)
	assert.Equal(t, 640, cfg.Chart.Width)
	assert.Equal(t, "750.25", cfg.Threshold().String())
	assert.True(t, cfg.Registry.Enabled)
	assert.Equal(t, "localhost:6380", cfg.RedisAddr())
	assert.True(t, cfg.Warehouse.Enabled())
	assert.Equal(t, "runs-db", cfg.Notion.DatabaseID)
	assert.True(t, cfg.Notion.Enabled())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(c *Config) {}},
		{name: "unknown policy", mutate: func(c *Config) { c.FailurePolicy = "retry" }, wantErr: true},
		{name: "bad threshold", mutate: func(c *Config) { c.AmountThreshold = "five hundred" }, wantErr: true},
		{name: "zero width", mutate: func(c *Config) { c.Chart.Width = 0 }, wantErr: true},
		{name: "empty input", mutate: func(c *Config) { c.InputPath = "" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("REPORT_TEST_INT", "not-a-number")
	t.Setenv("REPORT_TEST_BOOL", "yes please")

	assert.Equal(t, 7, getEnvInt("REPORT_TEST_INT", 7))
	assert.True(t, getEnvBool("REPORT_TEST_BOOL", true))
	assert.Equal(t, "fallback", getEnvOrDefault("REPORT_TEST_UNSET", "fallback"))
}
