package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Failure policies for per-view errors.
const (
	PolicyContinue = "continue"
	PolicyStop     = "stop"
)

// Config holds the reporting job configuration.
type Config struct {
	InputPath       string `yaml:"input_path"`
	OutputDir       string `yaml:"output_dir"`
	LogDir          string `yaml:"log_dir"`
	AmountThreshold string `yaml:"amount_threshold"`
	FailurePolicy   string `yaml:"failure_policy"`

	Chart     ChartConfig     `yaml:"chart"`
	Registry  RegistryConfig  `yaml:"registry"`
	Storage   StorageConfig   `yaml:"storage"`
	Warehouse WarehouseConfig `yaml:"warehouse"`
	RunStore  RunStoreConfig  `yaml:"run_store"`
	Notion    NotionConfig    `yaml:"notion"`
}

// ChartConfig sizes rendered images in pixels.
type ChartConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// RegistryConfig configures presence registration.
type RegistryConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	Password string `yaml:"password"`
	Key      string `yaml:"key"`
	Payload  string `yaml:"payload"`
}

// StorageConfig configures the optional GCS artifact mirror.
type StorageConfig struct {
	Bucket string `yaml:"bucket"`
	Prefix string `yaml:"prefix"`
}

// WarehouseConfig configures the optional BigQuery export sink.
type WarehouseConfig struct {
	ProjectID string `yaml:"project_id"`
	Dataset   string `yaml:"dataset"`
	Table     string `yaml:"table"`
}

// Enabled reports whether all sink coordinates are set.
func (w WarehouseConfig) Enabled() bool {
	return w.ProjectID != "" && w.Dataset != "" && w.Table != ""
}

// RunStoreConfig selects the run ledger backend. An empty path keeps runs in memory.
type RunStoreConfig struct {
	Path string `yaml:"path"`
}

// NotionConfig configures publishing run summaries to a Notion database.
type NotionConfig struct {
	Token      string `yaml:"token"`
	DatabaseID string `yaml:"database_id"`
}

// Enabled reports whether both the token and the database are set.
func (n NotionConfig) Enabled() bool {
	return n.Token != "" && n.DatabaseID != ""
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		InputPath:       "data/transaction_data.csv",
		OutputDir:       "data",
		LogDir:          "logs",
		AmountThreshold: "500",
		FailurePolicy:   PolicyContinue,
		Chart: ChartConfig{
			Width:  1000,
			Height: 600,
		},
		Registry: RegistryConfig{
			Host:    "localhost",
			Port:    "6379",
			Key:     "/big_data_node",
			Payload: "Initial data",
		},
		Storage: StorageConfig{
			Prefix: "reports",
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file,
// a .env file if present, and finally environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("Load: read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("Load: parse config file: %w", err)
		}
	}

	// .env is optional
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("Load: read .env: %w", err)
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.InputPath = getEnvOrDefault("REPORT_INPUT", c.InputPath)
	c.OutputDir = getEnvOrDefault("REPORT_OUTPUT_DIR", c.OutputDir)
	c.LogDir = getEnvOrDefault("REPORT_LOG_DIR", c.LogDir)
	c.AmountThreshold = getEnvOrDefault("REPORT_AMOUNT_THRESHOLD", c.AmountThreshold)
	c.FailurePolicy = getEnvOrDefault("REPORT_FAILURE_POLICY", c.FailurePolicy)

	c.Chart.Width = getEnvInt("REPORT_CHART_WIDTH", c.Chart.Width)
	c.Chart.Height = getEnvInt("REPORT_CHART_HEIGHT", c.Chart.Height)

	c.Registry.Enabled = getEnvBool("REGISTRY_ENABLED", c.Registry.Enabled)
	c.Registry.Host = getEnvOrDefault("REDIS_HOST", c.Registry.Host)
	c.Registry.Port = getEnvOrDefault("REDIS_PORT", c.Registry.Port)
	c.Registry.Password = getEnvOrDefault("REDIS_PASSWORD", c.Registry.Password)
	c.Registry.Key = getEnvOrDefault("REGISTRY_KEY", c.Registry.Key)

	c.Storage.Bucket = getEnvOrDefault("ARTIFACT_BUCKET", c.Storage.Bucket)
	c.Storage.Prefix = getEnvOrDefault("ARTIFACT_PREFIX", c.Storage.Prefix)

	c.Warehouse.ProjectID = getEnvOrDefault("BQ_PROJECT", c.Warehouse.ProjectID)
	c.Warehouse.Dataset = getEnvOrDefault("BQ_DATASET", c.Warehouse.Dataset)
	c.Warehouse.Table = getEnvOrDefault("BQ_TABLE", c.Warehouse.Table)

	c.RunStore.Path = getEnvOrDefault("RUN_STORE_PATH", c.RunStore.Path)

	c.Notion.Token = getEnvOrDefault("NOTION_TOKEN", c.Notion.Token)
	c.Notion.DatabaseID = getEnvOrDefault("NOTION_DATABASE_ID", c.Notion.DatabaseID)
}

// Validate checks values that would otherwise fail deep inside the pipeline.
func (c *Config) Validate() error {
	if c.InputPath == "" {
		return fmt.Errorf("config: input path is required")
	}
	if c.OutputDir == "" {
		return fmt.Errorf("config: output dir is required")
	}
	if _, err := decimal.NewFromString(c.AmountThreshold); err != nil {
		return fmt.Errorf("config: amount threshold %q is not a decimal: %w", c.AmountThreshold, err)
	}
	switch c.FailurePolicy {
	case PolicyContinue, PolicyStop:
	default:
		return fmt.Errorf("config: unknown failure policy %q (want %q or %q)", c.FailurePolicy, PolicyContinue, PolicyStop)
	}
	if c.Chart.Width <= 0 || c.Chart.Height <= 0 {
		return fmt.Errorf("config: chart size must be positive, got %dx%d", c.Chart.Width, c.Chart.Height)
	}
	return nil
}

// Threshold returns the parsed amount threshold. Validate guarantees it parses.
func (c *Config) Threshold() decimal.Decimal {
	return decimal.RequireFromString(c.AmountThreshold)
}

// RedisAddr returns host:port for the registry.
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Registry.Host, c.Registry.Port)
}

// getEnvOrDefault gets environment variable or returns default value
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets environment variable as int or returns default value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return defaultValue
	}
	return intValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return defaultValue
	}
	return b
}
