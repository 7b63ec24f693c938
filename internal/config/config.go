package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix prefixes every environment variable, e.g. SALES_STORE_POSTGRES_DSN.
const EnvPrefix = "SALES"

// Config represents the complete application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" envconfig:"STORE"`
	Rates    RatesConfig    `yaml:"rates" envconfig:"RATES"`
	Forecast ForecastConfig `yaml:"forecast" envconfig:"FORECAST"`
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
	Server   ServerConfig   `yaml:"server" envconfig:"SERVER"`
}

// StoreConfig locates the row store and the forecast-run archive.
// An empty DSN disables that backend.
type StoreConfig struct {
	PostgresDSN   string        `yaml:"postgres_dsn" envconfig:"POSTGRES_DSN"`
	ClickhouseDSN string        `yaml:"clickhouse_dsn" envconfig:"CLICKHOUSE_DSN"`
	Timeout       time.Duration `yaml:"timeout" envconfig:"TIMEOUT" validate:"gt=0"`
	MaxConns      int32         `yaml:"max_conns" envconfig:"MAX_CONNS" validate:"gte=0"`
}

// RatesConfig configures currency normalization.
type RatesConfig struct {
	Endpoint   string        `yaml:"endpoint" envconfig:"ENDPOINT" validate:"omitempty,url"`
	APIKey     string        `yaml:"api_key" envconfig:"API_KEY"`
	Timeout    time.Duration `yaml:"timeout" envconfig:"TIMEOUT" validate:"gt=0"`
	MaxRetries int           `yaml:"max_retries" envconfig:"MAX_RETRIES" validate:"gte=0,lte=10"`
	RPS        float64       `yaml:"rps" envconfig:"RPS" validate:"gt=0"`
	Canonical  string        `yaml:"canonical" envconfig:"CANONICAL" validate:"len=3"`
	Foreign    []string      `yaml:"foreign" envconfig:"FOREIGN" validate:"dive,len=3"`
	TestMode   bool          `yaml:"test_mode" envconfig:"TEST_MODE"`
	TestRate   float64       `yaml:"test_rate" envconfig:"TEST_RATE" validate:"gt=0"`
}

// ForecastConfig bounds the forecast engine.
type ForecastConfig struct {
	Horizon          int     `yaml:"horizon" envconfig:"HORIZON" validate:"gte=1,lte=366"`
	MinPoints        int     `yaml:"min_points" envconfig:"MIN_POINTS" validate:"gte=3"`
	Ceiling          float64 `yaml:"ceiling" envconfig:"CEILING" validate:"gt=0"`
	OutlierThreshold float64 `yaml:"outlier_threshold" envconfig:"OUTLIER_THRESHOLD" validate:"gt=0"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn warning error"`
	Format string `yaml:"format" envconfig:"FORMAT" validate:"oneof=json text"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Addr            string        `yaml:"addr" envconfig:"ADDR" validate:"required"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" validate:"gt=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" validate:"gt=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" validate:"gt=0"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes" envconfig:"MAX_UPLOAD_BYTES" validate:"gt=0"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Timeout:  10 * time.Second,
			MaxConns: 4,
		},
		Rates: RatesConfig{
			Endpoint:   "https://v6.exchangerate-api.com/v6",
			Timeout:    5 * time.Second,
			MaxRetries: 2,
			RPS:        2,
			Canonical:  "KRW",
			Foreign:    []string{"USD"},
			TestRate:   1300,
		},
		Forecast: ForecastConfig{
			Horizon:          7,
			MinPoints:        10,
			Ceiling:          1e9,
			OutlierThreshold: 2,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			MaxUploadBytes:  32 << 20,
		},
	}
}

// Load builds the configuration in layers: defaults, then the YAML file at
// path (if non-empty), then a .env file in the working directory (if present),
// then SALES_* environment variables. The result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	return validator.New().Struct(c)
}
