package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the immutable run configuration handed to the orchestrator.
type Config struct {
	Cities   []string       `mapstructure:"cities"`
	API      APIConfig      `mapstructure:"api"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Storage  StorageConfig  `mapstructure:"storage"`
}

// APIConfig configures the vendor listing fetch client.
type APIConfig struct {
	BaseURL        string            `mapstructure:"base_url"`
	Headers        map[string]string `mapstructure:"headers"`
	PageSize       int               `mapstructure:"page_size"`
	AttemptTimeout time.Duration     `mapstructure:"attempt_timeout"`
}

// PipelineConfig tunes concurrency, rate limiting, and retries.
type PipelineConfig struct {
	Workers              int           `mapstructure:"workers"`
	MaxConcurrent        int           `mapstructure:"max_concurrent"`
	MaxRequestsPerWindow int           `mapstructure:"max_requests_per_window"`
	Window               time.Duration `mapstructure:"window"`
	MaxRetries           int           `mapstructure:"max_retries"`
	BaseDelay            time.Duration `mapstructure:"base_delay"`
	MaxDelay             time.Duration `mapstructure:"max_delay"`
	UploadAttemptTimeout time.Duration `mapstructure:"upload_attempt_timeout"`
	MaxDropFraction      float64       `mapstructure:"max_drop_fraction"`
	OutputDir            string        `mapstructure:"output_dir"`
	RawSnapshots         bool          `mapstructure:"raw_snapshots"`
}

// StorageConfig configures the S3-compatible object store.
type StorageConfig struct {
	Type      string `mapstructure:"type"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
}

// Load reads configuration from the given file (or ./configs/config.yaml)
// with environment variable overrides.
func Load(configPath string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("api.base_url", "https://disco.deliveryhero.io/listing/api/v1/pandora")
	v.SetDefault("api.page_size", 48)
	v.SetDefault("api.attempt_timeout", "30s")
	v.SetDefault("pipeline.workers", 4)
	v.SetDefault("pipeline.max_concurrent", 4)
	v.SetDefault("pipeline.max_requests_per_window", 30)
	v.SetDefault("pipeline.window", "10s")
	v.SetDefault("pipeline.max_retries", 3)
	v.SetDefault("pipeline.base_delay", "1s")
	v.SetDefault("pipeline.max_delay", "30s")
	v.SetDefault("pipeline.upload_attempt_timeout", "60s")
	v.SetDefault("pipeline.max_drop_fraction", 0.5)
	v.SetDefault("pipeline.output_dir", "./data")
	v.SetDefault("pipeline.raw_snapshots", false)
	v.SetDefault("storage.endpoint", "localhost:9000")
	v.SetDefault("storage.use_ssl", false)
	v.SetDefault("storage.bucket", "vendor-snapshots")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Bind environment variables explicitly for sensitive data
	v.BindEnv("storage.endpoint", "STORAGE_ENDPOINT")
	v.BindEnv("storage.access_key", "STORAGE_ACCESS_KEY")
	v.BindEnv("storage.secret_key", "STORAGE_SECRET_KEY")
	v.BindEnv("storage.bucket", "STORAGE_BUCKET")
	v.BindEnv("storage.region", "STORAGE_REGION")
	v.BindEnv("storage.use_ssl", "STORAGE_USE_SSL")
	v.BindEnv("api.base_url", "API_BASE_URL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if len(cfg.Cities) == 0 {
		return nil, fmt.Errorf("no cities configured")
	}

	return &cfg, nil
}
