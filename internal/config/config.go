package config

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config is the top-level configuration for coastwatchd.
type Config struct {
	ListenAddr string         `mapstructure:"listen_addr"`
	LogFormat  string         `mapstructure:"log_format"`
	Storage    StorageConfig  `mapstructure:"storage"`
	Detector   DetectorConfig `mapstructure:"detector"`
	Seed       SeedConfig     `mapstructure:"seed"`
}

// StorageConfig defines the database backend.
type StorageConfig struct {
	Driver   string         `mapstructure:"driver"` // "sqlite" or "postgres"
	SQLite   SQLiteConfig   `mapstructure:"sqlite"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// SQLiteConfig holds SQLite-specific configuration.
type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

// PostgresConfig holds PostgreSQL-specific configuration.
type PostgresConfig struct {
	DSN string `mapstructure:"dsn"`
}

// DetectorConfig holds anomaly detector training parameters.
type DetectorConfig struct {
	Threshold        float64 `mapstructure:"threshold"`
	Epochs           int     `mapstructure:"epochs"`
	BatchSize        int     `mapstructure:"batch_size"`
	LearningRate     float64 `mapstructure:"learning_rate"`
	RetrainOnStartup bool    `mapstructure:"retrain_on_startup"`
}

// SeedConfig controls mock-data bootstrap for empty stores.
type SeedConfig struct {
	OnStartup bool `mapstructure:"on_startup"`
	Readings  int  `mapstructure:"readings"`
	Anomalies int  `mapstructure:"anomalies"`
}

// Load reads configuration from flag path, env vars, then default file paths.
// Precedence: flag → $COASTWATCHD_CONFIG env → ~/.config/coastwatchd/config.yaml → /etc/coastwatchd/config.yaml
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	// Defaults
	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("log_format", "json")
	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.sqlite.path", "coastwatchd.db")
	v.SetDefault("detector.threshold", 0.05)
	v.SetDefault("detector.epochs", 20)
	v.SetDefault("detector.batch_size", 32)
	v.SetDefault("detector.learning_rate", 0.01)
	v.SetDefault("detector.retrain_on_startup", true)
	v.SetDefault("seed.on_startup", true)
	v.SetDefault("seed.readings", 200)
	v.SetDefault("seed.anomalies", 3)

	// Env var support
	v.SetEnvPrefix("COASTWATCHD")
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else if envPath := os.Getenv("COASTWATCHD_CONFIG"); envPath != "" {
		v.SetConfigFile(envPath)
	} else {
		// Try ~/.config/coastwatchd/config.yaml first
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "coastwatchd"))
		}
		// Fall back to /etc/coastwatchd/config.yaml
		v.AddConfigPath("/etc/coastwatchd")
		v.SetConfigName("config")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	} else {
		// Warn if config file is world-readable.
		if cfgPath := v.ConfigFileUsed(); cfgPath != "" {
			if info, err := os.Stat(cfgPath); err == nil {
				perm := info.Mode().Perm()
				if perm&0004 != 0 {
					slog.Warn("config file is world-readable", "path", cfgPath, "permissions", fmt.Sprintf("%04o", perm))
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the configuration is complete and correct.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "sqlite":
		if c.Storage.SQLite.Path == "" {
			return fmt.Errorf("storage.sqlite.path is required for sqlite driver")
		}
		dir := filepath.Dir(c.Storage.SQLite.Path)
		if dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0700); err != nil {
				return fmt.Errorf("creating storage directory %q: %w", dir, err)
			}
		}
	case "postgres":
		if c.Storage.Postgres.DSN == "" {
			return fmt.Errorf("storage.postgres.dsn is required for postgres driver")
		}
	default:
		return fmt.Errorf("storage.driver must be 'sqlite' or 'postgres', got %q", c.Storage.Driver)
	}

	if c.Detector.Threshold <= 0 {
		return fmt.Errorf("detector.threshold must be positive, got %v", c.Detector.Threshold)
	}
	if c.Detector.Epochs <= 0 {
		return fmt.Errorf("detector.epochs must be positive, got %d", c.Detector.Epochs)
	}
	if c.Detector.BatchSize <= 0 {
		return fmt.Errorf("detector.batch_size must be positive, got %d", c.Detector.BatchSize)
	}
	if c.Detector.LearningRate <= 0 {
		return fmt.Errorf("detector.learning_rate must be positive, got %v", c.Detector.LearningRate)
	}
	if c.Seed.Readings < 0 || c.Seed.Anomalies < 0 {
		return fmt.Errorf("seed.readings and seed.anomalies must not be negative")
	}

	// Validate listen_addr.
	if _, _, err := net.SplitHostPort(c.ListenAddr); err != nil {
		return fmt.Errorf("listen_addr %q is not a valid address: %w", c.ListenAddr, err)
	}

	return nil
}

// DSN returns the appropriate DSN for the configured storage driver.
func (c *Config) DSN() string {
	switch c.Storage.Driver {
	case "sqlite":
		return c.Storage.SQLite.Path
	case "postgres":
		return c.Storage.Postgres.DSN
	default:
		return ""
	}
}
