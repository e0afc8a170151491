// Package config loads application configuration from file and environment
// and initializes the global logger.
package config

import (
	"math"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Compare   CompareConfig   `yaml:"compare" mapstructure:"compare"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Nominatim NominatimConfig `yaml:"nominatim" mapstructure:"nominatim"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// CompareConfig configures the reconciliation engine.
type CompareConfig struct {
	// ThresholdPct is the loading-delta tolerance in percentage points.
	ThresholdPct float64 `yaml:"threshold_pct" mapstructure:"threshold_pct"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port              int      `yaml:"port" mapstructure:"port"`
	UploadDir         string   `yaml:"upload_dir" mapstructure:"upload_dir"`
	MaxUploadMB       int64    `yaml:"max_upload_mb" mapstructure:"max_upload_mb"`
	AllowedExtensions []string `yaml:"allowed_extensions" mapstructure:"allowed_extensions"`
}

// NominatimConfig configures the reverse-geocoding client.
type NominatimConfig struct {
	BaseURL   string `yaml:"base_url" mapstructure:"base_url"`
	UserAgent string `yaml:"user_agent" mapstructure:"user_agent"`
	Disabled  bool   `yaml:"disabled" mapstructure:"disabled"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Validate checks the configuration for the given run mode ("compare",
// "cover", or "serve"). It collects every problem instead of stopping at
// the first.
func (c *Config) Validate(mode string) error {
	var problems []string

	if math.IsNaN(c.Compare.ThresholdPct) || math.IsInf(c.Compare.ThresholdPct, 0) || c.Compare.ThresholdPct < 0 {
		problems = append(problems, "compare.threshold_pct must be a finite non-negative number")
	}

	switch mode {
	case "compare", "cover":
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			problems = append(problems, "server.port must be > 0 and <= 65535")
		}
		if c.Server.MaxUploadMB < 1 || c.Server.MaxUploadMB > 500 {
			problems = append(problems, "server.max_upload_mb must be between 1 and 500")
		}
		if len(c.Server.AllowedExtensions) == 0 {
			problems = append(problems, "server.allowed_extensions must not be empty")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("DELIVERY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("compare.threshold_pct", 5.0)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.upload_dir", "")
	v.SetDefault("server.max_upload_mb", 50)
	v.SetDefault("server.allowed_extensions", []string{".xlsx", ".json"})
	v.SetDefault("nominatim.base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("nominatim.user_agent", "cps-delivery-cli/1.0")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
