package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"golang.org/x/text/language"

	"github.com/Veraticus/fxlens/internal/common"
	"github.com/Veraticus/fxlens/internal/currency"
)

// EnvPrefix is the prefix of environment overrides, e.g. FXLENS_RATES_BASE.
const EnvPrefix = "FXLENS"

// Config is the typed application configuration.
type Config struct {
	Logging  LoggingConfig  `mapstructure:"logging"`
	Database DatabaseConfig `mapstructure:"database"`
	Serve    ServeConfig    `mapstructure:"serve"`
	Rates    RatesConfig    `mapstructure:"rates"`
	Engine   EngineConfig   `mapstructure:"engine"`
}

// LoggingConfig configures the default slog logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DatabaseConfig locates the SQLite database.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// RatesConfig configures the rate provider and its cache.
type RatesConfig struct {
	Base              string        `mapstructure:"base"`
	URL               string        `mapstructure:"url"`
	MaxAge            time.Duration `mapstructure:"max_age"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RetryMax          int           `mapstructure:"retry_max"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
}

// EngineConfig configures annotation views.
type EngineConfig struct {
	Locale            string          `mapstructure:"locale"`
	RepassDelays      []time.Duration `mapstructure:"repass_delays"`
	MaxMutationRounds int             `mapstructure:"max_mutation_rounds"`
}

// ServeConfig configures the HTTP server.
type ServeConfig struct {
	Addr    string `mapstructure:"addr"`
	CertDir string `mapstructure:"cert_dir"`
	TLS     bool   `mapstructure:"tls"`
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("database.path", "$HOME/.local/share/fxlens/fxlens.db")
	v.SetDefault("rates.base", "EUR")
	v.SetDefault("rates.url", "https://api.frankfurter.app")
	v.SetDefault("rates.max_age", 4*time.Hour)
	v.SetDefault("rates.timeout", 15*time.Second)
	v.SetDefault("rates.retry_max", 3)
	v.SetDefault("rates.requests_per_second", 2.0)
	v.SetDefault("engine.locale", "en-US")
	v.SetDefault("engine.repass_delays", []time.Duration{time.Second, 3 * time.Second})
	v.SetDefault("engine.max_mutation_rounds", 8)
	v.SetDefault("serve.addr", "127.0.0.1:8089")
	v.SetDefault("serve.tls", false)
	v.SetDefault("serve.cert_dir", "$HOME/.local/share/fxlens/certs")
}

// BindEnv enables FXLENS_ environment overrides for nested keys.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load unmarshals and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidConfig, err)
	}

	cfg.Database.Path = ExpandPath(cfg.Database.Path)
	cfg.Serve.CertDir = ExpandPath(cfg.Serve.CertDir)
	cfg.Rates.Base = strings.ToUpper(strings.TrimSpace(cfg.Rates.Base))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values Load cannot repair.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("%w: database.path", common.ErrMissingConfig)
	}
	if !currency.IsSupported(c.Rates.Base) {
		return fmt.Errorf("%w: rates.base %q is not a supported currency", common.ErrInvalidConfig, c.Rates.Base)
	}
	if c.Rates.MaxAge <= 0 {
		return fmt.Errorf("%w: rates.max_age must be positive", common.ErrInvalidConfig)
	}
	if c.Rates.URL == "" {
		return fmt.Errorf("%w: rates.url", common.ErrMissingConfig)
	}
	if c.Engine.MaxMutationRounds <= 0 {
		return fmt.Errorf("%w: engine.max_mutation_rounds must be positive", common.ErrInvalidConfig)
	}
	for _, d := range c.Engine.RepassDelays {
		if d < 0 {
			return fmt.Errorf("%w: engine.repass_delays must not be negative", common.ErrInvalidConfig)
		}
	}
	if _, err := c.Engine.Language(); err != nil {
		return err
	}
	return nil
}

// Language parses the configured formatting locale.
func (e EngineConfig) Language() (language.Tag, error) {
	tag, err := language.Parse(e.Locale)
	if err != nil {
		return language.Und, fmt.Errorf("%w: engine.locale %q: %w", common.ErrInvalidConfig, e.Locale, err)
	}
	return tag, nil
}
