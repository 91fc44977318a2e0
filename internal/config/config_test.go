package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/Veraticus/fxlens/internal/common"
)

func newViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	BindEnv(v)
	return v
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HOME", "/home/tester")

	cfg, err := Load(newViper())
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, "/home/tester/.local/share/fxlens/fxlens.db", cfg.Database.Path)
	assert.Equal(t, "EUR", cfg.Rates.Base)
	assert.Equal(t, "https://api.frankfurter.app", cfg.Rates.URL)
	assert.Equal(t, 4*time.Hour, cfg.Rates.MaxAge)
	assert.Equal(t, 15*time.Second, cfg.Rates.Timeout)
	assert.Equal(t, 3, cfg.Rates.RetryMax)
	assert.InDelta(t, 2.0, cfg.Rates.RequestsPerSecond, 0)
	assert.Equal(t, []time.Duration{time.Second, 3 * time.Second}, cfg.Engine.RepassDelays)
	assert.Equal(t, 8, cfg.Engine.MaxMutationRounds)
	assert.Equal(t, "127.0.0.1:8089", cfg.Serve.Addr)
	assert.False(t, cfg.Serve.TLS)
	assert.Equal(t, "/home/tester/.local/share/fxlens/certs", cfg.Serve.CertDir)

	tag, err := cfg.Engine.Language()
	require.NoError(t, err)
	assert.Equal(t, language.AmericanEnglish, tag)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("FXLENS_RATES_BASE", "usd")
	t.Setenv("FXLENS_RATES_MAX_AGE", "30m")
	t.Setenv("FXLENS_SERVE_ADDR", ":9000")

	cfg, err := Load(newViper())
	require.NoError(t, err)

	assert.Equal(t, "USD", cfg.Rates.Base)
	assert.Equal(t, 30*time.Minute, cfg.Rates.MaxAge)
	assert.Equal(t, ":9000", cfg.Serve.Addr)
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
rates:
  base: GBP
engine:
  locale: de-DE
  repass_delays: ["500ms"]
`), 0o600))

	v := newViper()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "GBP", cfg.Rates.Base)
	assert.Equal(t, []time.Duration{500 * time.Millisecond}, cfg.Engine.RepassDelays)

	tag, err := cfg.Engine.Language()
	require.NoError(t, err)
	assert.Equal(t, "de-DE", tag.String())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   any
		wantErr error
	}{
		{name: "unknown base", key: "rates.base", value: "XXX", wantErr: common.ErrInvalidConfig},
		{name: "zero max age", key: "rates.max_age", value: time.Duration(0), wantErr: common.ErrInvalidConfig},
		{name: "bad locale", key: "engine.locale", value: "not a locale!", wantErr: common.ErrInvalidConfig},
		{name: "no rounds", key: "engine.max_mutation_rounds", value: 0, wantErr: common.ErrInvalidConfig},
		{name: "empty url", key: "rates.url", value: "", wantErr: common.ErrMissingConfig},
		{name: "empty database", key: "database.path", value: "", wantErr: common.ErrMissingConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newViper()
			v.Set(tt.key, tt.value)

			_, err := Load(v)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestExpandPath(t *testing.T) {
	t.Setenv("HOME", "/home/tester")
	t.Setenv("FXLENS_DIR", "/srv/fxlens")

	tests := []struct {
		input string
		want  string
	}{
		{input: "", want: ""},
		{input: "~", want: "/home/tester"},
		{input: "~/data/fx.db", want: "/home/tester/data/fx.db"},
		{input: "$FXLENS_DIR/fx.db", want: "/srv/fxlens/fx.db"},
		{input: "/abs/fx.db", want: "/abs/fx.db"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpandPath(tt.input))
		})
	}
}
