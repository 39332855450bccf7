// Package config loads and saves knackcost settings.
package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"

	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/pricing"
)

// EnvPrefix is prepended to environment overrides, e.g. KNACKCOST_PRICING_TAX_RATE.
const EnvPrefix = "KNACKCOST"

// Config holds all knackcost configuration.
type Config struct {
	Pricing   PricingConfig          `toml:"pricing" mapstructure:"pricing"`
	Tier      pricing.Tier           `toml:"tier" mapstructure:"tier"`
	Limits    pricing.CapacityLimits `toml:"limits" mapstructure:"limits"`
	Overrides []OverrideConfig       `toml:"overrides,omitempty" mapstructure:"overrides"`
	Log       LogConfig              `toml:"log" mapstructure:"log"`
	Daemon    DaemonConfig           `toml:"daemon" mapstructure:"daemon"`
	TUI       TUIConfig              `toml:"tui" mapstructure:"tui"`
}

// PricingConfig holds currency and tax settings.
type PricingConfig struct {
	CurrencySymbol string  `toml:"currency_symbol" mapstructure:"currency_symbol"`
	Currency       string  `toml:"currency" mapstructure:"currency"`
	IncludeTax     bool    `toml:"include_tax" mapstructure:"include_tax"`
	TaxRate        float64 `toml:"tax_rate" mapstructure:"tax_rate"`
	RoundTo        int     `toml:"round_to" mapstructure:"round_to"`
}

// OverrideConfig is one [[overrides]] table. Match holds either a literal
// customer name or the "/body/flags" pattern form; Pattern and Flags spell
// the pattern out explicitly. Literal forces Match to be taken verbatim.
type OverrideConfig struct {
	Match   string               `toml:"match,omitempty" mapstructure:"match"`
	Literal bool                 `toml:"literal,omitempty" mapstructure:"literal"`
	Pattern string               `toml:"pattern,omitempty" mapstructure:"pattern"`
	Flags   string               `toml:"flags,omitempty" mapstructure:"flags"`
	Tier    pricing.TierOverride `toml:"tier,omitempty" mapstructure:"tier"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `toml:"level" mapstructure:"level"`
	Format string `toml:"format" mapstructure:"format"`
}

// DaemonConfig controls the background re-processing service.
type DaemonConfig struct {
	Addr         string `toml:"addr" mapstructure:"addr"`
	IntervalSec  int    `toml:"interval_sec" mapstructure:"interval_sec"`
	ThrottleMs   int    `toml:"throttle_ms" mapstructure:"throttle_ms"`
	EventsBuffer int    `toml:"events_buffer" mapstructure:"events_buffer"`
	// AllowedOrigins lists browser origins the API answers; empty means the
	// Knack builder domains.
	AllowedOrigins []string `toml:"allowed_origins,omitempty" mapstructure:"allowed_origins"`
}

// TUIConfig holds dashboard preferences.
type TUIConfig struct {
	Theme              string `toml:"theme" mapstructure:"theme"`
	AutoRefresh        bool   `toml:"auto_refresh" mapstructure:"auto_refresh"`
	RefreshIntervalSec int    `toml:"refresh_interval_sec" mapstructure:"refresh_interval_sec"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	d := pricing.DefaultSettings()
	return Config{
		Pricing: PricingConfig{
			CurrencySymbol: d.CurrencySymbol,
			Currency:       d.Currency,
			IncludeTax:     d.IncludeTax,
			TaxRate:        d.TaxRate,
			RoundTo:        d.RoundTo,
		},
		Tier:   d.DefaultTier,
		Limits: d.Limits,
		Log: LogConfig{
			Level:  "warn",
			Format: "console",
		},
		Daemon: DaemonConfig{
			Addr:         "127.0.0.1:8788",
			IntervalSec:  30,
			ThrottleMs:   800,
			EventsBuffer: 200,
		},
		TUI: TUIConfig{
			Theme:              "github-dark",
			AutoRefresh:        true,
			RefreshIntervalSec: 30,
		},
	}
}

// Dir returns the XDG-compliant config directory.
func Dir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "knackcost")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "knackcost")
}

// Path returns the default config file path.
func Path() string {
	return filepath.Join(Dir(), "config.toml")
}

func resolve(path string) string {
	if path == "" {
		return Path()
	}
	return path
}

// Load reads defaults, then the TOML file at path (if any), then
// KNACKCOST_* environment variables. An empty path means Path().
func Load(path string) (Config, error) {
	path = resolve(path)
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return DefaultConfig(), eris.Wrapf(err, "config: read %s", path)
		}
	} else if !os.IsNotExist(err) {
		return DefaultConfig(), eris.Wrapf(err, "config: stat %s", path)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return DefaultConfig(), eris.Wrap(err, "config: unmarshal")
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("pricing.currency_symbol", d.Pricing.CurrencySymbol)
	v.SetDefault("pricing.currency", d.Pricing.Currency)
	v.SetDefault("pricing.include_tax", d.Pricing.IncludeTax)
	v.SetDefault("pricing.tax_rate", d.Pricing.TaxRate)
	v.SetDefault("pricing.round_to", d.Pricing.RoundTo)

	v.SetDefault("tier.base_limit", d.Tier.BaseLimit)
	v.SetDefault("tier.base_price", d.Tier.BasePrice)
	v.SetDefault("tier.step_size", d.Tier.StepSize)
	v.SetDefault("tier.step_price", d.Tier.StepPrice)
	v.SetDefault("tier.zero_is_free", d.Tier.ZeroIsFree)

	v.SetDefault("limits.max_records", d.Limits.MaxRecords)
	v.SetDefault("limits.max_storage_gb", d.Limits.MaxStorageGB)
	v.SetDefault("limits.monthly_base_cost", d.Limits.MonthlyBaseCost)
	v.SetDefault("limits.exchange_rate", d.Limits.ExchangeRate)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)

	v.SetDefault("daemon.addr", d.Daemon.Addr)
	v.SetDefault("daemon.interval_sec", d.Daemon.IntervalSec)
	v.SetDefault("daemon.throttle_ms", d.Daemon.ThrottleMs)
	v.SetDefault("daemon.events_buffer", d.Daemon.EventsBuffer)

	v.SetDefault("tui.theme", d.TUI.Theme)
	v.SetDefault("tui.auto_refresh", d.TUI.AutoRefresh)
	v.SetDefault("tui.refresh_interval_sec", d.TUI.RefreshIntervalSec)
}

// Save writes cfg to path as TOML. Settings are validated first and an
// invalid config is not written.
func Save(path string, cfg Config) error {
	if _, err := cfg.Settings(); err != nil {
		return err
	}

	path = resolve(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrap(err, "config: create dir")
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return eris.Wrap(err, "config: encode")
	}

	// Write beside the target and rename so a failed save leaves the old
	// file intact.
	f, err := os.CreateTemp(filepath.Dir(path), ".config-*.toml")
	if err != nil {
		return eris.Wrap(err, "config: create temp file")
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()

	if _, err := f.Write(buf.Bytes()); err != nil {
		_ = f.Close()
		return eris.Wrap(err, "config: write")
	}
	if err := f.Chmod(0o600); err != nil {
		_ = f.Close()
		return eris.Wrap(err, "config: chmod")
	}
	if err := f.Close(); err != nil {
		return eris.Wrap(err, "config: close")
	}
	if err := os.Rename(tmp, path); err != nil {
		return eris.Wrap(err, "config: replace file")
	}
	return nil
}

// Reset overwrites the file at path with the defaults.
func Reset(path string) error {
	return Save(path, DefaultConfig())
}

// Exists returns true if a config file exists at path.
func Exists(path string) bool {
	_, err := os.Stat(resolve(path))
	return err == nil
}
