// Package config loads the application configuration from file and
// environment. Values come out as the typed configs the engines consume;
// anything malformed surfaces as a ConfigError before a run starts.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/mcauduro0/macro-trading/pkg/types"
)

// Config is the full application configuration.
type Config struct {
	Server      types.ServerConfig `json:"server"`
	Risk        types.RiskConfig   `json:"risk"`
	JournalPath string             `json:"journalPath"`
	DataDir     string             `json:"dataDir"`
	LogLevel    string             `json:"logLevel"`
}

// Load reads configuration from the given file (optional) plus MACRO_*
// environment variables and applies defaults for everything unset.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("MACRO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, &types.ConfigError{Field: "config", Reason: fmt.Sprintf("reading %s: %v", path, err)}
		}
	}

	cfg := &Config{
		Server: types.ServerConfig{
			Host:          v.GetString("server.host"),
			Port:          v.GetInt("server.port"),
			ReadTimeout:   v.GetDuration("server.readTimeout"),
			WriteTimeout:  v.GetDuration("server.writeTimeout"),
			EnableMetrics: v.GetBool("server.enableMetrics"),
		},
		Risk: types.RiskConfig{
			AUM:        decimal.NewFromFloat(v.GetFloat64("risk.aum")),
			MonteCarlo: types.DefaultMonteCarloConfig(),
			Breaker:    types.DefaultBreakerConfig(),
		},
		JournalPath: v.GetString("journal.path"),
		DataDir:     v.GetString("data.dir"),
		LogLevel:    v.GetString("log.level"),
	}

	if paths := v.GetInt("risk.monteCarlo.paths"); paths > 0 {
		cfg.Risk.MonteCarlo.Paths = paths
	}
	if seed := v.GetInt64("risk.monteCarlo.seed"); v.IsSet("risk.monteCarlo.seed") {
		cfg.Risk.MonteCarlo.Seed = seed
	}
	if workers := v.GetInt("risk.monteCarlo.workers"); workers > 0 {
		cfg.Risk.MonteCarlo.Workers = workers
	}

	if err := unmarshalSection(v, "risk.limits", &cfg.Risk.Limits); err != nil {
		return nil, err
	}
	if err := unmarshalSection(v, "risk.scenarios", &cfg.Risk.Scenarios); err != nil {
		return nil, err
	}
	if err := unmarshalSection(v, "risk.durationYears", &cfg.Risk.DurationYears); err != nil {
		return nil, err
	}
	if err := unmarshalSection(v, "risk.vegaByInstrument", &cfg.Risk.VegaByInstrument); err != nil {
		return nil, err
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.readTimeout", 15*time.Second)
	v.SetDefault("server.writeTimeout", 30*time.Second)
	v.SetDefault("server.enableMetrics", true)
	v.SetDefault("risk.aum", 0)
	v.SetDefault("journal.path", "macro-trading.db")
	v.SetDefault("data.dir", "data")
	v.SetDefault("log.level", "info")
}

func unmarshalSection(v *viper.Viper, key string, out any) error {
	if !v.IsSet(key) {
		return nil
	}
	if err := v.UnmarshalKey(key, out); err != nil {
		return &types.ConfigError{Field: key, Reason: err.Error()}
	}
	return nil
}

func validate(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return &types.ConfigError{Field: "server.port", Reason: "must be in (0, 65535]"}
	}
	switch strings.ToLower(cfg.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return &types.ConfigError{Field: "log.level", Reason: fmt.Sprintf("unknown level %q", cfg.LogLevel)}
	}
	for _, limit := range cfg.Risk.Limits {
		if limit.Name == "" {
			return &types.ConfigError{Field: "risk.limits", Reason: "limit name required"}
		}
		if limit.Threshold <= 0 {
			return &types.ConfigError{Field: "risk.limits." + limit.Name, Reason: "threshold must be positive"}
		}
	}
	return nil
}
