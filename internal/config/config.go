package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	PGDSN           string
	StateFile       string
	Journal         string
	FeeRate         string
	MaxPriceImpact  string
	WarnPriceImpact string
	MaxRetries      int
	RetryBackoff    time.Duration
	LogLevel        string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("DEX")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("state-file", "./data/dex_state.json")
	v.SetDefault("fee-rate", "0.003")
	v.SetDefault("max-price-impact", "10")
	v.SetDefault("warn-price-impact", "5")
	v.SetDefault("max-retries", 3)
	v.SetDefault("retry-backoff", 25*time.Millisecond)
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		PGDSN:           v.GetString("pg-dsn"),
		StateFile:       v.GetString("state-file"),
		Journal:         v.GetString("journal"),
		FeeRate:         v.GetString("fee-rate"),
		MaxPriceImpact:  v.GetString("max-price-impact"),
		WarnPriceImpact: v.GetString("warn-price-impact"),
		MaxRetries:      v.GetInt("max-retries"),
		RetryBackoff:    v.GetDuration("retry-backoff"),
		LogLevel:        v.GetString("log-level"),
	}

	return cfg, nil
}
