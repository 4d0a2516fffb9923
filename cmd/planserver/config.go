package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/publicmapping/planwatch/internal/model"

	"github.com/spf13/viper"
)

const defaultReaggDuration = 5 * time.Second

// appConfig is internal runtime configuration for the plan service.
type appConfig struct {
	APIAddr       string        `mapstructure:"api-addr"`
	DBPath        string        `mapstructure:"db-path"`
	ReaggDuration time.Duration `mapstructure:"reagg-duration"`
	Seed          bool          `mapstructure:"seed"`
	Debug         bool          `mapstructure:"debug"`
	ConfigPath    string        `mapstructure:"-"` // not from config file
}

func loadConfig(configPath string) (appConfig, error) {
	var cfg appConfig

	home, err := os.UserHomeDir()
	if err != nil {
		return cfg, fmt.Errorf("finding home directory: %w", err)
	}

	defaultDBPath := filepath.Join(home, ".local", "share", "planwatch", "plans.db")

	v := viper.New()
	v.SetEnvPrefix("PLANSERVER")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault("api-addr", model.DefaultAPIAddr)
	v.SetDefault("db-path", defaultDBPath)
	v.SetDefault("reagg-duration", defaultReaggDuration)
	v.SetDefault("seed", false)
	v.SetDefault("debug", false)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigFile(filepath.Join(home, ".config", "planwatch", "server.yml"))
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFound) && !os.IsNotExist(err) {
			return cfg, err
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	cfg.ConfigPath = v.ConfigFileUsed()

	if cfg.ReaggDuration <= 0 {
		return cfg, fmt.Errorf("invalid reagg-duration: %s", cfg.ReaggDuration)
	}

	return cfg, nil
}
