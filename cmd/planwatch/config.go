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

const (
	defaultPollInterval = model.DefaultPollInterval
	defaultServerURL    = model.DefaultServerURL
	defaultTheme        = model.DefaultTheme
)

// cliConfig holds only board-relevant configuration.
type cliConfig struct {
	ServerURL    string        `mapstructure:"server-url"`
	PollInterval time.Duration `mapstructure:"poll-interval"`
	Username     string        `mapstructure:"username"`
	Theme        string        `mapstructure:"theme"`
	StatusPath   string        `mapstructure:"status-path"`
	PlansPath    string        `mapstructure:"plans-path"`
	ReaggPrefix  string        `mapstructure:"reagg-prefix"`
	ReaggSuffix  string        `mapstructure:"reagg-suffix"`
}

func loadCLIConfig(configPath string) (cliConfig, error) {
	var cfg cliConfig

	home, err := os.UserHomeDir()
	if err != nil {
		return cfg, fmt.Errorf("finding home directory: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("PLANWATCH")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault("server-url", defaultServerURL)
	v.SetDefault("poll-interval", defaultPollInterval)
	v.SetDefault("username", currentUsername())
	v.SetDefault("theme", defaultTheme)
	v.SetDefault("status-path", model.DefaultStatusPath)
	v.SetDefault("plans-path", model.DefaultPlansPath)
	v.SetDefault("reagg-prefix", model.DefaultReaggPrefix)
	v.SetDefault("reagg-suffix", model.DefaultReaggSuffix)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigFile(filepath.Join(home, ".config", "planwatch", "config.yml"))
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

	if cfg.PollInterval <= 0 {
		return cfg, fmt.Errorf("invalid poll-interval: %s", cfg.PollInterval)
	}

	return cfg, nil
}

func currentUsername() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "anonymous"
}
