package tui

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"
)

// Theme holds the ANSI color palette for the board. Themes are small yaml
// files in the config directory; the zero name or a missing file falls back
// to the built-in default.
type Theme struct {
	Accent string `yaml:"accent"`
	Border string `yaml:"border"`
	Text   string `yaml:"text"`
	Dim    string `yaml:"dim"`
	Error  string `yaml:"error"`
	Warn   string `yaml:"warn"`
	Ok     string `yaml:"ok"`
}

// Package-level colors used by all render paths.
var (
	ColorAccent = lipgloss.Color("39")
	ColorBorder = lipgloss.Color("240")
	ColorText   = lipgloss.Color("7")
	ColorDim    = lipgloss.Color("8")
	ColorError  = lipgloss.Color("196")
	ColorWarn   = lipgloss.Color("208")
	ColorOk     = lipgloss.Color("40")
)

// InitializeTheme loads the named theme from configDir and applies it.
// "default" (or empty) keeps the built-in palette.
func InitializeTheme(name, configDir string) error {
	if name == "" || name == "default" {
		return nil
	}

	data, err := os.ReadFile(filepath.Join(configDir, "themes", name+".yml"))
	if err != nil {
		return fmt.Errorf("theme %q: %w", name, err)
	}

	var t Theme
	if err := yaml.Unmarshal(data, &t); err != nil {
		return fmt.Errorf("theme %q: %w", name, err)
	}

	apply := func(dst *lipgloss.Color, v string) {
		if v != "" {
			*dst = lipgloss.Color(v)
		}
	}
	apply(&ColorAccent, t.Accent)
	apply(&ColorBorder, t.Border)
	apply(&ColorText, t.Text)
	apply(&ColorDim, t.Dim)
	apply(&ColorError, t.Error)
	apply(&ColorWarn, t.Warn)
	apply(&ColorOk, t.Ok)
	return nil
}

// stateColor returns the color used for a processing state cell.
func stateColor(state string) lipgloss.Color {
	switch state {
	case "Ready":
		return ColorOk
	case "Needs reaggregation":
		return ColorWarn
	case "Reaggregating":
		return ColorAccent
	default:
		return ColorDim
	}
}
