package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/publicmapping/planwatch/internal/client"
	"github.com/publicmapping/planwatch/internal/tui"

	tea "github.com/charmbracelet/bubbletea"
)

// Build variables - set by ldflags during build.
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

func main() {
	var configPath string
	var serverURL string
	var showVersion bool

	flag.StringVar(&configPath, "config", "", "config file (default is $HOME/.config/planwatch/config.yml)")
	flag.StringVar(&serverURL, "server", "", "override plan service URL")
	flag.BoolVar(&showVersion, "version", false, "print version information")
	flag.Parse()

	if showVersion {
		fmt.Printf("planwatch - Redistricting Plan Board\n")
		fmt.Printf("  Version: %s\n", version)
		fmt.Printf("  Commit:  %s\n", commit)
		fmt.Printf("  Built:   %s\n", buildTime)
		return
	}

	cfg, err := loadCLIConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if serverURL != "" {
		cfg.ServerURL = serverURL
	}

	if err := runTUI(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runTUI(cfg cliConfig) error {
	home, err := os.UserHomeDir()
	if err == nil {
		configDir := filepath.Join(home, ".config", "planwatch")
		if err := tui.InitializeTheme(cfg.Theme, configDir); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to load theme %q: %v (using default)\n", cfg.Theme, err)
		}
	}

	api := client.New(client.Config{
		BaseURL:     cfg.ServerURL,
		StatusPath:  cfg.StatusPath,
		PlansPath:   cfg.PlansPath,
		ReaggPrefix: cfg.ReaggPrefix,
		ReaggSuffix: cfg.ReaggSuffix,
		Username:    cfg.Username,
	})

	board := tui.NewPlanBoard(tui.Config{
		API:          api,
		Username:     cfg.Username,
		PollInterval: cfg.PollInterval,
	})
	app := tui.NewApp(tui.NewPlanBoardPage(board))

	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		if strings.Contains(err.Error(), "TTY") || strings.Contains(err.Error(), "/dev/tty") {
			return fmt.Errorf("TUI requires a real terminal")
		}
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
