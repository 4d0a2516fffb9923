package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/publicmapping/planwatch/internal/model"
	"github.com/publicmapping/planwatch/internal/planserver"
	"github.com/publicmapping/planwatch/internal/planstore"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Build variables - set by ldflags during build.
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

func main() {
	var configPath string
	var showVersion bool

	flag.StringVar(&configPath, "config", "", "config file (default is $HOME/.config/planwatch/server.yml)")
	flag.BoolVar(&showVersion, "version", false, "print version information")
	flag.Parse()

	if showVersion {
		fmt.Printf("planserver - Plan Status Service\n")
		fmt.Printf("  Version: %s\n", version)
		fmt.Printf("  Commit:  %s\n", commit)
		fmt.Printf("  Built:   %s\n", buildTime)
		return
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if err := runServer(cfg); err != nil && err != context.Canceled {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func runServer(cfg appConfig) error {
	logger, err := newLogger(cfg.Debug)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer logger.Sync()

	if cfg.DBPath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
			return fmt.Errorf("creating data directory: %w", err)
		}
	}

	store, err := planstore.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	if cfg.Seed {
		if err := seedPlans(store); err != nil {
			return err
		}
		logger.Info("seeded development plans")
	}

	worker := planstore.NewWorker(store, cfg.ReaggDuration, logger)
	srv := planserver.NewServer(cfg.APIAddr, store, worker, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return worker.Run(ctx)
	})
	g.Go(func() error {
		if err := srv.Start(); err != nil {
			return err
		}
		<-ctx.Done()
		return srv.Stop()
	})

	logger.Info("plan service running",
		zap.String("addr", cfg.APIAddr),
		zap.String("db", cfg.DBPath),
		zap.Duration("reagg_duration", cfg.ReaggDuration))

	return g.Wait()
}

// seedPlans populates a handful of plans so the board has something to show
// during development.
func seedPlans(store *planstore.Store) error {
	existing, err := store.ListPlans(model.FilterTemplate, "")
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	owner := os.Getenv("USER")
	if owner == "" {
		owner = "anonymous"
	}

	seeds := []struct {
		plan     model.Plan
		shared   bool
		template bool
	}{
		{plan: model.Plan{Name: "Senate draft 1", Owner: owner, State: model.StateNeedsReagg}},
		{plan: model.Plan{Name: "House draft 2", Owner: owner, State: model.StateReady}},
		{plan: model.Plan{Name: "Congress proposal", Owner: "reviewer", State: model.StateNeedsReagg}, shared: true},
		{plan: model.Plan{Name: "Blank statewide", Owner: "admin", State: model.StateReady}, template: true},
	}
	for _, seed := range seeds {
		id, err := store.CreatePlan(seed.plan)
		if err != nil {
			return err
		}
		if seed.shared {
			if err := store.SetShared(id, true); err != nil {
				return err
			}
		}
		if seed.template {
			if err := store.SetTemplate(id, true); err != nil {
				return err
			}
		}
	}
	return nil
}
