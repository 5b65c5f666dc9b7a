// Command villagelookup-loader refreshes the township, ward and village
// reference tables from DHIS2 option sets and option groups.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/artpar/villagelookup/internal/shell/config"
	"github.com/artpar/villagelookup/internal/shell/loader"
	"github.com/artpar/villagelookup/internal/shell/registry"
	"github.com/artpar/villagelookup/internal/shell/store"
)

// Version information (set by build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

const (
	ExitSuccess       = 0
	ExitConfigError   = 1
	ExitDatabaseError = 2
	ExitLoadError     = 3
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "Path to config file")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("villagelookup-loader %s (built %s)\n", Version, BuildTime)
		return ExitSuccess
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return ExitConfigError
	}
	if err := cfg.ValidateRegistry(); err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return ExitConfigError
	}

	loaderCfg := loader.Config{
		TownshipOptionSet: cfg.Registry.TownshipOptionSet,
		WardOptionSet:     cfg.Registry.WardOptionSet,
		VillageOptionSet:  cfg.Registry.VillageOptionSet,
		BatchSize:         cfg.Registry.BatchSize,
	}
	if err := loaderCfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return ExitConfigError
	}

	logger := config.SetupLogger(cfg)
	logger.Info("starting villagelookup-loader",
		"version", Version,
		"registry", cfg.Registry.BaseURL,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s, err := store.Open(ctx, cfg.Database.Store())
	if err != nil {
		logger.Error("failed to open database", "error", err)
		return ExitDatabaseError
	}
	defer s.Close()

	source := registry.NewClient(registry.Config{
		BaseURL:  cfg.Registry.BaseURL,
		Username: cfg.Registry.Username,
		Password: cfg.Registry.Password,
		Timeout:  cfg.Registry.Timeout,
	}, logger)

	summary, err := loader.New(source, s, loaderCfg, logger).Run(ctx)
	if err != nil {
		logger.Error("load failed", "error", err)
		return ExitLoadError
	}

	summary.Print(os.Stdout)
	return ExitSuccess
}
