package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/atomtune/atomtune/internal/api"
	xtlog "github.com/atomtune/atomtune/internal/log"
)

// runServeCLI runs the dataset inspection server until interrupted.
func runServeCLI(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	var (
		file   string
		listen string
	)
	fs.StringVar(&file, "config", "", "path to YAML configuration file")
	fs.StringVar(&listen, "listen", "", "bind address (overrides config)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := loadConfig(file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		return 1
	}
	if listen != "" {
		cfg.Listen = listen
	}

	env, err := buildEnv(&cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer func() { _ = env.Store.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := xtlog.WithComponent("serve")
	logger.Info().
		Str("listen", cfg.Listen).
		Int("datasets", len(cfg.Datasets)).
		Msg("inspection server starting")

	srv := api.NewServer(&cfg, env)
	if err := srv.ListenAndServe(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("server stopped")
		return 1
	}
	logger.Info().Msg("server shut down")
	return 0
}
