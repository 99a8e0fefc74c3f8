// atomtune loads, validates and serves materials-science training datasets.
//
// Usage:
//
//	atomtune validate -config config.yaml
//	atomtune inspect  -config config.yaml -dataset name [-index N]
//	atomtune fetch    -config config.yaml -dataset name -out dir
//	atomtune serve    -config config.yaml [-listen :8080]
//	atomtune -version
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/atomtune/atomtune/internal/config"
	"github.com/atomtune/atomtune/internal/dataset"
	xtlog "github.com/atomtune/atomtune/internal/log"
	"github.com/atomtune/atomtune/internal/store"
	"github.com/atomtune/atomtune/internal/version"

	// Dataset loaders register themselves with the dataset registry.
	_ "github.com/atomtune/atomtune/internal/asedb"
	_ "github.com/atomtune/atomtune/internal/jsonds"
	_ "github.com/atomtune/atomtune/internal/matbench"
	_ "github.com/atomtune/atomtune/internal/mp"
	_ "github.com/atomtune/atomtune/internal/mptraj"
	_ "github.com/atomtune/atomtune/internal/omat24"
	_ "github.com/atomtune/atomtune/internal/xyz"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "validate":
			os.Exit(runValidateCLI(os.Args[2:]))
		case "inspect":
			os.Exit(runInspectCLI(os.Args[2:]))
		case "fetch":
			os.Exit(runFetchCLI(os.Args[2:]))
		case "serve":
			os.Exit(runServeCLI(os.Args[2:]))
		}
	}

	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version.Version, version.Commit, version.Date)
		os.Exit(0)
	}

	fmt.Fprintln(os.Stderr, "usage: atomtune <validate|inspect|fetch|serve> [flags]")
	os.Exit(2)
}

// loadConfig resolves the runtime configuration and reconfigures the logger
// with the resolved level.
func loadConfig(path string) (config.AppConfig, error) {
	xtlog.Configure(xtlog.Config{
		Level:   "info",
		Service: "atomtune",
		Version: version.Version,
	})

	cfg, err := config.NewLoader(path).Load()
	if err != nil {
		return cfg, err
	}

	xtlog.SetLevel(cfg.LogLevel)
	return cfg, nil
}

// buildEnv opens the record cache and assembles the opener environment.
func buildEnv(cfg *config.AppConfig) (dataset.Env, error) {
	st, err := store.Open(cfg.Store, cfg.DataDir)
	if err != nil {
		return dataset.Env{}, fmt.Errorf("open record cache: %w", err)
	}
	return dataset.Env{Config: cfg, Store: st}, nil
}
