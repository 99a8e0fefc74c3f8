package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/atomtune/atomtune/internal/dataset"
	xtlog "github.com/atomtune/atomtune/internal/log"
)

// runInspectCLI opens one configured dataset and prints its record count, or
// a single record as JSON when -index is given.
func runInspectCLI(args []string) int {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	var (
		file string
		name string
		idx  int
	)
	fs.StringVar(&file, "config", "", "path to YAML configuration file")
	fs.StringVar(&name, "dataset", "", "configured dataset name")
	fs.IntVar(&idx, "index", -1, "print the record at this index instead of stats")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if file == "" || name == "" {
		fmt.Fprintln(os.Stderr, "Error: -config and -dataset are required")
		return 2
	}

	cfg, err := loadConfig(file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		return 1
	}

	dsCfg, ok := cfg.Datasets[name]
	if !ok {
		names := make([]string, 0, len(cfg.Datasets))
		for n := range cfg.Datasets {
			names = append(names, n)
		}
		sort.Strings(names)
		fmt.Fprintf(os.Stderr, "Unknown dataset %q (configured: %v)\n", name, names)
		return 1
	}

	env, err := buildEnv(&cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer func() { _ = env.Store.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = xtlog.ContextWithDataset(ctx, name)

	ds, err := dataset.Open(ctx, env, dsCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening dataset %q: %v\n", name, err)
		return 1
	}
	defer func() { _ = ds.Close() }()

	if idx < 0 {
		fmt.Printf("dataset %s: type=%s records=%d\n", name, dsCfg.Type, ds.Len())
		return 0
	}

	a, err := ds.Get(ctx, idx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading record %d: %v\n", idx, err)
		return 1
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(a); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
