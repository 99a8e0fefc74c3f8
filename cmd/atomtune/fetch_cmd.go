package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/renameio/v2"

	"github.com/atomtune/atomtune/internal/asedb"
	"github.com/atomtune/atomtune/internal/atoms"
	"github.com/atomtune/atomtune/internal/dataset"
	xtlog "github.com/atomtune/atomtune/internal/log"
)

// runFetchCLI materialises one configured dataset into a local file, so
// remote sources can be pinned and reloaded offline: JSON records for a
// `json` dataset block, or an ASE database for a `db` block.
func runFetchCLI(args []string) int {
	fs := flag.NewFlagSet("fetch", flag.ContinueOnError)
	var (
		file   string
		name   string
		out    string
		format string
	)
	fs.StringVar(&file, "config", "", "path to YAML configuration file")
	fs.StringVar(&name, "dataset", "", "configured dataset name")
	fs.StringVar(&out, "out", "", "output directory for the records file")
	fs.StringVar(&format, "format", "json", "output format: json or db")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if file == "" || name == "" || out == "" {
		fmt.Fprintln(os.Stderr, "Error: -config, -dataset and -out are required")
		return 2
	}
	if format != "json" && format != "db" {
		fmt.Fprintf(os.Stderr, "Error: unknown format %q (want json or db)\n", format)
		return 2
	}

	cfg, err := loadConfig(file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		return 1
	}
	dsCfg, ok := cfg.Datasets[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown dataset %q\n", name)
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

	records := make([]*atoms.Atoms, 0, ds.Len())
	for i := 0; i < ds.Len(); i++ {
		a, err := ds.Get(ctx, i)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading record %d: %v\n", i, err)
			return 1
		}
		records = append(records, a)
	}

	if err := os.MkdirAll(out, 0o750); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	var path string
	switch format {
	case "db":
		path = filepath.Join(out, name+".db")
		if err := asedb.Create(ctx, path, records); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", path, err)
			return 1
		}
	default:
		buf, err := json.MarshalIndent(records, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		path = filepath.Join(out, name+".json")
		if err := renameio.WriteFile(path, buf, 0o640); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", path, err)
			return 1
		}
	}

	fmt.Printf("wrote %d records to %s\n", len(records), path)
	return 0
}
