package main

import (
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/atomtune/atomtune/internal/config"
)

// runValidateCLI loads and validates a configuration file.
//
// Exit codes:
//   - 0: configuration is valid
//   - 1: configuration is invalid (parse or validation error)
//   - 2: usage error
func runValidateCLI(args []string) int {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	var file string
	fs.StringVar(&file, "config", "", "path to YAML configuration file")
	fs.StringVar(&file, "f", "", "path to YAML configuration file (shorthand)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if file == "" {
		fmt.Fprintln(os.Stderr, "Error: -config is required")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Usage:")
		fmt.Fprintln(os.Stderr, "  atomtune validate -config config.yaml")
		return 2
	}

	cfg, err := config.NewLoader(file).Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error in %s:\n", file)
		fmt.Fprintf(os.Stderr, "  %v\n", err)
		return 1
	}

	fmt.Printf("✓ %s is valid\n", file)
	names := make([]string, 0, len(cfg.Datasets))
	for name := range cfg.Datasets {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  dataset %-20s type=%s\n", name, cfg.Datasets[name].Type)
	}
	return 0
}
