package dataset

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/atomtune/atomtune/internal/config"
	"github.com/atomtune/atomtune/internal/store"
)

// Env carries the shared infrastructure an opener may need: resolved app
// config and the record cache for remote sources.
type Env struct {
	Config *config.AppConfig
	Store  store.Store
}

// Opener builds a Dataset from its config block.
type Opener func(ctx context.Context, env Env, cfg config.DatasetConfig) (Dataset, error)

var (
	openersMu sync.RWMutex
	openers   = map[string]Opener{}
)

// RegisterOpener wires a dataset type discriminator to its opener. Loader
// packages call this from init; double registration is a programming error.
func RegisterOpener(typ string, fn Opener) {
	openersMu.Lock()
	defer openersMu.Unlock()
	if _, dup := openers[typ]; dup {
		panic(fmt.Sprintf("dataset: opener for %q registered twice", typ))
	}
	openers[typ] = fn
}

// Open dispatches to the opener registered for the config's type.
func Open(ctx context.Context, env Env, cfg config.DatasetConfig) (Dataset, error) {
	openersMu.RLock()
	fn, ok := openers[cfg.Type]
	openersMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (registered: %v)", config.ErrUnknownDatasetType, cfg.Type, RegisteredTypes())
	}
	return fn(ctx, env, cfg)
}

// RegisteredTypes lists the known dataset types, sorted.
func RegisteredTypes() []string {
	openersMu.RLock()
	defer openersMu.RUnlock()
	out := make([]string, 0, len(openers))
	for t := range openers {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
