// Package omat24 loads OMat24-style datasets: a directory of ASE database
// shards that together form one large training set.
package omat24

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/atomtune/atomtune/internal/asedb"
	"github.com/atomtune/atomtune/internal/atoms"
	"github.com/atomtune/atomtune/internal/config"
	"github.com/atomtune/atomtune/internal/dataset"
	"github.com/atomtune/atomtune/internal/log"
	"github.com/atomtune/atomtune/internal/metrics"
)

func init() {
	dataset.RegisterOpener(config.TypeOMAT24, openDataset)
}

func openDataset(ctx context.Context, _ dataset.Env, cfg config.DatasetConfig) (dataset.Dataset, error) {
	c := cfg.OMAT24
	logger := log.WithComponentFromContext(ctx, "omat24")

	pattern := filepath.Join(c.SrcPath, "*.db")
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no ASE db shards under %s", c.SrcPath)
	}
	sort.Strings(paths) // shard order must be stable across runs

	ds := &shardedDataset{}
	for _, path := range paths {
		db, err := asedb.Open(ctx, path, asedb.Options{})
		if err != nil {
			_ = ds.Close()
			return nil, fmt.Errorf("shard %s: %w", path, err)
		}
		ds.shards = append(ds.shards, db)
		ds.offsets = append(ds.offsets, ds.total)
		ds.total += db.Len()
	}

	metrics.RecordsLoaded.WithLabelValues(config.TypeOMAT24).Add(float64(ds.total))
	logger.Info().
		Str(log.FieldPath, c.SrcPath).
		Int("shards", len(ds.shards)).
		Int(log.FieldRecords, ds.total).
		Msg("omat24 shards opened")
	return ds, nil
}

// shardedDataset concatenates several ASE db handles into one index space.
type shardedDataset struct {
	shards  []*asedb.DB
	offsets []int
	total   int
}

func (s *shardedDataset) Len() int { return s.total }

func (s *shardedDataset) Get(ctx context.Context, i int) (*atoms.Atoms, error) {
	if i < 0 || i >= s.total {
		return nil, fmt.Errorf("%w: %d of %d", dataset.ErrIndexOutOfRange, i, s.total)
	}
	// Find the shard owning index i.
	k := sort.Search(len(s.offsets), func(j int) bool { return s.offsets[j] > i }) - 1
	return s.shards[k].Get(ctx, i-s.offsets[k])
}

func (s *shardedDataset) Close() error {
	var first error
	for _, sh := range s.shards {
		if err := sh.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
