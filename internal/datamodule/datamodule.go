// Package datamodule splits a dataset into train and validation views and
// iterates it in batches with bounded-concurrency prefetching.
package datamodule

import (
	"context"
	"fmt"
	"math/rand"

	"golang.org/x/sync/errgroup"

	"github.com/atomtune/atomtune/internal/atoms"
	"github.com/atomtune/atomtune/internal/config"
	"github.com/atomtune/atomtune/internal/dataset"
	"github.com/atomtune/atomtune/internal/log"
)

// DataModule wraps one dataset with deterministic splitting and batching.
type DataModule struct {
	ds  dataset.Dataset
	cfg config.DataModuleConfig
}

// New builds a DataModule. Zero config fields fall back to a 0.9 train
// fraction, batch size 32 and 4 prefetch workers.
func New(ds dataset.Dataset, cfg config.DataModuleConfig) (*DataModule, error) {
	if cfg.TrainSplit == 0 {
		cfg.TrainSplit = 0.9
	}
	if cfg.TrainSplit <= 0 || cfg.TrainSplit > 1 {
		return nil, fmt.Errorf("trainSplit %v outside (0, 1]", cfg.TrainSplit)
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 32
	}
	cfg.NumWorkers = clampWorkers(cfg.NumWorkers, 4, 32)
	return &DataModule{ds: ds, cfg: cfg}, nil
}

// clampWorkers bounds the prefetch concurrency to [1, max], using def when
// the configured value is zero.
func clampWorkers(v, def, max int) int {
	if v == 0 {
		v = def
	}
	if v < 1 {
		return 1
	}
	if v > max {
		return max
	}
	return v
}

// Split returns deterministic train and validation views. The permutation
// depends only on the seed and the dataset length, so repeated runs see the
// same membership.
func (m *DataModule) Split() (train, val *dataset.Subset) {
	n := m.ds.Len()
	perm := rand.New(rand.NewSource(m.cfg.ShuffleSeed)).Perm(n)

	nTrain := int(float64(n) * m.cfg.TrainSplit)
	if nTrain == 0 && n > 0 {
		nTrain = 1
	}
	logger := log.WithComponent("datamodule")
	logger.Debug().
		Int(log.FieldRecords, n).
		Int("train", nTrain).
		Int("val", n-nTrain).
		Int64("seed", m.cfg.ShuffleSeed).
		Msg("dataset split")
	return dataset.NewSubset(m.ds, perm[:nTrain]), dataset.NewSubset(m.ds, perm[nTrain:])
}

// Batch is one contiguous slice of samples from a dataset view.
type Batch struct {
	// Start is the index of the first sample within the view.
	Start   int
	Samples []*atoms.Atoms
	// Err is non-nil on the final item when iteration failed.
	Err error
}

// Batches streams the given view in order. Samples inside a batch are
// fetched concurrently by the configured number of workers, and up to two
// batches are staged ahead of the consumer. The channel closes after the
// last batch, or after one item carrying the error that stopped iteration.
// Cancelling the context ends the stream.
func (m *DataModule) Batches(ctx context.Context, view dataset.Dataset) <-chan Batch {
	out := make(chan Batch, 2)
	go func() {
		defer close(out)
		n := view.Len()
		for start := 0; start < n; start += m.cfg.BatchSize {
			end := start + m.cfg.BatchSize
			if end > n {
				end = n
			}

			samples := make([]*atoms.Atoms, end-start)
			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(m.cfg.NumWorkers)
			for i := start; i < end; i++ {
				g.Go(func() error {
					a, err := view.Get(gctx, i)
					if err != nil {
						return fmt.Errorf("sample %d: %w", i, err)
					}
					samples[i-start] = a
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				select {
				case out <- Batch{Start: start, Err: err}:
				case <-ctx.Done():
				}
				return
			}

			select {
			case out <- Batch{Start: start, Samples: samples}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
