package asedb

import (
	"context"

	"github.com/atomtune/atomtune/internal/atoms"
	"github.com/atomtune/atomtune/internal/config"
	"github.com/atomtune/atomtune/internal/dataset"
	"github.com/atomtune/atomtune/internal/log"
	"github.com/atomtune/atomtune/internal/metrics"
)

func init() {
	dataset.RegisterOpener(config.TypeDB, openDataset)
}

func openDataset(ctx context.Context, _ dataset.Env, cfg config.DatasetConfig) (dataset.Dataset, error) {
	c := cfg.DB
	logger := log.WithComponentFromContext(ctx, "asedb")

	db, err := Open(ctx, c.Src, Options{
		EnergyKey: c.EnergyKey,
		ForcesKey: c.ForcesKey,
		StressKey: c.StressKey,
	})
	if err != nil {
		return nil, err
	}
	metrics.RecordsLoaded.WithLabelValues(config.TypeDB).Add(float64(db.Len()))
	logger.Info().
		Str(log.FieldPath, c.Src).
		Int(log.FieldRecords, db.Len()).
		Bool("preload", c.PreloadToMemory).
		Msg("ase db opened")

	if c.PreloadToMemory {
		samples, err := db.ReadAll(ctx)
		cerr := db.Close()
		if err != nil {
			return nil, err
		}
		if cerr != nil {
			return nil, cerr
		}
		return dataset.NewMemory(samples), nil
	}
	return &dbDataset{db: db}, nil
}

// dbDataset serves rows straight from the database handle.
type dbDataset struct {
	db *DB
}

func (d *dbDataset) Len() int { return d.db.Len() }

func (d *dbDataset) Get(ctx context.Context, i int) (*atoms.Atoms, error) {
	return d.db.Get(ctx, i)
}

func (d *dbDataset) Close() error { return d.db.Close() }
