package xyz

import (
	"context"

	"github.com/atomtune/atomtune/internal/config"
	"github.com/atomtune/atomtune/internal/dataset"
	"github.com/atomtune/atomtune/internal/log"
	"github.com/atomtune/atomtune/internal/metrics"
)

func init() {
	dataset.RegisterOpener(config.TypeXYZ, openDataset)
}

func openDataset(ctx context.Context, _ dataset.Env, cfg config.DatasetConfig) (dataset.Dataset, error) {
	c := cfg.XYZ
	logger := log.WithComponentFromContext(ctx, "xyz")

	frames, err := ReadFile(ctx, c.Src, Options{
		EnergyKey: c.EnergyKey,
		ForcesKey: c.ForcesKey,
		StressKey: c.StressKey,
	})
	if err != nil {
		return nil, err
	}
	metrics.RecordsLoaded.WithLabelValues(config.TypeXYZ).Add(float64(len(frames)))
	logger.Info().Str(log.FieldPath, c.Src).Int(log.FieldRecords, len(frames)).Msg("xyz file loaded")
	return dataset.NewMemory(frames), nil
}
