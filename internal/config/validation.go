package config

import (
	"fmt"
)

var validSplits = map[string]struct{}{"train": {}, "val": {}, "test": {}}

var validBackends = map[string]struct{}{"memory": {}, "badger": {}, "redis": {}}

// Validate checks the resolved configuration for internal consistency.
func Validate(cfg *AppConfig) error {
	if cfg.Module.TrainSplit <= 0 || cfg.Module.TrainSplit > 1 {
		return fmt.Errorf("%w: module.trainSplit must be in (0,1], got %v", ErrInvalidValue, cfg.Module.TrainSplit)
	}
	if cfg.Module.BatchSize < 1 {
		return fmt.Errorf("%w: module.batchSize must be >= 1, got %d", ErrInvalidValue, cfg.Module.BatchSize)
	}
	if cfg.Module.NumWorkers < 1 {
		return fmt.Errorf("%w: module.numWorkers must be >= 1, got %d", ErrInvalidValue, cfg.Module.NumWorkers)
	}
	if _, ok := validBackends[cfg.Store.Backend]; !ok {
		return fmt.Errorf("%w: store.backend %q (want memory, badger or redis)", ErrInvalidValue, cfg.Store.Backend)
	}
	if cfg.Store.Backend == "redis" && cfg.Store.RedisAddr == "" {
		return fmt.Errorf("%w: store.redisAddr (required for the redis backend)", ErrMissingField)
	}

	for name, ds := range cfg.Datasets {
		if err := validateDataset(&ds); err != nil {
			return fmt.Errorf("dataset %q: %w", name, err)
		}
	}
	return nil
}

func validateDataset(d *DatasetConfig) error {
	switch d.Type {
	case TypeXYZ:
		if d.XYZ.Src == "" {
			return fmt.Errorf("%w: src", ErrMissingField)
		}
	case TypeDB:
		if d.DB.Src == "" {
			return fmt.Errorf("%w: src", ErrMissingField)
		}
	case TypeMP:
		q := d.MP.Query
		if q.BandGapMin != nil && q.BandGapMax != nil && *q.BandGapMin > *q.BandGapMax {
			return fmt.Errorf("%w: bandGapMin > bandGapMax", ErrInvalidValue)
		}
	case TypeMPTraj:
		c := d.MPTraj
		if c.Split == "" {
			c.Split = "train"
		}
		if _, ok := validSplits[c.Split]; !ok {
			return fmt.Errorf("%w: split %q (want train, val or test)", ErrInvalidValue, c.Split)
		}
		if c.MinNumAtoms != nil && c.MaxNumAtoms != nil && *c.MinNumAtoms > *c.MaxNumAtoms {
			return fmt.Errorf("%w: minNumAtoms > maxNumAtoms", ErrInvalidValue)
		}
	case TypeMatbench:
		if d.Matbench.TaskName == "" {
			return fmt.Errorf("%w: taskName", ErrMissingField)
		}
		if d.Matbench.FoldIdx < 0 || d.Matbench.FoldIdx > 4 {
			return fmt.Errorf("%w: foldIdx %d (matbench tasks have folds 0..4)", ErrInvalidValue, d.Matbench.FoldIdx)
		}
	case TypeOMAT24:
		if d.OMAT24.SrcPath == "" {
			return fmt.Errorf("%w: srcPath", ErrMissingField)
		}
	case TypeJSON:
		if d.JSON.Src == "" {
			return fmt.Errorf("%w: src", ErrMissingField)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDatasetType, d.Type)
	}
	return nil
}
