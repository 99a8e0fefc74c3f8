package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := NewLoader("").Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, ":8080", cfg.Listen)
	assert.Equal(t, "memory", cfg.Store.Backend)
	assert.Equal(t, 0.9, cfg.Module.TrainSplit)
	assert.Equal(t, 32, cfg.Module.BatchSize)
	assert.True(t, filepath.IsAbs(cfg.DataDir), "DataDir should be absolute")
}

func TestLoadFileWithDatasets(t *testing.T) {
	path := writeConfig(t, `
logLevel: debug
module:
  trainSplit: 0.8
  batchSize: 16
datasets:
  train:
    type: xyz
    src: data/train.extxyz
    energyKey: dft_energy
  traj:
    type: mptraj
    split: val
    minNumAtoms: 8
    elements: [Li, Na]
  bench:
    type: matbench
    taskName: matbench_mp_gap
    propertyName: band_gap
    foldIdx: 2
  local:
    type: json
    src: data/records.json
    tasks:
      energy: corrected_energy
`)

	cfg, err := NewLoader(path).Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 0.8, cfg.Module.TrainSplit)
	assert.Equal(t, 16, cfg.Module.BatchSize)
	require.Len(t, cfg.Datasets, 4)

	xyz := cfg.Datasets["train"]
	require.Equal(t, TypeXYZ, xyz.Type)
	require.NotNil(t, xyz.XYZ)
	assert.Equal(t, "data/train.extxyz", xyz.XYZ.Src)
	assert.Equal(t, "dft_energy", xyz.XYZ.EnergyKey)

	traj := cfg.Datasets["traj"]
	require.Equal(t, TypeMPTraj, traj.Type)
	require.NotNil(t, traj.MPTraj)
	assert.Equal(t, "val", traj.MPTraj.Split)
	require.NotNil(t, traj.MPTraj.MinNumAtoms)
	assert.Equal(t, 8, *traj.MPTraj.MinNumAtoms)
	assert.Equal(t, []string{"Li", "Na"}, traj.MPTraj.Elements)

	bench := cfg.Datasets["bench"]
	require.NotNil(t, bench.Matbench)
	assert.Equal(t, "matbench_mp_gap", bench.Matbench.TaskName)
	assert.Equal(t, 2, bench.Matbench.FoldIdx)

	local := cfg.Datasets["local"]
	require.NotNil(t, local.JSON)
	assert.Equal(t, "corrected_energy", local.JSON.Tasks["energy"])
}

func TestLoadExplicitZeroOverrides(t *testing.T) {
	// ttlHours: 0 (no expiry) and shuffleSeed: 0 must override the defaults
	// rather than being treated as absent.
	path := writeConfig(t, `
store:
  ttlHours: 0
module:
  shuffleSeed: 0
`)
	cfg, err := NewLoader(path).Load()
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Store.TTLHours)

	// An explicit zero seed wins over a previously set one.
	seeded := AppConfig{}
	setDefaults(&seeded)
	seeded.Module.ShuffleSeed = 7
	zero := int64(0)
	mergeFileConfig(&seeded, &FileConfig{Module: &FileModuleConfig{ShuffleSeed: &zero}})
	assert.Equal(t, int64(0), seeded.Module.ShuffleSeed)

	// Absent fields still fall back to the defaults.
	path = writeConfig(t, "store:\n  backend: memory\n")
	cfg, err = NewLoader(path).Load()
	require.NoError(t, err)
	assert.Equal(t, 24, cfg.Store.TTLHours)
}

func TestLoadRejectsUnknownField(t *testing.T) {
	path := writeConfig(t, "logLevell: debug\n")
	_, err := NewLoader(path).Load()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownConfigField), "want ErrUnknownConfigField, got %v", err)
}

func TestLoadRejectsUnknownDatasetType(t *testing.T) {
	path := writeConfig(t, `
datasets:
  bad:
    type: parquet
    src: x
`)
	_, err := NewLoader(path).Load()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownDatasetType), "want ErrUnknownDatasetType, got %v", err)
}

func TestLoadEmptyFile(t *testing.T) {
	path := writeConfig(t, "")
	cfg, err := NewLoader(path).Load()
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*AppConfig)
		want   error
	}{
		{
			name:   "train split too large",
			mutate: func(c *AppConfig) { c.Module.TrainSplit = 1.5 },
			want:   ErrInvalidValue,
		},
		{
			name:   "zero batch size",
			mutate: func(c *AppConfig) { c.Module.BatchSize = 0 },
			want:   ErrInvalidValue,
		},
		{
			name:   "bad store backend",
			mutate: func(c *AppConfig) { c.Store.Backend = "dynamo" },
			want:   ErrInvalidValue,
		},
		{
			name: "redis backend without addr",
			mutate: func(c *AppConfig) {
				c.Store.Backend = "redis"
				c.Store.RedisAddr = ""
			},
			want: ErrMissingField,
		},
		{
			name: "xyz without src",
			mutate: func(c *AppConfig) {
				c.Datasets = map[string]DatasetConfig{
					"d": {Type: TypeXYZ, XYZ: &XYZDatasetConfig{Type: TypeXYZ}},
				}
			},
			want: ErrMissingField,
		},
		{
			name: "matbench fold out of range",
			mutate: func(c *AppConfig) {
				c.Datasets = map[string]DatasetConfig{
					"d": {Type: TypeMatbench, Matbench: &MatbenchDatasetConfig{TaskName: "t", FoldIdx: 7}},
				}
			},
			want: ErrInvalidValue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := AppConfig{}
			setDefaults(&cfg)
			tt.mutate(&cfg)
			err := Validate(&cfg)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "want %v, got %v", tt.want, err)
		})
	}
}

func TestValidateDefaultsMPTrajSplit(t *testing.T) {
	cfg := AppConfig{}
	setDefaults(&cfg)
	cfg.Datasets = map[string]DatasetConfig{
		"traj": {Type: TypeMPTraj, MPTraj: &MPTrajDatasetConfig{Type: TypeMPTraj}},
	}
	require.NoError(t, Validate(&cfg))
	assert.Equal(t, "train", cfg.Datasets["traj"].MPTraj.Split)
}
