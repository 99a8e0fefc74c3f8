package jsonds

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atomtune/atomtune/internal/config"
	"github.com/atomtune/atomtune/internal/dataset"
)

func writeRecords(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "records.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const validRecords = `[
  {
    "atomic_numbers": [8, 1, 1],
    "positions": [[0,0,0.119],[0,0.763,-0.477],[0,-0.763,-0.477]],
    "cell": [[10,0,0],[0,10,0],[0,0,10]],
    "energy": -14.2,
    "forces": [[0,0,-0.1],[0,0.05,0.05],[0,-0.05,0.05]],
    "stress": [[1,0,0],[0,1,0],[0,0,1]]
  },
  {
    "atomic_numbers": [2],
    "positions": [[1,2,3]]
  }
]`

func TestReadFileValid(t *testing.T) {
	path := writeRecords(t, validRecords)

	samples, err := ReadFile(path, nil)
	require.NoError(t, err)
	require.Len(t, samples, 2)

	first := samples[0]
	assert.Equal(t, []int{8, 1, 1}, first.Numbers)
	require.NotNil(t, first.Energy)
	assert.Equal(t, -14.2, *first.Energy)
	require.Len(t, first.Forces, 3)
	require.NotNil(t, first.Stress)
	assert.Equal(t, [3]bool{true, true, true}, first.PBC)

	second := samples[1]
	assert.Nil(t, second.Energy)
	assert.Nil(t, second.Forces)
	assert.Equal(t, [3]bool{false, false, false}, second.PBC)
}

func TestReadFileTaskRemap(t *testing.T) {
	path := writeRecords(t, `[
  {
    "atomic_numbers": [6],
    "positions": [[0,0,0]],
    "corrected_energy": -7.5,
    "gap": 1.1
  }
]`)

	samples, err := ReadFile(path, map[string]string{
		"energy":   "corrected_energy",
		"band_gap": "gap",
	})
	require.NoError(t, err)
	require.Len(t, samples, 1)
	require.NotNil(t, samples[0].Energy)
	assert.Equal(t, -7.5, *samples[0].Energy)
	assert.Equal(t, 1.1, samples[0].Info["band_gap"])
}

func TestReadFileLengthInvariants(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			"positions shorter than numbers",
			`[{"atomic_numbers":[1,1],"positions":[[0,0,0]]}]`,
		},
		{
			"forces shorter than numbers",
			`[{"atomic_numbers":[1,1],"positions":[[0,0,0],[1,0,0]],"forces":[[0,0,0]]}]`,
		},
		{
			"cell with two rows",
			`[{"atomic_numbers":[1],"positions":[[0,0,0]],"cell":[[1,0,0],[0,1,0]]}]`,
		},
		{
			"cell with four rows",
			`[{"atomic_numbers":[1],"positions":[[0,0,0]],"cell":[[1,0,0],[0,1,0],[0,0,1],[9,9,9]]}]`,
		},
		{
			"cell row with two components",
			`[{"atomic_numbers":[1],"positions":[[0,0,0]],"cell":[[1,0],[0,1,0],[0,0,1]]}]`,
		},
		{
			"stress with two rows",
			`[{"atomic_numbers":[1],"positions":[[0,0,0]],"stress":[[1,0,0],[0,1,0]]}]`,
		},
		{
			"position with four components",
			`[{"atomic_numbers":[1],"positions":[[1,2,3,99]]}]`,
		},
		{
			"force row with two components",
			`[{"atomic_numbers":[1],"positions":[[0,0,0]],"forces":[[0,0]]}]`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeRecords(t, tt.content)
			_, err := ReadFile(path, nil)
			assert.Error(t, err)
		})
	}
}

func TestReadFileRejectsWrongShapes(t *testing.T) {
	// A 2x3 cell must fail loudly, not decode into a zero-filled third row.
	path := writeRecords(t, `[{"atomic_numbers":[1],"positions":[[0,0,0]],"cell":[[1,0,0],[0,1,0]]}]`)
	_, err := ReadFile(path, nil)
	require.ErrorIs(t, err, ErrShape)
	assert.Contains(t, err.Error(), "cell")

	// Excess vector components must fail instead of being discarded.
	path = writeRecords(t, `[{"atomic_numbers":[1],"positions":[[1,2,3,99]]}]`)
	_, err = ReadFile(path, nil)
	require.ErrorIs(t, err, ErrShape)
	assert.Contains(t, err.Error(), "positions")
}

func TestReadFileMissingRequired(t *testing.T) {
	path := writeRecords(t, `[{"positions":[[0,0,0]]}]`)
	_, err := ReadFile(path, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "atomic_numbers")
}

func TestOpenViaRegistry(t *testing.T) {
	path := writeRecords(t, validRecords)

	ds, err := dataset.Open(context.Background(), dataset.Env{}, config.DatasetConfig{
		Type: config.TypeJSON,
		JSON: &config.JSONDatasetConfig{Type: config.TypeJSON, Src: path},
	})
	require.NoError(t, err)
	defer func() { require.NoError(t, ds.Close()) }()

	assert.Equal(t, 2, ds.Len())
	a, err := ds.Get(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 3, a.Len())
}
