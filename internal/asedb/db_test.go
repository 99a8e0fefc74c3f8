package asedb

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atomtune/atomtune/internal/atoms"
	"github.com/atomtune/atomtune/internal/config"
	"github.com/atomtune/atomtune/internal/dataset"
)

// createTestDB writes a minimal systems table the way ase.db lays it out.
func createTestDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "structures.db")

	db, err := sql.Open("sqlite", "file:"+path)
	require.NoError(t, err)
	defer func() { require.NoError(t, db.Close()) }()

	_, err = db.Exec(`CREATE TABLE systems (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		numbers BLOB,
		positions BLOB,
		cell BLOB,
		pbc INTEGER,
		energy REAL,
		forces BLOB,
		stress BLOB,
		key_value_pairs TEXT)`)
	require.NoError(t, err)

	// Row 1: H2O with all targets, fully periodic.
	numbers := encodeInt32Blob([]int{8, 1, 1})
	positions := encodeFloat64Blob([]float64{
		0, 0, 0.119,
		0, 0.763, -0.477,
		0, -0.763, -0.477,
	})
	cell := encodeFloat64Blob([]float64{10, 0, 0, 0, 10, 0, 0, 0, 10})
	forces := encodeFloat64Blob([]float64{0, 0, -0.1, 0, 0.05, 0.05, 0, -0.05, 0.05})
	stress := encodeFloat64Blob([]float64{1, 2, 3, 0.4, 0.5, 0.6})
	_, err = db.Exec(
		"INSERT INTO systems (numbers, positions, cell, pbc, energy, forces, stress, key_value_pairs) VALUES (?,?,?,?,?,?,?,?)",
		numbers, positions, cell, 7, -14.2, forces, stress, `{"corrected_energy": -14.5}`)
	require.NoError(t, err)

	// Row 2: isolated He atom, no targets.
	_, err = db.Exec(
		"INSERT INTO systems (numbers, positions, cell, pbc, energy, forces, stress, key_value_pairs) VALUES (?,?,?,?,?,?,?,?)",
		encodeInt32Blob([]int{2}), encodeFloat64Blob([]float64{1, 2, 3}), nil, 0, nil, nil, nil, nil)
	require.NoError(t, err)

	return path
}

func TestOpenAndGet(t *testing.T) {
	ctx := context.Background()
	path := createTestDB(t)

	db, err := Open(ctx, path, Options{})
	require.NoError(t, err)
	defer func() { require.NoError(t, db.Close()) }()

	require.Equal(t, 2, db.Len())

	a, err := db.Get(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []int{8, 1, 1}, a.Numbers)
	assert.Equal(t, [3]float64{0, 0.763, -0.477}, a.Positions[1])
	assert.Equal(t, 10.0, a.Cell[2][2])
	assert.Equal(t, [3]bool{true, true, true}, a.PBC)
	require.NotNil(t, a.Energy)
	assert.Equal(t, -14.2, *a.Energy)
	require.Len(t, a.Forces, 3)
	require.NotNil(t, a.Stress)
	// Voigt (1,2,3,0.4,0.5,0.6) expands to a symmetric full tensor
	assert.Equal(t, 1.0, a.Stress[0][0])
	assert.Equal(t, 0.4, a.Stress[1][2])
	assert.Equal(t, 0.6, a.Stress[0][1])

	b, err := db.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []int{2}, b.Numbers)
	assert.Nil(t, b.Energy)
	assert.Nil(t, b.Forces)
	assert.Nil(t, b.Stress)
	assert.Equal(t, [3]bool{false, false, false}, b.PBC)
}

func TestCustomEnergyKeyFromKVP(t *testing.T) {
	ctx := context.Background()
	path := createTestDB(t)

	db, err := Open(ctx, path, Options{EnergyKey: "corrected_energy"})
	require.NoError(t, err)
	defer func() { require.NoError(t, db.Close()) }()

	a, err := db.Get(ctx, 0)
	require.NoError(t, err)
	require.NotNil(t, a.Energy)
	assert.Equal(t, -14.5, *a.Energy)
}

func TestReadAll(t *testing.T) {
	ctx := context.Background()
	path := createTestDB(t)

	db, err := Open(ctx, path, Options{})
	require.NoError(t, err)
	defer func() { require.NoError(t, db.Close()) }()

	all, err := db.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	for _, a := range all {
		require.NoError(t, a.Validate())
	}
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(context.Background(), filepath.Join(t.TempDir(), "missing.db"), Options{})
	assert.Error(t, err)
}

func TestVerifyIntegrity(t *testing.T) {
	path := createTestDB(t)

	problems, err := VerifyIntegrity(path, "quick")
	require.NoError(t, err)
	assert.Nil(t, problems)

	problems, err = VerifyIntegrity(path, "full")
	require.NoError(t, err)
	assert.Nil(t, problems)
}

func TestDatasetViaRegistry(t *testing.T) {
	ctx := context.Background()
	path := createTestDB(t)

	for _, preload := range []bool{false, true} {
		ds, err := dataset.Open(ctx, dataset.Env{}, config.DatasetConfig{
			Type: config.TypeDB,
			DB:   &config.DBDatasetConfig{Type: config.TypeDB, Src: path, PreloadToMemory: preload},
		})
		require.NoError(t, err)
		assert.Equal(t, 2, ds.Len())

		a, err := ds.Get(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, []int{2}, a.Numbers)
		require.NoError(t, ds.Close())
	}
}

func TestCreateRoundTrip(t *testing.T) {
	ctx := context.Background()
	e := -31.5
	stress := [3][3]float64{{1, 0.6, 0.5}, {0.6, 2, 0.4}, {0.5, 0.4, 3}}
	records := []*atoms.Atoms{{
		Numbers:   []int{14, 14},
		Positions: [][3]float64{{0, 0, 0}, {1.36, 1.36, 1.36}},
		Cell:      [3][3]float64{{5.43, 0, 0}, {0, 5.43, 0}, {0, 0, 5.43}},
		PBC:       [3]bool{true, true, true},
		Energy:    &e,
		Forces:    [][3]float64{{0, 0, 0.1}, {0, 0, -0.1}},
		Stress:    &stress,
		Info:      map[string]float64{"band_gap": 1.1},
	}}

	path := filepath.Join(t.TempDir(), "out.db")
	require.NoError(t, Create(ctx, path, records))

	db, err := Open(ctx, path, Options{})
	require.NoError(t, err)
	defer func() { require.NoError(t, db.Close()) }()

	a, err := db.Get(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, records[0].Numbers, a.Numbers)
	assert.Equal(t, records[0].Positions, a.Positions)
	assert.Equal(t, records[0].Cell, a.Cell)
	assert.Equal(t, [3]bool{true, true, true}, a.PBC)
	require.NotNil(t, a.Energy)
	assert.Equal(t, e, *a.Energy)
	assert.Equal(t, records[0].Forces, a.Forces)
	// The symmetric tensor survives the Voigt round trip intact.
	require.NotNil(t, a.Stress)
	assert.Equal(t, stress, *a.Stress)

	// Info entries land in key_value_pairs and are readable as custom targets.
	kvpDB, err := Open(ctx, path, Options{EnergyKey: "band_gap"})
	require.NoError(t, err)
	defer func() { require.NoError(t, kvpDB.Close()) }()
	b, err := kvpDB.Get(ctx, 0)
	require.NoError(t, err)
	require.NotNil(t, b.Energy)
	assert.Equal(t, 1.1, *b.Energy)
}

func TestCreateRejectsInvalidRecord(t *testing.T) {
	bad := []*atoms.Atoms{{
		Numbers:   []int{1, 1},
		Positions: [][3]float64{{0, 0, 0}},
	}}
	err := Create(context.Background(), filepath.Join(t.TempDir(), "bad.db"), bad)
	assert.Error(t, err)
}

func TestDecodeBlobErrors(t *testing.T) {
	_, err := decodeInt32Blob([]byte{1, 2, 3})
	assert.Error(t, err)
	_, err = decodeFloat64Blob(make([]byte, 12))
	assert.Error(t, err)
	_, err = decodeVectors(encodeFloat64Blob([]float64{1, 2}))
	assert.Error(t, err)
	_, err = decodeCell(encodeFloat64Blob([]float64{1, 2, 3}))
	assert.Error(t, err)
}
