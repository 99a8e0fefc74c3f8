package asedb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/atomtune/atomtune/internal/atoms"
)

const createSystemsTable = `CREATE TABLE systems (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	numbers BLOB,
	positions BLOB,
	cell BLOB,
	pbc INTEGER,
	energy REAL,
	forces BLOB,
	stress BLOB,
	key_value_pairs TEXT)`

// Create writes the records to a fresh ASE database at path, in the same
// layout Open reads: blobs for per-atom arrays, pbc bit flags, stress as a
// Voigt 6-vector, Info entries in key_value_pairs.
func Create(ctx context.Context, path string, records []*atoms.Atoms) error {
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?_busy_timeout=2000", path))
	if err != nil {
		return fmt.Errorf("create ase db: %w", err)
	}
	defer func() { _ = db.Close() }()

	if _, err := db.ExecContext(ctx, createSystemsTable); err != nil {
		return fmt.Errorf("create systems table: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO systems ("+systemCols+") VALUES (?,?,?,?,?,?,?,?)")
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	for i, a := range records {
		if err := a.Validate(); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
		args, err := encodeRow(a)
		if err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
	}
	return tx.Commit()
}

func encodeRow(a *atoms.Atoms) ([]any, error) {
	var energy any
	if a.Energy != nil {
		energy = *a.Energy
	}
	var forces any
	if a.Forces != nil {
		forces = encodeVectors(a.Forces)
	}
	var stress any
	if a.Stress != nil {
		v := atoms.VoigtFromFull(*a.Stress)
		stress = encodeFloat64Blob(v[:])
	}
	var kvp any
	if len(a.Info) > 0 {
		buf, err := json.Marshal(a.Info)
		if err != nil {
			return nil, fmt.Errorf("key_value_pairs: %w", err)
		}
		kvp = string(buf)
	}
	return []any{
		encodeInt32Blob(a.Numbers),
		encodeVectors(a.Positions),
		encodeCell(a.Cell),
		encodePBC(a.PBC),
		energy,
		forces,
		stress,
		kvp,
	}, nil
}

func encodeVectors(vs [][3]float64) []byte {
	vals := make([]float64, 0, len(vs)*3)
	for _, v := range vs {
		vals = append(vals, v[0], v[1], v[2])
	}
	return encodeFloat64Blob(vals)
}

func encodeCell(cell [3][3]float64) []byte {
	vals := make([]float64, 0, 9)
	for r := 0; r < 3; r++ {
		vals = append(vals, cell[r][0], cell[r][1], cell[r][2])
	}
	return encodeFloat64Blob(vals)
}

// encodePBC packs the periodic-boundary flags as ASE's bit field (x=1, y=2, z=4).
func encodePBC(pbc [3]bool) int64 {
	var v int64
	if pbc[0] {
		v |= 1
	}
	if pbc[1] {
		v |= 2
	}
	if pbc[2] {
		v |= 4
	}
	return v
}
