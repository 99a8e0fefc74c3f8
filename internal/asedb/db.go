// Package asedb reads structure samples from ASE SQLite databases (the .db
// files written by ase.db). Rows live in the systems table; per-atom arrays
// are raw float64/int32 blobs and custom targets sit in key_value_pairs JSON.
package asedb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/atomtune/atomtune/internal/atoms"
)

// Options selects where targets are read from. Energy, forces and stress
// default to their native systems-table columns; a non-default key reads the
// target from key_value_pairs instead.
type Options struct {
	EnergyKey string
	ForcesKey string
	StressKey string
}

// DB is a read-only handle on one ASE database.
type DB struct {
	db   *sql.DB
	opts Options
	n    int
}

// Open opens the database read-only and counts its rows.
func Open(ctx context.Context, path string, opts Options) (*DB, error) {
	// mode=ro keeps training runs from ever mutating source data.
	dsn := fmt.Sprintf("file:%s?mode=ro&_busy_timeout=2000", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open ase db: %w", err)
	}

	var n int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM systems").Scan(&n); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("count systems: %w", err)
	}
	return &DB{db: db, opts: opts, n: n}, nil
}

// Len returns the number of rows.
func (d *DB) Len() int { return d.n }

// Close closes the underlying handle.
func (d *DB) Close() error { return d.db.Close() }

const systemCols = "numbers, positions, cell, pbc, energy, forces, stress, key_value_pairs"

// Get reads the i-th row in id order.
func (d *DB) Get(ctx context.Context, i int) (*atoms.Atoms, error) {
	row := d.db.QueryRowContext(ctx,
		"SELECT "+systemCols+" FROM systems ORDER BY id LIMIT 1 OFFSET ?", i)
	return d.scanRow(row)
}

// ReadAll loads every row in id order.
func (d *DB) ReadAll(ctx context.Context) ([]*atoms.Atoms, error) {
	rows, err := d.db.QueryContext(ctx, "SELECT "+systemCols+" FROM systems ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := make([]*atoms.Atoms, 0, d.n)
	for rows.Next() {
		a, err := d.scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func (d *DB) scanRow(row scanner) (*atoms.Atoms, error) {
	var (
		numbersBlob []byte
		posBlob     []byte
		cellBlob    []byte
		pbc         sql.NullInt64
		energy      sql.NullFloat64
		forcesBlob  []byte
		stressBlob  []byte
		kvpRaw      sql.NullString
	)
	if err := row.Scan(&numbersBlob, &posBlob, &cellBlob, &pbc, &energy, &forcesBlob, &stressBlob, &kvpRaw); err != nil {
		return nil, fmt.Errorf("scan systems row: %w", err)
	}

	a := &atoms.Atoms{}
	var err error
	if a.Numbers, err = decodeInt32Blob(numbersBlob); err != nil {
		return nil, fmt.Errorf("numbers: %w", err)
	}
	if a.Positions, err = decodeVectors(posBlob); err != nil {
		return nil, fmt.Errorf("positions: %w", err)
	}
	if len(cellBlob) > 0 {
		if a.Cell, err = decodeCell(cellBlob); err != nil {
			return nil, fmt.Errorf("cell: %w", err)
		}
	}
	if pbc.Valid {
		a.PBC = decodePBC(pbc.Int64)
	}

	var kvp map[string]json.RawMessage
	if kvpRaw.Valid && kvpRaw.String != "" {
		if err := json.Unmarshal([]byte(kvpRaw.String), &kvp); err != nil {
			return nil, fmt.Errorf("key_value_pairs: %w", err)
		}
	}

	if err := d.applyTargets(a, energy, forcesBlob, stressBlob, kvp); err != nil {
		return nil, err
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

func (d *DB) applyTargets(a *atoms.Atoms, energy sql.NullFloat64, forcesBlob, stressBlob []byte, kvp map[string]json.RawMessage) error {
	// Energy
	switch {
	case d.opts.EnergyKey == "" || d.opts.EnergyKey == "energy":
		if energy.Valid {
			e := energy.Float64
			a.Energy = &e
		}
	default:
		if raw, ok := kvp[d.opts.EnergyKey]; ok {
			var e float64
			if err := json.Unmarshal(raw, &e); err != nil {
				return fmt.Errorf("key_value_pairs[%s]: %w", d.opts.EnergyKey, err)
			}
			a.Energy = &e
		}
	}

	// Forces
	switch {
	case d.opts.ForcesKey == "" || d.opts.ForcesKey == "forces":
		if len(forcesBlob) > 0 {
			f, err := decodeVectors(forcesBlob)
			if err != nil {
				return fmt.Errorf("forces: %w", err)
			}
			a.Forces = f
		}
	default:
		if raw, ok := kvp[d.opts.ForcesKey]; ok {
			if err := json.Unmarshal(raw, &a.Forces); err != nil {
				return fmt.Errorf("key_value_pairs[%s]: %w", d.opts.ForcesKey, err)
			}
		}
	}

	// Stress: the native column is a 6-component Voigt vector.
	switch {
	case d.opts.StressKey == "" || d.opts.StressKey == "stress":
		if len(stressBlob) > 0 {
			vals, err := decodeFloat64Blob(stressBlob)
			if err != nil {
				return fmt.Errorf("stress: %w", err)
			}
			if len(vals) != 6 {
				return fmt.Errorf("stress blob holds %d values, want 6", len(vals))
			}
			full := atoms.FullFromVoigt([6]float64{vals[0], vals[1], vals[2], vals[3], vals[4], vals[5]})
			a.Stress = &full
		}
	default:
		if raw, ok := kvp[d.opts.StressKey]; ok {
			var s [3][3]float64
			if err := json.Unmarshal(raw, &s); err != nil {
				return fmt.Errorf("key_value_pairs[%s]: %w", d.opts.StressKey, err)
			}
			a.Stress = &s
		}
	}
	return nil
}
