// Package jsonds reads structure samples from JSON record files. A file holds
// an array of records with atomic_numbers, positions, cell and optional
// energy/forces/stress targets; a tasks mapping can point logical property
// names at custom JSON keys.
package jsonds

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/atomtune/atomtune/internal/atoms"
	"github.com/atomtune/atomtune/internal/config"
	"github.com/atomtune/atomtune/internal/dataset"
	"github.com/atomtune/atomtune/internal/log"
	"github.com/atomtune/atomtune/internal/metrics"
)

// Well-known logical property names.
const (
	PropEnergy = "energy"
	PropForces = "forces"
	PropStress = "stress"
)

// ErrShape classifies vector or matrix values with the wrong dimensions.
var ErrShape = errors.New("value has the wrong shape")

func init() {
	dataset.RegisterOpener(config.TypeJSON, openDataset)
}

func openDataset(ctx context.Context, _ dataset.Env, cfg config.DatasetConfig) (dataset.Dataset, error) {
	c := cfg.JSON
	logger := log.WithComponentFromContext(ctx, "jsonds")

	samples, err := ReadFile(c.Src, c.Tasks)
	if err != nil {
		return nil, err
	}
	metrics.RecordsLoaded.WithLabelValues(config.TypeJSON).Add(float64(len(samples)))
	logger.Info().Str(log.FieldPath, c.Src).Int(log.FieldRecords, len(samples)).Msg("json records loaded")
	return dataset.NewMemory(samples), nil
}

// ReadFile parses all records in the file at path. tasks maps logical
// property names to the JSON keys that carry them; absent entries fall back
// to the logical name itself.
func ReadFile(path string, tasks map[string]string) ([]*atoms.Atoms, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from dataset config
	if err != nil {
		return nil, err
	}
	var raw []map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	samples := make([]*atoms.Atoms, 0, len(raw))
	for i, rec := range raw {
		a, err := decodeRecord(rec, tasks)
		if err != nil {
			return nil, fmt.Errorf("%s: record %d: %w", path, i, err)
		}
		if err := a.Validate(); err != nil {
			return nil, fmt.Errorf("%s: record %d: %w", path, i, err)
		}
		samples = append(samples, a)
	}
	return samples, nil
}

func key(tasks map[string]string, prop string) string {
	if k, ok := tasks[prop]; ok && k != "" {
		return k
	}
	return prop
}

func decodeRecord(rec map[string]json.RawMessage, tasks map[string]string) (*atoms.Atoms, error) {
	a := &atoms.Atoms{}
	var err error

	raw, ok := rec["atomic_numbers"]
	if !ok {
		return nil, fmt.Errorf("missing atomic_numbers")
	}
	if err := json.Unmarshal(raw, &a.Numbers); err != nil {
		return nil, fmt.Errorf("atomic_numbers: %w", err)
	}

	raw, ok = rec["positions"]
	if !ok {
		return nil, fmt.Errorf("missing positions")
	}
	if a.Positions, err = decodeVectors(raw, "positions"); err != nil {
		return nil, err
	}

	if raw, ok := rec["cell"]; ok {
		cell, err := decodeMatrix(raw, "cell")
		if err != nil {
			return nil, err
		}
		a.Cell = cell
		a.PBC = [3]bool{true, true, true}
	}

	if raw, ok := rec[key(tasks, PropEnergy)]; ok {
		var e float64
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, fmt.Errorf("energy: %w", err)
		}
		a.Energy = &e
	}
	if raw, ok := rec[key(tasks, PropForces)]; ok {
		if a.Forces, err = decodeVectors(raw, "forces"); err != nil {
			return nil, err
		}
	}
	if raw, ok := rec[key(tasks, PropStress)]; ok {
		s, err := decodeMatrix(raw, "stress")
		if err != nil {
			return nil, err
		}
		a.Stress = &s
	}

	// Remaining task entries are free-form scalar targets.
	for prop, jsonKey := range tasks {
		if prop == PropEnergy || prop == PropForces || prop == PropStress {
			continue
		}
		raw, ok := rec[jsonKey]
		if !ok {
			continue
		}
		var v float64
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("task %s (%s): %w", prop, jsonKey, err)
		}
		if a.Info == nil {
			a.Info = map[string]float64{}
		}
		a.Info[prop] = v
	}
	return a, nil
}

// decodeVectors parses a list of 3-vectors. Rows with any other number of
// components are rejected; a direct decode into [3]float64 would silently
// truncate or zero-fill them.
func decodeVectors(raw json.RawMessage, what string) ([][3]float64, error) {
	var rows [][]float64
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("%s: %w", what, err)
	}
	out := make([][3]float64, len(rows))
	for i, row := range rows {
		if len(row) != 3 {
			return nil, fmt.Errorf("%s: %w: row %d has %d components, want 3", what, ErrShape, i, len(row))
		}
		copy(out[i][:], row)
	}
	return out, nil
}

// decodeMatrix parses a 3x3 matrix, rejecting any other row count.
func decodeMatrix(raw json.RawMessage, what string) ([3][3]float64, error) {
	rows, err := decodeVectors(raw, what)
	if err != nil {
		return [3][3]float64{}, err
	}
	if len(rows) != 3 {
		return [3][3]float64{}, fmt.Errorf("%s: %w: %d rows, want 3", what, ErrShape, len(rows))
	}
	return [3][3]float64{rows[0], rows[1], rows[2]}, nil
}
