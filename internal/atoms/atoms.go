// Package atoms holds the in-memory representation of one atomic structure
// sample and the invariants every loader must uphold before a sample enters
// the training pipeline.
package atoms

import (
	"errors"
	"fmt"
)

var (
	// ErrLengthMismatch classifies samples whose per-atom arrays disagree in length.
	ErrLengthMismatch = errors.New("per-atom array length mismatch")
	// ErrUnknownElement classifies atomic numbers outside the periodic table.
	ErrUnknownElement = errors.New("unknown element")
)

// Atoms is a single structure sample: atomic numbers, positions, a lattice
// and optional regression targets. Positions, Numbers and Forces are
// index-aligned.
type Atoms struct {
	Numbers   []int          `json:"atomic_numbers"`
	Positions [][3]float64   `json:"positions"`
	Cell      [3][3]float64  `json:"cell"`
	PBC       [3]bool        `json:"pbc"`
	Energy    *float64       `json:"energy,omitempty"`
	Forces    [][3]float64   `json:"forces,omitempty"`
	Stress    *[3][3]float64 `json:"stress,omitempty"`

	// Info carries free-form scalar properties (band gap, formation energy per
	// atom, ...) keyed by logical property name.
	Info map[string]float64 `json:"info,omitempty"`
}

// Len returns the number of atoms in the sample.
func (a *Atoms) Len() int { return len(a.Numbers) }

// Validate enforces the structural invariants:
// len(Positions) == len(Numbers), len(Forces) == len(Numbers) when forces are
// present, and every atomic number maps to a known element.
func (a *Atoms) Validate() error {
	if len(a.Positions) != len(a.Numbers) {
		return fmt.Errorf("%w: %d positions for %d atomic numbers", ErrLengthMismatch, len(a.Positions), len(a.Numbers))
	}
	if a.Forces != nil && len(a.Forces) != len(a.Numbers) {
		return fmt.Errorf("%w: %d forces for %d atomic numbers", ErrLengthMismatch, len(a.Forces), len(a.Numbers))
	}
	for i, z := range a.Numbers {
		if z < 1 || z > len(symbols) {
			return fmt.Errorf("%w: Z=%d at index %d", ErrUnknownElement, z, i)
		}
	}
	return nil
}

// Symbols returns the chemical symbol per atom, index-aligned with Numbers.
func (a *Atoms) Symbols() ([]string, error) {
	out := make([]string, len(a.Numbers))
	for i, z := range a.Numbers {
		s, err := SymbolForNumber(z)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

// SymbolSet returns the distinct chemical symbols present in the sample.
func (a *Atoms) SymbolSet() (map[string]struct{}, error) {
	syms, err := a.Symbols()
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(syms))
	for _, s := range syms {
		set[s] = struct{}{}
	}
	return set, nil
}
