// Package dataset defines the common contract every loader fulfils and the
// registry that maps dataset config types to their openers.
package dataset

import (
	"context"
	"errors"
	"fmt"

	"github.com/atomtune/atomtune/internal/atoms"
)

// ErrIndexOutOfRange classifies Get calls outside [0, Len).
var ErrIndexOutOfRange = errors.New("dataset index out of range")

// Dataset is a finite, indexable collection of structure samples.
type Dataset interface {
	// Len returns the number of samples.
	Len() int
	// Get returns the sample at index i.
	Get(ctx context.Context, i int) (*atoms.Atoms, error)
	// Close releases any underlying resources (files, DB handles).
	Close() error
}

// Memory is an in-memory Dataset backed by a slice.
type Memory struct {
	samples []*atoms.Atoms
}

// NewMemory wraps the given samples. The slice is not copied.
func NewMemory(samples []*atoms.Atoms) *Memory {
	return &Memory{samples: samples}
}

func (m *Memory) Len() int { return len(m.samples) }

func (m *Memory) Get(_ context.Context, i int) (*atoms.Atoms, error) {
	if i < 0 || i >= len(m.samples) {
		return nil, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, i, len(m.samples))
	}
	return m.samples[i], nil
}

func (m *Memory) Close() error { return nil }

// Subset is a view over another Dataset selected by an index list.
type Subset struct {
	base    Dataset
	indices []int
}

// NewSubset builds a view of base restricted to the given indices.
func NewSubset(base Dataset, indices []int) *Subset {
	return &Subset{base: base, indices: indices}
}

func (s *Subset) Len() int { return len(s.indices) }

func (s *Subset) Get(ctx context.Context, i int) (*atoms.Atoms, error) {
	if i < 0 || i >= len(s.indices) {
		return nil, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, i, len(s.indices))
	}
	return s.base.Get(ctx, s.indices[i])
}

// Close is a no-op: the base dataset owns the resources.
func (s *Subset) Close() error { return nil }
