package dataset

import (
	"github.com/atomtune/atomtune/internal/atoms"
)

// Filter drops structures by atom count or element content before they enter
// a dataset. The zero value keeps everything.
type Filter struct {
	MinNumAtoms *int
	MaxNumAtoms *int

	// Elements, when non-nil, keeps only structures whose element set is a
	// subset of the listed symbols.
	Elements []string

	elemSet map[string]struct{}
}

// NewFilter builds a Filter from optional bounds and an element whitelist.
func NewFilter(minAtoms, maxAtoms *int, elements []string) *Filter {
	f := &Filter{MinNumAtoms: minAtoms, MaxNumAtoms: maxAtoms, Elements: elements}
	if elements != nil {
		f.elemSet = make(map[string]struct{}, len(elements))
		for _, e := range elements {
			f.elemSet[e] = struct{}{}
		}
	}
	return f
}

// Keep reports whether the sample passes the filter.
func (f *Filter) Keep(a *atoms.Atoms) (bool, error) {
	if f == nil {
		return true, nil
	}
	if f.MinNumAtoms != nil && a.Len() < *f.MinNumAtoms {
		return false, nil
	}
	if f.MaxNumAtoms != nil && a.Len() > *f.MaxNumAtoms {
		return false, nil
	}
	if f.elemSet != nil {
		present, err := a.SymbolSet()
		if err != nil {
			return false, err
		}
		for sym := range present {
			if _, ok := f.elemSet[sym]; !ok {
				return false, nil
			}
		}
	}
	return true, nil
}
