package mp

import (
	"fmt"

	"github.com/atomtune/atomtune/internal/atoms"
)

// Structure mirrors the pymatgen structure JSON the API returns.
type Structure struct {
	Lattice struct {
		Matrix [3][3]float64 `json:"matrix"`
	} `json:"lattice"`
	Sites []struct {
		Species []struct {
			Element string  `json:"element"`
			Occu    float64 `json:"occu"`
		} `json:"species"`
		XYZ [3]float64 `json:"xyz"`
	} `json:"sites"`
}

// SummaryDoc is one row of the summary endpoint.
type SummaryDoc struct {
	MaterialID      string     `json:"material_id"`
	Formula         string     `json:"formula_pretty"`
	Structure       *Structure `json:"structure"`
	EnergyPerAtom   *float64   `json:"energy_per_atom"`
	FormationEnergy *float64   `json:"formation_energy_per_atom"`
	BandGap         *float64   `json:"band_gap"`
	IsStable        *bool      `json:"is_stable"`
}

// StructureToAtoms converts a pymatgen structure into a structure sample.
// Disordered sites carry several species; the dominant one wins.
func StructureToAtoms(s *Structure) (*atoms.Atoms, error) {
	a := &atoms.Atoms{
		Cell: s.Lattice.Matrix,
		PBC:  [3]bool{true, true, true},
	}
	for i, site := range s.Sites {
		if len(site.Species) == 0 {
			return nil, fmt.Errorf("site %d has no species", i)
		}
		best := site.Species[0]
		for _, sp := range site.Species[1:] {
			if sp.Occu > best.Occu {
				best = sp
			}
		}
		z, err := atoms.NumberForSymbol(best.Element)
		if err != nil {
			return nil, err
		}
		a.Numbers = append(a.Numbers, z)
		a.Positions = append(a.Positions, site.XYZ)
	}
	return a, nil
}

// ToAtoms converts a summary document into a structure sample. Scalar
// properties land in Info; the total energy is energy_per_atom times the
// atom count.
func (d *SummaryDoc) ToAtoms() (*atoms.Atoms, error) {
	if d.Structure == nil {
		return nil, fmt.Errorf("document %s has no structure", d.MaterialID)
	}
	a, err := StructureToAtoms(d.Structure)
	if err != nil {
		return nil, fmt.Errorf("document %s: %w", d.MaterialID, err)
	}
	if d.EnergyPerAtom != nil {
		e := *d.EnergyPerAtom * float64(a.Len())
		a.Energy = &e
	}
	a.Info = map[string]float64{}
	if d.BandGap != nil {
		a.Info["band_gap"] = *d.BandGap
	}
	if d.FormationEnergy != nil {
		a.Info["formation_energy_per_atom"] = *d.FormationEnergy
	}
	if err := a.Validate(); err != nil {
		return nil, fmt.Errorf("document %s: %w", d.MaterialID, err)
	}
	return a, nil
}
