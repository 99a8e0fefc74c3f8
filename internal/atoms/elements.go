package atoms

import "fmt"

// symbols is indexed by atomic number minus one (H=1 .. Og=118).
var symbols = [...]string{
	"H", "He",
	"Li", "Be", "B", "C", "N", "O", "F", "Ne",
	"Na", "Mg", "Al", "Si", "P", "S", "Cl", "Ar",
	"K", "Ca", "Sc", "Ti", "V", "Cr", "Mn", "Fe", "Co", "Ni", "Cu", "Zn",
	"Ga", "Ge", "As", "Se", "Br", "Kr",
	"Rb", "Sr", "Y", "Zr", "Nb", "Mo", "Tc", "Ru", "Rh", "Pd", "Ag", "Cd",
	"In", "Sn", "Sb", "Te", "I", "Xe",
	"Cs", "Ba",
	"La", "Ce", "Pr", "Nd", "Pm", "Sm", "Eu", "Gd", "Tb", "Dy", "Ho", "Er", "Tm", "Yb", "Lu",
	"Hf", "Ta", "W", "Re", "Os", "Ir", "Pt", "Au", "Hg",
	"Tl", "Pb", "Bi", "Po", "At", "Rn",
	"Fr", "Ra",
	"Ac", "Th", "Pa", "U", "Np", "Pu", "Am", "Cm", "Bk", "Cf", "Es", "Fm", "Md", "No", "Lr",
	"Rf", "Db", "Sg", "Bh", "Hs", "Mt", "Ds", "Rg", "Cn",
	"Nh", "Fl", "Mc", "Lv", "Ts", "Og",
}

var numberForSymbol = func() map[string]int {
	m := make(map[string]int, len(symbols))
	for i, s := range symbols {
		m[s] = i + 1
	}
	return m
}()

// SymbolForNumber maps an atomic number to its chemical symbol.
func SymbolForNumber(z int) (string, error) {
	if z < 1 || z > len(symbols) {
		return "", fmt.Errorf("%w: Z=%d", ErrUnknownElement, z)
	}
	return symbols[z-1], nil
}

// NumberForSymbol maps a chemical symbol to its atomic number.
func NumberForSymbol(sym string) (int, error) {
	z, ok := numberForSymbol[sym]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownElement, sym)
	}
	return z, nil
}
