package model

import "strings"

// Element holds the per-element data used for radii and bonding.
type Element struct {
	Symbol   string
	Number   int
	Mass     float64
	VDW      float64 // Bondi van der Waals radius, Å
	Covalent float64 // single-bond covalent radius, Å
}

var elements = []Element{
	{"Xx", 0, 0, 2.0, 1.5},
	{"H", 1, 1.008, 1.20, 0.31},
	{"He", 2, 4.0026, 1.40, 0.28},
	{"Li", 3, 6.94, 1.82, 1.28},
	{"Be", 4, 9.0122, 1.53, 0.96},
	{"B", 5, 10.81, 1.92, 0.84},
	{"C", 6, 12.011, 1.70, 0.76},
	{"N", 7, 14.007, 1.55, 0.71},
	{"O", 8, 15.999, 1.52, 0.66},
	{"F", 9, 18.998, 1.47, 0.57},
	{"Ne", 10, 20.180, 1.54, 0.58},
	{"Na", 11, 22.990, 2.27, 1.66},
	{"Mg", 12, 24.305, 1.73, 1.41},
	{"Al", 13, 26.982, 1.84, 1.21},
	{"Si", 14, 28.085, 2.10, 1.11},
	{"P", 15, 30.974, 1.80, 1.07},
	{"S", 16, 32.06, 1.80, 1.05},
	{"Cl", 17, 35.45, 1.75, 1.02},
	{"Ar", 18, 39.948, 1.88, 1.06},
	{"K", 19, 39.098, 2.75, 2.03},
	{"Ca", 20, 40.078, 2.31, 1.76},
	{"Fe", 26, 55.845, 2.04, 1.32},
	{"Co", 27, 58.933, 2.00, 1.26},
	{"Ni", 28, 58.693, 1.63, 1.24},
	{"Cu", 29, 63.546, 1.40, 1.32},
	{"Zn", 30, 65.38, 1.39, 1.22},
	{"Se", 34, 78.971, 1.90, 1.20},
	{"Br", 35, 79.904, 1.85, 1.20},
	{"I", 53, 126.90, 1.98, 1.39},
}

var bySymbol = func() map[string]Element {
	m := make(map[string]Element, len(elements))
	for _, e := range elements {
		m[strings.ToLower(e.Symbol)] = e
	}
	return m
}()

// ElementBySymbol looks a symbol up case-insensitively.
func ElementBySymbol(sym string) (Element, bool) {
	e, ok := bySymbol[strings.ToLower(strings.TrimSpace(sym))]
	return e, ok
}

// ElementByNumber looks an atomic number up.
func ElementByNumber(n int) (Element, bool) {
	for _, e := range elements {
		if e.Number == n {
			return e, true
		}
	}
	return Element{}, false
}
