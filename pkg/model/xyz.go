package model

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/openmol/molscript/pkg/bitset"
	"github.com/openmol/molscript/pkg/geom"
)

// ReadXYZ loads the first frame of an XYZ file into a new Store and bonds
// atoms whose distance is below the sum of their covalent radii plus
// tolerance.
func ReadXYZ(r io.Reader, tolerance float64) (*Store, error) {
	sc := bufio.NewScanner(r)
	if !sc.Scan() {
		return nil, fmt.Errorf("model: xyz: empty input")
	}
	n, err := strconv.Atoi(strings.TrimSpace(sc.Text()))
	if err != nil || n < 0 {
		return nil, fmt.Errorf("model: xyz: bad atom count %q", sc.Text())
	}
	sc.Scan() // comment line
	s := NewStore()
	for i := 0; i < n; i++ {
		if !sc.Scan() {
			return nil, fmt.Errorf("model: xyz: expected %d atoms, got %d", n, i)
		}
		f := strings.Fields(sc.Text())
		if len(f) < 4 {
			return nil, fmt.Errorf("model: xyz: line %d: %q", i+3, sc.Text())
		}
		var c [3]float64
		for k := 0; k < 3; k++ {
			if c[k], err = strconv.ParseFloat(f[k+1], 64); err != nil {
				return nil, fmt.Errorf("model: xyz: line %d: %w", i+3, err)
			}
		}
		s.AddAtom(Atom{Element: f[0], Pos: geom.P3{X: c[0], Y: c[1], Z: c[2]}})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("model: xyz: %w", err)
	}
	AutoBond(s, nil, tolerance)
	return s, nil
}

// AutoBond creates single bonds between atoms of bs closer than the sum
// of their covalent radii plus tolerance; a nil bs means every atom. It
// returns the number of bonds created.
func AutoBond(m Mutator, bs *bitset.BS, tolerance float64) int {
	if bs == nil {
		bs = bitset.Range(0, m.AtomCount())
	}
	n := 0
	for i := bs.NextSetBit(0); i >= 0; i = bs.NextSetBit(i + 1) {
		a, ok := m.Atom(i)
		if !ok {
			continue
		}
		ra := a.Covalent()
		near := m.Within(a.Pos, ra+maxCovalent()+tolerance)
		near.And(bs)
		for j := near.NextSetBit(i + 1); j >= 0; j = near.NextSetBit(j + 1) {
			b, _ := m.Atom(j)
			if a.Pos.Distance(b.Pos) <= ra+b.Covalent()+tolerance {
				if _, ok := m.BondBetween(i, j); !ok {
					if _, err := m.AddBond(i, j, BondSingle); err == nil {
						n++
					}
				}
			}
		}
	}
	return n
}

func maxCovalent() float64 {
	m := 0.0
	for _, e := range elements {
		if e.Covalent > m {
			m = e.Covalent
		}
	}
	return m
}

// WriteXYZ writes the atoms of m as an XYZ frame.
func WriteXYZ(w io.Writer, m Model, comment string) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%d\n%s\n", m.AtomCount(), comment)
	for i := 0; i < m.AtomCount(); i++ {
		a, _ := m.Atom(i)
		fmt.Fprintf(bw, "%-2s %12.6f %12.6f %12.6f\n", a.Element, a.Pos.X, a.Pos.Y, a.Pos.Z)
	}
	return bw.Flush()
}
