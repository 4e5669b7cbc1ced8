package model

import (
	"fmt"
	"math"
)

// RadiusMode selects how a RadiusData is interpreted.
type RadiusMode int

const (
	// RadiusRange is an explicit [Min, Max] distance range.
	RadiusRange RadiusMode = iota
	// RadiusOffset adds Value to each atom's van der Waals radius.
	RadiusOffset
	// RadiusFactor multiplies each atom's van der Waals radius by Value.
	RadiusFactor
)

// RadiusData describes a distance criterion used by within, contact and
// measure.
type RadiusData struct {
	Mode     RadiusMode
	Min, Max float64
	Value    float64
}

// Range builds an explicit range.
func Range(min, max float64) RadiusData {
	return RadiusData{Mode: RadiusRange, Min: min, Max: max}
}

// Offset builds a van der Waals offset.
func Offset(v float64) RadiusData { return RadiusData{Mode: RadiusOffset, Value: v} }

// Factor builds a van der Waals factor.
func Factor(v float64) RadiusData { return RadiusData{Mode: RadiusFactor, Value: v} }

// Radius returns the radius applied to an atom.
func (rd RadiusData) Radius(a Atom) float64 {
	switch rd.Mode {
	case RadiusOffset:
		return a.VDW() + rd.Value
	case RadiusFactor:
		return a.VDW() * rd.Value
	}
	return rd.Max
}

// Contact reports whether atoms a and b are in contact: for a range, their
// distance lies in [Min, Max]; otherwise it is at most the sum of the two
// scaled radii.
func (rd RadiusData) Contact(a, b Atom) bool {
	d := a.Pos.Distance(b.Pos)
	if rd.Mode == RadiusRange {
		return d >= rd.Min && d <= rd.Max
	}
	return d <= rd.Radius(a)+rd.Radius(b)
}

// MaxReach bounds the search radius around any atom for spatial queries.
func (rd RadiusData) MaxReach() float64 {
	switch rd.Mode {
	case RadiusOffset:
		return 2 * (maxVDW() + math.Max(rd.Value, 0))
	case RadiusFactor:
		return 2 * maxVDW() * math.Max(rd.Value, 0)
	}
	return rd.Max
}

func maxVDW() float64 {
	m := 0.0
	for _, e := range elements {
		m = math.Max(m, e.VDW)
	}
	return m
}

func (rd RadiusData) String() string {
	switch rd.Mode {
	case RadiusOffset:
		return fmt.Sprintf("vdw%+g", rd.Value)
	case RadiusFactor:
		return fmt.Sprintf("%g%%vdw", rd.Value*100)
	}
	return fmt.Sprintf("%g-%g", rd.Min, rd.Max)
}
