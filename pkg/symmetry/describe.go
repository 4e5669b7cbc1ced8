package symmetry

import (
	"fmt"
	"math"
	"strings"

	"github.com/openmol/molscript/pkg/geom"
)

// Info classifies an operator geometrically.
type Info struct {
	// Type is one of identity, translation, inversion, rotation, screw,
	// mirror, glide or rotoinversion.
	Type string
	// Order is the order of the proper rotation ±R (1, 2, 3, 4 or 6).
	Order int
	// Proper is false when the rotational part has determinant -1.
	Proper bool
	// Axis is the rotation axis or the mirror normal, zero for identity,
	// translation and inversion.
	Axis geom.P3
	// Intrinsic is the screw or glide component of the translation.
	Intrinsic geom.P3
	// Location is a fractional point fixed by the operator once the
	// intrinsic translation is removed.
	Location geom.P3
}

// Label is a short human description, e.g. "2-fold screw axis|translation: 0 1/2 0".
func (in Info) Label() string {
	var sb strings.Builder
	switch in.Type {
	case "rotation":
		fmt.Fprintf(&sb, "%d-fold rotation axis", in.Order)
	case "screw":
		fmt.Fprintf(&sb, "%d-fold screw axis", in.Order)
	case "rotoinversion":
		fmt.Fprintf(&sb, "-%d axis", in.Order)
	case "mirror":
		sb.WriteString("mirror plane")
	case "glide":
		sb.WriteString("glide plane")
	case "inversion":
		sb.WriteString("inversion center")
	default:
		sb.WriteString(in.Type)
	}
	if in.Type == "screw" || in.Type == "glide" || in.Type == "translation" {
		fmt.Fprintf(&sb, "|translation: %s %s %s",
			FormatFraction(in.Intrinsic.X), FormatFraction(in.Intrinsic.Y), FormatFraction(in.Intrinsic.Z))
	}
	return sb.String()
}

// Describe classifies op.
func (op SymOp) Describe() Info {
	proper := op.Rot.Determinant() > 0
	pr := op.Rot
	if !proper {
		pr = op.Rot.Scale(-1)
	}
	order := rotationOrder(op.Rot)
	in := Info{Order: rotationOrder(pr), Proper: proper}
	if order == 0 || in.Order == 0 {
		in.Type = "unknown"
		return in
	}

	// intrinsic translation w = (1/n) Σ R^k t
	var w geom.P3
	pow := geom.Identity3()
	for k := 0; k < order; k++ {
		w = w.Add(pow.Transform(op.Trans))
		pow = op.Rot.Mul(pow)
	}
	w = w.Scale(1 / float64(order))
	in.Intrinsic = cleanP3(w)

	// the orbit centroid of the origin under (R, t-w) is a fixed point
	reduced := SymOp{Rot: op.Rot, Trans: op.Trans.Sub(w)}
	var loc, p geom.P3
	for k := 0; k < order; k++ {
		loc = loc.Add(p)
		p = reduced.Apply(p)
	}
	in.Location = cleanP3(loc.Scale(1 / float64(order)))

	hasW := w.Length() > 1e-6
	switch {
	case proper && order == 1:
		if isLattice(op.Trans, 1e-6) {
			in.Type = "identity"
		} else {
			in.Type = "translation"
		}
	case proper && hasW:
		in.Type = "screw"
	case proper:
		in.Type = "rotation"
	case in.Order == 1:
		in.Type = "inversion"
		in.Location = cleanP3(op.Trans.Scale(0.5))
	case in.Order == 2 && hasW:
		in.Type = "glide"
	case in.Order == 2:
		in.Type = "mirror"
	default:
		in.Type = "rotoinversion"
	}
	if in.Type != "identity" && in.Type != "translation" && in.Type != "inversion" {
		in.Axis = rotationAxis(pr)
	}
	return in
}

func rotationOrder(r geom.M3) int {
	pow := r
	for k := 1; k <= 6; k++ {
		if pow.Near(geom.Identity3(), 1e-6) {
			return k
		}
		pow = r.Mul(pow)
	}
	return 0
}

// rotationAxis finds the eigenvector with eigenvalue 1 of a proper rotation
// as the cross product of two independent rows of R - I.
func rotationAxis(r geom.M3) geom.P3 {
	a := r.Add(geom.Identity3().Scale(-1))
	rows := []geom.P3{a.Row(0), a.Row(1), a.Row(2)}
	var best geom.P3
	for i := 0; i < 3; i++ {
		for j := i + 1; j < 3; j++ {
			c := rows[i].Cross(rows[j])
			if c.Length() > best.Length() {
				best = c
			}
		}
	}
	n := best.Normalize()
	if n.IsNaN() {
		return geom.P3{}
	}
	// point the axis into the positive octant where possible
	if n.X < -1e-9 || (math.Abs(n.X) < 1e-9 && (n.Y < -1e-9 || (math.Abs(n.Y) < 1e-9 && n.Z < 0))) {
		n = n.Scale(-1)
	}
	return cleanP3(n)
}

func cleanP3(p geom.P3) geom.P3 {
	clean := func(v float64) float64 {
		if math.Abs(v) < 1e-9 {
			return 0
		}
		return v
	}
	return geom.P3{X: clean(p.X), Y: clean(p.Y), Z: clean(p.Z)}
}
