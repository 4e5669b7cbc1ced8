package geom

import (
	"fmt"
	"math"
	"sort"
)

// hullEpsilon is the distance below which a point counts as lying on a
// face plane.
const hullEpsilon = 1e-6

// ConvexFaces triangulates the convex hull of pts. Each face lists point
// indices counter-clockwise seen from outside. Coplanar points of one face
// are fanned around their centroid; when every point is coplanar the hull
// is a single polygon. Fewer than three points have no faces.
func ConvexFaces(pts []P3) [][3]int {
	n := len(pts)
	if n < 3 {
		return nil
	}
	type plane struct {
		normal P3
		on     []int
	}
	planes := make(map[string]*plane)
	var order []string
	flat := true
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			for k := j + 1; k < n; k++ {
				nrm := pts[j].Sub(pts[i]).Cross(pts[k].Sub(pts[i]))
				if nrm.Length() < Epsilon {
					continue
				}
				nrm = nrm.Normalize()
				d := nrm.Dot(pts[i])
				var on []int
				above, below := false, false
				for m, p := range pts {
					s := nrm.Dot(p) - d
					switch {
					case s > hullEpsilon:
						above = true
					case s < -hullEpsilon:
						below = true
					default:
						on = append(on, m)
					}
				}
				if above && below {
					continue
				}
				if above || below {
					flat = false
				}
				if above {
					nrm, d = nrm.Scale(-1), -d
				}
				key := planeKey(nrm, d)
				if _, ok := planes[key]; !ok {
					planes[key] = &plane{normal: nrm, on: on}
					order = append(order, key)
				}
			}
		}
	}
	if len(order) == 0 {
		return nil
	}
	if flat {
		pl := planes[order[0]]
		return fan(pts, pl.on, pl.normal)
	}
	var faces [][3]int
	for _, key := range order {
		pl := planes[key]
		faces = append(faces, fan(pts, pl.on, pl.normal)...)
	}
	return faces
}

func planeKey(n P3, d float64) string {
	r := func(f float64) float64 {
		f = math.Round(f*1e5) / 1e5
		if f == 0 {
			return 0
		}
		return f
	}
	return fmt.Sprintf("%g,%g,%g,%g", r(n.X), r(n.Y), r(n.Z), r(d))
}

// fan orders the points idx of one face around their centroid and
// triangulates them, winding counter-clockwise about normal.
func fan(pts []P3, idx []int, normal P3) [][3]int {
	face := make([]P3, len(idx))
	for k, i := range idx {
		face[k] = pts[i]
	}
	c := Centroid(face)
	u := pts[idx[0]].Sub(c)
	if u.Length() < Epsilon && len(idx) > 1 {
		u = pts[idx[1]].Sub(c)
	}
	u = u.Normalize()
	v := normal.Cross(u)
	angle := make(map[int]float64, len(idx))
	for _, i := range idx {
		w := pts[i].Sub(c)
		angle[i] = math.Atan2(w.Dot(v), w.Dot(u))
	}
	ordered := append([]int(nil), idx...)
	sort.Slice(ordered, func(a, b int) bool { return angle[ordered[a]] < angle[ordered[b]] })
	var out [][3]int
	for k := 1; k+1 < len(ordered); k++ {
		out = append(out, [3]int{ordered[0], ordered[k], ordered[k+1]})
	}
	return out
}
