// Sceneflow - Multi-Camera Scene Event Pipeline
// Copyright 2026 Parallax Vision
// SPDX-License-Identifier: Apache-2.0
// https://github.com/parallax-vision/sceneflow

package geometry

// Polygon is a simple (non self-intersecting) polygon on the scene plane,
// given as an ordered list of vertices. The closing edge from the last
// vertex back to the first is implicit.
type Polygon []Point

// Contains reports whether pt lies inside the polygon, using the even-odd
// ray casting rule on the XY plane. Points exactly on an edge may land on
// either side; region membership treats that jitter as acceptable.
func (pg Polygon) Contains(pt Point) bool {
	n := len(pg)
	if n < 3 {
		return false
	}

	inside := false
	j := n - 1
	for i := 0; i < n; i++ {
		vi, vj := pg[i], pg[j]
		if (vi.Y > pt.Y) != (vj.Y > pt.Y) {
			xCross := (vj.X-vi.X)*(pt.Y-vi.Y)/(vj.Y-vi.Y) + vi.X
			if pt.X < xCross {
				inside = !inside
			}
		}
		j = i
	}
	return inside
}

// Centroid returns the vertex average. Good enough for logging and for the
// coarse distance checks the pipeline performs; not an area-weighted center.
func (pg Polygon) Centroid() Point {
	if len(pg) == 0 {
		return Point{}
	}
	var c Point
	for _, v := range pg {
		c = c.Add(v)
	}
	n := float64(len(pg))
	return Point{X: c.X / n, Y: c.Y / n, Z: c.Z / n}
}
