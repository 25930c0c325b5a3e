// Sceneflow - Multi-Camera Scene Event Pipeline
// Copyright 2026 Parallax Vision
// SPDX-License-Identifier: Apache-2.0
// https://github.com/parallax-vision/sceneflow

// Package geometry provides the scene-plane primitives the event pipeline
// needs: 3D points, 2D segments, polygon containment, signed segment
// crossing, homogeneous pose transforms, and WGS84 geodetic conversion.
package geometry

import "math"

// Point is a location in scene coordinates (meters).
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// NewPoint builds a Point from a coordinate slice. Missing trailing
// components default to zero; extra components are ignored.
func NewPoint(coords []float64) Point {
	var p Point
	if len(coords) > 0 {
		p.X = coords[0]
	}
	if len(coords) > 1 {
		p.Y = coords[1]
	}
	if len(coords) > 2 {
		p.Z = coords[2]
	}
	return p
}

// Coords returns the point as a coordinate slice.
func (p Point) Coords() []float64 {
	return []float64{p.X, p.Y, p.Z}
}

// Add returns p + q.
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y, Z: p.Z + q.Z}
}

// Sub returns p - q.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y, Z: p.Z - q.Z}
}

// Distance returns the Euclidean distance between p and q.
func (p Point) Distance(q Point) float64 {
	d := p.Sub(q)
	return math.Sqrt(d.X*d.X + d.Y*d.Y + d.Z*d.Z)
}

// Distance2D returns the distance between p and q on the scene plane.
func (p Point) Distance2D(q Point) float64 {
	dx, dy := p.X-q.X, p.Y-q.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Line is a directed 2D segment on the scene plane. Z components of the
// endpoints are ignored; region and tripwire logic operates on the plane.
type Line struct {
	A Point
	B Point
}

// cross returns the z-component of (b-a) x (c-a).
func cross(a, b, c Point) float64 {
	return (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
}

// Crosses reports whether the segment m crosses l, and in which direction.
// The return value is +1 when m crosses from the left side of l to the
// right (relative to l's direction A->B), -1 for the opposite direction,
// and 0 when the segments do not properly intersect. Touching an endpoint
// or running collinear counts as no crossing.
func (l Line) Crosses(m Line) int {
	d1 := cross(l.A, l.B, m.A)
	d2 := cross(l.A, l.B, m.B)
	d3 := cross(m.A, m.B, l.A)
	d4 := cross(m.A, m.B, l.B)

	if d1*d2 < 0 && d3*d4 < 0 {
		if d1 > 0 {
			return 1
		}
		return -1
	}
	return 0
}
