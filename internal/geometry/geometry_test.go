// Sceneflow - Multi-Camera Scene Event Pipeline
// Copyright 2026 Parallax Vision
// SPDX-License-Identifier: Apache-2.0
// https://github.com/parallax-vision/sceneflow

package geometry

import (
	"math"
	"testing"
)

func TestPolygonContains(t *testing.T) {
	square := Polygon{
		{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10},
	}

	tests := []struct {
		name string
		pt   Point
		want bool
	}{
		{"center", Point{X: 5, Y: 5}, true},
		{"near edge inside", Point{X: 9.99, Y: 5}, true},
		{"outside right", Point{X: 10.01, Y: 5}, false},
		{"outside above", Point{X: 5, Y: 11}, false},
		{"far away", Point{X: -100, Y: -100}, false},
		{"z ignored", Point{X: 5, Y: 5, Z: 42}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := square.Contains(tt.pt); got != tt.want {
				t.Errorf("Contains(%+v) = %v, want %v", tt.pt, got, tt.want)
			}
		})
	}
}

func TestPolygonContainsConcave(t *testing.T) {
	// L-shape: the notch at the top right is outside.
	l := Polygon{
		{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 5},
		{X: 5, Y: 5}, {X: 5, Y: 10}, {X: 0, Y: 10},
	}
	if !l.Contains(Point{X: 2, Y: 8}) {
		t.Error("point in upper arm should be inside")
	}
	if l.Contains(Point{X: 8, Y: 8}) {
		t.Error("point in notch should be outside")
	}
}

func TestPolygonDegenerate(t *testing.T) {
	if (Polygon{}).Contains(Point{}) {
		t.Error("empty polygon contains nothing")
	}
	if (Polygon{{X: 0, Y: 0}, {X: 1, Y: 1}}).Contains(Point{X: 0.5, Y: 0.5}) {
		t.Error("two-vertex polygon contains nothing")
	}
}

func TestLineCrossesSign(t *testing.T) {
	// Vertical tripwire from (0,0) to (0,10).
	wire := Line{A: Point{X: 0, Y: 0}, B: Point{X: 0, Y: 10}}

	leftToRight := Line{A: Point{X: -1, Y: 5}, B: Point{X: 1, Y: 5}}
	rightToLeft := Line{A: Point{X: 1, Y: 5}, B: Point{X: -1, Y: 5}}

	d1 := wire.Crosses(leftToRight)
	d2 := wire.Crosses(rightToLeft)

	if d1 == 0 || d2 == 0 {
		t.Fatalf("both movements should cross: got %d and %d", d1, d2)
	}
	// Opposite directions yield opposite signs.
	if d1 != -d2 {
		t.Errorf("expected opposite signs, got %d and %d", d1, d2)
	}
}

func TestLineCrossesMisses(t *testing.T) {
	wire := Line{A: Point{X: 0, Y: 0}, B: Point{X: 0, Y: 10}}

	tests := []struct {
		name string
		move Line
	}{
		{"parallel", Line{A: Point{X: 1, Y: 0}, B: Point{X: 1, Y: 10}}},
		{"beyond end", Line{A: Point{X: -1, Y: 15}, B: Point{X: 1, Y: 15}}},
		{"stops short", Line{A: Point{X: -2, Y: 5}, B: Point{X: -1, Y: 5}}},
		{"collinear", Line{A: Point{X: 0, Y: 2}, B: Point{X: 0, Y: 8}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if d := wire.Crosses(tt.move); d != 0 {
				t.Errorf("Crosses(%+v) = %d, want 0", tt.move, d)
			}
		})
	}
}

func TestPoseApply(t *testing.T) {
	// Rotate 90 degrees about Z then translate (5, 0, 0).
	pose, err := NewPose([][]float64{
		{0, -1, 0, 5},
		{1, 0, 0, 0},
		{0, 0, 1, 0},
		{0, 0, 0, 1},
	})
	if err != nil {
		t.Fatalf("NewPose: %v", err)
	}

	got := pose.Apply(Point{X: 1, Y: 0, Z: 0})
	want := Point{X: 5, Y: 1, Z: 0}
	if math.Abs(got.X-want.X) > 1e-9 || math.Abs(got.Y-want.Y) > 1e-9 || math.Abs(got.Z-want.Z) > 1e-9 {
		t.Errorf("Apply = %+v, want %+v", got, want)
	}
}

func TestPoseRejectsBadMatrix(t *testing.T) {
	if _, err := NewPose([][]float64{{1, 0}, {0, 1}}); err == nil {
		t.Error("expected error for wrong shape")
	}
	if _, err := NewPose([][]float64{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
		{0, 0, 0, 2}, // bad homogeneous row
	}); err == nil {
		t.Error("expected error for bad last row")
	}
	if _, err := NewPose([][]float64{
		{0, 0, 0, 0},
		{0, 0, 0, 0},
		{0, 0, 0, 0},
		{0, 0, 0, 1}, // singular rotation block
	}); err == nil {
		t.Error("expected error for singular rotation")
	}
}

func TestLLAToECEF(t *testing.T) {
	// Equator / prime meridian: X is the semi-major axis.
	p := LLAToECEF(0, 0, 0)
	if math.Abs(p.X-6378137.0) > 1e-6 || math.Abs(p.Y) > 1e-6 || math.Abs(p.Z) > 1e-6 {
		t.Errorf("equator/meridian = %+v", p)
	}

	// North pole: Z is the semi-minor axis (~6356752.3m).
	p = LLAToECEF(90, 0, 0)
	if math.Abs(p.Z-6356752.314245) > 1e-3 {
		t.Errorf("north pole Z = %v", p.Z)
	}
	if math.Abs(p.X) > 1e-6 {
		t.Errorf("north pole X = %v, want ~0", p.X)
	}

	// Altitude extends along the normal.
	sea := LLAToECEF(0, 90, 0)
	up := LLAToECEF(0, 90, 100)
	if math.Abs(up.Y-sea.Y-100) > 1e-6 {
		t.Errorf("altitude delta = %v, want 100", up.Y-sea.Y)
	}
}

func TestConvertBoxesBatch(t *testing.T) {
	in := Intrinsics{Fx: 1000, Fy: 1000, Cx: 640, Cy: 360}
	boxes := []Box{
		{X: 640, Y: 360, Width: 100, Height: 200},
		{X: 540, Y: 260, Width: 200, Height: 200},
	}

	out := in.ConvertBoxes(boxes)
	if len(out) != 2 {
		t.Fatalf("got %d boxes, want 2", len(out))
	}

	// Principal point maps to the metric origin.
	if math.Abs(out[0].X) > 1e-9 || math.Abs(out[0].Y) > 1e-9 {
		t.Errorf("box at principal point = %+v, want origin", out[0])
	}
	if math.Abs(out[0].Width-0.1) > 1e-9 || math.Abs(out[0].Height-0.2) > 1e-9 {
		t.Errorf("box size = %+v, want 0.1x0.2", out[0])
	}

	// Centered box stays centered.
	if math.Abs(out[1].X+0.1) > 1e-9 {
		t.Errorf("centered box X = %v, want -0.1", out[1].X)
	}
}
