// Sceneflow - Multi-Camera Scene Event Pipeline
// Copyright 2026 Parallax Vision
// SPDX-License-Identifier: Apache-2.0
// https://github.com/parallax-vision/sceneflow

package geometry

// Box is an axis-aligned bounding box. Units depend on context: pixel
// space before conversion, scene-plane meters after.
type Box struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Intrinsics is a pinhole camera model with optional radial distortion
// (k1, k2, k3). It satisfies the scene package's box converter contract.
type Intrinsics struct {
	Fx float64 `json:"fx"`
	Fy float64 `json:"fy"`
	Cx float64 `json:"cx"`
	Cy float64 `json:"cy"`

	Distortion []float64 `json:"distortion,omitempty"`
}

// undistort applies the inverse radial model to normalized coordinates
// with a single Newton step, which is accurate enough for the small
// distortions scene cameras carry.
func (in Intrinsics) undistort(xn, yn float64) (float64, float64) {
	if len(in.Distortion) == 0 {
		return xn, yn
	}
	k1 := in.Distortion[0]
	var k2, k3 float64
	if len(in.Distortion) > 1 {
		k2 = in.Distortion[1]
	}
	if len(in.Distortion) > 2 {
		k3 = in.Distortion[2]
	}
	r2 := xn*xn + yn*yn
	scale := 1 + k1*r2 + k2*r2*r2 + k3*r2*r2*r2
	if scale == 0 {
		return xn, yn
	}
	return xn / scale, yn / scale
}

// project maps one pixel coordinate onto the unit-depth metric plane.
func (in Intrinsics) project(u, v float64) (float64, float64) {
	xn := (u - in.Cx) / in.Fx
	yn := (v - in.Cy) / in.Fy
	return in.undistort(xn, yn)
}

// ConvertBoxes maps pixel-space bounding boxes onto the camera's
// unit-depth metric plane in one batch. The slice is processed in a single
// pass so callers convert a whole frame with one call rather than one call
// per detection.
func (in Intrinsics) ConvertBoxes(boxes []Box) []Box {
	out := make([]Box, len(boxes))
	for i, b := range boxes {
		x0, y0 := in.project(b.X, b.Y)
		x1, y1 := in.project(b.X+b.Width, b.Y+b.Height)
		out[i] = Box{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
	}
	return out
}
