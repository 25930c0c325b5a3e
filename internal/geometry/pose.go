// Sceneflow - Multi-Camera Scene Event Pipeline
// Copyright 2026 Parallax Vision
// SPDX-License-Identifier: Apache-2.0
// https://github.com/parallax-vision/sceneflow

package geometry

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Pose is a rigid transform between two scene coordinate frames, stored as
// a 4x4 homogeneous matrix. Child scenes report object locations in their
// own frame; applying the child's pose maps them into the parent frame.
type Pose struct {
	m *mat.Dense
}

// NewPose builds a pose from a row-major 4x4 matrix.
func NewPose(rows [][]float64) (*Pose, error) {
	if len(rows) != 4 {
		return nil, fmt.Errorf("pose matrix must have 4 rows, got %d", len(rows))
	}
	data := make([]float64, 0, 16)
	for i, row := range rows {
		if len(row) != 4 {
			return nil, fmt.Errorf("pose matrix row %d must have 4 columns, got %d", i, len(row))
		}
		data = append(data, row...)
	}
	p := &Pose{m: mat.NewDense(4, 4, data)}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// NewPoseFromTranslation builds a pure-translation pose.
func NewPoseFromTranslation(t Point) *Pose {
	return &Pose{m: mat.NewDense(4, 4, []float64{
		1, 0, 0, t.X,
		0, 1, 0, t.Y,
		0, 0, 1, t.Z,
		0, 0, 0, 1,
	})}
}

// IdentityPose returns the identity transform.
func IdentityPose() *Pose {
	return NewPoseFromTranslation(Point{})
}

// validate checks the homogeneous last row and that the rotation block is
// not degenerate. Scale components are tolerated (scene maps carry scale).
func (p *Pose) validate() error {
	for j, want := range []float64{0, 0, 0, 1} {
		if math.Abs(p.m.At(3, j)-want) > 1e-9 {
			return fmt.Errorf("pose matrix last row must be [0 0 0 1]")
		}
	}
	det := mat.Det(p.m.Slice(0, 3, 0, 3))
	if math.Abs(det) < 1e-12 {
		return fmt.Errorf("pose rotation block is singular")
	}
	return nil
}

// Apply maps a point through the transform.
func (p *Pose) Apply(pt Point) Point {
	v := mat.NewVecDense(4, []float64{pt.X, pt.Y, pt.Z, 1})
	var out mat.VecDense
	out.MulVec(p.m, v)
	return Point{X: out.AtVec(0), Y: out.AtVec(1), Z: out.AtVec(2)}
}

// Compose returns the transform q applied after p: (p.Compose(q)).Apply(x)
// equals q.Apply(p.Apply(x)).
func (p *Pose) Compose(q *Pose) *Pose {
	var out mat.Dense
	out.Mul(q.m, p.m)
	return &Pose{m: &out}
}

// Translation returns the translation column of the transform.
func (p *Pose) Translation() Point {
	return Point{X: p.m.At(0, 3), Y: p.m.At(1, 3), Z: p.m.At(2, 3)}
}
