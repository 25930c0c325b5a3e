// Sceneflow - Multi-Camera Scene Event Pipeline
// Copyright 2026 Parallax Vision
// SPDX-License-Identifier: Apache-2.0
// https://github.com/parallax-vision/sceneflow

package scene

import (
	"time"

	"github.com/parallax-vision/sceneflow/internal/geometry"
	"github.com/parallax-vision/sceneflow/internal/track"
)

// SingletonTypeEnvironmental marks sensor regions whose latest reading is
// attached to every object entering them.
const SingletonTypeEnvironmental = "environmental"

// CameraPose is a camera's resolved placement in the scene: the transform
// from camera frame to scene frame, the ground-plane field of view, and
// the intrinsics used for pixel-to-meter box conversion.
type CameraPose struct {
	Transform   *geometry.Pose
	FieldOfView geometry.Polygon
	Intrinsics  *geometry.Intrinsics
}

// Camera is one detection source. Pose is nil until calibration resolves
// it; frames from an unposed camera are discarded.
type Camera struct {
	UID  string
	Name string
	Pose *CameraPose
}

// RegionExit pairs an exited object with the time it spent inside.
type RegionExit struct {
	Object *track.Object
	Dwell  time.Duration
}

// Region is a polygonal area of interest. Sensors reuse the same type:
// a sensor is a region with a value stream attached. Objects, Entered and
// Exited hold the state of the last emitted event per category; When is
// the debounce stamp.
type Region struct {
	UID  string
	Name string

	Points              geometry.Polygon
	SingletonType       string
	ComputeIntersection bool
	Height              float64

	Objects map[string][]*track.Object
	Entered map[string][]*track.Object
	Exited  map[string][]RegionExit
	When    time.Time

	// Sensor state. LastWhen zero means no reading has arrived yet.
	Value     any
	LastValue any
	LastWhen  time.Time
}

func newRegion(cfg RegionConfig) *Region {
	r := &Region{
		Objects: make(map[string][]*track.Object),
		Entered: make(map[string][]*track.Object),
		Exited:  make(map[string][]RegionExit),
	}
	r.apply(cfg)
	return r
}

// apply refreshes the declarative fields, leaving membership state and the
// sensor value stream untouched.
func (r *Region) apply(cfg RegionConfig) {
	r.UID = cfg.UID
	r.Name = cfg.Name
	r.Points = polygonFromCoords(cfg.Points)
	r.SingletonType = cfg.SingletonType
	r.ComputeIntersection = cfg.ComputeIntersection
	r.Height = cfg.Height
}

// HasValue reports whether the sensor has ever received a reading.
func (r *Region) HasValue() bool {
	return !r.LastWhen.IsZero()
}

// Contains reports whether a scene location lies inside the region.
func (r *Region) Contains(pt geometry.Point) bool {
	return r.Points.Contains(pt)
}

// Tripwire is a directed line segment; crossing it in either direction
// produces an event. Objects holds the crossing events of the last
// emission per category, When the debounce stamp.
type Tripwire struct {
	UID  string
	Name string

	Segment geometry.Line

	Objects map[string][]TripwireEvent
	When    time.Time
}

func newTripwire(cfg TripwireConfig) *Tripwire {
	t := &Tripwire{
		Objects: make(map[string][]TripwireEvent),
	}
	t.apply(cfg)
	return t
}

func (t *Tripwire) apply(cfg TripwireConfig) {
	t.UID = cfg.UID
	t.Name = cfg.Name
	if len(cfg.Points) >= 2 {
		t.Segment = geometry.Line{
			A: geometry.NewPoint(cfg.Points[0]),
			B: geometry.NewPoint(cfg.Points[1]),
		}
	}
}

// TripwireEvent is one crossing: the object and the signed direction
// relative to the segment. It lives only within one derivation pass.
type TripwireEvent struct {
	Object    *track.Object
	Direction int
}

// Child is a sub-scene feeding tracked or to-be-retracked objects into
// this scene. Retrack objects go through this scene's tracker; others
// bypass it as already tracked.
type Child struct {
	Name    string `json:"name"`
	Retrack bool   `json:"retrack"`
}

func polygonFromCoords(coords [][]float64) geometry.Polygon {
	pg := make(geometry.Polygon, 0, len(coords))
	for _, c := range coords {
		pg = append(pg, geometry.NewPoint(c))
	}
	return pg
}
