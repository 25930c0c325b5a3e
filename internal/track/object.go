// Sceneflow - Multi-Camera Scene Event Pipeline
// Copyright 2026 Parallax Vision
// SPDX-License-Identifier: Apache-2.0
// https://github.com/parallax-vision/sceneflow

package track

import (
	"time"

	"github.com/parallax-vision/sceneflow/internal/geometry"
)

// SensorReading is one timestamped value attached to an object while it
// was associated with a sensor region. The timestamp is an RFC3339 string
// because readings travel verbatim into published events.
type SensorReading struct {
	When  string `json:"when"`
	Value any    `json:"value"`
}

// RegionStay records when an object entered a region. The entry is removed
// again when the exit event is emitted; dwell time is the difference.
type RegionStay struct {
	Entered string `json:"entered"`
}

// ChainData is the per-object side-channel state the scene engine owns:
// region membership, sensor history, opaque per-category carry-over
// attributes, and the location trail used for tripwire geometry.
type ChainData struct {
	Regions map[string]RegionStay      `json:"regions"`
	Sensors map[string][]SensorReading `json:"sensors"`
	Persist map[string]any             `json:"persistent_data,omitempty"`

	// Trail holds prior published locations, most recent first.
	Trail []geometry.Point `json:"-"`
}

// NewChainData returns an initialized ChainData with the given persist
// defaults copied in.
func NewChainData(persist map[string]any) ChainData {
	cd := ChainData{
		Regions: make(map[string]RegionStay),
		Sensors: make(map[string][]SensorReading),
		Persist: make(map[string]any, len(persist)),
	}
	for k, v := range persist {
		cd.Persist[k] = v
	}
	return cd
}

// Object is one tracked entity for one frame. Instances are produced and
// retired by the tracker capability; the scene engine only mutates the
// ChainData fields it owns (trail, regions, sensors).
type Object struct {
	GID      string
	Category string

	SceneLoc geometry.Point
	Velocity *geometry.Point
	Rotation []float64
	Size     []float64

	BoundingBox *geometry.Box
	Confidence  float64
	ReID        []float64

	// FrameCount is the number of frames this object has been tracked.
	// Region and tripwire logic gates on FrameCount > 3 for reliability.
	FrameCount int

	When      time.Time
	FirstSeen time.Time

	// Source identifies the camera or child scene that produced the
	// detection behind this object.
	Source string

	// Visibility lists camera IDs whose field of view currently contains
	// SceneLoc. Recomputed every frame.
	Visibility []string

	// Info carries detection attributes that pass through untouched.
	Info map[string]any

	Chain ChainData
}

// DetectionRecord is one decoded detection from an ingest payload.
type DetectionRecord struct {
	ID         string  `json:"id,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`

	// Exactly one of Translation/LatLongAlt may be present on
	// hierarchical payloads; camera payloads carry bounding boxes.
	Translation []float64 `json:"translation,omitempty"`
	LatLongAlt  []float64 `json:"lat_long_alt,omitempty"`

	BoundingBox   *geometry.Box `json:"bounding_box,omitempty"`
	BoundingBoxPx *geometry.Box `json:"bounding_box_px,omitempty"`

	// ReID is stripped at scene hierarchy boundaries; the tracker does
	// not support re-identification across them.
	ReID []float64 `json:"reid,omitempty"`

	SubDetections map[string][]DetectionRecord `json:"sub_detections,omitempty"`

	Attributes map[string]any `json:"attributes,omitempty"`
}
