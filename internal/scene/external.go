// Sceneflow - Multi-Camera Scene Event Pipeline
// Copyright 2026 Parallax Vision
// SPDX-License-Identifier: Apache-2.0
// https://github.com/parallax-vision/sceneflow

package scene

import (
	"time"

	"github.com/parallax-vision/sceneflow/internal/geometry"
	"github.com/parallax-vision/sceneflow/internal/logging"
	"github.com/parallax-vision/sceneflow/internal/metrics"
	"github.com/parallax-vision/sceneflow/internal/track"
)

// TrackedRecord is the generic wire shape of one pre-tracked object as
// published by an external tracker service. Type and Category are
// aliases; producers differ.
type TrackedRecord struct {
	ID       string `json:"id"`
	Type     string `json:"type,omitempty"`
	Category string `json:"category,omitempty"`

	Translation []float64 `json:"translation,omitempty"`
	Velocity    []float64 `json:"velocity,omitempty"`
	Rotation    []float64 `json:"rotation,omitempty"`
	Size        []float64 `json:"size,omitempty"`

	Confidence float64 `json:"confidence,omitempty"`
	FrameCount int     `json:"frame_count,omitempty"`
	FirstSeen  string  `json:"first_seen,omitempty"`

	Visibility   []string `json:"visibility,omitempty"`
	CenterOfMass any      `json:"center_of_mass,omitempty"`

	Regions        map[string]track.RegionStay      `json:"regions,omitempty"`
	Sensors        map[string][]track.SensorReading `json:"sensors,omitempty"`
	PersistentData map[string]any                   `json:"persistent_data,omitempty"`
}

// UpdateTrackedObjects replaces the cached pre-tracked set for one
// category. This is the externally-fed feed and may be called from a
// transport goroutine concurrent with ingestion.
func (s *Scene) UpdateTrackedObjects(category string, records []TrackedRecord) {
	s.trackedMu.Lock()
	s.trackedCache[category] = records
	s.trackedMu.Unlock()
}

// trackedObjects rebuilds lightweight objects from the cached records for
// event derivation. Trail continuity across frames comes from the bounded
// history cache; everything else is taken from the record verbatim.
func (s *Scene) trackedObjects(category string) []*track.Object {
	s.trackedMu.Lock()
	records := s.trackedCache[category]
	s.trackedMu.Unlock()

	objects := make([]*track.Object, 0, len(records))
	for _, rec := range records {
		objects = append(objects, s.deserializeRecord(rec))
	}
	return objects
}

func (s *Scene) deserializeRecord(rec TrackedRecord) *track.Object {
	category := rec.Type
	if category == "" {
		category = rec.Category
	}

	obj := &track.Object{
		GID:        rec.ID,
		Category:   category,
		SceneLoc:   geometry.NewPoint(rec.Translation),
		Rotation:   rec.Rotation,
		Size:       rec.Size,
		Confidence: rec.Confidence,
		ReID:       nil,
		FrameCount: rec.FrameCount,
		Visibility: rec.Visibility,
		Info: map[string]any{
			"category":   category,
			"confidence": rec.Confidence,
		},
	}
	if rec.Velocity != nil {
		v := geometry.NewPoint(rec.Velocity)
		obj.Velocity = &v
	}
	if rec.CenterOfMass != nil {
		obj.Info["center_of_mass"] = rec.CenterOfMass
	}

	if rec.FirstSeen != "" {
		first, err := time.Parse(time.RFC3339Nano, rec.FirstSeen)
		if err != nil {
			logging.Warn().Str("id", rec.ID).Str("first_seen", rec.FirstSeen).
				Msg("unparseable first_seen on tracked record")
		} else {
			obj.FirstSeen = first
			obj.When = first
		}
	} else {
		logging.Warn().Str("id", rec.ID).Msg("tracked record missing first_seen")
	}

	obj.Chain = track.ChainData{
		Regions: rec.Regions,
		Sensors: rec.Sensors,
		Persist: rec.PersistentData,
		Trail:   s.history.trail(rec.ID),
	}
	if obj.Chain.Regions == nil {
		obj.Chain.Regions = make(map[string]track.RegionStay)
	}
	if obj.Chain.Sensors == nil {
		obj.Chain.Sensors = make(map[string][]track.SensorReading)
	}
	s.history.touch(rec.ID, obj.Chain.Trail, obj.SceneLoc)

	return obj
}

// ProcessTrackedFrame is the externally-fed counterpart of a camera
// frame: cache the records, then derive events against them.
func (s *Scene) ProcessTrackedFrame(category string, records []TrackedRecord, when time.Time) {
	metrics.FramesIngested.WithLabelValues(s.Name, "tracked").Inc()
	s.UpdateTrackedObjects(category, records)
	s.updateEvents(category, when, nil)
}
