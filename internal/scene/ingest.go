// Sceneflow - Multi-Camera Scene Event Pipeline
// Copyright 2026 Parallax Vision
// SPDX-License-Identifier: Apache-2.0
// https://github.com/parallax-vision/sceneflow

package scene

import (
	"errors"
	"time"

	"github.com/parallax-vision/sceneflow/internal/geometry"
	"github.com/parallax-vision/sceneflow/internal/logging"
	"github.com/parallax-vision/sceneflow/internal/metrics"
	"github.com/parallax-vision/sceneflow/internal/track"
)

// Sentinel errors surfaced to transport adapters that want to distinguish
// routing failures from dropped-but-handled frames.
var (
	ErrUnknownCamera = errors.New("scene: unknown camera")
	ErrUnknownSensor = errors.New("scene: unknown sensor")
)

// CameraFrame is one decoded per-frame detection payload from a camera.
// Objects is keyed by detection category. A non-nil Intrinsics means the
// producer already converted bounding boxes to scene-plane meters.
type CameraFrame struct {
	ID         string                             `json:"id"`
	Timestamp  string                             `json:"timestamp"`
	Objects    map[string][]track.DetectionRecord `json:"objects"`
	Intrinsics []float64                          `json:"intrinsics,omitempty"`
}

// SceneFrame is one decoded payload from a child scene, already in the
// child's coordinate frame.
type SceneFrame struct {
	Timestamp string                  `json:"timestamp"`
	Objects   []track.DetectionRecord `json:"objects"`
}

// SensorFrame is one decoded sensor reading.
type SensorFrame struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Value     any    `json:"value"`
}

// ProcessCameraFrame ingests one camera frame. The return value reports
// whether the frame was handled: false means the caller should treat it
// as undeliverable (unknown camera); true covers both full processing and
// documented no-op discards.
func (s *Scene) ProcessCameraFrame(frame CameraFrame, when time.Time) bool {
	if s.analyticsOnly {
		// Tracking is delegated to an external producer; camera frames
		// are consumed elsewhere.
		return true
	}

	camera, ok := s.cameras[frame.ID]
	if !ok {
		logging.Error().Str("scene", s.Name).Str("camera", frame.ID).Msg("unknown camera")
		metrics.FramesDiscarded.WithLabelValues(s.Name, "unknown_camera").Inc()
		return false
	}
	if camera.Pose == nil {
		logging.Info().Str("scene", s.Name).Str("camera", frame.ID).Msg("discarding frame, camera has no pose")
		metrics.FramesDiscarded.WithLabelValues(s.Name, "no_pose").Inc()
		return true
	}
	metrics.FramesIngested.WithLabelValues(s.Name, "camera").Inc()

	// Event derivation resets the snapshot per category; merge so a
	// multi-category frame surfaces every category's events.
	var events Snapshot
	for category, detections := range frame.Objects {
		if frame.Intrinsics == nil && camera.Pose.Intrinsics != nil {
			convertPixelBoxes(detections, *camera.Pose.Intrinsics)
		}
		objects := s.createObjects(category, detections, when, camera.UID)
		s.finalize(category, when, objects, nil)
		events.merge(s.Events)
	}
	s.Events = events
	return true
}

// convertPixelBoxes converts pixel bounding boxes to scene-plane meters
// for a whole frame, including nested sub-detections, in one batched call.
// One conversion per frame, never one per detection.
func convertPixelBoxes(detections []track.DetectionRecord, intr geometry.Intrinsics) {
	type slot struct {
		det int
		key string // empty for the main box
		sub int
	}

	var boxes []geometry.Box
	var slots []slot
	for i := range detections {
		d := &detections[i]
		if d.BoundingBox == nil && d.BoundingBoxPx != nil {
			boxes = append(boxes, *d.BoundingBoxPx)
			slots = append(slots, slot{det: i})
		}
		for key, subs := range d.SubDetections {
			for j := range subs {
				if subs[j].BoundingBox == nil && subs[j].BoundingBoxPx != nil {
					boxes = append(boxes, *subs[j].BoundingBoxPx)
					slots = append(slots, slot{det: i, key: key, sub: j})
				}
			}
		}
	}
	if len(boxes) == 0 {
		return
	}

	converted := intr.ConvertBoxes(boxes)
	for n, sl := range slots {
		box := converted[n]
		if sl.key == "" {
			detections[sl.det].BoundingBox = &box
		} else {
			detections[sl.det].SubDetections[sl.key][sl.sub].BoundingBox = &box
		}
	}
}

func (s *Scene) createObjects(category string, detections []track.DetectionRecord, when time.Time, source string) []*track.Object {
	objects := make([]*track.Object, 0, len(detections))
	for _, det := range detections {
		obj := s.tracker.CreateObject(category, det, when, source, s.persist[category])
		if obj != nil {
			objects = append(objects, obj)
		}
	}
	return objects
}

// ProcessSceneFrame ingests one frame from a child scene: detections
// arrive in the child's frame and are mapped into this scene via pose.
// Payload objects carrying both lat_long_alt and translation are
// ambiguous; the whole frame is dropped with a warning (returns true, a
// handled no-op).
func (s *Scene) ProcessSceneFrame(frame SceneFrame, child Child, pose *geometry.Pose, category string, when time.Time) bool {
	if s.analyticsOnly {
		logging.Debug().Str("scene", s.Name).Str("child", child.Name).Msg("analytics-only, skipping child scene frame")
		return true
	}

	var fresh, already []*track.Object
	for _, det := range frame.Objects {
		if det.LatLongAlt != nil {
			if det.Translation != nil {
				logging.Warn().Str("scene", s.Name).Str("child", child.Name).
					Msg("detection carries both lat_long_alt and translation, dropping frame")
				metrics.FramesDiscarded.WithLabelValues(s.Name, "ambiguous_location").Inc()
				return true
			}
			ecef := geometry.LLAToECEF(det.LatLongAlt[0], det.LatLongAlt[1], det.LatLongAlt[2])
			det.Translation = ecef.Coords()
			det.LatLongAlt = nil
		}
		if pose != nil && len(det.Translation) >= 3 {
			mapped := pose.Apply(geometry.NewPoint(det.Translation))
			det.Translation = mapped.Coords()
		}

		// The tracker does not support re-identification across scene
		// hierarchy boundaries.
		det.ReID = nil

		obj := s.tracker.CreateObject(category, det, when, child.Name, s.persist[category])
		if obj == nil {
			continue
		}
		if child.Retrack {
			fresh = append(fresh, obj)
		} else {
			already = append(already, obj)
		}
	}
	metrics.FramesIngested.WithLabelValues(s.Name, "child").Inc()

	s.finalize(category, when, fresh, already)
	return true
}

// ProcessSensorFrame ingests one sensor reading. Readings whose timestamp
// does not advance past the sensor's last accepted reading are discarded
// (out-of-order re-delivery), leaving all state untouched.
func (s *Scene) ProcessSensorFrame(frame SensorFrame, when time.Time) bool {
	sensor, ok := s.sensors[frame.ID]
	if !ok {
		logging.Error().Str("scene", s.Name).Str("sensor", frame.ID).Msg("unknown sensor")
		metrics.FramesDiscarded.WithLabelValues(s.Name, "unknown_sensor").Inc()
		return false
	}
	if sensor.HasValue() && !when.After(sensor.LastWhen) {
		logging.Info().Str("scene", s.Name).Str("sensor", frame.ID).Time("when", when).
			Msg("discarding past sensor data")
		metrics.FramesDiscarded.WithLabelValues(s.Name, "stale_sensor").Inc()
		return true
	}
	metrics.FramesIngested.WithLabelValues(s.Name, "sensor").Inc()

	s.Events = Snapshot{Value: []EntityRef{{UID: frame.ID, Entity: sensor}}}
	sensor.LastValue = sensor.Value
	sensor.Value = frame.Value
	sensor.LastWhen = when
	s.attachSensorReading(frame.ID, sensor, nil)
	metrics.EventsEmitted.WithLabelValues(s.Name, "sensor").Inc()
	return true
}

// finalize runs the shared tail of every detection ingest: visibility
// recompute, tracker dispatch, event derivation.
func (s *Scene) finalize(category string, when time.Time, fresh, already []*track.Object) {
	s.updateVisible(fresh)
	if !s.analyticsOnly {
		opts := s.tracking
		opts.UseTracker = s.useTracker
		if err := s.tracker.TrackObjects(fresh, already, when, []string{category}, opts); err != nil {
			logging.Err(err).Str("scene", s.Name).Str("category", category).Msg("tracking failed")
		}
	}
	s.updateEvents(category, when, nil)
}

// updateVisible recomputes, for every candidate, the set of cameras whose
// field of view contains its location. Recomputed every frame, not cached.
func (s *Scene) updateVisible(objects []*track.Object) {
	for _, obj := range objects {
		var vis []string
		for uid, camera := range s.cameras {
			if camera.Pose != nil && camera.Pose.FieldOfView.Contains(obj.SceneLoc) {
				vis = append(vis, uid)
			}
		}
		obj.Visibility = vis
	}
}
