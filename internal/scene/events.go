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

// updateEvents derives region, sensor-region and tripwire events for one
// category against the tracker's current object set. cur may be supplied
// by the caller (tests); nil reads it from the tracker or, in
// externally-fed mode, the record cache.
func (s *Scene) updateEvents(category string, now time.Time, cur []*track.Object) {
	s.Events = Snapshot{}
	nowStr := now.UTC().Format(time.RFC3339Nano)

	if cur == nil {
		if s.analyticsOnly {
			cur = s.trackedObjects(category)
		} else if s.tracker != nil {
			cur = s.tracker.CurrentObjects(category)
		}
	}

	// Push the current location onto each object's trail; tripwire
	// geometry runs over the two most recent entries.
	for _, obj := range cur {
		obj.Chain.Trail = append([]geometry.Point{obj.SceneLoc}, obj.Chain.Trail...)
		if s.analyticsOnly {
			s.history.touch(obj.GID, obj.Chain.Trail, obj.SceneLoc)
		}
	}

	s.updateRegionEvents(category, s.regions, now, nowStr, cur)
	s.updateRegionEvents(category, s.sensors, now, nowStr, cur)
	s.updateTripwireEvents(category, now, cur)
}

// updateRegionEvents diffs each region's current membership against the
// set stored at its last emission. The stored set, the entered timestamp
// bookkeeping and the debounce stamp advance only when an emission
// actually fires; deltas held back by the debounce window are re-derived
// next frame against the unchanged baseline.
func (s *Scene) updateRegionEvents(category string, regions map[string]*Region, now time.Time, nowStr string, cur []*track.Object) {
	for uid, region := range regions {
		previous := region.Objects[category]

		var members []*track.Object
		for _, obj := range cur {
			// Objects are reliable after a few tracked frames; with
			// tracking disabled every detection counts.
			if (obj.FrameCount > 3 || !s.useTracker) &&
				(region.Contains(obj.SceneLoc) || s.intersects(obj, region)) {
				members = append(members, obj)
			}
		}

		curSet := gidSet(members)
		prevSet := gidSet(previous)
		entered := diff(curSet, prevSet)
		exited := diff(prevSet, curSet)

		for _, obj := range members {
			if !entered[obj.GID] {
				continue
			}
			if _, ok := obj.Chain.Regions[uid]; !ok {
				obj.Chain.Regions[uid] = track.RegionStay{Entered: nowStr}
			}
		}

		// Environmental sensors stamp their latest reading onto every
		// newly entered object.
		if region.HasValue() && region.SingletonType == SingletonTypeEnvironmental {
			var newMembers []*track.Object
			for _, obj := range members {
				if entered[obj.GID] {
					obj.Chain.Sensors[uid] = nil
					newMembers = append(newMembers, obj)
				}
			}
			s.attachSensorReading(uid, region, newMembers)
		}

		if len(entered) == 0 && len(exited) == 0 {
			continue
		}
		if now.Sub(region.When) <= DebounceDelay {
			continue
		}

		enteredObjs := make([]*track.Object, 0, len(entered))
		for _, obj := range members {
			if _, ok := obj.Chain.Regions[uid]; ok && entered[obj.GID] {
				enteredObjs = append(enteredObjs, obj)
			}
		}
		region.Entered[category] = enteredObjs

		exits := make([]RegionExit, 0, len(exited))
		for _, obj := range previous {
			if !exited[obj.GID] {
				continue
			}
			if stay, ok := obj.Chain.Regions[uid]; ok {
				exits = append(exits, RegionExit{Object: obj, Dwell: dwellSince(stay.Entered, now)})
			}
			delete(obj.Chain.Regions, uid)
		}
		region.Exited[category] = exits

		logging.Debug().Str("scene", s.Name).Str("region", uid).
			Int("entered", len(enteredObjs)).Int("exited", len(exits)).
			Msg("region event")

		region.Objects[category] = members
		region.When = now
		s.Events.Objects = append(s.Events.Objects, EntityRef{UID: uid, Entity: region})
		metrics.EventsEmitted.WithLabelValues(s.Name, "region").Inc()
		if len(curSet) != len(prevSet) {
			s.Events.Count = append(s.Events.Count, EntityRef{UID: uid, Entity: region})
			metrics.RegionOccupancy.WithLabelValues(s.Name, uid, category).Set(float64(len(curSet)))
		}
	}
}

// updateTripwireEvents derives crossings from the two most recent trail
// points of each reliable object. Emission is debounced like regions, on
// a change in the number of crossing objects.
func (s *Scene) updateTripwireEvents(category string, now time.Time, cur []*track.Object) {
	for uid, tripwire := range s.tripwires {
		previous := tripwire.Objects[category]

		var crossings []TripwireEvent
		for _, obj := range cur {
			if obj.FrameCount <= 3 || len(obj.Chain.Trail) < 2 {
				continue
			}
			movement := geometry.Line{A: obj.Chain.Trail[0], B: obj.Chain.Trail[1]}
			if d := tripwire.Segment.Crosses(movement); d != 0 {
				// Direction is reported relative to the tripwire, the
				// negation of the movement's crossing sign.
				crossings = append(crossings, TripwireEvent{Object: obj, Direction: -d})
			}
		}

		if len(previous) == len(crossings) {
			continue
		}
		if now.Sub(tripwire.When) <= DebounceDelay {
			continue
		}

		logging.Debug().Str("scene", s.Name).Str("tripwire", uid).
			Int("crossings", len(crossings)).Msg("tripwire event")
		tripwire.Objects[category] = crossings
		tripwire.When = now
		s.Events.Objects = append(s.Events.Objects, EntityRef{UID: uid, Entity: tripwire})
		metrics.EventsEmitted.WithLabelValues(s.Name, "tripwire").Inc()
	}
}

// attachSensorReading appends the sensor's latest reading to the chain
// data of the given objects (nil means every currently associated
// object). Re-delivery of the same timestamp is a no-op per object.
func (s *Scene) attachSensorReading(uid string, sensor *Region, objects []*track.Object) {
	if !sensor.HasValue() {
		return
	}
	if objects == nil {
		for _, members := range sensor.Objects {
			objects = append(objects, members...)
		}
	}

	ts := sensor.LastWhen.UTC().Format(time.RFC3339Nano)
	for _, obj := range objects {
		readings := obj.Chain.Sensors[uid]
		duplicate := false
		for _, r := range readings {
			if r.When == ts {
				duplicate = true
				break
			}
		}
		if !duplicate {
			obj.Chain.Sensors[uid] = append(readings, track.SensorReading{When: ts, Value: sensor.Value})
		}
	}
}

// intersects runs the optional volumetric check; any failure degrades to
// "not intersecting".
func (s *Scene) intersects(obj *track.Object, region *Region) bool {
	if s.intersecter == nil || !region.ComputeIntersection {
		return false
	}
	ok, err := s.intersecter.Intersects(obj, region)
	if err != nil {
		logging.Info().Err(err).Str("scene", s.Name).Str("region", region.UID).
			Msg("intersection check failed, treating as outside")
		return false
	}
	return ok
}

func gidSet(objects []*track.Object) map[string]bool {
	set := make(map[string]bool, len(objects))
	for _, obj := range objects {
		set[obj.GID] = true
	}
	return set
}

// diff returns the keys of a not present in b.
func diff(a, b map[string]bool) map[string]bool {
	out := make(map[string]bool)
	for k := range a {
		if !b[k] {
			out[k] = true
		}
	}
	return out
}

// dwellSince parses the recorded entry timestamp and returns the elapsed
// stay. An unparseable stamp yields zero dwell rather than an error; the
// exit event still fires.
func dwellSince(entered string, now time.Time) time.Duration {
	t, err := time.Parse(time.RFC3339Nano, entered)
	if err != nil {
		logging.Warn().Str("entered", entered).Msg("unparseable region entry timestamp")
		return 0
	}
	return now.Sub(t)
}
