// Sceneflow - Multi-Camera Scene Event Pipeline
// Copyright 2026 Parallax Vision
// SPDX-License-Identifier: Apache-2.0
// https://github.com/parallax-vision/sceneflow

// Package scene turns raw per-frame detection payloads into tracked-object
// events: region entry/exit with dwell accounting, tripwire crossings and
// sensor readings, all debounced per entity. One Scene instance owns its
// cameras, regions, tripwires and sensors; ingestion into a single Scene
// is expected to be serialized by the caller, only the externally-fed
// object cache is safe for concurrent feeding.
package scene

import (
	"sync"
	"time"

	"github.com/parallax-vision/sceneflow/internal/geometry"
	"github.com/parallax-vision/sceneflow/internal/logging"
	"github.com/parallax-vision/sceneflow/internal/track"
)

// DebounceDelay is the minimum time between two emitted events for the
// same region or tripwire.
const DebounceDelay = 500 * time.Millisecond

// Intersecter answers volumetric containment for objects whose point
// location misses a region but whose extent may still overlap it.
// Implementations that fail must be treated as "not intersecting".
type Intersecter interface {
	Intersects(obj *track.Object, region *Region) (bool, error)
}

// Options configure a Scene at construction. AnalyticsOnly is an explicit
// per-scene value, not a process-wide mode.
type Options struct {
	// AnalyticsOnly disables local tracking entirely: tracked objects
	// arrive pre-computed through UpdateTrackedObjects and camera frames
	// become no-ops.
	AnalyticsOnly bool

	// Tracking carries the tuning forwarded to the capability on every
	// batch.
	Tracking track.TrackOptions

	// Intersecter is optional; nil disables volumetric checks.
	Intersecter Intersecter

	// Bounds for the externally-fed trail history cache; zero values get
	// the package defaults.
	HistoryCapacity int
	HistoryTTL      time.Duration
}

// Snapshot is the per-frame event output: entities whose membership
// changed ("objects"), whose member count changed ("count"), and sensors
// whose value changed ("value"). Empty slices are omitted entirely.
type Snapshot struct {
	Objects []EntityRef `json:"objects,omitempty"`
	Count   []EntityRef `json:"count,omitempty"`
	Value   []EntityRef `json:"value,omitempty"`
}

// Empty reports whether the snapshot carries no changes.
func (s Snapshot) Empty() bool {
	return len(s.Objects) == 0 && len(s.Count) == 0 && len(s.Value) == 0
}

// merge appends other's emissions onto s.
func (s *Snapshot) merge(other Snapshot) {
	s.Objects = append(s.Objects, other.Objects...)
	s.Count = append(s.Count, other.Count...)
	s.Value = append(s.Value, other.Value...)
}

// EntityRef names one changed entity inside a Snapshot.
type EntityRef struct {
	UID    string `json:"uid"`
	Entity any    `json:"entity"`
}

// Scene is the event engine for one physical space.
type Scene struct {
	Name string
	UID  string

	cameras   map[string]*Camera
	regions   map[string]*Region
	tripwires map[string]*Tripwire
	sensors   map[string]*Region
	children  map[string]Child
	parent    string

	tracker       track.Capability
	tracking      track.TrackOptions
	analyticsOnly bool
	useTracker    bool
	intersecter   Intersecter

	// persist holds per-category attribute defaults merged into every
	// created object.
	persist map[string]map[string]any

	// trackedMu guards trackedCache, the only state written from outside
	// the ingestion flow.
	trackedMu    sync.Mutex
	trackedCache map[string][]TrackedRecord
	history      *historyCache

	// Events is the snapshot of the last processed frame.
	Events Snapshot
}

// New builds a Scene around a tracker capability. In analytics-only mode
// the capability may be nil; it is never invoked.
func New(name string, tracker track.Capability, opts Options) *Scene {
	logging.Info().Str("scene", name).Bool("analytics_only", opts.AnalyticsOnly).Msg("new scene")
	return &Scene{
		Name:          name,
		cameras:       make(map[string]*Camera),
		regions:       make(map[string]*Region),
		tripwires:     make(map[string]*Tripwire),
		sensors:       make(map[string]*Region),
		children:      make(map[string]Child),
		tracker:       tracker,
		tracking:      opts.Tracking,
		analyticsOnly: opts.AnalyticsOnly,
		useTracker:    !opts.AnalyticsOnly && opts.Tracking.UseTracker,
		intersecter:   opts.Intersecter,
		persist:       make(map[string]map[string]any),
		trackedCache:  make(map[string][]TrackedRecord),
		history:       newHistoryCache(opts.HistoryCapacity, opts.HistoryTTL),
	}
}

// CameraConfig is the declarative description of one camera.
type CameraConfig struct {
	UID         string               `json:"uid"`
	Name        string               `json:"name"`
	Transform   [][]float64          `json:"transform,omitempty"`
	FieldOfView [][]float64          `json:"field_of_view,omitempty"`
	Intrinsics  *geometry.Intrinsics `json:"intrinsics,omitempty"`
}

// RegionConfig describes one region or sensor.
type RegionConfig struct {
	UID                 string      `json:"uid"`
	Name                string      `json:"name"`
	Points              [][]float64 `json:"points"`
	SingletonType       string      `json:"singleton_type,omitempty"`
	ComputeIntersection bool        `json:"compute_intersection,omitempty"`
	Height              float64     `json:"height,omitempty"`
}

// TripwireConfig describes one tripwire segment.
type TripwireConfig struct {
	UID    string      `json:"uid"`
	Name   string      `json:"name"`
	Points [][]float64 `json:"points"`
}

// TrackerTuning is the subset of tracking options a scene update may
// change at runtime.
type TrackerTuning struct {
	MaxUnreliableTime         time.Duration `json:"max_unreliable_time"`
	NonMeasurementTimeDynamic time.Duration `json:"non_measurement_time_dynamic"`
	NonMeasurementTimeStatic  time.Duration `json:"non_measurement_time_static"`
}

// Update is one declarative scene description. Applying it reconciles the
// entity maps by set difference: UIDs present are added or updated in
// place, UIDs absent are removed.
type Update struct {
	Name       string `json:"name"`
	UID        string `json:"uid,omitempty"`
	Parent     string `json:"parent,omitempty"`
	UseTracker *bool  `json:"use_tracker,omitempty"`

	Children  []Child          `json:"children,omitempty"`
	Cameras   []CameraConfig   `json:"cameras,omitempty"`
	Regions   []RegionConfig   `json:"regions,omitempty"`
	Tripwires []TripwireConfig `json:"tripwires,omitempty"`
	Sensors   []RegionConfig   `json:"sensors,omitempty"`

	TrackerConfig     *TrackerTuning            `json:"tracker_config,omitempty"`
	PersistAttributes map[string]map[string]any `json:"persist_attributes,omitempty"`
}

// UpdateScene applies a declarative update to the live entity maps.
// Entities that survive keep their membership state and debounce stamps.
func (s *Scene) UpdateScene(update Update) {
	if update.Name != "" {
		s.Name = update.Name
	}
	if update.UID != "" {
		s.UID = update.UID
	}
	s.parent = update.Parent
	if update.UseTracker != nil {
		s.useTracker = *update.UseTracker && !s.analyticsOnly
	}
	if update.PersistAttributes != nil {
		s.persist = update.PersistAttributes
	}

	s.updateChildren(update.Children)
	s.updateCameras(update.Cameras)
	s.updateRegions(s.regions, update.Regions)
	s.updateTripwires(update.Tripwires)
	s.updateRegions(s.sensors, update.Sensors)

	if update.TrackerConfig != nil {
		s.UpdateTracker(*update.TrackerConfig)
	}
}

// UpdateTracker applies tuning changes only when a value actually
// differs, so an unchanged update cannot disturb in-flight tracking.
func (s *Scene) UpdateTracker(t TrackerTuning) {
	cur := s.tracking
	if t.MaxUnreliableTime == cur.MaxUnreliableTime &&
		t.NonMeasurementTimeDynamic == cur.NonMeasurementTimeDynamic &&
		t.NonMeasurementTimeStatic == cur.NonMeasurementTimeStatic {
		return
	}
	logging.Info().Str("scene", s.Name).
		Dur("max_unreliable_time", t.MaxUnreliableTime).
		Dur("non_measurement_time_dynamic", t.NonMeasurementTimeDynamic).
		Dur("non_measurement_time_static", t.NonMeasurementTimeStatic).
		Msg("tracker tuning changed")
	s.tracking.MaxUnreliableTime = t.MaxUnreliableTime
	s.tracking.NonMeasurementTimeDynamic = t.NonMeasurementTimeDynamic
	s.tracking.NonMeasurementTimeStatic = t.NonMeasurementTimeStatic
}

func (s *Scene) updateChildren(children []Child) {
	next := make(map[string]Child, len(children))
	for _, c := range children {
		next[c.Name] = c
	}
	s.children = next
}

func (s *Scene) updateCameras(configs []CameraConfig) {
	seen := make(map[string]bool, len(configs))
	for _, cfg := range configs {
		seen[cfg.UID] = true
		cam := &Camera{UID: cfg.UID, Name: cfg.Name}
		if len(cfg.Transform) > 0 {
			transform, err := geometry.NewPose(cfg.Transform)
			if err != nil {
				logging.Err(err).Str("camera", cfg.UID).Msg("invalid camera transform, camera stays unposed")
			} else {
				cam.Pose = &CameraPose{
					Transform:   transform,
					FieldOfView: polygonFromCoords(cfg.FieldOfView),
					Intrinsics:  cfg.Intrinsics,
				}
			}
		}
		s.cameras[cfg.UID] = cam
	}
	for uid := range s.cameras {
		if !seen[uid] {
			delete(s.cameras, uid)
		}
	}
}

func (s *Scene) updateRegions(existing map[string]*Region, configs []RegionConfig) {
	seen := make(map[string]bool, len(configs))
	for _, cfg := range configs {
		seen[cfg.UID] = true
		if r, ok := existing[cfg.UID]; ok {
			r.apply(cfg)
		} else {
			existing[cfg.UID] = newRegion(cfg)
		}
	}
	for uid := range existing {
		if !seen[uid] {
			delete(existing, uid)
		}
	}
}

func (s *Scene) updateTripwires(configs []TripwireConfig) {
	seen := make(map[string]bool, len(configs))
	for _, cfg := range configs {
		seen[cfg.UID] = true
		if t, ok := s.tripwires[cfg.UID]; ok {
			t.apply(cfg)
		} else {
			s.tripwires[cfg.UID] = newTripwire(cfg)
		}
	}
	for uid := range s.tripwires {
		if !seen[uid] {
			delete(s.tripwires, uid)
		}
	}
}

// Child returns the named sub-scene configuration.
func (s *Scene) Child(name string) (Child, bool) {
	c, ok := s.children[name]
	return c, ok
}

// Camera returns the camera with the given UID.
func (s *Scene) Camera(uid string) (*Camera, bool) {
	c, ok := s.cameras[uid]
	return c, ok
}

// Region returns the region with the given UID.
func (s *Scene) Region(uid string) (*Region, bool) {
	r, ok := s.regions[uid]
	return r, ok
}

// Sensor returns the sensor with the given UID.
func (s *Scene) Sensor(uid string) (*Region, bool) {
	r, ok := s.sensors[uid]
	return r, ok
}

// Tripwire returns the tripwire with the given UID.
func (s *Scene) Tripwire(uid string) (*Tripwire, bool) {
	t, ok := s.tripwires[uid]
	return t, ok
}

// AnalyticsOnly reports whether this scene runs without a local tracker.
func (s *Scene) AnalyticsOnly() bool {
	return s.analyticsOnly
}
