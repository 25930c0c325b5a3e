// Sceneflow - Multi-Camera Scene Event Pipeline
// Copyright 2026 Parallax Vision
// SPDX-License-Identifier: Apache-2.0
// https://github.com/parallax-vision/sceneflow

package track

import (
	"errors"
	"time"
)

// ErrChunkedRequiresTracker is returned when the time-chunked arrangement
// is asked to run with tracking disabled; the chunked path exists only to
// rate-limit a real tracker.
var ErrChunkedRequiresTracker = errors.New("track: time chunking requires tracking to be enabled")

// TrackOptions are forwarded to the capability on every batch.
type TrackOptions struct {
	// FrameRate is the reference camera frame rate in fps.
	FrameRate float64

	// MaxUnreliableTime bounds how long a track may stay unconfirmed.
	MaxUnreliableTime time.Duration

	// NonMeasurementTimeDynamic bounds coasting for moving objects.
	NonMeasurementTimeDynamic time.Duration

	// NonMeasurementTimeStatic bounds coasting for stationary objects.
	NonMeasurementTimeStatic time.Duration

	// UseTracker false bypasses association entirely: fresh objects are
	// adopted as-is. Region logic then skips the FrameCount gate.
	UseTracker bool
}

// Capability is the narrow contract to the tracking implementation.
// One logical instance serves one detection category set; implementations
// must be safe for calls from the ingestion goroutine and a category
// worker goroutine.
type Capability interface {
	// CreateObject builds a tracked-object candidate from one raw
	// detection, merging the per-category persist defaults.
	CreateObject(category string, det DetectionRecord, when time.Time, source string, persist map[string]any) *Object

	// TrackObjects ingests fresh candidates plus objects already tracked
	// upstream and updates the current set for the given categories.
	TrackObjects(fresh []*Object, already []*Object, when time.Time, categories []string, opts TrackOptions) error

	// CurrentObjects returns the live tracked set for a category.
	CurrentObjects(category string) []*Object
}

// Batch is one aggregated unit of work for a category worker: per-source
// object groups sorted by ascending source timestamp, the maximum
// timestamp across sources, and the concatenated already-tracked objects.
type Batch struct {
	ObjectsPerSource [][]*Object
	When             time.Time
	AlreadyTracked   []*Object
	Options          TrackOptions
}

// BatchTracker is an optional upgrade interface: capabilities that
// understand source grouping receive the whole Batch in one call.
// Capabilities without it get the groups flattened in timestamp order.
type BatchTracker interface {
	TrackBatch(category string, batch Batch) error
}

// Factory builds the inner capability for one category. The chunked
// arrangement calls it lazily on first sight of a category.
type Factory func(category string) Capability

// Verify at compile time that the provided arrangements satisfy Capability.
var (
	_ Capability = (*Passthrough)(nil)
	_ Capability = (*ChunkedTracker)(nil)
)
