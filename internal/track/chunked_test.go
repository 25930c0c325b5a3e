// Sceneflow - Multi-Camera Scene Event Pipeline
// Copyright 2026 Parallax Vision
// SPDX-License-Identifier: Apache-2.0
// https://github.com/parallax-vision/sceneflow

package track

import (
	"errors"
	"testing"
	"time"
)

func TestChunkedTrackerRequiresTracker(t *testing.T) {
	ct := NewChunkedTracker(func(string) Capability { return NewPassthrough() }, 15, TrackOptions{UseTracker: false})

	err := ct.TrackObjects([]*Object{{GID: "a", Category: "person", Source: "camera1"}}, nil, time.Now(), []string{"person"}, TrackOptions{UseTracker: false})
	if !errors.Is(err, ErrChunkedRequiresTracker) {
		t.Fatalf("TrackObjects with tracking disabled = %v, want ErrChunkedRequiresTracker", err)
	}
	if got := ct.Buffer().Len(); got != 0 {
		t.Errorf("buffer Len() = %d, want 0 after rejected call", got)
	}
}

func TestChunkedTrackerBuffersInsteadOfTracking(t *testing.T) {
	opts := TrackOptions{UseTracker: true}
	inner := newBlockingCapability()
	close(inner.release)
	ct := NewChunkedTracker(func(string) Capability { return inner }, 15, opts)

	fresh := []*Object{{GID: "a", Category: "person", Source: "camera1"}}
	if err := ct.TrackObjects(fresh, nil, time.Now(), []string{"person"}, opts); err != nil {
		t.Fatal(err)
	}

	inner.mu.Lock()
	calls := len(inner.calls)
	inner.mu.Unlock()
	if calls != 0 {
		t.Errorf("inner capability tracked %d times before dispatch, want 0", calls)
	}
	if got := ct.Buffer().Len(); got != 1 {
		t.Errorf("buffer Len() = %d, want 1", got)
	}

	ct.Dispatch()
	ct.registry.Close()

	inner.mu.Lock()
	defer inner.mu.Unlock()
	if len(inner.calls) != 1 {
		t.Fatalf("inner capability tracked %d times after dispatch, want 1", len(inner.calls))
	}
	if inner.calls[0][0].GID != "a" {
		t.Error("dispatched batch does not carry the buffered objects")
	}
}

func TestChunkedTrackerSkipsSourcelessFrames(t *testing.T) {
	opts := TrackOptions{UseTracker: true}
	ct := NewChunkedTracker(func(string) Capability { return NewPassthrough() }, 15, opts)
	defer ct.registry.Close()

	if err := ct.TrackObjects([]*Object{{GID: "a", Category: "person"}}, nil, time.Now(), []string{"person"}, opts); err != nil {
		t.Fatal(err)
	}
	if got := ct.Buffer().Len(); got != 0 {
		t.Errorf("buffer Len() = %d, want 0 for a frame without a source id", got)
	}

	// Empty frames are a no-op, not an error.
	if err := ct.TrackObjects(nil, nil, time.Now(), []string{"person"}, opts); err != nil {
		t.Fatal(err)
	}
}

func TestChunkedTrackerBuffersPerCategory(t *testing.T) {
	opts := TrackOptions{UseTracker: true}
	ct := NewChunkedTracker(func(string) Capability { return NewPassthrough() }, 15, opts)
	defer ct.registry.Close()

	fresh := []*Object{{GID: "a", Category: "person", Source: "camera1"}}
	if err := ct.TrackObjects(fresh, nil, time.Now(), []string{"person", "vehicle"}, opts); err != nil {
		t.Fatal(err)
	}
	if got := ct.Buffer().Len(); got != 2 {
		t.Errorf("buffer Len() = %d, want 2 (one entry per category)", got)
	}
}

func TestChunkedTrackerDispatchesLatestTuning(t *testing.T) {
	initial := TrackOptions{UseTracker: true, MaxUnreliableTime: time.Second}
	inner := &batchCapability{}
	inner.started = make(chan struct{}, 8)
	inner.release = make(chan struct{})
	close(inner.release)
	ct := NewChunkedTracker(func(string) Capability { return inner }, 15, initial)

	updated := initial
	updated.MaxUnreliableTime = 9 * time.Second
	fresh := []*Object{{GID: "a", Category: "person", Source: "camera1"}}
	if err := ct.TrackObjects(fresh, nil, time.Now(), []string{"person"}, updated); err != nil {
		t.Fatal(err)
	}

	ct.Dispatch()
	ct.registry.Close()

	inner.mu.Lock()
	defer inner.mu.Unlock()
	if len(inner.batches) != 1 {
		t.Fatalf("inner capability got %d batches, want 1", len(inner.batches))
	}
	if got := inner.batches[0].Options.MaxUnreliableTime; got != 9*time.Second {
		t.Errorf("batch MaxUnreliableTime = %v, want the tuning from the latest call, not construction time", got)
	}
}

func TestChunkedTrackerDelegatesReads(t *testing.T) {
	opts := TrackOptions{UseTracker: true}
	ct := NewChunkedTracker(func(string) Capability { return NewPassthrough() }, 15, opts)
	defer ct.registry.Close()

	if got := ct.CurrentObjects("person"); got != nil {
		t.Errorf("CurrentObjects for unseen category = %v, want nil", got)
	}

	when := time.Now()
	obj := ct.CreateObject("person", DetectionRecord{ID: "det1", Confidence: 0.9}, when, "camera1", map[string]any{"zone": "lobby"})
	if obj == nil || obj.GID != "det1" {
		t.Fatalf("CreateObject = %+v, want object with detection id as GID", obj)
	}
	if obj.Chain.Persist["zone"] != "lobby" {
		t.Error("persist defaults not merged into the new object")
	}

	// The category now has a worker; reads reach the inner capability.
	if got := ct.CurrentObjects("person"); len(got) != 0 {
		t.Errorf("CurrentObjects before any tracking = %d objects, want 0", len(got))
	}
}
