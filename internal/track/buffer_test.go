// Sceneflow - Multi-Camera Scene Event Pipeline
// Copyright 2026 Parallax Vision
// SPDX-License-Identifier: Apache-2.0
// https://github.com/parallax-vision/sceneflow

package track

import (
	"testing"
	"time"
)

func TestBufferCoalescesSameSource(t *testing.T) {
	b := NewTimeChunkBuffer()
	t0 := time.Now()

	first := []*Object{{GID: "a", Category: "person"}}
	second := []*Object{{GID: "b", Category: "person"}, {GID: "c", Category: "person"}}

	b.Add("camera1", "person", first, t0, nil)
	b.Add("camera1", "person", second, t0.Add(33*time.Millisecond), nil)

	if got := b.Len(); got != 1 {
		t.Fatalf("Len() = %d, want 1 after coalescing", got)
	}

	data := b.DrainAll()
	entry, ok := data["person"]["camera1"]
	if !ok {
		t.Fatal("missing (person, camera1) entry")
	}
	if len(entry.Objects) != 2 || entry.Objects[0].GID != "b" {
		t.Errorf("entry holds %d objects starting %q, want the later frame", len(entry.Objects), entry.Objects[0].GID)
	}
	if !entry.When.Equal(t0.Add(33 * time.Millisecond)) {
		t.Errorf("entry.When = %v, want the later timestamp", entry.When)
	}
}

func TestBufferKeepsDistinctPairs(t *testing.T) {
	b := NewTimeChunkBuffer()
	now := time.Now()

	b.Add("camera1", "person", []*Object{{GID: "a"}}, now, nil)
	b.Add("camera2", "person", []*Object{{GID: "b"}}, now, nil)
	b.Add("camera1", "vehicle", []*Object{{GID: "c"}}, now, nil)

	if got := b.Len(); got != 3 {
		t.Fatalf("Len() = %d, want 3", got)
	}

	data := b.DrainAll()
	if len(data["person"]) != 2 {
		t.Errorf("person sources = %d, want 2", len(data["person"]))
	}
	if len(data["vehicle"]) != 1 {
		t.Errorf("vehicle sources = %d, want 1", len(data["vehicle"]))
	}
}

func TestBufferDrainEmpties(t *testing.T) {
	b := NewTimeChunkBuffer()
	b.Add("camera1", "person", []*Object{{GID: "a"}}, time.Now(), nil)

	if len(b.DrainAll()) != 1 {
		t.Fatal("first drain should return the buffered entry")
	}
	if got := b.Len(); got != 0 {
		t.Errorf("Len() after drain = %d, want 0", got)
	}
	if len(b.DrainAll()) != 0 {
		t.Error("second drain should be empty")
	}
}
