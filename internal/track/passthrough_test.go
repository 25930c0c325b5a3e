// Sceneflow - Multi-Camera Scene Event Pipeline
// Copyright 2026 Parallax Vision
// SPDX-License-Identifier: Apache-2.0
// https://github.com/parallax-vision/sceneflow

package track

import (
	"testing"
	"time"
)

func TestPassthroughCreateObject(t *testing.T) {
	p := NewPassthrough()
	when := time.Now()

	det := DetectionRecord{
		ID:          "det42",
		Confidence:  0.87,
		Translation: []float64{1, 2, 0},
		Attributes:  map[string]any{"color": "red"},
	}
	obj := p.CreateObject("vehicle", det, when, "camera3", map[string]any{"lane": 2})

	if obj.GID != "det42" {
		t.Errorf("GID = %q, want the detection id", obj.GID)
	}
	if obj.Category != "vehicle" || obj.Source != "camera3" {
		t.Errorf("category/source = %q/%q", obj.Category, obj.Source)
	}
	if obj.SceneLoc.X != 1 || obj.SceneLoc.Y != 2 {
		t.Errorf("SceneLoc = %+v, want translation applied", obj.SceneLoc)
	}
	if obj.Chain.Persist["lane"] != 2 {
		t.Error("persist defaults not copied into chain data")
	}
	if obj.Info["color"] != "red" {
		t.Error("detection attributes not carried on Info")
	}

	anon := p.CreateObject("vehicle", DetectionRecord{}, when, "camera3", nil)
	if anon.GID == "" || anon.GID == obj.GID {
		t.Error("detections without an id should get a fresh unique GID")
	}
}

func TestPassthroughReplacesCurrentSet(t *testing.T) {
	p := NewPassthrough()
	opts := TrackOptions{}
	now := time.Now()

	first := []*Object{
		{GID: "a", Category: "person"},
		{GID: "b", Category: "person"},
	}
	if err := p.TrackObjects(first, nil, now, []string{"person"}, opts); err != nil {
		t.Fatal(err)
	}
	if got := len(p.CurrentObjects("person")); got != 2 {
		t.Fatalf("current set = %d objects, want 2", got)
	}

	second := []*Object{{GID: "b", Category: "person"}}
	if err := p.TrackObjects(second, nil, now.Add(time.Second), []string{"person"}, opts); err != nil {
		t.Fatal(err)
	}
	current := p.CurrentObjects("person")
	if len(current) != 1 || current[0].GID != "b" {
		t.Errorf("current set after second frame = %v, want only b", gids(current))
	}
}

func TestPassthroughContinuityOnStableIDs(t *testing.T) {
	p := NewPassthrough()
	opts := TrackOptions{}
	t0 := time.Now()

	obj1 := &Object{GID: "a", Category: "person", FrameCount: 1, FirstSeen: t0}
	obj1.Chain = NewChainData(nil)
	obj1.Chain.Regions["lobby"] = RegionStay{Entered: t0.Format(time.RFC3339)}
	if err := p.TrackObjects([]*Object{obj1}, nil, t0, []string{"person"}, opts); err != nil {
		t.Fatal(err)
	}

	obj2 := &Object{GID: "a", Category: "person", FrameCount: 1, FirstSeen: t0.Add(time.Second)}
	obj2.Chain = NewChainData(nil)
	if err := p.TrackObjects([]*Object{obj2}, nil, t0.Add(time.Second), []string{"person"}, opts); err != nil {
		t.Fatal(err)
	}

	current := p.CurrentObjects("person")
	if len(current) != 1 {
		t.Fatalf("current set = %d objects, want 1", len(current))
	}
	got := current[0]
	if got.FrameCount != 2 {
		t.Errorf("FrameCount = %d, want 2 after re-seen GID", got.FrameCount)
	}
	if !got.FirstSeen.Equal(t0) {
		t.Errorf("FirstSeen = %v, want original sighting time", got.FirstSeen)
	}
	if _, ok := got.Chain.Regions["lobby"]; !ok {
		t.Error("chain state lost across frames despite stable GID")
	}
	if !got.When.Equal(t0.Add(time.Second)) {
		t.Errorf("When = %v, want the latest frame time", got.When)
	}
}

func TestPassthroughAdoptsAlreadyTracked(t *testing.T) {
	p := NewPassthrough()
	now := time.Now()

	already := []*Object{{GID: "child1", Category: "person", FrameCount: 7}}
	if err := p.TrackObjects(nil, already, now, []string{"person"}, TrackOptions{}); err != nil {
		t.Fatal(err)
	}
	current := p.CurrentObjects("person")
	if len(current) != 1 || current[0].FrameCount != 7 {
		t.Error("objects tracked upstream should be adopted with their state intact")
	}
}

func TestPassthroughIgnoresUnlistedCategories(t *testing.T) {
	p := NewPassthrough()
	now := time.Now()

	mixed := []*Object{
		{GID: "a", Category: "person"},
		{GID: "b", Category: "vehicle"},
	}
	if err := p.TrackObjects(mixed, nil, now, []string{"person"}, TrackOptions{}); err != nil {
		t.Fatal(err)
	}
	if got := len(p.CurrentObjects("person")); got != 1 {
		t.Errorf("person set = %d, want 1", got)
	}
	if got := len(p.CurrentObjects("vehicle")); got != 0 {
		t.Errorf("vehicle set = %d, want 0 (category not in this call)", got)
	}
}
