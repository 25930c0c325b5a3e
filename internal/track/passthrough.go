// Sceneflow - Multi-Camera Scene Event Pipeline
// Copyright 2026 Parallax Vision
// SPDX-License-Identifier: Apache-2.0
// https://github.com/parallax-vision/sceneflow

package track

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/parallax-vision/sceneflow/internal/geometry"
)

// Passthrough is the analytics-only capability: no association, no motion
// model. Every frame wholesale replaces the category's current set with
// the objects handed to it, so downstream region and tripwire logic sees
// exactly what the detector saw. Identity continuity exists only when the
// producer supplies stable detection IDs.
type Passthrough struct {
	mu      sync.Mutex
	current map[string]map[string]*Object // category -> gid -> object
}

// NewPassthrough returns an empty passthrough capability.
func NewPassthrough() *Passthrough {
	return &Passthrough{
		current: make(map[string]map[string]*Object),
	}
}

// CreateObject builds an object directly from the detection. The GID is
// the payload's detection ID when present, otherwise a fresh UUID (which
// makes the object single-frame unless the producer sends stable IDs).
func (p *Passthrough) CreateObject(category string, det DetectionRecord, when time.Time, source string, persist map[string]any) *Object {
	gid := det.ID
	if gid == "" {
		gid = uuid.NewString()
	}

	obj := &Object{
		GID:         gid,
		Category:    category,
		Confidence:  det.Confidence,
		BoundingBox: det.BoundingBox,
		ReID:        det.ReID,
		FrameCount:  1,
		When:        when,
		FirstSeen:   when,
		Source:      source,
		Info:        det.Attributes,
		Chain:       NewChainData(persist),
	}
	if len(det.Translation) >= 2 {
		obj.SceneLoc = geometry.NewPoint(det.Translation)
	}
	return obj
}

// TrackObjects replaces the current set for each category with the
// objects of this frame. Objects re-seen under a previous GID keep their
// first-seen time, accumulated chain state and frame count; everything
// else starts fresh. Objects tracked upstream are adopted verbatim.
func (p *Passthrough) TrackObjects(fresh []*Object, already []*Object, when time.Time, categories []string, opts TrackOptions) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	next := make(map[string]map[string]*Object, len(categories))
	for _, category := range categories {
		next[category] = make(map[string]*Object)
	}

	adopt := func(obj *Object) {
		set, ok := next[obj.Category]
		if !ok {
			return
		}
		if prev, seen := p.current[obj.Category][obj.GID]; seen {
			obj.FrameCount = prev.FrameCount + 1
			obj.FirstSeen = prev.FirstSeen
			obj.Chain = prev.Chain
		}
		obj.When = when
		set[obj.GID] = obj
	}
	for _, obj := range fresh {
		adopt(obj)
	}
	for _, obj := range already {
		adopt(obj)
	}

	for category, set := range next {
		p.current[category] = set
	}
	return nil
}

// CurrentObjects returns the category's live set. Order is unspecified.
func (p *Passthrough) CurrentObjects(category string) []*Object {
	p.mu.Lock()
	defer p.mu.Unlock()

	set := p.current[category]
	out := make([]*Object, 0, len(set))
	for _, obj := range set {
		out = append(out, obj)
	}
	return out
}
