// Sceneflow - Multi-Camera Scene Event Pipeline
// Copyright 2026 Parallax Vision
// SPDX-License-Identifier: Apache-2.0
// https://github.com/parallax-vision/sceneflow

package track

import (
	"sync"
	"testing"
	"time"
)

// blockingCapability parks TrackObjects until released, so tests can pin
// a worker in the busy state.
type blockingCapability struct {
	mu      sync.Mutex
	calls   [][]*Object
	started chan struct{}
	release chan struct{}
}

func newBlockingCapability() *blockingCapability {
	return &blockingCapability{
		started: make(chan struct{}, 8),
		release: make(chan struct{}),
	}
}

func (c *blockingCapability) CreateObject(category string, det DetectionRecord, when time.Time, source string, persist map[string]any) *Object {
	return &Object{GID: det.ID, Category: category, When: when, Source: source}
}

func (c *blockingCapability) TrackObjects(fresh []*Object, already []*Object, when time.Time, categories []string, opts TrackOptions) error {
	c.started <- struct{}{}
	<-c.release
	c.mu.Lock()
	c.calls = append(c.calls, fresh)
	c.mu.Unlock()
	return nil
}

func (c *blockingCapability) CurrentObjects(string) []*Object { return nil }

// batchCapability records whole batches via the grouped call.
type batchCapability struct {
	blockingCapability
	batches []Batch
}

func (c *batchCapability) TrackBatch(category string, batch Batch) error {
	c.mu.Lock()
	c.batches = append(c.batches, batch)
	c.mu.Unlock()
	return nil
}

func TestRegistryLazyWorkerCreation(t *testing.T) {
	created := 0
	r := NewRegistry(func(string) Capability {
		created++
		return NewPassthrough()
	})
	defer r.Close()

	if _, err := r.Capability("person"); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Capability("person"); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Capability("vehicle"); err != nil {
		t.Fatal(err)
	}
	if created != 2 {
		t.Errorf("factory called %d times, want 2 (one per category)", created)
	}
}

func TestRegistryBusyWhileWorking(t *testing.T) {
	cap1 := newBlockingCapability()
	r := NewRegistry(func(string) Capability { return cap1 })

	if r.Busy("person") {
		t.Error("unknown category should not be busy")
	}

	if err := r.Enqueue("person", Batch{ObjectsPerSource: [][]*Object{{{GID: "a"}}}}); err != nil {
		t.Fatal(err)
	}
	<-cap1.started // worker has taken the first batch off the queue

	if r.Busy("person") {
		t.Error("category busy with an empty queue; busy means queued work, not in-flight work")
	}

	// Queue a second batch while the first is still in flight: the slot
	// fills and the category reports busy.
	if err := r.Enqueue("person", Batch{ObjectsPerSource: [][]*Object{{{GID: "b"}}}}); err != nil {
		t.Fatal(err)
	}
	if !r.Busy("person") {
		t.Error("category with queued work should be busy")
	}

	// A third enqueue must fail fast instead of blocking.
	if err := r.Enqueue("person", Batch{}); err == nil {
		t.Error("expected error enqueuing onto a full queue")
	}

	close(cap1.release)
	r.Close()

	cap1.mu.Lock()
	defer cap1.mu.Unlock()
	if len(cap1.calls) != 2 {
		t.Errorf("capability processed %d batches, want 2", len(cap1.calls))
	}
}

func TestWorkerFlattensForPlainCapability(t *testing.T) {
	cap1 := newBlockingCapability()
	close(cap1.release)
	r := NewRegistry(func(string) Capability { return cap1 })

	batch := Batch{
		ObjectsPerSource: [][]*Object{
			{{GID: "a"}, {GID: "b"}},
			{{GID: "c"}},
		},
	}
	if err := r.Enqueue("person", batch); err != nil {
		t.Fatal(err)
	}
	r.Close()

	cap1.mu.Lock()
	defer cap1.mu.Unlock()
	if len(cap1.calls) != 1 {
		t.Fatalf("capability got %d calls, want 1", len(cap1.calls))
	}
	flat := cap1.calls[0]
	if len(flat) != 3 || flat[0].GID != "a" || flat[2].GID != "c" {
		t.Errorf("flattened objects = %v, want groups concatenated in order", gids(flat))
	}
}

func TestWorkerUsesGroupedCallWhenAvailable(t *testing.T) {
	cap1 := &batchCapability{}
	cap1.started = make(chan struct{}, 8)
	cap1.release = make(chan struct{})
	close(cap1.release)
	r := NewRegistry(func(string) Capability { return cap1 })

	batch := Batch{ObjectsPerSource: [][]*Object{{{GID: "a"}}, {{GID: "b"}}}}
	if err := r.Enqueue("person", batch); err != nil {
		t.Fatal(err)
	}
	r.Close()

	cap1.mu.Lock()
	defer cap1.mu.Unlock()
	if len(cap1.batches) != 1 {
		t.Fatalf("grouped call invoked %d times, want 1", len(cap1.batches))
	}
	if len(cap1.calls) != 0 {
		t.Error("flattened path used despite grouped support")
	}
	if len(cap1.batches[0].ObjectsPerSource) != 2 {
		t.Errorf("batch groups = %d, want 2 (grouping preserved)", len(cap1.batches[0].ObjectsPerSource))
	}
}

func TestRegistryRejectsAfterClose(t *testing.T) {
	r := NewRegistry(func(string) Capability { return NewPassthrough() })
	r.Close()

	if err := r.Enqueue("person", Batch{}); err == nil {
		t.Error("expected error enqueuing on a closed registry")
	}
	if _, err := r.Capability("person"); err == nil {
		t.Error("expected error resolving a capability on a closed registry")
	}
	// Close is idempotent.
	r.Close()
}

func gids(objs []*Object) []string {
	out := make([]string, len(objs))
	for i, o := range objs {
		out[i] = o.GID
	}
	return out
}
