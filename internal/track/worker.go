// Sceneflow - Multi-Camera Scene Event Pipeline
// Copyright 2026 Parallax Vision
// SPDX-License-Identifier: Apache-2.0
// https://github.com/parallax-vision/sceneflow

package track

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/parallax-vision/sceneflow/internal/logging"
	"github.com/parallax-vision/sceneflow/internal/metrics"
)

// Registry owns the per-category inner capabilities and their worker
// goroutines. Workers are created lazily on first sight of a category and
// persist until Close. Each worker consumes its own queue sequentially, so
// at most one batch per category is in flight at any time — the invariant
// the processor's backpressure check relies on.
type Registry struct {
	mu      sync.Mutex
	factory Factory
	workers map[string]*categoryWorker
	closed  bool
}

// NewRegistry builds a registry around the capability factory.
func NewRegistry(factory Factory) *Registry {
	return &Registry{
		factory: factory,
		workers: make(map[string]*categoryWorker),
	}
}

type categoryWorker struct {
	category   string
	capability Capability
	jobs       chan Batch
	done       chan struct{}
}

func newCategoryWorker(category string, capability Capability) *categoryWorker {
	w := &categoryWorker{
		category:   category,
		capability: capability,
		jobs:       make(chan Batch, 1),
		done:       make(chan struct{}),
	}
	go w.run()
	metrics.TrackerWorkers.Inc()
	return w
}

func (w *categoryWorker) run() {
	defer close(w.done)
	for batch := range w.jobs {
		start := time.Now()
		if err := w.process(batch); err != nil {
			logging.Err(err).Str("category", w.category).Msg("tracker batch failed")
		}
		metrics.TrackerBatchDuration.WithLabelValues(w.category).Observe(time.Since(start).Seconds())
	}
}

// process forwards one batch to the capability, using the grouped call
// when the capability supports it and flattening otherwise.
func (w *categoryWorker) process(batch Batch) error {
	if bt, ok := w.capability.(BatchTracker); ok {
		return bt.TrackBatch(w.category, batch)
	}

	var flat []*Object
	for _, group := range batch.ObjectsPerSource {
		flat = append(flat, group...)
	}
	return w.capability.TrackObjects(flat, batch.AlreadyTracked, batch.When, []string{w.category}, batch.Options)
}

// busy reports whether the worker has unconsumed work queued.
func (w *categoryWorker) busy() bool {
	return len(w.jobs) > 0
}

// ensure returns the worker for a category, creating the capability and
// its goroutine on first use.
func (r *Registry) ensure(category string) (*categoryWorker, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, fmt.Errorf("track: registry closed")
	}
	w, ok := r.workers[category]
	if !ok {
		w = newCategoryWorker(category, r.factory(category))
		r.workers[category] = w
		logging.Info().Str("category", category).Msg("started tracker worker")
	}
	return w, nil
}

// lookup returns the worker for a category if one exists.
func (r *Registry) lookup(category string) (*categoryWorker, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.workers[category]
	return w, ok
}

// Busy reports whether the category's worker has unconsumed work queued.
// Unknown categories are never busy.
func (r *Registry) Busy(category string) bool {
	w, ok := r.lookup(category)
	return ok && w.busy()
}

// Enqueue hands one batch to the category's worker. It never blocks: with
// the processor as the only producer and Busy checked first, the buffered
// slot is always free; a full queue is reported as an error rather than
// waited on.
func (r *Registry) Enqueue(category string, batch Batch) error {
	w, err := r.ensure(category)
	if err != nil {
		return err
	}
	select {
	case w.jobs <- batch:
		return nil
	default:
		return fmt.Errorf("track: worker queue full for category %q", category)
	}
}

// Capability returns the inner capability for a category, creating it and
// its worker on first use.
func (r *Registry) Capability(category string) (Capability, error) {
	w, err := r.ensure(category)
	if err != nil {
		return nil, err
	}
	return w.capability, nil
}

// Close stops all workers and waits for them to drain their in-flight
// batch. The processor feeding this registry must be stopped first so
// nothing enqueues after shutdown.
func (r *Registry) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	workers := make([]*categoryWorker, 0, len(r.workers))
	for _, w := range r.workers {
		workers = append(workers, w)
	}
	r.mu.Unlock()

	for _, w := range workers {
		close(w.jobs)
	}
	for _, w := range workers {
		<-w.done
		metrics.TrackerWorkers.Dec()
	}
}

// sortedEntries flattens a category's per-source entries into a slice
// ordered by ascending timestamp.
func sortedEntries(sources map[string]ChunkEntry) []ChunkEntry {
	entries := make([]ChunkEntry, 0, len(sources))
	for _, e := range sources {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].When.Before(entries[j].When)
	})
	return entries
}
