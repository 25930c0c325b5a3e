// Sceneflow - Multi-Camera Scene Event Pipeline
// Copyright 2026 Parallax Vision
// SPDX-License-Identifier: Apache-2.0
// https://github.com/parallax-vision/sceneflow

package track

import (
	"context"
	"time"

	"github.com/parallax-vision/sceneflow/internal/logging"
)

// ChunkedTracker is the time-chunked tracker arrangement. It satisfies
// Capability by buffering TrackObjects calls instead of executing them:
// the fixed-rate processor later drains the buffer and feeds the
// per-category inner capabilities through their workers.
//
// It wraps the inner capabilities by composition; reads (CreateObject,
// CurrentObjects) delegate straight through to the category's inner
// capability.
type ChunkedTracker struct {
	buffer    *TimeChunkBuffer
	registry  *Registry
	processor *TimeChunkProcessor
}

// NewChunkedTracker builds the chunked arrangement around a per-category
// capability factory and a dispatch rate in fps.
func NewChunkedTracker(factory Factory, rateFPS int, opts TrackOptions) *ChunkedTracker {
	buffer := NewTimeChunkBuffer()
	registry := NewRegistry(factory)
	return &ChunkedTracker{
		buffer:    buffer,
		registry:  registry,
		processor: NewTimeChunkProcessor(buffer, registry, rateFPS, opts),
	}
}

// CreateObject delegates to the category's inner capability, creating it
// (and its worker) on first use.
func (c *ChunkedTracker) CreateObject(category string, det DetectionRecord, when time.Time, source string, persist map[string]any) *Object {
	inner, err := c.registry.Capability(category)
	if err != nil {
		logging.Err(err).Str("category", category).Msg("create object after shutdown")
		return nil
	}
	return inner.CreateObject(category, det, when, source, persist)
}

// TrackObjects buffers the frame for the processor instead of tracking
// synchronously. The source is taken from the first fresh object; frames
// without a resolvable source cannot be coalesced and are skipped.
func (c *ChunkedTracker) TrackObjects(fresh []*Object, already []*Object, when time.Time, categories []string, opts TrackOptions) error {
	if !opts.UseTracker {
		return ErrChunkedRequiresTracker
	}
	if len(fresh) == 0 && len(already) == 0 {
		return nil
	}
	c.processor.SetOptions(opts)

	source := ""
	if len(fresh) > 0 {
		source = fresh[0].Source
	} else {
		source = already[0].Source
	}
	if source == "" {
		logging.Warn().Msg("no source id on objects, skipping time chunking")
		return nil
	}

	for _, category := range categories {
		if _, err := c.registry.ensure(category); err != nil {
			return err
		}
		c.buffer.Add(source, category, fresh, when, already)
	}
	return nil
}

// CurrentObjects returns the live set from the category's inner
// capability. Categories never seen return nil.
func (c *ChunkedTracker) CurrentObjects(category string) []*Object {
	w, ok := c.registry.lookup(category)
	if !ok {
		return nil
	}
	return w.capability.CurrentObjects(category)
}

// Serve runs the dispatch loop until ctx is canceled, then shuts down the
// workers. The processor stops before any worker so nothing can enqueue
// after shutdown; buffered-but-undispatched frames are discarded.
func (c *ChunkedTracker) Serve(ctx context.Context) error {
	err := c.processor.Serve(ctx)
	c.registry.Close()
	return err
}

// String implements fmt.Stringer for supervisor logging.
func (c *ChunkedTracker) String() string {
	return "chunked-tracker"
}

// Buffer exposes the underlying buffer for tests and diagnostics.
func (c *ChunkedTracker) Buffer() *TimeChunkBuffer {
	return c.buffer
}

// Dispatch runs one processor cycle synchronously. Test hook.
func (c *ChunkedTracker) Dispatch() {
	c.processor.Dispatch()
}
