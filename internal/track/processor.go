// Sceneflow - Multi-Camera Scene Event Pipeline
// Copyright 2026 Parallax Vision
// SPDX-License-Identifier: Apache-2.0
// https://github.com/parallax-vision/sceneflow

package track

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/parallax-vision/sceneflow/internal/logging"
	"github.com/parallax-vision/sceneflow/internal/metrics"
)

// Chunking rate bounds in frames per second.
const (
	MinChunkingRateFPS     = 1
	MaxChunkingRateFPS     = 100
	DefaultChunkingRateFPS = 15
)

// Dispatcher is where the processor sends aggregated batches. Implemented
// by Registry; tests substitute their own.
type Dispatcher interface {
	// Busy reports whether the category's consumer has unconsumed work.
	Busy(category string) bool

	// Enqueue hands one aggregated batch to the category's consumer.
	Enqueue(category string, batch Batch) error
}

// TimeChunkProcessor drains the buffer at a fixed rate and forwards one
// aggregated job per category per tick. It never blocks on a busy
// consumer: the category's buffered data for that tick is dropped whole,
// logged, and counted.
type TimeChunkProcessor struct {
	buffer     *TimeChunkBuffer
	dispatcher Dispatcher
	interval   time.Duration

	// mu guards options, which the chunked tracker replaces on every
	// buffered call while Serve dispatches concurrently.
	mu      sync.Mutex
	options TrackOptions
}

// NewTimeChunkProcessor builds a processor draining buffer into dispatcher
// at rateFPS. Rates outside [1,100] are clamped to the default.
func NewTimeChunkProcessor(buffer *TimeChunkBuffer, dispatcher Dispatcher, rateFPS int, opts TrackOptions) *TimeChunkProcessor {
	if rateFPS < MinChunkingRateFPS || rateFPS > MaxChunkingRateFPS {
		logging.Warn().Int("rate_fps", rateFPS).Int("default", DefaultChunkingRateFPS).
			Msg("chunking rate out of range, using default")
		rateFPS = DefaultChunkingRateFPS
	}
	return &TimeChunkProcessor{
		buffer:     buffer,
		dispatcher: dispatcher,
		interval:   time.Second / time.Duration(rateFPS),
		options:    opts,
	}
}

// Interval returns the dispatch period.
func (p *TimeChunkProcessor) Interval() time.Duration {
	return p.interval
}

// SetOptions replaces the tuning applied to batches dispatched from now
// on. Tuning travels by value on every tracking call; the latest call's
// values win for the next batch.
func (p *TimeChunkProcessor) SetOptions(opts TrackOptions) {
	p.mu.Lock()
	p.options = opts
	p.mu.Unlock()
}

// Serve runs the dispatch loop until ctx is canceled. Cancellation is
// observed on the next wake and the loop exits immediately; data still
// buffered at that point is discarded, not flushed.
func (p *TimeChunkProcessor) Serve(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	logging.Info().Dur("interval", p.interval).Msg("time-chunk processor started")
	for {
		select {
		case <-ctx.Done():
			logging.Info().Msg("time-chunk processor exiting")
			return ctx.Err()
		case <-ticker.C:
			p.Dispatch()
		}
	}
}

// String implements fmt.Stringer for supervisor logging.
func (p *TimeChunkProcessor) String() string {
	return fmt.Sprintf("time-chunk-processor@%s", p.interval)
}

// Dispatch performs one drain/aggregate/enqueue cycle. Exported so tests
// can drive ticks deterministically.
func (p *TimeChunkProcessor) Dispatch() {
	p.mu.Lock()
	opts := p.options
	p.mu.Unlock()

	for category, sources := range p.buffer.DrainAll() {
		if len(sources) == 0 {
			continue
		}

		// Backpressure: the category's worker has not finished the
		// previous batch. Drop everything buffered for it this tick.
		if p.dispatcher.Busy(category) {
			logging.Warn().Str("category", category).Int("sources", len(sources)).
				Msg("tracker busy, dropping buffered frames")
			metrics.ChunksDropped.WithLabelValues(category, "tracker_busy").Add(float64(len(sources)))
			continue
		}

		batch := aggregate(sources, opts)
		if err := p.dispatcher.Enqueue(category, batch); err != nil {
			logging.Err(err).Str("category", category).Msg("failed to enqueue batch")
			metrics.ChunksDropped.WithLabelValues(category, "enqueue_failed").Add(float64(len(sources)))
			continue
		}
		metrics.ChunkBatches.WithLabelValues(category).Inc()
	}
}

// aggregate builds one batch from a category's per-source entries: source
// grouping preserved, groups ordered by ascending timestamp, batch
// timestamp is the maximum across sources, already-tracked concatenated.
func aggregate(sources map[string]ChunkEntry, opts TrackOptions) Batch {
	entries := sortedEntries(sources)

	batch := Batch{
		ObjectsPerSource: make([][]*Object, 0, len(entries)),
		Options:          opts,
	}
	for _, e := range entries {
		batch.ObjectsPerSource = append(batch.ObjectsPerSource, e.Objects)
		batch.AlreadyTracked = append(batch.AlreadyTracked, e.AlreadyTracked...)
		if e.When.After(batch.When) {
			batch.When = e.When
		}
	}
	return batch
}
