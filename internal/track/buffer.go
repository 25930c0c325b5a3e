// Sceneflow - Multi-Camera Scene Event Pipeline
// Copyright 2026 Parallax Vision
// SPDX-License-Identifier: Apache-2.0
// https://github.com/parallax-vision/sceneflow

package track

import (
	"sync"
	"time"

	"github.com/parallax-vision/sceneflow/internal/metrics"
)

// ChunkEntry is the buffered payload for one (category, source) pair.
type ChunkEntry struct {
	Objects        []*Object
	When           time.Time
	AlreadyTracked []*Object
}

// TimeChunkBuffer coalesces bursty multi-source input into a latest-only
// snapshot per (category, source). Add overwrites, DrainAll hands the whole
// map to the caller atomically. All operations hold one short mutex; no
// lock is ever held across a tracker call.
type TimeChunkBuffer struct {
	mu   sync.Mutex
	data map[string]map[string]ChunkEntry // category -> source -> entry
	size int
}

// NewTimeChunkBuffer returns an empty buffer.
func NewTimeChunkBuffer() *TimeChunkBuffer {
	return &TimeChunkBuffer{
		data: make(map[string]map[string]ChunkEntry),
	}
}

// Add stores the latest frame for (category, source), silently replacing
// any unprocessed previous frame. O(1).
func (b *TimeChunkBuffer) Add(source, category string, objects []*Object, when time.Time, already []*Object) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sources, ok := b.data[category]
	if !ok {
		sources = make(map[string]ChunkEntry)
		b.data[category] = sources
	}
	if _, exists := sources[source]; !exists {
		b.size++
		metrics.ChunkBufferEntries.Inc()
	}
	sources[source] = ChunkEntry{Objects: objects, When: when, AlreadyTracked: already}
}

// DrainAll atomically snapshots and clears the buffer. The returned map is
// exclusively owned by the caller.
func (b *TimeChunkBuffer) DrainAll() map[string]map[string]ChunkEntry {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := b.data
	b.data = make(map[string]map[string]ChunkEntry)
	metrics.ChunkBufferEntries.Sub(float64(b.size))
	b.size = 0
	return out
}

// Len returns the number of buffered (category, source) entries.
func (b *TimeChunkBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}
