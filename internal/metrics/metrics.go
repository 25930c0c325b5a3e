// Sceneflow - Multi-Camera Scene Event Pipeline
// Copyright 2026 Parallax Vision
// SPDX-License-Identifier: Apache-2.0
// https://github.com/parallax-vision/sceneflow

// Package metrics provides Prometheus instrumentation for the scene event
// pipeline: frame ingestion, event derivation, the time-chunk buffer, and
// per-category tracker dispatch.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Frame ingestion metrics.

	FramesIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scene_frames_ingested_total",
			Help: "Total number of detection/sensor frames accepted by a scene",
		},
		[]string{"scene", "kind"}, // kind: "camera", "child", "sensor", "tracked"
	)

	FramesDiscarded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scene_frames_discarded_total",
			Help: "Total number of frames discarded during ingestion",
		},
		[]string{"scene", "reason"}, // reason: "unknown_camera", "unknown_sensor", "no_pose", "ambiguous_location", "stale_sensor"
	)

	// Event derivation metrics.

	EventsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scene_events_emitted_total",
			Help: "Total number of region/tripwire/sensor event emissions",
		},
		[]string{"scene", "kind"}, // kind: "region", "tripwire", "sensor"
	)

	RegionOccupancy = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "scene_region_occupancy",
			Help: "Objects currently inside a region, by category",
		},
		[]string{"scene", "region", "category"},
	)

	// Time-chunk buffer and processor metrics.

	ChunksDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timechunk_dropped_total",
			Help: "Buffered per-source frames dropped at dispatch time",
		},
		[]string{"category", "reason"}, // reason: "tracker_busy", "enqueue_failed"
	)

	ChunkBatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timechunk_batches_total",
			Help: "Aggregated batches enqueued to per-category trackers",
		},
		[]string{"category"},
	)

	ChunkBufferEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "timechunk_buffer_entries",
			Help: "Entries currently held in the time-chunk buffer",
		},
	)

	// Per-category tracker worker metrics.

	TrackerBatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tracker_batch_duration_seconds",
			Help:    "Wall time spent by a category worker on one tracker batch",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"category"},
	)

	TrackerWorkers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tracker_workers",
			Help: "Per-category tracker workers currently running",
		},
	)

	// Websocket hub metrics.

	HubClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hub_clients",
			Help: "Connected websocket event consumers",
		},
	)

	HubMessagesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hub_messages_dropped_total",
			Help: "Event snapshots dropped because a client send buffer was full",
		},
	)
)
