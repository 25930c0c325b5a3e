// Sceneflow - Multi-Camera Scene Event Pipeline
// Copyright 2026 Parallax Vision
// SPDX-License-Identifier: Apache-2.0
// https://github.com/parallax-vision/sceneflow

// Package track defines the tracker capability contract and the
// time-chunked dispatch layer in front of it.
//
// The tracker algorithm itself is a black box reached through the
// Capability interface. Two arrangements are supported:
//
//   - Direct: the scene calls Capability.TrackObjects synchronously on
//     every ingested frame.
//   - Time-chunked: ChunkedTracker buffers only the most recent frame per
//     (category, source) pair and a fixed-rate processor drains the buffer,
//     aggregates per category across sources, and hands one batch per tick
//     to that category's dedicated worker goroutine. When a worker still
//     has unconsumed work at drain time the whole category's buffered data
//     is dropped for that tick — the dispatcher never blocks and queues
//     never grow.
//
// ChunkedTracker wraps per-category inner capabilities by composition; it
// implements the same Capability contract the direct arrangement uses.
package track
