// Sceneflow - Multi-Camera Scene Event Pipeline
// Copyright 2026 Parallax Vision
// SPDX-License-Identifier: Apache-2.0
// https://github.com/parallax-vision/sceneflow

//go:build !nats

package ingest

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/parallax-vision/sceneflow/internal/config"
)

// NewNATSSubscriber is unavailable without the nats build tag.
func NewNATSSubscriber(cfg config.NATSConfig) (message.Subscriber, error) {
	return nil, fmt.Errorf("NATS ingest not available: build with -tags=nats")
}
