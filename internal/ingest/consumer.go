// Sceneflow - Multi-Camera Scene Event Pipeline
// Copyright 2026 Parallax Vision
// SPDX-License-Identifier: Apache-2.0
// https://github.com/parallax-vision/sceneflow

// Package ingest binds detection, sensor and tracked-object message
// streams to scenes. The consumer works against any Watermill subscriber:
// a NATS JetStream subscriber in production (build tag "nats"), an
// in-process gochannel pubsub in tests.
package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"

	"github.com/parallax-vision/sceneflow/internal/logging"
	"github.com/parallax-vision/sceneflow/internal/scene"
)

// Topics the consumer subscribes to. The final token routes the message:
// camera/sensor ids resolve the owning scene, tracked categories fan out
// to every analytics scene.
const (
	TopicCameraFrames  = "scene.camera.>"
	TopicSensorFrames  = "scene.sensor.>"
	TopicTrackedFrames = "scene.tracked.>"
)

// Broadcaster receives the event snapshot of every processed frame.
type Broadcaster interface {
	BroadcastEvents(sceneName string, when time.Time, snapshot scene.Snapshot)
}

// Consumer pulls frames off the transport and feeds the scene registry.
// Every malformed or unroutable payload is logged, counted and acked;
// one bad frame never stalls the stream.
type Consumer struct {
	subscriber  message.Subscriber
	scenes      *scene.Registry
	broadcaster Broadcaster
}

// NewConsumer builds a consumer over an established subscriber.
func NewConsumer(subscriber message.Subscriber, scenes *scene.Registry) *Consumer {
	return &Consumer{subscriber: subscriber, scenes: scenes}
}

// WithBroadcaster forwards non-empty event snapshots after each frame.
func (c *Consumer) WithBroadcaster(b Broadcaster) *Consumer {
	c.broadcaster = b
	return c
}

func (c *Consumer) publishEvents(s *scene.Scene, when time.Time) {
	if c.broadcaster == nil || s.Events.Empty() {
		return
	}
	c.broadcaster.BroadcastEvents(s.Name, when, s.Events)
}

// Serve consumes all three topics until ctx is canceled.
func (c *Consumer) Serve(ctx context.Context) error {
	cameras, err := c.subscriber.Subscribe(ctx, TopicCameraFrames)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", TopicCameraFrames, err)
	}
	sensors, err := c.subscriber.Subscribe(ctx, TopicSensorFrames)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", TopicSensorFrames, err)
	}
	tracked, err := c.subscriber.Subscribe(ctx, TopicTrackedFrames)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", TopicTrackedFrames, err)
	}

	logging.Info().Msg("ingest consumer started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-cameras:
			if !ok {
				return nil
			}
			c.handleCamera(msg)
		case msg, ok := <-sensors:
			if !ok {
				return nil
			}
			c.handleSensor(msg)
		case msg, ok := <-tracked:
			if !ok {
				return nil
			}
			c.handleTracked(msg)
		}
	}
}

// String implements fmt.Stringer for supervisor logging.
func (c *Consumer) String() string {
	return "ingest-consumer"
}

func (c *Consumer) handleCamera(msg *message.Message) {
	defer msg.Ack()

	var frame scene.CameraFrame
	if err := json.Unmarshal(msg.Payload, &frame); err != nil {
		logging.Err(err).Str("message_uuid", msg.UUID).Msg("malformed camera frame")
		return
	}
	s, ok := c.scenes.ForCamera(frame.ID)
	if !ok {
		logging.Error().Str("camera", frame.ID).Msg("no scene owns camera")
		return
	}
	when := frameTime(frame.Timestamp)
	if !s.ProcessCameraFrame(frame, when) {
		logging.Warn().Str("camera", frame.ID).Msg("camera frame not handled")
		return
	}
	c.publishEvents(s, when)
}

func (c *Consumer) handleSensor(msg *message.Message) {
	defer msg.Ack()

	var frame scene.SensorFrame
	if err := json.Unmarshal(msg.Payload, &frame); err != nil {
		logging.Err(err).Str("message_uuid", msg.UUID).Msg("malformed sensor frame")
		return
	}
	s, ok := c.scenes.ForSensor(frame.ID)
	if !ok {
		logging.Error().Str("sensor", frame.ID).Msg("no scene owns sensor")
		return
	}
	when := frameTime(frame.Timestamp)
	if !s.ProcessSensorFrame(frame, when) {
		logging.Warn().Str("sensor", frame.ID).Msg("sensor frame not handled")
		return
	}
	c.publishEvents(s, when)
}

// TrackedFrame is the wire envelope of one externally-tracked object set.
type TrackedFrame struct {
	Category  string                `json:"category"`
	Timestamp string                `json:"timestamp"`
	Objects   []scene.TrackedRecord `json:"objects"`
}

func (c *Consumer) handleTracked(msg *message.Message) {
	defer msg.Ack()

	var frame TrackedFrame
	if err := json.Unmarshal(msg.Payload, &frame); err != nil {
		logging.Err(err).Str("message_uuid", msg.UUID).Msg("malformed tracked frame")
		return
	}
	if frame.Category == "" {
		frame.Category = categoryFromTopic(msg.Metadata.Get("topic"))
	}
	if frame.Category == "" {
		logging.Error().Str("message_uuid", msg.UUID).Msg("tracked frame without category")
		return
	}

	when := frameTime(frame.Timestamp)
	for _, s := range c.scenes.All() {
		if s.AnalyticsOnly() {
			s.ProcessTrackedFrame(frame.Category, frame.Objects, when)
			c.publishEvents(s, when)
		}
	}
}

// frameTime parses a payload timestamp, falling back to the receive time
// when it is absent or unparseable.
func frameTime(stamp string) time.Time {
	if stamp == "" {
		return time.Now()
	}
	t, err := time.Parse(time.RFC3339Nano, stamp)
	if err != nil {
		logging.Warn().Str("timestamp", stamp).Msg("unparseable frame timestamp, using receive time")
		return time.Now()
	}
	return t
}

func categoryFromTopic(topic string) string {
	idx := strings.LastIndex(topic, ".")
	if idx < 0 || idx == len(topic)-1 {
		return ""
	}
	return topic[idx+1:]
}
