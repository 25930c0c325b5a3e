// Sceneflow - Multi-Camera Scene Event Pipeline
// Copyright 2026 Parallax Vision
// SPDX-License-Identifier: Apache-2.0
// https://github.com/parallax-vision/sceneflow

package ingest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parallax-vision/sceneflow/internal/scene"
	"github.com/parallax-vision/sceneflow/internal/track"
)

func startConsumer(t *testing.T, scenes *scene.Registry) *gochannel.GoChannel {
	t.Helper()

	pubsub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	consumer := NewConsumer(pubsub, scenes)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = consumer.Serve(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		_ = pubsub.Close()
	})

	// Give Serve time to establish its subscriptions before publishing.
	time.Sleep(50 * time.Millisecond)
	return pubsub
}

func testRegistry(tracker track.Capability, analyticsOnly bool) *scene.Registry {
	s := scene.New("floor", tracker, scene.Options{
		AnalyticsOnly: analyticsOnly,
		Tracking:      track.TrackOptions{UseTracker: !analyticsOnly},
	})
	identity := [][]float64{{1, 0, 0, 0}, {0, 1, 0, 0}, {0, 0, 1, 0}, {0, 0, 0, 1}}
	s.UpdateScene(scene.Update{
		Name: "floor",
		Cameras: []scene.CameraConfig{
			{UID: "cam1", Name: "Door", Transform: identity},
		},
		Sensors: []scene.RegionConfig{
			{UID: "thermo", Name: "Thermometer", Points: [][]float64{{0, 0}, {4, 0}, {4, 4}, {0, 4}}},
		},
	})

	r := scene.NewRegistry()
	r.Add(s)
	return r
}

func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestConsumerDispatchesCameraFrames(t *testing.T) {
	tracker := track.NewPassthrough()
	scenes := testRegistry(tracker, false)
	pubsub := startConsumer(t, scenes)

	payload := []byte(`{
	  "id": "cam1",
	  "timestamp": "2026-08-25T12:00:00Z",
	  "objects": {"person": [{"id": "d1", "translation": [1, 2, 0]}]}
	}`)
	require.NoError(t, pubsub.Publish(TopicCameraFrames, message.NewMessage(watermill.NewUUID(), payload)))

	eventually(t, func() bool {
		return len(tracker.CurrentObjects("person")) == 1
	}, "camera frame never reached the tracker")

	obj := tracker.CurrentObjects("person")[0]
	assert.Equal(t, "d1", obj.GID)
	assert.Equal(t, "cam1", obj.Source)
}

func TestConsumerSurvivesMalformedPayloads(t *testing.T) {
	tracker := track.NewPassthrough()
	scenes := testRegistry(tracker, false)
	pubsub := startConsumer(t, scenes)

	// Garbage, unroutable, then a valid frame: the stream must keep
	// flowing past the first two.
	require.NoError(t, pubsub.Publish(TopicCameraFrames, message.NewMessage(watermill.NewUUID(), []byte(`{not json`))))
	require.NoError(t, pubsub.Publish(TopicCameraFrames, message.NewMessage(watermill.NewUUID(), []byte(`{"id": "ghost-cam"}`))))
	valid := []byte(`{"id": "cam1", "objects": {"person": [{"id": "d1"}]}}`)
	require.NoError(t, pubsub.Publish(TopicCameraFrames, message.NewMessage(watermill.NewUUID(), valid)))

	eventually(t, func() bool {
		return len(tracker.CurrentObjects("person")) == 1
	}, "valid frame behind malformed ones never processed")
}

func TestConsumerDispatchesSensorFrames(t *testing.T) {
	scenes := testRegistry(track.NewPassthrough(), false)
	pubsub := startConsumer(t, scenes)

	payload := []byte(`{"id": "thermo", "timestamp": "2026-08-25T12:00:00Z", "value": 21.5}`)
	require.NoError(t, pubsub.Publish(TopicSensorFrames, message.NewMessage(watermill.NewUUID(), payload)))

	s, _ := scenes.Lookup("floor")
	eventually(t, func() bool {
		sensor, ok := s.Sensor("thermo")
		return ok && sensor.Value == 21.5
	}, "sensor frame never applied")
}

type recordingBroadcaster struct {
	mu    sync.Mutex
	calls []scene.Snapshot
}

func (b *recordingBroadcaster) BroadcastEvents(_ string, _ time.Time, snapshot scene.Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, snapshot)
}

func (b *recordingBroadcaster) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.calls)
}

func TestConsumerBroadcastsSensorEvents(t *testing.T) {
	scenes := testRegistry(track.NewPassthrough(), false)
	broadcaster := &recordingBroadcaster{}

	pubsub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	consumer := NewConsumer(pubsub, scenes).WithBroadcaster(broadcaster)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = consumer.Serve(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		_ = pubsub.Close()
	})
	time.Sleep(50 * time.Millisecond)

	payload := []byte(`{"id": "thermo", "timestamp": "2026-08-25T12:00:00Z", "value": 19.0}`)
	require.NoError(t, pubsub.Publish(TopicSensorFrames, message.NewMessage(watermill.NewUUID(), payload)))

	eventually(t, func() bool { return broadcaster.count() == 1 }, "sensor event never broadcast")

	broadcaster.mu.Lock()
	defer broadcaster.mu.Unlock()
	require.Len(t, broadcaster.calls[0].Value, 1)
	assert.Equal(t, "thermo", broadcaster.calls[0].Value[0].UID)
}

func TestConsumerFansOutTrackedFrames(t *testing.T) {
	s := scene.New("analytics-floor", nil, scene.Options{AnalyticsOnly: true})
	s.UpdateScene(scene.Update{
		Name: "analytics-floor",
		Tripwires: []scene.TripwireConfig{
			{UID: "gate", Name: "Gate", Points: [][]float64{{5, -1}, {5, 1}}},
		},
	})
	scenes := scene.NewRegistry()
	scenes.Add(s)
	pubsub := startConsumer(t, scenes)

	// Two frames moving one object across the gate at x=5; the second
	// must see the first frame's trail to detect the crossing.
	frame := func(ts string, x int) []byte {
		return []byte(fmt.Sprintf(`{
		  "category": "person",
		  "timestamp": %q,
		  "objects": [{"id": "p1", "type": "person", "translation": [%d, 0, 0],
		               "frame_count": 5, "first_seen": "2026-08-25T11:59:00Z"}]
		}`, ts, x))
	}
	require.NoError(t, pubsub.Publish(TopicTrackedFrames, message.NewMessage(watermill.NewUUID(), frame("2026-08-25T12:00:00Z", 4))))
	require.NoError(t, pubsub.Publish(TopicTrackedFrames, message.NewMessage(watermill.NewUUID(), frame("2026-08-25T12:00:01Z", 6))))

	eventually(t, func() bool {
		gate, ok := s.Tripwire("gate")
		return ok && len(gate.Objects["person"]) == 1
	}, "tracked frames never produced a tripwire crossing")
}
