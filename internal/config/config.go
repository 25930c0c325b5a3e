// Sceneflow - Multi-Camera Scene Event Pipeline
// Copyright 2026 Parallax Vision
// SPDX-License-Identifier: Apache-2.0
// https://github.com/parallax-vision/sceneflow

// Package config defines the Sceneflow configuration model and its Koanf v2
// loader. Precedence is ENV > config file > defaults.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the root configuration for the Sceneflow server.
type Config struct {
	// Mode selects between local tracking and externally-fed operation.
	Mode ModeConfig `koanf:"mode"`

	// Tracker holds the tracker capability and time-chunking knobs.
	Tracker TrackerConfig `koanf:"tracker"`

	// NATS configures the detection/sensor ingest transport.
	NATS NATSConfig `koanf:"nats"`

	// Server configures the operational HTTP surface.
	Server ServerConfig `koanf:"server"`

	// Logging configures the global zerolog logger.
	Logging LoggingConfig `koanf:"logging"`

	// ScenesPath points at the declarative scene layout document
	// (cameras, regions, tripwires, sensors) applied at startup.
	ScenesPath string `koanf:"scenes_path"`
}

// ModeConfig is the explicit replacement for the process-wide mode toggle:
// it is read once at startup and passed by value into every scene.
type ModeConfig struct {
	// AnalyticsOnly disables local tracker construction; tracked objects
	// are supplied by an external producer instead.
	AnalyticsOnly bool `koanf:"analytics_only"`
}

// TrackerConfig carries the recognized tracker options. The duration knobs
// are forwarded verbatim to the tracker capability on every batch.
type TrackerConfig struct {
	// MaxUnreliableTime is how long a track may go unconfirmed before the
	// capability treats it as unreliable.
	MaxUnreliableTime time.Duration `koanf:"max_unreliable_time"`

	// NonMeasurementTimeDynamic bounds coasting for moving objects.
	NonMeasurementTimeDynamic time.Duration `koanf:"non_measurement_time_dynamic"`

	// NonMeasurementTimeStatic bounds coasting for stationary objects.
	NonMeasurementTimeStatic time.Duration `koanf:"non_measurement_time_static"`

	// EffectiveObjectUpdateRate is the assumed camera frame rate (fps)
	// when time chunking is disabled.
	EffectiveObjectUpdateRate float64 `koanf:"effective_object_update_rate" validate:"gt=0"`

	// SuspendedTrackTimeoutSecs is forwarded to the capability for
	// suspended-track expiry.
	SuspendedTrackTimeoutSecs int `koanf:"suspended_track_timeout_secs" validate:"min=0"`

	// TimeChunkingEnabled selects the time-chunked tracker variant.
	TimeChunkingEnabled bool `koanf:"time_chunking_enabled"`

	// TimeChunkingRateFPS is the fixed dispatch rate of the time-chunk
	// processor. Valid range [1,100].
	TimeChunkingRateFPS int `koanf:"time_chunking_rate_fps" validate:"min=1,max=100"`
}

// NATSConfig configures the Watermill/NATS JetStream ingest adapter.
type NATSConfig struct {
	Enabled          bool          `koanf:"enabled"`
	URL              string        `koanf:"url"`
	StreamName       string        `koanf:"stream_name"`
	DurableName      string        `koanf:"durable_name"`
	QueueGroup       string        `koanf:"queue_group"`
	SubscribersCount int           `koanf:"subscribers_count" validate:"min=1"`
	AckWaitTimeout   time.Duration `koanf:"ack_wait_timeout"`
	CloseTimeout     time.Duration `koanf:"close_timeout"`
	MaxReconnects    int           `koanf:"max_reconnects"`
	ReconnectWait    time.Duration `koanf:"reconnect_wait"`
}

// ServerConfig configures the /healthz + /metrics HTTP listener.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port" validate:"min=1,max=65535"`
	Timeout time.Duration `koanf:"timeout"`
}

// LoggingConfig mirrors logging.Config for the koanf layer.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn warning error fatal panic disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// Default returns a Config with all default values applied. These are the
// values the pipeline runs with when no file or environment overrides exist.
func Default() *Config {
	return &Config{
		Mode: ModeConfig{
			AnalyticsOnly: false,
		},
		Tracker: TrackerConfig{
			MaxUnreliableTime:         1 * time.Second,
			NonMeasurementTimeDynamic: 200 * time.Millisecond,
			NonMeasurementTimeStatic:  2 * time.Second,
			EffectiveObjectUpdateRate: 30,
			SuspendedTrackTimeoutSecs: 120,
			TimeChunkingEnabled:       false,
			TimeChunkingRateFPS:       15,
		},
		NATS: NATSConfig{
			Enabled:          false,
			URL:              "nats://127.0.0.1:4222",
			StreamName:       "",
			DurableName:      "sceneflow",
			QueueGroup:       "scene-controllers",
			SubscribersCount: 1,
			AckWaitTimeout:   30 * time.Second,
			CloseTimeout:     30 * time.Second,
			MaxReconnects:    -1,
			ReconnectWait:    2 * time.Second,
		},
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    8087,
			Timeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		ScenesPath: "scenes.json",
	}
}

// Validate checks the configuration against its struct tags and the
// cross-field constraints that tags cannot express.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.Tracker.MaxUnreliableTime <= 0 {
		return fmt.Errorf("tracker.max_unreliable_time must be positive, got %s", c.Tracker.MaxUnreliableTime)
	}
	if c.Tracker.NonMeasurementTimeDynamic <= 0 || c.Tracker.NonMeasurementTimeStatic <= 0 {
		return fmt.Errorf("tracker non-measurement times must be positive")
	}
	if c.Mode.AnalyticsOnly && c.Tracker.TimeChunkingEnabled {
		return fmt.Errorf("time chunking requires a local tracker; disable it in analytics-only mode")
	}
	return nil
}

// FrameRate returns the tracker's reference frame rate: the chunking rate
// when time chunking is enabled, the effective object update rate otherwise.
func (c *Config) FrameRate() float64 {
	if c.Tracker.TimeChunkingEnabled {
		return float64(c.Tracker.TimeChunkingRateFPS)
	}
	return c.Tracker.EffectiveObjectUpdateRate
}
