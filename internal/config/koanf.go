// Sceneflow - Multi-Camera Scene Event Pipeline
// Copyright 2026 Parallax Vision
// SPDX-License-Identifier: Apache-2.0
// https://github.com/parallax-vision/sceneflow

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths searched for a config file, in order.
// The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/sceneflow/config.yaml",
	"/etc/sceneflow/config.yml",
}

// ConfigPathEnvVar overrides the config file search path.
const ConfigPathEnvVar = "CONFIG_PATH"

// Load builds the configuration from layered sources:
//  1. Defaults from Default()
//  2. Optional YAML config file
//  3. Environment variables (highest priority)
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// findConfigFile returns the first existing config file path, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envMappings maps environment variable names to koanf config paths.
// Nested keys contain underscores, so a mechanical SEP replacement cannot
// work; the mapping is explicit.
var envMappings = map[string]string{
	"analytics_only": "mode.analytics_only",

	"max_unreliable_time":          "tracker.max_unreliable_time",
	"non_measurement_time_dynamic": "tracker.non_measurement_time_dynamic",
	"non_measurement_time_static":  "tracker.non_measurement_time_static",
	"effective_object_update_rate": "tracker.effective_object_update_rate",
	"suspended_track_timeout_secs": "tracker.suspended_track_timeout_secs",
	"time_chunking_enabled":        "tracker.time_chunking_enabled",
	"time_chunking_rate_fps":       "tracker.time_chunking_rate_fps",

	"nats_enabled":           "nats.enabled",
	"nats_url":               "nats.url",
	"nats_stream_name":       "nats.stream_name",
	"nats_durable_name":      "nats.durable_name",
	"nats_queue_group":       "nats.queue_group",
	"nats_subscribers_count": "nats.subscribers_count",
	"nats_ack_wait_timeout":  "nats.ack_wait_timeout",
	"nats_max_reconnects":    "nats.max_reconnects",

	"http_host":    "server.host",
	"http_port":    "server.port",
	"http_timeout": "server.timeout",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	"scenes_path": "scenes_path",
}

// envTransform converts an environment variable name to its koanf path.
// Unrecognized variables are dropped so unrelated environment noise cannot
// leak into the configuration.
func envTransform(key string) string {
	return envMappings[strings.ToLower(key)]
}
