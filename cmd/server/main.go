// Sceneflow - Multi-Camera Scene Event Pipeline
// Copyright 2026 Parallax Vision
// SPDX-License-Identifier: Apache-2.0
// https://github.com/parallax-vision/sceneflow

// Package main is the entry point for the Sceneflow server.
//
// Sceneflow ingests camera detections, sensor readings and externally
// tracked objects, runs them through a scene event engine (regions,
// tripwires, visibility) and broadcasts the derived events to websocket
// consumers.
//
// The server initializes components in the following order:
//
//  1. Configuration: Koanf v2 layered sources (env > file > defaults)
//  2. Scene registry: declarative scene layout from scenes_path
//  3. Trackers: per-scene, chunked or direct per time_chunking_enabled
//  4. Event hub: websocket fan-out of event snapshots
//  5. Ingest consumer: NATS JetStream (build with -tags nats)
//  6. HTTP server: /healthz, /metrics, /ws
//
// Everything long-running goes under a suture supervisor tree; SIGINT and
// SIGTERM cancel the tree's context for a graceful shutdown.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/thejerf/suture/v4"

	"github.com/parallax-vision/sceneflow/internal/config"
	"github.com/parallax-vision/sceneflow/internal/hub"
	"github.com/parallax-vision/sceneflow/internal/ingest"
	"github.com/parallax-vision/sceneflow/internal/logging"
	"github.com/parallax-vision/sceneflow/internal/scene"
	"github.com/parallax-vision/sceneflow/internal/service"
	"github.com/parallax-vision/sceneflow/internal/track"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Bool("analytics_only", cfg.Mode.AnalyticsOnly).
		Bool("time_chunking", cfg.Tracker.TimeChunkingEnabled).
		Str("scenes_path", cfg.ScenesPath).
		Msg("starting sceneflow")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tree, err := service.NewTree(logging.NewSlogLogger(), service.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to create supervisor tree")
	}

	scenes, err := buildScenes(cfg, tree)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to build scene registry")
	}

	eventHub := hub.New()
	tree.AddTransportService(eventHub)

	if cfg.NATS.Enabled {
		subscriber, err := ingest.NewNATSSubscriber(cfg.NATS)
		if err != nil {
			logging.Fatal().Err(err).Msg("failed to create ingest subscriber")
		}
		consumer := ingest.NewConsumer(subscriber, scenes).WithBroadcaster(eventHub)
		tree.AddTransportService(consumer)
		logging.Info().Str("url", cfg.NATS.URL).Msg("ingest consumer added")
	} else {
		logging.Warn().Msg("NATS ingest disabled; no frames will arrive")
	}

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      newRouter(eventHub),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}
	tree.AddAPIService(service.NewHTTPService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("received shutdown signal")
		cancel()
	}()

	errCh := tree.ServeBackground(ctx)
	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("supervisor tree error")
		}
	}
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("service failed to stop within timeout")
	}

	logging.Info().Msg("sceneflow stopped")
}

// buildScenes loads the declarative scene layout and wires a tracker into
// every scene. Chunked trackers are long-running; their dispatch loops go
// under the tracking layer of the tree.
func buildScenes(cfg *config.Config, tree *service.Tree) (*scene.Registry, error) {
	updates, err := scene.LoadDefinitions(cfg.ScenesPath)
	if err != nil {
		return nil, err
	}

	opts := track.TrackOptions{
		FrameRate:                 cfg.FrameRate(),
		MaxUnreliableTime:         cfg.Tracker.MaxUnreliableTime,
		NonMeasurementTimeDynamic: cfg.Tracker.NonMeasurementTimeDynamic,
		NonMeasurementTimeStatic:  cfg.Tracker.NonMeasurementTimeStatic,
		UseTracker:                !cfg.Mode.AnalyticsOnly,
	}

	registry := scene.NewRegistry()
	for _, update := range updates {
		tracker, trackingSvc := buildTracker(cfg, opts)
		if trackingSvc != nil {
			tree.AddTrackingService(trackingSvc)
		}

		s := scene.New(update.Name, tracker, scene.Options{
			AnalyticsOnly: cfg.Mode.AnalyticsOnly,
			Tracking:      opts,
		})
		s.UpdateScene(update)
		registry.Add(s)

		logging.Info().
			Str("scene", update.Name).
			Int("cameras", len(update.Cameras)).
			Int("regions", len(update.Regions)).
			Int("tripwires", len(update.Tripwires)).
			Msg("scene registered")
	}
	return registry, nil
}

// buildTracker returns one scene's tracker and, for the chunked variant,
// the dispatch loop to supervise.
func buildTracker(cfg *config.Config, opts track.TrackOptions) (track.Capability, suture.Service) {
	if cfg.Mode.AnalyticsOnly {
		return nil, nil
	}
	if cfg.Tracker.TimeChunkingEnabled {
		chunked := track.NewChunkedTracker(
			func(string) track.Capability { return track.NewPassthrough() },
			cfg.Tracker.TimeChunkingRateFPS,
			opts,
		)
		return chunked, chunked
	}
	return track.NewPassthrough(), nil
}

// newRouter builds the operational HTTP surface.
func newRouter(eventHub *hub.Hub) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/ws", eventHub.HandleWS)

	return r
}
