// RVGuard - RV-C CAN Bus Security Monitor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rvguard

// Package main is the entry point for the RVGuard monitor.
//
// RVGuard watches an RV-C CAN bus for traffic that violates per-source
// access rules, exceeds per-PGN rate budgets, floods the bus, or looks like
// PGN scanning. Alerts are kept in an in-memory journal, pushed to WebSocket
// clients and optionally published to NATS JetStream.
//
// # Startup Order
//
//  1. Configuration: defaults, config.yaml, environment (Koanf v2)
//  2. Logging: zerolog level and format
//  3. NATS (optional): embedded server, then the detector's sink connector
//  4. Detector: thresholds, default policy and configured ACL entries
//  5. CAN ingest: SocketCAN interface or candump replay file
//  6. HTTP: management API, WebSocket alert stream and /metrics
//  7. Supervisor tree: every long-running component is a suture service
//
// # Example Usage
//
// Live bus with embedded NATS:
//
//	export CAN_INTERFACE=can0
//	export NATS_ENABLED=true
//	export NATS_EMBEDDED=true
//	./rvguard
//
// Replaying a capture:
//
//	export CAN_REPLAY_FILE=./capture.log
//	export NATS_ENABLED=false
//	./rvguard
//
// # Signal Handling
//
// SIGINT and SIGTERM cancel the root context. The supervisor stops the
// HTTP server, the CAN reader and the detector, and the detector closes its
// event sink on the way out.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/rvguard/internal/api"
	"github.com/tomtom215/rvguard/internal/canbus"
	"github.com/tomtom215/rvguard/internal/config"
	"github.com/tomtom215/rvguard/internal/logging"
	"github.com/tomtom215/rvguard/internal/security"
	"github.com/tomtom215/rvguard/internal/supervisor"
	"github.com/tomtom215/rvguard/internal/supervisor/services"
	ws "github.com/tomtom215/rvguard/internal/websocket"
)

func main() {
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
		Output:    os.Stderr,
	})

	logging.Info().
		Bool("can_enabled", cfg.CAN.Enabled).
		Bool("nats_enabled", cfg.NATS.Enabled).
		Str("default_policy", cfg.Security.DefaultPolicy).
		Str("addr", cfg.Server.Addr()).
		Msg("Starting RVGuard with supervisor tree")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	wsHub := ws.NewHub()

	natsServer, err := startEmbeddedNATS(ctx, cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to start embedded NATS server")
	}
	if natsServer != nil {
		tree.AddMessagingService(services.NewNATSServerService(natsServer, cfg.ShutdownGrace()))
		logging.Info().Str("url", natsServer.ClientURL()).Msg("Embedded NATS server added to supervisor tree")
	}

	opts := []security.Option{security.WithBroadcaster(wsHub)}
	if connect := natsConnector(cfg); connect != nil {
		opts = append(opts, security.WithSinkConnector(connect))
	}
	detector := security.NewDetector(cfg.DetectorConfig(), opts...)
	for _, entry := range cfg.ACLEntries() {
		detector.AddSourceToACL(entry)
	}
	logging.Info().Int("acl_entries", len(cfg.Security.ACL)).Msg("Security detector initialized")

	tree.AddDetectionService(services.NewDetectorService(detector))
	if cfg.CAN.Enabled {
		open, source := frameSourceOpener(cfg.CAN)
		pipeline := canbus.NewPipeline(open, detector, cfg.CAN.BufferSize)
		tree.AddDetectionService(services.NewIngestService(pipeline, source))
		logging.Info().Str("source", source).Msg("CAN ingest added to supervisor tree")
	} else {
		logging.Info().Msg("CAN ingest disabled (CAN_ENABLED=false)")
	}

	tree.AddMessagingService(services.NewWebSocketHubService(wsHub))

	handler := api.NewHandler(detector, wsHub, cfg.Server.CORSOrigins)
	middleware := api.NewChiMiddleware(&api.ChiMiddlewareConfig{
		CORSAllowedOrigins: cfg.Server.CORSOrigins,
		CORSMaxAge:         86400,
		RateLimitRequests:  cfg.Server.RateLimitRequests,
		RateLimitWindow:    cfg.Server.RateLimitWindow,
		RateLimitDisabled:  cfg.Server.RateLimitDisabled,
	})
	if cfg.HasWildcardCORS() {
		logging.Warn().Msg("CORS allows any origin; restrict CORS_ORIGINS outside development")
	}

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           api.NewRouter(handler, middleware).SetupChi(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       60 * time.Second,
	}
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.ShutdownGrace()))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	watchConfig(detector)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("RVGuard stopped")
}
