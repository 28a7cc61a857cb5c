// RVGuard - RV-C CAN Bus Security Monitor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rvguard

package main

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"

	"github.com/tomtom215/rvguard/internal/config"
	"github.com/tomtom215/rvguard/internal/eventprocessor"
	"github.com/tomtom215/rvguard/internal/logging"
	"github.com/tomtom215/rvguard/internal/security"
)

// natsConnector builds the detector's event sink connector from config.
// It returns nil when publication is disabled.
func natsConnector(cfg *config.Config) security.SinkConnector {
	if !cfg.NATS.Enabled {
		logging.Info().Msg("NATS event publication disabled (NATS_ENABLED=false)")
		return nil
	}

	breaker := eventprocessor.DefaultCircuitBreakerConfig("nats-security-sink")
	breaker.MaxRequests = cfg.NATS.BreakerMaxRequests
	breaker.Interval = cfg.NATS.BreakerInterval
	breaker.Timeout = cfg.NATS.BreakerTimeout
	breaker.FailureRatio = cfg.NATS.BreakerFailureRatio
	breaker.MinRequests = cfg.NATS.BreakerMinRequests

	return eventprocessor.Connector(eventprocessor.ConnectorConfig{
		Publisher: eventprocessor.DefaultPublisherConfig(cfg.NATS.URL),
		Sink: eventprocessor.SinkConfig{
			SubjectPrefix: cfg.NATS.SubjectPrefix,
			PublishRate:   cfg.NATS.PublishRate,
			PublishBurst:  cfg.NATS.PublishBurst,
		},
		Stream:  eventprocessor.DefaultStreamConfig(cfg.NATS.SubjectPrefix),
		Breaker: breaker,
	})
}

// startEmbeddedNATS starts the in-process server before the detector first
// tries to connect. The returned server is handed to the supervisor, whose
// Start call is a no-op while it is already running.
func startEmbeddedNATS(ctx context.Context, cfg *config.Config) (*eventprocessor.EmbeddedServer, error) {
	if !cfg.NATS.Enabled || !cfg.NATS.EmbeddedServer {
		return nil, nil
	}

	serverCfg, err := embeddedServerConfig(cfg.NATS)
	if err != nil {
		return nil, err
	}

	srv := eventprocessor.NewEmbeddedServer(serverCfg)
	if err := srv.Start(ctx); err != nil {
		return nil, fmt.Errorf("start embedded NATS: %w", err)
	}
	return srv, nil
}

// embeddedServerConfig listens on the host and port of the configured URL
// so the publisher reaches the embedded server without extra settings.
func embeddedServerConfig(n config.NATSConfig) (eventprocessor.ServerConfig, error) {
	out := eventprocessor.DefaultServerConfig()
	out.StoreDir = n.StoreDir

	u, err := url.Parse(n.URL)
	if err != nil {
		return out, fmt.Errorf("parse nats url: %w", err)
	}
	host, portStr, err := net.SplitHostPort(u.Host)
	if err != nil {
		// No port in URL; keep the default.
		if u.Hostname() != "" {
			out.Host = u.Hostname()
		}
		return out, nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return out, fmt.Errorf("invalid nats port %q: %w", portStr, err)
	}
	if host != "" {
		out.Host = host
	}
	out.Port = port
	return out, nil
}
