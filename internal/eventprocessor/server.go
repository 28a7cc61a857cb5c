// RVGuard - RV-C CAN Bus Security Monitor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rvguard

package eventprocessor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats-server/v2/server"

	"github.com/tomtom215/rvguard/internal/logging"
)

// readyTimeout bounds how long Start waits for the server to accept clients.
const readyTimeout = 30 * time.Second

// EmbeddedServer wraps the NATS server with lifecycle management.
// It provides a self-contained JetStream instance for single-coach
// deployments without an external broker.
type EmbeddedServer struct {
	config ServerConfig

	mu        sync.Mutex
	server    *server.Server
	clientURL string
}

// NewEmbeddedServer creates an embedded NATS server. Call Start to run it.
func NewEmbeddedServer(cfg ServerConfig) *EmbeddedServer {
	return &EmbeddedServer{config: cfg}
}

// Start launches the server and waits until it accepts connections.
func (s *EmbeddedServer) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil && s.server.Running() {
		return nil
	}

	opts := &server.Options{
		ServerName:         "rvguard",
		Host:               s.config.Host,
		Port:               s.config.Port,
		JetStream:          true,
		StoreDir:           s.config.StoreDir,
		JetStreamMaxMemory: s.config.JetStreamMaxMem,
		JetStreamMaxStore:  s.config.JetStreamMaxStore,
		NoSigs:             true,
		NoLog:              true,
		MaxPayload:         1024 * 1024, // 1MB
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		return fmt.Errorf("create NATS server: %w", err)
	}

	go ns.Start()

	if !ns.ReadyForConnections(readyTimeout) {
		ns.Shutdown()
		return fmt.Errorf("NATS server not ready within %s", readyTimeout)
	}
	if err := ctx.Err(); err != nil {
		ns.Shutdown()
		return err
	}

	s.server = ns
	s.clientURL = ns.ClientURL()
	logging.Info().Str("url", s.clientURL).Str("store_dir", s.config.StoreDir).Msg("embedded NATS server started")
	return nil
}

// ClientURL returns the connection URL for clients.
func (s *EmbeddedServer) ClientURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clientURL
}

// Shutdown stops the server and waits for it to exit or ctx to end.
func (s *EmbeddedServer) Shutdown(ctx context.Context) {
	s.mu.Lock()
	ns := s.server
	s.server = nil
	s.mu.Unlock()

	if ns == nil {
		return
	}
	ns.Shutdown()

	done := make(chan struct{})
	go func() {
		ns.WaitForShutdown()
		close(done)
	}()
	select {
	case <-done:
		logging.Info().Msg("embedded NATS server stopped")
	case <-ctx.Done():
		logging.Warn().Msg("embedded NATS server shutdown timed out")
	}
}

// IsRunning returns server health status.
func (s *EmbeddedServer) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.server != nil && s.server.Running()
}

// JetStreamEnabled returns whether JetStream is enabled.
func (s *EmbeddedServer) JetStreamEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.server != nil && s.server.JetStreamEnabled()
}
