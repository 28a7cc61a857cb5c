// RVGuard - RV-C CAN Bus Security Monitor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rvguard

package services

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// NATSServer is the lifecycle of an in-process NATS server.
// *eventprocessor.EmbeddedServer satisfies it.
type NATSServer interface {
	Start(ctx context.Context) error
	Shutdown(ctx context.Context)
	IsRunning() bool
}

// NATSServerService supervises the embedded NATS server that receives
// security events when no external broker is configured.
type NATSServerService struct {
	server          NATSServer
	shutdownTimeout time.Duration
	healthInterval  time.Duration
	name            string
}

// NewNATSServerService creates a NATSServerService.
func NewNATSServerService(server NATSServer, shutdownTimeout time.Duration) *NATSServerService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = defaultShutdownTimeout
	}
	return &NATSServerService{
		server:          server,
		shutdownTimeout: shutdownTimeout,
		healthInterval:  5 * time.Second,
		name:            "nats-server",
	}
}

// Serve implements suture.Service. If the server stops on its own the
// service fails so suture starts a fresh one.
func (s *NATSServerService) Serve(ctx context.Context) error {
	if err := s.server.Start(ctx); err != nil {
		return fmt.Errorf("embedded NATS start failed: %w", err)
	}

	ticker := time.NewTicker(s.healthInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
			s.server.Shutdown(shutdownCtx)
			cancel()
			return ctx.Err()
		case <-ticker.C:
			if !s.server.IsRunning() {
				return errors.New("embedded NATS server stopped unexpectedly")
			}
		}
	}
}

func (s *NATSServerService) String() string {
	return s.name
}
