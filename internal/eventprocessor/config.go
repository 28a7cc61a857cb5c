// RVGuard - RV-C CAN Bus Security Monitor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rvguard

package eventprocessor

import (
	"fmt"
	"strings"
	"time"
)

// SinkConfig holds security event publication settings.
type SinkConfig struct {
	// SubjectPrefix is prepended to the anomaly type (default: rvguard.security).
	SubjectPrefix string

	// PublishRate caps events per second. Excess events are dropped.
	PublishRate float64

	// PublishBurst is the number of events that may be published back to back.
	PublishBurst int
}

// DefaultSinkConfig returns production defaults for the sink.
func DefaultSinkConfig() SinkConfig {
	return SinkConfig{
		SubjectPrefix: "rvguard.security",
		PublishRate:   200,
		PublishBurst:  400,
	}
}

// Validate checks the sink configuration.
func (c SinkConfig) Validate() error {
	if strings.TrimSpace(c.SubjectPrefix) == "" {
		return fmt.Errorf("%w: subject prefix is required", ErrInvalidConfig)
	}
	if strings.ContainsAny(c.SubjectPrefix, "*> ") {
		return fmt.Errorf("%w: subject prefix %q contains wildcards or spaces", ErrInvalidConfig, c.SubjectPrefix)
	}
	if c.PublishRate <= 0 || c.PublishBurst < 1 {
		return fmt.Errorf("%w: publish rate and burst must be positive", ErrInvalidConfig)
	}
	return nil
}

// ServerConfig holds embedded NATS server configuration.
type ServerConfig struct {
	Host              string
	Port              int
	StoreDir          string
	JetStreamMaxMem   int64
	JetStreamMaxStore int64
}

// DefaultServerConfig returns production defaults for embedded NATS server.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:              "127.0.0.1",
		Port:              4222,
		StoreDir:          "/data/nats/jetstream",
		JetStreamMaxMem:   64 << 20,  // 64MB
		JetStreamMaxStore: 512 << 20, // 512MB
	}
}

// PublisherConfig holds publisher connection configuration.
type PublisherConfig struct {
	URL              string
	ConnectTimeout   time.Duration
	MaxReconnects    int
	ReconnectWait    time.Duration
	ReconnectBuffer  int
	EnableTrackMsgID bool // nolint:revive // ID is correct per Go conventions
}

// DefaultPublisherConfig returns production defaults for publisher.
func DefaultPublisherConfig(url string) PublisherConfig {
	return PublisherConfig{
		URL:              url,
		ConnectTimeout:   2 * time.Second,
		MaxReconnects:    -1, // Unlimited
		ReconnectWait:    2 * time.Second,
		ReconnectBuffer:  8 * 1024 * 1024, // 8MB
		EnableTrackMsgID: true,
	}
}

// StreamConfig defines the security event stream settings.
type StreamConfig struct {
	Name            string
	Subjects        []string
	MaxAge          time.Duration
	MaxBytes        int64
	MaxMsgs         int64
	DuplicateWindow time.Duration
	Replicas        int
}

// DefaultStreamConfig returns the stream capturing every subject under prefix.
func DefaultStreamConfig(prefix string) StreamConfig {
	return StreamConfig{
		Name:            "RVGUARD_SECURITY",
		Subjects:        []string{prefix + ".>"},
		MaxAge:          7 * 24 * time.Hour, // 7 days
		MaxBytes:        256 * 1024 * 1024,  // 256MB
		MaxMsgs:         -1,                 // Unlimited
		DuplicateWindow: 2 * time.Minute,
		Replicas:        1,
	}
}

// CircuitBreakerConfig holds circuit breaker settings.
type CircuitBreakerConfig struct {
	Name         string
	MaxRequests  uint32        // Allowed in half-open state
	Interval     time.Duration // Reset interval for counts
	Timeout      time.Duration // Time to stay open
	FailureRatio float64       // Failure ratio that opens the breaker
	MinRequests  uint32        // Requests needed before the ratio applies
}

// DefaultCircuitBreakerConfig returns production defaults.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:         name,
		MaxRequests:  3,
		Interval:     time.Minute,
		Timeout:      30 * time.Second,
		FailureRatio: 0.6,
		MinRequests:  5,
	}
}
