// RVGuard - RV-C CAN Bus Security Monitor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rvguard

package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	CAN      CANConfig      `koanf:"can"`
	Security SecurityConfig `koanf:"security"`
	NATS     NATSConfig     `koanf:"nats"`
	Server   ServerConfig   `koanf:"server"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// CANConfig selects the frame source feeding the detector.
type CANConfig struct {
	// Enabled controls whether live SocketCAN ingestion runs.
	Enabled bool `koanf:"enabled"`

	// Interface is the SocketCAN interface name (e.g. can0, vcan0).
	Interface string `koanf:"interface"`

	// ReplayFile, when set, replays a candump log instead of reading the interface.
	ReplayFile string `koanf:"replay_file"`

	// BufferSize is the capacity of the frame channel between reader and detector.
	BufferSize int `koanf:"buffer_size"`
}

// SecurityConfig holds the detector tuning knobs.
type SecurityConfig struct {
	DefaultPolicy          string        `koanf:"default_policy"`
	StormWindowSeconds     float64       `koanf:"storm_window_seconds"`
	StormBaseThreshold     float64       `koanf:"storm_base_threshold"`
	AdaptiveThreshold      bool          `koanf:"adaptive_threshold"`
	BaselineSampleInterval time.Duration `koanf:"baseline_sample_interval"`
	ScanWindowSeconds      float64       `koanf:"scan_window_seconds"`
	ScanPGNThreshold       int           `koanf:"scan_pgn_threshold"`
	BucketIdleTimeout      time.Duration `koanf:"bucket_idle_timeout"`
	PatternIdleTimeout     time.Duration `koanf:"pattern_idle_timeout"`
	CleanupInterval        time.Duration `koanf:"cleanup_interval"`
	MaxAlerts              int           `koanf:"max_alerts"`
	AlertRetention         time.Duration `koanf:"alert_retention"`

	// ACL entries installed at startup. Only settable from the config file.
	ACL []ACLEntryConfig `koanf:"acl"`
}

// ACLEntryConfig is a static source ACL entry.
type ACLEntryConfig struct {
	Address     uint8    `koanf:"address"`
	AllowedPGNs []uint32 `koanf:"allowed_pgns"`
	DeniedPGNs  []uint32 `koanf:"denied_pgns"`
	Whitelisted bool     `koanf:"whitelisted"`
	Description string   `koanf:"description"`
}

// NATSConfig holds security event publication settings.
type NATSConfig struct {
	// Enabled controls whether alerts are published to NATS.
	Enabled bool `koanf:"enabled"`

	// URL is the NATS server connection URL.
	URL string `koanf:"url"`

	// EmbeddedServer starts an in-process NATS server at URL's port.
	EmbeddedServer bool `koanf:"embedded_server"`

	// StoreDir is the JetStream storage directory for the embedded server.
	StoreDir string `koanf:"store_dir"`

	// SubjectPrefix is prepended to the anomaly type to form the subject.
	SubjectPrefix string `koanf:"subject_prefix"`

	// PublishRate caps events per second; excess events are dropped and counted.
	PublishRate  float64 `koanf:"publish_rate"`
	PublishBurst int     `koanf:"publish_burst"`

	PublishTimeout time.Duration `koanf:"publish_timeout"`

	// Circuit breaker settings.
	BreakerMaxRequests  uint32        `koanf:"breaker_max_requests"`
	BreakerInterval     time.Duration `koanf:"breaker_interval"`
	BreakerTimeout      time.Duration `koanf:"breaker_timeout"`
	BreakerFailureRatio float64       `koanf:"breaker_failure_ratio"`
	BreakerMinRequests  uint32        `koanf:"breaker_min_requests"`
}

// ServerConfig holds management API settings.
type ServerConfig struct {
	Port              int           `koanf:"port"`
	Host              string        `koanf:"host"`
	Timeout           time.Duration `koanf:"timeout"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitRequests int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `koanf:"level"`  // Log level: trace, debug, info, warn, error
	Format string `koanf:"format"` // Output format: json, console
	Caller bool   `koanf:"caller"` // Include caller information (file:line)
}

// Addr returns the listen address for the management API.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}
