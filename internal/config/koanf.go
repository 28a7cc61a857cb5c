// RVGuard - RV-C CAN Bus Security Monitor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rvguard

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/rvguard/config.yaml",
	"/etc/rvguard/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all sensible default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		CAN: CANConfig{
			Enabled:    true,
			Interface:  "can0",
			ReplayFile: "",
			BufferSize: 1000,
		},
		Security: SecurityConfig{
			DefaultPolicy:          "allow",
			StormWindowSeconds:     5,
			StormBaseThreshold:     1000,
			AdaptiveThreshold:      true,
			BaselineSampleInterval: time.Second,
			ScanWindowSeconds:      60,
			ScanPGNThreshold:       50,
			BucketIdleTimeout:      5 * time.Minute,
			PatternIdleTimeout:     5 * time.Minute,
			CleanupInterval:        5 * time.Minute,
			MaxAlerts:              10000,
			AlertRetention:         24 * time.Hour,
		},
		NATS: NATSConfig{
			Enabled:             false,
			URL:                 "nats://127.0.0.1:4222",
			EmbeddedServer:      true,
			StoreDir:            "/data/nats/jetstream",
			SubjectPrefix:       "rvguard.security",
			PublishRate:         200,
			PublishBurst:        400,
			PublishTimeout:      5 * time.Second,
			BreakerMaxRequests:  3,
			BreakerInterval:     time.Minute,
			BreakerTimeout:      30 * time.Second,
			BreakerFailureRatio: 0.6,
			BreakerMinRequests:  5,
		},
		Server: ServerConfig{
			Port:              8765,
			Host:              "0.0.0.0",
			Timeout:           30 * time.Second,
			CORSOrigins:       []string{"*"},
			RateLimitRequests: 100,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf loads configuration using Koanf with layered sources:
//  1. Defaults: Built-in sensible defaults
//  2. Config File: Optional YAML config file (if exists)
//  3. Environment Variables: Override any setting
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	// CAN_INTERFACE -> can.interface
	// SECURITY_DEFAULT_POLICY -> security.default_policy
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// ConfigFilePath returns the config file LoadWithKoanf reads, or "" when
// configuration comes from defaults and environment only.
func ConfigFilePath() string {
	return findConfigFile()
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
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

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"server.cors_origins",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
// Env vars come in as strings, but the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to koanf paths.
var envMappings = map[string]string{
	// CAN bus
	"can_enabled":     "can.enabled",
	"can_interface":   "can.interface",
	"can_replay_file": "can.replay_file",
	"can_buffer_size": "can.buffer_size",

	// Detector
	"security_default_policy":           "security.default_policy",
	"security_storm_window_seconds":     "security.storm_window_seconds",
	"security_storm_base_threshold":     "security.storm_base_threshold",
	"security_adaptive_threshold":       "security.adaptive_threshold",
	"security_baseline_sample_interval": "security.baseline_sample_interval",
	"security_scan_window_seconds":      "security.scan_window_seconds",
	"security_scan_pgn_threshold":       "security.scan_pgn_threshold",
	"security_bucket_idle_timeout":      "security.bucket_idle_timeout",
	"security_pattern_idle_timeout":     "security.pattern_idle_timeout",
	"security_cleanup_interval":         "security.cleanup_interval",
	"security_max_alerts":               "security.max_alerts",
	"security_alert_retention":          "security.alert_retention",

	// NATS
	"nats_enabled":               "nats.enabled",
	"nats_url":                   "nats.url",
	"nats_embedded":              "nats.embedded_server",
	"nats_store_dir":             "nats.store_dir",
	"nats_subject_prefix":        "nats.subject_prefix",
	"nats_publish_rate":          "nats.publish_rate",
	"nats_publish_burst":         "nats.publish_burst",
	"nats_publish_timeout":       "nats.publish_timeout",
	"nats_breaker_max_requests":  "nats.breaker_max_requests",
	"nats_breaker_interval":      "nats.breaker_interval",
	"nats_breaker_timeout":       "nats.breaker_timeout",
	"nats_breaker_failure_ratio": "nats.breaker_failure_ratio",
	"nats_breaker_min_requests":  "nats.breaker_min_requests",

	// Management API
	"http_host":           "server.host",
	"http_port":           "server.port",
	"http_timeout":        "server.timeout",
	"cors_origins":        "server.cors_origins",
	"rate_limit_requests": "server.rate_limit_requests",
	"rate_limit_window":   "server.rate_limit_window",
	"disable_rate_limit":  "server.rate_limit_disabled",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - CAN_INTERFACE -> can.interface
//   - SECURITY_DEFAULT_POLICY -> security.default_policy
//   - NATS_URL -> nats.url
//   - HTTP_PORT -> server.port
func envTransformFunc(key string) string {
	// For unmapped keys, return empty string to skip them
	// This prevents random environment variables from polluting config
	return envMappings[strings.ToLower(key)]
}

// WatchConfigFile sets up a file watcher for hot-reload capability.
// The caller is responsible for synchronizing access to reloaded configuration.
func WatchConfigFile(path string, callback func()) error {
	return file.Provider(path).Watch(func(event interface{}, err error) {
		if err != nil {
			return
		}
		callback()
	})
}
