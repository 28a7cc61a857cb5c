// RVGuard - RV-C CAN Bus Security Monitor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rvguard

package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/tomtom215/rvguard/internal/logging"
	"github.com/tomtom215/rvguard/internal/security"
)

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateCAN,
		c.validateSecurity,
		c.validateACL,
		c.validateNATS,
		c.validateServer,
		c.validateLogging,
	}

	for _, validator := range validators {
		if err := validator(); err != nil {
			return err
		}
	}
	return nil
}

// validateCAN validates the frame source configuration
func (c *Config) validateCAN() error {
	if c.CAN.BufferSize < 1 {
		return fmt.Errorf("CAN_BUFFER_SIZE must be at least 1")
	}
	if c.CAN.Enabled && c.CAN.ReplayFile == "" && strings.TrimSpace(c.CAN.Interface) == "" {
		return fmt.Errorf("CAN_INTERFACE is required when CAN ingestion is enabled")
	}
	return nil
}

// validateSecurity validates detector tuning
func (c *Config) validateSecurity() error {
	s := c.Security
	if _, err := security.ParseACLPolicy(s.DefaultPolicy); err != nil {
		return fmt.Errorf("SECURITY_DEFAULT_POLICY is invalid: %w", err)
	}
	if s.StormWindowSeconds <= 0 {
		return fmt.Errorf("SECURITY_STORM_WINDOW_SECONDS must be positive")
	}
	if s.StormBaseThreshold <= 0 {
		return fmt.Errorf("SECURITY_STORM_BASE_THRESHOLD must be positive")
	}
	if s.BaselineSampleInterval < 0 {
		return fmt.Errorf("SECURITY_BASELINE_SAMPLE_INTERVAL must not be negative")
	}
	if s.ScanWindowSeconds <= 0 {
		return fmt.Errorf("SECURITY_SCAN_WINDOW_SECONDS must be positive")
	}
	if s.ScanPGNThreshold < 1 {
		return fmt.Errorf("SECURITY_SCAN_PGN_THRESHOLD must be at least 1")
	}
	if s.BucketIdleTimeout <= 0 || s.PatternIdleTimeout <= 0 {
		return fmt.Errorf("idle timeouts must be positive")
	}
	if s.CleanupInterval <= 0 {
		return fmt.Errorf("SECURITY_CLEANUP_INTERVAL must be positive")
	}
	if s.MaxAlerts < 1 {
		return fmt.Errorf("SECURITY_MAX_ALERTS must be at least 1")
	}
	if s.AlertRetention < 0 {
		return fmt.Errorf("SECURITY_ALERT_RETENTION must not be negative")
	}
	return nil
}

// validateACL rejects duplicate static entries
func (c *Config) validateACL() error {
	seen := make(map[uint8]bool, len(c.Security.ACL))
	for _, e := range c.Security.ACL {
		if seen[e.Address] {
			return fmt.Errorf("security.acl has duplicate entry for address 0x%02X", e.Address)
		}
		seen[e.Address] = true
	}
	return nil
}

// validateNATS validates NATS configuration (only if enabled)
func (c *Config) validateNATS() error {
	if !c.NATS.Enabled {
		return nil
	}

	if err := validateNATSURL(c.NATS.URL); err != nil {
		return fmt.Errorf("NATS_URL is invalid: %w", err)
	}
	if c.NATS.EmbeddedServer && c.NATS.StoreDir == "" {
		return fmt.Errorf("NATS_STORE_DIR is required for the embedded server")
	}
	if strings.TrimSpace(c.NATS.SubjectPrefix) == "" {
		return fmt.Errorf("NATS_SUBJECT_PREFIX is required")
	}
	if c.NATS.PublishRate <= 0 || c.NATS.PublishBurst < 1 {
		return fmt.Errorf("NATS_PUBLISH_RATE and NATS_PUBLISH_BURST must be positive")
	}
	if c.NATS.BreakerFailureRatio <= 0 || c.NATS.BreakerFailureRatio > 1 {
		return fmt.Errorf("NATS_BREAKER_FAILURE_RATIO must be in (0, 1]")
	}
	return nil
}

// validateNATSURL validates that the NATS URL is properly formatted
// Supports: nats://, tls://, and ws:// schemes with IP addresses/hostnames and optional ports
func validateNATSURL(rawURL string) error {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("failed to parse URL: %w", err)
	}

	validSchemes := map[string]bool{"nats": true, "tls": true, "ws": true, "wss": true}
	if !validSchemes[parsedURL.Scheme] {
		return fmt.Errorf("scheme must be nats, tls, ws, or wss, got: %s", parsedURL.Scheme)
	}

	if parsedURL.Host == "" {
		return fmt.Errorf("host is required (e.g., localhost:4222, 192.168.1.100:4222)")
	}

	return nil
}

// validateServer validates server configuration
func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}
	if !c.Server.RateLimitDisabled {
		if c.Server.RateLimitRequests < 1 {
			return fmt.Errorf("RATE_LIMIT_REQUESTS must be at least 1")
		}
		if c.Server.RateLimitWindow <= 0 {
			return fmt.Errorf("RATE_LIMIT_WINDOW must be positive")
		}
	}
	return nil
}

// validateLogging validates logging configuration
func (c *Config) validateLogging() error {
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	switch c.Logging.Format {
	case "json", "console":
		return nil
	default:
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
}

// HasWildcardCORS reports whether the API accepts any origin.
func (c *Config) HasWildcardCORS() bool {
	for _, origin := range c.Server.CORSOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}
