// RVGuard - RV-C CAN Bus Security Monitor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rvguard

package config

import (
	"testing"
	"time"

	"github.com/tomtom215/rvguard/internal/security"
)

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"deny policy", func(c *Config) { c.Security.DefaultPolicy = "DENY" }, false},
		{"invalid policy", func(c *Config) { c.Security.DefaultPolicy = "block" }, true},
		{"zero storm window", func(c *Config) { c.Security.StormWindowSeconds = 0 }, true},
		{"negative threshold", func(c *Config) { c.Security.StormBaseThreshold = -1 }, true},
		{"zero scan threshold", func(c *Config) { c.Security.ScanPGNThreshold = 0 }, true},
		{"zero sample interval", func(c *Config) { c.Security.BaselineSampleInterval = 0 }, false},
		{"negative sample interval", func(c *Config) { c.Security.BaselineSampleInterval = -time.Second }, true},
		{"zero max alerts", func(c *Config) { c.Security.MaxAlerts = 0 }, true},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }, true},
		{"port zero", func(c *Config) { c.Server.Port = 0 }, true},
		{"zero buffer", func(c *Config) { c.CAN.BufferSize = 0 }, true},
		{"missing interface", func(c *Config) { c.CAN.Interface = "" }, true},
		{"replay without interface", func(c *Config) {
			c.CAN.Interface = ""
			c.CAN.ReplayFile = "capture.log"
		}, false},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, true},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, true},
		{"nats bad scheme", func(c *Config) {
			c.NATS.Enabled = true
			c.NATS.URL = "http://localhost:4222"
		}, true},
		{"nats ok", func(c *Config) { c.NATS.Enabled = true }, false},
		{"nats bad ratio", func(c *Config) {
			c.NATS.Enabled = true
			c.NATS.BreakerFailureRatio = 1.5
		}, true},
		{"duplicate acl", func(c *Config) {
			c.Security.ACL = []ACLEntryConfig{{Address: 1}, {Address: 1}}
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDetectorConfig(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()
	cfg.Security.DefaultPolicy = "deny"
	cfg.Security.BaselineSampleInterval = 500 * time.Millisecond
	cfg.Security.ScanPGNThreshold = 25
	cfg.NATS.PublishTimeout = 2 * time.Second

	dc := cfg.DetectorConfig()
	if dc.DefaultPolicy != security.PolicyDeny {
		t.Errorf("DefaultPolicy = %q, want deny", dc.DefaultPolicy)
	}
	if dc.Storm.BaselineSampleInterval != 0.5 {
		t.Errorf("BaselineSampleInterval = %v, want 0.5", dc.Storm.BaselineSampleInterval)
	}
	if dc.Storm.BaseThreshold != 1000 || !dc.Storm.AdaptiveThreshold {
		t.Errorf("Storm = %+v", dc.Storm)
	}
	if dc.Pattern.PGNThreshold != 25 || dc.Pattern.WindowSeconds != 60 {
		t.Errorf("Pattern = %+v", dc.Pattern)
	}
	if dc.PublishTimeout != 2*time.Second {
		t.Errorf("PublishTimeout = %v, want 2s", dc.PublishTimeout)
	}
	if dc.AlertRetention != 24*time.Hour {
		t.Errorf("AlertRetention = %v, want 24h", dc.AlertRetention)
	}
}

func TestACLEntries(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()
	cfg.Security.ACL = []ACLEntryConfig{
		{Address: 0x42, AllowedPGNs: []uint32{0x1FEF1}, Description: "thermostat"},
		{Address: 0x80, DeniedPGNs: []uint32{0x1FEF0}, Whitelisted: true},
	}

	entries := cfg.ACLEntries()
	if len(entries) != 2 {
		t.Fatalf("len = %d, want 2", len(entries))
	}
	if _, ok := entries[0].AllowedPGNs[0x1FEF1]; !ok || entries[0].Description != "thermostat" {
		t.Errorf("entry 0 = %+v", entries[0])
	}
	if _, ok := entries[1].DeniedPGNs[0x1FEF0]; !ok || !entries[1].IsWhitelisted {
		t.Errorf("entry 1 = %+v", entries[1])
	}
}

func TestServerAddr(t *testing.T) {
	t.Parallel()
	s := ServerConfig{Host: "127.0.0.1", Port: 8765}
	if got := s.Addr(); got != "127.0.0.1:8765" {
		t.Errorf("Addr() = %q", got)
	}
}
