// RVGuard - RV-C CAN Bus Security Monitor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rvguard

package config

import (
	"time"

	"github.com/tomtom215/rvguard/internal/security"
)

// DetectorConfig converts the security section into detector settings.
// Validate must have succeeded first.
func (c *Config) DetectorConfig() security.Config {
	s := c.Security
	policy, err := security.ParseACLPolicy(s.DefaultPolicy)
	if err != nil {
		policy = security.PolicyAllow
	}

	cfg := security.DefaultConfig()
	cfg.DefaultPolicy = policy
	cfg.Storm = security.StormConfig{
		WindowSeconds:          s.StormWindowSeconds,
		BaseThreshold:          s.StormBaseThreshold,
		AdaptiveThreshold:      s.AdaptiveThreshold,
		BaselineSampleInterval: s.BaselineSampleInterval.Seconds(),
	}
	cfg.Pattern = security.PatternConfig{
		WindowSeconds: s.ScanWindowSeconds,
		PGNThreshold:  s.ScanPGNThreshold,
	}
	cfg.BucketIdleTimeout = s.BucketIdleTimeout
	cfg.PatternIdleTimeout = s.PatternIdleTimeout
	cfg.CleanupInterval = s.CleanupInterval
	cfg.MaxAlerts = s.MaxAlerts
	cfg.AlertRetention = s.AlertRetention
	if c.NATS.PublishTimeout > 0 {
		cfg.PublishTimeout = c.NATS.PublishTimeout
	}
	return cfg
}

// ACLEntries converts the static ACL list into detector entries.
func (c *Config) ACLEntries() []*security.SourceACLEntry {
	entries := make([]*security.SourceACLEntry, 0, len(c.Security.ACL))
	for _, e := range c.Security.ACL {
		entry := security.NewSourceACLEntry(e.Address, e.AllowedPGNs, e.DeniedPGNs)
		entry.IsWhitelisted = e.Whitelisted
		entry.Description = e.Description
		entries = append(entries, entry)
	}
	return entries
}

// ShutdownGrace is how long in-flight work may take once shutdown starts.
func (c *Config) ShutdownGrace() time.Duration {
	return c.Server.Timeout
}
