// RVGuard - RV-C CAN Bus Security Monitor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rvguard

/*
Package config provides centralized configuration management for RVGuard.

Configuration is loaded with Koanf in three layers, each overriding the last:

 1. Built-in defaults (defaultConfig)
 2. An optional YAML file: CONFIG_PATH, ./config.yaml or /etc/rvguard/config.yaml
 3. Environment variables mapped through an explicit table

# Sections

  - can: frame source (SocketCAN interface or candump replay file)
  - security: detector thresholds, maintenance timers and static ACL entries
  - nats: security event publication (rate cap, circuit breaker, embedded server)
  - server: management API listener, CORS and request rate limiting
  - logging: zerolog level, format and caller annotation

# Environment Variables

  - CAN_INTERFACE, CAN_REPLAY_FILE, CAN_BUFFER_SIZE, CAN_ENABLED
  - SECURITY_DEFAULT_POLICY: allow or deny for sources without an ACL entry
  - SECURITY_STORM_BASE_THRESHOLD, SECURITY_STORM_WINDOW_SECONDS, SECURITY_ADAPTIVE_THRESHOLD
  - SECURITY_SCAN_PGN_THRESHOLD, SECURITY_SCAN_WINDOW_SECONDS
  - NATS_ENABLED, NATS_URL, NATS_EMBEDDED, NATS_SUBJECT_PREFIX, NATS_PUBLISH_RATE
  - HTTP_HOST, HTTP_PORT, CORS_ORIGINS (comma-separated)
  - LOG_LEVEL, LOG_FORMAT, LOG_CALLER

Static ACL entries can only be supplied from the YAML file:

	security:
	  default_policy: deny
	  acl:
	    - address: 0x42
	      allowed_pgns: [0x1FEF1, 0x1FFB0]
	      description: thermostat
*/
package config
