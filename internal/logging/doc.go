// RVGuard - RV-C CAN Bus Security Monitor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rvguard

// Package logging provides the global zerolog logger used across RVGuard.
//
// # Quick Start
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//
//	logging.Info().Str("interface", "can0").Msg("CAN reader started")
//	logging.Error().Err(err).Msg("failed to publish security event")
//
//	// Request-scoped fields added by the API middleware
//	logging.Ctx(ctx).Info().Msg("acl entry updated")
//
// # Configuration
//
// The logging section of the application config (or LOG_LEVEL, LOG_FORMAT,
// LOG_CALLER) selects the level, json or console output, and caller info.
//
// # Audit Trail
//
// AuditLogger records management operations (ACL changes, policy changes,
// statistics resets) under the "audit" component so they can be filtered
// from the high-volume alert stream.
//
// # Suture Integration
//
// NewSlogLogger bridges zerolog to log/slog for sutureslog:
//
//	handler := &sutureslog.Handler{Logger: logging.NewSlogLogger()}
//
// Always terminate log chains with .Msg() or .Send(); an unterminated event
// is never written.
package logging
