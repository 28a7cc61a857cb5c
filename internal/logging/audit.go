// RVGuard - RV-C CAN Bus Security Monitor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rvguard

package logging

import (
	"strconv"

	"github.com/rs/zerolog"
)

// AuditEvent is a management operation recorded in the audit trail.
type AuditEvent struct {
	// Event is the operation, e.g. "acl_updated" or "statistics_reset".
	Event string
	// RequestID ties the entry to the API request that caused it.
	RequestID string
	// RemoteAddr is the client address.
	RemoteAddr string
	// UserAgent is truncated before logging.
	UserAgent string
	// Success indicates whether the operation was applied.
	Success bool
	// Error is the failure reason when Success is false.
	Error string
	// Details are extra key/value pairs, e.g. the source address.
	Details map[string]string
}

// AuditLogger records management operations on the detector.
type AuditLogger struct {
	logger zerolog.Logger
}

// NewAuditLogger creates an audit logger on top of the global logger.
func NewAuditLogger() *AuditLogger {
	return &AuditLogger{
		logger: With().Str("component", "audit").Logger(),
	}
}

// NewAuditLoggerWithLogger creates an audit logger writing to logger.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewAuditLoggerWithLogger(logger zerolog.Logger) *AuditLogger {
	return &AuditLogger{
		logger: logger.With().Str("component", "audit").Logger(),
	}
}

// LogEvent writes one audit entry. Failed operations are logged at warn.
func (l *AuditLogger) LogEvent(event *AuditEvent) {
	e := l.logger.Info()
	status := "success"
	if !event.Success {
		e = l.logger.Warn()
		status = "failed"
	}
	e = e.Str("event", event.Event).Str("status", status)

	if event.RequestID != "" {
		e = e.Str("request_id", event.RequestID)
	}
	if event.RemoteAddr != "" {
		e = e.Str("remote_addr", event.RemoteAddr)
	}
	if event.UserAgent != "" {
		e = e.Str("user_agent", truncateString(event.UserAgent, 100))
	}
	if event.Error != "" && !event.Success {
		e = e.Str("error", truncateString(event.Error, 200))
	}
	for k, v := range event.Details {
		e = e.Str(k, truncateString(v, 200))
	}

	e.Msg("")
}

// LogACLUpdated records an ACL entry being added or replaced.
func (l *AuditLogger) LogACLUpdated(requestID, remoteAddr, sourceHex string, allowed, denied int) {
	l.LogEvent(&AuditEvent{
		Event:      "acl_updated",
		RequestID:  requestID,
		RemoteAddr: remoteAddr,
		Success:    true,
		Details: map[string]string{
			"source_address": sourceHex,
			"allowed_pgns":   strconv.Itoa(allowed),
			"denied_pgns":    strconv.Itoa(denied),
		},
	})
}

// LogACLRemoved records an ACL removal attempt.
func (l *AuditLogger) LogACLRemoved(requestID, remoteAddr, sourceHex string, existed bool) {
	ev := &AuditEvent{
		Event:      "acl_removed",
		RequestID:  requestID,
		RemoteAddr: remoteAddr,
		Success:    existed,
		Details:    map[string]string{"source_address": sourceHex},
	}
	if !existed {
		ev.Error = "no acl entry for source"
	}
	l.LogEvent(ev)
}

// LogPolicyChanged records a default policy change attempt.
func (l *AuditLogger) LogPolicyChanged(requestID, remoteAddr, policy string, err error) {
	ev := &AuditEvent{
		Event:      "default_policy_changed",
		RequestID:  requestID,
		RemoteAddr: remoteAddr,
		Success:    err == nil,
		Details:    map[string]string{"policy": policy},
	}
	if err != nil {
		ev.Error = err.Error()
	}
	l.LogEvent(ev)
}

// LogStatisticsReset records a statistics reset.
func (l *AuditLogger) LogStatisticsReset(requestID, remoteAddr string) {
	l.LogEvent(&AuditEvent{
		Event:      "statistics_reset",
		RequestID:  requestID,
		RemoteAddr: remoteAddr,
		Success:    true,
	})
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
