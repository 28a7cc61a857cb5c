// RVGuard - RV-C CAN Bus Security Monitor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rvguard

package api

import (
	"time"

	"github.com/tomtom215/rvguard/internal/logging"
	"github.com/tomtom215/rvguard/internal/security"
	ws "github.com/tomtom215/rvguard/internal/websocket"
)

// SecurityManager is the detector surface the handlers drive.
// *security.Detector satisfies it.
type SecurityManager interface {
	SecurityStatus() security.SecurityStatus
	Alerts(filter security.AlertFilter) []*security.SecurityAlert
	ACL() security.ACLStatus
	ACLEntry(source uint8) (security.ACLEntryView, bool)
	AddSourceToACL(entry *security.SourceACLEntry)
	RemoveSourceFromACL(source uint8) bool
	SetDefaultACLPolicy(policy string) error
	ResetStatistics()
}

// Handler holds the dependencies of the HTTP handlers.
type Handler struct {
	detector    SecurityManager
	wsHub       *ws.Hub
	audit       *logging.AuditLogger
	corsOrigins []string
	startTime   time.Time
}

// NewHandler creates a Handler. hub may be nil, in which case the
// WebSocket endpoint answers 503.
func NewHandler(detector SecurityManager, hub *ws.Hub, corsOrigins []string) *Handler {
	return &Handler{
		detector:    detector,
		wsHub:       hub,
		audit:       logging.NewAuditLogger(),
		corsOrigins: corsOrigins,
		startTime:   time.Now(),
	}
}
