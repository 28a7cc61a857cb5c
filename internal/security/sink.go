// RVGuard - RV-C CAN Bus Security Monitor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rvguard

package security

import (
	"context"
	"fmt"
	"strings"
)

// SourceComponent identifies this detector in published security events.
const SourceComponent = "anomaly_detector"

// SecurityEvent is the envelope delivered to an EventSink for every alert.
type SecurityEvent struct {
	EventID         string                 `json:"event_id"`
	SourceComponent string                 `json:"source_component"`
	EventType       string                 `json:"event_type"`
	Severity        Severity               `json:"severity"`
	Title           string                 `json:"title"`
	Description     string                 `json:"description"`
	Timestamp       float64                `json:"timestamp"`
	Payload         map[string]interface{} `json:"payload"`
}

// EventSink receives security events. Implementations may block; the
// Detector always calls Publish off the analysis path.
type EventSink interface {
	Publish(ctx context.Context, event *SecurityEvent) error
}

// SinkConnector attempts to obtain an EventSink. It should return
// ErrSinkUnavailable (possibly wrapped) while the backend is unreachable.
type SinkConnector func(ctx context.Context) (EventSink, error)

// AlertBroadcaster pushes alerts to live operator sessions.
type AlertBroadcaster interface {
	BroadcastJSON(messageType string, data interface{})
}

// AlertMessageType is the broadcast message type used for alerts.
const AlertMessageType = "security_alert"

// NewSecurityEvent builds the sink envelope for an alert. The payload
// carries the source address and PGN in decimal and hex form plus the
// alert evidence.
func NewSecurityEvent(a *SecurityAlert) *SecurityEvent {
	payload := map[string]interface{}{
		"alert_id":           a.AlertID,
		"anomaly_type":       string(a.AnomalyType),
		"source_address":     a.SourceAddress,
		"source_address_hex": hexAddr(a.SourceAddress),
	}
	if a.PGN != nil {
		payload["pgn"] = *a.PGN
		payload["pgn_hex"] = hexPGN(*a.PGN)
	}
	if a.MitigationAction != "" {
		payload["mitigation_action"] = a.MitigationAction
	}
	for k, v := range a.Evidence {
		if _, taken := payload[k]; !taken {
			payload[k] = v
		}
	}

	return &SecurityEvent{
		EventID:         a.AlertID,
		SourceComponent: SourceComponent,
		EventType:       string(a.AnomalyType),
		Severity:        a.Severity,
		Title:           alertTitle(a),
		Description:     a.Description,
		Timestamp:       a.Timestamp,
		Payload:         payload,
	}
}

func alertTitle(a *SecurityAlert) string {
	words := strings.Split(string(a.AnomalyType), "_")
	for i, w := range words {
		switch w {
		case "acl", "pgn":
			words[i] = strings.ToUpper(w)
		default:
			if w != "" {
				words[i] = strings.ToUpper(w[:1]) + w[1:]
			}
		}
	}
	return fmt.Sprintf("%s from %s", strings.Join(words, " "), hexAddr(a.SourceAddress))
}
