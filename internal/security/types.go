// RVGuard - RV-C CAN Bus Security Monitor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rvguard

package security

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrInvalidSeverity is returned when a severity string is not recognized.
	ErrInvalidSeverity = errors.New("invalid severity")

	// ErrInvalidAnomalyType is returned when an anomaly type string is not recognized.
	ErrInvalidAnomalyType = errors.New("invalid anomaly type")

	// ErrInvalidPolicy is returned when an ACL policy string is not recognized.
	ErrInvalidPolicy = errors.New("invalid acl policy")

	// ErrSinkUnavailable is returned by a SinkConnector that cannot reach its backend yet.
	ErrSinkUnavailable = errors.New("event sink unavailable")

	// ErrEventDropped is returned by an EventSink that shed an event under load.
	ErrEventDropped = errors.New("security event dropped")
)

// AnomalyType identifies the kind of anomaly an alert reports.
type AnomalyType string

const (
	AnomalyRateLimitViolation AnomalyType = "rate_limit_violation"
	AnomalyBroadcastStorm     AnomalyType = "broadcast_storm"
	AnomalySourceACLViolation AnomalyType = "source_acl_violation"
	AnomalySuspiciousPattern  AnomalyType = "suspicious_pattern"
	AnomalyUnknownSource      AnomalyType = "unknown_source"
	AnomalyMessageFlood       AnomalyType = "message_flood"
	AnomalyPGNScanning        AnomalyType = "pgn_scanning"
	AnomalyRapidAddressChange AnomalyType = "rapid_address_change"
)

// AllAnomalyTypes lists every anomaly type in declaration order.
var AllAnomalyTypes = []AnomalyType{
	AnomalyRateLimitViolation,
	AnomalyBroadcastStorm,
	AnomalySourceACLViolation,
	AnomalySuspiciousPattern,
	AnomalyUnknownSource,
	AnomalyMessageFlood,
	AnomalyPGNScanning,
	AnomalyRapidAddressChange,
}

// ParseAnomalyType converts a string to an AnomalyType.
// Matching is case-insensitive; unknown values return ErrInvalidAnomalyType.
func ParseAnomalyType(s string) (AnomalyType, error) {
	v := AnomalyType(strings.ToLower(strings.TrimSpace(s)))
	for _, t := range AllAnomalyTypes {
		if t == v {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidAnomalyType, s)
}

// Severity indicates the severity level of an alert.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// AllSeverities lists severities from lowest to highest.
var AllSeverities = []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}

// ParseSeverity converts a string to a Severity.
func ParseSeverity(s string) (Severity, error) {
	v := Severity(strings.ToLower(strings.TrimSpace(s)))
	for _, sev := range AllSeverities {
		if sev == v {
			return sev, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSeverity, s)
}

// Action records what the detector did in response to a message.
type Action string

const (
	ActionMessageBlocked Action = "message_blocked"
	ActionRateLimited    Action = "rate_limited"
	ActionStormDetected  Action = "storm_detected"
)

// SecurityAlert is an immutable record of a detected anomaly.
type SecurityAlert struct {
	AlertID          string                 `json:"alert_id"`
	Timestamp        float64                `json:"timestamp"`
	AnomalyType      AnomalyType            `json:"anomaly_type"`
	Severity         Severity               `json:"severity"`
	SourceAddress    uint8                  `json:"source_address"`
	PGN              *uint32                `json:"pgn,omitempty"`
	Description      string                 `json:"description"`
	Evidence         map[string]interface{} `json:"evidence"`
	MitigationAction string                 `json:"mitigation_action,omitempty"`
}

// Message is one CAN frame as seen by the detector.
//
// SourceOverride and PGNOverride replace the values derived from the
// arbitration ID when set.
type Message struct {
	ArbitrationID  uint32
	Data           []byte
	Timestamp      float64
	SourceOverride *uint8
	PGNOverride    *uint32
}

// AnalysisResult is the outcome of analyzing a single message.
type AnalysisResult struct {
	SourceAddress uint8            `json:"source_address"`
	PGN           uint32           `json:"pgn"`
	Anomalies     []*SecurityAlert `json:"anomalies"`
	ActionsTaken  []Action         `json:"actions_taken"`
}

// Blocked reports whether the message was rejected by the ACL stage.
func (r AnalysisResult) Blocked() bool {
	for _, a := range r.ActionsTaken {
		if a == ActionMessageBlocked {
			return true
		}
	}
	return false
}

// SourceAddress extracts the transmitting device address (low 8 bits).
func SourceAddress(arbitrationID uint32) uint8 {
	return uint8(arbitrationID & 0xFF)
}

// PGN extracts the 18-bit Parameter Group Number (bits 8-25).
func PGN(arbitrationID uint32) uint32 {
	return (arbitrationID >> 8) & 0x3FFFF
}

func pgnPtr(pgn uint32) *uint32 {
	return &pgn
}

func hexAddr(addr uint8) string {
	return fmt.Sprintf("0x%02X", addr)
}

func hexPGN(pgn uint32) string {
	return fmt.Sprintf("0x%05X", pgn)
}

// SourceList is a set of source addresses. It marshals as a JSON number
// array; a plain []uint8 would be encoded as base64.
type SourceList []uint8

// MarshalJSON implements json.Marshaler.
func (l SourceList) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	buf := make([]byte, 0, 2+len(l)*4)
	buf = append(buf, '[')
	for i, addr := range l {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = strconv.AppendUint(buf, uint64(addr), 10)
	}
	return append(buf, ']'), nil
}
