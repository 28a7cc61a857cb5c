// RVGuard - RV-C CAN Bus Security Monitor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rvguard

package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/tomtom215/rvguard/internal/security"
)

const (
	defaultAlertLimit = 100
	maxRequestBody    = 64 << 10
)

var errInvalidAddress = errors.New("address must be 0-255 in decimal or 0x-prefixed hex")

// ACLEntryRequest is the body of PUT /security/acl/{address}.
type ACLEntryRequest struct {
	AllowedPGNs []uint32 `json:"allowed_pgns" validate:"max=512,unique,dive,pgn"`
	DeniedPGNs  []uint32 `json:"denied_pgns" validate:"max=512,unique,dive,pgn"`
	Whitelisted bool     `json:"whitelisted"`
	Description string   `json:"description" validate:"max=256"`
}

// PolicyRequest is the body of PUT /security/acl/policy.
type PolicyRequest struct {
	Policy string `json:"policy" validate:"required"`
}

// AlertsQuery holds parsed /security/alerts query parameters.
type AlertsQuery struct {
	Since       *float64 `json:"since" validate:"omitempty,gte=0"`
	Severity    string   `json:"severity" validate:"omitempty,severity"`
	AnomalyType string   `json:"anomaly_type" validate:"omitempty,anomaly_type"`
	Limit       int      `json:"limit" validate:"gte=1,lte=10000"`
}

// parseSourceAddress accepts "0x42", "0X42" or "66".
func parseSourceAddress(raw string) (uint8, error) {
	raw = strings.TrimSpace(raw)
	base := 10
	if strings.HasPrefix(raw, "0x") || strings.HasPrefix(raw, "0X") {
		raw = raw[2:]
		base = 16
	}
	if raw == "" {
		return 0, errInvalidAddress
	}
	v, err := strconv.ParseUint(raw, base, 8)
	if err != nil {
		return 0, errInvalidAddress
	}
	return uint8(v), nil
}

// parseAlertsQuery reads the alert listing parameters. Only syntax is
// checked here; ranges and enums are left to validation.
func parseAlertsQuery(q url.Values) (AlertsQuery, error) {
	out := AlertsQuery{
		Severity:    strings.TrimSpace(q.Get("severity")),
		AnomalyType: strings.TrimSpace(q.Get("anomaly_type")),
		Limit:       defaultAlertLimit,
	}

	if s := q.Get("since"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return out, fmt.Errorf("since must be a number of seconds: %w", err)
		}
		out.Since = &v
	}
	if s := q.Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return out, fmt.Errorf("limit must be an integer: %w", err)
		}
		out.Limit = v
	}
	return out, nil
}

// Filter converts the query to a journal filter. The severity and anomaly
// type must already have been validated.
func (q AlertsQuery) Filter() (security.AlertFilter, error) {
	f := security.AlertFilter{Since: q.Since, Limit: q.Limit}
	if q.Severity != "" {
		sev, err := security.ParseSeverity(q.Severity)
		if err != nil {
			return f, err
		}
		f.Severity = &sev
	}
	if q.AnomalyType != "" {
		at, err := security.ParseAnomalyType(q.AnomalyType)
		if err != nil {
			return f, err
		}
		f.AnomalyType = &at
	}
	return f, nil
}

// remoteAddr returns the client address for audit records.
func remoteAddr(r *http.Request) string {
	return sanitizeLogValue(r.RemoteAddr)
}
