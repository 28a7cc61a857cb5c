// RVGuard - RV-C CAN Bus Security Monitor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rvguard

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/rvguard/internal/middleware"
	"github.com/tomtom215/rvguard/internal/security"
	"github.com/tomtom215/rvguard/internal/validation"
)

// HealthStatus is the body of GET /health.
type HealthStatus struct {
	Status           string  `json:"status"`
	UptimeSeconds    float64 `json:"uptime_seconds"`
	SinkConnected    bool    `json:"sink_connected"`
	StormActive      bool    `json:"storm_active"`
	WebSocketClients int     `json:"websocket_clients"`
}

// Health reports liveness. A disconnected sink degrades the status but
// the detector keeps working.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	st := h.detector.SecurityStatus()

	health := HealthStatus{
		Status:        "healthy",
		UptimeSeconds: time.Since(h.startTime).Seconds(),
		SinkConnected: st.Sink.Connected,
		StormActive:   st.Storm.InStorm,
	}
	if h.wsHub != nil {
		health.WebSocketClients = h.wsHub.GetClientCount()
	}

	respondSuccess(w, http.StatusOK, health)
}

// SecurityStatus returns the full detector snapshot.
func (h *Handler) SecurityStatus(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, http.StatusOK, h.detector.SecurityStatus())
}

// Alerts lists journaled alerts newest first.
func (h *Handler) Alerts(w http.ResponseWriter, r *http.Request) {
	q, err := parseAlertsQuery(r.URL.Query())
	if err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}
	if verr := validation.ValidateStruct(&q); verr != nil {
		apiErr := verr.ToAPIError()
		respondErrorWithDetails(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details, nil)
		return
	}

	filter, err := q.Filter()
	if err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}

	alerts := h.detector.Alerts(filter)
	if alerts == nil {
		alerts = []*security.SecurityAlert{}
	}
	count := len(alerts)

	respondJSON(w, http.StatusOK, &APIResponse{
		Status: "success",
		Data:   alerts,
		Metadata: Metadata{
			Timestamp: time.Now().UTC(),
			Count:     &count,
		},
	})
}

// ResetStatistics clears counters, buckets, alerts and pattern state.
// ACL entries survive.
func (h *Handler) ResetStatistics(w http.ResponseWriter, r *http.Request) {
	h.detector.ResetStatistics()
	h.audit.LogStatisticsReset(middleware.GetRequestID(r.Context()), remoteAddr(r))

	respondSuccess(w, http.StatusOK, map[string]string{"message": "statistics reset"})
}
