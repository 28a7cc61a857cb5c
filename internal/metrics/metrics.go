// RVGuard - RV-C CAN Bus Security Monitor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rvguard

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Detector Metrics
	MessagesProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rvguard_messages_processed_total",
			Help: "Total number of CAN messages analyzed by the anomaly detector",
		},
	)

	MessagesBlocked = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rvguard_messages_blocked_total",
			Help: "Total number of CAN messages rejected by the source ACL",
		},
	)

	RateLimitedMessages = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rvguard_rate_limited_total",
			Help: "Total number of CAN messages that exceeded their token bucket",
		},
	)

	SecurityAlerts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rvguard_alerts_total",
			Help: "Total number of security alerts raised",
		},
		[]string{"anomaly_type", "severity"},
	)

	StormActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rvguard_storm_active",
			Help: "Whether a broadcast storm is in progress (1) or not (0)",
		},
	)

	StormThreshold = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rvguard_storm_threshold",
			Help: "Active broadcast storm threshold in messages per second",
		},
	)

	TokenBuckets = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rvguard_token_buckets",
			Help: "Number of live (source, PGN) token buckets after the last maintenance pass",
		},
	)

	PatternSources = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rvguard_pattern_sources",
			Help: "Number of sources tracked for PGN scanning after the last maintenance pass",
		},
	)

	EventPublish = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rvguard_event_publish_total",
			Help: "Security event publications by result",
		},
		[]string{"result"}, // result: "success", "failure", "dropped"
	)

	MaintenanceDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rvguard_maintenance_duration_seconds",
			Help:    "Duration of detector maintenance passes",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
	)

	// CAN Ingestion Metrics
	CANFramesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rvguard_can_frames_received_total",
			Help: "Total number of CAN frames received by source",
		},
		[]string{"source"}, // source: "socketcan", "replay"
	)

	CANReadErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rvguard_can_read_errors_total",
			Help: "Total number of CAN frame read errors by source",
		},
		[]string{"source"},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rvguard_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rvguard_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rvguard_api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rvguard_api_rate_limit_hits_total",
			Help: "Total number of API rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// WebSocket Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rvguard_websocket_connections",
			Help: "Current number of active WebSocket connections",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rvguard_websocket_messages_sent_total",
			Help: "Total number of WebSocket messages sent",
		},
	)

	WSErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rvguard_websocket_errors_total",
			Help: "Total number of WebSocket errors",
		},
		[]string{"error_type"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "rvguard_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rvguard_circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rvguard_circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// NATS Metrics
	NATSMessagesPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rvguard_nats_messages_published_total",
			Help: "Total number of messages published to NATS",
		},
	)
)

// RecordMessageProcessed counts one analyzed CAN message.
func RecordMessageProcessed() {
	MessagesProcessed.Inc()
}

// RecordMessageBlocked counts one ACL-rejected message.
func RecordMessageBlocked() {
	MessagesBlocked.Inc()
}

// RecordRateLimited counts one rate-limited message.
func RecordRateLimited() {
	RateLimitedMessages.Inc()
}

// RecordSecurityAlert counts one alert by type and severity.
func RecordSecurityAlert(anomalyType, severity string) {
	SecurityAlerts.WithLabelValues(anomalyType, severity).Inc()
}

// SetStormState updates the storm gauges.
func SetStormState(active bool, threshold float64) {
	if active {
		StormActive.Set(1)
	} else {
		StormActive.Set(0)
	}
	StormThreshold.Set(threshold)
}

// SetTrackedState updates the detector memory gauges.
func SetTrackedState(buckets, patternSources int) {
	TokenBuckets.Set(float64(buckets))
	PatternSources.Set(float64(patternSources))
}

// RecordEventPublish counts a sink publication result.
func RecordEventPublish(result string) {
	EventPublish.WithLabelValues(result).Inc()
}

// RecordMaintenance observes one maintenance pass.
func RecordMaintenance(duration time.Duration) {
	MaintenanceDuration.Observe(duration.Seconds())
}

// RecordCANFrame counts one received frame.
func RecordCANFrame(source string) {
	CANFramesReceived.WithLabelValues(source).Inc()
}

// RecordCANReadError counts one frame read failure.
func RecordCANReadError(source string) {
	CANReadErrors.WithLabelValues(source).Inc()
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordRateLimitHit counts an API request rejected by the rate limiter.
func RecordRateLimitHit(endpoint string) {
	APIRateLimitHits.WithLabelValues(endpoint).Inc()
}

// RecordNATSPublish counts one message published to NATS.
func RecordNATSPublish() {
	NATSMessagesPublished.Inc()
}

// SetCircuitBreakerState records the breaker state (0=closed, 1=half-open, 2=open).
func SetCircuitBreakerState(name string, state float64) {
	CircuitBreakerState.WithLabelValues(name).Set(state)
}

// RecordCircuitBreakerRequest counts one request through a breaker.
// result is one of "success", "failure", "rejected".
func RecordCircuitBreakerRequest(name, result string) {
	CircuitBreakerRequests.WithLabelValues(name, result).Inc()
}

// RecordCircuitBreakerTransition counts a breaker state change.
func RecordCircuitBreakerTransition(name, from, to string) {
	CircuitBreakerTransitions.WithLabelValues(name, from, to).Inc()
}

// SetWSConnections records the number of connected WebSocket clients.
func SetWSConnections(n int) {
	WSConnections.Set(float64(n))
}

// RecordWSMessageSent counts one message written to a WebSocket client.
func RecordWSMessageSent() {
	WSMessagesSent.Inc()
}

// RecordWSError counts a WebSocket failure by type.
func RecordWSError(errorType string) {
	WSErrors.WithLabelValues(errorType).Inc()
}
