// RVGuard - RV-C CAN Bus Security Monitor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rvguard

/*
Package metrics provides Prometheus metrics collection and export for observability.

All collectors are registered with the default registry through promauto and
exposed at /metrics by the API router:

	curl http://localhost:8765/metrics

# Available Metrics

Detector:
  - rvguard_messages_processed_total: messages analyzed
  - rvguard_messages_blocked_total: messages rejected by the source ACL
  - rvguard_rate_limited_total: messages over their token bucket
  - rvguard_alerts_total{anomaly_type,severity}: alerts raised
  - rvguard_storm_active, rvguard_storm_threshold: broadcast storm state
  - rvguard_token_buckets, rvguard_pattern_sources: tracked state after maintenance
  - rvguard_event_publish_total{result}: security event publications
  - rvguard_maintenance_duration_seconds: maintenance pass latency

Ingestion:
  - rvguard_can_frames_received_total{source}
  - rvguard_can_read_errors_total{source}

API, WebSocket, circuit breaker and NATS collectors follow the same naming.

# Usage

Record functions wrap the collectors so callers never deal with label order:

	metrics.RecordSecurityAlert("broadcast_storm", "high")
	metrics.SetStormState(true, 1250)

Tests read values with prometheus/testutil:

	before := testutil.ToFloat64(metrics.MessagesProcessed)
*/
package metrics
