// RVGuard - RV-C CAN Bus Security Monitor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rvguard

package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

// TestDetectorCounters verifies each detector counter moves by exactly one.
func TestDetectorCounters(t *testing.T) {
	tests := []struct {
		name    string
		counter prometheus.Counter
		record  func()
	}{
		{"messages processed", MessagesProcessed, RecordMessageProcessed},
		{"messages blocked", MessagesBlocked, RecordMessageBlocked},
		{"rate limited", RateLimitedMessages, RecordRateLimited},
		{"nats publish", NATSMessagesPublished, RecordNATSPublish},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := testutil.ToFloat64(tt.counter)
			tt.record()
			if got := testutil.ToFloat64(tt.counter) - before; got != 1 {
				t.Errorf("counter delta = %v, want 1", got)
			}
		})
	}
}

// TestRecordSecurityAlert verifies alerts are split by type and severity labels.
func TestRecordSecurityAlert(t *testing.T) {
	storm := SecurityAlerts.WithLabelValues("broadcast_storm", "high")
	scan := SecurityAlerts.WithLabelValues("pgn_scanning", "medium")
	stormBefore := testutil.ToFloat64(storm)
	scanBefore := testutil.ToFloat64(scan)

	RecordSecurityAlert("broadcast_storm", "high")
	RecordSecurityAlert("broadcast_storm", "high")
	RecordSecurityAlert("pgn_scanning", "medium")

	if got := testutil.ToFloat64(storm) - stormBefore; got != 2 {
		t.Errorf("broadcast_storm delta = %v, want 2", got)
	}
	if got := testutil.ToFloat64(scan) - scanBefore; got != 1 {
		t.Errorf("pgn_scanning delta = %v, want 1", got)
	}
}

// TestSetStormState verifies the storm gauges.
func TestSetStormState(t *testing.T) {
	SetStormState(true, 1250)
	if got := testutil.ToFloat64(StormActive); got != 1 {
		t.Errorf("StormActive = %v, want 1", got)
	}
	if got := testutil.ToFloat64(StormThreshold); got != 1250 {
		t.Errorf("StormThreshold = %v, want 1250", got)
	}

	SetStormState(false, 1000)
	if got := testutil.ToFloat64(StormActive); got != 0 {
		t.Errorf("StormActive = %v, want 0", got)
	}
	if got := testutil.ToFloat64(StormThreshold); got != 1000 {
		t.Errorf("StormThreshold = %v, want 1000", got)
	}
}

func TestSetTrackedState(t *testing.T) {
	SetTrackedState(42, 7)
	if got := testutil.ToFloat64(TokenBuckets); got != 42 {
		t.Errorf("TokenBuckets = %v, want 42", got)
	}
	if got := testutil.ToFloat64(PatternSources); got != 7 {
		t.Errorf("PatternSources = %v, want 7", got)
	}
}

// TestRecordEventPublish verifies each result label is tracked separately.
func TestRecordEventPublish(t *testing.T) {
	for _, result := range []string{"success", "failure", "dropped"} {
		t.Run(result, func(t *testing.T) {
			c := EventPublish.WithLabelValues(result)
			before := testutil.ToFloat64(c)
			RecordEventPublish(result)
			if got := testutil.ToFloat64(c) - before; got != 1 {
				t.Errorf("delta = %v, want 1", got)
			}
		})
	}
}

func histogramCount(t *testing.T, h prometheus.Histogram) uint64 {
	t.Helper()
	var m dto.Metric
	if err := h.Write(&m); err != nil {
		t.Fatalf("write histogram: %v", err)
	}
	return m.GetHistogram().GetSampleCount()
}

func TestRecordMaintenance(t *testing.T) {
	before := histogramCount(t, MaintenanceDuration)
	RecordMaintenance(3 * time.Millisecond)
	RecordMaintenance(250 * time.Millisecond)
	if got := histogramCount(t, MaintenanceDuration) - before; got != 2 {
		t.Errorf("sample count delta = %d, want 2", got)
	}
}

func TestRecordCANFrame(t *testing.T) {
	frames := CANFramesReceived.WithLabelValues("replay")
	errs := CANReadErrors.WithLabelValues("replay")
	framesBefore := testutil.ToFloat64(frames)
	errsBefore := testutil.ToFloat64(errs)

	RecordCANFrame("replay")
	RecordCANFrame("replay")
	RecordCANReadError("replay")

	if got := testutil.ToFloat64(frames) - framesBefore; got != 2 {
		t.Errorf("frames delta = %v, want 2", got)
	}
	if got := testutil.ToFloat64(errs) - errsBefore; got != 1 {
		t.Errorf("errors delta = %v, want 1", got)
	}
}

// TestRecordAPIRequest tests API request metric recording
func TestRecordAPIRequest(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		endpoint   string
		statusCode string
		duration   time.Duration
	}{
		{"status GET", "GET", "/api/v1/security/status", "200", 2 * time.Millisecond},
		{"invalid alert filter", "GET", "/api/v1/security/alerts", "400", time.Millisecond},
		{"acl update", "PUT", "/api/v1/security/acl/{address}", "200", 3 * time.Millisecond},
		{"acl delete missing", "DELETE", "/api/v1/security/acl/{address}", "404", time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := APIRequestsTotal.WithLabelValues(tt.method, tt.endpoint, tt.statusCode)
			before := testutil.ToFloat64(c)
			RecordAPIRequest(tt.method, tt.endpoint, tt.statusCode, tt.duration)
			if got := testutil.ToFloat64(c) - before; got != 1 {
				t.Errorf("delta = %v, want 1", got)
			}
		})
	}
}

// TestTrackActiveRequest_RequestLifecycle simulates a realistic request lifecycle
func TestTrackActiveRequest_RequestLifecycle(t *testing.T) {
	before := testutil.ToFloat64(APIActiveRequests)

	for i := 0; i < 10; i++ {
		TrackActiveRequest(true)
	}
	if got := testutil.ToFloat64(APIActiveRequests) - before; got != 10 {
		t.Errorf("active delta after start = %v, want 10", got)
	}

	for i := 0; i < 10; i++ {
		TrackActiveRequest(false)
	}
	if got := testutil.ToFloat64(APIActiveRequests) - before; got != 0 {
		t.Errorf("active delta after finish = %v, want 0", got)
	}
}

// TestConcurrentMetricRecording verifies the record helpers are safe for concurrent use.
func TestConcurrentMetricRecording(t *testing.T) {
	before := testutil.ToFloat64(MessagesProcessed)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				RecordMessageProcessed()
				RecordMaintenance(time.Microsecond)
				RecordRateLimitHit("/api/v1/security/alerts")
			}
		}()
	}
	wg.Wait()

	if got := testutil.ToFloat64(MessagesProcessed) - before; got != 1000 {
		t.Errorf("MessagesProcessed delta = %v, want 1000", got)
	}
}

// TestMetricGathering tests that metrics can be gathered using testutil
func TestMetricGathering(t *testing.T) {
	RecordSecurityAlert("rate_limit_violation", "medium")
	RecordAPIRequest("GET", "/test", "200", time.Millisecond)

	problems, err := testutil.GatherAndLint(prometheus.DefaultGatherer)
	if err != nil {
		t.Logf("Lint errors (may be expected): %v", err)
	}
	for _, p := range problems {
		t.Logf("Metric lint problem: %s", p.Text)
	}
}
