// RVGuard - RV-C CAN Bus Security Monitor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rvguard

package security

import "testing"

func TestPatternTracker_ScanningAlertAndReset(t *testing.T) {
	t.Parallel()

	p := NewPatternTracker(DefaultPatternConfig())
	const src = 0x99

	alerts := 0
	var alert *SecurityAlert
	for i := 0; i < 51; i++ {
		if a := p.Observe(src, uint32(0x1F000+i), float64(i)*0.1); a != nil {
			alerts++
			alert = a
		}
	}
	if alerts != 1 {
		t.Fatalf("alerts = %d, want 1", alerts)
	}
	if alert.AnomalyType != AnomalyPGNScanning || alert.Severity != SeverityMedium {
		t.Errorf("alert = %s/%s", alert.AnomalyType, alert.Severity)
	}
	if alert.SourceAddress != src {
		t.Errorf("source = 0x%02X", alert.SourceAddress)
	}
	if got := alert.Evidence["pgn_count"]; got != 51 {
		t.Errorf("pgn_count = %v, want 51", got)
	}
	if got := alert.Evidence["time_window"]; got != 60.0 {
		t.Errorf("time_window = %v, want 60", got)
	}
	samples, _ := alert.Evidence["sample_pgns"].([]uint32)
	if len(samples) != 10 || samples[0] != 0x1F000 || samples[9] != 0x1F009 {
		t.Errorf("sample_pgns = %v", samples)
	}
	if p.DistinctPGNs(src) != 0 {
		t.Errorf("set not reset after alert: %d", p.DistinctPGNs(src))
	}

	// The same PGNs again within the window: silent until the set exceeds 50 again.
	for i := 0; i < 50; i++ {
		if a := p.Observe(src, uint32(0x1F000+i), 10+float64(i)*0.1); a != nil {
			t.Fatalf("re-alerted after %d PGNs", i+1)
		}
	}
	if a := p.Observe(src, 0x1F000+50, 16); a == nil {
		t.Error("no alert when the set exceeded 50 again")
	}
}

func TestPatternTracker_WindowExpiry(t *testing.T) {
	t.Parallel()

	p := NewPatternTracker(DefaultPatternConfig())
	for i := 0; i < 40; i++ {
		if p.Observe(0x01, uint32(i), 0) != nil {
			t.Fatal("unexpected alert")
		}
	}
	// 61s later the window restarts, so 40 more PGNs stay under threshold.
	for i := 40; i < 80; i++ {
		if p.Observe(0x01, uint32(i), 61) != nil {
			t.Fatalf("alert after window reset at PGN %d", i)
		}
	}
	if got := p.DistinctPGNs(0x01); got != 40 {
		t.Errorf("distinct = %d, want 40", got)
	}
}

func TestPatternTracker_SourcesIndependent(t *testing.T) {
	t.Parallel()

	p := NewPatternTracker(PatternConfig{WindowSeconds: 60, PGNThreshold: 5})
	for i := 0; i < 5; i++ {
		p.Observe(0x01, uint32(i), 0)
		p.Observe(0x02, uint32(i), 0)
	}
	if p.Observe(0x01, 5, 1) == nil {
		t.Error("source 0x01 over threshold did not alert")
	}
	if p.DistinctPGNs(0x02) != 5 {
		t.Errorf("source 0x02 affected by 0x01: %d", p.DistinctPGNs(0x02))
	}
}

func TestPatternTracker_EvictIdle(t *testing.T) {
	t.Parallel()

	p := NewPatternTracker(DefaultPatternConfig())
	p.Observe(0x01, 1, 0)
	p.Observe(0x02, 1, 100)
	p.Observe(0x03, 1, 400)

	if n := p.EvictIdle(300); n != 2 {
		t.Errorf("evicted %d, want 2", n)
	}
	if got := p.Sources(); len(got) != 1 || got[0] != 0x03 {
		t.Errorf("sources = %v, want [3]", got)
	}

	p.Reset()
	if p.Len() != 0 {
		t.Errorf("Len after reset = %d", p.Len())
	}
}
