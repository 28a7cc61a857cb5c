// RVGuard - RV-C CAN Bus Security Monitor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rvguard

package security

import (
	"fmt"
	"sort"
)

// PatternConfig configures reconnaissance detection.
type PatternConfig struct {
	// WindowSeconds is how long a source's PGN set accumulates before reset (default: 60).
	WindowSeconds float64 `json:"window_seconds"`

	// PGNThreshold is the number of distinct PGNs a source may touch in one
	// window before a scanning alert is raised (default: 50).
	PGNThreshold int `json:"pgn_threshold"`
}

// DefaultPatternConfig returns sensible defaults.
func DefaultPatternConfig() PatternConfig {
	return PatternConfig{
		WindowSeconds: 60.0,
		PGNThreshold:  50,
	}
}

const scanSamplePGNs = 10

type patternEntry struct {
	pgnsSeen    map[uint32]struct{}
	windowStart float64
	lastSeen    float64
}

// PatternTracker detects sources touching an unusually wide range of PGNs.
// It is not safe for concurrent use; the Detector serializes access.
type PatternTracker struct {
	cfg     PatternConfig
	entries map[uint8]*patternEntry
}

// NewPatternTracker creates a tracker. Zero values fall back to DefaultPatternConfig.
func NewPatternTracker(cfg PatternConfig) *PatternTracker {
	def := DefaultPatternConfig()
	if cfg.WindowSeconds <= 0 {
		cfg.WindowSeconds = def.WindowSeconds
	}
	if cfg.PGNThreshold <= 0 {
		cfg.PGNThreshold = def.PGNThreshold
	}
	return &PatternTracker{
		cfg:     cfg,
		entries: make(map[uint8]*patternEntry),
	}
}

// Observe records that source sent pgn at now. It returns a PGN scanning
// alert (without AlertID) when the source's distinct PGN count exceeds the
// threshold, after which the source's set starts over.
func (p *PatternTracker) Observe(source uint8, pgn uint32, now float64) *SecurityAlert {
	entry, ok := p.entries[source]
	if !ok {
		entry = &patternEntry{
			pgnsSeen:    make(map[uint32]struct{}),
			windowStart: now,
		}
		p.entries[source] = entry
	}
	entry.lastSeen = now

	if now-entry.windowStart > p.cfg.WindowSeconds {
		entry.pgnsSeen = make(map[uint32]struct{})
		entry.windowStart = now
	}

	entry.pgnsSeen[pgn] = struct{}{}
	if len(entry.pgnsSeen) <= p.cfg.PGNThreshold {
		return nil
	}

	count := len(entry.pgnsSeen)
	samples := sortedPGNs(entry.pgnsSeen)
	if len(samples) > scanSamplePGNs {
		samples = samples[:scanSamplePGNs]
	}
	sampleHex := make([]string, len(samples))
	for i, s := range samples {
		sampleHex[i] = hexPGN(s)
	}

	entry.pgnsSeen = make(map[uint32]struct{})

	return &SecurityAlert{
		Timestamp:     now,
		AnomalyType:   AnomalyPGNScanning,
		Severity:      SeverityMedium,
		SourceAddress: source,
		Description: fmt.Sprintf("Source %s accessed %d distinct PGNs within %.0fs",
			hexAddr(source), count, p.cfg.WindowSeconds),
		Evidence: map[string]interface{}{
			"pgn_count":       count,
			"time_window":     p.cfg.WindowSeconds,
			"sample_pgns":     samples,
			"sample_pgns_hex": sampleHex,
		},
	}
}

// EvictIdle removes entries whose last observation is before idleBefore.
func (p *PatternTracker) EvictIdle(idleBefore float64) int {
	removed := 0
	for src, e := range p.entries {
		if e.lastSeen < idleBefore {
			delete(p.entries, src)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked sources.
func (p *PatternTracker) Len() int {
	return len(p.entries)
}

// DistinctPGNs returns how many PGNs source has touched in its current window.
func (p *PatternTracker) DistinctPGNs(source uint8) int {
	if e, ok := p.entries[source]; ok {
		return len(e.pgnsSeen)
	}
	return 0
}

// Sources returns the tracked source addresses in ascending order.
func (p *PatternTracker) Sources() []uint8 {
	out := make([]uint8, 0, len(p.entries))
	for src := range p.entries {
		out = append(out, src)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Reset drops all tracked sources.
func (p *PatternTracker) Reset() {
	p.entries = make(map[uint8]*patternEntry)
}
