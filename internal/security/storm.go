// RVGuard - RV-C CAN Bus Security Monitor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rvguard

package security

import (
	"math"
	"sort"
)

// StormConfig configures the broadcast storm detector.
type StormConfig struct {
	// WindowSeconds is the sliding window used to compute the bus rate (default: 5).
	WindowSeconds float64 `json:"window_seconds"`

	// BaseThreshold is the minimum messages/sec that counts as a storm (default: 1000).
	BaseThreshold float64 `json:"base_threshold"`

	// AdaptiveThreshold raises the threshold above BaseThreshold when the
	// observed baseline is higher.
	AdaptiveThreshold bool `json:"adaptive_threshold"`

	// BaselineSampleInterval is the minimum spacing in seconds between baseline
	// samples. Zero samples on every message.
	BaselineSampleInterval float64 `json:"baseline_sample_interval"`
}

// DefaultStormConfig returns sensible defaults.
func DefaultStormConfig() StormConfig {
	return StormConfig{
		WindowSeconds:          5.0,
		BaseThreshold:          1000.0,
		AdaptiveThreshold:      true,
		BaselineSampleInterval: 1.0,
	}
}

const (
	globalLogCapacity   = 10000
	sublogCapacity      = 1000
	baselineCapacity    = 100
	minBaselineSamples  = 10
	stddevMultiplier    = 3.0
	contributorFraction = 0.1
)

// StormDetector tracks the bus-wide message rate and flags broadcast storms.
// It is not safe for concurrent use; the Detector serializes access.
type StormDetector struct {
	cfg StormConfig

	global    *timeLog
	perPGN    map[uint32]*timeLog
	perSource map[uint8]*timeLog

	baseline     *sampleRing
	lastSampleAt float64
	sampled      bool

	threshold   float64
	currentRate float64

	inStorm        bool
	stormStartTime float64
	stormPGNs      []uint32
	stormSources   []uint8
	stormsStarted  int64
}

// NewStormDetector creates a detector with the given configuration.
// Zero values in cfg fall back to DefaultStormConfig.
func NewStormDetector(cfg StormConfig) *StormDetector {
	def := DefaultStormConfig()
	if cfg.WindowSeconds <= 0 {
		cfg.WindowSeconds = def.WindowSeconds
	}
	if cfg.BaseThreshold <= 0 {
		cfg.BaseThreshold = def.BaseThreshold
	}
	if cfg.BaselineSampleInterval < 0 {
		cfg.BaselineSampleInterval = 0
	}
	return &StormDetector{
		cfg:       cfg,
		global:    newTimeLog(globalLogCapacity),
		perPGN:    make(map[uint32]*timeLog),
		perSource: make(map[uint8]*timeLog),
		baseline:  newSampleRing(baselineCapacity),
		threshold: cfg.BaseThreshold,
	}
}

// Observe records a message and reports whether a storm is ongoing.
func (s *StormDetector) Observe(timestamp float64, source uint8, pgn uint32) bool {
	pgnLog, ok := s.perPGN[pgn]
	if !ok {
		pgnLog = newTimeLog(sublogCapacity)
		s.perPGN[pgn] = pgnLog
	}
	srcLog, ok := s.perSource[source]
	if !ok {
		srcLog = newTimeLog(sublogCapacity)
		s.perSource[source] = srcLog
	}

	s.global.push(timestamp)
	pgnLog.push(timestamp)
	srcLog.push(timestamp)

	cutoff := timestamp - s.cfg.WindowSeconds
	s.global.evictBefore(cutoff)
	pgnLog.evictBefore(cutoff)
	srcLog.evictBefore(cutoff)

	s.currentRate = float64(s.global.len()) / s.cfg.WindowSeconds

	if !s.inStorm && s.cfg.AdaptiveThreshold && s.shouldSample(timestamp) {
		s.baseline.push(s.currentRate)
		s.lastSampleAt = timestamp
		s.sampled = true
		if s.baseline.len() >= minBaselineSamples {
			samples := s.baseline.values()
			adaptive := mean(samples) + stddevMultiplier*sampleStddev(samples)
			s.threshold = math.Max(s.cfg.BaseThreshold, adaptive)
		}
	}

	stormNow := s.currentRate > s.threshold

	switch {
	case stormNow && !s.inStorm:
		s.inStorm = true
		s.stormStartTime = timestamp
		s.stormsStarted++
		s.identifyContributors(cutoff)
	case !stormNow && s.inStorm:
		s.inStorm = false
		s.stormStartTime = 0
		s.stormPGNs = nil
		s.stormSources = nil
	}

	return stormNow
}

func (s *StormDetector) shouldSample(timestamp float64) bool {
	if s.cfg.BaselineSampleInterval == 0 || !s.sampled {
		return true
	}
	return timestamp-s.lastSampleAt >= s.cfg.BaselineSampleInterval
}

// identifyContributors records every PGN and source whose windowed rate
// exceeds a tenth of the active threshold.
func (s *StormDetector) identifyContributors(cutoff float64) {
	limit := contributorFraction * s.threshold

	s.stormPGNs = s.stormPGNs[:0]
	for pgn, l := range s.perPGN {
		l.evictBefore(cutoff)
		if float64(l.len())/s.cfg.WindowSeconds > limit {
			s.stormPGNs = append(s.stormPGNs, pgn)
		}
	}
	sort.Slice(s.stormPGNs, func(i, j int) bool { return s.stormPGNs[i] < s.stormPGNs[j] })

	s.stormSources = s.stormSources[:0]
	for src, l := range s.perSource {
		l.evictBefore(cutoff)
		if float64(l.len())/s.cfg.WindowSeconds > limit {
			s.stormSources = append(s.stormSources, src)
		}
	}
	sort.Slice(s.stormSources, func(i, j int) bool { return s.stormSources[i] < s.stormSources[j] })
}

// Prune evicts expired timestamps from every sublog and drops the empty ones.
// It returns the number of sublogs removed.
func (s *StormDetector) Prune(now float64) int {
	cutoff := now - s.cfg.WindowSeconds
	removed := 0
	for pgn, l := range s.perPGN {
		l.evictBefore(cutoff)
		if l.len() == 0 {
			delete(s.perPGN, pgn)
			removed++
		}
	}
	for src, l := range s.perSource {
		l.evictBefore(cutoff)
		if l.len() == 0 {
			delete(s.perSource, src)
			removed++
		}
	}
	s.global.evictBefore(cutoff)
	return removed
}

// InStorm reports whether a storm is ongoing.
func (s *StormDetector) InStorm() bool {
	return s.inStorm
}

// Threshold returns the active threshold in messages/sec.
func (s *StormDetector) Threshold() float64 {
	return s.threshold
}

// CurrentRate returns the rate computed on the last observation.
func (s *StormDetector) CurrentRate() float64 {
	return s.currentRate
}

// Reset clears all logs, baseline samples, and storm state.
func (s *StormDetector) Reset() {
	s.global.reset()
	s.perPGN = make(map[uint32]*timeLog)
	s.perSource = make(map[uint8]*timeLog)
	s.baseline.reset()
	s.sampled = false
	s.lastSampleAt = 0
	s.threshold = s.cfg.BaseThreshold
	s.currentRate = 0
	s.inStorm = false
	s.stormStartTime = 0
	s.stormPGNs = nil
	s.stormSources = nil
	s.stormsStarted = 0
}

// StormStatus is a point-in-time view of the storm detector.
type StormStatus struct {
	InStorm           bool       `json:"in_storm"`
	StormStartTime    *float64   `json:"storm_start_time,omitempty"`
	StormPGNs         []uint32   `json:"storm_pgns"`
	StormSources      SourceList `json:"storm_sources"`
	CurrentRate       float64    `json:"current_rate"`
	Threshold         float64    `json:"threshold"`
	BaseThreshold     float64    `json:"base_threshold"`
	WindowSeconds     float64    `json:"window_seconds"`
	AdaptiveThreshold bool       `json:"adaptive_threshold"`
	BaselineSamples   int        `json:"baseline_samples"`
	TrackedPGNs       int        `json:"tracked_pgns"`
	TrackedSources    int        `json:"tracked_sources"`
	StormsStarted     int64      `json:"storms_started"`
}

// Status returns a copy of the detector state.
func (s *StormDetector) Status() StormStatus {
	st := StormStatus{
		InStorm:           s.inStorm,
		StormPGNs:         append([]uint32{}, s.stormPGNs...),
		StormSources:      append(SourceList{}, s.stormSources...),
		CurrentRate:       s.currentRate,
		Threshold:         s.threshold,
		BaseThreshold:     s.cfg.BaseThreshold,
		WindowSeconds:     s.cfg.WindowSeconds,
		AdaptiveThreshold: s.cfg.AdaptiveThreshold,
		BaselineSamples:   s.baseline.len(),
		TrackedPGNs:       len(s.perPGN),
		TrackedSources:    len(s.perSource),
		StormsStarted:     s.stormsStarted,
	}
	if s.inStorm {
		start := s.stormStartTime
		st.StormStartTime = &start
	}
	return st
}
