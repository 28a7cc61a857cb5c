// RVGuard - RV-C CAN Bus Security Monitor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rvguard

// Package security provides real-time anomaly detection for RV-C traffic on a
// CAN bus. It distinguishes normal operational traffic from unauthorized
// transmitters, message floods, broadcast storms, and PGN scanning.
//
// Detection Architecture:
//
//	CAN frame -> Detector.AnalyzeMessage -> SecurityAlert -> AlertJournal
//	                |                             |
//	                v                             v
//	  ACL -> RateLimiter -> StormDetector   EventSink / AlertBroadcaster
//	                        -> PatternTracker
//
// Each frame runs through the stages in order. An ACL denial short-circuits the
// remaining stages; every other stage always runs and may contribute alerts.
//
// Stages:
//   - AccessControl: per-source allow/deny PGN rules plus a default policy
//   - RateLimiter: token buckets keyed by (source address, PGN), sized by PGN class
//   - StormDetector: sliding-window bus rate with an adaptive threshold
//   - PatternTracker: distinct PGNs per source in a rolling window (scanning)
//
// Memory Bounds:
// All per-source and per-(source, PGN) state is evicted by Detector.Maintain,
// which RunWithContext calls every cleanup interval. The alert journal is a
// fixed-capacity ring.
//
// Time is expressed as float64 seconds (Unix epoch in production) throughout the
// package so that replayed captures and tests can drive the detector with
// synthetic timestamps.
package security
