// RVGuard - RV-C CAN Bus Security Monitor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rvguard

package services

import (
	"context"
)

// DetectorRunner runs background maintenance until ctx is canceled.
// *security.Detector satisfies it.
type DetectorRunner interface {
	RunWithContext(ctx context.Context) error
}

// DetectorService supervises the detector's maintenance loop: idle bucket
// eviction, alert retention and event sink reconnection.
type DetectorService struct {
	detector DetectorRunner
	name     string
}

// NewDetectorService creates a DetectorService.
func NewDetectorService(detector DetectorRunner) *DetectorService {
	return &DetectorService{
		detector: detector,
		name:     "security-detector",
	}
}

// Serve implements suture.Service.
func (d *DetectorService) Serve(ctx context.Context) error {
	return d.detector.RunWithContext(ctx)
}

func (d *DetectorService) String() string {
	return d.name
}
