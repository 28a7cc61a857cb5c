// RVGuard - RV-C CAN Bus Security Monitor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rvguard

package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/rvguard/internal/logging"
)

// IngestRunner feeds frames into the detector until its source is
// exhausted (nil) or ctx is canceled. *canbus.Pipeline satisfies it.
type IngestRunner interface {
	RunWithContext(ctx context.Context) error
}

// IngestService supervises the CAN ingestion pipeline. A live interface
// that fails is restarted by suture; a replay that reaches end of file is
// not restarted, so it is analyzed exactly once.
type IngestService struct {
	pipeline IngestRunner
	source   string
	name     string
}

// NewIngestService creates an IngestService. source names the interface
// or replay file for logging.
func NewIngestService(pipeline IngestRunner, source string) *IngestService {
	return &IngestService{
		pipeline: pipeline,
		source:   source,
		name:     "can-ingest",
	}
}

// Serve implements suture.Service.
func (s *IngestService) Serve(ctx context.Context) error {
	err := s.pipeline.RunWithContext(ctx)
	switch {
	case err == nil:
		logging.Info().Str("source", s.source).Msg("CAN source exhausted, ingest finished")
		return suture.ErrDoNotRestart
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("can ingest from %s: %w", s.source, err)
	}
}

func (s *IngestService) String() string {
	return s.name
}
