// RVGuard - RV-C CAN Bus Security Monitor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rvguard

package canbus

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tomtom215/rvguard/internal/logging"
	"github.com/tomtom215/rvguard/internal/metrics"
	"github.com/tomtom215/rvguard/internal/security"
)

const (
	defaultBufferSize = 1000

	// Consecutive read errors tolerated before the reader starts backing off.
	errorBackoffAfter = 3
	minErrorBackoff   = 10 * time.Millisecond
	maxErrorBackoff   = time.Second
)

// Analyzer consumes decoded messages. Satisfied by *security.Detector.
type Analyzer interface {
	AnalyzeMessage(msg security.Message) security.AnalysisResult
}

// SourceOpener opens a fresh frame source for each pipeline run.
type SourceOpener func() (FrameSource, error)

// PipelineStats holds pipeline counters.
type PipelineStats struct {
	FramesRead    uint64 `json:"frames_read"`
	FramesBlocked uint64 `json:"frames_blocked"`
	AlertsRaised  uint64 `json:"alerts_raised"`
	ReadErrors    uint64 `json:"read_errors"`
}

// Pipeline moves frames from a FrameSource into an Analyzer.
type Pipeline struct {
	open       SourceOpener
	analyzer   Analyzer
	bufferSize int

	framesRead    atomic.Uint64
	framesBlocked atomic.Uint64
	alertsRaised  atomic.Uint64
	readErrors    atomic.Uint64
}

// NewPipeline creates a pipeline. bufferSize <= 0 uses the default of 1000.
func NewPipeline(open SourceOpener, analyzer Analyzer, bufferSize int) *Pipeline {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	return &Pipeline{
		open:       open,
		analyzer:   analyzer,
		bufferSize: bufferSize,
	}
}

// Stats returns a snapshot of the pipeline counters.
func (p *Pipeline) Stats() PipelineStats {
	return PipelineStats{
		FramesRead:    p.framesRead.Load(),
		FramesBlocked: p.framesBlocked.Load(),
		AlertsRaised:  p.alertsRaised.Load(),
		ReadErrors:    p.readErrors.Load(),
	}
}

// RunWithContext opens the source and analyzes frames until the source is
// exhausted (nil), fails permanently (error), or ctx is cancelled (ctx.Err()).
func (p *Pipeline) RunWithContext(ctx context.Context) error {
	src, err := p.open()
	if err != nil {
		return fmt.Errorf("failed to open frame source: %w", err)
	}
	defer src.Close()

	log := logging.WithComponent("can-pipeline")
	log.Info().Str("source", src.Name()).Int("buffer", p.bufferSize).Msg("CAN ingestion started")

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	frames := make(chan Frame, p.bufferSize)
	readErr := make(chan error, 1)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(frames)
		readErr <- p.readLoop(runCtx, src, frames)
	}()

	for f := range frames {
		p.analyze(f)
	}
	wg.Wait()

	err = <-readErr
	stats := p.Stats()
	switch {
	case err == nil:
		log.Info().
			Str("source", src.Name()).
			Uint64("frames", stats.FramesRead).
			Uint64("alerts", stats.AlertsRaised).
			Msg("CAN source exhausted")
		return nil
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		log.Info().Str("source", src.Name()).Msg("CAN ingestion stopped")
		return ctx.Err()
	default:
		log.Error().Err(err).Str("source", src.Name()).Msg("CAN ingestion failed")
		return err
	}
}

// readLoop reads until EOF, a permanent error or cancellation. Sends block
// when the analyzer falls behind.
func (p *Pipeline) readLoop(ctx context.Context, src FrameSource, out chan<- Frame) error {
	consecutive := 0
	backoff := minErrorBackoff

	for {
		f, err := src.ReadFrame(ctx)
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
				return nil
			case ctx.Err() != nil:
				return ctx.Err()
			case errors.Is(err, ErrSourceClosed), errors.Is(err, ErrUnsupported):
				return err
			}

			p.readErrors.Add(1)
			metrics.RecordCANReadError(src.Name())
			logging.Warn().Err(err).Str("source", src.Name()).Msg("CAN frame read failed")

			consecutive++
			if consecutive > errorBackoffAfter {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(backoff):
				}
				backoff = min(backoff*2, maxErrorBackoff)
			}
			continue
		}
		consecutive = 0
		backoff = minErrorBackoff

		select {
		case out <- f:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (p *Pipeline) analyze(f Frame) {
	p.framesRead.Add(1)
	metrics.RecordCANFrame(f.Interface)

	result := p.analyzer.AnalyzeMessage(f.Message())
	if result.Blocked() {
		p.framesBlocked.Add(1)
	}
	if n := len(result.Anomalies); n > 0 {
		p.alertsRaised.Add(uint64(n))
		logging.Debug().
			Uint32("can_id", f.ID).
			Int("anomalies", n).
			Msg("frame raised anomalies")
	}
}
