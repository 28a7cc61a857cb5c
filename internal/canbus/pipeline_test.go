// RVGuard - RV-C CAN Bus Security Monitor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rvguard

package canbus

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/rvguard/internal/logging"
	"github.com/tomtom215/rvguard/internal/security"
)

func TestMain(m *testing.M) {
	logging.SetLevelString("error")
	os.Exit(m.Run())
}

type recordingAnalyzer struct {
	mu   sync.Mutex
	msgs []security.Message
}

func (a *recordingAnalyzer) AnalyzeMessage(msg security.Message) security.AnalysisResult {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.msgs = append(a.msgs, msg)
	return security.AnalysisResult{
		SourceAddress: security.SourceAddress(msg.ArbitrationID),
		PGN:           security.PGN(msg.ArbitrationID),
	}
}

func (a *recordingAnalyzer) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.msgs)
}

// blockingSource never yields a frame until ctx ends.
type blockingSource struct{ closed chan struct{} }

func (s *blockingSource) ReadFrame(ctx context.Context) (Frame, error) {
	<-ctx.Done()
	return Frame{}, ctx.Err()
}
func (s *blockingSource) Name() string { return "blocking" }
func (s *blockingSource) Close() error { close(s.closed); return nil }

// failingSource returns transient errors, then a permanent one.
type failingSource struct{ n int }

func (s *failingSource) ReadFrame(context.Context) (Frame, error) {
	s.n++
	if s.n <= 2 {
		return Frame{}, fmt.Errorf("transient %d", s.n)
	}
	return Frame{}, ErrSourceClosed
}
func (s *failingSource) Name() string { return "failing" }
func (s *failingSource) Close() error { return nil }

func replayOpener(lines ...string) SourceOpener {
	return func() (FrameSource, error) {
		return NewReplaySource("test", strings.NewReader(strings.Join(lines, "\n"))), nil
	}
}

func TestPipeline_ReplayInOrder(t *testing.T) {
	t.Parallel()

	analyzer := &recordingAnalyzer{}
	p := NewPipeline(replayOpener(
		"(1.0) can0 19FEF142#01",
		"(1.5) can0 19FFB080#02",
		"not a frame",
		"(2.0) can0 98FEF142#03",
	), analyzer, 2)

	if err := p.RunWithContext(context.Background()); err != nil {
		t.Fatalf("RunWithContext: %v", err)
	}

	if analyzer.count() != 3 {
		t.Fatalf("analyzed %d messages, want 3", analyzer.count())
	}
	if analyzer.msgs[0].Timestamp != 1.0 || analyzer.msgs[1].Timestamp != 1.5 {
		t.Errorf("timestamps out of order: %v, %v", analyzer.msgs[0].Timestamp, analyzer.msgs[1].Timestamp)
	}
	// The 0x98... line carries a flag bit above 29 bits.
	if got := analyzer.msgs[2].ArbitrationID; got != 0x18FEF142 {
		t.Errorf("masked id = 0x%X, want 0x18FEF142", got)
	}

	stats := p.Stats()
	if stats.FramesRead != 3 || stats.ReadErrors != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestPipeline_CancelStops(t *testing.T) {
	t.Parallel()

	src := &blockingSource{closed: make(chan struct{})}
	p := NewPipeline(func() (FrameSource, error) { return src, nil }, &recordingAnalyzer{}, 0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.RunWithContext(ctx) }()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("pipeline did not stop after cancel")
	}

	select {
	case <-src.closed:
	default:
		t.Error("source was not closed")
	}
}

func TestPipeline_PermanentError(t *testing.T) {
	t.Parallel()

	p := NewPipeline(func() (FrameSource, error) { return &failingSource{}, nil }, &recordingAnalyzer{}, 1)
	err := p.RunWithContext(context.Background())
	if !errors.Is(err, ErrSourceClosed) {
		t.Fatalf("err = %v, want ErrSourceClosed", err)
	}
	if got := p.Stats().ReadErrors; got != 2 {
		t.Errorf("ReadErrors = %d, want 2", got)
	}
}

func TestPipeline_OpenError(t *testing.T) {
	t.Parallel()

	p := NewPipeline(func() (FrameSource, error) { return nil, ErrUnsupported }, &recordingAnalyzer{}, 1)
	if err := p.RunWithContext(context.Background()); !errors.Is(err, ErrUnsupported) {
		t.Errorf("err = %v, want ErrUnsupported", err)
	}
}

func TestPipeline_WithDetector(t *testing.T) {
	t.Parallel()

	det := security.NewDetector(security.DefaultConfig())
	det.AddSourceToACL(security.NewSourceACLEntry(0x42, []uint32{0x1FFB0}, nil))

	// 0x42 sends a command PGN outside its allow list.
	p := NewPipeline(replayOpener(
		"(1.0) can0 19FFB042#00",
		"(1.1) can0 19FEF142#00",
	), det, 4)

	if err := p.RunWithContext(context.Background()); err != nil {
		t.Fatal(err)
	}

	stats := p.Stats()
	if stats.FramesRead != 2 || stats.FramesBlocked != 1 || stats.AlertsRaised != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if det.Statistics().ACLViolations != 1 {
		t.Errorf("ACLViolations = %d, want 1", det.Statistics().ACLViolations)
	}
}
