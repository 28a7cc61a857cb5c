// RVGuard - RV-C CAN Bus Security Monitor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rvguard

package canbus

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParseCandumpLine(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		line    string
		wantID  uint32
		wantExt bool
		wantRTR bool
		data    []byte
		wantErr bool
	}{
		{"extended", "(1700000000.250000) can0 19FEF142#0102AABB", 0x19FEF142, true, false, []byte{1, 2, 0xAA, 0xBB}, false},
		{"standard", "(1700000000.000000) vcan0 123#DEADBEEF", 0x123, false, false, []byte{0xDE, 0xAD, 0xBE, 0xEF}, false},
		{"empty data", "(1.0) can0 18FEF100#", 0x18FEF100, true, false, []byte{}, false},
		{"dotted data", "(1.0) can0 18FEF100#01.02", 0x18FEF100, true, false, []byte{1, 2}, false},
		{"rtr", "(1.0) can0 18EAFF00#R", 0x18EAFF00, true, true, []byte{}, false},
		{"fd rejected", "(1.0) can0 123##1AA", 0, false, false, nil, true},
		{"missing hash", "(1.0) can0 123", 0, false, false, nil, true},
		{"bad timestamp", "1.0 can0 123#00", 0, false, false, nil, true},
		{"bad id", "(1.0) can0 XYZ#00", 0, false, false, nil, true},
		{"bad data", "(1.0) can0 123#0G", 0, false, false, nil, true},
		{"too long", "(1.0) can0 123#000102030405060708", 0, false, false, nil, true},
		{"too few fields", "(1.0) can0", 0, false, false, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f, err := ParseCandumpLine(tt.line)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseCandumpLine(%q) error = %v, wantErr %v", tt.line, err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedLine) {
					t.Errorf("error %v should wrap ErrMalformedLine", err)
				}
				return
			}
			if f.ID != tt.wantID || f.Extended != tt.wantExt || f.RTR != tt.wantRTR {
				t.Errorf("frame = %+v", f)
			}
			if string(f.Data) != string(tt.data) {
				t.Errorf("Data = %X, want %X", f.Data, tt.data)
			}
		})
	}
}

func TestParseCandumpLine_Timestamp(t *testing.T) {
	t.Parallel()
	f, err := ParseCandumpLine("(1700000000.250000) can0 19FEF142#00")
	if err != nil {
		t.Fatal(err)
	}
	want := time.Unix(1700000000, 250_000_000)
	if !f.Timestamp.Equal(want) {
		t.Errorf("Timestamp = %v, want %v", f.Timestamp, want)
	}
	if f.Interface != "can0" {
		t.Errorf("Interface = %q", f.Interface)
	}
}

func TestReplaySource(t *testing.T) {
	t.Parallel()

	log := strings.Join([]string{
		"# captured on the coach bus",
		"(1.000000) can0 19FEF142#01",
		"",
		"garbage line",
		"(2.000000) can0 19FFB080#0203",
	}, "\n")

	src := NewReplaySource("test.log", strings.NewReader(log))
	ctx := context.Background()

	f, err := src.ReadFrame(ctx)
	if err != nil || f.ID != 0x19FEF142 {
		t.Fatalf("first frame = %+v, %v", f, err)
	}

	_, err = src.ReadFrame(ctx)
	if !errors.Is(err, ErrMalformedLine) || !strings.Contains(err.Error(), "test.log:4") {
		t.Fatalf("second read error = %v, want malformed line 4", err)
	}

	f, err = src.ReadFrame(ctx)
	if err != nil || f.ID != 0x19FFB080 {
		t.Fatalf("third frame = %+v, %v", f, err)
	}

	if _, err := src.ReadFrame(ctx); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF, got %v", err)
	}

	if err := src.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := src.ReadFrame(ctx); !errors.Is(err, ErrSourceClosed) {
		t.Errorf("after close err = %v, want ErrSourceClosed", err)
	}
}

func TestReplaySource_CancelledContext(t *testing.T) {
	t.Parallel()
	src := NewReplaySource("x", strings.NewReader("(1.0) can0 123#00\n"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := src.ReadFrame(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestOpenReplay(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "capture.log")
	if err := os.WriteFile(path, []byte("(1.0) can0 19FEF142#01\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	src, err := OpenReplay(path)
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	if src.Name() != path {
		t.Errorf("Name() = %q", src.Name())
	}
	if _, err := src.ReadFrame(context.Background()); err != nil {
		t.Errorf("ReadFrame: %v", err)
	}

	if _, err := OpenReplay(filepath.Join(t.TempDir(), "missing.log")); err == nil {
		t.Error("expected error for missing file")
	}
}
