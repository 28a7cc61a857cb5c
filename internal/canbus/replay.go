// RVGuard - RV-C CAN Bus Security Monitor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rvguard

package canbus

import (
	"bufio"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ErrMalformedLine is returned for candump lines that cannot be parsed.
var ErrMalformedLine = errors.New("malformed candump line")

// ReplaySource reads frames from a candump log file (candump -l format).
type ReplaySource struct {
	name    string
	closer  io.Closer
	scanner *bufio.Scanner
	line    int

	mu     sync.Mutex
	closed bool
}

// OpenReplay opens a candump log for replay.
func OpenReplay(path string) (*ReplaySource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open replay file: %w", err)
	}
	src := NewReplaySource(path, f)
	src.closer = f
	return src, nil
}

// NewReplaySource replays frames read from r.
func NewReplaySource(name string, r io.Reader) *ReplaySource {
	return &ReplaySource{
		name:    name,
		scanner: bufio.NewScanner(r),
	}
}

// ReadFrame returns the next frame. Blank lines and '#' comments are skipped.
// A malformed line yields an ErrMalformedLine error; the next call continues
// with the following line.
func (s *ReplaySource) ReadFrame(ctx context.Context) (Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for {
		if s.closed {
			return Frame{}, ErrSourceClosed
		}
		if err := ctx.Err(); err != nil {
			return Frame{}, err
		}
		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return Frame{}, fmt.Errorf("replay read error: %w", err)
			}
			return Frame{}, io.EOF
		}
		s.line++

		text := strings.TrimSpace(s.scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		f, err := ParseCandumpLine(text)
		if err != nil {
			return Frame{}, fmt.Errorf("%s:%d: %w", s.name, s.line, err)
		}
		return f, nil
	}
}

// Name returns the replay file name.
func (s *ReplaySource) Name() string { return s.name }

// Close releases the underlying file.
func (s *ReplaySource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

// ParseCandumpLine parses "(1700000000.123456) can0 19FEF142#0102AABB".
// Eight hex digit IDs are extended; three digit IDs are standard.
func ParseCandumpLine(line string) (Frame, error) {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return Frame{}, fmt.Errorf("%w: expected 3 fields, got %d", ErrMalformedLine, len(fields))
	}

	ts, err := parseCandumpTimestamp(fields[0])
	if err != nil {
		return Frame{}, err
	}

	idPart, dataPart, ok := strings.Cut(fields[2], "#")
	if !ok {
		return Frame{}, fmt.Errorf("%w: missing '#' in %q", ErrMalformedLine, fields[2])
	}
	if strings.HasPrefix(dataPart, "#") {
		return Frame{}, fmt.Errorf("%w: CAN FD frames are not supported", ErrMalformedLine)
	}

	id, err := strconv.ParseUint(idPart, 16, 32)
	if err != nil {
		return Frame{}, fmt.Errorf("%w: bad id %q", ErrMalformedLine, idPart)
	}

	f := Frame{
		Extended:  len(idPart) > 3,
		Timestamp: ts,
		Interface: fields[1],
	}
	if f.Extended {
		f.ID = uint32(id) & ExtendedIDMask
	} else {
		f.ID = uint32(id) & StandardIDMask
	}

	if strings.HasPrefix(strings.ToUpper(dataPart), "R") {
		f.RTR = true
		f.Data = []byte{}
		return f, nil
	}

	data, err := hex.DecodeString(strings.ReplaceAll(dataPart, ".", ""))
	if err != nil {
		return Frame{}, fmt.Errorf("%w: bad data %q", ErrMalformedLine, dataPart)
	}
	if len(data) > 8 {
		return Frame{}, fmt.Errorf("%w: %d data bytes", ErrMalformedLine, len(data))
	}
	f.Data = data
	return f, nil
}

func parseCandumpTimestamp(field string) (time.Time, error) {
	if len(field) < 3 || field[0] != '(' || field[len(field)-1] != ')' {
		return time.Time{}, fmt.Errorf("%w: bad timestamp %q", ErrMalformedLine, field)
	}
	secs, err := strconv.ParseFloat(field[1:len(field)-1], 64)
	if err != nil || secs < 0 {
		return time.Time{}, fmt.Errorf("%w: bad timestamp %q", ErrMalformedLine, field)
	}
	whole, frac := math.Modf(secs)
	return time.Unix(int64(whole), int64(math.Round(frac*1e6))*int64(time.Microsecond)), nil
}
