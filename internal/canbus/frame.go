// RVGuard - RV-C CAN Bus Security Monitor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rvguard

package canbus

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/rvguard/internal/security"
)

// SocketCAN can_id flag bits (linux/can.h).
const (
	FlagExtended uint32 = 0x80000000
	FlagRTR      uint32 = 0x40000000
	FlagError    uint32 = 0x20000000

	ExtendedIDMask uint32 = 0x1FFFFFFF
	StandardIDMask uint32 = 0x000007FF
)

// frameSize is sizeof(struct can_frame).
const frameSize = 16

var (
	// ErrShortFrame is returned when fewer than frameSize bytes were read.
	ErrShortFrame = errors.New("incomplete CAN frame")

	// ErrSourceClosed is returned by a FrameSource after Close.
	ErrSourceClosed = errors.New("frame source closed")

	// ErrUnsupported is returned when SocketCAN is not available on this platform.
	ErrUnsupported = errors.New("socketcan not supported on this platform")
)

// Frame is a received CAN 2.0 frame.
type Frame struct {
	ID        uint32
	Extended  bool
	RTR       bool
	Data      []byte
	Timestamp time.Time
	Interface string
}

// FrameSource yields CAN frames. ReadFrame returns io.EOF once a finite
// source is exhausted.
type FrameSource interface {
	ReadFrame(ctx context.Context) (Frame, error)
	Name() string
	Close() error
}

// DecodeFrame parses a raw struct can_frame. Error frames are rejected.
func DecodeFrame(buf []byte, ts time.Time, iface string) (Frame, error) {
	if len(buf) < frameSize {
		return Frame{}, fmt.Errorf("%w: %d bytes", ErrShortFrame, len(buf))
	}

	raw := binary.LittleEndian.Uint32(buf[0:4])
	if raw&FlagError != 0 {
		return Frame{}, fmt.Errorf("error frame 0x%08X", raw)
	}

	dlc := int(buf[4])
	if dlc > 8 {
		dlc = 8
	}

	f := Frame{
		Extended:  raw&FlagExtended != 0,
		RTR:       raw&FlagRTR != 0,
		Data:      make([]byte, dlc),
		Timestamp: ts,
		Interface: iface,
	}
	if f.Extended {
		f.ID = raw & ExtendedIDMask
	} else {
		f.ID = raw & StandardIDMask
	}
	copy(f.Data, buf[8:8+dlc])
	return f, nil
}

// Message converts the frame into detector input.
func (f Frame) Message() security.Message {
	return security.Message{
		ArbitrationID: f.ID & ExtendedIDMask,
		Data:          f.Data,
		Timestamp:     security.ToSeconds(f.Timestamp),
	}
}
