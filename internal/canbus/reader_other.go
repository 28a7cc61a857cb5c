// RVGuard - RV-C CAN Bus Security Monitor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rvguard

//go:build !linux

package canbus

import (
	"context"
)

// SocketReader is unavailable outside Linux.
type SocketReader struct{}

// NewSocketReader always fails on this platform.
func NewSocketReader(string) (*SocketReader, error) {
	return nil, ErrUnsupported
}

// SetFilter is a no-op on this platform.
func (r *SocketReader) SetFilter([]uint32) error { return ErrUnsupported }

// ReadFrame always fails on this platform.
func (r *SocketReader) ReadFrame(context.Context) (Frame, error) {
	return Frame{}, ErrUnsupported
}

// Name returns an empty name.
func (r *SocketReader) Name() string { return "" }

// Close is a no-op.
func (r *SocketReader) Close() error { return nil }
