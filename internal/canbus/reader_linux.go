// RVGuard - RV-C CAN Bus Security Monitor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rvguard

//go:build linux

package canbus

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"
)

// readPollInterval bounds how long a blocked read waits before rechecking ctx.
const readPollInterval = 500 * time.Millisecond

// SocketReader reads frames from a raw SocketCAN socket.
type SocketReader struct {
	fd     int
	ifname string
	closed atomic.Bool
}

// NewSocketReader opens a raw CAN socket bound to ifname.
func NewSocketReader(ifname string) (*SocketReader, error) {
	fd, err := unix.Socket(unix.AF_CAN, unix.SOCK_RAW, unix.CAN_RAW)
	if err != nil {
		return nil, fmt.Errorf("failed to create CAN socket: %w", err)
	}

	ifreq, err := unix.NewIfreq(ifname)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("failed to create ifreq: %w", err)
	}
	if err := unix.IoctlIfreq(fd, unix.SIOCGIFINDEX, ifreq); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("failed to get interface index for %s: %w", ifname, err)
	}

	if err := unix.Bind(fd, &unix.SockaddrCAN{Ifindex: int(ifreq.Uint32())}); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("failed to bind socket to %s: %w", ifname, err)
	}

	tv := unix.NsecToTimeval(readPollInterval.Nanoseconds())
	if err := unix.SetsockoptTimeval(fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("failed to set receive timeout: %w", err)
	}

	return &SocketReader{fd: fd, ifname: ifname}, nil
}

// SetFilter restricts the socket to the given exact arbitration IDs.
func (r *SocketReader) SetFilter(ids []uint32) error {
	if len(ids) == 0 {
		return nil
	}
	filters := make([]unix.CanFilter, len(ids))
	for i, id := range ids {
		filters[i] = unix.CanFilter{Id: id | FlagExtended, Mask: ExtendedIDMask | FlagExtended}
	}
	if err := unix.SetsockoptCanRawFilter(r.fd, unix.SOL_CAN_RAW, unix.CAN_RAW_FILTER, filters); err != nil {
		return fmt.Errorf("failed to set filter: %w", err)
	}
	return nil
}

// ReadFrame blocks until a frame arrives, ctx is cancelled, or the socket is closed.
func (r *SocketReader) ReadFrame(ctx context.Context) (Frame, error) {
	buf := make([]byte, frameSize)
	for {
		if r.closed.Load() {
			return Frame{}, ErrSourceClosed
		}
		if err := ctx.Err(); err != nil {
			return Frame{}, err
		}

		n, err := unix.Read(r.fd, buf)
		if err != nil {
			if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
				continue
			}
			if r.closed.Load() {
				return Frame{}, ErrSourceClosed
			}
			return Frame{}, fmt.Errorf("read error on %s: %w", r.ifname, err)
		}
		return DecodeFrame(buf[:n], time.Now(), r.ifname)
	}
}

// Name returns the interface name.
func (r *SocketReader) Name() string { return r.ifname }

// Close closes the CAN socket.
func (r *SocketReader) Close() error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	return unix.Close(r.fd)
}
