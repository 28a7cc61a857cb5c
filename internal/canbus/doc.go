// RVGuard - RV-C CAN Bus Security Monitor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rvguard

/*
Package canbus feeds CAN frames into the anomaly detector.

A FrameSource yields frames one at a time. Two sources are provided:

  - SocketReader: a raw SocketCAN socket bound to an interface (Linux only)
  - ReplaySource: a candump log ("(1700000000.000000) can0 19FEF142#0102") for offline analysis

Pipeline reads from a source on its own goroutine and hands every frame to an
Analyzer in arrival order. The channel between the two applies backpressure
rather than dropping frames. Read errors are logged and counted; the pipeline
stops when the source is exhausted or the context is cancelled.

Arbitration IDs are masked to 29 bits before analysis so the SocketCAN
extended/RTR/error flag bits never leak into source or PGN decoding.
*/
package canbus
