// RVGuard - RV-C CAN Bus Security Monitor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rvguard

package security

// timeLog is a fixed-capacity FIFO of timestamps.
// Pushing into a full log drops the oldest entry.
type timeLog struct {
	buf  []float64
	head int
	size int
}

func newTimeLog(capacity int) *timeLog {
	if capacity <= 0 {
		capacity = 1
	}
	return &timeLog{buf: make([]float64, capacity)}
}

func (l *timeLog) push(ts float64) {
	if l.size == len(l.buf) {
		l.buf[l.head] = ts
		l.head = (l.head + 1) % len(l.buf)
		return
	}
	l.buf[(l.head+l.size)%len(l.buf)] = ts
	l.size++
}

// evictBefore pops entries from the front while they are older than cutoff.
func (l *timeLog) evictBefore(cutoff float64) {
	for l.size > 0 && l.buf[l.head] < cutoff {
		l.head = (l.head + 1) % len(l.buf)
		l.size--
	}
}

func (l *timeLog) len() int {
	return l.size
}

func (l *timeLog) reset() {
	l.head = 0
	l.size = 0
}

// sampleRing keeps the most recent N float samples.
type sampleRing struct {
	buf  []float64
	next int
	full bool
}

func newSampleRing(capacity int) *sampleRing {
	if capacity <= 0 {
		capacity = 1
	}
	return &sampleRing{buf: make([]float64, capacity)}
}

func (r *sampleRing) push(v float64) {
	r.buf[r.next] = v
	r.next = (r.next + 1) % len(r.buf)
	if r.next == 0 {
		r.full = true
	}
}

func (r *sampleRing) len() int {
	if r.full {
		return len(r.buf)
	}
	return r.next
}

func (r *sampleRing) values() []float64 {
	return r.buf[:r.len()]
}

func (r *sampleRing) reset() {
	r.next = 0
	r.full = false
}
