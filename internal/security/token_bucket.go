// RVGuard - RV-C CAN Bus Security Monitor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rvguard

package security

import "math"

// PGNClass groups PGNs that share rate-limit parameters.
type PGNClass string

const (
	PGNClassCommand    PGNClass = "command"
	PGNClassStatus     PGNClass = "status"
	PGNClassDiagnostic PGNClass = "diagnostic"
	PGNClassDefault    PGNClass = "default"
)

// BucketParams configures a token bucket.
type BucketParams struct {
	Class      PGNClass `json:"class"`
	Capacity   float64  `json:"capacity"`
	RefillRate float64  `json:"refill_rate"` // tokens per second
}

type pgnRange struct {
	lo, hi uint32
	params BucketParams
}

// pgnClasses is scanned in order; the first inclusive range match wins.
var pgnClasses = []pgnRange{
	{0x1FEF0, 0x1FEF7, BucketParams{Class: PGNClassCommand, Capacity: 10, RefillRate: 2.0}},
	{0x1FFB0, 0x1FFBF, BucketParams{Class: PGNClassStatus, Capacity: 50, RefillRate: 10.0}},
	{0x1FEC0, 0x1FECF, BucketParams{Class: PGNClassDiagnostic, Capacity: 5, RefillRate: 0.5}},
}

var defaultBucketParams = BucketParams{Class: PGNClassDefault, Capacity: 20, RefillRate: 5.0}

// BucketParamsForPGN returns the rate-limit parameters for a PGN.
func BucketParamsForPGN(pgn uint32) BucketParams {
	for _, r := range pgnClasses {
		if pgn >= r.lo && pgn <= r.hi {
			return r.params
		}
	}
	return defaultBucketParams
}

// TokenBucket is a lazily refilled token bucket.
// Tokens always stay within [0, Capacity].
type TokenBucket struct {
	Capacity   float64
	Tokens     float64
	RefillRate float64
	LastRefill float64
}

// NewTokenBucket creates a full bucket.
func NewTokenBucket(params BucketParams, now float64) *TokenBucket {
	return &TokenBucket{
		Capacity:   params.Capacity,
		Tokens:     params.Capacity,
		RefillRate: params.RefillRate,
		LastRefill: now,
	}
}

// Consume refills the bucket for the time elapsed since the last call and
// takes one token if available. It returns false when the caller is rate limited.
func (b *TokenBucket) Consume(now float64) bool {
	elapsed := now - b.LastRefill
	if elapsed < 0 {
		// Out-of-order timestamps never drain the bucket.
		elapsed = 0
	}
	b.Tokens = math.Min(b.Capacity, b.Tokens+elapsed*b.RefillRate)
	b.LastRefill = now

	if b.Tokens >= 1.0 {
		b.Tokens -= 1.0
		return true
	}
	return false
}

// BucketStatus is a point-in-time view of a bucket.
type BucketStatus struct {
	Tokens      float64 `json:"tokens"`
	Capacity    float64 `json:"capacity"`
	RefillRate  float64 `json:"refill_rate"`
	Utilization float64 `json:"utilization"`
}

// Status reports the bucket state without refilling it.
func (b *TokenBucket) Status() BucketStatus {
	util := 0.0
	if b.Capacity > 0 {
		util = 1 - b.Tokens/b.Capacity
	}
	return BucketStatus{
		Tokens:      b.Tokens,
		Capacity:    b.Capacity,
		RefillRate:  b.RefillRate,
		Utilization: util,
	}
}

// BucketKey identifies the traffic a bucket limits.
type BucketKey struct {
	Source uint8
	PGN    uint32
}

// RateLimiter owns one token bucket per observed (source, PGN) pair.
// It is not safe for concurrent use; the Detector serializes access.
type RateLimiter struct {
	buckets map[BucketKey]*TokenBucket
}

// NewRateLimiter creates an empty rate limiter.
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{buckets: make(map[BucketKey]*TokenBucket)}
}

// Consume takes a token from the bucket for key, creating it on first use.
// When rate limited, the returned status describes the bucket after the attempt.
func (r *RateLimiter) Consume(key BucketKey, now float64) (bool, BucketStatus) {
	bucket, ok := r.buckets[key]
	if !ok {
		bucket = NewTokenBucket(BucketParamsForPGN(key.PGN), now)
		r.buckets[key] = bucket
	}
	allowed := bucket.Consume(now)
	return allowed, bucket.Status()
}

// EvictIdle drops buckets whose last refill is older than idleBefore.
// It returns the number of buckets removed.
func (r *RateLimiter) EvictIdle(idleBefore float64) int {
	removed := 0
	for key, bucket := range r.buckets {
		if bucket.LastRefill < idleBefore {
			delete(r.buckets, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of live buckets.
func (r *RateLimiter) Len() int {
	return len(r.buckets)
}

// Bucket returns the bucket for key, if present.
func (r *RateLimiter) Bucket(key BucketKey) (*TokenBucket, bool) {
	b, ok := r.buckets[key]
	return b, ok
}

// Reset drops every bucket.
func (r *RateLimiter) Reset() {
	r.buckets = make(map[BucketKey]*TokenBucket)
}

// RateLimitStatus summarizes limiter state for status reports.
type RateLimitStatus struct {
	ActiveBuckets    int     `json:"active_buckets"`
	ExhaustedBuckets int     `json:"exhausted_buckets"`
	MaxUtilization   float64 `json:"max_utilization"`
}

// Status summarizes all buckets.
func (r *RateLimiter) Status() RateLimitStatus {
	s := RateLimitStatus{ActiveBuckets: len(r.buckets)}
	for _, b := range r.buckets {
		st := b.Status()
		if st.Tokens < 1.0 {
			s.ExhaustedBuckets++
		}
		if st.Utilization > s.MaxUtilization {
			s.MaxUtilization = st.Utilization
		}
	}
	return s
}
