// RVGuard - RV-C CAN Bus Security Monitor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rvguard

package security

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/rvguard/internal/logging"
	"github.com/tomtom215/rvguard/internal/metrics"
)

// Config configures the Detector.
type Config struct {
	// DefaultPolicy applies to sources without an ACL entry (default: allow).
	DefaultPolicy ACLPolicy `json:"default_policy"`

	Storm   StormConfig   `json:"storm"`
	Pattern PatternConfig `json:"pattern"`

	// BucketIdleTimeout is how long a token bucket may go unused before maintenance drops it.
	BucketIdleTimeout time.Duration `json:"bucket_idle_timeout"`

	// PatternIdleTimeout is how long a pattern entry may go unused before maintenance drops it.
	PatternIdleTimeout time.Duration `json:"pattern_idle_timeout"`

	// CleanupInterval is the period between maintenance passes in RunWithContext.
	CleanupInterval time.Duration `json:"cleanup_interval"`

	// MaxAlerts is the alert journal capacity.
	MaxAlerts int `json:"max_alerts"`

	// AlertRetention drops journal alerts older than this on maintenance. Zero keeps them
	// until the ring overflows.
	AlertRetention time.Duration `json:"alert_retention"`

	// PublishTimeout bounds each EventSink.Publish call.
	PublishTimeout time.Duration `json:"publish_timeout"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		DefaultPolicy:      PolicyAllow,
		Storm:              DefaultStormConfig(),
		Pattern:            DefaultPatternConfig(),
		BucketIdleTimeout:  5 * time.Minute,
		PatternIdleTimeout: 5 * time.Minute,
		CleanupInterval:    5 * time.Minute,
		MaxAlerts:          DefaultMaxAlerts,
		AlertRetention:     24 * time.Hour,
		PublishTimeout:     5 * time.Second,
	}
}

// Statistics are the detector's running counters.
type Statistics struct {
	MessagesProcessed   int64 `json:"messages_processed"`
	RateLimitedMessages int64 `json:"rate_limited_messages"`
	ACLViolations       int64 `json:"acl_violations"`
	StormsDetected      int64 `json:"storms_detected"`
}

// Option configures optional Detector collaborators.
type Option func(*Detector)

// WithClock overrides the wall clock used for uptime and maintenance.
func WithClock(now func() time.Time) Option {
	return func(d *Detector) { d.now = now }
}

// WithEventSink sets an already connected event sink.
func WithEventSink(sink EventSink) Option {
	return func(d *Detector) { d.sink = sink }
}

// WithSinkConnector sets the function used to (re)connect the event sink
// when none is available.
func WithSinkConnector(connect SinkConnector) Option {
	return func(d *Detector) { d.connector = connect }
}

// WithBroadcaster sets the live alert broadcaster.
func WithBroadcaster(b AlertBroadcaster) Option {
	return func(d *Detector) { d.broadcaster = b }
}

// Detector orchestrates ACL, rate limiting, storm and pattern detection for
// every CAN frame and owns the resulting alerts.
//
// All state is guarded by a single mutex. AnalyzeMessage never performs I/O
// while holding it; sink publication runs in its own goroutine.
type Detector struct {
	cfg Config
	now func() time.Time

	mu        sync.Mutex
	acl       *AccessControl
	limiter   *RateLimiter
	storm     *StormDetector
	patterns  *PatternTracker
	journal   *AlertJournal
	stats     Statistics
	stormSeen bool
	startedAt time.Time
	lastMaint time.Time

	// Newest frame timestamp and the wall time it was observed at. Idle and
	// retention cutoffs are taken on this clock, not the wall clock.
	frameSeen   bool
	latestFrame float64
	latestWall  time.Time

	// closing is set under mu before shutdown waits on inflight; no sink
	// publication is started once it is set.
	closing bool

	sink        EventSink
	connector   SinkConnector
	broadcaster AlertBroadcaster

	published atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64
	inflight  sync.WaitGroup
}

// NewDetector creates a detector. Zero-valued config fields fall back to DefaultConfig.
func NewDetector(cfg Config, opts ...Option) *Detector {
	def := DefaultConfig()
	if cfg.DefaultPolicy == "" {
		cfg.DefaultPolicy = def.DefaultPolicy
	}
	if cfg.BucketIdleTimeout <= 0 {
		cfg.BucketIdleTimeout = def.BucketIdleTimeout
	}
	if cfg.PatternIdleTimeout <= 0 {
		cfg.PatternIdleTimeout = def.PatternIdleTimeout
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = def.CleanupInterval
	}
	if cfg.MaxAlerts <= 0 {
		cfg.MaxAlerts = def.MaxAlerts
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = def.PublishTimeout
	}

	d := &Detector{
		cfg:      cfg,
		now:      time.Now,
		acl:      NewAccessControl(cfg.DefaultPolicy),
		limiter:  NewRateLimiter(),
		storm:    NewStormDetector(cfg.Storm),
		patterns: NewPatternTracker(cfg.Pattern),
		journal:  NewAlertJournal(cfg.MaxAlerts),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.startedAt = d.now()
	metrics.SetStormState(false, d.storm.Threshold())
	return d
}

// ToSeconds converts a time to float64 Unix seconds.
func ToSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

// AnalyzeMessage runs one frame through every detection stage and returns
// the alerts raised and actions taken. It never blocks on I/O.
func (d *Detector) AnalyzeMessage(msg Message) AnalysisResult {
	source := SourceAddress(msg.ArbitrationID)
	if msg.SourceOverride != nil {
		source = *msg.SourceOverride
	}
	pgn := PGN(msg.ArbitrationID)
	if msg.PGNOverride != nil {
		pgn = *msg.PGNOverride
	}
	ts := msg.Timestamp

	result := AnalysisResult{
		SourceAddress: source,
		PGN:           pgn,
		Anomalies:     make([]*SecurityAlert, 0),
		ActionsTaken:  make([]Action, 0),
	}

	d.mu.Lock()
	d.stats.MessagesProcessed++
	d.observeFrameTime(ts)
	metrics.RecordMessageProcessed()

	if decision := d.acl.Check(source, pgn); decision != ACLAllowed {
		d.stats.ACLViolations++
		metrics.RecordMessageBlocked()
		alert := d.aclAlert(source, pgn, ts, decision)
		d.record(alert)
		result.Anomalies = append(result.Anomalies, alert)
		result.ActionsTaken = append(result.ActionsTaken, ActionMessageBlocked)
		sink := d.claimSink(len(result.Anomalies))
		d.mu.Unlock()
		d.dispatch(sink, result.Anomalies)
		return result
	}

	if allowed, status := d.limiter.Consume(BucketKey{Source: source, PGN: pgn}, ts); !allowed {
		d.stats.RateLimitedMessages++
		metrics.RecordRateLimited()
		alert := d.rateLimitAlert(source, pgn, ts, status)
		d.record(alert)
		result.Anomalies = append(result.Anomalies, alert)
		result.ActionsTaken = append(result.ActionsTaken, ActionRateLimited)
	}

	wasInStorm := d.storm.InStorm()
	inStorm := d.storm.Observe(ts, source, pgn)
	switch {
	case inStorm && !d.stormSeen:
		d.stormSeen = true
		d.stats.StormsDetected++
		alert := d.stormAlert(source, pgn, ts)
		d.record(alert)
		result.Anomalies = append(result.Anomalies, alert)
		result.ActionsTaken = append(result.ActionsTaken, ActionStormDetected)
	case !inStorm && d.stormSeen:
		d.stormSeen = false
	}
	if inStorm != wasInStorm {
		metrics.SetStormState(inStorm, d.storm.Threshold())
	}

	for _, alert := range d.checkPatterns(source, pgn, ts) {
		d.record(alert)
		result.Anomalies = append(result.Anomalies, alert)
	}

	sink := d.claimSink(len(result.Anomalies))
	d.mu.Unlock()

	d.dispatch(sink, result.Anomalies)
	return result
}

// observeFrameTime advances the frame clock. Out-of-order timestamps never
// move it backwards. Caller holds d.mu.
func (d *Detector) observeFrameTime(ts float64) {
	if d.frameSeen && ts <= d.latestFrame {
		return
	}
	d.frameSeen = true
	d.latestFrame = ts
	d.latestWall = d.now()
}

// frameClock maps a wall-clock instant onto frame time: the newest frame
// timestamp plus the wall time elapsed since it arrived. A replay running
// faster than real time stays on its own timeline, and state still ages out
// once traffic stops. Caller holds d.mu.
func (d *Detector) frameClock(wall time.Time) float64 {
	if !d.frameSeen {
		return ToSeconds(wall)
	}
	elapsed := wall.Sub(d.latestWall).Seconds()
	if elapsed < 0 {
		elapsed = 0
	}
	return d.latestFrame + elapsed
}

// claimSink returns the sink and reserves n in-flight publications, or nil
// when there is nothing to publish, no sink, or shutdown has begun.
// Caller holds d.mu.
func (d *Detector) claimSink(n int) EventSink {
	if n == 0 || d.sink == nil || d.closing {
		return nil
	}
	d.inflight.Add(n)
	return d.sink
}

// checkPatterns runs the reconnaissance checks. Each check returns zero or
// one alert; new behavioral checks belong here.
func (d *Detector) checkPatterns(source uint8, pgn uint32, ts float64) []*SecurityAlert {
	var alerts []*SecurityAlert
	if alert := d.patterns.Observe(source, pgn, ts); alert != nil {
		alerts = append(alerts, alert)
	}
	return alerts
}

func (d *Detector) aclAlert(source uint8, pgn uint32, ts float64, decision ACLDecision) *SecurityAlert {
	reason := "explicitly denied"
	if decision == ACLDeniedByDefaultPolicy {
		reason = "denied by default policy"
	}
	return &SecurityAlert{
		Timestamp:     ts,
		AnomalyType:   AnomalySourceACLViolation,
		Severity:      SeverityHigh,
		SourceAddress: source,
		PGN:           pgnPtr(pgn),
		Description: fmt.Sprintf("Source %s sent PGN %s: %s",
			hexAddr(source), hexPGN(pgn), reason),
		Evidence: map[string]interface{}{
			"decision":       decision.String(),
			"default_policy": string(d.acl.DefaultPolicy()),
			"has_acl_entry":  decision == ACLDeniedExplicit,
		},
		MitigationAction: string(ActionMessageBlocked),
	}
}

func (d *Detector) rateLimitAlert(source uint8, pgn uint32, ts float64, status BucketStatus) *SecurityAlert {
	params := BucketParamsForPGN(pgn)
	return &SecurityAlert{
		Timestamp:     ts,
		AnomalyType:   AnomalyRateLimitViolation,
		Severity:      SeverityMedium,
		SourceAddress: source,
		PGN:           pgnPtr(pgn),
		Description: fmt.Sprintf("Rate limit exceeded for source %s on PGN %s",
			hexAddr(source), hexPGN(pgn)),
		Evidence: map[string]interface{}{
			"pgn_class":   string(params.Class),
			"tokens":      status.Tokens,
			"capacity":    status.Capacity,
			"refill_rate": status.RefillRate,
			"utilization": status.Utilization,
		},
		MitigationAction: string(ActionRateLimited),
	}
}

func (d *Detector) stormAlert(source uint8, pgn uint32, ts float64) *SecurityAlert {
	st := d.storm.Status()
	pgnHex := make([]string, len(st.StormPGNs))
	for i, p := range st.StormPGNs {
		pgnHex[i] = hexPGN(p)
	}
	srcHex := make([]string, len(st.StormSources))
	for i, s := range st.StormSources {
		srcHex[i] = hexAddr(s)
	}
	return &SecurityAlert{
		Timestamp:     ts,
		AnomalyType:   AnomalyBroadcastStorm,
		Severity:      SeverityHigh,
		SourceAddress: source,
		PGN:           pgnPtr(pgn),
		Description: fmt.Sprintf("Broadcast storm: %.1f msg/s exceeds threshold %.1f msg/s",
			st.CurrentRate, st.Threshold),
		Evidence: map[string]interface{}{
			"current_rate":   st.CurrentRate,
			"threshold":      st.Threshold,
			"window_seconds": st.WindowSeconds,
			"storm_pgns":     pgnHex,
			"storm_sources":  srcHex,
		},
		MitigationAction: string(ActionStormDetected),
	}
}

// record assigns an ID, journals, and logs an alert. Caller holds d.mu.
func (d *Detector) record(a *SecurityAlert) {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	a.AlertID = id.String()
	d.journal.Add(a)
	metrics.RecordSecurityAlert(string(a.AnomalyType), string(a.Severity))

	ev := logging.Warn().
		Str("alert_id", a.AlertID).
		Str("anomaly_type", string(a.AnomalyType)).
		Str("severity", string(a.Severity)).
		Str("source_address", hexAddr(a.SourceAddress))
	if a.PGN != nil {
		ev = ev.Str("pgn", hexPGN(*a.PGN))
	}
	ev.Msg(a.Description)
}

// dispatch forwards alerts to the broadcaster and, fire-and-forget, to the
// sink. A non-nil sink comes from claimSink, which already counted the
// alerts in d.inflight.
func (d *Detector) dispatch(sink EventSink, alerts []*SecurityAlert) {
	if len(alerts) == 0 {
		return
	}

	if d.broadcaster != nil {
		for _, a := range alerts {
			d.broadcaster.BroadcastJSON(AlertMessageType, a)
		}
	}

	if sink == nil {
		return
	}
	for _, a := range alerts {
		event := NewSecurityEvent(a)
		go func(ev *SecurityEvent) {
			defer d.inflight.Done()
			ctx, cancel := context.WithTimeout(context.Background(), d.cfg.PublishTimeout)
			defer cancel()
			d.publish(ctx, sink, ev)
		}(event)
	}
}

func (d *Detector) publish(ctx context.Context, sink EventSink, ev *SecurityEvent) {
	err := sink.Publish(ctx, ev)
	switch {
	case err == nil:
		d.published.Add(1)
		metrics.RecordEventPublish("success")
	case errors.Is(err, ErrEventDropped):
		d.dropped.Add(1)
		metrics.RecordEventPublish("dropped")
		logging.Debug().Str("event_id", ev.EventID).Msg("security event dropped")
	default:
		d.failed.Add(1)
		metrics.RecordEventPublish("failure")
		logging.Error().Err(err).
			Str("event_id", ev.EventID).
			Str("event_type", ev.EventType).
			Msg("failed to publish security event")
	}
}

// AddSourceToACL installs or replaces the ACL entry for entry.Address.
// AddedTime is set from the detector clock when zero.
func (d *Detector) AddSourceToACL(entry *SourceACLEntry) {
	if entry.AddedTime == 0 {
		entry.AddedTime = ToSeconds(d.now())
	}
	d.mu.Lock()
	d.acl.AddOrUpdate(entry)
	d.mu.Unlock()

	logging.Info().
		Str("source_address", hexAddr(entry.Address)).
		Int("allowed_pgns", len(entry.AllowedPGNs)).
		Int("denied_pgns", len(entry.DeniedPGNs)).
		Msg("acl entry updated")
}

// RemoveSourceFromACL deletes the ACL entry for source and reports whether one existed.
func (d *Detector) RemoveSourceFromACL(source uint8) bool {
	d.mu.Lock()
	removed := d.acl.Remove(source)
	d.mu.Unlock()

	if removed {
		logging.Info().Str("source_address", hexAddr(source)).Msg("acl entry removed")
	}
	return removed
}

// SetDefaultACLPolicy parses and applies the policy for sources without an entry.
func (d *Detector) SetDefaultACLPolicy(policy string) error {
	p, err := ParseACLPolicy(policy)
	if err != nil {
		return err
	}
	d.mu.Lock()
	err = d.acl.SetDefaultPolicy(p)
	d.mu.Unlock()
	if err != nil {
		return err
	}

	logging.Info().Str("policy", string(p)).Msg("default acl policy changed")
	return nil
}

// ACLStatus describes the access control configuration.
type ACLStatus struct {
	DefaultPolicy ACLPolicy      `json:"default_policy"`
	EntryCount    int            `json:"entry_count"`
	Entries       []ACLEntryView `json:"entries"`
}

// ACL returns the ACL entries sorted by address plus the default policy.
func (d *Detector) ACL() ACLStatus {
	d.mu.Lock()
	defer d.mu.Unlock()
	entries := d.acl.Entries()
	return ACLStatus{
		DefaultPolicy: d.acl.DefaultPolicy(),
		EntryCount:    len(entries),
		Entries:       entries,
	}
}

// ACLEntry returns the entry for source, if any.
func (d *Detector) ACLEntry(source uint8) (ACLEntryView, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.acl.Entry(source)
	if !ok {
		return ACLEntryView{}, false
	}
	return e.View(), true
}

// PatternStatus describes the reconnaissance tracker.
type PatternStatus struct {
	TrackedSources int     `json:"tracked_sources"`
	WindowSeconds  float64 `json:"window_seconds"`
	PGNThreshold   int     `json:"pgn_threshold"`
}

// SinkStatus describes event publication.
type SinkStatus struct {
	Connected       bool  `json:"connected"`
	EventsPublished int64 `json:"events_published"`
	EventsFailed    int64 `json:"events_failed"`
	EventsDropped   int64 `json:"events_dropped"`
}

// SecurityStatus is a snapshot of the whole detector.
type SecurityStatus struct {
	StartedAt       time.Time       `json:"started_at"`
	UptimeSeconds   float64         `json:"uptime_seconds"`
	Statistics      Statistics      `json:"statistics"`
	Alerts          AlertSummary    `json:"alerts"`
	Storm           StormStatus     `json:"storm"`
	ACL             ACLStatus       `json:"acl"`
	RateLimiting    RateLimitStatus `json:"rate_limiting"`
	PatternTracking PatternStatus   `json:"pattern_tracking"`
	Sink            SinkStatus      `json:"sink"`
	LastMaintenance *time.Time      `json:"last_maintenance,omitempty"`
}

// SecurityStatus returns a consistent snapshot of all detector state.
func (d *Detector) SecurityStatus() SecurityStatus {
	now := d.now()

	d.mu.Lock()
	defer d.mu.Unlock()

	entries := d.acl.Entries()
	st := SecurityStatus{
		StartedAt:     d.startedAt,
		UptimeSeconds: now.Sub(d.startedAt).Seconds(),
		Statistics:    d.stats,
		Alerts:        d.journal.Summary(),
		Storm:         d.storm.Status(),
		ACL: ACLStatus{
			DefaultPolicy: d.acl.DefaultPolicy(),
			EntryCount:    len(entries),
			Entries:       entries,
		},
		RateLimiting: d.limiter.Status(),
		PatternTracking: PatternStatus{
			TrackedSources: d.patterns.Len(),
			WindowSeconds:  d.patterns.cfg.WindowSeconds,
			PGNThreshold:   d.patterns.cfg.PGNThreshold,
		},
		Sink: SinkStatus{
			Connected:       d.sink != nil,
			EventsPublished: d.published.Load(),
			EventsFailed:    d.failed.Load(),
			EventsDropped:   d.dropped.Load(),
		},
	}
	if !d.lastMaint.IsZero() {
		t := d.lastMaint
		st.LastMaintenance = &t
	}
	return st
}

// Statistics returns the running counters.
func (d *Detector) Statistics() Statistics {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

// Alerts lists journaled alerts newest first.
func (d *Detector) Alerts(filter AlertFilter) []*SecurityAlert {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.journal.List(filter)
}

// ResetStatistics clears buckets, alerts, counters, storm and pattern state.
// ACL entries and the default policy are kept.
func (d *Detector) ResetStatistics() {
	d.mu.Lock()
	d.limiter.Reset()
	d.journal.Reset()
	d.storm.Reset()
	d.patterns.Reset()
	d.stats = Statistics{}
	d.stormSeen = false
	threshold := d.storm.Threshold()
	d.mu.Unlock()

	d.published.Store(0)
	d.failed.Store(0)
	d.dropped.Store(0)
	metrics.SetStormState(false, threshold)
	metrics.SetTrackedState(0, 0)

	logging.Info().Msg("security statistics reset")
}

// MaintenanceReport summarizes one maintenance pass.
type MaintenanceReport struct {
	BucketsEvicted  int  `json:"buckets_evicted"`
	PatternsEvicted int  `json:"patterns_evicted"`
	SublogsPruned   int  `json:"sublogs_pruned"`
	AlertsPruned    int  `json:"alerts_pruned"`
	SinkConnected   bool `json:"sink_connected"`
}

// Maintain evicts idle state, prunes expired alerts, and retries the
// sink connection if needed.
func (d *Detector) Maintain(ctx context.Context) MaintenanceReport {
	return d.maintainAt(ctx, d.now())
}

func (d *Detector) maintainAt(ctx context.Context, now time.Time) MaintenanceReport {
	start := time.Now()

	var report MaintenanceReport
	d.mu.Lock()
	nowSec := d.frameClock(now)
	report.BucketsEvicted = d.limiter.EvictIdle(nowSec - d.cfg.BucketIdleTimeout.Seconds())
	report.PatternsEvicted = d.patterns.EvictIdle(nowSec - d.cfg.PatternIdleTimeout.Seconds())
	report.SublogsPruned = d.storm.Prune(nowSec)
	if d.cfg.AlertRetention > 0 {
		report.AlertsPruned = d.journal.PruneBefore(nowSec - d.cfg.AlertRetention.Seconds())
	}
	d.lastMaint = now
	buckets, sources := d.limiter.Len(), d.patterns.Len()
	d.mu.Unlock()

	metrics.SetTrackedState(buckets, sources)

	report.SinkConnected = d.ConnectSink(ctx)
	metrics.RecordMaintenance(time.Since(start))

	logging.Debug().
		Int("buckets_evicted", report.BucketsEvicted).
		Int("patterns_evicted", report.PatternsEvicted).
		Int("sublogs_pruned", report.SublogsPruned).
		Int("alerts_pruned", report.AlertsPruned).
		Int("active_buckets", buckets).
		Int("pattern_sources", sources).
		Msg("security maintenance completed")

	return report
}

// ConnectSink tries the configured SinkConnector when no sink is attached.
// It reports whether a sink is attached afterwards.
func (d *Detector) ConnectSink(ctx context.Context) bool {
	d.mu.Lock()
	connected := d.sink != nil
	connect := d.connector
	d.mu.Unlock()

	if connected {
		return true
	}
	if connect == nil {
		return false
	}

	sink, err := connect(ctx)
	if err != nil {
		logging.Warn().Err(err).Msg("security event sink not available, will retry")
		return false
	}
	if sink == nil {
		return false
	}

	d.mu.Lock()
	if d.closing {
		d.mu.Unlock()
		if c, ok := sink.(io.Closer); ok {
			_ = c.Close()
		}
		return false
	}
	if d.sink == nil {
		d.sink = sink
	}
	d.mu.Unlock()

	logging.Info().Msg("security event sink connected")
	return true
}

// RunWithContext connects the sink and runs maintenance every cleanup
// interval until ctx is canceled. It is intended for suture supervision and
// returns ctx.Err() on shutdown after in-flight publications finish.
func (d *Detector) RunWithContext(ctx context.Context) error {
	logging.Info().
		Str("cleanup_interval", d.cfg.CleanupInterval.String()).
		Str("default_policy", string(d.ACL().DefaultPolicy)).
		Msg("anomaly detector started")

	d.mu.Lock()
	d.closing = false
	d.mu.Unlock()

	d.ConnectSink(ctx)

	ticker := time.NewTicker(d.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Info().Msg("anomaly detector shutting down")
			d.mu.Lock()
			d.closing = true
			d.mu.Unlock()
			d.inflight.Wait()
			d.closeSink()
			return ctx.Err()
		case <-ticker.C:
			d.Maintain(ctx)
		}
	}
}

// closeSink releases the attached sink if it holds resources.
func (d *Detector) closeSink() {
	d.mu.Lock()
	sink := d.sink
	d.sink = nil
	d.mu.Unlock()

	if c, ok := sink.(io.Closer); ok {
		if err := c.Close(); err != nil {
			logging.Warn().Err(err).Msg("failed to close security event sink")
		}
	}
}
