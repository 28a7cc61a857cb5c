// RVGuard - RV-C CAN Bus Security Monitor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rvguard

package security

// DefaultMaxAlerts is the default journal capacity.
const DefaultMaxAlerts = 10000

// AlertFilter narrows an alert listing. Nil fields do not filter.
// Limit <= 0 returns every match.
type AlertFilter struct {
	Since       *float64
	Severity    *Severity
	AnomalyType *AnomalyType
	Limit       int
}

func (f AlertFilter) matches(a *SecurityAlert) bool {
	if f.Since != nil && a.Timestamp < *f.Since {
		return false
	}
	if f.Severity != nil && a.Severity != *f.Severity {
		return false
	}
	if f.AnomalyType != nil && a.AnomalyType != *f.AnomalyType {
		return false
	}
	return true
}

// AlertSummary holds running alert counters.
type AlertSummary struct {
	Total      int64                 `json:"total"`
	Retained   int                   `json:"retained"`
	Capacity   int                   `json:"capacity"`
	ByType     map[AnomalyType]int64 `json:"by_type"`
	BySeverity map[Severity]int64    `json:"by_severity"`
}

// AlertJournal is a bounded ring of alerts with running counters.
// The oldest alert is evicted on overflow; counters are not decremented by eviction.
type AlertJournal struct {
	buf        []*SecurityAlert
	head       int
	size       int
	total      int64
	byType     map[AnomalyType]int64
	bySeverity map[Severity]int64
}

// NewAlertJournal creates a journal holding up to capacity alerts.
func NewAlertJournal(capacity int) *AlertJournal {
	if capacity <= 0 {
		capacity = DefaultMaxAlerts
	}
	return &AlertJournal{
		buf:        make([]*SecurityAlert, capacity),
		byType:     make(map[AnomalyType]int64),
		bySeverity: make(map[Severity]int64),
	}
}

// Add appends an alert, evicting the oldest one when full.
func (j *AlertJournal) Add(a *SecurityAlert) {
	idx := (j.head + j.size) % len(j.buf)
	if j.size == len(j.buf) {
		j.buf[j.head] = a
		j.head = (j.head + 1) % len(j.buf)
	} else {
		j.buf[idx] = a
		j.size++
	}
	j.total++
	j.byType[a.AnomalyType]++
	j.bySeverity[a.Severity]++
}

// at returns the i-th oldest retained alert.
func (j *AlertJournal) at(i int) *SecurityAlert {
	return j.buf[(j.head+i)%len(j.buf)]
}

// List returns matching alerts newest first. Filters apply before the limit.
func (j *AlertJournal) List(f AlertFilter) []*SecurityAlert {
	out := make([]*SecurityAlert, 0)
	for i := j.size - 1; i >= 0; i-- {
		a := j.at(i)
		if !f.matches(a) {
			continue
		}
		out = append(out, a)
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	return out
}

// PruneBefore drops retained alerts older than cutoff and returns how many
// were dropped. Frames may arrive with out-of-order timestamps, so the whole
// ring is scanned and survivors keep their insertion order.
func (j *AlertJournal) PruneBefore(cutoff float64) int {
	kept := 0
	for i := 0; i < j.size; i++ {
		a := j.at(i)
		if a.Timestamp < cutoff {
			continue
		}
		j.buf[(j.head+kept)%len(j.buf)] = a
		kept++
	}
	for i := kept; i < j.size; i++ {
		j.buf[(j.head+i)%len(j.buf)] = nil
	}
	removed := j.size - kept
	j.size = kept
	return removed
}

// Len returns the number of retained alerts.
func (j *AlertJournal) Len() int {
	return j.size
}

// Summary returns a copy of the counters.
func (j *AlertJournal) Summary() AlertSummary {
	s := AlertSummary{
		Total:      j.total,
		Retained:   j.size,
		Capacity:   len(j.buf),
		ByType:     make(map[AnomalyType]int64, len(j.byType)),
		BySeverity: make(map[Severity]int64, len(j.bySeverity)),
	}
	for k, v := range j.byType {
		s.ByType[k] = v
	}
	for k, v := range j.bySeverity {
		s.BySeverity[k] = v
	}
	return s
}

// Reset clears the buffer and all counters.
func (j *AlertJournal) Reset() {
	j.buf = make([]*SecurityAlert, len(j.buf))
	j.head = 0
	j.size = 0
	j.total = 0
	j.byType = make(map[AnomalyType]int64)
	j.bySeverity = make(map[Severity]int64)
}
