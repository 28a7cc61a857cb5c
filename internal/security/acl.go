// RVGuard - RV-C CAN Bus Security Monitor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rvguard

package security

import (
	"fmt"
	"sort"
	"strings"
)

// ACLPolicy is the decision applied to sources without an ACL entry.
type ACLPolicy string

const (
	PolicyAllow ACLPolicy = "allow"
	PolicyDeny  ACLPolicy = "deny"
)

// ParseACLPolicy converts a string to an ACLPolicy.
func ParseACLPolicy(s string) (ACLPolicy, error) {
	switch ACLPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case PolicyAllow:
		return PolicyAllow, nil
	case PolicyDeny:
		return PolicyDeny, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPolicy, s)
	}
}

// ACLDecision is the outcome of an access check.
type ACLDecision int

const (
	ACLAllowed ACLDecision = iota
	ACLDeniedExplicit
	ACLDeniedByDefaultPolicy
)

// String returns a stable name for logs and evidence.
func (d ACLDecision) String() string {
	switch d {
	case ACLAllowed:
		return "allowed"
	case ACLDeniedExplicit:
		return "denied_explicit"
	case ACLDeniedByDefaultPolicy:
		return "denied_by_default_policy"
	default:
		return "unknown"
	}
}

// SourceACLEntry holds the rules for one source address.
// An empty AllowedPGNs set means every PGN not in DeniedPGNs is allowed.
type SourceACLEntry struct {
	Address       uint8               `json:"address"`
	AllowedPGNs   map[uint32]struct{} `json:"-"`
	DeniedPGNs    map[uint32]struct{} `json:"-"`
	IsWhitelisted bool                `json:"is_whitelisted"`
	Description   string              `json:"description"`
	AddedTime     float64             `json:"added_time"`
}

// NewSourceACLEntry builds an entry from PGN lists.
func NewSourceACLEntry(address uint8, allowed, denied []uint32) *SourceACLEntry {
	e := &SourceACLEntry{
		Address:     address,
		AllowedPGNs: make(map[uint32]struct{}, len(allowed)),
		DeniedPGNs:  make(map[uint32]struct{}, len(denied)),
	}
	for _, p := range allowed {
		e.AllowedPGNs[p] = struct{}{}
	}
	for _, p := range denied {
		e.DeniedPGNs[p] = struct{}{}
	}
	return e
}

// clone returns a deep copy so callers never share sets with the ACL.
func (e *SourceACLEntry) clone() *SourceACLEntry {
	c := *e
	c.AllowedPGNs = make(map[uint32]struct{}, len(e.AllowedPGNs))
	for p := range e.AllowedPGNs {
		c.AllowedPGNs[p] = struct{}{}
	}
	c.DeniedPGNs = make(map[uint32]struct{}, len(e.DeniedPGNs))
	for p := range e.DeniedPGNs {
		c.DeniedPGNs[p] = struct{}{}
	}
	return &c
}

// ACLEntryView is the serializable form of an ACL entry.
type ACLEntryView struct {
	Address       uint8    `json:"address"`
	AddressHex    string   `json:"address_hex"`
	AllowedPGNs   []uint32 `json:"allowed_pgns"`
	DeniedPGNs    []uint32 `json:"denied_pgns"`
	IsWhitelisted bool     `json:"is_whitelisted"`
	Description   string   `json:"description"`
	AddedTime     float64  `json:"added_time"`
}

// View converts the entry to its serializable form with sorted PGN lists.
func (e *SourceACLEntry) View() ACLEntryView {
	return ACLEntryView{
		Address:       e.Address,
		AddressHex:    hexAddr(e.Address),
		AllowedPGNs:   sortedPGNs(e.AllowedPGNs),
		DeniedPGNs:    sortedPGNs(e.DeniedPGNs),
		IsWhitelisted: e.IsWhitelisted,
		Description:   e.Description,
		AddedTime:     e.AddedTime,
	}
}

func sortedPGNs(set map[uint32]struct{}) []uint32 {
	out := make([]uint32, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// AccessControl evaluates per-source PGN rules.
// Entries are only created through AddOrUpdate, never from traffic.
type AccessControl struct {
	entries       map[uint8]*SourceACLEntry
	defaultPolicy ACLPolicy
}

// NewAccessControl creates an ACL with the given default policy.
func NewAccessControl(defaultPolicy ACLPolicy) *AccessControl {
	if defaultPolicy == "" {
		defaultPolicy = PolicyAllow
	}
	return &AccessControl{
		entries:       make(map[uint8]*SourceACLEntry),
		defaultPolicy: defaultPolicy,
	}
}

// Check evaluates whether source may transmit pgn.
// Denied PGNs take precedence over the allow list.
func (a *AccessControl) Check(source uint8, pgn uint32) ACLDecision {
	entry, ok := a.entries[source]
	if !ok {
		if a.defaultPolicy == PolicyDeny {
			return ACLDeniedByDefaultPolicy
		}
		return ACLAllowed
	}

	if _, denied := entry.DeniedPGNs[pgn]; denied {
		return ACLDeniedExplicit
	}
	if len(entry.AllowedPGNs) > 0 {
		if _, allowed := entry.AllowedPGNs[pgn]; !allowed {
			return ACLDeniedExplicit
		}
	}
	return ACLAllowed
}

// AddOrUpdate installs a copy of entry, replacing any existing rules for its address.
func (a *AccessControl) AddOrUpdate(entry *SourceACLEntry) {
	a.entries[entry.Address] = entry.clone()
}

// Remove deletes the entry for source. It reports whether an entry existed.
func (a *AccessControl) Remove(source uint8) bool {
	if _, ok := a.entries[source]; !ok {
		return false
	}
	delete(a.entries, source)
	return true
}

// SetDefaultPolicy changes the policy for sources without an entry.
func (a *AccessControl) SetDefaultPolicy(policy ACLPolicy) error {
	if policy != PolicyAllow && policy != PolicyDeny {
		return fmt.Errorf("%w: %q", ErrInvalidPolicy, policy)
	}
	a.defaultPolicy = policy
	return nil
}

// DefaultPolicy returns the current default policy.
func (a *AccessControl) DefaultPolicy() ACLPolicy {
	return a.defaultPolicy
}

// Entry returns a copy of the entry for source.
func (a *AccessControl) Entry(source uint8) (*SourceACLEntry, bool) {
	e, ok := a.entries[source]
	if !ok {
		return nil, false
	}
	return e.clone(), true
}

// Entries returns all entries ordered by address.
func (a *AccessControl) Entries() []ACLEntryView {
	out := make([]ACLEntryView, 0, len(a.entries))
	for _, e := range a.entries {
		out = append(out, e.View())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out
}

// Len returns the number of entries.
func (a *AccessControl) Len() int {
	return len(a.entries)
}
