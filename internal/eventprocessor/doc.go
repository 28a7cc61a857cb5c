// RVGuard - RV-C CAN Bus Security Monitor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rvguard

/*
Package eventprocessor publishes security events to NATS JetStream.

The anomaly detector hands every alert to a security.EventSink. This package
provides the NATS-backed sink:

  - Sink: serializes SecurityEvent envelopes with goccy/go-json and publishes
    them through Watermill on "<subject_prefix>.<anomaly_type>"
  - Publisher: wraps any Watermill message.Publisher with a gobreaker circuit
    breaker and sets Nats-Msg-Id for JetStream deduplication
  - Connector: a security.SinkConnector that dials NATS, provisions the
    stream and builds the Sink; the detector retries it on every maintenance
    tick while NATS is unreachable
  - EmbeddedServer: an optional in-process NATS server with JetStream

During a bus flood the detector can raise alerts faster than NATS should
absorb them. The Sink caps throughput with a golang.org/x/time/rate token
bucket; excess events return security.ErrEventDropped and are counted by the
detector instead of queuing without bound.

# Subjects

	rvguard.security.source_acl_violation
	rvguard.security.rate_limit_violation
	rvguard.security.broadcast_storm
	rvguard.security.pgn_scanning

The RVGUARD_SECURITY stream captures "<subject_prefix>.>".
*/
package eventprocessor
