// RVGuard - RV-C CAN Bus Security Monitor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rvguard

/*
Package api exposes the detector's management surface over HTTP using the
chi router.

Routes (all JSON, wrapped in the APIResponse envelope):

	GET    /api/v1/health                    liveness and sink state
	GET    /api/v1/security/status           full detector snapshot
	GET    /api/v1/security/alerts           journal listing, newest first
	GET    /api/v1/security/acl              ACL entries and default policy
	PUT    /api/v1/security/acl/policy       set default policy (allow|deny)
	PUT    /api/v1/security/acl/{address}    add or replace an entry
	DELETE /api/v1/security/acl/{address}    remove an entry
	POST   /api/v1/security/reset            clear counters, buckets and alerts
	GET    /api/v1/security/ws               live alert stream (WebSocket)
	GET    /metrics                          Prometheus exposition

Alert listing accepts since (epoch seconds), severity, anomaly_type and
limit query parameters. Unknown severities or anomaly types are rejected
with 400 VALIDATION_ERROR. Addresses accept hex (0x42) or decimal (66).

Middleware order: request ID, real IP, panic recovery, CORS, then per-group
rate limiting (go-chi/httprate), security headers and Prometheus metrics.
Mutating operations are written to the audit log.
*/
package api
