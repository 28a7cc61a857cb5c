// RVGuard - RV-C CAN Bus Security Monitor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rvguard

/*
Package middleware provides HTTP middleware for the management API.

Middleware here uses the http.HandlerFunc shape and is adapted onto chi
routers by the api package:

  - RequestID: propagates or generates X-Request-ID and seeds the logging
    context with request and correlation IDs
  - PrometheusMetrics: records request count, latency and in-flight gauge

Endpoint labels use the matched chi route pattern when one is available so
that path parameters such as ACL addresses do not explode label cardinality.
*/
package middleware
