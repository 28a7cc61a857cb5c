// RVGuard - RV-C CAN Bus Security Monitor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rvguard

/*
Package services adapts RVGuard components to the suture.Service interface.

Each wrapper depends on a small interface rather than a concrete type so
it can be tested with doubles:

  - DetectorService: security.Detector maintenance loop
  - IngestService: canbus.Pipeline; a finished replay stops the service
    for good via suture.ErrDoNotRestart
  - HTTPServerService: *http.Server with graceful shutdown
  - NATSServerService: eventprocessor.EmbeddedServer lifecycle
  - WebSocketHubService: websocket.Hub broadcast loop

All wrappers implement fmt.Stringer so suture log lines name the service.
*/
package services
