// RVGuard - RV-C CAN Bus Security Monitor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rvguard

/*
Package websocket streams security alerts to connected operator consoles.

The Hub implements security.AlertBroadcaster: the detector calls BroadcastJSON
for every alert and the hub fans it out to each Client over gorilla/websocket.
BroadcastJSON never blocks; when the broadcast queue is full the message is
dropped and logged, so a slow console can never stall CAN analysis. A client
whose own send buffer is full is disconnected.

	┌──────────┐
	│ Detector │ BroadcastJSON("security_alert", alert)
	└────┬─────┘
	     │
	┌────┴─────┐
	│   Hub    │
	└────┬─────┘
	┌────┴─────┬─────────┐
	│ Client1  │ Client2 │ ...
	└──────────┴─────────┘

The stream is one-way. Each client has a write loop that sends queued
alerts and protocol-level pings, and a read loop that only services control
frames. A console that sends a data frame is disconnected with close code
1003; on hub shutdown or slow-client eviction the close code is 1001.

Message envelope:

	{"type": "security_alert", "data": {...SecurityAlert...}}

RunWithContext is intended for suture supervision; on shutdown every client
connection is closed.
*/
package websocket
