// RVGuard - RV-C CAN Bus Security Monitor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rvguard

/*
Package supervisor provides process supervision for RVGuard using suture v4.

Services are grouped into three layers for failure isolation:

	RootSupervisor ("rvguard")
	├── DetectionSupervisor ("detection-layer")
	│   ├── DetectorService (maintenance ticker, sink reconnect)
	│   └── IngestService (SocketCAN or candump replay pipeline)
	├── MessagingSupervisor ("messaging-layer")
	│   ├── NATSServerService (if nats.embedded_server)
	│   └── WebSocketHubService
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

Crashed services restart with suture's backoff. Supervisor events are
logged through sutureslog on top of the zerolog slog adapter:

	logger := logging.NewSlogLogger()
	tree, err := supervisor.NewSupervisorTree(logger, supervisor.DefaultTreeConfig())
	if err != nil {
	    logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}
	tree.AddDetectionService(services.NewDetectorService(detector))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
	    logging.Error().Err(err).Msg("Supervisor stopped with error")
	}

Service wrappers live in the services subpackage.
*/
package supervisor
