// RVGuard - RV-C CAN Bus Security Monitor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rvguard

package main

import (
	"github.com/tomtom215/rvguard/internal/canbus"
	"github.com/tomtom215/rvguard/internal/config"
)

// frameSourceOpener picks the candump replay when a file is configured and
// the live SocketCAN interface otherwise. The returned name is used in logs.
func frameSourceOpener(cfg config.CANConfig) (canbus.SourceOpener, string) {
	if cfg.ReplayFile != "" {
		path := cfg.ReplayFile
		return func() (canbus.FrameSource, error) {
			src, err := canbus.OpenReplay(path)
			if err != nil {
				return nil, err
			}
			return src, nil
		}, path
	}

	iface := cfg.Interface
	return func() (canbus.FrameSource, error) {
		return canbus.NewSocketReader(iface)
	}, iface
}
