// RVGuard - RV-C CAN Bus Security Monitor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rvguard

package main

import (
	"github.com/tomtom215/rvguard/internal/config"
	"github.com/tomtom215/rvguard/internal/logging"
	"github.com/tomtom215/rvguard/internal/security"
)

// aclReloader is the subset of the detector touched by a config reload.
type aclReloader interface {
	AddSourceToACL(entry *security.SourceACLEntry)
	SetDefaultACLPolicy(policy string) error
}

// watchConfig re-applies the runtime-adjustable settings when the config
// file changes: log level, default ACL policy and file-declared ACL entries.
// Everything else needs a restart.
func watchConfig(detector aclReloader) {
	path := config.ConfigFilePath()
	if path == "" {
		return
	}

	err := config.WatchConfigFile(path, func() {
		applyReload(detector, config.LoadWithKoanf)
	})
	if err != nil {
		logging.Warn().Err(err).Str("path", path).Msg("Config hot reload unavailable")
		return
	}
	logging.Info().Str("path", path).Msg("Watching config file for changes")
}

func applyReload(detector aclReloader, load func() (*config.Config, error)) {
	cfg, err := load()
	if err != nil {
		logging.Warn().Err(err).Msg("Ignoring invalid config change")
		return
	}

	logging.SetLevelString(cfg.Logging.Level)

	if err := detector.SetDefaultACLPolicy(cfg.Security.DefaultPolicy); err != nil {
		logging.Warn().Err(err).Msg("Reloaded default ACL policy rejected")
	}
	entries := cfg.ACLEntries()
	for _, e := range entries {
		detector.AddSourceToACL(e)
	}

	logging.Info().
		Str("log_level", cfg.Logging.Level).
		Str("default_policy", cfg.Security.DefaultPolicy).
		Int("acl_entries", len(entries)).
		Msg("Configuration reloaded")
}
