// RVGuard - RV-C CAN Bus Security Monitor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rvguard

package eventprocessor

import (
	"errors"
	"testing"
)

func TestSinkConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*SinkConfig)
		wantErr bool
	}{
		{"defaults", func(*SinkConfig) {}, false},
		{"empty prefix", func(c *SinkConfig) { c.SubjectPrefix = " " }, true},
		{"wildcard prefix", func(c *SinkConfig) { c.SubjectPrefix = "rvguard.>" }, true},
		{"zero rate", func(c *SinkConfig) { c.PublishRate = 0 }, true},
		{"zero burst", func(c *SinkConfig) { c.PublishBurst = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := DefaultSinkConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("error %v should wrap ErrInvalidConfig", err)
			}
		})
	}
}

func TestDefaultStreamConfig(t *testing.T) {
	t.Parallel()
	cfg := DefaultStreamConfig("rvguard.security")
	if cfg.Name != "RVGUARD_SECURITY" {
		t.Errorf("Name = %q", cfg.Name)
	}
	if len(cfg.Subjects) != 1 || cfg.Subjects[0] != "rvguard.security.>" {
		t.Errorf("Subjects = %v", cfg.Subjects)
	}
	if cfg.DuplicateWindow <= 0 {
		t.Error("duplicate window should be set for Nats-Msg-Id dedup")
	}
}

func TestDefaultPublisherConfig(t *testing.T) {
	t.Parallel()
	cfg := DefaultPublisherConfig("nats://127.0.0.1:4222")
	if cfg.URL != "nats://127.0.0.1:4222" || !cfg.EnableTrackMsgID {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.ConnectTimeout <= 0 {
		t.Error("connect timeout should be positive")
	}
}
