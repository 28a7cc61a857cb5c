// RVGuard - RV-C CAN Bus Security Monitor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rvguard

package eventprocessor

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/tomtom215/rvguard/internal/logging"
	"github.com/tomtom215/rvguard/internal/security"
)

// Metadata keys set on every published message.
const (
	MetadataEventType       = "event_type"
	MetadataSeverity        = "severity"
	MetadataSourceComponent = "source_component"
)

// Sink publishes security events to NATS. It implements security.EventSink.
type Sink struct {
	publisher *Publisher
	limiter   *rate.Limiter
	prefix    string
}

// NewSink creates a rate-capped sink on top of pub.
func NewSink(pub *Publisher, cfg SinkConfig) (*Sink, error) {
	if pub == nil {
		return nil, ErrNilPublisher
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Sink{
		publisher: pub,
		limiter:   rate.NewLimiter(rate.Limit(cfg.PublishRate), cfg.PublishBurst),
		prefix:    cfg.SubjectPrefix,
	}, nil
}

// Subject returns the NATS subject for an event type.
func (s *Sink) Subject(eventType string) string {
	return s.prefix + "." + eventType
}

// Publish serializes and publishes ev. Events over the rate cap return
// security.ErrEventDropped without touching NATS.
func (s *Sink) Publish(ctx context.Context, ev *security.SecurityEvent) error {
	if !s.limiter.Allow() {
		return security.ErrEventDropped
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal security event: %w", err)
	}

	id := ev.EventID
	if id == "" {
		id = uuid.NewString()
	}
	msg := message.NewMessage(id, data)
	msg.Metadata.Set(MetadataEventType, ev.EventType)
	msg.Metadata.Set(MetadataSeverity, string(ev.Severity))
	msg.Metadata.Set(MetadataSourceComponent, ev.SourceComponent)
	msg.SetContext(ctx)

	if err := s.publisher.Publish(ctx, s.Subject(ev.EventType), msg); err != nil {
		return fmt.Errorf("publish %s: %w", ev.EventType, err)
	}
	return nil
}

// BreakerState reports the publisher circuit breaker state.
func (s *Sink) BreakerState() string {
	return s.publisher.BreakerState()
}

// Close closes the underlying publisher.
func (s *Sink) Close() error {
	return s.publisher.Close()
}

// DecodeEvent parses a published message payload.
func DecodeEvent(msg *message.Message) (*security.SecurityEvent, error) {
	var ev security.SecurityEvent
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		return nil, fmt.Errorf("unmarshal security event: %w", err)
	}
	return &ev, nil
}

// ConnectorConfig groups everything Connector needs.
type ConnectorConfig struct {
	Publisher PublisherConfig
	Sink      SinkConfig
	Stream    StreamConfig
	Breaker   CircuitBreakerConfig
}

// Connector returns a security.SinkConnector that provisions the stream and
// builds a NATS sink. Failures wrap security.ErrSinkUnavailable so the
// detector retries on its next maintenance pass.
func Connector(cfg ConnectorConfig) security.SinkConnector {
	logger := watermill.NewSlogLogger(logging.NewSlogLogger())

	return func(ctx context.Context) (security.EventSink, error) {
		if err := ProvisionStream(ctx, cfg.Publisher, cfg.Stream); err != nil {
			return nil, fmt.Errorf("%w: %w", security.ErrSinkUnavailable, err)
		}

		wm, err := NewNATSPublisher(cfg.Publisher, logger)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", security.ErrSinkUnavailable, err)
		}

		pub, err := NewPublisher(wm, NewCircuitBreaker(cfg.Breaker))
		if err != nil {
			_ = wm.Close()
			return nil, err
		}

		sink, err := NewSink(pub, cfg.Sink)
		if err != nil {
			_ = pub.Close()
			return nil, err
		}

		logging.Info().
			Str("url", cfg.Publisher.URL).
			Str("stream", cfg.Stream.Name).
			Str("subject_prefix", cfg.Sink.SubjectPrefix).
			Msg("NATS security event sink ready")
		return sink, nil
	}
}
