// Package events publishes session events to Kafka for downstream
// observability tooling.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"ev-faq-dialogue-service/internal/models"
	"ev-faq-dialogue-service/internal/observability/metrics"
)

// Signal event types carried on the signal topic.
const (
	SignalSessionStarted    = "session.started"
	SignalSessionClosed     = "session.closed"
	SignalFarewellArmed     = "session.farewell_armed"
	SignalTransferRequested = "session.transfer_requested"
	SignalStatusChanged     = "session.status_changed"
)

// SignalEvent is the envelope for session lifecycle signals. Reason and
// Status are filled per event type.
type SignalEvent struct {
	EventType string `json:"eventType"`
	SessionID string `json:"sessionId"`
	TurnID    string `json:"turnId,omitempty"`
	Status    string `json:"status,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// Publisher publishes session events to separate Kafka topics: finalized
// utterances on the transcript topic, lifecycle signals on the signal
// topic. Both are keyed by session id so per-session ordering survives
// partitioning.
type Publisher struct {
	writerTranscript *kafka.Writer
	writerSignal     *kafka.Writer
	principal        string
	topicTranscript  string
	topicSignal      string
	enabled          bool
	metrics          *metrics.Metrics
}

// Config holds Kafka publisher configuration.
type Config struct {
	Brokers         []string
	TopicTranscript string
	TopicSignal     string
	Principal       string
	Enabled         bool
}

// New creates a Kafka event publisher. With Kafka disabled or no brokers
// configured it runs in log-only mode: publishes succeed, nothing leaves
// the process.
func New(cfg *Config) *Publisher {
	m := metrics.DefaultMetrics

	if cfg == nil {
		log.Info().Msg("Kafka disabled (nil config), using log-only mode")
		return &Publisher{
			enabled: false,
			metrics: m,
		}
	}

	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		log.Info().Msg("Kafka disabled, using log-only mode")
		return &Publisher{
			principal:       cfg.Principal,
			topicTranscript: cfg.TopicTranscript,
			topicSignal:     cfg.TopicSignal,
			enabled:         false,
			metrics:         m,
		}
	}

	// Longer dial timeout for DNS resolution in Kubernetes.
	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}

	transport := &kafka.Transport{
		Dial: dialer.DialFunc,
	}

	writerTranscript := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.TopicTranscript,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
		Transport:    transport,
	}

	writerSignal := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.TopicSignal,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
		Transport:    transport,
	}

	log.Info().
		Strs("brokers", cfg.Brokers).
		Str("topicTranscript", cfg.TopicTranscript).
		Str("topicSignal", cfg.TopicSignal).
		Str("principal", cfg.Principal).
		Msg("Kafka publisher initialized")

	return &Publisher{
		writerTranscript: writerTranscript,
		writerSignal:     writerSignal,
		principal:        cfg.Principal,
		topicTranscript:  cfg.TopicTranscript,
		topicSignal:      cfg.TopicSignal,
		enabled:          true,
		metrics:          m,
	}
}

// PublishUtterance publishes a finalized utterance to the transcript topic.
func (p *Publisher) PublishUtterance(ctx context.Context, utt models.FinalizedUtterance) error {
	return p.publish(ctx, p.writerTranscript, p.topicTranscript, "utterance", utt.SessionID, utt)
}

// PublishSignal publishes a session lifecycle signal to the signal topic.
// A zero Timestamp is stamped with the current time.
func (p *Publisher) PublishSignal(ctx context.Context, sig SignalEvent) error {
	if sig.Timestamp == 0 {
		sig.Timestamp = time.Now().UnixMilli()
	}
	return p.publish(ctx, p.writerSignal, p.topicSignal, sig.EventType, sig.SessionID, sig)
}

// publish is the internal method that writes to a specific Kafka writer.
func (p *Publisher) publish(ctx context.Context, writer *kafka.Writer, topic, eventType, key string, event any) error {
	start := time.Now()

	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("Failed to marshal event")
		return err
	}

	log.Debug().
		Str("principal", p.principal).
		Str("topic", topic).
		Str("key", key).
		RawJSON("payload", payload).
		Msg("Publishing event")

	// If Kafka is disabled, just log
	if !p.enabled || writer == nil {
		p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start).Seconds())
		return nil
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(eventType)},
			{Key: "principal", Value: []byte(p.principal)},
		},
	}

	if err := writer.WriteMessages(ctx, msg); err != nil {
		log.Error().
			Err(err).
			Str("topic", topic).
			Str("key", key).
			Msg("Failed to write to Kafka")
		p.metrics.RecordKafkaPublish(topic, eventType, err, time.Since(start).Seconds())
		return err
	}

	p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start).Seconds())
	return nil
}

// Close closes both Kafka writers.
func (p *Publisher) Close() error {
	var err error
	if p.writerTranscript != nil {
		if e := p.writerTranscript.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing transcript writer")
			err = e
		}
	}
	if p.writerSignal != nil {
		if e := p.writerSignal.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing signal writer")
			err = e
		}
	}
	return err
}
