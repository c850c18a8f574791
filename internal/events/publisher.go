package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/rs/zerolog"
	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/pkg/sasl/scram"
	"github.com/twmb/franz-go/plugin/kslog"

	"github.com/mikaelw/subtrack/internal/config"
	"github.com/mikaelw/subtrack/internal/errtrack"
	"github.com/mikaelw/subtrack/internal/platform"
)

// SASL mechanisms accepted in KAFKA_SASL_MECHANISM.
const (
	Scram256 = "SCRAM-SHA-256"
	Scram512 = "SCRAM-SHA-512"
)

// Publisher emits domain events. Publish must not fail the calling request:
// implementations log and report delivery errors themselves.
type Publisher interface {
	Publish(ctx context.Context, eventType, resourceType, resourceID string, payload any)
	Close()
}

// NewPublisher returns a Kafka publisher when brokers are configured and a
// no-op publisher otherwise.
func NewPublisher(cfg *config.Config, logger zerolog.Logger) (Publisher, error) {
	if len(cfg.KafkaBrokers) == 0 {
		return NoopPublisher{}, nil
	}
	return NewKafkaPublisher(cfg, logger)
}

// KafkaPublisher produces events synchronously to a single topic.
type KafkaPublisher struct {
	client *kgo.Client
	topic  string
	logger zerolog.Logger
}

// NewKafkaPublisher connects to the configured brokers and verifies the
// connection with a ping.
func NewKafkaPublisher(cfg *config.Config, logger zerolog.Logger) (*KafkaPublisher, error) {
	opts := []kgo.Opt{
		kgo.SeedBrokers(cfg.KafkaBrokers...),
		kgo.WithLogger(kslog.New(slog.Default().With("component", "kafka"))),
	}

	if cfg.KafkaSASLMechanism != "" {
		auth := scram.Auth{User: cfg.KafkaUser, Pass: cfg.KafkaPassword}
		switch cfg.KafkaSASLMechanism {
		case Scram256:
			opts = append(opts, kgo.SASL(auth.AsSha256Mechanism()))
		case Scram512:
			opts = append(opts, kgo.SASL(auth.AsSha512Mechanism()))
		}
	}

	if cfg.KafkaTLS {
		opts = append(opts, kgo.DialTLS())
	}

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.Ping(ctx); err != nil {
		client.Close()
		return nil, err
	}

	return &KafkaPublisher{
		client: client,
		topic:  cfg.KafkaTopic,
		logger: logger.With().Str("component", "events").Logger(),
	}, nil
}

// Publish marshals the event and produces it synchronously. Delivery errors
// are logged and reported, never returned; billing state is already
// committed by the time an event is emitted.
func (p *KafkaPublisher) Publish(ctx context.Context, eventType, resourceType, resourceID string, payload any) {
	evt := Event{
		ID:           platform.NewID(),
		Type:         eventType,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		OccurredAt:   time.Now().UTC(),
	}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			p.logger.Error().Err(err).Str("event_type", eventType).Msg("marshal event payload")
			return
		}
		evt.Payload = raw
	}

	value, err := json.Marshal(evt)
	if err != nil {
		p.logger.Error().Err(err).Str("event_type", eventType).Msg("marshal event")
		return
	}

	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(resourceID),
		Value: value,
	}

	pr := p.client.ProduceSync(ctx, record)
	if err := pr.FirstErr(); err != nil {
		p.logger.Error().Err(err).Str("event_type", eventType).Str("resource_id", resourceID).Msg("produce event")
		errtrack.CaptureErrorWithExtra(err, "event_type", eventType)
	}
}

// Close flushes and closes the underlying client.
func (p *KafkaPublisher) Close() {
	p.client.Close()
}

// NoopPublisher drops all events. Used when no brokers are configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, eventType, resourceType, resourceID string, payload any) {
}

func (NoopPublisher) Close() {}
