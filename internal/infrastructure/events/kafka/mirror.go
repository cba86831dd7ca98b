package kafka

import (
	"context"
	"fmt"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/narwhalmedia/medialibrary/internal/infrastructure/events"
	"github.com/narwhalmedia/medialibrary/pkg/config"
	"github.com/narwhalmedia/medialibrary/pkg/interfaces"
)

const backend = "kafka"

// Mirror writes library events to a Kafka topic, keyed by entry point so
// the events of one entry point stay ordered within a partition.
type Mirror struct {
	producer sarama.SyncProducer
	topic    string
	logger   *zap.Logger
}

// NewMirror creates a synchronous producer for cfg.Brokers.
func NewMirror(cfg config.KafkaConfig, logger *zap.Logger) (*Mirror, error) {
	producer, err := sarama.NewSyncProducer(cfg.Brokers, ProducerConfig())
	if err != nil {
		return nil, fmt.Errorf("creating producer: %w", err)
	}
	return NewMirrorWithProducer(producer, cfg.Topic, logger), nil
}

// NewMirrorWithProducer wraps an existing producer.
func NewMirrorWithProducer(producer sarama.SyncProducer, topic string, logger *zap.Logger) *Mirror {
	return &Mirror{
		producer: producer,
		topic:    topic,
		logger:   logger.Named("kafka"),
	}
}

// ProducerConfig is the sarama configuration used by the mirror.
func ProducerConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Return.Successes = true
	return cfg
}

// Handle sends one event.
func (m *Mirror) Handle(_ context.Context, event interfaces.Event) (err error) {
	defer func() { events.Record(backend, err) }()

	env := events.NewEnvelope(event)
	data, err := env.Marshal()
	if err != nil {
		return fmt.Errorf("marshaling message: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: m.topic,
		Key:   sarama.StringEncoder(env.EntryPoint),
		Value: sarama.ByteEncoder(data),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(env.Type)},
			{Key: []byte("event_id"), Value: []byte(env.ID)},
		},
	}

	partition, offset, err := m.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("sending message: %w", err)
	}

	m.logger.Debug("event published",
		zap.String("event_type", env.Type),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset),
	)
	return nil
}

// EventType implements interfaces.EventHandler.
func (m *Mirror) EventType() string {
	return events.AllTypes
}

// Close closes the producer.
func (m *Mirror) Close() error {
	return m.producer.Close()
}
