package nats

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/narwhalmedia/medialibrary/internal/infrastructure/events"
	"github.com/narwhalmedia/medialibrary/pkg/config"
	"github.com/narwhalmedia/medialibrary/pkg/interfaces"
)

const (
	backend        = "nats"
	publishTimeout = 5 * time.Second
)

// Mirror republishes library events on a JetStream stream.
type Mirror struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	cfg    config.NATSConfig
	logger *zap.Logger
}

// NewMirror connects to NATS and makes sure the stream exists.
func NewMirror(ctx context.Context, cfg config.NATSConfig, logger *zap.Logger) (*Mirror, error) {
	logger = logger.Named("nats")
	opts := []nats.Option{
		nats.Name(cfg.ClientID),
		nats.MaxReconnects(cfg.MaxReconnect),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			logger.Info("NATS connection closed")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	m := &Mirror{nc: nc, js: js, cfg: cfg, logger: logger}
	if err := m.ensureStream(ctx); err != nil {
		nc.Close()
		return nil, err
	}

	logger.Info("NATS mirror initialized",
		zap.String("url", cfg.URL),
		zap.String("stream", cfg.Stream),
	)
	return m, nil
}

func (m *Mirror) ensureStream(ctx context.Context) error {
	stream := jetstream.StreamConfig{
		Name:         m.cfg.Stream,
		Description:  "Media library events",
		Subjects:     []string{events.Subject(m.cfg.SubjectPrefix, ">")},
		Retention:    jetstream.LimitsPolicy,
		MaxAge:       7 * 24 * time.Hour,
		MaxConsumers: -1,
		Replicas:     1,
		Storage:      jetstream.FileStorage,
		Discard:      jetstream.DiscardOld,
		MaxMsgs:      -1,
		MaxBytes:     -1,
	}
	if _, err := m.js.CreateOrUpdateStream(ctx, stream); err != nil {
		return fmt.Errorf("failed to create stream %s: %w", m.cfg.Stream, err)
	}
	return nil
}

// Handle publishes one event. The envelope id doubles as the JetStream
// dedup id.
func (m *Mirror) Handle(ctx context.Context, event interfaces.Event) (err error) {
	defer func() { events.Record(backend, err) }()

	env := events.NewEnvelope(event)
	data, err := env.Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	subject := events.Subject(m.cfg.SubjectPrefix, env.Type)
	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	ack, err := m.js.Publish(pubCtx, subject, data, jetstream.WithMsgID(env.ID))
	if err != nil {
		m.logger.Error("failed to publish event",
			zap.Error(err),
			zap.String("event_type", env.Type),
			zap.String("subject", subject),
		)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	m.logger.Debug("event published",
		zap.String("event_type", env.Type),
		zap.String("subject", subject),
		zap.Uint64("sequence", ack.Sequence),
	)
	return nil
}

// EventType implements interfaces.EventHandler.
func (m *Mirror) EventType() string {
	return events.AllTypes
}

// Health checks the connection and the JetStream account.
func (m *Mirror) Health(ctx context.Context) error {
	if !m.nc.IsConnected() {
		return fmt.Errorf("NATS client is not connected")
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if _, err := m.js.AccountInfo(ctx); err != nil {
		return fmt.Errorf("failed to get JetStream account info: %w", err)
	}
	return nil
}

// Close drains pending publishes and closes the connection.
func (m *Mirror) Close() error {
	if err := m.nc.Drain(); err != nil {
		m.logger.Error("failed to drain NATS connection", zap.Error(err))
	}
	m.nc.Close()
	return nil
}
