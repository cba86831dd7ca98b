package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/narwhalmedia/medialibrary/internal/infrastructure/events"
	"github.com/narwhalmedia/medialibrary/pkg/config"
	"github.com/narwhalmedia/medialibrary/pkg/interfaces"
)

const backend = "redis"

// Mirror publishes library events on Redis pub/sub channels, one channel
// per event type.
type Mirror struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

// NewMirror connects to Redis and pings it.
func NewMirror(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) (*Mirror, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		PoolSize:    cfg.PoolSize,
		DialTimeout: cfg.DialTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis mirror initialized", zap.String("addr", cfg.Addr))
	return &Mirror{client: client, prefix: cfg.ChannelPrefix, logger: logger.Named("redis")}, nil
}

// Channel returns the channel an event type is published on.
func (m *Mirror) Channel(eventType string) string {
	return events.Subject(m.prefix, eventType)
}

// Handle publishes one event.
func (m *Mirror) Handle(ctx context.Context, event interfaces.Event) (err error) {
	defer func() { events.Record(backend, err) }()

	env := events.NewEnvelope(event)
	data, err := env.Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	receivers, err := m.client.Publish(ctx, m.Channel(env.Type), data).Result()
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	m.logger.Debug("event published",
		zap.String("event_type", env.Type),
		zap.Int64("receivers", receivers),
	)
	return nil
}

// EventType implements interfaces.EventHandler.
func (m *Mirror) EventType() string {
	return events.AllTypes
}

// Close closes the client.
func (m *Mirror) Close() error {
	return m.client.Close()
}
