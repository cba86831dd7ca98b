package redis_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/narwhalmedia/medialibrary/internal/infrastructure/events"
	"github.com/narwhalmedia/medialibrary/internal/infrastructure/events/redis"
	"github.com/narwhalmedia/medialibrary/internal/medialibrary/domain"
	"github.com/narwhalmedia/medialibrary/pkg/config"
)

func TestMirror_Handle(t *testing.T) {
	cfg := config.RedisConfig{
		Addr:          "localhost:6379",
		ChannelPrefix: "medialibrary-test",
		DialTimeout:   time.Second,
		PoolSize:      2,
	}
	ctx := context.Background()

	mirror, err := redis.NewMirror(ctx, cfg, zaptest.NewLogger(t))
	if err != nil {
		t.Skip("Redis not available:", err)
	}
	defer mirror.Close()

	client := goredis.NewClient(&goredis.Options{Addr: cfg.Addr})
	defer client.Close()
	pubsub := client.Subscribe(ctx, mirror.Channel(domain.EventDiscoveryCompleted))
	defer pubsub.Close()
	_, err = pubsub.Receive(ctx)
	require.NoError(t, err)

	// Act
	err = mirror.Handle(ctx, domain.NewDiscoveryCompletedEvent("/music", nil))

	// Assert
	require.NoError(t, err)
	recvCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	msg, err := pubsub.ReceiveMessage(recvCtx)
	require.NoError(t, err)

	var env events.Envelope
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &env))
	assert.Equal(t, domain.EventDiscoveryCompleted, env.Type)
	assert.Equal(t, "/music", env.EntryPoint)
	assert.Empty(t, env.Error)
}
