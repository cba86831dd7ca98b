package main

import (
	"context"
	"io"

	"github.com/narwhalmedia/medialibrary/internal/infrastructure/events/kafka"
	"github.com/narwhalmedia/medialibrary/internal/infrastructure/events/nats"
	"github.com/narwhalmedia/medialibrary/internal/infrastructure/events/redis"
	"github.com/narwhalmedia/medialibrary/internal/medialibrary/domain"
	"github.com/narwhalmedia/medialibrary/internal/medialibrary/notify"
	"github.com/narwhalmedia/medialibrary/pkg/config"
	"github.com/narwhalmedia/medialibrary/pkg/interfaces"
	"github.com/narwhalmedia/medialibrary/pkg/logger"
)

type mirror interface {
	interfaces.EventHandler
	io.Closer
}

// attachMirror connects the configured broker and forwards every bus event to
// it. It returns nil when mirroring is off.
func attachMirror(ctx context.Context, cfg config.EventsConfig, bus *notify.Bus, log *logger.ZapLogger) (io.Closer, error) {
	var (
		m   mirror
		err error
	)
	switch cfg.Mirror {
	case config.MirrorNATS:
		m, err = nats.NewMirror(ctx, cfg.NATS, log.Zap())
	case config.MirrorKafka:
		m, err = kafka.NewMirror(cfg.Kafka, log.Zap())
	case config.MirrorRedis:
		m, err = redis.NewMirror(ctx, cfg.Redis, log.Zap())
	default:
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	bus.Attach(m, domain.AllEventTypes...)
	log.Info("Mirroring events", interfaces.String("backend", cfg.Mirror))
	return m, nil
}
