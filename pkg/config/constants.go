package config

import "time"

const (
	// ServiceName prefixes environment overrides (MEDIALIBRARY_...).
	ServiceName = "medialibrary"

	DefaultHTTPPort     = 8080
	DefaultPostgresPort = 5432

	DefaultDatabaseFile   = "medialibrary.db"
	DefaultMaxConnections = 10
	DefaultMinConnections = 2
	DefaultBusyTimeout    = 5 * time.Second

	DefaultProgressStep    = 10
	DefaultNotifyBatchSize = 20
	DefaultLastPlayedLimit = 100

	DefaultMaxReconnect  = 10
	DefaultReconnectWait = 2 * time.Second
	DefaultDialTimeout   = 5 * time.Second
	DefaultPoolSize      = 10
)

// Database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Ban list interpretations.
const (
	BanModeRecursive = "recursive"
	BanModeExact     = "exact"
)

// Event mirrors.
const (
	MirrorNone  = "none"
	MirrorNATS  = "nats"
	MirrorKafka = "kafka"
	MirrorRedis = "redis"
)

// Artwork backends.
const (
	ArtworkNone  = "none"
	ArtworkLocal = "local"
	ArtworkS3    = "s3"
)
