package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// Config is the interface that all configs must implement.
type Config interface {
	Validate() error
}

// MediaLibraryConfig is the full configuration of the media library engine.
type MediaLibraryConfig struct {
	Service  ServiceConfig  `koanf:"service"`
	Database DatabaseConfig `koanf:"database"`
	Logger   LoggerConfig   `koanf:"logger"`
	Metrics  MetricsConfig  `koanf:"metrics"`
	Library  LibraryConfig  `koanf:"library"`
	Events   EventsConfig   `koanf:"events"`
	Artwork  ArtworkConfig  `koanf:"artwork"`
	Search   SearchConfig   `koanf:"search"`
}

// ServiceConfig contains service-specific metadata.
type ServiceConfig struct {
	Name        string `koanf:"name"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"` // dev, staging, production
	Port        int    `koanf:"port"`        // HTTP API, 0 disables it
}

// DatabaseConfig contains entity store settings.
type DatabaseConfig struct {
	Driver          string        `koanf:"driver"` // sqlite, postgres
	Path            string        `koanf:"path"`   // sqlite file, relative to the storage root
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	User            string        `koanf:"user"`
	Password        string        `koanf:"password"`
	Database        string        `koanf:"database"`
	SSLMode         string        `koanf:"ssl_mode"`
	MaxConnections  int           `koanf:"max_connections"`
	MinConnections  int           `koanf:"min_connections"`
	MaxConnLifetime time.Duration `koanf:"max_conn_lifetime"`
	BusyTimeout     time.Duration `koanf:"busy_timeout"`
	Debug           bool          `koanf:"debug"` // trace every statement
}

// LoggerConfig contains logging configuration.
type LoggerConfig struct {
	Level       string `koanf:"level"`  // debug, info, warn, error
	Format      string `koanf:"format"` // json, console
	Development bool   `koanf:"development"`
	OutputPath  string `koanf:"output_path"` // stdout, stderr, or file path
}

// MetricsConfig contains metrics configuration.
type MetricsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

// LibraryConfig tunes discovery and indexing.
type LibraryConfig struct {
	StorageRoot     string        `koanf:"storage_root"`
	EntryPoints     []string      `koanf:"entry_points"`
	BanMode         string        `koanf:"ban_mode"` // recursive, exact
	SkipHidden      bool          `koanf:"skip_hidden"`
	ProgressStep    int           `koanf:"progress_step"`     // percent
	NotifyBatchSize int           `koanf:"notify_batch_size"` // media per added/updated event
	LastPlayedLimit int           `koanf:"last_played_limit"`
	ReloadInterval  time.Duration `koanf:"reload_interval"` // 0 disables periodic reload
}

// EventsConfig selects where bus events are mirrored.
type EventsConfig struct {
	Mirror string      `koanf:"mirror"` // none, nats, kafka, redis
	NATS   NATSConfig  `koanf:"nats"`
	Kafka  KafkaConfig `koanf:"kafka"`
	Redis  RedisConfig `koanf:"redis"`
}

// NATSConfig contains NATS JetStream settings.
type NATSConfig struct {
	URL           string        `koanf:"url"`
	ClientID      string        `koanf:"client_id"`
	Stream        string        `koanf:"stream"`
	SubjectPrefix string        `koanf:"subject_prefix"`
	MaxReconnect  int           `koanf:"max_reconnect"`
	ReconnectWait time.Duration `koanf:"reconnect_wait"`
}

// KafkaConfig contains Kafka producer settings.
type KafkaConfig struct {
	Brokers []string `koanf:"brokers"`
	Topic   string   `koanf:"topic"`
}

// RedisConfig contains Redis pub/sub settings.
type RedisConfig struct {
	Addr          string        `koanf:"addr"`
	Password      string        `koanf:"password"`
	DB            int           `koanf:"db"`
	ChannelPrefix string        `koanf:"channel_prefix"`
	DialTimeout   time.Duration `koanf:"dial_timeout"`
	PoolSize      int           `koanf:"pool_size"`
}

// ArtworkConfig selects where embedded cover art is written.
type ArtworkConfig struct {
	Backend string   `koanf:"backend"` // none, local, s3
	Dir     string   `koanf:"dir"`     // local backend, relative to the storage root
	S3      S3Config `koanf:"s3"`
}

// S3Config contains the artwork bucket settings.
type S3Config struct {
	Bucket       string `koanf:"bucket"`
	Region       string `koanf:"region"`
	Prefix       string `koanf:"prefix"`
	Endpoint     string `koanf:"endpoint"`
	UsePathStyle bool   `koanf:"use_path_style"`
}

// SearchConfig controls the full-text media index.
type SearchConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"` // empty keeps the index in memory
}

// Manager handles configuration loading and parsing.
type Manager struct {
	k           *koanf.Koanf
	serviceName string
	configPaths []string
}

// NewManager creates a new configuration manager.
func NewManager(serviceName string) *Manager {
	return &Manager{
		k:           koanf.New("."),
		serviceName: serviceName,
		configPaths: getDefaultConfigPaths(serviceName),
	}
}

// WithConfigPaths replaces the file search list.
func (m *Manager) WithConfigPaths(paths ...string) *Manager {
	m.configPaths = paths
	return m
}

// LoadConfig loads configuration from all sources.
func (m *Manager) LoadConfig(cfg Config) error {
	// 1. Load defaults from the struct itself
	if err := m.loadDefaults(cfg); err != nil {
		return fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Load from config files (in order of precedence)
	for _, path := range m.configPaths {
		if err := m.loadFromFile(path); err != nil {
			if !os.IsNotExist(err) {
				return fmt.Errorf("failed to load config from %s: %w", path, err)
			}
		}
	}

	// 3. Load from environment variables
	if err := m.loadFromEnv(); err != nil {
		return fmt.Errorf("failed to load from environment: %w", err)
	}

	// 4. Unmarshal into the config struct
	if err := m.k.Unmarshal("", cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 5. Validate the configuration
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	return nil
}

// GetString returns a string value for the given key.
func (m *Manager) GetString(key string) string {
	return m.k.String(key)
}

// loadDefaults loads default values from struct.
func (m *Manager) loadDefaults(cfg Config) error {
	return m.k.Load(structs.Provider(cfg, "koanf"), nil)
}

// loadFromFile loads configuration from a file.
func (m *Manager) loadFromFile(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return err
	}

	var parser koanf.Parser
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return fmt.Errorf("unsupported config file format: %s", ext)
	}

	return m.k.Load(file.Provider(path), parser)
}

// loadFromEnv loads configuration from environment variables.
// MEDIALIBRARY_LIBRARY_STORAGE_ROOT maps to library.storage_root: known keys are
// matched first so that underscores inside key names survive.
func (m *Manager) loadFromEnv() error {
	prefix := strings.ToUpper(m.serviceName) + "_"

	known := make(map[string]string)
	for _, key := range m.k.Keys() {
		known[strings.ReplaceAll(key, ".", "_")] = key
	}

	return m.k.Load(env.Provider(prefix, ".", func(s string) string {
		flat := strings.ToLower(strings.TrimPrefix(s, prefix))
		if key, ok := known[flat]; ok {
			return key
		}
		return strings.ReplaceAll(flat, "_", ".")
	}), nil)
}

// getDefaultConfigPaths returns the default config paths to check.
func getDefaultConfigPaths(serviceName string) []string {
	paths := []string{
		"config.yaml",
		"config.json",
		fmt.Sprintf("%s.yaml", serviceName),
		fmt.Sprintf("%s.json", serviceName),

		"configs/config.yaml",
		"configs/config.json",
		fmt.Sprintf("configs/%s.yaml", serviceName),
		fmt.Sprintf("configs/%s.json", serviceName),

		fmt.Sprintf("configs/%s.%s.yaml", serviceName, getEnvironment()),
		fmt.Sprintf("configs/%s.%s.json", serviceName, getEnvironment()),
	}

	if configPath := os.Getenv("CONFIG_PATH"); configPath != "" {
		paths = append([]string{configPath}, paths...)
	}

	return paths
}

// getEnvironment returns the current environment.
func getEnvironment() string {
	if env := os.Getenv("ENVIRONMENT"); env != "" {
		return env
	}
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "dev"
}

// Validate validates the configuration.
func (c *MediaLibraryConfig) Validate() error {
	if c.Service.Name == "" {
		return errors.New("service name is required")
	}
	if c.Service.Port < 0 || c.Service.Port > 65535 {
		return fmt.Errorf("invalid service port: %d", c.Service.Port)
	}

	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return errors.New("database path is required for sqlite")
		}
	case DriverPostgres:
		if c.Database.Host == "" {
			return errors.New("database host is required for postgres")
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			return fmt.Errorf("invalid database port: %d", c.Database.Port)
		}
	default:
		return fmt.Errorf("unsupported database driver: %q", c.Database.Driver)
	}

	if c.Library.BanMode != BanModeRecursive && c.Library.BanMode != BanModeExact {
		return fmt.Errorf("invalid ban mode: %q", c.Library.BanMode)
	}
	if c.Library.ProgressStep < 1 || c.Library.ProgressStep > 100 {
		return fmt.Errorf("progress step must be between 1 and 100, got %d", c.Library.ProgressStep)
	}
	if c.Library.NotifyBatchSize < 1 {
		return errors.New("notify batch size must be at least 1")
	}
	if c.Library.ReloadInterval != 0 && c.Library.ReloadInterval < time.Minute {
		return errors.New("reload interval must be at least 1 minute")
	}

	switch c.Events.Mirror {
	case MirrorNone:
	case MirrorNATS:
		if c.Events.NATS.URL == "" {
			return errors.New("nats url is required when mirroring to nats")
		}
	case MirrorKafka:
		if len(c.Events.Kafka.Brokers) == 0 || c.Events.Kafka.Topic == "" {
			return errors.New("kafka brokers and topic are required when mirroring to kafka")
		}
	case MirrorRedis:
		if c.Events.Redis.Addr == "" {
			return errors.New("redis addr is required when mirroring to redis")
		}
	default:
		return fmt.Errorf("unsupported event mirror: %q", c.Events.Mirror)
	}

	switch c.Artwork.Backend {
	case ArtworkNone, ArtworkLocal:
	case ArtworkS3:
		if c.Artwork.S3.Bucket == "" {
			return errors.New("s3 bucket is required for the s3 artwork backend")
		}
	default:
		return fmt.Errorf("unsupported artwork backend: %q", c.Artwork.Backend)
	}

	return nil
}

// GetDefaults returns default configuration values.
func GetDefaults() *MediaLibraryConfig {
	return &MediaLibraryConfig{
		Service: ServiceConfig{
			Name:        ServiceName,
			Environment: "dev",
			Port:        DefaultHTTPPort,
		},
		Database: DatabaseConfig{
			Driver:          DriverSQLite,
			Path:            DefaultDatabaseFile,
			Host:            "localhost",
			Port:            DefaultPostgresPort,
			User:            "medialibrary",
			Database:        "medialibrary",
			SSLMode:         "disable",
			MaxConnections:  DefaultMaxConnections,
			MinConnections:  DefaultMinConnections,
			MaxConnLifetime: time.Hour,
			BusyTimeout:     DefaultBusyTimeout,
		},
		Logger: LoggerConfig{
			Level:       "info",
			Format:      "json",
			Development: false,
			OutputPath:  "stdout",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Library: LibraryConfig{
			StorageRoot:     ".",
			BanMode:         BanModeRecursive,
			SkipHidden:      true,
			ProgressStep:    DefaultProgressStep,
			NotifyBatchSize: DefaultNotifyBatchSize,
			LastPlayedLimit: DefaultLastPlayedLimit,
		},
		Events: EventsConfig{
			Mirror: MirrorNone,
			NATS: NATSConfig{
				URL:           "nats://localhost:4222",
				ClientID:      ServiceName,
				Stream:        "MEDIALIBRARY_EVENTS",
				SubjectPrefix: "medialibrary",
				MaxReconnect:  DefaultMaxReconnect,
				ReconnectWait: DefaultReconnectWait,
			},
			Kafka: KafkaConfig{
				Topic: "medialibrary.events",
			},
			Redis: RedisConfig{
				Addr:          "localhost:6379",
				ChannelPrefix: "medialibrary",
				DialTimeout:   DefaultDialTimeout,
				PoolSize:      DefaultPoolSize,
			},
		},
		Artwork: ArtworkConfig{
			Backend: ArtworkLocal,
			Dir:     "artwork",
		},
		Search: SearchConfig{
			Enabled: true,
		},
	}
}
