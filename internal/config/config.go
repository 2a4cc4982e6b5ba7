package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Server   ServerConfig
	MongoDB  MongoDBConfig
	Monitor  MonitorConfig
	Security SecurityConfig
	Kafka    KafkaConfig
	OTel     OTelConfig
}

type AppConfig struct {
	Name     string
	Version  string
	Env      string
	LogLevel string
}

type ServerConfig struct {
	Port string
	Host string
}

type MongoDBConfig struct {
	URI      string
	Database string
}

// MonitorConfig drives the reconciliation loop and the page prober.
type MonitorConfig struct {
	ProbeInterval    time.Duration
	ProbeTimeout     time.Duration
	ProbeConcurrency int
	StorageBackend   string // "mongo" or "memory"
}

type SecurityConfig struct {
	// APIKeys holds owner:key pairs; a key resolves the caller to exactly
	// one owner identity.
	APIKeys []string
}

type KafkaConfig struct {
	Enabled      bool
	Brokers      []string
	StatusTopic  string
	WriteTimeout time.Duration
}

type OTelConfig struct {
	Enabled  bool
	Endpoint string
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		fmt.Println("Warning: .env file not found, using environment variables")
	}

	cfg := &Config{
		App: AppConfig{
			Name:     GetEnv("APP_NAME", "paywatch"),
			Version:  GetEnv("APP_VERSION", "0.1.0"),
			Env:      GetEnv("APP_ENV", "development"),
			LogLevel: GetEnv("LOG_LEVEL", "info"),
		},
		Server: ServerConfig{
			Port: GetEnv("APP_PORT", "8080"),
			Host: GetEnv("APP_HOST", "localhost"),
		},
		MongoDB: MongoDBConfig{
			URI:      GetEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database: GetEnv("MONGODB_DATABASE", "paywatch"),
		},
		Monitor: MonitorConfig{
			ProbeInterval:    GetEnvDuration("MONITOR_PROBE_INTERVAL", 5*time.Second),
			ProbeTimeout:     GetEnvDuration("MONITOR_PROBE_TIMEOUT", 10*time.Second),
			ProbeConcurrency: GetEnvInt("MONITOR_PROBE_CONCURRENCY", 8),
			StorageBackend:   GetEnv("STORAGE_BACKEND", "mongo"),
		},
		Security: SecurityConfig{
			APIKeys: SplitCSV(GetEnv("API_KEYS", "")),
		},
		Kafka: KafkaConfig{
			Enabled:      GetEnvBool("KAFKA_ENABLED", false),
			Brokers:      SplitCSV(GetEnv("KAFKA_BROKERS", "kafka:9092")),
			StatusTopic:  GetEnv("KAFKA_STATUS_TOPIC", "paylinks.status"),
			WriteTimeout: GetEnvDuration("KAFKA_WRITE_TIMEOUT", 5*time.Second),
		},
		OTel: OTelConfig{
			Enabled:  GetEnvBool("OTEL_ENABLED", false),
			Endpoint: GetEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://localhost:4318"),
		},
	}

	if cfg.Monitor.ProbeInterval < time.Second {
		return nil, fmt.Errorf("MONITOR_PROBE_INTERVAL must be >= 1s (got %s)", cfg.Monitor.ProbeInterval)
	}
	if cfg.Monitor.ProbeTimeout <= 0 {
		return nil, fmt.Errorf("MONITOR_PROBE_TIMEOUT must be > 0 (got %s)", cfg.Monitor.ProbeTimeout)
	}
	if cfg.Monitor.ProbeConcurrency <= 0 {
		return nil, fmt.Errorf("MONITOR_PROBE_CONCURRENCY must be > 0 (got %d)", cfg.Monitor.ProbeConcurrency)
	}
	if cfg.Monitor.StorageBackend != "mongo" && cfg.Monitor.StorageBackend != "memory" {
		return nil, fmt.Errorf("STORAGE_BACKEND must be mongo or memory (got %q)", cfg.Monitor.StorageBackend)
	}
	if cfg.Kafka.Enabled && len(cfg.Kafka.Brokers) == 0 {
		return nil, fmt.Errorf("KAFKA_BROKERS must contain at least one broker when KAFKA_ENABLED is set")
	}

	return cfg, nil
}
