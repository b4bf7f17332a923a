package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates every environment-driven setting so main stays lean.
type Config struct {
	Server    Server
	Database  DatabaseConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Log       LogConfig
	Ingestion IngestionConfig
	Dashboard DashboardConfig
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string
	AdminAPIToken string
}

// DatabaseConfig selects the Postgres-backed stores. An empty URL selects the
// in-memory stores.
type DatabaseConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
	ConnMaxLife  time.Duration
}

// RedisConfig configures the dashboard document cache. An empty URL disables caching.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures import event publishing. No brokers disables publishing.
type KafkaConfig struct {
	Brokers     []string
	ImportTopic string
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string
	Format string
}

// IngestionConfig bounds uploaded identity files.
type IngestionConfig struct {
	MaxUploadBytes int64
}

// DashboardConfig controls document rendering and caching.
type DashboardConfig struct {
	CacheTTL       time.Duration
	CurrencyLocale string
}

// Enabled reports whether a Postgres connection is configured.
func (d DatabaseConfig) Enabled() bool { return d.URL != "" }

// Enabled reports whether at least one broker is configured.
func (k KafkaConfig) Enabled() bool { return len(k.Brokers) > 0 }

// FromEnv builds a Config from environment variables, applying defaults for
// anything unset or malformed.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:          envString("IDGOV_ADDR", ":8080"),
			AdminAPIToken: os.Getenv("ADMIN_API_TOKEN"),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns: envInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLife:  envDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:     envList("KAFKA_BROKERS"),
			ImportTopic: envString("KAFKA_IMPORT_TOPIC", "identity.imports"),
		},
		Log: LogConfig{
			Level:  envString("LOG_LEVEL", "info"),
			Format: envString("LOG_FORMAT", "json"),
		},
		Ingestion: IngestionConfig{
			MaxUploadBytes: int64(envInt("MAX_UPLOAD_BYTES", 32<<20)),
		},
		Dashboard: DashboardConfig{
			CacheTTL:       envDuration("DASHBOARD_CACHE_TTL", 10*time.Minute),
			CurrencyLocale: envString("CURRENCY_LOCALE", "pt-BR"),
		},
	}
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func envDuration(key string, def time.Duration) time.Duration {
	v, err := time.ParseDuration(strings.TrimSpace(os.Getenv(key)))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func envList(key string) []string {
	raw := os.Getenv(key)
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
