package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, key := range []string{"IDGOV_ADDR", "DATABASE_URL", "REDIS_URL", "KAFKA_BROKERS", "DASHBOARD_CACHE_TTL", "MAX_UPLOAD_BYTES"} {
		t.Setenv(key, "")
	}

	cfg := FromEnv()

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.False(t, cfg.Database.Enabled())
	assert.Empty(t, cfg.Redis.URL)
	assert.False(t, cfg.Kafka.Enabled())
	assert.Equal(t, "identity.imports", cfg.Kafka.ImportTopic)
	assert.Equal(t, 10*time.Minute, cfg.Dashboard.CacheTTL)
	assert.Equal(t, int64(32<<20), cfg.Ingestion.MaxUploadBytes)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("IDGOV_ADDR", ":9090")
	t.Setenv("DATABASE_URL", "postgres://idgov@localhost/idgov")
	t.Setenv("DB_MAX_OPEN_CONNS", "25")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,,")
	t.Setenv("DASHBOARD_CACHE_TTL", "90s")
	t.Setenv("LOG_FORMAT", "text")

	cfg := FromEnv()

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.True(t, cfg.Database.Enabled())
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 90*time.Second, cfg.Dashboard.CacheTTL)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestFromEnvIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("DB_MAX_OPEN_CONNS", "lots")
	t.Setenv("DASHBOARD_CACHE_TTL", "-5m")

	cfg := FromEnv()

	assert.Equal(t, 10, cfg.Database.MaxOpenConns)
	assert.Equal(t, 10*time.Minute, cfg.Dashboard.CacheTTL)
}
