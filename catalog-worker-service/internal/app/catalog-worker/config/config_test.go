package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Address())
	assert.Equal(t, "catalog_service", cfg.Database.DBName)
	assert.Equal(t, 30*time.Minute, cfg.Redis.SnapshotTTL)
	assert.Equal(t, "mongodb://localhost:27017", cfg.MongoDB.URI)
	assert.Equal(t, "catalog_events", cfg.MongoDB.Database)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "product_events", cfg.Kafka.Topic)
	assert.Equal(t, "catalog-worker-group", cfg.Kafka.GroupID)
	assert.Equal(t, 1, cfg.Kafka.MinBytes)
	assert.Equal(t, 10000000, cfg.Kafka.MaxBytes)
	assert.Equal(t, "0 */5 * * * *", cfg.CronSchedule.LowStockScan)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("KAFKA_GROUP_ID", "audit")
	t.Setenv("CRON_LOW_STOCK_SCAN", "@every 30s")
	t.Setenv("REDIS_LOW_STOCK_TTL", "2h")
	t.Setenv("MONGODB_URI", "mongodb://mongo:27017")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "audit", cfg.Kafka.GroupID)
	assert.Equal(t, "@every 30s", cfg.CronSchedule.LowStockScan)
	assert.Equal(t, 2*time.Hour, cfg.Redis.SnapshotTTL)
	assert.Equal(t, "mongodb://mongo:27017", cfg.MongoDB.URI)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"REDIS_DB", "first"},
		{"REDIS_LOW_STOCK_TTL", "0s"},
		{"KAFKA_MIN_BYTES", "0"},
		{"KAFKA_BROKERS", " , "},
		{"CRON_LOW_STOCK_SCAN", "*/5 * * * *"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			cfg, err := Load()
			assert.Nil(t, cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}
