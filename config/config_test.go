package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", " secret ")

	cfg := LoadConfig()
	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, "secret", cfg.JWT.Secret)
	assert.Equal(t, 24*time.Hour, cfg.JWT.TTL)
	assert.Equal(t, BackendPostgres, cfg.StoreBackend)
	assert.Equal(t, MQNone, cfg.MQBackend)
	assert.Equal(t, StorageNone, cfg.StorageBackend)
	assert.Equal(t, 3, cfg.Mail.LowStockDays)
	assert.Equal(t, time.UTC, cfg.Location())
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("JWT_TTL", "2h")
	t.Setenv("STORE_BACKEND", "Memory")
	t.Setenv("DB_SSL", "true")
	t.Setenv("TIMEZONE", "Asia/Kolkata")

	cfg := LoadConfig()
	assert.Equal(t, 9090, cfg.ServerPort)
	assert.Equal(t, 2*time.Hour, cfg.JWT.TTL)
	assert.Equal(t, BackendMemory, cfg.StoreBackend)
	assert.True(t, cfg.Database.UseSSL)
	assert.Equal(t, "Asia/Kolkata", cfg.Location().String())
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			ServerPort:     8080,
			JWT:            JWTConfig{Secret: "s", TTL: time.Hour},
			StoreBackend:   BackendMemory,
			MQBackend:      MQNone,
			StorageBackend: StorageNone,
			Timezone:       "UTC",
		}
	}

	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"in-process backends", func(c *Config) { c.MQBackend = MQLocal; c.StorageBackend = StorageMemory }, ""},
		{"missing secret", func(c *Config) { c.JWT.Secret = "" }, "JWT_SECRET is required"},
		{"zero ttl", func(c *Config) { c.JWT.TTL = 0 }, "JWT_TTL must be positive"},
		{"unknown store", func(c *Config) { c.StoreBackend = "sqlite" }, `unknown STORE_BACKEND "sqlite"`},
		{"mongo without uri", func(c *Config) { c.StoreBackend = BackendMongo }, "MONGO_URI is required"},
		{"pubsub without project", func(c *Config) { c.MQBackend = MQPubSub }, "PUBSUB_PROJECT_ID is required"},
		{"unknown mq", func(c *Config) { c.MQBackend = "kafka" }, `unknown MQ_BACKEND "kafka"`},
		{"gcs without bucket", func(c *Config) { c.StorageBackend = StorageGCS }, "GCS_BUCKET is required"},
		{"negative low stock", func(c *Config) { c.Mail.LowStockDays = -1 }, "LOW_STOCK_DAYS"},
		{"bad timezone", func(c *Config) { c.Timezone = "Mars/Olympus" }, "invalid TIMEZONE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.modify(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
