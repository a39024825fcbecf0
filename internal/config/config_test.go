package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	var c Config
	c.App.Port = "5000"
	c.App.Env = "development"
	c.Store.Driver = StoreDriverMongo
	c.Mongo.URI = "mongodb://localhost:27017"
	c.Mongo.Database = "devconnect"
	c.DB.DSN = "postgres://localhost/devconnect"
	c.Auth.JWTSecret = "secure-secret-at-least-32-chars-long"
	return c
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		expectError bool
	}{
		{"valid mongo", func(c *Config) {}, false},
		{"memory needs no databases", func(c *Config) {
			c.Store.Driver = StoreDriverMemory
			c.Mongo.URI = ""
			c.DB.DSN = ""
		}, false},
		{"missing port", func(c *Config) { c.App.Port = "" }, true},
		{"missing secret", func(c *Config) { c.Auth.JWTSecret = "" }, true},
		{"mongo without dsn", func(c *Config) { c.DB.DSN = "" }, true},
		{"unknown driver", func(c *Config) { c.Store.Driver = "cassandra" }, true},
		{"short secret in production", func(c *Config) {
			c.App.Env = "production"
			c.Auth.JWTSecret = "short"
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(&c)
			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadConfig_FromEnv(t *testing.T) {
	t.Setenv("APP_PORT", "8080")
	t.Setenv("STORE_DRIVER", " Memory ")
	t.Setenv("JWT_SECRET", "secure-secret-at-least-32-chars-long")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092")
	t.Setenv("REDIS_CACHE_TTL", "90s")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, StoreDriverMemory, cfg.Store.Driver)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 90*time.Second, cfg.Redis.CacheTTL)
	assert.Equal(t, time.Hour, cfg.Auth.TokenLifespan)
	assert.Equal(t, uint(5), cfg.Worker.MaxRetries)
	assert.Equal(t, 10, cfg.Worker.MaxRedeliveries)
}
