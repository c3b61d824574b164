package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "memory", cfg.Sessions.Store)
	assert.Equal(t, 30*time.Minute, cfg.Sessions.TTL)
	assert.Equal(t, 10*time.Second, cfg.Backend.Timeout)
	assert.True(t, cfg.Backend.Fallback)
	assert.Empty(t, cfg.Backend.BaseURL)
	assert.Equal(t, "admin", cfg.Admin.Username)
	assert.Nil(t, cfg.Audit.KafkaBrokers)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("KIOSK_ADDR", ":9090")
	t.Setenv("KIOSK_BACKEND_URL", "http://localhost:3001/api")
	t.Setenv("KIOSK_BACKEND_TIMEOUT", "2s")
	t.Setenv("KIOSK_BACKEND_FALLBACK", "false")
	t.Setenv("KIOSK_SESSION_STORE", "Redis")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("KIOSK_AUDIT_SAMPLE_RATE", "0.25")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, "http://localhost:3001/api", cfg.Backend.BaseURL)
	assert.Equal(t, 2*time.Second, cfg.Backend.Timeout)
	assert.False(t, cfg.Backend.Fallback)
	assert.Equal(t, "redis", cfg.Sessions.Store)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Audit.KafkaBrokers)
	assert.InDelta(t, 0.25, cfg.Audit.SampleRate, 1e-9)
}

func TestFromEnvErrors(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"bad duration", map[string]string{"KIOSK_SESSION_TTL": "soon"}, "KIOSK_SESSION_TTL"},
		{"bad integer", map[string]string{"REDIS_POOL_SIZE": "many"}, "REDIS_POOL_SIZE"},
		{"redis without url", map[string]string{"KIOSK_SESSION_STORE": "redis"}, "REDIS_URL"},
		{"unknown store", map[string]string{"KIOSK_SESSION_STORE": "etcd"}, "etcd"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := FromEnv()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}
