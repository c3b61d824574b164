// Package config reads the kiosk service configuration from the environment.
//
// An optional .env file in the working directory is loaded first; real
// environment variables win over it.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	pkgstrings "kiosk/pkg/platform/strings"
)

// Server captures the kiosk service configuration.
type Server struct {
	Addr           string
	Environment    string
	RequestTimeout time.Duration

	Log      LogConfig
	Backend  BackendConfig
	Sessions SessionConfig
	Redis    RedisConfig
	Audit    AuditConfig
	Admin    AdminConfig
}

type LogConfig struct {
	// Format is "json" or "text".
	Format string
	Level  string
}

// BackendConfig points at the cultural center REST API. An empty BaseURL runs
// the kiosk fully offline against the embedded mock backend.
type BackendConfig struct {
	BaseURL          string
	Timeout          time.Duration
	Fallback         bool
	FailureThreshold int
	ProbeInterval    time.Duration
	// OfflineDB is a SQLite DSN for the offline backend; empty keeps it in memory.
	OfflineDB string
}

type SessionConfig struct {
	// Store is "memory" or "redis".
	Store string
	TTL   time.Duration
}

type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type AuditConfig struct {
	QueueSize      int
	MemoryCapacity int
	SampleRate     float64
	KafkaBrokers   []string
	KafkaTopic     string
}

type AdminConfig struct {
	Username      string
	Password      string
	JWTSigningKey string
	TokenTTL      time.Duration
}

// MockBackend configures cmd/mockbackend.
type MockBackend struct {
	Addr      string
	OfflineDB string
	Log       LogConfig
}

// Load reads .env if present. A missing file is not an error.
func Load() error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() (Server, error) {
	e := &envReader{}
	cfg := Server{
		Addr:           e.str("KIOSK_ADDR", ":8080"),
		Environment:    e.str("KIOSK_ENV", "development"),
		RequestTimeout: e.duration("KIOSK_REQUEST_TIMEOUT", 30*time.Second),
		Log: LogConfig{
			Format: e.str("KIOSK_LOG_FORMAT", "json"),
			Level:  e.str("KIOSK_LOG_LEVEL", "info"),
		},
		Backend: BackendConfig{
			BaseURL:          e.str("KIOSK_BACKEND_URL", ""),
			Timeout:          e.duration("KIOSK_BACKEND_TIMEOUT", 10*time.Second),
			Fallback:         e.boolean("KIOSK_BACKEND_FALLBACK", true),
			FailureThreshold: e.integer("KIOSK_BREAKER_FAILURES", 5),
			ProbeInterval:    e.duration("KIOSK_BREAKER_PROBE_INTERVAL", 10*time.Second),
			OfflineDB:        e.str("KIOSK_OFFLINE_DB", ""),
		},
		Sessions: SessionConfig{
			Store: strings.ToLower(e.str("KIOSK_SESSION_STORE", "memory")),
			TTL:   e.duration("KIOSK_SESSION_TTL", 30*time.Minute),
		},
		Redis: RedisConfig{
			URL:          e.str("REDIS_URL", ""),
			PoolSize:     e.integer("REDIS_POOL_SIZE", 10),
			MinIdleConns: e.integer("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  e.duration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  e.duration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: e.duration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Audit: AuditConfig{
			QueueSize:      e.integer("KIOSK_AUDIT_QUEUE_SIZE", 1024),
			MemoryCapacity: e.integer("KIOSK_AUDIT_MEMORY_CAPACITY", 500),
			SampleRate:     e.float("KIOSK_AUDIT_SAMPLE_RATE", 1),
			KafkaBrokers:   e.list("KAFKA_BROKERS"),
			KafkaTopic:     e.str("KAFKA_AUDIT_TOPIC", "kiosk.activity"),
		},
		Admin: AdminConfig{
			Username: e.str("KIOSK_ADMIN_USERNAME", "admin"),
			// Development default; override in every real deployment.
			Password:      e.str("KIOSK_ADMIN_PASSWORD", "admin123"),
			JWTSigningKey: e.str("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			TokenTTL:      e.duration("KIOSK_ADMIN_TOKEN_TTL", 8*time.Hour),
		},
	}
	if e.err != nil {
		return Server{}, e.err
	}
	if err := cfg.validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

// MockBackendFromEnv builds the cmd/mockbackend config.
func MockBackendFromEnv() (MockBackend, error) {
	e := &envReader{}
	cfg := MockBackend{
		Addr:      e.str("MOCK_BACKEND_ADDR", ":3001"),
		OfflineDB: e.str("MOCK_BACKEND_DB", ""),
		Log: LogConfig{
			Format: e.str("KIOSK_LOG_FORMAT", "text"),
			Level:  e.str("KIOSK_LOG_LEVEL", "info"),
		},
	}
	return cfg, e.err
}

func (c Server) validate() error {
	switch c.Sessions.Store {
	case "memory":
	case "redis":
		if c.Redis.URL == "" {
			return fmt.Errorf("config: KIOSK_SESSION_STORE=redis requires REDIS_URL")
		}
	default:
		return fmt.Errorf("config: unknown KIOSK_SESSION_STORE %q", c.Sessions.Store)
	}
	if c.Sessions.TTL <= 0 {
		return fmt.Errorf("config: KIOSK_SESSION_TTL must be positive")
	}
	if c.Admin.JWTSigningKey == "" {
		return fmt.Errorf("config: JWT_SIGNING_KEY must not be empty")
	}
	return nil
}

// envReader keeps the first parse error so FromEnv can read everything in one pass.
type envReader struct {
	err error
}

func (e *envReader) str(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func (e *envReader) list(key string) []string {
	return pkgstrings.SplitList(e.str(key, ""))
}

func (e *envReader) duration(key string, def time.Duration) time.Duration {
	raw := e.str(key, "")
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		e.fail(key, err)
		return def
	}
	return d
}

func (e *envReader) integer(key string, def int) int {
	raw := e.str(key, "")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		e.fail(key, err)
		return def
	}
	return n
}

func (e *envReader) float(key string, def float64) float64 {
	raw := e.str(key, "")
	if raw == "" {
		return def
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		e.fail(key, err)
		return def
	}
	return f
}

func (e *envReader) boolean(key string, def bool) bool {
	raw := e.str(key, "")
	if raw == "" {
		return def
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		e.fail(key, err)
		return def
	}
	return b
}

func (e *envReader) fail(key string, err error) {
	if e.err == nil {
		e.err = fmt.Errorf("config: %s: %w", key, err)
	}
}
