// Package config loads process configuration from CIVITAS_* environment
// variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	minIdentifierKey = 16
	maxIdentifierKey = 64
)

// Sequence counter backends.
const (
	SequenceMemory   = "memory"
	SequencePostgres = "postgres"
	SequenceRedis    = "redis"
)

// Rate limit window backends.
const (
	RateLimitMemory = "memory"
	RateLimitRedis  = "redis"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string        `env:"ADDR" envDefault:":8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	DefaultLocale   string        `env:"DEFAULT_LOCALE" envDefault:"pt-BR"`
	// TrustActorHeaders accepts X-Actor-ID/X-Actor-Role set by the gateway.
	TrustActorHeaders bool `env:"TRUST_ACTOR_HEADERS" envDefault:"true"`
	// AdminToken guards /admin routes; empty disables them.
	AdminToken string `env:"ADMIN_TOKEN"`
}

type Database struct {
	URL          string        `env:"DATABASE_URL"`
	MaxOpenConns int           `env:"DATABASE_MAX_OPEN_CONNS" envDefault:"20"`
	MaxIdleConns int           `env:"DATABASE_MAX_IDLE_CONNS" envDefault:"5"`
	TxTimeout    time.Duration `env:"TX_TIMEOUT" envDefault:"5s"`
	Migrate      bool          `env:"DATABASE_MIGRATE" envDefault:"true"`
}

type RedisConfig struct {
	URL          string        `env:"REDIS_URL"`
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}

type Kafka struct {
	Brokers      []string      `env:"KAFKA_BROKERS" envSeparator:","`
	OutboxTopic  string        `env:"OUTBOX_TOPIC" envDefault:"civitas.audit"`
	PollInterval time.Duration `env:"OUTBOX_POLL_INTERVAL" envDefault:"2s"`
	BatchSize    int           `env:"OUTBOX_BATCH_SIZE" envDefault:"100"`
}

// Sequence selects the number counter. An empty backend resolves to
// postgres when a database is configured and to memory otherwise.
type Sequence struct {
	Backend       string `env:"SEQUENCE_BACKEND"`
	RetryAttempts int    `env:"NUMBER_RETRY_ATTEMPTS" envDefault:"3"`
}

type Directory struct {
	URL      string        `env:"DIRECTORY_URL"`
	Timeout  time.Duration `env:"DIRECTORY_TIMEOUT" envDefault:"3s"`
	CacheTTL time.Duration `env:"DIRECTORY_CACHE_TTL" envDefault:"10m"`
}

// RateLimit bounds anonymous submissions and tip lookups per client IP.
// A zero request count disables that class.
type RateLimit struct {
	Backend         string        `env:"RATE_LIMIT_BACKEND" envDefault:"memory"`
	SubmitRequests  int           `env:"RATE_LIMIT_SUBMIT_REQUESTS" envDefault:"20"`
	SubmitWindow    time.Duration `env:"RATE_LIMIT_SUBMIT_WINDOW" envDefault:"1m"`
	TipLookups      int           `env:"RATE_LIMIT_TIP_LOOKUPS" envDefault:"10"`
	TipLookupWindow time.Duration `env:"RATE_LIMIT_TIP_WINDOW" envDefault:"1m"`
}

type Logging struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

type Tracing struct {
	Endpoint    string `env:"OTEL_ENDPOINT"`
	ServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"civitas"`
}

// Config is the complete process configuration.
type Config struct {
	Server      Server
	Database    Database
	Redis       RedisConfig
	Kafka       Kafka
	Sequence    Sequence
	Directory   Directory
	RateLimit   RateLimit
	Logging     Logging
	Tracing     Tracing
	CatalogFile string `env:"CATALOG_FILE"`
	// IdentifierKey keys the hash applied to client IPs and feedback codes.
	IdentifierKey string `env:"IDENTIFIER_KEY"`
}

// Load parses the environment. Every variable is prefixed with CIVITAS_.
func Load() (Config, error) {
	return parse(env.Options{Prefix: "CIVITAS_"})
}

// LoadFrom parses cfg from an explicit environment map, for tests.
func LoadFrom(environment map[string]string) (Config, error) {
	return parse(env.Options{Prefix: "CIVITAS_", Environment: environment})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	c.Sequence.Backend = strings.ToLower(strings.TrimSpace(c.Sequence.Backend))
	if c.Sequence.Backend == "" {
		c.Sequence.Backend = SequenceMemory
		if c.UsesPostgres() {
			c.Sequence.Backend = SequencePostgres
		}
	}
	switch c.Sequence.Backend {
	case SequenceMemory:
		if c.UsesPostgres() {
			return fmt.Errorf("config: sequence backend %q would restart numbering over a durable database; use postgres or redis", c.Sequence.Backend)
		}
	case SequencePostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("config: sequence backend %q requires CIVITAS_DATABASE_URL", c.Sequence.Backend)
		}
	case SequenceRedis:
		if c.Redis.URL == "" {
			return fmt.Errorf("config: sequence backend %q requires CIVITAS_REDIS_URL", c.Sequence.Backend)
		}
	default:
		return fmt.Errorf("config: unknown sequence backend %q", c.Sequence.Backend)
	}
	c.RateLimit.Backend = strings.ToLower(strings.TrimSpace(c.RateLimit.Backend))
	switch c.RateLimit.Backend {
	case RateLimitMemory:
	case RateLimitRedis:
		if c.Redis.URL == "" {
			return fmt.Errorf("config: rate limit backend %q requires CIVITAS_REDIS_URL", c.RateLimit.Backend)
		}
	default:
		return fmt.Errorf("config: unknown rate limit backend %q", c.RateLimit.Backend)
	}
	if c.Sequence.RetryAttempts < 1 {
		return fmt.Errorf("config: CIVITAS_NUMBER_RETRY_ATTEMPTS must be at least 1")
	}
	if c.UsesPostgres() && len(c.IdentifierKey) < minIdentifierKey {
		return fmt.Errorf("config: CIVITAS_IDENTIFIER_KEY must be at least %d bytes with a durable database", minIdentifierKey)
	}
	if len(c.IdentifierKey) > maxIdentifierKey {
		return fmt.Errorf("config: CIVITAS_IDENTIFIER_KEY must be at most %d bytes", maxIdentifierKey)
	}
	return nil
}

// UsesPostgres reports whether durable stores are configured.
func (c Config) UsesPostgres() bool {
	return c.Database.URL != ""
}
