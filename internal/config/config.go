package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/LingwalAnkit/NavShiksha-Chat/internal/infrastructure/realtime"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

// Config is the fully resolved process configuration. Precedence, lowest
// first: built-in defaults, .env file, process environment, command-line
// flags.
type Config struct {
	HTTPAddr string

	DBURL      string
	DBMaxConns int
	SQLitePath string
	RedisURL   string

	JWTSecret string
	JWTIssuer string

	LogLevel  string
	LogFormat string

	PresenceTimeout       time.Duration
	PresenceSweepInterval time.Duration
	PresenceSyncInterval  time.Duration

	MessagePageSize int
	MessagePageMax  int
	ReadRetries     int

	AsynqConcurrency int
	AsynqQueues      string
	UserCacheTTL     time.Duration

	// EnvFileErr is set when .env could not be loaded; callers log it as a
	// warning once a logger exists.
	EnvFileErr error
}

// StoreKind names the persistence backend selected by the configuration.
type StoreKind string

const (
	StorePostgres StoreKind = "postgres"
	StoreSQLite   StoreKind = "sqlite"
	StoreMemory   StoreKind = "memory"
)

func (c Config) Store() StoreKind {
	switch {
	case c.DBURL != "":
		return StorePostgres
	case c.SQLitePath != "":
		return StoreSQLite
	default:
		return StoreMemory
	}
}

func defaults() Config {
	return Config{
		HTTPAddr:              ":8080",
		DBMaxConns:            8,
		LogLevel:              "info",
		LogFormat:             "json",
		PresenceTimeout:       60 * time.Second,
		PresenceSweepInterval: 10 * time.Second,
		PresenceSyncInterval:  30 * time.Second,
		MessagePageSize:       30,
		MessagePageMax:        50,
		ReadRetries:           3,
		AsynqConcurrency:      10,
		AsynqQueues:           "default=1,chat=1",
		UserCacheTTL:          5 * time.Minute,
	}
}

// Load resolves the configuration from .env, the environment and args
// (without the program name).
func Load(args []string) (Config, error) {
	cfg := defaults()
	cfg.EnvFileErr = godotenv.Load()

	var errs []error
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	num := func(key string, dst *int) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}

	str("HTTP_ADDR", &cfg.HTTPAddr)
	str("DB_URL", &cfg.DBURL)
	num("DB_MAX_CONNS", &cfg.DBMaxConns)
	str("SQLITE_PATH", &cfg.SQLitePath)
	str("REDIS_URL", &cfg.RedisURL)
	str("JWT_SECRET", &cfg.JWTSecret)
	str("JWT_ISSUER", &cfg.JWTIssuer)
	str("LOG_LEVEL", &cfg.LogLevel)
	str("LOG_FORMAT", &cfg.LogFormat)
	dur("PRESENCE_TIMEOUT", &cfg.PresenceTimeout)
	dur("PRESENCE_SWEEP_INTERVAL", &cfg.PresenceSweepInterval)
	dur("PRESENCE_SYNC_INTERVAL", &cfg.PresenceSyncInterval)
	num("MESSAGE_PAGE_SIZE", &cfg.MessagePageSize)
	num("MESSAGE_PAGE_MAX", &cfg.MessagePageMax)
	num("READ_RETRIES", &cfg.ReadRetries)
	num("ASYNQ_CONCURRENCY", &cfg.AsynqConcurrency)
	str("ASYNQ_QUEUES", &cfg.AsynqQueues)
	dur("USER_CACHE_TTL", &cfg.UserCacheTTL)
	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}

	fs := pflag.NewFlagSet("chat-api", pflag.ContinueOnError)
	fs.StringVar(&cfg.HTTPAddr, "addr", cfg.HTTPAddr, "HTTP listen address")
	fs.StringVar(&cfg.DBURL, "db-url", cfg.DBURL, "Postgres DSN")
	fs.StringVar(&cfg.SQLitePath, "sqlite", cfg.SQLitePath, "SQLite database path (used when --db-url is empty)")
	fs.StringVar(&cfg.RedisURL, "redis-url", cfg.RedisURL, "Redis URL for the bus, cache and task queue")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format: json or console")
	fs.DurationVar(&cfg.PresenceTimeout, "presence-timeout", cfg.PresenceTimeout, "heartbeat timeout before a connection counts as gone")
	fs.IntVar(&cfg.MessagePageSize, "page-size", cfg.MessagePageSize, "default message page size")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.MessagePageSize <= 0 || c.MessagePageMax <= 0 {
		errs = append(errs, errors.New("message page sizes must be positive"))
	}
	if c.MessagePageSize > c.MessagePageMax {
		errs = append(errs, fmt.Errorf("MESSAGE_PAGE_SIZE %d exceeds MESSAGE_PAGE_MAX %d", c.MessagePageSize, c.MessagePageMax))
	}
	if c.PresenceTimeout <= 0 || c.PresenceSweepInterval <= 0 || c.PresenceSyncInterval <= 0 {
		errs = append(errs, errors.New("presence intervals must be positive"))
	}
	if c.PresenceTimeout > 0 && c.PresenceTimeout <= realtime.PingPeriod {
		errs = append(errs, fmt.Errorf("PRESENCE_TIMEOUT %s must exceed the socket ping period %s", c.PresenceTimeout, realtime.PingPeriod))
	}
	if c.DBMaxConns <= 0 {
		errs = append(errs, errors.New("DB_MAX_CONNS must be positive"))
	}
	if c.ReadRetries < 0 {
		errs = append(errs, errors.New("READ_RETRIES must not be negative"))
	}
	return errors.Join(errs...)
}
