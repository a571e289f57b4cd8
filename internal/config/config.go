package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Attachment access modes.
const (
	MediaAccessDirect    = "direct"
	MediaAccessSignedURL = "signed-url"
)

// Config aggregates runtime configuration for the portal and the CLI.
type Config struct {
	App      AppConfig
	Backend  BackendConfig
	Upload   UploadConfig
	Chat     ChatConfig
	Ticket   TicketConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	AMQP     AMQPConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Locale   LocaleConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
	SessionIdleMinutes    int
}

// BackendConfig points at the support REST backend.
type BackendConfig struct {
	APIURL         string
	TimeoutSeconds int
	MediaAccess    string
}

// UploadConfig configures the resumable upload server.
type UploadConfig struct {
	TUSURL      string
	ChunkBytes  int64
	Concurrency int
}

// ChatConfig configures the streaming chat widget.
type ChatConfig struct {
	ReadBufferBytes int
	UserAvatar      string
	BotAvatar       string
}

// TicketConfig configures the ticket submission flow.
type TicketConfig struct {
	CallTimeout time.Duration
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr       string
	Password   string
	DB         int
	KeyPrefix  string
	SessionTTL time.Duration
}

// AMQPConfig configures lifecycle event forwarding.
type AMQPConfig struct {
	URL       string
	Exchange  string
	QueueSize int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines portal session token parameters.
type AuthConfig struct {
	SessionSecret     string
	SessionTTLMinutes int
	CookieName        string
}

// LocaleConfig selects the default UI language.
type LocaleConfig struct {
	Default string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	mediaAccess := getEnv("MEDIA_ACCESS_TYPE", MediaAccessDirect)
	if mediaAccess != MediaAccessDirect && mediaAccess != MediaAccessSignedURL {
		return nil, fmt.Errorf("invalid MEDIA_ACCESS_TYPE %q", mediaAccess)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "support-portal"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
			SessionIdleMinutes:    getEnvAsInt("PORTAL_SESSION_IDLE_MINUTES", 30),
		},
		Backend: BackendConfig{
			APIURL:         getEnv("API_URL", "http://localhost:3000"),
			TimeoutSeconds: getEnvAsInt("API_TIMEOUT_SECONDS", 30),
			MediaAccess:    mediaAccess,
		},
		Upload: UploadConfig{
			TUSURL:      os.Getenv("TUS_URL"),
			ChunkBytes:  int64(getEnvAsInt("TUS_CHUNK_BYTES", 2*1024*1024)),
			Concurrency: getEnvAsInt("TUS_CONCURRENCY", 3),
		},
		Chat: ChatConfig{
			ReadBufferBytes: getEnvAsInt("CHAT_READ_BUFFER_BYTES", 4096),
			UserAvatar:      getEnv("CHAT_USER_AVATAR", "/user.svg"),
			BotAvatar:       getEnv("CHAT_BOT_AVATAR", "/assistant.svg"),
		},
		Ticket: TicketConfig{
			CallTimeout: getEnvAsDuration("TICKET_CALL_TIMEOUT", 0),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:       os.Getenv("REDIS_ADDR"),
			Password:   os.Getenv("REDIS_PASSWORD"),
			DB:         redisDB,
			KeyPrefix:  getEnv("REDIS_KEY_PREFIX", "portal"),
			SessionTTL: getEnvAsDuration("REDIS_SESSION_TTL", 24*time.Hour),
		},
		AMQP: AMQPConfig{
			URL:       os.Getenv("AMQP_URL"),
			Exchange:  getEnv("AMQP_EXCHANGE", "support.portal"),
			QueueSize: getEnvAsInt("AMQP_QUEUE_SIZE", 256),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			SessionSecret:     getEnv("PORTAL_SESSION_SECRET", "dev-secret"),
			SessionTTLMinutes: getEnvAsInt("PORTAL_SESSION_TTL_MINUTES", 24*60),
			CookieName:        getEnv("PORTAL_SESSION_COOKIE", "portal_session"),
		},
		Locale: LocaleConfig{
			Default: getEnv("LOCALE_DEFAULT", "en"),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// SessionIdle returns how long an unused portal session is kept in memory.
func (a AppConfig) SessionIdle() time.Duration {
	if a.SessionIdleMinutes <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(a.SessionIdleMinutes) * time.Minute
}

// Timeout returns the per-request timeout for non-streaming backend calls.
func (b BackendConfig) Timeout() time.Duration {
	if b.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(b.TimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(val)
	if err != nil {
		return fallback
	}
	return parsed
}
