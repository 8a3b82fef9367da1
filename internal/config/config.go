package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Storage      StorageConfig
	Notification NotificationConfig
	Sentry       SentryConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values. An empty Addr disables Redis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret        string
	Issuer           string
	Audience         string
	ExpirationMillis int64
	TokenHeader      string
	BcryptCost       int

	// Login attempt tracking.
	LoginAttemptBackend    string
	LoginMaxAttempts       int
	LoginAttemptTTLMinutes int
	LoginAttemptCapacity   int64

	// Per-IP limit on POST /user/login.
	LoginRatePerMinute int
	LoginRateBurst     int
}

// StorageConfig locates profile images.
type StorageConfig struct {
	ImageDir          string
	PublicBaseURL     string
	TempImageBaseURL  string
	TempImageTimeoutS int
}

// NotificationConfig holds stub notification endpoints.
type NotificationConfig struct {
	EmailFrom string
}

// SentryConfig enables error reporting when DSN is set.
type SentryConfig struct {
	DSN string
}

const (
	LoginAttemptBackendMemory = "memory"
	LoginAttemptBackendRedis  = "redis"
)

// DevJWTSecret signs tokens when AUTH_JWT_SECRET is unset outside production.
const DevJWTSecret = "dev-secret"

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "user-management-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8081"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:              getEnv("AUTH_JWT_SECRET", DevJWTSecret),
			Issuer:                 getEnv("AUTH_JWT_ISSUER", "Maputo, LLC"),
			Audience:               getEnv("AUTH_JWT_AUDIENCE", "User management portal"),
			ExpirationMillis:       int64(getEnvAsInt("AUTH_JWT_EXPIRATION_MS", 432_000_000)),
			TokenHeader:            getEnv("AUTH_TOKEN_HEADER", "Jwt-Token"),
			BcryptCost:             getEnvAsInt("AUTH_BCRYPT_COST", 12),
			LoginAttemptBackend:    getEnv("AUTH_LOGIN_ATTEMPT_BACKEND", LoginAttemptBackendMemory),
			LoginMaxAttempts:       getEnvAsInt("AUTH_LOGIN_MAX_ATTEMPTS", 5),
			LoginAttemptTTLMinutes: getEnvAsInt("AUTH_LOGIN_ATTEMPT_TTL_MINUTES", 15),
			LoginAttemptCapacity:   int64(getEnvAsInt("AUTH_LOGIN_ATTEMPT_CAPACITY", 100)),
			LoginRatePerMinute:     getEnvAsInt("AUTH_LOGIN_RATE_PER_MINUTE", 20),
			LoginRateBurst:         getEnvAsInt("AUTH_LOGIN_RATE_BURST", 5),
		},
		Storage: StorageConfig{
			ImageDir:          getEnv("STORAGE_IMAGE_DIR", "data/user"),
			PublicBaseURL:     getEnv("STORAGE_PUBLIC_BASE_URL", "http://localhost:8081"),
			TempImageBaseURL:  getEnv("STORAGE_TEMP_IMAGE_BASE_URL", "https://robohash.org/"),
			TempImageTimeoutS: getEnvAsInt("STORAGE_TEMP_IMAGE_TIMEOUT_SECONDS", 5),
		},
		Notification: NotificationConfig{
			EmailFrom: getEnv("NOTIFY_EMAIL_FROM", "support@maputo.example"),
		},
		Sentry: SentryConfig{
			DSN: os.Getenv("SENTRY_DSN"),
		},
	}

	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("AUTH_JWT_SECRET must not be empty")
	}
	if cfg.App.Env == "production" && cfg.Auth.JWTSecret == DevJWTSecret {
		return nil, fmt.Errorf("AUTH_JWT_SECRET must be set in production")
	}
	switch cfg.Auth.LoginAttemptBackend {
	case LoginAttemptBackendMemory, LoginAttemptBackendRedis:
	default:
		return nil, fmt.Errorf("invalid AUTH_LOGIN_ATTEMPT_BACKEND %q", cfg.Auth.LoginAttemptBackend)
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

// TokenTTL returns the token validity window.
func (a AuthConfig) TokenTTL() time.Duration {
	return time.Duration(a.ExpirationMillis) * time.Millisecond
}

// LoginAttemptTTL returns how long a failure counter survives without new failures.
func (a AuthConfig) LoginAttemptTTL() time.Duration {
	return time.Duration(a.LoginAttemptTTLMinutes) * time.Minute
}

// TempImageTimeout bounds the remote avatar fetch.
func (s StorageConfig) TempImageTimeout() time.Duration {
	return time.Duration(s.TempImageTimeoutS) * time.Second
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
