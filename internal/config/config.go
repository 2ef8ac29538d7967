package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/satrapit/db-conn/pkg/config"
)

// Config holds all configuration for the auth service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"AUTH_HTTP_PORT" envDefault:"8010"`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"dbconn"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"dbconn_secret"`
	PostgresDB   string `env:"AUTH_DB_NAME" envDefault:"dbconn_auth"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	// Connection pool tuning
	DBMaxConns            int32 `env:"DB_MAX_CONNS" envDefault:"10"`
	DBMinConns            int32 `env:"DB_MIN_CONNS" envDefault:"2"`
	DBMaxConnLifetimeMins int   `env:"DB_MAX_CONN_LIFETIME_MINS" envDefault:"60"`
	DBMaxConnIdleTimeMins int   `env:"DB_MAX_CONN_IDLE_TIME_MINS" envDefault:"10"`
	SlowQueryThresholdMs  int   `env:"SLOW_QUERY_THRESHOLD_MS" envDefault:"200"`

	// Kafka
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// Redis, optional. Rate limiting is disabled when the host is empty.
	RedisHost     string `env:"REDIS_HOST"`
	RedisPort     int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Session tokens
	JWTSecret   string `env:"JWT_SECRET" envDefault:"change-this-to-a-secure-secret"`
	JWTIssuer   string `env:"JWT_ISSUER" envDefault:"phoneauth"`
	JWTAudience string `env:"JWT_AUDIENCE" envDefault:"phoneauth-app"`
	TokenTTL    string `env:"TOKEN_TTL" envDefault:"720h"`

	// One-time codes
	OTPResendWindow string `env:"OTP_RESEND_WINDOW" envDefault:"120s"`
	OTPDebugExpose  bool   `env:"OTP_DEBUG_EXPOSE" envDefault:"false"`
	OTPSendLimit    int64  `env:"OTP_SEND_LIMIT" envDefault:"10"`
	OTPSendWindow   string `env:"OTP_SEND_LIMIT_WINDOW" envDefault:"1h"`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4317"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load auth config: %w", err)
	}
	if cfg.HTTPPort < 1 || cfg.HTTPPort > 65535 {
		return nil, fmt.Errorf("invalid HTTP port: %d", cfg.HTTPPort)
	}

	if _, err := time.ParseDuration(cfg.TokenTTL); err != nil {
		return nil, fmt.Errorf("parse TOKEN_TTL %q: %w", cfg.TokenTTL, err)
	}
	if _, err := time.ParseDuration(cfg.OTPResendWindow); err != nil {
		return nil, fmt.Errorf("parse OTP_RESEND_WINDOW %q: %w", cfg.OTPResendWindow, err)
	}
	if _, err := time.ParseDuration(cfg.OTPSendWindow); err != nil {
		return nil, fmt.Errorf("parse OTP_SEND_LIMIT_WINDOW %q: %w", cfg.OTPSendWindow, err)
	}

	// In non-development environments, require an explicitly set, strong JWT secret.
	if cfg.Environment != "development" {
		if cfg.JWTSecret == "change-this-to-a-secure-secret" {
			return nil, fmt.Errorf("JWT_SECRET must be explicitly set via environment variable in %q mode", cfg.Environment)
		}
		if len(cfg.JWTSecret) < 32 {
			return nil, fmt.Errorf("JWT_SECRET must be at least 32 characters long, got %d", len(cfg.JWTSecret))
		}
	}

	// Echoing plaintext codes in responses is a development aid only.
	if cfg.Environment == "production" && cfg.OTPDebugExpose {
		return nil, fmt.Errorf("OTP_DEBUG_EXPOSE must not be enabled in production")
	}

	return cfg, nil
}

// PostgresDSN returns the PostgreSQL connection string.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.PostgresUser, c.PostgresPass, c.PostgresHost, c.PostgresPort, c.PostgresDB, c.PostgresSSL,
	)
}
