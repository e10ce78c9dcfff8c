package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv         string
	HTTPAddr       string
	MigrationsPath string

	// Hosted Postgres convenience:
	// - DATABASE_URL: runtime connection (often PgBouncer/pooler)
	// - DIRECT_URL: direct connection for migrations
	DatabaseURL string
	DirectURL   string

	DB DBConfig

	Identity IdentityConfig

	Log LogConfig

	// AllowedOrigins is a comma-separated allowlist of browser origins for the SPA.
	//   https://app.example.co.ke,http://localhost:5173
	AllowedOrigins []string

	Events EventsConfig

	Payments PaymentsConfig
}

type DBConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
}

// IdentityConfig describes the external identity provider that issues access tokens.
type IdentityConfig struct {
	// JWTSecret verifies HS256 access tokens issued by the provider.
	JWTSecret string
	Issuer    string
	Audience  string

	// URL and ServiceKey are used for admin calls (user metadata sync).
	// Leave empty to disable the sync.
	URL        string
	ServiceKey string
}

type LogConfig struct {
	Level  string
	Format string // text | json
}

type EventsConfig struct {
	// AMQPURL empty disables publishing.
	AMQPURL  string
	Exchange string
}

type PaymentsConfig struct {
	WebhookSecret string
	Currency      string
}

func (c Config) IsProd() bool {
	return c.AppEnv == "prod"
}

func Load() Config {
	// Convenience for local dev: load variables from .env if present.
	// In production, rely on real environment variables.
	_ = godotenv.Load()

	// Cloud hosts set PORT. Prefer it when HTTP_ADDR isn't explicitly set.
	httpAddr := os.Getenv("HTTP_ADDR")
	if httpAddr == "" {
		if port := os.Getenv("PORT"); port != "" {
			httpAddr = ":" + port
		} else {
			httpAddr = ":8080"
		}
	}

	appEnv := env("APP_ENV", "dev")
	logFormat := "text"
	if appEnv == "prod" {
		logFormat = "json"
	}

	return Config{
		AppEnv:         appEnv,
		HTTPAddr:       httpAddr,
		MigrationsPath: os.Getenv("MIGRATIONS_PATH"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		DirectURL:      os.Getenv("DIRECT_URL"),
		DB: DBConfig{
			Host:     env("DB_HOST", "localhost"),
			Port:     env("DB_PORT", "5432"),
			Name:     env("DB_NAME", "movebooking"),
			User:     env("DB_USER", "movebooking"),
			Password: env("DB_PASSWORD", "movebooking"),
			SSLMode:  env("DB_SSLMODE", "disable"),
		},
		Identity: IdentityConfig{
			JWTSecret:  os.Getenv("IDENTITY_JWT_SECRET"),
			Issuer:     os.Getenv("IDENTITY_ISSUER"),
			Audience:   env("IDENTITY_AUDIENCE", "authenticated"),
			URL:        strings.TrimRight(os.Getenv("IDENTITY_URL"), "/"),
			ServiceKey: os.Getenv("IDENTITY_SERVICE_KEY"),
		},
		Log: LogConfig{
			Level:  env("LOG_LEVEL", "info"),
			Format: env("LOG_FORMAT", logFormat),
		},
		AllowedOrigins: envList("CORS_ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:4173"),
		Events: EventsConfig{
			AMQPURL:  os.Getenv("AMQP_URL"),
			Exchange: env("AMQP_EXCHANGE", "bookings"),
		},
		Payments: PaymentsConfig{
			WebhookSecret: os.Getenv("PAYMENT_WEBHOOK_SECRET"),
			Currency:      env("PAYMENT_CURRENCY", "KES"),
		},
	}
}

func env(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func envList(key, fallbackCSV string) []string {
	v := os.Getenv(key)
	if v == "" {
		v = fallbackCSV
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
