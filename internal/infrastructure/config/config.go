package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig encapsulates all runtime configuration knobs.
type AppConfig struct {
	App      AppSettings
	HTTP     HTTPSettings
	Log      LogSettings
	Database DatabaseSettings
	Webhook  WebhookSettings
	Fiscal   FiscalSettings
	Archive  ArchiveSettings
	Cleanup  CleanupSettings
}

type AppSettings struct {
	Name        string
	Version     string
	Environment string
}

type HTTPSettings struct {
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

type LogSettings struct {
	Level string
}

type DatabaseSettings struct {
	Host            string
	Port            int
	Database        string
	User            string
	Password        string
	SSLMode         string
	MaxConns        int
	ConnMaxLifetime time.Duration
}

// WebhookSettings cover the inbound payment-event surface.
type WebhookSettings struct {
	SigningSecret string
	Tolerance     time.Duration // max clock skew accepted on event signatures
}

// FiscalSettings cover the FINA integration: credentials, identifiers and
// the environment-specific endpoint/trust pair. Test and production
// endpoints use disjoint CA chains; CADir must hold exactly the chain for
// Endpoint.
type FiscalSettings struct {
	Provider       string // active fiscal-system variant, currently "fina"
	Endpoint       string
	CADir          string
	Timezone       string
	P12Path        string
	P12Password    string
	CompanyOIB     string
	OperatorOIB    string
	LocationID     string
	RegisterID     string
	Currency       string
	RequestTimeout time.Duration
}

type ArchiveSettings struct {
	Enabled   bool
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type CleanupSettings struct {
	StaleAge time.Duration // processing records older than this become failed
}

// Load reads configuration from a .env file when present, then from the
// environment. Works both with .env files (local dev) and plain environment
// variables (containers).
func Load() (AppConfig, error) {
	_ = godotenv.Load()

	cfg := AppConfig{
		App: AppSettings{
			Name:        getEnv("APP_NAME", "fiskal"),
			Version:     getEnv("APP_VERSION", "0.1.0"),
			Environment: getEnv("APP_ENV", "local"),
		},
		HTTP: HTTPSettings{
			Port:            getEnvAsInt("APP_PORT", 8080),
			ReadTimeout:     getEnvAsDuration("HTTP_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvAsDuration("HTTP_WRITE_TIMEOUT", 90*time.Second),
			IdleTimeout:     getEnvAsDuration("HTTP_IDLE_TIMEOUT", 120*time.Second),
			ShutdownTimeout: getEnvAsDuration("HTTP_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Log: LogSettings{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseSettings{
			Host:            getEnv("PG_HOST", "localhost"),
			Port:            getEnvAsInt("PG_PORT", 5432),
			Database:        getEnv("PG_DB", "fiskal"),
			User:            getEnv("PG_USER", "postgres"),
			Password:        getEnv("PG_PASSWORD", ""),
			SSLMode:         getEnv("PG_SSL_MODE", "disable"),
			MaxConns:        getEnvAsInt("PG_MAX_CONNS", 25),
			ConnMaxLifetime: getEnvAsDuration("PG_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Webhook: WebhookSettings{
			SigningSecret: strings.TrimSpace(os.Getenv("WEBHOOK_SIGNING_SECRET")),
			Tolerance:     getEnvAsDuration("WEBHOOK_TOLERANCE", 5*time.Minute),
		},
		Fiscal: FiscalSettings{
			Provider:       getEnv("FISCAL_PROVIDER", "fina"),
			Endpoint:       strings.TrimSpace(os.Getenv("FINA_ENDPOINT")),
			CADir:          strings.TrimSpace(os.Getenv("FINA_CA_DIR_PATH")),
			Timezone:       getEnv("FINA_TIMEZONE", "Europe/Zagreb"),
			P12Path:        strings.TrimSpace(os.Getenv("P12_PATH")),
			P12Password:    os.Getenv("P12_PASSWORD"),
			CompanyOIB:     strings.TrimSpace(os.Getenv("OIB_COMPANY")),
			OperatorOIB:    strings.TrimSpace(os.Getenv("OIB_OPERATOR")),
			LocationID:     strings.TrimSpace(os.Getenv("LOCATION_ID")),
			RegisterID:     strings.TrimSpace(os.Getenv("REGISTER_ID")),
			Currency:       getEnv("FISCAL_CURRENCY", "EUR"),
			RequestTimeout: getEnvAsDuration("FINA_REQUEST_TIMEOUT", 60*time.Second),
		},
		Archive: ArchiveSettings{
			Enabled:   getEnvAsBool("S3_ENABLED", true),
			Endpoint:  strings.TrimSpace(os.Getenv("S3_ENDPOINT_URL")),
			AccessKey: strings.TrimSpace(os.Getenv("S3_ACCESS_KEY")),
			SecretKey: os.Getenv("S3_SECRET_KEY"),
			Bucket:    strings.TrimSpace(os.Getenv("S3_BUCKET_NAME")),
			UseSSL:    getEnvAsBool("S3_USE_SSL", true),
		},
		Cleanup: CleanupSettings{
			StaleAge: getEnvAsDuration("CLEANUP_STALE_AGE", 30*time.Minute),
		},
	}

	if cfg.Fiscal.Provider == "" {
		return cfg, errors.New("invalid config: FISCAL_PROVIDER must not be empty")
	}
	if cfg.Fiscal.Currency == "" {
		return cfg, errors.New("invalid config: FISCAL_CURRENCY must not be empty")
	}
	if _, err := time.LoadLocation(cfg.Fiscal.Timezone); err != nil {
		return cfg, fmt.Errorf("invalid config: FINA_TIMEZONE %q: %w", cfg.Fiscal.Timezone, err)
	}
	if cfg.Archive.Enabled && cfg.Archive.Endpoint != "" && cfg.Archive.Bucket == "" {
		return cfg, errors.New("invalid config: S3_BUCKET_NAME is required when S3_ENDPOINT_URL is set")
	}

	return cfg, nil
}

// Address returns the HTTP listen address in host:port form.
func (h HTTPSettings) Address() string {
	return fmt.Sprintf(":%d", h.Port)
}

// ConnString returns a pgx-compatible connection string.
func (d DatabaseSettings) ConnString() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		d.Host, d.Port, d.Database, d.User, d.Password, d.SSLMode,
	)
}

// Location resolves the fiscal timezone. Load already validated it.
func (f FiscalSettings) Location() *time.Location {
	loc, err := time.LoadLocation(f.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}
