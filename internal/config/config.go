// Package config loads service configuration from an optional YAML file
// overlaid with environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ConfigFileEnv names the environment variable that points at a YAML file.
const ConfigFileEnv = "NEXTHIRE_CONFIG"

// Config is the full service configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	Redis       RedisConfig       `yaml:"redis"`
	Auth        JWTConfig         `yaml:"auth"`
	Identity    IdentityConfig    `yaml:"identity"`
	Webhook     WebhookConfig     `yaml:"webhook"`
	SMTP        SMTPConfig        `yaml:"smtp"`
	Storage     StorageConfig     `yaml:"storage"`
	Telegram    TelegramConfig    `yaml:"telegram"`
	ATS         ATSConfig         `yaml:"ats"`
	Maintenance MaintenanceConfig `yaml:"maintenance"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port        int      `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// DatabaseConfig configures PostgreSQL.
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// RedisConfig configures event publishing. An empty URL disables it.
type RedisConfig struct {
	URL string `yaml:"url"`
}

// IdentityConfig configures the Clerk backend API client.
type IdentityConfig struct {
	SecretKey  string  `yaml:"secret_key"`
	APIURL     string  `yaml:"api_url"`
	RatePerSec float64 `yaml:"rate_per_sec"`
	Burst      int     `yaml:"burst"`
}

// WebhookConfig holds the identity-provider webhook signing secret.
type WebhookConfig struct {
	Secret string `yaml:"secret"`
}

// SMTPConfig configures outgoing email.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	FromName string `yaml:"from_name"`
}

// Enabled reports whether credentials are present.
func (c SMTPConfig) Enabled() bool {
	return c.User != "" && c.Password != ""
}

// Storage backends.
const (
	StorageLocal = "local"
	StorageGCS   = "gcs"
)

// StorageConfig configures where uploaded files go.
type StorageConfig struct {
	Backend         string `yaml:"backend"`
	Dir             string `yaml:"dir"`
	PublicURL       string `yaml:"public_url"`
	GCSBucket       string `yaml:"gcs_bucket"`
	CredentialsFile string `yaml:"credentials_file"`
}

// TelegramConfig configures admin notifications. Empty token disables it.
type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   int64  `yaml:"chat_id"`
}

// ATSConfig configures background resume scoring.
type ATSConfig struct {
	Workers        int `yaml:"workers"`
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// MaintenanceConfig holds the cron schedule for maintenance tasks.
// An empty schedule disables the scheduler.
type MaintenanceConfig struct {
	Schedule string `yaml:"schedule"`
}

// Default returns a Config with every default applied.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        8080,
			CORSOrigins: []string{"*"},
		},
		Auth: defaultJWTConfig(),
		Identity: IdentityConfig{
			APIURL:     "https://api.clerk.com/v1",
			RatePerSec: 10,
			Burst:      20,
		},
		SMTP: SMTPConfig{
			Host:     "smtp.gmail.com",
			Port:     465,
			FromName: "Next Hire",
		},
		Storage: StorageConfig{
			Backend:   StorageLocal,
			Dir:       "./uploads",
			PublicURL: "http://localhost:8080/files",
		},
		ATS: ATSConfig{
			Workers:        4,
			TimeoutSeconds: 30,
		},
		Maintenance: MaintenanceConfig{
			Schedule: "@hourly",
		},
	}
}

// Load builds the configuration: defaults, then the YAML file named by
// NEXTHIRE_CONFIG if set, then environment variables.
func Load() (*Config, error) {
	cfg := Default()
	if path := os.Getenv(ConfigFileEnv); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig reads a YAML configuration file on top of the defaults.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}
	cfg := Default()
	if err := cfg.mergeFile(path); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config YAML: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if err := envInt(&c.Server.Port, "PORT"); err != nil {
		return err
	}
	if v, ok := os.LookupEnv("CORS_ORIGINS"); ok {
		c.Server.CORSOrigins = splitList(v)
	}

	envString(&c.Database.URL, "DATABASE_URL")
	envString(&c.Redis.URL, "REDIS_URL")

	if err := c.Auth.applyEnv(); err != nil {
		return err
	}

	envString(&c.Identity.SecretKey, "CLERK_SECRET_KEY")
	envString(&c.Identity.APIURL, "CLERK_API_URL")
	if err := envFloat(&c.Identity.RatePerSec, "CLERK_RATE_PER_SEC"); err != nil {
		return err
	}
	if err := envInt(&c.Identity.Burst, "CLERK_BURST"); err != nil {
		return err
	}

	envString(&c.Webhook.Secret, "CLERK_WEBHOOK_SECRET")

	envString(&c.SMTP.Host, "EMAIL_HOST")
	if err := envInt(&c.SMTP.Port, "EMAIL_PORT"); err != nil {
		return err
	}
	envString(&c.SMTP.User, "EMAIL_USER")
	envString(&c.SMTP.Password, "EMAIL_PASSWORD")
	envString(&c.SMTP.FromName, "EMAIL_FROM_NAME")

	envString(&c.Storage.Backend, "STORAGE_BACKEND")
	envString(&c.Storage.Dir, "STORAGE_DIR")
	envString(&c.Storage.PublicURL, "STORAGE_PUBLIC_URL")
	envString(&c.Storage.GCSBucket, "GCS_BUCKET")
	envString(&c.Storage.CredentialsFile, "GCS_CREDENTIALS_FILE")

	envString(&c.Telegram.BotToken, "TELEGRAM_BOT_TOKEN")
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid TELEGRAM_CHAT_ID: %v", err)
		}
		c.Telegram.ChatID = id
	}

	if err := envInt(&c.ATS.Workers, "ATS_WORKERS"); err != nil {
		return err
	}
	if err := envInt(&c.ATS.TimeoutSeconds, "ATS_TIMEOUT_SECONDS"); err != nil {
		return err
	}

	// An explicitly empty MAINTENANCE_SCHEDULE disables the scheduler.
	if v, ok := os.LookupEnv("MAINTENANCE_SCHEDULE"); ok {
		c.Maintenance.Schedule = strings.TrimSpace(v)
	}
	return nil
}

// Validate checks everything the server needs before it starts.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config error: port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Database.URL == "" {
		return fmt.Errorf("config error: DATABASE_URL is required")
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	switch c.Storage.Backend {
	case StorageLocal:
		if c.Storage.Dir == "" {
			return fmt.Errorf("config error: STORAGE_DIR is required for the local backend")
		}
	case StorageGCS:
		if c.Storage.GCSBucket == "" {
			return fmt.Errorf("config error: GCS_BUCKET is required for the gcs backend")
		}
	default:
		return fmt.Errorf("config error: unknown storage backend %q", c.Storage.Backend)
	}
	if c.ATS.Workers < 1 {
		return fmt.Errorf("config error: ATS workers must be at least 1, got %d", c.ATS.Workers)
	}
	if c.ATS.TimeoutSeconds < 1 {
		return fmt.Errorf("config error: ATS timeout must be at least 1 second, got %d", c.ATS.TimeoutSeconds)
	}
	if c.Identity.RatePerSec <= 0 {
		return fmt.Errorf("config error: CLERK_RATE_PER_SEC must be positive")
	}
	return nil
}

func envString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %v", key, err)
	}
	*dst = n
	return nil
}

func envFloat(dst *float64, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %v", key, err)
	}
	*dst = f
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
