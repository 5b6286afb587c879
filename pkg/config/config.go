package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/hugh/flow/pkg/util"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	Encryption EncryptionConfig
	RateLimit  RateLimitConfig
	Webhook    WebhookConfig
	Org        OrgConfig
	Limits     LimitsConfig
	SMTP       SMTPConfig
	Jobs       JobsConfig
	Metrics    MetricsConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	Env            string
	AllowedOrigins []string
	Timezone       string
	NodeID         int64
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	// ConnectTimeoutSeconds bounds the startup retry loop.
	ConnectTimeoutSeconds int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
}

type JWTConfig struct {
	Secret      string
	ExpiryHours int
}

type EncryptionConfig struct {
	Key string
}

type RateLimitConfig struct {
	Requests      int
	WindowSeconds int
}

type WebhookConfig struct {
	TimeoutSeconds int
	Workers        int
	QueueSize      int
	// Mode is "auto", "queue" or "inline".
	Mode string
}

type OrgConfig struct {
	ReservedName string
}

type LimitsConfig struct {
	MaxUsersPerOrganization    int
	MaxProjectsPerOrganization int
	MaxMembersPerProject       int
	MaxTasksPerProject         int
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type JobsConfig struct {
	DeadlineCron string
	Concurrency  int
}

type MetricsConfig struct {
	Enabled bool
	Path    string
	// WorkerAddr is where the worker exposes its collectors.
	WorkerAddr string
}

func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// URL returns the connection string in the form golang-migrate expects.
func (d *DatabaseConfig) URL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

func (d *DatabaseConfig) ConnectTimeout() time.Duration {
	return time.Duration(d.ConnectTimeoutSeconds) * time.Second
}

func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

func (j *JWTConfig) Expiry() time.Duration {
	return time.Duration(j.ExpiryHours) * time.Hour
}

func (w *WebhookConfig) Timeout() time.Duration {
	return time.Duration(w.TimeoutSeconds) * time.Second
}

func (s *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func (s *ServerConfig) IsDevelopment() bool {
	return s.Env == "development"
}

// Location resolves the configured time zone, falling back to UTC.
func (s *ServerConfig) Location() *time.Location {
	if s.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (s *SMTPConfig) Enabled() bool {
	return s.Host != ""
}

func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("SERVER_ENV", "development")
	v.SetDefault("SERVER_ALLOWED_ORIGINS", "")
	v.SetDefault("SERVER_TIMEZONE", "UTC")
	v.SetDefault("SERVER_NODE_ID", 1)
	v.SetDefault("DATABASE_HOST", "localhost")
	v.SetDefault("DATABASE_PORT", 5432)
	v.SetDefault("DATABASE_USER", "flow")
	v.SetDefault("DATABASE_PASSWORD", "flow_secret")
	v.SetDefault("DATABASE_NAME", "flow")
	v.SetDefault("DATABASE_SSLMODE", "disable")
	v.SetDefault("DATABASE_CONNECT_TIMEOUT_SECONDS", 30)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("JWT_SECRET", "change-me-in-production")
	v.SetDefault("JWT_EXPIRY_HOURS", 24)
	v.SetDefault("RATE_LIMIT_REQUESTS", 100)
	v.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 60)
	v.SetDefault("WEBHOOK_TIMEOUT_SECONDS", 5)
	v.SetDefault("WEBHOOK_WORKERS", 4)
	v.SetDefault("WEBHOOK_QUEUE_SIZE", 256)
	v.SetDefault("WEBHOOK_MODE", "auto")
	v.SetDefault("ORG_RESERVED_NAME", "Flow")
	v.SetDefault("LIMITS_MAX_USERS_PER_ORGANIZATION", 50)
	v.SetDefault("LIMITS_MAX_PROJECTS_PER_ORGANIZATION", 10)
	v.SetDefault("LIMITS_MAX_MEMBERS_PER_PROJECT", 20)
	v.SetDefault("LIMITS_MAX_TASKS_PER_PROJECT", 500)
	v.SetDefault("SMTP_HOST", "")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_FROM", "no-reply@flow.local")
	v.SetDefault("JOBS_DEADLINE_CRON", "0 8 * * *")
	v.SetDefault("JOBS_CONCURRENCY", 10)
	v.SetDefault("METRICS_ENABLED", true)
	v.SetDefault("METRICS_PATH", "/metrics")
	v.SetDefault("METRICS_WORKER_ADDR", ":9091")

	// Load from .env file if present
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	// Override with environment variables
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{
		Server: ServerConfig{
			Host:           v.GetString("SERVER_HOST"),
			Port:           v.GetInt("SERVER_PORT"),
			Env:            v.GetString("SERVER_ENV"),
			AllowedOrigins: splitList(v.GetString("SERVER_ALLOWED_ORIGINS")),
			Timezone:       v.GetString("SERVER_TIMEZONE"),
			NodeID:         v.GetInt64("SERVER_NODE_ID"),
		},
		Database: DatabaseConfig{
			Host:                  v.GetString("DATABASE_HOST"),
			Port:                  v.GetInt("DATABASE_PORT"),
			User:                  v.GetString("DATABASE_USER"),
			Password:              v.GetString("DATABASE_PASSWORD"),
			Name:                  v.GetString("DATABASE_NAME"),
			SSLMode:               v.GetString("DATABASE_SSLMODE"),
			ConnectTimeoutSeconds: v.GetInt("DATABASE_CONNECT_TIMEOUT_SECONDS"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetInt("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
		},
		JWT: JWTConfig{
			Secret:      v.GetString("JWT_SECRET"),
			ExpiryHours: v.GetInt("JWT_EXPIRY_HOURS"),
		},
		Encryption: EncryptionConfig{
			Key: v.GetString("ENCRYPTION_KEY"),
		},
		RateLimit: RateLimitConfig{
			Requests:      v.GetInt("RATE_LIMIT_REQUESTS"),
			WindowSeconds: v.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
		},
		Webhook: WebhookConfig{
			TimeoutSeconds: v.GetInt("WEBHOOK_TIMEOUT_SECONDS"),
			Workers:        v.GetInt("WEBHOOK_WORKERS"),
			QueueSize:      v.GetInt("WEBHOOK_QUEUE_SIZE"),
			Mode:           strings.ToLower(v.GetString("WEBHOOK_MODE")),
		},
		Org: OrgConfig{
			ReservedName: v.GetString("ORG_RESERVED_NAME"),
		},
		Limits: LimitsConfig{
			MaxUsersPerOrganization:    v.GetInt("LIMITS_MAX_USERS_PER_ORGANIZATION"),
			MaxProjectsPerOrganization: v.GetInt("LIMITS_MAX_PROJECTS_PER_ORGANIZATION"),
			MaxMembersPerProject:       v.GetInt("LIMITS_MAX_MEMBERS_PER_PROJECT"),
			MaxTasksPerProject:         v.GetInt("LIMITS_MAX_TASKS_PER_PROJECT"),
		},
		SMTP: SMTPConfig{
			Host:     v.GetString("SMTP_HOST"),
			Port:     v.GetInt("SMTP_PORT"),
			Username: v.GetString("SMTP_USERNAME"),
			Password: v.GetString("SMTP_PASSWORD"),
			From:     v.GetString("SMTP_FROM"),
		},
		Jobs: JobsConfig{
			DeadlineCron: v.GetString("JOBS_DEADLINE_CRON"),
			Concurrency:  v.GetInt("JOBS_CONCURRENCY"),
		},
		Metrics: MetricsConfig{
			Enabled:    v.GetBool("METRICS_ENABLED"),
			Path:       v.GetString("METRICS_PATH"),
			WorkerAddr: v.GetString("METRICS_WORKER_ADDR"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects settings the services cannot start with.
func (c *Config) Validate() error {
	if c.Org.ReservedName == "" {
		return fmt.Errorf("ORG_RESERVED_NAME must not be empty")
	}
	if err := util.ValidateCronExpr(c.Jobs.DeadlineCron); err != nil {
		return fmt.Errorf("JOBS_DEADLINE_CRON: %w", err)
	}
	switch c.Webhook.Mode {
	case "auto", "queue", "inline":
	default:
		return fmt.Errorf("WEBHOOK_MODE must be auto, queue or inline, got %q", c.Webhook.Mode)
	}
	if c.Webhook.TimeoutSeconds <= 0 {
		return fmt.Errorf("WEBHOOK_TIMEOUT_SECONDS must be positive")
	}
	if c.Server.NodeID < 0 || c.Server.NodeID > 1023 {
		return fmt.Errorf("SERVER_NODE_ID must be between 0 and 1023")
	}
	return nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
