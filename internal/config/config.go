package config

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Logger    LoggerConfig
	Redis     RedisConfig
	Broker    BrokerConfig
	Secrets   SecretsConfig
	Scheduler SchedulerConfig
	Cron      CronConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	MetricsPort     int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	RateLimitRPS    float64
	RateLimitBurst  int
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int32
	MinConns int32

	// PasswordSecretPath, when set, overrides Password from the secret store
	PasswordSecretPath string
}

// LoggerConfig holds logging configuration
type LoggerConfig struct {
	Level       string // debug, info, warn, error
	Development bool
}

// RedisConfig holds the record lock backend. An empty Addr selects the
// in-process locker.
type RedisConfig struct {
	Addr       string
	Password   string
	DB         int
	LockPrefix string
}

// BrokerConfig holds RabbitMQ configuration. An empty URL disables publishing.
type BrokerConfig struct {
	URL      string
	Exchange string
}

// SecretsConfig selects the secret backend: local, vault or aws
type SecretsConfig struct {
	Backend      string
	LocalPath    string
	VaultAddress string
	VaultToken   string
	VaultMount   string
	AWSRegion    string
	AWSEndpoint  string
	CacheTTL     time.Duration
}

// SchedulerConfig holds the in-process cron schedule for the overdue sweep
type SchedulerConfig struct {
	Enabled              bool
	OverdueSweepSchedule string
	SweepBatchSize       int32
}

// CronConfig holds authentication for the /cron endpoints
type CronConfig struct {
	Secret     string
	SecretPath string
}

var validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

var validSecretBackends = map[string]bool{"": true, "local": true, "vault": true, "aws": true}

// LoadFromEnv loads configuration from environment variables. A .env file in
// the working directory is read first if present.
func LoadFromEnv() (*Config, error) {
	_ = godotenv.Load()
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)
	v.AutomaticEnv()

	cfg := &Config{
		Server: ServerConfig{
			Host:            v.GetString("SERVER_HOST"),
			Port:            v.GetInt("SERVER_PORT"),
			MetricsPort:     v.GetInt("METRICS_PORT"),
			ReadTimeout:     v.GetDuration("SERVER_READ_TIMEOUT"),
			WriteTimeout:    v.GetDuration("SERVER_WRITE_TIMEOUT"),
			ShutdownTimeout: v.GetDuration("SERVER_SHUTDOWN_TIMEOUT"),
			RateLimitRPS:    v.GetFloat64("RATE_LIMIT_RPS"),
			RateLimitBurst:  v.GetInt("RATE_LIMIT_BURST"),
		},
		Database: DatabaseConfig{
			Host:               v.GetString("DB_HOST"),
			Port:               v.GetInt("DB_PORT"),
			User:               v.GetString("DB_USER"),
			Password:           v.GetString("DB_PASSWORD"),
			Database:           v.GetString("DB_NAME"),
			SSLMode:            v.GetString("DB_SSL_MODE"),
			MaxConns:           v.GetInt32("DB_MAX_CONNS"),
			MinConns:           v.GetInt32("DB_MIN_CONNS"),
			PasswordSecretPath: v.GetString("DB_PASSWORD_SECRET_PATH"),
		},
		Logger: LoggerConfig{
			Level:       strings.ToLower(v.GetString("LOG_LEVEL")),
			Development: v.GetBool("LOG_DEVELOPMENT"),
		},
		Redis: RedisConfig{
			Addr:       v.GetString("REDIS_ADDR"),
			Password:   v.GetString("REDIS_PASSWORD"),
			DB:         v.GetInt("REDIS_DB"),
			LockPrefix: v.GetString("REDIS_LOCK_PREFIX"),
		},
		Broker: BrokerConfig{
			URL:      v.GetString("AMQP_URL"),
			Exchange: v.GetString("AMQP_EXCHANGE"),
		},
		Secrets: SecretsConfig{
			Backend:      strings.ToLower(v.GetString("SECRETS_BACKEND")),
			LocalPath:    v.GetString("SECRETS_LOCAL_PATH"),
			VaultAddress: v.GetString("VAULT_ADDR"),
			VaultToken:   v.GetString("VAULT_TOKEN"),
			VaultMount:   v.GetString("VAULT_MOUNT"),
			AWSRegion:    v.GetString("AWS_REGION"),
			AWSEndpoint:  v.GetString("AWS_SECRETS_ENDPOINT"),
			CacheTTL:     v.GetDuration("SECRETS_CACHE_TTL"),
		},
		Scheduler: SchedulerConfig{
			Enabled:              v.GetBool("SCHEDULER_ENABLED"),
			OverdueSweepSchedule: v.GetString("OVERDUE_SWEEP_SCHEDULE"),
			SweepBatchSize:       v.GetInt32("OVERDUE_SWEEP_BATCH_SIZE"),
		},
		Cron: CronConfig{
			Secret:     v.GetString("CRON_SECRET"),
			SecretPath: v.GetString("CRON_SECRET_PATH"),
		},
	}

	if !validLogLevels[cfg.Logger.Level] {
		return nil, fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error: got %q", cfg.Logger.Level)
	}
	if !validSecretBackends[cfg.Secrets.Backend] {
		return nil, fmt.Errorf("SECRETS_BACKEND must be local, vault or aws: got %q", cfg.Secrets.Backend)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("METRICS_PORT", 9090)
	v.SetDefault("SERVER_READ_TIMEOUT", "15s")
	v.SetDefault("SERVER_WRITE_TIMEOUT", "30s")
	v.SetDefault("SERVER_SHUTDOWN_TIMEOUT", "30s")
	v.SetDefault("RATE_LIMIT_RPS", 50)
	v.SetDefault("RATE_LIMIT_BURST", 100)

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "")
	v.SetDefault("DB_NAME", "clientledger")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_CONNS", 25)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("DB_PASSWORD_SECRET_PATH", "")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_DEVELOPMENT", false)

	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_LOCK_PREFIX", "clientledger:lock")

	v.SetDefault("AMQP_URL", "")
	v.SetDefault("AMQP_EXCHANGE", "clientledger.events")

	v.SetDefault("SECRETS_BACKEND", "")
	v.SetDefault("SECRETS_LOCAL_PATH", "./secrets")
	v.SetDefault("VAULT_ADDR", "")
	v.SetDefault("VAULT_TOKEN", "")
	v.SetDefault("VAULT_MOUNT", "secret")
	v.SetDefault("AWS_REGION", "us-east-1")
	v.SetDefault("AWS_SECRETS_ENDPOINT", "")
	v.SetDefault("SECRETS_CACHE_TTL", "5m")

	v.SetDefault("SCHEDULER_ENABLED", true)
	v.SetDefault("OVERDUE_SWEEP_SCHEDULE", "0 6 * * *") // 06:00 every day
	v.SetDefault("OVERDUE_SWEEP_BATCH_SIZE", 200)

	v.SetDefault("CRON_SECRET", "")
	v.SetDefault("CRON_SECRET_PATH", "")
}

// Validate checks the fields that can only be known after secrets are
// resolved
func (c *Config) Validate() error {
	var errs []error
	if c.Database.Password == "" {
		errs = append(errs, errors.New("DB_PASSWORD is required"))
	}
	if c.Cron.Secret == "" {
		errs = append(errs, errors.New("CRON_SECRET is required"))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("SERVER_PORT out of range: %d", c.Server.Port))
	}
	if c.Server.MetricsPort == c.Server.Port {
		errs = append(errs, errors.New("METRICS_PORT must differ from SERVER_PORT"))
	}
	if c.Database.MinConns > c.Database.MaxConns {
		errs = append(errs, fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.Database.MinConns, c.Database.MaxConns))
	}
	if c.Secrets.Backend == "vault" && c.Secrets.VaultAddress == "" {
		errs = append(errs, errors.New("VAULT_ADDR is required when SECRETS_BACKEND=vault"))
	}
	return errors.Join(errs...)
}

// ConnectionString returns a PostgreSQL connection URL
func (c *DatabaseConfig) ConnectionString() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     c.Host + ":" + strconv.Itoa(c.Port),
		Path:     "/" + c.Database,
		RawQuery: url.Values{"sslmode": {c.SSLMode}}.Encode(),
	}
	return u.String()
}
