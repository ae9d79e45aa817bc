package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

type Config struct {
	Server   ServerConfig
	Store    StoreConfig
	Redis    RedisConfig
	Database DatabaseConfig
	Upstream UpstreamConfig
	Intake   IntakeConfig
	S3       S3Config
	Engine   EngineConfig
	App      AppConfig
}

type ServerConfig struct {
	Port        string
	CORSOrigins []string
}

// StoreConfig selects the project store backend.
type StoreConfig struct {
	Backend string // redis, postgres
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
}

type UpstreamConfig struct {
	URL     string
	RPS     float64
	Timeout time.Duration
}

type IntakeConfig struct {
	APIKey string
	Model  string
}

type S3Config struct {
	Bucket   string
	Region   string
	Endpoint string
	Prefix   string
}

type EngineConfig struct {
	AbandonAfter      time.Duration
	CompletedGrace    time.Duration
	TerminalRetention time.Duration
	PurgeTimeout      time.Duration
	AnalysisTimeout   time.Duration
	SweepSchedule     string
}

type AppConfig struct {
	Environment string
	LogLevel    string
	Version     string
}

const (
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			CORSOrigins: getEnvAsList("CORS_ORIGINS", []string{"*"}),
		},
		Store: StoreConfig{
			Backend: strings.ToLower(getEnv("STORE_BACKEND", StoreRedis)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "roomcraft"),
		},
		Upstream: UpstreamConfig{
			URL:     getEnv("UPSTREAM_URL", "http://localhost:9000"),
			RPS:     getEnvAsFloat("UPSTREAM_RPS", 5),
			Timeout: getEnvAsDuration("UPSTREAM_TIMEOUT", 0),
		},
		Intake: IntakeConfig{
			APIKey: getEnv("ANTHROPIC_API_KEY", ""),
			Model:  getEnv("INTAKE_MODEL", "claude-3-5-haiku-latest"),
		},
		S3: S3Config{
			Bucket:   getEnv("S3_BUCKET", ""),
			Region:   getEnv("S3_REGION", "us-east-1"),
			Endpoint: getEnv("S3_ENDPOINT", ""),
			Prefix:   getEnv("S3_PREFIX", "projects/"),
		},
		Engine: EngineConfig{
			AbandonAfter:      getEnvAsDuration("ABANDON_AFTER", 48*time.Hour),
			CompletedGrace:    getEnvAsDuration("COMPLETED_GRACE", 24*time.Hour),
			TerminalRetention: getEnvAsDuration("TERMINAL_RETENTION", time.Hour),
			PurgeTimeout:      getEnvAsDuration("PURGE_TIMEOUT", 30*time.Second),
			AnalysisTimeout:   getEnvAsDuration("ANALYSIS_TIMEOUT", 90*time.Second),
			SweepSchedule:     getEnv("SWEEP_SCHEDULE", "0 */5 * * * *"),
		},
		App: AppConfig{
			Environment: getEnv("APP_ENV", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	switch c.Store.Backend {
	case StoreRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("REDIS_ADDR is required")
		}
	case StorePostgres:
		if c.Database.Host == "" {
			return fmt.Errorf("DB_HOST is required")
		}
	default:
		return fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", StoreRedis, StorePostgres, c.Store.Backend)
	}

	if c.Upstream.URL == "" {
		return fmt.Errorf("UPSTREAM_URL is required")
	}
	if c.Upstream.RPS <= 0 {
		return fmt.Errorf("UPSTREAM_RPS must be positive")
	}

	if c.Engine.AbandonAfter <= 0 || c.Engine.CompletedGrace <= 0 || c.Engine.TerminalRetention <= 0 {
		return fmt.Errorf("ABANDON_AFTER, COMPLETED_GRACE and TERMINAL_RETENTION must be positive")
	}
	if _, err := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow).Parse(c.Engine.SweepSchedule); err != nil {
		return fmt.Errorf("SWEEP_SCHEDULE: %w", err)
	}

	return nil
}

// IntakeEnabled reports whether the conversational intake agent is configured.
func (c *Config) IntakeEnabled() bool {
	return c.Intake.APIKey != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid integer for %s, using default: %d", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Printf("Warning: Invalid number for %s, using default: %g", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid duration for %s, using default: %s", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
