package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App        AppConfig
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	Log        LogConfig
	Tracing    TracingConfig
	Queue      QueueConfig
	Scheduling SchedulingConfig
}

type AppConfig struct {
	Name        string
	Environment string
	Version     string
}

type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	Host            string
	Port            int
	Name            string
	User            string
	Password        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s Timezone=UTC",
		d.Host, d.User, d.Password, d.Name, d.Port, d.SSLMode,
	)
}

type RedisConfig struct {
	Addr     string
	Username string
	Password string
	// LockTTL bounds how long a clinic queue lock may be held before it expires.
	LockTTL time.Duration
}

type JWTConfig struct {
	Secret          string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	Issuer          string
}

type LogConfig struct {
	Level      string
	Format     string
	OutputPath string
}

type TracingConfig struct {
	Enabled     bool
	ServiceName string
	OTLPURL     string
	SampleRate  float64
}

// QueueConfig tunes wait estimation and call-next behaviour.
type QueueConfig struct {
	AvgConsultMinutes float64
	// ClaimRetries is how many times call-next re-selects after losing a claim race.
	ClaimRetries int
}

// SchedulingConfig holds the clinic's booking rules.
type SchedulingConfig struct {
	BusinessHourStart int // inclusive, local hour of day
	BusinessHourEnd   int // exclusive
	SlotStep          time.Duration
	MinLeadTime       time.Duration
	MinDurationMins   int // service-level bound, stricter than the entity's
	MaxDurationMins   int
	MaxSuggestions    int
	HorizonDays       int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "clinicflow-api"),
			Environment: getEnv("APP_ENV", "development"),
			Version:     getEnv("APP_VERSION", "0.0.0"),
		},
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 5432),
			Name:            getEnv("DB_NAME", "clinicflow"),
			User:            getEnv("DB_USER", "clinicflow"),
			Password:        getEnv("DB_PASSWORD", ""),
			SSLMode:         getEnv("DB_SSLMODE", "require"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvDuration("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Username: getEnv("REDIS_USERNAME", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			LockTTL:  getEnvDuration("REDIS_LOCK_TTL", 5*time.Second),
		},
		JWT: JWTConfig{
			Secret:          getEnv("JWT_SECRET", ""),
			AccessTokenTTL:  getEnvDuration("JWT_ACCESS_TTL", 15*time.Minute),
			RefreshTokenTTL: getEnvDuration("JWT_REFRESH_TTL", 7*24*time.Hour),
			Issuer:          getEnv("JWT_ISSUER", "clinicflow-api"),
		},
		Log: LogConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			Format:     getEnv("LOG_FORMAT", "json"),
			OutputPath: getEnv("LOG_OUTPUT", "stdout"),
		},
		Tracing: TracingConfig{
			Enabled:     getEnvBool("TRACING_ENABLED", true),
			ServiceName: getEnv("TRACING_SERVICE_NAME", "clinicflow-api"),
			OTLPURL:     getEnv("OTLP_ENDPOINT", "http://otel-collector:4318"),
			SampleRate:  getEnvFloat("TRACING_SAMPLE_RATE", 0.1),
		},
		Queue: QueueConfig{
			AvgConsultMinutes: getEnvFloat("QUEUE_AVG_CONSULT_MINUTES", 15),
			ClaimRetries:      getEnvInt("QUEUE_CLAIM_RETRIES", 1),
		},
		Scheduling: SchedulingConfig{
			BusinessHourStart: getEnvInt("SCHED_BUSINESS_HOUR_START", 9),
			BusinessHourEnd:   getEnvInt("SCHED_BUSINESS_HOUR_END", 17),
			SlotStep:          getEnvDuration("SCHED_SLOT_STEP", 30*time.Minute),
			MinLeadTime:       getEnvDuration("SCHED_MIN_LEAD_TIME", time.Hour),
			MinDurationMins:   getEnvInt("SCHED_MIN_DURATION_MINS", 15),
			MaxDurationMins:   getEnvInt("SCHED_MAX_DURATION_MINS", 120),
			MaxSuggestions:    getEnvInt("SCHED_MAX_SUGGESTIONS", 3),
			HorizonDays:       getEnvInt("SCHED_HORIZON_DAYS", 3),
		},
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate enforces production security requirements.
func validate(cfg *Config) error {
	var errs []string

	if cfg.JWT.Secret == "" {
		errs = append(errs, "JWT_SECRET is required")
	} else if len(cfg.JWT.Secret) < 32 && cfg.App.Environment == "production" {
		errs = append(errs, "JWT_SECRET must be at least 32 characters in production")
	}

	if cfg.Database.Password == "" && cfg.App.Environment != "development" {
		errs = append(errs, "DB_PASSWORD is required in non-development environments")
	}

	if cfg.Database.SSLMode == "disable" && cfg.App.Environment == "production" {
		errs = append(errs, "DB_SSLMODE=disable is not allowed in production")
	}

	if cfg.Queue.AvgConsultMinutes <= 0 {
		errs = append(errs, "QUEUE_AVG_CONSULT_MINUTES must be positive")
	}

	if cfg.Scheduling.BusinessHourStart < 0 || cfg.Scheduling.BusinessHourEnd > 24 ||
		cfg.Scheduling.BusinessHourStart >= cfg.Scheduling.BusinessHourEnd {
		errs = append(errs, "business hours are invalid")
	}

	if cfg.Scheduling.MinDurationMins <= 0 || cfg.Scheduling.MinDurationMins > cfg.Scheduling.MaxDurationMins {
		errs = append(errs, "scheduling duration bounds are invalid")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
