package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all application configuration
type Config struct {
	Service    ServiceConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Scheduling SchedulingConfig
}

// ServiceConfig holds service identity configuration
type ServiceConfig struct {
	Name        string
	Environment string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// SchedulingConfig holds the scheduling core's tunables
type SchedulingConfig struct {
	// SlotMinutes is the default booking granularity.
	SlotMinutes int

	// LookaheadDays bounds the nearest-alternative-slot search so it always
	// terminates.
	LookaheadDays int

	// LockTTLSeconds bounds how long a crashed holder can keep a resource
	// lock.
	LockTTLSeconds int

	// IdempotencyTTLHours is how long booking idempotency keys are retained.
	IdempotencyTTLHours int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	return &Config{
		Service: ServiceConfig{
			Name:        getEnv("SERVICE_NAME", "scheduling-core"),
			Environment: getEnv("ENVIRONMENT", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "hospital_scheduling"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Scheduling: SchedulingConfig{
			SlotMinutes:         getEnvAsInt("SCHEDULING_SLOT_MINUTES", 30),
			LookaheadDays:       getEnvAsInt("SCHEDULING_LOOKAHEAD_DAYS", 14),
			LockTTLSeconds:      getEnvAsInt("SCHEDULING_LOCK_TTL_SECONDS", 10),
			IdempotencyTTLHours: getEnvAsInt("SCHEDULING_IDEMPOTENCY_TTL_HOURS", 24),
		},
	}, nil
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// getEnv gets an environment variable with a fallback
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// getEnvAsInt gets an environment variable as an integer with a fallback
func getEnvAsInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}
