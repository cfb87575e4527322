package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Calendar CalendarConfig
	Retry    RetryConfig
	OTEL     OTELConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host string
	Port int
	Env  string
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

// CalendarConfig holds the external calendar provider configuration
type CalendarConfig struct {
	ProviderBaseURL string
	APIKey          string

	// OwnerEmail is the account that owns every managed calendar.
	OwnerEmail string

	// NotificationURL is the public address provider push notifications are
	// delivered to. Watch channels cannot be opened without it.
	NotificationURL string

	// ChannelToken is the shared secret echoed back on every push
	// notification and verified by the inbound receiver.
	ChannelToken string

	FreeBusyTTL     time.Duration
	CacheMaxEntries int
	BatchSize       int

	ChannelTTL    time.Duration
	RenewalMargin time.Duration

	// DistributedCache switches the busy cache from in-process to Redis.
	DistributedCache bool
}

// RetryConfig holds provider retry configuration
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Jitter       bool
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	return &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvAsInt("SERVER_PORT", 8080),
			Env:  getEnv("APP_ENV", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "therapy_booking"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Calendar: CalendarConfig{
			ProviderBaseURL:  getEnv("CALENDAR_PROVIDER_URL", "https://calendar.example.com/v3"),
			APIKey:           getEnv("CALENDAR_API_KEY", ""),
			OwnerEmail:       getEnv("CALENDAR_OWNER_EMAIL", "calendars@quietroom.health"),
			NotificationURL:  getEnv("CALENDAR_NOTIFICATION_URL", ""),
			ChannelToken:     getEnv("CALENDAR_CHANNEL_TOKEN", ""),
			FreeBusyTTL:      getEnvAsDuration("CALENDAR_FREEBUSY_TTL", 5*time.Minute),
			CacheMaxEntries:  getEnvAsInt("CALENDAR_CACHE_MAX_ENTRIES", 1000),
			BatchSize:        getEnvAsInt("CALENDAR_BATCH_SIZE", 100),
			ChannelTTL:       getEnvAsDuration("CALENDAR_CHANNEL_TTL", 7*24*time.Hour),
			RenewalMargin:    getEnvAsDuration("CALENDAR_RENEWAL_MARGIN", 6*time.Hour),
			DistributedCache: getEnvAsBool("CALENDAR_DISTRIBUTED_CACHE", false),
		},
		Retry: RetryConfig{
			MaxAttempts:  getEnvAsInt("RETRY_MAX_ATTEMPTS", 3),
			InitialDelay: getEnvAsDuration("RETRY_INITIAL_DELAY", 500*time.Millisecond),
			MaxDelay:     getEnvAsDuration("RETRY_MAX_DELAY", 10*time.Second),
			Jitter:       getEnvAsBool("RETRY_JITTER", true),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "therapy-booking"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
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

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
