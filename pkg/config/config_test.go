package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_CalendarConfig(t *testing.T) {
	os.Setenv("CALENDAR_PROVIDER_URL", "https://calendar.test/v3")
	os.Setenv("CALENDAR_FREEBUSY_TTL", "2m")
	os.Setenv("CALENDAR_DISTRIBUTED_CACHE", "true")
	defer func() {
		os.Unsetenv("CALENDAR_PROVIDER_URL")
		os.Unsetenv("CALENDAR_FREEBUSY_TTL")
		os.Unsetenv("CALENDAR_DISTRIBUTED_CACHE")
	}()

	cfg, err := Load()
	assert.NoError(t, err)

	assert.Equal(t, "https://calendar.test/v3", cfg.Calendar.ProviderBaseURL)
	assert.Equal(t, 2*time.Minute, cfg.Calendar.FreeBusyTTL)
	assert.True(t, cfg.Calendar.DistributedCache)
}

func TestLoad_Defaults(t *testing.T) {
	os.Unsetenv("CALENDAR_FREEBUSY_TTL")
	os.Unsetenv("CALENDAR_CACHE_MAX_ENTRIES")
	os.Unsetenv("CALENDAR_CHANNEL_TTL")
	os.Unsetenv("RETRY_MAX_ATTEMPTS")

	cfg, err := Load()
	assert.NoError(t, err)

	assert.Equal(t, 5*time.Minute, cfg.Calendar.FreeBusyTTL)
	assert.Equal(t, 1000, cfg.Calendar.CacheMaxEntries)
	assert.Equal(t, 100, cfg.Calendar.BatchSize)
	assert.Equal(t, 7*24*time.Hour, cfg.Calendar.ChannelTTL)
	assert.Equal(t, 6*time.Hour, cfg.Calendar.RenewalMargin)
	assert.False(t, cfg.Calendar.DistributedCache)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, "therapy_booking", cfg.Database.Database)
}

func TestDatabaseDSN(t *testing.T) {
	dbCfg := DatabaseConfig{
		Host:     "db.internal",
		Port:     5433,
		User:     "svc",
		Password: "secret",
		Database: "therapy_booking",
		SSLMode:  "require",
	}
	assert.Equal(t,
		"host=db.internal port=5433 user=svc password=secret dbname=therapy_booking sslmode=require",
		dbCfg.DatabaseDSN(),
	)
}
