package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := fromViper(v)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, 5*time.Second, cfg.Sports.CacheTTL)
	assert.Equal(t, 5*time.Minute, cfg.Confirmation.TTL)
	assert.Equal(t, 5*time.Second, cfg.Admission.LockTimeout)
	assert.True(t, cfg.Database.AutoMigrate)
	assert.Nil(t, cfg.CORS.AllowedOrigins)
}

func TestFromViperOverrides(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("ALLOWED_ORIGINS", " https://a.test, ,https://b.test ")
	v.Set("CONFIRMATION_TTL", "90s")
	v.Set("SPORTS_CACHE_TTL", "not-a-duration")

	cfg := fromViper(v)
	assert.Equal(t, []string{"https://a.test", "https://b.test"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 90*time.Second, cfg.Confirmation.TTL)
	assert.Equal(t, 5*time.Second, cfg.Sports.CacheTTL)
}
