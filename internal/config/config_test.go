package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()
	assert.Equal(t, "3000", cfg.AppPort)
	assert.Equal(t, 7*24*time.Hour, cfg.JWTExpiry)
	assert.Equal(t, 5*time.Minute, cfg.OTPTTL)
	assert.Equal(t, 5, cfg.OTPMaxAttempts)
	assert.InDelta(t, 0.08, cfg.TaxRate, 1e-9)
	assert.Equal(t, cfg.JWTSecret, cfg.OTPSecret)
	assert.False(t, cfg.IsProduction())
	assert.Empty(t, cfg.TrustedProxies)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("TAX_RATE", "0.13")
	t.Setenv("ADMIN_PHONES", "+14165550000, ,+14165550001")
	t.Setenv("JWT_EXPIRY_DAYS", "not-a-number")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8,127.0.0.1")

	cfg := Load()
	assert.True(t, cfg.IsProduction())
	assert.InDelta(t, 0.13, cfg.TaxRate, 1e-9)
	assert.Equal(t, []string{"+14165550000", "+14165550001"}, cfg.AdminPhones)
	assert.Equal(t, 7*24*time.Hour, cfg.JWTExpiry)
	assert.Equal(t, []string{"10.0.0.0/8", "127.0.0.1"}, cfg.TrustedProxies)
}
