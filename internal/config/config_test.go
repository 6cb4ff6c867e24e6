package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_USER", "bread")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("DB_NAME", "freshbread")
	t.Setenv("DB_PORT", "5432")
	t.Setenv("APP_PORT", "8080")
	t.Setenv("JWT_SECRET", "jwt-secret")
	t.Setenv("SHIPPING_FEE", "")
	t.Setenv("RESUBMIT_COOLDOWN", "")

	cfg := LoadConfig()
	require.NotNil(t, cfg)

	assert.Equal(t, "localhost", cfg.DBHost)
	assert.Equal(t, "8080", cfg.AppPort)

	// defaults
	assert.True(t, cfg.ShippingFee.Equal(decimal.RequireFromString("5.00")))
	assert.Equal(t, 2*time.Minute, cfg.ResubmitCooldown)
	assert.Equal(t, 5*time.Minute, cfg.InboxPollEvery)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
}

func TestEnvDuration(t *testing.T) {
	t.Setenv("TEST_DUR_SECS", "90")
	assert.Equal(t, 90*time.Second, envDuration("TEST_DUR_SECS", time.Minute))

	t.Setenv("TEST_DUR_GO", "45m")
	assert.Equal(t, 45*time.Minute, envDuration("TEST_DUR_GO", time.Minute))

	assert.Equal(t, time.Minute, envDuration("TEST_DUR_UNSET", time.Minute))
}

func TestEnvDecimal(t *testing.T) {
	t.Setenv("TEST_FEE", "7.25")
	assert.True(t, envDecimal("TEST_FEE", "5.00").Equal(decimal.RequireFromString("7.25")))
	assert.True(t, envDecimal("TEST_FEE_UNSET", "5.00").Equal(decimal.RequireFromString("5.00")))
}
