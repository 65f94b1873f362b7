package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, GatewayRazorpay, cfg.GatewayMode)
	assert.Equal(t, 30*time.Minute, cfg.StaleOrderTTL)
	assert.Equal(t, 10, cfg.RateLimitBurst)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins())
}

func TestLoadFromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PORT", "9090")
	t.Setenv("GATEWAY_MODE", " Mock ")
	t.Setenv("RAZORPAY_SECRET", "shh")
	t.Setenv("JWT_SECRET", "jwt")
	t.Setenv("STALE_ORDER_TTL", "45m")
	t.Setenv("CORS_ORIGINS", "https://manvi.in, https://admin.manvi.in")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, GatewayMock, cfg.GatewayMode)
	assert.Equal(t, 45*time.Minute, cfg.StaleOrderTTL)
	assert.Equal(t, []string{"https://manvi.in", "https://admin.manvi.in"}, cfg.AllowedOrigins())
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	cfg := &Config{GatewayMode: GatewayRazorpay}
	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorContains(t, err, "RAZORPAY_SECRET")
	assert.ErrorContains(t, err, "RAZORPAY_KEY_ID")
	assert.ErrorContains(t, err, "JWT_SECRET")

	cfg = &Config{GatewayMode: "paypal", RazorpaySecret: "s", JWTSecret: "j"}
	assert.ErrorContains(t, cfg.Validate(), "unknown GATEWAY_MODE")
}

func TestDSN(t *testing.T) {
	cfg := &Config{DBUsername: "u", DBPassword: "p", DBHost: "h", DBPort: "5432", DBDatabase: "d", DBSchema: "s"}
	assert.Equal(t, "postgres://u:p@h:5432/d?sslmode=disable&search_path=s", cfg.DSN())

	cfg.DatabaseURL = "postgres://override"
	assert.Equal(t, "postgres://override", cfg.DSN())
}
