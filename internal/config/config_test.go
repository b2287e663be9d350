package config

import (
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.AppPort)
	assert.Equal(t, "inquiries", cfg.DynamoTables.Inquiries)
	assert.Equal(t, "memory", cfg.Realtime.Source)
	assert.Equal(t, time.Hour, cfg.Auth.JWTExpiry)
	assert.Equal(t, "access_token", cfg.Auth.CookieName)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("REALTIME_SOURCE", "redis")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("JWT_EXPIRY", "15m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "redis", cfg.Realtime.Source)
	assert.Equal(t, 15*time.Minute, cfg.Auth.JWTExpiry)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins())
}

func TestLoad_UnknownRealtimeSource(t *testing.T) {
	t.Setenv("REALTIME_SOURCE", "kafka")

	_, err := Load()
	assert.ErrorContains(t, err, "unknown REALTIME_SOURCE")
}

func TestIsProduction(t *testing.T) {
	assert.True(t, (&Config{AppEnv: "Production"}).IsProduction())
	assert.False(t, (&Config{AppEnv: "development"}).IsProduction())
}

func TestLoad_TrustedProxies(t *testing.T) {
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 192.168.1.10")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []netip.Prefix{
		netip.MustParsePrefix("10.0.0.0/8"),
		netip.MustParsePrefix("192.168.1.10/32"),
	}, cfg.TrustedProxies())
}

func TestLoad_InvalidTrustedProxy(t *testing.T) {
	t.Setenv("TRUSTED_PROXIES", "proxy.internal")

	_, err := Load()
	assert.ErrorContains(t, err, "TRUSTED_PROXIES")
}

func TestTrustedProxies_EmptyByDefault(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.TrustedProxies())
}
