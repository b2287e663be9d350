package config

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort string `env:"APP_PORT" env-default:"3000"`
	AppEnv  string `env:"APP_ENV" env-default:"development"`

	AWSRegion      string `env:"AWS_REGION" env-default:"ap-northeast-2"`
	AWSEndpointURL string `env:"AWS_ENDPOINT_URL"` // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretKey   string `env:"AWS_SECRET_ACCESS_KEY"`

	DynamoTables DynamoTables
	Auth         AuthConfig
	Realtime     RealtimeConfig
	Alerts       AlertConfig
	Log          LogConfig

	AllowedOriginsRaw string `env:"ALLOWED_ORIGINS" env-default:"*"`
	// TrustedProxiesRaw lists the proxy IPs or CIDRs whose X-Forwarded-For is believed.
	// Empty means every request is keyed on its direct peer.
	TrustedProxiesRaw string `env:"TRUSTED_PROXIES"`
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Inquiries string `env:"DYNAMO_TABLE_INQUIRIES" env-default:"inquiries"`
	Notices   string `env:"DYNAMO_TABLE_NOTICES" env-default:"notices"`
	Profiles  string `env:"DYNAMO_TABLE_PROFILES" env-default:"profiles"`
	Accounts  string `env:"DYNAMO_TABLE_ACCOUNTS" env-default:"accounts"`
	Sessions  string `env:"DYNAMO_TABLE_SESSIONS" env-default:"sessions"`
}

// AuthConfig holds token and session settings for the admin area.
type AuthConfig struct {
	JWTPrivateKeyPath string        `env:"JWT_PRIVATE_KEY_PATH" env-default:"./private_key.pem"`
	JWTPublicKeyPath  string        `env:"JWT_PUBLIC_KEY_PATH" env-default:"./public_key.pem"`
	JWTExpiry         time.Duration `env:"JWT_EXPIRY" env-default:"1h"`
	RefreshTokenTTL   time.Duration `env:"REFRESH_TOKEN_TTL" env-default:"720h"`
	CookieName        string        `env:"AUTH_COOKIE_NAME" env-default:"access_token"`
	CookieSecure      bool          `env:"AUTH_COOKIE_SECURE" env-default:"true"`
	// RegisterKey is the shared secret required by POST /api/admin/auth/register.
	// Registration is disabled when empty.
	RegisterKey string `env:"ADMIN_REGISTER_KEY"`
}

// RealtimeConfig selects where inquiry change events come from.
type RealtimeConfig struct {
	Source             string        `env:"REALTIME_SOURCE" env-default:"memory"` // memory | redis | dynamodb
	RedisAddr          string        `env:"REDIS_ADDR" env-default:"localhost:6379"`
	RedisPassword      string        `env:"REDIS_PASSWORD"`
	RedisDB            int           `env:"REDIS_DB" env-default:"0"`
	RedisChannel       string        `env:"REDIS_CHANNEL" env-default:"inquiry_changes"`
	StreamPollInterval time.Duration `env:"STREAM_POLL_INTERVAL" env-default:"1s"`
	ClientSendBuffer   int           `env:"WS_SEND_BUFFER" env-default:"64"`
	PingInterval       time.Duration `env:"WS_PING_INTERVAL" env-default:"30s"`
}

// AlertConfig configures best-effort alerts fired when a new inquiry arrives.
type AlertConfig struct {
	InquiryInbox string `env:"INQUIRY_ALERT_EMAIL"`
	SMTPHost     string `env:"SMTP_HOST" env-default:"localhost"`
	SMTPPort     string `env:"SMTP_PORT" env-default:"1025"`
	SMTPFrom     string `env:"SMTP_FROM" env-default:"noreply@example.com"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	SNSTopicARN  string `env:"SNS_INQUIRY_TOPIC_ARN"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `env:"LOG_LEVEL" env-default:"info"`
	Format string `env:"LOG_FORMAT" env-default:"json"`
}

// Load reads all configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config: read env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return &cfg, nil
}

// Validate checks cross-field constraints that env tags cannot express.
func (c *Config) Validate() error {
	switch c.Realtime.Source {
	case "memory", "redis", "dynamodb":
	default:
		return fmt.Errorf("unknown REALTIME_SOURCE %q", c.Realtime.Source)
	}
	if c.Auth.JWTExpiry <= 0 {
		return errors.New("JWT_EXPIRY must be positive")
	}
	if c.Auth.RefreshTokenTTL <= 0 {
		return errors.New("REFRESH_TOKEN_TTL must be positive")
	}
	if c.Realtime.ClientSendBuffer < 1 {
		return errors.New("WS_SEND_BUFFER must be at least 1")
	}
	for _, entry := range splitList(c.TrustedProxiesRaw) {
		if _, err := parsePrefix(entry); err != nil {
			return fmt.Errorf("TRUSTED_PROXIES: %w", err)
		}
	}
	return nil
}

// AllowedOrigins returns the CORS origin list.
func (c *Config) AllowedOrigins() []string {
	return splitList(c.AllowedOriginsRaw)
}

// TrustedProxies returns the parsed proxy networks. Invalid entries are rejected by
// Validate, so they are skipped here.
func (c *Config) TrustedProxies() []netip.Prefix {
	var out []netip.Prefix
	for _, entry := range splitList(c.TrustedProxiesRaw) {
		if p, err := parsePrefix(entry); err == nil {
			out = append(out, p)
		}
	}
	return out
}

func splitList(raw string) []string {
	var out []string
	for _, v := range strings.Split(raw, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// parsePrefix accepts a CIDR or a single address.
func parsePrefix(s string) (netip.Prefix, error) {
	if strings.Contains(s, "/") {
		p, err := netip.ParsePrefix(s)
		if err != nil {
			return netip.Prefix{}, err
		}
		return p.Masked(), nil
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Prefix{}, err
	}
	addr = addr.Unmap()
	return netip.PrefixFrom(addr, addr.BitLen()), nil
}

// IsProduction reports whether the service runs with APP_ENV=production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}
