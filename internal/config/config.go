package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config carries every environment-provided setting the server needs.
type Config struct {
	Env  string
	Port string

	DatabaseURI  string
	DatabaseName string

	JWTSecret    string
	JWTExpiresIn time.Duration
	CookieMaxAge time.Duration
	CookieSecure bool

	RedisAddr     string
	RedisPassword string

	RateLimit RateLimitConfig

	Mail MailConfig

	StripeSecretKey     string
	StripeWebhookSecret string
}

type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
}

type MailConfig struct {
	Provider string // "smtp" or "sendgrid"
	From     string
	FromName string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string

	SendGridAPIKey string
}

// Load reads configuration from the environment. The database URI may carry
// a <PASSWORD> placeholder substituted from DATABASE_PASSWORD so the
// credential never sits inside the connection string itself.
func Load() *Config {
	return &Config{
		Env:  envStr("APP_ENV", "development"),
		Port: envStr("PORT", "3000"),

		DatabaseURI:  ExpandDatabaseURI(os.Getenv("DATABASE"), os.Getenv("DATABASE_PASSWORD")),
		DatabaseName: envStr("DATABASE_NAME", "atlastours"),

		JWTSecret:    os.Getenv("JWT_SECRET"),
		JWTExpiresIn: envDur("JWT_EXPIRES_IN", 24*time.Hour),
		CookieMaxAge: envDur("JWT_COOKIE_EXPIRES_IN", 24*time.Hour),
		CookieSecure: envBool("COOKIE_SECURE", false),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		RateLimit: RateLimitConfig{
			Enabled:        envBool("RATE_LIMIT_ENABLED", true),
			Capacity:       envInt("RATE_LIMIT_CAPACITY", 100),
			RefillTokens:   envInt("RATE_LIMIT_REFILL_TOKENS", 100),
			RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", time.Hour),
			TTL:            envDur("RATE_LIMIT_TTL", 2*time.Hour),
		},

		Mail: MailConfig{
			Provider:       envStr("MAIL_PROVIDER", "smtp"),
			From:           envStr("MAIL_FROM", "hello@atlastours.io"),
			FromName:       envStr("MAIL_FROM_NAME", "Atlas Tours"),
			SMTPHost:       os.Getenv("SMTP_HOST"),
			SMTPPort:       envInt("SMTP_PORT", 587),
			SMTPUsername:   os.Getenv("SMTP_USERNAME"),
			SMTPPassword:   os.Getenv("SMTP_PASSWORD"),
			SendGridAPIKey: os.Getenv("SENDGRID_API_KEY"),
		},

		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
	}
}

// Development reports whether the app runs with full error detail exposed.
func (c *Config) Development() bool {
	return c.Env != "production"
}

// ExpandDatabaseURI substitutes the <PASSWORD> placeholder in a connection
// string.
func ExpandDatabaseURI(uri, password string) string {
	return strings.ReplaceAll(uri, "<PASSWORD>", password)
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envDur(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
