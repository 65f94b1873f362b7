package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port        string `mapstructure:"port"`
	DatabaseURL string `mapstructure:"database_url"`

	DBHost     string `mapstructure:"blueprint_db_host"`
	DBPort     string `mapstructure:"blueprint_db_port"`
	DBDatabase string `mapstructure:"blueprint_db_database"`
	DBUsername string `mapstructure:"blueprint_db_username"`
	DBPassword string `mapstructure:"blueprint_db_password"`
	DBSchema   string `mapstructure:"blueprint_db_schema"`

	RazorpayKeyID  string `mapstructure:"razorpay_key_id"`
	RazorpaySecret string `mapstructure:"razorpay_secret"`
	GatewayMode    string `mapstructure:"gateway_mode"`

	JWTSecret   string `mapstructure:"jwt_secret"`
	CORSOrigins string `mapstructure:"cors_origins"`

	RateLimitRPS   float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`

	StaleOrderTTL time.Duration `mapstructure:"stale_order_ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`

	LogLevel string `mapstructure:"log_level"`
}

const (
	GatewayRazorpay = "razorpay"
	GatewayMock     = "mock"
)

var defaults = map[string]any{
	"port":                  "8080",
	"database_url":          "",
	"blueprint_db_host":     "localhost",
	"blueprint_db_port":     "5432",
	"blueprint_db_database": "storefront",
	"blueprint_db_username": "postgres",
	"blueprint_db_password": "",
	"blueprint_db_schema":   "public",
	"razorpay_key_id":       "",
	"razorpay_secret":       "",
	"gateway_mode":          GatewayRazorpay,
	"jwt_secret":            "",
	"cors_origins":          "*",
	"rate_limit_rps":        5.0,
	"rate_limit_burst":      10,
	"stale_order_ttl":       30 * time.Minute,
	"sweep_interval":        time.Minute,
	"log_level":             "info",
}

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg.GatewayMode = strings.ToLower(strings.TrimSpace(cfg.GatewayMode))
	return &cfg, nil
}

// Validate checks the settings the HTTP server cannot run without.
func (c *Config) Validate() error {
	var errs []error
	if c.RazorpaySecret == "" {
		errs = append(errs, errors.New("RAZORPAY_SECRET is required"))
	}
	if c.GatewayMode == GatewayRazorpay && c.RazorpayKeyID == "" {
		errs = append(errs, errors.New("RAZORPAY_KEY_ID is required in razorpay mode"))
	}
	if c.GatewayMode != GatewayRazorpay && c.GatewayMode != GatewayMock {
		errs = append(errs, fmt.Errorf("unknown GATEWAY_MODE %q", c.GatewayMode))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	return errors.Join(errs...)
}

// DSN prefers DATABASE_URL and falls back to the BLUEPRINT_DB_* parts.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable&search_path=%s",
		c.DBUsername, c.DBPassword, c.DBHost, c.DBPort, c.DBDatabase, c.DBSchema,
	)
}

func (c *Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

func (c *Config) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
