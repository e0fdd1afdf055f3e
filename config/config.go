// Package config loads service settings from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Port           string   `env:"PORT" envDefault:"5200"`
	AppEnv         string   `env:"APP_ENV" envDefault:"development"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
	LandingPath    string   `env:"LANDING_PATH" envDefault:"/debug"`
	AdminToken     string   `env:"ADMIN_TOKEN"`

	OsuClientID     string `env:"OSU_CLIENT_ID"`
	OsuClientSecret string `env:"OSU_CLIENT_SECRET"`
	OsuRedirectURI  string `env:"OSU_REDIRECT_URI" envDefault:"http://localhost:3000/auth/osu/callback"`
	OsuBaseURL      string `env:"OSU_BASE_URL" envDefault:"https://osu.ppy.sh"`

	Database Database

	ProfileRefreshInterval time.Duration `env:"PROFILE_REFRESH_INTERVAL" envDefault:"6h"`
	ExportInterval         time.Duration `env:"EXPORT_INTERVAL" envDefault:"24h"`

	R2 R2

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
}

type Database struct {
	URL      string `env:"DATABASE_URL"`
	Host     string `env:"DATABASE_HOST" envDefault:"localhost"`
	Port     int    `env:"DATABASE_PORT" envDefault:"5432"`
	User     string `env:"DATABASE_USER" envDefault:"user"`
	Password string `env:"DATABASE_PASSWORD" envDefault:"pwd"`
	Name     string `env:"DATABASE_NAME" envDefault:"database"`
	SSLMode  string `env:"DATABASE_SSLMODE" envDefault:"disable"`
	PoolSize int    `env:"DATABASE_POOL_SIZE" envDefault:"5"`
}

// DSN returns DATABASE_URL when set, otherwise a key/value DSN built from
// the individual settings.
func (d Database) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type R2 struct {
	AccountID       string `env:"CLOUDFLARE_ACCOUNT_ID"`
	AccessKeyID     string `env:"R2_ACCESS_KEY_ID"`
	AccessKeySecret string `env:"R2_ACCESS_KEY_SECRET"`
	Bucket          string `env:"R2_BUCKET_NAME"`
	CDNBaseURL      string `env:"CDN_BASE_URL"`
}

// Production toggles the HttpOnly and Secure session cookie attributes.
func (c *Config) Production() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// Load reads .env when present, then parses the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Info().Msg("No .env file found, reading environment variables directly")
	}
	return Parse()
}

// Parse reads the process environment only.
func Parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	for i, origin := range cfg.AllowedOrigins {
		cfg.AllowedOrigins[i] = strings.TrimSpace(origin)
	}
	return &cfg, nil
}
