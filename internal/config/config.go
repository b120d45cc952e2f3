package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	App       App
	HTTP      HTTP
	Postgres  Postgres
	Redis     Redis
	Chain     Chain
	Admin     Admin
	Session   Session
	Storage   Storage
	Channel   Channel
	Auction   Auction
	RateLimit RateLimit
	Events    Events
	Bot       Bot
}

type App struct {
	Name          string `env:"APP_NAME" envDefault:"shirtdrop"`
	Version       string `env:"APP_VERSION" envDefault:"dev"`
	Env           string `env:"APP_ENV" envDefault:"local"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	PublicBaseURL string `env:"PUBLIC_BASE_URL,notEmpty"`
	FrontendURL   string `env:"FRONTEND_URL,notEmpty"`
	AllowlistPath string `env:"ALLOWLIST_PATH"`
}

func (a App) Level() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(a.LogLevel)); err != nil {
		return slog.LevelInfo
	}

	return level
}

type HTTP struct {
	Address         string        `env:"HTTP_ADDR" envDefault:":8080"`
	ProbeAddress    string        `env:"PROBE_ADDR" envDefault:":8081"`
	MetricsAddress  string        `env:"METRICS_ADDR" envDefault:":9090"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"15s"`
	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
	LogFieldMaxLen  int           `env:"HTTP_LOG_FIELD_MAX_LEN" envDefault:"4096"`
	CORSOrigins     []string      `env:"HTTP_CORS_ORIGINS" envSeparator:","`
	// Peers allowed to set X-Forwarded-For, as CIDRs or addresses.
	TrustedProxies []string `env:"HTTP_TRUSTED_PROXIES" envSeparator:","`
}

type Admin struct {
	Address string `env:"ADMIN_ADDRESS,notEmpty"`
}

type Session struct {
	Secret string        `env:"JWT_SECRET,notEmpty" json:"-"`
	TTL    time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	// OAuth client ids whose id tokens are accepted at sign in. A provider
	// without ids is disabled.
	GoogleClientIDs []string `env:"OIDC_GOOGLE_CLIENT_IDS" envSeparator:","`
	TwitchClientIDs []string `env:"OIDC_TWITCH_CLIENT_IDS" envSeparator:","`
}

type Auction struct {
	SweepInterval time.Duration `env:"AUCTION_SWEEP_INTERVAL" envDefault:"1m"`
}

type RateLimit struct {
	ClaimPerWindow  int64         `env:"RATE_LIMIT_CLAIM" envDefault:"10"`
	FaucetPerWindow int64         `env:"RATE_LIMIT_FAUCET" envDefault:"3"`
	Window          time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`
}

type Events struct {
	AMQPURL  string `env:"AMQP_URL" json:"-"`
	Exchange string `env:"AMQP_EXCHANGE" envDefault:"shirtdrop.events"`
}

type Bot struct {
	Token   string `env:"BOT_TOKEN" json:"-"`
	ChatID  int64  `env:"BOT_CHAT_ID"`
	AdminID int64  `env:"BOT_ADMIN_ID"`
}

func Load() (Config, error) {
	_ = godotenv.Load()

	var config Config

	if err := env.Parse(&config); err != nil {
		return Config{}, fmt.Errorf("env.Parse: %w", err)
	}

	return config, nil
}
