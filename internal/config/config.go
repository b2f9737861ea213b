// Package config loads process settings from the environment and an optional .env file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds the chat server settings.
type Config struct {
	// Server
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`
	GinMode  string `envconfig:"GIN_MODE" default:"release"`

	// Logging
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`

	// History
	DefaultMessageLimit int `envconfig:"DEFAULT_MESSAGE_LIMIT" default:"50"`
	MaxMessageLimit     int `envconfig:"MAX_MESSAGE_LIMIT" default:"500"`

	// WebSocket
	SendBufferSize int           `envconfig:"WS_SEND_BUFFER" default:"256"`
	WriteWait      time.Duration `envconfig:"WS_WRITE_WAIT" default:"10s"`
	PongWait       time.Duration `envconfig:"WS_PONG_WAIT" default:"60s"`
	MaxMessageSize int64         `envconfig:"WS_MAX_MESSAGE_SIZE" default:"4096"`
	AllowedOrigins []string      `envconfig:"WS_ALLOWED_ORIGINS" default:"*"`

	// Realtime behaviour. Without WriteThrough, sendMessage is relayed as sent
	// and never reaches the store, so history only holds REST-posted messages.
	WriteThrough            bool `envconfig:"WRITE_THROUGH" default:"false"`
	NotifyLeaveOnDisconnect bool `envconfig:"NOTIFY_LEAVE_ON_DISCONNECT" default:"false"`
	EvictReplacedSessions   bool `envconfig:"EVICT_REPLACED_SESSIONS" default:"false"`

	// Redis event mirror, disabled when RedisAddr is empty
	RedisAddr          string `envconfig:"REDIS_ADDR"`
	RedisPassword      string `envconfig:"REDIS_PASSWORD"`
	RedisDB            int    `envconfig:"REDIS_DB" default:"0"`
	RedisChannelPrefix string `envconfig:"REDIS_CHANNEL_PREFIX" default:"chat:"`
}

// Load reads .env (when present) and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv decodes the process environment without touching .env.
func FromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.DefaultMessageLimit <= 0 {
		return fmt.Errorf("DEFAULT_MESSAGE_LIMIT must be positive, got %d", c.DefaultMessageLimit)
	}
	if c.MaxMessageLimit < c.DefaultMessageLimit {
		return fmt.Errorf("MAX_MESSAGE_LIMIT (%d) must be >= DEFAULT_MESSAGE_LIMIT (%d)", c.MaxMessageLimit, c.DefaultMessageLimit)
	}
	if c.SendBufferSize <= 0 {
		return fmt.Errorf("WS_SEND_BUFFER must be positive, got %d", c.SendBufferSize)
	}
	if c.PongWait <= 0 || c.WriteWait <= 0 {
		return fmt.Errorf("websocket timeouts must be positive")
	}
	return nil
}

// PingPeriod is how often the writer pings; it stays below PongWait.
func (c *Config) PingPeriod() time.Duration {
	return (c.PongWait * 9) / 10
}

// OriginAllowed reports whether a WebSocket upgrade from origin is accepted.
func (c *Config) OriginAllowed(origin string) bool {
	for _, o := range c.AllowedOrigins {
		if o == "*" || strings.EqualFold(strings.TrimSpace(o), origin) {
			return true
		}
	}
	return false
}

// Logger builds the process logger from LogLevel and LogFormat.
func (c *Config) Logger() *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
