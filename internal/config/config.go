package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds relay and client configuration values.
type Config struct {
	LogLevel string       `mapstructure:"log_level" yaml:"log_level" validate:"oneof=debug info warn warning error"`
	Relay    RelayConfig  `mapstructure:"relay" yaml:"relay"`
	Client   ClientConfig `mapstructure:"client" yaml:"client"`
}

// RelayConfig configures the development relay.
type RelayConfig struct {
	Addr              string        `mapstructure:"addr" yaml:"addr" validate:"required"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout" validate:"gt=0"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" validate:"gt=0"`
	// DatabasePath enables message history when set.
	DatabasePath string `mapstructure:"database_path" yaml:"database_path"`
	HistoryLimit int    `mapstructure:"history_limit" yaml:"history_limit" validate:"gte=0,lte=500"`
	// RateLimit is the number of frames a connection may send per minute. Zero disables it.
	RateLimit   int           `mapstructure:"rate_limit" yaml:"rate_limit" validate:"gte=0"`
	JWTSecret   string        `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	JWTIssuer   string        `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	JWTAudience string        `mapstructure:"jwt_audience" yaml:"jwt_audience"`
	JWTTTL      time.Duration `mapstructure:"jwt_ttl" yaml:"jwt_ttl" validate:"gte=0"`
}

// ClientConfig configures the terminal chat client.
type ClientConfig struct {
	URL            string        `mapstructure:"url" yaml:"url" validate:"required,url"`
	Username       string        `mapstructure:"username" yaml:"username" validate:"max=32"`
	Room           string        `mapstructure:"room" yaml:"room" validate:"required"`
	Token          string        `mapstructure:"token" yaml:"token"`
	MaxMessages    int           `mapstructure:"max_messages" yaml:"max_messages" validate:"gte=1"`
	TypingTTL      time.Duration `mapstructure:"typing_ttl" yaml:"typing_ttl" validate:"gt=0"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout" yaml:"connect_timeout" validate:"gt=0"`
	MaxAttempts    int           `mapstructure:"max_attempts" yaml:"max_attempts" validate:"gte=0"`
	Color          bool          `mapstructure:"color" yaml:"color"`
	Compact        bool          `mapstructure:"compact" yaml:"compact"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		LogLevel: "info",
		Relay: RelayConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: 5 * time.Second,
			ShutdownTimeout:   5 * time.Second,
			HistoryLimit:      50,
			RateLimit:         120,
			JWTIssuer:         "livechat",
			JWTAudience:       "livechat",
			JWTTTL:            24 * time.Hour,
		},
		Client: ClientConfig{
			URL:            "ws://localhost:8080/ws",
			Room:           "live",
			MaxMessages:    500,
			TypingTTL:      5 * time.Second,
			ConnectTimeout: 10 * time.Second,
			MaxAttempts:    8,
			Color:          true,
		},
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	c.Relay.updateFrom(other.Relay)
	c.Client.updateFrom(other.Client)
}

func (r *RelayConfig) updateFrom(other RelayConfig) {
	if other.Addr != "" {
		r.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		r.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		r.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.DatabasePath != "" {
		r.DatabasePath = other.DatabasePath
	}
	if other.HistoryLimit != 0 {
		r.HistoryLimit = other.HistoryLimit
	}
	if other.RateLimit != 0 {
		r.RateLimit = other.RateLimit
	}
	if other.JWTSecret != "" {
		r.JWTSecret = other.JWTSecret
	}
	if other.JWTIssuer != "" {
		r.JWTIssuer = other.JWTIssuer
	}
	if other.JWTAudience != "" {
		r.JWTAudience = other.JWTAudience
	}
	if other.JWTTTL != 0 {
		r.JWTTTL = other.JWTTTL
	}
}

func (cc *ClientConfig) updateFrom(other ClientConfig) {
	if other.URL != "" {
		cc.URL = other.URL
	}
	if other.Username != "" {
		cc.Username = other.Username
	}
	if other.Room != "" {
		cc.Room = other.Room
	}
	if other.Token != "" {
		cc.Token = other.Token
	}
	if other.MaxMessages != 0 {
		cc.MaxMessages = other.MaxMessages
	}
	if other.TypingTTL != 0 {
		cc.TypingTTL = other.TypingTTL
	}
	if other.ConnectTimeout != 0 {
		cc.ConnectTimeout = other.ConnectTimeout
	}
	if other.MaxAttempts != 0 {
		cc.MaxAttempts = other.MaxAttempts
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
