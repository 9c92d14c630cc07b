package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	envPrefix            = "LIVECHAT"
	envConfigDefaultPath = "LIVECHAT_CONFIG_DEFAULT_PATH"
	defaultConfigName    = "config.yaml"
)

// Load builds configuration from defaults, optional config file, env vars, and returns the resolved path.
// Precedence: defaults < config file < env vars < caller overrides.
func Load(logger *zerolog.Logger, explicitPath string) (Config, string, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v, cfg)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	configPath := resolveConfigPath(explicitPath)
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			if writeErr := writeDefaultConfig(configPath, cfg); writeErr != nil && logger != nil {
				logger.Warn().Err(writeErr).Str("path", configPath).Msg("failed to write default config")
			} else if logger != nil {
				logger.Info().Str("path", configPath).Msg("created default config")
			}
			// try reading again in case it was just written
			if readErr := v.ReadInConfig(); readErr != nil && logger != nil {
				logger.Warn().Err(readErr).Str("path", configPath).Msg("failed to read config after writing default")
			}
		} else {
			return cfg, configPath, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, configPath, fmt.Errorf("unmarshal config: %w", err)
	}

	return cfg, configPath, nil
}

// setDefaults registers every key so that env vars override nested values too.
func setDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("log_level", cfg.LogLevel)

	v.SetDefault("relay.addr", cfg.Relay.Addr)
	v.SetDefault("relay.read_header_timeout", cfg.Relay.ReadHeaderTimeout)
	v.SetDefault("relay.shutdown_timeout", cfg.Relay.ShutdownTimeout)
	v.SetDefault("relay.database_path", cfg.Relay.DatabasePath)
	v.SetDefault("relay.history_limit", cfg.Relay.HistoryLimit)
	v.SetDefault("relay.rate_limit", cfg.Relay.RateLimit)
	v.SetDefault("relay.jwt_secret", cfg.Relay.JWTSecret)
	v.SetDefault("relay.jwt_issuer", cfg.Relay.JWTIssuer)
	v.SetDefault("relay.jwt_audience", cfg.Relay.JWTAudience)
	v.SetDefault("relay.jwt_ttl", cfg.Relay.JWTTTL)

	v.SetDefault("client.url", cfg.Client.URL)
	v.SetDefault("client.username", cfg.Client.Username)
	v.SetDefault("client.room", cfg.Client.Room)
	v.SetDefault("client.token", cfg.Client.Token)
	v.SetDefault("client.max_messages", cfg.Client.MaxMessages)
	v.SetDefault("client.typing_ttl", cfg.Client.TypingTTL)
	v.SetDefault("client.connect_timeout", cfg.Client.ConnectTimeout)
	v.SetDefault("client.max_attempts", cfg.Client.MaxAttempts)
	v.SetDefault("client.color", cfg.Client.Color)
	v.SetDefault("client.compact", cfg.Client.Compact)
}

func resolveConfigPath(explicitPath string) string {
	if explicitPath != "" {
		return explicitPath
	}

	if base := os.Getenv(envConfigDefaultPath); base != "" {
		if err := os.MkdirAll(base, 0o755); err == nil {
			return filepath.Join(base, defaultConfigName)
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		return defaultConfigName
	}
	return filepath.Join(cwd, defaultConfigName)
}

func writeDefaultConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
