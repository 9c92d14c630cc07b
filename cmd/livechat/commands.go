package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/livechat/internal/config"
	"github.com/vovakirdan/livechat/internal/log"
)

// cli carries what the root command resolved for its subcommands.
type cli struct {
	configPath string
	logLevel   string

	cfg    config.Config
	logger *zerolog.Logger
}

func buildRootCmd() *cobra.Command {
	c := &cli{}

	cmd := &cobra.Command{
		Use:           "livechat",
		Short:         "Real-time chat relay and terminal client",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.load()
		},
	}

	cmd.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "Path to YAML configuration file")
	cmd.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	cmd.AddCommand(buildRelayCmd(c), buildChatCmd(c), buildTokenCmd(c))
	return cmd
}

// load reads .env, the config file and the environment, in that order.
func (c *cli) load() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	bootstrap := log.New(c.logLevel)
	cfg, path, err := config.Load(bootstrap, c.configPath)
	if err != nil {
		return err
	}
	cfg.UpdateFrom(config.Config{LogLevel: c.logLevel})

	c.cfg = cfg
	c.logger = log.New(cfg.LogLevel)
	c.logger.Debug().Str("config", path).Msg("configuration loaded")
	return nil
}

func buildRelayCmd(c *cli) *cobra.Command {
	var overrides config.RelayConfig

	cmd := &cobra.Command{
		Use:   "relay",
		Short: "Run the development chat relay",
		Long: `Run the development relay that chat clients connect to over WebSocket.

The relay serves:
  /ws       chat protocol (hello, msg, typing_start, typing_stop, leave)
  /health   liveness and protocol version
  /metrics  Prometheus metrics

History is kept in SQLite when a database path is configured.`,
		Example: `  # Start on the default address
  livechat relay

  # Persist history and require tokens
  LIVECHAT_RELAY_JWT_SECRET=change-me livechat relay --db chat.db`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c.cfg.UpdateFrom(config.Config{Relay: overrides})
			return runRelay(cmd.Context(), c.cfg, c.logger)
		},
	}

	cmd.Flags().StringVar(&overrides.Addr, "addr", "", "HTTP listen address")
	cmd.Flags().StringVar(&overrides.DatabasePath, "db", "", "SQLite database path for message history")
	cmd.Flags().IntVar(&overrides.HistoryLimit, "history", 0, "Messages sent to a joining client")
	cmd.Flags().IntVar(&overrides.RateLimit, "rate-limit", 0, "Frames per minute per connection")

	return cmd
}

func buildChatCmd(c *cli) *cobra.Command {
	var (
		overrides config.ClientConfig
		noColor   bool
		compact   bool
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Join a room from the terminal",
		Long: `Join a chat room from the terminal.

Type a line and press Enter to send it. Lines typed while the connection is down
are not sent. Type /quit or press Ctrl+D to leave.

With --compact the room starts collapsed: only the status line and the unread
badge are shown. Type /open to expand it and /close to collapse it again.`,
		Example: `  livechat chat --user alice
  livechat chat --url ws://relay.local:8080/ws --user bob --room studio
  livechat chat --user carol --compact`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c.cfg.UpdateFrom(config.Config{Client: overrides})
			if noColor {
				c.cfg.Client.Color = false
			}
			if compact {
				c.cfg.Client.Compact = true
			}
			return runChat(cmd.Context(), c.cfg, c.logger, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&overrides.URL, "url", "", "Relay WebSocket URL")
	cmd.Flags().StringVarP(&overrides.Username, "user", "u", "", "Username to chat as")
	cmd.Flags().StringVar(&overrides.Room, "room", "", "Room to join")
	cmd.Flags().StringVar(&overrides.Token, "token", "", "Relay session token")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	cmd.Flags().BoolVar(&compact, "compact", false, "Start collapsed, showing only the unread badge")

	return cmd
}

func buildTokenCmd(c *cli) *cobra.Command {
	var username, userID string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a relay session token",
		Long:  `Mint a session token signed with the relay JWT secret (relay.jwt_secret).`,
		Example: `  LIVECHAT_RELAY_JWT_SECRET=change-me livechat token --user alice`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runToken(cmd.OutOrStdout(), c.cfg.Relay, userID, username)
		},
	}

	cmd.Flags().StringVarP(&username, "user", "u", "", "Username to embed in the token")
	cmd.Flags().StringVar(&userID, "user-id", "", "User id to embed (random if empty)")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
