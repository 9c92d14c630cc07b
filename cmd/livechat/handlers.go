package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/livechat/internal/app"
	"github.com/vovakirdan/livechat/internal/auth"
	"github.com/vovakirdan/livechat/internal/chat"
	"github.com/vovakirdan/livechat/internal/config"
)

func runRelay(ctx context.Context, cfg config.Config, logger *zerolog.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	application, err := app.New(&cfg.Relay, logger)
	if err != nil {
		return err
	}

	logger.Info().Str("addr", cfg.Relay.Addr).Msg("starting livechat relay")
	if err := application.Run(ctx); err != nil {
		return fmt.Errorf("relay exited with error: %w", err)
	}
	logger.Info().Msg("relay stopped")
	return nil
}

func runToken(w io.Writer, cfg config.RelayConfig, userID, username string) error {
	if userID == "" {
		userID = uuid.NewString()
	}
	svc := auth.NewService(&auth.JWTConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      cfg.JWTTTL,
	})
	token, err := svc.IssueToken(userID, username)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, token)
	return err
}

func runChat(ctx context.Context, cfg config.Config, logger *zerolog.Logger, in io.Reader, out io.Writer) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	cc := cfg.Client
	if strings.TrimSpace(cc.Username) == "" {
		return errors.New("a username is required: pass --user or set client.username")
	}

	session, err := chat.NewSession(chat.NewWebSocketTransport(cc.URL), chat.Options{
		Username:       cc.Username,
		Room:           cc.Room,
		Token:          cc.Token,
		MaxMessages:    cc.MaxMessages,
		TypingTTL:      cc.TypingTTL,
		ConnectTimeout: cc.ConnectTimeout,
		MaxAttempts:    cc.MaxAttempts,
		OnStateChange: func(ev chat.StateEvent) {
			logger.Debug().Str("from", ev.Old.String()).Str("to", ev.New.String()).Int("attempt", ev.Attempt).Err(ev.Err).Msg("connection state")
		},
	}, logger)
	if err != nil {
		return err
	}
	defer session.Close()

	composer := chat.NewComposer(session, 0)
	defer composer.Close()

	term := newTerminal(out, chat.Renderer{Color: cc.Color})
	if cc.Compact {
		term = newCompactTerminal(out, chat.Renderer{Color: cc.Color}, cc.Username)
	}
	if err := term.renderFull(session.Snapshot(), composer.Input()); err != nil {
		return err
	}

	if err := session.Connect(ctx); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	ended := make(chan error, 1)
	go func() {
		ended <- term.follow(ctx, session, composer)
	}()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-ended:
			if err == nil || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("chat session ended: %w", err)
		case line, ok := <-lines:
			switch cmd := strings.TrimSpace(line); {
			case !ok || cmd == "/quit":
				return nil
			case cmd == "/open" || cmd == "/close":
				if !term.setOpen(cmd == "/open", session.Snapshot(), composer.Input()) {
					term.notice("not in compact mode")
				}
				continue
			}
			composer.SetInput(line)
			result, sent := composer.HandleKey(chat.KeyEnter)
			if !sent {
				if !session.IsConnected() && strings.TrimSpace(line) != "" {
					term.notice("not connected, message not sent")
				}
				continue
			}
			go func() {
				if err := <-result; err != nil {
					term.notice("send failed: " + err.Error())
				}
			}()
		}
	}
}
