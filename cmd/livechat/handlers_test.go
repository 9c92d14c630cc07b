package main

import (
	"bytes"
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/livechat/internal/auth"
	"github.com/vovakirdan/livechat/internal/config"
	"github.com/vovakirdan/livechat/internal/core"
	"github.com/vovakirdan/livechat/internal/metrics"
	relayhttp "github.com/vovakirdan/livechat/internal/transport/http"
)

func TestRunChatReturnsWhenRelayRefusesSession(t *testing.T) {
	logger := zerolog.Nop()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	hub := core.NewHub(nil, &logger)
	go hub.Run(ctx)

	cfg := config.Default()
	authService := auth.NewService(&auth.JWTConfig{Secret: []byte("secret"), Issuer: "test", Audience: "test", TTL: time.Minute})
	server := relayhttp.NewServer(hub, authService, metrics.NewRelay(prometheus.NewRegistry()), nil, &cfg.Relay, &logger)
	ts := httptest.NewServer(server.Handler)
	defer ts.Close()

	cfg.Client.URL = strings.Replace(ts.URL, "http", "ws", 1) + "/ws"
	cfg.Client.Username = "alice"
	cfg.Client.Color = false

	// stdin stays open: only the session ending can stop the loop.
	in, stdin := io.Pipe()
	defer stdin.Close()

	var out bytes.Buffer
	done := make(chan error, 1)
	go func() {
		done <- runChat(ctx, cfg, &logger, in, &out)
	}()

	select {
	case err := <-done:
		if err == nil || !strings.Contains(err.Error(), "chat session ended") {
			t.Fatalf("expected session ended error, got %v", err)
		}
	case <-ctx.Done():
		t.Fatal("runChat kept waiting for input after the relay refused the session")
	}
}
