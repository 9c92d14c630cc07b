package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/livechat/internal/auth"
	"github.com/vovakirdan/livechat/internal/core"
	"github.com/vovakirdan/livechat/internal/metrics"
	"github.com/vovakirdan/livechat/internal/proto"
)

// Relay-level error codes that are not produced by the hub.
const (
	ErrCodeUnsupportedVersion = "unsupported_version"
)

const (
	helloTimeout = 10 * time.Second
	readLimit    = 64 << 10
)

// WSHandler upgrades HTTP connections and bridges them to core.Client.
type WSHandler struct {
	hub       *core.Hub
	auth      *auth.Service
	metrics   *metrics.Relay
	rateLimit int
	log       *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(hub *core.Hub, authService *auth.Service, m *metrics.Relay, rateLimit int, logger *zerolog.Logger) *WSHandler {
	return &WSHandler{hub: hub, auth: authService, metrics: m, rateLimit: rateLimit, log: logger}
}

// ServeHTTP serves /ws.
func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var preAuth *auth.Identity
	if id, ok := IdentityFromContext(r.Context()); ok {
		preAuth = &id
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.CloseNow()
	conn.SetReadLimit(readLimit)

	h.metrics.ClientConnected()
	defer h.metrics.ClientDisconnected()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	client, room, protoErr, err := h.handshake(ctx, conn, preAuth)
	if err != nil {
		h.log.Debug().Err(err).Msg("ws handshake failed")
		return
	}
	if protoErr != nil {
		h.metrics.FrameRejected(protoErr.Code)
		_ = wsjson.Write(ctx, conn, proto.Outbound{Type: proto.OutboundTypeError, Error: protoErr})
		conn.Close(websocket.StatusPolicyViolation, protoErr.Code)
		return
	}

	h.hub.RegisterClient(client)
	defer h.hub.UnregisterClient(client)
	client.Commands <- &core.Command{Kind: core.CommandJoin, Room: room, User: client.Name, UserID: client.UserID}

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, client)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, client)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != -1 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = "connection error"
			h.log.Warn().Err(err).Str("client_id", client.ID).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

// handshake reads the hello frame and resolves the identity of the connection.
func (h *WSHandler) handshake(ctx context.Context, conn *websocket.Conn, preAuth *auth.Identity) (*core.Client, string, *proto.Error, error) {
	helloCtx, cancel := context.WithTimeout(ctx, helloTimeout)
	defer cancel()

	var inbound proto.Inbound
	if err := wsjson.Read(helloCtx, conn, &inbound); err != nil {
		return nil, "", nil, err
	}
	hello, protoErr := decodeHello(inbound)
	if protoErr != nil {
		return nil, "", protoErr, nil
	}

	var identity auth.Identity
	if preAuth != nil && hello.Token == "" {
		identity = *preAuth
	} else {
		id, err := h.auth.Authenticate(hello.Token, hello.User, hello.UserID)
		switch {
		case errors.Is(err, auth.ErrInvalidUsername):
			return nil, "", &proto.Error{Code: core.ErrCodeBadRequest, Msg: "username must be 1 to 32 characters"}, nil
		case err != nil:
			return nil, "", &proto.Error{Code: core.ErrCodeUnauthorized, Msg: err.Error()}, nil
		}
		identity = id
	}

	client := core.NewClient(uuid.NewString(), identity.Username)
	client.UserID = identity.UserID
	h.log.Debug().Str("client_id", client.ID).Str("user", client.Name).Str("room", hello.Room).Msg("hello accepted")
	return client, hello.Room, nil, nil
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	limiter := newRateLimiter(h.rateLimit)
	for {
		var inbound proto.Inbound
		if err := wsjson.Read(ctx, conn, &inbound); err != nil {
			return err
		}

		if !limiter.allow() {
			h.metrics.FrameRejected(core.ErrCodeRateLimited)
			if err := h.writeError(ctx, conn, &proto.Error{Code: core.ErrCodeRateLimited, Msg: "too many messages"}); err != nil {
				return err
			}
			continue
		}

		cmd, protoErr := inboundToCommand(client, inbound)
		if protoErr != nil {
			h.metrics.FrameRejected(protoErr.Code)
			if err := h.writeError(ctx, conn, protoErr); err != nil {
				return err
			}
			continue
		}

		select {
		case client.Commands <- cmd:
		case <-ctx.Done():
			return ctx.Err()
		}
		if cmd.Kind == core.CommandLeave {
			return nil
		}
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	for {
		select {
		case event, ok := <-client.Events:
			if !ok {
				return nil
			}
			if err := wsjson.Write(ctx, conn, outboundFromEvent(event)); err != nil {
				h.log.Debug().Err(err).Str("client_id", client.ID).Msg("write ws event")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (h *WSHandler) writeError(ctx context.Context, conn *websocket.Conn, protoErr *proto.Error) error {
	return wsjson.Write(ctx, conn, proto.Outbound{Type: proto.OutboundTypeError, Error: protoErr})
}
