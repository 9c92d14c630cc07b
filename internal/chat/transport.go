package chat

import (
	"context"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/livechat/internal/proto"
)

// Conn is one live connection to the relay.
type Conn interface {
	// Read blocks for the next frame. It returns an error once the connection is gone.
	Read(ctx context.Context) (proto.OutboundFrame, error)
	// Write sends one frame.
	Write(ctx context.Context, frame proto.Inbound) error
	// Close releases the connection with a human-readable reason.
	Close(reason string) error
}

// Transport opens connections to the relay.
type Transport interface {
	Dial(ctx context.Context) (Conn, error)
}

// WebSocketTransport dials the relay over WebSocket with JSON frames.
type WebSocketTransport struct {
	URL    string
	Header http.Header
	// ReadLimit caps inbound frame size in bytes; 0 keeps the library default.
	ReadLimit int64
}

// NewWebSocketTransport returns a transport for the given ws:// or wss:// URL.
func NewWebSocketTransport(url string) *WebSocketTransport {
	return &WebSocketTransport{URL: url, ReadLimit: 1 << 20}
}

// Dial implements Transport.
func (t *WebSocketTransport) Dial(ctx context.Context) (Conn, error) {
	conn, _, err := websocket.Dial(ctx, t.URL, &websocket.DialOptions{HTTPHeader: t.Header})
	if err != nil {
		return nil, err
	}
	if t.ReadLimit > 0 {
		conn.SetReadLimit(t.ReadLimit)
	}
	return &wsConn{conn: conn}, nil
}

type wsConn struct {
	conn *websocket.Conn
}

func (c *wsConn) Read(ctx context.Context) (proto.OutboundFrame, error) {
	var frame proto.OutboundFrame
	err := wsjson.Read(ctx, c.conn, &frame)
	return frame, err
}

func (c *wsConn) Write(ctx context.Context, frame proto.Inbound) error {
	return wsjson.Write(ctx, c.conn, frame)
}

func (c *wsConn) Close(reason string) error {
	return c.conn.Close(websocket.StatusNormalClosure, reason)
}
