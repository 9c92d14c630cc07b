package chat

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/vovakirdan/livechat/internal/proto"
)

var errFakeClosed = errors.New("fake conn closed")

// fakeConn is an in-memory relay connection. Frames pushed with push are returned by
// Read; frames the session writes are collected in written.
type fakeConn struct {
	inbound chan proto.OutboundFrame
	written chan proto.Inbound
	closed  chan struct{}
	once    sync.Once
	// reject, when set, answers the hello with this error instead of an ack.
	reject *proto.Error
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		inbound: make(chan proto.OutboundFrame, 64),
		written: make(chan proto.Inbound, 64),
		closed:  make(chan struct{}),
	}
}

func (c *fakeConn) Read(ctx context.Context) (proto.OutboundFrame, error) {
	select {
	case f := <-c.inbound:
		return f, nil
	case <-c.closed:
		return proto.OutboundFrame{}, errFakeClosed
	case <-ctx.Done():
		return proto.OutboundFrame{}, ctx.Err()
	}
}

func (c *fakeConn) Write(ctx context.Context, frame proto.Inbound) error {
	select {
	case <-c.closed:
		return errFakeClosed
	default:
	}
	c.written <- frame
	if frame.Type == proto.InboundTypeHello {
		if c.reject != nil {
			c.inbound <- proto.OutboundFrame{Type: proto.OutboundTypeError, Error: c.reject}
		} else {
			c.inbound <- proto.OutboundFrame{Type: proto.OutboundTypeAck}
		}
	}
	return nil
}

func (c *fakeConn) Close(string) error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

// drop simulates the relay going away.
func (c *fakeConn) drop() {
	_ = c.Close("dropped")
}

func (c *fakeConn) push(event string, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		panic(err)
	}
	c.inbound <- proto.OutboundFrame{Type: proto.OutboundTypeEvent, Event: event, Data: raw}
}

// nextWritten returns the next written frame of the given type, skipping others.
func (c *fakeConn) nextWritten(ctx context.Context, typ string) (proto.Inbound, error) {
	for {
		select {
		case f := <-c.written:
			if f.Type == typ {
				return f, nil
			}
		case <-ctx.Done():
			return proto.Inbound{}, ctx.Err()
		}
	}
}

type fakeTransport struct {
	mu      sync.Mutex
	conns   []*fakeConn
	dialErr error
	reject  *proto.Error
}

func (t *fakeTransport) Dial(context.Context) (Conn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.dialErr != nil {
		return nil, t.dialErr
	}
	c := newFakeConn()
	c.reject = t.reject
	t.conns = append(t.conns, c)
	return c, nil
}

func (t *fakeTransport) dials() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.conns)
}

func (t *fakeTransport) conn(i int) *fakeConn {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conns[i]
}

func (t *fakeTransport) setDialErr(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dialErr = err
}
