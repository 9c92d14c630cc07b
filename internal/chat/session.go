package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/livechat/internal/proto"
)

const (
	defaultRoom           = "live"
	defaultConnectTimeout = 10 * time.Second
	defaultMaxAttempts    = 8
	sendQueueSize         = 32
	leaveTimeout          = time.Second
)

// Options configures a Session.
type Options struct {
	Username string
	UserID   string
	Room     string
	Token    string

	MaxMessages    int
	TypingTTL      time.Duration
	ConnectTimeout time.Duration
	Backoff        BackoffPolicy
	// MaxAttempts is the number of failed reconnects tolerated before giving up.
	MaxAttempts int

	// OnStateChange is called after every state transition, outside internal locks.
	OnStateChange func(StateEvent)
	// Now overrides the clock used for typing expiry.
	Now func() time.Time
}

func (o *Options) applyDefaults() {
	if o.Room == "" {
		o.Room = defaultRoom
	}
	if o.MaxMessages <= 0 {
		o.MaxMessages = DefaultMaxMessages
	}
	if o.TypingTTL <= 0 {
		o.TypingTTL = DefaultTypingTTL
	}
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = defaultConnectTimeout
	}
	if o.Backoff.Initial <= 0 {
		o.Backoff = DefaultBackoff()
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = defaultMaxAttempts
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// Snapshot is a consistent read of everything a view needs.
type Snapshot struct {
	Username    string
	State       ConnectionState
	Messages    []Message
	TypingUsers []string
	LastError   error
}

type outFrame struct {
	frame  proto.Inbound
	result chan error
}

// Session owns one logical chat session with the relay: the connection lifecycle,
// the message log and the typing set. Reads are safe from any goroutine; changes are
// announced on Changed.
type Session struct {
	transport Transport
	opts      Options
	log       *zerolog.Logger

	store  *MessageStore
	typing *TypingTracker

	mu          sync.Mutex
	state       ConnectionState
	lastErr     error
	sealed      bool
	out         chan outFrame
	cancel      context.CancelFunc
	done        chan struct{}
	stateSignal chan struct{}

	changed chan struct{}
}

// NewSession creates a disconnected session. Call Connect to start it.
func NewSession(transport Transport, opts Options, logger *zerolog.Logger) (*Session, error) {
	if transport == nil {
		return nil, errors.New("transport is required")
	}
	opts.Username = strings.TrimSpace(opts.Username)
	if opts.Username == "" {
		return nil, errors.New("username is required")
	}
	opts.applyDefaults()
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	sessionLog := logger.With().Str("component", "chat").Str("user", opts.Username).Logger()

	return &Session{
		transport:   transport,
		opts:        opts,
		log:         &sessionLog,
		store:       NewMessageStore(opts.MaxMessages),
		typing:      NewTypingTracker(opts.Username, opts.TypingTTL, opts.Now),
		state:       StateDisconnected,
		stateSignal: make(chan struct{}),
		changed:     make(chan struct{}, 1),
	}, nil
}

// Username returns the name the session joins with.
func (s *Session) Username() string {
	return s.opts.Username
}

// Connect starts the connection loop and returns immediately. It is a no-op while a loop
// is already running. The loop stops when ctx is cancelled, Close is called, or the
// reconnect budget is spent.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.sealed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.state.active() {
		s.mu.Unlock()
		return nil
	}
	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.lastErr = nil
	ev := s.transitionLocked(StateConnecting, 0, nil)
	done := s.done
	s.mu.Unlock()

	s.emit(ev)
	go s.run(loopCtx, done)
	return nil
}

// WaitConnected blocks until the relay acknowledged the session, or the session stopped
// trying. It returns the last connection error in the latter case.
func (s *Session) WaitConnected(ctx context.Context) error {
	for {
		s.mu.Lock()
		state, signal, lastErr := s.state, s.stateSignal, s.lastErr
		s.mu.Unlock()

		switch state {
		case StateConnected:
			return nil
		case StateClosed:
			return ErrClosed
		case StateDisconnected:
			if lastErr != nil {
				return lastErr
			}
			return ErrNotConnected
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-signal:
		}
	}
}

// SendMessage queues text for delivery without waiting for it. The returned channel
// receives exactly one value: nil once the frame is written, or the reason it was not.
// Callers that do not care may drop the channel.
func (s *Session) SendMessage(text string) <-chan error {
	result := make(chan error, 1)

	text = strings.TrimSpace(text)
	switch {
	case text == "":
		result <- ErrEmptyMessage
		return result
	case utf8.RuneCountInString(text) > MaxMessageLength:
		result <- ErrMessageTooLong
		return result
	}

	frame, err := proto.NewInbound(proto.InboundTypeMsg, proto.MsgData{ID: uuid.NewString(), Text: text})
	if err != nil {
		result <- err
		return result
	}
	if err := s.enqueue(frame, result); err != nil {
		result <- err
	}
	return result
}

// StartTyping tells the relay the user started typing.
func (s *Session) StartTyping() error {
	return s.enqueue(proto.Inbound{Type: proto.InboundTypeTypingStart}, nil)
}

// StopTyping tells the relay the user stopped typing.
func (s *Session) StopTyping() error {
	return s.enqueue(proto.Inbound{Type: proto.InboundTypeTypingStop}, nil)
}

func (s *Session) enqueue(frame proto.Inbound, result chan error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sealed {
		return ErrClosed
	}
	if s.state != StateConnected || s.out == nil {
		return ErrNotConnected
	}
	select {
	case s.out <- outFrame{frame: frame, result: result}:
		return nil
	default:
		return fmt.Errorf("send queue full: %w", ErrNotConnected)
	}
}

// Close leaves the room, releases the connection and clears the session state.
// Inbound frames that arrive afterwards are ignored. Calling Close again is a no-op.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.sealed {
		s.mu.Unlock()
		return nil
	}
	var leaveResult chan error
	if s.out != nil {
		leaveResult = make(chan error, 1)
		select {
		case s.out <- outFrame{frame: proto.Inbound{Type: proto.InboundTypeLeave}, result: leaveResult}:
		default:
			leaveResult = nil
		}
	}
	s.sealed = true
	ev := s.transitionLocked(StateClosed, 0, nil)
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	if leaveResult != nil {
		select {
		case <-leaveResult:
		case <-time.After(leaveTimeout):
		}
	}
	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	s.store.Clear()
	s.typing.Reset()
	s.emit(ev)
	s.log.Debug().Msg("session closed")
	return nil
}

// State returns the connection state.
func (s *Session) State() ConnectionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// IsConnected reports whether messages can be sent.
func (s *Session) IsConnected() bool {
	return s.State() == StateConnected
}

// LastError returns the error behind the latest failed connection, if any.
func (s *Session) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Messages returns the message log, oldest first.
func (s *Session) Messages() []Message {
	return s.store.Messages()
}

// TypingUsers returns the other users currently typing, sorted.
func (s *Session) TypingUsers() []string {
	return s.typing.Users()
}

// Snapshot returns the current view state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	state, lastErr := s.state, s.lastErr
	s.mu.Unlock()
	return Snapshot{
		Username:    s.opts.Username,
		State:       state,
		Messages:    s.store.Messages(),
		TypingUsers: s.typing.Users(),
		LastError:   lastErr,
	}
}

// Changed delivers a value after messages, typing or state change. Notifications
// coalesce: one receive may stand for several changes.
func (s *Session) Changed() <-chan struct{} {
	return s.changed
}

func (s *Session) notify() {
	select {
	case s.changed <- struct{}{}:
	default:
	}
}

// transitionLocked moves to state and returns the event to emit once unlocked.
// A closed session never leaves StateClosed.
func (s *Session) transitionLocked(state ConnectionState, attempt int, err error) *StateEvent {
	if s.state == StateClosed || (s.state == state && state != StateReconnecting) {
		return nil
	}
	ev := &StateEvent{Old: s.state, New: state, Attempt: attempt, Err: err}
	s.state = state
	if err != nil {
		s.lastErr = err
	}
	close(s.stateSignal)
	s.stateSignal = make(chan struct{})
	return ev
}

func (s *Session) setState(state ConnectionState, attempt int, err error) {
	s.mu.Lock()
	ev := s.transitionLocked(state, attempt, err)
	s.mu.Unlock()
	s.emit(ev)
}

func (s *Session) emit(ev *StateEvent) {
	if ev == nil {
		return
	}
	logEv := s.log.Debug()
	if ev.Err != nil {
		logEv = s.log.Warn().Err(ev.Err)
	}
	logEv.Str("from", ev.Old.String()).Str("to", ev.New.String()).Int("attempt", ev.Attempt).Msg("connection state")
	if s.opts.OnStateChange != nil {
		s.opts.OnStateChange(*ev)
	}
	s.notify()
}

func (s *Session) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	attempt := 0
	for {
		conn, err := s.establish(ctx)
		if err == nil {
			attempt = 0
			err = s.serve(ctx, conn)
		}
		if ctx.Err() != nil {
			s.setState(StateDisconnected, 0, nil)
			return
		}

		var relayErr *RelayError
		if errors.As(err, &relayErr) && permanentRelayError(relayErr.Code) {
			s.setState(StateDisconnected, 0, err)
			return
		}

		attempt++
		if attempt > s.opts.MaxAttempts {
			s.setState(StateDisconnected, 0, fmt.Errorf("%w: %w", ErrGaveUp, err))
			return
		}
		s.setState(StateReconnecting, attempt, err)

		timer := time.NewTimer(s.opts.Backoff.Delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			s.setState(StateDisconnected, 0, nil)
			return
		case <-timer.C:
		}
	}
}

func permanentRelayError(code string) bool {
	switch code {
	case "unauthorized", "unsupported_version", "bad_request":
		return true
	}
	return false
}

// establish dials the relay and completes the hello/ack handshake.
func (s *Session) establish(ctx context.Context) (Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, s.opts.ConnectTimeout)
	defer cancel()

	conn, err := s.transport.Dial(dialCtx)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}

	hello, err := proto.NewInbound(proto.InboundTypeHello, proto.HelloData{
		User:     s.opts.Username,
		UserID:   s.opts.UserID,
		Room:     s.opts.Room,
		Token:    s.opts.Token,
		Protocol: proto.ProtocolVersion,
	})
	if err != nil {
		_ = conn.Close("internal error")
		return nil, err
	}
	if err := conn.Write(dialCtx, hello); err != nil {
		_ = conn.Close("hello failed")
		return nil, fmt.Errorf("send hello: %w", err)
	}

	for {
		frame, err := conn.Read(dialCtx)
		if err != nil {
			_ = conn.Close("handshake failed")
			return nil, fmt.Errorf("await ack: %w", err)
		}
		switch frame.Type {
		case proto.OutboundTypeAck:
			return conn, nil
		case proto.OutboundTypeError:
			_ = conn.Close("rejected")
			return nil, relayError(frame.Error)
		default:
			// Frames before the ack belong to the room we are joining.
			s.handleFrame(frame)
		}
	}
}

// serve runs the read and write loops of an acknowledged connection until one fails.
func (s *Session) serve(ctx context.Context, conn Conn) error {
	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	out := make(chan outFrame, sendQueueSize)
	s.mu.Lock()
	s.out = out
	ev := s.transitionLocked(StateConnected, 0, nil)
	s.mu.Unlock()
	s.emit(ev)

	errCh := make(chan error, 2)
	go func() {
		errCh <- s.readLoop(connCtx, conn)
	}()
	go func() {
		errCh <- s.writeLoop(connCtx, conn, out)
	}()

	ticker := time.NewTicker(pruneInterval(s.opts.TypingTTL))
	defer ticker.Stop()

	var err error
wait:
	for {
		select {
		case err = <-errCh:
			break wait
		case <-ticker.C:
			if s.typing.Prune() {
				s.notify()
			}
		}
	}
	cancel()
	<-errCh

	s.mu.Lock()
	s.out = nil
	s.mu.Unlock()
	failPending(out, ErrNotConnected)

	_ = conn.Close("closing")
	s.typing.Reset()
	s.notify()
	return err
}

func pruneInterval(ttl time.Duration) time.Duration {
	interval := ttl / 5
	if interval < 50*time.Millisecond {
		interval = 50 * time.Millisecond
	}
	return interval
}

func failPending(out chan outFrame, err error) {
	for {
		select {
		case f := <-out:
			if f.result != nil {
				f.result <- err
			}
		default:
			return
		}
	}
}

func (s *Session) readLoop(ctx context.Context, conn Conn) error {
	for {
		frame, err := conn.Read(ctx)
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		s.handleFrame(frame)
	}
}

func (s *Session) writeLoop(ctx context.Context, conn Conn, out <-chan outFrame) error {
	for {
		select {
		case f := <-out:
			err := conn.Write(ctx, f.frame)
			if f.result != nil {
				f.result <- err
			}
			if err != nil {
				s.log.Warn().Err(err).Str("type", f.frame.Type).Msg("write frame")
				return fmt.Errorf("write: %w", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// handleFrame applies one relay frame to the session state. It holds the session lock
// so that a concurrent Close either happens before (frame dropped) or after (frame
// applied, then cleared).
func (s *Session) handleFrame(frame proto.OutboundFrame) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sealed {
		return
	}

	switch frame.Type {
	case proto.OutboundTypeEvent:
		if s.applyEventLocked(frame) {
			s.notify()
		}
	case proto.OutboundTypeError:
		err := relayError(frame.Error)
		s.lastErr = err
		s.log.Warn().Err(err).Msg("relay error")
		s.notify()
	case proto.OutboundTypeAck:
	default:
		s.log.Debug().Str("type", frame.Type).Msg("ignoring unknown frame")
	}
}

func (s *Session) applyEventLocked(frame proto.OutboundFrame) bool {
	switch frame.Event {
	case proto.EventNameMessage:
		var ev proto.EventMessage
		if err := json.Unmarshal(frame.Data, &ev); err != nil {
			s.log.Warn().Err(err).Msg("decode message event")
			return false
		}
		msg := messageFromEvent(ev)
		typingChanged := msg.Type == MessageTypeUser && s.typing.Stop(msg.Username)
		return s.store.Append(msg) || typingChanged
	case proto.EventNameTyping:
		var ev proto.EventTyping
		if err := json.Unmarshal(frame.Data, &ev); err != nil {
			s.log.Warn().Err(err).Msg("decode typing event")
			return false
		}
		if ev.Typing {
			// Refreshes count as changes so views re-render stale indicators.
			s.typing.Start(ev.User)
			return ev.User != s.opts.Username
		}
		return s.typing.Stop(ev.User)
	case proto.EventNameHistory:
		var ev proto.EventHistory
		if err := json.Unmarshal(frame.Data, &ev); err != nil {
			s.log.Warn().Err(err).Msg("decode history event")
			return false
		}
		added := false
		for _, m := range ev.Messages {
			if s.store.Append(messageFromEvent(m)) {
				added = true
			}
		}
		return added
	default:
		s.log.Debug().Str("event", frame.Event).Msg("ignoring unknown event")
		return false
	}
}

func relayError(e *proto.Error) error {
	if e == nil {
		return &RelayError{Code: "unknown", Message: "unknown error"}
	}
	return &RelayError{Code: e.Code, Message: e.Msg}
}
