package core

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/vovakirdan/livechat/internal/metrics"
	"github.com/vovakirdan/livechat/internal/store"
)

const (
	// MaxMessageLength is the longest accepted message text, in runes.
	MaxMessageLength = 500
	// DefaultHistoryLimit is how many stored messages a joining client receives.
	DefaultHistoryLimit = 50

	// typingRefresh is the minimum gap between two forwarded starts of the same typer.
	typingRefresh = time.Second

	storeTimeout = 2 * time.Second
)

type clientCommand struct {
	client *Client
	cmd    *Command
}

// Hub owns rooms and clients. All state is touched only by the Run goroutine.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	commands   chan clientCommand
	done       chan struct{}

	rooms   map[string]*Room
	clients map[*Client]struct{}

	store        store.MessageStore
	historyLimit int
	metrics      *metrics.Relay
	now          func() time.Time
	log          *zerolog.Logger
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithHistoryLimit sets how many stored messages a joining client receives.
func WithHistoryLimit(n int) HubOption {
	return func(h *Hub) {
		if n >= 0 {
			h.historyLimit = n
		}
	}
}

// WithMetrics records hub activity in m.
func WithMetrics(m *metrics.Relay) HubOption {
	return func(h *Hub) { h.metrics = m }
}

// WithClock overrides the hub clock.
func WithClock(now func() time.Time) HubOption {
	return func(h *Hub) { h.now = now }
}

// NewHub creates a new chat hub instance. st may be nil, in which case no history is kept.
func NewHub(st store.MessageStore, logger *zerolog.Logger, opts ...HubOption) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	h := &Hub{
		register:     make(chan *Client),
		unregister:   make(chan *Client),
		commands:     make(chan clientCommand, 64),
		done:         make(chan struct{}),
		rooms:        make(map[string]*Room),
		clients:      make(map[*Client]struct{}),
		store:        st,
		historyLimit: DefaultHistoryLimit,
		now:          time.Now,
		log:          logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run processes registrations and commands until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case c := <-h.register:
			h.clients[c] = struct{}{}
			go h.pump(c)
		case c := <-h.unregister:
			h.removeClient(c)
		case cc := <-h.commands:
			if _, ok := h.clients[cc.client]; !ok {
				continue
			}
			h.handle(ctx, cc.client, cc.cmd)
		case <-ctx.Done():
			for c := range h.clients {
				close(c.quit)
				close(c.Events)
			}
			h.clients = nil
			return
		}
	}
}

// RegisterClient makes the hub accept commands from c.
func (h *Hub) RegisterClient(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
	}
}

// UnregisterClient removes c from its room and closes its Events channel.
func (h *Hub) UnregisterClient(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// pump forwards a client's commands into the hub loop.
func (h *Hub) pump(c *Client) {
	for {
		select {
		case cmd := <-c.Commands:
			if cmd == nil {
				continue
			}
			select {
			case h.commands <- clientCommand{client: c, cmd: cmd}:
			case <-c.quit:
				return
			case <-h.done:
				return
			}
		case <-c.quit:
			return
		case <-h.done:
			return
		}
	}
}

func (h *Hub) removeClient(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	if c.room != "" {
		h.leave(c)
	}
	delete(h.clients, c)
	close(c.quit)
	close(c.Events)
}

func (h *Hub) handle(ctx context.Context, c *Client, cmd *Command) {
	switch cmd.Kind {
	case CommandJoin:
		h.join(ctx, c, cmd)
	case CommandSendMessage:
		h.sendMessage(ctx, c, cmd.Message)
	case CommandTypingStart, CommandTypingStop:
		h.typing(c, cmd.Kind == CommandTypingStart)
	case CommandLeave:
		if c.room == "" {
			h.reject(c, coreError(ErrCodeNotInRoom, "not in a room"))
			return
		}
		h.leave(c)
	default:
		h.reject(c, coreError(ErrCodeBadRequest, "unknown command"))
	}
}

func (h *Hub) join(ctx context.Context, c *Client, cmd *Command) {
	if c.room != "" {
		h.reject(c, coreError(ErrCodeAlreadyJoined, "already joined "+c.room))
		return
	}
	roomName := strings.TrimSpace(cmd.Room)
	if roomName == "" {
		h.reject(c, coreError(ErrCodeBadRequest, "room is required"))
		return
	}
	if name := strings.TrimSpace(cmd.User); name != "" {
		c.Name = name
	}
	c.UserID = cmd.UserID

	room, ok := h.rooms[roomName]
	if !ok {
		room = NewRoom(roomName)
		h.rooms[roomName] = room
	}
	room.AddClient(c)
	c.room = roomName

	c.send(&Event{Kind: EventAck, Room: roomName, User: c.Name})
	if history := h.history(ctx, roomName); len(history) > 0 {
		c.send(&Event{Kind: EventHistory, Room: roomName, Messages: history})
	}
	h.broadcastSystem(room, c.Name+" joined the chat")

	h.log.Info().Str("client_id", c.ID).Str("user", c.Name).Str("room", roomName).Int("members", room.Size()).Msg("client joined")
}

func (h *Hub) leave(c *Client) {
	room, ok := h.rooms[c.room]
	c.room = ""
	if !ok {
		return
	}
	wasTyping := room.StopTyping(c)
	room.RemoveClient(c)
	if wasTyping {
		h.broadcast(room, &Event{Kind: EventTyping, Room: room.Name, User: c.Name, Typing: false}, nil)
	}
	h.broadcastSystem(room, c.Name+" left the chat")
	if room.Empty() {
		delete(h.rooms, room.Name)
	}

	h.log.Info().Str("client_id", c.ID).Str("user", c.Name).Str("room", room.Name).Msg("client left")
}

func (h *Hub) sendMessage(ctx context.Context, c *Client, msg Message) {
	room, ok := h.rooms[c.room]
	if !ok {
		h.reject(c, coreError(ErrCodeNotInRoom, "join a room before sending"))
		return
	}
	text := strings.TrimSpace(msg.Text)
	switch {
	case text == "":
		h.reject(c, coreError(ErrCodeBadRequest, "message text is required"))
		return
	case utf8.RuneCountInString(text) > MaxMessageLength:
		h.reject(c, coreError(ErrCodeMessageTooLong, "message exceeds 500 characters"))
		return
	}

	msg.Text = text
	msg.Kind = MessageKindUser
	msg.Room = room.Name
	msg.From = c.Name
	msg.CreatedAt = h.now()
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}

	h.persist(ctx, msg)
	room.StopTyping(c)
	h.broadcast(room, &Event{Kind: EventRoomMessage, Room: room.Name, Message: msg}, nil)
	h.metrics.MessageSent(string(MessageKindUser))
}

func (h *Hub) typing(c *Client, typing bool) {
	room, ok := h.rooms[c.room]
	if !ok {
		h.reject(c, coreError(ErrCodeNotInRoom, "join a room before typing"))
		return
	}
	h.metrics.Typing(typing)
	if typing {
		// Repeated starts are collapsed here, not on the client; one per typingRefresh
		// still goes through so peers can keep the indicator alive.
		now := h.now()
		if since, ok := room.TypingSince(c); ok && now.Sub(since) < typingRefresh {
			return
		}
		room.StartTyping(c, now)
	} else if !room.StopTyping(c) {
		return
	}
	h.broadcast(room, &Event{Kind: EventTyping, Room: room.Name, User: c.Name, Typing: typing}, c)
}

func (h *Hub) broadcastSystem(room *Room, text string) {
	msg := Message{
		ID:        uuid.NewString(),
		Kind:      MessageKindSystem,
		Room:      room.Name,
		Text:      text,
		CreatedAt: h.now(),
	}
	h.broadcast(room, &Event{Kind: EventRoomMessage, Room: room.Name, Message: msg}, nil)
	h.metrics.MessageSent(string(MessageKindSystem))
}

func (h *Hub) broadcast(room *Room, ev *Event, skip *Client) {
	if dropped := room.Broadcast(ev, skip); dropped > 0 {
		h.metrics.EventsDropped(dropped)
		h.log.Warn().Str("room", room.Name).Int("dropped", dropped).Msg("slow clients dropped event")
	}
}

func (h *Hub) reject(c *Client, err *CoreError) {
	h.metrics.FrameRejected(err.Code)
	c.send(&Event{Kind: EventError, Error: err})
}

func (h *Hub) persist(ctx context.Context, msg Message) {
	if h.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	err := h.store.SaveMessage(ctx, &store.Message{
		ID:        msg.ID,
		Room:      msg.Room,
		Username:  msg.From,
		Body:      msg.Text,
		CreatedAt: msg.CreatedAt,
	})
	if err != nil {
		h.log.Error().Err(err).Str("message_id", msg.ID).Msg("failed to save message")
	}
}

func (h *Hub) history(ctx context.Context, room string) []Message {
	if h.store == nil || h.historyLimit == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	stored, err := h.store.RecentMessages(ctx, room, h.historyLimit)
	if err != nil {
		h.log.Error().Err(err).Str("room", room).Msg("failed to load history")
		return nil
	}
	return lo.Map(stored, func(m store.Message, _ int) Message {
		return Message{
			ID:        m.ID,
			Kind:      MessageKindUser,
			Room:      m.Room,
			From:      m.Username,
			Text:      m.Body,
			CreatedAt: m.CreatedAt,
		}
	})
}
