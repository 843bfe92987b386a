package pages

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/preston-bernstein/fightpicks/internal/logging"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 32
)

// Message types pushed to and accepted from websocket clients.
const (
	MessageView         = "view"
	MessageError        = "error"
	MessageEdit         = "edit"
	MessageSelectLeague = "select_league"
	MessageAuth         = "auth"
)

// Message is the websocket envelope in both directions.
type Message struct {
	Type     string          `json:"type"`
	Payload  any             `json:"payload,omitempty"`
	PageID   string          `json:"pageId,omitempty"`
	FightID  string          `json:"fightId,omitempty"`
	LeagueID string          `json:"leagueId,omitempty"`
	Edit     json.RawMessage `json:"edit,omitempty"`
	// Token carries a refreshed access token on "auth" messages.
	Token    string          `json:"accessToken,omitempty"`
}

// InboundHandler processes a message received from a client. A returned
// message is sent back to that client only.
type InboundHandler func(ctx context.Context, msg Message) *Message

// Client is one websocket connection subscribed to a page.
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	room    string
	handle  InboundHandler
	mu      sync.Mutex
	closed  bool
	ctx     context.Context
	cleanup func()
}

// Hub fans page views out to the websocket clients of each page.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	closeRoom  chan string
	done       chan struct{}
	logger     *slog.Logger

	mu    sync.RWMutex
	rooms map[string]map[*Client]bool
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		closeRoom:  make(chan string),
		done:       make(chan struct{}),
		logger:     logger,
		rooms:      make(map[string]map[*Client]bool),
	}
}

// Run processes registrations until ctx is cancelled, then disconnects
// every client. Call it once.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for room, clients := range h.rooms {
				for c := range clients {
					c.closeSend()
				}
				delete(h.rooms, room)
			}
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			if h.rooms[c.room] == nil {
				h.rooms[c.room] = make(map[*Client]bool)
			}
			h.rooms[c.room][c] = true
			n := len(h.rooms[c.room])
			h.mu.Unlock()
			logging.Debug(h.logger, "ws client registered", logging.FieldPageID, c.room, logging.FieldCount, n)

		case c := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.rooms[c.room]; ok && clients[c] {
				c.closeSend()
				delete(clients, c)
				if len(clients) == 0 {
					delete(h.rooms, c.room)
				}
			}
			h.mu.Unlock()

		case room := <-h.closeRoom:
			h.mu.Lock()
			for c := range h.rooms[room] {
				c.closeSend()
			}
			delete(h.rooms, room)
			h.mu.Unlock()
		}
	}
}

// Register adds a client. After Run has returned the client is closed
// straight away.
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
		c.closeSend()
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// CloseRoom disconnects every client of a page.
func (h *Hub) CloseRoom(room string) {
	select {
	case h.closeRoom <- room:
	case <-h.done:
	}
}

// RoomSize returns the number of clients connected to a page.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// BroadcastToRoom sends msg to every client of a page. Slow clients whose
// buffer is full miss the message; the next view supersedes it anyway.
func (h *Hub) BroadcastToRoom(room string, msg Message) {
	raw, err := json.Marshal(msg)
	if err != nil {
		logging.Error(h.logger, "ws marshal failed", err, logging.FieldPageID, room)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[room] {
		c.enqueue(raw)
	}
}

// NewClient wraps an upgraded connection. ctx carries the authenticated user
// for inbound messages; cleanup runs once when the connection ends.
func (h *Hub) NewClient(ctx context.Context, conn *websocket.Conn, room string, handle InboundHandler, cleanup func()) *Client {
	return &Client{
		hub:     h,
		conn:    conn,
		send:    make(chan []byte, sendBuffer),
		room:    room,
		handle:  handle,
		ctx:     ctx,
		cleanup: cleanup,
	}
}

// Send queues msg for this client only.
func (c *Client) Send(msg Message) {
	raw, err := json.Marshal(msg)
	if err != nil {
		logging.Error(c.hub.logger, "ws marshal failed", err, logging.FieldPageID, c.room)
		return
	}
	c.enqueue(raw)
}

func (c *Client) enqueue(raw []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- raw:
	default:
		logging.Debug(c.hub.logger, "ws send buffer full", logging.FieldPageID, c.room)
	}
}

func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		close(c.send)
		c.closed = true
	}
}

// ReadPump reads inbound messages until the connection fails.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
		if c.cleanup != nil {
			c.cleanup()
		}
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.Warn(c.hub.logger, "ws read failed", logging.FieldPageID, c.room, "error", err)
			}
			return
		}
		if c.handle == nil {
			continue
		}
		if reply := c.handle(c.ctx, msg); reply != nil {
			c.Send(*reply)
		}
	}
}

// WritePump writes queued messages and keeps the connection alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case raw, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
				logging.Debug(c.hub.logger, "ws write failed", logging.FieldPageID, c.room, "error", err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
