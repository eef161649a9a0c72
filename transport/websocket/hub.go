package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/inconshreveable/log15/v3"

	"github.com/wricardo/cattower/game/engine"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512

	// Ticks between view updates when nothing happened; about twice a
	// second at the default step.
	idleBroadcastTicks = 30

	sendBuffer      = 256
	broadcastBuffer = 256
)

const (
	EventStateUpdate    = "state_update"
	EventError          = "error"
	EventSessionDeleted = "session_deleted"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Message is the JSON frame sent to clients
type Message struct {
	SessionID string         `json:"session_id"`
	Event     string         `json:"event"`
	View      *engine.View   `json:"view,omitempty"`
	Events    []engine.Event `json:"events,omitempty"`
	Data      interface{}    `json:"data,omitempty"`
}

// Request is a frame sent by a client. Only intents are understood.
type Request struct {
	Intent string `json:"intent"`
}

// IntentFunc forwards an intent received from a client of a session
type IntentFunc func(sessionID, intent string) error

// Client represents a WebSocket client
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	sessionID string
}

type reply struct {
	client  *Client
	message *Message
}

// Hub maintains the set of active clients per session and fans out the
// views published by session runtimes.
type Hub struct {
	// Registered clients by session ID; owned by Run
	sessions map[string]map[*Client]bool

	broadcast  chan *Message
	replies    chan reply
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	mu       sync.Mutex
	attached map[string]bool
	onIntent IntentFunc

	logger log15.Logger
}

// NewHub creates a new WebSocket hub
func NewHub(logger log15.Logger) *Hub {
	if logger == nil {
		logger = log15.New()
		logger.SetHandler(log15.DiscardHandler())
	}
	return &Hub{
		sessions:   make(map[string]map[*Client]bool),
		broadcast:  make(chan *Message, broadcastBuffer),
		replies:    make(chan reply, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		attached:   make(map[string]bool),
		logger:     logger,
	}
}

// SetIntentHandler installs the function called for intents sent by clients
func (h *Hub) SetIntentHandler(fn IntentFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onIntent = fn
}

// Run is the hub's event loop. It returns when ctx is cancelled, closing
// every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastMessage(message)

		case r := <-h.replies:
			h.replyTo(r.client, r.message)

		case <-ctx.Done():
			for _, clients := range h.sessions {
				for client := range clients {
					h.unregisterClient(client)
				}
			}
			return
		}
	}
}

// ServeWS upgrades the request and registers the client for sessionID
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, sessionID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "session", sessionID, "err", err)
		return
	}

	client := &Client{
		hub:       h,
		conn:      conn,
		send:      make(chan []byte, sendBuffer),
		sessionID: sessionID,
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// Attach returns the observer that streams a session's views to its clients.
// fresh is true only the first time a session is attached; the caller then
// subscribes the observer to the session runtime.
func (h *Hub) Attach(sessionID string) (o engine.Observer, fresh bool) {
	h.mu.Lock()
	fresh = !h.attached[sessionID]
	h.attached[sessionID] = true
	h.mu.Unlock()
	return h.Observer(sessionID), fresh
}

// Detach forgets a session so a later Attach reports it fresh again
func (h *Hub) Detach(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.attached, sessionID)
}

// Observer returns an engine.Observer for sessionID. It forwards every tick
// that carries events or a state change, and otherwise one view every
// idleBroadcastTicks. It never blocks the game loop: frames are dropped
// while the hub is saturated.
func (h *Hub) Observer(sessionID string) engine.Observer {
	var (
		lastTick  uint64
		lastState engine.GameState
		sent      bool
	)
	return engine.ObserverFunc(func(view engine.View, events []engine.Event) {
		due := !sent || len(events) > 0 || view.State != lastState || view.Tick-lastTick >= idleBroadcastTicks
		if !due {
			return
		}
		v := view
		msg := &Message{SessionID: sessionID, Event: EventStateUpdate, View: &v, Events: events}
		if h.publish(msg) {
			sent, lastTick, lastState = true, view.Tick, view.State
		}
	})
}

// BroadcastEvent sends a custom event to all clients in a session
func (h *Hub) BroadcastEvent(sessionID string, event string, data interface{}) bool {
	return h.publish(&Message{
		SessionID: sessionID,
		Event:     event,
		Data:      data,
	})
}

func (h *Hub) publish(message *Message) bool {
	select {
	case h.broadcast <- message:
		return true
	default:
		h.logger.Debug("broadcast dropped", "session", message.SessionID, "event", message.Event)
		return false
	}
}

// registerClient adds a client to a session
func (h *Hub) registerClient(client *Client) {
	if h.sessions[client.sessionID] == nil {
		h.sessions[client.sessionID] = make(map[*Client]bool)
	}
	h.sessions[client.sessionID][client] = true

	h.logger.Info("client registered", "session", client.sessionID, "clients", len(h.sessions[client.sessionID]))
}

// unregisterClient removes a client from a session
func (h *Hub) unregisterClient(client *Client) {
	clients, ok := h.sessions[client.sessionID]
	if !ok || !clients[client] {
		return
	}
	delete(clients, client)
	close(client.send)

	if len(clients) == 0 {
		delete(h.sessions, client.sessionID)
	}

	h.logger.Info("client unregistered", "session", client.sessionID, "clients", len(clients))
}

// broadcastMessage sends a message to all clients in a session
func (h *Hub) broadcastMessage(message *Message) {
	clients, ok := h.sessions[message.SessionID]
	if !ok {
		return
	}

	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("failed to marshal broadcast", "session", message.SessionID, "err", err)
		return
	}

	for client := range clients {
		select {
		case client.send <- data:
		default:
			h.logger.Warn("client too slow, disconnecting", "session", client.sessionID)
			h.unregisterClient(client)
		}
	}
}

// replyTo sends a message to one client if it is still registered
func (h *Hub) replyTo(client *Client, message *Message) {
	if !h.sessions[client.sessionID][client] {
		return
	}
	data, err := json.Marshal(message)
	if err != nil {
		return
	}
	select {
	case client.send <- data:
	default:
		h.unregisterClient(client)
	}
}

func (h *Hub) intentHandler() IntentFunc {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.onIntent
}

// readPump reads intent requests from the connection until it closes
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("websocket read failed", "session", c.sessionID, "err", err)
			}
			return
		}
		c.handleRequest(data)
	}
}

func (c *Client) handleRequest(data []byte) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil || req.Intent == "" {
		c.reply("expected {\"intent\": \"...\"}")
		return
	}

	fn := c.hub.intentHandler()
	if fn == nil {
		c.reply("intents are not accepted on this connection")
		return
	}
	if err := fn(c.sessionID, req.Intent); err != nil {
		c.reply(err.Error())
	}
}

func (c *Client) reply(text string) {
	msg := &Message{SessionID: c.sessionID, Event: EventError, Data: text}
	select {
	case c.hub.replies <- reply{client: c, message: msg}:
	default:
	}
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
