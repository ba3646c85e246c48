package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/wricardo/trailgrid/game/engine"
	"github.com/wricardo/trailgrid/game/service"
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

	// Render events queued for the hub loop before new ones are dropped.
	broadcastBuffer = 256
)

// Outgoing event names
const (
	EventRender = "render"
	EventState  = "state"
	EventInput  = "input"
	EventError  = "error"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Message represents an outgoing WebSocket message
type Message struct {
	SessionID string                 `json:"session_id"`
	Event     string                 `json:"event"`
	Render    *engine.RenderEvent    `json:"render,omitempty"`
	State     *engine.Snapshot       `json:"state,omitempty"`
	Input     *service.InputResponse `json:"input,omitempty"`
	Error     string                 `json:"error,omitempty"`
}

// ClientMessage is what a client may send: a key to press
type ClientMessage struct {
	Key string `json:"key"`
}

// Backend is the part of the game service the hub needs to serve clients
type Backend interface {
	HandleInput(ctx context.Context, sessionID, key string) (*service.InputResponse, error)
	GetGameState(ctx context.Context, sessionID string) (*engine.Snapshot, error)
}

// Client represents a WebSocket client
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	sessionID string
}

type directMessage struct {
	client *Client
	data   []byte
}

// Hub maintains the set of active clients and broadcasts render events
type Hub struct {
	// Registered clients by session ID
	sessions map[string]map[*Client]bool

	// Outbound messages for every client of a session
	broadcast chan *Message

	// Outbound messages for a single client
	direct chan directMessage

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Closed when Run returns
	done chan struct{}

	// Sessions that lost render events to a full queue and need a state
	// message. resyncSignal wakes the hub loop.
	resyncMu     sync.Mutex
	resync       map[string]bool
	resyncSignal chan struct{}

	backend Backend
	logger  *log.Entry
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	return &Hub{
		sessions:     make(map[string]map[*Client]bool),
		broadcast:    make(chan *Message, broadcastBuffer),
		direct:       make(chan directMessage, broadcastBuffer),
		register:     make(chan *Client),
		unregister:   make(chan *Client),
		done:         make(chan struct{}),
		resync:       make(map[string]bool),
		resyncSignal: make(chan struct{}, 1),
		logger:       log.WithField("component", "websocket"),
	}
}

// SetBackend sets the service that client keys and initial state come
// from. It must be called before the hub serves connections.
func (h *Hub) SetBackend(backend Backend) {
	h.backend = backend
}

// Run starts the hub's event loop and returns when ctx is done
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for _, clients := range h.sessions {
				for client := range clients {
					h.unregisterClient(client)
				}
			}
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastMessage(message)

		case msg := <-h.direct:
			h.sendDirect(msg)

		case <-h.resyncSignal:
			h.resyncSessions()
		}
	}
}

// Notify queues a render event for every client of the session. It never
// blocks; when the queue is full the event is dropped and the session's
// clients get a full state message once the queue drains.
func (h *Hub) Notify(sessionID string, ev engine.RenderEvent) {
	message := &Message{
		SessionID: sessionID,
		Event:     EventRender,
		Render:    &ev,
	}

	select {
	case h.broadcast <- message:
	default:
		h.logger.WithField("session", sessionID).Warn("broadcast queue full, render event dropped")
		h.resyncMu.Lock()
		h.resync[sessionID] = true
		h.resyncMu.Unlock()

		select {
		case h.resyncSignal <- struct{}{}:
		default:
		}
	}
}

// resyncSessions flushes the broadcast queue, then sends the current state to
// every session that dropped render events
func (h *Hub) resyncSessions() {
flush:
	for {
		select {
		case message := <-h.broadcast:
			h.broadcastMessage(message)
		default:
			break flush
		}
	}

	h.resyncMu.Lock()
	ids := make([]string, 0, len(h.resync))
	for id := range h.resync {
		ids = append(ids, id)
	}
	h.resync = make(map[string]bool)
	h.resyncMu.Unlock()

	for _, id := range ids {
		if h.backend == nil || len(h.sessions[id]) == 0 {
			continue
		}
		snap, err := h.backend.GetGameState(context.Background(), id)
		if err != nil {
			h.logger.WithField("session", id).WithError(err).Warn("resync state unavailable")
			continue
		}
		h.logger.WithField("session", id).Info("clients resynced after dropped render events")
		h.broadcastMessage(&Message{SessionID: id, Event: EventState, State: snap})
	}
}

// ServeWS handles WebSocket requests from clients
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, sessionID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithField("session", sessionID).WithError(err).Warn("websocket upgrade failed")
		return
	}

	client := &Client{
		hub:       h,
		conn:      conn,
		send:      make(chan []byte, 256),
		sessionID: sessionID,
	}

	// The first message is the full state so the client can paint both grids
	if h.backend != nil {
		if snap, err := h.backend.GetGameState(r.Context(), sessionID); err == nil {
			if data, err := json.Marshal(&Message{SessionID: sessionID, Event: EventState, State: snap}); err == nil {
				client.send <- data
			}
		}
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

// registerClient adds a client to a session
func (h *Hub) registerClient(client *Client) {
	if h.sessions[client.sessionID] == nil {
		h.sessions[client.sessionID] = make(map[*Client]bool)
	}
	h.sessions[client.sessionID][client] = true

	h.logger.WithFields(log.Fields{
		"session": client.sessionID,
		"clients": len(h.sessions[client.sessionID]),
	}).Info("client registered")
}

// unregisterClient removes a client from a session
func (h *Hub) unregisterClient(client *Client) {
	if clients, ok := h.sessions[client.sessionID]; ok {
		if _, ok := clients[client]; ok {
			delete(clients, client)
			close(client.send)

			// Clean up empty sessions
			if len(clients) == 0 {
				delete(h.sessions, client.sessionID)
			}

			h.logger.WithFields(log.Fields{
				"session": client.sessionID,
				"clients": len(clients),
			}).Info("client unregistered")
		}
	}
}

// broadcastMessage sends a message to all clients in a session
func (h *Hub) broadcastMessage(message *Message) {
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.WithField("session", message.SessionID).WithError(err).Error("failed to marshal broadcast message")
		return
	}

	if clients, ok := h.sessions[message.SessionID]; ok {
		for client := range clients {
			select {
			case client.send <- data:
			default:
				h.unregisterClient(client)
			}
		}
	}
}

// sendDirect delivers a reply to one client if it is still registered
func (h *Hub) sendDirect(msg directMessage) {
	if !h.sessions[msg.client.sessionID][msg.client] {
		return
	}
	select {
	case msg.client.send <- msg.data:
	default:
		h.unregisterClient(msg.client)
	}
}

// reply queues a message for c alone
func (c *Client) reply(message *Message) {
	data, err := json.Marshal(message)
	if err != nil {
		c.hub.logger.WithField("session", c.sessionID).WithError(err).Error("failed to marshal reply")
		return
	}
	select {
	case c.hub.direct <- directMessage{client: c, data: data}:
	case <-c.hub.done:
	}
}

// handleMessage presses the key a client sent
func (c *Client) handleMessage(raw []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.reply(&Message{SessionID: c.sessionID, Event: EventError, Error: "invalid message"})
		return
	}
	if c.hub.backend == nil {
		c.reply(&Message{SessionID: c.sessionID, Event: EventError, Error: "input not supported"})
		return
	}

	resp, err := c.hub.backend.HandleInput(context.Background(), c.sessionID, msg.Key)
	if err != nil {
		c.reply(&Message{SessionID: c.sessionID, Event: EventError, Error: err.Error()})
		return
	}

	c.hub.logger.WithFields(log.Fields{
		"session": c.sessionID,
		"key":     msg.Key,
		"outcome": resp.Result.Outcome,
	}).Debug("websocket input")

	c.reply(&Message{SessionID: c.sessionID, Event: EventInput, Input: resp})
}

// readPump pumps messages from the WebSocket connection to the hub
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
				c.hub.logger.WithField("session", c.sessionID).WithError(err).Warn("websocket read failed")
			}
			break
		}
		c.handleMessage(data)
	}
}

// writePump pumps messages from the hub to the WebSocket connection. Each
// queued message goes out as its own text frame.
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
