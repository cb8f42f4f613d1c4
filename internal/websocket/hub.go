package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vikasavnish/stockwatch/internal/models"
	"github.com/vikasavnish/stockwatch/internal/services"
	"github.com/vikasavnish/stockwatch/internal/toggle"
)

const (
	sendBuffer = 32
	writeWait  = 10 * time.Second
)

// SessionResolver resolves the caller of a request, or nil when anonymous
type SessionResolver interface {
	GetSession(r *http.Request) *services.Session
}

// ControllerFactory starts a toggle controller for one connection
type ControllerFactory interface {
	NewController(userID string, notifier toggle.Notifier) *toggle.Controller
}

// Hub maintains the set of active clients and routes messages to them
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool
	byUser  map[string]map[*Client]bool

	// Messages to be broadcast to all connected clients
	broadcast chan models.Message

	// Upgrader for HTTP connections to WebSocket
	upgrader websocket.Upgrader

	sessions    SessionResolver
	controllers ControllerFactory
	logger      *slog.Logger
}

// NewHub creates a new hub for managing WebSocket connections
func NewHub(sessions SessionResolver, controllers ControllerFactory, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	upgrader := websocket.Upgrader{
		// Allow all origins for WebSocket connections
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	return &Hub{
		clients:     make(map[*Client]bool),
		byUser:      make(map[string]map[*Client]bool),
		broadcast:   make(chan models.Message),
		upgrader:    upgrader,
		sessions:    sessions,
		controllers: controllers,
		logger:      logger,
	}
}

// Run fans broadcast messages out to every client until ctx is done
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case msg := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				client.Send(msg)
			}
			h.mu.RUnlock()
		case <-ctx.Done():
			h.closeAll()
			return
		}
	}
}

// Broadcast sends a message to all connected clients
func (h *Hub) Broadcast(ctx context.Context, msg models.Message) {
	select {
	case h.broadcast <- msg:
	case <-ctx.Done():
	}
}

// SendToUser delivers msg to every connection of userID
func (h *Hub) SendToUser(userID string, msg models.Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.byUser[userID] {
		client.Send(msg)
	}
}

// Notify shows a toast on every connection of userID
func (h *Hub) Notify(userID string, n models.Notification) {
	h.SendToUser(userID, models.Message{Type: models.MessageToast, Content: n})
}

func (h *Hub) Success(userID, message string) {
	h.Notify(userID, models.Notification{Level: "success", Message: message})
}

func (h *Hub) Error(userID, message string) {
	h.Notify(userID, models.Notification{Level: "error", Message: message})
}

// ConnectedUsers returns the IDs of signed-in users with an open connection
func (h *Hub) ConnectedUsers() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	users := make([]string, 0, len(h.byUser))
	for id := range h.byUser {
		users = append(users, id)
	}
	return users
}

// HandleWebSocket upgrades an HTTP connection to WebSocket. Anonymous
// connections are accepted; their toggles are rejected with a sign-in toast.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	var userID string
	if h.sessions != nil {
		if s := h.sessions.GetSession(r); s != nil {
			userID = s.User.ID
		}
	}

	// Upgrade the HTTP connection to a WebSocket connection
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	client := &Client{
		hub:    h,
		conn:   ws,
		userID: userID,
		send:   make(chan models.Message, sendBuffer),
		cancel: cancel,
	}
	if h.controllers != nil {
		client.controller = h.controllers.NewController(userID, client)
		client.controller.OnChange = func(row toggle.Row) {
			client.Send(models.Message{Type: models.MessageRow, Content: row})
		}
	}

	h.register(client)
	go client.writePump()
	go client.readPump(ctx)
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = true
	if c.userID != "" {
		if h.byUser[c.userID] == nil {
			h.byUser[c.userID] = make(map[*Client]bool)
		}
		h.byUser[c.userID][c] = true
	}
	h.logger.Debug("websocket client connected", "user_id", c.userID, "clients", len(h.clients))
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.clients[c] {
		return
	}
	delete(h.clients, c)
	if conns := h.byUser[c.userID]; conns != nil {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.byUser, c.userID)
		}
	}
	c.close()
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.close()
	}
	h.clients = make(map[*Client]bool)
	h.byUser = make(map[string]map[*Client]bool)
}

// Client is one websocket connection
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	userID     string
	send       chan models.Message
	controller *toggle.Controller
	cancel     context.CancelFunc

	mu     sync.Mutex
	closed bool
}

// Send queues msg for the client. A client that falls behind is dropped.
func (c *Client) Send(msg models.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- msg:
	default:
		c.hub.logger.Warn("websocket client too slow, dropping", "user_id", c.userID)
		go c.hub.unregister(c)
	}
}

// Success shows a toast on this connection only
func (c *Client) Success(_, message string) {
	c.Send(toast("success", message))
}

// Error shows a toast on this connection only
func (c *Client) Error(_, message string) {
	c.Send(toast("error", message))
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.cancel()
	close(c.send)
}

func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	for {
		var msg struct {
			Type    string          `json:"type"`
			Content json.RawMessage `json:"content"`
		}
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		switch msg.Type {
		case models.MessageToggle:
			var req models.ToggleRequest
			if err := json.Unmarshal(msg.Content, &req); err != nil || req.Symbol == "" {
				c.Error(c.userID, "Invalid toggle request")
				continue
			}
			c.toggle(ctx, req)
		default:
			c.hub.logger.Debug("ignoring websocket message", "type", msg.Type)
		}
	}
}

func (c *Client) toggle(ctx context.Context, req models.ToggleRequest) {
	if c.controller == nil {
		return
	}
	// A row that is mid-flight keeps its own state; the client only reports
	// what it shows for rows the controller has not seen or has settled.
	if row, ok := c.controller.Row(req.Symbol); !ok || !row.Processing {
		c.controller.Track(req.Symbol, req.Company, req.InWatchlist)
	}
	if _, err := c.controller.Toggle(ctx, req.Symbol); err != nil {
		c.hub.logger.Warn("websocket toggle", "user_id", c.userID, "error", err)
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteJSON(msg); err != nil {
			c.hub.logger.Debug("websocket write failed", "user_id", c.userID, "error", err)
			go c.hub.unregister(c)
			// Drain until the hub closes the channel.
			for range c.send {
			}
			return
		}
	}
	c.conn.WriteControl(websocket.CloseMessage, nil, time.Now().Add(writeWait))
}

func toast(level, message string) models.Message {
	return models.Message{
		Type:    models.MessageToast,
		Content: models.Notification{Level: level, Message: message},
	}
}
