package ws

import (
	"context"
	"log/slog"
	"sync"

	"nhooyr.io/websocket"

	"github.com/tablewright/tablewright/internal/diagram"
	"github.com/tablewright/tablewright/internal/executor"
)

// ViewProviderFunc returns the current view of an open diagram, if any.
type ViewProviderFunc func(connectionID, schema string) (*diagram.View, bool)

type outbound struct {
	key     Subscription
	message []byte
}

// Hub manages WebSocket clients and delivers diagram events to the clients
// subscribed to that diagram.
type Hub struct {
	clients      map[*Client]bool
	broadcast    chan outbound
	register     chan *Client
	unregister   chan *Client
	logger       *slog.Logger
	mu           sync.RWMutex
	viewProvider ViewProviderFunc
}

// Client represents a single WebSocket connection. send is never closed;
// done is closed once when the hub drops the client.
type Client struct {
	hub  *Hub
	send chan []byte
	done chan struct{}
	conn *websocket.Conn

	mu        sync.Mutex
	sub       *Subscription
	closeOnce sync.Once
}

func newClient(hub *Hub, conn *websocket.Conn, buffer int) *Client {
	return &Client{
		hub:  hub,
		send: make(chan []byte, buffer),
		done: make(chan struct{}),
		conn: conn,
	}
}

// NewHub creates a new WebSocket hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan outbound, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger,
	}
}

// SetViewProvider sets the function used to send the current view to a
// client when it subscribes.
func (h *Hub) SetViewProvider(fn ViewProviderFunc) {
	h.mu.Lock()
	h.viewProvider = fn
	h.mu.Unlock()
}

// Run starts the hub's event loop. It returns when ctx is done.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.logger.Debug("websocket client connected")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.close()
			}
			h.mu.Unlock()
			h.logger.Debug("websocket client disconnected")

		case out := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				if !client.subscribedTo(out.key) {
					continue
				}
				if !client.trySend(out.message) {
					client.close()
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()

		case <-ctx.Done():
			return
		}
	}
}

// Publish sends a message to the subscribers of (connectionID, schema).
func (h *Hub) Publish(connectionID, schema string, typ MessageType, payload any) {
	msg, err := NewMessage(typ, payload)
	if err != nil {
		h.logger.Error("failed to create websocket message", "type", typ, "error", err)
		return
	}
	h.broadcast <- outbound{key: Subscription{ConnectionID: connectionID, Schema: schema}, message: msg}
}

// DiagramChanged publishes the new view of a diagram.
func (h *Hub) DiagramChanged(connectionID, schema string, view *diagram.View) {
	h.Publish(connectionID, schema, MsgDiagramChanged, view)
}

// ConfirmationRequired publishes an operation awaiting confirmation.
func (h *Hub) ConfirmationRequired(connectionID, schema string, p *executor.PendingOperation) {
	h.Publish(connectionID, schema, MsgConfirmationRequired, p)
}

// OperationFailed publishes a failed statement with the database message.
func (h *Hub) OperationFailed(connectionID, schema, sql, message string) {
	h.Publish(connectionID, schema, MsgOperationFailed, OperationFailedPayload{
		ConnectionID: connectionID,
		Schema:       schema,
		SQL:          sql,
		Message:      message,
	})
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (c *Client) subscribe(sub *Subscription) {
	c.mu.Lock()
	c.sub = sub
	c.mu.Unlock()
}

func (c *Client) subscribedTo(key Subscription) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sub != nil && *c.sub == key
}

// trySend queues msg without blocking. It reports false when the buffer is
// full or the client has been dropped.
func (c *Client) trySend(msg []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// closed reports whether the hub has dropped the client.
func (c *Client) closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}
