package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"nhooyr.io/websocket"
)

const (
	writeTimeout = 10 * time.Second
	pingPeriod   = 30 * time.Second
)

// HandleWebSocket upgrades the HTTP connection to a WebSocket and manages
// the read/write pumps for the client.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.logger.Error("websocket accept failed", "error", err)
		return
	}

	client := newClient(h, conn, 256)
	h.register <- client

	go client.writePump(r.Context())
	client.readPump(r.Context())
}

func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				c.hub.logger.Debug("websocket client disconnected normally")
			}
			return
		}
		c.handle(data)
	}
}

// handle processes one client message.
func (c *Client) handle(data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		c.replyError("invalid message")
		return
	}

	switch msg.Type {
	case MsgPing:
		reply, _ := NewMessage(MsgPong, nil)
		c.trySend(reply)

	case MsgSubscribe:
		var sub Subscription
		if err := json.Unmarshal(msg.Payload, &sub); err != nil || sub.ConnectionID == "" {
			c.replyError("subscribe needs connection_id and schema")
			return
		}
		c.subscribe(&sub)
		reply, _ := NewMessage(MsgSubscribed, sub)
		c.trySend(reply)

		c.hub.mu.RLock()
		provider := c.hub.viewProvider
		c.hub.mu.RUnlock()
		if provider != nil {
			if view, ok := provider(sub.ConnectionID, sub.Schema); ok {
				if m, err := NewMessage(MsgDiagramChanged, view); err == nil {
					c.trySend(m)
				}
			}
		}

	case MsgUnsubscribe:
		c.subscribe(nil)

	default:
		c.replyError("unknown message type " + string(msg.Type))
	}
}

func (c *Client) replyError(message string) {
	reply, _ := NewMessage(MsgError, map[string]string{"message": message})
	c.trySend(reply)
}

func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			c.conn.Close(websocket.StatusGoingAway, "")
			return

		case message := <-c.send:
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Write(writeCtx, websocket.MessageText, message)
			cancel()
			if err != nil {
				return
			}

		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}

		case <-ctx.Done():
			return
		}
	}
}
