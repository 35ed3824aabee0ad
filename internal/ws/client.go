package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"whatsapp-console/internal/conversations"
)

// Client represents a connected WebSocket client
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	remote string
	poller *conversations.Poller

	mu     sync.Mutex
	closed bool
}

// Command is a message sent by the browser.
type Command struct {
	Type      string `json:"type"`
	ContactID string `json:"contactId,omitempty"`
}

func (c *Client) enqueue(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
	if c.poller != nil {
		c.poller.Stop()
	}
}

func (c *Client) sendEvent(eventType string, data any) {
	payload, err := json.Marshal(Event{Type: eventType, Data: data})
	if err != nil {
		c.hub.logger.Error("marshal event", zap.String("type", eventType), zap.Error(err))
		return
	}
	if !c.enqueue(payload) {
		c.hub.logger.Debug("client queue unavailable, event dropped", zap.String("type", eventType))
	}
}

func (c *Client) onUpdate(u conversations.Update) {
	if u.Err != nil {
		c.sendEvent(EventNotification, Notification{Level: LevelError, Message: "Failed to fetch messages"})
		return
	}
	c.sendEvent(EventMessages, MessagesData{ContactID: u.ContactID, Messages: u.Messages})
}

func (c *Client) handle(cmd Command) {
	if c.poller == nil {
		return
	}
	switch cmd.Type {
	case CommandSelect:
		ctx, cancel := context.WithTimeout(context.Background(), writeWait)
		defer cancel()
		if _, err := c.poller.Select(ctx, cmd.ContactID); err != nil {
			c.hub.logger.Warn("select conversation", zap.String("contact_id", cmd.ContactID), zap.Error(err))
			c.sendEvent(EventNotification, Notification{Level: LevelError, Message: "Failed to open conversation"})
		}
	case CommandStop:
		c.poller.Stop()
	default:
		c.hub.logger.Debug("unknown command", zap.String("type", cmd.Type))
	}
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var cmd Command
		if err := c.conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debug("read failed", zap.Error(err))
			}
			return
		}
		c.handle(cmd)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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
