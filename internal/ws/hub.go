package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"whatsapp-console/internal/conversations"
	"whatsapp-console/internal/models"
)

// Event types pushed to the browser
const (
	EventMessages     = "messages"
	EventNotification = "notification"
	EventCampaign     = "campaign_update"
)

// Command types accepted from the browser
const (
	CommandSelect = "select"
	CommandStop   = "stop"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Notification levels
const (
	LevelInfo    = "info"
	LevelSuccess = "success"
	LevelError   = "error"
)

// PollerFactory builds the conversation poller of one connection. The listener
// receives every fetch result of that poller.
type PollerFactory func(listener func(conversations.Update)) *conversations.Poller

// Hub maintains the set of active clients and broadcasts events to them.
// Conversation polling is per client: each connection selects its own conversation.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.Mutex

	upgrader  websocket.Upgrader
	newPoller PollerFactory
	logger    *zap.Logger
}

func NewHub(allowedOrigins []string, newPoller PollerFactory, logger *zap.Logger) *Hub {
	return &Hub{
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[*Client]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		newPoller: newPoller,
		logger:    logger.Named("ws"),
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == "*" || o == origin {
				return true
			}
		}
		return false
	}
}

// Run serves register, unregister and broadcast requests until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				client.close()
			}
			h.mu.Unlock()
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.logger.Debug("client registered", zap.String("remote", client.remote))
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.close()
			}
			h.mu.Unlock()
			h.logger.Debug("client unregistered", zap.String("remote", client.remote))
		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				if !client.enqueue(message) {
					delete(h.clients, client)
					client.close()
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Event is the envelope of every message pushed to the browser.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Notification is a transient, dismissable message for the user.
type Notification struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// MessagesData is the payload of a "messages" event.
type MessagesData struct {
	ContactID string           `json:"contactId"`
	Messages  []models.Message `json:"messages"`
}

func (h *Hub) BroadcastEvent(eventType string, data any) {
	payload, err := json.Marshal(Event{Type: eventType, Data: data})
	if err != nil {
		h.logger.Error("marshal event", zap.String("type", eventType), zap.Error(err))
		return
	}
	select {
	case h.broadcast <- payload:
	default:
		h.logger.Warn("broadcast queue full, event dropped", zap.String("type", eventType))
	}
}

// Notify broadcasts a notification to every connected console.
func (h *Hub) Notify(level, message string) {
	h.BroadcastEvent(EventNotification, Notification{Level: level, Message: message})
}

func (h *Hub) NotifyCampaign(campaign models.Campaign) {
	h.BroadcastEvent(EventCampaign, campaign)
}

func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("upgrade failed", zap.Error(err))
		return
	}

	client := &Client{hub: h, conn: conn, send: make(chan []byte, 256), remote: r.RemoteAddr}
	if h.newPoller != nil {
		client.poller = h.newPoller(client.onUpdate)
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
