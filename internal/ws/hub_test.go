package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"whatsapp-console/internal/conversations"
	"whatsapp-console/internal/models"
)

type stubBackend struct{}

func (stubBackend) Conversations(ctx context.Context) ([]models.Conversation, error) {
	return nil, nil
}

func (stubBackend) Contact(ctx context.Context, id string) (*models.Contact, error) {
	return &models.Contact{ID: id, Name: "Ana"}, nil
}

func (stubBackend) ConversationMessages(ctx context.Context, contactID string) ([]models.Message, error) {
	return []models.Message{{ID: "m1", ContactID: contactID, Content: "hi"}}, nil
}

func (stubBackend) MarkRead(ctx context.Context, contactID string) error {
	return nil
}

func (stubBackend) SendMessage(ctx context.Context, req models.SendMessageRequest) (*models.Message, error) {
	return &models.Message{}, nil
}

func startHub(t *testing.T, origins []string) (*Hub, string) {
	t.Helper()
	factory := func(listener func(conversations.Update)) *conversations.Poller {
		return conversations.NewPoller(stubBackend{}, time.Hour, zap.NewNop(), listener)
	}
	hub := NewHub(origins, factory, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWs))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) (string, json.RawMessage) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var event struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&event))
	return event.Type, event.Data
}

func TestHub_Notify(t *testing.T) {
	hub, url := startHub(t, []string{"*"})
	conn := dial(t, url)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	hub.Notify(LevelSuccess, "Campaign created successfully")

	eventType, data := readEvent(t, conn)
	assert.Equal(t, EventNotification, eventType)
	assert.JSONEq(t, `{"level":"success","message":"Campaign created successfully"}`, string(data))
}

func TestHub_SelectStreamsMessages(t *testing.T) {
	hub, url := startHub(t, []string{"*"})
	conn := dial(t, url)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.WriteJSON(Command{Type: CommandSelect, ContactID: "42"}))

	eventType, data := readEvent(t, conn)
	require.Equal(t, EventMessages, eventType)

	var payload MessagesData
	require.NoError(t, json.Unmarshal(data, &payload))
	assert.Equal(t, "42", payload.ContactID)
	require.Len(t, payload.Messages, 1)
	assert.Equal(t, "m1", payload.Messages[0].ID)
}

func TestHub_UnregisterOnClose(t *testing.T) {
	hub, url := startHub(t, []string{"*"})
	conn := dial(t, url)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.Close())

	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"http://localhost:5173"})

	tests := []struct {
		origin string
		want   bool
	}{
		{origin: "", want: true},
		{origin: "http://localhost:5173", want: true},
		{origin: "http://evil.example.com", want: false},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/ws", nil)
		if tt.origin != "" {
			r.Header.Set("Origin", tt.origin)
		}
		assert.Equal(t, tt.want, check(r), tt.origin)
	}

	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	r.Header.Set("Origin", "http://anything")
	assert.True(t, originChecker([]string{"*"})(r))
}
