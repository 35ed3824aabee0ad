package conversations

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"whatsapp-console/internal/models"
)

type fakeBackend struct {
	mu            sync.Mutex
	conversations []models.Conversation
	contacts      map[string]models.Contact
	fetches       map[string]int
	markedRead    []string
	sent          []models.SendMessageRequest
	fetch         func(ctx context.Context, contactID string) ([]models.Message, error)
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		contacts: map[string]models.Contact{},
		fetches:  map[string]int{},
	}
}

func (f *fakeBackend) Conversations(ctx context.Context) ([]models.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Conversation{}, f.conversations...), nil
}

func (f *fakeBackend) Contact(ctx context.Context, id string) (*models.Contact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.contacts[id]
	if !ok {
		return nil, errors.New("contact not found")
	}
	return &c, nil
}

func (f *fakeBackend) ConversationMessages(ctx context.Context, contactID string) ([]models.Message, error) {
	f.mu.Lock()
	if ctx.Err() == nil {
		f.fetches[contactID]++
	}
	fetch := f.fetch
	f.mu.Unlock()

	if fetch != nil {
		return fetch(ctx, contactID)
	}
	return []models.Message{{ID: contactID + "-m1", ContactID: contactID, Content: "hello"}}, nil
}

func (f *fakeBackend) MarkRead(ctx context.Context, contactID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markedRead = append(f.markedRead, contactID)
	return errors.New("mark read unavailable")
}

func (f *fakeBackend) SendMessage(ctx context.Context, req models.SendMessageRequest) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, req)
	return &models.Message{}, nil
}

func (f *fakeBackend) fetchCount(contactID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches[contactID]
}

func (f *fakeBackend) setFetch(fn func(ctx context.Context, contactID string) ([]models.Message, error)) {
	f.mu.Lock()
	f.fetch = fn
	f.mu.Unlock()
}

func withConversations(f *fakeBackend, contactIDs ...string) {
	for _, id := range contactIDs {
		f.conversations = append(f.conversations, models.Conversation{
			ID:        "conv_" + id,
			ContactID: id,
			UpdatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			LastMessage: models.Message{
				Timestamp: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			},
		})
	}
}

func TestPoller_Load(t *testing.T) {
	fb := newFakeBackend()
	fb.conversations = []models.Conversation{{ID: "c1", ContactID: "a"}}
	p := NewPoller(fb, time.Hour, zap.NewNop(), nil)
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return now }

	conversations, err := p.Load(context.Background())
	require.NoError(t, err)

	require.Len(t, conversations, 1)
	assert.Equal(t, now, conversations[0].UpdatedAt)
	assert.Equal(t, now, conversations[0].LastMessage.Timestamp)
}

func TestPoller_SelectFetchesImmediately(t *testing.T) {
	fb := newFakeBackend()
	withConversations(fb, "a")

	var updates []Update
	var mu sync.Mutex
	p := NewPoller(fb, time.Hour, zap.NewNop(), func(u Update) {
		mu.Lock()
		updates = append(updates, u)
		mu.Unlock()
	})
	t.Cleanup(p.Stop)
	_, err := p.Load(context.Background())
	require.NoError(t, err)

	conv, err := p.Select(context.Background(), "a")
	require.NoError(t, err)

	assert.Equal(t, "conv_a", conv.ID)
	assert.Equal(t, 1, fb.fetchCount("a"))
	assert.Equal(t, []string{"a"}, fb.markedRead)
	require.Len(t, p.Messages(), 1)
	assert.Equal(t, "a-m1", p.Messages()[0].ID)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, updates, 1)
	assert.Equal(t, "a", updates[0].ContactID)
	assert.NoError(t, updates[0].Err)
}

func TestPoller_PollsOnInterval(t *testing.T) {
	fb := newFakeBackend()
	withConversations(fb, "a")
	p := NewPoller(fb, 10*time.Millisecond, zap.NewNop(), nil)
	t.Cleanup(p.Stop)
	_, err := p.Load(context.Background())
	require.NoError(t, err)

	_, err = p.Select(context.Background(), "a")
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return fb.fetchCount("a") >= 3 }, time.Second, 5*time.Millisecond)
}

func TestPoller_SelectCancelsPreviousLoop(t *testing.T) {
	fb := newFakeBackend()
	withConversations(fb, "a", "b")
	p := NewPoller(fb, 10*time.Millisecond, zap.NewNop(), nil)
	t.Cleanup(p.Stop)
	_, err := p.Load(context.Background())
	require.NoError(t, err)

	_, err = p.Select(context.Background(), "a")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return fb.fetchCount("a") >= 2 }, time.Second, 5*time.Millisecond)

	_, err = p.Select(context.Background(), "b")
	require.NoError(t, err)
	time.Sleep(30 * time.Millisecond)
	settled := fb.fetchCount("a")

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, settled, fb.fetchCount("a"))
	assert.Greater(t, fb.fetchCount("b"), 1)

	conv, ok := p.Selected()
	require.True(t, ok)
	assert.Equal(t, "b", conv.ContactID)
}

func TestPoller_Stop(t *testing.T) {
	fb := newFakeBackend()
	withConversations(fb, "a")
	p := NewPoller(fb, 10*time.Millisecond, zap.NewNop(), nil)
	_, err := p.Load(context.Background())
	require.NoError(t, err)

	_, err = p.Select(context.Background(), "a")
	require.NoError(t, err)
	p.Stop()
	time.Sleep(30 * time.Millisecond)
	settled := fb.fetchCount("a")

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, settled, fb.fetchCount("a"))
	_, ok := p.Selected()
	assert.False(t, ok)
	assert.Empty(t, p.Messages())
}

// Two overlapping fetches: the newer one resolves first, the older one last.
// The older response overwrites the newer state.
func TestPoller_LastResponseWins(t *testing.T) {
	fb := newFakeBackend()
	withConversations(fb, "a")
	p := NewPoller(fb, time.Hour, zap.NewNop(), nil)
	t.Cleanup(p.Stop)
	_, err := p.Load(context.Background())
	require.NoError(t, err)
	_, err = p.Select(context.Background(), "a")
	require.NoError(t, err)

	older := make(chan struct{})
	newer := make(chan struct{})
	started := make(chan struct{}, 2)
	var calls int
	var callsMu sync.Mutex
	fb.setFetch(func(ctx context.Context, contactID string) ([]models.Message, error) {
		callsMu.Lock()
		calls++
		n := calls
		callsMu.Unlock()
		started <- struct{}{}
		if n == 1 {
			<-older
			return []models.Message{{ID: "stale"}}, nil
		}
		<-newer
		return []models.Message{{ID: "fresh"}}, nil
	})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _ = p.Refresh(context.Background(), "a")
	}()
	<-started
	go func() {
		defer wg.Done()
		_, _ = p.Refresh(context.Background(), "a")
	}()
	<-started

	close(newer)
	require.Eventually(t, func() bool {
		msgs := p.Messages()
		return len(msgs) == 1 && msgs[0].ID == "fresh"
	}, time.Second, 5*time.Millisecond)

	close(older)
	wg.Wait()

	msgs := p.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "stale", msgs[0].ID)
}

func TestPoller_RefreshError(t *testing.T) {
	fb := newFakeBackend()
	fb.setFetch(func(ctx context.Context, contactID string) ([]models.Message, error) {
		return nil, errors.New("backend down")
	})

	var got []Update
	p := NewPoller(fb, time.Hour, zap.NewNop(), func(u Update) { got = append(got, u) })

	_, err := p.Refresh(context.Background(), "a")
	require.Error(t, err)
	require.Len(t, got, 1)
	assert.EqualError(t, got[0].Err, "backend down")
}

func TestPoller_StartWithUnknownConversation(t *testing.T) {
	fb := newFakeBackend()
	fb.contacts["z"] = models.Contact{ID: "z", Name: "Zoe", Phone: "+1"}
	p := NewPoller(fb, time.Hour, zap.NewNop(), nil)

	conv, err := p.StartWith(context.Background(), "z")
	require.NoError(t, err)

	assert.Equal(t, "conv_z", conv.ID)
	assert.Equal(t, "Zoe", conv.Contact.Name)
	assert.Equal(t, "temp-id", conv.LastMessage.ID)
	assert.Equal(t, models.MessagePending, conv.LastMessage.Status)
	assert.Equal(t, 0, conv.UnreadCount)

	_, err = p.StartWith(context.Background(), "missing")
	assert.Error(t, err)
}

func TestPoller_Send(t *testing.T) {
	fb := newFakeBackend()
	withConversations(fb, "a")
	p := NewPoller(fb, time.Hour, zap.NewNop(), nil)
	t.Cleanup(p.Stop)

	_, err := p.Send(context.Background(), "hi")
	assert.ErrorIs(t, err, ErrNoSelection)

	_, err = p.Load(context.Background())
	require.NoError(t, err)
	_, err = p.Select(context.Background(), "a")
	require.NoError(t, err)

	_, err = p.Send(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)

	msg, err := p.Send(context.Background(), "Hello Ana")
	require.NoError(t, err)

	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, models.MessageSent, msg.Status)
	assert.Equal(t, models.DirectionOutbound, msg.Direction)
	assert.Equal(t, "Hello Ana", msg.Content)
	assert.False(t, msg.Timestamp.IsZero())

	msgs := p.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, msg.ID, msgs[1].ID)
	assert.Equal(t, []models.SendMessageRequest{{ContactID: "a", Content: "Hello Ana", Type: models.MessageText}}, fb.sent)
}

func TestPoller_SendToUnselected(t *testing.T) {
	fb := newFakeBackend()
	withConversations(fb, "a", "b")
	p := NewPoller(fb, time.Hour, zap.NewNop(), nil)
	t.Cleanup(p.Stop)

	_, err := p.Select(context.Background(), "a")
	require.NoError(t, err)

	msg, err := p.SendTo(context.Background(), "b", "Hi Bob")
	require.NoError(t, err)
	assert.Equal(t, "b", msg.ContactID)

	assert.Len(t, p.Messages(), 1, "selected conversation is untouched")
	assert.Len(t, p.Conversations(), 2, "conversations reloaded after send")
}
