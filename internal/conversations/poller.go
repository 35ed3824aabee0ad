package conversations

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"whatsapp-console/internal/models"
)

var (
	ErrNoSelection  = errors.New("no conversation selected")
	ErrEmptyMessage = errors.New("message is empty")
)

// Backend is the subset of the backend client used by the conversations page.
type Backend interface {
	Conversations(ctx context.Context) ([]models.Conversation, error)
	Contact(ctx context.Context, id string) (*models.Contact, error)
	ConversationMessages(ctx context.Context, contactID string) ([]models.Message, error)
	MarkRead(ctx context.Context, contactID string) error
	SendMessage(ctx context.Context, req models.SendMessageRequest) (*models.Message, error)
}

// Update is delivered to the listener after every message fetch.
type Update struct {
	ContactID string
	Messages  []models.Message
	Err       error
}

// Poller keeps the messages of the selected conversation fresh by refetching
// them every interval. Fetches are not ordered: whichever response resolves
// last replaces the message list.
type Poller struct {
	backend  Backend
	interval time.Duration
	listener func(Update)
	logger   *zap.Logger
	now      func() time.Time

	mu            sync.Mutex
	conversations []models.Conversation
	selected      *models.Conversation
	messages      []models.Message
	cancel        context.CancelFunc
}

// NewPoller returns a poller; listener may be nil.
func NewPoller(b Backend, interval time.Duration, logger *zap.Logger, listener func(Update)) *Poller {
	return &Poller{
		backend:  b,
		interval: interval,
		listener: listener,
		logger:   logger.Named("conversations"),
		now:      time.Now,
	}
}

// Load fetches the conversation list. Missing timestamps default to now.
func (p *Poller) Load(ctx context.Context) ([]models.Conversation, error) {
	conversations, err := p.backend.Conversations(ctx)
	if err != nil {
		return nil, fmt.Errorf("load conversations: %w", err)
	}

	now := p.now()
	for i := range conversations {
		if conversations[i].UpdatedAt.IsZero() {
			conversations[i].UpdatedAt = now
		}
		if conversations[i].LastMessage.Timestamp.IsZero() {
			conversations[i].LastMessage.Timestamp = now
		}
	}

	p.mu.Lock()
	p.conversations = conversations
	p.mu.Unlock()
	return append([]models.Conversation{}, conversations...), nil
}

func (p *Poller) Conversations() []models.Conversation {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.Conversation{}, p.conversations...)
}

// StartWith returns the loaded conversation of the contact or, when the contact
// has none yet, a placeholder built from GET /contacts/{id}.
func (p *Poller) StartWith(ctx context.Context, contactID string) (models.Conversation, error) {
	p.mu.Lock()
	for _, c := range p.conversations {
		if c.ContactID == contactID {
			p.mu.Unlock()
			return c, nil
		}
	}
	p.mu.Unlock()

	contact, err := p.backend.Contact(ctx, contactID)
	if err != nil {
		return models.Conversation{}, fmt.Errorf("start conversation with %s: %w", contactID, err)
	}

	now := p.now()
	return models.Conversation{
		ID:        "conv_" + contact.ID,
		ContactID: contact.ID,
		Contact:   *contact,
		LastMessage: models.Message{
			ID:        "temp-id",
			ContactID: contact.ID,
			Type:      models.MessageText,
			Content:   "Start your conversation...",
			Direction: models.DirectionOutbound,
			Status:    models.MessagePending,
			Timestamp: now,
		},
		Status:    "active",
		UpdatedAt: now,
	}, nil
}

// Select switches to the conversation with contactID. The previous polling loop
// is cancelled, messages are fetched immediately, the conversation is marked
// read (failures are only logged) and a new loop starts.
func (p *Poller) Select(ctx context.Context, contactID string) (models.Conversation, error) {
	conv, err := p.StartWith(ctx, contactID)
	if err != nil {
		return models.Conversation{}, err
	}

	loopCtx, cancel := context.WithCancel(context.Background())

	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
	}
	p.cancel = cancel
	p.selected = &conv
	p.messages = nil
	p.mu.Unlock()

	if _, err := p.Refresh(loopCtx, contactID); err != nil {
		p.logger.Warn("initial fetch failed", zap.String("contact_id", contactID), zap.Error(err))
	}
	if err := p.backend.MarkRead(loopCtx, contactID); err != nil {
		p.logger.Warn("mark read failed", zap.String("contact_id", contactID), zap.Error(err))
	}

	go p.loop(loopCtx, contactID)
	return conv, nil
}

func (p *Poller) loop(ctx context.Context, contactID string) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			go func() {
				_, _ = p.Refresh(ctx, contactID)
			}()
		}
	}
}

// Refresh fetches the messages of contactID and, if it is still the selected
// conversation, replaces the message list with the result.
func (p *Poller) Refresh(ctx context.Context, contactID string) ([]models.Message, error) {
	msgs, err := p.backend.ConversationMessages(ctx, contactID)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err != nil {
		p.notify(Update{ContactID: contactID, Err: err})
		return nil, err
	}

	p.mu.Lock()
	current := p.selected != nil && p.selected.ContactID == contactID
	if current {
		p.messages = msgs
	}
	p.mu.Unlock()

	if current {
		p.notify(Update{ContactID: contactID, Messages: msgs})
	}
	return msgs, nil
}

// Stop cancels the polling loop and clears the selection.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.selected = nil
	p.messages = nil
}

func (p *Poller) Selected() (models.Conversation, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.selected == nil {
		return models.Conversation{}, false
	}
	return *p.selected, true
}

func (p *Poller) Messages() []models.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.Message{}, p.messages...)
}

// Send posts a text message to the selected conversation.
func (p *Poller) Send(ctx context.Context, content string) (*models.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyMessage
	}
	conv, ok := p.Selected()
	if !ok {
		return nil, ErrNoSelection
	}
	return p.SendTo(ctx, conv.ContactID, content)
}

// SendTo posts a text message to contactID. When that conversation is selected
// the result is appended to the message list without waiting for the next poll.
// The conversation list is reloaded afterwards.
func (p *Poller) SendTo(ctx context.Context, contactID, content string) (*models.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyMessage
	}

	sent, err := p.backend.SendMessage(ctx, models.SendMessageRequest{
		ContactID: contactID,
		Content:   content,
		Type:      models.MessageText,
	})
	if err != nil {
		return nil, fmt.Errorf("send message to %s: %w", contactID, err)
	}

	msg := *sent
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Status == "" {
		msg.Status = models.MessageSent
	}
	if msg.ContactID == "" {
		msg.ContactID = contactID
	}
	if msg.Content == "" {
		msg.Content = content
	}
	if msg.Type == "" {
		msg.Type = models.MessageText
	}
	if msg.Direction == "" {
		msg.Direction = models.DirectionOutbound
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = p.now()
	}

	p.mu.Lock()
	if p.selected != nil && p.selected.ContactID == contactID {
		p.messages = append(p.messages, msg)
	}
	p.mu.Unlock()

	if _, err := p.Load(ctx); err != nil {
		p.logger.Warn("reload conversations after send", zap.Error(err))
	}
	return &msg, nil
}

func (p *Poller) notify(u Update) {
	if p.listener != nil {
		p.listener(u)
	}
}
