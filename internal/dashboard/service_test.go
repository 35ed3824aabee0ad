package dashboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"whatsapp-console/internal/models"
)

type fakeBackend struct {
	contacts      []models.Contact
	messages      []models.Message
	campaigns     []models.Campaign
	conversations []models.Conversation
	messagesErr   error
}

func (f *fakeBackend) Contacts(ctx context.Context) ([]models.Contact, error) {
	return f.contacts, nil
}

func (f *fakeBackend) Messages(ctx context.Context) ([]models.Message, error) {
	return f.messages, f.messagesErr
}

func (f *fakeBackend) Campaigns(ctx context.Context) ([]models.Campaign, error) {
	return f.campaigns, nil
}

func (f *fakeBackend) Conversations(ctx context.Context) ([]models.Conversation, error) {
	return f.conversations, nil
}

func TestRate(t *testing.T) {
	tests := []struct {
		name        string
		part, whole int
		want        int
	}{
		{name: "zero denominator", part: 5, whole: 0, want: 0},
		{name: "exact", part: 1, whole: 4, want: 25},
		{name: "rounds half up", part: 1, whole: 8, want: 13},
		{name: "rounds down", part: 1, whole: 3, want: 33},
		{name: "rounds up", part: 2, whole: 3, want: 67},
		{name: "over one hundred", part: 3, whole: 2, want: 150},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Rate(tt.part, tt.whole))
		})
	}
}

func TestSummarizeMessages(t *testing.T) {
	now := time.Date(2026, 10, 15, 14, 0, 0, 0, time.UTC)
	today := now.Add(-2 * time.Hour)
	yesterday := now.Add(-20 * time.Hour)

	messages := []models.Message{
		{Status: models.MessageSent, Direction: models.DirectionOutbound, Timestamp: today},
		{Status: models.MessageDelivered, Direction: models.DirectionOutbound, Timestamp: today},
		{Status: models.MessageRead, Direction: models.DirectionOutbound, Timestamp: yesterday},
		{Status: models.MessageFailed, Direction: models.DirectionOutbound, Timestamp: yesterday},
		{Status: models.MessageDelivered, Direction: models.DirectionInbound, Timestamp: today},
		{Status: models.MessagePending, Direction: models.DirectionInbound, Timestamp: yesterday},
	}

	assert.Equal(t, models.MessageStats{
		Total:         6,
		Sent:          1,
		Delivered:     2,
		Read:          1,
		Failed:        1,
		SentToday:     2,
		ReceivedToday: 1,
	}, SummarizeMessages(messages, now))
}

func TestService_Stats(t *testing.T) {
	now := time.Date(2026, 10, 15, 14, 0, 0, 0, time.UTC)
	today := now.Add(-time.Hour)

	fb := &fakeBackend{
		contacts: []models.Contact{{ID: "1"}, {ID: "2"}, {ID: "3"}},
		messages: []models.Message{
			{Status: models.MessageSent, Direction: models.DirectionOutbound, Timestamp: today},
			{Status: models.MessageSent, Direction: models.DirectionOutbound, Timestamp: today},
			{Status: models.MessageSent, Direction: models.DirectionOutbound, Timestamp: today},
			{Status: models.MessageSent, Direction: models.DirectionOutbound, Timestamp: today},
			{Status: models.MessageDelivered, Direction: models.DirectionOutbound, Timestamp: today},
			{Status: models.MessageRead, Direction: models.DirectionOutbound, Timestamp: today},
			{Status: models.MessageRead, Direction: models.DirectionInbound, Timestamp: today},
		},
		campaigns: []models.Campaign{
			{Status: models.CampaignRunning, CreatedAt: now.AddDate(0, 0, -3)},
			{Status: models.CampaignCompleted, CreatedAt: now.AddDate(0, -2, 0)},
		},
		conversations: []models.Conversation{{UnreadCount: 2}, {UnreadCount: 0}, {UnreadCount: 1}},
	}
	svc := NewService(fb, zap.NewNop())
	svc.now = func() time.Time { return now }

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, models.DashboardStats{
		TotalContacts:         3,
		TotalMessages:         7,
		TotalCampaigns:        2,
		ActiveConversations:   2,
		MessagesSentToday:     6,
		MessagesReceivedToday: 1,
		CampaignsThisMonth:    1,
		DeliveryRate:          25,
		OpenRate:              200,
		ResponseRate:          17,
	}, stats)
}

func TestService_StatsEmpty(t *testing.T) {
	svc := NewService(&fakeBackend{}, zap.NewNop())

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.DashboardStats{}, stats)
}

func TestService_StatsError(t *testing.T) {
	svc := NewService(&fakeBackend{messagesErr: errors.New("timeout")}, zap.NewNop())

	_, err := svc.Stats(context.Background())
	assert.ErrorContains(t, err, "timeout")
}
