package dashboard

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"whatsapp-console/internal/campaigns"
	"whatsapp-console/internal/models"
)

// Backend is the subset of the backend client the dashboard reads from.
type Backend interface {
	Contacts(ctx context.Context) ([]models.Contact, error)
	Messages(ctx context.Context) ([]models.Message, error)
	Campaigns(ctx context.Context) ([]models.Campaign, error)
	Conversations(ctx context.Context) ([]models.Conversation, error)
}

type Service struct {
	backend Backend
	logger  *zap.Logger
	now     func() time.Time
}

func NewService(b Backend, logger *zap.Logger) *Service {
	return &Service{backend: b, logger: logger.Named("dashboard"), now: time.Now}
}

// Stats fetches the four lists concurrently and aggregates them.
func (s *Service) Stats(ctx context.Context) (models.DashboardStats, error) {
	var (
		contacts      []models.Contact
		messages      []models.Message
		campaignList  []models.Campaign
		conversations []models.Conversation
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		contacts, err = s.backend.Contacts(gctx)
		return err
	})
	g.Go(func() (err error) {
		messages, err = s.backend.Messages(gctx)
		return err
	})
	g.Go(func() (err error) {
		campaignList, err = s.backend.Campaigns(gctx)
		return err
	})
	g.Go(func() (err error) {
		conversations, err = s.backend.Conversations(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return models.DashboardStats{}, fmt.Errorf("load dashboard: %w", err)
	}

	stats := Compute(contacts, messages, campaignList, conversations, s.now())
	s.logger.Debug("dashboard computed",
		zap.Int("contacts", stats.TotalContacts),
		zap.Int("messages", stats.TotalMessages),
		zap.Int("campaigns", stats.TotalCampaigns),
	)
	return stats, nil
}

// SummarizeMessages counts messages by status, and outbound and inbound
// messages since local midnight of now.
func SummarizeMessages(messages []models.Message, now time.Time) models.MessageStats {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	stats := models.MessageStats{Total: len(messages)}
	for _, m := range messages {
		switch m.Status {
		case models.MessageSent:
			stats.Sent++
		case models.MessageDelivered:
			stats.Delivered++
		case models.MessageRead:
			stats.Read++
		case models.MessageFailed:
			stats.Failed++
		}
		if m.Timestamp.Before(today) {
			continue
		}
		switch m.Direction {
		case models.DirectionOutbound:
			stats.SentToday++
		case models.DirectionInbound:
			stats.ReceivedToday++
		}
	}
	return stats
}

func Compute(contacts []models.Contact, messages []models.Message, campaignList []models.Campaign, conversations []models.Conversation, now time.Time) models.DashboardStats {
	msgStats := SummarizeMessages(messages, now)
	campaignStats := campaigns.Summarize(campaignList, now)

	active := 0
	for _, c := range conversations {
		if c.UnreadCount > 0 {
			active++
		}
	}

	return models.DashboardStats{
		TotalContacts:         len(contacts),
		TotalMessages:         msgStats.Total,
		TotalCampaigns:        campaignStats.Total,
		ActiveConversations:   active,
		MessagesSentToday:     msgStats.SentToday,
		MessagesReceivedToday: msgStats.ReceivedToday,
		CampaignsThisMonth:    campaignStats.ThisMonth,
		DeliveryRate:          Rate(msgStats.Delivered, msgStats.Sent),
		OpenRate:              Rate(msgStats.Read, msgStats.Delivered),
		ResponseRate:          Rate(msgStats.ReceivedToday, msgStats.SentToday),
	}
}

// Rate returns round(part/whole*100), or 0 when whole is 0.
func Rate(part, whole int) int {
	if whole <= 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(whole) * 100))
}
