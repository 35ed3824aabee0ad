package sandbox

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"whatsapp-console/internal/database"
	"whatsapp-console/internal/models"
)

// WebhookPayload is the notification body the Cloud API posts for incoming
// messages and delivery statuses.
type WebhookPayload struct {
	Object string         `json:"object"`
	Entry  []WebhookEntry `json:"entry"`
}

type WebhookEntry struct {
	ID      string          `json:"id"`
	Changes []WebhookChange `json:"changes"`
}

type WebhookChange struct {
	Field string       `json:"field"`
	Value WebhookValue `json:"value"`
}

type WebhookValue struct {
	MessagingProduct string           `json:"messaging_product"`
	Contacts         []WebhookContact `json:"contacts,omitempty"`
	Messages         []WebhookMessage `json:"messages,omitempty"`
	Statuses         []WebhookStatus  `json:"statuses,omitempty"`
}

type WebhookContact struct {
	WaID    string `json:"wa_id"`
	Profile struct {
		Name string `json:"name"`
	} `json:"profile"`
}

type WebhookMessage struct {
	From      string `json:"from"`
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Text      *struct {
		Body string `json:"body"`
	} `json:"text,omitempty"`
	Image    *WebhookMedia `json:"image,omitempty"`
	Video    *WebhookMedia `json:"video,omitempty"`
	Audio    *WebhookMedia `json:"audio,omitempty"`
	Document *WebhookMedia `json:"document,omitempty"`
	Button   *struct {
		Text    string `json:"text"`
		Payload string `json:"payload"`
	} `json:"button,omitempty"`
}

// WebhookMedia is a media attachment of an incoming message
type WebhookMedia struct {
	ID       string `json:"id"`
	MimeType string `json:"mime_type"`
	Caption  string `json:"caption,omitempty"`
	Filename string `json:"filename,omitempty"`
}

type WebhookStatus struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	Timestamp   string `json:"timestamp"`
	RecipientID string `json:"recipient_id"`
}

// verifyWebhook answers the Cloud API subscription handshake with the
// configured verify token.
func (s *Server) verifyWebhook(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")
	if mode == "" || token == "" {
		c.Status(http.StatusBadRequest)
		return
	}

	settings, err := database.LoadSettings(s.db)
	if err != nil {
		s.fail(c, err, "")
		return
	}
	if mode != "subscribe" || settings.WebhookToken == "" || token != settings.WebhookToken {
		c.Status(http.StatusForbidden)
		return
	}
	s.logger.Info("webhook verified")
	c.String(http.StatusOK, challenge)
}

// handleWebhook records incoming messages, creating unknown senders as
// contacts, and applies delivery statuses to stored messages.
func (s *Server) handleWebhook(c *gin.Context) {
	var payload WebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		detail(c, http.StatusBadRequest, err.Error())
		return
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		for _, entry := range payload.Entry {
			for _, change := range entry.Changes {
				names := make(map[string]string, len(change.Value.Contacts))
				for _, wc := range change.Value.Contacts {
					names[wc.WaID] = wc.Profile.Name
				}
				for _, m := range change.Value.Messages {
					if err := s.recordInbound(tx, m, names[m.From]); err != nil {
						return err
					}
				}
				for _, st := range change.Value.Statuses {
					if err := s.applyStatus(tx, st); err != nil {
						return err
					}
				}
			}
		}
		return nil
	})
	if err != nil {
		s.fail(c, err, "")
		return
	}
	c.Status(http.StatusOK)
}

// recordInbound stores one incoming message. A redelivered message id is
// acknowledged without storing it again.
func (s *Server) recordInbound(tx *gorm.DB, m WebhookMessage, profileName string) error {
	if m.ID != "" {
		var n int64
		if err := tx.Model(&models.Message{}).Where("id = ?", m.ID).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			s.logger.Debug("duplicate inbound message", zap.String("id", m.ID))
			return nil
		}
	}

	var contact models.Contact
	err := tx.First(&contact, "phone = ?", m.From).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		name := profileName
		if name == "" {
			name = m.From
		}
		contact = models.Contact{
			ID:     uuid.NewString(),
			Name:   name,
			Phone:  m.From,
			Status: models.ContactActive,
		}
		err = tx.Create(&contact).Error
	}
	if err != nil {
		return err
	}

	ts := s.parseTimestamp(m.Timestamp)
	msgType, content := inboundContent(m)
	id := m.ID
	if id == "" {
		id = uuid.NewString()
	}
	msg := models.Message{
		ID:        id,
		ContactID: contact.ID,
		Type:      msgType,
		Content:   content,
		Direction: models.DirectionInbound,
		Status:    models.MessageDelivered,
		Timestamp: ts,
	}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&msg).Error; err != nil {
		return err
	}
	s.logger.Debug("inbound message", zap.String("from", m.From), zap.String("type", m.Type))
	return tx.Model(&contact).Update("last_message_at", ts).Error
}

func inboundContent(m WebhookMessage) (string, string) {
	media := func(kind string, wm *WebhookMedia, extra string) string {
		if wm == nil {
			return "[" + kind + "]"
		}
		content := "[" + kind + "]:" + wm.ID
		if extra != "" {
			content += ":" + extra
		}
		return content
	}

	switch m.Type {
	case "text":
		if m.Text != nil {
			return models.MessageText, m.Text.Body
		}
		return models.MessageText, ""
	case "button":
		if m.Button != nil {
			return models.MessageText, m.Button.Text
		}
		return models.MessageText, "[button]"
	case "image":
		return models.MessageMedia, media("image", m.Image, caption(m.Image))
	case "video":
		return models.MessageMedia, media("video", m.Video, caption(m.Video))
	case "audio":
		return models.MessageMedia, media("audio", m.Audio, "")
	case "document":
		filename := ""
		if m.Document != nil {
			filename = m.Document.Filename
		}
		return models.MessageDocument, media("document", m.Document, filename)
	default:
		return models.MessageText, "[" + m.Type + "]"
	}
}

func caption(wm *WebhookMedia) string {
	if wm == nil {
		return ""
	}
	return wm.Caption
}

// statusRank orders delivery progress. Statuses arrive out of order, so a
// message only moves forward; failed always applies.
var statusRank = map[string]int{
	models.MessagePending:   0,
	models.MessageSent:      1,
	models.MessageDelivered: 2,
	models.MessageRead:      3,
}

// applyStatus moves a stored message to the reported status and refreshes the
// delivery counters of its campaign. Unknown message ids are ignored.
func (s *Server) applyStatus(tx *gorm.DB, st WebhookStatus) error {
	switch st.Status {
	case models.MessageSent, models.MessageDelivered, models.MessageRead, models.MessageFailed:
	default:
		return nil
	}

	var msg models.Message
	err := tx.First(&msg, "id = ?", st.ID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Debug("status for unknown message", zap.String("id", st.ID))
		return nil
	}
	if err != nil {
		return err
	}
	if st.Status != models.MessageFailed {
		if current, ok := statusRank[msg.Status]; ok && current >= statusRank[st.Status] {
			return nil
		}
	}
	if err := tx.Model(&msg).Update("status", st.Status).Error; err != nil {
		return err
	}
	if msg.CampaignID == "" {
		return nil
	}

	var delivered, read int64
	if err := tx.Model(&models.Message{}).
		Where("campaign_id = ? AND status IN ?", msg.CampaignID, []string{models.MessageDelivered, models.MessageRead}).
		Count(&delivered).Error; err != nil {
		return err
	}
	if err := tx.Model(&models.Message{}).
		Where("campaign_id = ? AND status = ?", msg.CampaignID, models.MessageRead).
		Count(&read).Error; err != nil {
		return err
	}
	return tx.Model(&models.Campaign{}).
		Where("id = ?", msg.CampaignID).
		Updates(map[string]any{"stats_delivered": delivered, "stats_read": read}).Error
}

func (s *Server) parseTimestamp(raw string) time.Time {
	if sec, err := strconv.ParseInt(raw, 10, 64); err == nil && sec > 0 {
		return time.Unix(sec, 0).UTC()
	}
	return s.now()
}
