package sandbox

import (
	"io"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"whatsapp-console/internal/database"
	"whatsapp-console/internal/models"
)

// --- Messages and conversations ---

func (s *Server) listMessages(c *gin.Context) {
	messages := []models.Message{}
	if err := s.db.Order("timestamp DESC").Find(&messages).Error; err != nil {
		s.fail(c, err, "")
		return
	}
	c.JSON(http.StatusOK, messages)
}

func (s *Server) conversationMessages(c *gin.Context) {
	messages := []models.Message{}
	if err := s.db.Where("contact_id = ?", c.Param("contactId")).
		Order("timestamp ASC").
		Find(&messages).Error; err != nil {
		s.fail(c, err, "")
		return
	}
	c.JSON(http.StatusOK, messages)
}

func (s *Server) sendMessage(c *gin.Context) {
	var req models.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		detail(c, http.StatusBadRequest, err.Error())
		return
	}
	msg, err := s.storeOutbound(req.ContactID, req.Content, req.Type)
	if err != nil {
		s.fail(c, err, "Contact not found")
		return
	}
	c.JSON(http.StatusOK, msg)
}

func (s *Server) storeOutbound(contactID, content, msgType string) (*models.Message, error) {
	var contact models.Contact
	if err := s.db.First(&contact, "id = ?", contactID).Error; err != nil {
		return nil, err
	}
	if msgType == "" {
		msgType = models.MessageText
	}

	now := s.now()
	msg := models.Message{
		ID:        uuid.NewString(),
		ContactID: contact.ID,
		Type:      msgType,
		Content:   content,
		Direction: models.DirectionOutbound,
		Status:    models.MessageSent,
		Timestamp: now,
		IsRead:    true,
	}
	if err := s.db.Create(&msg).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&contact).Update("last_message_at", now).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}

// listConversations groups the message log by contact, newest conversation first.
func (s *Server) listConversations(c *gin.Context) {
	var messages []models.Message
	if err := s.db.Order("timestamp ASC").Find(&messages).Error; err != nil {
		s.fail(c, err, "")
		return
	}
	var contacts []models.Contact
	if err := s.db.Find(&contacts).Error; err != nil {
		s.fail(c, err, "")
		return
	}
	byID := make(map[string]models.Contact, len(contacts))
	for _, contact := range contacts {
		byID[contact.ID] = contact
	}

	grouped := make(map[string]*models.Conversation)
	for _, m := range messages {
		contact, ok := byID[m.ContactID]
		if !ok {
			continue
		}
		conv, ok := grouped[m.ContactID]
		if !ok {
			conv = &models.Conversation{
				ID:        "conv_" + m.ContactID,
				ContactID: m.ContactID,
				Contact:   contact,
				Status:    "active",
			}
			grouped[m.ContactID] = conv
		}
		conv.LastMessage = m
		conv.UpdatedAt = m.Timestamp
		if m.Direction == models.DirectionInbound && !m.IsRead {
			conv.UnreadCount++
		}
	}

	conversations := make([]models.Conversation, 0, len(grouped))
	for _, conv := range grouped {
		conversations = append(conversations, *conv)
	}
	sort.Slice(conversations, func(i, j int) bool {
		return conversations[i].UpdatedAt.After(conversations[j].UpdatedAt)
	})
	c.JSON(http.StatusOK, conversations)
}

func (s *Server) markRead(c *gin.Context) {
	res := s.db.Model(&models.Message{}).
		Where("contact_id = ? AND direction = ? AND is_read = ?", c.Param("contactId"), models.DirectionInbound, false).
		Update("is_read", true)
	if res.Error != nil {
		s.fail(c, res.Error, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": res.RowsAffected})
}

// --- Settings ---

func (s *Server) getSettings(c *gin.Context) {
	settings, err := database.LoadSettings(s.db)
	if err != nil {
		s.fail(c, err, "")
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (s *Server) saveSettings(c *gin.Context) {
	var in models.WhatsAppSettings
	if err := c.ShouldBindJSON(&in); err != nil {
		detail(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := database.SaveSettings(s.db, in); err != nil {
		s.fail(c, err, "")
		return
	}
	s.getSettings(c)
}

func (s *Server) testConnection(c *gin.Context) {
	settings, err := database.LoadSettings(s.db)
	if err != nil {
		s.fail(c, err, "")
		return
	}
	if !settings.IsConfigured {
		detail(c, http.StatusBadRequest, "WhatsApp API is not configured")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Connection successful"})
}

// --- Media ---

func (s *Server) uploadMedia(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		detail(c, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		detail(c, http.StatusBadRequest, err.Error())
		return
	}
	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
	}

	media := database.Media{
		ID:       uuid.NewString(),
		Filename: header.Filename,
		MimeType: mimeType,
		Data:     data,
	}
	if err := s.db.Create(&media).Error; err != nil {
		s.fail(c, err, "")
		return
	}

	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	c.JSON(http.StatusOK, models.MediaUpload{
		ID:  media.ID,
		URL: scheme + "://" + c.Request.Host + "/media/" + media.ID,
	})
}

func (s *Server) getMedia(c *gin.Context) {
	var media database.Media
	if err := s.db.First(&media, "id = ?", c.Param("id")).Error; err != nil {
		s.fail(c, err, "Media not found")
		return
	}
	c.Data(http.StatusOK, media.MimeType, media.Data)
}
