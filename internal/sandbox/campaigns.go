package sandbox

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"whatsapp-console/internal/models"
)

// --- Templates ---

func (s *Server) listTemplates(c *gin.Context) {
	templates := []models.Template{}
	if err := s.db.Order("name").Find(&templates).Error; err != nil {
		s.fail(c, err, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": templates})
}

// createTemplate stores a submitted template. Review is simulated: every new
// template waits in PENDING.
func (s *Server) createTemplate(c *gin.Context) {
	var req models.CreateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		detail(c, http.StatusBadRequest, err.Error())
		return
	}
	if req.Name == "" || req.Category == "" || len(req.Components) == 0 {
		detail(c, http.StatusBadRequest, "name, category and components are required")
		return
	}
	if req.Language == "" {
		req.Language = "en_US"
	}

	var count int64
	if err := s.db.Model(&models.Template{}).
		Where("name = ? AND language = ?", req.Name, req.Language).
		Count(&count).Error; err != nil {
		s.fail(c, err, "")
		return
	}
	if count > 0 {
		detail(c, http.StatusConflict, fmt.Sprintf("Template %s (%s) already exists", req.Name, req.Language))
		return
	}

	tpl := models.Template{
		ID:         uuid.NewString(),
		Name:       req.Name,
		Category:   strings.ToUpper(req.Category),
		Language:   req.Language,
		Status:     "PENDING",
		Components: req.Components,
	}
	if err := s.db.Create(&tpl).Error; err != nil {
		s.fail(c, err, "")
		return
	}
	c.JSON(http.StatusOK, tpl)
}

// --- Campaigns ---

func (s *Server) listCampaigns(c *gin.Context) {
	campaigns := []models.Campaign{}
	if err := s.db.Order("created_at DESC").Find(&campaigns).Error; err != nil {
		s.fail(c, err, "")
		return
	}
	c.JSON(http.StatusOK, campaigns)
}

func (s *Server) createCampaign(c *gin.Context) {
	var req models.CreateCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		detail(c, http.StatusBadRequest, err.Error())
		return
	}
	if req.Name == "" || req.TemplateID == "" {
		detail(c, http.StatusBadRequest, "name and template_id are required")
		return
	}

	payload := req.RunPayload
	if payload.TemplateName == "" {
		payload = models.RunPayload{
			TemplateName: req.TemplateName,
			Language:     req.Language,
			Components:   req.Components,
			ContactIDs:   req.ContactIDs,
		}
	}

	campaign := models.Campaign{
		ID:           uuid.NewString(),
		Name:         req.Name,
		Description:  req.Description,
		TemplateID:   req.TemplateID,
		TemplateName: req.TemplateName,
		Language:     req.Language,
		ContactIDs:   req.ContactIDs,
		RunPayload:   &payload,
		Status:       models.CampaignDraft,
		ScheduledAt:  req.ScheduledAt,
		CreatedBy:    req.CreatedBy,
		Stats:        models.CampaignStats{Total: len(req.ContactIDs)},
	}
	if campaign.ScheduledAt != nil {
		campaign.Status = models.CampaignScheduled
	}
	if err := s.db.Create(&campaign).Error; err != nil {
		s.fail(c, err, "")
		return
	}
	c.JSON(http.StatusOK, campaign)
}

// runCampaign sends the template to every target contact. The request body
// overrides the stored run payload when present.
func (s *Server) runCampaign(c *gin.Context) {
	var campaign models.Campaign
	if err := s.db.First(&campaign, "id = ?", c.Param("id")).Error; err != nil {
		s.fail(c, err, "Campaign not found")
		return
	}

	var payload models.RunPayload
	if err := c.ShouldBindJSON(&payload); err != nil && !errors.Is(err, io.EOF) {
		detail(c, http.StatusBadRequest, err.Error())
		return
	}
	if payload.TemplateName == "" {
		if campaign.RunPayload == nil {
			detail(c, http.StatusBadRequest, "Campaign has no run payload")
			return
		}
		payload = *campaign.RunPayload
	}

	var sent, failed int
	err := s.db.Transaction(func(tx *gorm.DB) error {
		now := s.now()
		for _, contactID := range payload.ContactIDs {
			var contact models.Contact
			if err := tx.First(&contact, "id = ?", contactID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					failed++
					continue
				}
				return err
			}
			msg := models.Message{
				ID:           uuid.NewString(),
				ContactID:    contact.ID,
				CampaignID:   campaign.ID,
				Type:         models.MessageTemplate,
				Content:      "Template: " + payload.TemplateName,
				Direction:    models.DirectionOutbound,
				Status:       models.MessageSent,
				Timestamp:    now,
				TemplateName: payload.TemplateName,
				MediaURL:     headerImage(payload.Components),
				IsRead:       true,
			}
			if err := tx.Create(&msg).Error; err != nil {
				return err
			}
			if err := tx.Model(&contact).Update("last_message_at", now).Error; err != nil {
				return err
			}
			sent++
		}

		campaign.Stats.Total = len(payload.ContactIDs)
		campaign.Stats.Sent = sent
		campaign.Stats.Failed = failed
		campaign.Status = models.CampaignCompleted
		if sent == 0 && failed > 0 {
			campaign.Status = models.CampaignFailed
		}
		return tx.Save(&campaign).Error
	})
	if err != nil {
		s.fail(c, err, "")
		return
	}

	s.logger.Info("campaign executed",
		zap.String("campaign_id", campaign.ID),
		zap.String("template", payload.TemplateName),
		zap.Int("sent", sent),
		zap.Int("failed", failed),
	)
	c.JSON(http.StatusOK, gin.H{"message": "Campaign executed", "sent": sent, "failed": failed})
}

func (s *Server) deleteCampaign(c *gin.Context) {
	res := s.db.Delete(&models.Campaign{}, "id = ?", c.Param("id"))
	if res.Error != nil {
		s.fail(c, res.Error, "")
		return
	}
	if res.RowsAffected == 0 {
		detail(c, http.StatusNotFound, "Campaign not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Campaign deleted"})
}

func headerImage(components []models.SendComponent) string {
	for _, comp := range components {
		if comp.Type != models.SendHeader {
			continue
		}
		for _, p := range comp.Parameters {
			if p.Type == models.ParameterImage && p.Image != nil {
				return p.Image.Link
			}
		}
	}
	return ""
}
