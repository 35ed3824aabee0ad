package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"whatsapp-console/internal/campaigns"
	"whatsapp-console/internal/models"
	"whatsapp-console/internal/templates"
	"whatsapp-console/internal/ws"
)

// --- Templates ---

func (s *Server) listTemplates(c *gin.Context) {
	if err := s.campaigns.Load(c.Request.Context()); err != nil {
		s.fail(c, err, "Failed to load templates")
		return
	}
	c.JSON(http.StatusOK, s.campaigns.Templates())
}

func (s *Server) createTemplate(c *gin.Context) {
	var form templates.DefinitionForm
	if err := c.ShouldBindJSON(&form); err != nil {
		badRequest(c, err)
		return
	}
	req, err := templates.BuildDefinition(form)
	if err != nil {
		s.fail(c, err, "Failed to create template")
		return
	}
	created, err := s.backend.CreateTemplate(c.Request.Context(), req)
	if err != nil {
		s.fail(c, err, "Failed to create template")
		return
	}
	s.notify(ws.LevelSuccess, "Template submitted for review")
	c.JSON(http.StatusCreated, created)
}

// templateVariables describes the inputs the campaign form shows for a template.
func (s *Server) templateVariables(c *gin.Context) {
	tmpl, err := s.template(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err, "Failed to load template")
		return
	}
	vars := templates.ForTemplate(tmpl)
	c.JSON(http.StatusOK, gin.H{
		"template_id":    tmpl.ID,
		"variables":      vars,
		"has_variables":  vars.Len() > 0,
		"requires_image": templates.RequiresImage(tmpl),
	})
}

// template looks id up in the loaded list, reloading once on a miss.
func (s *Server) template(ctx context.Context, id string) (models.Template, error) {
	if t, ok := s.campaigns.Template(id); ok {
		return t, nil
	}
	if err := s.campaigns.Load(ctx); err != nil {
		return models.Template{}, err
	}
	if t, ok := s.campaigns.Template(id); ok {
		return t, nil
	}
	return models.Template{}, campaigns.ErrUnknownTemplate
}

// --- Campaigns ---

func (s *Server) listCampaigns(c *gin.Context) {
	if err := s.campaigns.Load(c.Request.Context()); err != nil {
		s.fail(c, err, "Failed to load campaigns")
		return
	}
	c.JSON(http.StatusOK, s.campaigns.Campaigns())
}

func (s *Server) campaignStats(c *gin.Context) {
	if err := s.campaigns.Load(c.Request.Context()); err != nil {
		s.fail(c, err, "Failed to load campaigns")
		return
	}
	c.JSON(http.StatusOK, s.campaigns.Stats(s.now()))
}

// draft binds the campaign form and builds the draft it describes.
func (s *Server) draft(c *gin.Context) (*campaigns.Draft, bool) {
	var form campaigns.Form
	if err := c.ShouldBindJSON(&form); err != nil {
		badRequest(c, err)
		return nil, false
	}
	if form.TemplateID != "" {
		if _, err := s.template(c.Request.Context(), form.TemplateID); err != nil {
			s.fail(c, err, "Failed to load template")
			return nil, false
		}
	}
	d, err := s.campaigns.Draft(form)
	if err != nil {
		s.fail(c, err, "Invalid campaign")
		return nil, false
	}
	return d, true
}

// previewCampaign assembles the message without creating the campaign.
func (s *Server) previewCampaign(c *gin.Context) {
	d, ok := s.draft(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"preview":        d.Preview(),
		"variables":      d.Variables(),
		"requires_image": d.RequiresImage(),
		"components":     d.Components(),
	})
}

func (s *Server) createCampaign(c *gin.Context) {
	d, ok := s.draft(c)
	if !ok {
		return
	}
	created, err := s.campaigns.Create(c.Request.Context(), d)
	if err != nil {
		s.fail(c, err, "Failed to create campaign")
		return
	}
	s.notify(ws.LevelSuccess, "Campaign created successfully")
	if s.hub != nil {
		s.hub.NotifyCampaign(*created)
	}
	c.JSON(http.StatusCreated, created)
}

// runCampaign replays the stored run payload. The campaign list is reloaded
// when the id is unknown locally, and again after the run to pick up status.
func (s *Server) runCampaign(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	if _, ok := s.campaigns.Campaign(id); !ok {
		if err := s.campaigns.Load(ctx); err != nil {
			s.fail(c, err, "Failed to run campaign")
			return
		}
	}
	if err := s.campaigns.Run(ctx, id); err != nil {
		s.fail(c, err, "Failed to run campaign")
		return
	}
	s.notify(ws.LevelSuccess, "Campaign started successfully")

	if err := s.campaigns.Load(ctx); err == nil {
		if campaign, ok := s.campaigns.Campaign(id); ok && s.hub != nil {
			s.hub.NotifyCampaign(campaign)
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "Campaign started"})
}

func (s *Server) deleteCampaign(c *gin.Context) {
	if err := s.campaigns.Delete(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err, "Failed to delete campaign")
		return
	}
	s.notify(ws.LevelSuccess, "Campaign deleted successfully")
	c.JSON(http.StatusOK, gin.H{"status": "Campaign deleted"})
}
