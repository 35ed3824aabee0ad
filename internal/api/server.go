package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"whatsapp-console/internal/backend"
	"whatsapp-console/internal/campaigns"
	"whatsapp-console/internal/config"
	"whatsapp-console/internal/contacts"
	"whatsapp-console/internal/conversations"
	"whatsapp-console/internal/dashboard"
	"whatsapp-console/internal/middleware"
	"whatsapp-console/internal/models"
	"whatsapp-console/internal/templates"
	"whatsapp-console/internal/ws"
)

const maxRequestSize = 16 << 20

// Backend is everything the console needs from the marketing backend.
type Backend interface {
	campaigns.Backend
	contacts.Backend
	conversations.Backend
	dashboard.Backend

	CreateTemplate(ctx context.Context, req models.CreateTemplateRequest) (*models.Template, error)
	Settings(ctx context.Context) (*models.WhatsAppSettings, error)
	SaveSettings(ctx context.Context, settings models.WhatsAppSettings) (*models.WhatsAppSettings, error)
	TestConnection(ctx context.Context) error
	UploadMedia(ctx context.Context, filename string, file io.Reader) (*models.MediaUpload, error)
}

// Server is the console HTTP surface consumed by the browser.
type Server struct {
	backend       Backend
	contacts      *contacts.Manager
	campaigns     *campaigns.Manager
	conversations *conversations.Poller
	dashboard     *dashboard.Service
	hub           *ws.Hub
	origins       []string
	logger        *zap.Logger
	now           func() time.Time
}

// NewServer wires the page managers on top of b. hub may be nil, in which case
// notifications are only logged.
func NewServer(b Backend, hub *ws.Hub, cfg *config.Config, logger *zap.Logger) *Server {
	logger = logger.Named("api")
	return &Server{
		backend:       b,
		contacts:      contacts.NewManager(b, logger),
		campaigns:     campaigns.NewManager(b, logger),
		conversations: conversations.NewPoller(b, cfg.PollInterval, logger, nil),
		dashboard:     dashboard.NewService(b, logger),
		hub:           hub,
		origins:       cfg.AllowedOrigins,
		logger:        logger,
		now:           time.Now,
	}
}

func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.Logger(s.logger),
		middleware.Recovery(s.logger),
		middleware.CORS(s.origins),
		middleware.RequestSizeLimit(maxRequestSize),
	)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if s.hub != nil {
		r.GET("/ws", gin.WrapF(s.hub.ServeWs))
	}

	api := r.Group("/api")
	{
		api.GET("/dashboard", s.getDashboard)

		api.GET("/contacts", s.listContacts)
		api.POST("/contacts", s.createContact)
		api.GET("/contacts/export", s.exportContacts)
		api.POST("/contacts/import", s.importContacts)
		api.PUT("/contacts/:id", s.updateContact)
		api.DELETE("/contacts/:id", s.deleteContact)

		api.GET("/templates", s.listTemplates)
		api.POST("/templates", s.createTemplate)
		api.GET("/templates/:id/variables", s.templateVariables)

		api.GET("/campaigns", s.listCampaigns)
		api.POST("/campaigns", s.createCampaign)
		api.GET("/campaigns/stats", s.campaignStats)
		api.POST("/campaigns/preview", s.previewCampaign)
		api.POST("/campaigns/:id/run", s.runCampaign)
		api.DELETE("/campaigns/:id", s.deleteCampaign)

		api.GET("/conversations", s.listConversations)
		api.POST("/conversations/:contactId/start", s.startConversation)
		api.GET("/conversations/:contactId/messages", s.conversationMessages)
		api.POST("/conversations/:contactId/read", s.markRead)
		api.GET("/messages", s.listMessages)
		api.POST("/messages/send", s.sendMessage)

		api.GET("/settings/whatsapp", s.getSettings)
		api.PUT("/settings/whatsapp", s.saveSettings)
		api.GET("/settings/test", s.testConnection)

		api.POST("/media/upload", s.uploadMedia)
	}
	return r
}

func (s *Server) notify(level, message string) {
	if s.hub != nil {
		s.hub.Notify(level, message)
	}
}

// statusFor maps an error of the page managers or the backend client to an
// HTTP status and the reason shown to the user.
func statusFor(err error) (int, string) {
	var apiErr *backend.APIError
	switch {
	case errors.Is(err, campaigns.ErrNotFound),
		errors.Is(err, campaigns.ErrUnknownTemplate),
		errors.Is(err, backend.ErrNotFound):
		reason := err.Error()
		if errors.As(err, &apiErr) {
			reason = apiErr.Detail()
		}
		return http.StatusNotFound, reason
	case errors.Is(err, campaigns.ErrNoRunPayload):
		return http.StatusConflict, err.Error()
	case errors.Is(err, campaigns.ErrTemplateRequired),
		errors.Is(err, templates.ErrUnknownVariable),
		errors.Is(err, templates.ErrNameRequired),
		errors.Is(err, templates.ErrBodyRequired),
		errors.Is(err, templates.ErrTooManyButtons),
		errors.Is(err, contacts.ErrInvalidCSV),
		errors.Is(err, conversations.ErrEmptyMessage),
		errors.Is(err, conversations.ErrNoSelection):
		return http.StatusBadRequest, err.Error()
	case errors.As(err, &apiErr):
		if apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
			return apiErr.StatusCode, apiErr.Detail()
		}
		return http.StatusBadGateway, apiErr.Detail()
	default:
		return http.StatusInternalServerError, err.Error()
	}
}

// fail answers with {"error": "<action>: <reason>"} and pushes the same text
// to the connected consoles.
func (s *Server) fail(c *gin.Context, err error, action string) {
	status, reason := statusFor(err)
	message := action + ": " + reason

	log := s.logger.Warn
	if status >= http.StatusInternalServerError {
		log = s.logger.Error
	}
	log(action,
		zap.String("request_id", middleware.GetRequestID(c)),
		zap.Int("status", status),
		zap.Error(err),
	)
	_ = c.Error(err)

	s.notify(ws.LevelError, message)
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
