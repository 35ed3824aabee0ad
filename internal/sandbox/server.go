// Package sandbox is a local stand-in for the marketing backend. It serves the
// same REST contract as the real service over a gorm-managed database.
package sandbox

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"whatsapp-console/internal/middleware"
	"whatsapp-console/internal/models"
)

const maxUploadSize = 16 << 20

type Server struct {
	db     *gorm.DB
	logger *zap.Logger
	now    func() time.Time
}

func NewServer(db *gorm.DB, logger *zap.Logger) *Server {
	return &Server{db: db, logger: logger.Named("sandbox"), now: time.Now}
}

// Router registers every backend route.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.Logger(s.logger),
		middleware.Recovery(s.logger),
		middleware.RequestSizeLimit(maxUploadSize),
	)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	contacts := r.Group("/contacts")
	{
		contacts.GET("", s.listContacts)
		contacts.POST("", s.createContact)
		contacts.POST("/import", s.importContacts)
		contacts.GET("/:id", s.getContact)
		contacts.PUT("/:id", s.updateContact)
		contacts.DELETE("/:id", s.deleteContact)
	}

	templates := r.Group("/templates")
	{
		templates.GET("/meta", s.listTemplates)
		templates.POST("/create-meta", s.createTemplate)
	}

	campaigns := r.Group("/campaigns")
	{
		campaigns.GET("/", s.listCampaigns)
		campaigns.POST("/", s.createCampaign)
		campaigns.POST("/:id/run", s.runCampaign)
		campaigns.DELETE("/:id", s.deleteCampaign)
	}

	r.GET("/messages", s.listMessages)
	r.POST("/messages/send", s.sendMessage)
	r.GET("/messages/:contactId", s.conversationMessages)
	r.GET("/conversations", s.listConversations)
	r.POST("/conversations/:contactId/mark-read", s.markRead)

	r.GET("/settings/whatsapp", s.getSettings)
	r.PUT("/settings/whatsapp", s.saveSettings)
	r.GET("/settings/test", s.testConnection)

	r.POST("/media/upload", s.uploadMedia)
	r.GET("/media/:id", s.getMedia)

	r.GET("/webhook", s.verifyWebhook)
	r.POST("/webhook", s.handleWebhook)

	return r
}

// Seed inserts a demo template when the store has none.
func (s *Server) Seed() error {
	var count int64
	if err := s.db.Model(&models.Template{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	demo := models.Template{
		ID:       "tpl_welcome_offer",
		Name:     "welcome_offer",
		Category: "MARKETING",
		Language: "en_US",
		Status:   "APPROVED",
		Components: models.Components{
			models.HeaderComponent{Format: models.HeaderImage},
			models.BodyComponent{Text: "Hi {{1}}, enjoy {{2}} off your next order."},
			models.FooterComponent{Text: "Reply STOP to unsubscribe"},
			models.ButtonsComponent{Buttons: []models.Button{
				{Type: models.ButtonURL, Label: "Shop now", Target: "https://example.com/shop"},
				{Type: models.ButtonQuickReply, Label: "Not interested"},
			}},
		},
	}
	if err := s.db.Create(&demo).Error; err != nil {
		return err
	}
	s.logger.Info("seeded demo template", zap.String("name", demo.Name))
	return nil
}

func detail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": msg})
}

// fail answers a store error, mapping a missing record to 404.
func (s *Server) fail(c *gin.Context, err error, notFound string) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		detail(c, http.StatusNotFound, notFound)
		return
	}
	s.logger.Error("store error",
		zap.String("request_id", middleware.GetRequestID(c)),
		zap.String("path", c.FullPath()),
		zap.Error(err),
	)
	detail(c, http.StatusInternalServerError, err.Error())
}
