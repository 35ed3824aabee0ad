package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"whatsapp-console/internal/models"
	"whatsapp-console/internal/ws"
)

func (s *Server) getDashboard(c *gin.Context) {
	stats, err := s.dashboard.Stats(c.Request.Context())
	if err != nil {
		s.fail(c, err, "Failed to load dashboard")
		return
	}
	c.JSON(http.StatusOK, stats)
}

// --- Settings ---

func (s *Server) getSettings(c *gin.Context) {
	settings, err := s.backend.Settings(c.Request.Context())
	if err != nil {
		s.fail(c, err, "Failed to load settings")
		return
	}
	c.JSON(http.StatusOK, settings)
}

// saveSettings stores the credentials; isConfigured is recomputed from them.
func (s *Server) saveSettings(c *gin.Context) {
	var in models.WhatsAppSettings
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	in.IsConfigured = in.Configured()

	saved, err := s.backend.SaveSettings(c.Request.Context(), in)
	if err != nil {
		s.fail(c, err, "Failed to save settings")
		return
	}
	s.notify(ws.LevelSuccess, "Settings saved successfully")
	c.JSON(http.StatusOK, saved)
}

func (s *Server) testConnection(c *gin.Context) {
	if err := s.backend.TestConnection(c.Request.Context()); err != nil {
		s.fail(c, err, "Connection test failed")
		return
	}
	s.notify(ws.LevelSuccess, "Connection successful")
	c.JSON(http.StatusOK, gin.H{"status": "Connection successful"})
}

// --- Media ---

// uploadMedia forwards the "file" field to the backend and returns {id, url}.
func (s *Server) uploadMedia(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}
	defer file.Close()

	upload, err := s.backend.UploadMedia(c.Request.Context(), header.Filename, file)
	if err != nil {
		s.fail(c, err, "Failed to upload media")
		return
	}
	c.JSON(http.StatusOK, upload)
}
