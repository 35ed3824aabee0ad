package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"whatsapp-console/internal/models"
)

func (s *Server) listConversations(c *gin.Context) {
	conversations, err := s.conversations.Load(c.Request.Context())
	if err != nil {
		s.fail(c, err, "Failed to load conversations")
		return
	}
	c.JSON(http.StatusOK, conversations)
}

// startConversation returns the contact's conversation, or a placeholder when
// nothing has been exchanged yet.
func (s *Server) startConversation(c *gin.Context) {
	ctx := c.Request.Context()
	if _, err := s.conversations.Load(ctx); err != nil {
		s.fail(c, err, "Failed to start conversation")
		return
	}
	conv, err := s.conversations.StartWith(ctx, c.Param("contactId"))
	if err != nil {
		s.fail(c, err, "Failed to start conversation")
		return
	}
	c.JSON(http.StatusOK, conv)
}

func (s *Server) conversationMessages(c *gin.Context) {
	messages, err := s.backend.ConversationMessages(c.Request.Context(), c.Param("contactId"))
	if err != nil {
		s.fail(c, err, "Failed to fetch messages")
		return
	}
	if messages == nil {
		messages = []models.Message{}
	}
	c.JSON(http.StatusOK, messages)
}

func (s *Server) markRead(c *gin.Context) {
	if err := s.backend.MarkRead(c.Request.Context(), c.Param("contactId")); err != nil {
		s.fail(c, err, "Failed to mark conversation as read")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "Conversation marked as read"})
}

func (s *Server) listMessages(c *gin.Context) {
	messages, err := s.backend.Messages(c.Request.Context())
	if err != nil {
		s.fail(c, err, "Failed to load messages")
		return
	}
	if messages == nil {
		messages = []models.Message{}
	}
	c.JSON(http.StatusOK, messages)
}

func (s *Server) sendMessage(c *gin.Context) {
	var req models.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	msg, err := s.conversations.SendTo(c.Request.Context(), req.ContactID, req.Content)
	if err != nil {
		s.fail(c, err, "Failed to send message")
		return
	}
	c.JSON(http.StatusOK, msg)
}
