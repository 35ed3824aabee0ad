package api

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"whatsapp-console/internal/contacts"
	"whatsapp-console/internal/ws"
)

// listContacts reloads the contact list and applies the ?q= and ?status= filters.
func (s *Server) listContacts(c *gin.Context) {
	if err := s.contacts.Load(c.Request.Context()); err != nil {
		s.fail(c, err, "Failed to load contacts")
		return
	}
	c.JSON(http.StatusOK, s.contacts.Filter(c.Query("q"), c.Query("status")))
}

func (s *Server) createContact(c *gin.Context) {
	var form contacts.Form
	if err := c.ShouldBindJSON(&form); err != nil {
		badRequest(c, err)
		return
	}
	created, err := s.contacts.Create(c.Request.Context(), form)
	if err != nil {
		s.fail(c, err, "Failed to create contact")
		return
	}
	s.notify(ws.LevelSuccess, "Contact created successfully")
	c.JSON(http.StatusCreated, created)
}

func (s *Server) updateContact(c *gin.Context) {
	var form contacts.Form
	if err := c.ShouldBindJSON(&form); err != nil {
		badRequest(c, err)
		return
	}
	updated, err := s.contacts.Update(c.Request.Context(), c.Param("id"), form)
	if err != nil {
		s.fail(c, err, "Failed to update contact")
		return
	}
	s.notify(ws.LevelSuccess, "Contact updated successfully")
	c.JSON(http.StatusOK, updated)
}

func (s *Server) deleteContact(c *gin.Context) {
	if err := s.contacts.Delete(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err, "Failed to delete contact")
		return
	}
	s.notify(ws.LevelSuccess, "Contact deleted successfully")
	c.JSON(http.StatusOK, gin.H{"status": "Contact deleted"})
}

func (s *Server) importContacts(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}
	defer file.Close()

	result, err := s.contacts.Import(c.Request.Context(), header.Filename, file)
	if err != nil {
		s.fail(c, err, "Failed to import contacts")
		return
	}
	s.notify(ws.LevelSuccess, fmt.Sprintf("Imported %d contacts", len(result.Imported)))
	c.JSON(http.StatusOK, result)
}

// exportContacts downloads the current contact list as contacts.csv.
func (s *Server) exportContacts(c *gin.Context) {
	if err := s.contacts.Load(c.Request.Context()); err != nil {
		s.fail(c, err, "Failed to export contacts")
		return
	}
	var buf bytes.Buffer
	if err := s.contacts.Export(&buf); err != nil {
		s.fail(c, err, "Failed to export contacts")
		return
	}
	c.Header("Content-Disposition", `attachment; filename="contacts.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}
