package sandbox

import (
	"encoding/csv"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"whatsapp-console/internal/models"
)

func (s *Server) listContacts(c *gin.Context) {
	contacts := []models.Contact{}
	if err := s.db.Order("created_at DESC").Find(&contacts).Error; err != nil {
		s.fail(c, err, "")
		return
	}
	c.JSON(http.StatusOK, contacts)
}

func (s *Server) getContact(c *gin.Context) {
	var contact models.Contact
	if err := s.db.First(&contact, "id = ?", c.Param("id")).Error; err != nil {
		s.fail(c, err, "Contact not found")
		return
	}
	c.JSON(http.StatusOK, contact)
}

func (s *Server) phoneTaken(phone, exceptID string) (bool, error) {
	var count int64
	err := s.db.Model(&models.Contact{}).
		Where("phone = ? AND id <> ?", phone, exceptID).
		Count(&count).Error
	return count > 0, err
}

func (s *Server) createContact(c *gin.Context) {
	var in models.Contact
	if err := c.ShouldBindJSON(&in); err != nil {
		detail(c, http.StatusBadRequest, err.Error())
		return
	}
	in.Name = strings.TrimSpace(in.Name)
	in.Phone = strings.TrimSpace(in.Phone)
	if in.Name == "" || in.Phone == "" {
		detail(c, http.StatusBadRequest, "name and phone are required")
		return
	}
	taken, err := s.phoneTaken(in.Phone, "")
	if err != nil {
		s.fail(c, err, "")
		return
	}
	if taken {
		detail(c, http.StatusConflict, "Contact with this phone already exists")
		return
	}

	in.ID = uuid.NewString()
	if in.Status == "" {
		in.Status = models.ContactActive
	}
	in.LastMessageAt = nil
	if err := s.db.Create(&in).Error; err != nil {
		s.fail(c, err, "")
		return
	}
	c.JSON(http.StatusCreated, in)
}

func (s *Server) updateContact(c *gin.Context) {
	var contact models.Contact
	if err := s.db.First(&contact, "id = ?", c.Param("id")).Error; err != nil {
		s.fail(c, err, "Contact not found")
		return
	}

	var in models.Contact
	if err := c.ShouldBindJSON(&in); err != nil {
		detail(c, http.StatusBadRequest, err.Error())
		return
	}
	if in.Phone != "" && in.Phone != contact.Phone {
		taken, err := s.phoneTaken(in.Phone, contact.ID)
		if err != nil {
			s.fail(c, err, "")
			return
		}
		if taken {
			detail(c, http.StatusConflict, "Contact with this phone already exists")
			return
		}
		contact.Phone = in.Phone
	}
	if in.Name != "" {
		contact.Name = in.Name
	}
	if in.Status != "" {
		contact.Status = in.Status
	}
	contact.Email = in.Email
	contact.Tags = in.Tags
	if in.CustomFields != nil {
		contact.CustomFields = in.CustomFields
	}

	if err := s.db.Save(&contact).Error; err != nil {
		s.fail(c, err, "")
		return
	}
	c.JSON(http.StatusOK, contact)
}

func (s *Server) deleteContact(c *gin.Context) {
	res := s.db.Delete(&models.Contact{}, "id = ?", c.Param("id"))
	if res.Error != nil {
		s.fail(c, res.Error, "")
		return
	}
	if res.RowsAffected == 0 {
		detail(c, http.StatusNotFound, "Contact not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Contact deleted"})
}

// importContacts creates one contact per CSV row. Rows without a name or phone
// and phones that already exist are skipped.
func (s *Server) importContacts(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		detail(c, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	rows, skipped, err := parseContactsCSV(file)
	if err != nil {
		detail(c, http.StatusBadRequest, err.Error())
		return
	}

	imported := []models.Contact{}
	seen := make(map[string]bool)
	for _, contact := range rows {
		if seen[contact.Phone] {
			skipped++
			continue
		}
		seen[contact.Phone] = true

		taken, err := s.phoneTaken(contact.Phone, "")
		if err != nil {
			s.fail(c, err, "")
			return
		}
		if taken {
			skipped++
			continue
		}
		contact.ID = uuid.NewString()
		if err := s.db.Create(&contact).Error; err != nil {
			s.fail(c, err, "")
			return
		}
		imported = append(imported, contact)
	}

	s.logger.Info("contacts imported",
		zap.String("file", header.Filename),
		zap.Int("imported", len(imported)),
		zap.Int("skipped", skipped),
	)
	c.JSON(http.StatusOK, models.ImportResult{Imported: imported, Skipped: skipped})
}

func parseContactsCSV(r io.Reader) ([]models.Contact, int, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	head, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, 0, errors.New("CSV file is empty")
		}
		return nil, 0, err
	}
	index := make(map[string]int, len(head))
	for i, h := range head {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		index[h] = i
	}
	if _, ok := index["name"]; !ok {
		return nil, 0, errors.New("CSV must contain name and phone columns")
	}
	if _, ok := index["phone"]; !ok {
		return nil, 0, errors.New("CSV must contain name and phone columns")
	}

	field := func(record []string, name string) string {
		i, ok := index[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var contacts []models.Contact
	skipped := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, err
		}

		contact := models.Contact{
			Name:   field(record, "name"),
			Phone:  field(record, "phone"),
			Email:  field(record, "email"),
			Status: models.ContactActive,
		}
		if contact.Name == "" || contact.Phone == "" {
			skipped++
			continue
		}
		for _, tag := range strings.Split(field(record, "tags"), ";") {
			if tag = strings.TrimSpace(tag); tag != "" {
				contact.Tags = append(contact.Tags, tag)
			}
		}
		contacts = append(contacts, contact)
	}
	return contacts, skipped, nil
}
