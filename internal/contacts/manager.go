package contacts

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"go.uber.org/zap"

	"whatsapp-console/internal/models"
)

// Backend is the subset of the backend client used by the contacts page.
type Backend interface {
	Contacts(ctx context.Context) ([]models.Contact, error)
	CreateContact(ctx context.Context, contact models.Contact) (*models.Contact, error)
	UpdateContact(ctx context.Context, id string, contact models.Contact) (*models.Contact, error)
	DeleteContact(ctx context.Context, id string) error
	ImportContacts(ctx context.Context, filename string, csv io.Reader) (*models.ImportResult, error)
}

// Form is the create/edit contact form.
type Form struct {
	Name  string   `json:"name" binding:"required"`
	Phone string   `json:"phone" binding:"required"`
	Email string   `json:"email"`
	Tags  []string `json:"tags"`
}

// Manager keeps the contact list of the console in sync with the backend.
type Manager struct {
	backend Backend
	logger  *zap.Logger

	mu       sync.RWMutex
	contacts []models.Contact
}

func NewManager(b Backend, logger *zap.Logger) *Manager {
	return &Manager{backend: b, logger: logger.Named("contacts")}
}

func (m *Manager) Load(ctx context.Context) error {
	contacts, err := m.backend.Contacts(ctx)
	if err != nil {
		return fmt.Errorf("load contacts: %w", err)
	}
	m.mu.Lock()
	m.contacts = contacts
	m.mu.Unlock()
	return nil
}

func (m *Manager) Contacts() []models.Contact {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.Contact{}, m.contacts...)
}

// Create adds an active contact and prepends it to the list.
func (m *Manager) Create(ctx context.Context, form Form) (*models.Contact, error) {
	created, err := m.backend.CreateContact(ctx, models.Contact{
		Name:         strings.TrimSpace(form.Name),
		Phone:        strings.TrimSpace(form.Phone),
		Email:        strings.TrimSpace(form.Email),
		Tags:         form.Tags,
		Status:       models.ContactActive,
		CustomFields: map[string]any{},
	})
	if err != nil {
		return nil, fmt.Errorf("create contact: %w", err)
	}

	m.mu.Lock()
	m.contacts = append([]models.Contact{*created}, m.contacts...)
	m.mu.Unlock()
	return created, nil
}

// Update edits name, phone and email and replaces the local copy.
func (m *Manager) Update(ctx context.Context, id string, form Form) (*models.Contact, error) {
	updated, err := m.backend.UpdateContact(ctx, id, models.Contact{
		Name:  strings.TrimSpace(form.Name),
		Phone: strings.TrimSpace(form.Phone),
		Email: strings.TrimSpace(form.Email),
		Tags:  form.Tags,
	})
	if err != nil {
		return nil, fmt.Errorf("update contact %s: %w", id, err)
	}

	m.mu.Lock()
	for i := range m.contacts {
		if m.contacts[i].ID == updated.ID {
			m.contacts[i] = *updated
			break
		}
	}
	m.mu.Unlock()
	return updated, nil
}

func (m *Manager) Delete(ctx context.Context, id string) error {
	if err := m.backend.DeleteContact(ctx, id); err != nil {
		return fmt.Errorf("delete contact %s: %w", id, err)
	}

	m.mu.Lock()
	for i, c := range m.contacts {
		if c.ID == id {
			m.contacts = append(m.contacts[:i:i], m.contacts[i+1:]...)
			break
		}
	}
	m.mu.Unlock()
	return nil
}

// Import validates the file locally, uploads it and prepends the imported contacts.
func (m *Manager) Import(ctx context.Context, filename string, file io.Reader) (*models.ImportResult, error) {
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filename, err)
	}
	rows, err := ValidateCSV(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	result, err := m.backend.ImportContacts(ctx, filename, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("import contacts: %w", err)
	}

	m.mu.Lock()
	m.contacts = append(append([]models.Contact{}, result.Imported...), m.contacts...)
	m.mu.Unlock()

	m.logger.Info("contacts imported",
		zap.String("file", filename),
		zap.Int("rows", rows),
		zap.Int("imported", len(result.Imported)),
		zap.Int("skipped", result.Skipped),
	)
	return result, nil
}

// Filter matches query against name and email case-insensitively and against
// phone as a substring. An empty status or "all" keeps every status.
func (m *Manager) Filter(query, status string) []models.Contact {
	return Filter(m.Contacts(), query, status)
}

func Filter(contacts []models.Contact, query, status string) []models.Contact {
	query = strings.TrimSpace(query)
	lower := strings.ToLower(query)

	out := make([]models.Contact, 0, len(contacts))
	for _, c := range contacts {
		if query != "" &&
			!strings.Contains(strings.ToLower(c.Name), lower) &&
			!strings.Contains(c.Phone, query) &&
			!strings.Contains(strings.ToLower(c.Email), lower) {
			continue
		}
		if status != "" && status != "all" && c.Status != status {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Export writes the local list as CSV.
func (m *Manager) Export(w io.Writer) error {
	return WriteCSV(w, m.Contacts())
}
