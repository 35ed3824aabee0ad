package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"go.uber.org/zap"

	"whatsapp-console/internal/models"
)

// --- Contacts ---

func (c *Client) Contacts(ctx context.Context) ([]models.Contact, error) {
	var contacts []models.Contact
	if err := c.sendRequest(ctx, http.MethodGet, "/contacts", nil, &contacts); err != nil {
		return nil, err
	}
	return contacts, nil
}

func (c *Client) Contact(ctx context.Context, id string) (*models.Contact, error) {
	var contact models.Contact
	if err := c.sendRequest(ctx, http.MethodGet, "/contacts/"+escape(id), nil, &contact); err != nil {
		return nil, err
	}
	return &contact, nil
}

func (c *Client) CreateContact(ctx context.Context, contact models.Contact) (*models.Contact, error) {
	var created models.Contact
	if err := c.sendRequest(ctx, http.MethodPost, "/contacts", contact, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) UpdateContact(ctx context.Context, id string, contact models.Contact) (*models.Contact, error) {
	var updated models.Contact
	if err := c.sendRequest(ctx, http.MethodPut, "/contacts/"+escape(id), contact, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (c *Client) DeleteContact(ctx context.Context, id string) error {
	return c.sendRequest(ctx, http.MethodDelete, "/contacts/"+escape(id), nil, nil)
}

// ImportContacts uploads a CSV file as the multipart field "file".
func (c *Client) ImportContacts(ctx context.Context, filename string, csv io.Reader) (*models.ImportResult, error) {
	var result models.ImportResult
	if err := c.sendMultipart(ctx, "/contacts/import", filename, csv, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// --- Templates ---

// Templates lists the approved templates. The backend wraps them in {"data": [...]}.
// A template that does not decode, such as one with a component kind the console
// does not support, is skipped with a warning.
func (c *Client) Templates(ctx context.Context) ([]models.Template, error) {
	var resp struct {
		Data []json.RawMessage `json:"data"`
	}
	if err := c.sendRequest(ctx, http.MethodGet, "/templates/meta", nil, &resp); err != nil {
		return nil, err
	}

	templates := make([]models.Template, 0, len(resp.Data))
	for i, raw := range resp.Data {
		var t models.Template
		if err := json.Unmarshal(raw, &t); err != nil {
			c.logger.Warn("skipping template",
				zap.Int("index", i),
				zap.String("id", t.ID),
				zap.String("name", t.Name),
				zap.Error(err),
			)
			continue
		}
		templates = append(templates, t)
	}
	return templates, nil
}

func (c *Client) CreateTemplate(ctx context.Context, req models.CreateTemplateRequest) (*models.Template, error) {
	var created models.Template
	if err := c.sendRequest(ctx, http.MethodPost, "/templates/create-meta", req, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// --- Campaigns ---

func (c *Client) Campaigns(ctx context.Context) ([]models.Campaign, error) {
	var campaigns []models.Campaign
	if err := c.sendRequest(ctx, http.MethodGet, "/campaigns/", nil, &campaigns); err != nil {
		return nil, err
	}
	return campaigns, nil
}

func (c *Client) CreateCampaign(ctx context.Context, req models.CreateCampaignRequest) (*models.Campaign, error) {
	var created models.Campaign
	if err := c.sendRequest(ctx, http.MethodPost, "/campaigns/", req, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) RunCampaign(ctx context.Context, id string, payload models.RunPayload) error {
	return c.sendRequest(ctx, http.MethodPost, "/campaigns/"+escape(id)+"/run", payload, nil)
}

func (c *Client) DeleteCampaign(ctx context.Context, id string) error {
	return c.sendRequest(ctx, http.MethodDelete, "/campaigns/"+escape(id), nil, nil)
}

// --- Messages and conversations ---

func (c *Client) Messages(ctx context.Context) ([]models.Message, error) {
	var messages []models.Message
	if err := c.sendRequest(ctx, http.MethodGet, "/messages", nil, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// ConversationMessages returns the messages exchanged with one contact.
func (c *Client) ConversationMessages(ctx context.Context, contactID string) ([]models.Message, error) {
	var messages []models.Message
	if err := c.sendRequest(ctx, http.MethodGet, "/messages/"+escape(contactID), nil, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

func (c *Client) SendMessage(ctx context.Context, req models.SendMessageRequest) (*models.Message, error) {
	var sent models.Message
	if err := c.sendRequest(ctx, http.MethodPost, "/messages/send", req, &sent); err != nil {
		return nil, err
	}
	return &sent, nil
}

func (c *Client) Conversations(ctx context.Context) ([]models.Conversation, error) {
	var conversations []models.Conversation
	if err := c.sendRequest(ctx, http.MethodGet, "/conversations", nil, &conversations); err != nil {
		return nil, err
	}
	return conversations, nil
}

func (c *Client) MarkRead(ctx context.Context, contactID string) error {
	return c.sendRequest(ctx, http.MethodPost, "/conversations/"+escape(contactID)+"/mark-read", nil, nil)
}

// --- Settings and media ---

func (c *Client) Settings(ctx context.Context) (*models.WhatsAppSettings, error) {
	var settings models.WhatsAppSettings
	if err := c.sendRequest(ctx, http.MethodGet, "/settings/whatsapp", nil, &settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

func (c *Client) SaveSettings(ctx context.Context, settings models.WhatsAppSettings) (*models.WhatsAppSettings, error) {
	var saved models.WhatsAppSettings
	if err := c.sendRequest(ctx, http.MethodPut, "/settings/whatsapp", settings, &saved); err != nil {
		return nil, err
	}
	return &saved, nil
}

// TestConnection asks the backend to verify its Cloud API credentials.
func (c *Client) TestConnection(ctx context.Context) error {
	return c.sendRequest(ctx, http.MethodGet, "/settings/test", nil, nil)
}

func (c *Client) UploadMedia(ctx context.Context, filename string, file io.Reader) (*models.MediaUpload, error) {
	var upload models.MediaUpload
	if err := c.sendMultipart(ctx, "/media/upload", filename, file, &upload); err != nil {
		return nil, err
	}
	return &upload, nil
}
