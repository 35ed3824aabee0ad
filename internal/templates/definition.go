package templates

import (
	"errors"
	"fmt"
	"strings"

	"whatsapp-console/internal/models"
)

const maxButtons = 10

var (
	ErrNameRequired   = errors.New("template name is required")
	ErrBodyRequired   = errors.New("template body is required")
	ErrTooManyButtons = fmt.Errorf("a template may declare at most %d buttons", maxButtons)
)

// DefinitionForm is the template-creation form of the console.
type DefinitionForm struct {
	Name       string         `json:"name"`
	Category   string         `json:"category"`
	Language   string         `json:"language"`
	HeaderType string         `json:"type"` // "text" or "image"
	Header     string         `json:"header"`
	MediaURL   string         `json:"media_url"`
	Body       string         `json:"body"`
	Footer     string         `json:"footer"`
	Buttons    []ButtonFields `json:"buttons"`
}

type ButtonFields struct {
	Type        string `json:"type"`
	Text        string `json:"text"`
	URL         string `json:"url,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
}

// BuildDefinition turns the form into a create-template request. Header, footer
// and buttons are only included when the form fills them in.
func BuildDefinition(form DefinitionForm) (models.CreateTemplateRequest, error) {
	name := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(form.Name)), " ", "_")
	if name == "" {
		return models.CreateTemplateRequest{}, ErrNameRequired
	}
	if strings.TrimSpace(form.Body) == "" {
		return models.CreateTemplateRequest{}, ErrBodyRequired
	}
	if len(form.Buttons) > maxButtons {
		return models.CreateTemplateRequest{}, ErrTooManyButtons
	}

	req := models.CreateTemplateRequest{
		Name:     name,
		Category: defaultString(strings.ToUpper(form.Category), "MARKETING"),
		Language: defaultString(form.Language, "en_US"),
	}

	if strings.EqualFold(form.HeaderType, "image") {
		if form.MediaURL != "" {
			req.Components = append(req.Components, models.HeaderComponent{Format: models.HeaderImage, Link: form.MediaURL})
		}
	} else if form.Header != "" {
		req.Components = append(req.Components, models.HeaderComponent{Format: models.HeaderText, Text: form.Header})
	}

	req.Components = append(req.Components, models.BodyComponent{Text: form.Body})

	if form.Footer != "" {
		req.Components = append(req.Components, models.FooterComponent{Text: form.Footer})
	}

	if len(form.Buttons) > 0 {
		buttons := make([]models.Button, 0, len(form.Buttons))
		for _, b := range form.Buttons {
			btn := models.Button{Type: models.ButtonType(strings.ToUpper(b.Type)), Label: b.Text}
			switch btn.Type {
			case models.ButtonURL:
				btn.Target = b.URL
			case models.ButtonPhoneNumber:
				btn.Target = b.PhoneNumber
			case models.ButtonQuickReply:
			default:
				return models.CreateTemplateRequest{}, fmt.Errorf("unsupported button type %q", b.Type)
			}
			buttons = append(buttons, btn)
		}
		req.Components = append(req.Components, models.ButtonsComponent{Buttons: buttons})
	}

	return req, nil
}

func defaultString(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
