package campaigns

import (
	"time"

	"whatsapp-console/internal/models"
	"whatsapp-console/internal/templates"
)

// Form is the campaign creation form as submitted by the browser.
type Form struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	TemplateID  string            `json:"template_id"`
	Variables   map[string]string `json:"variables"`
	MediaURL    string            `json:"media_url"`
	ContactIDs  []string          `json:"contact_ids"`
	ScheduledAt *time.Time        `json:"scheduled_at"`
	CreatedBy   string            `json:"created_by"`
}

// Draft is the state of the campaign creation form.
type Draft struct {
	Name        string
	Description string
	ContactIDs  []string
	ScheduledAt *time.Time
	CreatedBy   string

	template      models.Template
	vars          templates.Variables
	requiresImage bool
	mediaURL      string
}

// SelectTemplate switches the draft to t. The variable mapping is rebuilt from
// the new BODY text; values entered for the previous template are dropped.
func (d *Draft) SelectTemplate(t models.Template) {
	d.template = t
	d.vars = templates.ForTemplate(t)
	d.requiresImage = templates.RequiresImage(t)
}

func (d *Draft) Template() models.Template {
	return d.template
}

func (d *Draft) Variables() templates.Variables {
	return d.vars
}

// HasVariables reports whether the form shows the variable inputs.
func (d *Draft) HasVariables() bool {
	return d.vars.Len() > 0
}

func (d *Draft) SetVariable(key, value string) error {
	return d.vars.Set(key, value)
}

// RequiresImage reports whether the form asks for a header image upload.
func (d *Draft) RequiresImage() bool {
	return d.requiresImage
}

// AttachMedia records the URL returned by the media upload.
func (d *Draft) AttachMedia(url string) {
	d.mediaURL = url
}

func (d *Draft) MediaURL() string {
	return d.mediaURL
}

// Components assembles the send components for the current form state.
func (d *Draft) Components() []models.SendComponent {
	return templates.Assemble(d.template, d.vars, d.mediaURL)
}

// Preview renders the BODY text with the current variable values.
func (d *Draft) Preview() string {
	return templates.Preview(d.template, d.vars)
}

// Request builds the create-campaign request. The run payload is frozen here and
// later replayed verbatim by Manager.Run. A missing image upload does not block.
func (d *Draft) Request() (models.CreateCampaignRequest, error) {
	if d.template.ID == "" {
		return models.CreateCampaignRequest{}, ErrTemplateRequired
	}

	language := d.template.Language
	if language == "" {
		language = "en_US"
	}
	contactIDs := append([]string{}, d.ContactIDs...)
	components := d.Components()

	return models.CreateCampaignRequest{
		Name:         d.Name,
		Description:  d.Description,
		TemplateID:   d.template.ID,
		TemplateName: d.template.Name,
		Language:     language,
		Components:   components,
		ContactIDs:   contactIDs,
		ScheduledAt:  d.ScheduledAt,
		CreatedBy:    d.CreatedBy,
		RunPayload: models.RunPayload{
			TemplateName: d.template.Name,
			Language:     language,
			Components:   components,
			ContactIDs:   contactIDs,
		},
	}, nil
}
