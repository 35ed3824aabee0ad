package templates

import (
	"strconv"

	"whatsapp-console/internal/models"
)

// Assemble builds the Cloud API components array for a template message.
//
// Order is fixed: an image header (only when the template declares an IMAGE
// header and mediaURL is non-empty), exactly one body carrying the variable
// values verbatim, then one button component per template button.
// The template is not validated; callers check it has an id first.
func Assemble(t models.Template, vars Variables, mediaURL string) []models.SendComponent {
	components := make([]models.SendComponent, 0, 2+len(t.Buttons()))

	if RequiresImage(t) && mediaURL != "" {
		components = append(components, models.SendComponent{
			Type: models.SendHeader,
			Parameters: []models.SendParameter{{
				Type:  models.ParameterImage,
				Image: &models.MediaLink{Link: mediaURL},
			}},
		})
	}

	body := models.SendComponent{
		Type:       models.SendBody,
		Parameters: make([]models.SendParameter, 0, vars.Len()),
	}
	for _, value := range vars.Values() {
		body.Parameters = append(body.Parameters, models.SendParameter{Type: models.ParameterText, Text: value})
	}
	components = append(components, body)

	for i, btn := range t.Buttons() {
		components = append(components, buttonComponent(i, btn))
	}

	return components
}

func buttonComponent(index int, btn models.Button) models.SendComponent {
	c := models.SendComponent{
		Type:       models.SendButton,
		Index:      &index,
		Parameters: []models.SendParameter{},
	}

	switch btn.Type {
	case models.ButtonURL:
		c.SubType = models.SubTypeURL
	case models.ButtonPhoneNumber:
		c.SubType = models.SubTypePhoneNumber
		c.Parameters = append(c.Parameters, payload(btn.Label, "phone_", index))
	default:
		c.SubType = models.SubTypeQuickReply
		c.Parameters = append(c.Parameters, payload(btn.Label, "reply_", index))
	}
	return c
}

func payload(label, fallbackPrefix string, index int) models.SendParameter {
	if label == "" {
		label = fallbackPrefix + strconv.Itoa(index)
	}
	return models.SendParameter{Type: models.ParameterPayload, Payload: label}
}
