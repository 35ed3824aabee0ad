package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Component kinds as named by the WhatsApp template schema
type ComponentKind string

const (
	KindHeader  ComponentKind = "HEADER"
	KindBody    ComponentKind = "BODY"
	KindFooter  ComponentKind = "FOOTER"
	KindButtons ComponentKind = "BUTTONS"
)

// Header formats
type HeaderFormat string

const (
	HeaderText     HeaderFormat = "TEXT"
	HeaderImage    HeaderFormat = "IMAGE"
	HeaderVideo    HeaderFormat = "VIDEO"
	HeaderDocument HeaderFormat = "DOCUMENT"
)

// Button types
type ButtonType string

const (
	ButtonURL         ButtonType = "URL"
	ButtonQuickReply  ButtonType = "QUICK_REPLY"
	ButtonPhoneNumber ButtonType = "PHONE_NUMBER"
)

// Template represents an approved WhatsApp message template
type Template struct {
	ID         string     `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Name       string     `gorm:"type:varchar(255)" json:"name"`
	Category   string     `gorm:"type:varchar(100)" json:"category"`
	Language   string     `gorm:"type:varchar(50)" json:"language"`
	Status     string     `gorm:"type:varchar(50)" json:"status,omitempty"`
	Components Components `gorm:"serializer:json" json:"components"`
}

func (Template) TableName() string {
	return "templates"
}

// Header returns the template's HEADER component, if any.
func (t Template) Header() (HeaderComponent, bool) {
	for _, c := range t.Components {
		if h, ok := c.(HeaderComponent); ok {
			return h, true
		}
	}
	return HeaderComponent{}, false
}

// Body returns the template's BODY component, if any.
func (t Template) Body() (BodyComponent, bool) {
	for _, c := range t.Components {
		if b, ok := c.(BodyComponent); ok {
			return b, true
		}
	}
	return BodyComponent{}, false
}

// Buttons returns the buttons of the template's BUTTONS component in declared order.
func (t Template) Buttons() []Button {
	for _, c := range t.Components {
		if b, ok := c.(ButtonsComponent); ok {
			return b.Buttons
		}
	}
	return nil
}

// Component is one structural part of a template. The set of implementations
// is closed: HeaderComponent, BodyComponent, FooterComponent, ButtonsComponent.
type Component interface {
	Kind() ComponentKind
	isComponent()
}

type HeaderComponent struct {
	Format HeaderFormat
	Text   string
	// Link is the example media handle for non-text headers.
	Link string
}

type BodyComponent struct {
	Text string
}

type FooterComponent struct {
	Text string
}

type ButtonsComponent struct {
	Buttons []Button
}

func (HeaderComponent) Kind() ComponentKind  { return KindHeader }
func (BodyComponent) Kind() ComponentKind    { return KindBody }
func (FooterComponent) Kind() ComponentKind  { return KindFooter }
func (ButtonsComponent) Kind() ComponentKind { return KindButtons }

func (HeaderComponent) isComponent()  {}
func (BodyComponent) isComponent()    {}
func (FooterComponent) isComponent()  {}
func (ButtonsComponent) isComponent() {}

// Button is a single template button. Target is the URL of a URL button or the
// phone number of a PHONE_NUMBER button.
type Button struct {
	Type   ButtonType
	Label  string
	Target string
}

// wire shapes of the WhatsApp template schema

type headerExample struct {
	HeaderHandle []string `json:"header_handle,omitempty"`
}

type wireButton struct {
	Type        string `json:"type"`
	Text        string `json:"text,omitempty"`
	URL         string `json:"url,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
}

type wireComponent struct {
	Type    string         `json:"type"`
	Format  string         `json:"format,omitempty"`
	Text    string         `json:"text,omitempty"`
	Example *headerExample `json:"example,omitempty"`
	Buttons []wireButton   `json:"buttons,omitempty"`
}

func (h HeaderComponent) MarshalJSON() ([]byte, error) {
	w := wireComponent{Type: string(KindHeader), Format: string(h.Format), Text: h.Text}
	if h.Link != "" {
		w.Example = &headerExample{HeaderHandle: []string{h.Link}}
	}
	return json.Marshal(w)
}

func (b BodyComponent) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireComponent{Type: string(KindBody), Text: b.Text})
}

func (f FooterComponent) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireComponent{Type: string(KindFooter), Text: f.Text})
}

func (b ButtonsComponent) MarshalJSON() ([]byte, error) {
	w := wireComponent{Type: string(KindButtons), Buttons: make([]wireButton, 0, len(b.Buttons))}
	for _, btn := range b.Buttons {
		wb := wireButton{Type: string(btn.Type), Text: btn.Label}
		switch btn.Type {
		case ButtonURL:
			wb.URL = btn.Target
		case ButtonPhoneNumber:
			wb.PhoneNumber = btn.Target
		}
		w.Buttons = append(w.Buttons, wb)
	}
	return json.Marshal(w)
}

// Components is the ordered component list of a template.
type Components []Component

// UnmarshalJSON decodes the WhatsApp component array into the closed variant set.
// An unknown component type is an error.
func (cs *Components) UnmarshalJSON(data []byte) error {
	var raw []wireComponent
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := make(Components, 0, len(raw))
	for i, w := range raw {
		c, err := w.component()
		if err != nil {
			return fmt.Errorf("component %d: %w", i, err)
		}
		out = append(out, c)
	}
	*cs = out
	return nil
}

func (w wireComponent) component() (Component, error) {
	switch ComponentKind(strings.ToUpper(w.Type)) {
	case KindHeader:
		h := HeaderComponent{Format: HeaderFormat(strings.ToUpper(w.Format)), Text: w.Text}
		if h.Format == "" {
			h.Format = HeaderText
		}
		if w.Example != nil && len(w.Example.HeaderHandle) > 0 {
			h.Link = w.Example.HeaderHandle[0]
		}
		return h, nil
	case KindBody:
		return BodyComponent{Text: w.Text}, nil
	case KindFooter:
		return FooterComponent{Text: w.Text}, nil
	case KindButtons:
		buttons := make([]Button, 0, len(w.Buttons))
		for _, wb := range w.Buttons {
			btn := Button{Type: ButtonType(strings.ToUpper(wb.Type)), Label: wb.Text}
			switch btn.Type {
			case ButtonURL:
				btn.Target = wb.URL
			case ButtonPhoneNumber:
				btn.Target = wb.PhoneNumber
			}
			buttons = append(buttons, btn)
		}
		return ButtonsComponent{Buttons: buttons}, nil
	default:
		return nil, fmt.Errorf("unknown template component type %q", w.Type)
	}
}

// CreateTemplateRequest is the body of POST /templates/create-meta
type CreateTemplateRequest struct {
	Name       string     `json:"name"`
	Category   string     `json:"category"`
	Language   string     `json:"language"`
	Components Components `json:"components"`
}
