package models

import (
	"encoding/json"
	"time"
)

// Campaign status constants
const (
	CampaignDraft     = "draft"
	CampaignScheduled = "scheduled"
	CampaignRunning   = "running"
	CampaignCompleted = "completed"
	CampaignFailed    = "failed"
)

// Campaign is a batch send of one template to a set of contacts.
// Status is only ever changed by the backend.
type Campaign struct {
	ID           string        `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Name         string        `gorm:"type:varchar(255);not null" json:"name"`
	Description  string        `gorm:"type:text" json:"description,omitempty"`
	TemplateID   string        `gorm:"type:varchar(64)" json:"template_id"`
	TemplateName string        `gorm:"type:varchar(255)" json:"template_name"`
	Language     string        `gorm:"type:varchar(50)" json:"language"`
	ContactIDs   []string      `gorm:"serializer:json" json:"contact_ids"`
	RunPayload   *RunPayload   `gorm:"serializer:json" json:"run_payload,omitempty"`
	Status       string        `gorm:"type:varchar(20);default:'draft'" json:"status"`
	ScheduledAt  *time.Time    `json:"scheduled_at,omitempty"`
	CreatedBy    string        `gorm:"type:varchar(64)" json:"created_by"`
	Stats        CampaignStats `gorm:"embedded;embeddedPrefix:stats_" json:"stats"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

func (Campaign) TableName() string {
	return "campaigns"
}

// IsActive reports whether the campaign is running or waiting to run.
func (c Campaign) IsActive() bool {
	return c.Status == CampaignRunning || c.Status == CampaignScheduled
}

// CampaignStats holds the aggregate send statistics reported by the backend
type CampaignStats struct {
	Total     int `json:"total"`
	Sent      int `json:"sent"`
	Delivered int `json:"delivered"`
	Read      int `json:"read"`
	Failed    int `json:"failed"`
}

// CreateCampaignRequest is the body of POST /campaigns/
type CreateCampaignRequest struct {
	Name         string          `json:"name"`
	Description  string          `json:"description,omitempty"`
	TemplateID   string          `json:"template_id"`
	TemplateName string          `json:"template_name"`
	Language     string          `json:"language"`
	Components   []SendComponent `json:"components"`
	ContactIDs   []string        `json:"contact_ids"`
	ScheduledAt  *time.Time      `json:"scheduled_at,omitempty"`
	CreatedBy    string          `json:"created_by"`
	RunPayload   RunPayload      `json:"run_payload"`
}

// RunPayload is the exact request body a campaign sends when executed.
// It is fixed when the campaign is created.
type RunPayload struct {
	TemplateName string          `json:"template_name"`
	Language     string          `json:"language"`
	Components   []SendComponent `json:"components"`
	ContactIDs   []string        `json:"contact_ids"`
}

// Send component types and button sub-types of the Cloud API
const (
	SendHeader = "header"
	SendBody   = "body"
	SendButton = "button"

	SubTypeURL         = "url"
	SubTypePhoneNumber = "phone_number"
	SubTypeQuickReply  = "quick_reply"

	ParameterText    = "text"
	ParameterImage   = "image"
	ParameterPayload = "payload"
)

// SendComponent is one entry of the Cloud API "components" array of a template message
type SendComponent struct {
	Type       string          `json:"type"`
	SubType    string          `json:"sub_type,omitempty"`
	Index      *int            `json:"index,omitempty"`
	Parameters []SendParameter `json:"parameters"`
}

// SendParameter is a single value bound into a template component
type SendParameter struct {
	Type    string     `json:"type"`
	Text    string     `json:"text,omitempty"`
	Payload string     `json:"payload,omitempty"`
	Image   *MediaLink `json:"image,omitempty"`
}

type MediaLink struct {
	Link string `json:"link"`
}

// MarshalJSON keeps empty text and payload values; the Cloud API expects the key.
func (p SendParameter) MarshalJSON() ([]byte, error) {
	switch p.Type {
	case ParameterText:
		return json.Marshal(struct {
			Type string `json:"type"`
			Text string `json:"text"`
		}{p.Type, p.Text})
	case ParameterPayload:
		return json.Marshal(struct {
			Type    string `json:"type"`
			Payload string `json:"payload"`
		}{p.Type, p.Payload})
	default:
		type plain SendParameter
		return json.Marshal(plain(p))
	}
}
