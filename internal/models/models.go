package models

import (
	"bytes"
	"encoding/json"
	"time"
)

// Contact status values
const (
	ContactActive   = "active"
	ContactInactive = "inactive"
	ContactBlocked  = "blocked"
)

// Contact represents a marketing contact owned by the backend
type Contact struct {
	ID            string         `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Name          string         `gorm:"type:varchar(255)" json:"name"`
	Phone         string         `gorm:"type:varchar(32);index" json:"phone"`
	Email         string         `gorm:"type:varchar(255)" json:"email,omitempty"`
	Status        string         `gorm:"type:varchar(20);default:'active'" json:"status,omitempty"`
	Tags          []string       `gorm:"serializer:json" json:"tags,omitempty"`
	CustomFields  map[string]any `gorm:"serializer:json" json:"customFields,omitempty"`
	LastMessageAt *time.Time     `json:"lastMessageAt,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

func (Contact) TableName() string {
	return "contacts"
}

// Message direction, type and status values
const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"

	MessageText     = "text"
	MessageTemplate = "template"
	MessageMedia    = "media"
	MessageDocument = "document"

	MessageSent      = "sent"
	MessageDelivered = "delivered"
	MessageRead      = "read"
	MessageFailed    = "failed"
	MessagePending   = "pending"
)

// Message is a read-only projection of a WhatsApp message
type Message struct {
	ID           string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	ContactID    string    `gorm:"type:varchar(64);index" json:"contactId"`
	CampaignID   string    `gorm:"type:varchar(64)" json:"campaignId,omitempty"`
	Type         string    `gorm:"type:varchar(20)" json:"type"`
	Content      string    `gorm:"type:text" json:"content"`
	Direction    string    `gorm:"type:varchar(20)" json:"direction"`
	Status       string    `gorm:"type:varchar(20)" json:"status"`
	Timestamp    time.Time `gorm:"index" json:"timestamp"`
	TemplateName string    `gorm:"type:varchar(255)" json:"templateName,omitempty"`
	MediaURL     string    `gorm:"type:text" json:"mediaUrl,omitempty"`
	IsRead       bool      `json:"-"`
}

func (Message) TableName() string {
	return "messages"
}

// SendMessageRequest is the body of POST /messages/send
type SendMessageRequest struct {
	ContactID string `json:"contactId" binding:"required"`
	Content   string `json:"content" binding:"required"`
	Type      string `json:"type"`
}

// Conversation groups the messages exchanged with one contact
type Conversation struct {
	ID          string    `json:"id"`
	ContactID   string    `json:"contactId"`
	Contact     Contact   `json:"contact"`
	LastMessage Message   `json:"lastMessage"`
	UnreadCount int       `json:"unreadCount"`
	Status      string    `json:"status"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// WhatsAppSettings holds the Cloud API credentials configured on the backend
type WhatsAppSettings struct {
	AccessToken       string `json:"accessToken"`
	PhoneNumberID     string `json:"phoneNumberId"`
	BusinessAccountID string `json:"businessAccountId"`
	WebhookURL        string `json:"webhookUrl,omitempty"`
	WebhookToken      string `json:"webhookToken,omitempty"`
	IsConfigured      bool   `json:"isConfigured"`
}

// Configured reports whether every credential required to reach the Cloud API is set.
func (s WhatsAppSettings) Configured() bool {
	return s.AccessToken != "" && s.PhoneNumberID != "" && s.BusinessAccountID != ""
}

// MediaUpload is the response of POST /media/upload
type MediaUpload struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// ImportResult is the response of POST /contacts/import
type ImportResult struct {
	Imported []Contact `json:"imported"`
	Skipped  int       `json:"skipped"`
}

// UnmarshalJSON also accepts a bare array of the imported contacts.
func (r *ImportResult) UnmarshalJSON(data []byte) error {
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '[' {
		r.Skipped = 0
		return json.Unmarshal(trimmed, &r.Imported)
	}
	type plain ImportResult
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*r = ImportResult(p)
	return nil
}

// MessageStats aggregates the message list for the dashboard
type MessageStats struct {
	Total         int `json:"total"`
	Sent          int `json:"sent"`
	Delivered     int `json:"delivered"`
	Read          int `json:"read"`
	Failed        int `json:"failed"`
	SentToday     int `json:"sentToday"`
	ReceivedToday int `json:"receivedToday"`
}

// DashboardStats is the aggregate view rendered on the dashboard
type DashboardStats struct {
	TotalContacts         int `json:"totalContacts"`
	TotalMessages         int `json:"totalMessages"`
	TotalCampaigns        int `json:"totalCampaigns"`
	ActiveConversations   int `json:"activeConversations"`
	MessagesSentToday     int `json:"messagesSentToday"`
	MessagesReceivedToday int `json:"messagesReceivedToday"`
	CampaignsThisMonth    int `json:"campaignsThisMonth"`
	DeliveryRate          int `json:"deliveryRate"`
	OpenRate              int `json:"openRate"`
	ResponseRate          int `json:"responseRate"`
}
