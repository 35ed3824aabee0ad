package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const metaTemplate = `{
	"id": "1029",
	"name": "spring_sale",
	"category": "MARKETING",
	"language": "en_US",
	"status": "APPROVED",
	"components": [
		{"type": "HEADER", "format": "IMAGE", "example": {"header_handle": ["https://cdn.example.com/h.png"]}},
		{"type": "BODY", "text": "Hi {{1}}, {{2}} off today"},
		{"type": "FOOTER", "text": "Reply STOP to opt out"},
		{"type": "BUTTONS", "buttons": [
			{"type": "QUICK_REPLY", "text": "Yes"},
			{"type": "URL", "text": "Shop", "url": "https://shop.example.com"},
			{"type": "PHONE_NUMBER", "text": "Call", "phone_number": "+15550100"}
		]}
	]
}`

func TestTemplate_UnmarshalJSON(t *testing.T) {
	var tmpl Template
	require.NoError(t, json.Unmarshal([]byte(metaTemplate), &tmpl))

	require.Len(t, tmpl.Components, 4)
	assert.Equal(t, KindHeader, tmpl.Components[0].Kind())
	assert.Equal(t, KindButtons, tmpl.Components[3].Kind())

	header, ok := tmpl.Header()
	require.True(t, ok)
	assert.Equal(t, HeaderImage, header.Format)
	assert.Equal(t, "https://cdn.example.com/h.png", header.Link)

	body, ok := tmpl.Body()
	require.True(t, ok)
	assert.Equal(t, "Hi {{1}}, {{2}} off today", body.Text)

	assert.Equal(t, []Button{
		{Type: ButtonQuickReply, Label: "Yes"},
		{Type: ButtonURL, Label: "Shop", Target: "https://shop.example.com"},
		{Type: ButtonPhoneNumber, Label: "Call", Target: "+15550100"},
	}, tmpl.Buttons())
}

func TestTemplate_RoundTrip(t *testing.T) {
	var tmpl Template
	require.NoError(t, json.Unmarshal([]byte(metaTemplate), &tmpl))

	data, err := json.Marshal(tmpl)
	require.NoError(t, err)

	var again Template
	require.NoError(t, json.Unmarshal(data, &again))
	assert.Equal(t, tmpl, again)
}

func TestComponents_UnknownKind(t *testing.T) {
	var tmpl Template
	err := json.Unmarshal([]byte(`{"id":"1","components":[{"type":"CAROUSEL"}]}`), &tmpl)
	assert.ErrorContains(t, err, "CAROUSEL")
}

func TestComponents_HeaderDefaultsToText(t *testing.T) {
	var cs Components
	require.NoError(t, json.Unmarshal([]byte(`[{"type":"header","text":"Welcome"}]`), &cs))

	require.Len(t, cs, 1)
	assert.Equal(t, HeaderComponent{Format: HeaderText, Text: "Welcome"}, cs[0])
}

func TestTemplate_NoHeaderNoButtons(t *testing.T) {
	tmpl := Template{Components: Components{BodyComponent{Text: "plain"}}}

	_, ok := tmpl.Header()
	assert.False(t, ok)
	assert.Nil(t, tmpl.Buttons())
}

func TestSendParameter_MarshalJSON(t *testing.T) {
	tests := []struct {
		name  string
		param SendParameter
		want  string
	}{
		{name: "empty text kept", param: SendParameter{Type: ParameterText}, want: `{"type":"text","text":""}`},
		{name: "payload", param: SendParameter{Type: ParameterPayload, Payload: "Yes"}, want: `{"type":"payload","payload":"Yes"}`},
		{
			name:  "image",
			param: SendParameter{Type: ParameterImage, Image: &MediaLink{Link: "https://x/y.png"}},
			want:  `{"type":"image","image":{"link":"https://x/y.png"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.param)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(data))
		})
	}
}

func TestCampaign_IsActive(t *testing.T) {
	assert.True(t, Campaign{Status: CampaignRunning}.IsActive())
	assert.True(t, Campaign{Status: CampaignScheduled}.IsActive())
	assert.False(t, Campaign{Status: CampaignCompleted}.IsActive())
	assert.False(t, Campaign{Status: CampaignDraft}.IsActive())
}

func TestImportResult_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantCount   int
		wantSkipped int
	}{
		{name: "object", input: `{"imported":[{"id":"1","name":"Ana"}],"skipped":2}`, wantCount: 1, wantSkipped: 2},
		{name: "bare array", input: `[{"id":"1"},{"id":"2"}]`, wantCount: 2},
		{name: "empty array", input: ` [] `, wantCount: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r ImportResult
			require.NoError(t, json.Unmarshal([]byte(tt.input), &r))
			assert.Len(t, r.Imported, tt.wantCount)
			assert.Equal(t, tt.wantSkipped, r.Skipped)
		})
	}
}

func TestWhatsAppSettings_Configured(t *testing.T) {
	s := WhatsAppSettings{AccessToken: "tok", PhoneNumberID: "123"}
	assert.False(t, s.Configured())

	s.BusinessAccountID = "456"
	assert.True(t, s.Configured())
}
