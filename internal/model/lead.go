// internal/model/lead.go
package model

import "time"

// Lead is the normalized contact record extracted from exactly one response.
// Immutable once extracted; extraction is deterministic so repeated scans
// over the same window always produce the same Lead.
type Lead struct {
	Phone         string            `json:"phone,omitempty"`
	Email         string            `json:"email,omitempty"`
	Telegram      string            `json:"telegram,omitempty"`
	DisplayName   string            `json:"display_name,omitempty"`
	AudienceClass string            `json:"audience_class"`
	SubmittedAt   time.Time         `json:"submitted_at"`
	Fields        map[string]string `json:"fields"`
}

// HandleFor picks the contact handle a channel can actually reach. Empty
// means the lead is unreachable on that channel.
func (l *Lead) HandleFor(c Channel) string {
	switch c {
	case ChannelSMS, ChannelWhatsApp:
		return l.Phone
	case ChannelEmail:
		return l.Email
	case ChannelTelegram:
		return l.Telegram
	}
	return ""
}
