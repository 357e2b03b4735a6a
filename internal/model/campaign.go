// internal/model/campaign.go
package model

import "time"

type Channel string

const (
	ChannelSMS      Channel = "sms"
	ChannelEmail    Channel = "email"
	ChannelTelegram Channel = "telegram"
	ChannelWhatsApp Channel = "whatsapp"
)

// DirectChannels are the channels the server can reach itself; whatsapp
// goes through the executor bridge instead.
var DirectChannels = []Channel{ChannelSMS, ChannelEmail, ChannelTelegram}

func ValidChannel(c Channel) bool {
	switch c {
	case ChannelSMS, ChannelEmail, ChannelTelegram, ChannelWhatsApp:
		return true
	}
	return false
}

const (
	StatusDraft     = "draft"
	StatusActive    = "active"
	StatusPaused    = "paused"
	StatusCompleted = "completed"
)

// FieldFilter is an exact-match rule on one extracted answer field.
type FieldFilter struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// Targeting describes which leads a segment applies to. Zero values mean
// "no constraint": empty AudienceClass (or "all") matches every class, nil
// dates skip the window check, empty FieldFilters always pass.
type Targeting struct {
	AudienceClass string        `json:"audience_class,omitempty"`
	DateFrom      *time.Time    `json:"date_from,omitempty"`
	DateTo        *time.Time    `json:"date_to,omitempty"`
	FieldFilters  []FieldFilter `json:"field_filters,omitempty"`
}

// Segment pairs a targeting rule with the message template used for leads
// that match it. A campaign carries an ordered list of segments; the first
// matching segment wins.
type Segment struct {
	Targeting Targeting `json:"targeting"`
	Template  string    `json:"template"`
}

// WorkingHours bounds sends to a daily window, both ends in "HH:MM".
type WorkingHours struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// SchedulePolicy is immutable per campaign.
type SchedulePolicy struct {
	BaseDelaySeconds int           `json:"base_delay_seconds"`
	JitterEnabled    bool          `json:"jitter_enabled"`
	WorkingHours     *WorkingHours `json:"working_hours,omitempty"`
	MaxPerDay        int           `json:"max_per_day"` // 0 = unlimited
}

type Campaign struct {
	ID        int            `db:"id" json:"id"`
	FunnelID  int            `db:"funnel_id" json:"funnel_id"`
	Name      string         `db:"name" json:"name"`
	Channel   Channel        `db:"channel" json:"channel"`
	Status    string         `db:"status" json:"status"`
	Segments  []Segment      `db:"segments" json:"segments"`
	Schedule  SchedulePolicy `db:"schedule_policy" json:"schedule_policy"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt *time.Time     `db:"updated_at" json:"updated_at,omitempty"`
}
