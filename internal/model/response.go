// internal/model/response.go
package model

import "time"

const (
	AudienceCompleted = "completed"
	AudienceAbandoned = "abandoned"
	AudiencePartial   = "partial"
	AudienceAll       = "all"
)

func ValidAudienceClass(s string) bool {
	switch s {
	case AudienceCompleted, AudienceAbandoned, AudiencePartial, AudienceAll, "":
		return true
	}
	return false
}

// Answer is one answered field of a quiz response. Order matters: field
// detection ties are broken by declaration order in the original form.
type Answer struct {
	Field string `json:"field"`
	Type  string `json:"type,omitempty"`
	Value string `json:"value"`
}

// Response is a raw quiz submission as the response store holds it. The
// engine only ever reads these; intake appends them.
type Response struct {
	ID              int64     `db:"id" json:"id"`
	FunnelID        int       `db:"funnel_id" json:"funnel_id"`
	CompletionState string    `db:"completion_state" json:"completion_state"`
	Answers         []Answer  `db:"answers" json:"answers"`
	SubmittedAt     time.Time `db:"submitted_at" json:"submitted_at"`
}
