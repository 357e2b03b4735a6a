// internal/model/dispatch_task.go
package model

import "time"

const (
	TaskPending   = "pending"
	TaskClaimed   = "claimed"
	TaskSent      = "sent"
	TaskDelivered = "delivered"
	TaskFailed    = "failed"
)

// TerminalTaskState reports whether a task can never transition again.
func TerminalTaskState(s string) bool {
	return s == TaskSent || s == TaskDelivered || s == TaskFailed
}

// DispatchTask is one scheduled message for one recipient. At most one task
// per (campaign, channel, contact) ever reaches sent or later; the dedup
// ledger enforces that before the task is created.
type DispatchTask struct {
	ID              string     `db:"id" json:"id"`
	CampaignID      int        `db:"campaign_id" json:"campaign_id"`
	Channel         Channel    `db:"channel" json:"channel"`
	ContactHandle   string     `db:"contact_handle" json:"contact_handle"`
	RenderedMessage string     `db:"rendered_message" json:"rendered_message"`
	State           string     `db:"state" json:"state"`
	Attempt         int        `db:"attempt" json:"attempt"`
	ScheduledAt     time.Time  `db:"scheduled_at" json:"scheduled_at"`
	ClaimedBy       *string    `db:"claimed_by" json:"claimed_by,omitempty"`
	ClaimedAt       *time.Time `db:"claimed_at" json:"claimed_at,omitempty"`
	LastError       string     `db:"last_error" json:"last_error,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// SyncCursor checkpoints the last response seen by a (campaign, channel)
// scan. The checkpoint is the pair (submitted_at, response id): responses
// can share a timestamp, and a timestamp-only cursor would skip tied rows
// cut off at a batch boundary. It only ever moves forward.
type SyncCursor struct {
	CampaignID        int       `db:"campaign_id" json:"campaign_id"`
	Channel           Channel   `db:"channel" json:"channel"`
	LastSeenTimestamp time.Time `db:"last_seen" json:"last_seen"`
	LastSeenID        int64     `db:"last_seen_id" json:"last_seen_id"`
}
