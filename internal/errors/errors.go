// internal/errors/errors.go
package appErrors

import (
	"errors"
	"fmt"
	"time"
)

// ErrCampaignNotFound is a sentinel error
type ErrCampaignNotFound struct {
	CampaignID int
}

func (e *ErrCampaignNotFound) Error() string {
	return fmt.Sprintf("campaign with ID %d not found", e.CampaignID)
}

// Helper constructor
func NewCampaignNotFound(id int) error {
	return &ErrCampaignNotFound{CampaignID: id}
}

func IsCampaignNotFound(err error) bool {
	var e *ErrCampaignNotFound
	return errors.As(err, &e)
}

// ErrScanInFlight signals that a scan cycle is already running for the
// same campaign+channel. Mapped to HTTP 409.
type ErrScanInFlight struct {
	CampaignID int
	Channel    string
}

func (e *ErrScanInFlight) Error() string {
	return fmt.Sprintf("scan already in flight for campaign %d channel %s", e.CampaignID, e.Channel)
}

func IsScanInFlight(err error) bool {
	var e *ErrScanInFlight
	return errors.As(err, &e)
}

// ErrValidation rejects malformed campaign configuration at activation
// time, never mid-run.
type ErrValidation struct {
	Reason string
}

func (e *ErrValidation) Error() string {
	return "validation failed: " + e.Reason
}

func NewValidation(format string, args ...any) error {
	return &ErrValidation{Reason: fmt.Sprintf(format, args...)}
}

func IsValidation(err error) bool {
	var e *ErrValidation
	return errors.As(err, &e)
}

// ErrRateLimited carries the retry-after hint back to the caller. The
// guarded operation must not have been applied at all.
type ErrRateLimited struct {
	RetryAfter time.Duration
}

func (e *ErrRateLimited) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry after %s", e.RetryAfter)
}

// RetryAfterSeconds rounds up so a caller sleeping the hinted amount is
// guaranteed to pass the limiter.
func (e *ErrRateLimited) RetryAfterSeconds() int {
	s := int(e.RetryAfter / time.Second)
	if e.RetryAfter%time.Second != 0 {
		s++
	}
	if s < 1 {
		s = 1
	}
	return s
}

func AsRateLimited(err error) (*ErrRateLimited, bool) {
	var e *ErrRateLimited
	ok := errors.As(err, &e)
	return e, ok
}
