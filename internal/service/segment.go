// internal/service/segment.go
package service

import (
	"strings"

	"github.com/funnelreach/dispatch-backend/internal/model"
)

// Matches evaluates one targeting rule against a lead: audience class,
// then the inclusive date window, then every field filter (logical AND).
func Matches(lead *model.Lead, t model.Targeting) bool {
	if t.AudienceClass != "" && t.AudienceClass != model.AudienceAll && t.AudienceClass != lead.AudienceClass {
		return false
	}

	if t.DateFrom != nil && lead.SubmittedAt.Before(*t.DateFrom) {
		return false
	}
	if t.DateTo != nil && lead.SubmittedAt.After(*t.DateTo) {
		return false
	}

	for _, f := range t.FieldFilters {
		value, ok := lead.Fields[f.Field]
		if !ok {
			return false
		}
		if strings.TrimSpace(value) != strings.TrimSpace(f.Value) {
			return false
		}
	}
	return true
}

// SelectSegment returns the first segment of the campaign whose targeting
// matches the lead. A campaign may define several independent segmentations;
// only the first match is ever used, never multiple.
func SelectSegment(lead *model.Lead, c *model.Campaign) (*model.Segment, bool) {
	for i := range c.Segments {
		if Matches(lead, c.Segments[i].Targeting) {
			return &c.Segments[i], true
		}
	}
	return nil, false
}
