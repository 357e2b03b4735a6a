// internal/service/campaign_service.go
package service

import (
	"time"

	appErrors "github.com/funnelreach/dispatch-backend/internal/errors"
	"github.com/funnelreach/dispatch-backend/internal/model"
	"github.com/funnelreach/dispatch-backend/internal/repository"
)

// CampaignService owns campaign CRUD and the start/pause/resume/stop
// lifecycle. Configuration problems are rejected here, at activation time,
// never silently dropped mid-run.
type CampaignService struct {
	CampaignRepo repository.CampaignRepositoryInterface
}

type CampaignDetails struct {
	Campaign *model.Campaign `json:"campaign"`
	Stats    map[string]int  `json:"stats"`
}

func (s *CampaignService) CreateCampaign(c *model.Campaign) (*model.Campaign, error) {
	if !model.ValidChannel(c.Channel) {
		return nil, appErrors.NewValidation("unknown channel %q", c.Channel)
	}
	c.Status = model.StatusDraft
	if err := s.CampaignRepo.Create(c); err != nil {
		return nil, err
	}
	return c, nil
}

// UpdateCampaign replaces the editable configuration of a draft or paused
// campaign. Active and completed campaigns are immutable; pause first. The
// new configuration is validated here so a bad edit cannot park a campaign
// in a state activation would reject.
func (s *CampaignService) UpdateCampaign(campaignID int, name string, segments []model.Segment, schedule model.SchedulePolicy) (*model.Campaign, error) {
	campaign, err := s.CampaignRepo.GetByID(campaignID)
	if err != nil {
		return nil, err
	}
	if campaign.Status != model.StatusDraft && campaign.Status != model.StatusPaused {
		return nil, appErrors.NewValidation("campaign %d cannot be edited while %s", campaignID, campaign.Status)
	}

	if name != "" {
		campaign.Name = name
	}
	campaign.Segments = segments
	campaign.Schedule = schedule
	if err := ValidateCampaign(campaign); err != nil {
		return nil, err
	}

	if err := s.CampaignRepo.Update(campaign); err != nil {
		return nil, err
	}
	return campaign, nil
}

func (s *CampaignService) ListCampaigns(page, pageSize int, channel, status string) ([]model.Campaign, map[string]int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	offset := (page - 1) * pageSize

	ptrs, total, err := s.CampaignRepo.ListCampaigns(offset, pageSize, channel, status)
	if err != nil {
		return nil, nil, err
	}

	campaigns := make([]model.Campaign, len(ptrs))
	for i, c := range ptrs {
		campaigns[i] = *c
	}

	totalPages := (total + pageSize - 1) / pageSize
	pagination := map[string]int{
		"page":        page,
		"page_size":   pageSize,
		"total_count": total,
		"total_pages": totalPages,
	}

	return campaigns, pagination, nil
}

func (s *CampaignService) GetCampaignDetailsWithStats(campaignID int) (*CampaignDetails, error) {
	campaign, err := s.CampaignRepo.GetByID(campaignID)
	if err != nil {
		return nil, err
	}
	stats, err := s.CampaignRepo.GetCampaignStats(campaignID)
	if err != nil {
		return nil, err
	}
	return &CampaignDetails{Campaign: campaign, Stats: stats}, nil
}

// Start activates a draft or paused campaign after validating its
// configuration.
func (s *CampaignService) Start(campaignID int) error {
	return s.transition(campaignID, model.StatusActive, model.StatusDraft, model.StatusPaused)
}

// Pause stops new scans and schedules immediately. Tasks already claimed by
// an executor finish or expire through their lease.
func (s *CampaignService) Pause(campaignID int) error {
	return s.transition(campaignID, model.StatusPaused, model.StatusActive)
}

func (s *CampaignService) Resume(campaignID int) error {
	return s.transition(campaignID, model.StatusActive, model.StatusPaused)
}

func (s *CampaignService) Stop(campaignID int) error {
	return s.transition(campaignID, model.StatusCompleted, model.StatusActive, model.StatusPaused)
}

func (s *CampaignService) transition(campaignID int, to string, from ...string) error {
	campaign, err := s.CampaignRepo.GetByID(campaignID)
	if err != nil {
		return err
	}

	allowed := false
	for _, f := range from {
		if campaign.Status == f {
			allowed = true
			break
		}
	}
	if !allowed {
		return appErrors.NewValidation("campaign %d cannot go from %s to %s", campaignID, campaign.Status, to)
	}

	if to == model.StatusActive {
		if err := ValidateCampaign(campaign); err != nil {
			return err
		}
	}

	return s.CampaignRepo.UpdateStatus(campaignID, to)
}

// ValidateCampaign checks everything activation depends on: a reachable
// channel, at least one segment with a template, well-formed targeting, and
// a sane schedule policy.
func ValidateCampaign(c *model.Campaign) error {
	if !model.ValidChannel(c.Channel) {
		return appErrors.NewValidation("unknown channel %q", c.Channel)
	}
	if len(c.Segments) == 0 {
		return appErrors.NewValidation("campaign %d has no segments", c.ID)
	}
	for i, seg := range c.Segments {
		if seg.Template == "" {
			return appErrors.NewValidation("segment %d has an empty template", i)
		}
		t := seg.Targeting
		if !model.ValidAudienceClass(t.AudienceClass) {
			return appErrors.NewValidation("segment %d has unknown audience class %q", i, t.AudienceClass)
		}
		if t.DateFrom != nil && t.DateTo != nil && t.DateTo.Before(*t.DateFrom) {
			return appErrors.NewValidation("segment %d has an inverted date window", i)
		}
		for _, f := range t.FieldFilters {
			if f.Field == "" {
				return appErrors.NewValidation("segment %d has a field filter without a field", i)
			}
		}
	}

	policy := c.Schedule
	if policy.BaseDelaySeconds < 0 {
		return appErrors.NewValidation("base delay cannot be negative")
	}
	if policy.MaxPerDay < 0 {
		return appErrors.NewValidation("max per day cannot be negative")
	}
	if wh := policy.WorkingHours; wh != nil {
		sh, sm, err := ParseHHMM(wh.Start)
		if err != nil {
			return appErrors.NewValidation("invalid working hours start: %v", err)
		}
		eh, em, err := ParseHHMM(wh.End)
		if err != nil {
			return appErrors.NewValidation("invalid working hours end: %v", err)
		}
		if eh*60+em <= sh*60+sm {
			return appErrors.NewValidation("working hours end must be after start")
		}
	}
	return nil
}

// Preview renders the message a hypothetical lead would receive, using the
// same segment selection as a real scan.
func (s *CampaignService) Preview(campaignID int, lead *model.Lead) (string, error) {
	campaign, err := s.CampaignRepo.GetByID(campaignID)
	if err != nil {
		return "", err
	}
	if lead.SubmittedAt.IsZero() {
		lead.SubmittedAt = time.Now()
	}
	segment, ok := SelectSegment(lead, campaign)
	if !ok {
		return "", appErrors.NewValidation("lead matches no segment of campaign %d", campaignID)
	}
	return RenderForLead(segment.Template, lead), nil
}
