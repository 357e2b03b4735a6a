// internal/controller/campaign_controller.go
package controller

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	appErrors "github.com/funnelreach/dispatch-backend/internal/errors"
	"github.com/funnelreach/dispatch-backend/internal/model"
	"github.com/funnelreach/dispatch-backend/internal/service"
)

type CampaignController struct {
	CampaignService *service.CampaignService
	DispatchService *service.DispatchService
}

func (c *CampaignController) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var body struct {
		FunnelID int                  `json:"funnel_id"`
		Name     string               `json:"name"`
		Channel  model.Channel        `json:"channel"`
		Segments []model.Segment      `json:"segments"`
		Schedule model.SchedulePolicy `json:"schedule_policy"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	campaign, err := c.CampaignService.CreateCampaign(&model.Campaign{
		FunnelID: body.FunnelID,
		Name:     body.Name,
		Channel:  body.Channel,
		Segments: body.Segments,
		Schedule: body.Schedule,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(campaign)
}

// UpdateCampaign replaces the configuration of a draft or paused campaign.
func (c *CampaignController) UpdateCampaign(w http.ResponseWriter, r *http.Request) {
	id, err := campaignID(r)
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	var body struct {
		Name     string               `json:"name"`
		Segments []model.Segment      `json:"segments"`
		Schedule model.SchedulePolicy `json:"schedule_policy"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	campaign, err := c.CampaignService.UpdateCampaign(id, body.Name, body.Segments, body.Schedule)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(campaign)
}

func (c *CampaignController) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	channel := r.URL.Query().Get("channel")
	status := r.URL.Query().Get("status")

	campaigns, pagination, err := c.CampaignService.ListCampaigns(page, pageSize, channel, status)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"data":       campaigns,
		"pagination": pagination,
	})
}

func (c *CampaignController) GetCampaign(w http.ResponseWriter, r *http.Request) {
	id, err := campaignID(r)
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	details, err := c.CampaignService.GetCampaignDetailsWithStats(id)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(details)
}

// Transition handles start/pause/resume/stop.
func (c *CampaignController) Transition(action func(int) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := campaignID(r)
		if err != nil {
			http.Error(w, "invalid campaign id", http.StatusBadRequest)
			return
		}
		if err := action(id); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// Scan triggers one sync cycle for the campaign. Cron calls this; invoking
// it twice concurrently for the same campaign+channel yields 409.
func (c *CampaignController) Scan(w http.ResponseWriter, r *http.Request) {
	id, err := campaignID(r)
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	result, err := c.DispatchService.RunScan(id)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// Preview renders the message a hypothetical lead would receive.
func (c *CampaignController) Preview(w http.ResponseWriter, r *http.Request) {
	id, err := campaignID(r)
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	var body struct {
		AudienceClass string            `json:"audience_class"`
		DisplayName   string            `json:"display_name"`
		Fields        map[string]string `json:"fields"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	rendered, err := c.CampaignService.Preview(id, &model.Lead{
		AudienceClass: body.AudienceClass,
		DisplayName:   body.DisplayName,
		Fields:        body.Fields,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	json.NewEncoder(w).Encode(map[string]string{"rendered_message": rendered})
}

func campaignID(r *http.Request) (int, error) {
	return strconv.Atoi(chi.URLParam(r, "id"))
}

// writeError maps the error taxonomy onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case appErrors.IsCampaignNotFound(err):
		http.Error(w, err.Error(), http.StatusNotFound)
	case appErrors.IsScanInFlight(err):
		http.Error(w, err.Error(), http.StatusConflict)
	case appErrors.IsValidation(err):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
