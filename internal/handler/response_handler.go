// internal/handler/response_handler.go
package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/funnelreach/dispatch-backend/internal/model"
	"github.com/funnelreach/dispatch-backend/internal/repository"
)

// ResponseHandler is the submission intake. The engine itself only reads
// the response store; this is where the funnel runtime appends to it.
type ResponseHandler struct {
	Responses repository.ResponseRepositoryInterface
}

func (h *ResponseHandler) Intake(w http.ResponseWriter, r *http.Request) {
	var body struct {
		FunnelID        int            `json:"funnel_id"`
		CompletionState string         `json:"completion_state"`
		Answers         []model.Answer `json:"answers"`
		SubmittedAt     *time.Time     `json:"submitted_at,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if body.FunnelID == 0 {
		http.Error(w, "funnel_id is required", http.StatusBadRequest)
		return
	}
	switch body.CompletionState {
	case model.AudienceCompleted, model.AudienceAbandoned, model.AudiencePartial:
	default:
		http.Error(w, "unknown completion_state", http.StatusBadRequest)
		return
	}

	resp := &model.Response{
		FunnelID:        body.FunnelID,
		CompletionState: body.CompletionState,
		Answers:         body.Answers,
	}
	if body.SubmittedAt != nil {
		resp.SubmittedAt = *body.SubmittedAt
	}

	if err := h.Responses.Create(resp); err != nil {
		http.Error(w, "failed to store response: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{"id": resp.ID})
}
