// internal/handler/executor_handler.go
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/funnelreach/dispatch-backend/internal/auth"
	appErrors "github.com/funnelreach/dispatch-backend/internal/errors"
	"github.com/funnelreach/dispatch-backend/internal/service"
)

// ExecutorHandler exposes the pull/ack protocol to the remote WhatsApp
// executor. All routes sit behind executor JWT auth and rate limiting.
type ExecutorHandler struct {
	Executor *service.ExecutorService
}

type pulledTask struct {
	TaskID          string `json:"taskId"`
	ContactHandle   string `json:"contactHandle"`
	RenderedMessage string `json:"renderedMessage"`
}

func (h *ExecutorHandler) Pull(w http.ResponseWriter, r *http.Request) {
	executor := auth.ExecutorFromContext(r.Context())
	if executor == "" {
		http.Error(w, "executor identity required", http.StatusUnauthorized)
		return
	}

	var body struct {
		MaxItems int `json:"maxItems"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	tasks, err := h.Executor.Pull(executor, body.MaxItems)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	out := make([]pulledTask, len(tasks))
	for i, t := range tasks {
		out[i] = pulledTask{
			TaskID:          t.ID,
			ContactHandle:   t.ContactHandle,
			RenderedMessage: t.RenderedMessage,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"tasks": out})
}

func (h *ExecutorHandler) Ack(w http.ResponseWriter, r *http.Request) {
	executor := auth.ExecutorFromContext(r.Context())
	if executor == "" {
		http.Error(w, "executor identity required", http.StatusUnauthorized)
		return
	}

	var body struct {
		TaskID  string `json:"taskId"`
		Outcome string `json:"outcome"`
		Detail  string `json:"detail"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.TaskID == "" {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	if err := h.Executor.Ack(executor, body.TaskID, body.Outcome, body.Detail); err != nil {
		if appErrors.IsValidation(err) {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// CheckSent lets the executor prune its local queue against the dedup
// ledger before attempting local delivery.
func (h *ExecutorHandler) CheckSent(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CampaignID int      `json:"campaignId"`
		Contacts   []string `json:"contacts"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	sent, err := h.Executor.CheckSent(body.CampaignID, body.Contacts)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"alreadySent": sent})
}
