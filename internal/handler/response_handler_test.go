package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funnelreach/dispatch-backend/internal/handler"
	"github.com/funnelreach/dispatch-backend/internal/model"
)

type stubResponseRepo struct {
	created []*model.Response
}

func (s *stubResponseRepo) Create(r *model.Response) error {
	r.ID = int64(len(s.created) + 1)
	s.created = append(s.created, r)
	return nil
}

func (s *stubResponseRepo) ListSince(funnelID int, afterTS time.Time, afterID int64, limit int) ([]model.Response, error) {
	return nil, nil
}

func intakeBody(t *testing.T, body any) *bytes.Reader {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	return bytes.NewReader(b)
}

func TestIntake(t *testing.T) {
	repo := &stubResponseRepo{}
	h := &handler.ResponseHandler{Responses: repo}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/responses", intakeBody(t, map[string]any{
		"funnel_id":        42,
		"completion_state": model.AudienceCompleted,
		"answers": []map[string]string{
			{"field": "telefone", "type": "phone", "value": "+5511999990000"},
			{"field": "objetivo", "type": "choice", "value": "Emagrecer"},
		},
	}))
	h.Intake(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, repo.created, 1)
	assert.Equal(t, 42, repo.created[0].FunnelID)
	assert.Equal(t, model.AudienceCompleted, repo.created[0].CompletionState)
	require.Len(t, repo.created[0].Answers, 2)
	assert.Equal(t, "telefone", repo.created[0].Answers[0].Field)

	var resp struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(1), resp.ID)
}

func TestIntakeRequiresFunnelID(t *testing.T) {
	h := &handler.ResponseHandler{Responses: &stubResponseRepo{}}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/responses", intakeBody(t, map[string]any{
		"completion_state": model.AudienceCompleted,
	}))
	h.Intake(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIntakeRejectsUnknownCompletionState(t *testing.T) {
	h := &handler.ResponseHandler{Responses: &stubResponseRepo{}}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/responses", intakeBody(t, map[string]any{
		"funnel_id":        42,
		"completion_state": "halfway-ish",
	}))
	h.Intake(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIntakeRejectsMalformedBody(t *testing.T) {
	h := &handler.ResponseHandler{Responses: &stubResponseRepo{}}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/responses", bytes.NewReader([]byte("{not json")))
	h.Intake(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
