package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funnelreach/dispatch-backend/internal/auth"
	"github.com/funnelreach/dispatch-backend/internal/handler"
	"github.com/funnelreach/dispatch-backend/internal/model"
	"github.com/funnelreach/dispatch-backend/internal/service"
)

type stubTaskRepo struct {
	mu    sync.Mutex
	tasks map[string]*model.DispatchTask
	acks  []string
}

func newStubTaskRepo(tasks ...*model.DispatchTask) *stubTaskRepo {
	s := &stubTaskRepo{tasks: map[string]*model.DispatchTask{}}
	for _, t := range tasks {
		s.tasks[t.ID] = t
	}
	return s
}

func (s *stubTaskRepo) Create(t *model.DispatchTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[t.ID] = t
	return nil
}

func (s *stubTaskRepo) GetByID(id string) (*model.DispatchTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tasks[id], nil
}

func (s *stubTaskRepo) Pull(executor string, channels []model.Channel, maxItems int, now time.Time, lease time.Duration, maxAttempts int) ([]model.DispatchTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.DispatchTask{}
	for _, t := range s.tasks {
		if len(out) >= maxItems {
			break
		}
		if t.State != model.TaskPending || t.ScheduledAt.After(now) {
			continue
		}
		t.State = model.TaskClaimed
		t.ClaimedBy = &executor
		out = append(out, *t)
	}
	return out, nil
}

func (s *stubTaskRepo) Ack(executor, taskID, outcome, detail string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.acks = append(s.acks, taskID+"|"+outcome)
	return nil
}

type stubDedupRepo struct {
	sent map[string]bool
}

func (s *stubDedupRepo) TryClaim(campaignID int, channel model.Channel, contact string) (bool, error) {
	return true, nil
}

func (s *stubDedupRepo) FilterSent(campaignID int, channel model.Channel, contacts []string) ([]string, error) {
	out := []string{}
	for _, c := range contacts {
		if s.sent[c] {
			out = append(out, c)
		}
	}
	return out, nil
}

func executorRequest(t *testing.T, method, target, identity string, body any) *http.Request {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, target, bytes.NewReader(b))
	if identity != "" {
		req = req.WithContext(auth.WithExecutor(req.Context(), identity))
	}
	return req
}

func newExecutorHandler(tasks *stubTaskRepo, dedup *stubDedupRepo) *handler.ExecutorHandler {
	if dedup == nil {
		dedup = &stubDedupRepo{}
	}
	return &handler.ExecutorHandler{
		Executor: service.NewExecutorService(tasks, dedup, 5*time.Minute, 3),
	}
}

func TestPullReturnsClaimedTasks(t *testing.T) {
	tasks := newStubTaskRepo(&model.DispatchTask{
		ID:              "t-1",
		Channel:         model.ChannelWhatsApp,
		ContactHandle:   "+5511999990000",
		RenderedMessage: "Oi Ana!",
		State:           model.TaskPending,
		ScheduledAt:     time.Now().Add(-time.Minute),
	})
	h := newExecutorHandler(tasks, nil)

	rec := httptest.NewRecorder()
	h.Pull(rec, executorRequest(t, http.MethodPost, "/executor/pull", "exec-a", map[string]int{"maxItems": 5}))

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Tasks []struct {
			TaskID          string `json:"taskId"`
			ContactHandle   string `json:"contactHandle"`
			RenderedMessage string `json:"renderedMessage"`
		} `json:"tasks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Tasks, 1)
	assert.Equal(t, "t-1", resp.Tasks[0].TaskID)
	assert.Equal(t, "+5511999990000", resp.Tasks[0].ContactHandle)
	assert.Equal(t, "Oi Ana!", resp.Tasks[0].RenderedMessage)
}

func TestPullRequiresIdentity(t *testing.T) {
	h := newExecutorHandler(newStubTaskRepo(), nil)

	rec := httptest.NewRecorder()
	h.Pull(rec, executorRequest(t, http.MethodPost, "/executor/pull", "", map[string]int{"maxItems": 5}))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAck(t *testing.T) {
	tasks := newStubTaskRepo()
	h := newExecutorHandler(tasks, nil)

	rec := httptest.NewRecorder()
	h.Ack(rec, executorRequest(t, http.MethodPost, "/executor/ack", "exec-a", map[string]string{
		"taskId":  "t-1",
		"outcome": model.TaskSent,
	}))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"t-1|sent"}, tasks.acks)
}

func TestAckRejectsUnknownOutcome(t *testing.T) {
	h := newExecutorHandler(newStubTaskRepo(), nil)

	rec := httptest.NewRecorder()
	h.Ack(rec, executorRequest(t, http.MethodPost, "/executor/ack", "exec-a", map[string]string{
		"taskId":  "t-1",
		"outcome": "maybe",
	}))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestAckRequiresTaskID(t *testing.T) {
	h := newExecutorHandler(newStubTaskRepo(), nil)

	rec := httptest.NewRecorder()
	h.Ack(rec, executorRequest(t, http.MethodPost, "/executor/ack", "exec-a", map[string]string{
		"outcome": model.TaskSent,
	}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckSent(t *testing.T) {
	dedup := &stubDedupRepo{sent: map[string]bool{"+5511999990000": true}}
	h := newExecutorHandler(newStubTaskRepo(), dedup)

	rec := httptest.NewRecorder()
	h.CheckSent(rec, executorRequest(t, http.MethodPost, "/executor/check-sent", "exec-a", map[string]any{
		"campaignId": 1,
		"contacts":   []string{"+5511999990000", "+5511888880000"},
	}))

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		AlreadySent []string `json:"alreadySent"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"+5511999990000"}, resp.AlreadySent)
}
