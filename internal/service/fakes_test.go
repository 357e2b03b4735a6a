package service_test

import (
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	appErrors "github.com/funnelreach/dispatch-backend/internal/errors"
	"github.com/funnelreach/dispatch-backend/internal/model"
)

// In-memory stand-ins for the repositories. They mirror the atomicity the
// real SQL gives us: TryClaim and Increment hold a lock across their
// read-modify-write, and Pull hands each task to exactly one caller.

type fakeResponseRepo struct {
	mu        sync.Mutex
	responses []model.Response
}

func (f *fakeResponseRepo) Create(r *model.Response) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r.ID = int64(len(f.responses) + 1)
	f.responses = append(f.responses, *r)
	return nil
}

func (f *fakeResponseRepo) ListSince(funnelID int, afterTS time.Time, afterID int64, limit int) ([]model.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Response{}
	for _, r := range f.responses {
		past := r.SubmittedAt.After(afterTS) || (r.SubmittedAt.Equal(afterTS) && r.ID > afterID)
		if r.FunnelID == funnelID && past {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].SubmittedAt.Equal(out[j].SubmittedAt) {
			return out[i].SubmittedAt.Before(out[j].SubmittedAt)
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type cursorCheckpoint struct {
	ts time.Time
	id int64
}

func (c cursorCheckpoint) before(other cursorCheckpoint) bool {
	if !c.ts.Equal(other.ts) {
		return c.ts.Before(other.ts)
	}
	return c.id < other.id
}

type fakeCursorRepo struct {
	mu      sync.Mutex
	cursors map[string]cursorCheckpoint
}

func newFakeCursorRepo() *fakeCursorRepo {
	return &fakeCursorRepo{cursors: map[string]cursorCheckpoint{}}
}

func cursorKey(campaignID int, channel model.Channel) string {
	return string(channel) + "|" + strconv.Itoa(campaignID)
}

func (f *fakeCursorRepo) Get(campaignID int, channel model.Channel) (time.Time, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.cursors[cursorKey(campaignID, channel)]
	return c.ts, c.id, nil
}

func (f *fakeCursorRepo) Advance(campaignID int, channel model.Channel, ts time.Time, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := cursorKey(campaignID, channel)
	next := cursorCheckpoint{ts: ts, id: id}
	if f.cursors[key].before(next) {
		f.cursors[key] = next
	}
	return nil
}

type fakeDedupRepo struct {
	mu      sync.Mutex
	entries map[string]bool
}

func newFakeDedupRepo() *fakeDedupRepo {
	return &fakeDedupRepo{entries: map[string]bool{}}
}

func dedupKey(campaignID int, channel model.Channel, contact string) string {
	return strconv.Itoa(campaignID) + "|" + string(channel) + "|" + contact
}

func (f *fakeDedupRepo) TryClaim(campaignID int, channel model.Channel, contact string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := dedupKey(campaignID, channel, contact)
	if f.entries[key] {
		return false, nil
	}
	f.entries[key] = true
	return true, nil
}

func (f *fakeDedupRepo) FilterSent(campaignID int, channel model.Channel, contacts []string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sent := []string{}
	for _, c := range contacts {
		if campaignID != 0 {
			if f.entries[dedupKey(campaignID, channel, c)] {
				sent = append(sent, c)
			}
			continue
		}
		for key := range f.entries {
			if key == dedupKey(campaignID, channel, c) || strings.HasSuffix(key, "|"+string(channel)+"|"+c) {
				sent = append(sent, c)
				break
			}
		}
	}
	return sent, nil
}

type fakeTaskRepo struct {
	mu    sync.Mutex
	tasks map[string]*model.DispatchTask
}

func newFakeTaskRepo() *fakeTaskRepo {
	return &fakeTaskRepo{tasks: map[string]*model.DispatchTask{}}
}

func (f *fakeTaskRepo) Create(t *model.DispatchTask) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.State == "" {
		t.State = model.TaskPending
	}
	cp := *t
	f.tasks[t.ID] = &cp
	return nil
}

func (f *fakeTaskRepo) GetByID(id string) (*model.DispatchTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTaskRepo) Pull(executor string, channels []model.Channel, maxItems int, now time.Time, lease time.Duration, maxAttempts int) ([]model.DispatchTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	allowed := map[model.Channel]bool{}
	for _, c := range channels {
		allowed[c] = true
	}

	candidates := []*model.DispatchTask{}
	for _, t := range f.tasks {
		if !allowed[t.Channel] {
			continue
		}
		due := t.State == model.TaskPending && !t.ScheduledAt.After(now)
		expired := t.State == model.TaskClaimed && t.ClaimedAt != nil && !t.ClaimedAt.After(now.Add(-lease))
		if due || expired {
			candidates = append(candidates, t)
		}
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].ScheduledAt.Before(candidates[j].ScheduledAt) })

	claimed := []model.DispatchTask{}
	for _, t := range candidates {
		if len(claimed) >= maxItems {
			break
		}
		if t.State == model.TaskClaimed && t.Attempt >= maxAttempts {
			t.State = model.TaskFailed
			t.LastError = "claim lease expired"
			continue
		}
		t.State = model.TaskClaimed
		t.ClaimedBy = &executor
		at := now
		t.ClaimedAt = &at
		t.Attempt++
		claimed = append(claimed, *t)
	}
	return claimed, nil
}

func (f *fakeTaskRepo) Ack(executor, taskID, outcome, detail string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[taskID]
	if !ok {
		return nil
	}
	if t.State != model.TaskClaimed || t.ClaimedBy == nil || *t.ClaimedBy != executor {
		return nil
	}
	t.State = outcome
	t.LastError = detail
	return nil
}

type fakeCounterRepo struct {
	mu     sync.Mutex
	counts map[string]int
}

func newFakeCounterRepo() *fakeCounterRepo {
	return &fakeCounterRepo{counts: map[string]int{}}
}

func (f *fakeCounterRepo) Increment(campaignID int, day string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := strconv.Itoa(campaignID) + "|" + day
	f.counts[key]++
	return f.counts[key], nil
}

type fakeCampaignRepo struct {
	mu        sync.Mutex
	campaigns map[int]*model.Campaign
}

func newFakeCampaignRepo(campaigns ...*model.Campaign) *fakeCampaignRepo {
	f := &fakeCampaignRepo{campaigns: map[int]*model.Campaign{}}
	for _, c := range campaigns {
		f.campaigns[c.ID] = c
	}
	return f
}

func (f *fakeCampaignRepo) Create(c *model.Campaign) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c.ID = len(f.campaigns) + 1
	f.campaigns[c.ID] = c
	return nil
}

func (f *fakeCampaignRepo) Update(c *model.Campaign) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.campaigns[c.ID] = c
	return nil
}

func (f *fakeCampaignRepo) GetByID(id int) (*model.Campaign, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.campaigns[id]
	if !ok {
		return nil, appErrors.NewCampaignNotFound(id)
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCampaignRepo) ListCampaigns(offset, limit int, channel, status string) ([]*model.Campaign, int, error) {
	return []*model.Campaign{}, 0, nil
}

func (f *fakeCampaignRepo) ListActive() ([]*model.Campaign, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*model.Campaign{}
	for _, c := range f.campaigns {
		if c.Status == model.StatusActive {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeCampaignRepo) UpdateStatus(campaignID int, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.campaigns[campaignID]; ok {
		c.Status = status
	}
	return nil
}

func (f *fakeCampaignRepo) GetCampaignStats(campaignID int) (map[string]int, error) {
	return map[string]int{}, nil
}

type fakeQueue struct {
	mu        sync.Mutex
	published []any
}

func (f *fakeQueue) Publish(topic string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, payload)
	return nil
}
