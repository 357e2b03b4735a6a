// internal/service/executor_service.go
package service

import (
	"time"

	appErrors "github.com/funnelreach/dispatch-backend/internal/errors"
	"github.com/funnelreach/dispatch-backend/internal/model"
	"github.com/funnelreach/dispatch-backend/internal/repository"
)

const (
	defaultPullItems = 10
	maxPullItems     = 50
)

// ExecutorService is the pull/ack bridge for the remote WhatsApp executor.
// The executor runs inside a third-party web session the server cannot
// reach, so it polls for work and reports outcomes when it can; the claim
// lease is the only liveness signal the server gets.
type ExecutorService struct {
	TaskRepo    repository.TaskRepositoryInterface
	DedupRepo   repository.DedupRepositoryInterface
	Lease       time.Duration
	MaxAttempts int
	Now         func() time.Time
}

func NewExecutorService(tasks repository.TaskRepositoryInterface, dedup repository.DedupRepositoryInterface, lease time.Duration, maxAttempts int) *ExecutorService {
	if lease <= 0 {
		lease = 5 * time.Minute
	}
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &ExecutorService{
		TaskRepo:    tasks,
		DedupRepo:   dedup,
		Lease:       lease,
		MaxAttempts: maxAttempts,
		Now:         time.Now,
	}
}

// Pull claims up to maxItems due whatsapp tasks for this executor,
// including tasks whose previous claim lease expired.
func (s *ExecutorService) Pull(executor string, maxItems int) ([]model.DispatchTask, error) {
	if maxItems <= 0 {
		maxItems = defaultPullItems
	}
	if maxItems > maxPullItems {
		maxItems = maxPullItems
	}
	return s.TaskRepo.Pull(executor, []model.Channel{model.ChannelWhatsApp}, maxItems, s.Now(), s.Lease, s.MaxAttempts)
}

// Ack records the outcome of a claimed task. Repeats, acks for tasks owned
// by someone else, and acks for already-terminal tasks are ignored without
// error because the executor retries acknowledgements after its own network
// failures.
func (s *ExecutorService) Ack(executor, taskID, outcome, detail string) error {
	if outcome != model.TaskSent && outcome != model.TaskFailed {
		return appErrors.NewValidation("unknown ack outcome %q", outcome)
	}
	return s.TaskRepo.Ack(executor, taskID, outcome, detail)
}

// CheckSent pre-filters the executor's local queue against the dedup
// ledger: the returned contacts were already attempted and must be skipped.
func (s *ExecutorService) CheckSent(campaignID int, contacts []string) ([]string, error) {
	return s.DedupRepo.FilterSent(campaignID, model.ChannelWhatsApp, contacts)
}
