package repository

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/funnelreach/dispatch-backend/internal/model"
)

type TaskRepositoryInterface interface {
	Create(t *model.DispatchTask) error
	GetByID(id string) (*model.DispatchTask, error)
	Pull(executor string, channels []model.Channel, maxItems int, now time.Time, lease time.Duration, maxAttempts int) ([]model.DispatchTask, error)
	Ack(executor, taskID, outcome, detail string) error
}

type TaskRepository struct {
	DB *sql.DB
}

func (r *TaskRepository) Create(t *model.DispatchTask) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := time.Now()
	t.CreatedAt = now
	t.UpdatedAt = now
	if t.State == "" {
		t.State = model.TaskPending
	}
	query := `
        INSERT INTO dispatch_tasks
        (id, campaign_id, channel, contact_handle, rendered_message, state, attempt, scheduled_at, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
    `
	_, err := r.DB.Exec(query,
		t.ID, t.CampaignID, t.Channel, t.ContactHandle, t.RenderedMessage,
		t.State, t.Attempt, t.ScheduledAt, t.CreatedAt, t.UpdatedAt,
	)
	return err
}

func (r *TaskRepository) GetByID(id string) (*model.DispatchTask, error) {
	query := `
        SELECT id, campaign_id, channel, contact_handle, rendered_message, state, attempt,
               scheduled_at, claimed_by, claimed_at, last_error, created_at, updated_at
        FROM dispatch_tasks WHERE id=$1
    `
	var t model.DispatchTask
	err := r.DB.QueryRow(query, id).Scan(
		&t.ID, &t.CampaignID, &t.Channel, &t.ContactHandle, &t.RenderedMessage,
		&t.State, &t.Attempt, &t.ScheduledAt, &t.ClaimedBy, &t.ClaimedAt,
		&t.LastError, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

// Pull atomically claims up to maxItems tasks that are due: pending tasks
// whose scheduled_at has passed, plus claimed tasks whose lease expired.
// FOR UPDATE SKIP LOCKED makes the claim transition the mutual-exclusion
// point, so two concurrent callers never receive the same task. An expired
// claim past the attempt ceiling is failed terminally instead of returned.
func (r *TaskRepository) Pull(executor string, channels []model.Channel, maxItems int, now time.Time, lease time.Duration, maxAttempts int) ([]model.DispatchTask, error) {
	tx, err := r.DB.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	chans := make([]string, len(channels))
	for i, c := range channels {
		chans[i] = string(c)
	}
	expiredBefore := now.Add(-lease)

	query := `
        SELECT id, campaign_id, channel, contact_handle, rendered_message, state, attempt,
               scheduled_at, claimed_by, claimed_at, last_error, created_at, updated_at
        FROM dispatch_tasks
        WHERE channel = ANY($1)
          AND (
            (state = 'pending' AND scheduled_at <= $2)
            OR (state = 'claimed' AND claimed_at <= $3)
          )
        ORDER BY scheduled_at ASC
        LIMIT $4
        FOR UPDATE SKIP LOCKED
    `
	rows, err := tx.Query(query, pq.Array(chans), now, expiredBefore, maxItems)
	if err != nil {
		return nil, err
	}

	candidates := []model.DispatchTask{}
	for rows.Next() {
		var t model.DispatchTask
		if err := rows.Scan(
			&t.ID, &t.CampaignID, &t.Channel, &t.ContactHandle, &t.RenderedMessage,
			&t.State, &t.Attempt, &t.ScheduledAt, &t.ClaimedBy, &t.ClaimedAt,
			&t.LastError, &t.CreatedAt, &t.UpdatedAt,
		); err != nil {
			rows.Close()
			return nil, err
		}
		candidates = append(candidates, t)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	claimed := []model.DispatchTask{}
	for _, t := range candidates {
		if t.State == model.TaskClaimed && t.Attempt >= maxAttempts {
			// Lease expired too many times; give up on this task.
			_, err := tx.Exec(
				`UPDATE dispatch_tasks SET state='failed', last_error='claim lease expired', updated_at=$2 WHERE id=$1`,
				t.ID, now,
			)
			if err != nil {
				return nil, err
			}
			continue
		}

		_, err := tx.Exec(
			`UPDATE dispatch_tasks SET state='claimed', claimed_by=$2, claimed_at=$3, attempt=attempt+1, updated_at=$3 WHERE id=$1`,
			t.ID, executor, now,
		)
		if err != nil {
			return nil, err
		}

		t.State = model.TaskClaimed
		t.ClaimedBy = &executor
		claimedAt := now
		t.ClaimedAt = &claimedAt
		t.Attempt++
		claimed = append(claimed, t)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return claimed, nil
}

// Ack transitions a claimed task the executor owns to a terminal state.
// Acks for tasks not claimed by this executor, already terminal, or unknown
// match zero rows and are ignored, so executors can retry acknowledgements
// after their own network failures.
func (r *TaskRepository) Ack(executor, taskID, outcome, detail string) error {
	query := `
        UPDATE dispatch_tasks
        SET state=$3, last_error=$4, updated_at=NOW()
        WHERE id=$1 AND state='claimed' AND claimed_by=$2
    `
	_, err := r.DB.Exec(query, taskID, executor, outcome, detail)
	return err
}

var _ TaskRepositoryInterface = (*TaskRepository)(nil)
