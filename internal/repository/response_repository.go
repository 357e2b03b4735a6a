package repository

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/funnelreach/dispatch-backend/internal/model"
)

// ResponseRepositoryInterface defines what the engine needs from the
// response store: append on intake, incremental reads for scans.
type ResponseRepositoryInterface interface {
	Create(r *model.Response) error
	ListSince(funnelID int, afterTS time.Time, afterID int64, limit int) ([]model.Response, error)
}

type ResponseRepository struct {
	DB *sql.DB
}

func (r *ResponseRepository) Create(resp *model.Response) error {
	if resp.SubmittedAt.IsZero() {
		resp.SubmittedAt = time.Now().UTC()
	}
	answers, err := json.Marshal(resp.Answers)
	if err != nil {
		return err
	}
	query := `
        INSERT INTO responses (funnel_id, completion_state, answers, submitted_at)
        VALUES ($1, $2, $3, $4)
        RETURNING id
    `
	return r.DB.QueryRow(query, resp.FunnelID, resp.CompletionState, answers, resp.SubmittedAt).Scan(&resp.ID)
}

// ListSince returns responses strictly past the (submitted_at, id)
// checkpoint, oldest first with id as the tiebreaker, so the caller can
// resume from the last row it observed. The row-value comparison keeps
// same-timestamp rows reachable when a batch boundary splits them.
func (r *ResponseRepository) ListSince(funnelID int, afterTS time.Time, afterID int64, limit int) ([]model.Response, error) {
	query := `
        SELECT id, funnel_id, completion_state, answers, submitted_at
        FROM responses
        WHERE funnel_id = $1 AND (submitted_at, id) > ($2, $3)
        ORDER BY submitted_at ASC, id ASC
        LIMIT $4
    `
	rows, err := r.DB.Query(query, funnelID, afterTS, afterID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	responses := []model.Response{}
	for rows.Next() {
		var resp model.Response
		var answers []byte
		if err := rows.Scan(&resp.ID, &resp.FunnelID, &resp.CompletionState, &answers, &resp.SubmittedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(answers, &resp.Answers); err != nil {
			return nil, err
		}
		responses = append(responses, resp)
	}
	return responses, rows.Err()
}

var _ ResponseRepositoryInterface = (*ResponseRepository)(nil)
