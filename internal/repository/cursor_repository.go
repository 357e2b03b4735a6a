package repository

import (
	"database/sql"
	"time"

	"github.com/funnelreach/dispatch-backend/internal/model"
)

// CursorRepositoryInterface tracks the incremental-scan checkpoint per
// (campaign, channel). The checkpoint is the (submitted_at, response id)
// pair, so responses sharing a timestamp survive a batch boundary. The
// cursor bounds re-scan cost; the dedup ledger is the correctness boundary,
// so re-delivering a window after a crash is fine.
type CursorRepositoryInterface interface {
	Get(campaignID int, channel model.Channel) (time.Time, int64, error)
	Advance(campaignID int, channel model.Channel, ts time.Time, id int64) error
}

type CursorRepository struct {
	DB *sql.DB
}

// Get returns the zero checkpoint when no cursor exists yet, which makes
// the first scan cover the full history.
func (r *CursorRepository) Get(campaignID int, channel model.Channel) (time.Time, int64, error) {
	query := `SELECT last_seen, last_seen_id FROM sync_cursors WHERE campaign_id=$1 AND channel=$2`
	var ts time.Time
	var id int64
	err := r.DB.QueryRow(query, campaignID, channel).Scan(&ts, &id)
	if err != nil {
		if err == sql.ErrNoRows {
			return time.Time{}, 0, nil
		}
		return time.Time{}, 0, err
	}
	return ts, id, nil
}

// Advance moves the cursor forward, never back. The row-value comparison
// keeps the update monotonic even if two scans of the same pair race.
func (r *CursorRepository) Advance(campaignID int, channel model.Channel, ts time.Time, id int64) error {
	query := `
        INSERT INTO sync_cursors (campaign_id, channel, last_seen, last_seen_id)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (campaign_id, channel)
        DO UPDATE SET last_seen = EXCLUDED.last_seen, last_seen_id = EXCLUDED.last_seen_id
        WHERE (EXCLUDED.last_seen, EXCLUDED.last_seen_id) > (sync_cursors.last_seen, sync_cursors.last_seen_id)
    `
	_, err := r.DB.Exec(query, campaignID, channel, ts, id)
	return err
}

var _ CursorRepositoryInterface = (*CursorRepository)(nil)
