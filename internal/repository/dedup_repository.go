package repository

import (
	"database/sql"

	"github.com/lib/pq"

	"github.com/funnelreach/dispatch-backend/internal/model"
)

// DedupRepositoryInterface is the durable at-most-once gate. Entries are
// write-once and never deleted for the lifetime of the campaign.
type DedupRepositoryInterface interface {
	TryClaim(campaignID int, channel model.Channel, contactHandle string) (bool, error)
	FilterSent(campaignID int, channel model.Channel, contacts []string) ([]string, error)
}

type DedupRepository struct {
	DB *sql.DB
}

// TryClaim records the (campaign, channel, contact) key and reports whether
// this call was the first. A single INSERT ... ON CONFLICT DO NOTHING keeps
// the check-and-insert atomic under concurrent scans of overlapping windows;
// a separate exists-check would race.
func (r *DedupRepository) TryClaim(campaignID int, channel model.Channel, contactHandle string) (bool, error) {
	query := `
        INSERT INTO dedup_entries (campaign_id, channel, contact_handle, created_at)
        VALUES ($1, $2, $3, NOW())
        ON CONFLICT (campaign_id, channel, contact_handle) DO NOTHING
    `
	res, err := r.DB.Exec(query, campaignID, channel, contactHandle)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// FilterSent returns the subset of contacts already present in the ledger,
// so the executor can prune its local queue before attempting delivery.
// campaignID 0 checks across all campaigns on the channel.
func (r *DedupRepository) FilterSent(campaignID int, channel model.Channel, contacts []string) ([]string, error) {
	if len(contacts) == 0 {
		return []string{}, nil
	}

	query := `SELECT DISTINCT contact_handle FROM dedup_entries WHERE channel=$1 AND contact_handle = ANY($2)`
	args := []interface{}{channel, pq.Array(contacts)}
	if campaignID != 0 {
		query += ` AND campaign_id=$3`
		args = append(args, campaignID)
	}

	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sent := []string{}
	for rows.Next() {
		var handle string
		if err := rows.Scan(&handle); err != nil {
			return nil, err
		}
		sent = append(sent, handle)
	}
	return sent, rows.Err()
}

var _ DedupRepositoryInterface = (*DedupRepository)(nil)
