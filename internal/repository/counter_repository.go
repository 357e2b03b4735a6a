package repository

import (
	"database/sql"
)

// CounterRepositoryInterface is the namespaced atomic counter behind the
// per-day scheduling cap, keyed by (campaign, calendar day).
type CounterRepositoryInterface interface {
	// Increment bumps the counter for the day and returns the new value.
	// The read-modify-write is a single statement, safe under concurrent
	// scanners.
	Increment(campaignID int, day string) (int, error)
}

type CounterRepository struct {
	DB *sql.DB
}

func (r *CounterRepository) Increment(campaignID int, day string) (int, error) {
	query := `
        INSERT INTO schedule_counters (campaign_id, day, scheduled)
        VALUES ($1, $2, 1)
        ON CONFLICT (campaign_id, day)
        DO UPDATE SET scheduled = schedule_counters.scheduled + 1
        RETURNING scheduled
    `
	var n int
	err := r.DB.QueryRow(query, campaignID, day).Scan(&n)
	return n, err
}

var _ CounterRepositoryInterface = (*CounterRepository)(nil)
