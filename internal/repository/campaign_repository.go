package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	appErrors "github.com/funnelreach/dispatch-backend/internal/errors"
	"github.com/funnelreach/dispatch-backend/internal/model"
)

type CampaignRepositoryInterface interface {
	Create(c *model.Campaign) error
	Update(c *model.Campaign) error
	GetByID(id int) (*model.Campaign, error)
	ListCampaigns(offset, limit int, channel, status string) ([]*model.Campaign, int, error)
	ListActive() ([]*model.Campaign, error)
	UpdateStatus(campaignID int, status string) error
	GetCampaignStats(campaignID int) (map[string]int, error)
}

type CampaignRepository struct {
	DB *sql.DB
}

func (r *CampaignRepository) Create(c *model.Campaign) error {
	c.CreatedAt = time.Now()
	if c.Status == "" {
		c.Status = model.StatusDraft
	}
	segments, err := json.Marshal(c.Segments)
	if err != nil {
		return err
	}
	schedule, err := json.Marshal(c.Schedule)
	if err != nil {
		return err
	}
	query := `
        INSERT INTO campaigns (funnel_id, name, channel, status, segments, schedule_policy, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id
    `
	return r.DB.QueryRow(query, c.FunnelID, c.Name, c.Channel, c.Status, segments, schedule, c.CreatedAt).Scan(&c.ID)
}

func (r *CampaignRepository) Update(c *model.Campaign) error {
	segments, err := json.Marshal(c.Segments)
	if err != nil {
		return err
	}
	schedule, err := json.Marshal(c.Schedule)
	if err != nil {
		return err
	}
	query := `
        UPDATE campaigns
        SET name=$1, segments=$2, schedule_policy=$3, status=$4, updated_at=NOW()
        WHERE id=$5
    `
	_, err = r.DB.Exec(query, c.Name, segments, schedule, c.Status, c.ID)
	return err
}

func (r *CampaignRepository) UpdateStatus(campaignID int, status string) error {
	query := `UPDATE campaigns SET status=$1, updated_at=$2 WHERE id=$3`
	_, err := r.DB.Exec(query, status, time.Now(), campaignID)
	return err
}

func (r *CampaignRepository) GetByID(id int) (*model.Campaign, error) {
	query := `
        SELECT id, funnel_id, name, channel, status, segments, schedule_policy, created_at, updated_at
        FROM campaigns WHERE id=$1
    `
	c, err := scanCampaign(r.DB.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewCampaignNotFound(id)
		}
		return nil, err
	}
	return c, nil
}

func (r *CampaignRepository) ListActive() ([]*model.Campaign, error) {
	query := `
        SELECT id, funnel_id, name, channel, status, segments, schedule_policy, created_at, updated_at
        FROM campaigns WHERE status=$1 ORDER BY id
    `
	rows, err := r.DB.Query(query, model.StatusActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	campaigns := []*model.Campaign{}
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, rows.Err()
}

func (r *CampaignRepository) ListCampaigns(offset, limit int, channel, status string) ([]*model.Campaign, int, error) {
	campaigns := []*model.Campaign{}
	query := `SELECT id, funnel_id, name, channel, status, segments, schedule_policy, created_at, updated_at FROM campaigns WHERE 1=1`
	args := []interface{}{}
	argPos := 1

	if channel != "" {
		query += fmt.Sprintf(" AND channel=$%d", argPos)
		args = append(args, channel)
		argPos++
	}
	if status != "" {
		query += fmt.Sprintf(" AND status=$%d", argPos)
		args = append(args, status)
		argPos++
	}

	query += fmt.Sprintf(" ORDER BY id DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, limit, offset)

	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, 0, err
		}
		campaigns = append(campaigns, c)
	}

	countQuery := `SELECT COUNT(*) FROM campaigns WHERE 1=1`
	argsCount := []interface{}{}
	argPosCount := 1
	if channel != "" {
		countQuery += fmt.Sprintf(" AND channel=$%d", argPosCount)
		argsCount = append(argsCount, channel)
		argPosCount++
	}
	if status != "" {
		countQuery += fmt.Sprintf(" AND status=$%d", argPosCount)
		argsCount = append(argsCount, status)
	}

	var total int
	if err := r.DB.QueryRow(countQuery, argsCount...).Scan(&total); err != nil {
		return nil, 0, err
	}

	return campaigns, total, nil
}

// GetCampaignStats counts dispatch tasks by state.
func (r *CampaignRepository) GetCampaignStats(campaignID int) (map[string]int, error) {
	query := `SELECT state, COUNT(*) FROM dispatch_tasks WHERE campaign_id=$1 GROUP BY state`
	rows, err := r.DB.Query(query, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := map[string]int{
		model.TaskPending: 0,
		model.TaskClaimed: 0,
		model.TaskSent:    0,
		model.TaskFailed:  0,
	}
	for rows.Next() {
		var state string
		var count int
		if err := rows.Scan(&state, &count); err != nil {
			return nil, err
		}
		stats[state] = count
	}
	return stats, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCampaign(row rowScanner) (*model.Campaign, error) {
	var c model.Campaign
	var segments, schedule []byte
	if err := row.Scan(&c.ID, &c.FunnelID, &c.Name, &c.Channel, &c.Status, &segments, &schedule, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(segments, &c.Segments); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(schedule, &c.Schedule); err != nil {
		return nil, err
	}
	return &c, nil
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)
