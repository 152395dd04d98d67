package repository

import (
    "database/sql"
    "time"

    "github.com/unclebandit/mailblast-backend/internal/model"
)

type RetryRepositoryInterface interface {
    Create(campaignID int, retryAt time.Time) error
    HasPending(campaignID int) (bool, error)
    Due(now time.Time) ([]*model.RetryEntry, error)
    MarkProcessing(id int) error
    UpdateStatus(id int, status string) error
}

type RetryRepository struct {
    DB *sql.DB
}

func (r *RetryRepository) Create(campaignID int, retryAt time.Time) error {
    query := `
        INSERT INTO campaign_retry_queue (campaign_id, retry_at, status)
        VALUES ($1, $2, 'pending')
    `
    _, err := r.DB.Exec(query, campaignID, retryAt)
    return err
}

// HasPending reports whether the campaign already has an unresolved entry.
// Callers check this before Create so a campaign is queued at most once.
func (r *RetryRepository) HasPending(campaignID int) (bool, error) {
    var count int
    err := r.DB.QueryRow(
        `SELECT COUNT(*) FROM campaign_retry_queue WHERE campaign_id=$1 AND status='pending'`,
        campaignID,
    ).Scan(&count)
    return count > 0, err
}

// Due returns pending entries whose retry_at has elapsed and whose campaign
// is still paused or running.
func (r *RetryRepository) Due(now time.Time) ([]*model.RetryEntry, error) {
    query := `
        SELECT crq.id, crq.campaign_id, crq.retry_at, crq.status, crq.created_at, crq.processed_at
        FROM campaign_retry_queue crq
        JOIN campaigns c ON crq.campaign_id = c.id
        WHERE crq.status = 'pending'
          AND crq.retry_at <= $1
          AND c.status IN ('paused', 'running')
        ORDER BY crq.retry_at
    `
    rows, err := r.DB.Query(query, now)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    entries := []*model.RetryEntry{}
    for rows.Next() {
        e := &model.RetryEntry{}
        if err := rows.Scan(&e.ID, &e.CampaignID, &e.RetryAt, &e.Status, &e.CreatedAt, &e.ProcessedAt); err != nil {
            return nil, err
        }
        entries = append(entries, e)
    }
    return entries, rows.Err()
}

func (r *RetryRepository) MarkProcessing(id int) error {
    query := `UPDATE campaign_retry_queue SET status='processing', processed_at=NOW() WHERE id=$1`
    _, err := r.DB.Exec(query, id)
    return err
}

func (r *RetryRepository) UpdateStatus(id int, status string) error {
    query := `UPDATE campaign_retry_queue SET status=$1 WHERE id=$2`
    _, err := r.DB.Exec(query, status, id)
    return err
}

var _ RetryRepositoryInterface = (*RetryRepository)(nil)
