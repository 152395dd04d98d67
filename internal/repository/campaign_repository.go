package repository

import (
    "database/sql"
    "time"

    appErrors "github.com/unclebandit/mailblast-backend/internal/errors"
    "github.com/unclebandit/mailblast-backend/internal/model"
)

type CampaignRepositoryInterface interface {
    Create(c *model.Campaign) error
    GetByID(id int) (*model.Campaign, error)
    GetStatus(id int) (string, error)
    ListByUser(userID int) ([]*model.Campaign, error)
    UpdateStatus(campaignID int, status string) error
    MarkStarted(campaignID int) error
    MarkCompleted(campaignID, sent, failed int) error
    SetTotalRecipients(campaignID, total int) error
    Delete(campaignID, userID int) error
}

type CampaignRepository struct {
    DB *sql.DB
}

func (r *CampaignRepository) Create(c *model.Campaign) error {
    c.CreatedAt = time.Now()
    if c.Status == "" {
        c.Status = model.CampaignPending
    }
    query := `
        INSERT INTO campaigns (user_id, name, subject, html_content, status, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id
    `
    return r.DB.QueryRow(query, c.UserID, c.Name, c.Subject, c.HTMLContent, c.Status, c.CreatedAt).Scan(&c.ID)
}

func (r *CampaignRepository) GetByID(id int) (*model.Campaign, error) {
    query := `
        SELECT id, user_id, name, subject, html_content, status,
               total_recipients, emails_sent, emails_failed,
               created_at, started_at, completed_at
        FROM campaigns WHERE id=$1
    `
    var c model.Campaign
    err := r.DB.QueryRow(query, id).Scan(
        &c.ID, &c.UserID, &c.Name, &c.Subject, &c.HTMLContent, &c.Status,
        &c.TotalRecipients, &c.EmailsSent, &c.EmailsFailed,
        &c.CreatedAt, &c.StartedAt, &c.CompletedAt,
    )
    if err != nil {
        if err == sql.ErrNoRows {
            return nil, appErrors.NewCampaignNotFound(id)
        }
        return nil, err
    }
    return &c, nil
}

// GetStatus reads only the persisted status. The dispatcher calls this once
// per recipient, so it stays a single-column query.
func (r *CampaignRepository) GetStatus(id int) (string, error) {
    var status string
    err := r.DB.QueryRow(`SELECT status FROM campaigns WHERE id=$1`, id).Scan(&status)
    if err != nil {
        if err == sql.ErrNoRows {
            return "", appErrors.NewCampaignNotFound(id)
        }
        return "", err
    }
    return status, nil
}

func (r *CampaignRepository) ListByUser(userID int) ([]*model.Campaign, error) {
    query := `
        SELECT id, user_id, name, subject, html_content, status,
               total_recipients, emails_sent, emails_failed,
               created_at, started_at, completed_at
        FROM campaigns
        WHERE user_id=$1
        ORDER BY created_at DESC
    `
    rows, err := r.DB.Query(query, userID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    campaigns := []*model.Campaign{}
    for rows.Next() {
        c := &model.Campaign{}
        if err := rows.Scan(
            &c.ID, &c.UserID, &c.Name, &c.Subject, &c.HTMLContent, &c.Status,
            &c.TotalRecipients, &c.EmailsSent, &c.EmailsFailed,
            &c.CreatedAt, &c.StartedAt, &c.CompletedAt,
        ); err != nil {
            return nil, err
        }
        campaigns = append(campaigns, c)
    }
    return campaigns, rows.Err()
}

func (r *CampaignRepository) UpdateStatus(campaignID int, status string) error {
    query := `UPDATE campaigns SET status=$1 WHERE id=$2`
    _, err := r.DB.Exec(query, status, campaignID)
    return err
}

func (r *CampaignRepository) MarkStarted(campaignID int) error {
    query := `UPDATE campaigns SET status=$1, started_at=NOW() WHERE id=$2`
    _, err := r.DB.Exec(query, model.CampaignRunning, campaignID)
    return err
}

func (r *CampaignRepository) MarkCompleted(campaignID, sent, failed int) error {
    query := `
        UPDATE campaigns
        SET status=$1, emails_sent=$2, emails_failed=$3, completed_at=NOW()
        WHERE id=$4
    `
    _, err := r.DB.Exec(query, model.CampaignCompleted, sent, failed, campaignID)
    return err
}

func (r *CampaignRepository) SetTotalRecipients(campaignID, total int) error {
    query := `UPDATE campaigns SET total_recipients=$1 WHERE id=$2`
    _, err := r.DB.Exec(query, total, campaignID)
    return err
}

func (r *CampaignRepository) Delete(campaignID, userID int) error {
    res, err := r.DB.Exec(`DELETE FROM campaigns WHERE id=$1 AND user_id=$2`, campaignID, userID)
    if err != nil {
        return err
    }
    affected, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if affected == 0 {
        return appErrors.NewCampaignNotFound(campaignID)
    }
    return nil
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)
