package repository

import (
    "database/sql"
    "time"

    "github.com/unclebandit/mailblast-backend/internal/model"
)

type EmailLogRepositoryInterface interface {
    Create(l *model.EmailLog) error
    ListByCampaign(campaignID int) ([]*model.EmailLog, error)
}

type EmailLogRepository struct {
    DB *sql.DB
}

func (r *EmailLogRepository) Create(l *model.EmailLog) error {
    l.CreatedAt = time.Now()
    query := `
        INSERT INTO email_logs (campaign_id, recipient_id, smtp_server_id, email, status, message_id, error_message, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING id
    `
    return r.DB.QueryRow(query,
        l.CampaignID, l.RecipientID, l.SMTPServerID, l.Email, l.Status, l.MessageID, l.ErrorMessage, l.CreatedAt,
    ).Scan(&l.ID)
}

func (r *EmailLogRepository) ListByCampaign(campaignID int) ([]*model.EmailLog, error) {
    query := `
        SELECT id, campaign_id, recipient_id, smtp_server_id, email, status, message_id, error_message, created_at
        FROM email_logs
        WHERE campaign_id=$1
        ORDER BY id
    `
    rows, err := r.DB.Query(query, campaignID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    logs := []*model.EmailLog{}
    for rows.Next() {
        l := &model.EmailLog{}
        if err := rows.Scan(
            &l.ID, &l.CampaignID, &l.RecipientID, &l.SMTPServerID, &l.Email,
            &l.Status, &l.MessageID, &l.ErrorMessage, &l.CreatedAt,
        ); err != nil {
            return nil, err
        }
        logs = append(logs, l)
    }
    return logs, rows.Err()
}

var _ EmailLogRepositoryInterface = (*EmailLogRepository)(nil)
