package repository

import (
    "database/sql"

    "github.com/lib/pq"

    "github.com/unclebandit/mailblast-backend/internal/model"
)

type RecipientRepositoryInterface interface {
    BulkCreate(campaignID int, emails []string) (int, error)
    ListByCampaign(campaignID int) ([]*model.Recipient, error)
    ListPending(campaignID int) ([]*model.Recipient, error)
    CountPending(campaignID int) (int, error)
    CountByStatus(campaignID int) (map[string]int, error)
    MarkSent(id, smtpServerID int) error
    MarkFailed(id int, smtpServerID *int, errorMessage string) error
}

type RecipientRepository struct {
    DB *sql.DB
}

// BulkCreate inserts one pending row per email and returns how many were
// inserted. Callers are expected to have de-duplicated the list already.
func (r *RecipientRepository) BulkCreate(campaignID int, emails []string) (int, error) {
    query := `
        INSERT INTO campaign_recipients (campaign_id, email, status)
        SELECT $1, unnest($2::text[]), 'pending'
    `
    res, err := r.DB.Exec(query, campaignID, pq.Array(emails))
    if err != nil {
        return 0, err
    }
    affected, err := res.RowsAffected()
    return int(affected), err
}

func (r *RecipientRepository) ListByCampaign(campaignID int) ([]*model.Recipient, error) {
    query := `
        SELECT id, campaign_id, email, status, smtp_server_id, error_message, sent_at, created_at
        FROM campaign_recipients
        WHERE campaign_id=$1
        ORDER BY id
    `
    return r.scanList(query, campaignID)
}

// ListPending returns the campaign's pending recipients in id order, which
// is the order the distributor walks them.
func (r *RecipientRepository) ListPending(campaignID int) ([]*model.Recipient, error) {
    query := `
        SELECT id, campaign_id, email, status, smtp_server_id, error_message, sent_at, created_at
        FROM campaign_recipients
        WHERE campaign_id=$1 AND status='pending'
        ORDER BY id
    `
    return r.scanList(query, campaignID)
}

func (r *RecipientRepository) scanList(query string, campaignID int) ([]*model.Recipient, error) {
    rows, err := r.DB.Query(query, campaignID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    recipients := []*model.Recipient{}
    for rows.Next() {
        rec := &model.Recipient{}
        if err := rows.Scan(
            &rec.ID, &rec.CampaignID, &rec.Email, &rec.Status,
            &rec.SMTPServerID, &rec.ErrorMessage, &rec.SentAt, &rec.CreatedAt,
        ); err != nil {
            return nil, err
        }
        recipients = append(recipients, rec)
    }
    return recipients, rows.Err()
}

func (r *RecipientRepository) CountPending(campaignID int) (int, error) {
    var count int
    err := r.DB.QueryRow(
        `SELECT COUNT(*) FROM campaign_recipients WHERE campaign_id=$1 AND status='pending'`,
        campaignID,
    ).Scan(&count)
    return count, err
}

func (r *RecipientRepository) CountByStatus(campaignID int) (map[string]int, error) {
    query := `SELECT status, COUNT(*) FROM campaign_recipients WHERE campaign_id=$1 GROUP BY status`
    rows, err := r.DB.Query(query, campaignID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    stats := map[string]int{"pending": 0, "sent": 0, "failed": 0}
    for rows.Next() {
        var status string
        var count int
        if err := rows.Scan(&status, &count); err != nil {
            return nil, err
        }
        stats[status] = count
    }
    return stats, rows.Err()
}

// MarkSent moves a recipient pending -> sent. The status guard keeps a
// completed attempt from ever being redone.
func (r *RecipientRepository) MarkSent(id, smtpServerID int) error {
    query := `
        UPDATE campaign_recipients
        SET status='sent', smtp_server_id=$1, error_message=NULL, sent_at=NOW()
        WHERE id=$2 AND status='pending'
    `
    _, err := r.DB.Exec(query, smtpServerID, id)
    return err
}

func (r *RecipientRepository) MarkFailed(id int, smtpServerID *int, errorMessage string) error {
    query := `
        UPDATE campaign_recipients
        SET status='failed', smtp_server_id=$1, error_message=$2
        WHERE id=$3 AND status='pending'
    `
    _, err := r.DB.Exec(query, smtpServerID, errorMessage, id)
    return err
}

var _ RecipientRepositoryInterface = (*RecipientRepository)(nil)
