// internal/model/email_log.go
package model

import "time"

// EmailLog is the per-attempt audit record. One row per send attempt,
// success or failure.
type EmailLog struct {
    ID           int       `db:"id" json:"id"`
    CampaignID   int       `db:"campaign_id" json:"campaign_id"`
    RecipientID  int       `db:"recipient_id" json:"recipient_id"`
    SMTPServerID int       `db:"smtp_server_id" json:"smtp_server_id"`
    Email        string    `db:"email" json:"email"`
    Status       string    `db:"status" json:"status"` // sent, failed
    MessageID    string    `db:"message_id" json:"message_id,omitempty"`
    ErrorMessage string    `db:"error_message" json:"error_message,omitempty"`
    CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
