// internal/model/recipient.go
package model

import "time"

// Recipient statuses. A recipient is attempted at most once per run:
// pending -> sent or pending -> failed, never reverted.
const (
    RecipientPending = "pending"
    RecipientSent    = "sent"
    RecipientFailed  = "failed"
)

type Recipient struct {
    ID           int        `db:"id" json:"id"`
    CampaignID   int        `db:"campaign_id" json:"campaign_id"`
    Email        string     `db:"email" json:"email"`
    Status       string     `db:"status" json:"status"` // pending, sent, failed
    SMTPServerID *int       `db:"smtp_server_id" json:"smtp_server_id,omitempty"`
    ErrorMessage *string    `db:"error_message" json:"error_message,omitempty"`
    SentAt       *time.Time `db:"sent_at" json:"sent_at,omitempty"`
    CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}
