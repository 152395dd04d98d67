// internal/model/campaign.go
package model

import "time"

// Campaign lifecycle statuses. Terminal states are completed and failed.
const (
    CampaignPending   = "pending"
    CampaignRunning   = "running"
    CampaignPaused    = "paused"
    CampaignCompleted = "completed"
    CampaignFailed    = "failed"
)

type Campaign struct {
    ID              int        `db:"id" json:"id"`
    UserID          int        `db:"user_id" json:"user_id"`
    Name            string     `db:"name" json:"name"`
    Subject         string     `db:"subject" json:"subject"`
    HTMLContent     string     `db:"html_content" json:"html_content"`
    Status          string     `db:"status" json:"status"`
    TotalRecipients int        `db:"total_recipients" json:"total_recipients"`
    EmailsSent      int        `db:"emails_sent" json:"emails_sent"`
    EmailsFailed    int        `db:"emails_failed" json:"emails_failed"`
    CreatedAt       time.Time  `db:"created_at" json:"created_at"`
    StartedAt       *time.Time `db:"started_at" json:"started_at,omitempty"`
    CompletedAt     *time.Time `db:"completed_at" json:"completed_at,omitempty"`
}
