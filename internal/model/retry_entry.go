// internal/model/retry_entry.go
package model

import "time"

// Retry entry statuses. A campaign has at most one pending entry at a time.
const (
    RetryPending    = "pending"
    RetryProcessing = "processing"
    RetryCompleted  = "completed"
    RetryFailed     = "failed"
)

// RetryEntry schedules an automatic resume for a campaign that was paused by
// a daily-quota exhaustion.
type RetryEntry struct {
    ID          int        `db:"id" json:"id"`
    CampaignID  int        `db:"campaign_id" json:"campaign_id"`
    RetryAt     time.Time  `db:"retry_at" json:"retry_at"`
    Status      string     `db:"status" json:"status"`
    CreatedAt   time.Time  `db:"created_at" json:"created_at"`
    ProcessedAt *time.Time `db:"processed_at" json:"processed_at,omitempty"`
}
