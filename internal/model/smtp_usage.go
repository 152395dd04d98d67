// internal/model/smtp_usage.go
package model

// SMTPUsage is one (server, date, hour) send counter. Incremented once per
// successful send, never decremented.
type SMTPUsage struct {
    SMTPServerID int    `db:"smtp_server_id" json:"smtp_server_id"`
    Date         string `db:"date" json:"date"` // YYYY-MM-DD
    Hour         int    `db:"hour" json:"hour"` // 0..23
    EmailsSent   int    `db:"emails_sent" json:"emails_sent"`
}
