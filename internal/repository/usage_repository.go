package repository

import (
    "database/sql"
)

// UsageRepositoryInterface is the usage ledger: per (server, date, hour)
// send counters. Increment must be atomic at the storage layer because two
// dispatcher runs for the same account can be live at once.
type UsageRepositoryInterface interface {
    Increment(smtpServerID int, date string, hour int) error
    DailyTotal(smtpServerID int, date string) (int, error)
    HourlyTotal(smtpServerID int, date string, hour int) (int, error)
}

type UsageRepository struct {
    DB *sql.DB
}

// Increment bumps the counter by one, creating the row if absent. The
// upsert makes the read-modify-write a single atomic statement.
func (r *UsageRepository) Increment(smtpServerID int, date string, hour int) error {
    query := `
        INSERT INTO smtp_usage (smtp_server_id, date, hour, emails_sent)
        VALUES ($1, $2, $3, 1)
        ON CONFLICT (smtp_server_id, date, hour)
        DO UPDATE SET emails_sent = smtp_usage.emails_sent + 1
    `
    _, err := r.DB.Exec(query, smtpServerID, date, hour)
    return err
}

func (r *UsageRepository) DailyTotal(smtpServerID int, date string) (int, error) {
    var total int
    err := r.DB.QueryRow(
        `SELECT COALESCE(SUM(emails_sent), 0) FROM smtp_usage WHERE smtp_server_id=$1 AND date=$2`,
        smtpServerID, date,
    ).Scan(&total)
    return total, err
}

func (r *UsageRepository) HourlyTotal(smtpServerID int, date string, hour int) (int, error) {
    var total int
    err := r.DB.QueryRow(
        `SELECT COALESCE(emails_sent, 0) FROM smtp_usage WHERE smtp_server_id=$1 AND date=$2 AND hour=$3`,
        smtpServerID, date, hour,
    ).Scan(&total)
    if err == sql.ErrNoRows {
        return 0, nil
    }
    return total, err
}

var _ UsageRepositoryInterface = (*UsageRepository)(nil)
