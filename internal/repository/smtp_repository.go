package repository

import (
    "database/sql"
    "time"

    appErrors "github.com/unclebandit/mailblast-backend/internal/errors"
    "github.com/unclebandit/mailblast-backend/internal/model"
)

type SMTPRepositoryInterface interface {
    Create(s *model.SMTPServer) error
    GetByID(id int) (*model.SMTPServer, error)
    ListByUser(userID int) ([]*model.SMTPServer, error)
    ListActive(userID int) ([]*model.SMTPServer, error)
    Update(s *model.SMTPServer) error
    Delete(id, userID int) error
}

type SMTPRepository struct {
    DB *sql.DB
}

const smtpColumns = `id, user_id, name, host, port, username, password, from_email, from_name,
               secure, daily_limit, hourly_limit, is_active, created_at`

func (r *SMTPRepository) Create(s *model.SMTPServer) error {
    s.CreatedAt = time.Now()
    query := `
        INSERT INTO smtp_servers
            (user_id, name, host, port, username, password, from_email, from_name,
             secure, daily_limit, hourly_limit, is_active, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
        RETURNING id
    `
    return r.DB.QueryRow(query,
        s.UserID, s.Name, s.Host, s.Port, s.Username, s.Password, s.FromEmail, s.FromName,
        s.Secure, s.DailyLimit, s.HourlyLimit, s.IsActive, s.CreatedAt,
    ).Scan(&s.ID)
}

func (r *SMTPRepository) GetByID(id int) (*model.SMTPServer, error) {
    query := `SELECT ` + smtpColumns + ` FROM smtp_servers WHERE id=$1`
    var s model.SMTPServer
    err := r.DB.QueryRow(query, id).Scan(
        &s.ID, &s.UserID, &s.Name, &s.Host, &s.Port, &s.Username, &s.Password,
        &s.FromEmail, &s.FromName, &s.Secure, &s.DailyLimit, &s.HourlyLimit,
        &s.IsActive, &s.CreatedAt,
    )
    if err != nil {
        if err == sql.ErrNoRows {
            return nil, appErrors.NewSMTPServerNotFound(id)
        }
        return nil, err
    }
    return &s, nil
}

func (r *SMTPRepository) ListByUser(userID int) ([]*model.SMTPServer, error) {
    query := `SELECT ` + smtpColumns + ` FROM smtp_servers WHERE user_id=$1 ORDER BY id`
    return r.scanList(query, userID)
}

// ListActive returns the user's active servers, the pool the distributor
// draws from.
func (r *SMTPRepository) ListActive(userID int) ([]*model.SMTPServer, error) {
    query := `SELECT ` + smtpColumns + ` FROM smtp_servers WHERE user_id=$1 AND is_active=TRUE ORDER BY id`
    return r.scanList(query, userID)
}

func (r *SMTPRepository) scanList(query string, userID int) ([]*model.SMTPServer, error) {
    rows, err := r.DB.Query(query, userID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    servers := []*model.SMTPServer{}
    for rows.Next() {
        s := &model.SMTPServer{}
        if err := rows.Scan(
            &s.ID, &s.UserID, &s.Name, &s.Host, &s.Port, &s.Username, &s.Password,
            &s.FromEmail, &s.FromName, &s.Secure, &s.DailyLimit, &s.HourlyLimit,
            &s.IsActive, &s.CreatedAt,
        ); err != nil {
            return nil, err
        }
        servers = append(servers, s)
    }
    return servers, rows.Err()
}

func (r *SMTPRepository) Update(s *model.SMTPServer) error {
    query := `
        UPDATE smtp_servers
        SET name=$1, host=$2, port=$3, username=$4, password=$5, from_email=$6, from_name=$7,
            secure=$8, daily_limit=$9, hourly_limit=$10, is_active=$11
        WHERE id=$12 AND user_id=$13
    `
    _, err := r.DB.Exec(query,
        s.Name, s.Host, s.Port, s.Username, s.Password, s.FromEmail, s.FromName,
        s.Secure, s.DailyLimit, s.HourlyLimit, s.IsActive, s.ID, s.UserID,
    )
    return err
}

func (r *SMTPRepository) Delete(id, userID int) error {
    res, err := r.DB.Exec(`DELETE FROM smtp_servers WHERE id=$1 AND user_id=$2`, id, userID)
    if err != nil {
        return err
    }
    affected, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if affected == 0 {
        return appErrors.NewSMTPServerNotFound(id)
    }
    return nil
}

var _ SMTPRepositoryInterface = (*SMTPRepository)(nil)
