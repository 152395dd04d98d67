// internal/model/smtp_server.go
package model

import "time"

// SMTPServer is one outbound channel. Limits of 0 mean unlimited.
// Password is stored encrypted; the engine never sees the plaintext,
// it is decrypted only when building a transport.
type SMTPServer struct {
    ID          int       `db:"id" json:"id"`
    UserID      int       `db:"user_id" json:"user_id"`
    Name        string    `db:"name" json:"name"`
    Host        string    `db:"host" json:"host"`
    Port        int       `db:"port" json:"port"`
    Username    string    `db:"username" json:"username"`
    Password    string    `db:"password" json:"-"`
    FromEmail   string    `db:"from_email" json:"from_email"`
    FromName    string    `db:"from_name" json:"from_name"`
    Secure      bool      `db:"secure" json:"secure"`
    DailyLimit  int       `db:"daily_limit" json:"daily_limit"`
    HourlyLimit int       `db:"hourly_limit" json:"hourly_limit"`
    IsActive    bool      `db:"is_active" json:"is_active"`
    CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
