// internal/errors/errors.go
package appErrors

import (
    "errors"
    "fmt"
)

// ErrCampaignNotFound is a sentinel error
type ErrCampaignNotFound struct {
    CampaignID int
}

func (e *ErrCampaignNotFound) Error() string {
    return fmt.Sprintf("campaign with ID %d not found", e.CampaignID)
}

// Helper constructor
func NewCampaignNotFound(id int) error {
    return &ErrCampaignNotFound{CampaignID: id}
}

// ErrSMTPServerNotFound is returned when an SMTP server row does not exist.
type ErrSMTPServerNotFound struct {
    ServerID int
}

func (e *ErrSMTPServerNotFound) Error() string {
    return fmt.Sprintf("SMTP server with ID %d not found", e.ServerID)
}

func NewSMTPServerNotFound(id int) error {
    return &ErrSMTPServerNotFound{ServerID: id}
}

// ErrNoAvailableSenders means no active SMTP server could be initialized or
// none has remaining capacity. Fatal to the run attempt.
var ErrNoAvailableSenders = errors.New("no available SMTP servers with remaining capacity")

// ErrCampaignAlreadyRunning means a dispatcher run is already in flight for
// the campaign. Overlapping attempts are rejected, not queued.
var ErrCampaignAlreadyRunning = errors.New("campaign is already being sent")
