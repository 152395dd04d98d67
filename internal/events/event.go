package events

import (
    "time"

    "github.com/google/uuid"
)

type Type string

const (
    TypeProgress Type = "progress"
    TypePaused   Type = "paused"
    TypeComplete Type = "complete"
    TypeError    Type = "error"
)

// Event is the single tagged notification type for a campaign. Exactly one
// payload pointer is set, matching Type.
type Event struct {
    ID         string           `json:"id"`
    CampaignID int              `json:"campaign_id"`
    Type       Type             `json:"type"`
    At         time.Time        `json:"at"`
    Progress   *ProgressPayload `json:"progress,omitempty"`
    Paused     *PausedPayload   `json:"paused,omitempty"`
    Complete   *CompletePayload `json:"complete,omitempty"`
    Error      *ErrorPayload    `json:"error,omitempty"`
}

type ProgressPayload struct {
    Total        int    `json:"total"`
    Sent         int    `json:"sent"`
    Failed       int    `json:"failed"`
    Remaining    int    `json:"remaining"`
    CurrentSMTP  string `json:"current_smtp,omitempty"`
    CurrentEmail string `json:"current_email,omitempty"`
}

type PausedPayload struct {
    Reason  string    `json:"reason"`
    RetryAt time.Time `json:"retry_at"`
    Message string    `json:"message"`
}

type CompletePayload struct {
    Total  int `json:"total"`
    Sent   int `json:"sent"`
    Failed int `json:"failed"`
}

type ErrorPayload struct {
    Error string `json:"error"`
}

// Publisher delivers campaign events to whoever listens. The engine is
// agnostic to the mechanism behind it.
type Publisher interface {
    Publish(e Event) error
}

func newEvent(campaignID int, t Type) Event {
    return Event{
        ID:         uuid.NewString(),
        CampaignID: campaignID,
        Type:       t,
        At:         time.Now(),
    }
}

func NewProgress(campaignID int, p ProgressPayload) Event {
    e := newEvent(campaignID, TypeProgress)
    e.Progress = &p
    return e
}

func NewPaused(campaignID int, p PausedPayload) Event {
    e := newEvent(campaignID, TypePaused)
    e.Paused = &p
    return e
}

func NewComplete(campaignID int, p CompletePayload) Event {
    e := newEvent(campaignID, TypeComplete)
    e.Complete = &p
    return e
}

func NewError(campaignID int, errMsg string) Event {
    e := newEvent(campaignID, TypeError)
    e.Error = &ErrorPayload{Error: errMsg}
    return e
}
