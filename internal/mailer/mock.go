package mailer

import (
    "sync"

    "github.com/google/uuid"
)

// MockTransport records sends instead of delivering them. Used by tests and
// by the SMTP connection-test endpoint when wired with a failing script.
type MockTransport struct {
    mu       sync.Mutex
    InitErr  error
    SendErr  error
    Sent     []MockMessage
}

type MockMessage struct {
    To      string
    Subject string
    HTML    string
}

func (t *MockTransport) Initialize() error {
    return t.InitErr
}

func (t *MockTransport) Send(to, subject, html string) (string, error) {
    if t.SendErr != nil {
        return "", t.SendErr
    }
    t.mu.Lock()
    t.Sent = append(t.Sent, MockMessage{To: to, Subject: subject, HTML: html})
    t.mu.Unlock()
    return "<" + uuid.NewString() + "@mock>", nil
}

var _ Transport = (*MockTransport)(nil)
