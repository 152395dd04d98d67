package mailer

import (
    "math"
    "time"

    "github.com/unclebandit/mailblast-backend/internal/repository"
    "github.com/unclebandit/mailblast-backend/internal/model"
)

// Unlimited is the remaining-capacity value for a limit of 0.
const Unlimited = math.MaxInt

// LimitWindow identifies which quota window ran out.
type LimitWindow int

const (
    LimitNone LimitWindow = iota
    LimitDaily
    LimitHourly
)

func (w LimitWindow) String() string {
    switch w {
    case LimitDaily:
        return "daily limit reached"
    case LimitHourly:
        return "hourly limit reached"
    default:
        return ""
    }
}

// LimitCheck is a point-in-time capacity reading for one server.
type LimitCheck struct {
    Available       bool
    DailyRemaining  int
    HourlyRemaining int
    ActualRemaining int // min(daily, hourly)
    Exceeded        LimitWindow
}

// EmailSender owns one outbound channel: its config row, its transport and
// its usage counters. It decides nothing about who gets sent to.
type EmailSender struct {
    Server    *model.SMTPServer
    transport Transport
    usage     repository.UsageRepositoryInterface

    // Now is swappable so tests can pin the clock.
    Now func() time.Time
}

func NewEmailSender(server *model.SMTPServer, transport Transport, usage repository.UsageRepositoryInterface) *EmailSender {
    return &EmailSender{
        Server:    server,
        transport: transport,
        usage:     usage,
        Now:       time.Now,
    }
}

// Initialize establishes and verifies the transport session. A failure here
// excludes the server from the current run; it is never fatal to a campaign.
func (s *EmailSender) Initialize() error {
    return s.transport.Initialize()
}

func (s *EmailSender) Send(to, subject, html string) (string, error) {
    return s.transport.Send(to, subject, html)
}

// CheckLimits reads the usage ledger and reports remaining capacity right
// now. The daily window is checked first: a daily exhaustion subsumes an
// hourly one and drives the campaign-wide pause decision.
func (s *EmailSender) CheckLimits() (*LimitCheck, error) {
    now := s.Now()
    date := now.Format("2006-01-02")
    hour := now.Hour()

    dailyUsed, err := s.usage.DailyTotal(s.Server.ID, date)
    if err != nil {
        return nil, err
    }
    hourlyUsed, err := s.usage.HourlyTotal(s.Server.ID, date, hour)
    if err != nil {
        return nil, err
    }

    dailyRemaining := Unlimited
    if s.Server.DailyLimit > 0 {
        dailyRemaining = s.Server.DailyLimit - dailyUsed
        if dailyRemaining < 0 {
            dailyRemaining = 0
        }
    }
    hourlyRemaining := Unlimited
    if s.Server.HourlyLimit > 0 {
        hourlyRemaining = s.Server.HourlyLimit - hourlyUsed
        if hourlyRemaining < 0 {
            hourlyRemaining = 0
        }
    }

    check := &LimitCheck{
        DailyRemaining:  dailyRemaining,
        HourlyRemaining: hourlyRemaining,
        ActualRemaining: min(dailyRemaining, hourlyRemaining),
    }
    switch {
    case dailyRemaining == 0:
        check.Exceeded = LimitDaily
    case hourlyRemaining == 0:
        check.Exceeded = LimitHourly
    }
    check.Available = check.ActualRemaining > 0
    return check, nil
}

// RecordUsage counts one successful send against the current (date, hour)
// bucket.
func (s *EmailSender) RecordUsage() error {
    now := s.Now()
    return s.usage.Increment(s.Server.ID, now.Format("2006-01-02"), now.Hour())
}
