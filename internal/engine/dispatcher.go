package engine

import (
    "fmt"
    "log"
    "time"

    appErrors "github.com/unclebandit/mailblast-backend/internal/errors"
    "github.com/unclebandit/mailblast-backend/internal/events"
    "github.com/unclebandit/mailblast-backend/internal/mailer"
    "github.com/unclebandit/mailblast-backend/internal/model"
    "github.com/unclebandit/mailblast-backend/internal/repository"
)

const noCapacityMessage = "no available SMTP servers with remaining capacity"

// Dispatcher executes a distribution: sends strictly in plan order, keeps
// recipient and campaign state moving, and reports progress after every
// recipient. One goroutine per running campaign; recipients within a
// campaign are never sent in parallel because that would race the shared
// usage counters.
type Dispatcher struct {
    Campaigns   repository.CampaignRepositoryInterface
    Recipients  repository.RecipientRepositoryInterface
    Retries     repository.RetryRepositoryInterface
    Logs        repository.EmailLogRepositoryInterface
    Distributor *Distributor
    Events      events.Publisher

    // Now is swappable so tests can pin the clock.
    Now func() time.Time

    locks *runLocks
}

func NewDispatcher(
    campaigns repository.CampaignRepositoryInterface,
    recipients repository.RecipientRepositoryInterface,
    retries repository.RetryRepositoryInterface,
    logs repository.EmailLogRepositoryInterface,
    distributor *Distributor,
    publisher events.Publisher,
) *Dispatcher {
    return &Dispatcher{
        Campaigns:   campaigns,
        Recipients:  recipients,
        Retries:     retries,
        Logs:        logs,
        Distributor: distributor,
        Events:      publisher,
        Now:         time.Now,
        locks:       newRunLocks(),
    }
}

// Start marks the campaign running and launches the send loop in the
// background. A campaign already in flight is rejected.
func (d *Dispatcher) Start(campaignID int) error {
    campaign, err := d.Campaigns.GetByID(campaignID)
    if err != nil {
        return err
    }
    if campaign.Status == model.CampaignCompleted {
        return fmt.Errorf("campaign cannot be started in status: %s", campaign.Status)
    }

    if !d.locks.tryAcquire(campaignID) {
        return appErrors.ErrCampaignAlreadyRunning
    }

    if err := d.Campaigns.MarkStarted(campaignID); err != nil {
        d.locks.release(campaignID)
        return err
    }

    go func() {
        defer d.locks.release(campaignID)
        d.run(campaignID)
    }()
    return nil
}

// Run executes the send loop synchronously. The retry scheduler uses this
// so an entry is only resolved after the loop returns.
func (d *Dispatcher) Run(campaignID int) error {
    if !d.locks.tryAcquire(campaignID) {
        return appErrors.ErrCampaignAlreadyRunning
    }
    defer d.locks.release(campaignID)
    d.run(campaignID)
    return nil
}

// Pause requests a cooperative stop. The loop observes it before the next
// recipient; an in-flight send is allowed to finish.
func (d *Dispatcher) Pause(campaignID int) error {
    if _, err := d.Campaigns.GetByID(campaignID); err != nil {
        return err
    }
    return d.Campaigns.UpdateStatus(campaignID, model.CampaignPaused)
}

// run wraps the loop with the structural-failure policy: anything the loop
// could not absorb marks the campaign failed and publishes an error event.
func (d *Dispatcher) run(campaignID int) {
    if err := d.sendLoop(campaignID); err != nil {
        log.Printf("⚠️ Campaign %d sending error: %v\n", campaignID, err)
        if updErr := d.Campaigns.UpdateStatus(campaignID, model.CampaignFailed); updErr != nil {
            log.Printf("⚠️ Campaign %d could not be marked failed: %v\n", campaignID, updErr)
        }
        d.publish(events.NewError(campaignID, err.Error()))
    }
}

func (d *Dispatcher) sendLoop(campaignID int) error {
    campaign, distribution, err := d.Distributor.Distribute(campaignID)
    if err != nil {
        return err
    }

    total := len(distribution)
    sent := 0
    failed := 0

    d.publish(events.NewProgress(campaignID, events.ProgressPayload{
        Total: total, Remaining: total,
    }))

    for _, item := range distribution {
        status, err := d.Campaigns.GetStatus(campaignID)
        if err != nil {
            return err
        }
        if status == model.CampaignPaused {
            log.Printf("Campaign %d paused, stopping send loop\n", campaignID)
            return nil
        }

        rec := item.Recipient

        if item.Unavailable {
            if err := d.Recipients.MarkFailed(rec.ID, nil, noCapacityMessage); err != nil {
                return err
            }
            failed++
            d.progress(campaignID, total, sent, failed, "", rec.Email)
            continue
        }

        serverID := item.Sender.Server.ID
        serverName := item.Sender.Server.Name

        // Plans go stale: time passes and a retry run may share these
        // counters, so capacity is re-read before every send.
        check, err := item.Sender.CheckLimits()
        if err != nil {
            return err
        }
        if !check.Available {
            if check.Exceeded == mailer.LimitDaily {
                // Daily exhaustion recurs for every later recipient on this
                // server, so the whole campaign waits for the window reset.
                return d.deferUntilTomorrow(campaignID, serverID, serverName)
            }

            if err := d.Recipients.MarkFailed(rec.ID, &serverID, "SMTP limit reached: "+check.Exceeded.String()); err != nil {
                return err
            }
            failed++
            d.progress(campaignID, total, sent, failed, serverName+" (limit reached)", rec.Email)
            continue
        }

        messageID, sendErr := item.Sender.Send(rec.Email, campaign.Subject, campaign.HTMLContent)
        if sendErr == nil {
            if err := d.Recipients.MarkSent(rec.ID, serverID); err != nil {
                return err
            }
            if err := item.Sender.RecordUsage(); err != nil {
                return err
            }
            if err := d.Logs.Create(&model.EmailLog{
                CampaignID:   campaignID,
                RecipientID:  rec.ID,
                SMTPServerID: serverID,
                Email:        rec.Email,
                Status:       model.RecipientSent,
                MessageID:    messageID,
            }); err != nil {
                return err
            }
            sent++
        } else {
            if err := d.Recipients.MarkFailed(rec.ID, &serverID, sendErr.Error()); err != nil {
                return err
            }
            if err := d.Logs.Create(&model.EmailLog{
                CampaignID:   campaignID,
                RecipientID:  rec.ID,
                SMTPServerID: serverID,
                Email:        rec.Email,
                Status:       model.RecipientFailed,
                ErrorMessage: sendErr.Error(),
            }); err != nil {
                return err
            }
            failed++
        }

        d.progress(campaignID, total, sent, failed, serverName, rec.Email)
    }

    if err := d.Campaigns.MarkCompleted(campaignID, sent, failed); err != nil {
        return err
    }
    d.publish(events.NewComplete(campaignID, events.CompletePayload{
        Total: total, Sent: sent, Failed: failed,
    }))
    return nil
}

// deferUntilTomorrow queues the campaign for the next daily-window reset and
// pauses it. Remaining recipients stay pending.
func (d *Dispatcher) deferUntilTomorrow(campaignID, serverID int, serverName string) error {
    retryAt := nextMidnight(d.Now())

    pending, err := d.Retries.HasPending(campaignID)
    if err != nil {
        return err
    }
    if !pending {
        if err := d.Retries.Create(campaignID, retryAt); err != nil {
            return err
        }
        log.Printf("Campaign %d queued for retry at %s\n", campaignID, retryAt.Format(time.RFC3339))
    }

    if err := d.Campaigns.UpdateStatus(campaignID, model.CampaignPaused); err != nil {
        return err
    }

    log.Printf("SMTP %d (%s) daily limit reached. Campaign %d paused until %s\n",
        serverID, serverName, campaignID, retryAt.Format(time.RFC3339))

    d.publish(events.NewPaused(campaignID, events.PausedPayload{
        Reason:  "Daily limit reached",
        RetryAt: retryAt,
        Message: "Campaign paused due to daily limit. Will automatically resume after limit resets.",
    }))
    return nil
}

func (d *Dispatcher) progress(campaignID, total, sent, failed int, currentSMTP, currentEmail string) {
    d.publish(events.NewProgress(campaignID, events.ProgressPayload{
        Total:        total,
        Sent:         sent,
        Failed:       failed,
        Remaining:    total - sent - failed,
        CurrentSMTP:  currentSMTP,
        CurrentEmail: currentEmail,
    }))
}

func (d *Dispatcher) publish(e events.Event) {
    if err := d.Events.Publish(e); err != nil {
        log.Printf("⚠️ Failed to publish %s event for campaign %d: %v\n", e.Type, e.CampaignID, err)
    }
}

// nextMidnight is the start of the next calendar day in local time, when
// daily windows reset.
func nextMidnight(now time.Time) time.Time {
    year, month, day := now.Date()
    return time.Date(year, month, day+1, 0, 0, 0, 0, now.Location())
}
