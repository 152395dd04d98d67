package engine

import (
    "fmt"
    "log"
    "sync/atomic"
    "time"

    "github.com/robfig/cron/v3"

    "github.com/unclebandit/mailblast-backend/internal/model"
    "github.com/unclebandit/mailblast-backend/internal/repository"
)

// RetryScheduler periodically scans the retry queue for campaigns whose
// daily window has reset and hands them back to the dispatcher. One scan at
// a time process-wide; the guard is a CAS flag so it stays correct under
// parallel cron fires.
type RetryScheduler struct {
    Retries    repository.RetryRepositoryInterface
    Recipients repository.RecipientRepositoryInterface
    Campaigns  repository.CampaignRepositoryInterface
    Dispatcher *Dispatcher

    // Now is swappable so tests can pin the clock.
    Now func() time.Time

    cron     *cron.Cron
    scanning atomic.Bool
}

func NewRetryScheduler(
    retries repository.RetryRepositoryInterface,
    recipients repository.RecipientRepositoryInterface,
    campaigns repository.CampaignRepositoryInterface,
    dispatcher *Dispatcher,
) *RetryScheduler {
    return &RetryScheduler{
        Retries:    retries,
        Recipients: recipients,
        Campaigns:  campaigns,
        Dispatcher: dispatcher,
        Now:        time.Now,
    }
}

// Start runs one scan immediately, then one every intervalMinutes.
func (s *RetryScheduler) Start(intervalMinutes int) error {
    log.Printf("[Retry Scheduler] Starting with %d minute interval\n", intervalMinutes)
    s.ProcessQueue()

    s.cron = cron.New()
    if _, err := s.cron.AddFunc(fmt.Sprintf("@every %dm", intervalMinutes), s.ProcessQueue); err != nil {
        return err
    }
    s.cron.Start()
    return nil
}

func (s *RetryScheduler) Stop() {
    if s.cron != nil {
        s.cron.Stop()
    }
}

// ProcessQueue is one scan. If a previous scan is still running the tick is
// skipped entirely.
func (s *RetryScheduler) ProcessQueue() {
    if !s.scanning.CompareAndSwap(false, true) {
        return
    }
    defer s.scanning.Store(false)

    entries, err := s.Retries.Due(s.Now())
    if err != nil {
        log.Println("[Retry Scheduler] Error:", err)
        return
    }
    if len(entries) == 0 {
        return
    }

    log.Printf("[Retry Scheduler] Found %d campaign(s) ready to retry\n", len(entries))

    for _, entry := range entries {
        if err := s.processEntry(entry); err != nil {
            log.Printf("[Retry Scheduler] Error processing campaign %d: %v\n", entry.CampaignID, err)
            if updErr := s.Retries.UpdateStatus(entry.ID, model.RetryFailed); updErr != nil {
                log.Printf("[Retry Scheduler] Could not mark entry %d failed: %v\n", entry.ID, updErr)
            }
        }
    }
}

func (s *RetryScheduler) processEntry(entry *model.RetryEntry) error {
    if err := s.Retries.MarkProcessing(entry.ID); err != nil {
        return err
    }

    pending, err := s.Recipients.CountPending(entry.CampaignID)
    if err != nil {
        return err
    }
    if pending == 0 {
        // Nothing left to send: resolve both sides without a run.
        if err := s.Retries.UpdateStatus(entry.ID, model.RetryCompleted); err != nil {
            return err
        }
        log.Printf("[Retry Scheduler] Campaign %d has no pending recipients, marking as completed\n", entry.CampaignID)
        return s.Campaigns.UpdateStatus(entry.CampaignID, model.CampaignCompleted)
    }

    log.Printf("[Retry Scheduler] Resuming campaign %d\n", entry.CampaignID)
    if err := s.Campaigns.UpdateStatus(entry.CampaignID, model.CampaignRunning); err != nil {
        return err
    }

    // Synchronous: the entry is resolved only after the loop returns, even
    // when the loop re-pauses and queues a fresh entry.
    if err := s.Dispatcher.Run(entry.CampaignID); err != nil {
        return err
    }
    return s.Retries.UpdateStatus(entry.ID, model.RetryCompleted)
}
