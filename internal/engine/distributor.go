package engine

import (
    "log"
    "time"

    appErrors "github.com/unclebandit/mailblast-backend/internal/errors"
    "github.com/unclebandit/mailblast-backend/internal/mailer"
    "github.com/unclebandit/mailblast-backend/internal/model"
    "github.com/unclebandit/mailblast-backend/internal/repository"
)

// Assignment routes one recipient to one sender. Unavailable means no
// server had capacity left at planning time.
type Assignment struct {
    Recipient   *model.Recipient
    Sender      *mailer.EmailSender
    Unavailable bool
}

// Distributor computes a one-shot plan mapping pending recipients to the
// account's active SMTP servers, weighted by remaining capacity. The plan
// is tentative: the dispatcher re-validates every line against live limits.
type Distributor struct {
    Campaigns  repository.CampaignRepositoryInterface
    Recipients repository.RecipientRepositoryInterface
    Servers    repository.SMTPRepositoryInterface
    Usage      repository.UsageRepositoryInterface
    Transports mailer.TransportFactory

    // Now, when set, pins the clock of every sender built for a run.
    Now func() time.Time
}

// Distribute loads the campaign's pending recipients and plans the run.
// Zero pending recipients yields an empty plan, not an error.
func (d *Distributor) Distribute(campaignID int) (*model.Campaign, []Assignment, error) {
    campaign, err := d.Campaigns.GetByID(campaignID)
    if err != nil {
        return nil, nil, err
    }

    recipients, err := d.Recipients.ListPending(campaignID)
    if err != nil {
        return nil, nil, err
    }
    if len(recipients) == 0 {
        return campaign, []Assignment{}, nil
    }

    servers, err := d.Servers.ListActive(campaign.UserID)
    if err != nil {
        return nil, nil, err
    }
    if len(servers) == 0 {
        return nil, nil, appErrors.ErrNoAvailableSenders
    }

    senders := d.initSenders(servers)
    if len(senders) == 0 {
        return nil, nil, appErrors.ErrNoAvailableSenders
    }

    distribution, err := d.plan(recipients, senders)
    if err != nil {
        return nil, nil, err
    }
    return campaign, distribution, nil
}

// initSenders builds and verifies one sender per server. Servers that fail
// to initialize are dropped from this run; that is logged but never fatal.
func (d *Distributor) initSenders(servers []*model.SMTPServer) []*mailer.EmailSender {
    senders := []*mailer.EmailSender{}
    for _, server := range servers {
        transport, err := d.Transports(server)
        if err != nil {
            log.Printf("⚠️ SMTP server %d (%s) transport setup failed: %v\n", server.ID, server.Name, err)
            continue
        }
        sender := mailer.NewEmailSender(server, transport, d.Usage)
        if d.Now != nil {
            sender.Now = d.Now
        }
        if err := sender.Initialize(); err != nil {
            log.Printf("⚠️ SMTP server %d (%s) initialization failed: %v\n", server.ID, server.Name, err)
            continue
        }
        senders = append(senders, sender)
    }
    return senders
}

// capacityState is a sender's tentative reservation while planning. The
// counters are projections only; nothing is written to the ledger here.
type capacityState struct {
    sender  *mailer.EmailSender
    daily   int
    hourly  int
    total   int
    planned int
}

func (d *Distributor) plan(recipients []*model.Recipient, senders []*mailer.EmailSender) ([]Assignment, error) {
    capacities := []*capacityState{}
    for _, sender := range senders {
        check, err := sender.CheckLimits()
        if err != nil {
            return nil, err
        }
        if check.Available {
            capacities = append(capacities, &capacityState{
                sender: sender,
                daily:  check.DailyRemaining,
                hourly: check.HourlyRemaining,
                total:  check.ActualRemaining,
            })
            log.Printf("SMTP %s: daily remaining %d, hourly remaining %d, actual capacity %d\n",
                sender.Server.Name, check.DailyRemaining, check.HourlyRemaining, check.ActualRemaining)
        } else {
            log.Printf("SMTP %s: no capacity available (daily %d, hourly %d)\n",
                sender.Server.Name, check.DailyRemaining, check.HourlyRemaining)
        }
    }
    if len(capacities) == 0 {
        return nil, appErrors.ErrNoAvailableSenders
    }

    totalCapacity := 0
    for _, c := range capacities {
        if c.total == mailer.Unlimited {
            totalCapacity = mailer.Unlimited
            break
        }
        totalCapacity += c.total
    }
    if totalCapacity < len(recipients) {
        log.Printf("⚠️ Total SMTP capacity (%d) is less than recipients (%d). Some emails may not be sent.\n",
            totalCapacity, len(recipients))
    }

    // Round-robin walk. A sender is skipped once its tentative reservation
    // runs out, so larger senders naturally collect proportionally more
    // recipients.
    distribution := make([]Assignment, 0, len(recipients))
    currentIndex := 0

    for _, rec := range recipients {
        assigned := false
        attempts := 0
        maxAttempts := len(capacities) * 2 // one pass, one re-checked pass

        for !assigned && attempts < maxAttempts {
            c := capacities[currentIndex%len(capacities)]
            if c.total > 0 && c.daily > 0 && c.hourly > 0 {
                distribution = append(distribution, Assignment{Recipient: rec, Sender: c.sender})
                c.total--
                c.daily--
                c.hourly--
                c.planned++
                assigned = true
            }

            currentIndex++
            attempts++

            // A full empty pass can mean an hour boundary moved under us:
            // re-fetch live capacity before giving up on this recipient.
            if attempts == len(capacities) && !assigned {
                if err := d.refresh(capacities); err != nil {
                    return nil, err
                }
            }
        }

        if !assigned {
            log.Printf("⚠️ Could not assign recipient %s. All SMTP servers at capacity.\n", rec.Email)
            distribution = append(distribution, Assignment{Recipient: rec, Unavailable: true})
        }
    }

    return distribution, nil
}

// refresh re-reads live capacity, still net of what this walk has already
// reserved. Unrecorded plan lines must not be double-counted as capacity.
func (d *Distributor) refresh(capacities []*capacityState) error {
    for _, c := range capacities {
        check, err := c.sender.CheckLimits()
        if err != nil {
            return err
        }
        if !check.Available {
            c.total = 0
            continue
        }
        c.daily = clampRemaining(check.DailyRemaining, c.planned)
        c.hourly = clampRemaining(check.HourlyRemaining, c.planned)
        c.total = min(c.daily, c.hourly)
    }
    return nil
}

func clampRemaining(remaining, planned int) int {
    if remaining == mailer.Unlimited {
        return remaining
    }
    if remaining < planned {
        return 0
    }
    return remaining - planned
}
