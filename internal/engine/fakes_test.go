package engine_test

import (
	"fmt"
	"sync"
	"time"

	"github.com/unclebandit/mailblast-backend/internal/engine"
	appErrors "github.com/unclebandit/mailblast-backend/internal/errors"
	"github.com/unclebandit/mailblast-backend/internal/events"
	"github.com/unclebandit/mailblast-backend/internal/mailer"
	"github.com/unclebandit/mailblast-backend/internal/model"
	"github.com/unclebandit/mailblast-backend/internal/repository"
)

// memStore is the shared in-memory backing for the fake repositories.
type memStore struct {
	mu         sync.Mutex
	campaigns  map[int]*model.Campaign
	recipients []*model.Recipient
	servers    []*model.SMTPServer
	retries    []*model.RetryEntry
	logs       []*model.EmailLog
	usage      map[string]int

	nextCampaignID  int
	nextRecipientID int
	nextServerID    int
	nextRetryID     int

	// statusHook, when set, runs on every GetStatus call with the call
	// number (1-based). Tests use it to mutate state mid-loop, standing in
	// for a concurrent run or an external pause request.
	statusCalls int
	statusHook  func(call int)

	// dueHook, when set, runs inside Due. Used to hold a scan open.
	dueCalls int
	dueHook  func()
}

func newMemStore() *memStore {
	return &memStore{
		campaigns: map[int]*model.Campaign{},
		usage:     map[string]int{},
	}
}

func usageKey(serverID int, date string, hour int) string {
	return fmt.Sprintf("%d|%s|%d", serverID, date, hour)
}

func (s *memStore) addUsage(serverID int, at time.Time, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usage[usageKey(serverID, at.Format("2006-01-02"), at.Hour())] += n
}

// ---------------------------------------------------------------- campaigns

type fakeCampaignRepo struct{ s *memStore }

func (r fakeCampaignRepo) Create(c *model.Campaign) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.nextCampaignID++
	c.ID = r.s.nextCampaignID
	if c.Status == "" {
		c.Status = model.CampaignPending
	}
	r.s.campaigns[c.ID] = c
	return nil
}

func (r fakeCampaignRepo) GetByID(id int) (*model.Campaign, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.campaigns[id]
	if !ok {
		return nil, appErrors.NewCampaignNotFound(id)
	}
	copied := *c
	return &copied, nil
}

func (r fakeCampaignRepo) GetStatus(id int) (string, error) {
	r.s.mu.Lock()
	r.s.statusCalls++
	call := r.s.statusCalls
	hook := r.s.statusHook
	r.s.mu.Unlock()

	if hook != nil {
		hook(call)
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.campaigns[id]
	if !ok {
		return "", appErrors.NewCampaignNotFound(id)
	}
	return c.Status, nil
}

func (r fakeCampaignRepo) ListByUser(userID int) ([]*model.Campaign, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*model.Campaign{}
	for _, c := range r.s.campaigns {
		if c.UserID == userID {
			copied := *c
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r fakeCampaignRepo) UpdateStatus(id int, status string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.campaigns[id]
	if !ok {
		return appErrors.NewCampaignNotFound(id)
	}
	c.Status = status
	return nil
}

func (r fakeCampaignRepo) MarkStarted(id int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.campaigns[id]
	if !ok {
		return appErrors.NewCampaignNotFound(id)
	}
	now := time.Now()
	c.Status = model.CampaignRunning
	c.StartedAt = &now
	return nil
}

func (r fakeCampaignRepo) MarkCompleted(id, sent, failed int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.campaigns[id]
	if !ok {
		return appErrors.NewCampaignNotFound(id)
	}
	now := time.Now()
	c.Status = model.CampaignCompleted
	c.EmailsSent = sent
	c.EmailsFailed = failed
	c.CompletedAt = &now
	return nil
}

func (r fakeCampaignRepo) SetTotalRecipients(id, total int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if c, ok := r.s.campaigns[id]; ok {
		c.TotalRecipients = total
	}
	return nil
}

func (r fakeCampaignRepo) Delete(id, userID int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.campaigns[id]
	if !ok || c.UserID != userID {
		return appErrors.NewCampaignNotFound(id)
	}
	delete(r.s.campaigns, id)
	return nil
}

// --------------------------------------------------------------- recipients

type fakeRecipientRepo struct{ s *memStore }

func (r fakeRecipientRepo) BulkCreate(campaignID int, emails []string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, e := range emails {
		r.s.nextRecipientID++
		r.s.recipients = append(r.s.recipients, &model.Recipient{
			ID:         r.s.nextRecipientID,
			CampaignID: campaignID,
			Email:      e,
			Status:     model.RecipientPending,
			CreatedAt:  time.Now(),
		})
	}
	return len(emails), nil
}

func (r fakeRecipientRepo) ListByCampaign(campaignID int) ([]*model.Recipient, error) {
	return r.list(campaignID, "")
}

func (r fakeRecipientRepo) ListPending(campaignID int) ([]*model.Recipient, error) {
	return r.list(campaignID, model.RecipientPending)
}

func (r fakeRecipientRepo) list(campaignID int, status string) ([]*model.Recipient, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*model.Recipient{}
	for _, rec := range r.s.recipients {
		if rec.CampaignID == campaignID && (status == "" || rec.Status == status) {
			copied := *rec
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r fakeRecipientRepo) CountPending(campaignID int) (int, error) {
	pending, err := r.list(campaignID, model.RecipientPending)
	return len(pending), err
}

func (r fakeRecipientRepo) CountByStatus(campaignID int) (map[string]int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stats := map[string]int{"pending": 0, "sent": 0, "failed": 0}
	for _, rec := range r.s.recipients {
		if rec.CampaignID == campaignID {
			stats[rec.Status]++
		}
	}
	return stats, nil
}

func (r fakeRecipientRepo) MarkSent(id, smtpServerID int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, rec := range r.s.recipients {
		if rec.ID == id && rec.Status == model.RecipientPending {
			now := time.Now()
			rec.Status = model.RecipientSent
			rec.SMTPServerID = &smtpServerID
			rec.ErrorMessage = nil
			rec.SentAt = &now
		}
	}
	return nil
}

func (r fakeRecipientRepo) MarkFailed(id int, smtpServerID *int, errorMessage string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, rec := range r.s.recipients {
		if rec.ID == id && rec.Status == model.RecipientPending {
			rec.Status = model.RecipientFailed
			rec.SMTPServerID = smtpServerID
			msg := errorMessage
			rec.ErrorMessage = &msg
		}
	}
	return nil
}

// ------------------------------------------------------------- smtp servers

type fakeSMTPRepo struct{ s *memStore }

func (r fakeSMTPRepo) Create(srv *model.SMTPServer) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.nextServerID++
	srv.ID = r.s.nextServerID
	r.s.servers = append(r.s.servers, srv)
	return nil
}

func (r fakeSMTPRepo) GetByID(id int) (*model.SMTPServer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, srv := range r.s.servers {
		if srv.ID == id {
			return srv, nil
		}
	}
	return nil, appErrors.NewSMTPServerNotFound(id)
}

func (r fakeSMTPRepo) ListByUser(userID int) ([]*model.SMTPServer, error) {
	return r.listUser(userID, false)
}

func (r fakeSMTPRepo) ListActive(userID int) ([]*model.SMTPServer, error) {
	return r.listUser(userID, true)
}

func (r fakeSMTPRepo) listUser(userID int, activeOnly bool) ([]*model.SMTPServer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*model.SMTPServer{}
	for _, srv := range r.s.servers {
		if srv.UserID == userID && (!activeOnly || srv.IsActive) {
			out = append(out, srv)
		}
	}
	return out, nil
}

func (r fakeSMTPRepo) Update(srv *model.SMTPServer) error { return nil }
func (r fakeSMTPRepo) Delete(id, userID int) error        { return nil }

// -------------------------------------------------------------------- usage

type fakeUsageRepo struct{ s *memStore }

func (r fakeUsageRepo) Increment(serverID int, date string, hour int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.usage[usageKey(serverID, date, hour)]++
	return nil
}

func (r fakeUsageRepo) DailyTotal(serverID int, date string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	total := 0
	for hour := 0; hour < 24; hour++ {
		total += r.s.usage[usageKey(serverID, date, hour)]
	}
	return total, nil
}

func (r fakeUsageRepo) HourlyTotal(serverID int, date string, hour int) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.usage[usageKey(serverID, date, hour)], nil
}

// ------------------------------------------------------------- retry queue

type fakeRetryRepo struct{ s *memStore }

func (r fakeRetryRepo) Create(campaignID int, retryAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.nextRetryID++
	r.s.retries = append(r.s.retries, &model.RetryEntry{
		ID:         r.s.nextRetryID,
		CampaignID: campaignID,
		RetryAt:    retryAt,
		Status:     model.RetryPending,
		CreatedAt:  time.Now(),
	})
	return nil
}

func (r fakeRetryRepo) HasPending(campaignID int) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, e := range r.s.retries {
		if e.CampaignID == campaignID && e.Status == model.RetryPending {
			return true, nil
		}
	}
	return false, nil
}

func (r fakeRetryRepo) Due(now time.Time) ([]*model.RetryEntry, error) {
	r.s.mu.Lock()
	r.s.dueCalls++
	hook := r.s.dueHook
	r.s.mu.Unlock()

	if hook != nil {
		hook()
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*model.RetryEntry{}
	for _, e := range r.s.retries {
		if e.Status != model.RetryPending || e.RetryAt.After(now) {
			continue
		}
		c, ok := r.s.campaigns[e.CampaignID]
		if !ok {
			continue
		}
		if c.Status == model.CampaignPaused || c.Status == model.CampaignRunning {
			copied := *e
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r fakeRetryRepo) MarkProcessing(id int) error {
	return r.UpdateStatus(id, model.RetryProcessing)
}

func (r fakeRetryRepo) UpdateStatus(id int, status string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, e := range r.s.retries {
		if e.ID == id {
			e.Status = status
		}
	}
	return nil
}

// -------------------------------------------------------------------- logs

type fakeLogRepo struct{ s *memStore }

func (r fakeLogRepo) Create(l *model.EmailLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l.ID = len(r.s.logs) + 1
	r.s.logs = append(r.s.logs, l)
	return nil
}

func (r fakeLogRepo) ListByCampaign(campaignID int) ([]*model.EmailLog, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*model.EmailLog{}
	for _, l := range r.s.logs {
		if l.CampaignID == campaignID {
			out = append(out, l)
		}
	}
	return out, nil
}

var (
	_ repository.CampaignRepositoryInterface  = fakeCampaignRepo{}
	_ repository.RecipientRepositoryInterface = fakeRecipientRepo{}
	_ repository.SMTPRepositoryInterface      = fakeSMTPRepo{}
	_ repository.UsageRepositoryInterface     = fakeUsageRepo{}
	_ repository.RetryRepositoryInterface     = fakeRetryRepo{}
	_ repository.EmailLogRepositoryInterface  = fakeLogRepo{}
)

// -------------------------------------------------------------- publishers

type capturePublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *capturePublisher) Publish(e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *capturePublisher) all() []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.Event{}, p.events...)
}

func (p *capturePublisher) ofType(t events.Type) []events.Event {
	out := []events.Event{}
	for _, e := range p.all() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// ----------------------------------------------------------------- harness

// harness wires the engine against the in-memory store with a pinned clock.
type harness struct {
	store      *memStore
	campaigns  fakeCampaignRepo
	recipients fakeRecipientRepo
	servers    fakeSMTPRepo
	usage      fakeUsageRepo
	retries    fakeRetryRepo
	logs       fakeLogRepo

	transports map[int]*mailer.MockTransport

	distributor *engine.Distributor
	dispatcher  *engine.Dispatcher
	scheduler   *engine.RetryScheduler
	publisher   *capturePublisher

	mu  sync.Mutex
	now time.Time
}

func newHarness(now time.Time) *harness {
	store := newMemStore()
	h := &harness{
		store:      store,
		campaigns:  fakeCampaignRepo{store},
		recipients: fakeRecipientRepo{store},
		servers:    fakeSMTPRepo{store},
		usage:      fakeUsageRepo{store},
		retries:    fakeRetryRepo{store},
		logs:       fakeLogRepo{store},
		transports: map[int]*mailer.MockTransport{},
		publisher:  &capturePublisher{},
		now:        now,
	}

	clock := func() time.Time {
		h.mu.Lock()
		defer h.mu.Unlock()
		return h.now
	}

	h.distributor = &engine.Distributor{
		Campaigns:  h.campaigns,
		Recipients: h.recipients,
		Servers:    h.servers,
		Usage:      h.usage,
		Transports: h.transportFactory,
		Now:        clock,
	}
	h.dispatcher = engine.NewDispatcher(h.campaigns, h.recipients, h.retries, h.logs, h.distributor, h.publisher)
	h.dispatcher.Now = clock
	h.scheduler = engine.NewRetryScheduler(h.retries, h.recipients, h.campaigns, h.dispatcher)
	h.scheduler.Now = clock
	return h
}

func (h *harness) transportFactory(server *model.SMTPServer) (mailer.Transport, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	tr, ok := h.transports[server.ID]
	if !ok {
		tr = &mailer.MockTransport{}
		h.transports[server.ID] = tr
	}
	return tr, nil
}

func (h *harness) setNow(now time.Time) {
	h.mu.Lock()
	h.now = now
	h.mu.Unlock()
}

func (h *harness) addCampaign(userID int, emails ...string) *model.Campaign {
	c := &model.Campaign{
		UserID:      userID,
		Name:        "test campaign",
		Subject:     "hello",
		HTMLContent: "<p>hi</p>",
		Status:      model.CampaignPending,
	}
	h.campaigns.Create(c)
	h.recipients.BulkCreate(c.ID, emails)
	return c
}

func (h *harness) addServer(userID, dailyLimit, hourlyLimit int, name string) *model.SMTPServer {
	srv := &model.SMTPServer{
		UserID:      userID,
		Name:        name,
		Host:        "smtp.test",
		Port:        587,
		FromEmail:   name + "@test",
		DailyLimit:  dailyLimit,
		HourlyLimit: hourlyLimit,
		IsActive:    true,
	}
	h.servers.Create(srv)
	return srv
}
