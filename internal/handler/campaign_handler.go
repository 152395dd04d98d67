// internal/handler/campaign_handler.go
package handler

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/unclebandit/mailblast-backend/internal/engine"
	appErrors "github.com/unclebandit/mailblast-backend/internal/errors"
	"github.com/unclebandit/mailblast-backend/internal/model"
	"github.com/unclebandit/mailblast-backend/internal/repository"
)

// CampaignHandler holds the dependencies for campaign-related HTTP handlers
type CampaignHandler struct {
	Campaigns  repository.CampaignRepositoryInterface
	Recipients repository.RecipientRepositoryInterface
	Logs       repository.EmailLogRepositoryInterface
	Dispatcher *engine.Dispatcher
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func campaignID(r *http.Request) (int, error) {
	return strconv.Atoi(chi.URLParam(r, "id"))
}

// CreateCampaignHandler handles creating a new campaign
func (h *CampaignHandler) CreateCampaignHandler(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		UserID      int    `json:"user_id"`
		Name        string `json:"name"`
		Subject     string `json:"subject"`
		HTMLContent string `json:"html_content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if payload.Name == "" || payload.Subject == "" || payload.HTMLContent == "" {
		http.Error(w, "missing required fields: name, subject, html_content", http.StatusBadRequest)
		return
	}

	campaign := &model.Campaign{
		UserID:      payload.UserID,
		Name:        payload.Name,
		Subject:     payload.Subject,
		HTMLContent: payload.HTMLContent,
		Status:      model.CampaignPending,
	}
	if err := h.Campaigns.Create(campaign); err != nil {
		http.Error(w, "failed to create campaign: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, campaign)
}

// ListCampaignsHandler returns the user's campaigns with per-status recipient counts
func (h *CampaignHandler) ListCampaignsHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.Atoi(r.URL.Query().Get("user_id"))
	if err != nil {
		http.Error(w, "user_id query parameter is required", http.StatusBadRequest)
		return
	}

	campaigns, err := h.Campaigns.ListByUser(userID)
	if err != nil {
		http.Error(w, "failed to fetch campaigns: "+err.Error(), http.StatusInternalServerError)
		return
	}

	type campaignWithStats struct {
		*model.Campaign
		Stats map[string]int `json:"stats"`
	}
	out := []campaignWithStats{}
	for _, c := range campaigns {
		stats, err := h.Recipients.CountByStatus(c.ID)
		if err != nil {
			http.Error(w, "failed to fetch campaign stats: "+err.Error(), http.StatusInternalServerError)
			return
		}
		out = append(out, campaignWithStats{Campaign: c, Stats: stats})
	}
	writeJSON(w, http.StatusOK, out)
}

// GetCampaignHandler returns one campaign with its recipients and stats
func (h *CampaignHandler) GetCampaignHandler(w http.ResponseWriter, r *http.Request) {
	id, err := campaignID(r)
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	campaign, err := h.Campaigns.GetByID(id)
	if err != nil {
		status := http.StatusInternalServerError
		var notFound *appErrors.ErrCampaignNotFound
		if errors.As(err, &notFound) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}

	recipients, err := h.Recipients.ListByCampaign(id)
	if err != nil {
		http.Error(w, "failed to fetch recipients: "+err.Error(), http.StatusInternalServerError)
		return
	}
	stats, err := h.Recipients.CountByStatus(id)
	if err != nil {
		http.Error(w, "failed to fetch stats: "+err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"campaign":   campaign,
		"recipients": recipients,
		"stats":      stats,
	})
}

// DeleteCampaignHandler removes a campaign the user owns
func (h *CampaignHandler) DeleteCampaignHandler(w http.ResponseWriter, r *http.Request) {
	id, err := campaignID(r)
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}
	userID, err := strconv.Atoi(r.URL.Query().Get("user_id"))
	if err != nil {
		http.Error(w, "user_id query parameter is required", http.StatusBadRequest)
		return
	}

	if err := h.Campaigns.Delete(id, userID); err != nil {
		status := http.StatusInternalServerError
		var notFound *appErrors.ErrCampaignNotFound
		if errors.As(err, &notFound) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Campaign deleted successfully"})
}

// AddRecipientsHandler takes a JSON array of emails
func (h *CampaignHandler) AddRecipientsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := campaignID(r)
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	var payload struct {
		Emails []string `json:"emails"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	h.insertRecipients(w, id, payload.Emails)
}

// UploadRecipientsCSVHandler takes a CSV body; the email is read from an
// "email" column when a header is present, else from the first column.
func (h *CampaignHandler) UploadRecipientsCSVHandler(w http.ResponseWriter, r *http.Request) {
	id, err := campaignID(r)
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	emails, err := parseCSVEmails(r.Body)
	if err != nil {
		http.Error(w, "invalid CSV: "+err.Error(), http.StatusBadRequest)
		return
	}

	h.insertRecipients(w, id, emails)
}

func parseCSVEmails(body io.Reader) ([]string, error) {
	reader := csv.NewReader(body)
	reader.FieldsPerRecord = -1

	emails := []string{}
	emailCol := 0
	first := true
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(record) == 0 {
			continue
		}
		if first {
			first = false
			header := false
			for i, col := range record {
				if strings.EqualFold(strings.TrimSpace(col), "email") {
					emailCol = i
					header = true
					break
				}
			}
			if header {
				continue
			}
		}
		if emailCol < len(record) {
			emails = append(emails, record[emailCol])
		}
	}
	return emails, nil
}

func (h *CampaignHandler) insertRecipients(w http.ResponseWriter, campaignID int, raw []string) {
	if _, err := h.Campaigns.GetByID(campaignID); err != nil {
		status := http.StatusInternalServerError
		var notFound *appErrors.ErrCampaignNotFound
		if errors.As(err, &notFound) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}

	emails := normalizeEmails(raw)
	if len(emails) == 0 {
		http.Error(w, "no valid emails provided", http.StatusBadRequest)
		return
	}

	count, err := h.Recipients.BulkCreate(campaignID, emails)
	if err != nil {
		http.Error(w, "failed to add recipients: "+err.Error(), http.StatusInternalServerError)
		return
	}

	stats, err := h.Recipients.CountByStatus(campaignID)
	if err != nil {
		http.Error(w, "failed to count recipients: "+err.Error(), http.StatusInternalServerError)
		return
	}
	total := stats["pending"] + stats["sent"] + stats["failed"]
	if err := h.Campaigns.SetTotalRecipients(campaignID, total); err != nil {
		http.Error(w, "failed to update campaign: "+err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": strconv.Itoa(count) + " recipients added successfully",
		"count":   count,
	})
}

// normalizeEmails trims, lowercases, drops anything without an '@' and
// de-duplicates while keeping input order.
func normalizeEmails(raw []string) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, e := range raw {
		e = strings.ToLower(strings.TrimSpace(e))
		if !strings.Contains(e, "@") || seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	return out
}

// StartCampaignHandler kicks off the send loop in the background
func (h *CampaignHandler) StartCampaignHandler(w http.ResponseWriter, r *http.Request) {
	id, err := campaignID(r)
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	if err := h.Dispatcher.Start(id); err != nil {
		status := http.StatusInternalServerError
		var notFound *appErrors.ErrCampaignNotFound
		switch {
		case errors.Is(err, appErrors.ErrCampaignAlreadyRunning):
			status = http.StatusConflict
		case errors.As(err, &notFound):
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Campaign started"})
}

// PauseCampaignHandler requests a cooperative pause
func (h *CampaignHandler) PauseCampaignHandler(w http.ResponseWriter, r *http.Request) {
	id, err := campaignID(r)
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	if err := h.Dispatcher.Pause(id); err != nil {
		status := http.StatusInternalServerError
		var notFound *appErrors.ErrCampaignNotFound
		if errors.As(err, &notFound) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Campaign paused"})
}

// ListEmailLogsHandler returns the campaign's per-attempt audit trail
func (h *CampaignHandler) ListEmailLogsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := campaignID(r)
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	logs, err := h.Logs.ListByCampaign(id)
	if err != nil {
		http.Error(w, "failed to fetch logs: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}
