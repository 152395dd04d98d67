// internal/handler/smtp_handler.go
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/unclebandit/mailblast-backend/internal/crypto"
	appErrors "github.com/unclebandit/mailblast-backend/internal/errors"
	"github.com/unclebandit/mailblast-backend/internal/mailer"
	"github.com/unclebandit/mailblast-backend/internal/model"
	"github.com/unclebandit/mailblast-backend/internal/repository"
)

// SMTPHandler manages the outbound channel configuration. Passwords are
// encrypted before they touch the database.
type SMTPHandler struct {
	Servers       repository.SMTPRepositoryInterface
	Transports    mailer.TransportFactory
	EncryptionKey string
}

type smtpPayload struct {
	UserID      int    `json:"user_id"`
	Name        string `json:"name"`
	Host        string `json:"host"`
	Port        int    `json:"port"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	FromEmail   string `json:"from_email"`
	FromName    string `json:"from_name"`
	Secure      bool   `json:"secure"`
	DailyLimit  int    `json:"daily_limit"`
	HourlyLimit int    `json:"hourly_limit"`
	IsActive    *bool  `json:"is_active"`
}

func serverID(r *http.Request) (int, error) {
	return strconv.Atoi(chi.URLParam(r, "id"))
}

func (h *SMTPHandler) CreateServerHandler(w http.ResponseWriter, r *http.Request) {
	var payload smtpPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if payload.Name == "" || payload.Host == "" || payload.Port == 0 || payload.FromEmail == "" {
		http.Error(w, "missing required fields: name, host, port, from_email", http.StatusBadRequest)
		return
	}

	encrypted, err := crypto.Encrypt(payload.Password, h.EncryptionKey)
	if err != nil {
		http.Error(w, "failed to encrypt password: "+err.Error(), http.StatusInternalServerError)
		return
	}

	active := true
	if payload.IsActive != nil {
		active = *payload.IsActive
	}

	server := &model.SMTPServer{
		UserID:      payload.UserID,
		Name:        payload.Name,
		Host:        payload.Host,
		Port:        payload.Port,
		Username:    payload.Username,
		Password:    encrypted,
		FromEmail:   payload.FromEmail,
		FromName:    payload.FromName,
		Secure:      payload.Secure,
		DailyLimit:  payload.DailyLimit,
		HourlyLimit: payload.HourlyLimit,
		IsActive:    active,
	}
	if err := h.Servers.Create(server); err != nil {
		http.Error(w, "failed to create SMTP server: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, server)
}

func (h *SMTPHandler) ListServersHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.Atoi(r.URL.Query().Get("user_id"))
	if err != nil {
		http.Error(w, "user_id query parameter is required", http.StatusBadRequest)
		return
	}

	servers, err := h.Servers.ListByUser(userID)
	if err != nil {
		http.Error(w, "failed to fetch SMTP servers: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, servers)
}

func (h *SMTPHandler) UpdateServerHandler(w http.ResponseWriter, r *http.Request) {
	id, err := serverID(r)
	if err != nil {
		http.Error(w, "invalid server id", http.StatusBadRequest)
		return
	}

	existing, err := h.Servers.GetByID(id)
	if err != nil {
		h.writeServerError(w, err)
		return
	}

	var payload smtpPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	// Empty password keeps the stored one.
	password := existing.Password
	if payload.Password != "" {
		password, err = crypto.Encrypt(payload.Password, h.EncryptionKey)
		if err != nil {
			http.Error(w, "failed to encrypt password: "+err.Error(), http.StatusInternalServerError)
			return
		}
	}

	active := existing.IsActive
	if payload.IsActive != nil {
		active = *payload.IsActive
	}

	existing.Name = payload.Name
	existing.Host = payload.Host
	existing.Port = payload.Port
	existing.Username = payload.Username
	existing.Password = password
	existing.FromEmail = payload.FromEmail
	existing.FromName = payload.FromName
	existing.Secure = payload.Secure
	existing.DailyLimit = payload.DailyLimit
	existing.HourlyLimit = payload.HourlyLimit
	existing.IsActive = active

	if err := h.Servers.Update(existing); err != nil {
		http.Error(w, "failed to update SMTP server: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, existing)
}

func (h *SMTPHandler) DeleteServerHandler(w http.ResponseWriter, r *http.Request) {
	id, err := serverID(r)
	if err != nil {
		http.Error(w, "invalid server id", http.StatusBadRequest)
		return
	}
	userID, err := strconv.Atoi(r.URL.Query().Get("user_id"))
	if err != nil {
		http.Error(w, "user_id query parameter is required", http.StatusBadRequest)
		return
	}

	if err := h.Servers.Delete(id, userID); err != nil {
		h.writeServerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "SMTP server deleted successfully"})
}

// TestServerHandler verifies the stored config can establish a session.
func (h *SMTPHandler) TestServerHandler(w http.ResponseWriter, r *http.Request) {
	id, err := serverID(r)
	if err != nil {
		http.Error(w, "invalid server id", http.StatusBadRequest)
		return
	}

	server, err := h.Servers.GetByID(id)
	if err != nil {
		h.writeServerError(w, err)
		return
	}

	transport, err := h.Transports(server)
	if err != nil {
		http.Error(w, "failed to build transport: "+err.Error(), http.StatusInternalServerError)
		return
	}

	if err := transport.Initialize(); err != nil {
		resp := map[string]any{"success": false, "error": err.Error()}
		var sendErr *mailer.SendError
		if errors.As(err, &sendErr) {
			resp["kind"] = sendErr.Kind.String()
			if sendErr.Code != 0 {
				resp["code"] = sendErr.Code
			}
		}
		writeJSON(w, http.StatusOK, resp)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *SMTPHandler) writeServerError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var notFound *appErrors.ErrSMTPServerNotFound
	if errors.As(err, &notFound) {
		status = http.StatusNotFound
	}
	http.Error(w, err.Error(), status)
}
