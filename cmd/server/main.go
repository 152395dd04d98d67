// cmd/server/main.go
package main

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/streadway/amqp"

	"github.com/unclebandit/mailblast-backend/internal/config"
	"github.com/unclebandit/mailblast-backend/internal/crypto"
	"github.com/unclebandit/mailblast-backend/internal/db"
	"github.com/unclebandit/mailblast-backend/internal/engine"
	"github.com/unclebandit/mailblast-backend/internal/events"
	"github.com/unclebandit/mailblast-backend/internal/handler"
	"github.com/unclebandit/mailblast-backend/internal/mailer"
	"github.com/unclebandit/mailblast-backend/internal/model"
	"github.com/unclebandit/mailblast-backend/internal/repository"
)

func main() {
	cfg := config.Load()

	if cfg.RunMigrations {
		if err := db.Migrate(cfg.DatabaseURL); err != nil {
			log.Fatalf("failed to run migrations: %v", err)
		}
		log.Println("✅ Migrations applied")
	}

	db.Init(cfg.DatabaseURL)

	campaignRepo := &repository.CampaignRepository{DB: db.DB}
	recipientRepo := &repository.RecipientRepository{DB: db.DB}
	smtpRepo := &repository.SMTPRepository{DB: db.DB}
	usageRepo := &repository.UsageRepository{DB: db.DB}
	retryRepo := &repository.RetryRepository{DB: db.DB}
	logRepo := &repository.EmailLogRepository{DB: db.DB}

	// The factory is the only place stored passwords get decrypted.
	transports := func(server *model.SMTPServer) (mailer.Transport, error) {
		password, err := crypto.Decrypt(server.Password, cfg.EncryptionKey)
		if err != nil {
			return nil, err
		}
		return mailer.NewSMTPTransport(server, password), nil
	}

	hub := events.NewHub()
	var publisher events.Publisher = hub
	if cfg.AMQPURL != "" {
		conn, err := amqp.Dial(cfg.AMQPURL)
		if err != nil {
			log.Fatal("Failed to connect to RabbitMQ:", err)
		}
		defer conn.Close()

		amqpPub, err := events.NewAMQPPublisher(conn)
		if err != nil {
			log.Fatal("Failed to set up event exchange:", err)
		}
		defer amqpPub.Close()

		publisher = events.Fanout{hub, amqpPub}
		log.Println("✅ Publishing campaign events to RabbitMQ")
	}

	distributor := &engine.Distributor{
		Campaigns:  campaignRepo,
		Recipients: recipientRepo,
		Servers:    smtpRepo,
		Usage:      usageRepo,
		Transports: transports,
	}
	dispatcher := engine.NewDispatcher(campaignRepo, recipientRepo, retryRepo, logRepo, distributor, publisher)

	scheduler := engine.NewRetryScheduler(retryRepo, recipientRepo, campaignRepo, dispatcher)
	if err := scheduler.Start(cfg.RetryIntervalMinutes); err != nil {
		log.Fatal("Failed to start retry scheduler:", err)
	}
	defer scheduler.Stop()

	campaignHandler := &handler.CampaignHandler{
		Campaigns:  campaignRepo,
		Recipients: recipientRepo,
		Logs:       logRepo,
		Dispatcher: dispatcher,
	}
	smtpHandler := &handler.SMTPHandler{
		Servers:       smtpRepo,
		Transports:    transports,
		EncryptionKey: cfg.EncryptionKey,
	}

	r := chi.NewRouter()

	// Campaign routes
	r.Post("/campaigns", campaignHandler.CreateCampaignHandler)
	r.Get("/campaigns", campaignHandler.ListCampaignsHandler)
	r.Get("/campaigns/{id}", campaignHandler.GetCampaignHandler)
	r.Delete("/campaigns/{id}", campaignHandler.DeleteCampaignHandler)
	r.Post("/campaigns/{id}/recipients", campaignHandler.AddRecipientsHandler)
	r.Post("/campaigns/{id}/recipients/csv", campaignHandler.UploadRecipientsCSVHandler)
	r.Post("/campaigns/{id}/start", campaignHandler.StartCampaignHandler)
	r.Post("/campaigns/{id}/pause", campaignHandler.PauseCampaignHandler)
	r.Get("/campaigns/{id}/logs", campaignHandler.ListEmailLogsHandler)

	// SMTP server routes
	r.Post("/smtp-servers", smtpHandler.CreateServerHandler)
	r.Get("/smtp-servers", smtpHandler.ListServersHandler)
	r.Put("/smtp-servers/{id}", smtpHandler.UpdateServerHandler)
	r.Delete("/smtp-servers/{id}", smtpHandler.DeleteServerHandler)
	r.Post("/smtp-servers/{id}/test", smtpHandler.TestServerHandler)

	log.Println("🚀 Server running on", cfg.HTTPAddr)
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, r))
}
