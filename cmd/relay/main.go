// cmd/relay/main.go
//
// Tails the campaign event exchange and prints every event. Useful for
// following a run from a terminal when the API server publishes to AMQP.
package main

import (
	"encoding/json"
	"log"

	"github.com/streadway/amqp"

	"github.com/unclebandit/mailblast-backend/internal/config"
	"github.com/unclebandit/mailblast-backend/internal/events"
)

func main() {
	cfg := config.Load()
	if cfg.AMQPURL == "" {
		log.Fatal("AMQP_URL is required for the relay")
	}

	conn, err := amqp.Dial(cfg.AMQPURL)
	if err != nil {
		log.Fatal("Failed to connect to RabbitMQ:", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		log.Fatal("Failed to open a channel:", err)
	}
	defer ch.Close()

	err = ch.ExchangeDeclare(events.ExchangeName, "topic", true, false, false, false, nil)
	if err != nil {
		log.Fatal("Failed to declare exchange:", err)
	}

	q, err := ch.QueueDeclare(
		"",    // name, server-generated
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		log.Fatal("Failed to declare queue:", err)
	}

	if err := ch.QueueBind(q.Name, "campaign.#", events.ExchangeName, false, nil); err != nil {
		log.Fatal("Failed to bind queue:", err)
	}

	msgs, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		log.Fatal("Failed to register consumer:", err)
	}

	log.Println("Relay running, waiting for campaign events...")

	for d := range msgs {
		var e events.Event
		if err := json.Unmarshal(d.Body, &e); err != nil {
			log.Println("Invalid event:", err)
			continue
		}
		printEvent(e)
	}
}

func printEvent(e events.Event) {
	switch e.Type {
	case events.TypeProgress:
		p := e.Progress
		log.Printf("[campaign %d] progress: %d/%d sent, %d failed, %d remaining (%s -> %s)\n",
			e.CampaignID, p.Sent, p.Total, p.Failed, p.Remaining, p.CurrentSMTP, p.CurrentEmail)
	case events.TypePaused:
		log.Printf("[campaign %d] ⏸ paused: %s, resumes at %s\n",
			e.CampaignID, e.Paused.Reason, e.Paused.RetryAt.Format("2006-01-02 15:04"))
	case events.TypeComplete:
		c := e.Complete
		log.Printf("[campaign %d] ✅ complete: %d sent, %d failed of %d\n",
			e.CampaignID, c.Sent, c.Failed, c.Total)
	case events.TypeError:
		log.Printf("[campaign %d] ❌ error: %s\n", e.CampaignID, e.Error.Error)
	default:
		log.Printf("[campaign %d] %s event\n", e.CampaignID, e.Type)
	}
}
