package events

import (
    "encoding/json"
    "fmt"

    "github.com/streadway/amqp"
)

// ExchangeName is the topic exchange campaign events are published to.
// Routing key: campaign.<id>.<type>, so a consumer can bind "campaign.#"
// for everything or "campaign.42.*" for one campaign.
const ExchangeName = "campaign.events"

// AMQPPublisher forwards campaign events to RabbitMQ for out-of-process
// observers (see cmd/relay).
type AMQPPublisher struct {
    ch *amqp.Channel
}

func NewAMQPPublisher(conn *amqp.Connection) (*AMQPPublisher, error) {
    ch, err := conn.Channel()
    if err != nil {
        return nil, err
    }

    err = ch.ExchangeDeclare(
        ExchangeName, // name
        "topic",      // kind
        true,         // durable
        false,        // auto-delete
        false,        // internal
        false,        // no-wait
        nil,          // arguments
    )
    if err != nil {
        ch.Close()
        return nil, err
    }

    return &AMQPPublisher{ch: ch}, nil
}

func (p *AMQPPublisher) Publish(e Event) error {
    body, err := json.Marshal(e)
    if err != nil {
        return err
    }

    key := fmt.Sprintf("campaign.%d.%s", e.CampaignID, e.Type)
    return p.ch.Publish(
        ExchangeName,
        key,
        false, // mandatory
        false, // immediate
        amqp.Publishing{
            ContentType: "application/json",
            MessageId:   e.ID,
            Timestamp:   e.At,
            Body:        body,
        },
    )
}

func (p *AMQPPublisher) Close() error {
    return p.ch.Close()
}

var _ Publisher = (*AMQPPublisher)(nil)
