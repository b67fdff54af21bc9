package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// LeadSyncedPayload describes a lead that just landed in the sheet.
// Consumers currently act only on closed_won events.
type LeadSyncedPayload struct {
	LeadID          string    `json:"lead_id"`
	ContactName     string    `json:"contact_name"`
	ResponsibleName string    `json:"responsible_name"`
	Budget          float64   `json:"budget"`
	Status          string    `json:"status"`
	EventType       string    `json:"event_type"`
	Subdomain       string    `json:"subdomain"`
	SyncedAt        time.Time `json:"synced_at"`
}

type Producer struct {
	Ch *amqp.Channel
}

func NewProducer(ch *amqp.Channel) *Producer {
	return &Producer{Ch: ch}
}

func (p *Producer) PublishLeadSynced(ctx context.Context, payload LeadSyncedPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	err = p.Ch.PublishWithContext(ctx,
		ExchangeName,
		RoutingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("publish to RabbitMQ: %w", err)
	}
	return nil
}
