package queue

import (
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// WonLeadNotifier is the contract for whatever tells humans about a won
// deal (currently the SMTP sender).
type WonLeadNotifier interface {
	NotifyWonLead(payload LeadSyncedPayload) error
}

type Worker struct {
	Channel  *amqp.Channel
	Notifier WonLeadNotifier
	logger   *zap.Logger
}

func NewWorker(ch *amqp.Channel, notifier WonLeadNotifier, logger *zap.Logger) *Worker {
	return &Worker{
		Channel:  ch,
		Notifier: notifier,
		logger:   logger,
	}
}

func (w *Worker) Start(queueName string) {
	msgs, err := w.Channel.Consume(
		queueName,
		"",    // consumer
		false, // auto-ack: manual acks so failed notifications dead-letter
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		w.logger.Error("failed to register RabbitMQ consumer", zap.Error(err))
		return
	}

	w.logger.Info("notification worker waiting on queue", zap.String("queue", queueName))

	for d := range msgs {
		var payload LeadSyncedPayload
		if err := json.Unmarshal(d.Body, &payload); err != nil {
			w.logger.Error("malformed message, rejecting without requeue", zap.Error(err))
			_ = d.Nack(false, false)
			continue
		}

		if payload.EventType != "closed_won" {
			// Nothing to notify about; drain the message.
			_ = d.Ack(false)
			continue
		}

		if err := w.Notifier.NotifyWonLead(payload); err != nil {
			w.logger.Error("won-lead notification failed",
				zap.String("lead_id", payload.LeadID),
				zap.Error(err))
			_ = d.Nack(false, false)
			continue
		}

		w.logger.Info("won-lead notification sent", zap.String("lead_id", payload.LeadID))
		_ = d.Ack(false)
	}
}
