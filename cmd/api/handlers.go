package main

import (
	"encoding/json"
	"net/http"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/leadstream/amocrm-sheets-sync/internal/infra/queue"
)

func handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"message":   "amoCRM to Google Sheets sync API",
		"version":   "1.0.0",
		"timestamp": time.Now().Format(time.RFC3339),
		"endpoints": map[string]interface{}{
			"health":  "/health",
			"metrics": "/metrics",
			"webhooks": map[string]string{
				"amocrm": "/api/webhooks/amocrm",
			},
			"sync": map[string]string{
				"budget": "/api/sync/budget/{leadId}",
			},
		},
	})
}

func handleNotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   "Not Found",
		"message": "Route " + r.URL.Path + " not found",
	})
}

func connValue(rmq *queue.RabbitMQ) *amqp.Connection {
	if rmq == nil {
		return nil
	}
	return rmq.Conn
}
