package handlers

import (
	"fmt"
	"net/http"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
)

type HealthHandler struct {
	SpreadsheetID   string
	AmoCRMSubdomain string
	Redis           *redis.Client
	RabbitMQ        *amqp.Connection
	StartTime       time.Time
}

type HealthResponse struct {
	Status       string            `json:"status"`
	Version      string            `json:"version"`
	Uptime       string            `json:"uptime"`
	Dependencies map[string]string `json:"dependencies"`
}

func NewHealthHandler(spreadsheetID, amoCRMSubdomain string, redisClient *redis.Client, rabbitMQ *amqp.Connection) *HealthHandler {
	return &HealthHandler{
		SpreadsheetID:   spreadsheetID,
		AmoCRMSubdomain: amoCRMSubdomain,
		Redis:           redisClient,
		RabbitMQ:        rabbitMQ,
		StartTime:       time.Now(),
	}
}

func (h *HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	deps := make(map[string]string)

	if h.SpreadsheetID != "" {
		deps["google_sheets"] = "configured"
	} else {
		deps["google_sheets"] = "not configured"
	}

	if h.AmoCRMSubdomain != "" {
		deps["amocrm"] = "configured"
	} else {
		deps["amocrm"] = "not configured"
	}

	if h.Redis != nil {
		if err := h.Redis.Ping(r.Context()).Err(); err != nil {
			deps["redis"] = fmt.Sprintf("unhealthy: %v", err)
		} else {
			deps["redis"] = "healthy"
		}
	} else {
		deps["redis"] = "not configured"
	}

	if h.RabbitMQ != nil {
		if h.RabbitMQ.IsClosed() {
			deps["rabbitmq"] = "unhealthy: connection closed"
		} else {
			deps["rabbitmq"] = "healthy"
		}
	} else {
		deps["rabbitmq"] = "not configured"
	}

	status := "healthy"
	for _, v := range deps {
		if v != "healthy" && v != "configured" && v != "not configured" {
			status = "degraded"
			break
		}
	}

	response := HealthResponse{
		Status:       status,
		Version:      "1.0.0",
		Uptime:       time.Since(h.StartTime).Round(time.Second).String(),
		Dependencies: deps,
	}

	code := http.StatusOK
	if status == "degraded" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, response)
}
