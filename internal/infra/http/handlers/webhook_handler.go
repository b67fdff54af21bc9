package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/leadstream/amocrm-sheets-sync/internal/infra/http/middleware"
	"github.com/leadstream/amocrm-sheets-sync/internal/usecase"
)

// WebhookProcessor is implemented by the webhook ingestion usecase.
type WebhookProcessor interface {
	Execute(ctx context.Context, payload usecase.WebhookPayload) error
}

type WebhookHandler struct {
	Processor WebhookProcessor
	validate  *validator.Validate
	log       *zap.Logger
}

func NewWebhookHandler(processor WebhookProcessor, log *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		Processor: processor,
		validate:  validator.New(),
		log:       log,
	}
}

type processedCounts struct {
	Added   int `json:"added"`
	Updated int `json:"updated"`
	Deleted int `json:"deleted"`
}

type processedSummary struct {
	Leads     processedCounts `json:"leads"`
	Contacts  processedCounts `json:"contacts"`
	Companies processedCounts `json:"companies"`
}

type webhookResponse struct {
	Success   bool              `json:"success"`
	Message   string            `json:"message"`
	Error     string            `json:"error,omitempty"`
	Timestamp string            `json:"timestamp"`
	Processed *processedSummary `json:"processed,omitempty"`
}

func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var payload usecase.WebhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.log.Error("failed to decode webhook body", zap.Error(err))
		writeJSON(w, http.StatusBadRequest, webhookResponse{
			Success:   false,
			Message:   "Invalid webhook payload",
			Error:     err.Error(),
			Timestamp: time.Now().Format(time.RFC3339),
		})
		return
	}

	if err := h.validate.Struct(payload); err != nil {
		h.log.Warn("webhook payload validation failed", zap.Error(err))
		writeJSON(w, http.StatusBadRequest, webhookResponse{
			Success:   false,
			Message:   "Invalid webhook payload",
			Error:     err.Error(),
			Timestamp: time.Now().Format(time.RFC3339),
		})
		return
	}

	subdomain := ""
	if payload.Account != nil {
		subdomain = payload.Account.Subdomain
	}
	h.log.Info("amoCRM webhook received",
		zap.String("subdomain", subdomain),
		zap.String("user_agent", r.UserAgent()))

	summary := summarize(payload)
	middleware.RecordLeadEvents("add", summary.Leads.Added)
	middleware.RecordLeadEvents("update", summary.Leads.Updated)

	if err := h.Processor.Execute(r.Context(), payload); err != nil {
		h.log.Error("error processing amoCRM webhook", zap.Error(err))
		middleware.RecordWebhook("error")
		writeJSON(w, http.StatusInternalServerError, webhookResponse{
			Success:   false,
			Message:   "Error processing amoCRM webhook",
			Error:     err.Error(),
			Timestamp: time.Now().Format(time.RFC3339),
		})
		return
	}

	middleware.RecordWebhook("success")
	writeJSON(w, http.StatusOK, webhookResponse{
		Success:   true,
		Message:   "amoCRM webhook processed successfully and data sent to Google Sheets",
		Timestamp: time.Now().Format(time.RFC3339),
		Processed: &summary,
	})
}

func summarize(payload usecase.WebhookPayload) processedSummary {
	var s processedSummary
	if payload.Leads != nil {
		s.Leads = processedCounts{
			Added:   len(payload.Leads.Add),
			Updated: len(payload.Leads.Update),
			Deleted: len(payload.Leads.Delete),
		}
	}
	s.Contacts.Added, s.Contacts.Updated, s.Contacts.Deleted = payload.Contacts.Counts()
	s.Companies.Added, s.Companies.Updated, s.Companies.Deleted = payload.Companies.Counts()
	return s
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
