package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/leadstream/amocrm-sheets-sync/internal/infra/http/middleware"
)

// BudgetSyncer is implemented by the budget reconciliation usecase.
type BudgetSyncer interface {
	Execute(ctx context.Context, leadID, subdomain string) bool
}

type SyncHandler struct {
	Syncer   BudgetSyncer
	validate *validator.Validate
	log      *zap.Logger
}

func NewSyncHandler(syncer BudgetSyncer, log *zap.Logger) *SyncHandler {
	return &SyncHandler{
		Syncer:   syncer,
		validate: validator.New(),
		log:      log,
	}
}

type syncBudgetRequest struct {
	Subdomain string `json:"subdomain" validate:"omitempty,hostname_rfc1123"`
}

type syncBudgetResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
	LeadID  string `json:"leadId,omitempty"`
}

func (h *SyncHandler) HandleBudgetSync(w http.ResponseWriter, r *http.Request) {
	leadID := chi.URLParam(r, "leadId")
	if leadID == "" {
		writeJSON(w, http.StatusBadRequest, syncBudgetResponse{
			Success: false,
			Error:   "Lead ID is required",
			Message: "Please provide lead ID in URL parameters",
		})
		return
	}

	// Body is optional; it may carry the account subdomain.
	var req syncBudgetRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	if err := h.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, syncBudgetResponse{
			Success: false,
			Error:   "Invalid subdomain",
			Message: err.Error(),
			LeadID:  leadID,
		})
		return
	}

	h.log.Info("budget sync requested",
		zap.String("lead_id", leadID),
		zap.String("subdomain", req.Subdomain))

	if ok := h.Syncer.Execute(r.Context(), leadID, req.Subdomain); !ok {
		middleware.RecordBudgetSync("failure")
		writeJSON(w, http.StatusInternalServerError, syncBudgetResponse{
			Success: false,
			Error:   "Synchronization failed",
			Message: fmt.Sprintf("Failed to synchronize budget for lead %s", leadID),
			LeadID:  leadID,
		})
		return
	}

	middleware.RecordBudgetSync("success")
	writeJSON(w, http.StatusOK, syncBudgetResponse{
		Success: true,
		Message: fmt.Sprintf("Budget synchronized successfully for lead %s", leadID),
		LeadID:  leadID,
	})
}
