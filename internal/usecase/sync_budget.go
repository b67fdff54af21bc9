package usecase

import (
	"context"

	"go.uber.org/zap"

	"github.com/leadstream/amocrm-sheets-sync/internal/entity"
)

// SyncBudgetUseCase is the sync engine's reverse direction: it reads the
// budget cell back from the sheet and pushes it into the amoCRM lead
// when the two diverge.
type SyncBudgetUseCase struct {
	sheet    entity.LeadSheetRepository
	resolver CRMResolver
	logger   *zap.Logger
}

func NewSyncBudgetUseCase(sheet entity.LeadSheetRepository, resolver CRMResolver, logger *zap.Logger) *SyncBudgetUseCase {
	return &SyncBudgetUseCase{
		sheet:    sheet,
		resolver: resolver,
		logger:   logger,
	}
}

// Execute reconciles one lead's budget. Every failure mode returns
// false; equality is a successful no-op.
func (uc *SyncBudgetUseCase) Execute(ctx context.Context, leadID, subdomain string) bool {
	log := uc.logger.With(zap.String("lead_id", leadID))

	gateway, err := uc.resolver.Resolve(subdomain)
	if err != nil {
		log.Error("amoCRM client not available for budget sync", zap.Error(err))
		return false
	}

	record, err := uc.sheet.FindByLeadID(ctx, leadID)
	if err != nil {
		log.Error("failed to read lead from sheet", zap.Error(err))
		return false
	}
	if record == nil {
		log.Error("lead not found in sheet")
		return false
	}

	lead, err := gateway.GetLead(ctx, leadID)
	if err != nil || lead == nil {
		log.Error("lead not found in amoCRM", zap.Error(err))
		return false
	}

	crmPrice := lead.Price.Float64()
	if record.Budget == crmPrice {
		log.Info("budget already synchronized", zap.Float64("budget", record.Budget))
		return true
	}

	log.Info("updating amoCRM budget",
		zap.Float64("crm_price", crmPrice),
		zap.Float64("sheet_budget", record.Budget))

	if err := gateway.UpdateLeadPrice(ctx, leadID, record.Budget); err != nil {
		log.Error("failed to update budget in amoCRM", zap.Error(err))
		return false
	}
	return true
}
