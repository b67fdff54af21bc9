package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/leadstream/amocrm-sheets-sync/internal/entity"
	"github.com/leadstream/amocrm-sheets-sync/internal/infra/integration/amocrm"
	"github.com/leadstream/amocrm-sheets-sync/internal/infra/queue"
)

type leadBucket string

const (
	bucketAdd    leadBucket = "add"
	bucketUpdate leadBucket = "update"
	bucketStatus leadBucket = "status"
)

// ProcessWebhookUseCase is the sync engine's ingestion side: it turns
// amoCRM webhook buckets into sheet rows, enriching each lead from the
// CRM REST API on the way.
type ProcessWebhookUseCase struct {
	sheet      entity.LeadSheetRepository
	resolver   CRMResolver
	cache      PipelineCache
	producer   NotificationProducer
	successful map[int64]struct{}
	logger     *zap.Logger
	guard      *leadGuard
}

func NewProcessWebhookUseCase(
	sheet entity.LeadSheetRepository,
	resolver CRMResolver,
	cache PipelineCache,
	producer NotificationProducer,
	successfulStatuses map[int64]struct{},
	logger *zap.Logger,
) *ProcessWebhookUseCase {
	return &ProcessWebhookUseCase{
		sheet:      sheet,
		resolver:   resolver,
		cache:      cache,
		producer:   producer,
		successful: successfulStatuses,
		logger:     logger,
		guard:      newLeadGuard(),
	}
}

// Execute processes every lead entry in every present bucket. A failure
// on one entry is logged and does not abort its siblings; a sheet setup
// failure aborts the whole call.
func (uc *ProcessWebhookUseCase) Execute(ctx context.Context, payload WebhookPayload) error {
	deliveryID := uuid.New().String()

	if err := uc.sheet.EnsureHeaders(ctx); err != nil {
		return fmt.Errorf("sheet setup: %w", err)
	}

	var subdomain string
	if payload.Account != nil {
		subdomain = payload.Account.Subdomain
	}

	gateway, err := uc.resolver.Resolve(subdomain)
	if err != nil {
		// Enrichment degrades to placeholders; rows still land in the sheet.
		uc.logger.Warn("no amoCRM client available, processing without enrichment",
			zap.String("delivery_id", deliveryID),
			zap.Error(err))
		gateway = nil
	}

	if payload.Leads == nil {
		return nil
	}

	uc.logger.Info("processing amoCRM webhook",
		zap.String("delivery_id", deliveryID),
		zap.String("subdomain", subdomain),
		zap.Int("add", len(payload.Leads.Add)),
		zap.Int("update", len(payload.Leads.Update)),
		zap.Int("status", len(payload.Leads.Status)))

	uc.processBucket(ctx, gateway, subdomain, payload.Leads.Add, bucketAdd)
	uc.processBucket(ctx, gateway, subdomain, payload.Leads.Update, bucketUpdate)
	uc.processBucket(ctx, gateway, subdomain, payload.Leads.Status, bucketStatus)

	return nil
}

// processBucket handles entries one at a time, in payload order, so a
// single webhook cannot race itself on the sheet.
func (uc *ProcessWebhookUseCase) processBucket(ctx context.Context, gateway CRMGateway, subdomain string, leads []amocrm.Lead, bucket leadBucket) {
	for i := range leads {
		if err := uc.processEntry(ctx, gateway, subdomain, &leads[i], bucket); err != nil {
			uc.logger.Error("failed to process lead entry",
				zap.String("bucket", string(bucket)),
				zap.String("lead_id", leads[i].ID.String()),
				zap.Error(err))
		}
	}
}

func (uc *ProcessWebhookUseCase) processEntry(ctx context.Context, gateway CRMGateway, subdomain string, lead *amocrm.Lead, bucket leadBucket) error {
	company, contact := uc.fetchRelated(ctx, gateway, lead)
	if company != nil {
		uc.logger.Debug("company data fetched",
			zap.String("lead_id", lead.ID.String()),
			zap.String("company", company.Name))
	}

	var eventType entity.EventType
	switch bucket {
	case bucketAdd:
		eventType = entity.EventCreated
	case bucketUpdate:
		eventType = entity.EventUpdated
		if uc.isSuccessfulStatus(lead.StatusID) {
			eventType = entity.EventClosedWon
		}
	case bucketStatus:
		if !uc.isSuccessfulStatus(lead.StatusID) {
			uc.logger.Debug("status change ignored, not a successful status",
				zap.String("lead_id", lead.ID.String()),
				zap.String("status_id", lead.StatusID.String()))
			return nil
		}
		eventType = entity.EventClosedWon
	}

	record := uc.buildRecord(ctx, gateway, subdomain, lead, contact, eventType)

	unlock := uc.guard.lock(record.LeadID)
	var storeErr error
	if bucket == bucketStatus {
		// Won status changes always append a fresh row; the other buckets
		// update-or-insert.
		storeErr = uc.sheet.Append(ctx, record)
	} else {
		storeErr = uc.sheet.Upsert(ctx, record)
	}
	unlock()
	if storeErr != nil {
		return storeErr
	}

	uc.logger.Info("lead mirrored to sheet",
		zap.String("lead_id", record.LeadID),
		zap.String("event_type", string(eventType)),
		zap.String("bucket", string(bucket)))

	if eventType == entity.EventClosedWon {
		uc.notifyWonLead(ctx, record, subdomain)
	}
	return nil
}

// fetchRelated loads the lead detail and then its company and contact
// concurrently. Every failure degrades to nil data, never an error: the
// pipeline continues with whatever enrichment it got.
func (uc *ProcessWebhookUseCase) fetchRelated(ctx context.Context, gateway CRMGateway, lead *amocrm.Lead) (*amocrm.Company, *amocrm.Contact) {
	if gateway == nil {
		return nil, nil
	}

	detail, err := gateway.GetLeadWithRelations(ctx, lead.ID.String())
	if err != nil {
		uc.logger.Warn("failed to fetch lead detail",
			zap.String("lead_id", lead.ID.String()),
			zap.Error(err))
		return nil, nil
	}

	// No nested id means the lead has no linked company/contact; fall back
	// to the responsible user id, as amoCRM's own integrations do.
	companyID := lead.ResponsibleUserID
	contactID := lead.ResponsibleUserID
	if detail.Embedded != nil {
		if len(detail.Embedded.Companies) > 0 && detail.Embedded.Companies[0].ID != "" {
			companyID = detail.Embedded.Companies[0].ID
		}
		if len(detail.Embedded.Contacts) > 0 && detail.Embedded.Contacts[0].ID != "" {
			contactID = detail.Embedded.Contacts[0].ID
		}
	}

	var (
		company *amocrm.Company
		contact *amocrm.Contact
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if companyID == "" {
			return nil
		}
		c, err := gateway.GetCompany(gctx, companyID.String())
		if err != nil {
			uc.logger.Warn("failed to fetch company", zap.String("company_id", companyID.String()), zap.Error(err))
			return nil
		}
		company = c
		return nil
	})
	g.Go(func() error {
		if contactID == "" {
			return nil
		}
		c, err := gateway.GetContact(gctx, contactID.String())
		if err != nil {
			uc.logger.Warn("failed to fetch contact", zap.String("contact_id", contactID.String()), zap.Error(err))
			return nil
		}
		contact = c
		return nil
	})
	_ = g.Wait()

	return company, contact
}

func (uc *ProcessWebhookUseCase) buildRecord(ctx context.Context, gateway CRMGateway, subdomain string, lead *amocrm.Lead, contact *amocrm.Contact, eventType entity.EventType) *entity.LeadRecord {
	contactName := entity.Unknown
	if contact != nil && contact.Name != "" {
		contactName = contact.Name
	}

	contactPhone := extractPhone(contact)
	if contactPhone == "" {
		contactPhone = entity.Unknown
	}

	return &entity.LeadRecord{
		LeadID:          lead.ID.String(),
		CreatedDate:     time.Unix(lead.CreatedAt.Int64(), 0).Format("02.01.2006"),
		ContactPhone:    contactPhone,
		ContactName:     contactName,
		ResponsibleName: uc.responsibleName(ctx, gateway, lead.ResponsibleUserID),
		ResponsibleID:   lead.ResponsibleUserID.String(),
		Budget:          lead.Price.Float64(),
		Status:          uc.statusName(ctx, gateway, subdomain, lead.StatusID, lead.PipelineID),
		EventType:       eventType,
	}
}

// extractPhone returns the first value of the first custom field whose
// code is PHONE.
func extractPhone(contact *amocrm.Contact) string {
	if contact == nil {
		return ""
	}
	for _, field := range contact.CustomFieldsValues {
		if field.FieldCode != "PHONE" {
			continue
		}
		if len(field.Values) > 0 {
			return field.Values[0].Value.String()
		}
		return ""
	}
	return ""
}

func (uc *ProcessWebhookUseCase) responsibleName(ctx context.Context, gateway CRMGateway, userID amocrm.FlexString) string {
	if userID == "" || gateway == nil {
		return entity.Unknown
	}
	user, err := gateway.GetUser(ctx, userID.String())
	if err != nil || user == nil || user.Name == "" {
		return entity.Unknown
	}
	return user.Name
}

// statusName resolves a status id to its display name by scanning the
// pipeline catalog, scoped to the lead's pipeline when one is present.
// First match wins, in catalog order.
func (uc *ProcessWebhookUseCase) statusName(ctx context.Context, gateway CRMGateway, subdomain string, statusID, pipelineID amocrm.FlexString) string {
	sid := statusID.Int64()
	if sid == 0 {
		return entity.Unknown
	}

	pipelines := uc.pipelines(ctx, gateway, subdomain)
	pid := pipelineID.Int64()
	for _, pipeline := range pipelines {
		if pid != 0 && pipeline.ID.Int64() != pid {
			continue
		}
		for _, status := range pipeline.Embedded.Statuses {
			if status.ID.Int64() == sid {
				if status.Name == "" {
					return entity.Unknown
				}
				return status.Name
			}
		}
	}
	return entity.Unknown
}

func (uc *ProcessWebhookUseCase) pipelines(ctx context.Context, gateway CRMGateway, subdomain string) []amocrm.Pipeline {
	if gateway == nil {
		return nil
	}
	if uc.cache != nil {
		if pipelines, ok := uc.cache.Get(ctx, subdomain); ok {
			return pipelines
		}
	}

	pipelines, err := gateway.GetPipelines(ctx)
	if err != nil {
		uc.logger.Warn("failed to fetch pipeline catalog", zap.Error(err))
		return nil
	}
	if uc.cache != nil {
		uc.cache.Set(ctx, subdomain, pipelines)
	}
	return pipelines
}

func (uc *ProcessWebhookUseCase) isSuccessfulStatus(statusID amocrm.FlexString) bool {
	_, ok := uc.successful[statusID.Int64()]
	return ok
}

func (uc *ProcessWebhookUseCase) notifyWonLead(ctx context.Context, record *entity.LeadRecord, subdomain string) {
	if uc.producer == nil {
		return
	}
	payload := queue.LeadSyncedPayload{
		LeadID:          record.LeadID,
		ContactName:     record.ContactName,
		ResponsibleName: record.ResponsibleName,
		Budget:          record.Budget,
		Status:          record.Status,
		EventType:       string(record.EventType),
		Subdomain:       subdomain,
		SyncedAt:        time.Now().UTC(),
	}
	if err := uc.producer.PublishLeadSynced(ctx, payload); err != nil {
		uc.logger.Error("failed to publish won-lead notification",
			zap.String("lead_id", record.LeadID),
			zap.Error(err))
	}
}

// leadGuard serializes sheet writes per lead id so two in-flight events
// for the same lead cannot interleave the scan-then-write sequence.
type leadGuard struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newLeadGuard() *leadGuard {
	return &leadGuard{locks: make(map[string]*sync.Mutex)}
}

func (g *leadGuard) lock(leadID string) (unlock func()) {
	g.mu.Lock()
	m, ok := g.locks[leadID]
	if !ok {
		m = &sync.Mutex{}
		g.locks[leadID] = m
	}
	g.mu.Unlock()

	m.Lock()
	return m.Unlock
}
