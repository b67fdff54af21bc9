package usecase

import (
	"context"

	"github.com/leadstream/amocrm-sheets-sync/internal/infra/integration/amocrm"
	"github.com/leadstream/amocrm-sheets-sync/internal/infra/queue"
)

// CRMGateway is the slice of the amoCRM API the sync engine consumes.
type CRMGateway interface {
	GetUser(ctx context.Context, userID string) (*amocrm.User, error)
	GetLead(ctx context.Context, leadID string) (*amocrm.Lead, error)
	GetLeadWithRelations(ctx context.Context, leadID string) (*amocrm.Lead, error)
	GetCompany(ctx context.Context, companyID string) (*amocrm.Company, error)
	GetContact(ctx context.Context, contactID string) (*amocrm.Contact, error)
	GetPipelines(ctx context.Context) ([]amocrm.Pipeline, error)
	UpdateLeadPrice(ctx context.Context, leadID string, price float64) error
}

// CRMResolver binds a gateway to an account subdomain. An empty
// subdomain resolves to the configured default account.
type CRMResolver interface {
	Resolve(subdomain string) (CRMGateway, error)
}

// CRMResolverFunc adapts a plain function to CRMResolver.
type CRMResolverFunc func(subdomain string) (CRMGateway, error)

func (f CRMResolverFunc) Resolve(subdomain string) (CRMGateway, error) {
	return f(subdomain)
}

// PipelineCache caches the pipeline/status catalog per subdomain so the
// status resolver does not hit the CRM on every lead.
type PipelineCache interface {
	Get(ctx context.Context, subdomain string) ([]amocrm.Pipeline, bool)
	Set(ctx context.Context, subdomain string, pipelines []amocrm.Pipeline)
}

// NotificationProducer publishes won-deal events for downstream
// consumers. A nil producer disables the path.
type NotificationProducer interface {
	PublishLeadSynced(ctx context.Context, payload queue.LeadSyncedPayload) error
}
