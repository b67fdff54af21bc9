package usecase

import (
	"encoding/json"

	"github.com/leadstream/amocrm-sheets-sync/internal/infra/integration/amocrm"
)

// WebhookPayload is the inbound amoCRM webhook body. All buckets are
// optional; absent ones simply produce no work.
type WebhookPayload struct {
	Account   *WebhookAccount `json:"account,omitempty"`
	Leads     *WebhookLeads   `json:"leads,omitempty" validate:"omitempty"`
	Contacts  *WebhookBuckets `json:"contacts,omitempty"`
	Companies *WebhookBuckets `json:"companies,omitempty"`
}

type WebhookAccount struct {
	ID        amocrm.FlexString `json:"id"`
	Subdomain string            `json:"subdomain"`
}

type WebhookLeads struct {
	Add    []amocrm.Lead `json:"add,omitempty" validate:"omitempty,dive"`
	Update []amocrm.Lead `json:"update,omitempty" validate:"omitempty,dive"`
	Status []amocrm.Lead `json:"status,omitempty" validate:"omitempty,dive"`
	Delete []amocrm.Lead `json:"delete,omitempty"`
}

// WebhookBuckets covers entity buckets the service only counts, never
// processes.
type WebhookBuckets struct {
	Add    []json.RawMessage `json:"add,omitempty"`
	Update []json.RawMessage `json:"update,omitempty"`
	Delete []json.RawMessage `json:"delete,omitempty"`
}

func (b *WebhookBuckets) Counts() (added, updated, deleted int) {
	if b == nil {
		return 0, 0, 0
	}
	return len(b.Add), len(b.Update), len(b.Delete)
}
