package entity

import "context"

// EventType classifies which webhook bucket a lead came from and which
// sheet operation applies to it.
type EventType string

const (
	EventCreated   EventType = "created"
	EventUpdated   EventType = "updated"
	EventClosedWon EventType = "closed_won"
)

// Unknown is what lands in a cell when amoCRM has no value for it.
const Unknown = "Не указан"

// SheetHeaders is the canonical first row of the lead sheet. The first
// column doubles as the lookup key for every sheet operation.
var SheetHeaders = []string{
	"Номер сделки",
	"Дата создания",
	"Телефон контакта",
	"Имя контакта",
	"Ответственный",
	"ID ответственного",
	"Бюджет",
	"Статус",
}

// LeadRecord is one row of the lead sheet. It is rebuilt from scratch on
// every webhook event; the sheet itself is the only persistent state.
type LeadRecord struct {
	LeadID          string    `json:"lead_id"`
	CreatedDate     string    `json:"created_date"`
	ContactPhone    string    `json:"contact_phone"`
	ContactName     string    `json:"contact_name"`
	ResponsibleName string    `json:"responsible_name"`
	ResponsibleID   string    `json:"responsible_id"`
	Budget          float64   `json:"budget"`
	Status          string    `json:"status"`
	EventType       EventType `json:"event_type"`
}

// Row returns the record as the sheet's eight ordered columns.
func (r *LeadRecord) Row() []interface{} {
	return []interface{}{
		r.LeadID,
		r.CreatedDate,
		r.ContactPhone,
		r.ContactName,
		r.ResponsibleName,
		r.ResponsibleID,
		r.Budget,
		r.Status,
	}
}

type LeadSheetRepository interface {
	// EnsureHeaders writes the canonical header row when it is missing or
	// does not match.
	EnsureHeaders(ctx context.Context) error

	// Append adds a new row unless a row with the same lead id already
	// exists, in which case it silently does nothing.
	Append(ctx context.Context, record *LeadRecord) error

	// Upsert overwrites the existing row for the record's lead id, or
	// appends a new one when none exists.
	Upsert(ctx context.Context, record *LeadRecord) error

	// FindByLeadID returns the stored record for a lead id, or nil when
	// the sheet has no row for it.
	FindByLeadID(ctx context.Context, leadID string) (*LeadRecord, error)
}
