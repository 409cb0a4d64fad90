package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// JSONB is a custom type for PostgreSQL JSONB fields
// It can hold any valid JSON value (objects, arrays, primitives)
type JSONB json.RawMessage

// Value implements the driver.Valuer interface for JSONB
func (j JSONB) Value() (driver.Value, error) {
	if len(j) == 0 {
		return nil, nil
	}
	return []byte(j), nil
}

// Scan implements the sql.Scanner interface for JSONB
func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	switch v := value.(type) {
	case []byte:
		*j = JSONB(v)
		return nil
	case string:
		*j = JSONB([]byte(v))
		return nil
	default:
		return nil
	}
}

// MarshalJSON implements json.Marshaler
func (j JSONB) MarshalJSON() ([]byte, error) {
	if len(j) == 0 {
		return []byte("null"), nil
	}
	return []byte(j), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (j *JSONB) UnmarshalJSON(data []byte) error {
	if len(data) == 0 {
		*j = nil
		return nil
	}
	*j = JSONB(data)
	return nil
}

// NewJSONB creates a JSONB from any value
func NewJSONB(v interface{}) (JSONB, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return JSONB(data), nil
}

// AsMap unmarshals the JSONB value into a map. Empty values yield an empty map.
func (j JSONB) AsMap() (map[string]interface{}, error) {
	if len(j) == 0 {
		return map[string]interface{}{}, nil
	}
	var m map[string]interface{}
	if err := json.Unmarshal(j, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// Tenant status values
const (
	TenantStatusActive    = "active"
	TenantStatusTrial     = "trial"
	TenantStatusPastDue   = "past_due"
	TenantStatusCancelled = "cancelled"
)

// IsValidTenantStatus reports whether s is a known tenant status.
func IsValidTenantStatus(s string) bool {
	switch s {
	case TenantStatusActive, TenantStatusTrial, TenantStatusPastDue, TenantStatusCancelled:
		return true
	}
	return false
}

// Tenant plan values
const (
	PlanStarter    = "starter"
	PlanPro        = "pro"
	PlanEnterprise = "enterprise"
)

// IsValidTenantPlan reports whether s is a known plan.
func IsValidTenantPlan(s string) bool {
	switch s {
	case PlanStarter, PlanPro, PlanEnterprise:
		return true
	}
	return false
}

// Tenant represents a customer organization, the unit of data isolation.
// Every other entity hangs off a tenant via TenantID.
type Tenant struct {
	ID       uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	Name     string    `json:"name" gorm:"not null" validate:"required,min=2,max=255"`
	Status   string    `json:"status" gorm:"default:'trial';index" validate:"oneof=active trial past_due cancelled"`
	Plan     string    `json:"plan" gorm:"default:'starter'" validate:"oneof=starter pro enterprise"`
	Currency string    `json:"currency" gorm:"type:varchar(3);default:'EUR'"`
	Language string    `json:"language" gorm:"type:varchar(5);default:'es'"`
	// PageID is the external lead-source page identifier for this tenant, if connected
	PageID    string    `json:"page_id" gorm:"size:100"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Profile roles
const (
	RoleAdmin  = "admin"
	RoleClient = "client"
)

// Profile represents an authenticated user. The ID matches the identity
// provider's user id. Non-admin profiles always belong to exactly one tenant.
type Profile struct {
	ID          uuid.UUID  `json:"id" gorm:"type:uuid;primary_key"`
	Email       string     `json:"email" gorm:"not null;uniqueIndex" validate:"required,email"`
	FullName    string     `json:"full_name"`
	CompanyName string     `json:"company_name"`
	Role        string     `json:"role" gorm:"default:'client';index" validate:"oneof=admin client"`
	APIKey      string     `json:"api_key" gorm:"uniqueIndex;size:64"`
	TenantID    *uuid.UUID `json:"tenant_id" gorm:"type:uuid;index"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// IsAdmin reports whether the profile has the admin role.
func (p *Profile) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// Lead status values
const (
	LeadStatusNew         = "new"
	LeadStatusContacted   = "contacted"
	LeadStatusQualified   = "qualified"
	LeadStatusProposal    = "proposal"
	LeadStatusNegotiation = "negotiation"
	LeadStatusWon         = "won"
	LeadStatusLost        = "lost"
)

// ValidLeadStatuses lists every accepted lead status.
var ValidLeadStatuses = []string{
	LeadStatusNew, LeadStatusContacted, LeadStatusQualified,
	LeadStatusProposal, LeadStatusNegotiation, LeadStatusWon, LeadStatusLost,
}

// IsValidLeadStatus reports whether s is a known lead status.
func IsValidLeadStatus(s string) bool {
	for _, v := range ValidLeadStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// Lead represents a prospective customer record, pre-pipeline.
// UserID is the owning agent and may be null (unassigned).
// Metadata carries the raw ingestion payload, including the external lead id
// used for deduplication.
type Lead struct {
	ID       uuid.UUID  `json:"id" gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	TenantID uuid.UUID  `json:"tenant_id" gorm:"type:uuid;not null;index"`
	UserID   *uuid.UUID `json:"user_id" gorm:"type:uuid;index"`
	Name     string     `json:"name" gorm:"not null" validate:"required"`
	Email    string     `json:"email"`
	Phone    string     `json:"phone"`
	Company  string     `json:"company"`
	Value    float64    `json:"value" gorm:"default:0"`
	Status   string     `json:"status" gorm:"default:'new';index" validate:"oneof=new contacted qualified proposal negotiation won lost"`
	Source   string     `json:"source" gorm:"size:100"`
	Notes    string     `json:"notes"`
	Metadata JSONB      `json:"metadata" gorm:"type:jsonb;default:'{}'"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MetadataExternalIDKey is the metadata key carrying the external lead
// identifier set by the ingestion adapter.
const MetadataExternalIDKey = "external_lead_id"

// Deal stage values
const (
	DealStageQualification = "qualification"
	DealStageProposal      = "proposal"
	DealStageNegotiation   = "negotiation"
	DealStageWon           = "won"
	DealStageLost          = "lost"
)

// ValidDealStages lists every accepted deal stage.
var ValidDealStages = []string{
	DealStageQualification, DealStageProposal, DealStageNegotiation,
	DealStageWon, DealStageLost,
}

// IsValidDealStage reports whether s is a known deal stage.
func IsValidDealStage(s string) bool {
	for _, v := range ValidDealStages {
		if v == s {
			return true
		}
	}
	return false
}

// Deal represents an active sales opportunity. It may reference the lead it
// graduated from, or a direct contact profile, or neither.
type Deal struct {
	ID        uuid.UUID  `json:"id" gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	TenantID  uuid.UUID  `json:"tenant_id" gorm:"type:uuid;not null;index"`
	Title     string     `json:"title" gorm:"not null" validate:"required"`
	Value     float64    `json:"value" gorm:"default:0"`
	Currency  string     `json:"currency" gorm:"type:varchar(3);default:'EUR'"`
	Stage     string     `json:"stage" gorm:"default:'qualification';index" validate:"oneof=qualification proposal negotiation won lost"`
	Active    bool       `json:"active" gorm:"default:true"`
	CloseDate *time.Time `json:"close_date"`
	ContactID *uuid.UUID `json:"contact_id" gorm:"type:uuid"`
	LeadID    *uuid.UUID `json:"lead_id" gorm:"type:uuid;index"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Quote status values
const (
	QuoteStatusDraft    = "draft"
	QuoteStatusSent     = "sent"
	QuoteStatusAccepted = "accepted"
	QuoteStatusRejected = "rejected"
	QuoteStatusExpired  = "expired"
)

// IsValidQuoteStatus reports whether s is a known quote status.
func IsValidQuoteStatus(s string) bool {
	switch s {
	case QuoteStatusDraft, QuoteStatusSent, QuoteStatusAccepted, QuoteStatusRejected, QuoteStatusExpired:
		return true
	}
	return false
}

// Quote represents a priced proposal tied to a lead. TotalAmount is derived
// from the quote's items and recomputed whenever items change.
type Quote struct {
	ID          uuid.UUID  `json:"id" gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	TenantID    uuid.UUID  `json:"tenant_id" gorm:"type:uuid;not null;index"`
	LeadID      uuid.UUID  `json:"lead_id" gorm:"type:uuid;not null;index"`
	Status      string     `json:"status" gorm:"default:'draft';index" validate:"oneof=draft sent accepted rejected expired"`
	TotalAmount float64    `json:"total_amount" gorm:"default:0"`
	ValidUntil  *time.Time `json:"valid_until"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	Items []QuoteItem `json:"items,omitempty" gorm:"foreignKey:QuoteID"`
}

// QuoteItem is a single line on a quote. ProductID is null for custom lines.
// Total is always Quantity * UnitPrice.
type QuoteItem struct {
	ID          uuid.UUID  `json:"id" gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	QuoteID     uuid.UUID  `json:"quote_id" gorm:"type:uuid;not null;index"`
	ProductID   *uuid.UUID `json:"product_id" gorm:"type:uuid"`
	Description string     `json:"description" gorm:"not null"`
	Quantity    float64    `json:"quantity" gorm:"not null;default:1"`
	UnitPrice   float64    `json:"unit_price" gorm:"not null;default:0"`
	Total       float64    `json:"total" gorm:"not null;default:0"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Product represents a sellable item owned by a tenant.
type Product struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	TenantID    uuid.UUID `json:"tenant_id" gorm:"type:uuid;not null;index"`
	Name        string    `json:"name" gorm:"not null" validate:"required"`
	Description string    `json:"description"`
	Price       float64   `json:"price" gorm:"default:0"`
	Currency    string    `json:"currency" gorm:"type:varchar(3);default:'EUR'"`
	Active      bool      `json:"active" gorm:"default:true"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Task types and statuses
const (
	TaskTypeCall    = "call"
	TaskTypeEmail   = "email"
	TaskTypeMeeting = "meeting"
	TaskTypeTodo    = "todo"

	TaskStatusPending   = "pending"
	TaskStatusCompleted = "completed"
)

// IsValidTaskType reports whether s is a known task type.
func IsValidTaskType(s string) bool {
	switch s {
	case TaskTypeCall, TaskTypeEmail, TaskTypeMeeting, TaskTypeTodo:
		return true
	}
	return false
}

// IsValidTaskStatus reports whether s is a known task status.
func IsValidTaskStatus(s string) bool {
	return s == TaskStatusPending || s == TaskStatusCompleted
}

// Task represents a scheduled or backlog activity assigned to a user.
// DueDate is null for unscheduled/backlog tasks.
type Task struct {
	ID          uuid.UUID  `json:"id" gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	TenantID    uuid.UUID  `json:"tenant_id" gorm:"type:uuid;not null;index"`
	UserID      uuid.UUID  `json:"user_id" gorm:"type:uuid;not null;index"`
	Title       string     `json:"title" gorm:"not null" validate:"required"`
	Description string     `json:"description"`
	DueDate     *time.Time `json:"due_date" gorm:"index"`
	Type        string     `json:"type" gorm:"default:'todo'" validate:"oneof=call email meeting todo"`
	Status      string     `json:"status" gorm:"default:'pending';index" validate:"oneof=pending completed"`
	Priority    string     `json:"priority" gorm:"default:'medium'"`
	LeadID      *uuid.UUID `json:"lead_id" gorm:"type:uuid;index"`
	DealID      *uuid.UUID `json:"deal_id" gorm:"type:uuid;index"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Activity types
const (
	ActivityTypeNote         = "note"
	ActivityTypeCall         = "call"
	ActivityTypeEmail        = "email"
	ActivityTypeMeeting      = "meeting"
	ActivityTypeStatusChange = "status_change"
)

// IsValidActivityType reports whether s is a known activity type.
func IsValidActivityType(s string) bool {
	switch s {
	case ActivityTypeNote, ActivityTypeCall, ActivityTypeEmail, ActivityTypeMeeting, ActivityTypeStatusChange:
		return true
	}
	return false
}

// Activity is an append-only note or interaction record. Activities are never
// updated after creation, only deleted.
type Activity struct {
	ID        uuid.UUID  `json:"id" gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	TenantID  uuid.UUID  `json:"tenant_id" gorm:"type:uuid;not null;index"`
	UserID    uuid.UUID  `json:"user_id" gorm:"type:uuid;not null;index"`
	Type      string     `json:"type" gorm:"default:'note'" validate:"oneof=note call email meeting status_change"`
	Content   string     `json:"content" gorm:"not null"`
	LeadID    *uuid.UUID `json:"lead_id" gorm:"type:uuid;index"`
	DealID    *uuid.UUID `json:"deal_id" gorm:"type:uuid;index"`
	CreatedAt time.Time  `json:"created_at"`
}
