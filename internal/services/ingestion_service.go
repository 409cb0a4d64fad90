package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"crm-service/internal/models"
	"crm-service/internal/nats"
	"crm-service/internal/repository"
	"crm-service/internal/scope"
)

// Field alias candidates in priority order. Third-party lead forms localize
// their field names, so each logical field maps to an ordered list evaluated
// first-match; English and Spanish variants are the ones seen in the wild.
var (
	nameAliases  = []string{"full_name", "name", "nombre", "nombre_completo", "first_name"}
	emailAliases = []string{"email", "correo", "correo_electronico", "e-mail", "mail"}
	phoneAliases = []string{"phone", "phone_number", "telefono", "teléfono", "numero_de_telefono", "celular"}
)

// PlaceholderName is used when no name-like field resolves; the record is
// still accepted rather than rejected.
const PlaceholderName = "Sin nombre"

// leadStore is the slice of the lead repository the ingestion flow needs.
type leadStore interface {
	ExistsByExternalID(ctx context.Context, tenantID uuid.UUID, externalID string) (bool, error)
	Create(ctx context.Context, sc *scope.Scope, lead *models.Lead) (*models.Lead, error)
}

// IngestionService normalizes third-party lead payloads and inserts them
// idempotently: the external lead id is embedded in the lead's metadata and a
// second submission with the same id for the same tenant is a no-op.
type IngestionService struct {
	leadRepo leadStore
	events   *nats.Client
	log      *logrus.Entry
}

// NewIngestionService creates a new ingestion service
func NewIngestionService(leadRepo leadStore, events *nats.Client, log *logrus.Logger) *IngestionService {
	return &IngestionService{
		leadRepo: leadRepo,
		events:   events,
		log:      log.WithField("component", "ingestion"),
	}
}

// RawLeadField is one named field/value pair from a third-party form payload
type RawLeadField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// RawLead is a third-party lead as delivered by the lead-generation platform
type RawLead struct {
	ExternalID string         `json:"id"`
	Source     string         `json:"source"`
	Fields     []RawLeadField `json:"field_data"`
}

// Normalize maps a raw third-party lead to the Lead shape, choosing the first
// non-empty candidate across the alias list per logical field. The original
// payload lands in metadata together with the external id.
func (s *IngestionService) Normalize(raw *RawLead, tenantID uuid.UUID) (*models.Lead, error) {
	lead := &models.Lead{
		TenantID: tenantID,
		Name:     firstMatch(raw.Fields, nameAliases),
		Email:    firstMatch(raw.Fields, emailAliases),
		Phone:    firstMatch(raw.Fields, phoneAliases),
		Status:   models.LeadStatusNew,
		Source:   raw.Source,
	}
	if lead.Name == "" {
		lead.Name = PlaceholderName
	}
	if lead.Source == "" {
		lead.Source = "lead_ads"
	}

	fields := make(map[string]string, len(raw.Fields))
	for _, f := range raw.Fields {
		fields[f.Name] = f.Value
	}
	metadata, err := models.NewJSONB(map[string]interface{}{
		models.MetadataExternalIDKey: raw.ExternalID,
		"raw_fields":                 fields,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build lead metadata: %w", err)
	}
	lead.Metadata = metadata

	return lead, nil
}

// IngestRaw normalizes and inserts a third-party lead under the API-key
// profile's scope. Safe to retry: the same external id never produces a
// second row for the tenant.
func (s *IngestionService) IngestRaw(ctx context.Context, sc *scope.Scope, raw *RawLead) (*models.Lead, bool, error) {
	tenantID, err := sc.CreationTenant(nil)
	if err != nil {
		return nil, false, err
	}

	if raw.ExternalID != "" {
		exists, err := s.leadRepo.ExistsByExternalID(ctx, tenantID, raw.ExternalID)
		if err != nil {
			return nil, false, err
		}
		if exists {
			s.log.WithFields(logrus.Fields{"tenant_id": tenantID, "external_id": raw.ExternalID}).
				Info("lead already ingested, skipping")
			return nil, false, nil
		}
	}

	lead, err := s.Normalize(raw, tenantID)
	if err != nil {
		return nil, false, err
	}

	created, err := s.leadRepo.Create(ctx, sc, lead)
	if err != nil {
		// the partial unique index on the external id closes the race two
		// concurrent retries can win; losing the race means already ingested
		if repository.IsUniqueViolation(err) {
			s.log.WithFields(logrus.Fields{"tenant_id": tenantID, "external_id": raw.ExternalID}).
				Info("lead already ingested, skipping")
			return nil, false, nil
		}
		return nil, false, err
	}

	if err := s.events.PublishLeadEvent(nats.EventLeadIngested, &nats.LeadEvent{
		TenantID: created.TenantID.String(),
		LeadID:   created.ID.String(),
		Name:     created.Name,
		Status:   created.Status,
		Source:   created.Source,
		Value:    created.Value,
	}); err != nil {
		s.log.WithError(err).Warn("failed to publish lead.ingested event")
	}

	return created, true, nil
}

// DirectLeadRequest is the public ingestion API body: already-normalized
// field names, only the lead name required.
type DirectLeadRequest struct {
	Name    string  `json:"name" binding:"required"`
	Email   string  `json:"email"`
	Phone   string  `json:"phone"`
	Company string  `json:"company"`
	Value   float64 `json:"value"`
	Status  string  `json:"status"`
	Source  string  `json:"source"`
	Notes   string  `json:"notes"`
}

// IngestDirect inserts a lead submitted through the public JSON API.
func (s *IngestionService) IngestDirect(ctx context.Context, sc *scope.Scope, req *DirectLeadRequest) (*models.Lead, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, NewValidationError("name", "name is required")
	}

	status := req.Status
	if status == "" {
		status = models.LeadStatusNew
	}
	if !models.IsValidLeadStatus(status) {
		return nil, NewValidationError("status", "unknown lead status: "+status)
	}

	source := req.Source
	if source == "" {
		source = "api"
	}

	lead := &models.Lead{
		Name:    strings.TrimSpace(req.Name),
		Email:   req.Email,
		Phone:   req.Phone,
		Company: req.Company,
		Value:   req.Value,
		Status:  status,
		Source:  source,
		Notes:   req.Notes,
	}

	created, err := s.leadRepo.Create(ctx, sc, lead)
	if err != nil {
		return nil, err
	}

	if err := s.events.PublishLeadEvent(nats.EventLeadCreated, &nats.LeadEvent{
		TenantID: created.TenantID.String(),
		LeadID:   created.ID.String(),
		Name:     created.Name,
		Status:   created.Status,
		Source:   created.Source,
		Value:    created.Value,
	}); err != nil {
		s.log.WithError(err).Warn("failed to publish lead.created event")
	}

	return created, nil
}

// firstMatch returns the value of the first alias with a non-empty value.
// Field name comparison is case-insensitive.
func firstMatch(fields []RawLeadField, aliases []string) string {
	for _, alias := range aliases {
		for _, f := range fields {
			if strings.EqualFold(strings.TrimSpace(f.Name), alias) && strings.TrimSpace(f.Value) != "" {
				return strings.TrimSpace(f.Value)
			}
		}
	}
	return ""
}

// ParseValue converts a free-form value field to a number, tolerating
// currency noise. Unparseable input degrades to zero.
func ParseValue(s string) float64 {
	cleaned := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			return r
		}
		return -1
	}, s)
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return v
}
