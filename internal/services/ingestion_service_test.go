package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crm-service/internal/models"
	"crm-service/internal/scope"
)

func newTestIngestionService() *IngestionService {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return NewIngestionService(nil, nil, log)
}

func TestNormalizeFieldAliases(t *testing.T) {
	svc := newTestIngestionService()
	tenantID := uuid.New()

	tests := []struct {
		name      string
		fields    []RawLeadField
		wantName  string
		wantEmail string
		wantPhone string
	}{
		{
			name: "english field names",
			fields: []RawLeadField{
				{Name: "full_name", Value: "Jane Cooper"},
				{Name: "email", Value: "jane@example.com"},
				{Name: "phone_number", Value: "+1 555 0100"},
			},
			wantName:  "Jane Cooper",
			wantEmail: "jane@example.com",
			wantPhone: "+1 555 0100",
		},
		{
			name: "spanish field names",
			fields: []RawLeadField{
				{Name: "nombre_completo", Value: "María García"},
				{Name: "correo_electronico", Value: "maria@example.es"},
				{Name: "teléfono", Value: "+34 600 000 000"},
			},
			wantName:  "María García",
			wantEmail: "maria@example.es",
			wantPhone: "+34 600 000 000",
		},
		{
			name: "alias priority picks full_name over first_name",
			fields: []RawLeadField{
				{Name: "first_name", Value: "Jane"},
				{Name: "full_name", Value: "Jane Cooper"},
			},
			wantName: "Jane Cooper",
		},
		{
			name: "case-insensitive match with whitespace",
			fields: []RawLeadField{
				{Name: " Nombre ", Value: "  Carlos Ruiz  "},
			},
			wantName: "Carlos Ruiz",
		},
		{
			name: "empty values fall through to next alias",
			fields: []RawLeadField{
				{Name: "full_name", Value: "   "},
				{Name: "nombre", Value: "Ana"},
			},
			wantName: "Ana",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lead, err := svc.Normalize(&RawLead{ExternalID: "ext-1", Fields: tt.fields}, tenantID)
			require.NoError(t, err)

			assert.Equal(t, tt.wantName, lead.Name)
			assert.Equal(t, tt.wantEmail, lead.Email)
			assert.Equal(t, tt.wantPhone, lead.Phone)
			assert.Equal(t, tenantID, lead.TenantID)
			assert.Equal(t, models.LeadStatusNew, lead.Status)
		})
	}
}

func TestNormalizePlaceholderName(t *testing.T) {
	svc := newTestIngestionService()

	lead, err := svc.Normalize(&RawLead{
		ExternalID: "ext-2",
		Fields: []RawLeadField{
			{Name: "email", Value: "anon@example.com"},
		},
	}, uuid.New())
	require.NoError(t, err)

	assert.Equal(t, PlaceholderName, lead.Name)
	assert.Equal(t, "anon@example.com", lead.Email)
}

func TestNormalizeMetadata(t *testing.T) {
	svc := newTestIngestionService()

	lead, err := svc.Normalize(&RawLead{
		ExternalID: "lead-abc-123",
		Source:     "lead_ads",
		Fields: []RawLeadField{
			{Name: "nombre", Value: "Pedro"},
			{Name: "custom_question", Value: "pricing"},
		},
	}, uuid.New())
	require.NoError(t, err)

	meta, err := lead.Metadata.AsMap()
	require.NoError(t, err)
	assert.Equal(t, "lead-abc-123", meta[models.MetadataExternalIDKey])

	raw, ok := meta["raw_fields"].(map[string]interface{})
	require.True(t, ok, "raw payload fields are preserved in metadata")
	assert.Equal(t, "pricing", raw["custom_question"])
}

func TestNormalizeDefaultSource(t *testing.T) {
	svc := newTestIngestionService()

	lead, err := svc.Normalize(&RawLead{ExternalID: "x"}, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, "lead_ads", lead.Source)

	lead, err = svc.Normalize(&RawLead{ExternalID: "x", Source: "landing"}, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, "landing", lead.Source)
}

// fakeLeadStore keeps created leads in memory and answers the external-id
// existence check from them.
type fakeLeadStore struct {
	leads     []*models.Lead
	creates   int
	createErr error
}

func (f *fakeLeadStore) ExistsByExternalID(_ context.Context, tenantID uuid.UUID, externalID string) (bool, error) {
	for _, l := range f.leads {
		if l.TenantID != tenantID {
			continue
		}
		meta, err := l.Metadata.AsMap()
		if err != nil {
			return false, err
		}
		if meta[models.MetadataExternalIDKey] == externalID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeLeadStore) Create(_ context.Context, _ *scope.Scope, lead *models.Lead) (*models.Lead, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	if lead.ID == uuid.Nil {
		lead.ID = uuid.New()
	}
	f.creates++
	f.leads = append(f.leads, lead)
	return lead, nil
}

func clientScope(t *testing.T, tenantID uuid.UUID) *scope.Scope {
	t.Helper()
	sc, err := scope.ForProfile(&models.Profile{
		ID:       uuid.New(),
		Role:     models.RoleClient,
		TenantID: &tenantID,
	}, nil)
	require.NoError(t, err)
	return sc
}

func TestIngestRawIdempotent(t *testing.T) {
	store := &fakeLeadStore{}
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	svc := NewIngestionService(store, nil, log)

	sc := clientScope(t, uuid.New())
	raw := &RawLead{
		ExternalID: "ext-42",
		Fields: []RawLeadField{
			{Name: "nombre", Value: "Lucía Torres"},
			{Name: "email", Value: "lucia@example.es"},
		},
	}

	lead, created, err := svc.IngestRaw(context.Background(), sc, raw)
	require.NoError(t, err)
	assert.True(t, created)
	require.NotNil(t, lead)
	assert.Equal(t, "Lucía Torres", lead.Name)

	// the same payload delivered again must not produce a second row
	again, created, err := svc.IngestRaw(context.Background(), sc, raw)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Nil(t, again)
	assert.Equal(t, 1, store.creates)

	// a different external id is a new lead
	_, created, err = svc.IngestRaw(context.Background(), sc, &RawLead{
		ExternalID: "ext-43",
		Fields:     []RawLeadField{{Name: "nombre", Value: "Otro"}},
	})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 2, store.creates)
}

func TestIngestRawSameExternalIDOtherTenant(t *testing.T) {
	store := &fakeLeadStore{}
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	svc := NewIngestionService(store, nil, log)

	raw := &RawLead{
		ExternalID: "ext-99",
		Fields:     []RawLeadField{{Name: "nombre", Value: "Compartido"}},
	}

	// dedupe is per tenant: two tenants may each ingest the same external id
	_, created, err := svc.IngestRaw(context.Background(), clientScope(t, uuid.New()), raw)
	require.NoError(t, err)
	assert.True(t, created)

	_, created, err = svc.IngestRaw(context.Background(), clientScope(t, uuid.New()), raw)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 2, store.creates)
}

func TestIngestRawLostInsertRaceIsDuplicate(t *testing.T) {
	// a concurrent retry that slips past the existence check hits the partial
	// unique index; that must surface as "already ingested", not as an error
	store := &fakeLeadStore{
		createErr: fmt.Errorf("failed to create lead: %w", &pgconn.PgError{Code: "23505"}),
	}
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	svc := NewIngestionService(store, nil, log)

	lead, created, err := svc.IngestRaw(context.Background(), clientScope(t, uuid.New()), &RawLead{
		ExternalID: "ext-7",
		Fields:     []RawLeadField{{Name: "nombre", Value: "Carrera"}},
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Nil(t, lead)
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"1500", 1500},
		{"1500.50", 1500.50},
		{"€1.500", 1.500},
		{"$2,000", 2000},
		{"approx 300 eur", 300},
		{"-50", -50},
		{"", 0},
		{"n/a", 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseValue(tt.in), "ParseValue(%q)", tt.in)
	}
}
