package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONBRoundTrip(t *testing.T) {
	j, err := NewJSONB(map[string]interface{}{
		"external_lead_id": "abc-123",
		"value":            42.5,
	})
	require.NoError(t, err)

	v, err := j.Value()
	require.NoError(t, err)

	var scanned JSONB
	require.NoError(t, scanned.Scan(v))

	m, err := scanned.AsMap()
	require.NoError(t, err)
	assert.Equal(t, "abc-123", m["external_lead_id"])
	assert.Equal(t, 42.5, m["value"])
}

func TestJSONBEmpty(t *testing.T) {
	var j JSONB

	v, err := j.Value()
	require.NoError(t, err)
	assert.Nil(t, v)

	m, err := j.AsMap()
	require.NoError(t, err)
	assert.Empty(t, m)

	data, err := json.Marshal(j)
	require.NoError(t, err)
	assert.Equal(t, "null", string(data))
}

func TestLeadStatusValidation(t *testing.T) {
	for _, s := range ValidLeadStatuses {
		assert.True(t, IsValidLeadStatus(s), s)
	}
	assert.False(t, IsValidLeadStatus(""))
	assert.False(t, IsValidLeadStatus("closed"))
	assert.False(t, IsValidLeadStatus("Won"))
}

func TestDealStageValidation(t *testing.T) {
	for _, s := range ValidDealStages {
		assert.True(t, IsValidDealStage(s), s)
	}
	assert.False(t, IsValidDealStage("open"))
}

func TestTenantStatusValidation(t *testing.T) {
	for _, s := range []string{TenantStatusActive, TenantStatusTrial, TenantStatusPastDue, TenantStatusCancelled} {
		assert.True(t, IsValidTenantStatus(s), s)
	}
	assert.False(t, IsValidTenantStatus(""))
	assert.False(t, IsValidTenantStatus("hibernating"))
}

func TestTenantPlanValidation(t *testing.T) {
	for _, s := range []string{PlanStarter, PlanPro, PlanEnterprise} {
		assert.True(t, IsValidTenantPlan(s), s)
	}
	assert.False(t, IsValidTenantPlan(""))
	assert.False(t, IsValidTenantPlan("platinum"))
}

func TestProfileIsAdmin(t *testing.T) {
	assert.True(t, (&Profile{Role: RoleAdmin}).IsAdmin())
	assert.False(t, (&Profile{Role: RoleClient}).IsAdmin())
	assert.False(t, (&Profile{}).IsAdmin())
}
