package services

import (
	"path"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crm-service/internal/models"
	"crm-service/internal/redis"
	"crm-service/internal/scope"
)

func TestConversionRate(t *testing.T) {
	tests := []struct {
		won, lost, want int
	}{
		{0, 0, 0},
		{3, 2, 60},
		{1, 0, 100},
		{0, 5, 0},
		{1, 2, 33},
		{2, 1, 67},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ConversionRate(tt.won, tt.lost),
			"ConversionRate(%d, %d)", tt.won, tt.lost)
	}
}

func TestMonthlyBucketsZeroFill(t *testing.T) {
	now := time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)

	buckets := MonthlyBuckets(nil, now, 6)
	require.Len(t, buckets, 6)

	want := []string{"2025-01", "2025-02", "2025-03", "2025-04", "2025-05", "2025-06"}
	for i, b := range buckets {
		assert.Equal(t, want[i], b.Month)
		assert.Zero(t, b.Revenue)
	}
}

func TestMonthlyBucketsMonthEndReference(t *testing.T) {
	// a month-end reference date must not skip short months
	now := time.Date(2025, time.May, 31, 23, 0, 0, 0, time.UTC)

	buckets := MonthlyBuckets(nil, now, 4)
	require.Len(t, buckets, 4)
	assert.Equal(t, "2025-02", buckets[0].Month)
	assert.Equal(t, "2025-05", buckets[3].Month)
}

func TestMonthlyBucketsGroupsWonDeals(t *testing.T) {
	now := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)

	deals := []models.Deal{
		{Stage: models.DealStageWon, Value: 1000, CreatedAt: time.Date(2025, time.April, 3, 0, 0, 0, 0, time.UTC)},
		{Stage: models.DealStageWon, Value: 500, CreatedAt: time.Date(2025, time.April, 28, 0, 0, 0, 0, time.UTC)},
		{Stage: models.DealStageWon, Value: 250, CreatedAt: time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)},
		// open and lost deals never contribute revenue
		{Stage: models.DealStageProposal, Value: 9999, CreatedAt: time.Date(2025, time.April, 10, 0, 0, 0, 0, time.UTC)},
		{Stage: models.DealStageLost, Value: 9999, CreatedAt: time.Date(2025, time.May, 10, 0, 0, 0, 0, time.UTC)},
		// outside the trailing window
		{Stage: models.DealStageWon, Value: 9999, CreatedAt: time.Date(2024, time.June, 10, 0, 0, 0, 0, time.UTC)},
	}

	buckets := MonthlyBuckets(deals, now, 6)
	require.Len(t, buckets, 6)

	byMonth := map[string]float64{}
	for _, b := range buckets {
		byMonth[b.Month] = b.Revenue
	}

	assert.Equal(t, 1500.0, byMonth["2025-04"])
	assert.Equal(t, 0.0, byMonth["2025-05"])
	assert.Equal(t, 250.0, byMonth["2025-06"])
}

func TestComputeDashboard(t *testing.T) {
	now := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)

	leads := []models.Lead{
		{Status: models.LeadStatusNew},
		{Status: models.LeadStatusNew},
		{Status: models.LeadStatusQualified},
		{Status: models.LeadStatusWon, Value: 800},
		{Status: models.LeadStatusLost},
	}
	deals := []models.Deal{
		{Stage: models.DealStageWon, Value: 2000, Active: false, CreatedAt: now},
		{Stage: models.DealStageLost, Value: 700, Active: false, CreatedAt: now},
		{Stage: models.DealStageProposal, Value: 300, Active: true, CreatedAt: now},
	}

	m := ComputeDashboard(leads, deals, 4, now, 6)

	// revenue counts won leads and won deals, nothing else
	assert.Equal(t, 2800.0, m.Revenue)
	assert.Equal(t, 50, m.ConversionRate)
	assert.Equal(t, 5, m.TotalLeads)
	assert.Equal(t, 1, m.ActiveDeals)
	assert.Equal(t, 4, m.OpenTasks)

	// every status appears in the funnel, zero-filled
	assert.Equal(t, 2, m.Funnel[models.LeadStatusNew])
	assert.Equal(t, 1, m.Funnel[models.LeadStatusQualified])
	assert.Equal(t, 1, m.Funnel[models.LeadStatusWon])
	assert.Equal(t, 1, m.Funnel[models.LeadStatusLost])
	assert.Equal(t, 0, m.Funnel[models.LeadStatusContacted])
	assert.Equal(t, 0, m.Funnel[models.LeadStatusProposal])
	assert.Equal(t, 0, m.Funnel[models.LeadStatusNegotiation])

	require.Len(t, m.MonthlyRevenue, 6)
	assert.Equal(t, "2025-06", m.MonthlyRevenue[5].Month)
	assert.Equal(t, 2000.0, m.MonthlyRevenue[5].Revenue)
}

func TestInvalidationKeyedOnMutatedTenant(t *testing.T) {
	// an unnarrowed admin writing into an explicit tenant: the row lands in
	// that tenant even though the acting scope reads as "all"
	sc, err := scope.ForProfile(&models.Profile{ID: uuid.New(), Role: models.RoleAdmin}, nil)
	require.NoError(t, err)
	assert.Equal(t, "all", ScopeCacheID(sc))

	target := uuid.New()
	rowTenant, err := sc.CreationTenant(&target)
	require.NoError(t, err)
	assert.Equal(t, target, rowTenant)

	// invalidation keys off the row's tenant, so the target tenant's cached
	// dashboard is dropped along with the admin view
	patterns := redis.ReportPatterns(rowTenant.String())
	tenantKey := redis.ReportKey(rowTenant.String(), "dashboard")
	covered := false
	for _, p := range patterns {
		ok, err := path.Match(p, tenantKey)
		require.NoError(t, err)
		covered = covered || ok
	}
	assert.True(t, covered, "the mutated tenant's dashboard key is dropped")

	// while a scope-keyed drop would have missed it
	scopeOnly := redis.ReportKey(ScopeCacheID(sc), "dashboard")
	assert.NotEqual(t, tenantKey, scopeOnly)
}

func TestComputeDashboardEmpty(t *testing.T) {
	m := ComputeDashboard(nil, nil, 0, time.Now().UTC(), 6)

	assert.Zero(t, m.Revenue)
	assert.Zero(t, m.ConversionRate)
	assert.Zero(t, m.TotalLeads)
	assert.Zero(t, m.ActiveDeals)
	assert.Len(t, m.Funnel, len(models.ValidLeadStatuses))
	assert.Len(t, m.MonthlyRevenue, 6)
}
