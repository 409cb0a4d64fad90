package scope

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crm-service/internal/models"
)

func adminProfile() *models.Profile {
	return &models.Profile{ID: uuid.New(), Role: models.RoleAdmin}
}

func clientProfile(tenantID uuid.UUID) *models.Profile {
	return &models.Profile{ID: uuid.New(), Role: models.RoleClient, TenantID: &tenantID}
}

func TestForProfile(t *testing.T) {
	tenantID := uuid.New()

	t.Run("nil profile is not authenticated", func(t *testing.T) {
		_, err := ForProfile(nil, nil)
		assert.ErrorIs(t, err, ErrNotAuthenticated)
	})

	t.Run("client without tenant is rejected", func(t *testing.T) {
		p := &models.Profile{ID: uuid.New(), Role: models.RoleClient}
		_, err := ForProfile(p, nil)
		assert.ErrorIs(t, err, ErrNoTenant)
	})

	t.Run("client ignores the tenant selector", func(t *testing.T) {
		other := uuid.New()
		sc, err := ForProfile(clientProfile(tenantID), &other)
		require.NoError(t, err)
		require.NotNil(t, sc.Tenant())
		assert.Equal(t, tenantID, *sc.Tenant())
	})

	t.Run("admin without selector spans all tenants", func(t *testing.T) {
		sc, err := ForProfile(adminProfile(), nil)
		require.NoError(t, err)
		assert.Nil(t, sc.Tenant())
	})

	t.Run("admin with selector is narrowed", func(t *testing.T) {
		sc, err := ForProfile(adminProfile(), &tenantID)
		require.NoError(t, err)
		require.NotNil(t, sc.Tenant())
		assert.Equal(t, tenantID, *sc.Tenant())
	})
}

func TestCanAccessTenant(t *testing.T) {
	mine := uuid.New()
	other := uuid.New()

	adminAll, err := ForProfile(adminProfile(), nil)
	require.NoError(t, err)
	assert.True(t, adminAll.CanAccessTenant(mine))
	assert.True(t, adminAll.CanAccessTenant(other))

	adminNarrowed, err := ForProfile(adminProfile(), &mine)
	require.NoError(t, err)
	assert.True(t, adminNarrowed.CanAccessTenant(mine))
	assert.False(t, adminNarrowed.CanAccessTenant(other))

	client, err := ForProfile(clientProfile(mine), nil)
	require.NoError(t, err)
	assert.True(t, client.CanAccessTenant(mine))
	assert.False(t, client.CanAccessTenant(other))
	assert.ErrorIs(t, client.RequireTenant(other), ErrForbidden)
}

func TestRequireAdmin(t *testing.T) {
	tenantID := uuid.New()

	admin, err := ForProfile(adminProfile(), nil)
	require.NoError(t, err)
	assert.NoError(t, admin.RequireAdmin())

	client, err := ForProfile(clientProfile(tenantID), nil)
	require.NoError(t, err)
	assert.ErrorIs(t, client.RequireAdmin(), ErrForbidden)
}

func TestCreationTenant(t *testing.T) {
	mine := uuid.New()
	other := uuid.New()

	t.Run("client always writes into its own tenant", func(t *testing.T) {
		sc, err := ForProfile(clientProfile(mine), nil)
		require.NoError(t, err)

		got, err := sc.CreationTenant(&other)
		require.NoError(t, err)
		assert.Equal(t, mine, got)
	})

	t.Run("admin must name a tenant when unnarrowed", func(t *testing.T) {
		sc, err := ForProfile(adminProfile(), nil)
		require.NoError(t, err)

		_, err = sc.CreationTenant(nil)
		assert.ErrorIs(t, err, ErrNoTenant)

		got, err := sc.CreationTenant(&other)
		require.NoError(t, err)
		assert.Equal(t, other, got)
	})

	t.Run("narrowed admin defaults to the selector", func(t *testing.T) {
		sc, err := ForProfile(adminProfile(), &mine)
		require.NoError(t, err)

		got, err := sc.CreationTenant(nil)
		require.NoError(t, err)
		assert.Equal(t, mine, got)

		// an explicit tenant outside the selector is refused
		_, err = sc.CreationTenant(&other)
		assert.ErrorIs(t, err, ErrForbidden)
	})
}

func TestCanUpdateLead(t *testing.T) {
	mine := uuid.New()
	other := uuid.New()

	sc, err := ForProfile(clientProfile(mine), nil)
	require.NoError(t, err)

	owner := uuid.New()
	assert.NoError(t, sc.CanUpdateLead(&models.Lead{TenantID: mine, UserID: &owner}),
		"any teammate may update a shared lead")
	assert.ErrorIs(t, sc.CanUpdateLead(&models.Lead{TenantID: other}), ErrForbidden)
}

func TestCanDeleteLead(t *testing.T) {
	tenantID := uuid.New()
	profile := clientProfile(tenantID)
	sc, err := ForProfile(profile, nil)
	require.NoError(t, err)

	t.Run("client deletes own lead", func(t *testing.T) {
		lead := &models.Lead{TenantID: tenantID, UserID: &profile.ID}
		assert.NoError(t, sc.CanDeleteLead(lead))
	})

	t.Run("client cannot delete a teammate's lead", func(t *testing.T) {
		teammate := uuid.New()
		lead := &models.Lead{TenantID: tenantID, UserID: &teammate}
		assert.ErrorIs(t, sc.CanDeleteLead(lead), ErrForbidden)
	})

	t.Run("client cannot delete an unassigned lead", func(t *testing.T) {
		lead := &models.Lead{TenantID: tenantID}
		assert.ErrorIs(t, sc.CanDeleteLead(lead), ErrForbidden)
	})

	t.Run("admin deletes across owners within scope", func(t *testing.T) {
		admin, err := ForProfile(adminProfile(), nil)
		require.NoError(t, err)

		teammate := uuid.New()
		assert.NoError(t, admin.CanDeleteLead(&models.Lead{TenantID: tenantID, UserID: &teammate}))
		assert.NoError(t, admin.CanDeleteLead(&models.Lead{TenantID: tenantID}))
	})

	t.Run("narrowed admin respects the selector", func(t *testing.T) {
		other := uuid.New()
		admin, err := ForProfile(adminProfile(), &tenantID)
		require.NoError(t, err)
		assert.ErrorIs(t, admin.CanDeleteLead(&models.Lead{TenantID: other}), ErrForbidden)
	})
}
