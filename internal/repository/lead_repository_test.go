package repository

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"crm-service/internal/models"
	"crm-service/internal/scope"
)

func seedLead(t *testing.T, db *gorm.DB, tenantID uuid.UUID) *models.Lead {
	t.Helper()
	lead := &models.Lead{
		ID:       uuid.New(),
		TenantID: tenantID,
		Name:     "Semilla",
		Status:   models.LeadStatusNew,
	}
	require.NoError(t, db.Create(lead).Error)
	return lead
}

func TestReassignMovesLead(t *testing.T) {
	db := newTestDB(t)
	repo := NewLeadRepository(db)
	ctx := context.Background()

	source := uuid.New()
	target := uuid.New()
	lead := seedLead(t, db, source)

	moved, err := repo.Reassign(ctx, adminScope(t, nil), lead.ID, target, nil)
	require.NoError(t, err)
	assert.Equal(t, target, moved.TenantID)
	assert.Nil(t, moved.UserID, "without an explicit owner the lead is unassigned")

	var stored models.Lead
	require.NoError(t, db.First(&stored, "id = ?", lead.ID).Error)
	assert.Equal(t, target, stored.TenantID)
}

func TestReassignRequiresAdmin(t *testing.T) {
	db := newTestDB(t)
	repo := NewLeadRepository(db)

	tenantID := uuid.New()
	lead := seedLead(t, db, tenantID)

	_, err := repo.Reassign(context.Background(), memberScope(t, tenantID), lead.ID, uuid.New(), nil)
	assert.ErrorIs(t, err, scope.ErrForbidden)
}

func TestReassignSourceOutsideSelector(t *testing.T) {
	db := newTestDB(t)
	repo := NewLeadRepository(db)
	ctx := context.Background()

	tenantA := uuid.New()
	tenantB := uuid.New()
	lead := seedLead(t, db, tenantB)

	// an admin narrowed to tenant A cannot move tenant B's lead
	_, err := repo.Reassign(ctx, adminScope(t, &tenantA), lead.ID, tenantA, nil)
	assert.ErrorIs(t, err, scope.ErrForbidden)

	var stored models.Lead
	require.NoError(t, db.First(&stored, "id = ?", lead.ID).Error)
	assert.Equal(t, tenantB, stored.TenantID, "the lead did not move")
}

func TestReassignMissingLead(t *testing.T) {
	db := newTestDB(t)
	repo := NewLeadRepository(db)

	_, err := repo.Reassign(context.Background(), adminScope(t, nil), uuid.New(), uuid.New(), nil)
	assert.ErrorIs(t, err, ErrNotFound)
}
