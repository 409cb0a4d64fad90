package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"crm-service/internal/models"
	"crm-service/internal/scope"
)

// LeadRepository handles lead persistence. Every operation passes through the
// tenant scope before touching rows.
type LeadRepository struct {
	db *gorm.DB
}

// NewLeadRepository creates a new lead repository
func NewLeadRepository(db *gorm.DB) *LeadRepository {
	return &LeadRepository{db: db}
}

// LeadFilters narrows a lead listing beyond the tenant scope
type LeadFilters struct {
	Status string
	Source string
	UserID *uuid.UUID
}

// List returns the leads visible under the scope, newest first.
func (r *LeadRepository) List(ctx context.Context, sc *scope.Scope, filters LeadFilters) ([]models.Lead, error) {
	var leads []models.Lead

	q := sc.Filter(r.db.WithContext(ctx).Model(&models.Lead{}))
	if filters.Status != "" {
		q = q.Where("status = ?", filters.Status)
	}
	if filters.Source != "" {
		q = q.Where("source = ?", filters.Source)
	}
	if filters.UserID != nil {
		q = q.Where("user_id = ?", *filters.UserID)
	}

	if err := q.Order("created_at DESC").Find(&leads).Error; err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	return leads, nil
}

// GetByID fetches a single lead. A lead outside the caller's scope yields
// scope.ErrForbidden, a missing lead ErrNotFound.
func (r *LeadRepository) GetByID(ctx context.Context, sc *scope.Scope, id uuid.UUID) (*models.Lead, error) {
	var lead models.Lead
	if err := r.db.WithContext(ctx).First(&lead, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get lead: %w", err)
	}
	if err := sc.RequireTenant(lead.TenantID); err != nil {
		return nil, err
	}
	return &lead, nil
}

// Create inserts a lead into the tenant resolved from the scope. The caller
// may propose a tenant (admin flows); non-admins always write into their own.
func (r *LeadRepository) Create(ctx context.Context, sc *scope.Scope, lead *models.Lead) (*models.Lead, error) {
	tenantID, err := sc.CreationTenant(nilIfZero(lead.TenantID))
	if err != nil {
		return nil, err
	}
	lead.TenantID = tenantID

	if lead.ID == uuid.Nil {
		lead.ID = uuid.New()
	}
	if lead.Status == "" {
		lead.Status = models.LeadStatusNew
	}

	if err := r.db.WithContext(ctx).Create(lead).Error; err != nil {
		return nil, fmt.Errorf("failed to create lead: %w", err)
	}
	return lead, nil
}

// Update applies field updates to a scoped lead. Tenant membership alone is
// sufficient; any teammate may update a shared lead.
func (r *LeadRepository) Update(ctx context.Context, sc *scope.Scope, id uuid.UUID, updates map[string]interface{}) (*models.Lead, error) {
	lead, err := r.GetByID(ctx, sc, id)
	if err != nil {
		return nil, err
	}
	if err := sc.CanUpdateLead(lead); err != nil {
		return nil, err
	}

	// tenant_id and user_id move only through Reassign
	delete(updates, "tenant_id")
	delete(updates, "user_id")

	if err := r.db.WithContext(ctx).Model(lead).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update lead: %w", err)
	}
	return lead, nil
}

// Delete removes a lead. Clients may delete only leads they own; same-tenant
// membership is not enough. Attempting to delete a teammate's lead is an
// authorization error, not a no-op.
func (r *LeadRepository) Delete(ctx context.Context, sc *scope.Scope, id uuid.UUID) error {
	lead, err := r.GetByID(ctx, sc, id)
	if err != nil {
		return err
	}
	if err := sc.CanDeleteLead(lead); err != nil {
		return err
	}

	if err := r.db.WithContext(ctx).Delete(&models.Lead{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to delete lead: %w", err)
	}
	return nil
}

// ExistsByExternalID reports whether a lead carrying the given external
// identifier in its metadata already exists for the tenant. Backs the
// ingestion dedupe check.
func (r *LeadRepository) ExistsByExternalID(ctx context.Context, tenantID uuid.UUID, externalID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Lead{}).
		Where("tenant_id = ?", tenantID).
		Where("metadata ->> ? = ?", models.MetadataExternalIDKey, externalID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check external lead id: %w", err)
	}
	return count > 0, nil
}

// Reassign moves a lead to another tenant, updating tenant and owner in one
// statement. Admin only, and the source lead must be visible under the scope:
// an admin narrowed to one tenant cannot move another tenant's lead. newOwner
// may be nil: the schema allows unowned leads and explicit null is the
// preferred path for an unnamed agent.
func (r *LeadRepository) Reassign(ctx context.Context, sc *scope.Scope, id, newTenantID uuid.UUID, newOwner *uuid.UUID) (*models.Lead, error) {
	if err := sc.RequireAdmin(); err != nil {
		return nil, err
	}

	lead, err := r.GetByID(ctx, sc, id)
	if err != nil {
		return nil, err
	}

	if err := r.db.WithContext(ctx).Model(lead).Updates(map[string]interface{}{
		"tenant_id": newTenantID,
		"user_id":   newOwner,
	}).Error; err != nil {
		return nil, fmt.Errorf("failed to reassign lead: %w", err)
	}

	lead.TenantID = newTenantID
	lead.UserID = newOwner
	return lead, nil
}

// DeleteByTenant removes every lead of a tenant. Used by tenant teardown.
func (r *LeadRepository) DeleteByTenant(ctx context.Context, tenantID uuid.UUID) error {
	if err := r.db.WithContext(ctx).Delete(&models.Lead{}, "tenant_id = ?", tenantID).Error; err != nil {
		return fmt.Errorf("failed to delete tenant leads: %w", err)
	}
	return nil
}

func nilIfZero(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}
