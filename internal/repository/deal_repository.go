package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"crm-service/internal/models"
	"crm-service/internal/scope"
)

// DealRepository handles deal persistence
type DealRepository struct {
	db *gorm.DB
}

// NewDealRepository creates a new deal repository
func NewDealRepository(db *gorm.DB) *DealRepository {
	return &DealRepository{db: db}
}

// DealFilters narrows a deal listing beyond the tenant scope
type DealFilters struct {
	Stage      string
	ActiveOnly bool
}

// List returns the deals visible under the scope, newest first.
func (r *DealRepository) List(ctx context.Context, sc *scope.Scope, filters DealFilters) ([]models.Deal, error) {
	var deals []models.Deal

	q := sc.Filter(r.db.WithContext(ctx).Model(&models.Deal{}))
	if filters.Stage != "" {
		q = q.Where("stage = ?", filters.Stage)
	}
	if filters.ActiveOnly {
		q = q.Where("active = ?", true)
	}

	if err := q.Order("created_at DESC").Find(&deals).Error; err != nil {
		return nil, fmt.Errorf("failed to list deals: %w", err)
	}
	return deals, nil
}

// GetByID fetches a single scoped deal.
func (r *DealRepository) GetByID(ctx context.Context, sc *scope.Scope, id uuid.UUID) (*models.Deal, error) {
	var deal models.Deal
	if err := r.db.WithContext(ctx).First(&deal, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get deal: %w", err)
	}
	if err := sc.RequireTenant(deal.TenantID); err != nil {
		return nil, err
	}
	return &deal, nil
}

// Create inserts a deal into the tenant resolved from the scope.
func (r *DealRepository) Create(ctx context.Context, sc *scope.Scope, deal *models.Deal) (*models.Deal, error) {
	tenantID, err := sc.CreationTenant(nilIfZero(deal.TenantID))
	if err != nil {
		return nil, err
	}
	deal.TenantID = tenantID

	if deal.ID == uuid.Nil {
		deal.ID = uuid.New()
	}
	if deal.Stage == "" {
		deal.Stage = models.DealStageQualification
	}

	if err := r.db.WithContext(ctx).Create(deal).Error; err != nil {
		return nil, fmt.Errorf("failed to create deal: %w", err)
	}
	return deal, nil
}

// Update applies field updates to a scoped deal.
func (r *DealRepository) Update(ctx context.Context, sc *scope.Scope, id uuid.UUID, updates map[string]interface{}) (*models.Deal, error) {
	deal, err := r.GetByID(ctx, sc, id)
	if err != nil {
		return nil, err
	}

	delete(updates, "tenant_id")

	if err := r.db.WithContext(ctx).Model(deal).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update deal: %w", err)
	}
	return deal, nil
}

// Delete removes a scoped deal.
func (r *DealRepository) Delete(ctx context.Context, sc *scope.Scope, id uuid.UUID) error {
	if _, err := r.GetByID(ctx, sc, id); err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Delete(&models.Deal{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to delete deal: %w", err)
	}
	return nil
}

// DeleteByTenant removes every deal of a tenant. Used by tenant teardown.
func (r *DealRepository) DeleteByTenant(ctx context.Context, tenantID uuid.UUID) error {
	if err := r.db.WithContext(ctx).Delete(&models.Deal{}, "tenant_id = ?", tenantID).Error; err != nil {
		return fmt.Errorf("failed to delete tenant deals: %w", err)
	}
	return nil
}
