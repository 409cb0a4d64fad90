package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"crm-service/internal/models"
	"crm-service/internal/scope"
)

// TenantRepository handles tenant persistence. Tenants are the isolation
// boundary itself, so listing is admin-gated rather than scope-filtered.
type TenantRepository struct {
	db *gorm.DB
}

// NewTenantRepository creates a new tenant repository
func NewTenantRepository(db *gorm.DB) *TenantRepository {
	return &TenantRepository{db: db}
}

// List returns tenants. Admins see all; a client sees only its own tenant.
func (r *TenantRepository) List(ctx context.Context, sc *scope.Scope) ([]models.Tenant, error) {
	var tenants []models.Tenant

	q := r.db.WithContext(ctx).Model(&models.Tenant{})
	if t := sc.Tenant(); t != nil {
		q = q.Where("id = ?", *t)
	} else if !sc.IsAdmin() {
		return nil, scope.ErrForbidden
	}

	if err := q.Order("name ASC").Find(&tenants).Error; err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}
	return tenants, nil
}

// GetByID fetches a tenant visible to the scope.
func (r *TenantRepository) GetByID(ctx context.Context, sc *scope.Scope, id uuid.UUID) (*models.Tenant, error) {
	if err := sc.RequireTenant(id); err != nil {
		return nil, err
	}

	var tenant models.Tenant
	if err := r.db.WithContext(ctx).First(&tenant, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}
	return &tenant, nil
}

// Create inserts a tenant. Admin only.
func (r *TenantRepository) Create(ctx context.Context, sc *scope.Scope, tenant *models.Tenant) (*models.Tenant, error) {
	if err := sc.RequireAdmin(); err != nil {
		return nil, err
	}

	if tenant.ID == uuid.Nil {
		tenant.ID = uuid.New()
	}
	if tenant.Status == "" {
		tenant.Status = models.TenantStatusTrial
	}
	if tenant.Plan == "" {
		tenant.Plan = models.PlanStarter
	}

	if err := r.db.WithContext(ctx).Create(tenant).Error; err != nil {
		return nil, fmt.Errorf("failed to create tenant: %w", err)
	}
	return tenant, nil
}

// Update applies field updates to a tenant. Admin only.
func (r *TenantRepository) Update(ctx context.Context, sc *scope.Scope, id uuid.UUID, updates map[string]interface{}) (*models.Tenant, error) {
	if err := sc.RequireAdmin(); err != nil {
		return nil, err
	}

	tenant, err := r.GetByID(ctx, sc, id)
	if err != nil {
		return nil, err
	}

	if err := r.db.WithContext(ctx).Model(tenant).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update tenant: %w", err)
	}
	return tenant, nil
}

// Delete removes a tenant row. Callers run the membership guard first; this
// is the last step of the teardown sequence.
func (r *TenantRepository) Delete(ctx context.Context, sc *scope.Scope, id uuid.UUID) error {
	if err := sc.RequireAdmin(); err != nil {
		return err
	}

	res := r.db.WithContext(ctx).Delete(&models.Tenant{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete tenant: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CountProfiles returns the number of member profiles of a tenant. Backs the
// referential guard on tenant deletion.
func (r *TenantRepository) CountProfiles(ctx context.Context, id uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Profile{}).
		Where("tenant_id = ?", id).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count tenant profiles: %w", err)
	}
	return count, nil
}
