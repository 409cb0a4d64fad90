package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"crm-service/internal/models"
	"crm-service/internal/scope"
)

// ProductRepository handles product persistence
type ProductRepository struct {
	db *gorm.DB
}

// NewProductRepository creates a new product repository
func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// List returns the products visible under the scope, name order.
func (r *ProductRepository) List(ctx context.Context, sc *scope.Scope, activeOnly bool) ([]models.Product, error) {
	var products []models.Product

	q := sc.Filter(r.db.WithContext(ctx).Model(&models.Product{}))
	if activeOnly {
		q = q.Where("active = ?", true)
	}

	if err := q.Order("name ASC").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

// GetByID fetches a single scoped product.
func (r *ProductRepository) GetByID(ctx context.Context, sc *scope.Scope, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	if err := sc.RequireTenant(product.TenantID); err != nil {
		return nil, err
	}
	return &product, nil
}

// Create inserts a product into the tenant resolved from the scope.
func (r *ProductRepository) Create(ctx context.Context, sc *scope.Scope, product *models.Product) (*models.Product, error) {
	tenantID, err := sc.CreationTenant(nilIfZero(product.TenantID))
	if err != nil {
		return nil, err
	}
	product.TenantID = tenantID

	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}

	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return product, nil
}

// Update applies field updates to a scoped product.
func (r *ProductRepository) Update(ctx context.Context, sc *scope.Scope, id uuid.UUID, updates map[string]interface{}) (*models.Product, error) {
	product, err := r.GetByID(ctx, sc, id)
	if err != nil {
		return nil, err
	}

	delete(updates, "tenant_id")

	if err := r.db.WithContext(ctx).Model(product).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	return product, nil
}

// Delete removes a scoped product.
func (r *ProductRepository) Delete(ctx context.Context, sc *scope.Scope, id uuid.UUID) error {
	if _, err := r.GetByID(ctx, sc, id); err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Delete(&models.Product{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	return nil
}

// DeleteByTenant removes every product of a tenant. Used by tenant teardown.
func (r *ProductRepository) DeleteByTenant(ctx context.Context, tenantID uuid.UUID) error {
	if err := r.db.WithContext(ctx).Delete(&models.Product{}, "tenant_id = ?", tenantID).Error; err != nil {
		return fmt.Errorf("failed to delete tenant products: %w", err)
	}
	return nil
}
