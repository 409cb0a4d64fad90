package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"crm-service/internal/models"
	"crm-service/internal/scope"
)

// QuoteRepository handles quotes and their line items. Item mutations and the
// parent total recompute happen inside one transaction: the total is always
// re-derived from the items on disk, never from an in-memory sum, so
// concurrent item mutations on the same quote cannot leave a stale total.
type QuoteRepository struct {
	db *gorm.DB
}

// NewQuoteRepository creates a new quote repository
func NewQuoteRepository(db *gorm.DB) *QuoteRepository {
	return &QuoteRepository{db: db}
}

// List returns the quotes visible under the scope, items preloaded.
func (r *QuoteRepository) List(ctx context.Context, sc *scope.Scope, status string) ([]models.Quote, error) {
	var quotes []models.Quote

	q := sc.Filter(r.db.WithContext(ctx).Model(&models.Quote{})).Preload("Items")
	if status != "" {
		q = q.Where("status = ?", status)
	}

	if err := q.Order("created_at DESC").Find(&quotes).Error; err != nil {
		return nil, fmt.Errorf("failed to list quotes: %w", err)
	}
	return quotes, nil
}

// GetByID fetches a single scoped quote with its items.
func (r *QuoteRepository) GetByID(ctx context.Context, sc *scope.Scope, id uuid.UUID) (*models.Quote, error) {
	var quote models.Quote
	if err := r.db.WithContext(ctx).Preload("Items").First(&quote, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get quote: %w", err)
	}
	if err := sc.RequireTenant(quote.TenantID); err != nil {
		return nil, err
	}
	return &quote, nil
}

// Create inserts a quote into the tenant resolved from the scope.
func (r *QuoteRepository) Create(ctx context.Context, sc *scope.Scope, quote *models.Quote) (*models.Quote, error) {
	tenantID, err := sc.CreationTenant(nilIfZero(quote.TenantID))
	if err != nil {
		return nil, err
	}
	quote.TenantID = tenantID

	if quote.ID == uuid.Nil {
		quote.ID = uuid.New()
	}
	if quote.Status == "" {
		quote.Status = models.QuoteStatusDraft
	}

	if err := r.db.WithContext(ctx).Create(quote).Error; err != nil {
		return nil, fmt.Errorf("failed to create quote: %w", err)
	}
	return quote, nil
}

// Update applies field updates to a scoped quote. total_amount is derived and
// cannot be set directly.
func (r *QuoteRepository) Update(ctx context.Context, sc *scope.Scope, id uuid.UUID, updates map[string]interface{}) (*models.Quote, error) {
	quote, err := r.GetByID(ctx, sc, id)
	if err != nil {
		return nil, err
	}

	delete(updates, "tenant_id")
	delete(updates, "total_amount")

	if err := r.db.WithContext(ctx).Model(quote).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update quote: %w", err)
	}
	return quote, nil
}

// Delete removes a scoped quote and its items.
func (r *QuoteRepository) Delete(ctx context.Context, sc *scope.Scope, id uuid.UUID) error {
	if _, err := r.GetByID(ctx, sc, id); err != nil {
		return err
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.QuoteItem{}, "quote_id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to delete quote items: %w", err)
		}
		if err := tx.Delete(&models.Quote{}, "id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to delete quote: %w", err)
		}
		return nil
	})
}

// AddItem inserts a line item and recomputes the parent total in the same
// transaction. Item total is always quantity * unit price regardless of any
// client-supplied value.
func (r *QuoteRepository) AddItem(ctx context.Context, sc *scope.Scope, quoteID uuid.UUID, item *models.QuoteItem) (*models.QuoteItem, error) {
	if _, err := r.GetByID(ctx, sc, quoteID); err != nil {
		return nil, err
	}

	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	item.QuoteID = quoteID
	item.Total = item.Quantity * item.UnitPrice

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(item).Error; err != nil {
			return fmt.Errorf("failed to create quote item: %w", err)
		}
		return r.recomputeTotal(tx, quoteID)
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// RemoveItem deletes a line item and recomputes the parent total in the same
// transaction.
func (r *QuoteRepository) RemoveItem(ctx context.Context, sc *scope.Scope, quoteID, itemID uuid.UUID) error {
	if _, err := r.GetByID(ctx, sc, quoteID); err != nil {
		return err
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.QuoteItem{}, "id = ? AND quote_id = ?", itemID, quoteID)
		if res.Error != nil {
			return fmt.Errorf("failed to delete quote item: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return r.recomputeTotal(tx, quoteID)
	})
}

// DeleteByTenant removes every quote and quote item of a tenant. Used only
// during tenant teardown.
func (r *QuoteRepository) DeleteByTenant(ctx context.Context, tenantID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(
			"DELETE FROM quote_items WHERE quote_id IN (SELECT id FROM quotes WHERE tenant_id = ?)",
			tenantID,
		).Error; err != nil {
			return fmt.Errorf("failed to delete tenant quote items: %w", err)
		}
		if err := tx.Delete(&models.Quote{}, "tenant_id = ?", tenantID).Error; err != nil {
			return fmt.Errorf("failed to delete tenant quotes: %w", err)
		}
		return nil
	})
}

// recomputeTotal re-reads the quote's current items inside the caller's
// transaction and writes the summed total back to the parent.
func (r *QuoteRepository) recomputeTotal(tx *gorm.DB, quoteID uuid.UUID) error {
	var total float64
	if err := tx.Model(&models.QuoteItem{}).
		Where("quote_id = ?", quoteID).
		Select("COALESCE(SUM(total), 0)").
		Scan(&total).Error; err != nil {
		return fmt.Errorf("failed to sum quote items: %w", err)
	}

	if err := tx.Model(&models.Quote{}).
		Where("id = ?", quoteID).
		Update("total_amount", total).Error; err != nil {
		return fmt.Errorf("failed to update quote total: %w", err)
	}
	return nil
}
