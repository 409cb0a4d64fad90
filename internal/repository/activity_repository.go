package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"crm-service/internal/models"
	"crm-service/internal/scope"
)

// ActivityRepository handles the append-only activity feed. Activities are
// created and deleted, never updated.
type ActivityRepository struct {
	db *gorm.DB
}

// NewActivityRepository creates a new activity repository
func NewActivityRepository(db *gorm.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// ActivityFilters narrows an activity listing beyond the tenant scope
type ActivityFilters struct {
	Type   string
	LeadID *uuid.UUID
	DealID *uuid.UUID
}

// List returns the activities visible under the scope, newest first.
func (r *ActivityRepository) List(ctx context.Context, sc *scope.Scope, filters ActivityFilters) ([]models.Activity, error) {
	var activities []models.Activity

	q := sc.Filter(r.db.WithContext(ctx).Model(&models.Activity{}))
	if filters.Type != "" {
		q = q.Where("type = ?", filters.Type)
	}
	if filters.LeadID != nil {
		q = q.Where("lead_id = ?", *filters.LeadID)
	}
	if filters.DealID != nil {
		q = q.Where("deal_id = ?", *filters.DealID)
	}

	if err := q.Order("created_at DESC").Find(&activities).Error; err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}
	return activities, nil
}

// Create appends an activity. Tenant and author always come from the acting
// profile, never from client input.
func (r *ActivityRepository) Create(ctx context.Context, sc *scope.Scope, activity *models.Activity) (*models.Activity, error) {
	tenantID, err := sc.CreationTenant(nil)
	if err != nil {
		return nil, err
	}
	activity.TenantID = tenantID
	activity.UserID = sc.UserID()

	if activity.ID == uuid.Nil {
		activity.ID = uuid.New()
	}
	if activity.Type == "" {
		activity.Type = models.ActivityTypeNote
	}

	if err := r.db.WithContext(ctx).Create(activity).Error; err != nil {
		return nil, fmt.Errorf("failed to create activity: %w", err)
	}
	return activity, nil
}

// Delete removes a scoped activity.
func (r *ActivityRepository) Delete(ctx context.Context, sc *scope.Scope, id uuid.UUID) error {
	var activity models.Activity
	if err := r.db.WithContext(ctx).First(&activity, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return ErrNotFound
		}
		return fmt.Errorf("failed to get activity: %w", err)
	}
	if err := sc.RequireTenant(activity.TenantID); err != nil {
		return err
	}

	if err := r.db.WithContext(ctx).Delete(&models.Activity{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to delete activity: %w", err)
	}
	return nil
}

// DeleteByTenant removes every activity of a tenant. Used by tenant teardown.
func (r *ActivityRepository) DeleteByTenant(ctx context.Context, tenantID uuid.UUID) error {
	if err := r.db.WithContext(ctx).Delete(&models.Activity{}, "tenant_id = ?", tenantID).Error; err != nil {
		return fmt.Errorf("failed to delete tenant activities: %w", err)
	}
	return nil
}
