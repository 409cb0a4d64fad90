package repository

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"crm-service/internal/models"
	"crm-service/internal/scope"
)

// ProfileRepository handles profile persistence
type ProfileRepository struct {
	db *gorm.DB
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// List returns profiles visible under the scope: admins see all (optionally
// narrowed by selector), clients see their tenant's teammates.
func (r *ProfileRepository) List(ctx context.Context, sc *scope.Scope) ([]models.Profile, error) {
	var profiles []models.Profile

	q := sc.Filter(r.db.WithContext(ctx).Model(&models.Profile{}))
	if err := q.Order("created_at ASC").Find(&profiles).Error; err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	return profiles, nil
}

// GetByID fetches a single profile visible to the scope.
func (r *ProfileRepository) GetByID(ctx context.Context, sc *scope.Scope, id uuid.UUID) (*models.Profile, error) {
	var profile models.Profile
	if err := r.db.WithContext(ctx).First(&profile, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	if profile.TenantID != nil {
		if err := sc.RequireTenant(*profile.TenantID); err != nil {
			return nil, err
		}
	} else if err := sc.RequireAdmin(); err != nil {
		return nil, err
	}
	return &profile, nil
}

// Create inserts a profile. Admin only: profiles mirror identity-provider
// users and are provisioned by operators, not self-registered here. A fresh
// API key is issued when none is supplied.
func (r *ProfileRepository) Create(ctx context.Context, sc *scope.Scope, profile *models.Profile) (*models.Profile, error) {
	if err := sc.RequireAdmin(); err != nil {
		return nil, err
	}
	if profile.Role != models.RoleAdmin && profile.TenantID == nil {
		return nil, scope.ErrNoTenant
	}

	if profile.ID == uuid.Nil {
		profile.ID = uuid.New()
	}
	if profile.Role == "" {
		profile.Role = models.RoleClient
	}
	if profile.APIKey == "" {
		key, err := generateAPIKey()
		if err != nil {
			return nil, err
		}
		profile.APIKey = key
	}

	if err := r.db.WithContext(ctx).Create(profile).Error; err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}
	return profile, nil
}

// Update applies field updates to a scoped profile.
func (r *ProfileRepository) Update(ctx context.Context, sc *scope.Scope, id uuid.UUID, updates map[string]interface{}) (*models.Profile, error) {
	profile, err := r.GetByID(ctx, sc, id)
	if err != nil {
		return nil, err
	}

	// role, tenant and api_key changes are admin operations
	if !sc.IsAdmin() {
		delete(updates, "role")
		delete(updates, "tenant_id")
		delete(updates, "api_key")
	}

	if err := r.db.WithContext(ctx).Model(profile).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return profile, nil
}

// Delete removes a profile. Admin only.
func (r *ProfileRepository) Delete(ctx context.Context, sc *scope.Scope, id uuid.UUID) error {
	if err := sc.RequireAdmin(); err != nil {
		return err
	}

	res := r.db.WithContext(ctx).Delete(&models.Profile{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete profile: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// FirstOfTenant returns the deterministic fallback owner for a tenant: its
// oldest profile, ties broken by id. Used by lead reassignment when the
// caller asks for a fallback owner instead of an unowned lead.
func (r *ProfileRepository) FirstOfTenant(ctx context.Context, tenantID uuid.UUID) (*models.Profile, error) {
	var profile models.Profile
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at ASC, id ASC").
		First(&profile).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get fallback profile: %w", err)
	}
	return &profile, nil
}

// DeleteByTenant removes every profile of a tenant. Used by tenant teardown.
func (r *ProfileRepository) DeleteByTenant(ctx context.Context, tenantID uuid.UUID) error {
	if err := r.db.WithContext(ctx).Delete(&models.Profile{}, "tenant_id = ?", tenantID).Error; err != nil {
		return fmt.Errorf("failed to delete tenant profiles: %w", err)
	}
	return nil
}

// generateAPIKey produces an opaque 64-hex-char key for the ingestion API.
func generateAPIKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate API key: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
