package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"crm-service/internal/models"
	"crm-service/internal/nats"
	"crm-service/internal/repository"
	"crm-service/internal/scope"
)

// TenantAdminService covers the admin-only flows that span repositories:
// tenant deletion with its referential guard and ordered teardown, and
// cross-tenant lead reassignment.
type TenantAdminService struct {
	tenantRepo   *repository.TenantRepository
	profileRepo  *repository.ProfileRepository
	leadRepo     *repository.LeadRepository
	dealRepo     *repository.DealRepository
	quoteRepo    *repository.QuoteRepository
	productRepo  *repository.ProductRepository
	taskRepo     *repository.TaskRepository
	activityRepo *repository.ActivityRepository
	reports      *ReportService
	events       *nats.Client
	log          *logrus.Entry
}

// NewTenantAdminService creates a new tenant admin service
func NewTenantAdminService(
	tenantRepo *repository.TenantRepository,
	profileRepo *repository.ProfileRepository,
	leadRepo *repository.LeadRepository,
	dealRepo *repository.DealRepository,
	quoteRepo *repository.QuoteRepository,
	productRepo *repository.ProductRepository,
	taskRepo *repository.TaskRepository,
	activityRepo *repository.ActivityRepository,
	reports *ReportService,
	events *nats.Client,
	log *logrus.Logger,
) *TenantAdminService {
	return &TenantAdminService{
		tenantRepo:   tenantRepo,
		profileRepo:  profileRepo,
		leadRepo:     leadRepo,
		dealRepo:     dealRepo,
		quoteRepo:    quoteRepo,
		productRepo:  productRepo,
		taskRepo:     taskRepo,
		activityRepo: activityRepo,
		reports:      reports,
		events:       events,
		log:          log.WithField("component", "tenant_admin"),
	}
}

// DeleteTenant removes a tenant after verifying it has no member profiles.
// The teardown deletes dependents in order (quotes before their leads,
// activities and tasks before deals and leads, then the tenant row) and
// halts on the first failed step, reporting which step failed.
func (s *TenantAdminService) DeleteTenant(ctx context.Context, sc *scope.Scope, tenantID uuid.UUID) error {
	if err := sc.RequireAdmin(); err != nil {
		return err
	}

	tenant, err := s.tenantRepo.GetByID(ctx, sc, tenantID)
	if err != nil {
		return err
	}

	members, err := s.tenantRepo.CountProfiles(ctx, tenantID)
	if err != nil {
		return err
	}
	if members > 0 {
		return NewConflictError("tenant", fmt.Sprintf("tenant has %d member profiles; remove them first", members))
	}

	steps := []struct {
		name string
		run  func() error
	}{
		{"quotes", func() error { return s.quoteRepo.DeleteByTenant(ctx, tenantID) }},
		{"activities", func() error { return s.activityRepo.DeleteByTenant(ctx, tenantID) }},
		{"tasks", func() error { return s.taskRepo.DeleteByTenant(ctx, tenantID) }},
		{"deals", func() error { return s.dealRepo.DeleteByTenant(ctx, tenantID) }},
		{"leads", func() error { return s.leadRepo.DeleteByTenant(ctx, tenantID) }},
		{"products", func() error { return s.productRepo.DeleteByTenant(ctx, tenantID) }},
	}
	for _, step := range steps {
		if err := step.run(); err != nil {
			return fmt.Errorf("tenant teardown halted at %s: %w", step.name, err)
		}
	}

	if err := s.tenantRepo.Delete(ctx, sc, tenantID); err != nil {
		return fmt.Errorf("tenant teardown halted at tenant deletion: %w", err)
	}

	s.log.WithFields(logrus.Fields{"tenant_id": tenantID, "name": tenant.Name}).Info("tenant deleted")

	if s.reports != nil {
		s.reports.Invalidate(ctx, tenantID)
	}

	if err := s.events.PublishTenantDeleted(&nats.TenantEvent{
		TenantID: tenantID.String(),
		Name:     tenant.Name,
	}); err != nil {
		s.log.WithError(err).Warn("failed to publish tenant.deleted event")
	}

	return nil
}

// ReassignLeadRequest names the target tenant and, optionally, the new owner.
type ReassignLeadRequest struct {
	LeadID   uuid.UUID
	TenantID uuid.UUID
	// OwnerID explicitly names the new owning agent
	OwnerID *uuid.UUID
	// AssignFallbackOwner picks the target tenant's deterministic fallback
	// profile when no owner is named. Default is an explicit null owner.
	AssignFallbackOwner bool
}

// ReassignLead moves a lead to another tenant, changing tenant and owner in
// one operation. Admin only. Without an explicit owner the lead becomes
// unowned (preferred), unless the caller asks for the fallback owner.
func (s *TenantAdminService) ReassignLead(ctx context.Context, sc *scope.Scope, req *ReassignLeadRequest) (*models.Lead, error) {
	if err := sc.RequireAdmin(); err != nil {
		return nil, err
	}

	if _, err := s.tenantRepo.GetByID(ctx, sc, req.TenantID); err != nil {
		return nil, err
	}

	// the source tenant's cached views go stale too once the lead moves
	current, err := s.leadRepo.GetByID(ctx, sc, req.LeadID)
	if err != nil {
		return nil, err
	}

	owner := req.OwnerID
	if owner == nil && req.AssignFallbackOwner {
		fallback, err := s.profileRepo.FirstOfTenant(ctx, req.TenantID)
		if err != nil {
			if err == repository.ErrNotFound {
				return nil, NewValidationError("owner_id", "target tenant has no profiles to assign as fallback owner")
			}
			return nil, err
		}
		owner = &fallback.ID
	}
	if owner != nil {
		p, err := s.profileRepo.GetByID(ctx, sc, *owner)
		if err != nil {
			return nil, err
		}
		if p.TenantID == nil || *p.TenantID != req.TenantID {
			return nil, NewValidationError("owner_id", "new owner does not belong to the target tenant")
		}
	}

	lead, err := s.leadRepo.Reassign(ctx, sc, req.LeadID, req.TenantID, owner)
	if err != nil {
		return nil, err
	}

	if s.reports != nil {
		s.reports.Invalidate(ctx, current.TenantID, req.TenantID)
	}

	s.log.WithFields(logrus.Fields{
		"lead_id":   req.LeadID,
		"tenant_id": req.TenantID,
		"owned":     owner != nil,
	}).Info("lead reassigned")

	return lead, nil
}
