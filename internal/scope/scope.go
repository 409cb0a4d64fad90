package scope

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"crm-service/internal/models"
)

// Sentinel errors for the authorization taxonomy. Handlers map these to 401
// and 403 so a forbidden access is never confused with an empty result set.
var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrForbidden        = errors.New("not authorized")
	ErrNoTenant         = errors.New("no tenant can be determined for the acting profile")
)

// Scope is the visibility predicate computed once per request from the
// resolved profile and, for admins, the explicit tenant selector. Every
// repository read and write passes through it. It is request-scoped state,
// never shared between requests.
type Scope struct {
	Profile *models.Profile

	// TenantFilter narrows an admin to a single tenant. nil means "all".
	// Ignored for non-admins, whose tenant is always their own.
	TenantFilter *uuid.UUID
}

// ForProfile builds the scope for a resolved profile. For admins, filter is
// the explicit tenant selector (nil = all tenants). Non-admin profiles without
// a tenant are rejected: they have no visible rows and no legal writes.
func ForProfile(p *models.Profile, filter *uuid.UUID) (*Scope, error) {
	if p == nil {
		return nil, ErrNotAuthenticated
	}
	if !p.IsAdmin() && p.TenantID == nil {
		return nil, fmt.Errorf("%w: profile %s has no tenant", ErrNoTenant, p.ID)
	}
	s := &Scope{Profile: p}
	if p.IsAdmin() {
		s.TenantFilter = filter
	}
	return s, nil
}

// IsAdmin reports whether the acting profile is an admin.
func (s *Scope) IsAdmin() bool {
	return s.Profile != nil && s.Profile.IsAdmin()
}

// UserID returns the acting profile's id.
func (s *Scope) UserID() uuid.UUID {
	return s.Profile.ID
}

// Tenant returns the single tenant this scope is narrowed to, or nil when the
// scope spans all tenants (admin with no selector).
func (s *Scope) Tenant() *uuid.UUID {
	if s.IsAdmin() {
		return s.TenantFilter
	}
	return s.Profile.TenantID
}

// Filter applies the visibility predicate to a query. Admins with no selector
// see every row; everyone else is narrowed to a single tenant.
func (s *Scope) Filter(db *gorm.DB) *gorm.DB {
	if t := s.Tenant(); t != nil {
		return db.Where("tenant_id = ?", *t)
	}
	return db
}

// CanAccessTenant reports whether rows of the given tenant are visible and
// mutable under this scope.
func (s *Scope) CanAccessTenant(tenantID uuid.UUID) bool {
	t := s.Tenant()
	return t == nil || *t == tenantID
}

// RequireTenant checks tenant access and returns ErrForbidden on mismatch.
func (s *Scope) RequireTenant(tenantID uuid.UUID) error {
	if !s.CanAccessTenant(tenantID) {
		return ErrForbidden
	}
	return nil
}

// RequireAdmin returns ErrForbidden for non-admin scopes.
func (s *Scope) RequireAdmin() error {
	if !s.IsAdmin() {
		return ErrForbidden
	}
	return nil
}

// CreationTenant resolves the tenant for a new row. A non-admin always writes
// into its own tenant regardless of requested; an admin must either have a
// selector or name the tenant explicitly. An undeterminable tenant is an
// explicit error, never a silent default.
func (s *Scope) CreationTenant(requested *uuid.UUID) (uuid.UUID, error) {
	if !s.IsAdmin() {
		return *s.Profile.TenantID, nil
	}
	if requested != nil {
		if err := s.RequireTenant(*requested); err != nil {
			return uuid.Nil, err
		}
		return *requested, nil
	}
	if s.TenantFilter != nil {
		return *s.TenantFilter, nil
	}
	return uuid.Nil, ErrNoTenant
}

// CanUpdateLead checks the update rule: tenant membership alone is enough,
// any teammate in the tenant may update a shared lead.
func (s *Scope) CanUpdateLead(l *models.Lead) error {
	return s.RequireTenant(l.TenantID)
}

// CanDeleteLead checks the delete rule. Clients may delete only leads they
// personally own; same-tenant membership is not enough. This is stricter than
// read visibility and must not be relaxed. Admins fall back to tenant scope.
func (s *Scope) CanDeleteLead(l *models.Lead) error {
	if err := s.RequireTenant(l.TenantID); err != nil {
		return err
	}
	if s.IsAdmin() {
		return nil
	}
	if l.UserID == nil || *l.UserID != s.Profile.ID {
		return fmt.Errorf("%w: lead is owned by another user", ErrForbidden)
	}
	return nil
}
