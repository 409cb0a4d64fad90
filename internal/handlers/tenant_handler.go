package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"crm-service/internal/middleware"
	"crm-service/internal/models"
	"crm-service/internal/repository"
	"crm-service/internal/services"
)

// TenantHandler handles tenant administration HTTP requests
type TenantHandler struct {
	tenantRepo *repository.TenantRepository
	adminSvc   *services.TenantAdminService
}

// NewTenantHandler creates a new tenant handler
func NewTenantHandler(tenantRepo *repository.TenantRepository, adminSvc *services.TenantAdminService) *TenantHandler {
	return &TenantHandler{
		tenantRepo: tenantRepo,
		adminSvc:   adminSvc,
	}
}

// List returns all tenants for admins, or the caller's own tenant for clients
func (h *TenantHandler) List(c *gin.Context) {
	sc := middleware.GetScope(c)

	tenants, err := h.tenantRepo.List(c.Request.Context(), sc)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "Tenants retrieved", gin.H{
		"tenants": tenants,
		"count":   len(tenants),
	})
}

// Get returns a single tenant by ID
func (h *TenantHandler) Get(c *gin.Context) {
	sc := middleware.GetScope(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	tenant, err := h.tenantRepo.GetByID(c.Request.Context(), sc, id)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "Tenant retrieved", tenant)
}

// CreateTenantRequest represents the request to create a tenant
type CreateTenantRequest struct {
	Name     string `json:"name" binding:"required,min=2"`
	Plan     string `json:"plan"`
	Currency string `json:"currency"`
	Language string `json:"language"`
	PageID   string `json:"page_id"`
}

// Create creates a new tenant. Admin only.
func (h *TenantHandler) Create(c *gin.Context) {
	sc := middleware.GetScope(c)

	var req CreateTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}
	if req.Plan != "" && !models.IsValidTenantPlan(req.Plan) {
		ErrorResponse(c, http.StatusBadRequest, "Unknown plan: "+req.Plan, nil)
		return
	}

	created, err := h.tenantRepo.Create(c.Request.Context(), sc, &models.Tenant{
		Name:     req.Name,
		Plan:     req.Plan,
		Currency: req.Currency,
		Language: req.Language,
		PageID:   req.PageID,
	})
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	SuccessResponse(c, http.StatusCreated, "Tenant created", created)
}

// UpdateTenantRequest represents a partial tenant update
type UpdateTenantRequest struct {
	Name     *string `json:"name"`
	Status   *string `json:"status"`
	Plan     *string `json:"plan"`
	Currency *string `json:"currency"`
	Language *string `json:"language"`
	PageID   *string `json:"page_id"`
}

// Update partially updates a tenant. Admin only.
func (h *TenantHandler) Update(c *gin.Context) {
	sc := middleware.GetScope(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Status != nil {
		if !models.IsValidTenantStatus(*req.Status) {
			ErrorResponse(c, http.StatusBadRequest, "Unknown tenant status: "+*req.Status, nil)
			return
		}
		updates["status"] = *req.Status
	}
	if req.Plan != nil {
		if !models.IsValidTenantPlan(*req.Plan) {
			ErrorResponse(c, http.StatusBadRequest, "Unknown plan: "+*req.Plan, nil)
			return
		}
		updates["plan"] = *req.Plan
	}
	if req.Currency != nil {
		updates["currency"] = *req.Currency
	}
	if req.Language != nil {
		updates["language"] = *req.Language
	}
	if req.PageID != nil {
		updates["page_id"] = *req.PageID
	}
	if len(updates) == 0 {
		ErrorResponse(c, http.StatusBadRequest, "No fields to update", nil)
		return
	}

	tenant, err := h.tenantRepo.Update(c.Request.Context(), sc, id, updates)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "Tenant updated", tenant)
}

// Delete godoc
// @Summary Delete tenant
// @Description Removes a tenant after its profiles are gone. Refused with 409
// @Description while member profiles still exist.
// @Tags tenants
// @Produce json
// @Param id path string true "Tenant ID"
// @Success 200 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /api/v1/tenants/{id} [delete]
func (h *TenantHandler) Delete(c *gin.Context) {
	sc := middleware.GetScope(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.adminSvc.DeleteTenant(c.Request.Context(), sc, id); err != nil {
		HandleServiceError(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "Tenant deleted", nil)
}
