package handlers

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"crm-service/internal/middleware"
	"crm-service/internal/models"
	natsClient "crm-service/internal/nats"
	"crm-service/internal/repository"
	"crm-service/internal/services"
)

// LeadHandler handles lead-related HTTP requests
type LeadHandler struct {
	leadRepo *repository.LeadRepository
	dealRepo *repository.DealRepository
	adminSvc *services.TenantAdminService
	reports  *services.ReportService
	events   *natsClient.Client
}

// NewLeadHandler creates a new lead handler
func NewLeadHandler(leadRepo *repository.LeadRepository, dealRepo *repository.DealRepository, adminSvc *services.TenantAdminService, reports *services.ReportService, events *natsClient.Client) *LeadHandler {
	return &LeadHandler{
		leadRepo: leadRepo,
		dealRepo: dealRepo,
		adminSvc: adminSvc,
		reports:  reports,
		events:   events,
	}
}

// List godoc
// @Summary List leads
// @Description Lists the leads visible under the caller's tenant scope
// @Tags leads
// @Produce json
// @Param status query string false "Filter by status"
// @Param source query string false "Filter by source"
// @Param user_id query string false "Filter by owning agent"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/leads [get]
func (h *LeadHandler) List(c *gin.Context) {
	sc := middleware.GetScope(c)

	filters := repository.LeadFilters{
		Status: c.Query("status"),
		Source: c.Query("source"),
	}
	if raw := c.Query("user_id"); raw != "" {
		userID, err := uuid.Parse(raw)
		if err != nil {
			ErrorResponse(c, http.StatusBadRequest, "Invalid user_id format", err)
			return
		}
		filters.UserID = &userID
	}

	leads, err := h.leadRepo.List(c.Request.Context(), sc, filters)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "Leads retrieved", gin.H{
		"leads": leads,
		"count": len(leads),
	})
}

// Get returns a single lead by ID
func (h *LeadHandler) Get(c *gin.Context) {
	sc := middleware.GetScope(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	lead, err := h.leadRepo.GetByID(c.Request.Context(), sc, id)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "Lead retrieved", lead)
}

// CreateLeadRequest represents the request to create a lead
type CreateLeadRequest struct {
	Name     string                 `json:"name" binding:"required"`
	Email    string                 `json:"email"`
	Phone    string                 `json:"phone"`
	Company  string                 `json:"company"`
	Value    float64                `json:"value"`
	Status   string                 `json:"status"`
	Source   string                 `json:"source"`
	Notes    string                 `json:"notes"`
	TenantID *uuid.UUID             `json:"tenant_id"`
	UserID   *uuid.UUID             `json:"user_id"`
	Metadata map[string]interface{} `json:"metadata"`
}

// Create godoc
// @Summary Create lead
// @Tags leads
// @Accept json
// @Produce json
// @Param request body CreateLeadRequest true "Lead creation request"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /api/v1/leads [post]
func (h *LeadHandler) Create(c *gin.Context) {
	sc := middleware.GetScope(c)

	var req CreateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}
	if req.Status != "" && !models.IsValidLeadStatus(req.Status) {
		ErrorResponse(c, http.StatusBadRequest, "Unknown lead status: "+req.Status, nil)
		return
	}

	metadata, err := models.NewJSONB(req.Metadata)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid metadata payload", err)
		return
	}

	lead := &models.Lead{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Company:  req.Company,
		Value:    req.Value,
		Status:   req.Status,
		Source:   req.Source,
		Notes:    req.Notes,
		UserID:   req.UserID,
		Metadata: metadata,
	}
	if req.TenantID != nil {
		lead.TenantID = *req.TenantID
	}

	created, err := h.leadRepo.Create(c.Request.Context(), sc, lead)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	h.reports.Invalidate(c.Request.Context(), created.TenantID)
	// event delivery is best effort
	_ = h.events.PublishLeadEvent(natsClient.EventLeadCreated, &natsClient.LeadEvent{
		LeadID:   created.ID.String(),
		TenantID: created.TenantID.String(),
		Name:     created.Name,
		Status:   created.Status,
		Source:   created.Source,
		Value:    created.Value,
	})

	SuccessResponse(c, http.StatusCreated, "Lead created", created)
}

// UpdateLeadRequest represents a partial lead update. Pointer fields
// distinguish "not provided" from zero values.
type UpdateLeadRequest struct {
	Name    *string  `json:"name"`
	Email   *string  `json:"email"`
	Phone   *string  `json:"phone"`
	Company *string  `json:"company"`
	Value   *float64 `json:"value"`
	Status  *string  `json:"status"`
	Source  *string  `json:"source"`
	Notes   *string  `json:"notes"`
}

// Update godoc
// @Summary Update lead
// @Description Partially updates a lead. Tenant and owner cannot change here;
// @Description use the reassign endpoint for that.
// @Tags leads
// @Accept json
// @Produce json
// @Param id path string true "Lead ID"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/leads/{id} [put]
func (h *LeadHandler) Update(c *gin.Context) {
	sc := middleware.GetScope(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Email != nil {
		updates["email"] = *req.Email
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}
	if req.Company != nil {
		updates["company"] = *req.Company
	}
	if req.Value != nil {
		updates["value"] = *req.Value
	}
	if req.Status != nil {
		if !models.IsValidLeadStatus(*req.Status) {
			ErrorResponse(c, http.StatusBadRequest, "Unknown lead status: "+*req.Status, nil)
			return
		}
		updates["status"] = *req.Status
	}
	if req.Source != nil {
		updates["source"] = *req.Source
	}
	if req.Notes != nil {
		updates["notes"] = *req.Notes
	}
	if len(updates) == 0 {
		ErrorResponse(c, http.StatusBadRequest, "No fields to update", nil)
		return
	}

	lead, err := h.leadRepo.Update(c.Request.Context(), sc, id, updates)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	h.reports.Invalidate(c.Request.Context(), lead.TenantID)
	if req.Status != nil {
		_ = h.events.PublishLeadEvent(natsClient.EventLeadStatusChanged, &natsClient.LeadEvent{
			LeadID:   lead.ID.String(),
			TenantID: lead.TenantID.String(),
			Name:     lead.Name,
			Status:   lead.Status,
			Source:   lead.Source,
			Value:    lead.Value,
		})
	}

	SuccessResponse(c, http.StatusOK, "Lead updated", lead)
}

// Delete removes a lead. Clients may only delete leads they own.
func (h *LeadHandler) Delete(c *gin.Context) {
	sc := middleware.GetScope(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	lead, err := h.leadRepo.GetByID(c.Request.Context(), sc, id)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	if err := h.leadRepo.Delete(c.Request.Context(), sc, id); err != nil {
		HandleServiceError(c, err)
		return
	}

	h.reports.Invalidate(c.Request.Context(), lead.TenantID)
	SuccessResponse(c, http.StatusOK, "Lead deleted", nil)
}

// ReassignLeadRequest represents the request to move a lead across tenants
type ReassignLeadRequest struct {
	TenantID            uuid.UUID  `json:"tenant_id" binding:"required"`
	OwnerID             *uuid.UUID `json:"owner_id"`
	AssignFallbackOwner bool       `json:"assign_fallback_owner"`
}

// Reassign godoc
// @Summary Reassign lead to another tenant
// @Description Moves a lead to another tenant. Admin only. Without an explicit
// @Description owner the lead becomes unassigned.
// @Tags leads
// @Accept json
// @Produce json
// @Param id path string true "Lead ID"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]interface{}
// @Router /api/v1/leads/{id}/reassign [post]
func (h *LeadHandler) Reassign(c *gin.Context) {
	sc := middleware.GetScope(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req ReassignLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	lead, err := h.adminSvc.ReassignLead(c.Request.Context(), sc, &services.ReassignLeadRequest{
		LeadID:              id,
		TenantID:            req.TenantID,
		OwnerID:             req.OwnerID,
		AssignFallbackOwner: req.AssignFallbackOwner,
	})
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "Lead reassigned", lead)
}

// exportHeader is the Spanish-facing CSV header used by the sales team.
var exportHeader = []string{"Nombre", "Email", "Teléfono", "Empresa", "Valor", "Estado", "Fuente", "Deal", "Fecha"}

// Export godoc
// @Summary Export leads as CSV
// @Description Streams the scoped lead list as a CSV file
// @Tags leads
// @Produce text/csv
// @Success 200 {string} string "CSV content"
// @Router /api/v1/leads/export [get]
func (h *LeadHandler) Export(c *gin.Context) {
	sc := middleware.GetScope(c)

	leads, err := h.leadRepo.List(c.Request.Context(), sc, repository.LeadFilters{
		Status: c.Query("status"),
		Source: c.Query("source"),
	})
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	// one pass over scoped deals to resolve each lead's deal title
	deals, err := h.dealRepo.List(c.Request.Context(), sc, repository.DealFilters{})
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	dealByLead := make(map[uuid.UUID]string, len(deals))
	for _, d := range deals {
		if d.LeadID != nil {
			if _, seen := dealByLead[*d.LeadID]; !seen {
				dealByLead[*d.LeadID] = d.Title
			}
		}
	}

	filename := fmt.Sprintf("leads_%s.csv", time.Now().UTC().Format("2006-01-02"))
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)

	w := csv.NewWriter(c.Writer)
	_ = w.Write(exportHeader)
	for _, lead := range leads {
		_ = w.Write([]string{
			lead.Name,
			lead.Email,
			lead.Phone,
			lead.Company,
			strconv.FormatFloat(lead.Value, 'f', 2, 64),
			lead.Status,
			lead.Source,
			dealByLead[lead.ID],
			lead.CreatedAt.UTC().Format("2006-01-02"),
		})
	}
	w.Flush()
}
