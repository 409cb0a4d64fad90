package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"crm-service/internal/middleware"
	"crm-service/internal/models"
	natsClient "crm-service/internal/nats"
	"crm-service/internal/repository"
	"crm-service/internal/services"
)

// DealHandler handles deal-related HTTP requests
type DealHandler struct {
	dealRepo *repository.DealRepository
	reports  *services.ReportService
	events   *natsClient.Client
}

// NewDealHandler creates a new deal handler
func NewDealHandler(dealRepo *repository.DealRepository, reports *services.ReportService, events *natsClient.Client) *DealHandler {
	return &DealHandler{
		dealRepo: dealRepo,
		reports:  reports,
		events:   events,
	}
}

// List returns the deals visible under the caller's scope
func (h *DealHandler) List(c *gin.Context) {
	sc := middleware.GetScope(c)

	deals, err := h.dealRepo.List(c.Request.Context(), sc, repository.DealFilters{
		Stage:      c.Query("stage"),
		ActiveOnly: c.Query("active") == "true",
	})
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "Deals retrieved", gin.H{
		"deals": deals,
		"count": len(deals),
	})
}

// Get returns a single deal by ID
func (h *DealHandler) Get(c *gin.Context) {
	sc := middleware.GetScope(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	deal, err := h.dealRepo.GetByID(c.Request.Context(), sc, id)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "Deal retrieved", deal)
}

// CreateDealRequest represents the request to create a deal
type CreateDealRequest struct {
	Title     string     `json:"title" binding:"required"`
	Value     float64    `json:"value"`
	Currency  string     `json:"currency"`
	Stage     string     `json:"stage"`
	CloseDate *time.Time `json:"close_date"`
	ContactID *uuid.UUID `json:"contact_id"`
	LeadID    *uuid.UUID `json:"lead_id"`
	TenantID  *uuid.UUID `json:"tenant_id"`
}

// Create creates a new deal under the caller's tenant
func (h *DealHandler) Create(c *gin.Context) {
	sc := middleware.GetScope(c)

	var req CreateDealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}
	if req.Stage != "" && !models.IsValidDealStage(req.Stage) {
		ErrorResponse(c, http.StatusBadRequest, "Unknown deal stage: "+req.Stage, nil)
		return
	}

	deal := &models.Deal{
		Title:     req.Title,
		Value:     req.Value,
		Currency:  req.Currency,
		Stage:     req.Stage,
		Active:    true,
		CloseDate: req.CloseDate,
		ContactID: req.ContactID,
		LeadID:    req.LeadID,
	}
	if req.TenantID != nil {
		deal.TenantID = *req.TenantID
	}

	created, err := h.dealRepo.Create(c.Request.Context(), sc, deal)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	h.reports.Invalidate(c.Request.Context(), created.TenantID)
	SuccessResponse(c, http.StatusCreated, "Deal created", created)
}

// UpdateDealRequest represents a partial deal update
type UpdateDealRequest struct {
	Title     *string    `json:"title"`
	Value     *float64   `json:"value"`
	Currency  *string    `json:"currency"`
	Stage     *string    `json:"stage"`
	Active    *bool      `json:"active"`
	CloseDate *time.Time `json:"close_date"`
	ContactID *uuid.UUID `json:"contact_id"`
	LeadID    *uuid.UUID `json:"lead_id"`
}

// Update partially updates a deal
func (h *DealHandler) Update(c *gin.Context) {
	sc := middleware.GetScope(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateDealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Value != nil {
		updates["value"] = *req.Value
	}
	if req.Currency != nil {
		updates["currency"] = *req.Currency
	}
	if req.Stage != nil {
		if !models.IsValidDealStage(*req.Stage) {
			ErrorResponse(c, http.StatusBadRequest, "Unknown deal stage: "+*req.Stage, nil)
			return
		}
		updates["stage"] = *req.Stage
		// deals leave the active pipeline once closed
		if *req.Stage == models.DealStageWon || *req.Stage == models.DealStageLost {
			updates["active"] = false
		}
	}
	if req.Active != nil {
		updates["active"] = *req.Active
	}
	if req.CloseDate != nil {
		updates["close_date"] = *req.CloseDate
	}
	if req.ContactID != nil {
		updates["contact_id"] = *req.ContactID
	}
	if req.LeadID != nil {
		updates["lead_id"] = *req.LeadID
	}
	if len(updates) == 0 {
		ErrorResponse(c, http.StatusBadRequest, "No fields to update", nil)
		return
	}

	deal, err := h.dealRepo.Update(c.Request.Context(), sc, id, updates)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	h.reports.Invalidate(c.Request.Context(), deal.TenantID)
	if req.Stage != nil {
		_ = h.events.PublishDealEvent(&natsClient.DealEvent{
			DealID:   deal.ID.String(),
			TenantID: deal.TenantID.String(),
			Stage:    deal.Stage,
			Value:    deal.Value,
		})
	}

	SuccessResponse(c, http.StatusOK, "Deal updated", deal)
}

// Delete removes a deal
func (h *DealHandler) Delete(c *gin.Context) {
	sc := middleware.GetScope(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	deal, err := h.dealRepo.GetByID(c.Request.Context(), sc, id)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	if err := h.dealRepo.Delete(c.Request.Context(), sc, id); err != nil {
		HandleServiceError(c, err)
		return
	}

	h.reports.Invalidate(c.Request.Context(), deal.TenantID)
	SuccessResponse(c, http.StatusOK, "Deal deleted", nil)
}
