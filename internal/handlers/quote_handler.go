package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"crm-service/internal/middleware"
	"crm-service/internal/models"
	"crm-service/internal/repository"
	"crm-service/internal/services"
)

// QuoteHandler handles quote and quote item HTTP requests
type QuoteHandler struct {
	quoteRepo *repository.QuoteRepository
	reports   *services.ReportService
}

// NewQuoteHandler creates a new quote handler
func NewQuoteHandler(quoteRepo *repository.QuoteRepository, reports *services.ReportService) *QuoteHandler {
	return &QuoteHandler{
		quoteRepo: quoteRepo,
		reports:   reports,
	}
}

// List returns the quotes visible under the caller's scope, items included
func (h *QuoteHandler) List(c *gin.Context) {
	sc := middleware.GetScope(c)

	quotes, err := h.quoteRepo.List(c.Request.Context(), sc, c.Query("status"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "Quotes retrieved", gin.H{
		"quotes": quotes,
		"count":  len(quotes),
	})
}

// Get returns a single quote with its items
func (h *QuoteHandler) Get(c *gin.Context) {
	sc := middleware.GetScope(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	quote, err := h.quoteRepo.GetByID(c.Request.Context(), sc, id)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "Quote retrieved", quote)
}

// CreateQuoteRequest represents the request to create a quote
type CreateQuoteRequest struct {
	LeadID     uuid.UUID  `json:"lead_id" binding:"required"`
	Status     string     `json:"status"`
	ValidUntil *time.Time `json:"valid_until"`
	TenantID   *uuid.UUID `json:"tenant_id"`
}

// Create creates a new quote. Quotes start with no items and a zero total.
func (h *QuoteHandler) Create(c *gin.Context) {
	sc := middleware.GetScope(c)

	var req CreateQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}
	if req.Status != "" && !models.IsValidQuoteStatus(req.Status) {
		ErrorResponse(c, http.StatusBadRequest, "Unknown quote status: "+req.Status, nil)
		return
	}

	quote := &models.Quote{
		LeadID:     req.LeadID,
		Status:     req.Status,
		ValidUntil: req.ValidUntil,
	}
	if req.TenantID != nil {
		quote.TenantID = *req.TenantID
	}

	created, err := h.quoteRepo.Create(c.Request.Context(), sc, quote)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	SuccessResponse(c, http.StatusCreated, "Quote created", created)
}

// UpdateQuoteRequest represents a partial quote update. The total amount is
// derived from items and cannot be set directly.
type UpdateQuoteRequest struct {
	Status     *string    `json:"status"`
	ValidUntil *time.Time `json:"valid_until"`
}

// Update partially updates a quote
func (h *QuoteHandler) Update(c *gin.Context) {
	sc := middleware.GetScope(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	updates := map[string]interface{}{}
	if req.Status != nil {
		if !models.IsValidQuoteStatus(*req.Status) {
			ErrorResponse(c, http.StatusBadRequest, "Unknown quote status: "+*req.Status, nil)
			return
		}
		updates["status"] = *req.Status
	}
	if req.ValidUntil != nil {
		updates["valid_until"] = *req.ValidUntil
	}
	if len(updates) == 0 {
		ErrorResponse(c, http.StatusBadRequest, "No fields to update", nil)
		return
	}

	quote, err := h.quoteRepo.Update(c.Request.Context(), sc, id, updates)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	h.reports.Invalidate(c.Request.Context(), quote.TenantID)
	SuccessResponse(c, http.StatusOK, "Quote updated", quote)
}

// Delete removes a quote and its items in one transaction
func (h *QuoteHandler) Delete(c *gin.Context) {
	sc := middleware.GetScope(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.quoteRepo.Delete(c.Request.Context(), sc, id); err != nil {
		HandleServiceError(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "Quote deleted", nil)
}

// AddItemRequest represents the request to add a line item to a quote.
// The line total is always quantity times unit price, regardless of input.
type AddItemRequest struct {
	ProductID   *uuid.UUID `json:"product_id"`
	Description string     `json:"description" binding:"required"`
	Quantity    float64    `json:"quantity" binding:"required,gt=0"`
	UnitPrice   float64    `json:"unit_price" binding:"required,gte=0"`
}

// AddItem godoc
// @Summary Add quote item
// @Description Adds a line item and recomputes the quote total in the same transaction
// @Tags quotes
// @Accept json
// @Produce json
// @Param id path string true "Quote ID"
// @Success 201 {object} map[string]interface{}
// @Router /api/v1/quotes/{id}/items [post]
func (h *QuoteHandler) AddItem(c *gin.Context) {
	sc := middleware.GetScope(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	item, err := h.quoteRepo.AddItem(c.Request.Context(), sc, id, &models.QuoteItem{
		ProductID:   req.ProductID,
		Description: req.Description,
		Quantity:    req.Quantity,
		UnitPrice:   req.UnitPrice,
	})
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	SuccessResponse(c, http.StatusCreated, "Quote item added", item)
}

// RemoveItem removes a line item and recomputes the quote total
func (h *QuoteHandler) RemoveItem(c *gin.Context) {
	sc := middleware.GetScope(c)
	quoteID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	itemID, ok := parseIDParam(c, "item_id")
	if !ok {
		return
	}

	if err := h.quoteRepo.RemoveItem(c.Request.Context(), sc, quoteID, itemID); err != nil {
		HandleServiceError(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "Quote item removed", nil)
}
