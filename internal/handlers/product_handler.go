package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"crm-service/internal/middleware"
	"crm-service/internal/models"
	"crm-service/internal/repository"
)

// ProductHandler handles product catalog HTTP requests
type ProductHandler struct {
	productRepo *repository.ProductRepository
}

// NewProductHandler creates a new product handler
func NewProductHandler(productRepo *repository.ProductRepository) *ProductHandler {
	return &ProductHandler{productRepo: productRepo}
}

// List returns the products visible under the caller's scope
func (h *ProductHandler) List(c *gin.Context) {
	sc := middleware.GetScope(c)

	products, err := h.productRepo.List(c.Request.Context(), sc, c.Query("active") == "true")
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "Products retrieved", gin.H{
		"products": products,
		"count":    len(products),
	})
}

// Get returns a single product by ID
func (h *ProductHandler) Get(c *gin.Context) {
	sc := middleware.GetScope(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	product, err := h.productRepo.GetByID(c.Request.Context(), sc, id)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "Product retrieved", product)
}

// CreateProductRequest represents the request to create a product
type CreateProductRequest struct {
	Name        string     `json:"name" binding:"required"`
	Description string     `json:"description"`
	Price       float64    `json:"price" binding:"gte=0"`
	Currency    string     `json:"currency"`
	TenantID    *uuid.UUID `json:"tenant_id"`
}

// Create creates a new product under the caller's tenant
func (h *ProductHandler) Create(c *gin.Context) {
	sc := middleware.GetScope(c)

	var req CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	product := &models.Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Currency:    req.Currency,
		Active:      true,
	}
	if req.TenantID != nil {
		product.TenantID = *req.TenantID
	}

	created, err := h.productRepo.Create(c.Request.Context(), sc, product)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	SuccessResponse(c, http.StatusCreated, "Product created", created)
}

// UpdateProductRequest represents a partial product update
type UpdateProductRequest struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price"`
	Currency    *string  `json:"currency"`
	Active      *bool    `json:"active"`
}

// Update partially updates a product
func (h *ProductHandler) Update(c *gin.Context) {
	sc := middleware.GetScope(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Price != nil {
		if *req.Price < 0 {
			ErrorResponse(c, http.StatusBadRequest, "Price cannot be negative", nil)
			return
		}
		updates["price"] = *req.Price
	}
	if req.Currency != nil {
		updates["currency"] = *req.Currency
	}
	if req.Active != nil {
		updates["active"] = *req.Active
	}
	if len(updates) == 0 {
		ErrorResponse(c, http.StatusBadRequest, "No fields to update", nil)
		return
	}

	product, err := h.productRepo.Update(c.Request.Context(), sc, id, updates)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "Product updated", product)
}

// Delete removes a product
func (h *ProductHandler) Delete(c *gin.Context) {
	sc := middleware.GetScope(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.productRepo.Delete(c.Request.Context(), sc, id); err != nil {
		HandleServiceError(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "Product deleted", nil)
}
