package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"crm-service/internal/scope"
	"crm-service/internal/services"
)

// IngestHandler serves the public lead intake API. Authentication is an exact
// x-api-key header match; response shapes here follow the published intake
// contract, not the internal envelope.
type IngestHandler struct {
	identity  *services.IdentityService
	ingestion *services.IngestionService
	reports   *services.ReportService
}

// NewIngestHandler creates a new ingest handler
func NewIngestHandler(identity *services.IdentityService, ingestion *services.IngestionService, reports *services.ReportService) *IngestHandler {
	return &IngestHandler{
		identity:  identity,
		ingestion: ingestion,
		reports:   reports,
	}
}

// Status responds to GET checks on the intake endpoint. Without a key it
// reports the API as reachable; with a valid key it identifies the account.
func (h *IngestHandler) Status(c *gin.Context) {
	apiKey := c.GetHeader("x-api-key")
	if apiKey == "" {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "lead intake API",
			"usage":   "POST a JSON lead with your x-api-key header",
		})
		return
	}

	profile, err := h.identity.ResolveAPIKey(c.Request.Context(), apiKey)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid API key"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "authenticated",
		"account": profile.Email,
		"company": profile.CompanyName,
	})
}

// Create handles POST /api/leads: authenticates the API key, validates the
// payload and inserts the lead under the key owner's tenant.
func (h *IngestHandler) Create(c *gin.Context) {
	apiKey := c.GetHeader("x-api-key")
	if apiKey == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing x-api-key header"})
		return
	}

	profile, err := h.identity.ResolveAPIKey(c.Request.Context(), apiKey)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid API key"})
		return
	}

	sc, err := scope.ForProfile(profile, nil)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid API key"})
		return
	}

	var req services.DirectLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid lead payload", "details": err.Error()})
		return
	}

	lead, err := h.ingestion.IngestDirect(c.Request.Context(), sc, &req)
	if err != nil {
		var validationErr *services.ValidationError
		if errors.As(err, &validationErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create lead", "details": "internal error"})
		return
	}

	h.reports.Invalidate(c.Request.Context(), lead.TenantID)

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Lead created successfully",
		"lead":    lead,
	})
}

// Webhook handles raw lead-platform payloads: normalizes field aliases and
// inserts idempotently on the external lead id.
func (h *IngestHandler) Webhook(c *gin.Context) {
	apiKey := c.GetHeader("x-api-key")
	if apiKey == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing x-api-key header"})
		return
	}

	profile, err := h.identity.ResolveAPIKey(c.Request.Context(), apiKey)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid API key"})
		return
	}

	sc, err := scope.ForProfile(profile, nil)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid API key"})
		return
	}

	var raw services.RawLead
	if err := c.ShouldBindJSON(&raw); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid lead payload", "details": err.Error()})
		return
	}

	lead, created, err := h.ingestion.IngestRaw(c.Request.Context(), sc, &raw)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to ingest lead", "details": "internal error"})
		return
	}
	if !created {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Lead already ingested",
		})
		return
	}

	h.reports.Invalidate(c.Request.Context(), lead.TenantID)

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Lead created successfully",
		"lead":    lead,
	})
}
