package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"crm-service/internal/middleware"
	"crm-service/internal/models"
	"crm-service/internal/repository"
)

// ActivityHandler handles the append-only activity log
type ActivityHandler struct {
	activityRepo *repository.ActivityRepository
}

// NewActivityHandler creates a new activity handler
func NewActivityHandler(activityRepo *repository.ActivityRepository) *ActivityHandler {
	return &ActivityHandler{activityRepo: activityRepo}
}

// List returns the activities visible under the caller's scope
func (h *ActivityHandler) List(c *gin.Context) {
	sc := middleware.GetScope(c)

	filters := repository.ActivityFilters{Type: c.Query("type")}
	if raw := c.Query("lead_id"); raw != "" {
		leadID, err := uuid.Parse(raw)
		if err != nil {
			ErrorResponse(c, http.StatusBadRequest, "Invalid lead_id format", err)
			return
		}
		filters.LeadID = &leadID
	}
	if raw := c.Query("deal_id"); raw != "" {
		dealID, err := uuid.Parse(raw)
		if err != nil {
			ErrorResponse(c, http.StatusBadRequest, "Invalid deal_id format", err)
			return
		}
		filters.DealID = &dealID
	}

	activities, err := h.activityRepo.List(c.Request.Context(), sc, filters)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "Activities retrieved", gin.H{
		"activities": activities,
		"count":      len(activities),
	})
}

// CreateActivityRequest represents the request to record an activity
type CreateActivityRequest struct {
	Type    string     `json:"type"`
	Content string     `json:"content" binding:"required"`
	LeadID  *uuid.UUID `json:"lead_id"`
	DealID  *uuid.UUID `json:"deal_id"`
}

// Create records a new activity. The author and tenant always come from the
// authenticated scope, never from the payload.
func (h *ActivityHandler) Create(c *gin.Context) {
	sc := middleware.GetScope(c)

	var req CreateActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}
	if req.Type != "" && !models.IsValidActivityType(req.Type) {
		ErrorResponse(c, http.StatusBadRequest, "Unknown activity type: "+req.Type, nil)
		return
	}

	created, err := h.activityRepo.Create(c.Request.Context(), sc, &models.Activity{
		Type:    req.Type,
		Content: req.Content,
		LeadID:  req.LeadID,
		DealID:  req.DealID,
	})
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	SuccessResponse(c, http.StatusCreated, "Activity recorded", created)
}

// Delete removes an activity. There is no update; the log is append-only.
func (h *ActivityHandler) Delete(c *gin.Context) {
	sc := middleware.GetScope(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.activityRepo.Delete(c.Request.Context(), sc, id); err != nil {
		HandleServiceError(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "Activity deleted", nil)
}
