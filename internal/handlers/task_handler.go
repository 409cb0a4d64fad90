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

// TaskHandler handles task HTTP requests
type TaskHandler struct {
	taskRepo *repository.TaskRepository
	reports  *services.ReportService
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(taskRepo *repository.TaskRepository, reports *services.ReportService) *TaskHandler {
	return &TaskHandler{
		taskRepo: taskRepo,
		reports:  reports,
	}
}

// List returns the tasks visible under the caller's scope.
// Pass unscheduled=true for backlog tasks (no due date).
func (h *TaskHandler) List(c *gin.Context) {
	sc := middleware.GetScope(c)

	filters := repository.TaskFilters{
		Status:      c.Query("status"),
		Type:        c.Query("type"),
		Unscheduled: c.Query("unscheduled") == "true",
	}
	if raw := c.Query("user_id"); raw != "" {
		userID, err := uuid.Parse(raw)
		if err != nil {
			ErrorResponse(c, http.StatusBadRequest, "Invalid user_id format", err)
			return
		}
		filters.UserID = &userID
	}
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

	tasks, err := h.taskRepo.List(c.Request.Context(), sc, filters)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "Tasks retrieved", gin.H{
		"tasks": tasks,
		"count": len(tasks),
	})
}

// Get returns a single task by ID
func (h *TaskHandler) Get(c *gin.Context) {
	sc := middleware.GetScope(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	task, err := h.taskRepo.GetByID(c.Request.Context(), sc, id)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "Task retrieved", task)
}

// CreateTaskRequest represents the request to create a task
type CreateTaskRequest struct {
	Title       string     `json:"title" binding:"required"`
	Description string     `json:"description"`
	DueDate     *time.Time `json:"due_date"`
	Type        string     `json:"type"`
	Priority    string     `json:"priority"`
	UserID      *uuid.UUID `json:"user_id"`
	LeadID      *uuid.UUID `json:"lead_id"`
	DealID      *uuid.UUID `json:"deal_id"`
}

// Create creates a new task. It defaults to the caller as assignee.
func (h *TaskHandler) Create(c *gin.Context) {
	sc := middleware.GetScope(c)

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}
	if req.Type != "" && !models.IsValidTaskType(req.Type) {
		ErrorResponse(c, http.StatusBadRequest, "Unknown task type: "+req.Type, nil)
		return
	}

	task := &models.Task{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
		Type:        req.Type,
		Priority:    req.Priority,
		LeadID:      req.LeadID,
		DealID:      req.DealID,
	}
	if req.UserID != nil {
		task.UserID = *req.UserID
	}

	created, err := h.taskRepo.Create(c.Request.Context(), sc, task)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	h.reports.Invalidate(c.Request.Context(), created.TenantID)
	SuccessResponse(c, http.StatusCreated, "Task created", created)
}

// UpdateTaskRequest represents a partial task update
type UpdateTaskRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	DueDate     *time.Time `json:"due_date"`
	Type        *string    `json:"type"`
	Status      *string    `json:"status"`
	Priority    *string    `json:"priority"`
	LeadID      *uuid.UUID `json:"lead_id"`
	DealID      *uuid.UUID `json:"deal_id"`
}

// Update partially updates a task
func (h *TaskHandler) Update(c *gin.Context) {
	sc := middleware.GetScope(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.DueDate != nil {
		updates["due_date"] = *req.DueDate
	}
	if req.Type != nil {
		if !models.IsValidTaskType(*req.Type) {
			ErrorResponse(c, http.StatusBadRequest, "Unknown task type: "+*req.Type, nil)
			return
		}
		updates["type"] = *req.Type
	}
	if req.Status != nil {
		if !models.IsValidTaskStatus(*req.Status) {
			ErrorResponse(c, http.StatusBadRequest, "Unknown task status: "+*req.Status, nil)
			return
		}
		updates["status"] = *req.Status
	}
	if req.Priority != nil {
		updates["priority"] = *req.Priority
	}
	if req.LeadID != nil {
		updates["lead_id"] = *req.LeadID
	}
	if req.DealID != nil {
		updates["deal_id"] = *req.DealID
	}
	if len(updates) == 0 {
		ErrorResponse(c, http.StatusBadRequest, "No fields to update", nil)
		return
	}

	task, err := h.taskRepo.Update(c.Request.Context(), sc, id, updates)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	h.reports.Invalidate(c.Request.Context(), task.TenantID)
	SuccessResponse(c, http.StatusOK, "Task updated", task)
}

// Delete removes a task
func (h *TaskHandler) Delete(c *gin.Context) {
	sc := middleware.GetScope(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	task, err := h.taskRepo.GetByID(c.Request.Context(), sc, id)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	if err := h.taskRepo.Delete(c.Request.Context(), sc, id); err != nil {
		HandleServiceError(c, err)
		return
	}

	h.reports.Invalidate(c.Request.Context(), task.TenantID)
	SuccessResponse(c, http.StatusOK, "Task deleted", nil)
}
