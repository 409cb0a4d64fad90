package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"crm-service/internal/models"
	"crm-service/internal/scope"
)

// TaskRepository handles task persistence
type TaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// TaskFilters narrows a task listing beyond the tenant scope
type TaskFilters struct {
	Status      string
	Type        string
	UserID      *uuid.UUID
	LeadID      *uuid.UUID
	DealID      *uuid.UUID
	Unscheduled bool
}

// List returns the tasks visible under the scope. Scheduled tasks come first
// by due date; unscheduled backlog tasks trail.
func (r *TaskRepository) List(ctx context.Context, sc *scope.Scope, filters TaskFilters) ([]models.Task, error) {
	var tasks []models.Task

	q := sc.Filter(r.db.WithContext(ctx).Model(&models.Task{}))
	if filters.Status != "" {
		q = q.Where("status = ?", filters.Status)
	}
	if filters.Type != "" {
		q = q.Where("type = ?", filters.Type)
	}
	if filters.UserID != nil {
		q = q.Where("user_id = ?", *filters.UserID)
	}
	if filters.LeadID != nil {
		q = q.Where("lead_id = ?", *filters.LeadID)
	}
	if filters.DealID != nil {
		q = q.Where("deal_id = ?", *filters.DealID)
	}
	if filters.Unscheduled {
		q = q.Where("due_date IS NULL")
	}

	if err := q.Order("due_date ASC NULLS LAST, created_at DESC").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

// GetByID fetches a single scoped task.
func (r *TaskRepository) GetByID(ctx context.Context, sc *scope.Scope, id uuid.UUID) (*models.Task, error) {
	var task models.Task
	if err := r.db.WithContext(ctx).First(&task, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	if err := sc.RequireTenant(task.TenantID); err != nil {
		return nil, err
	}
	return &task, nil
}

// Create inserts a task. The tenant always comes from the acting profile's
// scope, never from client input, so a task cannot be injected into a
// foreign tenant.
func (r *TaskRepository) Create(ctx context.Context, sc *scope.Scope, task *models.Task) (*models.Task, error) {
	tenantID, err := sc.CreationTenant(nil)
	if err != nil {
		return nil, err
	}
	task.TenantID = tenantID

	if task.UserID == uuid.Nil {
		task.UserID = sc.UserID()
	}
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	if task.Status == "" {
		task.Status = models.TaskStatusPending
	}
	if task.Type == "" {
		task.Type = models.TaskTypeTodo
	}

	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	return task, nil
}

// Update applies field updates to a scoped task.
func (r *TaskRepository) Update(ctx context.Context, sc *scope.Scope, id uuid.UUID, updates map[string]interface{}) (*models.Task, error) {
	task, err := r.GetByID(ctx, sc, id)
	if err != nil {
		return nil, err
	}

	delete(updates, "tenant_id")

	if err := r.db.WithContext(ctx).Model(task).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	return task, nil
}

// Delete removes a scoped task.
func (r *TaskRepository) Delete(ctx context.Context, sc *scope.Scope, id uuid.UUID) error {
	if _, err := r.GetByID(ctx, sc, id); err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Delete(&models.Task{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return nil
}

// DeleteByTenant removes every task of a tenant. Used by tenant teardown.
func (r *TaskRepository) DeleteByTenant(ctx context.Context, tenantID uuid.UUID) error {
	if err := r.db.WithContext(ctx).Delete(&models.Task{}, "tenant_id = ?", tenantID).Error; err != nil {
		return fmt.Errorf("failed to delete tenant tasks: %w", err)
	}
	return nil
}
