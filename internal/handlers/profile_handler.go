package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"crm-service/internal/middleware"
	"crm-service/internal/models"
	"crm-service/internal/repository"
)

// ProfileHandler handles profile HTTP requests
type ProfileHandler struct {
	profileRepo *repository.ProfileRepository
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(profileRepo *repository.ProfileRepository) *ProfileHandler {
	return &ProfileHandler{profileRepo: profileRepo}
}

// Me returns the caller's own profile
func (h *ProfileHandler) Me(c *gin.Context) {
	profile := middleware.GetProfile(c)
	if profile == nil {
		ErrorResponse(c, http.StatusUnauthorized, "Authentication required", nil)
		return
	}
	SuccessResponse(c, http.StatusOK, "Profile retrieved", profile)
}

// List returns the profiles visible under the caller's scope
func (h *ProfileHandler) List(c *gin.Context) {
	sc := middleware.GetScope(c)

	profiles, err := h.profileRepo.List(c.Request.Context(), sc)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "Profiles retrieved", gin.H{
		"profiles": profiles,
		"count":    len(profiles),
	})
}

// Get returns a single profile by ID
func (h *ProfileHandler) Get(c *gin.Context) {
	sc := middleware.GetScope(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	profile, err := h.profileRepo.GetByID(c.Request.Context(), sc, id)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "Profile retrieved", profile)
}

// CreateProfileRequest represents the request to create a profile.
// The ID comes from the identity provider.
type CreateProfileRequest struct {
	ID          uuid.UUID  `json:"id" binding:"required"`
	Email       string     `json:"email" binding:"required,email"`
	FullName    string     `json:"full_name"`
	CompanyName string     `json:"company_name"`
	Role        string     `json:"role"`
	TenantID    *uuid.UUID `json:"tenant_id"`
}

// Create creates a new profile. Admin only; an API key is generated on create.
func (h *ProfileHandler) Create(c *gin.Context) {
	sc := middleware.GetScope(c)

	var req CreateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}
	if req.Role != "" && req.Role != models.RoleAdmin && req.Role != models.RoleClient {
		ErrorResponse(c, http.StatusBadRequest, "Unknown role: "+req.Role, nil)
		return
	}

	created, err := h.profileRepo.Create(c.Request.Context(), sc, &models.Profile{
		ID:          req.ID,
		Email:       req.Email,
		FullName:    req.FullName,
		CompanyName: req.CompanyName,
		Role:        req.Role,
		TenantID:    req.TenantID,
	})
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	SuccessResponse(c, http.StatusCreated, "Profile created", created)
}

// UpdateProfileRequest represents a partial profile update. Role and tenant
// changes are stripped for non-admin callers.
type UpdateProfileRequest struct {
	Email       *string    `json:"email"`
	FullName    *string    `json:"full_name"`
	CompanyName *string    `json:"company_name"`
	Role        *string    `json:"role"`
	TenantID    *uuid.UUID `json:"tenant_id"`
}

// Update partially updates a profile
func (h *ProfileHandler) Update(c *gin.Context) {
	sc := middleware.GetScope(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	updates := map[string]interface{}{}
	if req.Email != nil {
		updates["email"] = *req.Email
	}
	if req.FullName != nil {
		updates["full_name"] = *req.FullName
	}
	if req.CompanyName != nil {
		updates["company_name"] = *req.CompanyName
	}
	if req.Role != nil {
		if *req.Role != models.RoleAdmin && *req.Role != models.RoleClient {
			ErrorResponse(c, http.StatusBadRequest, "Unknown role: "+*req.Role, nil)
			return
		}
		updates["role"] = *req.Role
	}
	if req.TenantID != nil {
		updates["tenant_id"] = *req.TenantID
	}
	if len(updates) == 0 {
		ErrorResponse(c, http.StatusBadRequest, "No fields to update", nil)
		return
	}

	profile, err := h.profileRepo.Update(c.Request.Context(), sc, id, updates)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "Profile updated", profile)
}

// Delete removes a profile. Admin only.
func (h *ProfileHandler) Delete(c *gin.Context) {
	sc := middleware.GetScope(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.profileRepo.Delete(c.Request.Context(), sc, id); err != nil {
		HandleServiceError(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "Profile deleted", nil)
}
