package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"crm-service/internal/middleware"
	"crm-service/internal/repository"
	"crm-service/internal/scope"
	"crm-service/internal/services"
)

// ErrorResponse sends a standardized error response.
// Internal errors are logged but not exposed to clients.
func ErrorResponse(c *gin.Context, statusCode int, message string, err error) {
	requestID := middleware.GetRequestID(c)

	if err != nil {
		logrus.WithFields(logrus.Fields{
			"request_id": requestID,
			"status":     statusCode,
		}).WithError(err).Error(message)
	}

	response := gin.H{
		"success":    false,
		"message":    message,
		"request_id": requestID,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	}

	// Only include error details in development mode
	if gin.Mode() == gin.DebugMode && err != nil {
		response["error_details"] = err.Error()
	}

	c.JSON(statusCode, response)
}

// SuccessResponse sends a standardized success response
func SuccessResponse(c *gin.Context, statusCode int, message string, data interface{}) {
	requestID := middleware.GetRequestID(c)

	response := gin.H{
		"success":    true,
		"message":    message,
		"request_id": requestID,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	}

	if data != nil {
		response["data"] = data
	}

	c.JSON(statusCode, response)
}

// HandleServiceError maps the service/repository error taxonomy onto HTTP
// statuses. Authorization failures stay distinct from missing records: a
// lead the caller may not see is 403, a lead that does not exist is 404.
func HandleServiceError(c *gin.Context, err error) {
	var validationErr *services.ValidationError
	var notFoundErr *services.NotFoundError
	var conflictErr *services.ConflictError

	switch {
	case errors.Is(err, scope.ErrNotAuthenticated):
		ErrorResponse(c, http.StatusUnauthorized, "Authentication required", err)
	case errors.Is(err, scope.ErrForbidden), errors.Is(err, scope.ErrNoTenant):
		ErrorResponse(c, http.StatusForbidden, "You do not have access to this resource", err)
	case errors.Is(err, repository.ErrNotFound):
		ErrorResponse(c, http.StatusNotFound, "Resource not found", err)
	case errors.As(err, &validationErr):
		ErrorResponse(c, http.StatusBadRequest, validationErr.Error(), nil)
	case errors.As(err, &notFoundErr):
		ErrorResponse(c, http.StatusNotFound, notFoundErr.Error(), nil)
	case errors.As(err, &conflictErr):
		ErrorResponse(c, http.StatusConflict, conflictErr.Error(), nil)
	default:
		// admins get the underlying error, everyone else a generic message
		if sc := middleware.GetScope(c); sc != nil && sc.IsAdmin() {
			ErrorResponse(c, http.StatusInternalServerError, "Internal server error: "+err.Error(), err)
			return
		}
		ErrorResponse(c, http.StatusInternalServerError, "Internal server error", err)
	}
}

// parseIDParam parses a UUID path parameter, responding 400 on failure.
func parseIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid "+name+" format", err)
		return uuid.Nil, false
	}
	return id, true
}
