package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crm-service/internal/repository"
	"crm-service/internal/scope"
	"crm-service/internal/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestHandleServiceError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"not authenticated", scope.ErrNotAuthenticated, http.StatusUnauthorized},
		{"forbidden", scope.ErrForbidden, http.StatusForbidden},
		{"wrapped forbidden", fmt.Errorf("delete lead: %w", scope.ErrForbidden), http.StatusForbidden},
		{"no tenant", scope.ErrNoTenant, http.StatusForbidden},
		{"not found", repository.ErrNotFound, http.StatusNotFound},
		{"validation", services.NewValidationError("name", "name is required"), http.StatusBadRequest},
		{"conflict", services.NewConflictError("tenant", "tenant has members"), http.StatusConflict},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			HandleServiceError(c, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)

			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, false, body["success"])
			assert.NotEmpty(t, body["message"])
		})
	}
}

// A forbidden row and a missing row must produce different statuses;
// collapsing them would leak or hide information.
func TestForbiddenIsNotNotFound(t *testing.T) {
	record := func(err error) int {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		HandleServiceError(c, err)
		return w.Code
	}

	assert.NotEqual(t, record(scope.ErrForbidden), record(repository.ErrNotFound))
}
