package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func selectorRouter() (*gin.Engine, *struct{ filter *uuid.UUID }) {
	captured := &struct{ filter *uuid.UUID }{}
	router := gin.New()
	router.Use(TenantSelector())
	router.GET("/whoami", func(c *gin.Context) {
		captured.filter = GetTenantFilter(c)
		c.Status(http.StatusOK)
	})
	return router, captured
}

func TestTenantSelectorQueryParam(t *testing.T) {
	router, captured := selectorRouter()
	tenantID := uuid.New()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami?client="+tenantID.String(), nil)
	router.ServeHTTP(w, req)

	require.NotNil(t, captured.filter)
	assert.Equal(t, tenantID, *captured.filter)

	// the selection is persisted for subsequent requests
	cookies := w.Result().Cookies()
	var found bool
	for _, ck := range cookies {
		if ck.Name == TenantFilterCookie {
			found = true
			assert.Equal(t, tenantID.String(), ck.Value)
		}
	}
	assert.True(t, found, "selector cookie should be written")
}

func TestTenantSelectorCookieFallback(t *testing.T) {
	router, captured := selectorRouter()
	tenantID := uuid.New()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(&http.Cookie{Name: TenantFilterCookie, Value: tenantID.String()})
	router.ServeHTTP(w, req)

	require.NotNil(t, captured.filter)
	assert.Equal(t, tenantID, *captured.filter)
}

func TestTenantSelectorQueryWinsOverCookie(t *testing.T) {
	router, captured := selectorRouter()
	queryTenant := uuid.New()
	cookieTenant := uuid.New()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami?client="+queryTenant.String(), nil)
	req.AddCookie(&http.Cookie{Name: TenantFilterCookie, Value: cookieTenant.String()})
	router.ServeHTTP(w, req)

	require.NotNil(t, captured.filter)
	assert.Equal(t, queryTenant, *captured.filter)
}

func TestTenantSelectorDefaultsToAll(t *testing.T) {
	router, captured := selectorRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	router.ServeHTTP(w, req)

	assert.Nil(t, captured.filter)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestTenantSelectorExplicitAll(t *testing.T) {
	router, captured := selectorRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami?client=all", nil)
	router.ServeHTTP(w, req)

	assert.Nil(t, captured.filter)
}

func TestTenantSelectorUnparseableDegradesToAll(t *testing.T) {
	router, captured := selectorRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami?client=not-a-uuid", nil)
	router.ServeHTTP(w, req)

	assert.Nil(t, captured.filter)
	assert.Equal(t, http.StatusOK, w.Code, "bad selector never fails the request")
}

func TestRequestID(t *testing.T) {
	router := gin.New()
	router.Use(RequestID())
	router.GET("/whoami", func(c *gin.Context) {
		c.String(http.StatusOK, GetRequestID(c))
	})

	t.Run("generates an id", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))

		assert.NotEmpty(t, w.Body.String())
		assert.Equal(t, w.Body.String(), w.Header().Get("X-Request-ID"))
	})

	t.Run("respects an incoming id", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("X-Request-ID", "req-123")
		router.ServeHTTP(w, req)

		assert.Equal(t, "req-123", w.Body.String())
	})
}
