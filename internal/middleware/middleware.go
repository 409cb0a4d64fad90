package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Context keys shared with handlers
const (
	RequestIDKey    = "request_id"
	ProfileKey      = "profile"
	TenantFilterKey = "tenant_filter"
)

// TenantFilterCookie persists an admin's tenant selector between requests.
// Value is "all" or a tenant UUID.
const (
	TenantFilterCookie = "admin_tenant_filter"
	TenantFilterQuery  = "client"
	TenantFilterAll    = "all"
)

// RequestID middleware generates or extracts correlation IDs for request tracing
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Set(RequestIDKey, requestID)
		c.Header("X-Request-ID", requestID)

		c.Next()
	}
}

// StructuredLogger middleware logs requests with structured fields
func StructuredLogger(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		requestID, _ := c.Get(RequestIDKey)
		log.WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"duration":   time.Since(start).String(),
			"ip":         c.ClientIP(),
			"request_id": requestID,
		}).Info("request completed")
	}
}

// TenantSelector resolves an admin's explicit tenant selector for this
// request: the `client` query parameter wins, then the persisted cookie,
// then "all". A query-supplied value is written back to the cookie so the
// selection survives navigation. The resolved value is request-scoped; the
// scope filter decides whether it applies (non-admins ignore it entirely).
func TenantSelector() gin.HandlerFunc {
	return func(c *gin.Context) {
		selected := c.Query(TenantFilterQuery)
		if selected != "" {
			// Cookie is client-side visible state, not an authority; the
			// scope filter re-validates it against the profile's role.
			c.SetCookie(TenantFilterCookie, selected, int((30 * 24 * time.Hour).Seconds()), "/", "", false, false)
		} else if v, err := c.Cookie(TenantFilterCookie); err == nil {
			selected = v
		}
		if selected == "" {
			selected = TenantFilterAll
		}

		if selected != TenantFilterAll {
			if id, err := uuid.Parse(selected); err == nil {
				tid := id
				c.Set(TenantFilterKey, &tid)
			}
			// An unparseable selector degrades to "all" rather than failing
			// the request; it only ever narrows admin visibility.
		}

		c.Next()
	}
}

// GetRequestID extracts the request ID from gin context
func GetRequestID(c *gin.Context) string {
	if id, exists := c.Get(RequestIDKey); exists {
		return id.(string)
	}
	return c.GetHeader("X-Request-ID")
}

// GetTenantFilter returns the admin tenant selector resolved for this
// request, or nil for "all".
func GetTenantFilter(c *gin.Context) *uuid.UUID {
	if v, exists := c.Get(TenantFilterKey); exists {
		if id, ok := v.(*uuid.UUID); ok {
			return id
		}
	}
	return nil
}
