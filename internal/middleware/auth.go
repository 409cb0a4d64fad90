package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"crm-service/internal/models"
	"crm-service/internal/scope"
	"crm-service/internal/services"
)

// ScopeKey holds the computed tenant scope for the request
const ScopeKey = "scope"

// Authenticated resolves the session principal and computes the tenant scope
// for the request. Requests without a valid bearer token are rejected with
// 401; a resolvable principal whose scope cannot be built (non-admin without
// a tenant) is rejected with 403. Runs after TenantSelector.
func Authenticated(identity *services.IdentityService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		profile, err := identity.ResolveSession(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success":    false,
				"message":    "Authentication required",
				"request_id": GetRequestID(c),
			})
			return
		}

		sc, err := scope.ForProfile(profile, GetTenantFilter(c))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success":    false,
				"message":    "Profile is not assigned to a tenant",
				"request_id": GetRequestID(c),
			})
			return
		}

		c.Set(ProfileKey, profile)
		c.Set(ScopeKey, sc)

		c.Next()
	}
}

// GetScope returns the tenant scope computed by Authenticated, or nil when
// the request did not pass through it.
func GetScope(c *gin.Context) *scope.Scope {
	if v, exists := c.Get(ScopeKey); exists {
		if s, ok := v.(*scope.Scope); ok {
			return s
		}
	}
	return nil
}

// GetProfile returns the resolved profile for the request, or nil.
func GetProfile(c *gin.Context) *models.Profile {
	if v, exists := c.Get(ProfileKey); exists {
		if p, ok := v.(*models.Profile); ok {
			return p
		}
	}
	return nil
}

func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
