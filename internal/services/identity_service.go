package services

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"crm-service/internal/models"
	"crm-service/internal/scope"
)

// IdentityService resolves request credentials to profiles. Two entry paths:
// session tokens issued by the hosted identity provider (dashboard traffic)
// and API keys (public ingestion endpoint). Pure lookup, no side effects.
type IdentityService struct {
	db        *gorm.DB
	jwtSecret []byte
}

// NewIdentityService creates a new identity service
func NewIdentityService(db *gorm.DB, jwtSecret string) *IdentityService {
	return &IdentityService{
		db:        db,
		jwtSecret: []byte(jwtSecret),
	}
}

// ResolveSession verifies a session token and returns the matching profile.
// The identity provider signs tokens with HS256 and puts its user id in the
// `sub` claim; that id is the Profile primary key. Any miss fails closed.
func (s *IdentityService) ResolveSession(ctx context.Context, token string) (*models.Profile, error) {
	if token == "" {
		return nil, scope.ErrNotAuthenticated
	}

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("%w: invalid session token", scope.ErrNotAuthenticated)
	}

	sub, err := parsed.Claims.GetSubject()
	if err != nil || sub == "" {
		return nil, fmt.Errorf("%w: token has no subject", scope.ErrNotAuthenticated)
	}

	userID, err := uuid.Parse(sub)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed subject claim", scope.ErrNotAuthenticated)
	}

	var profile models.Profile
	if err := s.db.WithContext(ctx).First(&profile, "id = ?", userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("%w: no profile for authenticated user", scope.ErrNotAuthenticated)
		}
		return nil, fmt.Errorf("failed to look up profile: %w", err)
	}

	return &profile, nil
}

// ResolveAPIKey looks up a profile by exact API key match. Used only by the
// public lead-ingestion endpoint. Fails closed when the key matches nothing.
func (s *IdentityService) ResolveAPIKey(ctx context.Context, apiKey string) (*models.Profile, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: missing API key", scope.ErrNotAuthenticated)
	}

	var profile models.Profile
	if err := s.db.WithContext(ctx).First(&profile, "api_key = ?", apiKey).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("%w: invalid API key", scope.ErrNotAuthenticated)
		}
		return nil, fmt.Errorf("failed to look up profile by API key: %w", err)
	}

	return &profile, nil
}
