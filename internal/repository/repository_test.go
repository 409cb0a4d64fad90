package repository

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"crm-service/internal/models"
	"crm-service/internal/scope"
)

// newTestDB opens a throwaway sqlite database holding the slice of the schema
// the repository tests touch. Production runs Postgres; the SQL exercised
// here is portable.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "crm_test.db")), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	ddl := []string{
		`CREATE TABLE tenants (
			id text PRIMARY KEY,
			name text NOT NULL,
			status text DEFAULT 'trial',
			plan text DEFAULT 'starter',
			currency text DEFAULT 'EUR',
			language text DEFAULT 'es',
			page_id text,
			created_at datetime,
			updated_at datetime
		)`,
		`CREATE TABLE leads (
			id text PRIMARY KEY,
			tenant_id text NOT NULL,
			user_id text,
			name text NOT NULL,
			email text,
			phone text,
			company text,
			value real DEFAULT 0,
			status text DEFAULT 'new',
			source text,
			notes text,
			metadata text,
			created_at datetime,
			updated_at datetime
		)`,
		`CREATE TABLE quotes (
			id text PRIMARY KEY,
			tenant_id text NOT NULL,
			lead_id text NOT NULL,
			status text DEFAULT 'draft',
			total_amount real DEFAULT 0,
			valid_until datetime,
			created_at datetime,
			updated_at datetime
		)`,
		`CREATE TABLE quote_items (
			id text PRIMARY KEY,
			quote_id text NOT NULL,
			product_id text,
			description text NOT NULL,
			quantity real NOT NULL DEFAULT 1,
			unit_price real NOT NULL DEFAULT 0,
			total real NOT NULL DEFAULT 0,
			created_at datetime,
			updated_at datetime
		)`,
	}
	for _, stmt := range ddl {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func adminScope(t *testing.T, filter *uuid.UUID) *scope.Scope {
	t.Helper()
	sc, err := scope.ForProfile(&models.Profile{ID: uuid.New(), Role: models.RoleAdmin}, filter)
	require.NoError(t, err)
	return sc
}

func memberScope(t *testing.T, tenantID uuid.UUID) *scope.Scope {
	t.Helper()
	sc, err := scope.ForProfile(&models.Profile{
		ID:       uuid.New(),
		Role:     models.RoleClient,
		TenantID: &tenantID,
	}, nil)
	require.NoError(t, err)
	return sc
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.True(t, IsUniqueViolation(fmt.Errorf("failed to create lead: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, IsUniqueViolation(fmt.Errorf("plain error")))
	assert.False(t, IsUniqueViolation(nil))
}
