package redis

import (
	"path"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// matchesAny reports whether key is covered by one of the glob patterns.
func matchesAny(t *testing.T, patterns []string, key string) bool {
	t.Helper()
	for _, p := range patterns {
		ok, err := path.Match(p, key)
		require.NoError(t, err)
		if ok {
			return true
		}
	}
	return false
}

func TestReportPatternsCoverTenantAndAll(t *testing.T) {
	tenant := uuid.New().String()
	patterns := ReportPatterns(tenant)

	assert.True(t, matchesAny(t, patterns, ReportKey(tenant, "dashboard")))
	assert.True(t, matchesAny(t, patterns, ReportKey("all", "dashboard")))
	assert.False(t, matchesAny(t, patterns, ReportKey(uuid.New().String(), "dashboard")),
		"other tenants' cached views survive")
}

func TestReportPatternsSpanEveryMutatedTenant(t *testing.T) {
	source := uuid.New().String()
	target := uuid.New().String()

	// a cross-tenant move stales both tenants' views plus the admin view
	patterns := ReportPatterns(source, target)
	assert.True(t, matchesAny(t, patterns, ReportKey(source, "dashboard")))
	assert.True(t, matchesAny(t, patterns, ReportKey(target, "dashboard")))
	assert.True(t, matchesAny(t, patterns, ReportKey("all", "dashboard")))
}

func TestReportPatternsWithoutTenant(t *testing.T) {
	patterns := ReportPatterns()
	assert.Equal(t, []string{ReportKeyPrefix + "all:*"}, patterns)
}
