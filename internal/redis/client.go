package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"crm-service/internal/config"
)

// Client wraps the Redis client with application-specific methods. It backs
// the dashboard view cache: computed report payloads are stored per tenant
// scope and dropped whenever an entity mutation touches that scope.
type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client
func NewClient(cfg config.RedisConfig) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping checks the connection to Redis
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Key prefixes
const (
	ReportKeyPrefix = "report:"
)

// ReportKey builds the cache key for a report under a tenant scope.
// scopeID is a tenant UUID or "all" for an unnarrowed admin view.
func ReportKey(scopeID, report string) string {
	return ReportKeyPrefix + scopeID + ":" + report
}

// GetReport retrieves a cached report payload into dest. Returns false when
// the key is absent or expired.
func (c *Client) GetReport(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get cached report: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cached report: %w", err)
	}
	return true, nil
}

// SaveReport caches a computed report payload under the scope key.
func (c *Client) SaveReport(ctx context.Context, key string, payload interface{}, ttl time.Duration) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	return c.rdb.Set(ctx, key, data, ttl).Err()
}

// ReportPatterns returns the key patterns staled by a mutation touching rows
// of the given tenants: each tenant's own report keys plus the cross-tenant
// "all" view, which aggregates every tenant and is staled by any mutation.
func ReportPatterns(tenantIDs ...string) []string {
	patterns := make([]string, 0, len(tenantIDs)+1)
	for _, id := range tenantIDs {
		patterns = append(patterns, ReportKeyPrefix+id+":*")
	}
	return append(patterns, ReportKeyPrefix+"all:*")
}

// InvalidateReports drops every cached report covering the given tenants.
// The tenants are those of the mutated rows, not the acting caller: an admin
// writing into an explicit tenant must stale that tenant's cached views.
func (c *Client) InvalidateReports(ctx context.Context, tenantIDs ...string) error {
	for _, pattern := range ReportPatterns(tenantIDs...) {
		var cursor uint64
		for {
			keys, next, err := c.rdb.Scan(ctx, cursor, pattern, 100).Result()
			if err != nil {
				return fmt.Errorf("failed to scan report keys: %w", err)
			}
			if len(keys) > 0 {
				if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
					return fmt.Errorf("failed to delete report keys: %w", err)
				}
			}
			cursor = next
			if cursor == 0 {
				break
			}
		}
	}

	return nil
}
