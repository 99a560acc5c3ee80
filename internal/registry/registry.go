// FilePath: internal/registry/registry.go

// Package registry resolves an opaque device code to the monitoring record
// that owns it. Lookups go to Postgres, with an optional redis cache-aside
// layer in front so the hot ingestion path does not hit the database for
// every reading.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/FajarFE/Waterm-sub001/internal/errors"
	"github.com/FajarFE/Waterm-sub001/internal/models"
	"github.com/FajarFE/Waterm-sub001/internal/repository"
	"github.com/redis/go-redis/v9"
	nuts "github.com/vaudience/go-nuts"
)

// Registry maps a device code to its owning monitoring record. Unknown codes
// return a not_found error, never a panic. Safe for concurrent use.
type Registry interface {
	Resolve(ctx context.Context, deviceCode string) (*models.Monitoring, error)
}

// PostgresRegistry resolves device codes straight from the monitorings table
type PostgresRegistry struct {
	monitorings repository.MonitoringRepository
}

func NewPostgresRegistry(monitorings repository.MonitoringRepository) *PostgresRegistry {
	return &PostgresRegistry{monitorings: monitorings}
}

func (r *PostgresRegistry) Resolve(ctx context.Context, deviceCode string) (*models.Monitoring, error) {
	if deviceCode == "" {
		return nil, errors.NewNotFoundError("empty device code", nil)
	}
	return r.monitorings.GetByDeviceCode(ctx, deviceCode)
}

// CachedRegistry is a cache-aside wrapper around another Registry. Resolved
// records are kept in redis under a TTL; not-found results are not cached so
// a freshly registered device is picked up immediately.
type CachedRegistry struct {
	next Registry
	rdb  *redis.Client
	ttl  time.Duration
}

func NewCachedRegistry(next Registry, rdb *redis.Client, ttl time.Duration) *CachedRegistry {
	return &CachedRegistry{next: next, rdb: rdb, ttl: ttl}
}

func cacheKey(deviceCode string) string {
	return fmt.Sprintf("device:%s:monitoring", deviceCode)
}

func (r *CachedRegistry) Resolve(ctx context.Context, deviceCode string) (*models.Monitoring, error) {
	key := cacheKey(deviceCode)

	cached, err := r.rdb.Get(ctx, key).Bytes()
	if err == nil {
		monitoring := &models.Monitoring{}
		if err := json.Unmarshal(cached, monitoring); err == nil {
			return monitoring, nil
		}
		// Corrupt entry, fall through to the source of truth
		r.rdb.Del(ctx, key)
	} else if err != redis.Nil {
		nuts.L.Warnf("[Registry] Cache lookup failed for %s: %v", deviceCode, err)
	}

	monitoring, err := r.next.Resolve(ctx, deviceCode)
	if err != nil {
		return nil, err
	}

	if encoded, err := json.Marshal(monitoring); err == nil {
		if err := r.rdb.Set(ctx, key, encoded, r.ttl).Err(); err != nil {
			nuts.L.Warnf("[Registry] Failed to cache monitoring for %s: %v", deviceCode, err)
		}
	}

	return monitoring, nil
}

// Invalidate drops the cached record for a device code. Called when a
// monitoring record is updated or deleted.
func (r *CachedRegistry) Invalidate(ctx context.Context, deviceCode string) {
	if err := r.rdb.Del(ctx, cacheKey(deviceCode)).Err(); err != nil {
		nuts.L.Warnf("[Registry] Failed to invalidate cache for %s: %v", deviceCode, err)
	}
}
