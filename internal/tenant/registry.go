package tenant

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"workspace-service/internal/model"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Registry resolves a public workspace handle to its registry entry. Lookups
// always read the shared schema: the Organization model carries a
// public-qualified table name, so a lookup can never land in a tenant schema
// even if a pooled connection was left mis-bound by a buggy caller.
type Registry interface {
	FindByHandle(ctx context.Context, handle string) (*model.Organization, error)
}

// GormRegistry reads the registry straight from Postgres
type GormRegistry struct {
	db *gorm.DB
}

func NewGormRegistry(db *gorm.DB) *GormRegistry {
	return &GormRegistry{db: db}
}

func (r *GormRegistry) FindByHandle(ctx context.Context, handle string) (*model.Organization, error) {
	var org model.Organization
	result := r.db.WithContext(ctx).Where("handle = ?", strings.ToLower(handle)).First(&org)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrOrganizationNotFound
		}
		return nil, result.Error
	}
	return &org, nil
}

// CachedRegistry fronts another Registry with a Redis cache. Entries carry the
// full registry row, so status checks stay correct for cached hits; status
// changes must call Invalidate. Redis being down degrades to plain lookups.
type CachedRegistry struct {
	inner Registry
	rdb   *redis.Client
	ttl   time.Duration
	log   *zap.Logger
}

func NewCachedRegistry(inner Registry, rdb *redis.Client, ttl time.Duration, log *zap.Logger) *CachedRegistry {
	return &CachedRegistry{inner: inner, rdb: rdb, ttl: ttl, log: log}
}

func cacheKey(handle string) string {
	return "workspace:handle:" + strings.ToLower(handle)
}

func (r *CachedRegistry) FindByHandle(ctx context.Context, handle string) (*model.Organization, error) {
	key := cacheKey(handle)

	if raw, err := r.rdb.Get(ctx, key).Result(); err == nil {
		var org model.Organization
		if err := json.Unmarshal([]byte(raw), &org); err == nil {
			return &org, nil
		}
		// Unreadable cache entry, drop it and fall through
		r.rdb.Del(ctx, key)
	} else if err != redis.Nil {
		r.log.Warn("workspace cache read failed, falling back to database", zap.Error(err))
	}

	org, err := r.inner.FindByHandle(ctx, handle)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(org); err == nil {
		if err := r.rdb.Set(ctx, key, raw, r.ttl).Err(); err != nil {
			r.log.Warn("workspace cache write failed", zap.Error(err))
		}
	}

	return org, nil
}

// Invalidate drops the cached entry for a handle. Called after administrative
// status or configuration changes so suspensions take effect immediately.
func (r *CachedRegistry) Invalidate(ctx context.Context, handle string) {
	if err := r.rdb.Del(ctx, cacheKey(handle)).Err(); err != nil {
		r.log.Warn("workspace cache invalidation failed",
			zap.String("handle", handle), zap.Error(err))
	}
}
