// Package cache provides a TTL-bounded read-through cache for the registered
// client catalog. Every record decode performs a catalog lookup, so hot
// clients are served from memory instead of hitting the catalog backend.
package cache

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"go.pilab.hu/authstore/domain"
)

// ClientRepository wraps a registered client catalog with a TTL cache.
// Lookup misses are not cached: a dangling client reference is a hard read
// error the caller must observe fresh.
type ClientRepository struct {
	source domain.RegisteredClientRepository
	cache  *ttlcache.Cache[string, *domain.RegisteredClient]
}

// NewClientRepository creates a caching wrapper with the given entry TTL.
func NewClientRepository(source domain.RegisteredClientRepository, ttl time.Duration) *ClientRepository {
	cache := ttlcache.New(
		ttlcache.WithTTL[string, *domain.RegisteredClient](ttl),
		ttlcache.WithDisableTouchOnHit[string, *domain.RegisteredClient](),
	)

	// Start the expiration loop
	go cache.Start()

	return &ClientRepository{
		source: source,
		cache:  cache,
	}
}

// GetClient implements domain.RegisteredClientRepository. Callers get their
// own copy of the client, never the cached value itself, so mutating a result
// cannot poison the cache.
func (r *ClientRepository) GetClient(ctx context.Context, id string) (*domain.RegisteredClient, error) {
	if item := r.cache.Get(id); item != nil {
		client := *item.Value()
		return &client, nil
	}

	client, err := r.source.GetClient(ctx, id)
	if err != nil {
		return nil, err
	}

	cached := *client
	r.cache.Set(id, &cached, ttlcache.DefaultTTL)
	return client, nil
}

// Invalidate drops a cached entry, forcing the next lookup to hit the
// catalog.
func (r *ClientRepository) Invalidate(id string) {
	r.cache.Delete(id)
}

// Stop terminates the background expiration loop.
func (r *ClientRepository) Stop() {
	r.cache.Stop()
}
