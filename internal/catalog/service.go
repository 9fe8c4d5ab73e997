// Package catalog serves collections and products to the presentation
// layers: cached lookups, the all-products view, pagination and display
// formatting.
package catalog

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"storefront/internal/adapter"
	"storefront/internal/metrics"
	"storefront/internal/model"
)

const collectionsKey = "collections"

// Config contains configuration for the catalog service.
type Config struct {
	CacheTTL   time.Duration // 0 = DefaultCacheTTL, negative disables caching
	MaxEntries int           // 0 = MaxCacheEntries
	Logger     *slog.Logger
	Metrics    *metrics.Metrics
}

// Service reads the catalog through a CatalogGateway.
//
// Fresh cache hits return immediately. On a miss the gateway is called once
// per key no matter how many callers wait. When the gateway fails and an
// expired entry exists, the expired entry is returned.
type Service struct {
	gateway     adapter.CatalogGateway
	collections *cache[[]model.Collection]
	products    *cache[[]model.Product]
	group       singleflight.Group
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

// NewService creates a catalog service.
func NewService(gateway adapter.CatalogGateway, cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		gateway:     gateway,
		collections: newCache[[]model.Collection](cfg.CacheTTL, cfg.MaxEntries),
		products:    newCache[[]model.Product](cfg.CacheTTL, cfg.MaxEntries),
		logger:      logger,
		metrics:     cfg.Metrics,
	}
}

// ListCollections returns every collection.
func (s *Service) ListCollections(ctx context.Context) ([]model.Collection, error) {
	return lookup(ctx, s, s.collections, collectionsKey, func(ctx context.Context) ([]model.Collection, error) {
		return s.gateway.ListCollections(ctx)
	})
}

// ListProducts returns the products of the collection with the given handle.
func (s *Service) ListProducts(ctx context.Context, handle string) ([]model.Product, error) {
	if handle == "" {
		return nil, model.NewValidationError("handle", "must not be empty")
	}
	return lookup(ctx, s, s.products, "products:"+handle, func(ctx context.Context) ([]model.Product, error) {
		return s.gateway.ListProducts(ctx, handle)
	})
}

// ListAllProducts returns the products of every collection, deduplicated by
// product id in collection order. Collections whose products cannot be
// fetched are skipped; only a failure to list collections is an error.
func (s *Service) ListAllProducts(ctx context.Context) ([]model.Product, error) {
	collections, err := s.ListCollections(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	all := make([]model.Product, 0)
	for _, c := range collections {
		products, err := s.ListProducts(ctx, c.Handle)
		if err != nil {
			s.logger.Warn("skipping collection",
				slog.String("handle", c.Handle),
				slog.String("error", err.Error()),
			)
			continue
		}
		for _, p := range products {
			if seen[p.ID] {
				continue
			}
			seen[p.ID] = true
			all = append(all, p)
		}
	}
	return all, nil
}

// Invalidate drops every cached entry.
func (s *Service) Invalidate() {
	s.collections.clear()
	s.products.clear()
}

func lookup[V any](ctx context.Context, s *Service, c *cache[V], key string, fetch func(context.Context) (V, error)) (V, error) {
	cached, fresh, ok := c.get(key)
	if ok && fresh {
		s.metrics.CatalogCacheLookup(lookupHit)
		return cached, nil
	}

	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		// A flight that finished after our miss may have filled the entry.
		if value, fresh, ok := c.get(key); ok && fresh {
			return value, nil
		}
		value, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		c.put(key, value)
		return value, nil
	})
	if err != nil {
		// Stale data beats no data, unless the remote says it is gone.
		if ok && !errors.Is(err, model.ErrCollectionNotFound) {
			s.metrics.CatalogCacheLookup(lookupStale)
			s.logger.Warn("serving stale catalog entry",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
			return cached, nil
		}
		var zero V
		return zero, err
	}
	s.metrics.CatalogCacheLookup(lookupMiss)
	return v.(V), nil
}
