package catalog

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"storefront/internal/adapter"
	"storefront/internal/model"
)

func newCatalogFake() *adapter.Fake {
	return adapter.NewFake().
		AddCollection(
			model.Collection{ID: "c1", Handle: "mugs", Title: "Mugs"},
			model.Product{ID: "p1", Title: "Mug"},
			model.Product{ID: "p2", Title: "Travel Mug"},
		).
		AddCollection(
			model.Collection{ID: "c2", Handle: "featured", Title: "Featured"},
			model.Product{ID: "p2", Title: "Travel Mug"},
			model.Product{ID: "p3", Title: "Tee"},
		)
}

func TestService_ListCollectionsCached(t *testing.T) {
	fake := newCatalogFake()
	svc := NewService(fake, Config{})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		collections, err := svc.ListCollections(ctx)
		require.NoError(t, err)
		require.Len(t, collections, 2)
	}
	require.Equal(t, 1, fake.Calls(adapter.OpListCollections))

	svc.Invalidate()
	_, err := svc.ListCollections(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, fake.Calls(adapter.OpListCollections))
}

func TestService_CachingDisabled(t *testing.T) {
	fake := newCatalogFake()
	svc := NewService(fake, Config{CacheTTL: -1})

	for i := 0; i < 3; i++ {
		_, err := svc.ListProducts(context.Background(), "mugs")
		require.NoError(t, err)
	}
	require.Equal(t, 3, fake.Calls(adapter.OpListProducts))
}

func TestService_StaleOnError(t *testing.T) {
	fake := newCatalogFake()
	svc := NewService(fake, Config{CacheTTL: time.Minute})
	now := time.Now()
	svc.products.now = func() time.Time { return now }
	ctx := context.Background()

	first, err := svc.ListProducts(ctx, "mugs")
	require.NoError(t, err)

	// Expire the entry, then fail the refetch
	now = now.Add(2 * time.Minute)
	fake.Fail(adapter.OpListProducts, model.NewCatalogUnavailableError(errors.New("timeout")))

	got, err := svc.ListProducts(ctx, "mugs")
	require.NoError(t, err)
	require.Equal(t, first, got)
	require.Equal(t, 2, fake.Calls(adapter.OpListProducts))
}

func TestService_NotFoundNotMaskedByStale(t *testing.T) {
	fake := newCatalogFake()
	svc := NewService(fake, Config{CacheTTL: time.Minute})
	now := time.Now()
	svc.products.now = func() time.Time { return now }
	ctx := context.Background()

	_, err := svc.ListProducts(ctx, "mugs")
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	fake.Fail(adapter.OpListProducts, model.NewCollectionNotFoundError("mugs"))

	_, err = svc.ListProducts(ctx, "mugs")
	require.ErrorIs(t, err, model.ErrCollectionNotFound)
}

func TestService_ErrorsWithoutCache(t *testing.T) {
	fake := newCatalogFake()
	svc := NewService(fake, Config{})
	ctx := context.Background()

	fake.Fail(adapter.OpListCollections, model.NewCatalogUnavailableError(errors.New("503")))
	_, err := svc.ListCollections(ctx)
	require.ErrorIs(t, err, model.ErrCatalogUnavailable)

	_, err = svc.ListProducts(ctx, "nope")
	require.ErrorIs(t, err, model.ErrCollectionNotFound)

	_, err = svc.ListProducts(ctx, "")
	require.ErrorIs(t, err, model.ErrInvalidRequest)
}

func TestService_ListAllProducts(t *testing.T) {
	fake := newCatalogFake()
	svc := NewService(fake, Config{})

	products, err := svc.ListAllProducts(context.Background())
	require.NoError(t, err)

	ids := make([]string, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.ID)
	}
	require.Equal(t, []string{"p1", "p2", "p3"}, ids)
}

func TestService_ListAllProductsSkipsFailedCollections(t *testing.T) {
	fake := newCatalogFake()
	svc := NewService(fake, Config{})
	fake.Fail(adapter.OpListProducts, model.NewCatalogUnavailableError(errors.New("timeout")))

	products, err := svc.ListAllProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 2, "only the second collection")
	require.Equal(t, "p2", products[0].ID)
}

func TestService_ConcurrentMissesFetchOnce(t *testing.T) {
	fake := newCatalogFake()
	fake.OnCall = func(op string) { time.Sleep(10 * time.Millisecond) }
	svc := NewService(fake, Config{})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.ListCollections(context.Background())
		}()
	}
	wg.Wait()

	require.Equal(t, 1, fake.Calls(adapter.OpListCollections))
}

func TestCache_LRUEviction(t *testing.T) {
	c := newCache[int](time.Minute, 2)
	c.put("a", 1)
	c.put("b", 2)
	_, _, _ = c.get("a") // a is now most recent
	c.put("c", 3)

	_, _, ok := c.get("b")
	require.False(t, ok, "b should be evicted")
	v, fresh, ok := c.get("a")
	require.True(t, ok)
	require.True(t, fresh)
	require.Equal(t, 1, v)
}
