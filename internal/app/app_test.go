package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"storefront/internal/adapter"
	"storefront/internal/config"
	"storefront/internal/model"
	"storefront/internal/storage"
)

func testConfig() *config.Config {
	return &config.Config{
		Environment:     "development",
		Shop:            config.ShopConfig{Domain: "shop.example", StorefrontToken: "token", APIVersion: config.DefaultAPIVersion},
		RequestTimeout:  config.DefaultRequestTimeout,
		CatalogCacheTTL: config.DefaultCatalogCacheTTL,
		PageSize:        config.DefaultPageSize,
		DesignAttribute: "Design",
	}
}

func TestNewBuildsShopifyGateway(t *testing.T) {
	a, err := New(testConfig(), nil, nil)
	require.NoError(t, err)
	require.NotNil(t, a.Gateway)
	require.NotNil(t, a.Reconciler)
	require.Equal(t, "Design", a.Guard.Marker())
}

func TestNewRejectsMissingToken(t *testing.T) {
	cfg := testConfig()
	cfg.Shop.StorefrontToken = ""

	_, err := New(cfg, nil, nil)
	require.Error(t, err)
}

func TestRestorePersistsIdentity(t *testing.T) {
	cfg := testConfig()
	cfg.StateFile = filepath.Join(t.TempDir(), "cart.state")
	fake := adapter.NewFake()

	a := NewWithGateway(cfg, fake, nil, nil)
	proj := a.Restore(context.Background())
	require.NotEmpty(t, proj.CartID)
	require.Zero(t, proj.TotalQuantity)

	// A second process over the same state file reuses the cart.
	b := NewWithGateway(cfg, fake, nil, nil)
	again := b.Restore(context.Background())
	require.Equal(t, proj.CartID, again.CartID)
	require.Equal(t, 1, fake.Calls(adapter.OpCreateCart))

	id, ok, err := storage.NewFileStore(cfg.StateFile).Load()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, proj.CartID, id.CartID)
}

func TestHandlerMiddleware(t *testing.T) {
	a := NewWithGateway(testConfig(), adapter.NewFake(), storage.NewMemoryStore(), nil)
	h := a.Handler()

	req := httptest.NewRequest("GET", "/healthz", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestHandlerServesMetrics(t *testing.T) {
	fake := adapter.NewFake().AddCollection(model.Collection{Handle: "all"})
	a := NewWithGateway(testConfig(), fake, storage.NewMemoryStore(), nil)
	h := a.Handler()

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/collections", nil))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	require.True(t, strings.Contains(body, "go_goroutines"), "missing runtime metrics")
	require.True(t, strings.Contains(body, "storefront_catalog_cache_total"), "missing catalog metrics")
}
