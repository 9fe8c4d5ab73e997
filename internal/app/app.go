// Package app assembles the storefront components from configuration.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"storefront/internal/adapter"
	"storefront/internal/catalog"
	"storefront/internal/config"
	"storefront/internal/guard"
	"storefront/internal/handler"
	"storefront/internal/metrics"
	"storefront/internal/middleware"
	"storefront/internal/model"
	"storefront/internal/reconcile"
	"storefront/internal/session"
	"storefront/internal/shopify"
	"storefront/internal/storage"
	"storefront/internal/transport"
)

// App is one storefront: a single cart session over one shop.
type App struct {
	Config     *config.Config
	Gateway    adapter.Gateway
	Sessions   *session.Manager
	Reconciler *reconcile.Reconciler
	Guard      *guard.Guard
	Catalog    *catalog.Service
	Metrics    *metrics.Metrics
	Registry   *prometheus.Registry

	logger *slog.Logger
}

// New builds an App talking to the shop named in cfg.
// A nil store selects a FileStore at cfg.StateFile, or memory when unset.
func New(cfg *config.Config, store storage.IdentityStore, logger *slog.Logger) (*App, error) {
	registry := newRegistry()
	m := metrics.NewWithRegisterer(registry)

	gateway, err := shopify.New(shopify.Config{
		ShopDomain:      cfg.Shop.Domain,
		StorefrontToken: cfg.Shop.StorefrontToken,
		APIVersion:      cfg.Shop.APIVersion,
		Timeout:         cfg.RequestTimeout,
		Transport: transport.New(transport.Options{
			Timeout:     cfg.RequestTimeout,
			UserAgent:   "Storefront/1.0",
			Fingerprint: cfg.TLSFingerprint,
			RequestID:   middleware.RequestIDFromContext,
		}),
		Metrics: m,
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating shopify gateway: %w", err)
	}

	return assemble(cfg, gateway, store, registry, m, logger), nil
}

// NewWithGateway builds an App over an existing gateway.
func NewWithGateway(cfg *config.Config, gateway adapter.Gateway, store storage.IdentityStore, logger *slog.Logger) *App {
	registry := newRegistry()
	return assemble(cfg, gateway, store, registry, metrics.NewWithRegisterer(registry), logger)
}

func newRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return registry
}

func assemble(cfg *config.Config, gateway adapter.Gateway, store storage.IdentityStore, registry *prometheus.Registry, m *metrics.Metrics, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if store == nil {
		if cfg.StateFile != "" {
			store = storage.NewFileStore(cfg.StateFile)
		} else {
			store = storage.NewMemoryStore()
		}
	}

	sessions := session.New(gateway, store, logger, m)
	g := guard.New(cfg.DesignAttribute, logger, m)

	return &App{
		Config:     cfg,
		Gateway:    gateway,
		Sessions:   sessions,
		Reconciler: reconcile.New(gateway, sessions, g, logger, m),
		Guard:      g,
		Catalog: catalog.NewService(gateway, catalog.Config{
			CacheTTL: cfg.CatalogCacheTTL,
			Logger:   logger,
			Metrics:  m,
		}),
		Metrics:  m,
		Registry: registry,
		logger:   logger,
	}
}

// Restore rebuilds the cart projection from the remote cart, creating or
// replacing the persisted cart as needed. Failures leave an empty cart.
func (a *App) Restore(ctx context.Context) model.Projection {
	proj := a.Reconciler.RefreshFromServer(ctx)
	a.logger.Info("cart restored",
		slog.String("cart_id", proj.CartID),
		slog.Int("total_quantity", proj.TotalQuantity),
	)
	return proj
}

// Handler returns the HTTP API with the middleware chain applied.
func (a *App) Handler() http.Handler {
	h := handler.New(a.Reconciler, a.Guard, a.Catalog, handler.Options{
		ShopDomain: a.Config.Shop.Domain,
		PageSize:   a.Config.PageSize,
		Gatherer:   a.Registry,
	}, a.logger)

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	// Recovery stays outermost so panics in the other layers are caught.
	return middleware.Chain(
		middleware.Recovery(a.logger),
		middleware.RequestID(),
		middleware.Metrics(a.Metrics),
		middleware.Logging(a.logger),
	)(mux)
}
