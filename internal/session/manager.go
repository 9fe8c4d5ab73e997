// Package session owns the cart identity: it creates, validates, restores and
// replaces the remote cart that all cart operations address.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"storefront/internal/adapter"
	"storefront/internal/metrics"
	"storefront/internal/model"
	"storefront/internal/storage"
)

// flightKey serializes every identity-changing flow. Ensure, Replace and
// Renew share it so at most one CreateCart is in flight at a time.
const flightKey = "cart-identity"

// maxReplaceAttempts bounds Replace when it joins a flight that returned
// the identity being replaced.
const maxReplaceAttempts = 2

// Manager resolves the active cart identity.
//
// Resolution order: in-memory identity, then persisted identity, then a new
// cart. Every candidate is validated against the remote first; validation is
// fail-closed, so a network error counts as invalid.
type Manager struct {
	gateway adapter.CartGateway
	store   storage.IdentityStore
	logger  *slog.Logger
	metrics *metrics.Metrics

	group singleflight.Group

	mu      sync.RWMutex
	current model.CartIdentity
}

// New creates a session manager. logger and m may be nil.
func New(gateway adapter.CartGateway, store storage.IdentityStore, logger *slog.Logger, m *metrics.Metrics) *Manager {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if store == nil {
		store = storage.NewMemoryStore()
	}
	return &Manager{
		gateway: gateway,
		store:   store,
		logger:  logger,
		metrics: m,
	}
}

// EnsureActiveCart returns a validated cart identity, creating a cart when
// neither the in-memory nor the persisted identity is usable.
// Fails only with CartCreationFailed or the caller's context error.
func (m *Manager) EnsureActiveCart(ctx context.Context) (model.CartIdentity, error) {
	return m.flight(ctx, m.ensure)
}

// Validate reports whether cartID still addresses a live remote cart.
// Never returns an error: timeouts, network failures and unknown ids are all false.
func (m *Manager) Validate(ctx context.Context, cartID string) bool {
	if cartID == "" {
		return false
	}
	proj, err := m.gateway.FetchCart(ctx, cartID)
	valid := err == nil && proj.CartID == cartID
	m.metrics.CartValidated(valid)
	if err != nil {
		m.logger.Debug("cart validation failed",
			slog.String("cart_id", cartID),
			slog.String("error", err.Error()),
		)
	}
	return valid
}

// Replace discards staleCartID and returns a fresh identity. When another
// caller already replaced it, the current identity is returned and no cart
// is created.
func (m *Manager) Replace(ctx context.Context, staleCartID string) (model.CartIdentity, error) {
	for attempt := 0; attempt < maxReplaceAttempts; attempt++ {
		identity, err := m.flight(ctx, func(ctx context.Context) (model.CartIdentity, error) {
			if cur, ok := m.Current(); ok && cur.CartID != staleCartID {
				return cur, nil
			}
			m.discard()
			return m.create(ctx)
		})
		if err != nil {
			return model.CartIdentity{}, err
		}
		if identity.CartID != staleCartID {
			return identity, nil
		}
	}
	return model.CartIdentity{}, model.NewCartCreationError(
		fmt.Errorf("could not replace cart %s", staleCartID))
}

// Renew unconditionally moves the session to a new, empty cart.
func (m *Manager) Renew(ctx context.Context) (model.CartIdentity, error) {
	cur, _ := m.Current()
	return m.Replace(ctx, cur.CartID)
}

// Current returns the in-memory identity without any I/O.
func (m *Manager) Current() (model.CartIdentity, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current, !m.current.IsZero()
}

// Invalidate forgets the identity in memory and in storage.
func (m *Manager) Invalidate() {
	m.discard()
}

// flight runs fn once for all concurrent callers. fn runs detached from the
// first caller's cancellation; each caller still stops waiting on its own ctx.
func (m *Manager) flight(ctx context.Context, fn func(context.Context) (model.CartIdentity, error)) (model.CartIdentity, error) {
	detached := context.WithoutCancel(ctx)
	ch := m.group.DoChan(flightKey, func() (interface{}, error) {
		return fn(detached)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return model.CartIdentity{}, res.Err
		}
		return res.Val.(model.CartIdentity), nil
	case <-ctx.Done():
		return model.CartIdentity{}, ctx.Err()
	}
}

func (m *Manager) ensure(ctx context.Context) (model.CartIdentity, error) {
	if cur, ok := m.Current(); ok {
		if m.Validate(ctx, cur.CartID) {
			return cur, nil
		}
		m.logger.Info("cart identity no longer valid", slog.String("cart_id", cur.CartID))
		m.discard()
		return m.create(ctx)
	}

	persisted, ok, err := m.store.Load()
	if err != nil {
		m.logger.Warn("loading persisted cart identity", slog.String("error", err.Error()))
	}
	if ok {
		if m.Validate(ctx, persisted.CartID) {
			m.setCurrent(persisted)
			m.logger.Debug("restored persisted cart", slog.String("cart_id", persisted.CartID))
			return persisted, nil
		}
		m.logger.Info("persisted cart no longer valid", slog.String("cart_id", persisted.CartID))
		m.discard()
	}

	return m.create(ctx)
}

// create makes a new remote cart and persists its identity.
func (m *Manager) create(ctx context.Context) (model.CartIdentity, error) {
	identity, err := m.gateway.CreateCart(ctx)
	if err != nil {
		if !errors.Is(err, model.ErrCartCreationFailed) {
			err = model.NewCartCreationError(err)
		}
		m.logger.Error("cart creation failed", slog.String("error", err.Error()))
		return model.CartIdentity{}, err
	}

	if err := m.store.Save(identity); err != nil {
		// The cart is usable for this process even if it won't survive a restart.
		m.logger.Warn("persisting cart identity", slog.String("error", err.Error()))
	}
	m.setCurrent(identity)
	m.metrics.CartCreated()
	m.logger.Info("cart created", slog.String("cart_id", identity.CartID))
	return identity, nil
}

func (m *Manager) setCurrent(identity model.CartIdentity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = identity
}

// discard clears memory and storage together.
func (m *Manager) discard() {
	m.mu.Lock()
	m.current = model.CartIdentity{}
	m.mu.Unlock()

	if err := m.store.Clear(); err != nil {
		m.logger.Warn("clearing persisted cart identity", slog.String("error", err.Error()))
	}
}
