// Package reconcile keeps the local cart projection in step with the remote
// cart. Every successful mutation replaces the projection wholesale with the
// server's response; the local view is never patched incrementally.
package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"storefront/internal/adapter"
	"storefront/internal/guard"
	"storefront/internal/metrics"
	"storefront/internal/model"
)

// maxStaleCartRetries is how many times AddLine replaces a cart the remote
// reports as gone before giving up.
const maxStaleCartRetries = 1

// Sessions resolves the cart identity that mutations address.
type Sessions interface {
	EnsureActiveCart(ctx context.Context) (model.CartIdentity, error)
	Replace(ctx context.Context, staleCartID string) (model.CartIdentity, error)
	Renew(ctx context.Context) (model.CartIdentity, error)
}

// Reconciler applies line intents to the remote cart and owns the projection.
//
// Applies are serialized in completion order: the last response applied
// wins. Listeners run synchronously after the guard has seen the new
// projection and must not mutate the cart from inside the callback.
type Reconciler struct {
	gateway  adapter.CartGateway
	sessions Sessions
	guard    *guard.Guard
	logger   *slog.Logger
	metrics  *metrics.Metrics

	applyMu sync.Mutex

	mu         sync.RWMutex
	projection model.Projection

	lmu       sync.Mutex
	listeners map[int]func(model.Projection)
	nextID    int
}

// New creates a reconciler. logger and m may be nil.
func New(gateway adapter.CartGateway, sessions Sessions, g *guard.Guard, logger *slog.Logger, m *metrics.Metrics) *Reconciler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if g == nil {
		g = guard.New("", logger, m)
	}
	return &Reconciler{
		gateway:    gateway,
		sessions:   sessions,
		guard:      g,
		logger:     logger,
		metrics:    m,
		projection: model.EmptyProjection(),
		listeners:  make(map[int]func(model.Projection)),
	}
}

// Guard returns the upload guard fed by this reconciler.
func (r *Reconciler) Guard() *guard.Guard {
	return r.guard
}

// AddLine adds one unit of intent's variant to the active cart.
//
// A custom design line for a product that already has one is rejected before
// any network call. When the remote reports the cart gone, the cart is
// replaced and the add retried once.
func (r *Reconciler) AddLine(ctx context.Context, intent model.LineIntent) (model.Projection, error) {
	if intent.VariantID == "" {
		return model.Projection{}, model.NewValidationError("variant_id", "must not be empty")
	}
	if r.guard.HasMarker(intent.Attributes) {
		if intent.ProductID == "" {
			return model.Projection{}, model.NewValidationError("product_id", "required for custom design lines")
		}
		if r.guard.IsLocked(intent.ProductID) {
			r.metrics.DuplicateDesignRejected()
			r.logger.Info("duplicate custom design rejected", slog.String("product_id", intent.ProductID))
			return model.Projection{}, model.NewDuplicateDesignError(intent.ProductID)
		}
	}

	identity, err := r.sessions.EnsureActiveCart(ctx)
	if err != nil {
		return model.Projection{}, err
	}

	for attempt := 0; ; attempt++ {
		proj, err := r.gateway.AddLine(ctx, identity.CartID, intent.VariantID, 1, intent.Attributes)
		if err == nil {
			r.logger.Debug("line added",
				slog.String("cart_id", identity.CartID),
				slog.String("variant_id", intent.VariantID),
			)
			return r.apply(proj), nil
		}
		if !errors.Is(err, model.ErrCartNotFound) {
			return model.Projection{}, operationError(err)
		}
		if attempt >= maxStaleCartRetries {
			return model.Projection{}, model.NewCartOperationError("cart expired again after replacement", err)
		}

		r.metrics.StaleCartRetried()
		r.logger.Info("cart gone during add, replacing", slog.String("cart_id", identity.CartID))
		identity, err = r.sessions.Replace(ctx, identity.CartID)
		if err != nil {
			return model.Projection{}, err
		}
	}
}

// RemoveLine removes exactly one line. Failures are not retried.
func (r *Reconciler) RemoveLine(ctx context.Context, lineID string) (model.Projection, error) {
	if lineID == "" {
		return model.Projection{}, model.NewValidationError("line_id", "must not be empty")
	}

	identity, err := r.sessions.EnsureActiveCart(ctx)
	if err != nil {
		return model.Projection{}, err
	}

	proj, err := r.gateway.RemoveLines(ctx, identity.CartID, []string{lineID})
	if err != nil {
		return model.Projection{}, operationError(err)
	}
	r.logger.Debug("line removed",
		slog.String("cart_id", identity.CartID),
		slog.String("line_id", lineID),
	)
	return r.apply(proj), nil
}

// ClearCart removes every line, then moves the session to a fresh empty cart.
// An empty cart costs no mutation call.
func (r *Reconciler) ClearCart(ctx context.Context) (model.Projection, error) {
	identity, err := r.sessions.EnsureActiveCart(ctx)
	if err != nil {
		return model.Projection{}, err
	}

	current, err := r.gateway.FetchCart(ctx, identity.CartID)
	switch {
	case errors.Is(err, model.ErrCartNotFound):
		current = model.EmptyProjection()
	case err != nil:
		return model.Projection{}, operationError(err)
	}

	lineIDs := current.LineIDs()
	if len(lineIDs) > 0 {
		_, err := r.gateway.RemoveLines(ctx, identity.CartID, lineIDs)
		if err != nil && !errors.Is(err, model.ErrCartNotFound) {
			return model.Projection{}, operationError(err)
		}
	}

	fresh, err := r.sessions.Renew(ctx)
	if err != nil {
		return model.Projection{}, err
	}
	r.logger.Info("cart cleared",
		slog.String("old_cart_id", identity.CartID),
		slog.String("cart_id", fresh.CartID),
		slog.Int("removed_lines", len(lineIDs)),
	)
	return r.apply(model.NewProjection(fresh.CartID, nil, fresh.CheckoutURL)), nil
}

// RefreshFromServer reloads the projection from the remote cart. It never
// fails: on any error the projection degrades to empty.
func (r *Reconciler) RefreshFromServer(ctx context.Context) model.Projection {
	identity, err := r.sessions.EnsureActiveCart(ctx)
	if err != nil {
		r.logger.Warn("refresh: no active cart", slog.String("error", err.Error()))
		return r.apply(model.EmptyProjection())
	}

	proj, err := r.gateway.FetchCart(ctx, identity.CartID)
	if err != nil {
		r.logger.Warn("refresh: fetching cart",
			slog.String("cart_id", identity.CartID),
			slog.String("error", err.Error()),
		)
		return r.apply(model.EmptyProjection())
	}
	return r.apply(proj)
}

// Projection returns a copy of the current projection.
func (r *Reconciler) Projection() model.Projection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p := r.projection
	return model.NewProjection(p.CartID, p.Lines, p.CheckoutURL)
}

// CheckoutURL returns the checkout URL, or false when the cart is empty.
func (r *Reconciler) CheckoutURL() (string, bool) {
	p := r.Projection()
	if p.IsEmpty() || p.CheckoutURL == "" {
		return "", false
	}
	return p.CheckoutURL, true
}

// OnCartChanged registers fn for every applied projection and returns a
// function that unregisters it.
func (r *Reconciler) OnCartChanged(fn func(model.Projection)) func() {
	r.lmu.Lock()
	defer r.lmu.Unlock()
	id := r.nextID
	r.nextID++
	r.listeners[id] = fn
	return func() {
		r.lmu.Lock()
		defer r.lmu.Unlock()
		delete(r.listeners, id)
	}
}

// apply replaces the projection, recomputes upload locks, then notifies.
func (r *Reconciler) apply(proj model.Projection) model.Projection {
	r.applyMu.Lock()
	defer r.applyMu.Unlock()

	r.mu.Lock()
	r.projection = proj
	r.mu.Unlock()

	r.guard.Recompute(proj)
	r.metrics.SetCartQuantity(proj.TotalQuantity)

	r.lmu.Lock()
	fns := make([]func(model.Projection), 0, len(r.listeners))
	for _, fn := range r.listeners {
		fns = append(fns, fn)
	}
	r.lmu.Unlock()

	for _, fn := range fns {
		fn(model.NewProjection(proj.CartID, proj.Lines, proj.CheckoutURL))
	}
	return proj
}

// operationError classifies a gateway failure as CartOperationFailed unless
// it already is one.
func operationError(err error) error {
	if errors.Is(err, model.ErrCartOperationFailed) {
		return err
	}
	return model.NewCartOperationError("", err)
}
