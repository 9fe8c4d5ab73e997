// Package guard enforces at most one custom design line per product.
//
// The lock table is derived state: it is recomputed from every new cart
// projection and never mutated independently of one.
package guard

import (
	"log/slog"
	"sort"
	"sync"

	"storefront/internal/metrics"
	"storefront/internal/model"
)

// DefaultMarker is the line attribute key that marks a custom design line.
const DefaultMarker = "Custom Design"

// LockChange is emitted for each product whose lock state changed.
type LockChange struct {
	ProductID string `json:"product_id"`
	Locked    bool   `json:"locked"`
	LineID    string `json:"line_id,omitempty"`
}

// Guard tracks which products currently have a custom design line in the cart.
type Guard struct {
	marker  string
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu    sync.RWMutex
	locks map[string]model.UploadLock

	lmu       sync.Mutex
	listeners map[int]func(productID string, locked bool)
	nextID    int
}

// New creates a guard keyed on the marker attribute. An empty marker
// selects DefaultMarker. logger and m may be nil.
func New(marker string, logger *slog.Logger, m *metrics.Metrics) *Guard {
	if marker == "" {
		marker = DefaultMarker
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Guard{
		marker:    marker,
		logger:    logger,
		metrics:   m,
		locks:     make(map[string]model.UploadLock),
		listeners: make(map[int]func(string, bool)),
	}
}

// Marker returns the attribute key that identifies custom design lines.
func (g *Guard) Marker() string {
	return g.marker
}

// HasMarker reports whether attrs carry the custom design marker.
func (g *Guard) HasMarker(attrs map[string]string) bool {
	_, ok := attrs[g.marker]
	return ok
}

// Recompute rebuilds the lock table from proj and returns the changes,
// sorted by product id. Every product appearing in proj or in the previous
// table is evaluated. Products that end unlocked and are absent from proj
// are dropped from the table.
func (g *Guard) Recompute(proj model.Projection) []LockChange {
	next := make(map[string]model.UploadLock)
	for _, line := range proj.Lines {
		if line.ProductID == "" {
			continue
		}
		if _, seen := next[line.ProductID]; !seen {
			next[line.ProductID] = model.UploadLock{ProductID: line.ProductID}
		}
		if g.HasMarker(line.Attributes) && !next[line.ProductID].Locked {
			next[line.ProductID] = model.UploadLock{
				ProductID: line.ProductID,
				Locked:    true,
				LineID:    line.LineID,
			}
		}
	}

	g.mu.Lock()
	var changes []LockChange
	for id, prev := range g.locks {
		cur := next[id]
		if prev.Locked != cur.Locked {
			changes = append(changes, LockChange{ProductID: id, Locked: cur.Locked, LineID: cur.LineID})
		}
	}
	for id, cur := range next {
		if _, known := g.locks[id]; !known && cur.Locked {
			changes = append(changes, LockChange{ProductID: id, Locked: true, LineID: cur.LineID})
		}
	}
	g.locks = next
	locked := countLocked(next)
	g.mu.Unlock()

	sort.Slice(changes, func(i, j int) bool { return changes[i].ProductID < changes[j].ProductID })

	g.metrics.SetLockedProducts(locked)
	for _, c := range changes {
		g.logger.Debug("upload lock changed",
			slog.String("product_id", c.ProductID),
			slog.Bool("locked", c.Locked),
		)
		g.notify(c)
	}
	return changes
}

// IsLocked reports whether productID currently has a custom design line.
func (g *Guard) IsLocked(productID string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.locks[productID].Locked
}

// Lock returns the lock entry for productID.
func (g *Guard) Lock(productID string) model.UploadLock {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if l, ok := g.locks[productID]; ok {
		return l
	}
	return model.UploadLock{ProductID: productID}
}

// Snapshot returns every tracked lock, sorted by product id.
func (g *Guard) Snapshot() []model.UploadLock {
	g.mu.RLock()
	out := make([]model.UploadLock, 0, len(g.locks))
	for _, l := range g.locks {
		out = append(out, l)
	}
	g.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}

// OnLockChanged registers fn for lock transitions and returns a function
// that unregisters it.
func (g *Guard) OnLockChanged(fn func(productID string, locked bool)) func() {
	g.lmu.Lock()
	defer g.lmu.Unlock()
	id := g.nextID
	g.nextID++
	g.listeners[id] = fn
	return func() {
		g.lmu.Lock()
		defer g.lmu.Unlock()
		delete(g.listeners, id)
	}
}

func (g *Guard) notify(c LockChange) {
	g.lmu.Lock()
	fns := make([]func(string, bool), 0, len(g.listeners))
	for _, fn := range g.listeners {
		fns = append(fns, fn)
	}
	g.lmu.Unlock()

	for _, fn := range fns {
		fn(c.ProductID, c.Locked)
	}
}

func countLocked(locks map[string]model.UploadLock) int {
	n := 0
	for _, l := range locks {
		if l.Locked {
			n++
		}
	}
	return n
}
