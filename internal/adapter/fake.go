package adapter

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"

	"github.com/google/uuid"

	"storefront/internal/model"
)

// Fake operation names, used with Fail and Calls.
const (
	OpListCollections = "list_collections"
	OpListProducts    = "list_products"
	OpCreateCart      = "create_cart"
	OpFetchCart       = "fetch_cart"
	OpAddLine         = "add_line"
	OpRemoveLines     = "remove_lines"
)

// Fake is an in-memory storefront backend with remote-like cart semantics:
// adding a variant that already has a line with identical attributes merges
// into that line, and carts can be expired to simulate remote eviction.
// Safe for concurrent use.
type Fake struct {
	// OnCall, when set, runs before every operation outside the lock.
	OnCall func(op string)

	mu          sync.Mutex
	collections []model.Collection
	products    map[string][]model.Product
	variantOf   map[string]string // variant id → product id
	carts       map[string]*fakeCart
	failures    map[string][]error
	calls       map[string]int
	lineSeq     int
}

type fakeCart struct {
	checkoutURL string
	lines       []model.CartLine
}

// NewFake creates an empty fake backend.
func NewFake() *Fake {
	return &Fake{
		products:  make(map[string][]model.Product),
		variantOf: make(map[string]string),
		carts:     make(map[string]*fakeCart),
		failures:  make(map[string][]error),
		calls:     make(map[string]int),
	}
}

// AddCollection registers a collection and its products.
func (f *Fake) AddCollection(c model.Collection, products ...model.Product) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.collections = append(f.collections, c)
	f.products[c.Handle] = append(f.products[c.Handle], products...)
	for _, p := range products {
		for _, v := range p.Variants {
			f.variantOf[v.ID] = p.ID
		}
	}
	return f
}

// Fail queues err as the result of the next call to op.
// Queued errors are consumed in order, one per call.
func (f *Fake) Fail(op string, errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[op] = append(f.failures[op], errs...)
}

// Expire deletes a cart so later calls report it as not found.
func (f *Fake) Expire(cartID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.carts, cartID)
}

// Calls returns how many times op has been invoked.
func (f *Fake) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// CartCount returns the number of live carts.
func (f *Fake) CartCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.carts)
}

// begin records the call and pops a queued failure. Caller must not hold mu.
func (f *Fake) begin(op string) error {
	if f.OnCall != nil {
		f.OnCall(op)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
	if queued := f.failures[op]; len(queued) > 0 {
		f.failures[op] = queued[1:]
		return queued[0]
	}
	return nil
}

// ListCollections returns the registered collections.
func (f *Fake) ListCollections(ctx context.Context) ([]model.Collection, error) {
	if err := f.begin(OpListCollections); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Collection{}, f.collections...), nil
}

// ListProducts returns the products registered under handle.
func (f *Fake) ListProducts(ctx context.Context, handle string) ([]model.Product, error) {
	if err := f.begin(OpListProducts); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	products, ok := f.products[handle]
	if !ok {
		return nil, model.NewCollectionNotFoundError(handle)
	}
	return append([]model.Product{}, products...), nil
}

// CreateCart creates an empty cart with a fresh identity.
func (f *Fake) CreateCart(ctx context.Context) (model.CartIdentity, error) {
	if err := f.begin(OpCreateCart); err != nil {
		return model.CartIdentity{}, err
	}
	token := uuid.NewString()
	identity := model.CartIdentity{
		CartID:      "gid://shopify/Cart/" + token,
		CheckoutURL: "https://shop.example/cart/c/" + token,
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.carts[identity.CartID] = &fakeCart{checkoutURL: identity.CheckoutURL}
	return identity, nil
}

// FetchCart returns the cart's current state.
func (f *Fake) FetchCart(ctx context.Context, cartID string) (model.Projection, error) {
	if err := f.begin(OpFetchCart); err != nil {
		return model.Projection{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	cart, ok := f.carts[cartID]
	if !ok {
		return model.Projection{}, model.NewCartNotFoundError(cartID)
	}
	return model.NewProjection(cartID, cart.lines, cart.checkoutURL), nil
}

// AddLine merges into an existing identical line or appends a new one.
func (f *Fake) AddLine(ctx context.Context, cartID, variantID string, quantity int, attributes map[string]string) (model.Projection, error) {
	if err := f.begin(OpAddLine); err != nil {
		return model.Projection{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	cart, ok := f.carts[cartID]
	if !ok {
		return model.Projection{}, model.NewCartNotFoundError(cartID)
	}
	if quantity < 1 {
		return model.Projection{}, model.NewCartOperationError("Quantity must be at least 1", nil)
	}

	for i, line := range cart.lines {
		if line.VariantID == variantID && maps.Equal(line.Attributes, attributes) {
			cart.lines[i].Quantity += quantity
			return model.NewProjection(cartID, cart.lines, cart.checkoutURL), nil
		}
	}

	f.lineSeq++
	cart.lines = append(cart.lines, model.CartLine{
		LineID:     fmt.Sprintf("gid://shopify/CartLine/%d", f.lineSeq),
		VariantID:  variantID,
		ProductID:  f.variantOf[variantID],
		Quantity:   quantity,
		Attributes: maps.Clone(attributes),
	})
	return model.NewProjection(cartID, cart.lines, cart.checkoutURL), nil
}

// RemoveLines removes the given lines. Unknown line ids are rejected.
func (f *Fake) RemoveLines(ctx context.Context, cartID string, lineIDs []string) (model.Projection, error) {
	if err := f.begin(OpRemoveLines); err != nil {
		return model.Projection{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	cart, ok := f.carts[cartID]
	if !ok {
		return model.Projection{}, model.NewCartNotFoundError(cartID)
	}

	remove := make(map[string]bool, len(lineIDs))
	for _, id := range lineIDs {
		remove[id] = true
	}
	kept := cart.lines[:0:0]
	for _, line := range cart.lines {
		if remove[line.LineID] {
			delete(remove, line.LineID)
			continue
		}
		kept = append(kept, line)
	}
	if len(remove) > 0 {
		missing := make([]string, 0, len(remove))
		for id := range remove {
			missing = append(missing, id)
		}
		sort.Strings(missing)
		return model.Projection{}, model.NewCartOperationError(
			fmt.Sprintf("The merchandise line with id %s does not exist.", missing[0]), nil)
	}
	cart.lines = kept
	return model.NewProjection(cartID, cart.lines, cart.checkoutURL), nil
}

// Verify Fake implements Gateway interface at compile time.
var _ Gateway = (*Fake)(nil)
