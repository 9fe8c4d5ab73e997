// Package adapter defines the gateway interfaces to the remote commerce backend.
// Implementations translate platform-specific APIs into storefront model types.
package adapter

import (
	"context"

	"storefront/internal/model"
)

// CatalogGateway reads the product catalog.
// Implementations return model.APIError values from the storefront taxonomy.
type CatalogGateway interface {
	// ListCollections returns every browsable collection.
	// Fails with CatalogUnavailable.
	ListCollections(ctx context.Context) ([]model.Collection, error)

	// ListProducts returns the products of one collection, addressed by handle.
	// Fails with CollectionNotFound or CatalogUnavailable.
	ListProducts(ctx context.Context, handle string) ([]model.Product, error)
}

// CartGateway mutates and reads remote carts.
//
// Every successful call returns the authoritative post-operation cart so the
// caller can rebuild its projection wholesale. Calls against a cart the remote
// no longer knows fail with an error matching model.ErrCartNotFound.
type CartGateway interface {
	// CreateCart creates an empty cart. Fails with CartCreationFailed.
	CreateCart(ctx context.Context) (model.CartIdentity, error)

	// FetchCart returns the current lines of a cart.
	FetchCart(ctx context.Context, cartID string) (model.Projection, error)

	// AddLine adds quantity units of a variant with the given line attributes.
	// Remote user errors surface as CartOperationFailed.
	AddLine(ctx context.Context, cartID, variantID string, quantity int, attributes map[string]string) (model.Projection, error)

	// RemoveLines removes exactly the given lines in one call.
	// Remote user errors surface as CartOperationFailed.
	RemoveLines(ctx context.Context, cartID string, lineIDs []string) (model.Projection, error)
}

// Gateway is a full storefront backend.
type Gateway interface {
	CatalogGateway
	CartGateway
}
