package shopify

import (
	"context"
	"strings"

	"storefront/internal/model"
)

// ListCollections returns the first 20 collections of the shop.
func (a *Adapter) ListCollections(ctx context.Context) ([]model.Collection, error) {
	data, err := execute[collectionsData](ctx, a.client, "Collections", collectionsQuery, nil)
	if err != nil {
		return nil, model.NewCatalogUnavailableError(err)
	}

	nodes := data.Collections.Nodes()
	collections := make([]model.Collection, 0, len(nodes))
	for _, n := range nodes {
		collections = append(collections, collectionToModel(n))
	}
	return collections, nil
}

// ListProducts returns the first 50 products of the collection with the given handle.
func (a *Adapter) ListProducts(ctx context.Context, handle string) ([]model.Product, error) {
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return nil, model.NewValidationError("handle", "must not be empty")
	}

	data, err := execute[collectionProductsData](ctx, a.client, "CollectionProducts",
		collectionProductsQuery, map[string]any{"handle": handle})
	if err != nil {
		return nil, model.NewCatalogUnavailableError(err)
	}
	if data.Collection == nil {
		return nil, model.NewCollectionNotFoundError(handle)
	}

	nodes := data.Collection.Products.Nodes()
	products := make([]model.Product, 0, len(nodes))
	for _, n := range nodes {
		products = append(products, productToModel(n))
	}
	return products, nil
}
