package adapter

import (
	"context"
	"errors"

	"storefront/internal/model"
)

// Mock implements Gateway for testing.
// Each method can be configured via function fields.
type Mock struct {
	ListCollectionsFunc func(ctx context.Context) ([]model.Collection, error)
	ListProductsFunc    func(ctx context.Context, handle string) ([]model.Product, error)
	CreateCartFunc      func(ctx context.Context) (model.CartIdentity, error)
	FetchCartFunc       func(ctx context.Context, cartID string) (model.Projection, error)
	AddLineFunc         func(ctx context.Context, cartID, variantID string, quantity int, attributes map[string]string) (model.Projection, error)
	RemoveLinesFunc     func(ctx context.Context, cartID string, lineIDs []string) (model.Projection, error)
}

// ListCollections calls the configured ListCollectionsFunc or returns no collections.
func (m *Mock) ListCollections(ctx context.Context) ([]model.Collection, error) {
	if m.ListCollectionsFunc != nil {
		return m.ListCollectionsFunc(ctx)
	}
	return []model.Collection{}, nil
}

// ListProducts calls the configured ListProductsFunc or returns an error.
func (m *Mock) ListProducts(ctx context.Context, handle string) ([]model.Product, error) {
	if m.ListProductsFunc != nil {
		return m.ListProductsFunc(ctx, handle)
	}
	return nil, model.NewCollectionNotFoundError(handle)
}

// CreateCart calls the configured CreateCartFunc or returns an error.
func (m *Mock) CreateCart(ctx context.Context) (model.CartIdentity, error) {
	if m.CreateCartFunc != nil {
		return m.CreateCartFunc(ctx)
	}
	return model.CartIdentity{}, model.NewCartCreationError(errors.New("not configured"))
}

// FetchCart calls the configured FetchCartFunc or returns an error.
func (m *Mock) FetchCart(ctx context.Context, cartID string) (model.Projection, error) {
	if m.FetchCartFunc != nil {
		return m.FetchCartFunc(ctx, cartID)
	}
	return model.Projection{}, model.NewCartNotFoundError(cartID)
}

// AddLine calls the configured AddLineFunc or returns an error.
func (m *Mock) AddLine(ctx context.Context, cartID, variantID string, quantity int, attributes map[string]string) (model.Projection, error) {
	if m.AddLineFunc != nil {
		return m.AddLineFunc(ctx, cartID, variantID, quantity, attributes)
	}
	return model.Projection{}, model.NewCartNotFoundError(cartID)
}

// RemoveLines calls the configured RemoveLinesFunc or returns an error.
func (m *Mock) RemoveLines(ctx context.Context, cartID string, lineIDs []string) (model.Projection, error) {
	if m.RemoveLinesFunc != nil {
		return m.RemoveLinesFunc(ctx, cartID, lineIDs)
	}
	return model.Projection{}, model.NewCartNotFoundError(cartID)
}

// Verify Mock implements Gateway interface at compile time.
var _ Gateway = (*Mock)(nil)
