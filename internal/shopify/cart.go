package shopify

import (
	"context"
	"fmt"

	"storefront/internal/model"
)

// CreateCart creates an empty anonymous cart.
func (a *Adapter) CreateCart(ctx context.Context) (model.CartIdentity, error) {
	data, err := execute[cartCreateData](ctx, a.client, "CartCreate", cartCreateMutation, nil)
	if err != nil {
		return model.CartIdentity{}, model.NewCartCreationError(err)
	}

	payload := data.CartCreate
	if len(payload.UserErrors) > 0 {
		return model.CartIdentity{}, model.NewCartCreationError(
			fmt.Errorf("user error: %s", firstMessage(payload.UserErrors)))
	}
	if payload.Cart == nil || payload.Cart.ID == "" || payload.Cart.CheckoutURL == "" {
		return model.CartIdentity{}, model.NewCartCreationError(fmt.Errorf("incomplete cart in response"))
	}

	return model.CartIdentity{
		CartID:      payload.Cart.ID,
		CheckoutURL: payload.Cart.CheckoutURL,
	}, nil
}

// FetchCart reads the cart. A null cart means the remote no longer knows it.
func (a *Adapter) FetchCart(ctx context.Context, cartID string) (model.Projection, error) {
	if cartID == "" {
		return model.Projection{}, model.NewValidationError("cart_id", "must not be empty")
	}

	data, err := execute[cartData](ctx, a.client, "Cart", cartQuery, map[string]any{"cartId": cartID})
	if err != nil {
		return model.Projection{}, model.NewCartOperationError("", err)
	}
	if data.Cart == nil {
		return model.Projection{}, model.NewCartNotFoundError(cartID)
	}
	return cartToProjection(data.Cart), nil
}

// AddLine adds quantity units of a variant in a single cartLinesAdd call.
func (a *Adapter) AddLine(ctx context.Context, cartID, variantID string, quantity int, attributes map[string]string) (model.Projection, error) {
	if cartID == "" {
		return model.Projection{}, model.NewValidationError("cart_id", "must not be empty")
	}
	if variantID == "" {
		return model.Projection{}, model.NewValidationError("variant_id", "must not be empty")
	}
	if quantity < 1 {
		return model.Projection{}, model.NewValidationError("quantity", "must be at least 1")
	}

	vars := map[string]any{
		"cartId": cartID,
		"lines": []CartLineInput{{
			MerchandiseID: variantID,
			Quantity:      quantity,
			Attributes:    attributesToInput(attributes),
		}},
	}
	data, err := execute[cartLinesAddData](ctx, a.client, "CartLinesAdd", cartLinesAddMutation, vars)
	if err != nil {
		return model.Projection{}, model.NewCartOperationError("", err)
	}
	return a.mutationResult(cartID, data.CartLinesAdd)
}

// RemoveLines removes exactly lineIDs in a single cartLinesRemove call.
func (a *Adapter) RemoveLines(ctx context.Context, cartID string, lineIDs []string) (model.Projection, error) {
	if cartID == "" {
		return model.Projection{}, model.NewValidationError("cart_id", "must not be empty")
	}
	if len(lineIDs) == 0 {
		return model.Projection{}, model.NewValidationError("line_ids", "must not be empty")
	}

	vars := map[string]any{
		"cartId":  cartID,
		"lineIds": lineIDs,
	}
	data, err := execute[cartLinesRemoveData](ctx, a.client, "CartLinesRemove", cartLinesRemoveMutation, vars)
	if err != nil {
		return model.Projection{}, model.NewCartOperationError("", err)
	}
	return a.mutationResult(cartID, data.CartLinesRemove)
}

// mutationResult classifies a cart mutation payload.
func (a *Adapter) mutationResult(cartID string, payload cartPayload) (model.Projection, error) {
	if isCartMissing(payload.UserErrors) {
		return model.Projection{}, model.NewCartNotFoundError(cartID)
	}
	if len(payload.UserErrors) > 0 {
		msg := firstMessage(payload.UserErrors)
		return model.Projection{}, model.NewCartOperationError(msg, fmt.Errorf("user error: %s", msg))
	}
	if payload.Cart == nil {
		return model.Projection{}, model.NewCartNotFoundError(cartID)
	}
	return cartToProjection(payload.Cart), nil
}
