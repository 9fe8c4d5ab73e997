// MCP transport handler for the storefront using the official MCP Go SDK.
// Exposes catalog browsing and cart operations as MCP tools.
package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"storefront/internal/model"
	"storefront/internal/orderstatus"
)

// === MCP Tool Input/Output Types ===
// Fields without omitempty are required by the generated input schema.

// NoInput is the input schema for tools that take no arguments.
type NoInput struct{}

// ListProductsInput is the input schema for list_products tool.
type ListProductsInput struct {
	Handle string `json:"handle,omitempty" jsonschema:"collection handle; omit to list the products of every collection"`
	Page   int    `json:"page,omitempty" jsonschema:"1-based page number"`
}

// GetCartInput is the input schema for get_cart tool.
type GetCartInput struct {
	Refresh bool `json:"refresh,omitempty" jsonschema:"rebuild the cart from the server before returning it"`
}

// AddToCartInput is the input schema for add_to_cart tool.
type AddToCartInput struct {
	ProductID  string            `json:"product_id,omitempty" jsonschema:"product ID, required when attaching a custom design"`
	VariantID  string            `json:"variant_id" jsonschema:"variant ID to add one unit of"`
	Attributes map[string]string `json:"attributes,omitempty" jsonschema:"line attributes, e.g. the custom design reference"`
}

// RemoveFromCartInput is the input schema for remove_from_cart tool.
type RemoveFromCartInput struct {
	LineID string `json:"line_id" jsonschema:"cart line ID"`
}

// TrackOrderInput is the input schema for track_order tool.
type TrackOrderInput struct {
	OrderNumber string `json:"order_number" jsonschema:"order number, with or without a leading #"`
	Email       string `json:"email" jsonschema:"email address used for the order"`
}

// URLOutput carries a hosted page URL.
type URLOutput struct {
	URL string `json:"url"`
}

// NewMCPServer creates an MCP server with storefront tools registered.
// The server exposes the same operations as the REST API but via MCP protocol.
func (h *Handler) NewMCPServer() *mcp.Server {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "storefront",
			Version: "1.0.0",
		},
		&mcp.ServerOptions{
			Instructions: "Storefront - browse the shop's collections and manage the shopping cart. " +
				"Add variants to the cart, then hand off to the hosted checkout URL.",
		},
	)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_collections",
		Description: "List the shop's product collections.",
	}, h.mcpListCollections)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_products",
		Description: "List one page of products, from a single collection or from every collection.",
	}, h.mcpListProducts)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_cart",
		Description: "Get the cart lines, total quantity and custom design locks.",
	}, h.mcpGetCart)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_to_cart",
		Description: "Add one unit of a variant to the cart. A product may carry only one custom design line.",
	}, h.mcpAddToCart)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "remove_from_cart",
		Description: "Remove a line from the cart.",
	}, h.mcpRemoveFromCart)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "clear_cart",
		Description: "Remove every line and start a fresh cart.",
	}, h.mcpClearCart)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_checkout_url",
		Description: "Get the hosted checkout URL. Fails when the cart is empty.",
	}, h.mcpGetCheckoutURL)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "track_order",
		Description: "Get the shop's order status page URL for an order.",
	}, h.mcpTrackOrder)

	return server
}

// NewMCPHandler returns an HTTP handler for the MCP endpoint.
// Mount this at /mcp on your mux.
func (h *Handler) NewMCPHandler() http.Handler {
	server := h.NewMCPServer()
	return mcp.NewStreamableHTTPHandler(
		func(r *http.Request) *mcp.Server { return server },
		nil,
	)
}

// === Tool Handlers ===

func (h *Handler) mcpListCollections(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input NoInput,
) (*mcp.CallToolResult, collectionsResponse, error) {
	collections, err := h.catalog.ListCollections(ctx)
	if err != nil {
		return nil, collectionsResponse{}, h.mcpError(err)
	}
	if collections == nil {
		collections = []model.Collection{}
	}
	return nil, collectionsResponse{Collections: collections}, nil
}

func (h *Handler) mcpListProducts(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input ListProductsInput,
) (*mcp.CallToolResult, productPage, error) {
	page := input.Page
	if page == 0 {
		page = 1
	}
	if page < 0 {
		return nil, productPage{}, h.mcpError(model.NewValidationError("page", "must be a positive integer"))
	}

	var (
		products []model.Product
		err      error
	)
	if input.Handle == "" {
		products, err = h.catalog.ListAllProducts(ctx)
	} else {
		products, err = h.catalog.ListProducts(ctx, input.Handle)
	}
	if err != nil {
		return nil, productPage{}, h.mcpError(err)
	}
	return nil, h.productPage(products, page), nil
}

func (h *Handler) mcpGetCart(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input GetCartInput,
) (*mcp.CallToolResult, cartResponse, error) {
	proj := h.cart.Projection()
	if input.Refresh {
		proj = h.cart.RefreshFromServer(ctx)
	}
	return nil, h.newCartResponse(proj), nil
}

func (h *Handler) mcpAddToCart(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input AddToCartInput,
) (*mcp.CallToolResult, cartResponse, error) {
	proj, err := h.cart.AddLine(ctx, model.LineIntent{
		ProductID:  input.ProductID,
		VariantID:  input.VariantID,
		Attributes: input.Attributes,
	})
	if err != nil {
		return nil, cartResponse{}, h.mcpError(err)
	}
	return nil, h.newCartResponse(proj), nil
}

func (h *Handler) mcpRemoveFromCart(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input RemoveFromCartInput,
) (*mcp.CallToolResult, cartResponse, error) {
	proj, err := h.cart.RemoveLine(ctx, input.LineID)
	if err != nil {
		return nil, cartResponse{}, h.mcpError(err)
	}
	return nil, h.newCartResponse(proj), nil
}

func (h *Handler) mcpClearCart(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input NoInput,
) (*mcp.CallToolResult, cartResponse, error) {
	proj, err := h.cart.ClearCart(ctx)
	if err != nil {
		return nil, cartResponse{}, h.mcpError(err)
	}
	return nil, h.newCartResponse(proj), nil
}

func (h *Handler) mcpGetCheckoutURL(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input NoInput,
) (*mcp.CallToolResult, URLOutput, error) {
	checkoutURL, ok := h.cart.CheckoutURL()
	if !ok {
		return nil, URLOutput{}, h.mcpError(model.NewCartEmptyError())
	}
	return nil, URLOutput{URL: checkoutURL}, nil
}

func (h *Handler) mcpTrackOrder(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input TrackOrderInput,
) (*mcp.CallToolResult, URLOutput, error) {
	statusURL, err := orderstatus.StatusURL(h.opts.ShopDomain, input.OrderNumber, input.Email)
	if err != nil {
		return nil, URLOutput{}, h.mcpError(err)
	}
	return nil, URLOutput{URL: statusURL}, nil
}

// mcpError converts storefront errors to MCP-friendly errors.
func (h *Handler) mcpError(err error) error {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s: %s", apiErr.Code, apiErr.Message)
	}
	// Don't leak internal error details
	h.logger.Error("mcp internal error", slog.String("error", err.Error()))
	return fmt.Errorf("internal error")
}
