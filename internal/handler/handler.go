// Package handler provides HTTP handlers for the storefront API.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"storefront/internal/catalog"
	"storefront/internal/model"
)

// Cart is the cart surface the handlers drive.
type Cart interface {
	AddLine(ctx context.Context, intent model.LineIntent) (model.Projection, error)
	RemoveLine(ctx context.Context, lineID string) (model.Projection, error)
	ClearCart(ctx context.Context) (model.Projection, error)
	RefreshFromServer(ctx context.Context) model.Projection
	Projection() model.Projection
	CheckoutURL() (string, bool)
	OnCartChanged(fn func(model.Projection)) func()
}

// Locks exposes the per-product custom design locks.
type Locks interface {
	IsLocked(productID string) bool
	Snapshot() []model.UploadLock
	OnLockChanged(fn func(productID string, locked bool)) func()
}

// Catalog is the read side of the shop.
type Catalog interface {
	ListCollections(ctx context.Context) ([]model.Collection, error)
	ListProducts(ctx context.Context, handle string) ([]model.Product, error)
	ListAllProducts(ctx context.Context) ([]model.Product, error)
}

// Options configures a Handler.
type Options struct {
	ShopDomain string
	PageSize   int

	// Gatherer backs GET /metrics. Nil leaves the route unregistered.
	Gatherer prometheus.Gatherer
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	cart    Cart
	locks   Locks
	catalog Catalog
	opts    Options
	logger  *slog.Logger
}

// New creates a new Handler.
func New(cart Cart, locks Locks, cat Catalog, opts Options, logger *slog.Logger) *Handler {
	if opts.PageSize < 1 {
		opts.PageSize = catalog.DefaultPageSize
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{
		cart:    cart,
		locks:   locks,
		catalog: cat,
		opts:    opts,
		logger:  logger,
	}
}

// RegisterRoutes registers all HTTP routes with the given ServeMux.
// Uses Go 1.22+ method routing patterns.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Catalog
	mux.HandleFunc("GET /collections", h.handleListCollections)
	mux.HandleFunc("GET /collections/{handle}/products", h.handleListProducts)
	mux.HandleFunc("GET /products", h.handleListAllProducts)

	// Cart
	mux.HandleFunc("GET /cart", h.handleGetCart)
	mux.HandleFunc("POST /cart/lines", h.handleAddLine)
	mux.HandleFunc("DELETE /cart/lines/{id}", h.handleRemoveLine)
	mux.HandleFunc("POST /cart/clear", h.handleClearCart)
	mux.HandleFunc("POST /cart/refresh", h.handleRefreshCart)
	mux.HandleFunc("GET /events", h.handleEvents)

	// Handoff to hosted pages
	mux.HandleFunc("GET /checkout", h.handleCheckout)
	mux.HandleFunc("GET /orders/status", h.handleOrderStatus)

	// MCP transport - JSON-RPC endpoint using official MCP SDK
	mux.Handle("/mcp", h.NewMCPHandler())

	if h.opts.Gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(h.opts.Gatherer, promhttp.HandlerOpts{}))
	}

	// Health check
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("GET /healthz", h.handleHealth)
}

// handleHealth returns a simple health check response.
// GET /health, GET /healthz
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

type healthResponse struct {
	Status string `json:"status"`
}

// === Response Helpers ===

// writeJSON sends a JSON response with the given status code.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// writeError sends an error response, extracting status/code from APIError if present.
// Uses errors.As() to unwrap error chains (e.g., fmt.Errorf wrapping).
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	apiErr := asAPIError(err)
	if apiErr.StatusCode >= http.StatusInternalServerError {
		h.logger.Error("request failed", slog.String("error", err.Error()))
	}

	h.writeJSON(w, apiErr.StatusCode, errorResponse{
		Error: errorBody{
			Code:    apiErr.Code,
			Message: apiErr.Message,
		},
	})
}

// asAPIError finds the APIError in err's chain, or wraps err as internal.
func asAPIError(err error) *model.APIError {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return model.NewInternalError(err)
}

// errorResponse is the JSON structure for error responses.
type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MaxRequestBodySize limits JSON request bodies to 1MB to prevent DoS.
const MaxRequestBodySize = 1 << 20 // 1MB

// decodeJSON reads JSON from request body into v.
// Limits body size to MaxRequestBodySize to prevent memory exhaustion.
// Returns an APIError if decoding fails.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		// Don't expose internal error details to client
		return model.NewValidationError("body", "invalid JSON")
	}
	return nil
}

// pageParam reads the 1-based ?page= query parameter. Absent means 1.
func pageParam(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("page")
	if raw == "" {
		return 1, nil
	}
	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 {
		return 0, model.NewValidationError("page", "must be a positive integer")
	}
	return page, nil
}
