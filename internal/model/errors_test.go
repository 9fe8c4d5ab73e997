package model

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAPIError_ErrorAndUnwrap(t *testing.T) {
	cause := errors.New("connection reset")

	tests := []struct {
		name       string
		err        *APIError
		wantString string
		wantCause  error
	}{
		{
			name:       "bare",
			err:        &APIError{Code: "CART_EMPTY", Message: "cart is empty"},
			wantString: "CART_EMPTY: cart is empty",
		},
		{
			name:       "with cause",
			err:        &APIError{Code: "UPSTREAM_ERROR", Message: "Shopify request failed", Err: cause},
			wantString: "UPSTREAM_ERROR: Shopify request failed (connection reset)",
			wantCause:  cause,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.wantString, tt.err.Error())
			require.Equal(t, tt.wantCause, tt.err.Unwrap())
		})
	}
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name       string
		err        *APIError
		wantCode   string
		wantStatus int
		sentinels  []error
	}{
		{"validation", NewValidationError("email", "must be valid"), "VALIDATION_ERROR", http.StatusBadRequest, []error{ErrInvalidRequest}},
		{"catalog unavailable", NewCatalogUnavailableError(nil), "CATALOG_UNAVAILABLE", http.StatusServiceUnavailable, []error{ErrCatalogUnavailable}},
		{"catalog unavailable with cause", NewCatalogUnavailableError(errors.New("timeout")), "CATALOG_UNAVAILABLE", http.StatusServiceUnavailable, []error{ErrCatalogUnavailable}},
		{"collection not found", NewCollectionNotFoundError("summer"), "COLLECTION_NOT_FOUND", http.StatusNotFound, []error{ErrCollectionNotFound}},
		{"cart creation", NewCartCreationError(errors.New("boom")), "CART_CREATION_FAILED", http.StatusBadGateway, []error{ErrCartCreationFailed}},
		{"cart operation", NewCartOperationError("", nil), "CART_OPERATION_FAILED", http.StatusUnprocessableEntity, []error{ErrCartOperationFailed}},
		{"cart not found", NewCartNotFoundError("gid://shopify/Cart/1"), "CART_NOT_FOUND", http.StatusNotFound, []error{ErrCartNotFound, ErrCartOperationFailed}},
		{"duplicate design", NewDuplicateDesignError("p1"), "DUPLICATE_CUSTOM_DESIGN", http.StatusConflict, []error{ErrDuplicateCustomDesign}},
		{"cart empty", NewCartEmptyError(), "CART_EMPTY", http.StatusConflict, []error{ErrCartEmpty}},
		{"upstream", NewUpstreamError("Shopify", errors.New("refused")), "UPSTREAM_ERROR", http.StatusBadGateway, []error{ErrUpstreamError}},
		{"internal", NewInternalError(errors.New("nil map")), "INTERNAL_ERROR", http.StatusInternalServerError, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.wantCode, tt.err.Code)
			require.Equal(t, tt.wantStatus, tt.err.StatusCode)
			require.NotEmpty(t, tt.err.Message)
			for _, s := range tt.sentinels {
				require.ErrorIs(t, tt.err, s)
			}
		})
	}
}

func TestConstructorMessages(t *testing.T) {
	require.Equal(t, "invalid variant_id: must not be empty", NewValidationError("variant_id", "must not be empty").Message)
	require.Equal(t, `collection "summer" not found`, NewCollectionNotFoundError("summer").Message)
	require.Equal(t, "cart operation failed", NewCartOperationError("", nil).Message)
	require.Equal(t, "Variant is sold out", NewCartOperationError("Variant is sold out", nil).Message)
}

func TestConstructorsKeepCause(t *testing.T) {
	require.ErrorIs(t, NewCartOperationError("", NewCartNotFoundError("c1")), ErrCartNotFound)

	cause := errors.New("nil map")
	require.Same(t, cause, NewInternalError(cause).Err)
}

func TestAPIError_As(t *testing.T) {
	wrapped := fmt.Errorf("adding line: %w", NewDuplicateDesignError("p1"))

	var apiErr *APIError
	require.ErrorAs(t, wrapped, &apiErr)
	require.Equal(t, "DUPLICATE_CUSTOM_DESIGN", apiErr.Code)
}
