package model

import (
	"errors"
	"fmt"
)

// Sentinel errors for the storefront failure taxonomy.
// Use errors.Is() to check against these.
var (
	ErrInvalidRequest        = errors.New("invalid request")
	ErrCatalogUnavailable    = errors.New("catalog unavailable")
	ErrCollectionNotFound    = errors.New("collection not found")
	ErrCartCreationFailed    = errors.New("cart creation failed")
	ErrCartOperationFailed   = errors.New("cart operation failed")
	ErrCartNotFound          = errors.New("cart not found")
	ErrDuplicateCustomDesign = errors.New("duplicate custom design")
	ErrCartEmpty             = errors.New("cart empty")
	ErrUpstreamError         = errors.New("upstream error")
)

// APIError represents a structured error for API responses.
// Implements error interface and supports unwrapping.
type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"` // HTTP status, not serialized
	Err        error  `json:"-"` // Wrapped error, not serialized
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// wrap joins a sentinel with an optional cause so errors.Is matches both.
func wrap(sentinel, cause error) error {
	if cause == nil {
		return sentinel
	}
	return fmt.Errorf("%w: %w", sentinel, cause)
}

// NewValidationError creates a 400 error for invalid input.
func NewValidationError(field, reason string) *APIError {
	return &APIError{
		Code:       "VALIDATION_ERROR",
		Message:    fmt.Sprintf("invalid %s: %s", field, reason),
		StatusCode: 400,
		Err:        ErrInvalidRequest,
	}
}

// NewCatalogUnavailableError creates a 503 error when collections or products
// cannot be fetched.
func NewCatalogUnavailableError(err error) *APIError {
	return &APIError{
		Code:       "CATALOG_UNAVAILABLE",
		Message:    "catalog is currently unavailable",
		StatusCode: 503,
		Err:        wrap(ErrCatalogUnavailable, err),
	}
}

// NewCollectionNotFoundError creates a 404 error for an unknown collection handle.
func NewCollectionNotFoundError(handle string) *APIError {
	return &APIError{
		Code:       "COLLECTION_NOT_FOUND",
		Message:    fmt.Sprintf("collection %q not found", handle),
		StatusCode: 404,
		Err:        ErrCollectionNotFound,
	}
}

// NewCartCreationError creates a 502 error when the remote refuses to create a cart.
func NewCartCreationError(err error) *APIError {
	return &APIError{
		Code:       "CART_CREATION_FAILED",
		Message:    "could not create cart",
		StatusCode: 502,
		Err:        wrap(ErrCartCreationFailed, err),
	}
}

// NewCartOperationError creates a 422 error for a rejected cart mutation or query.
// message is shown to the user, so pass the remote's user-facing text when available.
func NewCartOperationError(message string, err error) *APIError {
	if message == "" {
		message = "cart operation failed"
	}
	return &APIError{
		Code:       "CART_OPERATION_FAILED",
		Message:    message,
		StatusCode: 422,
		Err:        wrap(ErrCartOperationFailed, err),
	}
}

// NewCartNotFoundError reports that the referenced cart no longer exists remotely.
// Matches both ErrCartNotFound and ErrCartOperationFailed.
func NewCartNotFoundError(cartID string) *APIError {
	return &APIError{
		Code:       "CART_NOT_FOUND",
		Message:    fmt.Sprintf("cart %s does not exist", cartID),
		StatusCode: 404,
		Err:        wrap(ErrCartNotFound, ErrCartOperationFailed),
	}
}

// NewDuplicateDesignError creates a 409 error when a product already carries
// a custom design line in the cart.
func NewDuplicateDesignError(productID string) *APIError {
	return &APIError{
		Code:       "DUPLICATE_CUSTOM_DESIGN",
		Message:    "a custom design for this product is already in the cart; remove it before adding another",
		StatusCode: 409,
		Err:        fmt.Errorf("%w: product %s", ErrDuplicateCustomDesign, productID),
	}
}

// NewCartEmptyError creates a 409 error when checkout is requested for an empty cart.
func NewCartEmptyError() *APIError {
	return &APIError{
		Code:       "CART_EMPTY",
		Message:    "cart is empty",
		StatusCode: 409,
		Err:        ErrCartEmpty,
	}
}

// NewUpstreamError creates a 502 error for backend failures.
func NewUpstreamError(service string, err error) *APIError {
	return &APIError{
		Code:       "UPSTREAM_ERROR",
		Message:    fmt.Sprintf("%s request failed", service),
		StatusCode: 502,
		Err:        fmt.Errorf("%w: %v", ErrUpstreamError, err),
	}
}

// NewInternalError creates a 500 error for unexpected failures.
func NewInternalError(err error) *APIError {
	return &APIError{
		Code:       "INTERNAL_ERROR",
		Message:    "an internal error occurred",
		StatusCode: 500,
		Err:        err,
	}
}
