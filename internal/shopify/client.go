package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"storefront/internal/metrics"
	"storefront/internal/model"
	"storefront/internal/transport"
)

// =============================================================================
// STOREFRONT API CLIENT
// =============================================================================
//
// All operations are POSTs of a GraphQL document to a single endpoint:
//   https://{shop}/api/{version}/graphql.json
//
// Failures come in three layers and each is converted here:
//   1. Transport (dial, timeout)         → UPSTREAM_ERROR
//   2. HTTP status >= 400                → UPSTREAM_ERROR with status
//   3. Top-level GraphQL "errors" array  → UPSTREAM_ERROR with messages
// Mutation userErrors are domain outcomes and are handled by the adapter.
// =============================================================================

const (
	// DefaultAPIVersion is the Storefront API version used when none is configured.
	DefaultAPIVersion = "2025-01"

	// DefaultTimeout bounds every outbound call.
	DefaultTimeout = 10 * time.Second

	tokenHeader     = "X-Shopify-Storefront-Access-Token"
	userAgent       = "Storefront/1.0"
	maxResponseSize = 4 << 20
)

// Client is the Storefront GraphQL HTTP client.
type Client struct {
	httpClient *http.Client
	endpoint   string
	token      string
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// NewClient creates a Storefront API client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		if cfg.ShopDomain == "" {
			return nil, fmt.Errorf("shop domain is required")
		}
		version := cfg.APIVersion
		if version == "" {
			version = DefaultAPIVersion
		}
		cfg.Endpoint = fmt.Sprintf("https://%s/api/%s/graphql.json", cfg.ShopDomain, version)
	}
	if cfg.StorefrontToken == "" {
		return nil, fmt.Errorf("storefront access token is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	rt := cfg.Transport
	if rt == nil {
		rt = transport.New(transport.Options{Timeout: timeout, UserAgent: userAgent})
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Client{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: rt,
		},
		endpoint: cfg.Endpoint,
		token:    cfg.StorefrontToken,
		metrics:  cfg.Metrics,
		logger:   logger,
	}, nil
}

// Endpoint returns the GraphQL endpoint URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// execute runs one GraphQL operation and decodes its data into T.
// Generic helpers cannot be methods, hence the explicit client argument.
func execute[T any](ctx context.Context, c *Client, operation, query string, variables map[string]any) (T, error) {
	var zero T
	start := time.Now()

	req, err := c.newRequest(ctx, &GraphQLRequest{
		Query:         query,
		OperationName: operation,
		Variables:     variables,
	})
	if err != nil {
		c.metrics.ObserveGatewayCall(operation, err, time.Since(start))
		return zero, fmt.Errorf("creating %s request: %w", operation, err)
	}

	var resp GraphQLResponse[T]
	err = c.do(req, &resp)
	if err == nil && len(resp.Errors) > 0 {
		err = graphQLError(resp.Errors)
	}
	c.metrics.ObserveGatewayCall(operation, err, time.Since(start))
	if err != nil {
		c.logger.Debug("storefront call failed",
			slog.String("operation", operation),
			slog.String("error", err.Error()),
		)
		return zero, err
	}
	return resp.Data, nil
}

// === HTTP Helpers ===

// newRequest creates an authenticated GraphQL POST.
func (c *Client) newRequest(ctx context.Context, body *GraphQLRequest) (*http.Request, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(tokenHeader, c.token)

	return req, nil
}

// do executes the request and decodes the response.
func (c *Client) do(req *http.Request, result interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.NewUpstreamError("Shopify", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return model.NewUpstreamError("Shopify", fmt.Errorf("reading response: %w", err))
	}

	if resp.StatusCode >= 400 {
		return c.parseError(resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, result); err != nil {
		return model.NewUpstreamError("Shopify", fmt.Errorf("parsing response: %w", err))
	}

	return nil
}

// parseError converts non-2xx responses to model.APIError.
// The Storefront API answers errors with either a GraphQL envelope or plain text.
func (c *Client) parseError(statusCode int, body []byte) error {
	var envelope GraphQLResponse[json.RawMessage]
	msg := ""
	if json.Unmarshal(body, &envelope) == nil && len(envelope.Errors) > 0 {
		msg = envelope.Errors[0].Message
	} else {
		msg = strings.TrimSpace(string(body))
		if len(msg) > 200 {
			msg = msg[:200]
		}
	}

	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return model.NewUpstreamError("Shopify",
			fmt.Errorf("status %d: storefront token rejected", statusCode))
	case http.StatusTooManyRequests:
		return model.NewUpstreamError("Shopify", fmt.Errorf("status %d: throttled", statusCode))
	default:
		return model.NewUpstreamError("Shopify", fmt.Errorf("status %d: %s", statusCode, msg))
	}
}

// graphQLError folds top-level GraphQL errors into one upstream error.
func graphQLError(errs []GraphQLError) error {
	messages := make([]string, 0, len(errs))
	for _, e := range errs {
		messages = append(messages, e.Message)
	}
	return model.NewUpstreamError("Shopify", fmt.Errorf("graphql: %s", strings.Join(messages, "; ")))
}
