package shopify

import (
	"log/slog"
	"net/http"
	"time"

	"storefront/internal/adapter"
	"storefront/internal/metrics"
)

// Config holds Shopify gateway configuration.
type Config struct {
	ShopDomain      string // e.g. "example.myshopify.com"
	StorefrontToken string // public Storefront API access token
	APIVersion      string // "YYYY-MM"; DefaultAPIVersion when empty
	Timeout         time.Duration

	// Optional
	Endpoint  string            // overrides the derived GraphQL URL
	Transport http.RoundTripper // defaults to transport.New without fingerprinting
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
}

// Adapter implements adapter.Gateway for Shopify stores.
type Adapter struct {
	client *Client
}

// New creates a Shopify gateway with the given configuration.
func New(cfg Config) (*Adapter, error) {
	client, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return &Adapter{client: client}, nil
}

// Verify Adapter implements Gateway interface at compile time.
var _ adapter.Gateway = (*Adapter)(nil)
