// Package config handles loading and validation of service configuration.
// Supports both development (env vars or CONFIG_FILE) and production
// (Storefront token from Secret Manager) modes.
package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"
)

// Defaults applied when a setting is absent.
const (
	DefaultPort            = "8080"
	DefaultAPIVersion      = "2025-01"
	DefaultRequestTimeout  = 10 * time.Second
	DefaultCatalogCacheTTL = 5 * time.Minute
	DefaultPageSize        = 8
	DefaultDesignAttribute = "Custom Design"
	DefaultTokenSecret     = "storefront-token"
)

// oldestAPIVersion is the oldest Storefront API version whose cart schema
// carries line attributes and merchandise product ids.
const oldestAPIVersion = "v2023.1.0"

// unstableAPIVersion is Shopify's rolling preview version.
const unstableAPIVersion = "unstable"

var apiVersionPattern = regexp.MustCompile(`^(\d{4})-(\d{2})$`)

// Config holds all service configuration.
// Environment determines whether the Storefront token loads from env vars
// (development) or Secret Manager (production).
type Config struct {
	// Server settings
	Port        string
	Environment string // "development" or "production"
	LogLevel    string // "debug", "info", "warn", "error"

	// GCP settings (required in production)
	GCPProject  string
	TokenSecret string

	Shop ShopConfig

	// StateFile persists the cart identity. Empty keeps it in memory.
	StateFile string

	RequestTimeout  time.Duration
	CatalogCacheTTL time.Duration
	PageSize        int
	DesignAttribute string
	TLSFingerprint  bool
}

// ShopConfig identifies the shop and its Storefront API access.
type ShopConfig struct {
	Domain          string `json:"shop_domain" yaml:"shop_domain"`
	StorefrontToken string `json:"storefront_token" yaml:"storefront_token"`
	APIVersion      string `json:"api_version" yaml:"api_version"`
}

// fileConfig is the CONFIG_FILE layout, shared by JSON and YAML.
type fileConfig struct {
	Port            string `json:"port" yaml:"port"`
	Environment     string `json:"environment" yaml:"environment"`
	LogLevel        string `json:"log_level" yaml:"log_level"`
	ShopDomain      string `json:"shop_domain" yaml:"shop_domain"`
	StorefrontToken string `json:"storefront_token" yaml:"storefront_token"`
	APIVersion      string `json:"api_version" yaml:"api_version"`
	StateFile       string `json:"state_file" yaml:"state_file"`
	RequestTimeout  string `json:"request_timeout" yaml:"request_timeout"`
	CatalogCacheTTL string `json:"catalog_cache_ttl" yaml:"catalog_cache_ttl"`
	PageSize        int    `json:"page_size" yaml:"page_size"`
	DesignAttribute string `json:"design_attribute" yaml:"design_attribute"`
	TLSFingerprint  bool   `json:"tls_fingerprint" yaml:"tls_fingerprint"`
}

// accessSecret reads a Secret Manager secret version. Replaced in tests.
var accessSecret = accessSecretVersion

// Load reads configuration from file, environment, or Secret Manager.
// Priority: CONFIG_FILE (if set) → ENV vars / Secret Manager.
// Validates all required fields and returns an error if any are missing.
func Load(ctx context.Context) (*Config, error) {
	if configPath := os.Getenv("CONFIG_FILE"); configPath != "" {
		return LoadFile(configPath)
	}

	cfg := &Config{
		Port:            envOrDefault("PORT", DefaultPort),
		Environment:     envOrDefault("ENVIRONMENT", "development"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		GCPProject:      os.Getenv("GCP_PROJECT"),
		TokenSecret:     envOrDefault("STOREFRONT_TOKEN_SECRET", DefaultTokenSecret),
		StateFile:       os.Getenv("STATE_FILE"),
		DesignAttribute: envOrDefault("DESIGN_ATTRIBUTE", DefaultDesignAttribute),
		Shop: ShopConfig{
			Domain:     os.Getenv("SHOP_DOMAIN"),
			APIVersion: envOrDefault("API_VERSION", DefaultAPIVersion),
		},
	}

	var err error
	if cfg.RequestTimeout, err = envDuration("REQUEST_TIMEOUT", DefaultRequestTimeout); err != nil {
		return nil, err
	}
	if cfg.CatalogCacheTTL, err = envDuration("CATALOG_CACHE_TTL", DefaultCatalogCacheTTL); err != nil {
		return nil, err
	}
	if cfg.PageSize, err = envInt("PAGE_SIZE", DefaultPageSize); err != nil {
		return nil, err
	}
	if cfg.TLSFingerprint, err = envBool("TLS_FINGERPRINT", false); err != nil {
		return nil, err
	}

	if cfg.Environment == "production" {
		if cfg.GCPProject == "" {
			return nil, fmt.Errorf("GCP_PROJECT required in production environment")
		}
		if err := cfg.loadTokenFromSecretManager(ctx); err != nil {
			return nil, fmt.Errorf("loading storefront token: %w", err)
		}
	} else {
		cfg.Shop.StorefrontToken = os.Getenv("STOREFRONT_TOKEN")
	}

	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads all configuration from a JSON or YAML file, chosen by
// extension (.yaml/.yml → YAML, anything else → JSON).
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var fc fileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &fc)
	default:
		err = json.Unmarshal(data, &fc)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg := &Config{
		Port:            withDefault(fc.Port, DefaultPort),
		Environment:     withDefault(fc.Environment, "development"),
		LogLevel:        withDefault(fc.LogLevel, "info"),
		StateFile:       fc.StateFile,
		PageSize:        fc.PageSize,
		DesignAttribute: withDefault(fc.DesignAttribute, DefaultDesignAttribute),
		TLSFingerprint:  fc.TLSFingerprint,
		Shop: ShopConfig{
			Domain:          fc.ShopDomain,
			StorefrontToken: fc.StorefrontToken,
			APIVersion:      withDefault(fc.APIVersion, DefaultAPIVersion),
		},
	}
	if cfg.PageSize == 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.RequestTimeout, err = parseDuration("request_timeout", fc.RequestTimeout, DefaultRequestTimeout); err != nil {
		return nil, err
	}
	if cfg.CatalogCacheTTL, err = parseDuration("catalog_cache_ttl", fc.CatalogCacheTTL, DefaultCatalogCacheTTL); err != nil {
		return nil, err
	}

	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadTokenFromSecretManager fetches the Storefront token.
// Secret name format: projects/{project}/secrets/{secret}/versions/latest
func (c *Config) loadTokenFromSecretManager(ctx context.Context) error {
	secretName := fmt.Sprintf("projects/%s/secrets/%s/versions/latest",
		c.GCPProject, c.TokenSecret)

	data, err := accessSecret(ctx, secretName)
	if err != nil {
		return err
	}
	c.Shop.StorefrontToken = strings.TrimSpace(string(data))
	return nil
}

func accessSecretVersion(ctx context.Context, name string) ([]byte, error) {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating secret manager client: %w", err)
	}
	defer client.Close()

	result, err := client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: name,
	})
	if err != nil {
		return nil, fmt.Errorf("accessing secret %s: %w", name, err)
	}
	return result.Payload.Data, nil
}

// normalize strips a scheme or trailing path from the shop domain.
func (c *Config) normalize() {
	c.Shop.Domain = extractDomain(strings.TrimSpace(c.Shop.Domain))
}

// validate checks that all required configuration fields are present.
func (c *Config) validate() error {
	if c.Shop.Domain == "" {
		return fmt.Errorf("shop_domain is required")
	}
	if c.Shop.StorefrontToken == "" {
		return fmt.Errorf("storefront_token is required")
	}
	if err := ValidateAPIVersion(c.Shop.APIVersion); err != nil {
		return err
	}
	if c.Environment != "development" && c.Environment != "production" {
		return fmt.Errorf("environment must be development or production, got %q", c.Environment)
	}
	if c.PageSize < 1 {
		return fmt.Errorf("page_size must be at least 1, got %d", c.PageSize)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %s", c.RequestTimeout)
	}
	return nil
}

// ValidateAPIVersion checks a Storefront API version of the form YYYY-MM
// (or "unstable") against the oldest supported release.
func ValidateAPIVersion(version string) error {
	if version == unstableAPIVersion {
		return nil
	}
	v, ok := semverFromAPIVersion(version)
	if !ok {
		return fmt.Errorf("api_version %q must have the form YYYY-MM", version)
	}
	if semver.Compare(v, oldestAPIVersion) < 0 {
		return fmt.Errorf("api_version %s is older than the oldest supported version 2023-01", version)
	}
	return nil
}

// semverFromAPIVersion maps "2025-01" to "v2025.1.0".
func semverFromAPIVersion(version string) (string, bool) {
	m := apiVersionPattern.FindStringSubmatch(version)
	if m == nil {
		return "", false
	}
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	if month < 1 || month > 12 {
		return "", false
	}
	v := fmt.Sprintf("v%d.%d.0", year, month)
	return v, semver.IsValid(v)
}

// extractDomain returns the host of a URL, or the input up to the first
// slash when it carries no scheme.
func extractDomain(s string) string {
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	return strings.Split(s, "/")[0]
}

// withDefault returns val if non-empty, otherwise defaultVal.
func withDefault(val, defaultVal string) string {
	if val != "" {
		return val
	}
	return defaultVal
}

// envOrDefault returns the environment variable value or the default if not set.
func envOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func envDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	return parseDuration(key, os.Getenv(key), defaultVal)
}

func parseDuration(name, raw string, defaultVal time.Duration) (time.Duration, error) {
	if raw == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", name, err)
	}
	return d, nil
}

func envInt(key string, defaultVal int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	return n, nil
}

func envBool(key string, defaultVal bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("parsing %s: %w", key, err)
	}
	return b, nil
}
