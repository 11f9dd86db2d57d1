// Package commercetools is a typed client for the commerce platform's
// HTTP API, scoped to the resources the multi-address cart walkthrough
// touches: product types, tax categories, products, and carts.
//
// Authentication is OAuth2 client-credentials. The token source from
// golang.org/x/oauth2 owns caching and refresh; callers never see the
// token string. Every mutation carries the resource's current version and
// the platform rejects stale ones, so callers must thread the version
// returned by each response into the next request.
package commercetools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"multiship/internal/model"
	"multiship/internal/transport"
)

const (
	pathProductTypes  = "/product-types"
	pathTaxCategories = "/tax-categories"
	pathProducts      = "/products"
	pathCarts         = "/carts"

	userAgent      = "multiship/1.0"
	requestTimeout = 30 * time.Second
)

// Config holds client construction parameters.
type Config struct {
	APIURL       string
	ProjectKey   string
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scope        string

	Logger *slog.Logger

	// HTTPClient overrides the OAuth-wired client. Used by tests to point
	// at a local fake without a token endpoint.
	HTTPClient *http.Client
}

// Client is the platform API HTTP client.
type Client struct {
	httpClient *http.Client
	apiURL     string
	projectKey string
}

// New creates a platform client. Unless overridden, requests go through a
// browser-fingerprint TLS transport with per-request logging, wrapped by
// an OAuth2 client-credentials token source.
func New(cfg Config) (*Client, error) {
	if cfg.APIURL == "" {
		return nil, model.NewConfigError("api_url", "is required")
	}
	if cfg.ProjectKey == "" {
		return nil, model.NewConfigError("project_key", "is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.TokenURL == "" {
			return nil, model.NewConfigError("credentials", "client_id, client_secret and token URL are required")
		}

		base := &http.Client{
			Timeout:   requestTimeout,
			Transport: transport.Logging(logger, transport.NewBrowserTransport(requestTimeout)),
		}

		cc := &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
		}
		if cfg.Scope != "" {
			cc.Scopes = []string{cfg.Scope}
		}

		// Token requests reuse the same base transport.
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
		httpClient = cc.Client(ctx)
		httpClient.Timeout = requestTimeout
	}

	return &Client{
		httpClient: httpClient,
		apiURL:     cfg.APIURL,
		projectKey: cfg.ProjectKey,
	}, nil
}

// === Catalogue setup ===

// CreateProductType creates a product type.
func (c *Client) CreateProductType(ctx context.Context, draft ProductTypeDraft) (*ProductType, json.RawMessage, error) {
	var out ProductType
	raw, err := c.post(ctx, pathProductTypes, draft, &out)
	if err != nil {
		return nil, nil, fmt.Errorf("creating product type: %w", err)
	}
	if out.ID == "" {
		return nil, nil, model.NewExtractionError("product type id")
	}
	return &out, raw, nil
}

// CreateTaxCategory creates a tax category.
func (c *Client) CreateTaxCategory(ctx context.Context, draft TaxCategoryDraft) (*TaxCategory, json.RawMessage, error) {
	var out TaxCategory
	raw, err := c.post(ctx, pathTaxCategories, draft, &out)
	if err != nil {
		return nil, nil, fmt.Errorf("creating tax category: %w", err)
	}
	if out.ID == "" {
		return nil, nil, model.NewExtractionError("tax category id")
	}
	return &out, raw, nil
}

// CreateProduct creates (and optionally publishes) a product.
func (c *Client) CreateProduct(ctx context.Context, draft ProductDraft) (*Product, json.RawMessage, error) {
	var out Product
	raw, err := c.post(ctx, pathProducts, draft, &out)
	if err != nil {
		return nil, nil, fmt.Errorf("creating product: %w", err)
	}
	if out.ID == "" {
		return nil, nil, model.NewExtractionError("product id")
	}
	return &out, raw, nil
}

// === Carts ===

// CreateCart creates an empty cart. The returned version seeds the
// optimistic-concurrency handle for all following mutations.
func (c *Client) CreateCart(ctx context.Context, draft CartDraft) (*Cart, json.RawMessage, error) {
	var out Cart
	raw, err := c.post(ctx, pathCarts, draft, &out)
	if err != nil {
		return nil, nil, fmt.Errorf("creating cart: %w", err)
	}
	if out.ID == "" {
		return nil, nil, model.NewExtractionError("cart id")
	}
	return &out, raw, nil
}

// GetCart retrieves a cart by id.
func (c *Client) GetCart(ctx context.Context, id string) (*Cart, json.RawMessage, error) {
	req, err := c.newRequest(ctx, http.MethodGet, pathCarts+"/"+id, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("creating get cart request: %w", err)
	}

	var out Cart
	raw, err := c.do(req, &out)
	if err != nil {
		return nil, nil, fmt.Errorf("getting cart %s: %w", id, err)
	}
	return &out, raw, nil
}

// UpdateCart applies update actions to a cart. version must be the value
// most recently observed for the cart; the platform responds with the
// full updated cart carrying the new version, or 409 on a stale one.
func (c *Client) UpdateCart(ctx context.Context, id string, version int64, actions []CartUpdateAction) (*Cart, json.RawMessage, error) {
	body := CartUpdate{Version: version, Actions: actions}

	req, err := c.newRequest(ctx, http.MethodPost, pathCarts+"/"+id, body)
	if err != nil {
		return nil, nil, fmt.Errorf("creating update cart request: %w", err)
	}

	var out Cart
	raw, err := c.do(req, &out)
	if err != nil {
		return nil, nil, fmt.Errorf("updating cart %s: %w", id, err)
	}
	if out.Version == 0 {
		return nil, nil, model.NewExtractionError("cart version")
	}
	return &out, raw, nil
}

// DeleteCart removes a cart. Used for cleanup after a run.
func (c *Client) DeleteCart(ctx context.Context, id string, version int64) error {
	path := pathCarts + "/" + id + "?version=" + strconv.FormatInt(version, 10)

	req, err := c.newRequest(ctx, http.MethodDelete, path, nil)
	if err != nil {
		return fmt.Errorf("creating delete cart request: %w", err)
	}

	if _, err := c.do(req, nil); err != nil {
		return fmt.Errorf("deleting cart %s: %w", id, err)
	}
	return nil
}

// === HTTP helpers ===

// post creates a resource and decodes the response.
func (c *Client) post(ctx context.Context, path string, body, result interface{}) (json.RawMessage, error) {
	req, err := c.newRequest(ctx, http.MethodPost, path, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	return c.do(req, result)
}

// newRequest creates an HTTP request addressed by project key.
// The OAuth transport injects the Authorization header.
func (c *Client) newRequest(ctx context.Context, method, path string, body interface{}) (*http.Request, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	url := c.apiURL + "/" + c.projectKey + path
	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	return req, nil
}

// do executes the request, decodes the response, and returns the raw body
// so callers can record it as a snapshot.
func (c *Client) do(req *http.Request, result interface{}) (json.RawMessage, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			return nil, model.NewAuthError(fmt.Sprintf("token endpoint rejected credentials: %s", retrieveErr.Response.Status))
		}
		return nil, model.NewUpstreamError("platform", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, c.parseError(resp.StatusCode, body)
	}

	if result != nil && len(body) > 0 {
		if err := json.Unmarshal(body, result); err != nil {
			return nil, fmt.Errorf("parsing response: %w", err)
		}
	}

	return json.RawMessage(body), nil
}

// parseError converts platform error envelopes to model.APIError.
func (c *Client) parseError(statusCode int, body []byte) error {
	var pe platformError
	json.Unmarshal(body, &pe) // Best effort parse

	msg := pe.Message
	switch statusCode {
	case 401:
		if msg == "" {
			msg = "platform authentication failed"
		}
		return model.NewAuthError(msg)
	case 403:
		if msg == "" {
			msg = "platform access denied"
		}
		return model.NewAuthError(msg)
	case 404:
		return model.NewNotFoundError("resource")
	case 409:
		var current int64
		for _, e := range pe.Errors {
			if e.Code == "ConcurrentModification" {
				current = e.CurrentVersion
			}
		}
		return model.NewConflictError("resource", current)
	case 400:
		if msg == "" {
			msg = "invalid request"
		}
		return model.NewValidationError(msg)
	default:
		return model.NewUpstreamError("platform",
			fmt.Errorf("status %d: %s", statusCode, msg))
	}
}
