// Package catalog talks to the backend catalog service: login, brand
// and identifier listings, and the upsert/create reconciliation
// protocol. The Client is a thin HTTP surface; token lifecycle lives
// in SessionManager.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/celltrack/crawler/internal/models"
)

// Credentials is the access/refresh token pair issued at login. Empty
// strings mean unauthenticated.
type Credentials struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Client issues raw catalog API calls. Every method takes the bearer
// token explicitly; use SessionManager for transparent refresh.
type Client struct {
	baseURL string
	vendor  string
	http    *http.Client
	logger  zerolog.Logger
}

// NewClient creates a catalog client for one vendor namespace
// (e.g. "amazon").
func NewClient(baseURL, vendor string, httpClient *http.Client, logger zerolog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL: baseURL,
		vendor:  vendor,
		http:    httpClient,
		logger:  logger.With().Str("component", "catalog").Logger(),
	}
}

// statusBody is the error/status envelope the backend mixes into every
// response body.
type statusBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

func (c *Client) doJSON(ctx context.Context, method, path, token string, body, out any) error {
	var payload io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("catalog: encode %s %s: %w", method, path, err)
		}
		payload = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return fmt.Errorf("catalog: build %s %s: %w", method, path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("catalog: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("catalog: read %s %s: %w", method, path, err)
	}

	var status statusBody
	if err := json.Unmarshal(raw, &status); err != nil {
		return fmt.Errorf("catalog: decode %s %s (http %d): %w", method, path, resp.StatusCode, err)
	}
	if status.Error != "" {
		return &APIError{Kind: status.Error, Message: status.Message, StatusCode: resp.StatusCode}
	}
	if status.Status == "Unauthorized" {
		return fmt.Errorf("%w: %s", ErrInvalidCredentials, status.Status)
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("catalog: decode %s %s: %w", method, path, err)
		}
	}
	return nil
}

// Login exchanges credentials for a token pair. An unauthorized
// response yields ErrInvalidCredentials and an empty pair.
func (c *Client) Login(ctx context.Context, email, password string) (Credentials, error) {
	body := map[string]string{"email": email, "password": password}
	var creds Credentials
	if err := c.doJSON(ctx, http.MethodPost, "/api/login", "", body, &creds); err != nil {
		return Credentials{}, err
	}
	if creds.AccessToken == "" {
		return Credentials{}, fmt.Errorf("%w: empty token in login response", ErrInvalidCredentials)
	}
	c.logger.Info().Msg("login succeeded")
	return creds, nil
}

// Brands returns the brand list the backend tracks for this vendor.
func (c *Client) Brands(ctx context.Context, token string) ([]string, error) {
	var out struct {
		Brands []string `json:"brands"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/brands/"+c.vendor, token, nil, &out); err != nil {
		return nil, err
	}
	return out.Brands, nil
}

// ExistingIdentifiers returns the identifiers the backend already
// knows, used to skip re-discovery.
func (c *Client) ExistingIdentifiers(ctx context.Context, token string) ([]string, error) {
	var out struct {
		Identifiers []string `json:"asins"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/products/"+c.vendor+"/id", token, nil, &out); err != nil {
		return nil, err
	}
	return out.Identifiers, nil
}

// Upsert PUTs a record batch; the backend answers with the subset of
// identifiers it does not recognize and expects created via Create.
func (c *Client) Upsert(ctx context.Context, token string, records []models.ProductRecord) ([]string, error) {
	var out struct {
		ToCreate []string `json:"to_create"`
	}
	if err := c.doJSON(ctx, http.MethodPut, "/api/products/"+c.vendor, token, records, &out); err != nil {
		return nil, err
	}
	return out.ToCreate, nil
}

// Create POSTs the records the backend asked for after an upsert.
func (c *Client) Create(ctx context.Context, token string, records []models.ProductRecord) error {
	return c.doJSON(ctx, http.MethodPost, "/api/products/"+c.vendor, token, records, nil)
}
