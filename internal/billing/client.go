package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"nerdops/internal/logging"

	"github.com/google/uuid"
)

// BalancePath is appended to the configured base URL.
const BalancePath = "/v1/credits/balance"

// maxBodyBytes caps how much of a response body is read, error pages included.
const maxBodyBytes = 1 << 20

// Field names the balance endpoint may report cents under, in priority order.
var balanceFields = []string{"balance_cents", "credits_cents"}

// ClientConfig holds configuration for the billing client.
type ClientConfig struct {
	APIKey     string
	BaseURL    string
	AuthScheme string        // Prefix for the Authorization header; empty sends the raw key
	Timeout    time.Duration // Zero means no client-side timeout
}

// Client fetches the credits balance from the billing API.
type Client struct {
	apiKey     string
	baseURL    string
	authScheme string
	httpClient *http.Client
}

// NewClient creates a new billing client.
func NewClient(config ClientConfig) *Client {
	return &Client{
		apiKey:     config.APIKey,
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		authScheme: config.AuthScheme,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Endpoint returns the full balance URL.
func (c *Client) Endpoint() string {
	return c.baseURL + BalancePath
}

// APIKey returns the credential the client authenticates with.
func (c *Client) APIKey() string {
	return c.apiKey
}

// Close releases idle connections held by the underlying transport.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// Balance is the decoded credits balance.
type Balance struct {
	Cents int64
	Field string // JSON field the value came from; empty when defaulted to zero
}

// StatusError is returned when the API answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API request failed with status %d: %s", e.StatusCode, e.Body)
}

// FetchBalance issues one GET against the balance endpoint.
func (c *Client) FetchBalance(ctx context.Context) (*Balance, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("API key not configured")
	}

	requestID := uuid.NewString()
	log := logging.WithRequestID(logging.CategoryBilling, requestID)
	timer := logging.StartTimer(logging.CategoryBilling, "FetchBalance")
	defer timer.Stop()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Endpoint(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", c.authorization())
	req.Header.Set("X-Request-ID", requestID)

	log.Debug("GET %s", req.URL.Redacted())
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Warn("balance request returned status %d", resp.StatusCode)
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			Status:     http.StatusText(resp.StatusCode),
			Body:       string(body),
		}
	}

	balance, err := parseBalance(body)
	if err != nil {
		return nil, err
	}
	log.Debug("balance decoded: %d cents (field=%q)", balance.Cents, balance.Field)
	return balance, nil
}

func (c *Client) authorization() string {
	if c.authScheme == "" {
		return c.apiKey
	}
	return c.authScheme + " " + c.apiKey
}

// parseBalance reads the first present cents field. Absent and null fields are skipped.
func parseBalance(body []byte) (*Balance, error) {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if payload == nil {
		return nil, fmt.Errorf("failed to parse response: expected a JSON object")
	}

	for _, field := range balanceFields {
		raw, ok := payload[field]
		if !ok || string(raw) == "null" {
			continue
		}
		cents, err := parseCents(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", field, err)
		}
		return &Balance{Cents: cents, Field: field}, nil
	}

	return &Balance{}, nil
}

func parseCents(raw json.RawMessage) (int64, error) {
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, err
	}
	if i, err := n.Int64(); err == nil {
		return i, nil
	}
	f, err := n.Float64()
	if err != nil {
		return 0, err
	}
	f = math.Round(f)
	// float64(math.MaxInt64) rounds up to 2^63, which is itself out of range.
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, fmt.Errorf("value out of range: %s", n)
	}
	return int64(f), nil
}
