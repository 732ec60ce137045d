// Package processor is the HTTP client for the external payment processor's
// invoice API.
package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	jmespath "github.com/jmespath-community/go-jmespath"

	apperrors "github.com/subsentry/subsentry-api/internal/errors"
)

// DefaultAmountExpr extracts the settled amount from the processor's invoice
// payload. Newer API versions nest it under payment; older ones keep it at
// the top level.
const DefaultAmountExpr = "payment.amount_sats || amount_sats"

// Config captures how to reach the processor API.
type Config struct {
	BaseURL    string
	APIKey     string
	AmountExpr string
	Timeout    time.Duration
	Client     *http.Client
}

// Client fetches settled invoice details over HTTP.
type Client struct {
	baseURL    string
	apiKey     string
	amountExpr string
	client     *http.Client
}

// NewClient builds a processor API client.
func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("processor base url is required")
	}

	amountExpr := strings.TrimSpace(cfg.AmountExpr)
	if amountExpr == "" {
		amountExpr = DefaultAmountExpr
	}
	if _, err := jmespath.Compile(amountExpr); err != nil {
		return nil, fmt.Errorf("compile amount expression: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	hc := cfg.Client
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL:    baseURL,
		apiKey:     strings.TrimSpace(cfg.APIKey),
		amountExpr: amountExpr,
		client:     hc,
	}, nil
}

// SettledAmountSats fetches an invoice and extracts its settled amount.
// Transport and non-2xx failures map to Upstream so the processor's webhook
// retry policy backs off and redelivers.
func (c *Client) SettledAmountSats(ctx context.Context, invoiceID string) (int64, error) {
	endpoint := c.baseURL + "/v1/invoices/" + url.PathEscape(invoiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("create invoice request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, apperrors.Upstream("payment processor unreachable", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, apperrors.Upstream(fmt.Sprintf("payment processor returned status %d for invoice %s", resp.StatusCode, invoiceID), nil)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, apperrors.Upstream("read invoice response", err)
	}

	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return 0, apperrors.Upstream("decode invoice response", err)
	}

	value, err := jmespath.Search(c.amountExpr, payload)
	if err != nil {
		return 0, apperrors.Upstream("extract settled amount", err)
	}

	amount, ok := coerceSats(value)
	if !ok {
		return 0, apperrors.Validationf("invoice %s has no parsable settled amount", invoiceID)
	}
	return amount, nil
}

// coerceSats accepts the number shapes processor payloads have been seen to
// use: JSON numbers and numeric strings.
func coerceSats(value any) (int64, bool) {
	switch v := value.(type) {
	case float64:
		if v != math.Trunc(v) {
			return 0, false
		}
		return int64(v), true
	case int64:
		return v, true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}
