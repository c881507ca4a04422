package billprovider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const defaultTimeout = 30 * time.Second

// ErrNotFound signals the provider has no bill for the given customer code.
// Timeouts and network failures degrade to this error so callers never block
// on a flaky upstream.
var ErrNotFound = errors.New("bill not found at provider")

// BillFields is the tuple a successful provider lookup returns.
type BillFields struct {
	CustomerCode   string          `json:"customer_code"`
	CustomerName   string          `json:"customer_name"`
	Period         string          `json:"period"`
	PreviousAmount decimal.Decimal `json:"previous_amount"`
	CurrentAmount  decimal.Decimal `json:"current_amount"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
}

// Client represents the external bill-provider HTTP client.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient creates a new bill-provider client.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

// Fetch looks up a bill at the provider. Returns ErrNotFound when the
// provider has no record, when it is unreachable, or when the lookup
// times out.
func (c *Client) Fetch(ctx context.Context, customerCode string, providerID uuid.UUID) (*BillFields, error) {
	if c == nil || c.http == nil {
		return nil, fmt.Errorf("bill provider request error: client is nil")
	}
	if strings.TrimSpace(c.baseURL) == "" {
		return nil, ErrNotFound
	}

	lookupURL := fmt.Sprintf("%s/v1/providers/%s/bills?customer_code=%s",
		c.baseURL, providerID, url.QueryEscape(customerCode))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, lookupURL, nil)
	if err != nil {
		return nil, fmt.Errorf("bill provider request error: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if isTimeoutError(ctx, err) || isNetworkError(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("bill provider request error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("bill provider http error: status=%d body=%s", resp.StatusCode, string(body))
	}

	var fields BillFields
	if err := json.NewDecoder(resp.Body).Decode(&fields); err != nil {
		return nil, fmt.Errorf("bill provider decode error: %w", err)
	}
	return &fields, nil
}

func isTimeoutError(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}

func isNetworkError(err error) bool {
	if err == nil {
		return false
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = urlErr.Err
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	return false
}
