// Package backend is the HTTP client for the BorderlessPay transfer service.
package backend

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/borderlesspay/bpay/internal/metrics"
	bpayerr "github.com/borderlesspay/bpay/pkg/errors"
)

const (
	// TransferPath is the transfer endpoint.
	TransferPath = "/api/hedera/transfer"

	// TransactionsPath is the transfer history endpoint.
	TransactionsPath = "/api/hedera/transactions"

	// httpTimeout is the default HTTP request timeout.
	httpTimeout = 30 * time.Second

	// maxResponseBody is the maximum response body size to read (1 MB).
	maxResponseBody = 1 << 20
)

// TransferRequest is the transfer endpoint payload.
type TransferRequest struct {
	TokenID       string `json:"tokenId"`
	FromAccountID string `json:"fromAccountId"`
	ToAccountID   string `json:"toAccountId"`
	Amount        string `json:"amount"`
	Memo          string `json:"memo"`
	UserID        string `json:"userId"`
	TransactionID string `json:"transactionId,omitempty"`
	WalletSigned  bool   `json:"walletSigned,omitempty"`
}

// TransferData carries the id of an executed or recorded transfer.
type TransferData struct {
	TransactionID string `json:"transactionId"`
}

// TransferResponse is the transfer endpoint reply.
type TransferResponse struct {
	Success bool          `json:"success"`
	Data    *TransferData `json:"data,omitempty"`
	Error   string        `json:"error,omitempty"`
}

// Transaction is one recorded transfer.
type Transaction struct {
	TransactionID string    `json:"transactionId"`
	TokenID       string    `json:"tokenId"`
	FromAccountID string    `json:"fromAccountId"`
	ToAccountID   string    `json:"toAccountId"`
	Amount        string    `json:"amount"`
	Memo          string    `json:"memo,omitempty"`
	UserID        string    `json:"userId"`
	WalletSigned  bool      `json:"walletSigned"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"createdAt"`
}

// TransactionsResponse is the history endpoint reply.
type TransactionsResponse struct {
	Success bool          `json:"success"`
	Data    []Transaction `json:"data,omitempty"`
	Error   string        `json:"error,omitempty"`
}

// ClientOptions configures the backend client.
type ClientOptions struct {
	// HTTPClient overrides the default HTTP client.
	HTTPClient *http.Client
	// RateLimiter overrides the default limiter.
	RateLimiter *RateLimiter
	// Metrics receives call counts and latency. Defaults to metrics.Global.
	Metrics *metrics.Metrics
	// UserAgent is sent with every request when set.
	UserAgent string
}

// Client talks to the transfer service.
type Client struct {
	baseURL     string
	userAgent   string
	httpClient  *http.Client
	rateLimiter *RateLimiter
	metrics     *metrics.Metrics
}

// NewClient creates a client for the service at baseURL.
func NewClient(baseURL string, opts *ClientOptions) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return nil, bpayerr.WithMessage(bpayerr.ErrConfigInvalid, "backend url is not configured")
	}
	if u, err := url.Parse(base); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, bpayerr.WithDetails(
			bpayerr.WithMessage(bpayerr.ErrConfigInvalid, "backend url must be an absolute http(s) url"),
			map[string]string{"url": baseURL},
		)
	}

	c := &Client{
		baseURL: base,
		httpClient: &http.Client{
			Timeout: httpTimeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
			},
		},
		rateLimiter: DefaultRateLimiter(),
		metrics:     metrics.Global,
	}

	if opts != nil {
		if opts.HTTPClient != nil {
			c.httpClient = opts.HTTPClient
		}
		if opts.RateLimiter != nil {
			c.rateLimiter = opts.RateLimiter
		}
		if opts.Metrics != nil {
			c.metrics = opts.Metrics
		}
		c.userAgent = opts.UserAgent
	}

	return c, nil
}

// BaseURL returns the service base url.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Transfer submits a transfer and returns the transaction id.
//
// A reply with success false becomes BACKEND_ERROR whose message is the
// friendly rendering of the service's error text; the raw text is kept in
// the "backend_error" detail.
func (c *Client) Transfer(ctx context.Context, req TransferRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encoding transfer: %w", err)
	}

	var resp TransferResponse
	if err := c.do(ctx, http.MethodPost, TransferPath, body, &resp); err != nil {
		return "", err
	}
	if !resp.Success {
		return "", backendError(resp.Error)
	}
	if resp.Data == nil || resp.Data.TransactionID == "" {
		return "", bpayerr.WithMessage(bpayerr.ErrBackend, "transfer service reported success without a transaction id")
	}
	return resp.Data.TransactionID, nil
}

// Transactions returns the transfers recorded for userID, newest first.
func (c *Client) Transactions(ctx context.Context, userID string) ([]Transaction, error) {
	path := TransactionsPath
	if userID != "" {
		path += "?" + url.Values{"userId": {userID}}.Encode()
	}

	var resp TransactionsResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, backendError(resp.Error)
	}
	return resp.Data, nil
}

// do sends one request and decodes the JSON reply into out. Replies with a
// non-2xx status still decode when they carry the service's JSON envelope.
func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) (err error) {
	start := time.Now()
	defer func() { c.metrics.RecordBackendCall(time.Since(start), err) }()

	endpoint, _, _ := strings.Cut(path, "?")
	if err := c.rateLimiter.Wait(ctx, endpoint); err != nil {
		return bpayerr.WithCause(bpayerr.ErrRateLimited, err)
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(httpReq) //nolint:gosec // G704: URL is built from validated config
	if err != nil {
		return bpayerr.WithCause(bpayerr.ErrNetworkError, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return bpayerr.WithCause(bpayerr.ErrNetworkError, fmt.Errorf("reading response: %w", err))
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return bpayerr.WithDetails(bpayerr.ErrRateLimited, map[string]string{
			"status": fmt.Sprintf("%d", resp.StatusCode),
		})
	}

	if jsonErr := json.Unmarshal(data, out); jsonErr != nil {
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return bpayerr.WithDetails(bpayerr.ErrBackend, map[string]string{
				"status": fmt.Sprintf("%d", resp.StatusCode),
				"body":   truncateBody(string(data), 512),
			})
		}
		return bpayerr.WithDetails(bpayerr.WithCause(bpayerr.ErrBackend, jsonErr), map[string]string{
			"body": truncateBody(string(data), 512),
		})
	}
	return nil
}

func backendError(raw string) error {
	if raw == "" {
		raw = "transfer failed"
	}
	return bpayerr.WithDetails(
		bpayerr.WithMessage(bpayerr.ErrBackend, FriendlyError(raw)),
		map[string]string{"backend_error": raw},
	)
}

// truncateBody truncates a string to maxLen characters.
func truncateBody(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
