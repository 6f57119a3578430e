package solana

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"
)

// Default RPC client configuration.
const (
	DefaultTimeout    = 30 * time.Second
	DefaultMaxRetries = 3
	DefaultRetryDelay = 1 * time.Second
	DefaultMaxDelay   = 10 * time.Second
)

// RPC is the subset of the JSON-RPC surface the sniper depends on.
// Defined here so backends can substitute fakes in tests.
type RPC interface {
	LatestBlockhash(ctx context.Context) (string, error)
	RecentPrioritizationFees(ctx context.Context, accounts []string) ([]PrioritizationFee, error)
	SendTransaction(ctx context.Context, txBase64 string) (string, error)
	SendBundle(ctx context.Context, txsBase64 []string) (string, error)
	BundleStatus(ctx context.Context, bundleID string) (string, error)
}

// PrioritizationFee is one recent fee sample from the network.
type PrioritizationFee struct {
	Slot              int64  `json:"slot"`
	PrioritizationFee uint64 `json:"prioritizationFee"`
}

// HTTPClient implements RPC over HTTP JSON-RPC 2.0 with retry/backoff.
type HTTPClient struct {
	endpoint   string
	client     *http.Client
	maxRetries int
	retryDelay time.Duration
	maxDelay   time.Duration
	latency    func(method string, seconds float64)
	requestID  atomic.Uint64
}

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) { c.client.Timeout = d }
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *HTTPClient) { c.maxRetries = n }
}

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) { c.client = client }
}

// WithLatencyObserver registers a callback receiving the total duration
// of every RPC call, retries included, keyed by method name.
func WithLatencyObserver(fn func(method string, seconds float64)) ClientOption {
	return func(c *HTTPClient) { c.latency = fn }
}

// NewHTTPClient creates an RPC client for the given endpoint.
func NewHTTPClient(endpoint string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		endpoint:   endpoint,
		client:     &http.Client{Timeout: DefaultTimeout},
		maxRetries: DefaultMaxRetries,
		retryDelay: DefaultRetryDelay,
		maxDelay:   DefaultMaxDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ RPC = (*HTTPClient)(nil)

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// call performs a JSON-RPC call with retries and exponential backoff.
// RPC-level errors are returned immediately; transport errors are retried.
func (c *HTTPClient) call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	if c.latency != nil {
		start := time.Now()
		defer func() { c.latency(method, time.Since(start).Seconds()) }()
	}

	reqBody := rpcRequest{
		JSONRPC: "2.0",
		ID:      c.requestID.Add(1),
		Method:  method,
		Params:  params,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limited (429)")
			continue
		}
		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
			continue
		}

		var rpcResp rpcResponse
		if err := json.Unmarshal(respBody, &rpcResp); err != nil {
			lastErr = fmt.Errorf("unmarshal response: %w", err)
			continue
		}

		if rpcResp.Error != nil {
			// RPC errors are not retried
			return rpcResp.Error
		}

		if result != nil && rpcResp.Result != nil {
			if err := json.Unmarshal(rpcResp.Result, result); err != nil {
				return fmt.Errorf("unmarshal result: %w", err)
			}
		}

		return nil
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// LatestBlockhash fetches the most recent blockhash.
func (c *HTTPClient) LatestBlockhash(ctx context.Context) (string, error) {
	var result struct {
		Value struct {
			Blockhash string `json:"blockhash"`
		} `json:"value"`
	}
	params := []interface{}{
		map[string]string{"commitment": "confirmed"},
	}
	if err := c.call(ctx, "getLatestBlockhash", params, &result); err != nil {
		return "", err
	}
	if result.Value.Blockhash == "" {
		return "", fmt.Errorf("empty blockhash in response")
	}
	return result.Value.Blockhash, nil
}

// RecentPrioritizationFees fetches recent fee samples, optionally scoped
// to the given writable accounts.
func (c *HTTPClient) RecentPrioritizationFees(ctx context.Context, accounts []string) ([]PrioritizationFee, error) {
	if accounts == nil {
		accounts = []string{}
	}
	var result []PrioritizationFee
	if err := c.call(ctx, "getRecentPrioritizationFees", []interface{}{accounts}, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// SendTransaction submits one base64-encoded transaction.
func (c *HTTPClient) SendTransaction(ctx context.Context, txBase64 string) (string, error) {
	params := []interface{}{
		txBase64,
		map[string]string{"encoding": "base64"},
	}
	var signature string
	if err := c.call(ctx, "sendTransaction", params, &signature); err != nil {
		return "", err
	}
	return signature, nil
}

// SendBundle submits an atomic bundle to a block-engine endpoint.
func (c *HTTPClient) SendBundle(ctx context.Context, txsBase64 []string) (string, error) {
	params := []interface{}{
		txsBase64,
		map[string]string{"encoding": "base64"},
	}
	var bundleID string
	if err := c.call(ctx, "sendBundle", params, &bundleID); err != nil {
		return "", err
	}
	return bundleID, nil
}

// BundleStatus queries a submitted bundle's confirmation status.
// Returns one of "pending", "confirmed", "failed".
func (c *HTTPClient) BundleStatus(ctx context.Context, bundleID string) (string, error) {
	var result struct {
		Value []struct {
			BundleID string `json:"bundle_id"`
			Status   string `json:"status"`
		} `json:"value"`
	}
	if err := c.call(ctx, "getBundleStatuses", []interface{}{[]string{bundleID}}, &result); err != nil {
		return "", err
	}
	if len(result.Value) == 0 {
		return "pending", nil
	}
	switch result.Value[0].Status {
	case "Landed", "confirmed":
		return "confirmed", nil
	case "Failed", "failed":
		return "failed", nil
	}
	return "pending", nil
}
