package macservice

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"macclient/internal/logger"
)

// DefaultBaseURL is the public MAC service endpoint.
const DefaultBaseURL = "https://hml.nmdp.org/mac/api"

// DefaultTimeout bounds every request made by HTTPClient.
const DefaultTimeout = 30 * time.Second

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 16 << 20

// HTTPClient talks to the MAC service over HTTP(S), optionally through a proxy.
type HTTPClient struct {
	baseURL   *url.URL
	proxy     *Proxy
	timeout   time.Duration
	transport *http.Transport
	client    *http.Client

	mu     sync.Mutex
	closed bool
}

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *HTTPClient) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// NewHTTPClient creates a client bound to baseURL. A nil proxy means a direct connection.
func NewHTTPClient(baseURL string, proxy *Proxy, options ...Option) (*HTTPClient, error) {
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid service URL %q: %w", baseURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("invalid service URL %q: scheme must be http or https", baseURL)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("invalid service URL %q: missing host", baseURL)
	}

	c := &HTTPClient{
		baseURL: parsed,
		proxy:   proxy,
		timeout: DefaultTimeout,
	}
	for _, opt := range options {
		opt(c)
	}

	c.transport = http.DefaultTransport.(*http.Transport).Clone()
	if proxy != nil {
		c.transport.Proxy = http.ProxyURL(proxy.URL())
	}
	c.client = &http.Client{
		Transport: c.transport,
		Timeout:   c.timeout,
	}

	logger.Debug("MAC service client created",
		"endpoint", parsed.String(),
		"proxy", proxy.String(),
		"timeout", c.timeout.String())
	return c, nil
}

// NewHTTPFactory returns a Factory producing HTTPClients with the given options.
func NewHTTPFactory(options ...Option) Factory {
	return func(baseURL string, proxy *Proxy) (Service, error) {
		return NewHTTPClient(baseURL, proxy, options...)
	}
}

// Endpoint returns the base URL the client is bound to.
func (c *HTTPClient) Endpoint() string {
	return c.baseURL.String()
}

// Expand implements Service.
func (c *HTTPClient) Expand(ctx context.Context, version, typing string) (string, error) {
	return c.lookup(ctx, "expand", version, typing)
}

// Encode implements Service.
func (c *HTTPClient) Encode(ctx context.Context, version, alleleList string) (string, error) {
	return c.lookup(ctx, "encode", version, alleleList)
}

// Decode implements Service.
func (c *HTTPClient) Decode(ctx context.Context, code string) (string, error) {
	return c.lookup(ctx, "decode", "", code)
}

// Close drops idle connections. Subsequent calls fail with ErrClosed.
func (c *HTTPClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.transport.CloseIdleConnections()
	logger.Debug("MAC service client closed", "endpoint", c.baseURL.String())
	return nil
}

func (c *HTTPClient) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *HTTPClient) lookup(ctx context.Context, operation, version, typing string) (string, error) {
	if c.isClosed() {
		return "", ErrClosed
	}

	endpoint := c.baseURL.JoinPath(operation)
	query := url.Values{}
	query.Set("typing", typing)
	if version != "" {
		query.Set("imgtHlaRelease", version)
	}
	endpoint.RawQuery = query.Encode()
	target := endpoint.String()

	logger.ServiceCall(operation, target, "version", version)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", &RequestError{Operation: operation, Endpoint: target, Kind: ErrService, Err: err}
	}
	req.Header.Set("Accept", "text/plain")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", &RequestError{Operation: operation, Endpoint: target, Kind: ErrService, Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", &RequestError{
			Operation:  operation,
			Endpoint:   target,
			StatusCode: resp.StatusCode,
			Kind:       ErrService,
			Err:        fmt.Errorf("failed to read response body: %w", err),
		}
	}
	body := strings.TrimSpace(string(bodyBytes))

	logger.Debug("MAC service responded",
		"operation", operation,
		"status_code", resp.StatusCode,
		"body_length", len(body))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &RequestError{
			Operation:  operation,
			Endpoint:   target,
			StatusCode: resp.StatusCode,
			Body:       body,
			Kind:       classifyStatus(resp.StatusCode, body),
		}
	}
	return body, nil
}
