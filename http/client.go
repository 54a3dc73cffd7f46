// Package http provides the HTTP client shared by the npm and Maven registry adapters.
//
// It wraps the standard http.Client with a user agent, static per-registry headers,
// proxy selection, request logging, Prometheus metrics and optional OpenTelemetry
// tracing. Requests pass a per-host rate limiter and circuit breaker and are
// never retried automatically.
package http

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/SAP/ui5-project-sub000/observability"
	"github.com/SAP/ui5-project-sub000/resilience"
)

const (
	DefaultTimeout   = 5 * time.Minute
	DefaultUserAgent = "ui5fw/0.1.0"
)

// Client wraps http.Client with registry-specific configuration
type Client struct {
	httpClient *http.Client
	userAgent  string
	headers    http.Header
	registry   string
	guard      *resilience.HostGuard
	logger     observability.Logger
}

// Config holds HTTP client configuration
type Config struct {
	Timeout   time.Duration
	UserAgent string
	TLSConfig *tls.Config

	// Proxy overrides the proxy taken from HTTP_PROXY/HTTPS_PROXY/NO_PROXY.
	Proxy *url.URL

	// Headers are added to every request that does not already set them.
	Headers http.Header

	// Registry labels metrics for this client ("npm", "maven").
	Registry string

	EnableHTTP2   bool
	EnableHTTP3   bool
	EnableTracing bool
	Logger        observability.Logger

	// Guard rate limits requests and trips a circuit breaker per host; nil disables both.
	Guard *resilience.HostGuard
}

// DefaultConfig returns a client configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Timeout:       DefaultTimeout,
		UserAgent:     DefaultUserAgent,
		EnableHTTP2:   true,
		EnableTracing: true,
		Guard:         resilience.NewDefaultHostGuard(),
	}
}

// NewClient creates a new HTTP client with the given configuration
func NewClient(cfg *Config) *Client {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	tc := DefaultTransportConfig()
	tc.EnableHTTP2 = cfg.EnableHTTP2
	tc.EnableHTTP3 = cfg.EnableHTTP3
	tc.TLSConfig = cfg.TLSConfig
	if cfg.Proxy != nil {
		tc.Proxy = http.ProxyURL(cfg.Proxy)
	}

	transport := NewTransport(tc)
	if cfg.EnableTracing {
		transport = observability.NewHTTPTracingTransport(transport, observability.TracerName+"/http")
	}

	ua := cfg.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	registry := cfg.Registry
	if registry == "" {
		registry = "default"
	}

	return &Client{
		httpClient: &http.Client{Transport: transport, Timeout: cfg.Timeout},
		userAgent:  ua,
		headers:    cfg.Headers.Clone(),
		registry:   registry,
		guard:      cfg.Guard,
		logger:     observability.OrNull(cfg.Logger),
	}
}

// Do executes an HTTP request with context, user agent and configured headers.
// Network-level failures are wrapped with ErrConnectivity when they indicate that the
// remote host could not be reached.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	req = req.WithContext(ctx)

	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	for key, values := range c.headers {
		if req.Header.Get(key) == "" {
			for _, v := range values {
				req.Header.Add(key, v)
			}
		}
	}

	redacted := req.URL.Redacted()
	c.logger.Debug("HTTP {Method} {URL}", req.Method, redacted)

	start := time.Now()
	resp, err := c.send(ctx, req)
	duration := time.Since(start)

	if err != nil {
		c.logger.Debug("HTTP {Method} {URL} failed after {Duration}ms: {Error}",
			req.Method, redacted, duration.Milliseconds(), err)
		observability.HTTPRequestsTotal.WithLabelValues(req.Method, "error", c.registry).Inc()
		if IsConnectivityError(err) || errors.Is(err, resilience.ErrCircuitOpen) {
			return nil, fmt.Errorf("%w: %w", ErrConnectivity, err)
		}
		return nil, err
	}

	c.logger.Debug("HTTP {Method} {URL} → {StatusCode} {Protocol} ({Duration}ms)",
		req.Method, redacted, resp.StatusCode, ProtocolVersion(resp), duration.Milliseconds())
	observability.HTTPRequestsTotal.WithLabelValues(req.Method, strconv.Itoa(resp.StatusCode), c.registry).Inc()
	observability.HTTPRequestDuration.WithLabelValues(req.Method, c.registry).Observe(duration.Seconds())

	return resp, nil
}

func (c *Client) send(ctx context.Context, req *http.Request) (*http.Response, error) {
	if c.guard == nil {
		return c.httpClient.Do(req)
	}
	return c.guard.Do(ctx, req.URL.Host, func(context.Context) (*http.Response, error) {
		return c.httpClient.Do(req)
	})
}

// Get performs a GET request with optional extra headers.
func (c *Client) Get(ctx context.Context, rawURL string, header http.Header) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for key, values := range header {
		req.Header[key] = values
	}
	return c.Do(ctx, req)
}
