package http

import (
	"crypto/tls"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/quic-go/quic-go"
	"github.com/quic-go/quic-go/http3"
	"golang.org/x/net/http2"
)

// TransportConfig configures HTTP transport with protocol support
type TransportConfig struct {
	// EnableHTTP2 enables HTTP/2 negotiation via ALPN (default: true)
	EnableHTTP2 bool

	// EnableHTTP3 tries HTTP/3 first for https URLs (default: false, experimental)
	EnableHTTP3 bool

	// Proxy selects the proxy per request. Nil means http.ProxyFromEnvironment.
	Proxy func(*http.Request) (*url.URL, error)

	TLSConfig *tls.Config

	MaxIdleConnsPerHost   int
	IdleConnTimeout       time.Duration
	TLSHandshakeTimeout   time.Duration
	ResponseHeaderTimeout time.Duration
}

// DefaultTransportConfig returns default transport configuration
func DefaultTransportConfig() TransportConfig {
	return TransportConfig{
		EnableHTTP2:           true,
		MaxIdleConnsPerHost:   16,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 60 * time.Second,
	}
}

// NewTransport creates an HTTP transport with configured protocol support
func NewTransport(config TransportConfig) http.RoundTripper {
	proxy := config.Proxy
	if proxy == nil {
		proxy = http.ProxyFromEnvironment
	}

	transport := &http.Transport{
		Proxy: proxy,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConnsPerHost:   config.MaxIdleConnsPerHost,
		IdleConnTimeout:       config.IdleConnTimeout,
		TLSHandshakeTimeout:   config.TLSHandshakeTimeout,
		ResponseHeaderTimeout: config.ResponseHeaderTimeout,
		TLSClientConfig:       config.TLSConfig,
	}

	if config.EnableHTTP2 {
		// Falls back to HTTP/1.1 if configuration fails
		_ = http2.ConfigureTransport(transport)
	}

	if config.EnableHTTP3 {
		return newHTTP3Transport(transport, config.TLSConfig)
	}

	return transport
}

// http3Transport tries HTTP/3 for https requests and falls back to the base transport.
type http3Transport struct {
	fallback http.RoundTripper
	h3       *http3.Transport
}

func newHTTP3Transport(fallback http.RoundTripper, tlsConfig *tls.Config) *http3Transport {
	if tlsConfig == nil {
		tlsConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return &http3Transport{
		fallback: fallback,
		h3: &http3.Transport{
			TLSClientConfig: tlsConfig,
			QUICConfig:      &quic.Config{Allow0RTT: true},
		},
	}
}

// RoundTrip implements http.RoundTripper with HTTP/3 fallback
func (t *http3Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL.Scheme == "https" {
		if resp, err := t.h3.RoundTrip(req); err == nil {
			return resp, nil
		}
	}
	return t.fallback.RoundTrip(req)
}

// Close closes the HTTP/3 transport
func (t *http3Transport) Close() error {
	return t.h3.Close()
}

// ProtocolVersion returns the HTTP protocol version from response
func ProtocolVersion(resp *http.Response) string {
	switch resp.ProtoMajor {
	case 3:
		return "HTTP/3"
	case 2:
		return "HTTP/2"
	default:
		return "HTTP/1.1"
	}
}
