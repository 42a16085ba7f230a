package utils

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/net/proxy"
)

// UserAgent is the fixed identifier sent on every request; the system
// performs no auth beyond this header.
const UserAgent = "OpenDownloadManager/0.1"

// HTTPClientConfig configures the transport-level client.
type HTTPClientConfig struct {
	Timeout  time.Duration
	ProxyURL string
}

// HTTPClient wraps *http.Client with the fixed User-Agent and optional
// proxy configured on its transport.
type HTTPClient struct {
	client *http.Client
}

// NewHTTPClient creates an HTTP client with the given per-request
// timeout and optional proxy URL (http, https, or socks5 scheme).
func NewHTTPClient(config HTTPClientConfig) (*HTTPClient, error) {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSClientConfig:       &tls.Config{},
	}

	if config.ProxyURL != "" {
		if err := configureProxy(transport, config.ProxyURL); err != nil {
			return nil, fmt.Errorf("failed to configure proxy %s: %w", config.ProxyURL, err)
		}
	}

	return &HTTPClient{
		client: &http.Client{
			Transport: transport,
			Timeout:   config.Timeout,
		},
	}, nil
}

func configureProxy(transport *http.Transport, proxyURL string) error {
	parsedURL, err := url.Parse(proxyURL)
	if err != nil {
		return fmt.Errorf("invalid proxy URL: %w", err)
	}

	switch parsedURL.Scheme {
	case "http", "https":
		transport.Proxy = http.ProxyURL(parsedURL)
	case "socks5":
		dialer, err := proxy.SOCKS5("tcp", parsedURL.Host, nil, proxy.Direct)
		if err != nil {
			return fmt.Errorf("failed to create SOCKS5 proxy: %w", err)
		}
		transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			return dialer.Dial(network, addr)
		}
	default:
		return fmt.Errorf("unsupported proxy scheme: %s", parsedURL.Scheme)
	}

	return nil
}

// Probe holds the capability-discovery outcome of a HEAD request.
type Probe struct {
	Segmentable  bool
	TotalSize    int64
	ETag         string
	LastModified string
}

// HeadProbe issues a HEAD request and reports whether the resource is
// segmentable: it must advertise Accept-Ranges and a numeric
// Content-Length.
func (c *HTTPClient) HeadProbe(ctx context.Context, rawURL string) (Probe, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return Probe{}, fmt.Errorf("failed to create HEAD request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return Probe{}, err
	}
	defer resp.Body.Close()

	p := Probe{
		ETag:         resp.Header.Get("ETag"),
		LastModified: resp.Header.Get("Last-Modified"),
	}

	if resp.Header.Get("Accept-Ranges") == "" || resp.Header.Get("Accept-Ranges") == "none" {
		return p, nil
	}
	if resp.ContentLength <= 0 {
		return p, nil
	}

	p.Segmentable = true
	p.TotalSize = resp.ContentLength
	return p, nil
}

// RangedGet issues a single GET for the inclusive byte range
// [start, end], optionally carrying an If-Range validator. The caller
// is responsible for closing the response body.
func (c *HTTPClient) RangedGet(ctx context.Context, rawURL string, start, end int64, etag string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create GET request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", start, end))
	if etag != "" {
		req.Header.Set("If-Range", etag)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %d for ranged GET", resp.StatusCode)
	}

	return resp, nil
}

// PlainGet issues a single unranged GET, used by the single-stream
// fallback.
func (c *HTTPClient) PlainGet(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create GET request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %d for GET", resp.StatusCode)
	}

	return resp, nil
}
