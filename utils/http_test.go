package utils

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewHTTPClient(t *testing.T) {
	client, err := NewHTTPClient(HTTPClientConfig{Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("NewHTTPClient failed: %v", err)
	}
	if client == nil {
		t.Fatal("NewHTTPClient returned nil")
	}
}

func TestNewHTTPClient_InvalidProxy(t *testing.T) {
	_, err := NewHTTPClient(HTTPClientConfig{Timeout: 5 * time.Second, ProxyURL: "gopher://bad"})
	if err == nil {
		t.Error("expected error for unsupported proxy scheme")
	}
}

func TestHeadProbe_Segmentable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != UserAgent {
			t.Errorf("expected User-Agent %q, got %q", UserAgent, r.Header.Get("User-Agent"))
		}
		w.Header().Set("Accept-Ranges", "bytes")
		w.Header().Set("Content-Length", "100")
		w.Header().Set("ETag", `"abc"`)
	}))
	defer server.Close()

	client, err := NewHTTPClient(HTTPClientConfig{Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("NewHTTPClient failed: %v", err)
	}

	probe, err := client.HeadProbe(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("HeadProbe failed: %v", err)
	}
	if !probe.Segmentable {
		t.Error("expected Segmentable=true")
	}
	if probe.TotalSize != 100 {
		t.Errorf("expected TotalSize=100, got %d", probe.TotalSize)
	}
	if probe.ETag != `"abc"` {
		t.Errorf("expected ETag to be captured, got %q", probe.ETag)
	}
}

func TestHeadProbe_NotSegmentable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// no Accept-Ranges, no Content-Length
	}))
	defer server.Close()

	client, err := NewHTTPClient(HTTPClientConfig{Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("NewHTTPClient failed: %v", err)
	}

	probe, err := client.HeadProbe(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("HeadProbe failed: %v", err)
	}
	if probe.Segmentable {
		t.Error("expected Segmentable=false")
	}
}

func TestRangedGet_SendsRangeAndIfRange(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Range"); got != "bytes=10-19" {
			t.Errorf("expected Range bytes=10-19, got %q", got)
		}
		if got := r.Header.Get("If-Range"); got != `"etag-value"` {
			t.Errorf("expected If-Range to carry the etag, got %q", got)
		}
		w.WriteHeader(http.StatusPartialContent)
		w.Write([]byte("0123456789"))
	}))
	defer server.Close()

	client, err := NewHTTPClient(HTTPClientConfig{Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("NewHTTPClient failed: %v", err)
	}

	resp, err := client.RangedGet(context.Background(), server.URL, 10, 19, `"etag-value"`)
	if err != nil {
		t.Fatalf("RangedGet failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusPartialContent {
		t.Errorf("expected 206, got %d", resp.StatusCode)
	}
}

func TestRangedGet_RejectsNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client, err := NewHTTPClient(HTTPClientConfig{Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("NewHTTPClient failed: %v", err)
	}

	_, err = client.RangedGet(context.Background(), server.URL, 0, 9, "")
	if err == nil {
		t.Error("expected an error for 503 response")
	}
}
