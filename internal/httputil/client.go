// Package httputil provides a security-hardened HTTP client and helpers
// for turning resolved resource descriptors into outbound requests.
package httputil

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"time"

	"github.com/raphaelm22/media-downloader-bot/internal/media"
)

// DefaultUserAgent is sent when a descriptor carries no user-agent of its own.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// NewClient creates a hardened HTTP client with secure defaults.
// Downloads can be large, so no overall client timeout is set; callers
// bound requests with a context instead.
func NewClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
			ForceAttemptHTTP2:   true,
			MaxIdleConns:        10,
			IdleConnTimeout:     30 * time.Second,
			MaxIdleConnsPerHost: 5,
		},
	}
}

// NewRequest builds an outbound request from a resource descriptor,
// carrying the descriptor's headers verbatim.
func NewRequest(ctx context.Context, res media.Resource) (*http.Request, error) {
	if err := ValidateURL(res.URL); err != nil {
		return nil, fmt.Errorf("invalid resource URL: %w", err)
	}

	method := res.Method
	if method == "" {
		method = http.MethodGet
	}

	req, err := http.NewRequestWithContext(ctx, method, res.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	for key, value := range res.Headers {
		req.Header.Set(key, value)
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", DefaultUserAgent)
	}

	return req, nil
}
