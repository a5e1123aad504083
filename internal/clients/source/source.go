// Package source reads trail data documents from local files or http(s) URLs.
package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// MaxDocumentBytes caps the size of a fetched document
const MaxDocumentBytes = 64 << 20

// HTTPDoer is the subset of *http.Client used by Fetcher
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Fetcher loads raw documents
type Fetcher struct {
	httpClient HTTPDoer
	userAgent  string
}

// NewFetcher creates a Fetcher whose HTTP requests time out after timeout
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return NewFetcherWithHTTPDoer(&http.Client{Timeout: timeout})
}

// NewFetcherWithHTTPDoer creates a Fetcher with a custom HTTP implementation
func NewFetcherWithHTTPDoer(doer HTTPDoer) *Fetcher {
	return &Fetcher{
		httpClient: doer,
		userAgent:  "trailplanner/1.0",
	}
}

// IsRemote reports whether the source is an http(s) URL
func IsRemote(source string) bool {
	lower := strings.ToLower(source)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// Fetch returns the document at source
func (f *Fetcher) Fetch(ctx context.Context, source string) ([]byte, error) {
	if source == "" {
		return nil, fmt.Errorf("source is empty")
	}
	if IsRemote(source) {
		return f.fetchHTTP(ctx, source)
	}
	return readFile(source)
}

func (f *Fetcher) fetchHTTP(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("fetch %s: HTTP %d: %s", url, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return readLimited(resp.Body, url)
}

func readFile(path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()
	return readLimited(file, path)
}

func readLimited(r io.Reader, name string) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxDocumentBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	if len(data) > MaxDocumentBytes {
		return nil, fmt.Errorf("%s exceeds %d bytes", name, MaxDocumentBytes)
	}
	return data, nil
}
