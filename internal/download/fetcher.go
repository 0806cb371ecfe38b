// internal/download/fetcher.go
package download

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/xkilldash9x/docgrab/internal/config"
)

// Fetcher retrieves a single asset by URL. Split out so the pool can be
// tested without a live server.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// HTTPFetcher is the production Fetcher. Signed page URLs are plain HTTPS
// GETs with no auth; the signature lives in the query string.
type HTTPFetcher struct {
	client *http.Client
}

func NewHTTPFetcher(cfg config.DownloadConfig) *HTTPFetcher {
	return &HTTPFetcher{
		client: &http.Client{Timeout: cfg.FetchTimeout},
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Expired signatures surface as 403; either way the attempt failed.
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("fetch: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("fetch: empty body")
	}
	return data, nil
}
