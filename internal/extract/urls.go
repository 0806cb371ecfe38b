// internal/extract/urls.go
package extract

import (
	"context"
	"fmt"
	"strconv"

	cdpruntime "github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

// awaitPromise makes Evaluate resolve the returned promise instead of
// handing back the promise object itself.
func awaitPromise(p *cdpruntime.EvaluateParams) *cdpruntime.EvaluateParams {
	return p.WithAwaitPromise(true)
}

// ExtractAll resolves the signed URL for every page of the current document.
// All page_data requests fire concurrently inside the page via a single
// Promise.all; the browser multiplexes them over HTTP/2. The result is
// ordered by page and dense -- pages that failed to resolve are dropped, and
// a fully empty result is ErrNoURLs.
func (e *Engine) ExtractAll(ctx context.Context, totalPages int) ([]string, error) {
	e.logger.Info("Fetching signed page URLs.",
		zap.Int("pages", totalPages), zap.String("phase", "fetching-urls"))

	script := fmt.Sprintf(`(async () => {
		const base = window.location.href.split('?')[0].replace(/\/$/, '') + '/page_data/';
		const results = new Array(%d).fill(null);
		await Promise.all(
			Array.from({length: %d}, (_, i) =>
				fetch(base + (i + 1), {credentials: 'same-origin'})
					.then(r => r.ok ? r.json() : null)
					.then(d => { results[i] = d && d.imageUrl ? d.imageUrl : null; })
					.catch(() => { results[i] = null; })
			)
		);
		return results.filter(Boolean);
	})()`, totalPages, totalPages)

	var urls []string
	if err := chromedp.Run(ctx, chromedp.Evaluate(script, &urls, awaitPromise)); err != nil {
		return nil, fmt.Errorf("page_data extraction: %w", err)
	}
	if len(urls) == 0 {
		return nil, ErrNoURLs
	}

	e.logger.Info("Extracted signed URLs.", zap.Int("count", len(urls)))
	return urls, nil
}

// ExtractPages resolves signed URLs for specific one-based page numbers,
// returning a zero-based index -> URL map holding only the pages that
// resolved. The recovery loop uses this to refresh URLs that expired before
// download.
func (e *Engine) ExtractPages(ctx context.Context, pages []int) (map[int]string, error) {
	if len(pages) == 0 {
		return map[int]string{}, nil
	}

	pagesJSON, err := jsoniter.Marshal(pages)
	if err != nil {
		return nil, fmt.Errorf("encode page numbers: %w", err)
	}

	e.logger.Info("Re-fetching signed URLs for specific pages.",
		zap.Ints("pages", pages), zap.String("phase", "fetching-urls"))

	script := fmt.Sprintf(`(async () => {
		const base = window.location.href.split('?')[0].replace(/\/$/, '') + '/page_data/';
		const out = {};
		await Promise.all(
			%s.map(n =>
				fetch(base + n, {credentials: 'same-origin'})
					.then(r => r.ok ? r.json() : null)
					.then(d => { if (d && d.imageUrl) out[n] = d.imageUrl; })
					.catch(() => {})
			)
		);
		return out;
	})()`, string(pagesJSON))

	var raw map[string]string
	if err := chromedp.Run(ctx, chromedp.Evaluate(script, &raw, awaitPromise)); err != nil {
		return nil, fmt.Errorf("page_data re-extraction: %w", err)
	}

	// JS object keys are the one-based page numbers; callers work in
	// zero-based indices.
	fresh := make(map[int]string, len(raw))
	for k, v := range raw {
		n, err := strconv.Atoi(k)
		if err != nil || n < 1 {
			continue
		}
		fresh[n-1] = v
	}

	e.logger.Info("Re-extracted signed URLs.", zap.Int("count", len(fresh)))
	return fresh, nil
}
