// Package download pulls signed page assets over HTTP with a bounded worker
// pool. A page that exhausts its retry budget is recorded as failed rather
// than aborting the batch; callers decide whether a partial document is
// worth keeping.
package download

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/docgrab/api/schemas"
	"github.com/xkilldash9x/docgrab/internal/config"
)

// Batch is the outcome of one download run: one asset per input URL, dense
// over [0, len(Assets)). After Run returns, every asset is either downloaded
// or failed; the two sides partition the indices exactly.
type Batch struct {
	Assets []schemas.PageAsset
}

func newBatch(urls []string) *Batch {
	assets := make([]schemas.PageAsset, len(urls))
	for i, u := range urls {
		assets[i] = schemas.PageAsset{Index: i, URL: u, Status: schemas.PageStatusPending}
	}
	return &Batch{Assets: assets}
}

// OK reports whether every page in the batch downloaded.
func (b *Batch) OK() bool { return len(b.Failed()) == 0 }

// Failed returns the indices of failed assets in ascending order.
func (b *Batch) Failed() []int {
	var failed []int
	for _, a := range b.Assets {
		if a.Status == schemas.PageStatusFailed {
			failed = append(failed, a.Index)
		}
	}
	return failed
}

// Page returns the payload for a page index, if it downloaded.
func (b *Batch) Page(idx int) ([]byte, bool) {
	if idx < 0 || idx >= len(b.Assets) || b.Assets[idx].Status != schemas.PageStatusDownloaded {
		return nil, false
	}
	return b.Assets[idx].Data, true
}

// Downloaded counts the assets that hold a payload.
func (b *Batch) Downloaded() int {
	n := 0
	for _, a := range b.Assets {
		if a.Status == schemas.PageStatusDownloaded {
			n++
		}
	}
	return n
}

// Downloader fans page fetches out across a fixed pool of workers.
type Downloader struct {
	cfg     config.DownloadConfig
	fetcher Fetcher
	logger  *zap.Logger
}

func NewDownloader(cfg config.DownloadConfig, fetcher Fetcher, logger *zap.Logger) *Downloader {
	if fetcher == nil {
		fetcher = NewHTTPFetcher(cfg)
	}
	return &Downloader{
		cfg:     cfg,
		fetcher: fetcher,
		logger:  logger.Named("download"),
	}
}

// Run downloads every URL in the slice. The index of each URL in the input
// is the page index of the resulting asset. Run only returns an error when
// the context is cancelled; per-page failures are data, not errors.
func (d *Downloader) Run(ctx context.Context, urls []string) (*Batch, error) {
	batch := newBatch(urls)
	if len(urls) == 0 {
		return batch, nil
	}

	workers := d.cfg.Workers
	if workers > len(urls) {
		workers = len(urls)
	}

	d.logger.Info("Starting download batch.",
		zap.Int("pages", len(urls)), zap.Int("workers", workers))

	jobs := make(chan int)

	// The group is a plain waitgroup here. Workers never return an error,
	// so one page failing cannot cancel its siblings. Each worker writes
	// only to the asset slots it was handed, so no lock is needed.
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for idx := range jobs {
				asset := &batch.Assets[idx]
				if data, ok := d.fetchWithRetry(gctx, asset); ok {
					asset.Data = data
					asset.Status = schemas.PageStatusDownloaded
				} else {
					asset.Status = schemas.PageStatusFailed
				}
			}
			return nil
		})
	}

feed:
	for i := range urls {
		select {
		case jobs <- i:
		case <-gctx.Done():
			break feed
		}
	}
	close(jobs)
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Anything the feed loop never handed out counts as failed.
	for i := range batch.Assets {
		if batch.Assets[i].Status == schemas.PageStatusPending {
			batch.Assets[i].Status = schemas.PageStatusFailed
		}
	}

	d.logger.Info("Download batch finished.",
		zap.Int("downloaded", batch.Downloaded()), zap.Ints("failed", batch.Failed()))
	return batch, nil
}

// fetchWithRetry attempts one page up to MaxAttempts times with a linearly
// growing delay, so retry k waits k backoff units before running.
func (d *Downloader) fetchWithRetry(ctx context.Context, asset *schemas.PageAsset) ([]byte, bool) {
	for attempt := 1; attempt <= d.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			delay := time.Duration(attempt-1) * d.cfg.BackoffUnit
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, false
			}
		}

		data, err := d.fetcher.Fetch(ctx, asset.URL)
		if err == nil {
			return data, true
		}
		if ctx.Err() != nil {
			return nil, false
		}
		d.logger.Warn("Page fetch failed.",
			zap.Int("page_index", asset.Index),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", d.cfg.MaxAttempts),
			zap.Error(err))
	}
	return nil, false
}
