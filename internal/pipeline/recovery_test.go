package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/docgrab/api/schemas"
	"github.com/xkilldash9x/docgrab/internal/config"
	"github.com/xkilldash9x/docgrab/internal/download"
)

// stubFetcher serves canned bodies per URL; unknown URLs fail.
type stubFetcher struct {
	mu     sync.Mutex
	bodies map[string][]byte
}

func newStubFetcher() *stubFetcher {
	return &stubFetcher{bodies: make(map[string][]byte)}
}

func (f *stubFetcher) serve(url string, body []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bodies[url] = body
}

func (f *stubFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if body, ok := f.bodies[url]; ok {
		return body, nil
	}
	return nil, errors.New("no such url")
}

func testOrchestrator(fetcher download.Fetcher) *Orchestrator {
	cfg := config.NewDefaultConfig()
	cfg.Download.MaxAttempts = 2
	cfg.Download.BackoffUnit = time.Millisecond
	return &Orchestrator{
		cfg:        cfg,
		logger:     zap.NewNop(),
		downloader: download.NewDownloader(cfg.Download, fetcher, zap.NewNop()),
	}
}

func asset(idx int, status schemas.PageStatus, data string) schemas.PageAsset {
	a := schemas.PageAsset{Index: idx, URL: fmt.Sprintf("u%d", idx), Status: status}
	if data != "" {
		a.Data = []byte(data)
	}
	return a
}

func TestMergeRecovered(t *testing.T) {
	batch := &download.Batch{Assets: []schemas.PageAsset{
		asset(0, schemas.PageStatusDownloaded, "a"),
		asset(1, schemas.PageStatusDownloaded, "b"),
		asset(2, schemas.PageStatusFailed, ""),
		asset(3, schemas.PageStatusDownloaded, "d"),
		asset(4, schemas.PageStatusFailed, ""),
	}}
	// Retry covered original indices 2 and 4; only the first retry asset
	// (index 2) succeeded.
	retry := &download.Batch{Assets: []schemas.PageAsset{
		asset(0, schemas.PageStatusDownloaded, "c"),
		asset(1, schemas.PageStatusFailed, ""),
	}}

	mergeRecovered(batch, []int{2, 4}, retry)

	data, ok := batch.Page(2)
	require.True(t, ok)
	assert.Equal(t, []byte("c"), data)
	assert.Equal(t, []int{4}, batch.Failed())
}

func TestMergeRecoveredAll(t *testing.T) {
	batch := &download.Batch{Assets: []schemas.PageAsset{
		asset(0, schemas.PageStatusDownloaded, "a"),
		asset(1, schemas.PageStatusFailed, ""),
		asset(2, schemas.PageStatusDownloaded, "c"),
		asset(3, schemas.PageStatusFailed, ""),
	}}
	retry := &download.Batch{Assets: []schemas.PageAsset{
		asset(0, schemas.PageStatusDownloaded, "x"),
		asset(1, schemas.PageStatusDownloaded, "y"),
	}}

	mergeRecovered(batch, []int{1, 3}, retry)

	assert.True(t, batch.OK())
	d1, _ := batch.Page(1)
	d3, _ := batch.Page(3)
	assert.Equal(t, []byte("x"), d1)
	assert.Equal(t, []byte("y"), d3)
}

func TestFlattenFresh(t *testing.T) {
	indices, urls := flattenFresh(map[int]string{7: "u7", 2: "u2"})
	assert.Equal(t, []int{2, 7}, indices)
	assert.Equal(t, []string{"u2", "u7"}, urls)
}

// Ten pages, two fail every attempt, a refresh serves a working URL for one
// of them. The batch ends with nine pages and the unrecoverable page still
// listed as failed.
func TestRecoverFailedPartialRecovery(t *testing.T) {
	fetcher := newStubFetcher()
	urls := make([]string, 10)
	for i := range urls {
		urls[i] = fmt.Sprintf("https://cdn.example.com/p%d", i)
		if i != 2 && i != 7 {
			fetcher.serve(urls[i], []byte(fmt.Sprintf("page%d", i)))
		}
	}

	o := testOrchestrator(fetcher)
	batch, err := o.downloader.Run(context.Background(), urls)
	require.NoError(t, err)
	require.Equal(t, []int{2, 7}, batch.Failed())
	require.Equal(t, 8, batch.Downloaded())

	var refreshCalls int
	refresh := func(_ context.Context, indices []int) (map[int]string, error) {
		refreshCalls++
		assert.Equal(t, []int{2, 7}, indices)
		// Fresh URL for page 2 works; page 7's fresh URL still fails.
		fetcher.serve("https://cdn.example.com/fresh2", []byte("page2"))
		return map[int]string{
			2: "https://cdn.example.com/fresh2",
			7: "https://cdn.example.com/fresh7",
		}, nil
	}

	o.recoverFailed(context.Background(), batch, refresh)

	assert.Equal(t, 1, refreshCalls)
	assert.Equal(t, 9, batch.Downloaded())
	assert.Equal(t, []int{7}, batch.Failed())
	data, ok := batch.Page(2)
	require.True(t, ok)
	assert.Equal(t, []byte("page2"), data)
}

func TestRecoverFailedSkipsWhenComplete(t *testing.T) {
	o := testOrchestrator(newStubFetcher())
	batch := &download.Batch{Assets: []schemas.PageAsset{
		asset(0, schemas.PageStatusDownloaded, "a"),
	}}

	o.recoverFailed(context.Background(), batch, func(context.Context, []int) (map[int]string, error) {
		t.Fatal("refresh must not run for a complete batch")
		return nil, nil
	})
	assert.True(t, batch.OK())
}

func TestRecoverFailedNilRefresh(t *testing.T) {
	o := testOrchestrator(newStubFetcher())
	batch := &download.Batch{Assets: []schemas.PageAsset{
		asset(0, schemas.PageStatusFailed, ""),
	}}

	o.recoverFailed(context.Background(), batch, nil)
	assert.Equal(t, []int{0}, batch.Failed())
}

func TestRecoverFailedRefreshError(t *testing.T) {
	o := testOrchestrator(newStubFetcher())
	batch := &download.Batch{Assets: []schemas.PageAsset{
		asset(0, schemas.PageStatusDownloaded, "a"),
		asset(1, schemas.PageStatusFailed, ""),
	}}

	o.recoverFailed(context.Background(), batch, func(context.Context, []int) (map[int]string, error) {
		return nil, errors.New("browser would not start")
	})

	// Partial result survives a failed refresh untouched.
	assert.Equal(t, []int{1}, batch.Failed())
	assert.Equal(t, 1, batch.Downloaded())
}
