// internal/pipeline/recovery.go
package pipeline

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/xkilldash9x/docgrab/api/schemas"
	"github.com/xkilldash9x/docgrab/internal/download"
)

// refreshFunc re-resolves signed URLs for the given zero-based page
// indices, returning whatever subset could be refreshed, keyed by the same
// indices. Implementations typically open a fresh browser session because
// the original one was already released before downloads started.
type refreshFunc func(ctx context.Context, indices []int) (map[int]string, error)

// recoverFailed runs the one-shot recovery pass: refresh URLs for the
// batch's failed pages, download them, and fold successes back into the
// batch. It runs at most once per document and never makes the batch
// worse. A nil refresh means recovery is not possible in this mode.
func (o *Orchestrator) recoverFailed(ctx context.Context, batch *download.Batch, refresh refreshFunc) {
	failed := batch.Failed()
	if len(failed) == 0 || refresh == nil {
		return
	}

	o.logger.Info("Recovering failed pages with fresh URLs.",
		zap.Ints("failed_indices", failed))

	fresh, err := refresh(ctx, failed)
	if err != nil {
		o.logger.Warn("URL refresh failed; keeping partial result.", zap.Error(err))
		return
	}
	if len(fresh) == 0 {
		o.logger.Warn("No URLs could be refreshed; keeping partial result.")
		return
	}

	indices, urls := flattenFresh(fresh)
	retry, err := o.downloader.Run(ctx, urls)
	if err != nil {
		o.logger.Warn("Recovery download aborted.", zap.Error(err))
		return
	}

	mergeRecovered(batch, indices, retry)

	if still := batch.Failed(); len(still) == 0 {
		o.logger.Info("All pages recovered.")
	} else {
		o.logger.Warn("Some pages still failed after recovery.",
			zap.Ints("failed_indices", still))
	}
}

// flattenFresh orders the refreshed URLs by original page index so the
// retry batch's positions map back deterministically.
func flattenFresh(fresh map[int]string) (indices []int, urls []string) {
	indices = make([]int, 0, len(fresh))
	for idx := range fresh {
		indices = append(indices, idx)
	}
	sort.Ints(indices)
	urls = make([]string, len(indices))
	for i, idx := range indices {
		urls[i] = fresh[idx]
	}
	return indices, urls
}

// mergeRecovered folds a retry batch into the original. indices[i] is the
// original page index of the retry batch's asset i. Assets the retry also
// failed stay failed; the partition invariant holds afterwards.
func mergeRecovered(batch *download.Batch, indices []int, retry *download.Batch) {
	for i, a := range retry.Assets {
		if a.Status != schemas.PageStatusDownloaded {
			continue
		}
		if i >= len(indices) {
			break
		}
		orig := indices[i]
		if orig < 0 || orig >= len(batch.Assets) {
			continue
		}
		batch.Assets[orig].Data = a.Data
		batch.Assets[orig].URL = a.URL
		batch.Assets[orig].Status = schemas.PageStatusDownloaded
	}
}
