// internal/extract/download_probe.go
package extract

import (
	"context"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// downloadEnabledScript checks the viewer toolbar for a native download
// control, then the viewer's own config flags.
const downloadEnabledScript = `(() => {
	const toolbar = document.getElementById('toolbar')
		|| document.querySelector('.presentation-toolbar');
	if (toolbar) {
		const btn = toolbar.querySelector(
			'[aria-label*="ownload"], a[href*="download"], [data-testid*="download"]');
		if (btn) return true;
	}
	try {
		const c = window.presentationConfig;
		if (c && (c.allowDownload || c.isDownloadable)) return true;
	} catch {}
	return false;
})()`

// DownloadEnabled reports whether the currently loaded document offers a
// native download. Informational only; it never changes the extraction
// strategy.
func (e *Engine) DownloadEnabled(ctx context.Context) bool {
	var enabled bool
	if err := chromedp.Run(ctx, chromedp.Evaluate(downloadEnabledScript, &enabled)); err != nil {
		e.logger.Debug("Download probe failed.", zap.Error(err))
		return false
	}
	return enabled
}
