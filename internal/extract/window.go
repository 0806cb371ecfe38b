// internal/extract/window.go
package extract

import (
	"context"
	"fmt"
	"math"

	cdpbrowser "github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// maxSnapshotHeight caps full-page screenshots. Very long landing pages
// otherwise produce captures Chrome refuses to render.
const maxSnapshotHeight = 8000

// MinimizeWindow drops the browser window out of the user's way while the
// grab runs. Only meaningful for headful sessions; harmless elsewhere.
func MinimizeWindow(ctx context.Context) error {
	return setWindowState(ctx, cdpbrowser.WindowStateMinimized)
}

// RestoreWindow brings the window back to a normal state, which some capture
// paths require before a screenshot renders anything.
func RestoreWindow(ctx context.Context) error {
	return setWindowState(ctx, cdpbrowser.WindowStateNormal)
}

func setWindowState(ctx context.Context, state cdpbrowser.WindowState) error {
	return chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		id, _, err := cdpbrowser.GetWindowForTarget().Do(ctx)
		if err != nil {
			return fmt.Errorf("resolve window: %w", err)
		}
		bounds := &cdpbrowser.Bounds{WindowState: state}
		if err := cdpbrowser.SetWindowBounds(id, bounds).Do(ctx); err != nil {
			return fmt.Errorf("set window state %q: %w", state, err)
		}
		return nil
	}))
}

// CaptureFullPage screenshots the whole scrollable page as PNG, resizing the
// viewport to the content height (capped) for the duration of the capture.
func CaptureFullPage(ctx context.Context) ([]byte, error) {
	var buf []byte
	err := chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		_, _, _, _, _, css, err := page.GetLayoutMetrics().Do(ctx)
		if err != nil {
			return fmt.Errorf("layout metrics: %w", err)
		}
		if css == nil {
			return fmt.Errorf("layout metrics: no content size reported")
		}
		width := int64(math.Ceil(css.Width))
		height := int64(math.Ceil(css.Height))
		if height > maxSnapshotHeight {
			height = maxSnapshotHeight
		}
		if width <= 0 || height <= 0 {
			return fmt.Errorf("degenerate content size %dx%d", width, height)
		}

		if err := emulation.SetDeviceMetricsOverride(width, height, 1, false).Do(ctx); err != nil {
			return fmt.Errorf("resize viewport: %w", err)
		}
		defer emulation.ClearDeviceMetricsOverride().Do(ctx)

		buf, err = page.CaptureScreenshot().
			WithFormat(page.CaptureScreenshotFormatPng).
			WithCaptureBeyondViewport(true).
			Do(ctx)
		if err != nil {
			return fmt.Errorf("capture screenshot: %w", err)
		}
		return nil
	}))
	if err != nil {
		return nil, err
	}
	return buf, nil
}
