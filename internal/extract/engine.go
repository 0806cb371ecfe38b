// internal/extract/engine.go
// Package extract drives a live viewer page through the URL-extraction state
// machine: navigate -> gate-check -> counting-pages -> fetching-urls. The
// in-page fetches run in the page's own network context, so they carry the
// viewer's authentication state -- this is the only place signed URLs are
// obtained.
package extract

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/docgrab/internal/config"
)

// Viewer DOM contract. These selectors are the upstream viewer's rendered
// chrome; when the upstream changes its layout, extraction degrades per the
// error taxonomy rather than guessing.
const (
	selGateEmailInput = `input[name="visitor[email]"]`
	selGateSubmit     = `button[type="submit"]`
	selPageIndicator  = `.toolbar-page-indicator`
)

// Extraction errors. Fatal for a single document; a collection crawl degrades
// them to skip-with-warning.
var (
	ErrPageCountUndetectable = errors.New("could not detect the viewer page count")
	ErrNoURLs                = errors.New("viewer returned no signed page URLs; " +
		"ensure the browser profile has visited the viewer at least once so session cookies exist")
)

// Engine runs extraction against one live page at a time. The page context is
// a serially shared resource; the Engine never issues concurrent calls
// against it.
type Engine struct {
	cfg    config.ExtractConfig
	logger *zap.Logger
}

// NewEngine creates an extraction engine.
func NewEngine(cfg config.ExtractConfig, logger *zap.Logger) *Engine {
	return &Engine{
		cfg:    cfg,
		logger: logger.Named("extract"),
	}
}

// NavigateAndGate loads a viewer URL and clears the access gate if one is
// presented. Gate absence is not an error.
func (e *Engine) NavigateAndGate(ctx context.Context, url, email string) error {
	e.logger.Info("Navigating.", zap.String("url", url), zap.String("phase", "navigating"))

	navCtx, cancel := context.WithTimeout(ctx, e.cfg.NavigationTimeout)
	defer cancel()
	if err := chromedp.Run(navCtx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}

	e.handleGate(ctx, email)
	return nil
}

// handleGate detects the email-capture gate and submits a value. Every
// failure here is non-critical: either no gate was shown, or the viewer will
// fail loudly at the counting-pages step.
func (e *Engine) handleGate(ctx context.Context, email string) {
	e.logger.Debug("Checking for access gate.", zap.String("phase", "gate-check"))

	gateCtx, cancel := context.WithTimeout(ctx, e.cfg.GateTimeout)
	defer cancel()
	if err := chromedp.Run(gateCtx, chromedp.WaitVisible(selGateEmailInput, chromedp.ByQuery)); err != nil {
		// No gate within the detection window.
		e.logger.Debug("No access gate detected.")
		return
	}

	if email == "" {
		email = e.cfg.GateEmail
	}
	e.logger.Info("Access gate detected, submitting email.")

	submitCtx, cancel2 := context.WithTimeout(ctx, e.cfg.ViewerTimeout)
	defer cancel2()
	err := chromedp.Run(submitCtx,
		chromedp.SendKeys(selGateEmailInput, email, chromedp.ByQuery),
		chromedp.Click(selGateSubmit, chromedp.ByQuery),
		chromedp.WaitVisible(selPageIndicator, chromedp.ByQuery),
	)
	if err != nil {
		e.logger.Warn("Gate submission did not complete; continuing.", zap.Error(err))
	}
}

// TotalPages reads the total page count from the viewer's toolbar indicator.
// Returns ErrPageCountUndetectable when the viewer chrome never appears or
// the indicator cannot be parsed.
func (e *Engine) TotalPages(ctx context.Context) (int, error) {
	e.logger.Debug("Detecting page count.", zap.String("phase", "counting-pages"))

	waitCtx, cancel := context.WithTimeout(ctx, e.cfg.ViewerTimeout)
	defer cancel()
	if err := chromedp.Run(waitCtx, chromedp.WaitVisible(selPageIndicator, chromedp.ByQuery)); err != nil {
		return 0, ErrPageCountUndetectable
	}

	var total int
	script := fmt.Sprintf(`(() => {
		const ind = document.querySelector(%q);
		if (!ind) return 0;
		const parts = ind.innerText.split('/');
		return parts.length > 1 ? parseInt(parts[1].trim()) || 0 : 0;
	})()`, selPageIndicator)

	if err := chromedp.Run(ctx, chromedp.Evaluate(script, &total)); err != nil {
		return 0, fmt.Errorf("read page indicator: %w", err)
	}
	if total <= 0 {
		return 0, ErrPageCountUndetectable
	}

	e.logger.Info("Detected page count.", zap.Int("pages", total))
	return total, nil
}

// Document runs the full state machine against a viewer URL already routed
// to a live page context: navigate, clear the gate, count pages, and fetch
// every signed URL. It also performs the best-effort title lookup while the
// page is still live.
func (e *Engine) Document(ctx context.Context, url, email string) (urls []string, title string, err error) {
	start := time.Now()

	if err := e.NavigateAndGate(ctx, url, email); err != nil {
		return nil, "", err
	}

	total, err := e.TotalPages(ctx)
	if err != nil {
		return nil, "", err
	}

	title = e.Title(ctx)

	urls, err = e.ExtractAll(ctx, total)
	if err != nil {
		return nil, title, err
	}

	e.logger.Info("Extraction finished.",
		zap.Int("pages", len(urls)), zap.Duration("took", time.Since(start)))
	return urls, title, nil
}
