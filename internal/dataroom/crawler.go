// Package dataroom enumerates the documents of a multi-document room from
// its landing page. Enumeration reads React fiber props off the document
// cards, which carry the full folder hierarchy; a static HTML parse covers
// pages where the fiber walk comes up empty.
package dataroom

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/docgrab/api/schemas"
	"github.com/xkilldash9x/docgrab/internal/config"
	"github.com/xkilldash9x/docgrab/internal/extract"
)

const selDocumentCard = `[class*="index-module__card"]`

// ErrNoDocuments means the landing page rendered but no document cards
// could be read. Usually a missing session cookie.
var ErrNoDocuments = fmt.Errorf(
	"no documents found in this dataroom: visit the site once in your regular browser so session cookies exist")

// IsDataroomURL distinguishes a room landing URL from a single-document
// URL. Document paths carry a /d/ segment, room paths do not.
func IsDataroomURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return !strings.Contains(u.Path, "/d/")
}

// Crawler reads a dataroom landing page that is already open in the
// supplied browser tab context.
type Crawler struct {
	cfg    config.ExtractConfig
	logger *zap.Logger
}

func NewCrawler(cfg config.ExtractConfig, logger *zap.Logger) *Crawler {
	return &Crawler{cfg: cfg, logger: logger.Named("dataroom")}
}

// Crawl navigates to the landing page and produces the room inventory:
// title, deduplicated document list, bulk-download availability, and a
// best-effort landing snapshot.
func (c *Crawler) Crawl(ctx context.Context, roomURL string) (*schemas.Dataroom, error) {
	navCtx, cancel := context.WithTimeout(ctx, c.cfg.NavigationTimeout)
	defer cancel()

	c.logger.Info("Opening dataroom landing page.", zap.String("url", roomURL))
	if err := chromedp.Run(navCtx, chromedp.Navigate(roomURL)); err != nil {
		return nil, fmt.Errorf("navigate to dataroom: %w", err)
	}
	c.awaitCards(ctx)

	room := &schemas.Dataroom{}

	// Snapshot before enumeration so the landing page is still front and
	// center. Failure here never blocks the crawl.
	snap, err := c.snapshot(ctx)
	if err != nil {
		c.logger.Warn("Could not capture landing page snapshot.", zap.Error(err))
	} else {
		room.LandingSnapshot = snap
		c.logger.Info("Captured landing page snapshot.", zap.Int("bytes", len(snap)))
	}

	docs, err := c.Enumerate(ctx)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		docs, err = c.enumerateFromHTML(ctx)
		if err != nil {
			c.logger.Debug("Static enumeration fallback failed.", zap.Error(err))
		}
	}
	if len(docs) == 0 {
		return nil, ErrNoDocuments
	}
	room.Documents = docs

	room.Title = c.Title(ctx)
	room.BulkDownload = c.hasBulkDownload(ctx)

	c.logger.Info("Dataroom crawled.",
		zap.String("title", room.Title),
		zap.Int("documents", len(room.Documents)),
		zap.Bool("bulk_download", room.BulkDownload))
	return room, nil
}

// awaitCards waits for the card grid to render. Missing cards are not fatal
// here; enumeration decides whether the room is actually empty.
func (c *Crawler) awaitCards(ctx context.Context) {
	waitCtx, cancel := context.WithTimeout(ctx, c.cfg.ViewerTimeout)
	defer cancel()

	if err := chromedp.Run(waitCtx,
		chromedp.WaitVisible(selDocumentCard, chromedp.ByQuery),
		// Let thumbnails settle before the snapshot.
		chromedp.Sleep(time.Second),
	); err != nil {
		c.logger.Debug("Document cards did not render in time.", zap.Error(err))
	}
}

// Enumerate reads the document list out of the card elements' React fibers.
// The folder prop on a card carries the complete contents of that folder,
// so one hit per folder is enough; documents are deduplicated by href with
// the first sighting winning.
func (c *Crawler) Enumerate(ctx context.Context) ([]schemas.DocumentRef, error) {
	var docs []schemas.DocumentRef
	if err := chromedp.Run(ctx, chromedp.Evaluate(enumerateScript, &docs)); err != nil {
		return nil, fmt.Errorf("enumerate documents: %w", err)
	}
	return docs, nil
}

// Title tries the room headings first, then falls back to the first
// substantial line of body text. Returns "" when nothing plausible exists.
func (c *Crawler) Title(ctx context.Context) string {
	var title string
	if err := chromedp.Run(ctx, chromedp.Evaluate(titleScript, &title)); err != nil {
		c.logger.Debug("Dataroom title lookup failed.", zap.Error(err))
		return ""
	}
	return strings.TrimSpace(title)
}

func (c *Crawler) hasBulkDownload(ctx context.Context) bool {
	var enabled bool
	if err := chromedp.Run(ctx, chromedp.Evaluate(bulkDownloadScript, &enabled)); err != nil {
		c.logger.Debug("Bulk download probe failed.", zap.Error(err))
		return false
	}
	return enabled
}

// snapshot restores the window (a minimized window renders nothing),
// captures the full page, and minimizes again.
func (c *Crawler) snapshot(ctx context.Context) ([]byte, error) {
	if err := extract.RestoreWindow(ctx); err != nil {
		return nil, err
	}
	defer func() {
		if err := extract.MinimizeWindow(ctx); err != nil {
			c.logger.Debug("Could not re-minimize window.", zap.Error(err))
		}
	}()

	if err := chromedp.Run(ctx, chromedp.Sleep(500*time.Millisecond)); err != nil {
		return nil, err
	}
	return extract.CaptureFullPage(ctx)
}
