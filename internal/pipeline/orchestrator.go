// Package pipeline ties the stages together: session lifecycle, URL
// extraction, bulk download, one-shot recovery, and PDF assembly. The
// browser exists only as long as extraction needs it; downloads always run
// against a released session because signed URLs outlive the browser but
// not the clock.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"
	"github.com/mitchellh/go-homedir"
	"go.uber.org/zap"

	"github.com/xkilldash9x/docgrab/api/schemas"
	"github.com/xkilldash9x/docgrab/internal/assemble"
	"github.com/xkilldash9x/docgrab/internal/config"
	"github.com/xkilldash9x/docgrab/internal/dataroom"
	"github.com/xkilldash9x/docgrab/internal/download"
	"github.com/xkilldash9x/docgrab/internal/extract"
	"github.com/xkilldash9x/docgrab/internal/session"
)

// fallbackOutput is used when neither a title nor a URL slug yields a name.
const fallbackOutput = "output.pdf"

// Orchestrator runs one grab invocation end to end.
type Orchestrator struct {
	cfg        *config.Config
	logger     *zap.Logger
	sessions   *session.Manager
	engine     *extract.Engine
	crawler    *dataroom.Crawler
	downloader *download.Downloader
}

func New(cfg *config.Config, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:        cfg,
		logger:     logger.Named("pipeline"),
		sessions:   session.NewManager(cfg, logger),
		engine:     extract.NewEngine(cfg.Extract, logger),
		crawler:    dataroom.NewCrawler(cfg.Extract, logger),
		downloader: download.NewDownloader(cfg.Download, nil, logger),
	}
}

// Run dispatches on the invocation mode. The escape hatches (pre-extracted
// URL file, explicit CDP endpoint) bypass parts of the managed flow; the
// default path launches its own browser and handles both single documents
// and datarooms.
func (o *Orchestrator) Run(ctx context.Context) error {
	switch {
	case o.cfg.Grab.URLFile != "":
		return o.runURLFile(ctx)
	case o.cfg.Grab.CDPURL != "":
		return o.runDocument(ctx)
	case dataroom.IsDataroomURL(o.cfg.Grab.Target):
		return o.runDataroom(ctx)
	default:
		return o.runDocument(ctx)
	}
}

// openSession wraps the caller's endpoint when one was given, otherwise
// launches a managed browser.
func (o *Orchestrator) openSession(ctx context.Context) (*session.Session, error) {
	if o.cfg.Grab.CDPURL != "" {
		return o.sessions.Wrap(o.cfg.Grab.CDPURL), nil
	}
	return o.sessions.Acquire(ctx)
}

// releaseSession tears a session down with its own deadline so cleanup is
// not skipped when the invocation context is already cancelled.
func (o *Orchestrator) releaseSession(s *session.Session) {
	ctx, cancel := context.WithTimeout(context.Background(), o.cfg.Browser.ReleaseGrace)
	defer cancel()
	if err := s.Release(ctx); err != nil {
		o.logger.Warn("Session release failed.", zap.Error(err))
	}
}

// runURLFile downloads pre-extracted URLs with no browser involved. There
// is no session to refresh URLs from, so failed pages are final.
func (o *Orchestrator) runURLFile(ctx context.Context) error {
	data, err := os.ReadFile(o.cfg.Grab.URLFile)
	if err != nil {
		return fmt.Errorf("read url file: %w", err)
	}
	var urls []string
	if err := jsoniter.Unmarshal(data, &urls); err != nil {
		return fmt.Errorf("parse url file %s: %w", o.cfg.Grab.URLFile, err)
	}
	if len(urls) == 0 {
		return fmt.Errorf("url file %s contains no URLs", o.cfg.Grab.URLFile)
	}
	o.logger.Info("Loaded pre-extracted URLs.",
		zap.Int("count", len(urls)), zap.String("file", o.cfg.Grab.URLFile))

	batch, err := o.downloader.Run(ctx, urls)
	if err != nil {
		return err
	}
	o.warnIncomplete(batch, len(urls))

	out := o.cfg.Grab.Output
	if out == "" {
		out = fallbackOutput
	}
	return o.writePDF(batch, len(urls), out)
}

// runDocument handles a single document, either through an explicit CDP
// endpoint or a managed browser.
func (o *Orchestrator) runDocument(ctx context.Context) error {
	target := o.cfg.Grab.Target
	email := o.cfg.Grab.Email

	sess, err := o.openSession(ctx)
	if err != nil {
		return err
	}
	// The deferred release covers panics; the eager one below ensures the
	// browser is gone before downloads start. Release is idempotent.
	defer o.releaseSession(sess)

	urls, title, err := o.extractDocument(ctx, sess, target, email)
	o.releaseSession(sess)
	if err != nil {
		return err
	}

	out := o.cfg.Grab.Output
	if out == "" {
		out = o.documentOutput(title, target)
		o.logger.Info("Auto-detected output filename.", zap.String("output", out))
	}

	batch, err := o.downloader.Run(ctx, urls)
	if err != nil {
		return err
	}
	o.recoverFailed(ctx, batch, o.sessionRefresher(target, email))
	o.warnIncomplete(batch, len(urls))

	return o.writePDF(batch, len(urls), out)
}

// extractDocument opens one tab, runs the extraction state machine, and
// closes the tab. The session itself stays open for the caller.
func (o *Orchestrator) extractDocument(ctx context.Context, sess *session.Session, target, email string) ([]string, string, error) {
	pageCtx, cancel, err := sess.NewPage(ctx)
	if err != nil {
		return nil, "", err
	}
	defer cancel()

	o.minimize(pageCtx, sess)

	return o.engine.Document(pageCtx, target, email)
}

// minimize hides the browser window for managed headful sessions. The user
// asked for a document, not a browser.
func (o *Orchestrator) minimize(pageCtx context.Context, sess *session.Session) {
	if sess.Origin() != session.OriginSelfLaunched || o.cfg.Grab.Headless {
		return
	}
	if err := extract.MinimizeWindow(pageCtx); err != nil {
		o.logger.Debug("Could not minimize browser window.",
			zap.Error(schemas.NonCritical("minimize window", err)))
	}
}

// sessionRefresher builds the recovery hook for a document URL. Each
// refresh opens a fresh session because the extraction session was already
// released when downloads began.
func (o *Orchestrator) sessionRefresher(target, email string) refreshFunc {
	return func(ctx context.Context, indices []int) (map[int]string, error) {
		sess, err := o.openSession(ctx)
		if err != nil {
			return nil, err
		}
		defer o.releaseSession(sess)

		pageCtx, cancel, err := sess.NewPage(ctx)
		if err != nil {
			return nil, err
		}
		defer cancel()

		o.minimize(pageCtx, sess)

		if err := o.engine.NavigateAndGate(pageCtx, target, email); err != nil {
			return nil, err
		}
		// Waiting for the page indicator doubles as waiting for the viewer
		// to be ready to serve page_data.
		if _, err := o.engine.TotalPages(pageCtx); err != nil {
			return nil, err
		}

		pages := make([]int, len(indices))
		for i, idx := range indices {
			pages[i] = idx + 1
		}
		return o.engine.ExtractPages(pageCtx, pages)
	}
}

// runDataroom crawls the landing page, extracts every document's URLs in
// one browser session, then downloads and assembles each document into a
// directory tree mirroring the room's folder structure.
func (o *Orchestrator) runDataroom(ctx context.Context) error {
	target := o.cfg.Grab.Target
	email := o.cfg.Grab.Email

	sess, err := o.openSession(ctx)
	if err != nil {
		return err
	}
	defer o.releaseSession(sess)

	room, extractions, err := o.crawlAndExtract(ctx, sess, target, email)
	o.releaseSession(sess)
	if err != nil {
		return err
	}
	if len(extractions) == 0 {
		return errors.New("no documents could be extracted from this dataroom")
	}

	outDir, err := o.dataroomOutput(room.Title, target)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	o.logger.Info("Writing dataroom output.", zap.String("dir", outDir))

	o.writeLandingIndex(room, outDir)

	var failedDocs []string
	for _, doc := range extractions {
		if err := o.downloadDocument(ctx, doc, outDir, email); err != nil {
			o.logger.Warn("Document failed.",
				zap.String("name", doc.Name), zap.Error(err))
			failedDocs = append(failedDocs, doc.Name)
		}
	}

	if len(failedDocs) == len(extractions) {
		return errors.New("every document in the dataroom failed to download")
	}
	o.logger.Info("Dataroom download complete.",
		zap.String("dir", outDir),
		zap.Int("documents", len(extractions)-len(failedDocs)),
		zap.Strings("failed_documents", failedDocs))
	return nil
}

// crawlAndExtract enumerates the room and pulls signed URLs for every
// document in a single tab. Documents whose page count or URLs cannot be
// read are skipped with a warning rather than failing the room.
func (o *Orchestrator) crawlAndExtract(ctx context.Context, sess *session.Session, target, email string) (*schemas.Dataroom, []schemas.ExtractedDocument, error) {
	pageCtx, cancel, err := sess.NewPage(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer cancel()

	o.minimize(pageCtx, sess)

	room, err := o.crawler.Crawl(pageCtx, target)
	if err != nil {
		return nil, nil, err
	}

	var extractions []schemas.ExtractedDocument
	for i, ref := range room.Documents {
		o.logger.Info("Extracting document.",
			zap.Int("n", i+1), zap.Int("of", len(room.Documents)),
			zap.String("name", ref.Name), zap.String("section", ref.Section))

		urls, _, err := o.engine.Document(pageCtx, ref.Href, email)
		if err != nil {
			o.logger.Warn("Skipping document.",
				zap.String("name", ref.Name), zap.Error(err))
			continue
		}

		// The landing page showed no download control; a representative
		// document's toolbar is the fallback signal.
		if !room.BulkDownload && len(extractions) == 0 {
			room.BulkDownload = o.engine.DownloadEnabled(pageCtx)
			if room.BulkDownload {
				o.logger.Info("Native download is available on documents.")
			}
		}

		extractions = append(extractions, schemas.ExtractedDocument{
			Name:    ref.Name,
			Section: ref.Section,
			Href:    ref.Href,
			URLs:    urls,
		})
	}
	return room, extractions, nil
}

// writeLandingIndex saves the landing page snapshot as a one-page PDF at
// the room root. Best effort; the room is intact without it.
func (o *Orchestrator) writeLandingIndex(room *schemas.Dataroom, outDir string) {
	if len(room.LandingSnapshot) == 0 {
		return
	}
	indexPath := filepath.Join(outDir, "_dataroom_index.pdf")
	if err := assemble.PDF([][]byte{room.LandingSnapshot}, indexPath); err != nil {
		o.logger.Warn("Could not save landing page index.",
			zap.Error(schemas.NonCritical("landing index", err)))
		return
	}
	o.logger.Info("Saved landing page index.", zap.String("path", indexPath))
}

// downloadDocument runs the download, recovery, and assembly stages for one
// extracted document.
func (o *Orchestrator) downloadDocument(ctx context.Context, doc schemas.ExtractedDocument, outDir, email string) error {
	o.logger.Info("Downloading document.",
		zap.String("name", doc.Name), zap.Int("pages", len(doc.URLs)))

	batch, err := o.downloader.Run(ctx, doc.URLs)
	if err != nil {
		return err
	}
	o.recoverFailed(ctx, batch, o.sessionRefresher(doc.Href, email))
	o.warnIncomplete(batch, len(doc.URLs))

	name := SanitizeName(doc.Name)
	if name == "" {
		name = slugFromURL(doc.Href)
	}
	if name == "" {
		return fmt.Errorf("document %q has no usable name", doc.Name)
	}

	dest := filepath.Join(sectionDir(outDir, doc.Section), name+".pdf")
	return o.writePDF(batch, len(doc.URLs), dest)
}

// writePDF assembles whatever pages the batch holds, in page order.
func (o *Orchestrator) writePDF(batch *download.Batch, total int, dest string) error {
	pages := make([][]byte, 0, batch.Downloaded())
	for i := 0; i < total; i++ {
		if data, ok := batch.Page(i); ok {
			pages = append(pages, data)
		}
	}
	if len(pages) == 0 {
		return errors.New("no page images were downloaded")
	}

	if err := assemble.PDF(pages, dest); err != nil {
		return err
	}
	o.logger.Info("Saved PDF.", zap.String("path", dest), zap.Int("pages", len(pages)))
	return nil
}

func (o *Orchestrator) warnIncomplete(batch *download.Batch, total int) {
	failed := batch.Failed()
	if len(failed) == 0 {
		return
	}
	pages := make([]int, len(failed))
	for i, idx := range failed {
		pages[i] = idx + 1
	}
	o.logger.Warn("Document is incomplete.",
		zap.Int("total_pages", total), zap.Ints("missing_pages", pages))
}

// documentOutput derives a single-document output path from the title,
// falling back to the URL slug.
func (o *Orchestrator) documentOutput(title, target string) string {
	if name := SanitizeName(title); name != "" {
		return name + ".pdf"
	}
	if slug := slugFromURL(target); slug != "" {
		return slug + ".pdf"
	}
	return fallbackOutput
}

// dataroomOutput derives the room output directory, defaulting to
// ~/datarooms/<name>.
func (o *Orchestrator) dataroomOutput(title, target string) (string, error) {
	if o.cfg.Grab.Output != "" {
		return o.cfg.Grab.Output, nil
	}
	name := SanitizeName(title)
	if name == "" {
		name = slugFromURL(target)
	}
	if name == "" {
		return "", errors.New("could not derive a dataroom directory name")
	}
	home, err := homedir.Dir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, "datarooms", name), nil
}
