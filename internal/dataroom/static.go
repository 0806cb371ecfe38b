// internal/dataroom/static.go
package dataroom

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/docgrab/api/schemas"
)

// enumerateFromHTML grabs the rendered markup and hands it to the static
// parser. Used when the fiber walk finds nothing, which happens on rooms
// served with plain anchor cards.
func (c *Crawler) enumerateFromHTML(ctx context.Context) ([]schemas.DocumentRef, error) {
	var html string
	if err := chromedp.Run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return nil, fmt.Errorf("read page markup: %w", err)
	}
	docs, err := ParseDocumentCards(html)
	if err != nil {
		return nil, err
	}
	if len(docs) > 0 {
		c.logger.Info("Enumerated documents from static markup.", zap.Int("count", len(docs)))
	}
	return docs, nil
}

// ParseDocumentCards extracts document links from landing page markup.
// It accepts anchors that are, or sit inside, a card element, keeping the
// first occurrence of each href. Section information is not recoverable
// from markup alone, so all results land at the room root.
func ParseDocumentCards(html string) ([]schemas.DocumentRef, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse markup: %w", err)
	}

	var refs []schemas.DocumentRef
	seen := make(map[string]bool)

	doc.Find(`a[class*="index-module__card"], [class*="index-module__card"] a`).
		Each(func(_ int, a *goquery.Selection) {
			href, ok := a.Attr("href")
			if !ok || href == "" || seen[href] {
				return
			}
			name := strings.TrimSpace(a.Text())
			if name == "" {
				name, _ = a.Attr("title")
				name = strings.TrimSpace(name)
			}
			if name == "" {
				return
			}
			seen[href] = true
			refs = append(refs, schemas.DocumentRef{Name: name, Href: href})
		})

	return refs, nil
}
