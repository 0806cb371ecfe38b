// internal/extract/title.go
package extract

import (
	"context"
	"strings"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// titleScript walks the fallback chain for a document's display name. The
// name lives in a data-react-props JSON blob on the active drawer link
// (fileName key); failing that, any drawer link matching the current URL,
// the drawer title text, and finally the HTML title with the site suffix
// trimmed.
const titleScript = `(() => {
	try {
		const el = document.querySelector('.drawer_link--active[data-react-props]');
		if (el) {
			const props = JSON.parse(el.getAttribute('data-react-props'));
			if (props.fileName) return props.fileName;
		}
	} catch {}
	try {
		const links = document.querySelectorAll('[data-react-props]');
		for (const el of links) {
			const props = JSON.parse(el.getAttribute('data-react-props'));
			if (props.fileName && props.presentationUrl
				&& window.location.href.includes(props.presentationUrl.split('/d/')[1] || '')) {
				return props.fileName;
			}
		}
	} catch {}
	const drawer = document.querySelector('.drawer_title');
	if (drawer) {
		const t = drawer.innerText.trim();
		if (t && t !== 'DocSend') return t;
	}
	const t = (document.title || '').replace(/ [-|] DocSend$/i, '').trim();
	return t !== 'DocSend' ? t : '';
})()`

// Title returns the document's display name, or "" when no name could be
// read. A missing title is never fatal; callers fall back to a derived name.
func (e *Engine) Title(ctx context.Context) string {
	var title string
	if err := chromedp.Run(ctx, chromedp.Evaluate(titleScript, &title)); err != nil {
		e.logger.Debug("Title lookup failed.", zap.Error(err))
		return ""
	}
	return strings.TrimSpace(title)
}
