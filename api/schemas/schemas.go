// api/schemas/schemas.go
// Shared types crossing package boundaries. Anything that more than one
// internal package needs to agree on lives here, keeping the internal
// packages free of dependencies on each other.
package schemas

// PageStatus tracks one page asset through the download pipeline.
type PageStatus string

const (
	PageStatusPending    PageStatus = "pending"
	PageStatusDownloaded PageStatus = "downloaded"
	PageStatusFailed     PageStatus = "failed"
)

// PageAsset is one page of a document: a zero-based index, the signed URL
// assigned by the content host, and the payload once downloaded. Signed URLs
// expire minutes after issuance, so a PageAsset is never persisted across
// runs.
type PageAsset struct {
	Index  int
	URL    string
	Data   []byte
	Status PageStatus
}

// DocumentRef is one item inside a dataroom. Section is the slash-separated
// folder path relative to the dataroom root; empty means the root folder.
// This is the fixed shape returned by the in-page enumeration script -- the
// renderer's internal object graph never leaks past this struct.
type DocumentRef struct {
	Name    string `json:"name"`
	Href    string `json:"href"`
	Section string `json:"section"`
}

// Dataroom is a named collection of documents discovered from a landing page.
type Dataroom struct {
	// Title is best-effort; callers fall back to a URL-derived slug.
	Title     string
	Documents []DocumentRef

	// BulkDownload reports whether the landing page (or a representative
	// document) exposes a native download affordance. Informational only;
	// it never changes the extraction strategy.
	BulkDownload bool

	// LandingSnapshot is a full-page PNG of the landing view, captured once
	// per crawl for the collection index artifact. Nil when capture failed.
	LandingSnapshot []byte
}

// ExtractedDocument is the per-document output of the extraction phase:
// everything the download phase needs, with the browser already out of the
// picture.
type ExtractedDocument struct {
	Name    string
	Section string
	// URLs holds one signed URL per page, ordered by zero-based page index
	// and dense over [0, len(URLs)).
	URLs []string
	// Href is the viewer URL the document was extracted from. The recovery
	// loop re-enters extraction through it when signed URLs expire.
	Href string
}
