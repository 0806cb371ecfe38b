package dataroom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsDataroomURL(t *testing.T) {
	cases := []struct {
		name string
		url  string
		want bool
	}{
		{"room slug", "https://docsend.com/view/abc123", true},
		{"space slug", "https://docsend.com/view/s/abc123", true},
		{"document in room", "https://docsend.com/view/abc123/d/deadbeef", false},
		{"trailing slash", "https://docsend.com/view/abc123/", true},
		{"query ignored", "https://docsend.com/view/abc123?x=/d/", true},
		{"unparseable", "://not-a-url", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsDataroomURL(tc.url))
		})
	}
}

func TestParseDocumentCards(t *testing.T) {
	html := `<html><body>
		<a class="index-module__card--x1" href="/view/r/d/aaa">Pitch Deck</a>
		<div class="index-module__card--x1"><a href="/view/r/d/bbb"><span>Financials</span></a></div>
		<a class="index-module__card--x1" href="/view/r/d/aaa">Pitch Deck Duplicate</a>
		<a class="index-module__card--x1" href="/view/r/d/ccc" title="Cap Table"></a>
		<a class="index-module__card--x1" href="/view/r/d/ddd"></a>
		<a class="other" href="/view/r/d/eee">Not A Card</a>
	</body></html>`

	refs, err := ParseDocumentCards(html)
	require.NoError(t, err)
	require.Len(t, refs, 3)

	assert.Equal(t, "Pitch Deck", refs[0].Name)
	assert.Equal(t, "/view/r/d/aaa", refs[0].Href)
	assert.Equal(t, "Financials", refs[1].Name)
	assert.Equal(t, "Cap Table", refs[2].Name)
	for _, r := range refs {
		assert.Empty(t, r.Section)
	}
}

func TestParseDocumentCardsEmpty(t *testing.T) {
	refs, err := ParseDocumentCards("<html><body><p>nothing here</p></body></html>")
	require.NoError(t, err)
	assert.Empty(t, refs)
}
