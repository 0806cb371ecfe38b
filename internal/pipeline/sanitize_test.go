package pipeline

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeName(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"clean", "Pitch Deck 2026", "Pitch Deck 2026"},
		{"reserved chars", `Q1<>:"/\|?*Report`, "Q1_________Report"},
		{"control chars", "Board\x00\x1fNotes", "Board__Notes"},
		{"leading trailing", "  _Deck_ ", "Deck"},
		{"all unsafe", `///`, ""},
		{"empty", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, SanitizeName(tc.in))
		})
	}
}

func TestSectionDir(t *testing.T) {
	assert.Equal(t, "root", sectionDir("root", ""))
	assert.Equal(t, filepath.Join("root", "Legal", "Contracts"), sectionDir("root", "Legal/Contracts"))
	assert.Equal(t, filepath.Join("root", "A_B"), sectionDir("root", "A:B"))
	// Components that sanitize to nothing drop out instead of producing
	// empty path elements.
	assert.Equal(t, filepath.Join("root", "Kept"), sectionDir("root", "***/Kept"))
}

func TestSlugFromURL(t *testing.T) {
	assert.Equal(t, "abc123", slugFromURL("https://docsend.com/view/abc123"))
	assert.Equal(t, "abc123", slugFromURL("https://docsend.com/view/abc123/"))
	assert.Equal(t, "deadbeef", slugFromURL("https://docsend.com/view/s1/d/deadbeef?x=1"))
	assert.Equal(t, "", slugFromURL("://bad"))
}

func TestDocumentOutput(t *testing.T) {
	o := &Orchestrator{}
	assert.Equal(t, "Pitch Deck.pdf", o.documentOutput("Pitch Deck", "https://docsend.com/view/x"))
	assert.Equal(t, "x.pdf", o.documentOutput("", "https://docsend.com/view/x"))
	assert.Equal(t, fallbackOutput, o.documentOutput("///", "://bad"))
}
