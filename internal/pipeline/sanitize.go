// internal/pipeline/sanitize.go
package pipeline

import (
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
)

// unsafeFilename matches characters that are reserved on at least one
// supported filesystem, plus control characters.
var unsafeFilename = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)

// SanitizeName makes a document title safe to use as a file or directory
// name. Reserved characters become underscores and leading or trailing
// underscores and spaces are stripped. The result may be empty; callers
// fall back to a URL-derived slug.
func SanitizeName(name string) string {
	return strings.Trim(unsafeFilename.ReplaceAllString(name, "_"), "_ ")
}

// sectionDir maps a remote folder path like "Legal/Contracts" onto a local
// path below root, sanitizing each component independently.
func sectionDir(root, section string) string {
	if section == "" {
		return root
	}
	parts := strings.Split(section, "/")
	safe := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := SanitizeName(p); s != "" {
			safe = append(safe, s)
		}
	}
	return filepath.Join(append([]string{root}, safe...)...)
}

// slugFromURL returns the last path segment of a URL, used as a naming
// fallback when no title could be read.
func slugFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	path := strings.TrimRight(u.Path, "/")
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}
