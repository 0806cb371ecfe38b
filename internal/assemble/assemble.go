// Package assemble compiles downloaded page images into a single PDF, one
// image per page at the image's native size.
package assemble

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// ErrNoPages means there is nothing to compile. No output file is created.
var ErrNoPages = errors.New("no page images to assemble")

// PDF writes the images to dest as a PDF, creating parent directories as
// needed. Page order follows slice order; nil or empty entries are invalid
// input and the caller is expected to have filtered them out.
func PDF(pages [][]byte, dest string) error {
	if len(pages) == 0 {
		return ErrNoPages
	}

	imp, err := api.Import("pos:full", types.POINTS)
	if err != nil {
		return fmt.Errorf("configure import: %w", err)
	}

	readers := make([]io.Reader, len(pages))
	for i, p := range pages {
		if len(p) == 0 {
			return fmt.Errorf("page %d is empty", i)
		}
		readers[i] = bytes.NewReader(p)
	}

	if dir := filepath.Dir(dest); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}

	if err := api.ImportImages(nil, f, readers, imp, nil); err != nil {
		f.Close()
		os.Remove(dest)
		return fmt.Errorf("compile pdf: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", dest, err)
	}
	return nil
}
