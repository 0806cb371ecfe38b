package assemble

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestPDFWritesFile(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "out", "doc.pdf")
	pages := [][]byte{pngBytes(t, 40, 60), pngBytes(t, 40, 60), pngBytes(t, 80, 30)}

	require.NoError(t, PDF(pages, dest))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")), "output should be a PDF")
}

func TestPDFEmptyInput(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "doc.pdf")

	err := PDF(nil, dest)
	require.ErrorIs(t, err, ErrNoPages)

	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr), "no file should be created for empty input")
}

func TestPDFRejectsEmptyPage(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "doc.pdf")
	err := PDF([][]byte{pngBytes(t, 10, 10), nil}, dest)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "page 1 is empty")
}
