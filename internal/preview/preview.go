package preview

import (
	"errors"
	"fmt"

	"github.com/gen2brain/go-fitz"
)

// DefaultDPI is the rendering resolution for invoice previews. High enough
// to read line items on a dashboard, small enough to ship over the wire.
const DefaultDPI = 144

// ErrPageOutOfRange reports a request for a page past the end of the document.
var ErrPageOutOfRange = errors.New("page out of range")

// RenderPNG rasterizes one page of a PDF to PNG at the given DPI. Pages are
// numbered from 1.
func RenderPNG(pdf []byte, page int, dpi float64) ([]byte, error) {
	doc, err := fitz.NewFromMemory(pdf)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer doc.Close()

	if page < 1 || page > doc.NumPage() {
		return nil, fmt.Errorf("page %d of %d: %w", page, doc.NumPage(), ErrPageOutOfRange)
	}

	png, err := doc.ImagePNG(page-1, dpi)
	if err != nil {
		return nil, fmt.Errorf("render page %d: %w", page, err)
	}
	return png, nil
}

// PageCount reports the number of pages in a PDF.
func PageCount(pdf []byte) (int, error) {
	doc, err := fitz.NewFromMemory(pdf)
	if err != nil {
		return 0, fmt.Errorf("open pdf: %w", err)
	}
	defer doc.Close()

	return doc.NumPage(), nil
}
