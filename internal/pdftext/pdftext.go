// Package pdftext validates PDF documents and extracts their text layer.
package pdftext

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/starford/pdfarchiver/internal/apperr"
)

// DefaultMaxPages bounds how many leading pages Text reads. Dates and vendor
// names sit on the first pages of almost every document.
const DefaultMaxPages = 5

var magic = []byte("%PDF-")

// Info describes a PDF that passed validation.
type Info struct {
	Pages int `json:"pages"`
}

// Inspect validates data as a PDF in relaxed mode and reports its page count.
// Anything that is not a readable PDF yields apperr.ErrInvalidDocument.
func Inspect(data []byte) (Info, error) {
	if !bytes.HasPrefix(bytes.TrimLeft(data, "\x00\t\n\r "), magic) {
		return Info{}, fmt.Errorf("pdftext: missing %s header: %w", magic, apperr.ErrInvalidDocument)
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		return Info{}, fmt.Errorf("pdftext: read context: %w: %w", apperr.ErrInvalidDocument, err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return Info{}, fmt.Errorf("pdftext: page count: %w: %w", apperr.ErrInvalidDocument, err)
	}
	return Info{Pages: ctx.PageCount}, nil
}

// Text returns the plain text of the first maxPages pages, one block per
// page. maxPages <= 0 reads every page. Scanned documents without a text
// layer produce an empty string and no error.
func Text(data []byte, maxPages int) (text string, err error) {
	// The reader panics on some malformed content streams.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdftext: extract: %v: %w", r, apperr.ErrInvalidDocument)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("pdftext: open: %w: %w", apperr.ErrInvalidDocument, err)
	}

	n := r.NumPage()
	if maxPages > 0 && maxPages < n {
		n = maxPages
	}
	var b strings.Builder
	for i := 1; i <= n; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		s, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("pdftext: page %d: %w", i, err)
		}
		if strings.TrimSpace(s) == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(s)
	}
	return b.String(), nil
}
