package pdf

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/sirupsen/logrus"

	"github.com/a3tai/mcp-pdf-converter/internal/layout"
	"github.com/a3tai/mcp-pdf-converter/internal/logging"
)

// Extractor reads positioned text runs out of PDF pages
type Extractor struct {
	maxFileSize int64
	runs        RunConfig
	log         logrus.FieldLogger
}

// NewExtractor creates a PDF text extractor with the specified constraints
func NewExtractor(maxFileSize int64, logger logrus.FieldLogger) *Extractor {
	return &Extractor{
		maxFileSize: maxFileSize,
		runs:        DefaultRunConfig(),
		log:         logging.Component(logger, "extractor"),
	}
}

// WithRunConfig overrides the glyph merging thresholds
func (e *Extractor) WithRunConfig(cfg RunConfig) *Extractor {
	e.runs = cfg
	return e
}

// ExtractPages returns the raw text items of every page, numbered from 1.
// A page whose content stream cannot be decoded yields no items; that is
// logged and the remaining pages are still extracted.
func (e *Extractor) ExtractPages(ctx context.Context, path string) ([]layout.PageItems, error) {
	if path == "" {
		return nil, fmt.Errorf("path cannot be empty")
	}

	fileInfo, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("file does not exist: %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot access file: %w", err)
	}
	if fileInfo.Size() > e.maxFileSize {
		return nil, fmt.Errorf("file too large: %d bytes (max: %d bytes)", fileInfo.Size(), e.maxFileSize)
	}

	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	numPages := reader.NumPage()
	pages := make([]layout.PageItems, 0, numPages)
	for pageNum := 1; pageNum <= numPages; pageNum++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		items, err := e.extractPage(reader, pageNum)
		if err != nil {
			e.log.WithFields(logrus.Fields{"path": path, "page": pageNum}).
				WithError(err).Warn("page text could not be extracted")
		}
		pages = append(pages, layout.PageItems{Number: pageNum, Items: items})
	}

	e.log.WithFields(logrus.Fields{"path": path, "pages": numPages}).Debug("extracted text runs")
	return pages, nil
}

// extractPage recovers from panics raised by malformed content streams
func (e *Extractor) extractPage(reader *pdf.Reader, pageNum int) (items []layout.RawItem, err error) {
	defer func() {
		if r := recover(); r != nil {
			items = nil
			err = fmt.Errorf("panic during content extraction: %v", r)
		}
	}()

	page := reader.Page(pageNum)
	if page.V.IsNull() {
		return nil, fmt.Errorf("invalid page %d", pageNum)
	}

	return coalesceGlyphs(page.Content().Text, e.runs), nil
}

// PlainText flattens extracted items into text, one page per paragraph.
// Screening runs on this before any layout work.
func PlainText(pages []layout.PageItems) string {
	var b strings.Builder
	for i, p := range pages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		for j, it := range p.Items {
			if j > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(it.Text)
		}
	}
	return b.String()
}
