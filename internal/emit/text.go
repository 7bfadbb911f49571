package emit

import (
	"bufio"
	"io"
	"strings"

	"github.com/a3tai/mcp-pdf-converter/internal/layout"
)

// pageSeparator is the form feed plain text converters put between pages
const pageSeparator = "\f\n"

// TextEmitter writes plain text: one block per paragraph, table rows
// delimited, pages separated by a form feed
type TextEmitter struct{}

// NewTextEmitter creates a plain text emitter
func NewTextEmitter() *TextEmitter {
	return &TextEmitter{}
}

func (e *TextEmitter) Format() Format    { return FormatText }
func (e *TextEmitter) Extension() string { return FormatText.Extension() }

// Emit implements Emitter
func (e *TextEmitter) Emit(w io.Writer, doc *layout.Document, opts Options) error {
	bw := bufio.NewWriter(w)
	first := true

	err := layout.ForEachPage(doc, func(_ int, blocks []layout.Block) error {
		if !first {
			if _, err := bw.WriteString(pageSeparator); err != nil {
				return err
			}
		}
		first = false

		for i, b := range blocks {
			if i > 0 {
				if _, err := bw.WriteString("\n"); err != nil {
					return err
				}
			}
			if _, err := bw.WriteString(e.block(b, opts) + "\n"); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	return bw.Flush()
}

func (e *TextEmitter) block(b layout.Block, opts Options) string {
	switch v := b.(type) {
	case *layout.Table:
		return strings.Join(v.Delimited(opts.delimiter()), "\n")
	case *layout.Paragraph:
		if v.Kind() == layout.KindListItem {
			return strings.Join(listItems(v), "\n")
		}
		return v.Text()
	default:
		return b.Text()
	}
}
