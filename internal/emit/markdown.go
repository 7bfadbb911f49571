package emit

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/a3tai/mcp-pdf-converter/internal/layout"
)

// MarkdownEmitter writes CommonMark: ATX headings, list items verbatim and
// pipe tables whose first row is the header
type MarkdownEmitter struct{}

// NewMarkdownEmitter creates a Markdown emitter
func NewMarkdownEmitter() *MarkdownEmitter {
	return &MarkdownEmitter{}
}

func (e *MarkdownEmitter) Format() Format    { return FormatMarkdown }
func (e *MarkdownEmitter) Extension() string { return FormatMarkdown.Extension() }

// Emit implements Emitter
func (e *MarkdownEmitter) Emit(w io.Writer, doc *layout.Document, opts Options) error {
	var chunks []string
	if opts.Title != "" {
		chunks = append(chunks, "# "+opts.Title)
	}

	first := true
	err := layout.ForEachPage(doc, func(_ int, blocks []layout.Block) error {
		if !first {
			chunks = append(chunks, "---")
		}
		first = false
		for _, b := range blocks {
			chunks = append(chunks, e.block(b))
		}
		return nil
	})
	if err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	for i, c := range chunks {
		if i > 0 {
			if _, err := bw.WriteString("\n"); err != nil {
				return err
			}
		}
		if _, err := bw.WriteString(c + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func (e *MarkdownEmitter) block(b layout.Block) string {
	switch v := b.(type) {
	case *layout.Table:
		return markdownTable(v)
	case *layout.Paragraph:
		switch v.Kind() {
		case layout.KindHeading:
			return strings.Repeat("#", v.Style.HeadingLevel) + " " + v.Text()
		case layout.KindListItem:
			return strings.Join(listItems(v), "\n")
		}
		if v.Style.Italic {
			return "*" + v.Text() + "*"
		}
		return v.Text()
	default:
		return b.Text()
	}
}

func markdownTable(t *layout.Table) string {
	var b strings.Builder
	for i, row := range t.Rows {
		cells := make([]string, len(row.Cells))
		for j, c := range row.Cells {
			cells[j] = strings.ReplaceAll(strings.TrimSpace(c), "|", `\|`)
		}
		fmt.Fprintf(&b, "| %s |", strings.Join(cells, " | "))
		if i == 0 {
			b.WriteString("\n|")
			for range cells {
				b.WriteString(" --- |")
			}
		}
		if i < len(t.Rows)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}
