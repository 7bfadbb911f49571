// Package emit renders a reconstructed layout.Document into target file
// formats. Emitters only walk the document through layout.ForEachPage.
package emit

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/a3tai/mcp-pdf-converter/internal/layout"
)

// ErrUnsupportedFormat is returned for formats without a registered emitter
var ErrUnsupportedFormat = errors.New("unsupported target format")

// Format names a conversion target
type Format string

const (
	FormatPDF      Format = "pdf"
	FormatDOCX     Format = "docx"
	FormatHTML     Format = "html"
	FormatMarkdown Format = "md"
	FormatText     Format = "txt"
	FormatYAML     Format = "yaml"
)

var formatAliases = map[string]Format{
	"pdf":      FormatPDF,
	"docx":     FormatDOCX,
	"word":     FormatDOCX,
	"html":     FormatHTML,
	"htm":      FormatHTML,
	"md":       FormatMarkdown,
	"markdown": FormatMarkdown,
	"txt":      FormatText,
	"text":     FormatText,
	"yaml":     FormatYAML,
	"yml":      FormatYAML,
}

// ParseFormat accepts a format name or file extension, case-insensitively
func ParseFormat(s string) (Format, error) {
	key := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), ".")
	if f, ok := formatAliases[key]; ok {
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// Extension returns the file extension for the format, without the dot
func (f Format) Extension() string {
	return string(f)
}

// SupportsWatermark reports whether a watermark overlay can be applied.
// Only PDF output carries one.
func (f Format) SupportsWatermark() bool {
	return f == FormatPDF
}

// Options tune how a document is rendered
type Options struct {
	// Title is used where the format has a document title
	Title string
	// CellDelimiter separates table cells in plain text output
	CellDelimiter string
}

func (o Options) delimiter() string {
	if o.CellDelimiter == "" {
		return layout.DefaultCellDelimiter
	}
	return o.CellDelimiter
}

// Emitter writes a document in one target format
type Emitter interface {
	Format() Format
	Extension() string
	Emit(w io.Writer, doc *layout.Document, opts Options) error
}

// Registry maps formats to emitters
type Registry struct {
	emitters map[Format]Emitter
}

// NewRegistry creates a registry holding the given emitters
func NewRegistry(emitters ...Emitter) *Registry {
	r := &Registry{emitters: make(map[Format]Emitter)}
	for _, e := range emitters {
		r.Register(e)
	}
	return r
}

// DefaultRegistry holds every built-in document emitter
func DefaultRegistry() *Registry {
	return NewRegistry(
		NewTextEmitter(),
		NewMarkdownEmitter(),
		NewHTMLEmitter(),
		NewDOCXEmitter(),
		NewYAMLEmitter(),
	)
}

// Register adds or replaces the emitter for its format
func (r *Registry) Register(e Emitter) {
	r.emitters[e.Format()] = e
}

// For returns the emitter for a format
func (r *Registry) For(f Format) (Emitter, error) {
	e, ok := r.emitters[f]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, f)
	}
	return e, nil
}

// Formats lists registered formats in name order
func (r *Registry) Formats() []Format {
	out := make([]Format, 0, len(r.emitters))
	for f := range r.emitters {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// listItems splits a list paragraph at every line that opens with a marker.
// Continuation lines are folded into the preceding item.
func listItems(p *layout.Paragraph) []string {
	var items []string
	for _, l := range p.Lines {
		text := l.Text()
		if len(items) == 0 || opensItem(l) {
			items = append(items, text)
			continue
		}
		items[len(items)-1] += " " + text
	}
	return items
}

func opensItem(l layout.Line) bool {
	return len(l.Fragments) > 0 && layout.DetectListMarker(l.Fragments[0].Text) != layout.ListNone
}
