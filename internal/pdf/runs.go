package pdf

import (
	"math"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"
	"golang.org/x/text/unicode/norm"

	"github.com/a3tai/mcp-pdf-converter/internal/layout"
)

// RunConfig controls how single glyphs are merged into text runs
type RunConfig struct {
	// WordSpaceFactor is the gap, as a fraction of font size, above which a
	// space is inserted between glyphs of the same run.
	WordSpaceFactor float64
	// RunGapFactor is the gap, as a fraction of font size, above which the
	// run is split. Column gaps in tables are normally wider than this.
	RunGapFactor float64
	// BaselineTolerance is the largest y difference within one run.
	BaselineTolerance float64
}

// DefaultRunConfig returns the glyph merging thresholds
func DefaultRunConfig() RunConfig {
	return RunConfig{
		WordSpaceFactor:   0.3,
		RunGapFactor:      1.0,
		BaselineTolerance: 0.5,
	}
}

type run struct {
	font         string
	size         float64
	x, y         float64
	endX         float64
	text         strings.Builder
	pendingSpace bool
}

func (r *run) accepts(g pdf.Text, cfg RunConfig) bool {
	if g.Font != r.font || g.FontSize != r.size {
		return false
	}
	if math.Abs(g.Y-r.y) > cfg.BaselineTolerance {
		return false
	}
	gap := g.X - r.endX
	return gap >= -r.size*0.5 && gap <= r.size*cfg.RunGapFactor
}

func (r *run) item() (layout.RawItem, bool) {
	text := strings.TrimSpace(norm.NFC.String(r.text.String()))
	if text == "" {
		return layout.RawItem{}, false
	}
	return layout.RawItem{
		Text:     text,
		Position: &layout.Point{X: r.x, Y: r.y},
		FontName: r.font,
		FontSize: r.size,
		Width:    r.endX - r.x,
	}, true
}

// coalesceGlyphs merges the per-glyph output of ledongthuc/pdf into word and
// phrase runs. Height is left at zero so the layout engine falls back to the
// font size.
func coalesceGlyphs(glyphs []pdf.Text, cfg RunConfig) []layout.RawItem {
	var items []layout.RawItem
	var current *run

	flush := func() {
		if current == nil {
			return
		}
		if it, ok := current.item(); ok {
			items = append(items, it)
		}
		current = nil
	}

	for _, g := range glyphs {
		if g.S == "" {
			continue
		}

		if isBlank(g.S) {
			if current != nil {
				current.pendingSpace = true
				current.endX = math.Max(current.endX, g.X+g.W)
			}
			continue
		}

		if current != nil && current.accepts(g, cfg) {
			if current.pendingSpace || g.X-current.endX > current.size*cfg.WordSpaceFactor {
				current.text.WriteByte(' ')
			}
			current.pendingSpace = false
			current.text.WriteString(g.S)
			current.endX = math.Max(current.endX, g.X+g.W)
			continue
		}

		flush()
		current = &run{font: g.Font, size: g.FontSize, x: g.X, y: g.Y, endX: g.X + g.W}
		current.text.WriteString(g.S)
	}
	flush()

	return items
}

func isBlank(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool { return !unicode.IsSpace(r) }) < 0
}
