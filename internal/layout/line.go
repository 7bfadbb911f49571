package layout

import (
	"math"
	"sort"
	"strings"
)

// Line is a run of fragments sharing a vertical reading band, sorted by x
type Line struct {
	Fragments []TextFragment `json:"fragments" yaml:"fragments"`
}

// Text joins the line's fragments with single spaces
func (l Line) Text() string {
	parts := make([]string, len(l.Fragments))
	for i, f := range l.Fragments {
		parts[i] = f.Text
	}
	return strings.Join(parts, " ")
}

// Indent returns the smallest x in the line
func (l Line) Indent() float64 {
	if len(l.Fragments) == 0 {
		return 0
	}
	indent := l.Fragments[0].X
	for _, f := range l.Fragments[1:] {
		indent = math.Min(indent, f.X)
	}
	return indent
}

// Y returns the vertical position of the line's first fragment
func (l Line) Y() float64 {
	if len(l.Fragments) == 0 {
		return 0
	}
	return l.Fragments[0].Y
}

// AvgFontSize returns the mean fragment font size, or the package
// DefaultFontSize for an empty line. The engine itself uses the configured
// default instead.
func (l Line) AvgFontSize() float64 {
	return l.avgFontSize(DefaultFontSize)
}

func (l Line) avgFontSize(fallback float64) float64 {
	if len(l.Fragments) == 0 {
		return fallback
	}
	var total float64
	for _, f := range l.Fragments {
		total += f.FontSize
	}
	return total / float64(len(l.Fragments))
}

// AssembleLines groups a page's fragments into lines ordered top to bottom.
//
// lastY follows every fragment rather than the line's first one, so text
// drifting slowly within a line stays together without widening the band.
func AssembleLines(fragments []TextFragment, cfg Config) []Line {
	if len(fragments) == 0 {
		return nil
	}

	sorted := make([]TextFragment, len(fragments))
	copy(sorted, fragments)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Y > sorted[j].Y
	})

	var lines []Line
	var current []TextFragment
	lastY := sorted[0].Y

	for _, f := range sorted {
		if len(current) > 0 && math.Abs(f.Y-lastY) > lineTolerance(f, cfg) {
			lines = append(lines, newLine(current))
			current = nil
		}
		current = append(current, f)
		lastY = f.Y
	}
	if len(current) > 0 {
		lines = append(lines, newLine(current))
	}

	return lines
}

// lineTolerance is max(MinLineTolerance, lineHeight*LineToleranceFactor)
func lineTolerance(f TextFragment, cfg Config) float64 {
	return math.Max(cfg.MinLineTolerance, f.LineHeight()*cfg.LineToleranceFactor)
}

func newLine(fragments []TextFragment) Line {
	sort.SliceStable(fragments, func(i, j int) bool {
		return fragments[i].X < fragments[j].X
	})
	return Line{Fragments: fragments}
}
