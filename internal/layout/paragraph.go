package layout

import (
	"math"
	"regexp"
	"strings"
)

// ListMarker identifies the kind of list marker that opens a line
type ListMarker int

const (
	ListNone ListMarker = iota
	ListNumeric
	ListAlpha
	ListBullet
	ListDash
)

// String returns the marker kind name
func (m ListMarker) String() string {
	switch m {
	case ListNumeric:
		return "numeric"
	case ListAlpha:
		return "alpha"
	case ListBullet:
		return "bullet"
	case ListDash:
		return "dash"
	default:
		return "none"
	}
}

// Ordered returns true for numbered or lettered markers
func (m ListMarker) Ordered() bool {
	return m == ListNumeric || m == ListAlpha
}

// MarshalText lets encoders write the marker by name
func (m ListMarker) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

var listPatterns = []struct {
	marker  ListMarker
	pattern *regexp.Regexp
}{
	{ListNumeric, regexp.MustCompile(`^\d+[.)]\s`)},
	{ListAlpha, regexp.MustCompile(`^[a-zA-Z][.)]\s`)},
	{ListBullet, regexp.MustCompile(`^[•·▪▫\x{2022}\x{2023}\x{2043}\x{2219}\x{25A0}-\x{25FF}]`)},
	{ListDash, regexp.MustCompile(`^[-*+]\s`)},
}

// DetectListMarker matches text against the list marker patterns in order;
// the first match wins
func DetectListMarker(text string) ListMarker {
	for _, lp := range listPatterns {
		if lp.pattern.MatchString(text) {
			return lp.marker
		}
	}
	return ListNone
}

// lineListMarker only looks at the first fragment of the line
func lineListMarker(l Line) ListMarker {
	if len(l.Fragments) == 0 {
		return ListNone
	}
	return DetectListMarker(l.Fragments[0].Text)
}

// Paragraph is a contiguous run of lines forming one logical block
type Paragraph struct {
	Lines []Line     `json:"lines" yaml:"lines"`
	Style Style      `json:"style" yaml:"style"`
	List  ListMarker `json:"list" yaml:"list"`
}

// Kind implements Block
func (p *Paragraph) Kind() BlockKind {
	if p.Style.IsHeading() {
		return KindHeading
	}
	if p.List != ListNone {
		return KindListItem
	}
	return KindParagraph
}

// Text joins the paragraph's lines with single spaces
func (p *Paragraph) Text() string {
	parts := make([]string, len(p.Lines))
	for i, l := range p.Lines {
		parts[i] = l.Text()
	}
	return strings.Join(parts, " ")
}

// Indent returns the smallest x across the paragraph's lines
func (p *Paragraph) Indent() float64 {
	if len(p.Lines) == 0 {
		return 0
	}
	indent := p.Lines[0].Indent()
	for _, l := range p.Lines[1:] {
		indent = math.Min(indent, l.Indent())
	}
	return indent
}

// AvgFontSize returns the mean font size over every fragment in the
// paragraph, or the package DefaultFontSize when it has none
func (p *Paragraph) AvgFontSize() float64 {
	var total float64
	var n int
	for _, l := range p.Lines {
		for _, f := range l.Fragments {
			total += f.FontSize
			n++
		}
	}
	if n == 0 {
		return DefaultFontSize
	}
	return total / float64(n)
}

// SegmentParagraphs groups ordered lines into paragraphs. Every line lands
// in exactly one paragraph and the line order is preserved. The heuristic
// errs on the side of extra breaks rather than merged blocks.
func SegmentParagraphs(lines []Line, cfg Config) []*Paragraph {
	var paragraphs []*Paragraph
	var open []Line

	for i, line := range lines {
		open = append(open, line)

		if i+1 < len(lines) && !paragraphBreak(line, lines[i+1], cfg) {
			continue
		}

		paragraphs = append(paragraphs, newParagraph(open, cfg))
		open = nil
	}

	return paragraphs
}

func paragraphBreak(current, next Line, cfg Config) bool {
	if math.Abs(current.Indent()-next.Indent()) > cfg.IndentDelta {
		return true
	}
	if math.Abs(current.avgFontSize(cfg.DefaultFontSize)-next.avgFontSize(cfg.DefaultFontSize)) > cfg.FontSizeDelta {
		return true
	}
	return (lineListMarker(current) != ListNone) != (lineListMarker(next) != ListNone)
}

func newParagraph(lines []Line, cfg Config) *Paragraph {
	return &Paragraph{
		Lines: lines,
		Style: ClassifyStyle(lines[0], cfg),
		List:  lineListMarker(lines[0]),
	}
}
