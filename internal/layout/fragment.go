package layout

import "strings"

var (
	boldKeywords   = []string{"bold", "black", "heavy", "demibold", "semibold"}
	italicKeywords = []string{"italic", "oblique", "slanted"}
)

// Point is a position in source page coordinates (y grows upward)
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// RawItem is one item as reported by a page's text extraction step. Items
// without text or without a position are drawing primitives and are skipped.
type RawItem struct {
	Text     string
	Position *Point
	FontName string
	FontSize float64
	Width    float64
	Height   float64
}

// TextFragment is one positioned, styled piece of text on a page. Bold and
// Italic are derived once at collection time and never change.
type TextFragment struct {
	Text     string  `json:"text" yaml:"text"`
	FontSize float64 `json:"font_size" yaml:"font_size"`
	FontName string  `json:"font_name,omitempty" yaml:"font_name,omitempty"`
	X        float64 `json:"x" yaml:"x"`
	Y        float64 `json:"y" yaml:"y"`
	Width    float64 `json:"width,omitempty" yaml:"width,omitempty"`
	Height   float64 `json:"height,omitempty" yaml:"height,omitempty"`
	Bold     bool    `json:"bold,omitempty" yaml:"bold,omitempty"`
	Italic   bool    `json:"italic,omitempty" yaml:"italic,omitempty"`
}

// LineHeight returns the bounding height, falling back to the font size
func (f TextFragment) LineHeight() float64 {
	if f.Height > 0 {
		return f.Height
	}
	return f.FontSize
}

// Collector normalizes raw extraction items into fragments
type Collector struct {
	cfg Config
}

// NewCollector creates a collector using the given thresholds
func NewCollector(cfg Config) *Collector {
	return &Collector{cfg: cfg}
}

// Collect converts raw items into fragments, preserving their order.
// Malformed items are dropped without being reported.
func (c *Collector) Collect(items []RawItem) []TextFragment {
	fragments := make([]TextFragment, 0, len(items))
	for _, item := range items {
		if item.Text == "" || item.Position == nil {
			continue
		}

		size := item.FontSize
		if size <= 0 {
			size = c.cfg.DefaultFontSize
		}

		fragments = append(fragments, TextFragment{
			Text:     item.Text,
			FontSize: size,
			FontName: item.FontName,
			X:        item.Position.X,
			Y:        item.Position.Y,
			Width:    nonNegative(item.Width),
			Height:   nonNegative(item.Height),
			Bold:     c.isBold(item.FontName, size),
			Italic:   isItalic(item.FontName),
		})
	}
	return fragments
}

// isBold treats oversized "regular" fonts as synthetic headings
func (c *Collector) isBold(fontName string, fontSize float64) bool {
	name := strings.ToLower(fontName)
	if containsAny(name, boldKeywords) {
		return true
	}
	return fontSize > c.cfg.LargeHeadingSize && strings.Contains(name, "regular")
}

func isItalic(fontName string) bool {
	return containsAny(strings.ToLower(fontName), italicKeywords)
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

func nonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
