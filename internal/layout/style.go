package layout

// Style is the typographic metadata attached to a paragraph
type Style struct {
	AvgFontSize  float64 `json:"avg_font_size" yaml:"avg_font_size"`
	Bold         bool    `json:"bold" yaml:"bold"`
	Italic       bool    `json:"italic" yaml:"italic"`
	HeadingLevel int     `json:"heading_level" yaml:"heading_level"` // 0 = body text
}

// IsHeading reports whether the style carries a heading level
func (s Style) IsHeading() bool {
	return s.HeadingLevel > 0
}

// ClassifyStyle derives a paragraph style from its first line. Thresholds
// are exclusive, so with the defaults a 13pt regular line is a level 3 heading.
func ClassifyStyle(line Line, cfg Config) Style {
	style := Style{AvgFontSize: line.avgFontSize(cfg.DefaultFontSize)}
	for _, f := range line.Fragments {
		style.Bold = style.Bold || f.Bold
		style.Italic = style.Italic || f.Italic
	}
	style.HeadingLevel = headingLevel(style.AvgFontSize, style.Bold, cfg)
	return style
}

func headingLevel(size float64, bold bool, cfg Config) int {
	switch {
	case size > cfg.Heading1Size || (size > cfg.Heading2Size && bold):
		return 1
	case size > cfg.Heading2Size || bold:
		return 2
	case size > cfg.Heading3Size:
		return 3
	default:
		return 0
	}
}
