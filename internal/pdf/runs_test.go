package pdf

import (
	"testing"

	"github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// glyphs lays out s one glyph per rune starting at x, each w wide
func glyphs(s string, x, y, size, w float64, font string) []pdf.Text {
	var out []pdf.Text
	for _, r := range s {
		out = append(out, pdf.Text{Font: font, FontSize: size, X: x, Y: y, W: w, S: string(r)})
		x += w
	}
	return out
}

func TestCoalesceGlyphs_MergesWordsWithSpaces(t *testing.T) {
	input := glyphs("Hello world", 72, 700, 12, 6, "Helvetica")

	items := coalesceGlyphs(input, DefaultRunConfig())
	require.Len(t, items, 1)
	assert.Equal(t, "Hello world", items[0].Text)
	assert.Equal(t, 72.0, items[0].Position.X)
	assert.Equal(t, 700.0, items[0].Position.Y)
	assert.Equal(t, "Helvetica", items[0].FontName)
	assert.Equal(t, 12.0, items[0].FontSize)
	assert.InDelta(t, 66.0, items[0].Width, 0.001)
}

func TestCoalesceGlyphs_ImplicitSpaceFromGap(t *testing.T) {
	input := append(glyphs("ab", 10, 500, 10, 5, "F1"), glyphs("cd", 25, 500, 10, 5, "F1")...)

	items := coalesceGlyphs(input, DefaultRunConfig())
	require.Len(t, items, 1)
	assert.Equal(t, "ab cd", items[0].Text)
}

func TestCoalesceGlyphs_SplitsOnColumnGap(t *testing.T) {
	input := append(glyphs("Name", 10, 500, 10, 5, "F1"), glyphs("Qty", 100, 500, 10, 5, "F1")...)

	items := coalesceGlyphs(input, DefaultRunConfig())
	require.Len(t, items, 2)
	assert.Equal(t, "Name", items[0].Text)
	assert.Equal(t, "Qty", items[1].Text)
	assert.Equal(t, 100.0, items[1].Position.X)
}

func TestCoalesceGlyphs_SplitsOnFontOrBaseline(t *testing.T) {
	input := glyphs("Bold", 10, 500, 10, 5, "F1-Bold")
	input = append(input, glyphs("plain", 30, 500, 10, 5, "F1")...)
	input = append(input, glyphs("next", 10, 488, 10, 5, "F1")...)

	items := coalesceGlyphs(input, DefaultRunConfig())
	require.Len(t, items, 3)
	assert.Equal(t, "F1-Bold", items[0].FontName)
	assert.Equal(t, "plain", items[1].Text)
	assert.Equal(t, 488.0, items[2].Position.Y)
}

func TestCoalesceGlyphs_DropsBlankRuns(t *testing.T) {
	input := []pdf.Text{
		{Font: "F1", FontSize: 10, X: 10, Y: 500, W: 3, S: " "},
		{Font: "F1", FontSize: 10, X: 10, Y: 500, W: 0, S: ""},
	}
	assert.Empty(t, coalesceGlyphs(input, DefaultRunConfig()))
}

func TestCoalesceGlyphs_NormalizesToNFC(t *testing.T) {
	// "e" followed by a combining acute accent
	input := []pdf.Text{
		{Font: "F1", FontSize: 10, X: 10, Y: 500, W: 5, S: "e"},
		{Font: "F1", FontSize: 10, X: 15, Y: 500, W: 0, S: "\u0301"},
	}

	items := coalesceGlyphs(input, DefaultRunConfig())
	require.Len(t, items, 1)
	assert.Equal(t, "\u00e9", items[0].Text)
}
