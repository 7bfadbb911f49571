package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func frag(text string, x, y, size float64) TextFragment {
	return TextFragment{Text: text, X: x, Y: y, FontSize: size}
}

func lineTexts(lines []Line) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.Text()
	}
	return out
}

func TestAssembleLines_Empty(t *testing.T) {
	assert.Empty(t, AssembleLines(nil, DefaultConfig()))
}

func TestAssembleLines_SingleFragment(t *testing.T) {
	lines := AssembleLines([]TextFragment{frag("only", 10, 100, 11)}, DefaultConfig())
	require.Len(t, lines, 1)
	assert.Equal(t, "only", lines[0].Text())
}

func TestAssembleLines_ReadingOrder(t *testing.T) {
	fragments := []TextFragment{
		frag("world", 60, 700, 11),
		frag("bottom", 10, 650, 11),
		frag("hello", 10, 701, 11),
		frag("middle", 10, 675, 11),
	}

	lines := AssembleLines(fragments, DefaultConfig())
	assert.Equal(t, []string{"hello world", "middle", "bottom"}, lineTexts(lines))
}

func TestAssembleLines_ToleranceBoundary(t *testing.T) {
	cfg := DefaultConfig()

	// font size 5 and no height: 5*0.3 < 3, so the minimum tolerance applies
	same := AssembleLines([]TextFragment{
		frag("a", 10, 100, 5),
		frag("b", 20, 97, 5),
	}, cfg)
	assert.Len(t, same, 1)

	split := AssembleLines([]TextFragment{
		frag("a", 10, 100, 5),
		frag("b", 20, 96.999, 5),
	}, cfg)
	assert.Len(t, split, 2)
}

func TestAssembleLines_ToleranceFromHeight(t *testing.T) {
	cfg := DefaultConfig()

	tall := TextFragment{Text: "tall", X: 10, Y: 95, FontSize: 10, Height: 20}
	lines := AssembleLines([]TextFragment{frag("top", 50, 100, 10), tall}, cfg)
	assert.Len(t, lines, 1, "height 20 gives a tolerance of 6")

	zero := TextFragment{Text: "zero", X: 10, Y: 95, FontSize: 0, Height: 0}
	lines = AssembleLines([]TextFragment{frag("top", 50, 100, 10), zero}, cfg)
	assert.Len(t, lines, 2, "zero height falls back to the minimum tolerance")
}

func TestAssembleLines_GradualDrift(t *testing.T) {
	fragments := []TextFragment{
		frag("a", 10, 100, 5),
		frag("b", 20, 98, 5),
		frag("c", 30, 96, 5),
		frag("d", 40, 94, 5),
	}

	lines := AssembleLines(fragments, DefaultConfig())
	require.Len(t, lines, 1)
	assert.Equal(t, "a b c d", lines[0].Text())
}

func TestAssembleLines_DoesNotMutateInput(t *testing.T) {
	fragments := []TextFragment{
		frag("low", 10, 10, 11),
		frag("high", 10, 100, 11),
	}
	AssembleLines(fragments, DefaultConfig())
	assert.Equal(t, "low", fragments[0].Text)
}

func TestLine_Metrics(t *testing.T) {
	l := Line{Fragments: []TextFragment{frag("a", 30, 100, 10), frag("b", 12, 100, 14)}}
	assert.Equal(t, 12.0, l.Indent())
	assert.Equal(t, 12.0, l.AvgFontSize())
	assert.Equal(t, 100.0, l.Y())

	var empty Line
	assert.Equal(t, DefaultFontSize, empty.AvgFontSize())
	assert.Zero(t, empty.Indent())
}

func TestParagraphBreak_EmptyLineUsesConfiguredDefault(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DefaultFontSize = 20
	next := Line{Fragments: []TextFragment{frag("big", 0, 100, 20)}}

	assert.False(t, paragraphBreak(Line{}, next, cfg))
	assert.True(t, paragraphBreak(Line{}, next, DefaultConfig()))
}
