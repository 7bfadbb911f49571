package emit

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-pdf-converter/internal/layout"
)

func item(text string, x, y, size float64, font string) layout.RawItem {
	return layout.RawItem{
		Text:     text,
		Position: &layout.Point{X: x, Y: y},
		FontName: font,
		FontSize: size,
	}
}

// sampleDocument has a heading, a body paragraph and a bullet list on page
// one and a three column table on page two
func sampleDocument(t *testing.T) *layout.Document {
	t.Helper()
	engine := layout.NewEngine(layout.DefaultConfig())
	return &layout.Document{Pages: []layout.Page{
		engine.ReconstructPage(1, []layout.RawItem{
			item("Annual Report", 72, 750, 20, "Helvetica-Bold"),
			item("This is the body.", 72, 700, 11, "Helvetica"),
			item("• First point", 72, 680, 11, "Helvetica"),
			item("• Second point", 72, 666, 11, "Helvetica"),
		}),
		engine.ReconstructPage(2, []layout.RawItem{
			item("Name", 72, 700, 10, "Helvetica"),
			item("Qty", 200, 700, 10, "Helvetica"),
			item("Price", 320, 700, 10, "Helvetica"),
			item("Apple", 72, 686, 10, "Helvetica"),
			item("3", 200, 686, 10, "Helvetica"),
			item("1.20", 320, 686, 10, "Helvetica"),
		}),
	}}
}

type unknownBlock struct{}

func (unknownBlock) Kind() layout.BlockKind { return "figure" }
func (unknownBlock) Text() string           { return "figure" }

func TestSampleDocumentShape(t *testing.T) {
	doc := sampleDocument(t)
	require.Len(t, doc.Pages[0].Blocks, 3)
	require.Len(t, doc.Pages[1].Blocks, 1)
	assert.Equal(t, layout.KindHeading, doc.Pages[0].Blocks[0].Kind())
	assert.Equal(t, layout.KindParagraph, doc.Pages[0].Blocks[1].Kind())
	assert.Equal(t, layout.KindListItem, doc.Pages[0].Blocks[2].Kind())
	assert.Equal(t, layout.KindTable, doc.Pages[1].Blocks[0].Kind())
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    Format
		wantErr bool
	}{
		{"docx", FormatDOCX, false},
		{".DOCX", FormatDOCX, false},
		{"markdown", FormatMarkdown, false},
		{"Text", FormatText, false},
		{"yml", FormatYAML, false},
		{"htm", FormatHTML, false},
		{"pdf", FormatPDF, false},
		{"odt", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormat_SupportsWatermark(t *testing.T) {
	assert.True(t, FormatPDF.SupportsWatermark())
	for _, f := range []Format{FormatDOCX, FormatHTML, FormatMarkdown, FormatText, FormatYAML} {
		assert.False(t, f.SupportsWatermark(), f)
	}
}

func TestRegistry(t *testing.T) {
	r := DefaultRegistry()
	assert.Equal(t, []Format{FormatDOCX, FormatHTML, FormatMarkdown, FormatText, FormatYAML}, r.Formats())

	for _, f := range r.Formats() {
		e, err := r.For(f)
		require.NoError(t, err)
		assert.Equal(t, f, e.Format())
		assert.Equal(t, string(f), e.Extension())
	}

	_, err := r.For(FormatPDF)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	empty := NewRegistry()
	_, err = empty.For(FormatText)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	empty.Register(NewTextEmitter())
	_, err = empty.For(FormatText)
	assert.NoError(t, err)
}

func TestListItems_FoldsContinuationLines(t *testing.T) {
	line := func(text string) layout.Line {
		return layout.Line{Fragments: []layout.TextFragment{{Text: text, FontSize: 12}}}
	}
	p := &layout.Paragraph{
		Lines: []layout.Line{line("1. First"), line("continued here"), line("2. Second")},
		List:  layout.ListNumeric,
	}

	assert.Equal(t, []string{"1. First continued here", "2. Second"}, listItems(p))
}

func TestEmitters_NilDocument(t *testing.T) {
	for _, f := range []Format{FormatText, FormatMarkdown} {
		e, err := DefaultRegistry().For(f)
		require.NoError(t, err)

		var buf bytes.Buffer
		require.NoError(t, e.Emit(&buf, nil, Options{}))
		assert.Empty(t, buf.String(), f)
	}
}
