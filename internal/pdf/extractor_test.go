package pdf

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-pdf-converter/internal/layout"
	"github.com/a3tai/mcp-pdf-converter/internal/logging"
	"github.com/a3tai/mcp-pdf-converter/internal/testutil"
)

func TestExtractor_Errors(t *testing.T) {
	dir := t.TempDir()
	bogus := filepath.Join(dir, "bogus.pdf")
	require.NoError(t, os.WriteFile(bogus, []byte("not a pdf at all"), 0o600))

	extractor := NewExtractor(1<<20, logging.Discard())

	_, err := extractor.ExtractPages(context.Background(), "")
	assert.Error(t, err)

	_, err = extractor.ExtractPages(context.Background(), filepath.Join(dir, "missing.pdf"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")

	_, err = extractor.ExtractPages(context.Background(), bogus)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open PDF")

	small := NewExtractor(4, logging.Discard())
	_, err = small.ExtractPages(context.Background(), bogus)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file too large")
}

func TestPlainText(t *testing.T) {
	pages := []layout.PageItems{
		{Number: 1, Items: []layout.RawItem{{Text: "Hello"}, {Text: "world"}}},
		{Number: 2},
		{Number: 3, Items: []layout.RawItem{{Text: "End"}}},
	}

	assert.Equal(t, "Hello world\n\n\n\nEnd", PlainText(pages))
	assert.Empty(t, PlainText(nil))
}

func TestWatermarker_EmptyTextCopies(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.pdf")
	out := filepath.Join(dir, "out.pdf")
	require.NoError(t, os.WriteFile(in, []byte("%PDF-1.4 payload"), 0o600))

	require.NoError(t, NewWatermarker().Apply(in, out, "   "))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 payload", string(data))
}

func TestWatermarker_InvalidInput(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.pdf")
	require.NoError(t, os.WriteFile(in, []byte("garbage"), 0o600))

	err := NewWatermarker().Apply(in, filepath.Join(dir, "out.pdf"), "CONFIDENTIAL")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to add watermark")
}

func TestExtractor_GeneratedDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.pdf")
	require.NoError(t, testutil.WritePDF(path, [][]testutil.Text{
		{
			testutil.BoldAt("Annual Report", 72, 720, 20),
			testutil.At("Name", 72, 600, 11),
			testutil.At("Qty", 200, 600, 11),
		},
		{},
		{
			testutil.At("Back matter", 90, 500, 12),
		},
	}))

	pages, err := NewExtractor(1<<20, logging.Discard()).ExtractPages(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, pages, 3)

	for i, p := range pages {
		assert.Equal(t, i+1, p.Number)
	}

	first := pages[0].Items
	require.Len(t, first, 3, "wide gaps split runs")
	assert.Equal(t, "Annual Report", first[0].Text)
	assert.Equal(t, 20.0, first[0].FontSize)
	assert.Contains(t, first[0].FontName, "Bold")
	require.NotNil(t, first[0].Position)
	assert.InDelta(t, 72, first[0].Position.X, 0.01)
	assert.InDelta(t, 720, first[0].Position.Y, 0.01)
	assert.InDelta(t, 130, first[0].Width, 0.5)

	assert.Equal(t, "Name", first[1].Text)
	assert.Equal(t, "Qty", first[2].Text)
	assert.InDelta(t, 200, first[2].Position.X, 0.01)

	assert.Empty(t, pages[1].Items)
	require.Len(t, pages[2].Items, 1)
	assert.Equal(t, "Back matter", pages[2].Items[0].Text)

	assert.Equal(t, "Annual Report Name Qty\n\n\n\nBack matter", PlainText(pages))
}

func TestExtractor_CanceledContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.pdf")
	require.NoError(t, testutil.WritePDF(path, [][]testutil.Text{{testutil.At("x", 72, 720, 12)}}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewExtractor(1<<20, logging.Discard()).ExtractPages(ctx, path)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestValidator_GeneratedDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.pdf")
	require.NoError(t, testutil.WritePDF(path, [][]testutil.Text{
		{testutil.At("one", 72, 720, 12)},
		{testutil.At("two", 72, 720, 12)},
	}))

	result, err := NewValidator(1 << 20).ValidateFile(PDFValidateFileRequest{Path: path})
	require.NoError(t, err)
	assert.True(t, result.Valid, result.Message)
	assert.Equal(t, SourcePDF, result.Kind)
	assert.Equal(t, 2, result.Pages)
}
