package ocr

import (
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-pdf-converter/internal/layout"
	"github.com/a3tai/mcp-pdf-converter/internal/logging"
)

type fakeEngine struct {
	boxes  []Box
	err    error
	calls  int
	closed bool
}

func (f *fakeEngine) words(string) ([]Box, error) {
	f.calls++
	return f.boxes, f.err
}

func (f *fakeEngine) close() error {
	f.closed = true
	return nil
}

func writeImage(t *testing.T, w, h int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scan.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, image.NewGray(image.Rect(0, 0, w, h))))
	return path
}

func sourceWith(eng *fakeEngine, acquired *int) *Source {
	s := NewSource(Config{DPI: 72}, logging.Discard())
	s.newEngine = func(Config) (engine, error) {
		*acquired++
		return eng, nil
	}
	return s
}

func TestBoxesToItems(t *testing.T) {
	boxes := []Box{
		{Word: "Invoice", Left: 100, Top: 50, Width: 200, Height: 40, Confidence: 95},
		{Word: "  ", Left: 0, Top: 0, Width: 10, Height: 10, Confidence: 99},
		{Word: "smudge", Left: 10, Top: 900, Width: 30, Height: 10, Confidence: 20},
	}

	items := BoxesToItems(boxes, 1000, Config{DPI: 300, MinConfidence: 50})
	require.Len(t, items, 1)

	it := items[0]
	assert.Equal(t, "Invoice", it.Text)
	assert.InDelta(t, 24.0, it.Position.X, 1e-9)
	assert.InDelta(t, 218.4, it.Position.Y, 1e-9)
	assert.InDelta(t, 9.6, it.FontSize, 1e-9)
	assert.InDelta(t, 48.0, it.Width, 1e-9)
	assert.InDelta(t, 9.6, it.Height, 1e-9)
}

func TestBoxesToItems_TopOfImageHasLargestY(t *testing.T) {
	boxes := []Box{
		{Word: "first", Left: 10, Top: 10, Width: 50, Height: 12},
		{Word: "second", Left: 10, Top: 40, Width: 50, Height: 12},
	}

	items := BoxesToItems(boxes, 200, Config{DPI: 72})
	require.Len(t, items, 2)
	assert.Greater(t, items[0].Position.Y, items[1].Position.Y)

	lines := layout.AssembleLines(layout.NewCollector(layout.DefaultConfig()).Collect(items), layout.DefaultConfig())
	require.Len(t, lines, 2)
	assert.Equal(t, "first", lines[0].Text())
}

func TestBoxesToItems_MergesWordsOnALine(t *testing.T) {
	// "quick", "jumps" and "dogs" have descenders, "over" only x-height
	boxes := []Box{
		{Word: "The", Left: 72, Top: 100, Width: 20, Height: 10, Confidence: 90},
		{Word: "quick", Left: 96, Top: 100, Width: 30, Height: 12, Confidence: 90},
		{Word: "fox", Left: 130, Top: 100, Width: 18, Height: 10, Confidence: 90},
		{Word: "jumps", Left: 72, Top: 118, Width: 38, Height: 12, Confidence: 90},
		{Word: "over", Left: 114, Top: 121, Width: 30, Height: 7, Confidence: 90},
		{Word: "dogs", Left: 148, Top: 118, Width: 28, Height: 12, Confidence: 90},
	}

	items := BoxesToItems(boxes, 800, Config{DPI: 72})
	require.Len(t, items, 2)
	assert.Equal(t, "The quick fox", items[0].Text)
	assert.InDelta(t, 72, items[0].Position.X, 1e-9)
	assert.InDelta(t, 688, items[0].Position.Y, 1e-9)
	assert.InDelta(t, 76, items[0].Width, 1e-9)
	assert.InDelta(t, 12, items[0].FontSize, 1e-9)
	assert.Equal(t, "jumps over dogs", items[1].Text)
	assert.InDelta(t, 670, items[1].Position.Y, 1e-9)

	page := layout.NewEngine(layout.DefaultConfig()).ReconstructPage(1, items)
	require.Len(t, page.Blocks, 1)
	assert.Equal(t, layout.KindParagraph, page.Blocks[0].Kind())
	assert.Contains(t, page.Blocks[0].Text(), "The quick fox")
	assert.Contains(t, page.Blocks[0].Text(), "jumps over dogs")
}

func TestBoxesToItems_SplitsOnWideGaps(t *testing.T) {
	boxes := []Box{
		{Word: "Name", Left: 72, Top: 100, Width: 40, Height: 12},
		{Word: "Qty", Left: 200, Top: 100, Width: 30, Height: 12},
		{Word: "Price", Left: 320, Top: 100, Width: 40, Height: 12},
		{Word: "below", Left: 116, Top: 140, Width: 40, Height: 12},
	}

	items := BoxesToItems(boxes, 800, Config{DPI: 72})
	require.Len(t, items, 4)
	assert.Equal(t, "Name", items[0].Text)
	assert.Equal(t, "Qty", items[1].Text)
	assert.Equal(t, "Price", items[2].Text)
	assert.Equal(t, "below", items[3].Text, "words on different lines never merge")

	wide := BoxesToItems(boxes[:2], 800, Config{DPI: 72, WordGapFactor: 20})
	require.Len(t, wide, 1)
	assert.Equal(t, "Name Qty", wide[0].Text)
}

func TestSource_AcquiresOnceAndCloses(t *testing.T) {
	eng := &fakeEngine{boxes: []Box{{Word: "hello", Left: 1, Top: 1, Width: 5, Height: 5}}}
	acquired := 0
	s := sourceWith(eng, &acquired)
	path := writeImage(t, 20, 20)

	items, err := s.ExtractItems(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 14.0, items[0].Position.Y)

	pages, err := s.ExtractPages(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, 1, pages[0].Number)

	assert.Equal(t, 1, acquired)
	assert.Equal(t, 2, eng.calls)

	require.NoError(t, s.Close())
	assert.True(t, eng.closed)
	require.NoError(t, s.Close())
}

func TestSource_Errors(t *testing.T) {
	eng := &fakeEngine{err: errors.New("engine exploded")}
	acquired := 0
	s := sourceWith(eng, &acquired)

	_, err := s.ExtractItems(context.Background(), filepath.Join(t.TempDir(), "missing.png"))
	require.Error(t, err)
	assert.Zero(t, acquired)

	_, err = s.ExtractItems(context.Background(), writeImage(t, 4, 4))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "engine exploded")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.ExtractItems(ctx, writeImage(t, 4, 4))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewSource_Defaults(t *testing.T) {
	s := NewSource(Config{}, nil)
	assert.Equal(t, "eng", s.cfg.Language)
	assert.Equal(t, 300.0, s.cfg.DPI)
	assert.Equal(t, 1.5, s.cfg.WordGapFactor)
}
