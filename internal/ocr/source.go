// Package ocr turns scanned page images into positioned text items using
// the Tesseract engine.
//
// Tesseract support is compiled in with the "ocr" build tag and requires
// the Tesseract libraries on the system:
//
//	go build -tags ocr ./...
//
// Without the tag every extraction returns ErrOCRNotEnabled.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // register JPEG decoder for DecodeConfig
	_ "image/png"  // register PNG decoder for DecodeConfig
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/a3tai/mcp-pdf-converter/internal/layout"
	"github.com/a3tai/mcp-pdf-converter/internal/logging"
)

// ErrOCRNotEnabled is returned when the binary was built without the "ocr" tag
var ErrOCRNotEnabled = errors.New("OCR support not enabled; rebuild with -tags ocr")

// Config controls recognition
type Config struct {
	// Language is a Tesseract language list such as "eng" or "eng+chi_sim"
	Language string
	// DPI is the scan resolution used to convert pixels to points
	DPI float64
	// MinConfidence drops words Tesseract is less sure about (0-100)
	MinConfidence float64
	// WordGapFactor is the widest horizontal gap, in line heights, that
	// still joins two words into one item
	WordGapFactor float64
}

// DefaultConfig returns English recognition at 300 DPI
func DefaultConfig() Config {
	return Config{Language: "eng", DPI: 300, WordGapFactor: 1.5}
}

// Box is a recognised word in image pixel coordinates, origin top-left
type Box struct {
	Word       string
	Left       int
	Top        int
	Width      int
	Height     int
	Confidence float64
}

// engine is the recognition backend
type engine interface {
	words(imagePath string) ([]Box, error)
	close() error
}

// Source extracts layout items from page images. The Tesseract client is
// acquired on first use and released by Close.
type Source struct {
	cfg Config
	log logrus.FieldLogger

	mu        sync.Mutex
	eng       engine
	newEngine func(Config) (engine, error)
}

// NewSource creates an OCR source
func NewSource(cfg Config, logger logrus.FieldLogger) *Source {
	if cfg.DPI <= 0 {
		cfg.DPI = DefaultConfig().DPI
	}
	if cfg.Language == "" {
		cfg.Language = DefaultConfig().Language
	}
	if cfg.WordGapFactor <= 0 {
		cfg.WordGapFactor = DefaultConfig().WordGapFactor
	}
	return &Source{
		cfg:       cfg,
		log:       logging.Component(logger, "ocr"),
		newEngine: newTesseract,
	}
}

// ExtractItems recognises the words of one image
func (s *Source) ExtractItems(ctx context.Context, imagePath string) ([]layout.RawItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	height, err := imageHeight(imagePath)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.eng == nil {
		eng, err := s.newEngine(s.cfg)
		if err != nil {
			return nil, err
		}
		s.eng = eng
	}

	boxes, err := s.eng.words(imagePath)
	if err != nil {
		return nil, fmt.Errorf("recognition failed: %w", err)
	}

	items := BoxesToItems(boxes, height, s.cfg)
	s.log.WithFields(logrus.Fields{"path": imagePath, "words": len(items)}).Debug("recognised image")
	return items, nil
}

// ExtractPages recognises an image as a single page document
func (s *Source) ExtractPages(ctx context.Context, imagePath string) ([]layout.PageItems, error) {
	items, err := s.ExtractItems(ctx, imagePath)
	if err != nil {
		return nil, err
	}
	return []layout.PageItems{{Number: 1, Items: items}}, nil
}

// Close releases the Tesseract client if one was acquired
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.eng == nil {
		return nil
	}
	err := s.eng.close()
	s.eng = nil
	return err
}

// BoxesToItems converts word boxes to items in points with y growing
// upward. Words below the confidence floor or without text are dropped.
// Consecutive words sharing a text line are merged into one item, the way
// glyphs are merged into runs on the PDF path.
func BoxesToItems(boxes []Box, imageHeight int, cfg Config) []layout.RawItem {
	gapFactor := cfg.WordGapFactor
	if gapFactor <= 0 {
		gapFactor = DefaultConfig().WordGapFactor
	}

	var phrases []*phrase
	var current *phrase
	for _, b := range boxes {
		word := strings.TrimSpace(b.Word)
		if word == "" || b.Confidence < cfg.MinConfidence {
			continue
		}
		if current != nil && current.accepts(b, gapFactor) {
			current.add(word, b)
			continue
		}
		current = newPhrase(word, b)
		phrases = append(phrases, current)
	}

	scale := 72 / cfg.DPI
	items := make([]layout.RawItem, 0, len(phrases))
	for _, ph := range phrases {
		height := ph.bottom - ph.top
		items = append(items, layout.RawItem{
			Text:     strings.Join(ph.words, " "),
			Position: &layout.Point{X: float64(ph.left) * scale, Y: float64(imageHeight-ph.bottom) * scale},
			FontSize: float64(height) * scale,
			Width:    float64(ph.right-ph.left) * scale,
			Height:   float64(height) * scale,
		})
	}
	return items
}

// phrase is a run of words on one text line, in pixel coordinates
type phrase struct {
	words                    []string
	left, right, top, bottom int
}

func newPhrase(word string, b Box) *phrase {
	return &phrase{
		words:  []string{word},
		left:   b.Left,
		right:  b.Left + b.Width,
		top:    b.Top,
		bottom: b.Top + b.Height,
	}
}

// accepts reports whether b continues the phrase: it must overlap the
// phrase vertically by at least half of the shorter box and start within
// gapFactor line heights of the phrase's right edge.
func (p *phrase) accepts(b Box, gapFactor float64) bool {
	lineHeight := p.bottom - p.top
	overlap := min(p.bottom, b.Top+b.Height) - max(p.top, b.Top)
	if overlap <= 0 || 2*overlap < min(lineHeight, b.Height) {
		return false
	}
	gap := float64(b.Left - p.right)
	return gap >= -0.5*float64(lineHeight) && gap <= gapFactor*float64(max(lineHeight, b.Height))
}

func (p *phrase) add(word string, b Box) {
	p.words = append(p.words, word)
	p.right = max(p.right, b.Left+b.Width)
	p.top = min(p.top, b.Top)
	p.bottom = max(p.bottom, b.Top+b.Height)
}

func imageHeight(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("cannot open image: %w", err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, fmt.Errorf("invalid image file: %w", err)
	}
	return cfg.Height, nil
}
