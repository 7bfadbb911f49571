//go:build ocr

package ocr

import (
	"fmt"

	"github.com/otiai10/gosseract/v2"
)

// Enabled reports whether Tesseract support was compiled in
const Enabled = true

type tesseract struct {
	client *gosseract.Client
}

func newTesseract(cfg Config) (engine, error) {
	client := gosseract.NewClient()
	if err := client.SetLanguage(cfg.Language); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set language: %w", err)
	}
	return &tesseract{client: client}, nil
}

func (t *tesseract) words(imagePath string) ([]Box, error) {
	if err := t.client.SetImage(imagePath); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	boxes, err := t.client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, err
	}

	out := make([]Box, 0, len(boxes))
	for _, b := range boxes {
		out = append(out, Box{
			Word:       b.Word,
			Left:       b.Box.Min.X,
			Top:        b.Box.Min.Y,
			Width:      b.Box.Dx(),
			Height:     b.Box.Dy(),
			Confidence: b.Confidence,
		})
	}
	return out, nil
}

func (t *tesseract) close() error {
	return t.client.Close()
}
