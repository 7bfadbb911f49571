package pdf

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// DefaultWatermarkDescription is the pdfcpu text watermark style
const DefaultWatermarkDescription = "fontname:Helvetica, points:48, rotation:45, opacity:0.3, fillcolor:#808080"

// Watermarker stamps text watermarks onto PDF pages
type Watermarker struct {
	description string
	onTop       bool
}

// NewWatermarker creates a watermarker using the default style
func NewWatermarker() *Watermarker {
	return &Watermarker{description: DefaultWatermarkDescription}
}

// WithDescription overrides the pdfcpu watermark description string
func (w *Watermarker) WithDescription(desc string) *Watermarker {
	w.description = desc
	return w
}

// WithStamp draws the text above page content instead of beneath it
func (w *Watermarker) WithStamp(onTop bool) *Watermarker {
	w.onTop = onTop
	return w
}

// Apply writes inFile to outFile with the watermark on every page. An empty
// text copies the file unchanged.
func (w *Watermarker) Apply(inFile, outFile, text string) error {
	if strings.TrimSpace(text) == "" {
		return copyFile(inFile, outFile)
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	if err := api.AddTextWatermarksFile(inFile, outFile, nil, w.onTop, text, w.description, conf); err != nil {
		return fmt.Errorf("failed to add watermark: %w", err)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("cannot open source: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("cannot create output: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy failed: %w", err)
	}
	return out.Close()
}
