//go:build !ocr

package ocr

// Enabled reports whether Tesseract support was compiled in
const Enabled = false

func newTesseract(Config) (engine, error) {
	return nil, ErrOCRNotEnabled
}
