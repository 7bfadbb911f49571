package pdf

import (
	"fmt"
	"image"
	_ "image/jpeg" // register JPEG decoder for DecodeConfig
	_ "image/png"  // register PNG decoder for DecodeConfig
	"os"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Validator handles input file validation operations
type Validator struct {
	maxFileSize int64
}

// NewValidator creates a new validator with the specified constraints
func NewValidator(maxFileSize int64) *Validator {
	return &Validator{
		maxFileSize: maxFileSize,
	}
}

// ValidateFile performs validation on an input file. Validation failures are
// reported in the result, not as an error.
func (v *Validator) ValidateFile(req PDFValidateFileRequest) (*PDFValidateFileResult, error) {
	result := &PDFValidateFileResult{
		Path:  req.Path,
		Kind:  KindOf(req.Path),
		Valid: false,
	}

	fileInfo, err := v.statFile(req.Path)
	if err != nil {
		result.Message = err.Error()
		return result, nil //nolint:nilerr // validation failure is part of the result
	}
	if err := v.ValidateFileInfo(req.Path, fileInfo); err != nil {
		result.Message = err.Error()
		return result, nil //nolint:nilerr // validation failure is part of the result
	}

	switch result.Kind {
	case SourcePDF:
		pages, err := v.probePDF(req.Path)
		if err != nil {
			result.Message = err.Error()
			return result, nil //nolint:nilerr // validation failure is part of the result
		}
		result.Pages = pages
		if err := v.strictCheck(req.Path); err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("structure check: %v", err))
		}
	case SourceImage:
		if err := v.probeImage(req.Path); err != nil {
			result.Message = err.Error()
			return result, nil //nolint:nilerr // validation failure is part of the result
		}
		result.Pages = 1
	}

	result.Valid = true
	return result, nil
}

// IsValid performs a quick check to see if a file can be converted
func (v *Validator) IsValid(filePath string) bool {
	result, err := v.ValidateFile(PDFValidateFileRequest{Path: filePath})
	return err == nil && result.Valid
}

func (v *Validator) statFile(filePath string) (os.FileInfo, error) {
	if filePath == "" {
		return nil, fmt.Errorf("path cannot be empty")
	}
	fileInfo, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("file does not exist: %s", filePath)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot access file: %w", err)
	}
	return fileInfo, nil
}

// ValidateFileInfo performs basic validation on file info without opening the file
func (v *Validator) ValidateFileInfo(filePath string, fileInfo os.FileInfo) error {
	if fileInfo.IsDir() {
		return fmt.Errorf("path is a directory, not a file: %s", filePath)
	}

	if KindOf(filePath) == SourceUnknown {
		return fmt.Errorf("unsupported file type: %s", filePath)
	}

	if fileInfo.Size() == 0 {
		return fmt.Errorf("file is empty: %s", filePath)
	}

	if fileInfo.Size() > v.maxFileSize {
		return fmt.Errorf("file too large: %d bytes (max: %d bytes)",
			fileInfo.Size(), v.maxFileSize)
	}

	return nil
}

// probePDF opens the file with the text extraction library
func (v *Validator) probePDF(filePath string) (int, error) {
	f, reader, err := pdf.Open(filePath)
	if err != nil {
		return 0, fmt.Errorf("invalid PDF file: %w", err)
	}
	defer f.Close()
	return reader.NumPage(), nil
}

// strictCheck runs pdfcpu's relaxed validation; failures are only warnings
// because text extraction tolerates many structural defects
func (v *Validator) strictCheck(filePath string) error {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return api.ValidateFile(filePath, conf)
}

func (v *Validator) probeImage(filePath string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("cannot open image: %w", err)
	}
	defer f.Close()

	if _, _, err := image.DecodeConfig(f); err != nil {
		return fmt.Errorf("invalid image file: %w", err)
	}
	return nil
}
