package convert

import (
	"errors"
	"fmt"
)

var (
	// ErrSensitiveContent blocks documents whose name or text matches a
	// screening rule
	ErrSensitiveContent = errors.New("document contains sensitive content")
	// ErrInvalidInput wraps validation failures of the source file
	ErrInvalidInput = errors.New("invalid input file")
	// ErrIncompatibleTarget is returned when a pdf target is requested for a
	// source that is not a PDF
	ErrIncompatibleTarget = errors.New("target format requires a PDF source")
)

// Stage names the pipeline step a conversion failed in
type Stage string

const (
	StageResolve     Stage = "resolve"
	StageValidate    Stage = "validate"
	StageScreen      Stage = "screen"
	StageExtract     Stage = "extract"
	StageReconstruct Stage = "reconstruct"
	StageEmit        Stage = "emit"
)

// ConversionError records where a conversion failed. The underlying error is
// available through errors.Is and errors.As.
type ConversionError struct {
	Stage Stage
	Path  string
	Err   error
}

func (e *ConversionError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("%s failed for %s: %v", e.Stage, e.Path, e.Err)
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

// StageOf returns the failing stage of err, or "" when err is not a
// ConversionError
func StageOf(err error) Stage {
	var ce *ConversionError
	if errors.As(err, &ce) {
		return ce.Stage
	}
	return ""
}

func fail(stage Stage, path string, err error) error {
	return &ConversionError{Stage: stage, Path: path, Err: err}
}
