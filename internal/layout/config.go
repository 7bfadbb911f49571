// Package layout reconstructs a hierarchical document model (pages, paragraphs,
// tables, styled runs) from unordered, positioned text fragments extracted
// from a paginated source document.
//
// Coordinates follow PDF user space: x grows to the right and y grows upward,
// so the top of a page carries the largest y value. Sources that report
// screen coordinates must flip y before handing items to the Collector.
package layout

import (
	"errors"
	"fmt"
	"runtime"
)

// Default heuristic thresholds, in source units (points for PDF input)
const (
	DefaultLineToleranceFactor = 0.3
	DefaultMinLineTolerance    = 3.0
	DefaultIndentDelta         = 20.0
	DefaultFontSizeDelta       = 2.0
	DefaultHeading1Size        = 16.0
	DefaultHeading2Size        = 14.0
	DefaultHeading3Size        = 12.0
	DefaultLargeHeadingSize    = 14.0
	DefaultFontSize            = 12.0
	DefaultColumnQuantum       = 10.0
	DefaultMinTableColumns     = 3
	DefaultMinTableLines       = 2
)

// Config holds every tunable threshold used by the reconstruction heuristics
type Config struct {
	// LineToleranceFactor scales a fragment's line height into the vertical
	// distance still considered part of the same line.
	LineToleranceFactor float64
	// MinLineTolerance is the floor for the line tolerance; zero-height
	// fragments use it directly.
	MinLineTolerance float64

	// IndentDelta is the indentation change that ends a paragraph.
	IndentDelta float64
	// FontSizeDelta is the average font size change that ends a paragraph.
	FontSizeDelta float64

	// Heading thresholds on a paragraph's average font size
	Heading1Size float64
	Heading2Size float64
	Heading3Size float64

	// LargeHeadingSize marks oversized "regular" fonts as synthetic bold.
	LargeHeadingSize float64
	// DefaultFontSize replaces missing or non-positive font sizes.
	DefaultFontSize float64

	// ColumnQuantum is the grid fragment x positions are snapped to when
	// looking for table columns.
	ColumnQuantum float64
	// MinTableColumns is the number of distinct column anchors that turns a
	// paragraph into a table.
	MinTableColumns int
	// MinTableLines is the smallest paragraph considered for table detection.
	MinTableLines int
	// DetectTables toggles table detection entirely.
	DetectTables bool

	// Workers bounds how many pages are reconstructed concurrently.
	Workers int
}

// DefaultConfig returns the thresholds the heuristics were tuned with
func DefaultConfig() Config {
	return Config{
		LineToleranceFactor: DefaultLineToleranceFactor,
		MinLineTolerance:    DefaultMinLineTolerance,
		IndentDelta:         DefaultIndentDelta,
		FontSizeDelta:       DefaultFontSizeDelta,
		Heading1Size:        DefaultHeading1Size,
		Heading2Size:        DefaultHeading2Size,
		Heading3Size:        DefaultHeading3Size,
		LargeHeadingSize:    DefaultLargeHeadingSize,
		DefaultFontSize:     DefaultFontSize,
		ColumnQuantum:       DefaultColumnQuantum,
		MinTableColumns:     DefaultMinTableColumns,
		MinTableLines:       DefaultMinTableLines,
		DetectTables:        true,
		Workers:             runtime.NumCPU(),
	}
}

// Validate checks that the thresholds are usable
func (c Config) Validate() error {
	if c.LineToleranceFactor < 0 {
		return errors.New("line tolerance factor cannot be negative")
	}
	if c.MinLineTolerance < 0 {
		return errors.New("minimum line tolerance cannot be negative")
	}
	if c.IndentDelta < 0 || c.FontSizeDelta < 0 {
		return errors.New("paragraph deltas cannot be negative")
	}
	if !(c.Heading1Size >= c.Heading2Size && c.Heading2Size >= c.Heading3Size) {
		return fmt.Errorf("heading sizes must be descending: h1=%.1f h2=%.1f h3=%.1f",
			c.Heading1Size, c.Heading2Size, c.Heading3Size)
	}
	if c.DefaultFontSize <= 0 {
		return errors.New("default font size must be positive")
	}
	if c.ColumnQuantum <= 0 {
		return errors.New("column quantum must be positive")
	}
	if c.MinTableColumns < 2 {
		return errors.New("a table needs at least 2 columns")
	}
	if c.MinTableLines < 2 {
		return errors.New("a table needs at least 2 lines")
	}
	if c.Workers < 1 {
		return errors.New("workers must be at least 1")
	}
	return nil
}
