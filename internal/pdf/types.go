package pdf

import (
	"path/filepath"
	"strings"
)

// SourceKind is the kind of input document a file holds
type SourceKind string

const (
	SourceUnknown SourceKind = ""
	SourcePDF     SourceKind = "pdf"
	SourceImage   SourceKind = "image"
)

// KindOf classifies a file by extension
func KindOf(path string) SourceKind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return SourcePDF
	case ".png", ".jpg", ".jpeg":
		return SourceImage
	default:
		return SourceUnknown
	}
}

// SupportedExtensions lists the input extensions the converter accepts
func SupportedExtensions() []string {
	return []string{".pdf", ".png", ".jpg", ".jpeg"}
}

// FileInfo represents information about a convertible file
type FileInfo struct {
	Path         string     `json:"path"`
	Name         string     `json:"name"`
	Kind         SourceKind `json:"kind"`
	Size         int64      `json:"size"`
	ModifiedTime string     `json:"modified_time"`
}

// PDFValidateFileRequest represents a request to validate an input file
type PDFValidateFileRequest struct {
	Path string `json:"path"`
}

// PDFValidateFileResult represents the result of a validation operation
type PDFValidateFileResult struct {
	Valid    bool       `json:"valid"`
	Path     string     `json:"path"`
	Kind     SourceKind `json:"kind,omitempty"`
	Pages    int        `json:"pages,omitempty"`
	Message  string     `json:"message,omitempty"`
	Warnings []string   `json:"warnings,omitempty"`
}

// SearchDirectoryRequest represents a request to list convertible files
type SearchDirectoryRequest struct {
	Directory string `json:"directory"`
	Query     string `json:"query"`
	Limit     int    `json:"limit,omitempty"`
}

// SearchDirectoryResult represents the files found in a directory
type SearchDirectoryResult struct {
	Files       []FileInfo `json:"files"`
	TotalCount  int        `json:"total_count"`
	Directory   string     `json:"directory"`
	SearchQuery string     `json:"search_query,omitempty"`
}
