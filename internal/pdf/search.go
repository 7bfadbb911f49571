package pdf

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Search lists convertible documents in a directory
type Search struct {
	validator *Validator
}

// NewSearch creates a search handler with the specified constraints
func NewSearch(maxFileSize int64) *Search {
	return &Search{validator: NewValidator(maxFileSize)}
}

// SearchDirectory walks a directory for convertible files, optionally
// filtered by a fuzzy filename query
func (s *Search) SearchDirectory(req SearchDirectoryRequest) (*SearchDirectoryResult, error) {
	if req.Directory == "" {
		return nil, fmt.Errorf("directory cannot be empty")
	}

	absDirectory, err := filepath.Abs(req.Directory)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve directory path: %w", err)
	}
	if _, err := os.Stat(absDirectory); os.IsNotExist(err) {
		return nil, fmt.Errorf("directory does not exist: %s", req.Directory)
	}

	query := strings.ToLower(strings.TrimSpace(req.Query))
	files := []FileInfo{}

	err = filepath.WalkDir(absDirectory, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // keep walking past unreadable entries
		}
		if d.IsDir() {
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil //nolint:nilerr // entry vanished during the walk
		}
		if s.validator.ValidateFileInfo(path, info) != nil {
			return nil
		}
		if query != "" && !matchesQuery(info.Name(), query) {
			return nil
		}

		files = append(files, FileInfo{
			Path:         path,
			Name:         info.Name(),
			Kind:         KindOf(path),
			Size:         info.Size(),
			ModifiedTime: info.ModTime().Format("2006-01-02 15:04:05"),
		})
		if req.Limit > 0 && len(files) >= req.Limit {
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error walking directory: %w", err)
	}

	return &SearchDirectoryResult{
		Files:       files,
		TotalCount:  len(files),
		Directory:   absDirectory,
		SearchQuery: req.Query,
	}, nil
}

// matchesQuery does a substring match first, then requires every query
// word to appear somewhere in the filename
func matchesQuery(filename, query string) bool {
	name := strings.ToLower(filename)
	if strings.Contains(name, query) {
		return true
	}

	words := strings.FieldsFunc(query, func(r rune) bool {
		return r == ' ' || r == '_' || r == '-' || r == '.'
	})
	if len(words) == 0 {
		return false
	}
	for _, w := range words {
		if !strings.Contains(name, w) {
			return false
		}
	}
	return true
}
