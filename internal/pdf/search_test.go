package pdf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func populate(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
		require.NoError(t, os.WriteFile(path, []byte("content"), 0o600))
	}
}

func TestSearch_SearchDirectory(t *testing.T) {
	dir := t.TempDir()
	populate(t, dir,
		"annual_report_2024.pdf",
		"invoice-march.pdf",
		"scans/receipt.jpg",
		"notes.txt",
		"slides.pptx",
	)

	search := NewSearch(1 << 20)

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"all convertible files", "", []string{"annual_report_2024.pdf", "invoice-march.pdf", "receipt.jpg"}},
		{"substring query", "invoice", []string{"invoice-march.pdf"}},
		{"word query", "report annual", []string{"annual_report_2024.pdf"}},
		{"no match", "contract", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := search.SearchDirectory(SearchDirectoryRequest{Directory: dir, Query: tt.query})
			require.NoError(t, err)

			var names []string
			for _, f := range result.Files {
				names = append(names, f.Name)
			}
			assert.ElementsMatch(t, tt.want, names)
			assert.Equal(t, len(tt.want), result.TotalCount)
		})
	}
}

func TestSearch_Limit(t *testing.T) {
	dir := t.TempDir()
	populate(t, dir, "a.pdf", "b.pdf", "c.pdf")

	result, err := NewSearch(1<<20).SearchDirectory(SearchDirectoryRequest{Directory: dir, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, result.TotalCount)
}

func TestSearch_Errors(t *testing.T) {
	search := NewSearch(1 << 20)

	_, err := search.SearchDirectory(SearchDirectoryRequest{})
	assert.Error(t, err)

	_, err = search.SearchDirectory(SearchDirectoryRequest{Directory: "/definitely/not/here"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}
