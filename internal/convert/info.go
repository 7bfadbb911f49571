package convert

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/a3tai/mcp-pdf-converter/internal/descriptions"
	"github.com/a3tai/mcp-pdf-converter/internal/emit"
	"github.com/a3tai/mcp-pdf-converter/internal/ocr"
	"github.com/a3tai/mcp-pdf-converter/internal/pdf"
)

const (
	dirCacheTTL     = 5 * time.Minute
	dirListingLimit = 100
	dirScanTimeout  = 5 * time.Second
)

// ToolInfo represents information about an available tool
type ToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Usage       string `json:"usage"`
	Parameters  string `json:"parameters"`
}

// ServerInfoResult describes the server and what it can do
type ServerInfoResult struct {
	ServerName        string         `json:"server_name"`
	Version           string         `json:"version"`
	DefaultDirectory  string         `json:"default_directory"`
	OutputDirectory   string         `json:"output_directory,omitempty"`
	MaxFileSize       int64          `json:"max_file_size"`
	AvailableTools    []ToolInfo     `json:"available_tools"`
	DirectoryContents []pdf.FileInfo `json:"directory_contents"`
	FromCache         bool           `json:"from_cache"`
	SupportedInputs   []string       `json:"supported_inputs"`
	TargetFormats     []emit.Format  `json:"target_formats"`
	OCREnabled        bool           `json:"ocr_enabled"`
	UsageGuidance     string         `json:"usage_guidance"`
}

// ServerInfo returns server details, the tool list and the first files of
// the configured directory. The listing is cached and a slow scan returns
// an empty listing rather than an error.
func (s *Service) ServerInfo(ctx context.Context, serverName, version string) (*ServerInfoResult, error) {
	dir := s.sandbox.Root()

	files, cached := s.dirCache.get(dir)
	if !cached {
		files = s.scanDirectory(ctx, dir)
		s.dirCache.set(dir, files)
	}

	return &ServerInfoResult{
		ServerName:        serverName,
		Version:           version,
		DefaultDirectory:  dir,
		OutputDirectory:   s.cfg.OutputDir,
		MaxFileSize:       s.cfg.MaxFileSize,
		AvailableTools:    availableTools(),
		DirectoryContents: files,
		FromCache:         cached,
		SupportedInputs:   pdf.SupportedExtensions(),
		TargetFormats:     s.TargetFormats(),
		OCREnabled:        ocr.Enabled,
		UsageGuidance:     s.usageGuidance(),
	}, nil
}

func (s *Service) scanDirectory(ctx context.Context, dir string) []pdf.FileInfo {
	ctx, cancel := context.WithTimeout(ctx, dirScanTimeout)
	defer cancel()

	resultChan := make(chan []pdf.FileInfo, 1)
	go func() {
		res, err := s.search.SearchDirectory(pdf.SearchDirectoryRequest{Directory: dir, Limit: dirListingLimit})
		if err != nil {
			resultChan <- []pdf.FileInfo{}
			return
		}
		resultChan <- res.Files
	}()

	select {
	case files := <-resultChan:
		return files
	case <-ctx.Done():
		s.log.WithField("directory", dir).Warn("directory scan timed out")
		return []pdf.FileInfo{}
	}
}

func availableTools() []ToolInfo {
	tools := []ToolInfo{
		{
			Name:       "pdf_convert_file",
			Usage:      "Use this tool to convert a PDF or scanned image into docx, html, md, txt, yaml or a watermarked pdf.",
			Parameters: "path (required), target_format (optional, default docx), watermark_text (optional, pdf only), output_dir (optional), allow_sensitive (optional)",
		},
		{
			Name:       "pdf_reconstruct_layout",
			Usage:      "Use this tool to inspect headings, paragraphs, list items and tables without writing a file.",
			Parameters: "path (required), allow_sensitive (optional)",
		},
		{
			Name:       "pdf_validate_file",
			Usage:      "Use this tool to check that a file can be converted before converting it.",
			Parameters: "path (required): Full path to the file (supports both absolute and relative paths)",
		},
		{
			Name:       "pdf_search_directory",
			Usage:      "Use this tool to find convertible files in the configured directory. Supports fuzzy search by filename.",
			Parameters: "directory (optional): uses the configured directory if empty, query (optional), limit (optional)",
		},
		{
			Name:       "pdf_screen_text",
			Usage:      "Use this tool to check a file name or text for sensitive identifiers.",
			Parameters: "text (optional), name (optional)",
		},
		{
			Name:       "pdf_analyze_document",
			Usage:      "Use this tool to get a structure, content or metadata analysis from the local model.",
			Parameters: "path (required), analysis_type (optional: all, structure, content, metadata)",
		},
		{
			Name:       "conversion_history",
			Usage:      "Use this tool to list recent conversions or fetch one by id.",
			Parameters: "id (optional), limit (optional, default 20)",
		},
		{
			Name:       "llm_status",
			Usage:      "Use this tool to check whether the local inference server is reachable and which models it has.",
			Parameters: "No parameters required",
		},
		{
			Name:       "pdf_server_info",
			Usage:      "Use this tool to get server information and available capabilities.",
			Parameters: "No parameters required",
		},
	}
	for i := range tools {
		tools[i].Description = descriptions.GetToolDescription(tools[i].Name)
	}
	return tools
}

func (s *Service) usageGuidance() string {
	ocrNote := "Scanned images are converted with OCR."
	if !ocr.Enabled {
		ocrNote = "OCR is not compiled in; image inputs will fail until the server is built with -tags ocr."
	}

	return fmt.Sprintf(`PDF Converter MCP Server Usage Guide:

1. DISCOVER FILES:
   - Use 'pdf_search_directory' to find convertible files
   - Use 'pdf_validate_file' to check a file before converting it

2. INSPECT STRUCTURE:
   - Use 'pdf_reconstruct_layout' to see headings, paragraphs, lists and tables

3. CONVERT:
   - Use 'pdf_convert_file' with target_format docx, html, md, txt, yaml or pdf
   - Output is written as <name>_converted.<ext>
   - watermark_text only applies to pdf output

4. SCREENING:
   - Files whose name or text contains a national ID number are blocked
   - Use 'pdf_screen_text' to check text up front; allow_sensitive overrides the block

5. HISTORY AND ANALYSIS:
   - Use 'conversion_history' to review recent conversions
   - Use 'llm_status' and 'pdf_analyze_document' when a local model server is running

IMPORTANT NOTES:
- Paths are confined to %s
- The server can handle files up to %dMB
- %s`, s.sandbox.Root(), s.cfg.MaxFileSize/(1024*1024), ocrNote)
}

// dirCache keeps directory listings for a fixed time
type dirCache struct {
	ttl     time.Duration
	mu      sync.RWMutex
	entries map[string]dirEntry
}

type dirEntry struct {
	files   []pdf.FileInfo
	updated time.Time
}

func newDirCache(ttl time.Duration) *dirCache {
	return &dirCache{ttl: ttl, entries: make(map[string]dirEntry)}
}

func (c *dirCache) get(dir string) ([]pdf.FileInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[dir]
	if !ok || time.Since(e.updated) > c.ttl {
		return nil, false
	}
	return e.files, true
}

func (c *dirCache) set(dir string, files []pdf.FileInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[dir] = dirEntry{files: files, updated: time.Now()}
}

// invalidate drops every cached listing; conversions call it after writing
// new files
func (c *dirCache) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
}
