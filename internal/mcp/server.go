package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"

	"github.com/a3tai/mcp-pdf-converter/internal/config"
	"github.com/a3tai/mcp-pdf-converter/internal/convert"
	"github.com/a3tai/mcp-pdf-converter/internal/descriptions"
	"github.com/a3tai/mcp-pdf-converter/internal/emit"
	"github.com/a3tai/mcp-pdf-converter/internal/history"
	"github.com/a3tai/mcp-pdf-converter/internal/layout"
	"github.com/a3tai/mcp-pdf-converter/internal/llm"
	"github.com/a3tai/mcp-pdf-converter/internal/logging"
	"github.com/a3tai/mcp-pdf-converter/internal/pdf"
	"github.com/a3tai/mcp-pdf-converter/internal/screening"
)

const (
	defaultHistoryLimit = 20
	shutdownTimeout     = 5 * time.Second
)

// HistoryReader reads recorded conversions
type HistoryReader interface {
	Recent(ctx context.Context, limit int) ([]history.Entry, error)
	Get(ctx context.Context, id string) (history.Entry, error)
}

// Analyzer is the local model used for document analysis
type Analyzer interface {
	Status(ctx context.Context) llm.Status
	Analyze(ctx context.Context, content string, kind llm.AnalysisKind) (*llm.Analysis, error)
}

// Server represents the MCP server instance
type Server struct {
	config    *config.Config
	service   *convert.Service
	history   HistoryReader
	analyzer  Analyzer
	mcpServer *server.MCPServer
	log       logrus.FieldLogger
}

// Option customises a Server
type Option func(*Server)

// WithHistory enables the conversion_history tool
func WithHistory(h HistoryReader) Option {
	return func(s *Server) { s.history = h }
}

// WithAnalyzer enables the llm_status and pdf_analyze_document tools
func WithAnalyzer(a Analyzer) Option {
	return func(s *Server) { s.analyzer = a }
}

// WithLogger sets the server logger
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Server) { s.log = l }
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, service *convert.Service, opts ...Option) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if service == nil {
		return nil, fmt.Errorf("conversion service cannot be nil")
	}

	// Create MCP server
	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false), // We don't support dynamic tool capabilities
		server.WithRecovery(),
	)

	s := &Server{
		config:    cfg,
		service:   service,
		mcpServer: mcpServer,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = logging.Component(s.log, "mcp")

	// Register tools
	s.registerTools()

	return s, nil
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	formats := make([]string, 0, 6)
	for _, f := range s.service.TargetFormats() {
		formats = append(formats, string(f))
	}

	convertTool := mcp.NewTool(
		"pdf_convert_file",
		mcp.WithDescription(descriptions.GetToolDescription("pdf_convert_file")),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Full path to the PDF or image file"),
		),
		mcp.WithString("target_format",
			mcp.Description("Output format (default docx)"),
			mcp.Enum(formats...),
		),
		mcp.WithString("watermark_text",
			mcp.Description("Text watermark for pdf output"),
		),
		mcp.WithString("output_dir",
			mcp.Description("Directory for the converted file (default: configured output directory or next to the source)"),
		),
		mcp.WithBoolean("allow_sensitive",
			mcp.Description("Convert even if sensitive identifiers are found"),
		),
	)
	s.mcpServer.AddTool(convertTool, s.handleConvertFile)

	reconstructTool := mcp.NewTool(
		"pdf_reconstruct_layout",
		mcp.WithDescription(descriptions.GetToolDescription("pdf_reconstruct_layout")),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Full path to the PDF or image file"),
		),
		mcp.WithBoolean("allow_sensitive",
			mcp.Description("Reconstruct even if sensitive identifiers are found"),
		),
	)
	s.mcpServer.AddTool(reconstructTool, s.handleReconstructLayout)

	validateTool := mcp.NewTool(
		"pdf_validate_file",
		mcp.WithDescription(descriptions.GetToolDescription("pdf_validate_file")),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Full path to the file"),
		),
	)
	s.mcpServer.AddTool(validateTool, s.handleValidateFile)

	searchTool := mcp.NewTool(
		"pdf_search_directory",
		mcp.WithDescription(descriptions.GetToolDescription("pdf_search_directory")),
		mcp.WithString("directory",
			mcp.Description("Directory path to search (uses default if empty)"),
		),
		mcp.WithString("query",
			mcp.Description("Optional search query for fuzzy matching"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of files to return"),
		),
	)
	s.mcpServer.AddTool(searchTool, s.handleSearchDirectory)

	screenTool := mcp.NewTool(
		"pdf_screen_text",
		mcp.WithDescription(descriptions.GetToolDescription("pdf_screen_text")),
		mcp.WithString("text",
			mcp.Description("Text to screen"),
		),
		mcp.WithString("name",
			mcp.Description("File name to screen"),
		),
	)
	s.mcpServer.AddTool(screenTool, s.handleScreenText)

	analyzeTool := mcp.NewTool(
		"pdf_analyze_document",
		mcp.WithDescription(descriptions.GetToolDescription("pdf_analyze_document")),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Full path to the PDF or image file"),
		),
		mcp.WithString("analysis_type",
			mcp.Description("What to analyze (default all)"),
			mcp.Enum(string(llm.AnalyzeAll), string(llm.AnalyzeStructure),
				string(llm.AnalyzeContent), string(llm.AnalyzeMetadata)),
		),
	)
	s.mcpServer.AddTool(analyzeTool, s.handleAnalyzeDocument)

	historyTool := mcp.NewTool(
		"conversion_history",
		mcp.WithDescription(descriptions.GetToolDescription("conversion_history")),
		mcp.WithString("id",
			mcp.Description("Conversion id to fetch"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Number of recent conversions (default 20)"),
		),
	)
	s.mcpServer.AddTool(historyTool, s.handleConversionHistory)

	statusTool := mcp.NewTool(
		"llm_status",
		mcp.WithDescription(descriptions.GetToolDescription("llm_status")),
	)
	s.mcpServer.AddTool(statusTool, s.handleLLMStatus)

	serverInfoTool := mcp.NewTool(
		"pdf_server_info",
		mcp.WithDescription(descriptions.GetToolDescription("pdf_server_info")),
	)
	s.mcpServer.AddTool(serverInfoTool, s.handleServerInfo)
}

// Handler functions
func (s *Server) handleConvertFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	args := request.GetArguments()

	target := convert.DefaultTarget
	if name := argString(args, "target_format"); name != "" {
		target, err = emit.ParseFormat(name)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}

	req := convert.ConvertRequest{
		Path: path,
		Options: convert.ConversionOptions{
			TargetFormat:  target,
			WatermarkText: argString(args, "watermark_text"),
		},
		OutputDir:      argString(args, "output_dir"),
		AllowSensitive: argBool(args, "allow_sensitive"),
	}

	result, err := s.service.Convert(ctx, req)
	if err != nil {
		if errors.Is(err, convert.ErrSensitiveContent) && result != nil {
			return mcp.NewToolResultError(formatBlocked(err, result.Findings)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(s.formatConvertResult(result)), nil
}

func (s *Server) handleReconstructLayout(ctx context.Context, request mcp.CallToolRequest) (
	*mcp.CallToolResult, error,
) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.service.Reconstruct(ctx, convert.ReconstructRequest{
		Path:           path,
		AllowSensitive: argBool(request.GetArguments(), "allow_sensitive"),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var structure strings.Builder
	if err := emit.NewYAMLEmitter().Emit(&structure, result.Document, emit.Options{}); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to render structure: %v", err)), nil
	}

	text := fmt.Sprintf("Reconstructed layout of %s (%s)\n", result.SourcePath, result.Kind)
	text += formatStats(result.Stats)
	text += formatWarnings(result.Warnings)
	text += "\nStructure:\n" + structure.String()
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleValidateFile(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.service.ValidateFile(pdf.PDFValidateFileRequest{Path: path})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var responseText string
	if result.Valid {
		responseText = fmt.Sprintf("File %s is a valid %s with %d page(s) and can be converted",
			result.Path, result.Kind, result.Pages)
		responseText += formatWarnings(result.Warnings)
	} else {
		responseText = fmt.Sprintf("Validation failed for %s: %s", result.Path, result.Message)
	}

	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handleSearchDirectory(_ context.Context, request mcp.CallToolRequest) (
	*mcp.CallToolResult, error,
) {
	args := request.GetArguments()

	req := pdf.SearchDirectoryRequest{
		Directory: argString(args, "directory"),
		Query:     argString(args, "query"),
		Limit:     argInt(args, "limit", 0),
	}

	result, err := s.service.SearchDirectory(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var responseText string
	if result.TotalCount == 0 {
		responseText = fmt.Sprintf("No convertible files found in directory: %s", result.Directory)
		if result.SearchQuery != "" {
			responseText += fmt.Sprintf(" (searched for: %s)", result.SearchQuery)
		}
	} else {
		responseText = formatSearchDirectoryResult(result)
	}

	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handleScreenText(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	text := argString(args, "text")
	name := argString(args, "name")
	if text == "" && name == "" {
		return mcp.NewToolResultError("text or name is required"), nil
	}

	result := s.service.ScreenText(name, text)
	if result.Allowed {
		return mcp.NewToolResultText(fmt.Sprintf("No sensitive content found (rules: %s)",
			strings.Join(result.Rules, ", "))), nil
	}
	return mcp.NewToolResultText(formatFindings(result.Findings)), nil
}

func (s *Server) handleAnalyzeDocument(ctx context.Context, request mcp.CallToolRequest) (
	*mcp.CallToolResult, error,
) {
	if s.analyzer == nil {
		return mcp.NewToolResultError("document analysis is not configured"), nil
	}
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	kind, err := llm.ParseAnalysisKind(argString(request.GetArguments(), "analysis_type"))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	doc, err := s.service.Reconstruct(ctx, convert.ReconstructRequest{Path: path})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := s.service.DocumentText(doc.Document)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if strings.TrimSpace(content) == "" {
		return mcp.NewToolResultError("document has no text to analyze"), nil
	}

	analysis, err := s.analyzer.Analyze(ctx, content, kind)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("analysis failed: %v", err)), nil
	}

	text := fmt.Sprintf("Analysis (%s) of %s\n\n", analysis.Kind, doc.SourcePath)
	if analysis.Fields != nil {
		pretty, err := json.MarshalIndent(analysis.Fields, "", "  ")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		text += string(pretty)
	} else {
		text += analysis.Text
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleConversionHistory(ctx context.Context, request mcp.CallToolRequest) (
	*mcp.CallToolResult, error,
) {
	if s.history == nil {
		return mcp.NewToolResultError("conversion history is disabled"), nil
	}
	args := request.GetArguments()

	if id := argString(args, "id"); id != "" {
		entry, err := s.history.Get(ctx, id)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(formatHistoryEntry(entry)), nil
	}

	entries, err := s.history.Recent(ctx, argInt(args, "limit", defaultHistoryLimit))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(entries) == 0 {
		return mcp.NewToolResultText("No conversions recorded yet"), nil
	}

	text := fmt.Sprintf("%d recent conversion(s):\n", len(entries))
	for i, e := range entries {
		text += fmt.Sprintf("\n%d. %s", i+1, formatHistoryEntry(e))
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleLLMStatus(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.analyzer == nil {
		return mcp.NewToolResultError("document analysis is not configured"), nil
	}

	st := s.analyzer.Status(ctx)
	if !st.Available {
		text := fmt.Sprintf("Inference server at %s is not reachable", st.Endpoint)
		if st.Error != "" {
			text += ": " + st.Error
		}
		return mcp.NewToolResultText(text), nil
	}

	text := fmt.Sprintf("Inference server at %s is available\nConfigured model: %s\n", st.Endpoint, st.Model)
	installed := false
	if len(st.Models) > 0 {
		text += "Installed models:\n"
		for _, m := range st.Models {
			text += fmt.Sprintf("  • %s (%d bytes)\n", m.Name, m.Size)
			if m.Name == st.Model || strings.TrimSuffix(m.Name, ":latest") == st.Model {
				installed = true
			}
		}
	}
	if !installed {
		text += fmt.Sprintf("\n⚠️  WARNING: model %s is not installed on the server\n", st.Model)
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleServerInfo(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := s.service.ServerInfo(ctx, s.config.ServerName, s.config.Version)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatServerInfoResult(result)), nil
}

// Formatting methods
func (s *Server) formatConvertResult(result *convert.ConvertResult) string {
	text := fmt.Sprintf("Successfully converted %s to %s\n", result.SourcePath, result.Format)
	text += fmt.Sprintf("Output: %s\n", result.OutputPath)
	text += formatStats(result.Stats)
	if result.Watermarked {
		text += "Watermark: applied\n"
	}
	if result.HistoryID != "" {
		text += fmt.Sprintf("History ID: %s\n", result.HistoryID)
	}
	text += fmt.Sprintf("Duration: %s\n", result.Duration.Round(time.Millisecond))
	if len(result.Findings) > 0 {
		text += "\n" + formatFindings(result.Findings)
	}
	text += formatWarnings(result.Warnings)
	return text
}

func formatStats(st layout.Stats) string {
	return fmt.Sprintf("Pages: %d (%d empty)\nHeadings: %d\nParagraphs: %d\nList items: %d\nTables: %d\n",
		st.Pages, st.EmptyPages, st.Headings, st.Paragraphs, st.ListItems, st.Tables)
}

func formatWarnings(warnings []string) string {
	if len(warnings) == 0 {
		return ""
	}
	text := "\n⚠️  Warnings:\n"
	for _, w := range warnings {
		text += fmt.Sprintf("  • %s\n", w)
	}
	return text
}

func formatFindings(findings []screening.Finding) string {
	text := fmt.Sprintf("Found %d sensitive item(s):\n", len(findings))
	for _, f := range findings {
		verified := ""
		if f.Verified {
			verified = ", check digit valid"
		}
		text += fmt.Sprintf("  • %s: %s (offset %d%s)\n", f.Rule, f.Value, f.Offset, verified)
	}
	return text
}

func formatBlocked(err error, findings []screening.Finding) string {
	text := fmt.Sprintf("🔒 Conversion blocked: %v\n", err)
	if len(findings) > 0 {
		text += formatFindings(findings)
	}
	text += "Set allow_sensitive to convert anyway."
	return text
}

func formatHistoryEntry(e history.Entry) string {
	text := fmt.Sprintf("[%s] %s → %s (%s)\n", e.Status, e.SourcePath, e.TargetFormat, e.ID)
	text += fmt.Sprintf("   At: %s, took %s\n", e.CreatedAt.Format(time.RFC3339), e.Duration.Round(time.Millisecond))
	if e.OutputPath != "" {
		text += fmt.Sprintf("   Output: %s\n", e.OutputPath)
	}
	if e.Status == history.StatusSucceeded {
		text += fmt.Sprintf("   Pages: %d, blocks: %d, tables: %d\n", e.Pages, e.Blocks, e.Tables)
	}
	if e.Error != "" {
		text += fmt.Sprintf("   Error: %s\n", e.Error)
	}
	return text
}

func formatSearchDirectoryResult(result *pdf.SearchDirectoryResult) string {
	text := fmt.Sprintf("Found %d convertible file(s) in directory: %s\n", result.TotalCount, result.Directory)
	if result.SearchQuery != "" {
		text += fmt.Sprintf("Search query: %s\n", result.SearchQuery)
	}
	text += "\nFiles:\n"

	for i, file := range result.Files {
		text += fmt.Sprintf("%d. %s (%s)\n", i+1, file.Name, file.Kind)
		text += fmt.Sprintf("   Path: %s\n", file.Path)
		text += fmt.Sprintf("   Size: %d bytes\n", file.Size)
		text += fmt.Sprintf("   Modified: %s\n", file.ModifiedTime)
		if i < len(result.Files)-1 {
			text += "\n"
		}
	}

	return text
}

func formatServerInfoResult(result *convert.ServerInfoResult) string {
	text := fmt.Sprintf("📋 %s v%s - Server Information\n", result.ServerName, result.Version)
	text += fmt.Sprintf("📁 Default Directory: %s\n", result.DefaultDirectory)
	if result.OutputDirectory != "" {
		text += fmt.Sprintf("📤 Output Directory: %s\n", result.OutputDirectory)
	}
	text += fmt.Sprintf("📏 Max File Size: %d MB\n", result.MaxFileSize/(1024*1024))
	text += fmt.Sprintf("🔤 OCR: %t\n\n", result.OCREnabled)

	// Directory contents
	if len(result.DirectoryContents) > 0 {
		text += fmt.Sprintf("📂 Directory Contents (%d convertible files found):\n", len(result.DirectoryContents))
		for i, file := range result.DirectoryContents {
			if i >= 10 { // Limit to first 10 files for readability
				text += fmt.Sprintf("   ... and %d more files\n", len(result.DirectoryContents)-10)
				break
			}
			text += fmt.Sprintf("   %d. %s (%d bytes)\n", i+1, file.Name, file.Size)
		}
		text += "\n"
	} else {
		text += "📂 Directory Contents: No convertible files found in default directory\n\n"
	}

	// Available tools
	text += "🛠️  Available Tools:\n"
	for _, tool := range result.AvailableTools {
		text += fmt.Sprintf("\n• %s\n", tool.Name)
		text += fmt.Sprintf("  Usage: %s\n", tool.Usage)
		text += fmt.Sprintf("  Parameters: %s\n", tool.Parameters)
	}

	text += "\n📄 Supported Inputs: " + strings.Join(result.SupportedInputs, ", ") + "\n"
	targets := make([]string, len(result.TargetFormats))
	for i, f := range result.TargetFormats {
		targets[i] = string(f)
	}
	text += "🎯 Target Formats: " + strings.Join(targets, ", ") + "\n"

	// Usage guidance
	text += "\n" + result.UsageGuidance

	return text
}

// Argument helpers
func argString(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func argBool(args map[string]any, key string) bool {
	switch v := args[key].(type) {
	case bool:
		return v
	case string:
		return v == "true"
	default:
		return false
	}
}

func argInt(args map[string]any, key string, def int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return def
	}
}

// Run starts the MCP server in the configured mode
func (s *Server) Run(ctx context.Context) error {
	if s.config.IsServerMode() {
		return s.runServerMode(ctx)
	}
	return s.runStdioMode(ctx)
}

// runStdioMode serves MCP over stdin/stdout until ctx is cancelled or stdin
// closes
func (s *Server) runStdioMode(ctx context.Context) error {
	s.log.WithField("directory", s.config.PDFDirectory).Debug("starting stdio server")

	stdio := server.NewStdioServer(s.mcpServer)
	stdio.SetErrorLogger(log.New(logrusWriter(s.log), "", 0))

	err := stdio.Listen(ctx, os.Stdin, os.Stdout)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}

// runServerMode serves MCP over SSE on the configured address and shuts
// down gracefully when ctx is cancelled
func (s *Server) runServerMode(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return nil
	}

	addr := s.config.Address()
	sse := server.NewSSEServer(s.mcpServer, server.WithBaseURL("http://"+addr))

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("address", addr).Info("starting SSE server")
		errCh <- sse.Start(addr)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to serve sse: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := sse.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down sse server: %w", err)
		}
		s.log.Info("SSE server stopped")
		return nil
	}
}

func logrusWriter(l logrus.FieldLogger) *logWriter {
	return &logWriter{log: l}
}

// logWriter adapts the standard library logger used by the stdio transport
type logWriter struct {
	log logrus.FieldLogger
}

func (w *logWriter) Write(p []byte) (int, error) {
	w.log.Error(strings.TrimSpace(string(p)))
	return len(p), nil
}
