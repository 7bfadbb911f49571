// Package convert runs the conversion pipeline: path confinement, input
// validation, sensitive content screening, text extraction, layout
// reconstruction and emission in the requested target format.
package convert

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/a3tai/mcp-pdf-converter/internal/emit"
	"github.com/a3tai/mcp-pdf-converter/internal/history"
	"github.com/a3tai/mcp-pdf-converter/internal/layout"
	"github.com/a3tai/mcp-pdf-converter/internal/logging"
	"github.com/a3tai/mcp-pdf-converter/internal/ocr"
	"github.com/a3tai/mcp-pdf-converter/internal/pdf"
	"github.com/a3tai/mcp-pdf-converter/internal/pdf/security"
	"github.com/a3tai/mcp-pdf-converter/internal/screening"
)

// DefaultTarget is used when a request names no target format
const DefaultTarget = emit.FormatDOCX

// outputSuffix is appended to the source stem to name converted files
const outputSuffix = "_converted"

// outputPerm is the mode of converted files
const outputPerm = 0o644

// Config holds the service constraints
type Config struct {
	MaxFileSize int64
	// Directory confines every path the service reads
	Directory string
	// OutputDir receives converted files; empty writes next to the source
	OutputDir     string
	Layout        layout.Config
	OCR           ocr.Config
	CellDelimiter string
}

// ConversionOptions select the target format and an optional watermark
type ConversionOptions struct {
	TargetFormat  emit.Format `json:"target_format"`
	WatermarkText string      `json:"watermark_text,omitempty"`
}

// ConvertRequest asks for one file to be converted
type ConvertRequest struct {
	Path      string            `json:"path"`
	Options   ConversionOptions `json:"options"`
	OutputDir string            `json:"output_dir,omitempty"`
	// AllowSensitive converts even when screening finds sensitive content
	AllowSensitive bool `json:"allow_sensitive,omitempty"`
}

// ConvertResult describes a finished conversion
type ConvertResult struct {
	SourcePath  string              `json:"source_path"`
	OutputPath  string              `json:"output_path"`
	Format      emit.Format         `json:"format"`
	Pages       int                 `json:"pages"`
	Stats       layout.Stats        `json:"stats"`
	Watermarked bool                `json:"watermarked"`
	Findings    []screening.Finding `json:"findings,omitempty"`
	Warnings    []string            `json:"warnings,omitempty"`
	HistoryID   string              `json:"history_id,omitempty"`
	Duration    time.Duration       `json:"duration"`
	Document    *layout.Document    `json:"-"`
}

// ReconstructRequest asks for a document's structure without writing output
type ReconstructRequest struct {
	Path           string `json:"path"`
	AllowSensitive bool   `json:"allow_sensitive,omitempty"`
}

// ReconstructResult is a reconstructed document with its source details
type ReconstructResult struct {
	SourcePath string              `json:"source_path"`
	Kind       pdf.SourceKind      `json:"kind"`
	Document   *layout.Document    `json:"document"`
	Stats      layout.Stats        `json:"stats"`
	Findings   []screening.Finding `json:"findings,omitempty"`
	Warnings   []string            `json:"warnings,omitempty"`
}

// ScreenResult reports what screening found in a piece of text
type ScreenResult struct {
	Allowed  bool                `json:"allowed"`
	Rules    []string            `json:"rules"`
	Findings []screening.Finding `json:"findings"`
}

// Recorder stores conversion outcomes
type Recorder interface {
	Record(ctx context.Context, e history.Entry) (history.Entry, error)
}

// Service orchestrates the conversion components
type Service struct {
	cfg         Config
	sandbox     *security.Sandbox
	validator   *pdf.Validator
	search      *pdf.Search
	extractor   *pdf.Extractor
	ocr         *ocr.Source
	engine      *layout.Engine
	emitters    *emit.Registry
	watermarker *pdf.Watermarker
	screener    *screening.Screener
	history     Recorder
	dirCache    *dirCache
	log         logrus.FieldLogger
}

// Option customises a Service
type Option func(*Service)

// WithHistory records every conversion in r
func WithHistory(r Recorder) Option {
	return func(s *Service) { s.history = r }
}

// WithLogger sets the service logger
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Service) { s.log = l }
}

// WithScreener replaces the default national ID screener
func WithScreener(sc *screening.Screener) Option {
	return func(s *Service) { s.screener = sc }
}

// WithWatermarker replaces the default watermark style
func WithWatermarker(w *pdf.Watermarker) Option {
	return func(s *Service) { s.watermarker = w }
}

// WithRegistry replaces the built-in emitters
func WithRegistry(r *emit.Registry) Option {
	return func(s *Service) { s.emitters = r }
}

// NewService creates a conversion service with all components
func NewService(cfg Config, opts ...Option) (*Service, error) {
	if err := cfg.Layout.Validate(); err != nil {
		return nil, fmt.Errorf("invalid layout configuration: %w", err)
	}
	sandbox, err := security.NewSandbox(cfg.Directory)
	if err != nil {
		return nil, fmt.Errorf("failed to create sandbox: %w", err)
	}

	s := &Service{
		cfg:         cfg,
		sandbox:     sandbox,
		validator:   pdf.NewValidator(cfg.MaxFileSize),
		search:      pdf.NewSearch(cfg.MaxFileSize),
		engine:      layout.NewEngine(cfg.Layout),
		emitters:    emit.DefaultRegistry(),
		watermarker: pdf.NewWatermarker(),
		screener:    screening.NewScreener(),
		dirCache:    newDirCache(dirCacheTTL),
		log:         logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = logging.Component(s.log, "convert")
	s.extractor = pdf.NewExtractor(cfg.MaxFileSize, s.log)
	s.ocr = ocr.NewSource(cfg.OCR, s.log)
	return s, nil
}

// Close releases the OCR engine
func (s *Service) Close() error {
	return s.ocr.Close()
}

// Directory returns the sandbox root
func (s *Service) Directory() string {
	return s.sandbox.Root()
}

// MaxFileSize returns the input size limit
func (s *Service) MaxFileSize() int64 {
	return s.cfg.MaxFileSize
}

// TargetFormats lists every format Convert accepts
func (s *Service) TargetFormats() []emit.Format {
	return append([]emit.Format{emit.FormatPDF}, s.emitters.Formats()...)
}

// OutputName returns the file name a converted source is written to
func OutputName(sourcePath string, target emit.Format) string {
	return stem(sourcePath) + outputSuffix + "." + target.Extension()
}

// Convert converts one file and writes it as <stem>_converted.<ext>. Every
// attempt that gets past path resolution is recorded in history. A blocked
// conversion returns its result alongside ErrSensitiveContent so callers can
// report the masked findings.
func (s *Service) Convert(ctx context.Context, req ConvertRequest) (*ConvertResult, error) {
	start := time.Now()

	path, err := s.sandbox.Resolve(req.Path)
	if err != nil {
		return nil, fail(StageResolve, req.Path, err)
	}

	target := req.Options.TargetFormat
	if target == "" {
		target = DefaultTarget
	}
	result := &ConvertResult{SourcePath: path, Format: target}

	err = s.convert(ctx, path, target, req, result)
	result.Duration = time.Since(start)
	s.record(ctx, result, err)

	log := s.log.WithFields(logrus.Fields{"path": path, "format": target, "duration": result.Duration})
	if err != nil {
		log.WithError(err).Warn("conversion failed")
		if errors.Is(err, ErrSensitiveContent) {
			return result, err
		}
		return nil, err
	}
	log.WithField("output", result.OutputPath).Info("conversion finished")
	return result, nil
}

func (s *Service) convert(ctx context.Context, path string, target emit.Format, req ConvertRequest, result *ConvertResult) error {
	var emitter emit.Emitter
	if target != emit.FormatPDF {
		e, err := s.emitters.For(target)
		if err != nil {
			return fail(StageValidate, path, err)
		}
		emitter = e
	}

	src, err := s.load(ctx, path, req.AllowSensitive, target == emit.FormatPDF)
	result.Findings = src.findings
	result.Warnings = src.warnings
	if err != nil {
		return err
	}
	result.Document = src.doc
	result.Stats = src.doc.Stats()
	result.Pages = result.Stats.Pages

	outDir, err := s.outputDir(req.OutputDir, path)
	if err != nil {
		return fail(StageEmit, path, err)
	}
	out := filepath.Join(outDir, OutputName(path, target))

	if target == emit.FormatPDF {
		if err := s.watermarker.Apply(path, out, req.Options.WatermarkText); err != nil {
			return fail(StageEmit, path, err)
		}
		result.Watermarked = strings.TrimSpace(req.Options.WatermarkText) != ""
	} else {
		if strings.TrimSpace(req.Options.WatermarkText) != "" {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("watermark ignored: %s output does not support watermarks", target))
		}
		opts := emit.Options{Title: stem(path), CellDelimiter: s.cfg.CellDelimiter}
		if err := writeFile(out, func(w *bufio.Writer) error {
			return emitter.Emit(w, src.doc, opts)
		}); err != nil {
			return fail(StageEmit, path, err)
		}
	}

	result.OutputPath = out
	s.dirCache.invalidate()
	return nil
}

// Reconstruct returns the document structure without emitting anything
func (s *Service) Reconstruct(ctx context.Context, req ReconstructRequest) (*ReconstructResult, error) {
	path, err := s.sandbox.Resolve(req.Path)
	if err != nil {
		return nil, fail(StageResolve, req.Path, err)
	}

	src, err := s.load(ctx, path, req.AllowSensitive, false)
	if err != nil {
		return nil, err
	}
	return &ReconstructResult{
		SourcePath: path,
		Kind:       src.kind,
		Document:   src.doc,
		Stats:      src.doc.Stats(),
		Findings:   src.findings,
		Warnings:   src.warnings,
	}, nil
}

// loaded is a validated, screened and reconstructed source
type loaded struct {
	kind     pdf.SourceKind
	doc      *layout.Document
	findings []screening.Finding
	warnings []string
}

func (s *Service) load(ctx context.Context, path string, allowSensitive, needPDF bool) (*loaded, error) {
	l := &loaded{kind: pdf.KindOf(path)}

	validation, err := s.validator.ValidateFile(pdf.PDFValidateFileRequest{Path: path})
	if err != nil {
		return l, fail(StageValidate, path, err)
	}
	if !validation.Valid {
		return l, fail(StageValidate, path, fmt.Errorf("%w: %s", ErrInvalidInput, validation.Message))
	}
	l.warnings = append(l.warnings, validation.Warnings...)
	if needPDF && l.kind != pdf.SourcePDF {
		return l, fail(StageValidate, path, ErrIncompatibleTarget)
	}

	nameFindings := s.screener.Scan(filepath.Base(path))
	if len(nameFindings) > 0 && !allowSensitive {
		l.findings = nameFindings
		return l, fail(StageScreen, path, ErrSensitiveContent)
	}

	pages, err := s.extract(ctx, path, l.kind)
	if err != nil {
		return l, fail(StageExtract, path, err)
	}
	if countItems(pages) == 0 {
		l.warnings = append(l.warnings, "no text found; the document may be scanned")
	}

	l.findings = append(nameFindings, s.screener.Scan(pdf.PlainText(pages))...)
	if len(l.findings) > 0 && !allowSensitive {
		return l, fail(StageScreen, path, ErrSensitiveContent)
	}

	doc, err := s.engine.Reconstruct(ctx, pages)
	if err != nil {
		return l, fail(StageReconstruct, path, err)
	}
	l.doc = doc
	return l, nil
}

func (s *Service) extract(ctx context.Context, path string, kind pdf.SourceKind) ([]layout.PageItems, error) {
	switch kind {
	case pdf.SourcePDF:
		return s.extractor.ExtractPages(ctx, path)
	case pdf.SourceImage:
		return s.ocr.ExtractPages(ctx, path)
	default:
		return nil, fmt.Errorf("unsupported file type: %s", path)
	}
}

// ScreenText checks a file name and text against the screening rules
func (s *Service) ScreenText(name, text string) *ScreenResult {
	findings := append(s.screener.Scan(name), s.screener.Scan(text)...)
	if findings == nil {
		findings = []screening.Finding{}
	}
	return &ScreenResult{
		Allowed:  len(findings) == 0,
		Rules:    s.screener.Rules(),
		Findings: findings,
	}
}

// DocumentText renders a document as plain text
func (s *Service) DocumentText(doc *layout.Document) (string, error) {
	var b strings.Builder
	opts := emit.Options{CellDelimiter: s.cfg.CellDelimiter}
	if err := emit.NewTextEmitter().Emit(&b, doc, opts); err != nil {
		return "", err
	}
	return b.String(), nil
}

// ValidateFile validates a file inside the configured directory
func (s *Service) ValidateFile(req pdf.PDFValidateFileRequest) (*pdf.PDFValidateFileResult, error) {
	path, err := s.sandbox.Resolve(req.Path)
	if err != nil {
		return nil, fmt.Errorf("security validation failed: %w", err)
	}
	req.Path = path
	return s.validator.ValidateFile(req)
}

// SearchDirectory lists convertible files; an empty directory searches the
// configured one
func (s *Service) SearchDirectory(req pdf.SearchDirectoryRequest) (*pdf.SearchDirectoryResult, error) {
	dir, err := s.sandbox.ResolveDir(req.Directory)
	if err != nil {
		return nil, fmt.Errorf("security validation failed: %w", err)
	}
	req.Directory = dir
	return s.search.SearchDirectory(req)
}

func (s *Service) outputDir(requested, source string) (string, error) {
	dir := filepath.Dir(source)
	switch {
	case requested != "":
		resolved, err := s.sandbox.ResolveDir(requested)
		if err != nil {
			return "", err
		}
		dir = resolved
	case s.cfg.OutputDir != "":
		dir = s.cfg.OutputDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("cannot create output directory: %w", err)
	}
	return dir, nil
}

func (s *Service) record(ctx context.Context, result *ConvertResult, convErr error) {
	if s.history == nil {
		return
	}

	entry := history.Entry{
		SourcePath:   result.SourcePath,
		OutputPath:   result.OutputPath,
		TargetFormat: string(result.Format),
		Watermarked:  result.Watermarked,
		Pages:        result.Stats.Pages,
		Blocks:       result.Stats.Paragraphs + result.Stats.Headings + result.Stats.ListItems + result.Stats.Tables,
		Tables:       result.Stats.Tables,
		Status:       history.StatusSucceeded,
		Duration:     result.Duration,
	}
	if convErr != nil {
		entry.Status = history.StatusFailed
		if errors.Is(convErr, ErrSensitiveContent) {
			entry.Status = history.StatusBlocked
		}
		entry.Error = convErr.Error()
	}

	saved, err := s.history.Record(context.WithoutCancel(ctx), entry)
	if err != nil {
		s.log.WithError(err).Warn("failed to record conversion history")
		return
	}
	result.HistoryID = saved.ID
}

// writeFile writes through a temporary file in the target directory and
// renames it into place, so a failed emit never leaves a partial output
func writeFile(path string, write func(w *bufio.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".convert-*")
	if err != nil {
		return fmt.Errorf("cannot create output: %w", err)
	}
	defer os.Remove(tmp.Name())

	bw := bufio.NewWriter(tmp)
	if err := write(bw); err != nil {
		tmp.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("write failed: %w", err)
	}
	if err := tmp.Chmod(outputPerm); err != nil {
		tmp.Close()
		return fmt.Errorf("write failed: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write failed: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("cannot move output into place: %w", err)
	}
	return nil
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func countItems(pages []layout.PageItems) int {
	n := 0
	for _, p := range pages {
		n += len(p.Items)
	}
	return n
}
