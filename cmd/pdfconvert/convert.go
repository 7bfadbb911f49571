package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/a3tai/mcp-pdf-converter/internal/convert"
	"github.com/a3tai/mcp-pdf-converter/internal/emit"
	"github.com/a3tai/mcp-pdf-converter/internal/llm"
)

type convertFlags struct {
	to             string
	watermark      string
	allowSensitive bool
	summarize      bool
	analysis       string
}

func newConvertCmd(a *app) *cobra.Command {
	f := &convertFlags{}

	cmd := &cobra.Command{
		Use:   "convert <file>...",
		Short: "Convert PDFs or images into another format",
		Long: `Convert reconstructs the layout of each file and writes it next to the source
as <name>_converted.<ext>, or into --outdir. Without --dir, each file's own
directory is the working directory for that file.

Files whose name or text contains a national ID number are refused unless
--allow-sensitive is given. --summarize sends the converted text to the
configured inference server and prints its analysis.`,
		Example: `  pdfconvert convert report.pdf
  pdfconvert convert --to md --outdir out/ a.pdf b.pdf
  pdfconvert convert --to pdf --watermark CONFIDENTIAL contract.pdf
  pdfconvert convert --to txt --summarize minutes.pdf`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runConvert(cmd, args, f)
		},
	}

	cmd.Flags().StringVarP(&f.to, "to", "t", string(convert.DefaultTarget), "target format: pdf, docx, html, md, txt, yaml")
	cmd.Flags().StringVar(&f.watermark, "watermark", "", "watermark text (pdf output only)")
	cmd.Flags().BoolVar(&f.allowSensitive, "allow-sensitive", false, "convert files containing sensitive identifiers")
	cmd.Flags().BoolVar(&f.summarize, "summarize", false, "analyze the converted text with the inference server")
	cmd.Flags().StringVar(&f.analysis, "analysis", string(llm.AnalyzeContent), "analysis for --summarize: all, structure, content, metadata")
	return cmd
}

func (a *app) runConvert(cmd *cobra.Command, args []string, f *convertFlags) error {
	target, err := emit.ParseFormat(f.to)
	if err != nil {
		return err
	}
	kind, err := llm.ParseAnalysisKind(f.analysis)
	if err != nil {
		return err
	}

	store, err := a.openHistory()
	if err != nil {
		return err
	}
	if store != nil {
		defer closeQuietly(store, a.log)
	}

	var client *llm.Client
	if f.summarize {
		client = llm.NewClient(a.cfg.LLMClientConfig(), a.log)
	}

	out := cmd.OutOrStdout()
	dirSet := cmd.Flags().Changed("dir")
	var failed int

	for _, file := range args {
		abs, err := filepath.Abs(file)
		if err != nil {
			return err
		}

		cfg := a.cfg.ConvertConfig()
		if !dirSet {
			cfg.Directory = filepath.Dir(abs)
		}
		svc, err := a.newService(cfg, store)
		if err != nil {
			return err
		}

		result, err := svc.Convert(cmd.Context(), convert.ConvertRequest{
			Path: abs,
			Options: convert.ConversionOptions{
				TargetFormat:  target,
				WatermarkText: f.watermark,
			},
			AllowSensitive: f.allowSensitive,
		})
		closeQuietly(svc, a.log)

		if err != nil {
			failed++
			printFailure(cmd.ErrOrStderr(), file, result, err)
			continue
		}
		printResult(out, result)

		if client != nil {
			if err := summarize(cmd.Context(), out, client, svc, result, kind); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "  summary unavailable: %v\n", err)
			}
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d conversion(s) failed", failed, len(args))
	}
	return nil
}

func (a *app) newService(cfg convert.Config, store convert.Recorder) (*convert.Service, error) {
	screener, err := a.cfg.Screener()
	if err != nil {
		return nil, err
	}
	opts := []convert.Option{convert.WithLogger(a.log), convert.WithScreener(screener)}
	if store != nil {
		opts = append(opts, convert.WithHistory(store))
	}
	return convert.NewService(cfg, opts...)
}

func printResult(w io.Writer, r *convert.ConvertResult) {
	fmt.Fprintf(w, "%s -> %s\n", r.SourcePath, r.OutputPath)
	fmt.Fprintf(w, "  %d page(s), %d heading(s), %d paragraph(s), %d list item(s), %d table(s) in %s\n",
		r.Stats.Pages, r.Stats.Headings, r.Stats.Paragraphs, r.Stats.ListItems, r.Stats.Tables,
		r.Duration.Round(time.Millisecond))
	if r.Watermarked {
		fmt.Fprintln(w, "  watermarked")
	}
	for _, warning := range r.Warnings {
		fmt.Fprintf(w, "  warning: %s\n", warning)
	}
}

func printFailure(w io.Writer, file string, r *convert.ConvertResult, err error) {
	fmt.Fprintf(w, "%s: %v\n", file, err)
	if !errors.Is(err, convert.ErrSensitiveContent) || r == nil {
		return
	}
	for _, finding := range r.Findings {
		fmt.Fprintf(w, "  %s: %s at offset %d\n", finding.Rule, finding.Value, finding.Offset)
	}
	fmt.Fprintln(w, "  use --allow-sensitive to convert anyway")
}

// analyzer is the part of the model client summaries need
type analyzer interface {
	Analyze(ctx context.Context, content string, kind llm.AnalysisKind) (*llm.Analysis, error)
}

func summarize(ctx context.Context, w io.Writer, client analyzer, svc *convert.Service,
	r *convert.ConvertResult, kind llm.AnalysisKind,
) error {
	text, err := svc.DocumentText(r.Document)
	if err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("no text to analyze")
	}

	analysis, err := client.Analyze(ctx, text, kind)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "  analysis (%s):\n", analysis.Kind)
	if analysis.Fields == nil {
		fmt.Fprintf(w, "    %s\n", strings.ReplaceAll(strings.TrimSpace(analysis.Text), "\n", "\n    "))
		return nil
	}
	pretty, err := json.MarshalIndent(analysis.Fields, "    ", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "    %s\n", pretty)
	return nil
}
