package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/a3tai/mcp-pdf-converter/internal/config"
	"github.com/a3tai/mcp-pdf-converter/internal/convert"
	"github.com/a3tai/mcp-pdf-converter/internal/history"
	"github.com/a3tai/mcp-pdf-converter/internal/llm"
	"github.com/a3tai/mcp-pdf-converter/internal/logging"
	"github.com/a3tai/mcp-pdf-converter/internal/mcp"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

// newLogger builds the process logger. In stdio mode stdout carries the
// protocol, so logs go to stderr and only when debugging.
func newLogger(cfg *config.Config) *logrus.Logger {
	return logging.New(logging.Options{
		Level:  cfg.LogLevel,
		Output: os.Stderr,
		JSON:   cfg.LogJSON,
		Silent: cfg.IsStdioMode() && !cfg.IsDebug(),
	})
}

// newServer wires the conversion service, the optional history store and
// the model client into an MCP server. The returned cleanup closes what was
// opened.
func newServer(cfg *config.Config, logger logrus.FieldLogger) (*mcp.Server, func(), error) {
	var closers []io.Closer
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i].Close(); err != nil {
				logger.WithError(err).Warn("cleanup failed")
			}
		}
	}

	screener, err := cfg.Screener()
	if err != nil {
		return nil, cleanup, err
	}

	convertOpts := []convert.Option{convert.WithLogger(logger), convert.WithScreener(screener)}
	serverOpts := []mcp.Option{mcp.WithLogger(logger)}

	if cfg.HistoryDB != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.HistoryDB), config.DefaultDirPerm); err != nil {
			return nil, cleanup, fmt.Errorf("cannot create history directory: %w", err)
		}
		store, err := history.Open(cfg.HistoryDB)
		if err != nil {
			return nil, cleanup, err
		}
		closers = append(closers, store)
		convertOpts = append(convertOpts, convert.WithHistory(store))
		serverOpts = append(serverOpts, mcp.WithHistory(store))
	}

	service, err := convert.NewService(cfg.ConvertConfig(), convertOpts...)
	if err != nil {
		cleanup()
		return nil, func() {}, err
	}
	closers = append(closers, service)

	if cfg.LLM.Endpoint != "" {
		serverOpts = append(serverOpts, mcp.WithAnalyzer(llm.NewClient(cfg.LLMClientConfig(), logger)))
	}

	server, err := mcp.NewServer(cfg, service, serverOpts...)
	if err != nil {
		cleanup()
		return nil, func() {}, err
	}
	return server, cleanup, nil
}

func run(ctx context.Context, cfg *config.Config, logger *logrus.Logger) error {
	server, cleanup, err := newServer(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}
	defer cleanup()

	if cfg.IsServerMode() {
		logger.WithField("address", cfg.Address()).Info("server starting")
	}
	if err := server.Run(ctx); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			printVersion(os.Stdout)
			return
		}
	}

	cfg, err := config.LoadFromFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Set version if it was provided during build
	if version != "dev" {
		cfg.Version = version
	}

	logger := newLogger(cfg)
	logger.WithField("config", cfg.String()).Debug("starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.WithError(err).Error("server error")
		stop()
		os.Exit(1)
	}
}

// printVersion prints version information
func printVersion(w io.Writer) {
	fmt.Fprintf(w, "MCP PDF Converter\n")
	fmt.Fprintf(w, "Version: %s\n", version)
	fmt.Fprintf(w, "Build Time: %s\n", buildTime)
	fmt.Fprintf(w, "Git Commit: %s\n", gitCommit)
	fmt.Fprintf(w, "Built with: %s\n", runtime.Version())
}
