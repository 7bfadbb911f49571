package main

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-pdf-converter/internal/config"
	"github.com/a3tai/mcp-pdf-converter/internal/logging"
)

const testVersion = "1.2.3"

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.PDFDirectory = t.TempDir()
	cfg.HistoryDB = filepath.Join(t.TempDir(), "state", "history.db")
	return cfg
}

func TestPrintVersion(t *testing.T) {
	oldVersion, oldBuildTime, oldGitCommit := version, buildTime, gitCommit
	t.Cleanup(func() {
		version, buildTime, gitCommit = oldVersion, oldBuildTime, oldGitCommit
	})

	version = testVersion
	buildTime = "2023-12-01_10:30:00"
	gitCommit = "abc123"

	var buf bytes.Buffer
	printVersion(&buf)

	output := buf.String()
	for _, want := range []string{
		"MCP PDF Converter",
		"Version: 1.2.3",
		"Build Time: 2023-12-01_10:30:00",
		"Git Commit: abc123",
		"Built with: " + runtime.Version(),
	} {
		assert.Contains(t, output, want)
	}
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name       string
		mode       string
		level      string
		wantSilent bool
		wantLevel  logrus.Level
	}{
		{"stdio info is silent", config.ModeStdio, "info", true, logrus.InfoLevel},
		{"stdio debug logs", config.ModeStdio, "debug", false, logrus.DebugLevel},
		{"server info logs", config.ModeServer, "info", false, logrus.InfoLevel},
		{"server warn", config.ModeServer, "warn", false, logrus.WarnLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{Mode: tt.mode, LogLevel: tt.level}
			logger := newLogger(cfg)

			assert.Equal(t, tt.wantLevel, logger.GetLevel())
			assert.Equal(t, tt.wantSilent, logger.Out == io.Discard)
		})
	}
}

func TestNewLogger_JSON(t *testing.T) {
	cfg := &config.Config{Mode: config.ModeServer, LogLevel: "info", LogJSON: true}
	logger := newLogger(cfg)
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)
}

func TestNewServer(t *testing.T) {
	cfg := testConfig(t)

	server, cleanup, err := newServer(cfg, logging.Discard())
	require.NoError(t, err)
	require.NotNil(t, server)
	assert.FileExists(t, cfg.HistoryDB)
	cleanup()
}

func TestNewServer_HistoryDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.HistoryDB = ""
	cfg.LLM.Endpoint = ""

	server, cleanup, err := newServer(cfg, logging.Discard())
	require.NoError(t, err)
	require.NotNil(t, server)
	cleanup()
}

func TestNewServer_InvalidScreeningRule(t *testing.T) {
	cfg := testConfig(t)
	cfg.Screening.Patterns = []string{"broken"}

	_, cleanup, err := newServer(cfg, logging.Discard())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid screening rule")
	cleanup()
}

func TestNewServer_InvalidLayout(t *testing.T) {
	cfg := testConfig(t)
	cfg.Layout.Heading3Size = 40

	_, cleanup, err := newServer(cfg, logging.Discard())
	require.Error(t, err)
	cleanup()
}

func TestRun_CanceledContext(t *testing.T) {
	cfg := testConfig(t)
	cfg.Mode = config.ModeServer
	cfg.Port = 0

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NoError(t, run(ctx, cfg, logging.Discard()))
}
