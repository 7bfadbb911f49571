package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/a3tai/mcp-pdf-converter/internal/convert"
	"github.com/a3tai/mcp-pdf-converter/internal/layout"
	"github.com/a3tai/mcp-pdf-converter/internal/llm"
	"github.com/a3tai/mcp-pdf-converter/internal/ocr"
	"github.com/a3tai/mcp-pdf-converter/internal/screening"
)

const (
	// Mode constants
	ModeStdio  = "stdio"
	ModeServer = "server"

	// Default values
	DefaultPort        = 8080
	DefaultHost        = "127.0.0.1"
	DefaultLogLevel    = "info"
	DefaultMaxFileSize = 100 * 1024 * 1024 // 100MB
	DefaultServerName  = "mcp-pdf-converter"

	// EnvPrefix prefixes every environment variable
	EnvPrefix = "MCP_PDF"

	// Directory permissions
	DefaultDirPerm = 0o750
)

// ScreeningConfig holds the sensitive content rules
type ScreeningConfig struct {
	// Patterns are extra "name=regexp" rules next to the national ID rule
	Patterns []string
	// Strict drops national ID matches whose check digit is wrong
	Strict bool
}

// LLMConfig points at the local inference server
type LLMConfig struct {
	Endpoint string
	Model    string
	Timeout  time.Duration
}

// Config holds all configuration for the PDF converter
type Config struct {
	// Server configuration
	Mode string // "server" or "stdio"
	Host string
	Port int

	// Document configuration
	PDFDirectory    string
	OutputDirectory string
	HistoryDB       string
	MaxFileSize     int64 // Maximum input file size in bytes
	CellDelimiter   string

	// Application configuration
	Version    string
	ServerName string
	LogLevel   string
	LogJSON    bool

	Layout    layout.Config
	OCR       ocr.Config
	Screening ScreeningConfig
	LLM       LLMConfig
}

// binding maps a command line flag to its viper key
type binding struct {
	flag string
	key  string
}

var bindings = []binding{
	{"mode", "mode"},
	{"host", "host"},
	{"port", "port"},
	{"dir", "dir"},
	{"outdir", "outdir"},
	{"history-db", "historydb"},
	{"loglevel", "loglevel"},
	{"log-json", "logjson"},
	{"maxfilesize", "maxfilesize"},
	{"workers", "workers"},
	{"cell-delimiter", "celldelimiter"},
	{"tables", "layout.tables"},
	{"heading1-size", "layout.heading1"},
	{"heading2-size", "layout.heading2"},
	{"heading3-size", "layout.heading3"},
	{"column-quantum", "layout.columnquantum"},
	{"min-table-columns", "layout.mincolumns"},
	{"indent-delta", "layout.indentdelta"},
	{"fontsize-delta", "layout.fontsizedelta"},
	{"ocr-lang", "ocr.language"},
	{"ocr-dpi", "ocr.dpi"},
	{"ocr-word-gap", "ocr.wordgap"},
	{"screen-pattern", "screening.patterns"},
	{"screen-strict", "screening.strict"},
	{"llm-endpoint", "llm.endpoint"},
	{"llm-model", "llm.model"},
	{"llm-timeout", "llm.timeout"},
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		// Fallback to current directory if working directory cannot be determined
		currentDir = "."
	}

	llmDefaults := llm.DefaultConfig()
	return &Config{
		Mode:         ModeStdio, // Default to stdio mode for MCP compatibility
		Host:         DefaultHost,
		Port:         DefaultPort,
		PDFDirectory: currentDir,
		HistoryDB:    DefaultHistoryPath(),
		Version:      "1.0.0",
		ServerName:   DefaultServerName,
		LogLevel:     DefaultLogLevel,
		MaxFileSize:  DefaultMaxFileSize,
		Layout:       layout.DefaultConfig(),
		OCR:          ocr.DefaultConfig(),
		LLM: LLMConfig{
			Endpoint: llmDefaults.Endpoint,
			Model:    llmDefaults.Model,
			Timeout:  llmDefaults.Timeout,
		},
	}
}

// DefaultHistoryPath places the history database in the user cache
// directory; empty when there is none, which disables history
func DefaultHistoryPath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, DefaultServerName, "history.db")
}

// LoadFromFlags parses command line flags and returns a configuration
func LoadFromFlags() (*Config, error) {
	RegisterFlags(pflag.CommandLine, DefaultConfig())
	setupUsageMessage()

	// Check for version flag before parsing
	if err := checkVersionFlag(); err != nil {
		return nil, err
	}

	pflag.Parse()

	return Load(viper.GetViper(), pflag.CommandLine)
}

// RegisterFlags defines every configuration flag on fs with defaults from cfg
func RegisterFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.String("mode", cfg.Mode, "Server mode: 'stdio' for MCP standard I/O, 'server' for HTTP server")
	fs.String("host", cfg.Host, "Server host address (server mode only)")
	fs.Int("port", cfg.Port, "Server port (server mode only)")
	fs.String("dir", cfg.PDFDirectory, "Directory containing documents to convert")
	fs.String("outdir", cfg.OutputDirectory, "Directory for converted files (default: next to the source)")
	fs.String("history-db", cfg.HistoryDB, "SQLite conversion history path (empty disables history)")
	fs.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	fs.Bool("log-json", cfg.LogJSON, "Log in JSON format")
	fs.Int64("maxfilesize", cfg.MaxFileSize, "Maximum input file size in bytes")
	fs.Int("workers", cfg.Layout.Workers, "Pages reconstructed concurrently")
	fs.String("cell-delimiter", cfg.CellDelimiter, "Table cell delimiter for text output")
	fs.Bool("tables", cfg.Layout.DetectTables, "Detect tables")
	fs.Float64("heading1-size", cfg.Layout.Heading1Size, "Font size above which a line is a level 1 heading")
	fs.Float64("heading2-size", cfg.Layout.Heading2Size, "Font size above which a line is a level 2 heading")
	fs.Float64("heading3-size", cfg.Layout.Heading3Size, "Font size above which a line is a level 3 heading")
	fs.Float64("column-quantum", cfg.Layout.ColumnQuantum, "Grid size for table column anchors")
	fs.Int("min-table-columns", cfg.Layout.MinTableColumns, "Column anchors that make a paragraph a table")
	fs.Float64("indent-delta", cfg.Layout.IndentDelta, "Indentation change that ends a paragraph")
	fs.Float64("fontsize-delta", cfg.Layout.FontSizeDelta, "Font size change that ends a paragraph")
	fs.String("ocr-lang", cfg.OCR.Language, "Tesseract language for image inputs")
	fs.Float64("ocr-dpi", cfg.OCR.DPI, "Resolution of image inputs")
	fs.Float64("ocr-word-gap", cfg.OCR.WordGapFactor, "Widest gap between recognised words on a line, in line heights")
	fs.StringSlice("screen-pattern", cfg.Screening.Patterns, "Extra screening rule as name=regexp (repeatable)")
	fs.Bool("screen-strict", cfg.Screening.Strict, "Only flag national IDs with a valid check digit")
	fs.String("llm-endpoint", cfg.LLM.Endpoint, "Ollama-compatible inference server URL")
	fs.String("llm-model", cfg.LLM.Model, "Model used for document analysis")
	fs.Duration("llm-timeout", cfg.LLM.Timeout, "Timeout for a single model request")
}

// Load builds a configuration from v after fs has been parsed. Flags take
// precedence over MCP_PDF_* environment variables, which take precedence
// over the config file named by the "config" key, if any.
func Load(v *viper.Viper, fs *pflag.FlagSet) (*Config, error) {
	cfg := DefaultConfig()

	setupViperEnvironment(v, cfg)
	bindFlagsToViper(v, fs)
	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	populateConfigFromViper(v, cfg)

	// Expand paths if needed
	if cfg.PDFDirectory != "" {
		if expandedPath, err := filepath.Abs(cfg.PDFDirectory); err == nil {
			cfg.PDFDirectory = expandedPath
		}
	}
	if cfg.OutputDirectory != "" {
		if expandedPath, err := filepath.Abs(cfg.OutputDirectory); err == nil {
			cfg.OutputDirectory = expandedPath
		}
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(v *viper.Viper, cfg *Config) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("mode", cfg.Mode)
	v.SetDefault("host", cfg.Host)
	v.SetDefault("port", cfg.Port)
	v.SetDefault("dir", cfg.PDFDirectory)
	v.SetDefault("outdir", cfg.OutputDirectory)
	v.SetDefault("historydb", cfg.HistoryDB)
	v.SetDefault("loglevel", cfg.LogLevel)
	v.SetDefault("logjson", cfg.LogJSON)
	v.SetDefault("maxfilesize", cfg.MaxFileSize)
	v.SetDefault("workers", cfg.Layout.Workers)
	v.SetDefault("celldelimiter", cfg.CellDelimiter)
	v.SetDefault("layout.tables", cfg.Layout.DetectTables)
	v.SetDefault("layout.heading1", cfg.Layout.Heading1Size)
	v.SetDefault("layout.heading2", cfg.Layout.Heading2Size)
	v.SetDefault("layout.heading3", cfg.Layout.Heading3Size)
	v.SetDefault("layout.columnquantum", cfg.Layout.ColumnQuantum)
	v.SetDefault("layout.mincolumns", cfg.Layout.MinTableColumns)
	v.SetDefault("layout.indentdelta", cfg.Layout.IndentDelta)
	v.SetDefault("layout.fontsizedelta", cfg.Layout.FontSizeDelta)
	v.SetDefault("ocr.language", cfg.OCR.Language)
	v.SetDefault("ocr.dpi", cfg.OCR.DPI)
	v.SetDefault("ocr.wordgap", cfg.OCR.WordGapFactor)
	v.SetDefault("screening.patterns", cfg.Screening.Patterns)
	v.SetDefault("screening.strict", cfg.Screening.Strict)
	v.SetDefault("llm.endpoint", cfg.LLM.Endpoint)
	v.SetDefault("llm.model", cfg.LLM.Model)
	v.SetDefault("llm.timeout", cfg.LLM.Timeout)
}

// bindFlagsToViper binds the registered flags present in fs
func bindFlagsToViper(v *viper.Viper, fs *pflag.FlagSet) {
	if fs == nil {
		return
	}
	for _, b := range bindings {
		if f := fs.Lookup(b.flag); f != nil {
			_ = v.BindPFlag(b.key, f)
		}
	}
}

// readConfigFile loads the file named by the "config" key or the config
// name set on v. A missing file is only an error when it was named
// explicitly.
func readConfigFile(v *viper.Viper) error {
	explicit := v.GetString("config")
	if explicit != "" {
		v.SetConfigFile(explicit)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) && explicit == "" {
			return nil
		}
		return fmt.Errorf("cannot read config file: %w", err)
	}
	return nil
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nMCP PDF Converter - A Model Context Protocol server that converts PDFs "+
			"into structured documents\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                                         "+
			"# stdio mode, current directory (default)\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --dir=/path/to/pdfs --outdir=/tmp/out   "+
			"# stdio mode with custom directories\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=server --dir=/path/to/pdfs       # server mode\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=server --host=0.0.0.0 --port=8081 # server on all interfaces\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  MCP_PDF_MODE           Server mode\n")
		fmt.Fprintf(os.Stderr, "  MCP_PDF_HOST           Server host\n")
		fmt.Fprintf(os.Stderr, "  MCP_PDF_PORT           Server port\n")
		fmt.Fprintf(os.Stderr, "  MCP_PDF_DIR            Document directory\n")
		fmt.Fprintf(os.Stderr, "  MCP_PDF_OUTDIR         Output directory\n")
		fmt.Fprintf(os.Stderr, "  MCP_PDF_HISTORYDB      Conversion history database\n")
		fmt.Fprintf(os.Stderr, "  MCP_PDF_LOGLEVEL       Log level\n")
		fmt.Fprintf(os.Stderr, "  MCP_PDF_MAXFILESIZE    Maximum file size\n")
		fmt.Fprintf(os.Stderr, "  MCP_PDF_LLM_ENDPOINT   Inference server URL\n")
		fmt.Fprintf(os.Stderr, "  MCP_PDF_LAYOUT_*       Layout thresholds (e.g. MCP_PDF_LAYOUT_HEADING1)\n")
	}
}

// checkVersionFlag checks if version flag was requested
func checkVersionFlag() error {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return fmt.Errorf("version requested")
		}
	}
	return nil
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(v *viper.Viper, cfg *Config) {
	cfg.Mode = v.GetString("mode")
	cfg.Host = v.GetString("host")
	cfg.Port = v.GetInt("port")
	cfg.PDFDirectory = v.GetString("dir")
	cfg.OutputDirectory = v.GetString("outdir")
	cfg.HistoryDB = v.GetString("historydb")
	cfg.LogLevel = v.GetString("loglevel")
	cfg.LogJSON = v.GetBool("logjson")
	cfg.MaxFileSize = v.GetInt64("maxfilesize")
	cfg.CellDelimiter = v.GetString("celldelimiter")

	cfg.Layout.Workers = v.GetInt("workers")
	cfg.Layout.DetectTables = v.GetBool("layout.tables")
	cfg.Layout.Heading1Size = v.GetFloat64("layout.heading1")
	cfg.Layout.Heading2Size = v.GetFloat64("layout.heading2")
	cfg.Layout.Heading3Size = v.GetFloat64("layout.heading3")
	cfg.Layout.ColumnQuantum = v.GetFloat64("layout.columnquantum")
	cfg.Layout.MinTableColumns = v.GetInt("layout.mincolumns")
	cfg.Layout.IndentDelta = v.GetFloat64("layout.indentdelta")
	cfg.Layout.FontSizeDelta = v.GetFloat64("layout.fontsizedelta")

	cfg.OCR.Language = v.GetString("ocr.language")
	cfg.OCR.DPI = v.GetFloat64("ocr.dpi")
	cfg.OCR.WordGapFactor = v.GetFloat64("ocr.wordgap")

	cfg.Screening.Patterns = v.GetStringSlice("screening.patterns")
	cfg.Screening.Strict = v.GetBool("screening.strict")

	cfg.LLM.Endpoint = v.GetString("llm.endpoint")
	cfg.LLM.Model = v.GetString("llm.model")
	cfg.LLM.Timeout = v.GetDuration("llm.timeout")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate mode
	if c.Mode != ModeStdio && c.Mode != ModeServer {
		return errors.New("mode must be either 'stdio' or 'server'")
	}

	// Validate port range (only for server mode)
	if c.Mode == ModeServer && (c.Port < 1 || c.Port > 65535) {
		return errors.New("port must be between 1 and 65535")
	}

	// Validate document directory
	if c.PDFDirectory == "" {
		return errors.New("PDF directory cannot be empty")
	}

	// Check if the directory exists, create if it doesn't
	if _, err := os.Stat(c.PDFDirectory); os.IsNotExist(err) {
		if err := os.MkdirAll(c.PDFDirectory, DefaultDirPerm); err != nil {
			return fmt.Errorf("cannot create PDF directory %s: %w", c.PDFDirectory, err)
		}
	} else if err != nil {
		return fmt.Errorf("cannot access PDF directory %s: %w", c.PDFDirectory, err)
	}

	// Validate max file size
	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	if err := c.LayoutConfig().Validate(); err != nil {
		return fmt.Errorf("invalid layout settings: %w", err)
	}

	if c.OCR.DPI <= 0 {
		return errors.New("OCR DPI must be positive")
	}
	if c.OCR.WordGapFactor <= 0 {
		return errors.New("OCR word gap must be positive")
	}

	if _, err := c.Screener(); err != nil {
		return err
	}

	if c.LLM.Endpoint != "" {
		u, err := url.Parse(c.LLM.Endpoint)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid LLM endpoint: %q", c.LLM.Endpoint)
		}
	}

	return nil
}

// Address returns the server address as host:port
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, Host: %s, Port: %d, PDFDirectory: %s, OutputDirectory: %s, "+
		"LogLevel: %s, MaxFileSize: %d, Workers: %d}",
		c.Mode, c.Host, c.Port, c.PDFDirectory, c.OutputDirectory, c.LogLevel, c.MaxFileSize, c.Layout.Workers)
}

// IsServerMode returns true if the server is running in HTTP server mode
func (c *Config) IsServerMode() bool {
	return c.Mode == ModeServer
}

// IsStdioMode returns true if the server is running in stdio mode
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}

// LayoutConfig returns the reconstruction thresholds. A worker count below
// one uses every CPU.
func (c *Config) LayoutConfig() layout.Config {
	lc := c.Layout
	if lc.Workers < 1 {
		lc.Workers = runtime.NumCPU()
	}
	return lc
}

// Screener builds the screening rules
func (c *Config) Screener() (*screening.Screener, error) {
	rules := make([]screening.Rule, 0, len(c.Screening.Patterns))
	for _, p := range c.Screening.Patterns {
		r, err := screening.ParseRule(p)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	s := screening.NewScreener(rules...)
	s.Strict = c.Screening.Strict
	return s, nil
}

// LLMClientConfig returns the inference client settings
func (c *Config) LLMClientConfig() llm.Config {
	lc := llm.DefaultConfig()
	if c.LLM.Endpoint != "" {
		lc.Endpoint = c.LLM.Endpoint
	}
	if c.LLM.Model != "" {
		lc.Model = c.LLM.Model
	}
	if c.LLM.Timeout > 0 {
		lc.Timeout = c.LLM.Timeout
	}
	return lc
}

// ConvertConfig returns the conversion service settings
func (c *Config) ConvertConfig() convert.Config {
	return convert.Config{
		MaxFileSize:   c.MaxFileSize,
		Directory:     c.PDFDirectory,
		OutputDir:     c.OutputDirectory,
		Layout:        c.LayoutConfig(),
		OCR:           c.OCR,
		CellDelimiter: c.CellDelimiter,
	}
}
