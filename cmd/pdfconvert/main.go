// Package main is the pdfconvert command line tool. It runs the same
// conversion pipeline as the MCP server from a terminal.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/a3tai/mcp-pdf-converter/internal/config"
	"github.com/a3tai/mcp-pdf-converter/internal/history"
	"github.com/a3tai/mcp-pdf-converter/internal/logging"
)

// version is set at build time via ldflags.
var version = "dev"

// app is the state shared by every subcommand once flags and the config
// file have been loaded
type app struct {
	cfg *config.Config
	log *logrus.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "pdfconvert",
		Short: "Convert PDFs into structured documents",
		Long: `pdfconvert rebuilds headings, paragraphs, list items and tables from the
positioned text of a PDF (or a scanned image when built with OCR support) and
writes the result as docx, html, md, txt or yaml. PDF output copies the source
with an optional text watermark.

Settings come from flags, MCP_PDF_* environment variables and an optional
pdfconvert.yaml in the current directory or the user config directory.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if version != "dev" {
				cfg.Version = version
			}
			a.cfg = cfg
			a.log = logging.New(logging.Options{
				Level:  cfg.LogLevel,
				Output: cmd.ErrOrStderr(),
				JSON:   cfg.LogJSON,
			})
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "config file (default: ./pdfconvert.yaml or <user config dir>/mcp-pdf-converter/pdfconvert.yaml)")
	config.RegisterFlags(flags, config.DefaultConfig())
	for _, name := range []string{"mode", "host", "port"} {
		_ = flags.MarkHidden(name)
	}

	root.AddCommand(
		newConvertCmd(a),
		newInspectCmd(a),
		newHistoryCmd(a),
		newVersionCmd(),
	)
	return root
}

// loadConfig reads the config file and merges it with environment variables
// and the flags of cmd
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	v := viper.New()
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		v.Set("config", path)
	} else {
		v.SetConfigName("pdfconvert")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, config.DefaultServerName))
		}
	}
	return config.Load(v, cmd.Flags())
}

// openHistory opens the configured history store; nil means history is off
func (a *app) openHistory() (*history.Store, error) {
	if a.cfg.HistoryDB == "" {
		return nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(a.cfg.HistoryDB), config.DefaultDirPerm); err != nil {
		return nil, fmt.Errorf("cannot create history directory: %w", err)
	}
	return history.Open(a.cfg.HistoryDB)
}

func closeQuietly(c io.Closer, log logrus.FieldLogger) {
	if err := c.Close(); err != nil {
		log.WithError(err).Warn("close failed")
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
