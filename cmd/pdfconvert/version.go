package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/a3tai/mcp-pdf-converter/internal/ocr"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version of pdfconvert",
		// version needs no configuration
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "pdfconvert %s (%s, ocr=%t)\n", version, runtime.Version(), ocr.Enabled)
		},
	}
}
