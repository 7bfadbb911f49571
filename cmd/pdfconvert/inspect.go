package main

import (
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/a3tai/mcp-pdf-converter/internal/convert"
	"github.com/a3tai/mcp-pdf-converter/internal/emit"
)

func newInspectCmd(a *app) *cobra.Command {
	var asJSON, allowSensitive bool

	cmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Print the reconstructed structure of a document",
		Long: `Inspect reconstructs a document without writing any file and prints its
pages, blocks, heading levels, list markers and table rows as YAML.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			abs, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}

			cfg := a.cfg.ConvertConfig()
			if !cmd.Flags().Changed("dir") {
				cfg.Directory = filepath.Dir(abs)
			}
			svc, err := a.newService(cfg, nil)
			if err != nil {
				return err
			}
			defer closeQuietly(svc, a.log)

			result, err := svc.Reconstruct(cmd.Context(), convert.ReconstructRequest{
				Path:           abs,
				AllowSensitive: allowSensitive,
			})
			if err != nil {
				return err
			}

			title := strings.TrimSuffix(filepath.Base(abs), filepath.Ext(abs))
			if !asJSON {
				return emit.NewYAMLEmitter().Emit(cmd.OutOrStdout(), result.Document, emit.Options{Title: title})
			}

			structure, err := emit.Structure(result.Document, title)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(structure)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of YAML")
	cmd.Flags().BoolVar(&allowSensitive, "allow-sensitive", false, "inspect files containing sensitive identifiers")
	return cmd
}
