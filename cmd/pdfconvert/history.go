package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/a3tai/mcp-pdf-converter/internal/history"
)

func newHistoryCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [id]",
		Short: "List recent conversions or show one by id",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openHistory()
			if err != nil {
				return err
			}
			if store == nil {
				return errors.New("conversion history is disabled (set --history-db)")
			}
			defer closeQuietly(store, a.log)

			out := cmd.OutOrStdout()
			if len(args) == 1 {
				entry, err := store.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				printEntry(out, entry, true)
				return nil
			}

			entries, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(out, "no conversions recorded")
				return nil
			}
			for _, e := range entries {
				printEntry(out, e, false)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of conversions to list")
	return cmd
}

func printEntry(w io.Writer, e history.Entry, detail bool) {
	fmt.Fprintf(w, "%s  %s  %-9s %s -> %s\n",
		e.ID, e.CreatedAt.Local().Format("2006-01-02 15:04:05"), e.Status, e.SourcePath, e.TargetFormat)
	if !detail {
		return
	}
	if e.OutputPath != "" {
		fmt.Fprintf(w, "  output:   %s\n", e.OutputPath)
	}
	fmt.Fprintf(w, "  pages:    %d\n", e.Pages)
	fmt.Fprintf(w, "  blocks:   %d (%d tables)\n", e.Blocks, e.Tables)
	fmt.Fprintf(w, "  duration: %s\n", e.Duration.Round(time.Millisecond))
	if e.Watermarked {
		fmt.Fprintln(w, "  watermarked")
	}
	if e.Error != "" {
		fmt.Fprintf(w, "  error:    %s\n", e.Error)
	}
}
