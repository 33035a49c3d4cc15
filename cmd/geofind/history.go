package main

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/rendis/geofind/internal/engine/storage"
)

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var (
		limit   int
		csvPath string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List previously selected countries",
		Example: `  geofind history --limit 20
  geofind history --csv history.csv
  geofind history --csv - | head`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}

			store, err := storage.NewStore(cfg.History.Path)
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch csvPath {
			case "":
				return writeHistoryTable(out, entries)
			case "-":
				return storage.WriteCSV(out, entries)
			}

			f, err := os.Create(csvPath)
			if err != nil {
				return fmt.Errorf("creating %s: %w", csvPath, err)
			}
			defer f.Close()
			if err := storage.WriteCSV(f, entries); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d rows to %s\n", len(entries), csvPath)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "max rows, 0 for all")
	cmd.Flags().StringVar(&csvPath, "csv", "", "write CSV to this file (- for stdout)")
	return cmd
}

func writeHistoryTable(w io.Writer, entries []storage.Entry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "No countries selected yet.")
		return err
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("WHEN", "COUNTRY", "CAPITAL", "REGION", "QUERY")
	for _, e := range entries {
		t.Row(humanize.Time(e.SelectedAt), e.Country.CommonName, e.Country.Capital, e.Country.Region, e.Query)
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}
