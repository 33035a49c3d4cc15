package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rendis/geofind/internal/engine/restcountries"
	"github.com/rendis/geofind/internal/model"
	"github.com/rendis/geofind/internal/search"
)

type lookupResult struct {
	Query     string          `json:"query"`
	Countries []model.Country `json:"countries"`
}

func newLookupCmd(opts *rootOptions) *cobra.Command {
	var (
		asJSON      bool
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "lookup <name>...",
		Short: "Print the countries matching each name",
		Example: `  geofind lookup France
  geofind lookup "new zealand" ger --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			logger, err := opts.headlessLogger()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			client := restcountries.NewClient(cfg.API.BaseURL, cfg.API.Proxy, cfg.API.Timeout)
			results, err := lookupAll(cmd.Context(), client, args, concurrency, logger)
			if err != nil {
				return err
			}
			if asJSON {
				return writeLookupJSON(cmd.OutOrStdout(), results)
			}
			return writeLookupTable(cmd.OutOrStdout(), results)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "max parallel requests")
	return cmd
}

// lookupAll queries every name concurrently. Results keep argument order;
// a name with no match yields an empty list.
func lookupAll(ctx context.Context, f search.Fetcher, queries []string, limit int, logger *zap.Logger) ([]lookupResult, error) {
	for _, q := range queries {
		if strings.TrimSpace(q) == "" {
			return nil, fmt.Errorf("empty country name")
		}
	}

	results := make([]lookupResult, len(queries))
	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i, q := range queries {
		q = strings.TrimSpace(q)
		g.Go(func() error {
			countries, err := f.SearchByName(ctx, q)
			switch {
			case errors.Is(err, model.ErrCountryNotFound):
				countries = []model.Country{}
			case err != nil:
				return fmt.Errorf("looking up %q: %w", q, err)
			}
			logger.Debug("lookup done", zap.String("query", q), zap.Int("results", len(countries)))
			results[i] = lookupResult{Query: q, Countries: countries}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func writeLookupJSON(w io.Writer, results []lookupResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

func writeLookupTable(w io.Writer, results []lookupResult) error {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("QUERY", "COUNTRY", "CAPITAL", "REGION", "POPULATION", "LAT", "LNG")

	for _, r := range results {
		if len(r.Countries) == 0 {
			t.Row(r.Query, "No country found.", "", "", "", "", "")
			continue
		}
		for _, c := range r.Countries {
			lat, lng := "", ""
			if c.HasCoords {
				lat = strconv.FormatFloat(c.Lat(), 'f', -1, 64)
				lng = strconv.FormatFloat(c.Lng(), 'f', -1, 64)
			}
			t.Row(r.Query, c.CommonName, c.Capital, c.Region, humanize.Comma(c.Population), lat, lng)
		}
	}

	_, err := fmt.Fprintln(w, t.Render())
	return err
}
