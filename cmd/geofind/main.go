package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rendis/geofind/internal/config"
	"github.com/rendis/geofind/internal/logging"
	"github.com/rendis/geofind/internal/tui"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// rootOptions holds the persistent flags shared by every command.
type rootOptions struct {
	configPath string
	apiURL     string
	proxy      string
	timeout    time.Duration
	debounce   time.Duration
	racePolicy string
	mapStyle   string
	historyDB  string
	logLevel   string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "geofind",
		Short: "Search countries by name and fly to them on a terminal map",
		Long: `geofind looks countries up on the REST Countries API as you type,
shows the matches in a list and, once you pick one, flies a terminal map
to it and opens a panel with its capital, region, population and
coordinates.

Run without arguments to start the interactive interface.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			// the TUI owns the terminal, so logs go to a file
			logger, err := logging.New(cfg.Log.Path, cfg.Log.Level)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			return tui.Run(cfg, logger, version)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", config.DefaultPath(), "config file")
	flags.StringVar(&opts.apiURL, "api-url", "", "REST Countries base URL")
	flags.StringVar(&opts.proxy, "proxy", "", "HTTP/SOCKS5 proxy URL")
	flags.DurationVar(&opts.timeout, "timeout", 0, "per-request timeout")
	flags.DurationVar(&opts.debounce, "debounce", 0, "quiet period before a search is sent")
	flags.StringVar(&opts.racePolicy, "race-policy", "", "latest-issued or last-resolved")
	flags.StringVar(&opts.mapStyle, "map-style", "", "standard or mono")
	flags.StringVar(&opts.historyDB, "history-db", "", "selection history database")
	flags.StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging on stderr for headless commands")

	root.AddCommand(
		newLookupCmd(opts),
		newHistoryCmd(opts),
		newConfigCmd(opts),
		newVersionCmd(),
	)
	return root
}

// load reads the config file and environment, then applies explicit flags.
func (o *rootOptions) load(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}

	f := cmd.Flags()
	if f.Changed("api-url") {
		cfg.API.BaseURL = o.apiURL
	}
	if f.Changed("proxy") {
		cfg.API.Proxy = o.proxy
	}
	if f.Changed("timeout") {
		cfg.API.Timeout = o.timeout
	}
	if f.Changed("debounce") {
		cfg.Search.Debounce = o.debounce
	}
	if f.Changed("race-policy") {
		cfg.Search.RacePolicy = o.racePolicy
	}
	if f.Changed("map-style") {
		cfg.Map.Style = o.mapStyle
	}
	if f.Changed("history-db") {
		cfg.History.Path = o.historyDB
	}
	if f.Changed("log-level") {
		cfg.Log.Level = o.logLevel
	}
	return cfg, cfg.Validate()
}

// headlessLogger writes to stderr, quiet unless --verbose.
func (o *rootOptions) headlessLogger() (*zap.Logger, error) {
	level := "warn"
	if o.verbose {
		level = "debug"
	}
	return logging.New("", level)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "geofind "+version)
		},
	}
}
