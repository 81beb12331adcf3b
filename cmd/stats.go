package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teemow/contactstats/internal/cache"
	"github.com/teemow/contactstats/internal/config"
	"github.com/teemow/contactstats/internal/credential"
	"github.com/teemow/contactstats/internal/export"
	"github.com/teemow/contactstats/internal/instrumentation"
	"github.com/teemow/contactstats/internal/logging"
	"github.com/teemow/contactstats/internal/provider"
	"github.com/teemow/contactstats/internal/stats"
)

func newStatsCmd() *cobra.Command {
	var noCache bool

	cmd := &cobra.Command{
		Use:   "stats [address...]",
		Short: "Count the emails exchanged with each address",
		Long: `Search the mailbox for messages sent to or received from each address,
print a summary per address ordered by the number of emails exchanged, and
save the statistics to a CSV file.

Addresses are taken from the arguments, --address flags, the "addresses"
config key, or CONTACTSTATS_ADDRESSES (comma separated).`,
		Example: `  contactstats alice@example.com bob@example.com
  contactstats stats --account work --output work.csv alice@example.com
  contactstats stats --provider imap --address alice@example.com`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			cfg, err := config.Load(configPath, cmd.Flags())
			if err != nil {
				return err
			}
			cfg.Addresses = append(cfg.Addresses, args...)
			if noCache {
				cfg.Cache.Enabled = false
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			return runStats(ctx, cfg, cmd.OutOrStdout(), newLogger())
		},
	}

	cmd.Flags().StringSlice("address", nil, "Email address to report on (repeatable)")
	cmd.Flags().String("account", config.DefaultAccount, "Google account name to use")
	cmd.Flags().String("provider", config.ProviderGmail, "Mail provider: gmail or imap")
	cmd.Flags().Int64("max-results", config.DefaultMaxResults, "Maximum number of messages examined per address")
	cmd.Flags().StringP("output", "o", config.DefaultOutput, "CSV output file")
	cmd.Flags().Bool("strict", false, "Fail an address when a message has an unparseable date or lacks From/To")
	cmd.Flags().Bool("keep-going", false, "Continue with the remaining addresses after one fails")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Do not read or write the message metadata cache")

	return cmd
}

func runStats(ctx context.Context, cfg *config.Config, out io.Writer, logger *logging.SlogAdapter) error {
	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version
	instr, err := instrumentation.NewProvider(ctx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		if err := instr.Shutdown(context.Background()); err != nil {
			logger.Debug("instrumentation shutdown failed", logging.Err(err))
		}
	}()

	deps, closeDeps := openDeps(cfg, logger, instr.Metrics())
	defer closeDeps()

	fetcher, err := provider.Open(ctx, cfg, "", deps)
	if err != nil {
		return err
	}
	defer fetcher.Close()

	opts := stats.DefaultOptions()
	opts.IncludeEmpty = cfg.IncludeEmpty
	opts.Strict = cfg.Strict
	opts.KeepGoing = cfg.KeepGoing
	opts.Provider = cfg.Provider
	opts.Logger = logger
	opts.Metrics = instr.Metrics()
	opts.Reporter = stats.ConsoleReporter{W: out}

	result, aggErr := stats.NewAggregator(fetcher, opts).Aggregate(ctx, cfg.Addresses)
	if errors.Is(aggErr, stats.ErrNoAddresses) {
		return aggErr
	}

	if err := stats.WriteSummary(out, stats.Summarize(result)); err != nil {
		return err
	}

	if err := export.SaveCSV(cfg.Output, result); err != nil {
		return errors.Join(aggErr, err)
	}
	fmt.Fprintf(out, "CSV file saved to %s\n", cfg.Output)

	return aggErr
}

func openCache(cfg *config.Config) (*cache.Store, error) {
	path, err := cachePath(cfg)
	if err != nil {
		return nil, err
	}
	return cache.Open(path)
}

// openDeps opens the metadata cache and the keyring when the configuration
// uses them. Either failing only disables the feature.
func openDeps(cfg *config.Config, logger *logging.SlogAdapter, metrics *instrumentation.Metrics) (provider.Deps, func()) {
	deps := provider.Deps{Logger: logger, Metrics: metrics}
	closers := []func() error{}

	if cfg.Cache.Enabled {
		store, err := openCache(cfg)
		if err != nil {
			logger.Warn("metadata cache disabled", logging.Err(err))
		} else {
			deps.Cache = store
			closers = append(closers, store.Close)
		}
	}

	if cfg.Provider == config.ProviderIMAP {
		creds, err := credential.Open()
		if err != nil {
			logger.Debug("keyring unavailable", logging.Err(err))
		} else {
			deps.Credentials = creds
		}
	}

	return deps, func() {
		for _, c := range closers {
			if err := c(); err != nil {
				logger.Debug("close failed", logging.Err(err))
			}
		}
	}
}
