package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teemow/contactstats/internal/cache"
	"github.com/teemow/contactstats/internal/config"
	"github.com/teemow/contactstats/internal/provider"
)

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the message metadata cache",
		Long: `The metadata cache keeps the Date, From and To headers of messages that
were already fetched. Entries are kept per mailbox: per Google account for
Gmail, per user, host and mailbox for IMAP.`,
	}
	cmd.PersistentFlags().String("provider", config.ProviderGmail, "Mail provider: gmail or imap")
	cmd.PersistentFlags().String("account", config.DefaultAccount, "Google account name")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "stats",
			Short: "Show how many messages are cached for the mailbox",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				store, source, path, err := openCacheFor(cmd)
				if err != nil {
					return err
				}
				defer store.Close()

				n, err := store.Count(cmd.Context(), source)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d cached messages for %s in %s\n", n, source, path)
				return nil
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Remove the cached messages of the mailbox",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				store, source, _, err := openCacheFor(cmd)
				if err != nil {
					return err
				}
				defer store.Close()

				n, err := store.Purge(cmd.Context(), source)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cached messages for %s\n", n, source)
				return nil
			},
		},
	)
	return cmd
}

// openCacheFor opens the configured cache and resolves the mailbox the
// command's flags select.
func openCacheFor(cmd *cobra.Command) (*cache.Store, string, string, error) {
	cfg, err := config.Load(configPath, cmd.Flags())
	if err != nil {
		return nil, "", "", err
	}
	source, err := provider.Source(cfg, "")
	if err != nil {
		return nil, "", "", err
	}
	path, err := cachePath(cfg)
	if err != nil {
		return nil, "", "", err
	}
	store, err := cache.Open(path)
	if err != nil {
		return nil, "", "", err
	}
	return store, source, path, nil
}

func cachePath(cfg *config.Config) (string, error) {
	if cfg.Cache.Path != "" {
		return cfg.Cache.Path, nil
	}
	return cache.DefaultPath()
}
