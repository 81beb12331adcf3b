// Package provider opens the stats.Fetcher selected by the configuration.
package provider

import (
	"context"
	"fmt"

	"google.golang.org/api/option"

	"github.com/teemow/contactstats/internal/cache"
	"github.com/teemow/contactstats/internal/config"
	"github.com/teemow/contactstats/internal/credential"
	"github.com/teemow/contactstats/internal/gmail"
	"github.com/teemow/contactstats/internal/google"
	"github.com/teemow/contactstats/internal/imap"
	"github.com/teemow/contactstats/internal/instrumentation"
	"github.com/teemow/contactstats/internal/logging"
	"github.com/teemow/contactstats/internal/stats"
)

// Fetcher is a stats.Fetcher bound to one mailbox.
type Fetcher interface {
	stats.Fetcher

	// Source identifies the mailbox, e.g. "gmail:work".
	Source() string

	Close() error
}

// Deps are the optional collaborators of Open.
type Deps struct {
	Logger  logging.Logger
	Metrics *instrumentation.Metrics

	// Cache enables read-through caching of message metadata.
	Cache *cache.Store

	// Credentials is consulted for the IMAP password.
	Credentials *credential.Store

	// GmailOptions are passed to the Gmail service.
	GmailOptions []option.ClientOption
}

// Open returns the fetcher for cfg.Provider. For Gmail, account selects the
// stored OAuth token; an empty account means cfg.Account.
func Open(ctx context.Context, cfg *config.Config, account string, deps Deps) (Fetcher, error) {
	if deps.Logger == nil {
		deps.Logger = logging.Discard()
	}

	var (
		f   Fetcher
		err error
	)
	switch cfg.Provider {
	case config.ProviderGmail:
		f, err = openGmail(ctx, cfg, account, deps)
	case config.ProviderIMAP:
		f, err = openIMAP(cfg, deps)
	default:
		err = fmt.Errorf("unknown provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	if deps.Cache != nil {
		f = &cached{
			Fetcher: cache.NewFetcher(f, deps.Cache, f.Source(), deps.Logger, deps.Metrics),
			inner:   f,
		}
	}
	return f, nil
}

func openGmail(ctx context.Context, cfg *config.Config, account string, deps Deps) (Fetcher, error) {
	if account == "" {
		account = cfg.Account
	}
	if err := google.ValidateAccountName(account); err != nil {
		return nil, err
	}

	client, err := gmail.NewClientForAccount(ctx, account, cfg.Google.CredentialsFile, deps.GmailOptions...)
	if err != nil {
		deps.Metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultFailure)
		return nil, err
	}
	deps.Metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultSuccess)
	client.SetMetrics(deps.Metrics)

	return gmailFetcher{gmail.NewFetcher(client, cfg.MaxResults)}, nil
}

func openIMAP(cfg *config.Config, deps Deps) (Fetcher, error) {
	ic := IMAPConfig(cfg)
	if err := ic.Validate(); err != nil {
		return nil, err
	}

	var lookup func(string) (string, error)
	if deps.Credentials != nil {
		lookup = deps.Credentials.Get
	}
	pw, err := imap.ResolvePassword(ic, credential.IMAPPasswordKey(ic.Username, ic.Host), lookup)
	if err != nil {
		return nil, err
	}
	ic.Password = pw

	return imap.NewFetcher(ic, deps.Logger, deps.Metrics), nil
}

// Source returns the cache partition Open would use for cfg and account
// without opening the mailbox.
func Source(cfg *config.Config, account string) (string, error) {
	switch cfg.Provider {
	case config.ProviderGmail:
		if account == "" {
			account = cfg.Account
		}
		if err := google.ValidateAccountName(account); err != nil {
			return "", err
		}
		return gmail.Source(account), nil
	case config.ProviderIMAP:
		ic := IMAPConfig(cfg)
		if err := ic.Validate(); err != nil {
			return "", err
		}
		return ic.Source(), nil
	default:
		return "", fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

// IMAPConfig converts the imap section of cfg.
func IMAPConfig(cfg *config.Config) imap.Config {
	return imap.Config{
		Host:       cfg.IMAP.Host,
		Port:       cfg.IMAP.Port,
		Username:   cfg.IMAP.Username,
		TLS:        cfg.IMAP.TLS,
		Mailbox:    cfg.IMAP.Mailbox,
		MaxResults: int(cfg.MaxResults),
	}
}

type gmailFetcher struct {
	*gmail.Fetcher
}

func (gmailFetcher) Close() error { return nil }

type cached struct {
	*cache.Fetcher
	inner Fetcher
}

func (c *cached) Source() string { return c.inner.Source() }
func (c *cached) Close() error   { return c.inner.Close() }
