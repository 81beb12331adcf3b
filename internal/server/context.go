package server

import (
	"context"
	"errors"
	"sync"

	"github.com/teemow/contactstats/internal/config"
	"github.com/teemow/contactstats/internal/instrumentation"
	"github.com/teemow/contactstats/internal/logging"
	"github.com/teemow/contactstats/internal/provider"
)

// ErrShutdown is returned once the server context has been shut down.
var ErrShutdown = errors.New("server is shutting down")

// ServerContext holds the context for the MCP server
type ServerContext struct {
	ctx      context.Context
	cancel   context.CancelFunc
	cfg      *config.Config
	deps     provider.Deps
	fetchers map[string]provider.Fetcher // Maps account name to fetcher
	mu       sync.RWMutex
	shutdown bool
}

// NewServerContext creates a new server context. Fetchers are opened lazily
// on the first tool call for an account.
func NewServerContext(ctx context.Context, cfg *config.Config, deps provider.Deps) *ServerContext {
	shutdownCtx, cancel := context.WithCancel(ctx)
	if deps.Logger == nil {
		deps.Logger = logging.Discard()
	}

	return &ServerContext{
		ctx:      shutdownCtx,
		cancel:   cancel,
		cfg:      cfg,
		deps:     deps,
		fetchers: make(map[string]provider.Fetcher),
	}
}

// Context returns the server context
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Config returns the loaded configuration. Callers must not modify it.
func (sc *ServerContext) Config() *config.Config {
	return sc.cfg
}

func (sc *ServerContext) Logger() logging.Logger {
	return sc.deps.Logger
}

func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	return sc.deps.Metrics
}

// fetcherKey maps an account argument to the fetcher map key. IMAP has a
// single mailbox, so the account is ignored there.
func (sc *ServerContext) fetcherKey(account string) string {
	if sc.cfg.Provider == config.ProviderIMAP {
		return config.ProviderIMAP
	}
	if account == "" {
		return sc.cfg.Account
	}
	return account
}

// FetcherForAccount returns the fetcher for account, opening it on first use.
// An empty account selects the configured default.
func (sc *ServerContext) FetcherForAccount(account string) (provider.Fetcher, error) {
	key := sc.fetcherKey(account)

	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil, ErrShutdown
	}
	if f, ok := sc.fetchers[key]; ok {
		return f, nil
	}

	f, err := provider.Open(sc.ctx, sc.cfg, key, sc.deps)
	if err != nil {
		return nil, err
	}
	sc.fetchers[key] = f
	return f, nil
}

// SetFetcherForAccount sets the fetcher for a specific account
func (sc *ServerContext) SetFetcherForAccount(account string, f provider.Fetcher) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.fetchers[sc.fetcherKey(account)] = f
}

// IsShutdown returns whether the server has been shutdown
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown cancels the server context and closes all open fetchers.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()

	var errs []error
	for account, f := range sc.fetchers {
		if err := f.Close(); err != nil {
			sc.deps.Logger.Warn("closing fetcher failed", logging.Account(account), logging.Err(err))
			errs = append(errs, err)
		}
		delete(sc.fetchers, account)
	}
	return errors.Join(errs...)
}
